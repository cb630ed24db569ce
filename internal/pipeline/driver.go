// Package pipeline runs the bronze landing protocol: fetch a batch from a
// source, validate it against its contract, write it atomically, and emit a
// metadata sidecar for the terminal state. Each run is a single linear pass
// through the FETCHING -> VALIDATING -> WRITING -> EMITTING -> DONE state
// machine with FAILED absorbing from any stage.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quickelt/internal/metadata"
	"quickelt/internal/metrics"
	"quickelt/internal/model"
	"quickelt/internal/naming"
	"quickelt/internal/validate"
	"quickelt/internal/writer"
)

// Stage is one state of the per-run state machine.
type Stage string

const (
	StageFetching   Stage = "fetching"
	StageValidating Stage = "validating"
	StageWriting    Stage = "writing"
	StageEmitting   Stage = "emitting"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// RunResult is the terminal state of one ingestion run.
type RunResult struct {
	Status   model.RunStatus
	Stage    Stage
	Artifact *model.WriteArtifact
	Rows     int
	Columns  int
	Attempts int
	Err      error
}

// Driver executes runs for one source. Drivers hold no mutable state across
// runs; two drivers for different sources never share anything but the
// bronze namespace, which they only append to.
type Driver struct {
	fetcher   Fetcher
	contract  *model.Contract
	format    model.DataFormat
	strict    bool
	retry     RetryPolicy
	namer     *naming.PathNamer
	validator *validate.Validator
	writer    *writer.Writer
	emitter   *metadata.Emitter
	collector *metrics.Collector
	logger    *zap.Logger
}

// DriverConfig wires a driver's collaborators.
type DriverConfig struct {
	Fetcher   Fetcher
	Contract  *model.Contract
	Format    model.DataFormat
	Strict    bool
	Retry     RetryPolicy
	Namer     *naming.PathNamer
	Validator *validate.Validator
	Writer    *writer.Writer
	Emitter   *metadata.Emitter
	Collector *metrics.Collector
	Logger    *zap.Logger
}

// NewDriver creates a driver for one source.
func NewDriver(cfg DriverConfig) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("origin", cfg.Fetcher.Origin()),
		zap.String("framework", cfg.Fetcher.Framework()),
	)
	return &Driver{
		fetcher:   cfg.Fetcher,
		contract:  cfg.Contract,
		format:    cfg.Format,
		strict:    cfg.Strict,
		retry:     cfg.Retry,
		namer:     cfg.Namer,
		validator: cfg.Validator,
		writer:    cfg.Writer,
		emitter:   cfg.Emitter,
		collector: cfg.Collector,
		logger:    logger,
	}
}

// Run executes one ingestion pass. All component errors are absorbed here
// and converted into a failure sidecar plus a RunResult carrying the error,
// so one failed source never aborts a multi-source run. Exactly one
// metadata record is emitted per terminal state.
func (d *Driver) Run(ctx context.Context) *RunResult {
	res := &RunResult{Status: model.RunStatusFailure, Stage: StageFetching}

	// FETCHING
	var batch *model.Batch
	start := time.Now()
	attempts, err := d.retry.Do(ctx, d.logger, func(ctx context.Context) error {
		d.observeAttempt()
		b, fetchErr := d.fetcher.Fetch(ctx)
		if fetchErr != nil {
			return fetchErr
		}
		batch = b
		return nil
	})
	res.Attempts = attempts
	d.observeStage(StageFetching, start)
	if attempts > 1 {
		d.observeRetries(attempts - 1)
	}
	if err != nil {
		return d.fail(res, err)
	}
	d.logger.Info("batch fetched",
		zap.Int("rows", batch.RowCount()),
		zap.Int("columns", batch.ColumnCount()),
		zap.Int("attempts", attempts))

	// VALIDATING
	res.Stage = StageValidating
	start = time.Now()
	vb, err := d.validator.Validate(batch, d.contract, validate.Options{Strict: d.strict})
	d.observeStage(StageValidating, start)
	if err != nil {
		return d.fail(res, err)
	}

	// WRITING
	res.Stage = StageWriting
	artifact, err := d.namer.Name(d.fetcher.Origin(), d.fetcher.Framework(), d.format)
	if err != nil {
		return d.fail(res, err)
	}
	res.Artifact = artifact

	start = time.Now()
	wr, err := d.writer.Write(ctx, vb, artifact.DataFilePath, d.format)
	d.observeStage(StageWriting, start)
	if err != nil {
		return d.fail(res, err)
	}
	res.Rows = wr.Rows
	res.Columns = wr.Columns

	// EMITTING
	res.Stage = StageEmitting
	rec := &metadata.Record{
		Origin:      d.fetcher.Origin(),
		Framework:   d.fetcher.Framework(),
		Timestamp:   artifact.TimestampString(),
		Status:      model.RunStatusSuccess,
		DataFile:    artifact.DataFilePath,
		Rows:        wr.Rows,
		Columns:     wr.Columns,
		ColumnTypes: d.contract.ColumnTypes(),
		Extra:       d.fetcher.Extra(),
	}
	if err := d.emitter.Emit(artifact.MetadataFilePath, rec); err != nil {
		// The data file already landed; do not lose it over a sidecar
		// failure. The run still counts as a success.
		d.logger.Warn("metadata sidecar write failed after successful data write", zap.Error(err))
	}

	res.Status = model.RunStatusSuccess
	res.Stage = StageDone
	if d.collector != nil {
		d.collector.RunsTotal.WithLabelValues(d.fetcher.Origin(), d.fetcher.Framework(), string(model.RunStatusSuccess)).Inc()
		d.collector.RowsWritten.WithLabelValues(d.fetcher.Origin(), string(d.format)).Add(float64(wr.Rows))
	}
	d.logger.Info("run done", zap.String("data_file", artifact.DataFilePath))
	return res
}

// fail records the absorbing FAILED transition: log, failure sidecar,
// failure metrics.
func (d *Driver) fail(res *RunResult, err error) *RunResult {
	res.Err = err
	failedStage := res.Stage
	res.Status = model.RunStatusFailure

	d.logger.Error("run failed",
		zap.String("stage", string(failedStage)),
		zap.Error(err))

	artifact := res.Artifact
	if artifact == nil {
		named, nameErr := d.namer.Name(d.fetcher.Origin(), d.fetcher.Framework(), d.format)
		if nameErr != nil {
			d.logger.Error("cannot name failure sidecar", zap.Error(nameErr))
			res.Stage = StageFailed
			return res
		}
		artifact = named
		res.Artifact = artifact
	}

	extra := map[string]interface{}{
		"error": err.Error(),
		"stage": string(failedStage),
	}
	for k, v := range d.fetcher.Extra() {
		extra[k] = v
	}
	rec := &metadata.Record{
		Origin:      d.fetcher.Origin(),
		Framework:   d.fetcher.Framework(),
		Timestamp:   artifact.TimestampString(),
		Status:      model.RunStatusFailure,
		ColumnTypes: d.contract.ColumnTypes(),
		Extra:       extra,
	}
	if emitErr := d.emitter.Emit(artifact.MetadataFilePath, rec); emitErr != nil {
		d.logger.Error("failure sidecar write failed", zap.Error(emitErr))
	}

	if d.collector != nil {
		d.collector.RunsTotal.WithLabelValues(d.fetcher.Origin(), d.fetcher.Framework(), string(model.RunStatusFailure)).Inc()
	}
	res.Stage = StageFailed
	return res
}

func (d *Driver) observeAttempt() {
	if d.collector != nil {
		d.collector.FetchAttempts.WithLabelValues(d.fetcher.Origin()).Inc()
	}
}

func (d *Driver) observeRetries(n int) {
	if d.collector != nil {
		d.collector.FetchRetries.WithLabelValues(d.fetcher.Origin()).Add(float64(n))
	}
}

func (d *Driver) observeStage(stage Stage, start time.Time) {
	if d.collector != nil {
		d.collector.StageDuration.WithLabelValues(d.fetcher.Origin(), string(stage)).Observe(time.Since(start).Seconds())
	}
}
