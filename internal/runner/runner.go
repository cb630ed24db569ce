// Package runner assembles fetchers from configuration and executes
// landing runs, fanning out across sources with a bounded worker count.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quickelt/internal/config"
	"quickelt/internal/metadata"
	"quickelt/internal/metrics"
	"quickelt/internal/model"
	"quickelt/internal/naming"
	"quickelt/internal/pipeline"
	"quickelt/internal/source/api"
	"quickelt/internal/source/csvfile"
	"quickelt/internal/source/database"
	"quickelt/internal/source/objectstore"
	"quickelt/internal/source/scrape"
	"quickelt/internal/source/sharepoint"
	"quickelt/internal/validate"
	"quickelt/internal/writer"
)

// Runner executes landing runs for configured sources.
type Runner struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	namer     *naming.PathNamer
	validator *validate.Validator
	writer    *writer.Writer
	emitter   *metadata.Emitter
	retry     pipeline.RetryPolicy
}

// New builds a runner from the loaded configuration.
func New(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []naming.Option
	if cfg.Landing.UniqueSuffix {
		opts = append(opts, naming.WithUniqueSuffix())
	}

	retry := pipeline.DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelay > 0 {
		retry.BaseDelay = cfg.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay > 0 {
		retry.MaxDelay = cfg.Retry.MaxDelay
	}

	return &Runner{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		namer:     naming.NewPathNamer(cfg.Landing.BronzeRoot, cfg.Landing.MetadataRoot, opts...),
		validator: validate.NewValidator(logger),
		writer:    writer.NewWriter(logger),
		emitter:   metadata.NewEmitter(logger),
		retry:     retry,
	}
}

// RunAll executes every enabled source concurrently, bounded by the
// configured concurrency. It returns the results of all runs and an
// error when at least one run failed.
func (r *Runner) RunAll(ctx context.Context) ([]pipeline.RunResult, error) {
	var enabled []config.SourceConfig
	for _, src := range r.cfg.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	results := make([][]pipeline.RunResult, len(enabled))
	errs := make([]error, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	// Errors are collected per source rather than returned to the group
	// so a broken source never cancels its siblings.
	for i, src := range enabled {
		g.Go(func() error {
			results[i], errs[i] = r.RunSource(gctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var all []pipeline.RunResult
	failed := 0
	for i, runs := range results {
		if errs[i] != nil {
			r.logger.Error("source could not run",
				zap.String("source", enabled[i].Name), zap.Error(errs[i]))
			failed++
			continue
		}
		for _, run := range runs {
			if run.Status == model.RunStatusFailure {
				failed++
			}
			all = append(all, run)
		}
	}
	if failed > 0 {
		return all, fmt.Errorf("%d failures across %d sources", failed, len(enabled))
	}
	return all, nil
}

// RunSource executes all runs for one source. Most sources produce a
// single run; object stores produce one run per matching object.
func (r *Runner) RunSource(ctx context.Context, src config.SourceConfig) ([]pipeline.RunResult, error) {
	contract, err := src.ToContract()
	if err != nil {
		return nil, err
	}

	fetchers, err := r.buildFetchers(ctx, src)
	if err != nil {
		return nil, err
	}

	results := make([]pipeline.RunResult, 0, len(fetchers))
	for _, fetcher := range fetchers {
		driver := pipeline.NewDriver(pipeline.DriverConfig{
			Fetcher:   fetcher,
			Contract:  contract,
			Format:    model.DataFormat(src.Format),
			Strict:    src.Strict,
			Retry:     r.retry,
			Namer:     r.namer,
			Validator: r.validator,
			Writer:    r.writer,
			Emitter:   r.emitter,
			Collector: r.collector,
			Logger:    r.logger.With(zap.String("source", src.Name)),
		})
		results = append(results, *driver.Run(ctx))
	}
	return results, nil
}

// RunByName executes the named source from the configuration.
func (r *Runner) RunByName(ctx context.Context, name string) ([]pipeline.RunResult, error) {
	for _, src := range r.cfg.Sources {
		if src.Name == name {
			return r.RunSource(ctx, src)
		}
	}
	return nil, fmt.Errorf("unknown source %q", name)
}

func (r *Runner) buildFetchers(ctx context.Context, src config.SourceConfig) ([]pipeline.Fetcher, error) {
	switch src.Kind {
	case "api":
		f := api.NewFetcher(api.Config{
			URL:               src.API.URL,
			Token:             src.API.Token,
			Framework:         src.Framework,
			Timeout:           src.API.Timeout,
			RequestsPerSecond: src.API.RequestsPerSecond,
		}, r.logger)
		return []pipeline.Fetcher{f}, nil

	case "csv":
		var delim rune
		if src.CSV.Delimiter != "" {
			delim = []rune(src.CSV.Delimiter)[0]
		}
		f := csvfile.NewFetcher(csvfile.Config{
			Path:      src.CSV.Path,
			Framework: src.Framework,
			Delimiter: delim,
		}, r.logger)
		return []pipeline.Fetcher{f}, nil

	case "database":
		f, err := database.NewFetcher(database.Config{
			Type:      src.Database.Type,
			Host:      src.Database.Host,
			Port:      src.Database.Port,
			Database:  src.Database.Database,
			Username:  src.Database.Username,
			Password:  src.Database.Password,
			SSL:       src.Database.SSL,
			Query:     src.Database.Query,
			Framework: src.Framework,
		}, nil, r.logger)
		if err != nil {
			return nil, err
		}
		return []pipeline.Fetcher{f}, nil

	case "sharepoint":
		f, err := sharepoint.NewFetcher(sharepoint.Config{
			TenantID:     src.SharePoint.TenantID,
			ClientID:     src.SharePoint.ClientID,
			ClientSecret: src.SharePoint.ClientSecret,
			Hostname:     src.SharePoint.Hostname,
			SitePath:     src.SharePoint.SitePath,
			FilePath:     src.SharePoint.FilePath,
			Framework:    src.Framework,
		})
		if err != nil {
			return nil, err
		}
		return []pipeline.Fetcher{f}, nil

	case "scrape":
		f := scrape.NewFetcher(scrape.Config{
			URL:       src.Scrape.URL,
			UserAgent: src.Scrape.UserAgent,
			Framework: src.Framework,
			Timeout:   src.Scrape.Timeout,
		}, r.logger)
		return []pipeline.Fetcher{f}, nil

	case "objectstore":
		client, err := r.buildObjectStoreClient(ctx, src.ObjectStore)
		if err != nil {
			return nil, err
		}
		discovered, err := objectstore.Discover(ctx, client, objectstore.Config{
			Framework: src.Framework,
			Prefix:    src.ObjectStore.Prefix,
			Suffix:    src.ObjectStore.Suffix,
			Format:    objectstore.ObjectFormat(src.ObjectStore.Format),
		})
		if err != nil {
			return nil, err
		}
		fetchers := make([]pipeline.Fetcher, 0, len(discovered))
		for _, f := range discovered {
			fetchers = append(fetchers, f)
		}
		return fetchers, nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

func (r *Runner) buildObjectStoreClient(ctx context.Context, cfg config.ObjectStoreSourceConfig) (objectstore.Client, error) {
	switch cfg.Backend {
	case "s3":
		return objectstore.NewS3Client(ctx, &objectstore.S3Config{
			Region:      cfg.Region,
			Bucket:      cfg.Bucket,
			AccessKey:   cfg.AccessKey,
			SecretKey:   cfg.SecretKey,
			RoleARN:     cfg.RoleARN,
			EndpointURL: cfg.Endpoint,
		})
	case "minio":
		return objectstore.NewMinIOClient(&objectstore.MinIOConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Secure:    cfg.UseSSL,
		})
	case "azure":
		return objectstore.NewAzureBlobClient(&objectstore.AzureBlobConfig{
			AccountName: cfg.Account,
			AccountKey:  cfg.SecretKey,
			SASToken:    cfg.SASToken,
			Container:   cfg.Container,
			Endpoint:    cfg.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown object store backend %q", cfg.Backend)
	}
}

// Summarize logs one line per run and returns the failure count.
func (r *Runner) Summarize(results []pipeline.RunResult) int {
	failed := 0
	for _, run := range results {
		fields := []zap.Field{
			zap.String("status", string(run.Status)),
			zap.String("stage", string(run.Stage)),
			zap.Int("rows", run.Rows),
			zap.Int("attempts", run.Attempts),
		}
		if run.Artifact != nil {
			fields = append(fields, zap.String("data_file", run.Artifact.DataFilePath))
		}
		if run.Err != nil {
			fields = append(fields, zap.Error(run.Err))
		}
		if run.Status == model.RunStatusFailure {
			failed++
			r.logger.Error("run failed", fields...)
		} else {
			r.logger.Info("run landed", fields...)
		}
	}
	return failed
}
