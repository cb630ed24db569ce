// Package validate checks tabular batches against declared contracts and
// coerces values to their declared types. Validation is all-or-nothing: one
// bad record fails the whole batch.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"quickelt/internal/model"
)

// SchemaError reports why a batch failed contract validation: missing or
// unexpected columns, or the first record/field that could not be coerced.
type SchemaError struct {
	Contract   string
	Missing    []string
	Unexpected []string
	RecordIdx  int
	Field      string
	Reason     string
}

func (e *SchemaError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("contract %s: missing required columns: %s", e.Contract, strings.Join(e.Missing, ", "))
	case len(e.Unexpected) > 0:
		return fmt.Sprintf("contract %s: unexpected columns: %s", e.Contract, strings.Join(e.Unexpected, ", "))
	default:
		return fmt.Sprintf("contract %s: record %d field %q: %s", e.Contract, e.RecordIdx, e.Field, e.Reason)
	}
}

// Options control validation strictness.
type Options struct {
	// Strict rejects batches carrying columns the contract does not
	// declare. When false, extra columns are reported with a warning and
	// excluded from the validated batch.
	Strict bool
}

// Validator validates batches against contracts.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a validator.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// Validate checks every record of the batch against the contract and
// returns a new ValidatedBatch with all values coerced to their declared
// types. The input batch is never mutated. Missing required columns fail
// regardless of strictness; unexpected columns fail only in strict mode.
func (v *Validator) Validate(batch *model.Batch, contract *model.Contract, opts Options) (*model.ValidatedBatch, error) {
	expected := contract.FieldSet()

	received := make(map[string]struct{}, len(batch.Columns))
	for _, col := range batch.Columns {
		received[col] = struct{}{}
	}

	var unexpected []string
	for col := range received {
		if _, ok := expected[col]; !ok {
			unexpected = append(unexpected, col)
		}
	}
	sort.Strings(unexpected)
	if len(unexpected) > 0 {
		if opts.Strict {
			return nil, &SchemaError{Contract: contract.Name, Unexpected: unexpected}
		}
		v.logger.Warn("ignoring columns not declared by contract",
			zap.String("contract", contract.Name),
			zap.Strings("columns", unexpected))
	}

	var missing []string
	for _, f := range contract.Fields {
		if f.Optional {
			continue
		}
		if _, ok := received[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		return nil, &SchemaError{Contract: contract.Name, Missing: missing}
	}

	validated := make([]model.Record, len(batch.Records))
	for i, rec := range batch.Records {
		out := make(model.Record, len(contract.Fields))
		for _, f := range contract.Fields {
			raw, present := rec[f.Name]
			if !present || raw == nil {
				if f.Optional {
					out[f.Name] = nil
					continue
				}
				return nil, &SchemaError{
					Contract:  contract.Name,
					RecordIdx: i,
					Field:     f.Name,
					Reason:    "required value is null",
				}
			}
			coerced, err := coerce(raw, f.Type)
			if err != nil {
				return nil, &SchemaError{
					Contract:  contract.Name,
					RecordIdx: i,
					Field:     f.Name,
					Reason:    err.Error(),
				}
			}
			out[f.Name] = coerced
		}
		validated[i] = out
	}

	v.logger.Info("batch validated",
		zap.String("contract", contract.Name),
		zap.Int("rows", len(validated)),
		zap.Int("columns", len(contract.Fields)))

	return &model.ValidatedBatch{Contract: contract, Records: validated}, nil
}
