package objectstore

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"quickelt/internal/model"
	"quickelt/internal/pipeline"
)

// ObjectFormat identifies how an object's bytes are decoded into records.
type ObjectFormat string

const (
	ObjectFormatCSV  ObjectFormat = "csv"
	ObjectFormatJSON ObjectFormat = "json"
)

// Config describes an object store listing to ingest. Every matching
// object becomes its own fetch, so a bucket of daily drops lands as
// independent runs.
type Config struct {
	Framework string
	Prefix    string
	Suffix    string
	Format    ObjectFormat
}

// Fetcher reads a single object from an object store.
type Fetcher struct {
	client Client
	key    string
	cfg    Config
}

// Discover lists the objects under cfg.Prefix matching cfg.Suffix and
// returns one fetcher per object. Listing failures are transient since
// the store may simply be unreachable.
func Discover(ctx context.Context, client Client, cfg Config) ([]*Fetcher, error) {
	if cfg.Framework == "" {
		return nil, fmt.Errorf("framework is required")
	}
	if cfg.Format == "" {
		cfg.Format = ObjectFormatCSV
	}
	if cfg.Format != ObjectFormatCSV && cfg.Format != ObjectFormatJSON {
		return nil, fmt.Errorf("unsupported object format: %s", cfg.Format)
	}

	objects, err := client.List(ctx, cfg.Prefix, cfg.Suffix)
	if err != nil {
		return nil, pipeline.Transient("list objects", err)
	}

	fetchers := make([]*Fetcher, 0, len(objects))
	for _, obj := range objects {
		fetchers = append(fetchers, &Fetcher{client: client, key: obj.Key, cfg: cfg})
	}
	return fetchers, nil
}

// Key returns the object key this fetcher reads.
func (f *Fetcher) Key() string { return f.key }

// Origin implements pipeline.Fetcher.
func (f *Fetcher) Origin() string { return f.client.Backend() }

// Framework implements pipeline.Fetcher.
func (f *Fetcher) Framework() string { return f.cfg.Framework }

// Extra implements pipeline.Fetcher.
func (f *Fetcher) Extra() map[string]interface{} {
	return map[string]interface{}{"source_file": f.key}
}

// Fetch implements pipeline.Fetcher. Download failures are transient;
// decode failures are permanent since retrying the same bytes cannot
// help.
func (f *Fetcher) Fetch(ctx context.Context) (*model.Batch, error) {
	body, err := f.client.Get(ctx, f.key)
	if err != nil {
		return nil, pipeline.Transient("get object", err)
	}
	defer body.Close()

	switch f.cfg.Format {
	case ObjectFormatCSV:
		return decodeCSVObject(body)
	case ObjectFormatJSON:
		return decodeJSONObject(body)
	default:
		return nil, pipeline.Permanent("decode object", fmt.Errorf("unsupported object format: %s", f.cfg.Format))
	}
}

func decodeCSVObject(r io.Reader) (*model.Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, pipeline.Permanent("decode csv object", err)
	}
	if len(rows) == 0 {
		return nil, pipeline.Permanent("decode csv object", fmt.Errorf("object has no header row"))
	}

	header := rows[0]
	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(model.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return model.NewBatch(header, records), nil
}

func decodeJSONObject(r io.Reader) (*model.Batch, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []model.Record
	if err := dec.Decode(&records); err != nil {
		return nil, pipeline.Permanent("decode json object", err)
	}
	return model.BatchFromRecords(records), nil
}
