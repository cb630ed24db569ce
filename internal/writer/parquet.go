package writer

import (
	"encoding/json"
	"fmt"
	"time"

	pqwriter "github.com/xitongsys/parquet-go/writer"

	"quickelt/internal/model"
)

type jsonSchemaNode struct {
	Tag    string           `json:"Tag"`
	Fields []jsonSchemaNode `json:"Fields,omitempty"`
}

// parquetFieldTag maps a contract field to a parquet-go schema tag.
func parquetFieldTag(f model.Field) string {
	var typ string
	switch f.Type {
	case model.FieldTypeInteger:
		typ = "type=INT64"
	case model.FieldTypeFloat:
		typ = "type=DOUBLE"
	case model.FieldTypeBoolean:
		typ = "type=BOOLEAN"
	case model.FieldTypeTimestamp:
		typ = "type=INT64, convertedtype=TIMESTAMP_MILLIS"
	default:
		typ = "type=BYTE_ARRAY, convertedtype=UTF8"
	}
	repetition := "REQUIRED"
	if f.Optional {
		repetition = "OPTIONAL"
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=%s", f.Name, typ, repetition)
}

// writeParquet serializes the batch as a Parquet file whose schema is
// derived from the contract, preserving declared types.
func writeParquet(vb *model.ValidatedBatch, path string) error {
	root := jsonSchemaNode{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, f := range vb.Contract.Fields {
		root.Fields = append(root.Fields, jsonSchemaNode{Tag: parquetFieldTag(f)})
	}
	schema, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to build parquet schema: %w", err)
	}

	pf, err := newLocalParquetFile().Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	pw, err := pqwriter.NewJSONWriter(string(schema), pf, 4)
	if err != nil {
		pf.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	for i, rec := range vb.Records {
		row := make(map[string]interface{}, len(vb.Contract.Fields))
		for _, f := range vb.Contract.Fields {
			row[f.Name] = parquetValue(rec[f.Name])
		}
		encoded, err := json.Marshal(row)
		if err != nil {
			pf.Close()
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		if err := pw.Write(string(encoded)); err != nil {
			pf.Close()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		pf.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return pf.Close()
}

// parquetValue converts coerced Go values to what the JSON writer expects;
// timestamps become epoch milliseconds to match TIMESTAMP_MILLIS.
func parquetValue(v interface{}) interface{} {
	if ts, ok := v.(time.Time); ok {
		return ts.UnixMilli()
	}
	return v
}
