package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/linkedin/goavro/v2"

	"quickelt/internal/model"
)

type avroField struct {
	Name string      `json:"name"`
	Type interface{} `json:"type"`
}

type avroRecordSchema struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

// avroType returns the Avro type declaration and the union key used when
// wrapping non-null values of optional fields.
func avroType(ft model.FieldType) (interface{}, string) {
	switch ft {
	case model.FieldTypeInteger:
		return "long", "long"
	case model.FieldTypeFloat:
		return "double", "double"
	case model.FieldTypeBoolean:
		return "boolean", "boolean"
	case model.FieldTypeTimestamp:
		return map[string]interface{}{"type": "long", "logicalType": "timestamp-millis"}, "long.timestamp-millis"
	default:
		return "string", "string"
	}
}

// writeAvro serializes the batch as an Avro object container file with a
// record schema derived from the contract. Optional fields become nullable
// unions.
func writeAvro(vb *model.ValidatedBatch, path string) error {
	schema := avroRecordSchema{Type: "record", Name: vb.Contract.Name}
	unionKeys := make(map[string]string, len(vb.Contract.Fields))
	for _, f := range vb.Contract.Fields {
		typ, key := avroType(f.Type)
		unionKeys[f.Name] = key
		if f.Optional {
			schema.Fields = append(schema.Fields, avroField{Name: f.Name, Type: []interface{}{"null", typ}})
		} else {
			schema.Fields = append(schema.Fields, avroField{Name: f.Name, Type: typ})
		}
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to build avro schema: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: f, Schema: string(schemaJSON)})
	if err != nil {
		return fmt.Errorf("failed to create avro writer: %w", err)
	}

	native := make([]interface{}, 0, len(vb.Records))
	for _, rec := range vb.Records {
		row := make(map[string]interface{}, len(vb.Contract.Fields))
		for _, fd := range vb.Contract.Fields {
			row[fd.Name] = avroValue(rec[fd.Name], fd, unionKeys[fd.Name])
		}
		native = append(native, row)
	}

	if err := ocf.Append(native); err != nil {
		return fmt.Errorf("failed to append avro records: %w", err)
	}
	return f.Sync()
}

// avroValue converts a coerced value to goavro native form, wrapping union
// members for optional fields.
func avroValue(v interface{}, f model.Field, unionKey string) interface{} {
	if v == nil {
		return nil
	}
	if ts, ok := v.(time.Time); ok {
		v = ts.UnixMilli()
	}
	if f.Optional {
		return map[string]interface{}{unionKey: v}
	}
	return v
}
