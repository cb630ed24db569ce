package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickelt/internal/model"
)

func productContract(t *testing.T) *model.Contract {
	t.Helper()
	c, err := model.NewContract("product", []model.Field{
		{Name: "id", Type: model.FieldTypeInteger},
		{Name: "name", Type: model.FieldTypeString},
		{Name: "price", Type: model.FieldTypeFloat},
	})
	require.NoError(t, err)
	return c
}

func TestValidateSucceedsWithMatchingColumns(t *testing.T) {
	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"id", "name", "price"},
		[]model.Record{
			{"id": 1, "name": "a", "price": 1.5},
			{"id": "2", "name": "b", "price": "2.75"},
		},
	)

	vb, err := v.Validate(batch, productContract(t), Options{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 2, vb.RowCount())
	assert.Equal(t, 3, vb.ColumnCount())
	assert.Equal(t, int64(2), vb.Records[1]["id"])
	assert.Equal(t, 2.75, vb.Records[1]["price"])
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"id", "name", "price"},
		[]model.Record{{"id": "1", "name": "a", "price": "1.5"}},
	)

	_, err := v.Validate(batch, productContract(t), Options{Strict: true})
	require.NoError(t, err)

	// Coercion happens on a copy; the fetched record keeps its raw values.
	assert.Equal(t, "1", batch.Records[0]["id"])
	assert.Equal(t, "1.5", batch.Records[0]["price"])
}

func TestValidateNamesMissingColumns(t *testing.T) {
	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"id", "name"},
		[]model.Record{{"id": 1, "name": "a"}},
	)

	_, err := v.Validate(batch, productContract(t), Options{Strict: true})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"price"}, schemaErr.Missing)
}

func TestValidateMissingColumnsFailEvenWhenLenient(t *testing.T) {
	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"id"},
		[]model.Record{{"id": 1}},
	)

	_, err := v.Validate(batch, productContract(t), Options{Strict: false})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.ElementsMatch(t, []string{"name", "price"}, schemaErr.Missing)
}

func TestValidateStrictRejectsUnexpectedColumns(t *testing.T) {
	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"id", "name", "price", "discount"},
		[]model.Record{{"id": 1, "name": "a", "price": 1.5, "discount": 0.1}},
	)

	_, err := v.Validate(batch, productContract(t), Options{Strict: true})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"discount"}, schemaErr.Unexpected)
}

func TestValidateLenientDropsUnexpectedColumns(t *testing.T) {
	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"id", "name", "price", "discount"},
		[]model.Record{{"id": 1, "name": "a", "price": 1.5, "discount": 0.1}},
	)

	vb, err := v.Validate(batch, productContract(t), Options{Strict: false})
	require.NoError(t, err)
	_, present := vb.Records[0]["discount"]
	assert.False(t, present)
	assert.Equal(t, 3, vb.ColumnCount())
}

func TestValidateFailsWholeBatchOnBadRecord(t *testing.T) {
	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"id", "name", "price"},
		[]model.Record{
			{"id": 1, "name": "a", "price": 1.5},
			{"id": "not-a-number", "name": "b", "price": 2.0},
		},
	)

	_, err := v.Validate(batch, productContract(t), Options{Strict: true})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, 1, schemaErr.RecordIdx)
	assert.Equal(t, "id", schemaErr.Field)
}

func TestValidateOptionalFieldMayBeNull(t *testing.T) {
	c, err := model.NewContract("sale", []model.Field{
		{Name: "sale_id", Type: model.FieldTypeInteger},
		{Name: "category", Type: model.FieldTypeString, Optional: true},
	})
	require.NoError(t, err)

	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"sale_id"},
		[]model.Record{{"sale_id": 7}},
	)

	vb, err := v.Validate(batch, c, Options{Strict: true})
	require.NoError(t, err)
	assert.Nil(t, vb.Records[0]["category"])
}

func TestValidateCoercesTimestamps(t *testing.T) {
	c, err := model.NewContract("event", []model.Field{
		{Name: "occurred_at", Type: model.FieldTypeTimestamp},
	})
	require.NoError(t, err)

	v := NewValidator(nil)
	batch := model.NewBatch(
		[]string{"occurred_at"},
		[]model.Record{
			{"occurred_at": "2026-08-26T10:00:00Z"},
			{"occurred_at": "2026-08-26 10:00:00"},
			{"occurred_at": "2026-08-26"},
		},
	)

	vb, err := v.Validate(batch, c, Options{Strict: true})
	require.NoError(t, err)
	for _, rec := range vb.Records {
		_, ok := rec["occurred_at"].(time.Time)
		assert.True(t, ok)
	}
}
