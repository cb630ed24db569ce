package model

import "sort"

// Record is one row of a batch, keyed by column name.
type Record map[string]interface{}

// Batch is one in-memory unit of tabular data produced by a single
// ingestion run. A batch is owned exclusively by its run: it is produced by
// a fetcher, consumed by validation and discarded when the run ends. Only
// the written artifact persists.
type Batch struct {
	Columns []string
	Records []Record
}

// NewBatch creates a batch from a column order and rows.
func NewBatch(columns []string, records []Record) *Batch {
	return &Batch{Columns: columns, Records: records}
}

// BatchFromRecords builds a batch from rows without a positional column
// order, e.g. decoded JSON objects. The column order is the sorted union of
// all record keys, so it is deterministic across runs.
func BatchFromRecords(records []Record) *Batch {
	seen := make(map[string]struct{})
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return &Batch{Columns: columns, Records: records}
}

// RowCount returns the number of records in the batch.
func (b *Batch) RowCount() int {
	return len(b.Records)
}

// ColumnCount returns the number of columns in the batch.
func (b *Batch) ColumnCount() int {
	return len(b.Columns)
}

// ValidatedBatch is a batch whose every record has been checked against a
// contract: the present fields of each record equal the contract's field
// set and every value has been coerced to its declared type.
type ValidatedBatch struct {
	Contract *Contract
	Records  []Record
}

// RowCount returns the number of records in the validated batch.
func (vb *ValidatedBatch) RowCount() int {
	return len(vb.Records)
}

// ColumnCount returns the number of contract columns.
func (vb *ValidatedBatch) ColumnCount() int {
	return len(vb.Contract.Fields)
}
