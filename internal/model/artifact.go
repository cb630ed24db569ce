package model

import "time"

// TimestampLayout is the second-resolution layout shared by data files and
// metadata sidecars, e.g. 2026-08-26_143005.
const TimestampLayout = "2006-01-02_150405"

// RunStatus is the terminal outcome recorded in the metadata sidecar.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailure RunStatus = "failure"
)

// DataFormat is the on-disk format of a bronze data file.
type DataFormat string

const (
	FormatCSV     DataFormat = "csv"
	FormatParquet DataFormat = "parquet"
	FormatAvro    DataFormat = "avro"
)

// Extension returns the file extension for the format.
func (f DataFormat) Extension() string {
	return string(f)
}

// IsValidDataFormat checks if a data format is supported.
func IsValidDataFormat(format string) bool {
	switch DataFormat(format) {
	case FormatCSV, FormatParquet, FormatAvro:
		return true
	default:
		return false
	}
}

// WriteArtifact names one bronze landing: the data file, its metadata
// sidecar, and the logical name both derive from. The two paths always share
// the logical name stem, so they can be correlated later by prefix match.
type WriteArtifact struct {
	LogicalName      string
	DataFilePath     string
	MetadataFilePath string
	Timestamp        time.Time
}

// TimestampString returns the timestamp in the shared sidecar layout.
func (a *WriteArtifact) TimestampString() string {
	return a.Timestamp.Format(TimestampLayout)
}
