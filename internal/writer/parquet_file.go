package writer

import (
	"os"

	"github.com/xitongsys/parquet-go/source"
)

// localParquetFile adapts *os.File to the parquet-go source.ParquetFile
// interface for the local filesystem. parquet-go re-opens the file with
// an empty name when it needs another handle on the same data, so the
// path is kept for those self-reopens.
type localParquetFile struct {
	path string
	file *os.File
}

func newLocalParquetFile() *localParquetFile {
	return &localParquetFile{}
}

func (f *localParquetFile) Create(name string) (source.ParquetFile, error) {
	file, err := os.OpenFile(name, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &localParquetFile{path: name, file: file}, nil
}

func (f *localParquetFile) Open(name string) (source.ParquetFile, error) {
	if name == "" {
		name = f.path
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &localParquetFile{path: name, file: file}, nil
}

func (f *localParquetFile) Seek(offset int64, whence int) (int64, error) {
	return f.file.Seek(offset, whence)
}

func (f *localParquetFile) Read(p []byte) (int, error) {
	return f.file.Read(p)
}

func (f *localParquetFile) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

func (f *localParquetFile) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}
