// Package naming derives the deterministic file and sidecar paths that make
// up one bronze landing. A data file and its metadata sidecar always share
// the {origin}_{framework}_{timestamp} stem, and the sidecar lives under a
// year/month/day partition of the metadata root.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"quickelt/internal/model"
)

// PathNamer produces WriteArtifacts for ingestion runs. The timestamp has
// second resolution, so two runs for the same (origin, framework) within
// the same wall-clock second collide; callers needing higher concurrency
// opt into the random uniqueness suffix.
type PathNamer struct {
	bronzeRoot   string
	metadataRoot string
	now          func() time.Time
	uniquify     bool
}

// Option configures a PathNamer.
type Option func(*PathNamer)

// WithClock injects the reference clock. Used by tests to freeze time.
func WithClock(now func() time.Time) Option {
	return func(n *PathNamer) { n.now = now }
}

// WithUniqueSuffix appends a random token to every logical name, trading
// the clean {origin}_{framework}_{timestamp} stem for collision resistance
// when many runs of the same source land in the same second.
func WithUniqueSuffix() Option {
	return func(n *PathNamer) { n.uniquify = true }
}

// NewPathNamer creates a namer rooted at the bronze and metadata directories.
func NewPathNamer(bronzeRoot, metadataRoot string, opts ...Option) *PathNamer {
	n := &PathNamer{
		bronzeRoot:   bronzeRoot,
		metadataRoot: metadataRoot,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name derives the paths for one landing. It creates the bronze root and
// the date-partitioned metadata directory; directory creation failures are
// the only error condition.
func (n *PathNamer) Name(origin, framework string, format model.DataFormat) (*model.WriteArtifact, error) {
	if origin == "" {
		return nil, fmt.Errorf("origin cannot be empty")
	}
	if framework == "" {
		return nil, fmt.Errorf("framework cannot be empty")
	}

	now := n.now()
	logicalName := fmt.Sprintf("%s_%s_%s", origin, framework, now.Format(model.TimestampLayout))
	if n.uniquify {
		logicalName = fmt.Sprintf("%s_%s", logicalName, uuid.New().String()[:8])
	}

	if err := os.MkdirAll(n.bronzeRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bronze root: %w", err)
	}

	metadataDir := filepath.Join(n.metadataRoot,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%02d", now.Day()),
	)
	if err := os.MkdirAll(metadataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	return &model.WriteArtifact{
		LogicalName:      logicalName,
		DataFilePath:     filepath.Join(n.bronzeRoot, logicalName+"."+format.Extension()),
		MetadataFilePath: filepath.Join(metadataDir, logicalName+"_metadata.json"),
		Timestamp:        now,
	}, nil
}
