package pipeline

import (
	"context"

	"github.com/oceanbright/trawl/internal/config"
	"github.com/oceanbright/trawl/internal/logger"
)

// Metadata is the composed dataset metadata aggregate produced by a
// pipeline's compose operation. Its internal structure (iFDO or otherwise)
// belongs to the pipeline; the core treats it as opaque and serializes it
// into the package metadata file.
type Metadata map[string]any

// MappedFile is one entry of a compose file-relocation plan: the destination
// path (relative to the package data root) for a source file, optionally
// tagged with per-file metadata and auxiliary info.
type MappedFile struct {
	Dest     string         `yaml:"dest"`
	Metadata Metadata       `yaml:"metadata,omitempty"`
	Extra    map[string]any `yaml:"extra,omitempty"`
}

// FileMapping maps absolute source file paths to their destinations in the
// distributable layout.
type FileMapping map[string]MappedFile

// Options carries the merged keyword arguments of a single command
// invocation through to the pipeline implementation.
type Options map[string]any

// Pipeline is the contract every pipeline implementation must satisfy.
//
// Implementations are constructed by their registered Factory with the
// repository directory, the persisted pipeline configuration and the dry-run
// flag. The dry-run flag is advisory: when set, implementations are expected
// to log instead of mutating the filesystem, but enforcement is the
// implementation's own responsibility.
type Pipeline interface {
	// PipelineConfigSchema returns the flat map of pipeline-wide
	// configuration keys to their default values. Value types (string, int,
	// float, bool) are used to infer prompting and parsing types; nested
	// structures are disallowed.
	PipelineConfigSchema() map[string]any

	// CollectionConfigSchema is the same shape as PipelineConfigSchema but
	// for values specific to a single deployment rather than the whole
	// pipeline.
	CollectionConfigSchema() map[string]any

	// RunImport imports raw data from the source paths into the data
	// directory under the given deployment configuration.
	RunImport(ctx context.Context, dataDir string, sources []string, cfg config.Map, opts Options) (any, error)

	// RunProcess processes data already present in the data directory in
	// place.
	RunProcess(ctx context.Context, dataDir string, cfg config.Map, opts Options) (any, error)

	// RunCompose merges the given data directories and their pairwise
	// corresponding deployment configurations into a dataset metadata
	// aggregate and a file-relocation plan. Order is significant: dataDirs
	// and cfgs have the same length and ordering.
	RunCompose(ctx context.Context, dataDirs []string, cfgs []config.Map, opts Options) (Metadata, FileMapping, error)
}

// LoggerAware is implemented by pipelines that accept an injected logger.
// The owning pipeline wrapper detects it via type assertion and passes its
// own log sink so plugin output lands in the wrapper's log file.
type LoggerAware interface {
	SetLogger(log *logger.Logger)
}
