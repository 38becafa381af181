package pipeline

import (
	"context"
	"fmt"

	"github.com/oceanbright/trawl/internal/config"
	"github.com/oceanbright/trawl/internal/logger"
)

// Base provides the default behaviour shared by pipeline implementations:
// empty configuration schemas and warn-and-skip import/process operations.
//
// Base deliberately does not provide RunCompose. A type that embeds Base
// therefore does not satisfy the Pipeline interface until it implements
// compose itself; every pipeline must be able to compose its data.
type Base struct {
	RepoDir string
	Config  config.Map
	DryRun  bool

	log *logger.Logger
}

// NewBase constructs the embedded base state for a pipeline implementation.
func NewBase(repoDir string, cfg config.Map, dryRun bool) Base {
	return Base{RepoDir: repoDir, Config: cfg, DryRun: dryRun}
}

// SetLogger injects the owning wrapper's logger.
func (b *Base) SetLogger(log *logger.Logger) {
	b.log = log
}

// Log returns the injected logger, or a nil logger that discards everything.
func (b *Base) Log() *logger.Logger {
	return b.log
}

// PipelineConfigSchema returns an empty schema by default.
func (b *Base) PipelineConfigSchema() map[string]any {
	return map[string]any{}
}

// CollectionConfigSchema returns an empty schema by default.
func (b *Base) CollectionConfigSchema() map[string]any {
	return map[string]any{}
}

// RunImport logs a warning and does nothing. Pipelines that support importing
// override this; an unimplemented import never fails.
func (b *Base) RunImport(ctx context.Context, dataDir string, sources []string, cfg config.Map, opts Options) (any, error) {
	b.log.Warn(fmt.Sprintf("no import operation implemented for pipeline repository %q", b.RepoDir))
	return nil, nil
}

// RunProcess logs a warning and does nothing. Pipelines that support
// processing override this; an unimplemented process never fails.
func (b *Base) RunProcess(ctx context.Context, dataDir string, cfg config.Map, opts Options) (any, error) {
	b.log.Warn(fmt.Sprintf("no process operation implemented for pipeline repository %q", b.RepoDir))
	return nil, nil
}
