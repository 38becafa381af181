package project

import (
	"os"
	"path/filepath"

	"github.com/oceanbright/trawl/internal/config"
	"github.com/oceanbright/trawl/internal/logger"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

// DeploymentWrapper owns one on-disk unit of imported data: its
// configuration file and a set of lazily created per-pipeline data
// subdirectories.
type DeploymentWrapper struct {
	rootDir string

	log  *logger.Logger
	sink *logger.FileSink
}

// WrapDeployment wraps an existing deployment directory. The root directory
// and the configuration file must exist.
func WrapDeployment(rootDir string, log *logger.Logger) (*DeploymentWrapper, error) {
	w := &DeploymentWrapper{rootDir: rootDir}

	if err := w.checkStructure(); err != nil {
		return nil, err
	}

	sink, err := logger.NewFileSink(w.LogPath())
	if err != nil {
		return nil, err
	}
	w.sink = sink
	w.log = log.Tee(sink).WithFields(map[string]any{"deployment": w.Name()})

	return w, nil
}

// CreateDeployment creates a new deployment directory with the given initial
// configuration. An empty configuration is written as an empty document so
// the file exists from creation.
func CreateDeployment(rootDir string, cfg config.Map, log *logger.Logger) (*DeploymentWrapper, error) {
	if _, err := os.Stat(rootDir); err == nil {
		return nil, trawlerrors.NewAlreadyExistsError("deployment directory", rootDir)
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(rootDir, filepath.Base(rootDir)+".yml")
	if err := config.Save(configPath, cfg); err != nil {
		return nil, err
	}

	return WrapDeployment(rootDir, log)
}

func (w *DeploymentWrapper) checkStructure() error {
	if info, err := os.Stat(w.rootDir); err != nil || !info.IsDir() {
		return trawlerrors.NewStructureError("deployment", w.rootDir, "does not exist or is not a directory")
	}
	if info, err := os.Stat(w.ConfigPath()); err != nil || info.IsDir() {
		return trawlerrors.NewStructureError("deployment", w.ConfigPath(), "does not exist or is not a file")
	}
	return nil
}

// RootDir is the root directory of the deployment.
func (w *DeploymentWrapper) RootDir() string { return w.rootDir }

// ConfigPath is the path of the deployment configuration file.
func (w *DeploymentWrapper) ConfigPath() string {
	return filepath.Join(w.rootDir, w.Name()+".yml")
}

// LogPath is the path of the deployment's log file.
func (w *DeploymentWrapper) LogPath() string {
	return filepath.Join(w.rootDir, w.Name()+".log")
}

// Name is the deployment name, derived from the directory name.
func (w *DeploymentWrapper) Name() string { return filepath.Base(w.rootDir) }

// Close releases the wrapper's log sink.
func (w *DeploymentWrapper) Close() error { return w.sink.Close() }

// PipelineDataDir returns the deployment's data directory for the named
// pipeline, creating it on demand.
func (w *DeploymentWrapper) PipelineDataDir(pipelineName string) (string, error) {
	dir := filepath.Join(w.rootDir, pipelineName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// LoadConfig loads the deployment configuration.
func (w *DeploymentWrapper) LoadConfig() (config.Map, error) {
	return config.Load(w.ConfigPath())
}

// SaveConfig persists the deployment configuration. Saving a nil or empty
// map is deliberately a no-op: it never truncates an existing file.
func (w *DeploymentWrapper) SaveConfig(cfg config.Map) error {
	if len(cfg) == 0 {
		return nil
	}
	return config.Save(w.ConfigPath(), cfg)
}
