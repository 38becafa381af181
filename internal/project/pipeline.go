package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	git "github.com/go-git/go-git/v5"

	"github.com/oceanbright/trawl/internal/config"
	"github.com/oceanbright/trawl/internal/logger"
	"github.com/oceanbright/trawl/internal/pipeline"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

const (
	repoDirName        = "repo"
	pipelineConfigName = "pipeline.yml"
	requirementsName   = "requirements.txt"

	// defaultInstaller is the dependency installer invoked by Install.
	// Pipeline repositories declare their external tooling in a
	// requirements.txt manifest consumed by pip.
	defaultInstaller = "pip"
)

// Seams for tests: factory resolution and repository transport.
var (
	resolveFactory = pipeline.Resolve
	cloneRepo      = func(dir, url string) error {
		_, err := git.PlainClone(dir, false, &git.CloneOptions{URL: url})
		return err
	}
	pullRepo = func(ctx context.Context, dir string) error {
		repo, err := git.PlainOpen(dir)
		if err != nil {
			return err
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return err
		}
		return worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	}
)

// PipelineWrapper owns one on-disk pipeline installation: the cloned
// repository, the persisted configuration and the pipeline's log file.
type PipelineWrapper struct {
	rootDir   string
	dryRun    bool
	installer string

	log  *logger.Logger
	sink *logger.FileSink

	// factory caches the resolved implementation factory for the lifetime
	// of this wrapper. A pipeline's implementation is assumed immutable for
	// the duration of one process run, even if the repository is updated
	// mid-run.
	factory pipeline.Factory
}

// WrapPipeline wraps an existing pipeline directory. The root directory, the
// repo subdirectory and the configuration file must exist; a violated
// structure is fatal at construction time.
func WrapPipeline(rootDir string, dryRun bool, log *logger.Logger) (*PipelineWrapper, error) {
	w := &PipelineWrapper{rootDir: rootDir, dryRun: dryRun, installer: defaultInstaller}

	if err := w.checkStructure(); err != nil {
		return nil, err
	}

	sink, err := logger.NewFileSink(w.LogPath())
	if err != nil {
		return nil, err
	}
	w.sink = sink
	w.log = log.Tee(sink).WithFields(map[string]any{"pipeline": w.Name()})

	return w, nil
}

// CreatePipeline creates a new pipeline directory by cloning the
// implementation repository and writing an empty configuration file.
func CreatePipeline(rootDir, url string, dryRun bool, log *logger.Logger) (*PipelineWrapper, error) {
	if _, err := os.Stat(rootDir); err == nil {
		return nil, trawlerrors.NewAlreadyExistsError("pipeline directory", rootDir)
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}

	repoDir := filepath.Join(rootDir, repoDirName)
	if err := cloneRepo(repoDir, url); err != nil {
		return nil, trawlerrors.NewTransportError("clone", filepath.Base(rootDir), err)
	}

	if err := config.Save(filepath.Join(rootDir, pipelineConfigName), config.Map{}); err != nil {
		return nil, err
	}

	return WrapPipeline(rootDir, dryRun, log)
}

func (w *PipelineWrapper) checkStructure() error {
	if info, err := os.Stat(w.rootDir); err != nil || !info.IsDir() {
		return trawlerrors.NewStructureError("pipeline", w.rootDir, "does not exist or is not a directory")
	}
	if info, err := os.Stat(w.RepoDir()); err != nil || !info.IsDir() {
		return trawlerrors.NewStructureError("pipeline", w.RepoDir(), "does not exist or is not a directory")
	}
	if info, err := os.Stat(w.ConfigPath()); err != nil || info.IsDir() {
		return trawlerrors.NewStructureError("pipeline", w.ConfigPath(), "does not exist or is not a file")
	}
	return nil
}

// RootDir is the root directory of the pipeline.
func (w *PipelineWrapper) RootDir() string { return w.rootDir }

// RepoDir is the cloned repository directory of the pipeline.
func (w *PipelineWrapper) RepoDir() string { return filepath.Join(w.rootDir, repoDirName) }

// ConfigPath is the path of the persisted pipeline configuration.
func (w *PipelineWrapper) ConfigPath() string { return filepath.Join(w.rootDir, pipelineConfigName) }

// RequirementsPath is the path of the dependency manifest.
func (w *PipelineWrapper) RequirementsPath() string {
	return filepath.Join(w.RepoDir(), requirementsName)
}

// LogPath is the path of the pipeline's log file.
func (w *PipelineWrapper) LogPath() string {
	return filepath.Join(w.rootDir, w.Name()+".log")
}

// Name is the pipeline name, derived from the directory name.
func (w *PipelineWrapper) Name() string { return filepath.Base(w.rootDir) }

// DryRun reports whether the pipeline runs in dry-run mode.
func (w *PipelineWrapper) DryRun() bool { return w.dryRun }

// Log returns the wrapper's logger, which also writes to the pipeline's log
// file.
func (w *PipelineWrapper) Log() *logger.Logger { return w.log }

// Close releases the wrapper's log sink.
func (w *PipelineWrapper) Close() error { return w.sink.Close() }

// LoadConfig loads the persisted pipeline configuration.
func (w *PipelineWrapper) LoadConfig() (config.Map, error) {
	return config.Load(w.ConfigPath())
}

// SaveConfig persists the pipeline configuration. Saving a nil or empty map
// is deliberately a no-op: it never truncates an existing configuration file.
func (w *PipelineWrapper) SaveConfig(cfg config.Map) error {
	if len(cfg) == 0 {
		return nil
	}
	return config.Save(w.ConfigPath(), cfg)
}

// ResolveFactory resolves the pipeline's implementation factory from its
// repository descriptor. Lazy and cached: the first call scans the
// repository, every later call returns the cached factory without touching
// the filesystem. A repository update performed mid-process is therefore not
// reflected until a new wrapper is constructed.
func (w *PipelineWrapper) ResolveFactory() (pipeline.Factory, error) {
	if w.factory == nil {
		factory, err := resolveFactory(w.RepoDir())
		if err != nil {
			return nil, err
		}
		w.factory = factory
	}
	return w.factory, nil
}

// GetInstance resolves the factory, loads the persisted configuration and
// instantiates the pipeline implementation with the wrapper's log sink
// attached.
func (w *PipelineWrapper) GetInstance() (pipeline.Pipeline, error) {
	factory, err := w.ResolveFactory()
	if err != nil {
		return nil, err
	}

	cfg, err := w.LoadConfig()
	if err != nil {
		return nil, err
	}

	instance := factory(w.RepoDir(), cfg, w.dryRun)
	if instance == nil {
		return nil, trawlerrors.NewLoadError(w.Name(), "factory returned no implementation", nil)
	}

	if aware, ok := instance.(pipeline.LoggerAware); ok {
		aware.SetLogger(w.log)
	}

	return instance, nil
}

// Update pulls the cloned repository from its default remote. An
// already-up-to-date repository is a success; any transport or merge failure
// surfaces with the underlying cause attached.
func (w *PipelineWrapper) Update(ctx context.Context) error {
	err := pullRepo(ctx, w.RepoDir())
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return trawlerrors.NewTransportError("pull", w.Name(), err)
	}
	w.log.Debug("repository up to date")
	return nil
}

// Install installs the pipeline's dependencies from its requirements
// manifest in a child process. A missing manifest is itself an InstallError,
// not a skip.
func (w *PipelineWrapper) Install(ctx context.Context) error {
	requirements, err := filepath.Abs(w.RequirementsPath())
	if err != nil {
		return trawlerrors.NewInstallError(w.Name(), "cannot resolve requirements path", err)
	}
	if info, statErr := os.Stat(requirements); statErr != nil || info.IsDir() {
		return trawlerrors.NewInstallError(w.Name(), fmt.Sprintf("requirements file does not exist: %s", requirements), statErr)
	}

	installer, err := exec.LookPath(w.installer)
	if err != nil {
		return trawlerrors.NewInstallError(w.Name(), fmt.Sprintf("installer executable %q not found in PATH", w.installer), err)
	}

	w.log.Info(fmt.Sprintf("installing pipeline dependencies from %s", requirements))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, installer, "install", "--no-input", "-r", requirements)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if stdout.Len() > 0 {
		w.log.Debug(stdout.String())
	}
	if stderr.Len() > 0 {
		w.log.Warn(stderr.String())
	}
	if runErr != nil {
		return trawlerrors.NewInstallError(w.Name(), "dependency installation failed", runErr)
	}

	w.log.Info("pipeline dependencies installed successfully")
	return nil
}
