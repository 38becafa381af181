package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/oceanbright/trawl/internal/config"
	"github.com/oceanbright/trawl/internal/logger"
	"github.com/oceanbright/trawl/internal/pipeline"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

const (
	pipelinesDirName   = "pipelines"
	deploymentsDirName = "deployments"
	stateDirName       = ".trawl"
	distDirName        = "dist"
)

// Operation is one of the closed set of commands that can be fanned out
// across pipelines and deployments. Any other name is rejected before any
// pipeline is invoked.
type Operation string

const (
	OpImport  Operation = "import"
	OpProcess Operation = "process"
	OpCompose Operation = "compose"
)

// ParseOperation validates a command name against the closed operation set.
func ParseOperation(name string) (Operation, error) {
	switch Operation(name) {
	case OpImport, OpProcess, OpCompose:
		return Operation(name), nil
	default:
		return "", trawlerrors.NewCommandError(name, "unsupported command", nil)
	}
}

// Results aggregates per-pair command results, keyed
// [deployment name][pipeline name]. Built fresh on every RunCommand call and
// never persisted.
type Results map[string]map[string]any

// Wrapper owns a project directory tree: its pipelines, its deployments and
// its internal state directory. All orchestration fans out from here.
type Wrapper struct {
	rootDir string
	dryRun  bool

	log  *logger.Logger
	sink *logger.FileSink

	pipelines   map[string]*PipelineWrapper
	deployments map[string]*DeploymentWrapper
}

// Create creates a new project directory tree and returns the wrapped
// project.
func Create(rootDir string, dryRun bool, log *logger.Logger) (*Wrapper, error) {
	if _, err := os.Stat(rootDir); err == nil {
		return nil, trawlerrors.NewAlreadyExistsError("project directory", rootDir)
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	for _, sub := range []string{pipelinesDirName, deploymentsDirName, stateDirName} {
		if err := os.Mkdir(filepath.Join(rootDir, sub), 0o755); err != nil {
			return nil, err
		}
	}

	return Wrap(rootDir, dryRun, log)
}

// Wrap wraps an existing project directory. The required subdirectories must
// exist; any individual pipeline or deployment with an invalid structure is
// a fatal project-load failure, never a partial load.
func Wrap(rootDir string, dryRun bool, log *logger.Logger) (*Wrapper, error) {
	w := &Wrapper{rootDir: rootDir, dryRun: dryRun}

	if err := w.checkStructure(); err != nil {
		return nil, err
	}

	sink, err := logger.NewFileSink(filepath.Join(rootDir, w.Name()+".log"))
	if err != nil {
		return nil, err
	}
	w.sink = sink
	w.log = log.Tee(sink).WithFields(map[string]any{"project": w.Name()})

	if err := w.reloadPipelines(); err != nil {
		return nil, err
	}
	if err := w.reloadDeployments(); err != nil {
		return nil, err
	}

	w.log.Debug(fmt.Sprintf("loaded %d pipeline(s) and %d deployment(s)", len(w.pipelines), len(w.deployments)))
	return w, nil
}

func (w *Wrapper) checkStructure() error {
	for _, dir := range []string{
		w.rootDir,
		w.PipelinesDir(),
		w.DeploymentsDir(),
		filepath.Join(w.rootDir, stateDirName),
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return trawlerrors.NewStructureError("project", dir, "does not exist or is not a directory")
		}
	}
	return nil
}

// reloadPipelines rebuilds the pipeline registry from the pipelines
// directory. A fresh map is built and swapped in, so no reader ever observes
// a half-rebuilt registry.
func (w *Wrapper) reloadPipelines() error {
	entries, err := os.ReadDir(w.PipelinesDir())
	if err != nil {
		return err
	}

	next := make(map[string]*PipelineWrapper, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pw, err := WrapPipeline(filepath.Join(w.PipelinesDir(), entry.Name()), w.dryRun, w.log)
		if err != nil {
			return err
		}
		next[entry.Name()] = pw
	}

	w.pipelines = next
	return nil
}

// reloadDeployments rebuilds the deployment registry from the deployments
// directory, with the same swap semantics as reloadPipelines.
func (w *Wrapper) reloadDeployments() error {
	entries, err := os.ReadDir(w.DeploymentsDir())
	if err != nil {
		return err
	}

	next := make(map[string]*DeploymentWrapper, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dw, err := WrapDeployment(filepath.Join(w.DeploymentsDir(), entry.Name()), w.log)
		if err != nil {
			return err
		}
		next[entry.Name()] = dw
	}

	w.deployments = next
	return nil
}

// RootDir is the root directory of the project.
func (w *Wrapper) RootDir() string { return w.rootDir }

// PipelinesDir is the project's pipelines directory.
func (w *Wrapper) PipelinesDir() string { return filepath.Join(w.rootDir, pipelinesDirName) }

// DeploymentsDir is the project's deployments directory.
func (w *Wrapper) DeploymentsDir() string { return filepath.Join(w.rootDir, deploymentsDirName) }

// DistDir is the project's distribution directory, created lazily on first
// access.
func (w *Wrapper) DistDir() (string, error) {
	dir := filepath.Join(w.rootDir, distDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Name is the project name, derived from the root directory name.
func (w *Wrapper) Name() string { return filepath.Base(w.rootDir) }

// DryRun reports whether the project operates in dry-run mode.
func (w *Wrapper) DryRun() bool { return w.dryRun }

// Pipelines returns the loaded pipeline wrappers keyed by name.
func (w *Wrapper) Pipelines() map[string]*PipelineWrapper { return w.pipelines }

// Deployments returns the loaded deployment wrappers keyed by name.
func (w *Wrapper) Deployments() map[string]*DeploymentWrapper { return w.deployments }

// Close releases the project's and all wrapped entities' log sinks.
func (w *Wrapper) Close() error {
	for _, pw := range w.pipelines {
		_ = pw.Close()
	}
	for _, dw := range w.deployments {
		_ = dw.Close()
	}
	return w.sink.Close()
}

// CreatePipeline creates a new pipeline from a git repository URL and
// reloads the pipeline registry.
func (w *Wrapper) CreatePipeline(name, url string) (*PipelineWrapper, error) {
	if err := config.CheckName(name); err != nil {
		return nil, err
	}

	dir := filepath.Join(w.PipelinesDir(), name)
	if _, err := os.Stat(dir); err == nil {
		return nil, trawlerrors.NewAlreadyExistsError("pipeline", name)
	}

	w.log.Debug(fmt.Sprintf("creating pipeline %q from %s", name, url))
	if _, err := CreatePipeline(dir, url, w.dryRun, w.log); err != nil {
		return nil, err
	}

	if err := w.reloadPipelines(); err != nil {
		return nil, err
	}
	return w.pipelines[name], nil
}

// CreateDeployment creates a new deployment, optionally seeding its
// configuration from a named parent deployment, creates one per-pipeline
// data directory for every registered pipeline, and reloads the deployment
// registry.
func (w *Wrapper) CreateDeployment(name, parentName string, cfg config.Map) (*DeploymentWrapper, error) {
	if err := config.CheckName(name); err != nil {
		return nil, err
	}

	dir := filepath.Join(w.DeploymentsDir(), name)
	if _, err := os.Stat(dir); err == nil {
		return nil, trawlerrors.NewAlreadyExistsError("deployment", name)
	}

	seed := config.Map{}
	if parentName != "" {
		parent, ok := w.deployments[parentName]
		if !ok {
			return nil, trawlerrors.NewNotFoundError("parent deployment", parentName)
		}
		parentCfg, err := parent.LoadConfig()
		if err != nil {
			return nil, err
		}
		seed = parentCfg
	}
	for key, value := range cfg {
		seed[key] = value
	}

	w.log.Debug(fmt.Sprintf("creating deployment %q", name))
	dw, err := CreateDeployment(dir, seed, w.log)
	if err != nil {
		return nil, err
	}

	for pipelineName := range w.pipelines {
		if _, err := dw.PipelineDataDir(pipelineName); err != nil {
			return nil, err
		}
	}

	if err := w.reloadDeployments(); err != nil {
		return nil, err
	}
	return w.deployments[name], nil
}

// targetPipelines resolves the pipeline target set for a command: a single
// named pipeline, or every registered pipeline in sorted name order.
func (w *Wrapper) targetPipelines(command, name string) ([]*PipelineWrapper, error) {
	if name != "" {
		pw, ok := w.pipelines[name]
		if !ok {
			return nil, trawlerrors.NewCommandError(command, fmt.Sprintf("pipeline %q does not exist within the project", name), nil)
		}
		return []*PipelineWrapper{pw}, nil
	}

	names := make([]string, 0, len(w.pipelines))
	for n := range w.pipelines {
		names = append(names, n)
	}
	sort.Strings(names)

	targets := make([]*PipelineWrapper, 0, len(names))
	for _, n := range names {
		targets = append(targets, w.pipelines[n])
	}
	return targets, nil
}

// targetDeployments mirrors targetPipelines for deployments.
func (w *Wrapper) targetDeployments(command, name string) ([]*DeploymentWrapper, error) {
	if name != "" {
		dw, ok := w.deployments[name]
		if !ok {
			return nil, trawlerrors.NewCommandError(command, fmt.Sprintf("deployment %q does not exist within the project", name), nil)
		}
		return []*DeploymentWrapper{dw}, nil
	}

	names := make([]string, 0, len(w.deployments))
	for n := range w.deployments {
		names = append(names, n)
	}
	sort.Strings(names)

	targets := make([]*DeploymentWrapper, 0, len(names))
	for _, n := range names {
		targets = append(targets, w.deployments[n])
	}
	return targets, nil
}

// RunCommand fans a single logical command out across the cross product of
// the selected pipelines and deployments.
//
// Every targeted pipeline is instantiated eagerly before any invocation, and
// the operation name is validated up front, so no partial execution occurs
// due to a load failure or an unsupported command discovered mid-run. A
// failure raised by one invocation propagates immediately and aborts the
// remaining cross product.
func (w *Wrapper) RunCommand(
	ctx context.Context,
	commandName string,
	pipelineName, deploymentName string,
	sources []string,
	extraArgs []string,
	kwargs map[string]any,
) (Results, error) {
	merged := MergeKeywordArgs(kwargs, extraArgs, w.log)

	op, err := ParseOperation(commandName)
	if err != nil {
		return nil, err
	}
	if op == OpCompose {
		return nil, trawlerrors.NewCommandError(commandName, "compose takes ordered deployments; use Compose", nil)
	}

	pipelinesToRun, err := w.targetPipelines(commandName, pipelineName)
	if err != nil {
		return nil, err
	}
	deploymentsToRun, err := w.targetDeployments(commandName, deploymentName)
	if err != nil {
		return nil, err
	}

	// Load every targeted pipeline up front. A single load failure fails
	// the whole command; no pipeline is silently skipped.
	instances := make(map[string]pipeline.Pipeline, len(pipelinesToRun))
	for _, pw := range pipelinesToRun {
		instance, err := pw.GetInstance()
		if err != nil {
			return nil, err
		}
		instances[pw.Name()] = instance
	}

	w.log.Debug(fmt.Sprintf("running %q across %d pipeline(s) and %d deployment(s)",
		commandName, len(pipelinesToRun), len(deploymentsToRun)))

	results := make(Results, len(deploymentsToRun))
	for _, dw := range deploymentsToRun {
		perPipeline := make(map[string]any, len(pipelinesToRun))
		for _, pw := range pipelinesToRun {
			dataDir, err := dw.PipelineDataDir(pw.Name())
			if err != nil {
				return nil, err
			}
			cfg, err := dw.LoadConfig()
			if err != nil {
				return nil, err
			}

			var result any
			switch op {
			case OpImport:
				result, err = instances[pw.Name()].RunImport(ctx, dataDir, sources, cfg, merged)
			case OpProcess:
				result, err = instances[pw.Name()].RunProcess(ctx, dataDir, cfg, merged)
			}
			if err != nil {
				return nil, err
			}
			perPipeline[pw.Name()] = result
		}
		results[dw.Name()] = perPipeline
	}

	return results, nil
}

// Compose gathers the named deployments' data directories and
// configurations for one pipeline, in exactly the order the deployment names
// were given, and invokes the pipeline's compose operation once with the
// full ordered lists.
func (w *Wrapper) Compose(
	ctx context.Context,
	pipelineName string,
	deploymentNames []string,
	extraArgs []string,
	kwargs map[string]any,
) (pipeline.Metadata, pipeline.FileMapping, error) {
	merged := MergeKeywordArgs(kwargs, extraArgs, w.log)

	pw, ok := w.pipelines[pipelineName]
	if !ok {
		return nil, nil, trawlerrors.NewNotFoundError("pipeline", pipelineName)
	}

	instance, err := pw.GetInstance()
	if err != nil {
		return nil, nil, err
	}

	dataDirs := make([]string, 0, len(deploymentNames))
	cfgs := make([]config.Map, 0, len(deploymentNames))
	for _, name := range deploymentNames {
		dw, ok := w.deployments[name]
		if !ok {
			return nil, nil, trawlerrors.NewNotFoundError("deployment", name)
		}

		dataDir, err := dw.PipelineDataDir(pipelineName)
		if err != nil {
			return nil, nil, err
		}
		cfg, err := dw.LoadConfig()
		if err != nil {
			return nil, nil, err
		}

		dataDirs = append(dataDirs, dataDir)
		cfgs = append(cfgs, cfg)
	}

	w.log.Debug(fmt.Sprintf("composing pipeline %q across %d deployment(s)", pipelineName, len(deploymentNames)))
	return instance.RunCompose(ctx, dataDirs, cfgs, merged)
}

// Package materializes a composed dataset into a distributable package under
// the dist directory.
func (w *Wrapper) Package(name string, meta pipeline.Metadata, mapping pipeline.FileMapping, mode PackageMode) (*PackageWrapper, error) {
	if err := config.CheckName(name); err != nil {
		return nil, err
	}

	distDir, err := w.DistDir()
	if err != nil {
		return nil, err
	}

	rootDir := filepath.Join(distDir, name)
	if _, err := os.Stat(rootDir); err == nil {
		return nil, trawlerrors.NewAlreadyExistsError("package", name)
	}

	pkg, err := CreatePackage(rootDir, meta, w.log)
	if err != nil {
		return nil, err
	}
	if err := pkg.Populate(mapping, mode); err != nil {
		return nil, err
	}

	return pkg, nil
}

// UpdatePipelines pulls every registered pipeline's repository. Update is
// best-effort by design: pipelines are independent, so one pipeline's
// failure is logged and does not stop the remaining updates.
func (w *Wrapper) UpdatePipelines(ctx context.Context) {
	for _, name := range sortedKeys(w.pipelines) {
		w.log.Info(fmt.Sprintf("updating pipeline %q", name))
		if err := w.pipelines[name].Update(ctx); err != nil {
			w.log.Error(err, fmt.Sprintf("failed to update pipeline %q", name))
			continue
		}
		w.log.Info(fmt.Sprintf("successfully updated pipeline %q", name))
	}
}

// InstallPipelines installs every registered pipeline's dependencies, with
// the same best-effort policy as UpdatePipelines.
func (w *Wrapper) InstallPipelines(ctx context.Context) {
	for _, name := range sortedKeys(w.pipelines) {
		w.log.Info(fmt.Sprintf("installing pipeline %q", name))
		if err := w.pipelines[name].Install(ctx); err != nil {
			w.log.Error(err, fmt.Sprintf("failed to install pipeline %q", name))
			continue
		}
		w.log.Info(fmt.Sprintf("successfully installed pipeline %q", name))
	}
}

// CollectionConfigSchema aggregates the collection configuration schemas of
// every registered pipeline into one flat prompting schema.
func (w *Wrapper) CollectionConfigSchema() (map[string]any, error) {
	schema := map[string]any{}
	for _, name := range sortedKeys(w.pipelines) {
		instance, err := w.pipelines[name].GetInstance()
		if err != nil {
			return nil, err
		}
		for key, value := range instance.CollectionConfigSchema() {
			schema[key] = value
		}
	}
	return schema, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
