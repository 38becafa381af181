package project

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbright/trawl/internal/config"
	"github.com/oceanbright/trawl/internal/pipeline"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

// recordingPipeline records every operation invoked on it.
type recordingPipeline struct {
	pipeline.Base

	invocations  int
	importCalls  []string
	processCalls []string
	composeDirs  []string
	failWith     error
}

func (r *recordingPipeline) RunImport(ctx context.Context, dataDir string, sources []string, cfg config.Map, opts pipeline.Options) (any, error) {
	r.invocations++
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.importCalls = append(r.importCalls, dataDir)
	return map[string]any{"imported": len(sources)}, nil
}

func (r *recordingPipeline) RunProcess(ctx context.Context, dataDir string, cfg config.Map, opts pipeline.Options) (any, error) {
	r.invocations++
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.processCalls = append(r.processCalls, dataDir)
	return "processed", nil
}

func (r *recordingPipeline) RunCompose(ctx context.Context, dataDirs []string, cfgs []config.Map, opts pipeline.Options) (pipeline.Metadata, pipeline.FileMapping, error) {
	if r.failWith != nil {
		return nil, nil, r.failWith
	}
	r.composeDirs = append([]string(nil), dataDirs...)
	return pipeline.Metadata{"deployments": len(dataDirs)}, pipeline.FileMapping{}, nil
}

func (r *recordingPipeline) CollectionConfigSchema() map[string]any {
	return map[string]any{"site": ""}
}

func stubResolveFactory(t *testing.T, fn func(repoDir string) (pipeline.Factory, error)) {
	t.Helper()

	prev := resolveFactory
	resolveFactory = fn
	t.Cleanup(func() { resolveFactory = prev })
}

func stubCloneRepo(t *testing.T, fn func(dir, url string) error) {
	t.Helper()

	prev := cloneRepo
	cloneRepo = fn
	t.Cleanup(func() { cloneRepo = prev })
}

func stubPullRepo(t *testing.T, fn func(ctx context.Context, dir string) error) {
	t.Helper()

	prev := pullRepo
	pullRepo = fn
	t.Cleanup(func() { pullRepo = prev })
}

// makePipelineDir lays out a valid pipeline directory on disk.
func makePipelineDir(t *testing.T, parent, name string) string {
	t.Helper()

	root := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(filepath.Join(root, repoDirName), 0o755))
	require.NoError(t, config.Save(filepath.Join(root, pipelineConfigName), config.Map{}))
	return root
}

func TestWrapPipelineRequiresStructure(t *testing.T) {
	log := newTestLogger(t)

	root := filepath.Join(t.TempDir(), "stills")
	require.NoError(t, os.MkdirAll(root, 0o755))

	_, err := WrapPipeline(root, false, log)

	var target *trawlerrors.StructureError
	require.True(t, stderrors.As(err, &target))
	assert.Equal(t, "pipeline", target.Entity)
}

func TestCreatePipelineClonesAndWritesConfig(t *testing.T) {
	log := newTestLogger(t)

	var clonedURL string
	stubCloneRepo(t, func(dir, url string) error {
		clonedURL = url
		return os.MkdirAll(dir, 0o755)
	})

	root := filepath.Join(t.TempDir(), "stills")
	pw, err := CreatePipeline(root, "https://example.com/stills.git", false, log)
	require.NoError(t, err)
	defer pw.Close()

	assert.Equal(t, "https://example.com/stills.git", clonedURL)
	assert.DirExists(t, pw.RepoDir())
	assert.FileExists(t, pw.ConfigPath())
	assert.Equal(t, "stills", pw.Name())
}

func TestCreatePipelineRefusesExistingDirectory(t *testing.T) {
	log := newTestLogger(t)

	root := makePipelineDir(t, t.TempDir(), "stills")

	_, err := CreatePipeline(root, "https://example.com/stills.git", false, log)

	var target *trawlerrors.AlreadyExistsError
	require.True(t, stderrors.As(err, &target))
}

func TestCreatePipelineCloneFailureIsTransportError(t *testing.T) {
	log := newTestLogger(t)

	stubCloneRepo(t, func(dir, url string) error {
		return fmt.Errorf("connection refused")
	})

	_, err := CreatePipeline(filepath.Join(t.TempDir(), "stills"), "https://example.com/x.git", false, log)

	var target *trawlerrors.TransportError
	require.True(t, stderrors.As(err, &target))
	assert.Equal(t, "clone", target.Operation)
}

func TestSaveConfigEmptyMapIsNoOp(t *testing.T) {
	log := newTestLogger(t)

	root := makePipelineDir(t, t.TempDir(), "stills")
	pw, err := WrapPipeline(root, false, log)
	require.NoError(t, err)
	defer pw.Close()

	require.NoError(t, pw.SaveConfig(config.Map{"platform": "rov"}))
	require.NoError(t, pw.SaveConfig(config.Map{}))
	require.NoError(t, pw.SaveConfig(nil))

	cfg, err := pw.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "rov", cfg["platform"], "an empty save must not truncate the config")
}

func TestResolveFactoryIsCached(t *testing.T) {
	log := newTestLogger(t)

	calls := 0
	stubResolveFactory(t, func(repoDir string) (pipeline.Factory, error) {
		calls++
		return func(repoDir string, cfg config.Map, dryRun bool) pipeline.Pipeline {
			return &recordingPipeline{Base: pipeline.NewBase(repoDir, cfg, dryRun)}
		}, nil
	})

	root := makePipelineDir(t, t.TempDir(), "stills")
	pw, err := WrapPipeline(root, false, log)
	require.NoError(t, err)
	defer pw.Close()

	_, err = pw.ResolveFactory()
	require.NoError(t, err)
	_, err = pw.ResolveFactory()
	require.NoError(t, err)
	_, err = pw.GetInstance()
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "resolution must scan the repository only once per wrapper")
}

func TestGetInstanceRejectsNilFromFactory(t *testing.T) {
	log := newTestLogger(t)

	stubResolveFactory(t, func(repoDir string) (pipeline.Factory, error) {
		return func(repoDir string, cfg config.Map, dryRun bool) pipeline.Pipeline {
			return nil
		}, nil
	})

	root := makePipelineDir(t, t.TempDir(), "stills")
	pw, err := WrapPipeline(root, false, log)
	require.NoError(t, err)
	defer pw.Close()

	_, err = pw.GetInstance()

	var target *trawlerrors.LoadError
	require.True(t, stderrors.As(err, &target))
}

func TestGetInstanceInjectsLogger(t *testing.T) {
	log := newTestLogger(t)

	stubResolveFactory(t, func(repoDir string) (pipeline.Factory, error) {
		return func(repoDir string, cfg config.Map, dryRun bool) pipeline.Pipeline {
			return &recordingPipeline{Base: pipeline.NewBase(repoDir, cfg, dryRun)}
		}, nil
	})

	root := makePipelineDir(t, t.TempDir(), "stills")
	pw, err := WrapPipeline(root, false, log)
	require.NoError(t, err)
	defer pw.Close()

	instance, err := pw.GetInstance()
	require.NoError(t, err)

	rec, ok := instance.(*recordingPipeline)
	require.True(t, ok)
	assert.NotNil(t, rec.Log())
}

func TestUpdateTreatsUpToDateAsSuccess(t *testing.T) {
	log := newTestLogger(t)

	stubPullRepo(t, func(ctx context.Context, dir string) error {
		return git.NoErrAlreadyUpToDate
	})

	root := makePipelineDir(t, t.TempDir(), "stills")
	pw, err := WrapPipeline(root, false, log)
	require.NoError(t, err)
	defer pw.Close()

	require.NoError(t, pw.Update(context.Background()))
}

func TestUpdateWrapsPullFailure(t *testing.T) {
	log := newTestLogger(t)

	cause := fmt.Errorf("remote hung up")
	stubPullRepo(t, func(ctx context.Context, dir string) error {
		return cause
	})

	root := makePipelineDir(t, t.TempDir(), "stills")
	pw, err := WrapPipeline(root, false, log)
	require.NoError(t, err)
	defer pw.Close()

	err = pw.Update(context.Background())

	var target *trawlerrors.TransportError
	require.True(t, stderrors.As(err, &target))
	assert.Equal(t, "pull", target.Operation)
	require.ErrorIs(t, err, cause)
}

func TestInstallRequiresRequirementsManifest(t *testing.T) {
	log := newTestLogger(t)

	root := makePipelineDir(t, t.TempDir(), "stills")
	pw, err := WrapPipeline(root, false, log)
	require.NoError(t, err)
	defer pw.Close()

	err = pw.Install(context.Background())

	var target *trawlerrors.InstallError
	require.True(t, stderrors.As(err, &target))
	assert.Contains(t, err.Error(), "requirements file does not exist")
}

func TestInstallRequiresInstallerOnPath(t *testing.T) {
	log := newTestLogger(t)

	root := makePipelineDir(t, t.TempDir(), "stills")
	pw, err := WrapPipeline(root, false, log)
	require.NoError(t, err)
	defer pw.Close()

	require.NoError(t, os.WriteFile(pw.RequirementsPath(), []byte("exifread==3.0.0\n"), 0o644))
	pw.installer = "definitely-not-a-real-installer"

	err = pw.Install(context.Background())

	var target *trawlerrors.InstallError
	require.True(t, stderrors.As(err, &target))
	assert.Contains(t, err.Error(), "not found in PATH")
}
