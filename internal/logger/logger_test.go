package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbright/trawl/internal/logger"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := logger.New(logger.Options{Level: "chatty"})
	require.Error(t, err)
}

func TestLoggerWritesStructuredEntries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	log.Info("survey started")

	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), "survey started")
}

func TestLoggerLevelFiltersConsole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Level: "info", Writer: &buf})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestWithFieldsAttachesFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	log.WithFields(map[string]any{"pipeline": "stills"}).Info("imported")

	assert.Contains(t, buf.String(), `"pipeline":"stills"`)
}

func TestNilLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var log *logger.Logger
	log.Info("ignored")
	log.Debug("ignored")
	log.Warn("ignored")
	log.Error(nil, "ignored")
	assert.Nil(t, log.WithFields(map[string]any{"k": "v"}))
}

func TestTeeWritesDebugToSinkOnly(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	log, err := logger.New(logger.Options{Level: "info", Writer: &console})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stills.log")
	sink, err := logger.NewFileSink(path)
	require.NoError(t, err)
	defer sink.Close()

	teed := log.Tee(sink)
	teed.Debug("repository up to date")
	teed.Info("imported 3 image(s)")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "repository up to date")
	assert.Contains(t, string(data), "imported 3 image(s)")

	assert.NotContains(t, console.String(), "repository up to date")
	assert.Contains(t, console.String(), "imported 3 image(s)")
}

func TestTeeStacksSinksAndKeepsFields(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	log, err := logger.New(logger.Options{Level: "info", Writer: &console})
	require.NoError(t, err)

	projectPath := filepath.Join(t.TempDir(), "survey.log")
	projectSink, err := logger.NewFileSink(projectPath)
	require.NoError(t, err)
	defer projectSink.Close()

	pipelinePath := filepath.Join(t.TempDir(), "stills.log")
	pipelineSink, err := logger.NewFileSink(pipelinePath)
	require.NoError(t, err)
	defer pipelineSink.Close()

	projectLog := log.Tee(projectSink).WithFields(map[string]any{"project": "survey"})
	pipelineLog := projectLog.Tee(pipelineSink).WithFields(map[string]any{"pipeline": "stills"})

	pipelineLog.Debug("resolved implementation")

	projectData, err := os.ReadFile(projectPath)
	require.NoError(t, err)
	pipelineData, err := os.ReadFile(pipelinePath)
	require.NoError(t, err)

	assert.Contains(t, string(projectData), "resolved implementation", "an inner sink still receives entries from derived loggers")
	assert.Contains(t, string(pipelineData), "resolved implementation")
	assert.Contains(t, string(pipelineData), `"project":"survey"`, "fields attached before a tee carry over")
	assert.Contains(t, string(pipelineData), `"pipeline":"stills"`)
	assert.NotContains(t, console.String(), "resolved implementation")
}

func TestTeeWithNilSinkReturnsReceiver(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Level: "info", Writer: &buf})
	require.NoError(t, err)

	assert.Same(t, log, log.Tee(nil))
}

func TestFileSinkAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.log")

	first, err := logger.NewFileSink(path)
	require.NoError(t, err)
	_, err = first.Write([]byte("one\n"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := logger.NewFileSink(path)
	require.NoError(t, err)
	_, err = second.Write([]byte("two\n"))
	require.NoError(t, err)
	require.NoError(t, second.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))

	assert.Equal(t, path, second.Path())
}
