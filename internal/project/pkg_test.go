package project

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbright/trawl/internal/pipeline"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

func writeSourceFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParsePackageMode(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"copy", "move", "link"} {
		mode, err := ParsePackageMode(name)
		require.NoError(t, err)
		assert.Equal(t, PackageMode(name), mode)
	}

	_, err := ParsePackageMode("teleport")
	require.Error(t, err)
}

func TestCreatePackageWritesMetadata(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	root := filepath.Join(t.TempDir(), "survey-2026")

	pkg, err := CreatePackage(root, pipeline.Metadata{"image-set-type": "stills"}, log)
	require.NoError(t, err)

	assert.DirExists(t, pkg.DataDir())
	assert.FileExists(t, pkg.MetadataPath())

	_, err = CreatePackage(root, nil, log)
	var target *trawlerrors.AlreadyExistsError
	require.True(t, stderrors.As(err, &target))
}

func TestWrapPackageRequiresMetadata(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := WrapPackage(root, newTestLogger(t))

	var target *trawlerrors.StructureError
	require.True(t, stderrors.As(err, &target))
}

func TestPopulateCopyAndValidate(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	sourceDir := t.TempDir()
	a := writeSourceFile(t, sourceDir, "a.jpg", "aaa")
	b := writeSourceFile(t, sourceDir, "b.jpg", "bbbb")

	pkg, err := CreatePackage(filepath.Join(t.TempDir(), "survey"), nil, log)
	require.NoError(t, err)

	mapping := pipeline.FileMapping{
		a: {Dest: "dive-01/a.jpg"},
		b: {Dest: "dive-02/b.jpg"},
	}
	require.NoError(t, pkg.Populate(mapping, ModeCopy))

	assert.FileExists(t, a, "copy mode leaves the source in place")
	assert.FileExists(t, filepath.Join(pkg.DataDir(), "dive-01", "a.jpg"))
	assert.FileExists(t, filepath.Join(pkg.DataDir(), "dive-02", "b.jpg"))

	require.NoError(t, pkg.Validate())
}

func TestPopulateMoveRemovesSource(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	sourceDir := t.TempDir()
	a := writeSourceFile(t, sourceDir, "a.jpg", "aaa")

	pkg, err := CreatePackage(filepath.Join(t.TempDir(), "survey"), nil, log)
	require.NoError(t, err)

	require.NoError(t, pkg.Populate(pipeline.FileMapping{a: {Dest: "a.jpg"}}, ModeMove))

	assert.NoFileExists(t, a)
	assert.FileExists(t, filepath.Join(pkg.DataDir(), "a.jpg"))
	require.NoError(t, pkg.Validate())
}

func TestPopulateRejectsInvalidMappingBeforeWriting(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	sourceDir := t.TempDir()
	good := writeSourceFile(t, sourceDir, "good.jpg", "data")

	tests := []struct {
		name    string
		mapping pipeline.FileMapping
	}{
		{"missing source", pipeline.FileMapping{
			good: {Dest: "good.jpg"},
			filepath.Join(sourceDir, "absent.jpg"): {Dest: "absent.jpg"},
		}},
		{"absolute destination", pipeline.FileMapping{
			good: {Dest: "/etc/passwd"},
		}},
		{"escaping destination", pipeline.FileMapping{
			good: {Dest: "../escape.jpg"},
		}},
		{"sneaky escaping destination", pipeline.FileMapping{
			good: {Dest: "dive-01/../../escape.jpg"},
		}},
		{"empty destination", pipeline.FileMapping{
			good: {Dest: ""},
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pkg, err := CreatePackage(filepath.Join(t.TempDir(), "survey"), nil, log)
			require.NoError(t, err)

			err = pkg.Populate(tt.mapping, ModeCopy)

			var target *trawlerrors.MappingError
			require.True(t, stderrors.As(err, &target))

			entries, err := os.ReadDir(pkg.DataDir())
			require.NoError(t, err)
			assert.Empty(t, entries, "a rejected mapping must not partially populate the package")
		})
	}
}

func TestPopulateRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	a := writeSourceFile(t, t.TempDir(), "a.jpg", "aaa")

	pkg, err := CreatePackage(filepath.Join(t.TempDir(), "survey"), nil, log)
	require.NoError(t, err)

	err = pkg.Populate(pipeline.FileMapping{a: {Dest: "a.jpg"}}, PackageMode("teleport"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported package mode")

	entries, err := os.ReadDir(pkg.DataDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateDetectsModifiedFile(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	a := writeSourceFile(t, t.TempDir(), "a.jpg", "original")

	pkg, err := CreatePackage(filepath.Join(t.TempDir(), "survey"), nil, log)
	require.NoError(t, err)
	require.NoError(t, pkg.Populate(pipeline.FileMapping{a: {Dest: "a.jpg"}}, ModeCopy))

	require.NoError(t, os.WriteFile(filepath.Join(pkg.DataDir(), "a.jpg"), []byte("tampered"), 0o644))

	err = pkg.Validate()
	var target *trawlerrors.ManifestError
	require.True(t, stderrors.As(err, &target))
	assert.Contains(t, err.Error(), "does not match")
}

func TestValidateDetectsExtraFile(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	a := writeSourceFile(t, t.TempDir(), "a.jpg", "aaa")

	pkg, err := CreatePackage(filepath.Join(t.TempDir(), "survey"), nil, log)
	require.NoError(t, err)
	require.NoError(t, pkg.Populate(pipeline.FileMapping{a: {Dest: "a.jpg"}}, ModeCopy))

	require.NoError(t, os.WriteFile(filepath.Join(pkg.DataDir(), "stray.jpg"), []byte("stray"), 0o644))

	err = pkg.Validate()
	var target *trawlerrors.ManifestError
	require.True(t, stderrors.As(err, &target))
	assert.Contains(t, err.Error(), "not recorded")
}

func TestValidateDetectsMissingFile(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)
	a := writeSourceFile(t, t.TempDir(), "a.jpg", "aaa")

	pkg, err := CreatePackage(filepath.Join(t.TempDir(), "survey"), nil, log)
	require.NoError(t, err)
	require.NoError(t, pkg.Populate(pipeline.FileMapping{a: {Dest: "a.jpg"}}, ModeCopy))

	require.NoError(t, os.Remove(filepath.Join(pkg.DataDir(), "a.jpg")))

	err = pkg.Validate()
	var target *trawlerrors.ManifestError
	require.True(t, stderrors.As(err, &target))
	assert.Contains(t, err.Error(), "missing")
}
