package project

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oceanbright/trawl/internal/logger"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

// DistributionTarget delivers a validated package to a destination.
type DistributionTarget interface {
	Distribute(ctx context.Context, pkg *PackageWrapper) error
}

// DirectoryTarget copies a package tree into a destination directory, the
// simplest distribution target. The package lands at <destDir>/<package name>.
type DirectoryTarget struct {
	destDir string
	log     *logger.Logger
}

// NewDirectoryTarget constructs a directory distribution target.
func NewDirectoryTarget(destDir string, log *logger.Logger) *DirectoryTarget {
	return &DirectoryTarget{destDir: destDir, log: log}
}

// Distribute copies every file of the package, metadata and manifest
// included, under the target directory. An existing destination is never
// overwritten.
func (t *DirectoryTarget) Distribute(ctx context.Context, pkg *PackageWrapper) error {
	dest := filepath.Join(t.destDir, pkg.Name())
	if _, err := os.Stat(dest); err == nil {
		return trawlerrors.NewDistributionError(pkg.Name(), t.destDir, "destination already exists", nil)
	}

	count := 0
	walkErr := filepath.WalkDir(pkg.RootDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(pkg.RootDir(), path)
		if err != nil {
			return err
		}

		out := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		if err := copyFile(path, out); err != nil {
			return err
		}
		count++
		return nil
	})
	if walkErr != nil {
		return trawlerrors.NewDistributionError(pkg.Name(), t.destDir, "transfer failed", walkErr)
	}

	t.log.Info(fmt.Sprintf("distributed %d file(s) of package %q to %s", count, pkg.Name(), dest))
	return nil
}

// Distribute delivers a named package from the dist directory to a
// distribution target. The package is validated against its manifest first;
// an inconsistent package is never distributed.
func (w *Wrapper) Distribute(ctx context.Context, packageName string, target DistributionTarget) error {
	distDir, err := w.DistDir()
	if err != nil {
		return err
	}

	rootDir := filepath.Join(distDir, packageName)
	if _, err := os.Stat(rootDir); err != nil {
		return trawlerrors.NewNotFoundError("package", packageName)
	}

	pkg, err := WrapPackage(rootDir, w.log)
	if err != nil {
		return err
	}
	if err := pkg.Validate(); err != nil {
		return err
	}

	w.log.Debug(fmt.Sprintf("distributing package %q", packageName))
	return target.Distribute(ctx, pkg)
}
