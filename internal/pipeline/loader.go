package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oceanbright/trawl/internal/config"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

// DescriptorSuffix is the double-suffix pattern that identifies the single
// pipeline descriptor file within a repository.
const DescriptorSuffix = ".pipeline.yml"

// Descriptor is the contents of a pipeline descriptor file. It names the one
// registered implementation the repository provides, which removes any
// ambiguity about which type to instantiate.
type Descriptor struct {
	Name           string `yaml:"name" validate:"omitempty,resource_name"`
	Implementation string `yaml:"implementation" validate:"required,resource_name"`
}

// loadMu serializes descriptor discovery and factory resolution. Loads never
// overlap, and the lock is released on every exit path.
var loadMu sync.Mutex

// Discover locates the single pipeline descriptor within repoDir,
// recursively. Zero matches and multiple matches are distinct fatal errors.
func Discover(repoDir string) (string, error) {
	var matches []string
	err := filepath.WalkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), DescriptorSuffix) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", trawlerrors.NewLoadError("", "descriptor discovery failed", err)
	}

	switch len(matches) {
	case 0:
		return "", &trawlerrors.NoDescriptorError{RepoDir: repoDir}
	case 1:
		return matches[0], nil
	default:
		return "", &trawlerrors.MultipleDescriptorsError{RepoDir: repoDir, Paths: matches}
	}
}

// ReadDescriptor parses and validates a descriptor file.
func ReadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, trawlerrors.NewLoadError("", "cannot read descriptor", err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, trawlerrors.NewParseError(path, 0, err)
	}

	if err := config.Validator().Struct(&d); err != nil {
		return nil, trawlerrors.NewLoadError(d.Implementation, "invalid descriptor", err)
	}

	return &d, nil
}

// Resolve discovers the descriptor in repoDir and resolves its registered
// factory. The whole resolution is a critical section so concurrent loads
// cannot observe each other's partial state.
func Resolve(repoDir string) (Factory, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	path, err := Discover(repoDir)
	if err != nil {
		return nil, err
	}

	d, err := ReadDescriptor(path)
	if err != nil {
		return nil, err
	}

	return Lookup(d.Implementation)
}

// Load resolves the repository's factory and instantiates the pipeline with
// the given configuration and dry-run flag.
func Load(repoDir string, cfg config.Map, dryRun bool) (Pipeline, error) {
	factory, err := Resolve(repoDir)
	if err != nil {
		return nil, err
	}
	return factory(repoDir, cfg, dryRun), nil
}
