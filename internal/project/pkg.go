package project

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/oceanbright/trawl/internal/logger"
	"github.com/oceanbright/trawl/internal/pipeline"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

// PackageMode selects how mapped files are materialized into the package.
type PackageMode string

const (
	ModeCopy PackageMode = "copy"
	ModeMove PackageMode = "move"
	ModeLink PackageMode = "link"
)

// ParsePackageMode validates a package mode name.
func ParsePackageMode(name string) (PackageMode, error) {
	switch PackageMode(name) {
	case ModeCopy, ModeMove, ModeLink:
		return PackageMode(name), nil
	default:
		return "", fmt.Errorf("unsupported package mode %q", name)
	}
}

const (
	packageMetadataName = "metadata.yml"
	packageManifestName = "manifest.yml"
	packageDataDirName  = "data"
)

// ManifestEntry records one packaged file: its path relative to the data
// root, its size and a blake3 content fingerprint. The manifest is used
// later to detect drift between the recorded and on-disk contents.
type ManifestEntry struct {
	Path   string `yaml:"path"`
	Size   int64  `yaml:"size"`
	Blake3 string `yaml:"blake3"`
}

// PackageWrapper materializes a composed dataset into a distributable
// on-disk package with a manifest.
type PackageWrapper struct {
	rootDir string
	log     *logger.Logger
}

// CreatePackage creates the package directory and writes the dataset
// metadata file.
func CreatePackage(rootDir string, meta pipeline.Metadata, log *logger.Logger) (*PackageWrapper, error) {
	if _, err := os.Stat(rootDir); err == nil {
		return nil, trawlerrors.NewAlreadyExistsError("package directory", rootDir)
	}

	if err := os.MkdirAll(filepath.Join(rootDir, packageDataDirName), 0o755); err != nil {
		return nil, err
	}

	if meta == nil {
		meta = pipeline.Metadata{}
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(rootDir, packageMetadataName), data, 0o644); err != nil {
		return nil, err
	}

	return &PackageWrapper{rootDir: rootDir, log: log}, nil
}

// WrapPackage wraps an existing package directory.
func WrapPackage(rootDir string, log *logger.Logger) (*PackageWrapper, error) {
	if info, err := os.Stat(filepath.Join(rootDir, packageMetadataName)); err != nil || info.IsDir() {
		return nil, trawlerrors.NewStructureError("package", rootDir, "has no metadata file")
	}
	return &PackageWrapper{rootDir: rootDir, log: log}, nil
}

// RootDir is the root directory of the package.
func (p *PackageWrapper) RootDir() string { return p.rootDir }

// Name is the package name, derived from the directory name.
func (p *PackageWrapper) Name() string { return filepath.Base(p.rootDir) }

// DataDir is the directory holding the packaged files.
func (p *PackageWrapper) DataDir() string { return filepath.Join(p.rootDir, packageDataDirName) }

// ManifestPath is the path of the package manifest.
func (p *PackageWrapper) ManifestPath() string { return filepath.Join(p.rootDir, packageManifestName) }

// MetadataPath is the path of the dataset metadata file.
func (p *PackageWrapper) MetadataPath() string { return filepath.Join(p.rootDir, packageMetadataName) }

// Populate materializes every mapped file into the package data directory
// and writes the manifest. The whole mapping is validated before any file
// operation so an invalid mapping leaves the package empty.
func (p *PackageWrapper) Populate(mapping pipeline.FileMapping, mode PackageMode) error {
	if _, err := ParsePackageMode(string(mode)); err != nil {
		return err
	}
	if err := checkMapping(mapping); err != nil {
		return err
	}

	entries := make([]ManifestEntry, 0, len(mapping))
	for _, source := range sortedMappingKeys(mapping) {
		mapped := mapping[source]
		dest := filepath.Join(p.DataDir(), filepath.FromSlash(mapped.Dest))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}

		if err := placeFile(source, dest, mode); err != nil {
			return err
		}

		entry, err := manifestEntry(p.DataDir(), dest)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	p.log.Debug(fmt.Sprintf("packaged %d file(s) into %q", len(entries), p.Name()))
	return p.writeManifest(entries)
}

// Validate recomputes the fingerprints of every file under the data
// directory and compares them against the manifest. Missing, extra and
// modified files all surface as a ManifestError.
func (p *PackageWrapper) Validate() error {
	recorded, err := p.readManifest()
	if err != nil {
		return err
	}

	byPath := make(map[string]ManifestEntry, len(recorded))
	for _, entry := range recorded {
		byPath[entry.Path] = entry
	}

	seen := make(map[string]bool, len(byPath))
	walkErr := filepath.WalkDir(p.DataDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(p.DataDir(), path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		entry, ok := byPath[rel]
		if !ok {
			return trawlerrors.NewManifestError(p.Name(), fmt.Sprintf("file %q is not recorded in the manifest", rel))
		}

		actual, err := manifestEntry(p.DataDir(), path)
		if err != nil {
			return err
		}
		if actual.Blake3 != entry.Blake3 || actual.Size != entry.Size {
			return trawlerrors.NewManifestError(p.Name(), fmt.Sprintf("file %q does not match its recorded fingerprint", rel))
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	for rel := range byPath {
		if !seen[rel] {
			return trawlerrors.NewManifestError(p.Name(), fmt.Sprintf("recorded file %q is missing from the package", rel))
		}
	}

	return nil
}

func (p *PackageWrapper) writeManifest(entries []ManifestEntry) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(p.ManifestPath(), data, 0o644)
}

func (p *PackageWrapper) readManifest() ([]ManifestEntry, error) {
	data, err := os.ReadFile(p.ManifestPath())
	if err != nil {
		return nil, trawlerrors.NewManifestError(p.Name(), "manifest cannot be read")
	}

	var entries []ManifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, trawlerrors.NewParseError(p.ManifestPath(), 0, err)
	}
	return entries, nil
}

// checkMapping rejects absolute or escaping destinations and missing source
// files before anything is written.
func checkMapping(mapping pipeline.FileMapping) error {
	for source, mapped := range mapping {
		if mapped.Dest == "" {
			return trawlerrors.NewMappingError(source, mapped.Dest, "destination is empty")
		}
		dest := filepath.ToSlash(mapped.Dest)
		if filepath.IsAbs(mapped.Dest) || strings.HasPrefix(dest, "../") || dest == ".." {
			return trawlerrors.NewMappingError(source, mapped.Dest, "destination escapes the package layout")
		}
		cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(dest)))
		if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
			return trawlerrors.NewMappingError(source, mapped.Dest, "destination escapes the package layout")
		}

		info, err := os.Stat(source)
		if err != nil || info.IsDir() {
			return trawlerrors.NewMappingError(source, mapped.Dest, "source is not an existing file")
		}
	}
	return nil
}

func placeFile(source, dest string, mode PackageMode) error {
	switch mode {
	case ModeCopy:
		return copyFile(source, dest)
	case ModeMove:
		return os.Rename(source, dest)
	case ModeLink:
		return os.Link(source, dest)
	default:
		return fmt.Errorf("unsupported package mode %q", mode)
	}
}

func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// manifestEntry fingerprints one packaged file.
func manifestEntry(dataDir, path string) (ManifestEntry, error) {
	rel, err := filepath.Rel(dataDir, path)
	if err != nil {
		return ManifestEntry{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return ManifestEntry{}, err
	}
	defer f.Close()

	hasher := blake3.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return ManifestEntry{}, err
	}

	return ManifestEntry{
		Path:   filepath.ToSlash(rel),
		Size:   size,
		Blake3: fmt.Sprintf("%x", hasher.Sum(nil)),
	}, nil
}

func sortedMappingKeys(mapping pipeline.FileMapping) []string {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
