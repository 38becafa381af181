// Package stills is the built-in still-imagery pipeline. It imports
// recognized image files from source directories, builds a per-deployment
// inventory during processing, and composes deployments into a distributable
// layout keyed by deployment name.
package stills

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/oceanbright/trawl/internal/config"
	"github.com/oceanbright/trawl/internal/pipeline"
)

// Name is the factory name this pipeline registers under. Pipeline
// repository descriptors reference it in their implementation field.
const Name = "stills"

// indexName is the inventory file written by the process operation into
// each deployment data directory.
const indexName = "index.yml"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".raw":  true,
	".cr2":  true,
	".nef":  true,
}

// Pipeline imports, processes and composes still imagery.
type Pipeline struct {
	pipeline.Base
}

// New is the registered factory for the stills pipeline.
func New(repoDir string, cfg config.Map, dryRun bool) pipeline.Pipeline {
	return &Pipeline{Base: pipeline.NewBase(repoDir, cfg, dryRun)}
}

// PipelineConfigSchema declares the pipeline-wide configuration keys.
func (p *Pipeline) PipelineConfigSchema() map[string]any {
	return map[string]any{
		"platform":  "",
		"camera":    "",
		"recursive": true,
	}
}

// CollectionConfigSchema declares the per-deployment configuration keys.
func (p *Pipeline) CollectionConfigSchema() map[string]any {
	return map[string]any{
		"site":     "",
		"operator": "",
	}
}

// RunImport copies every recognized image file found under the source paths
// into the data directory, flattening the source layout. In dry-run mode
// nothing is written; each candidate is logged instead.
func (p *Pipeline) RunImport(ctx context.Context, dataDir string, sources []string, cfg config.Map, opts pipeline.Options) (any, error) {
	imported := 0
	skipped := 0

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		files, err := collectImages(source)
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			dest := filepath.Join(dataDir, filepath.Base(file))
			if _, err := os.Stat(dest); err == nil {
				p.Log().Debug(fmt.Sprintf("skipping %q, already imported", filepath.Base(file)))
				skipped++
				continue
			}

			if p.DryRun {
				p.Log().Info(fmt.Sprintf("dry run: would import %q to %q", file, dest))
				imported++
				continue
			}

			if err := copyFile(file, dest); err != nil {
				return nil, err
			}
			imported++
		}
	}

	p.Log().Info(fmt.Sprintf("imported %d image(s), skipped %d", imported, skipped))
	return map[string]any{"imported": imported, "skipped": skipped}, nil
}

// indexEntry is one inventory record written by RunProcess.
type indexEntry struct {
	File     string `yaml:"file"`
	Size     int64  `yaml:"size"`
	Modified string `yaml:"modified"`
}

// RunProcess builds an inventory of the imported images and writes it to
// index.yml in the data directory.
func (p *Pipeline) RunProcess(ctx context.Context, dataDir string, cfg config.Map, opts pipeline.Options) (any, error) {
	files, err := collectImages(dataDir)
	if err != nil {
		return nil, err
	}

	entries := make([]indexEntry, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(file)
		if err != nil {
			return nil, err
		}
		entries = append(entries, indexEntry{
			File:     filepath.Base(file),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format(time.RFC3339),
		})
	}

	if p.DryRun {
		p.Log().Info(fmt.Sprintf("dry run: would index %d image(s)", len(entries)))
		return map[string]any{"indexed": len(entries)}, nil
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dataDir, indexName), data, 0o644); err != nil {
		return nil, err
	}

	p.Log().Info(fmt.Sprintf("indexed %d image(s)", len(entries)))
	return map[string]any{"indexed": len(entries)}, nil
}

// RunCompose maps every image of every deployment data directory into the
// distributable layout, prefixing destinations with the deployment directory
// name so deployments never collide. Per-file content fingerprints are
// attached as mapping metadata; the aggregate carries the dataset totals.
func (p *Pipeline) RunCompose(ctx context.Context, dataDirs []string, cfgs []config.Map, opts pipeline.Options) (pipeline.Metadata, pipeline.FileMapping, error) {
	mapping := pipeline.FileMapping{}
	var totalBytes int64
	deployments := make([]string, 0, len(dataDirs))

	for i, dataDir := range dataDirs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		deployment := filepath.Base(filepath.Dir(dataDir))
		deployments = append(deployments, deployment)

		files, err := collectImages(dataDir)
		if err != nil {
			return nil, nil, err
		}

		var cfg config.Map
		if i < len(cfgs) {
			cfg = cfgs[i]
		}

		for _, file := range files {
			info, err := os.Stat(file)
			if err != nil {
				return nil, nil, err
			}
			digest, err := fingerprint(file)
			if err != nil {
				return nil, nil, err
			}

			// ModTime stands in for the capture time; cameras that embed
			// EXIF timestamps preserve them in the file itself.
			meta := pipeline.Metadata{
				"image-hash":     digest,
				"image-set-name": deployment,
				"image-datetime": info.ModTime().UTC().Format(time.RFC3339),
			}
			if site, ok := cfg["site"]; ok {
				meta["image-site"] = site
			}

			mapping[file] = pipeline.MappedFile{
				Dest:     filepath.ToSlash(filepath.Join(deployment, filepath.Base(file))),
				Metadata: meta,
			}
			totalBytes += info.Size()
		}
	}

	meta := pipeline.Metadata{
		"image-set-handle": strings.Join(deployments, "+"),
		"image-set-type":   "stills",
		"deployment-count": len(dataDirs),
		"image-count":      len(mapping),
		"total-size-bytes": totalBytes,
		"composed-at":      time.Now().UTC().Format(time.RFC3339),
	}

	p.Log().Info(fmt.Sprintf("composed %d image(s) from %d deployment(s)", len(mapping), len(dataDirs)))
	return meta, mapping, nil
}

// collectImages returns the recognized image files under root, sorted.
func collectImages(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
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

func fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
