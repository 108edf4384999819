package gateways

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// SigstoreBundleSuffix is appended to an asset name to name its signature bundle
const SigstoreBundleSuffix = ".sigstore.json"

var errFound = errors.New("found")

// ArtifactFinder locates tools and build outputs on disk
type ArtifactFinder struct{}

// NewArtifactFinder creates a new artifact finder
func NewArtifactFinder() *ArtifactFinder {
	return &ArtifactFinder{}
}

// FindFile returns the first regular file called name below root, in lexical walk order
func (f *ArtifactFinder) FindFile(root, name string) (string, error) {
	return f.find(root, name, func(d fs.DirEntry) bool { return d.Type().IsRegular() })
}

// FindDir returns the first directory called name below root, in lexical walk order
func (f *ArtifactFinder) FindDir(root, name string) (string, error) {
	return f.find(root, name, func(d fs.DirEntry) bool { return d.IsDir() })
}

func (f *ArtifactFinder) find(root, name string, match func(fs.DirEntry) bool) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == name && match(d) {
			found = path
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return found, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", root, err)
	}
	return "", fmt.Errorf("%w: %q not found under %s", entities.ErrMissingResource, name, root)
}

// FindSingle returns the only file in dir. Any other entry count is an error;
// when ext is set the file must also carry that extension.
func (f *ArtifactFinder) FindSingle(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			files = append(files, e.Name())
		}
	}
	if len(files) != 1 {
		return "", fmt.Errorf("%w: expected exactly one file in %s, found %d", entities.ErrValidation, dir, len(files))
	}
	if ext != "" && !strings.HasSuffix(strings.ToLower(files[0]), strings.ToLower(ext)) {
		return "", fmt.Errorf("%w: %s is not a %s file", entities.ErrValidation, files[0], ext)
	}
	return filepath.Join(dir, files[0]), nil
}

// FindReleaseAssets lists the regular files directly in dir, skipping hidden files and
// existing Sigstore bundles, sorted by name
func (f *ArtifactFinder) FindReleaseAssets(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("artifacts directory does not exist: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifacts directory: %w", err)
	}

	var assets []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, SigstoreBundleSuffix) {
			continue
		}
		assets = append(assets, filepath.Join(dir, name))
	}
	sort.Strings(assets)
	return assets, nil
}
