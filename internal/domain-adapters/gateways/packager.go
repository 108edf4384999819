package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// Packager turns app images into installers with jpackage, or into a tarball on Linux
type Packager struct {
	runner    gateways.CommandRunner
	packaging *services.PackagingService
	jpackage  string
	logger    interfaces.Logger
}

// NewPackager creates a packager. jpackage is resolved from JAVA_HOME when set,
// otherwise from PATH.
func NewPackager(runner gateways.CommandRunner, logger interfaces.Logger) *Packager {
	jpackage := "jpackage"
	if home := os.Getenv("JAVA_HOME"); home != "" {
		candidate := filepath.Join(home, "bin", "jpackage"+HostOS().ExecutableSuffix())
		if fileExists(candidate) {
			jpackage = candidate
		}
	}
	return &Packager{
		runner:    runner,
		packaging: services.NewPackagingService(),
		jpackage:  jpackage,
		logger:    interfaces.OrNoOp(logger),
	}
}

// WithJPackage overrides the jpackage executable
func (p *Packager) WithJPackage(path string) *Packager {
	p.jpackage = path
	return p
}

// Associations lists the file-association descriptors in dir, sorted. A missing
// directory yields no associations.
func (p *Packager) Associations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read associations directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".properties") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// PackageInstaller clears spec.Dest, runs jpackage and returns the produced installer
func (p *Packager) PackageInstaller(ctx context.Context, spec services.InstallerSpec) (*entities.Artifact, error) {
	args, err := p.packaging.InstallerArgs(spec)
	if err != nil {
		return nil, err
	}

	if err := os.RemoveAll(spec.Dest); err != nil {
		return nil, fmt.Errorf("failed to clear installer destination: %w", err)
	}
	if err := os.MkdirAll(spec.Dest, 0750); err != nil {
		return nil, fmt.Errorf("failed to create installer destination: %w", err)
	}

	if _, err := p.runner.Run(ctx, gateways.Command{
		Name:        p.jpackage,
		Args:        args,
		Description: fmt.Sprintf("jpackage %s", spec.Type),
	}); err != nil {
		return nil, fmt.Errorf("failed to package installer: %w", err)
	}

	artifact := &entities.Artifact{
		Name:    spec.App.Name,
		Version: spec.Version,
		Path:    spec.Dest,
		Type:    entities.ArtifactInstaller,
	}
	if spec.Type == services.InstallerAppImage {
		artifact.Type = entities.ArtifactAppImage
	} else if found, err := NewArtifactFinder().FindSingle(spec.Dest, "."+string(spec.Type)); err == nil {
		artifact.Path = found
	}

	p.logger.Info("Installer created", interfaces.F("type", spec.Type), interfaces.F("path", artifact.Path))
	return artifact, nil
}

// ReplaceLauncher swaps the launcher jpackage wrote in imageDir for a prebuilt one
func (p *Packager) ReplaceLauncher(imageDir string, layout entities.BundleLayout, launcher string) error {
	if !fileExists(launcher) {
		return fmt.Errorf("%w: launcher %s", entities.ErrMissingResource, launcher)
	}
	dest := layout.Resolve(imageDir, layout.LauncherPath())
	if err := copyFile(launcher, dest, 0755); err != nil {
		return fmt.Errorf("failed to replace launcher: %w", err)
	}
	p.logger.Debug("Launcher replaced", interfaces.F("path", dest))
	return nil
}

// ArchiveBundle writes sourceDir into a gzipped tarball, marking every file executable.
// Existing .tgz files inside sourceDir are skipped.
func (p *Packager) ArchiveBundle(sourceDir, tarballPath string) (*entities.Artifact, error) {
	if err := p.createTarball(sourceDir, tarballPath); err != nil {
		_ = os.Remove(tarballPath)
		return nil, fmt.Errorf("failed to create tarball: %w", err)
	}
	p.logger.Info("Bundle archived", interfaces.F("path", tarballPath))
	return &entities.Artifact{
		Name: filepath.Base(tarballPath),
		Path: tarballPath,
		Type: entities.ArtifactArchive,
	}, nil
}

// createTarball creates a gzipped tar archive from a source directory
func (p *Packager) createTarball(sourceDir, tarballPath string) error {
	if err := os.MkdirAll(filepath.Dir(tarballPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	absTarball, _ := filepath.Abs(tarballPath)

	//nolint:gosec // G304: File path tarballPath is constructed for package output
	file, err := os.Create(tarballPath)
	if err != nil {
		return fmt.Errorf("failed to create tarball file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	//nolint:errcheck // Defer close
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	//nolint:errcheck // Defer close
	defer tarWriter.Close()

	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if abs, _ := filepath.Abs(path); abs == absTarball || (!info.IsDir() && strings.HasSuffix(path, ".tgz")) {
			return nil
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				p.logger.Warn("Skipping unreadable symlink", interfaces.F("path", path), interfaces.Err(err))
				return nil
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}

		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}

		header.Name = filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		}
		if info.Mode().IsRegular() {
			header.Mode |= 0o111
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		//nolint:gosec // G304: File path from filepath.Walk for packaging
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		_, err = io.Copy(tarWriter, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to write file to tar: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return file.Close()
}
