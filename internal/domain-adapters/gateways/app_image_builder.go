package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// AppImageBuilder lays out a jpackage-compatible app image without running jpackage,
// so images for other platforms can be built on one host
type AppImageBuilder struct {
	packaging *services.PackagingService
	logger    interfaces.Logger
}

// NewAppImageBuilder creates an app image builder
func NewAppImageBuilder(logger interfaces.Logger) *AppImageBuilder {
	return &AppImageBuilder{
		packaging: services.NewPackagingService(),
		logger:    interfaces.OrNoOp(logger),
	}
}

// Build clears req.OutputDir and writes the bundle. The returned result reports the
// last completed stage even when an error is returned.
func (b *AppImageBuilder) Build(ctx context.Context, req gateways.AppImageRequest) (*gateways.AppImageResult, error) {
	layout, err := entities.LayoutFor(req.Target.OS, req.App.Name)
	if err != nil {
		return nil, err
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bundle layout: %w", err)
	}

	res := &gateways.AppImageResult{
		Layout:    layout,
		BundleDir: layout.Resolve(req.OutputDir, layout.Root),
		Stage:     gateways.StageNotStarted,
	}
	out := func(rel string) string { return layout.Resolve(req.OutputDir, rel) }

	if err := os.RemoveAll(req.OutputDir); err != nil {
		return res, fmt.Errorf("failed to clear output directory: %w", err)
	}

	runtimeSrc, err := runtimeSource(req.RuntimeDir)
	if err != nil {
		return res, err
	}
	if err := copyDir(runtimeSrc, out(layout.RuntimeDir), b.logger); err != nil {
		return res, fmt.Errorf("failed to copy runtime: %w", err)
	}
	res.Stage = gateways.StageRuntimeCopied

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := copyFile(req.Launcher, out(layout.LauncherPath()), 0755); err != nil {
		return res, fmt.Errorf("failed to copy launcher: %w", err)
	}
	res.Stage = gateways.StageLauncherCopied

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := copyDir(req.InputDir, out(layout.AppDir), b.logger); err != nil {
		return res, fmt.Errorf("failed to copy application files: %w", err)
	}
	cfg := b.packaging.LauncherConfig(req.App.MainJar, req.Version, req.App.JavaOptions)
	if err := writeFile(out(path.Join(layout.AppDir, req.App.Name+".cfg")), cfg); err != nil {
		return res, err
	}
	if err := b.copyPlatformResources(req, layout, runtimeSrc, out); err != nil {
		return res, err
	}
	res.Stage = gateways.StageResourcesCopied

	state := b.packaging.JPackageState(req.Target.OS, req.App, req.Version)
	if err := writeFile(out(path.Join(layout.AppDir, ".jpackage.xml")), state); err != nil {
		return res, err
	}
	res.Stage = gateways.StageMetadataWritten

	manifest, err := BuildManifest(res.BundleDir, path.Join(strings.TrimPrefix(layout.AppDir, layout.Root+"/"), entities.ManifestFileName))
	if err != nil {
		return res, err
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return res, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeFile(out(path.Join(layout.AppDir, entities.ManifestFileName)), string(data)); err != nil {
		return res, err
	}
	res.Manifest = manifest
	res.Stage = gateways.StageComplete

	b.logger.Info("App image created",
		interfaces.F("target", req.Target.ID),
		interfaces.F("bundle", res.BundleDir),
		interfaces.F("files", len(manifest.Entries)))
	return res, nil
}

func (b *AppImageBuilder) copyPlatformResources(req gateways.AppImageRequest, layout entities.BundleLayout, runtimeSrc string, out func(string) string) error {
	res := func(name string) string { return filepath.Join(req.ResourcesDir, name) }

	switch req.Target.OS {
	case entities.OSMac:
		contents := layout.ContentsDir()

		plist, err := readResource(res("Info.plist"))
		if err != nil {
			return err
		}
		if err := writeFile(out(path.Join(contents, "Info.plist")), b.packaging.ExpandVersion(plist, req.Version)); err != nil {
			return err
		}

		if !fileExists(res("PkgInfo")) {
			return fmt.Errorf("%w: %s", entities.ErrMissingResource, res("PkgInfo"))
		}
		if err := copyFile(res("PkgInfo"), out(path.Join(contents, "PkgInfo")), 0644); err != nil {
			return err
		}

		if libjli := filepath.Join(runtimeSrc, "lib", "libjli.dylib"); fileExists(libjli) {
			if err := copyFile(libjli, out(path.Join(contents, "runtime/Contents/MacOS/libjli.dylib")), 0755); err != nil {
				return err
			}
		}

		runtimePlist, err := readResource(res("InfoRuntime.plist"))
		if err != nil {
			return err
		}
		if err := writeFile(out(path.Join(contents, "runtime/Contents/Info.plist")), b.packaging.ExpandVersion(runtimePlist, req.Version)); err != nil {
			return err
		}

		icon := req.App.Name + ".icns"
		if fileExists(res(icon)) {
			if err := copyFile(res(icon), out(path.Join(contents, "Resources", icon)), 0644); err != nil {
				return err
			}
		}

	case entities.OSLinux:
		icon := req.App.Name + ".png"
		if req.ResourcesDir != "" && fileExists(res(icon)) {
			if err := copyFile(res(icon), out(path.Join(layout.Root, "lib", icon)), 0644); err != nil {
				return err
			}
		}
	}

	return nil
}

// runtimeSource returns the single child of dir when it has exactly one, since
// unpacked runtimes usually sit in a versioned subdirectory
func runtimeSource(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read runtime directory: %w", err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: runtime directory %s is empty", entities.ErrMissingResource, dir)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

// BuildManifest hashes every non-hidden file below root. Paths are relative to root and
// slash-separated; exclude (also relative) is skipped so the manifest does not list itself.
func BuildManifest(root, exclude string) (*entities.Manifest, error) {
	manifest := &entities.Manifest{Entries: []entities.ManifestEntry{}}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		// Symlinks to regular files are hashed through the link
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		rel = filepath.ToSlash(rel)
		if rel == exclude {
			return nil
		}

		sum, err := FileMD5(p)
		if err != nil {
			return err
		}
		manifest.Entries = append(manifest.Entries, entities.ManifestEntry{Path: rel, MD5: sum})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest: %w", err)
	}

	manifest.Sort()
	return manifest, nil
}

func readResource(p string) (string, error) {
	//nolint:gosec // G304: resource path comes from the assets directory
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", entities.ErrMissingResource, p)
		}
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return string(data), nil
}

func writeFile(p, content string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	//nolint:gosec // G306: bundle files must stay readable by the installed app's users
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(p), err)
	}
	return nil
}
