package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// Test a dmg is built from an app image and the produced file is returned
func TestPackager_PackageInstaller(t *testing.T) {
	tmpDir := t.TempDir()
	dest := filepath.Join(tmpDir, "dist")

	// Stale output from a previous run must be cleared
	if err := os.MkdirAll(dest, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "old.dmg"), []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{handler: func(cmd gateways.Command) (*gateways.CommandResult, error) {
		if err := os.WriteFile(filepath.Join(dest, "AstroImageJ-6.0.0.dmg"), []byte("dmg"), 0600); err != nil {
			return nil, err
		}
		return &gateways.CommandResult{}, nil
	}}
	packager := NewPackager(runner, nil).WithJPackage("/jdk/bin/jpackage")

	spec := services.InstallerSpec{
		Type:     services.InstallerDMG,
		OS:       entities.OSMac,
		App:      entities.AppDefinition{Name: "AstroImageJ", Identifier: "com.astroimagej.AstroImageJ"},
		Version:  "6.0.0.00",
		Dest:     dest,
		AppImage: "/img/AstroImageJ.app",
	}

	artifact, err := packager.PackageInstaller(context.Background(), spec)
	if err != nil {
		t.Fatalf("PackageInstaller() error = %v", err)
	}

	want := filepath.Join(dest, "AstroImageJ-6.0.0.dmg")
	if artifact.Path != want {
		t.Errorf("Path = %s, want %s", artifact.Path, want)
	}
	if artifact.Type != entities.ArtifactInstaller {
		t.Errorf("Type = %s, want installer", artifact.Type)
	}

	lines := runner.lines()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "/jdk/bin/jpackage --name AstroImageJ --dest "+dest+" --type dmg") {
		t.Errorf("unexpected commands: %v", lines)
	}
}

// Test a failing jpackage run is reported
func TestPackager_PackageInstaller_ToolFailure(t *testing.T) {
	runner := &fakeRunner{handler: func(gateways.Command) (*gateways.CommandResult, error) {
		return &gateways.CommandResult{ExitCode: 1}, entities.ErrToolFailed
	}}
	packager := NewPackager(runner, nil)

	_, err := packager.PackageInstaller(context.Background(), services.InstallerSpec{
		Type: services.InstallerMSI, OS: entities.OSWindows,
		App:  entities.AppDefinition{Name: "AstroImageJ"},
		Dest: filepath.Join(t.TempDir(), "dist"), AppImage: "/img",
	})
	if !errors.Is(err, entities.ErrToolFailed) {
		t.Errorf("expected ErrToolFailed, got %v", err)
	}
}

// Test invalid arguments never reach jpackage
func TestPackager_PackageInstaller_InvalidSpec(t *testing.T) {
	runner := &fakeRunner{}
	packager := NewPackager(runner, nil)

	_, err := packager.PackageInstaller(context.Background(), services.InstallerSpec{Type: services.InstallerDMG})
	if !errors.Is(err, entities.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("jpackage should not run, got %v", runner.lines())
	}
}

// Test association descriptors are listed in order and other files ignored
func TestPackager_Associations(t *testing.T) {
	packager := NewPackager(&fakeRunner{}, nil)
	dir := t.TempDir()
	for _, name := range []string{"fits.properties", "csv.properties", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := packager.Associations(dir)
	if err != nil {
		t.Fatalf("Associations() error = %v", err)
	}
	want := []string{filepath.Join(dir, "csv.properties"), filepath.Join(dir, "fits.properties")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Associations() mismatch (-want +got):\n%s", diff)
	}

	missing, err := packager.Associations(filepath.Join(dir, "nope"))
	if err != nil || missing != nil {
		t.Errorf("missing dir = %v, %v; want nil, nil", missing, err)
	}
}

// Test the Linux bundle archive marks files executable and skips tarballs
func TestPackager_ArchiveBundle(t *testing.T) {
	packager := NewPackager(&fakeRunner{}, nil)
	tmpDir := t.TempDir()

	sourceDir := filepath.Join(tmpDir, "app-image")
	files := map[string]string{
		"astroimagej/bin/AstroImageJ":      "launcher",
		"astroimagej/lib/app/ij.jar":       "jar",
		"astroimagej/lib/app/macros/a.txt": "macro",
		"AstroImageJ-5.0.0.00.tgz":         "stale",
	}
	for rel, content := range files {
		p := filepath.Join(sourceDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	tarballPath := filepath.Join(sourceDir, "AstroImageJ-6.0.0.00.tgz")
	artifact, err := packager.ArchiveBundle(sourceDir, tarballPath)
	if err != nil {
		t.Fatalf("ArchiveBundle() error = %v", err)
	}
	if artifact.Type != entities.ArtifactArchive || artifact.Name != "AstroImageJ-6.0.0.00.tgz" {
		t.Errorf("unexpected artifact: %+v", artifact)
	}

	entries := readTarModes(t, tarballPath)
	for _, rel := range []string{"astroimagej/bin/AstroImageJ", "astroimagej/lib/app/ij.jar", "astroimagej/lib/app/macros/a.txt"} {
		mode, ok := entries[rel]
		if !ok {
			t.Errorf("archive is missing %s", rel)
			continue
		}
		if mode&0o111 != 0o111 {
			t.Errorf("%s mode = %o, want executable", rel, mode)
		}
	}
	for name := range entries {
		if strings.HasSuffix(name, ".tgz") {
			t.Errorf("archive should not contain %s", name)
		}
	}
	if _, ok := entries["astroimagej/lib/app/"]; !ok {
		t.Error("archive is missing directory entries")
	}
}

// Test symlinks are stored as links
func TestPackager_ArchiveBundle_WithSymlinks(t *testing.T) {
	packager := NewPackager(&fakeRunner{}, nil)
	tmpDir := t.TempDir()

	sourceDir := filepath.Join(tmpDir, "source")
	if err := os.MkdirAll(sourceDir, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "libjli.dylib"), []byte("lib"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("libjli.dylib", filepath.Join(sourceDir, "link.dylib")); err != nil {
		t.Skipf("Symlink creation not supported on this system: %v", err)
	}

	tarballPath := filepath.Join(tmpDir, "out.tgz")
	if _, err := packager.ArchiveBundle(sourceDir, tarballPath); err != nil {
		t.Fatalf("ArchiveBundle() error = %v", err)
	}

	mode, ok := readTarModes(t, tarballPath)["link.dylib"]
	if !ok {
		t.Fatal("archive is missing link.dylib")
	}
	if mode&fs.ModeSymlink == 0 {
		t.Errorf("link.dylib mode = %v, want symlink", mode)
	}
}

// Test a missing source directory leaves no partial tarball behind
func TestPackager_ArchiveBundle_MissingSource(t *testing.T) {
	packager := NewPackager(&fakeRunner{}, nil)
	tmpDir := t.TempDir()
	tarballPath := filepath.Join(tmpDir, "out.tgz")

	if _, err := packager.ArchiveBundle(filepath.Join(tmpDir, "missing"), tarballPath); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(tarballPath); !os.IsNotExist(err) {
		t.Error("partial tarball was not removed")
	}
}

// readTarModes maps each entry name of a gzipped tarball to its mode
func readTarModes(t *testing.T, tarballPath string) map[string]fs.FileMode {
	t.Helper()

	//nolint:gosec // G304: tarballPath is test fixture path
	file, err := os.Open(tarballPath)
	if err != nil {
		t.Fatalf("Failed to open tarball: %v", err)
	}
	//nolint:errcheck // Defer close in test
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	//nolint:errcheck // Defer close in test
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	entries := map[string]fs.FileMode{}
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read tar entry: %v", err)
		}
		entries[header.Name] = header.FileInfo().Mode()
	}
	return entries
}

func TestPackager_ReplaceLauncher(t *testing.T) {
	dir := t.TempDir()
	launcher := filepath.Join(dir, "JavaLauncher.exe")
	writeTestFile(t, launcher, "prebuilt")

	image := filepath.Join(dir, "image")
	layout, _ := entities.LayoutFor(entities.OSWindows, "AstroImageJ")
	writeTestFile(t, filepath.Join(image, "AstroImageJ", "AstroImageJ.exe"), "jpackage")

	p := NewPackager(&fakeRunner{}, nil)
	if err := p.ReplaceLauncher(image, layout, launcher); err != nil {
		t.Fatalf("ReplaceLauncher() error = %v", err)
	}

	dest := filepath.Join(image, "AstroImageJ", "AstroImageJ.exe")
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Failed to read launcher: %v", err)
	}
	if string(data) != "prebuilt" {
		t.Errorf("launcher content = %q, want prebuilt", data)
	}
	if info, _ := os.Stat(dest); info.Mode().Perm()&0o100 == 0 {
		t.Errorf("launcher mode = %v, want executable", info.Mode())
	}

	if err := p.ReplaceLauncher(image, layout, filepath.Join(dir, "missing")); !errors.Is(err, entities.ErrMissingResource) {
		t.Errorf("ReplaceLauncher(missing) error = %v, want ErrMissingResource", err)
	}
}
