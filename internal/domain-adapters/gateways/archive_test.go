package gateways

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
)

type archiveEntry struct {
	name     string
	body     string
	mode     int64
	dir      bool
	linkname string
	typeflag byte
}

// recordingLogger keeps warnings so tests can assert on them
type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debug(string, ...interfaces.Field) {}
func (l *recordingLogger) Info(string, ...interfaces.Field)  {}
func (l *recordingLogger) Error(string, ...interfaces.Field) {}
func (l *recordingLogger) Warn(msg string, _ ...interfaces.Field) {
	l.warnings = append(l.warnings, msg)
}

func writeTarGz(t *testing.T, path string, entries []archiveEntry) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: e.mode}
		switch {
		case e.typeflag != 0:
			hdr.Typeflag = e.typeflag
		case e.dir:
			hdr.Typeflag = tar.TypeDir
		case e.linkname != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.linkname
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}
}

func writeZip(t *testing.T, path string, entries []archiveEntry) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		hdr.SetMode(os.FileMode(e.mode))
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestArchiveFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"Mac_x64-OpenJDK21U-jdk_x64_mac_hotspot_21.tar.gz", "tar.gz", false},
		{"jdk.TGZ", "tar.gz", false},
		{"Windows_x64-OpenJDK21U-jdk_x64_windows_hotspot_21.zip", "zip", false},
		{"Mac_x64-OpenJDK21U-jmods_x64_mac_hotspot_21.tar.gz-jmod", "tar.gz", false},
		{"jdk.pkg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArchiveFormat(tt.name)
			if tt.wantErr {
				if !errors.Is(err, entities.ErrUnsupportedFormat) {
					t.Errorf("ArchiveFormat() = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ArchiveFormat() = %s, %v, want %s", got, err, tt.want)
			}
		})
	}
}

// Test tar.gz extraction keeps permissions and symlinks
func TestExtractArchive_TarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "jdk.tar.gz")
	writeTarGz(t, archive, []archiveEntry{
		{name: "jdk-21/", dir: true, mode: 0755},
		{name: "jdk-21/bin/java", body: "#!/bin/sh\n", mode: 0755},
		{name: "jdk-21/release", body: "JAVA_VERSION=\"21\"\n", mode: 0644},
		{name: "jdk-21/lib/libjli.dylib", body: "lib", mode: 0644},
		{name: "jdk-21/bin/libjli.dylib", linkname: "../lib/libjli.dylib", mode: 0777},
	})

	dest := filepath.Join(dir, "out")
	if err := ExtractArchive(archive, dest, nil); err != nil {
		t.Fatalf("ExtractArchive() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dest, "jdk-21", "bin", "java"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("java mode = %v, want 0755", info.Mode().Perm())
	}

	link, err := os.Readlink(filepath.Join(dest, "jdk-21", "bin", "libjli.dylib"))
	if err != nil {
		t.Fatalf("symlink not created: %v", err)
	}
	if link != "../lib/libjli.dylib" {
		t.Errorf("symlink target = %s", link)
	}
}

func TestExtractArchive_Zip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "jdk.zip")
	writeZip(t, archive, []archiveEntry{
		{name: "jdk-21/bin/java.exe", body: "MZ", mode: 0755},
		{name: "jdk-21/release", body: "JAVA_VERSION=\"21\"\n"},
	})

	dest := filepath.Join(dir, "out")
	if err := ExtractArchive(archive, dest, nil); err != nil {
		t.Fatalf("ExtractArchive() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "jdk-21", "release"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "JAVA_VERSION=\"21\"\n" {
		t.Errorf("release = %q", data)
	}
}

// Test that path traversal attacks are blocked
func TestExtractArchive_PathTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, archive, []archiveEntry{
		{name: "../escape.txt", body: "x", mode: 0644},
	})

	if err := ExtractArchive(archive, filepath.Join(dir, "out"), nil); err == nil {
		t.Fatal("ExtractArchive() should reject entries outside the destination")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("file escaped the destination directory")
	}
}

func TestExtractArchive_Unsupported(t *testing.T) {
	if err := ExtractArchive("/tmp/jdk.pkg", t.TempDir(), nil); !errors.Is(err, entities.ErrUnsupportedFormat) {
		t.Errorf("ExtractArchive() = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtractArchive_UnsupportedEntryLogged(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "jdk.tar.gz")
	writeTarGz(t, archive, []archiveEntry{
		{name: "jdk-21/release", body: "JAVA_VERSION=\"21\"\n", mode: 0644},
		{name: "jdk-21/pipe", typeflag: tar.TypeFifo, mode: 0644},
	})

	logger := &recordingLogger{}
	dest := filepath.Join(dir, "out")
	if err := ExtractArchive(archive, dest, logger); err != nil {
		t.Fatalf("ExtractArchive() error = %v", err)
	}
	if len(logger.warnings) != 1 {
		t.Errorf("warnings = %v, want one for the fifo", logger.warnings)
	}
	if _, err := os.Lstat(filepath.Join(dest, "jdk-21", "pipe")); !os.IsNotExist(err) {
		t.Error("unsupported entry should not be extracted")
	}
}

func TestExtractArchive_SymlinkFailure(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "jdk.tar.gz")
	writeTarGz(t, archive, []archiveEntry{
		{name: "jdk-21/lib/libjli.dylib", body: "lib", mode: 0644},
		{name: "jdk-21/bin/java", body: "#!/bin/sh\n", mode: 0755},
		{name: "jdk-21/bin/java", linkname: "../lib/libjli.dylib", mode: 0777},
	})

	if err := ExtractArchive(archive, filepath.Join(dir, "out"), nil); err == nil {
		t.Fatal("ExtractArchive() should fail when a symlink cannot be created")
	}
}
