package gateways

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
)

// maxExtractedFileSize caps a single archive entry (decompression bomb guard)
const maxExtractedFileSize = 2 << 30

// jmodSuffix is appended to downloaded jmods archives, after their real extension
const jmodSuffix = "-jmod"

// ArchiveFormat reports "tar.gz" or "zip" for a runtime archive path
func ArchiveFormat(archivePath string) (string, error) {
	name := strings.ToLower(strings.TrimSuffix(filepath.Base(archivePath), jmodSuffix))
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return "tar.gz", nil
	case strings.HasSuffix(name, ".zip"):
		return "zip", nil
	default:
		return "", fmt.Errorf("%w: %s", entities.ErrUnsupportedFormat, filepath.Base(archivePath))
	}
}

// ExtractArchive unpacks a tar.gz, tgz or zip archive into destDir. Skipped entries
// are reported through logger, which may be nil.
func ExtractArchive(archivePath, destDir string, logger interfaces.Logger) error {
	format, err := ArchiveFormat(archivePath)
	if err != nil {
		return err
	}
	if format == "zip" {
		return extractZip(archivePath, destDir)
	}
	return extractTarGz(archivePath, destDir, interfaces.OrNoOp(logger))
}

// safeJoin resolves name below destDir and rejects entries escaping it
func safeJoin(destDir, name string) (string, error) {
	//nolint:gosec // G305: Path traversal validated below
	target := filepath.Join(destDir, name)
	cleanDest := filepath.Clean(destDir)
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return target, nil
}

type pendingSymlink struct {
	target   string
	linkname string
}

// createSymlinks runs after all regular files exist
func createSymlinks(links []pendingSymlink) error {
	for _, link := range links {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		if err := os.Symlink(link.linkname, link.target); err != nil {
			return fmt.Errorf("failed to create symlink %s -> %s: %w", link.target, link.linkname, err)
		}
	}
	return nil
}

func writeEntry(target string, mode os.FileMode, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	//nolint:gosec // G304: target validated by safeJoin
	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(outFile, io.LimitReader(r, maxExtractedFileSize)); err != nil {
		_ = outFile.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	// OpenFile applies the umask; runtimes need their exact bits
	return os.Chmod(target, mode)
}

// extractTarGz extracts a .tar.gz file to destination directory
func extractTarGz(tarPath, destDir string, logger interfaces.Logger) error {
	//nolint:gosec // G304: File path tarPath is function parameter for extraction
	file, err := os.Open(tarPath)
	if err != nil {
		return fmt.Errorf("failed to open tar.gz: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	//nolint:errcheck // Defer close on gzip reader
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	var symlinks []pendingSymlink

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			//nolint:gosec // G115: Integer overflow from tar header mode is acceptable
			if err := writeEntry(target, os.FileMode(header.Mode).Perm(), tr); err != nil {
				return err
			}

		case tar.TypeSymlink:
			symlinks = append(symlinks, pendingSymlink{target: target, linkname: header.Linkname})

		default:
			logger.Warn("Ignoring unsupported archive entry",
				interfaces.F("type", string(header.Typeflag)),
				interfaces.F("name", header.Name))
		}
	}

	return createSymlinks(symlinks)
}

// extractZip extracts a .zip file to destination directory
func extractZip(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	//nolint:errcheck // Defer close on read-only archive
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	var symlinks []pendingSymlink

	for _, f := range zr.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(f)
			if err != nil {
				return err
			}
			symlinks = append(symlinks, pendingSymlink{target: target, linkname: linkname})

		default:
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
			}
			perm := mode.Perm()
			if perm == 0 {
				// Zips created on Windows carry no unix bits
				perm = 0644
			}
			err = writeEntry(target, perm, rc)
			_ = rc.Close()
			if err != nil {
				return err
			}
		}
	}

	return createSymlinks(symlinks)
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
	}
	//nolint:errcheck // Defer close on read-only entry
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read zip entry %s: %w", f.Name, err)
	}
	return string(data), nil
}
