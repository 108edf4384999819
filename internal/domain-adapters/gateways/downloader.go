package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
)

// Downloader fetches runtime archives and their signatures into a local cache
type Downloader struct {
	httpClient *http.Client
	userAgent  string
	logger     interfaces.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(logger interfaces.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: 15 * time.Minute, // JDK archives are a few hundred MB
		},
		userAgent: "aijpack/1.0",
		logger:    interfaces.OrNoOp(logger),
	}
}

type download struct {
	url  string
	name string
}

// DownloadRuntime places the archive, its signature and, when requested, the jmods
// archive and its signature in dir using the descriptor's file names
func (d *Downloader) DownloadRuntime(ctx context.Context, desc *entities.RuntimeDescriptor, dir string) error {
	if !desc.IsComplete() {
		return fmt.Errorf("%w: %s", entities.ErrIncompleteRuntime, desc.SystemID())
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	downloads := []download{
		{url: desc.URL, name: desc.ArchiveFileName()},
		{url: desc.SignatureURL, name: desc.SignatureFileName()},
	}
	if desc.WithJmods {
		downloads = append(downloads,
			download{url: desc.JmodURL, name: desc.JmodFileName()},
			download{url: desc.JmodSignatureURL, name: desc.JmodSignatureFileName()},
		)
	}

	for _, dl := range downloads {
		if err := d.DownloadFile(ctx, dl.url, filepath.Join(dir, dl.name)); err != nil {
			return fmt.Errorf("download of %s failed: %w", dl.name, err)
		}
	}

	return nil
}

// DownloadFile fetches url into dest. When dest exists the request is conditional on
// its modification time and a 304 keeps the local copy.
func (d *Downloader) DownloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() {
		req.Header.Set("If-Modified-Since", info.ModTime().UTC().Format(http.TimeFormat))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		d.logger.Debug("Up to date", interfaces.F("file", filepath.Base(dest)))
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Write next to the destination so a failed transfer never replaces a good file
	tmp := dest + ".part"
	//nolint:gosec // G304: File path dest is function parameter for download destination
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		_ = os.Chtimes(dest, lm, lm)
	}

	d.logger.Info("Downloaded", interfaces.F("file", filepath.Base(dest)), interfaces.F("bytes", written))
	return nil
}

// CleanExtraneous removes files in dir that start with the descriptor's system id
// but are not among its expected files, e.g. archives of a previous runtime release
func (d *Downloader) CleanExtraneous(desc *entities.RuntimeDescriptor, dir string) error {
	expected := make(map[string]bool)
	for _, name := range desc.ExpectedFiles() {
		expected[name] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read download directory: %w", err)
	}

	prefix := desc.SystemID()
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || expected[name] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to remove stale file %s: %w", name, err)
		}
		d.logger.Debug("Removed stale download", interfaces.F("file", name))
	}

	return nil
}
