package gateways

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: MD5 is the manifest format, not a security check
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// ChecksumVerifier hashes runtime archives and release assets
type ChecksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
func NewChecksumVerifier() *ChecksumVerifier {
	return &ChecksumVerifier{}
}

// NormalizeSHA256 lower-cases a published digest and strips an optional "sha256:" prefix
func NormalizeSHA256(sum string) (string, error) {
	sum = strings.ToLower(strings.TrimSpace(sum))
	sum = strings.TrimPrefix(sum, "sha256:")
	if len(sum) != sha256.Size*2 {
		return "", fmt.Errorf("%w: %q is not a SHA-256 digest", entities.ErrValidation, sum)
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return "", fmt.Errorf("%w: %q is not a SHA-256 digest", entities.ErrValidation, sum)
	}
	return sum, nil
}

// VerifyChecksum compares the file's SHA-256 with the published digest.
// Hashing stops early when ctx is cancelled; runtime archives are large.
func (v *ChecksumVerifier) VerifyChecksum(ctx context.Context, filePath, expectedSum string) error {
	want, err := NormalizeSHA256(expectedSum)
	if err != nil {
		return err
	}
	got, err := digestFile(ctx, filePath, sha256.New())
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %s: expected %s, got %s", entities.ErrChecksumMismatch, filePath, want, got)
	}
	return nil
}

// CalculateChecksum returns the lower-case hex SHA-256 of a file
func (v *ChecksumVerifier) CalculateChecksum(filePath string) (string, error) {
	return digestFile(context.Background(), filePath, sha256.New())
}

// FileMD5 returns the upper-case hex MD5 of a file, as written to bundle manifests
func FileMD5(filePath string) (string, error) {
	//nolint:gosec // G401: MD5 is the manifest format
	sum, err := digestFile(context.Background(), filePath, md5.New())
	if err != nil {
		return "", err
	}
	return strings.ToUpper(sum), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func digestFile(ctx context.Context, filePath string, h hash.Hash) (string, error) {
	//nolint:gosec // G304: hashing files the build produced or downloaded
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	if _, err := io.Copy(h, ctxReader{ctx: ctx, r: f}); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", filePath, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
