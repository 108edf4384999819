package orchestrators

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

// VerificationOrchestrator checks downloaded runtime archives before anything unpacks them.
// Checksums are compared first, then PGP signatures against a single pinned key.
type VerificationOrchestrator struct {
	checksums   gateways.ChecksumVerifier
	signatures  gateways.SignatureVerifier
	keyID       string
	keyImported bool
	logger      interfaces.Logger
}

// NewVerificationOrchestrator creates a verification orchestrator for the given key fingerprint
func NewVerificationOrchestrator(
	checksums gateways.ChecksumVerifier,
	signatures gateways.SignatureVerifier,
	keyID string,
	logger interfaces.Logger,
) *VerificationOrchestrator {
	return &VerificationOrchestrator{
		checksums:  checksums,
		signatures: signatures,
		keyID:      keyID,
		logger:     interfaces.OrNoOp(logger),
	}
}

// VerificationResult lists what was checked for one runtime
type VerificationResult struct {
	Descriptor *entities.RuntimeDescriptor
	Checksums  []string
	Signatures []string
	Duration   time.Duration
}

type verifiedFile struct {
	name      string
	signature string
	sha256    string
}

// VerifyRuntime verifies the archive (and jmods archive, when requested) in dir
func (o *VerificationOrchestrator) VerifyRuntime(ctx context.Context, desc *entities.RuntimeDescriptor, dir string) (*VerificationResult, error) {
	start := time.Now()
	if !desc.IsComplete() {
		return nil, fmt.Errorf("%w: %s", entities.ErrIncompleteRuntime, desc.SystemID())
	}

	files := []verifiedFile{{desc.ArchiveFileName(), desc.SignatureFileName(), desc.SHA256}}
	if desc.WithJmods {
		files = append(files, verifiedFile{desc.JmodFileName(), desc.JmodSignatureFileName(), desc.JmodSHA256})
	}

	result := &VerificationResult{Descriptor: desc}

	// Step 1: every checksum before any signature
	for _, f := range files {
		if err := o.checksums.VerifyChecksum(ctx, filepath.Join(dir, f.name), f.sha256); err != nil {
			return result, fmt.Errorf("checksum verification failed for %s: %w", f.name, err)
		}
		result.Checksums = append(result.Checksums, f.name)
	}

	// Step 2: signatures against the pinned key
	if err := o.importKey(ctx); err != nil {
		return result, err
	}
	for _, f := range files {
		if err := o.signatures.VerifyDetached(ctx, filepath.Join(dir, f.name), filepath.Join(dir, f.signature)); err != nil {
			return result, fmt.Errorf("signature verification failed for %s: %w", f.name, err)
		}
		result.Signatures = append(result.Signatures, f.name)
	}

	result.Duration = time.Since(start)
	o.logger.Info("Runtime verified",
		interfaces.F("target", desc.ID),
		interfaces.F("files", len(files)),
		interfaces.F("duration", result.Duration))
	return result, nil
}

func (o *VerificationOrchestrator) importKey(ctx context.Context) error {
	if o.keyImported {
		return nil
	}
	if o.keyID == "" {
		return fmt.Errorf("%w: no signing key configured", entities.ErrKeyNotFound)
	}
	if err := o.signatures.ImportKey(ctx, o.keyID); err != nil {
		return err
	}
	o.keyImported = true
	return nil
}

// GetVerificationSummary generates a human-readable verification summary
func (o *VerificationOrchestrator) GetVerificationSummary(result *VerificationResult) string {
	if result == nil || result.Descriptor == nil {
		return "nothing verified"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", result.Descriptor.SystemID(), result.Descriptor.Name)
	fmt.Fprintf(&sb, "   SHA-256: %d/%d files\n", len(result.Checksums), expectedFiles(result.Descriptor))
	fmt.Fprintf(&sb, "   PGP:     %d/%d files\n", len(result.Signatures), expectedFiles(result.Descriptor))
	fmt.Fprintf(&sb, "   Duration: %v", result.Duration)
	return sb.String()
}

func expectedFiles(desc *entities.RuntimeDescriptor) int {
	if desc.WithJmods {
		return 2
	}
	return 1
}
