package gateways

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/external-adapters/gpg"
)

// PGPVerifier implements gateways.SignatureVerifier for Adoptium's detached .sig files.
// The first imported fingerprint is pinned; importing another one is refused.
// Not safe for concurrent use; runtime verification runs one target at a time.
type PGPVerifier struct {
	verifier *gpg.Verifier
	pinned   string
}

// NewGPGVerifier creates a signature verifier backed by keyserver
func NewGPGVerifier(keyserver string) *PGPVerifier {
	return &PGPVerifier{verifier: gpg.NewVerifier(keyserver)}
}

// ImportKey fetches and pins the signing key; importing the pinned key again is a no-op
func (g *PGPVerifier) ImportKey(ctx context.Context, fingerprint string) error {
	id := gpg.KeyID(fingerprint)
	switch {
	case g.pinned == id:
		return nil
	case g.pinned != "":
		return fmt.Errorf("%w: key 0x%s is already pinned, refusing 0x%s", entities.ErrValidation, g.pinned, id)
	}

	if err := g.verifier.ImportKey(ctx, fingerprint); err != nil {
		return fmt.Errorf("failed to import signing key: %w", err)
	}
	g.pinned = id
	return nil
}

// VerifyDetached verifies sigPath against filePath with the pinned key
func (g *PGPVerifier) VerifyDetached(ctx context.Context, filePath, sigPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.pinned == "" {
		return fmt.Errorf("%w: no signing key imported", entities.ErrKeyNotFound)
	}

	if err := g.verifier.VerifyFile(filePath, sigPath); err != nil {
		return fmt.Errorf("PGP signature of %s: %w", filepath.Base(filePath), err)
	}
	return nil
}
