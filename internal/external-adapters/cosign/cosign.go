// Package cosign signs and verifies release assets with the cosign CLI using
// keyless Sigstore bundles.
package cosign

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

const (
	// GitHubActionsIssuer is the OIDC issuer of workflow identities
	GitHubActionsIssuer = "https://token.actions.githubusercontent.com"
	// DefaultIdentityRegexp accepts any GitHub workflow identity
	DefaultIdentityRegexp = "^https://github.com/.*/.*/.*@.*$"
)

// Cosign wraps the cosign executable
type Cosign struct {
	runner   gateways.CommandRunner
	binary   string
	lookPath func(string) (string, error)
	logger   interfaces.Logger
}

// New creates a cosign wrapper running through runner
func New(runner gateways.CommandRunner, logger interfaces.Logger) *Cosign {
	return &Cosign{
		runner:   runner,
		binary:   "cosign",
		lookPath: exec.LookPath,
		logger:   interfaces.OrNoOp(logger),
	}
}

// IsInstalled checks if cosign is available in PATH
func (c *Cosign) IsInstalled() bool {
	_, err := c.lookPath(c.binary)
	return err == nil
}

func (c *Cosign) ensureInstalled() error {
	if _, err := c.lookPath(c.binary); err != nil {
		return fmt.Errorf("cosign not installed: %w (install from https://github.com/sigstore/cosign)", err)
	}
	return nil
}

// SignBlob signs filePath keylessly and writes the Sigstore bundle to bundlePath.
// Outside CI cosign opens a browser for the OIDC login.
func (c *Cosign) SignBlob(ctx context.Context, filePath, bundlePath string) error {
	if err := c.ensureInstalled(); err != nil {
		return err
	}
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(bundlePath), 0750); err != nil {
		return fmt.Errorf("failed to create signature directory: %w", err)
	}

	if _, err := c.runner.Run(ctx, gateways.Command{
		Name:        c.binary,
		Args:        []string{"sign-blob", "--yes", "--bundle", bundlePath, filePath},
		Description: "cosign sign-blob",
	}); err != nil {
		return fmt.Errorf("failed to sign %s: %w", filepath.Base(filePath), err)
	}

	c.logger.Info("Signed asset", interfaces.F("file", filepath.Base(filePath)), interfaces.F("bundle", bundlePath))
	return nil
}

// VerifyBundle checks filePath against a Sigstore bundle. An empty identity
// accepts any GitHub workflow identity.
func (c *Cosign) VerifyBundle(ctx context.Context, filePath, bundlePath, identity string) error {
	if err := c.ensureInstalled(); err != nil {
		return err
	}
	if _, err := os.Stat(bundlePath); err != nil {
		return fmt.Errorf("signature bundle not found: %w", err)
	}

	args := []string{"verify-blob", "--bundle", bundlePath, "--certificate-oidc-issuer", GitHubActionsIssuer}
	if identity != "" {
		args = append(args, "--certificate-identity", identity)
	} else {
		args = append(args, "--certificate-identity-regexp", DefaultIdentityRegexp)
	}
	args = append(args, filePath)

	if _, err := c.runner.Run(ctx, gateways.Command{
		Name:        c.binary,
		Args:        args,
		Description: "cosign verify-blob",
	}); err != nil {
		return fmt.Errorf("cosign verification failed: %w", err)
	}
	return nil
}
