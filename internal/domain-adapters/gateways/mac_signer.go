package gateways

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// MacSigner signs a macOS app bundle from the inside out with codesign
type MacSigner struct {
	runner   gateways.CommandRunner
	signing  *services.SigningService
	codesign string
	logger   interfaces.Logger
}

// NewMacSigner creates a bundle signer
func NewMacSigner(runner gateways.CommandRunner, logger interfaces.Logger) *MacSigner {
	return &MacSigner{
		runner:   runner,
		signing:  services.NewSigningService(),
		codesign: "codesign",
		logger:   interfaces.OrNoOp(logger),
	}
}

// Sign signs every nested binary of the bundle described by layout below outputDir,
// then the runtime, frameworks, main launcher and finally the bundle itself.
// It returns the number of codesign invocations that signed something.
func (s *MacSigner) Sign(ctx context.Context, outputDir string, layout entities.BundleLayout, opts services.SignOptions) (int, error) {
	if layout.OS != entities.OSMac {
		return 0, fmt.Errorf("%w: only macOS bundles can be signed, got %s", entities.ErrValidation, layout.OS)
	}
	if opts.Identity == "" {
		return 0, fmt.Errorf("%w: a signing identity is required", entities.ErrValidation)
	}

	bundle := layout.Resolve(outputDir, layout.Root)
	if info, err := os.Stat(bundle); err != nil || !info.IsDir() {
		return 0, fmt.Errorf("%w: bundle %s", entities.ErrMissingResource, bundle)
	}

	launcher := layout.LauncherPath()
	var candidates []string
	err := filepath.WalkDir(bundle, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(outputDir, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if s.signing.IsCandidate(filepath.ToSlash(rel), info.Mode(), launcher) {
			candidates = append(candidates, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk bundle: %w", err)
	}

	signed := 0
	for _, p := range candidates {
		if err := s.signNested(ctx, p, opts); err != nil {
			return signed, err
		}
		signed++
	}

	contents := layout.ContentsDir()
	var finals []string
	if runtimeDir := layout.Resolve(outputDir, path.Join(contents, "runtime")); isDir(runtimeDir) {
		finals = append(finals, runtimeDir)
	}
	frameworks := layout.Resolve(outputDir, path.Join(contents, "Frameworks"))
	if entries, err := os.ReadDir(frameworks); err == nil {
		for _, e := range entries {
			finals = append(finals, filepath.Join(frameworks, e.Name()))
		}
	}
	for _, p := range finals {
		if err := s.codesignRun(ctx, s.signing.SignArgs(opts, p, s.signing.HelperEntitlements(opts), true)); err != nil {
			return signed, err
		}
		signed++
	}

	for _, p := range []string{layout.Resolve(outputDir, launcher), bundle} {
		if err := s.codesignRun(ctx, s.signing.SignArgs(opts, p, opts.Entitlements, true)); err != nil {
			return signed, err
		}
		signed++
	}

	s.logger.Info("Bundle signed", interfaces.F("bundle", bundle), interfaces.F("signatures", signed))
	return signed, nil
}

// signNested re-signs one nested file, making it writable for the duration
func (s *MacSigner) signNested(ctx context.Context, p string, opts services.SignOptions) error {
	info, err := os.Lstat(p)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", p, err)
	}
	orig := info.Mode().Perm()
	if orig&0o200 == 0 {
		if err := os.Chmod(p, orig|0o200); err != nil {
			return fmt.Errorf("failed to make %s writable: %w", p, err)
		}
		//nolint:errcheck // Best effort restore of the original mode
		defer os.Chmod(p, orig)
	}

	// An unsigned file makes --remove-signature fail; that is fine
	if _, err := s.runner.Run(ctx, gateways.Command{
		Name:        s.codesign,
		Args:        s.signing.UnsignArgs(p),
		Description: "codesign --remove-signature",
	}); err != nil {
		s.logger.Debug("Could not remove signature", interfaces.F("path", p), interfaces.Err(err))
	}

	entitlements := ""
	if services.IsExecutable(orig) {
		entitlements = s.signing.HelperEntitlements(opts)
	}
	return s.codesignRun(ctx, s.signing.SignArgs(opts, p, entitlements, false))
}

func (s *MacSigner) codesignRun(ctx context.Context, args []string) error {
	if _, err := s.runner.Run(ctx, gateways.Command{
		Name:        s.codesign,
		Args:        args,
		Description: "codesign",
	}); err != nil {
		return fmt.Errorf("failed to sign %s: %w", args[len(args)-1], err)
	}
	return nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
