package gateways

import (
	"context"
	"fmt"

	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

// DefaultNotaryProfile is the notarytool keychain profile used when none is configured
const DefaultNotaryProfile = "AC_PASSWORD"

// Notarizer submits a DMG to Apple's notary service and staples the ticket
type Notarizer struct {
	runner gateways.CommandRunner
	finder *ArtifactFinder
	logger interfaces.Logger
}

// NewNotarizer creates a notarizer
func NewNotarizer(runner gateways.CommandRunner, logger interfaces.Logger) *Notarizer {
	return &Notarizer{
		runner: runner,
		finder: NewArtifactFinder(),
		logger: interfaces.OrNoOp(logger),
	}
}

// Notarize notarizes and staples the only DMG in dir and returns its path
func (n *Notarizer) Notarize(ctx context.Context, dir, profile string) (string, error) {
	if profile == "" {
		profile = DefaultNotaryProfile
	}

	dmg, err := n.finder.FindSingle(dir, ".dmg")
	if err != nil {
		return "", err
	}

	n.logger.Info("Submitting for notarization", interfaces.F("dmg", dmg))
	if _, err := n.runner.Run(ctx, gateways.Command{
		Name:        "xcrun",
		Args:        []string{"notarytool", "submit", dmg, "--keychain-profile", profile, "--wait"},
		Description: "notarytool submit",
	}); err != nil {
		return "", fmt.Errorf("failed to notarize %s: %w", dmg, err)
	}

	if _, err := n.runner.Run(ctx, gateways.Command{
		Name:        "xcrun",
		Args:        []string{"stapler", "staple", dmg},
		Description: "stapler staple",
	}); err != nil {
		return "", fmt.Errorf("failed to staple %s: %w", dmg, err)
	}

	n.logger.Info("Notarization complete", interfaces.F("dmg", dmg))
	return dmg, nil
}
