package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

const volumeIconName = ".VolumeIcon.icns"

// DmgVolumeRenamer changes the mounted volume name of a DMG in place
type DmgVolumeRenamer struct {
	runner gateways.CommandRunner
	finder *ArtifactFinder
	logger interfaces.Logger
}

// NewDmgVolumeRenamer creates a volume renamer
func NewDmgVolumeRenamer(runner gateways.CommandRunner, logger interfaces.Logger) *DmgVolumeRenamer {
	return &DmgVolumeRenamer{
		runner: runner,
		finder: NewArtifactFinder(),
		logger: interfaces.OrNoOp(logger),
	}
}

// RenameInDir renames the volume of the only DMG in dir
func (r *DmgVolumeRenamer) RenameInDir(ctx context.Context, dir, volume string) (string, error) {
	dmg, err := r.finder.FindSingle(dir, ".dmg")
	if err != nil {
		return "", err
	}
	return dmg, r.Rename(ctx, dmg, volume)
}

// Rename converts dmg to read/write, renames its volume, keeps a custom volume icon
// when SetFile is available, and recompresses over the original file
func (r *DmgVolumeRenamer) Rename(ctx context.Context, dmg, volume string) error {
	if volume == "" {
		return fmt.Errorf("volume name is required")
	}

	stem := strings.TrimSuffix(dmg, filepath.Ext(dmg))
	rwDmg := stem + ".rw.dmg"
	converted := stem + ".converted.dmg"

	if err := r.hdiutil(ctx, "convert", dmg, "-format", "UDRW", "-o", rwDmg); err != nil {
		return err
	}
	//nolint:errcheck // Best effort removal of the temporary image
	defer os.Remove(rwDmg)

	mountRoot, err := os.MkdirTemp(filepath.Dir(dmg), "dmg-mount-")
	if err != nil {
		return fmt.Errorf("failed to create mount point: %w", err)
	}
	//nolint:errcheck // Best effort removal of the mount point
	defer os.RemoveAll(mountRoot)

	if err := r.hdiutil(ctx, "attach", rwDmg, "-mountpoint", mountRoot, "-nobrowse"); err != nil {
		return err
	}
	attached := true
	defer func() {
		if attached {
			_ = r.hdiutil(context.WithoutCancel(ctx), "detach", "-force", mountRoot)
		}
	}()

	r.logger.Info("Renaming volume", interfaces.F("volume", volume))
	if _, err := r.runner.Run(ctx, gateways.Command{
		Name:        "diskutil",
		Args:        []string{"rename", mountRoot, volume},
		Description: "diskutil rename",
	}); err != nil {
		return fmt.Errorf("failed to rename volume: %w", err)
	}

	r.preserveIcon(ctx, mountRoot)

	if err := r.hdiutil(ctx, "detach", mountRoot); err != nil {
		return err
	}
	attached = false

	if err := r.hdiutil(ctx, "convert", rwDmg, "-format", "UDZO", "-o", converted); err != nil {
		return err
	}
	if err := os.Rename(converted, dmg); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(dmg), err)
	}

	r.logger.Info("Replaced original DMG", interfaces.F("dmg", dmg))
	return nil
}

// preserveIcon marks the volume as having a custom icon. Failures are logged only.
func (r *DmgVolumeRenamer) preserveIcon(ctx context.Context, mountRoot string) {
	icon := filepath.Join(mountRoot, volumeIconName)
	if !fileExists(icon) {
		return
	}
	if _, err := r.runner.Run(ctx, gateways.Command{
		Name: "sh",
		Args: []string{"-c", "command -v SetFile >/dev/null 2>&1"},
	}); err != nil {
		r.logger.Debug("SetFile not available, volume icon attributes not set")
		return
	}

	for _, args := range [][]string{{"-c", "icnC", icon}, {"-a", "C", mountRoot}} {
		if _, err := r.runner.Run(ctx, gateways.Command{Name: "SetFile", Args: args, Description: "SetFile"}); err != nil {
			r.logger.Error("failed to set icon attributes with SetFile", interfaces.Err(err))
			return
		}
	}
	r.logger.Info("Applied SetFile attributes to preserve volume icon")
}

func (r *DmgVolumeRenamer) hdiutil(ctx context.Context, args ...string) error {
	if _, err := r.runner.Run(ctx, gateways.Command{
		Name:        "hdiutil",
		Args:        args,
		Description: "hdiutil " + args[0],
	}); err != nil {
		return fmt.Errorf("failed to %s disk image: %w", args[0], err)
	}
	return nil
}
