package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// HostOS maps the running GOOS onto a target operating system
func HostOS() entities.OperatingSystem {
	switch runtime.GOOS {
	case "windows":
		return entities.OSWindows
	case "darwin":
		return entities.OSMac
	default:
		return entities.OSLinux
	}
}

// RuntimeAssembler unpacks a downloaded runtime and trims it with jlink.
// java and jlink are taken from the unpacked JDK, so a JDK target must match the host.
type RuntimeAssembler struct {
	runner    gateways.CommandRunner
	finder    *ArtifactFinder
	packaging *services.PackagingService
	hostOS    entities.OperatingSystem
	logger    interfaces.Logger
}

// NewRuntimeAssembler creates an assembler running tools through runner
func NewRuntimeAssembler(runner gateways.CommandRunner, logger interfaces.Logger) *RuntimeAssembler {
	return &RuntimeAssembler{
		runner:    runner,
		finder:    NewArtifactFinder(),
		packaging: services.NewPackagingService(),
		hostOS:    HostOS(),
		logger:    interfaces.OrNoOp(logger),
	}
}

// WithHostOS overrides the host used to pick tool executable names
func (a *RuntimeAssembler) WithHostOS(os entities.OperatingSystem) *RuntimeAssembler {
	a.hostOS = os
	return a
}

// Assemble builds the runtime image in req.OutputDir
func (a *RuntimeAssembler) Assemble(ctx context.Context, req gateways.AssembleRequest) error {
	desc := req.Descriptor
	if !desc.IsComplete() {
		return fmt.Errorf("%w: %s", entities.ErrIncompleteRuntime, desc.SystemID())
	}

	archive := filepath.Join(req.DownloadDir, desc.ArchiveFileName())
	if _, err := ArchiveFormat(archive); err != nil {
		return err
	}

	if desc.Kind == entities.RuntimeJRE {
		if err := os.RemoveAll(req.OutputDir); err != nil {
			return fmt.Errorf("failed to clear runtime output: %w", err)
		}
		if err := ExtractArchive(archive, req.OutputDir, a.logger); err != nil {
			return fmt.Errorf("failed to unpack JRE: %w", err)
		}
		a.logger.Info("Unpacked JRE", interfaces.F("target", desc.ID), interfaces.F("output", req.OutputDir))
		return nil
	}

	if err := os.RemoveAll(req.ScratchDir); err != nil {
		return fmt.Errorf("failed to clear scratch directory: %w", err)
	}
	if err := ExtractArchive(archive, req.ScratchDir, a.logger); err != nil {
		return fmt.Errorf("failed to unpack JDK: %w", err)
	}
	if err := os.RemoveAll(req.OutputDir); err != nil {
		return fmt.Errorf("failed to clear runtime output: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputDir), 0750); err != nil {
		return fmt.Errorf("failed to create runtime parent directory: %w", err)
	}

	suffix := a.hostOS.ExecutableSuffix()
	jlink, err := a.finder.FindFile(req.ScratchDir, "jlink"+suffix)
	if err != nil {
		return err
	}

	var args []string
	if req.UseJmods {
		args, err = a.modulePathArgs(req)
	} else {
		args, err = a.moduleListArgs(ctx, req, suffix)
	}
	if err != nil {
		return err
	}

	if _, err := a.runner.Run(ctx, gateways.Command{
		Name:        jlink,
		Args:        args,
		Description: "jlink " + desc.ID,
	}); err != nil {
		return fmt.Errorf("failed to link runtime: %w", err)
	}

	a.logger.Info("Linked runtime", interfaces.F("target", desc.ID), interfaces.F("output", req.OutputDir))
	return nil
}

// moduleListArgs links every module the unpacked JDK reports
func (a *RuntimeAssembler) moduleListArgs(ctx context.Context, req gateways.AssembleRequest, suffix string) ([]string, error) {
	java, err := a.finder.FindFile(req.ScratchDir, "java"+suffix)
	if err != nil {
		return nil, err
	}

	res, err := a.runner.Run(ctx, gateways.Command{
		Name:        java,
		Args:        []string{"--list-modules"},
		Description: "list modules",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list JDK modules: %w", err)
	}

	modules := a.packaging.ParseModuleList(res.Stdout)
	if len(modules) == 0 {
		return nil, fmt.Errorf("%w: java --list-modules returned no modules", entities.ErrMissingResource)
	}
	return a.packaging.JlinkModuleArgs(req.OutputDir, req.JlinkArgs, modules), nil
}

// modulePathArgs links from a jmods directory: the separately downloaded jmods
// archive when the descriptor has one, otherwise the unpacked JDK's own
func (a *RuntimeAssembler) modulePathArgs(req gateways.AssembleRequest) ([]string, error) {
	root := req.ScratchDir
	if req.Descriptor.WithJmods {
		root = req.ScratchDir + "-jmods"
		if err := os.RemoveAll(root); err != nil {
			return nil, fmt.Errorf("failed to clear jmods scratch directory: %w", err)
		}
		archive := filepath.Join(req.DownloadDir, req.Descriptor.JmodFileName())
		if err := ExtractArchive(archive, root, a.logger); err != nil {
			return nil, fmt.Errorf("failed to unpack jmods: %w", err)
		}
	}

	jmods, err := a.finder.FindDir(root, "jmods")
	if err != nil {
		// jmods archives unpack to a versioned directory rather than "jmods"
		base, baseErr := a.finder.FindFile(root, "java.base.jmod")
		if baseErr != nil {
			return nil, err
		}
		jmods = filepath.Dir(base)
	}
	return a.packaging.JlinkModulePathArgs(req.OutputDir, req.JlinkArgs, jmods), nil
}
