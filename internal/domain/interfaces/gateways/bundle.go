package gateways

import (
	"context"
	"fmt"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// AssembleRequest describes one runtime image build
type AssembleRequest struct {
	Descriptor  *entities.RuntimeDescriptor
	DownloadDir string // where the downloader left the archives
	ScratchDir  string // JDK unpack location, cleared first
	OutputDir   string // final runtime image, cleared first
	JlinkArgs   []string
	UseJmods    bool
}

// RuntimeAssembler unpacks a verified runtime and trims it with jlink
type RuntimeAssembler interface {
	Assemble(ctx context.Context, req AssembleRequest) error
}

// AppImageStage is how far an app image build got; stages only move forward
type AppImageStage int

// Build stages in execution order
const (
	StageNotStarted AppImageStage = iota
	StageRuntimeCopied
	StageLauncherCopied
	StageResourcesCopied
	StageMetadataWritten
	StageComplete
)

func (s AppImageStage) String() string {
	switch s {
	case StageNotStarted:
		return "not started"
	case StageRuntimeCopied:
		return "runtime copied"
	case StageLauncherCopied:
		return "launcher copied"
	case StageResourcesCopied:
		return "resources copied"
	case StageMetadataWritten:
		return "metadata written"
	case StageComplete:
		return "complete"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// AppImageRequest holds the inputs of one app image build
type AppImageRequest struct {
	Target       entities.Target
	App          entities.AppDefinition
	Version      string
	InputDir     string // application jars and resources
	RuntimeDir   string // assembled runtime image
	Launcher     string // prebuilt native launcher
	ResourcesDir string // per-OS plist, PkgInfo and icons
	OutputDir    string
}

// AppImageResult describes the bundle that was written
type AppImageResult struct {
	Layout    entities.BundleLayout
	BundleDir string
	Stage     AppImageStage
	Manifest  *entities.Manifest
}

// AppImageBuilder lays out a bundle directly, without jpackage
type AppImageBuilder interface {
	Build(ctx context.Context, req AppImageRequest) (*AppImageResult, error)
}

// MetadataFixer fills the packaging JDK version into a crossbuilt image's .jpackage.xml
type MetadataFixer interface {
	Fix(bundleDir string, os entities.OperatingSystem, jdkHome string) (string, error)
}

// BundleSigner signs a macOS bundle inside out and returns the number of codesign calls
type BundleSigner interface {
	Sign(ctx context.Context, outputDir string, layout entities.BundleLayout, opts services.SignOptions) (int, error)
}

// InstallerPackager drives jpackage and archives Linux bundles
type InstallerPackager interface {
	Associations(dir string) ([]string, error)
	PackageInstaller(ctx context.Context, spec services.InstallerSpec) (*entities.Artifact, error)
	ArchiveBundle(sourceDir, tarballPath string) (*entities.Artifact, error)
	ReplaceLauncher(imageDir string, layout entities.BundleLayout, launcher string) error
}

// Notarizer submits the single DMG in dir and staples the ticket
type Notarizer interface {
	Notarize(ctx context.Context, dir, profile string) (string, error)
}

// VolumeRenamer renames the volume of the single DMG in dir
type VolumeRenamer interface {
	RenameInDir(ctx context.Context, dir, volume string) (string, error)
}
