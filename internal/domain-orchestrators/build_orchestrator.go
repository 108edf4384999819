// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/repositories"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// ErrTargetSkipped marks a target that cannot be built in the current environment
var ErrTargetSkipped = errors.New("target skipped")

// jpackage app images are only produced for release versions (fourth component 00)
var releaseBuildPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)\.00`)

// BuildGateways groups the adapters the build pipeline drives
type BuildGateways struct {
	Resolver   gateways.RuntimeResolver
	Downloader gateways.RuntimeDownloader
	Assembler  gateways.RuntimeAssembler
	Images     gateways.AppImageBuilder
	Metadata   gateways.MetadataFixer
	Signer     gateways.BundleSigner
	Packager   gateways.InstallerPackager
	Notarizer  gateways.Notarizer
	Volumes    gateways.VolumeRenamer
}

// BuildOrchestratorConfig holds environment-dependent settings
type BuildOrchestratorConfig struct {
	HostOS          entities.OperatingSystem
	SigningIdentity string // overrides mac.signing_identity, normally $DeveloperId
	JDKHome         string // packaging JDK, used to fix crossbuilt metadata
	SkipInstaller   bool
	SkipSigning     bool
}

// BuildOrchestrator runs the per-target pipeline:
// resolve → download → verify → assemble → app image → sign → installer → notarize
type BuildOrchestrator struct {
	defRepo   repositories.DefinitionRepository
	verifier  *VerificationOrchestrator
	gw        BuildGateways
	packaging *services.PackagingService
	config    BuildOrchestratorConfig
	logger    interfaces.Logger
}

// NewBuildOrchestrator creates a new build orchestrator
func NewBuildOrchestrator(
	defRepo repositories.DefinitionRepository,
	verifier *VerificationOrchestrator,
	gw BuildGateways,
	config BuildOrchestratorConfig,
	logger interfaces.Logger,
) *BuildOrchestrator {
	return &BuildOrchestrator{
		defRepo:   defRepo,
		verifier:  verifier,
		gw:        gw,
		packaging: services.NewPackagingService(),
		config:    config,
		logger:    interfaces.OrNoOp(logger),
	}
}

// TargetPaths are the working directories of one target
type TargetPaths struct {
	Download  string // downloaded archives and signatures
	Scratch   string // unpacked JDK
	Runtime   string // trimmed runtime image
	Image     string // app image output
	Prebuilt  string // app image built elsewhere, used when present
	Installer string // installers and archives
}

// PathsFor returns the directories used for a target
func PathsFor(def *entities.BuildDefinition, target entities.Target) TargetPaths {
	sysID := target.SystemID()
	out := def.Packaging.OutputDir
	return TargetPaths{
		Download:  filepath.Join(def.Runtime.CacheDir, sysID),
		Scratch:   filepath.Join(out, "jdks", sysID),
		Runtime:   filepath.Join(out, "runtimes", sysID),
		Image:     filepath.Join(out, "images", sysID),
		Prebuilt:  filepath.Join(def.Packaging.PrebuiltImagesDir, sysID),
		Installer: filepath.Join(out, sysID),
	}
}

// TargetResult contains the outcome of one target's pipeline
type TargetResult struct {
	Target     entities.Target
	Runtime    *entities.RuntimeDescriptor
	ImageDir   string
	Artifacts  []*entities.Artifact
	Signatures int
	Notarized  string
	Duration   time.Duration
	Skipped    bool
	Error      error
}

// Success reports whether the target produced its outputs
func (r *TargetResult) Success() bool {
	return r.Error == nil && !r.Skipped
}

// BuildSummary collects every target's result
type BuildSummary struct {
	Version  string
	Results  []*TargetResult
	Duration time.Duration
}

// Failed returns the targets that ended in an error
func (s *BuildSummary) Failed() []*TargetResult {
	var failed []*TargetResult
	for _, r := range s.Results {
		if r.Error != nil && !r.Skipped {
			failed = append(failed, r)
		}
	}
	return failed
}

// Definition loads the build definition
func (o *BuildOrchestrator) Definition(ctx context.Context) (*entities.BuildDefinition, error) {
	def, err := o.defRepo.GetDefinition(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load build definition: %w", err)
	}
	return def, nil
}

// SelectTargets returns the requested targets, or all of them when ids is empty
func (o *BuildOrchestrator) SelectTargets(ctx context.Context, ids []string) ([]entities.Target, error) {
	if len(ids) == 0 {
		return o.defRepo.ListTargets(ctx)
	}
	targets := make([]entities.Target, 0, len(ids))
	for _, id := range ids {
		t, err := o.defRepo.GetTarget(ctx, id)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// ResolveRuntimes fetches (or loads from cache) descriptors for the given targets
func (o *BuildOrchestrator) ResolveRuntimes(ctx context.Context, def *entities.BuildDefinition, targets []entities.Target) map[string]*entities.RuntimeDescriptor {
	byID := make(map[string]entities.Target, len(targets))
	for _, t := range targets {
		byID[t.ID] = t
	}
	return o.gw.Resolver.ResolveRuntimes(ctx, def.Runtime.JavaVersion, byID)
}

// Build runs the whole pipeline for each selected target. A failing target does not stop
// the others; the returned error is non-nil when any target failed.
func (o *BuildOrchestrator) Build(ctx context.Context, version string, ids []string) (*BuildSummary, error) {
	start := time.Now()

	def, err := o.Definition(ctx)
	if err != nil {
		return nil, err
	}
	if version == "" {
		version = def.App.Version
	}
	if version == "" {
		return nil, fmt.Errorf("%w: no version given and app.version is empty", entities.ErrValidation)
	}

	targets, err := o.SelectTargets(ctx, ids)
	if err != nil {
		return nil, err
	}

	runtimes := o.ResolveRuntimes(ctx, def, targets)

	summary := &BuildSummary{Version: version}
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := o.BuildTarget(ctx, def, target, runtimes[target.ID], version)
		summary.Results = append(summary.Results, res)
	}
	summary.Duration = time.Since(start)

	if failed := summary.Failed(); len(failed) > 0 {
		return summary, fmt.Errorf("%d of %d targets failed", len(failed), len(summary.Results))
	}
	return summary, nil
}

// BuildTarget runs the pipeline for a single target; the result records how far it got
func (o *BuildOrchestrator) BuildTarget(ctx context.Context, def *entities.BuildDefinition, target entities.Target, desc *entities.RuntimeDescriptor, version string) *TargetResult {
	start := time.Now()
	res := &TargetResult{Target: target, Runtime: desc}
	tag := []interfaces.Field{interfaces.F("target", target.ID)}
	log := func(msg string, fields ...interfaces.Field) {
		o.logger.Info(msg, interfaces.With(tag, fields...)...)
	}

	fail := func(err error) *TargetResult {
		res.Duration = time.Since(start)
		if errors.Is(err, ErrTargetSkipped) {
			res.Skipped = true
			o.logger.Warn("Target skipped", interfaces.F("target", target.ID), interfaces.Err(err))
		} else {
			o.logger.Error("Target failed", interfaces.F("target", target.ID), interfaces.Err(err))
		}
		res.Error = err
		return res
	}

	paths := PathsFor(def, target)

	// Step 1: app image, from a prebuilt copy or built from a verified runtime
	imageDir, err := o.appImage(ctx, def, target, desc, version, paths)
	if err != nil {
		return fail(err)
	}
	res.ImageDir = imageDir
	log("App image ready", interfaces.F("path", imageDir))

	// Step 2: sign (macOS host and target only)
	if o.signingEnabled(def, target) {
		n, err := o.SignImage(ctx, def, target, imageDir)
		if err != nil {
			return fail(err)
		}
		res.Signatures = n
		log("App image signed", interfaces.F("signatures", n))
	}

	if o.config.SkipInstaller {
		res.Duration = time.Since(start)
		return res
	}

	// Step 3: installer or archive
	artifacts, err := o.Package(ctx, def, target, imageDir, version)
	if err != nil {
		return fail(err)
	}
	res.Artifacts = artifacts

	// Step 4: notarize the DMG
	if o.signingEnabled(def, target) {
		dmg, err := o.NotarizeInstaller(ctx, def, target)
		if err != nil {
			return fail(err)
		}
		res.Notarized = dmg
	}

	res.Duration = time.Since(start)
	log("Target complete", interfaces.F("duration", res.Duration))
	return res
}

// PrepareRuntime downloads, verifies and assembles the runtime for a target and
// returns the runtime image directory
func (o *BuildOrchestrator) PrepareRuntime(ctx context.Context, def *entities.BuildDefinition, target entities.Target, desc *entities.RuntimeDescriptor) (string, error) {
	if !desc.IsComplete() {
		return "", fmt.Errorf("%w: %s has no usable runtime metadata", entities.ErrIncompleteRuntime, target.ID)
	}
	paths := PathsFor(def, target)

	if err := o.gw.Downloader.DownloadRuntime(ctx, desc, paths.Download); err != nil {
		return "", fmt.Errorf("failed to download runtime: %w", err)
	}
	if err := o.gw.Downloader.CleanExtraneous(desc, paths.Download); err != nil {
		return "", fmt.Errorf("failed to clean runtime directory: %w", err)
	}
	if _, err := o.verifier.VerifyRuntime(ctx, desc, paths.Download); err != nil {
		return "", err
	}

	if err := o.gw.Assembler.Assemble(ctx, gateways.AssembleRequest{
		Descriptor:  desc,
		DownloadDir: paths.Download,
		ScratchDir:  paths.Scratch,
		OutputDir:   paths.Runtime,
		JlinkArgs:   def.Runtime.JlinkArgs,
		UseJmods:    desc.WithJmods,
	}); err != nil {
		return "", fmt.Errorf("failed to assemble runtime: %w", err)
	}
	return paths.Runtime, nil
}

func (o *BuildOrchestrator) appImage(ctx context.Context, def *entities.BuildDefinition, target entities.Target, desc *entities.RuntimeDescriptor, version string, paths TargetPaths) (string, error) {
	if def.Packaging.Crossbuild && isDir(paths.Prebuilt) {
		o.logger.Info("Using prebuilt app image", interfaces.F("path", paths.Prebuilt))
		if err := o.FixMetadata(def, target, paths.Prebuilt); err != nil {
			return "", err
		}
		return paths.Prebuilt, nil
	}

	if !def.Packaging.Crossbuild {
		if target.OS != o.config.HostOS {
			return "", fmt.Errorf("%w: %s app images need a %s host or crossbuild", ErrTargetSkipped, target.OS, target.OS)
		}
		if !releaseBuildPattern.MatchString(version) {
			return "", fmt.Errorf("%w: jpackage app images are only built for release versions, got %s", ErrTargetSkipped, version)
		}
	}

	runtimeDir, err := o.PrepareRuntime(ctx, def, target, desc)
	if err != nil {
		return "", err
	}

	if def.Packaging.Crossbuild {
		return o.crossbuildImage(ctx, def, target, runtimeDir, version, paths)
	}
	return o.jpackageImage(ctx, def, target, runtimeDir, version, paths)
}

func (o *BuildOrchestrator) crossbuildImage(ctx context.Context, def *entities.BuildDefinition, target entities.Target, runtimeDir, version string, paths TargetPaths) (string, error) {
	assets := def.Packaging.AssetsDir
	res, err := o.gw.Images.Build(ctx, gateways.AppImageRequest{
		Target:       target,
		App:          def.App,
		Version:      version,
		InputDir:     def.Packaging.InputDir,
		RuntimeDir:   runtimeDir,
		Launcher:     o.packaging.LauncherAsset(assets, target),
		ResourcesDir: o.packaging.ResourceDir(assets, target.OS),
		OutputDir:    paths.Image,
	})
	if err != nil {
		stage := gateways.StageNotStarted
		if res != nil {
			stage = res.Stage
		}
		return "", fmt.Errorf("failed to build app image (reached %s): %w", stage, err)
	}

	if err := o.FixMetadata(def, target, paths.Image); err != nil {
		return "", err
	}
	return paths.Image, nil
}

func (o *BuildOrchestrator) jpackageImage(ctx context.Context, def *entities.BuildDefinition, target entities.Target, runtimeDir, version string, paths TargetPaths) (string, error) {
	spec := services.InstallerSpec{
		Type:         services.InstallerAppImage,
		OS:           target.OS,
		App:          def.App,
		Version:      version,
		Dest:         paths.Image,
		ResourceDir:  o.packaging.ResourceDir(def.Packaging.AssetsDir, target.OS),
		InputDir:     def.Packaging.InputDir,
		RuntimeImage: runtimeDir,
	}
	if o.signingEnabled(def, target) {
		spec.MacSignID = o.identity(def)
	}
	if _, err := o.gw.Packager.PackageInstaller(ctx, spec); err != nil {
		return "", fmt.Errorf("failed to create app image: %w", err)
	}

	layout, err := entities.LayoutFor(target.OS, def.App.Name)
	if err != nil {
		return "", err
	}
	if err := o.gw.Packager.ReplaceLauncher(paths.Image, layout, o.packaging.LauncherAsset(def.Packaging.AssetsDir, target)); err != nil {
		return "", err
	}
	return paths.Image, nil
}

// FixMetadata substitutes the packaging JDK version into a crossbuilt image's .jpackage.xml
func (o *BuildOrchestrator) FixMetadata(def *entities.BuildDefinition, target entities.Target, imageDir string) error {
	if o.config.JDKHome == "" {
		return fmt.Errorf("%w: JAVA_HOME must point at the packaging JDK", entities.ErrValidation)
	}
	layout, err := entities.LayoutFor(target.OS, def.App.Name)
	if err != nil {
		return err
	}
	javaVersion, err := o.gw.Metadata.Fix(layout.Resolve(imageDir, layout.Root), target.OS, o.config.JDKHome)
	if err != nil {
		return fmt.Errorf("failed to fix jpackage metadata: %w", err)
	}
	o.logger.Debug("jpackage metadata fixed", interfaces.F("target", target.ID), interfaces.F("java", javaVersion))
	return nil
}

// Package produces the installer (dmg, msi) or the Linux tarball from an app image
func (o *BuildOrchestrator) Package(ctx context.Context, def *entities.BuildDefinition, target entities.Target, imageDir, version string) ([]*entities.Artifact, error) {
	paths := PathsFor(def, target)

	if target.OS == entities.OSLinux {
		tarball := filepath.Join(paths.Installer, o.packaging.ArchiveName(def.App.Name, version))
		if err := os.MkdirAll(paths.Installer, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		artifact, err := o.gw.Packager.ArchiveBundle(imageDir, tarball)
		if err != nil {
			return nil, err
		}
		artifact.Version = version
		artifact.Platform = target.Platform()
		return []*entities.Artifact{artifact}, nil
	}

	if target.OS != o.config.HostOS {
		return nil, fmt.Errorf("%w: %s installers need a %s host", ErrTargetSkipped, target.OS, target.OS)
	}

	layout, err := entities.LayoutFor(target.OS, def.App.Name)
	if err != nil {
		return nil, err
	}

	spec := services.InstallerSpec{
		Type:        o.packaging.InstallerTypeFor(target.OS),
		OS:          target.OS,
		App:         def.App,
		Version:     version,
		Dest:        paths.Installer,
		ResourceDir: o.packaging.ResourceDir(def.Packaging.AssetsDir, target.OS),
		AppImage:    layout.Resolve(imageDir, layout.Root),
		UpgradeUUID: def.Packaging.UpgradeUUID,
	}
	switch target.OS {
	case entities.OSWindows:
		assoc, err := o.gw.Packager.Associations(o.packaging.AssociationsDir(def.Packaging.AssetsDir))
		if err != nil {
			return nil, err
		}
		spec.Associations = assoc
	case entities.OSMac:
		if o.signingEnabled(def, target) {
			spec.MacSignID = o.identity(def)
		}
	}

	artifact, err := o.gw.Packager.PackageInstaller(ctx, spec)
	if err != nil {
		return nil, err
	}
	artifact.Platform = target.Platform()

	if target.OS == entities.OSMac && def.Mac.VolumeName != "" && def.Mac.VolumeName != def.App.Name {
		if _, err := o.gw.Volumes.RenameInDir(ctx, paths.Installer, def.Mac.VolumeName); err != nil {
			return nil, fmt.Errorf("failed to rename dmg volume: %w", err)
		}
	}
	return []*entities.Artifact{artifact}, nil
}

// SignImage signs a macOS app image inside out and returns the number of codesign calls
func (o *BuildOrchestrator) SignImage(ctx context.Context, def *entities.BuildDefinition, target entities.Target, imageDir string) (int, error) {
	if target.OS != entities.OSMac || o.config.HostOS != entities.OSMac {
		return 0, fmt.Errorf("%w: code signing needs a macOS host and target", ErrTargetSkipped)
	}
	if o.identity(def) == "" {
		return 0, fmt.Errorf("%w: no signing identity configured", entities.ErrValidation)
	}
	layout, err := entities.LayoutFor(target.OS, def.App.Name)
	if err != nil {
		return 0, err
	}
	n, err := o.gw.Signer.Sign(ctx, imageDir, layout, o.SignOptions(def))
	if err != nil {
		return n, fmt.Errorf("signing failed: %w", err)
	}
	return n, nil
}

// NotarizeInstaller submits the target's DMG for notarization and staples the ticket
func (o *BuildOrchestrator) NotarizeInstaller(ctx context.Context, def *entities.BuildDefinition, target entities.Target) (string, error) {
	if target.OS != entities.OSMac || o.config.HostOS != entities.OSMac {
		return "", fmt.Errorf("%w: notarization needs a macOS host and target", ErrTargetSkipped)
	}
	dmg, err := o.gw.Notarizer.Notarize(ctx, PathsFor(def, target).Installer, def.Mac.NotaryProfile)
	if err != nil {
		return "", fmt.Errorf("notarization failed: %w", err)
	}
	o.logger.Info("Installer notarized", interfaces.F("target", target.ID), interfaces.F("dmg", dmg))
	return dmg, nil
}

// SignOptions derives codesign settings from the definition
func (o *BuildOrchestrator) SignOptions(def *entities.BuildDefinition) services.SignOptions {
	return services.SignOptions{
		Identity:              o.identity(def),
		Prefix:                services.Prefix(def.App.Identifier),
		Keychain:              def.Mac.Keychain,
		Entitlements:          def.Mac.Entitlements,
		InheritedEntitlements: def.Mac.InheritedEntitlements,
	}
}

func (o *BuildOrchestrator) identity(def *entities.BuildDefinition) string {
	if o.config.SigningIdentity != "" {
		return o.config.SigningIdentity
	}
	return def.Mac.SigningIdentity
}

// signingEnabled requires sign_and_notarize and an identity, on a macOS host building a macOS target
func (o *BuildOrchestrator) signingEnabled(def *entities.BuildDefinition, target entities.Target) bool {
	return !o.config.SkipSigning &&
		def.Mac.SignAndNotarize &&
		o.identity(def) != "" &&
		o.config.HostOS == entities.OSMac &&
		target.OS == entities.OSMac
}

// GetBuildSummary returns a human-readable summary of one target
func (r *TargetResult) GetBuildSummary() string {
	switch {
	case r.Skipped:
		return fmt.Sprintf("%s skipped: %v", r.Target.ID, r.Error)
	case r.Error != nil:
		return fmt.Sprintf("%s failed: %v", r.Target.ID, r.Error)
	}

	summary := fmt.Sprintf("%s built (%s)\n   Image: %s", r.Target.ID, r.Duration.Round(time.Millisecond), r.ImageDir)
	for _, a := range r.Artifacts {
		summary += fmt.Sprintf("\n   %s: %s", a.Type, a.Path)
	}
	if r.Signatures > 0 {
		summary += fmt.Sprintf("\n   Signatures: %d", r.Signatures)
	}
	if r.Notarized != "" {
		summary += fmt.Sprintf("\n   Notarized: %s", r.Notarized)
	}
	return summary
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
