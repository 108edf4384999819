package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// Mock implementations for testing
type mockDefinitionRepository struct {
	def *entities.BuildDefinition
	err error
}

func (m *mockDefinitionRepository) GetDefinition(_ context.Context) (*entities.BuildDefinition, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.def, nil
}

func (m *mockDefinitionRepository) GetTarget(_ context.Context, id string) (entities.Target, error) {
	t, ok := m.def.Targets[id]
	if !ok {
		return entities.Target{}, fmt.Errorf("%w: unknown target %q", entities.ErrValidation, id)
	}
	return t, nil
}

func (m *mockDefinitionRepository) ListTargets(_ context.Context) ([]entities.Target, error) {
	targets := make([]entities.Target, 0, len(m.def.Targets))
	for _, id := range m.def.TargetIDs() {
		targets = append(targets, m.def.Targets[id])
	}
	return targets, nil
}

type mockResolver struct {
	descs map[string]*entities.RuntimeDescriptor
}

func (m *mockResolver) ResolveRuntimes(_ context.Context, _ int, targets map[string]entities.Target) map[string]*entities.RuntimeDescriptor {
	out := make(map[string]*entities.RuntimeDescriptor, len(targets))
	for id := range targets {
		out[id] = m.descs[id]
	}
	return out
}

type mockDownloader struct {
	err        error
	downloaded []string
	cleaned    []string
}

func (m *mockDownloader) DownloadRuntime(_ context.Context, desc *entities.RuntimeDescriptor, dir string) error {
	if m.err != nil {
		return m.err
	}
	m.downloaded = append(m.downloaded, desc.ID+":"+dir)
	return nil
}

func (m *mockDownloader) CleanExtraneous(desc *entities.RuntimeDescriptor, _ string) error {
	m.cleaned = append(m.cleaned, desc.ID)
	return nil
}

type mockChecksums struct {
	err      error
	verified []string
	sums     map[string]string
}

func (m *mockChecksums) VerifyChecksum(_ context.Context, filePath, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.verified = append(m.verified, filepath.Base(filePath))
	return nil
}

func (m *mockChecksums) CalculateChecksum(filePath string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if sum, ok := m.sums[filepath.Base(filePath)]; ok {
		return sum, nil
	}
	return strings.Repeat("0", 64), nil
}

type mockSignatures struct {
	importErr error
	verifyErr error
	imports   []string
	verified  []string
}

func (m *mockSignatures) ImportKey(_ context.Context, fingerprint string) error {
	m.imports = append(m.imports, fingerprint)
	return m.importErr
}

func (m *mockSignatures) VerifyDetached(_ context.Context, filePath, _ string) error {
	if m.verifyErr != nil {
		return m.verifyErr
	}
	m.verified = append(m.verified, filepath.Base(filePath))
	return nil
}

type mockAssembler struct {
	err  error
	reqs []gateways.AssembleRequest
}

func (m *mockAssembler) Assemble(_ context.Context, req gateways.AssembleRequest) error {
	m.reqs = append(m.reqs, req)
	return m.err
}

type mockImages struct {
	err  error
	reqs []gateways.AppImageRequest
}

func (m *mockImages) Build(_ context.Context, req gateways.AppImageRequest) (*gateways.AppImageResult, error) {
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return &gateways.AppImageResult{Stage: gateways.StageRuntimeCopied}, m.err
	}
	return &gateways.AppImageResult{BundleDir: req.OutputDir, Stage: gateways.StageComplete}, nil
}

type mockMetadataFixer struct {
	err   error
	fixed []string
}

func (m *mockMetadataFixer) Fix(bundleDir string, _ entities.OperatingSystem, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.fixed = append(m.fixed, bundleDir)
	return "21.0.2", nil
}

type mockBundleSigner struct {
	err   error
	calls []services.SignOptions
}

func (m *mockBundleSigner) Sign(_ context.Context, _ string, _ entities.BundleLayout, opts services.SignOptions) (int, error) {
	m.calls = append(m.calls, opts)
	if m.err != nil {
		return 0, m.err
	}
	return 12, nil
}

type mockPackager struct {
	err          error
	associations []string
	specs        []services.InstallerSpec
	archives     []string
	launchers    []string
}

func (m *mockPackager) Associations(_ string) ([]string, error) {
	return m.associations, nil
}

func (m *mockPackager) PackageInstaller(_ context.Context, spec services.InstallerSpec) (*entities.Artifact, error) {
	m.specs = append(m.specs, spec)
	if m.err != nil {
		return nil, m.err
	}
	typ := entities.ArtifactInstaller
	if spec.Type == services.InstallerAppImage {
		typ = entities.ArtifactAppImage
	}
	return &entities.Artifact{
		Name:    spec.App.Name,
		Version: spec.Version,
		Path:    filepath.Join(spec.Dest, spec.App.Name+"."+string(spec.Type)),
		Type:    typ,
	}, nil
}

func (m *mockPackager) ArchiveBundle(sourceDir, tarballPath string) (*entities.Artifact, error) {
	m.archives = append(m.archives, sourceDir)
	if m.err != nil {
		return nil, m.err
	}
	return &entities.Artifact{Name: filepath.Base(tarballPath), Path: tarballPath, Type: entities.ArtifactArchive}, nil
}

func (m *mockPackager) ReplaceLauncher(_ string, _ entities.BundleLayout, launcher string) error {
	m.launchers = append(m.launchers, launcher)
	return nil
}

type mockNotarizer struct {
	err   error
	dirs  []string
	profs []string
}

func (m *mockNotarizer) Notarize(_ context.Context, dir, profile string) (string, error) {
	m.dirs = append(m.dirs, dir)
	m.profs = append(m.profs, profile)
	if m.err != nil {
		return "", m.err
	}
	return filepath.Join(dir, "AstroImageJ-6.0.0.dmg"), nil
}

type mockVolumes struct {
	renamed []string
}

func (m *mockVolumes) RenameInDir(_ context.Context, dir, volume string) (string, error) {
	m.renamed = append(m.renamed, volume)
	return filepath.Join(dir, "AstroImageJ.dmg"), nil
}

type buildMocks struct {
	resolver   *mockResolver
	downloader *mockDownloader
	checksums  *mockChecksums
	signatures *mockSignatures
	assembler  *mockAssembler
	images     *mockImages
	metadata   *mockMetadataFixer
	signer     *mockBundleSigner
	packager   *mockPackager
	notarizer  *mockNotarizer
	volumes    *mockVolumes
}

func newBuildMocks(descs map[string]*entities.RuntimeDescriptor) *buildMocks {
	return &buildMocks{
		resolver:   &mockResolver{descs: descs},
		downloader: &mockDownloader{},
		checksums:  &mockChecksums{},
		signatures: &mockSignatures{},
		assembler:  &mockAssembler{},
		images:     &mockImages{},
		metadata:   &mockMetadataFixer{},
		signer:     &mockBundleSigner{},
		packager:   &mockPackager{},
		notarizer:  &mockNotarizer{},
		volumes:    &mockVolumes{},
	}
}

func (m *buildMocks) orchestrator(def *entities.BuildDefinition, config BuildOrchestratorConfig) *BuildOrchestrator {
	verifier := NewVerificationOrchestrator(m.checksums, m.signatures, def.Runtime.KeyID, nil)
	return NewBuildOrchestrator(
		&mockDefinitionRepository{def: def},
		verifier,
		BuildGateways{
			Resolver:   m.resolver,
			Downloader: m.downloader,
			Assembler:  m.assembler,
			Images:     m.images,
			Metadata:   m.metadata,
			Signer:     m.signer,
			Packager:   m.packager,
			Notarizer:  m.notarizer,
			Volumes:    m.volumes,
		},
		config,
		nil,
	)
}

func testDefinition(t *testing.T) *entities.BuildDefinition {
	t.Helper()
	dir := t.TempDir()
	return &entities.BuildDefinition{
		App: entities.AppDefinition{
			Name:       "AstroImageJ",
			Version:    "6.0.0.00",
			MainJar:    "ij.jar",
			MainClass:  "ij.ImageJ",
			Identifier: "com.astroimagej.AstroImageJ",
		},
		Runtime: entities.RuntimeDefinition{
			JavaVersion: 21,
			CacheDir:    filepath.Join(dir, "jres"),
			KeyID:       "3B04D753C9050D9A5D343F39843C48A565F8F04B",
		},
		Targets: map[string]entities.Target{
			"linux":   {ID: "linux", OS: entities.OSLinux, Arch: entities.ArchX64, Ext: "tar.gz", Kind: entities.RuntimeJRE},
			"mac":     {ID: "mac", OS: entities.OSMac, Arch: entities.ArchX64, Ext: "tar.gz", Kind: entities.RuntimeJDK},
			"windows": {ID: "windows", OS: entities.OSWindows, Arch: entities.ArchX64, Ext: "zip", Kind: entities.RuntimeJRE},
		},
		Packaging: entities.PackagingDefinition{
			InputDir:          filepath.Join(dir, "build", "commonFiles"),
			AssetsDir:         filepath.Join(dir, "assets"),
			OutputDir:         filepath.Join(dir, "out"),
			PrebuiltImagesDir: filepath.Join(dir, "images"),
			UpgradeUUID:       "83f529ac-39a3-4fe7-9f97-e9f259321c26",
		},
		Mac: entities.MacDefinition{
			NotaryProfile: "AC_PASSWORD",
			VolumeName:    "AstroImageJ",
			Entitlements:  "entitlements.plist",
		},
	}
}

func completeDescriptor(t entities.Target) *entities.RuntimeDescriptor {
	desc := entities.NewRuntimeDescriptor(t)
	desc.Version = 21
	desc.Name = "OpenJDK21U-" + string(t.Kind) + ".tar.gz"
	desc.SHA256 = strings.Repeat("a", 64)
	desc.URL = "https://example.org/" + desc.Name
	desc.SignatureURL = desc.URL + ".sig"
	return desc
}

func descriptorsFor(def *entities.BuildDefinition) map[string]*entities.RuntimeDescriptor {
	descs := make(map[string]*entities.RuntimeDescriptor, len(def.Targets))
	for id, t := range def.Targets {
		descs[id] = completeDescriptor(t)
	}
	return descs
}

func TestBuildOrchestrator_Crossbuild_Linux(t *testing.T) {
	def := testDefinition(t)
	def.Packaging.Crossbuild = true
	mocks := newBuildMocks(descriptorsFor(def))
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSMac, JDKHome: "/jdk"})

	summary, err := orch.Build(context.Background(), "", []string{"linux"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if summary.Version != "6.0.0.00" {
		t.Errorf("Version = %s, want app version 6.0.0.00", summary.Version)
	}
	if len(summary.Results) != 1 || !summary.Results[0].Success() {
		t.Fatalf("unexpected results: %+v", summary.Results)
	}

	res := summary.Results[0]
	paths := PathsFor(def, def.Targets["linux"])
	if res.ImageDir != paths.Image {
		t.Errorf("ImageDir = %s, want %s", res.ImageDir, paths.Image)
	}

	// runtime pipeline ran once: download, clean, checksum, key import, signature, assemble
	if len(mocks.downloader.downloaded) != 1 || len(mocks.downloader.cleaned) != 1 {
		t.Errorf("download calls = %v, clean calls = %v", mocks.downloader.downloaded, mocks.downloader.cleaned)
	}
	if len(mocks.checksums.verified) != 1 || len(mocks.signatures.verified) != 1 {
		t.Errorf("verified checksums = %v, signatures = %v", mocks.checksums.verified, mocks.signatures.verified)
	}
	if len(mocks.assembler.reqs) != 1 || mocks.assembler.reqs[0].OutputDir != paths.Runtime {
		t.Errorf("assemble requests = %+v", mocks.assembler.reqs)
	}

	if len(mocks.images.reqs) != 1 {
		t.Fatalf("expected one app image build, got %d", len(mocks.images.reqs))
	}
	req := mocks.images.reqs[0]
	if req.RuntimeDir != paths.Runtime || req.OutputDir != paths.Image {
		t.Errorf("app image request = %+v", req)
	}
	if !strings.Contains(req.Launcher, "Linux_x64") {
		t.Errorf("Launcher = %s, want the Linux_x64 launcher", req.Launcher)
	}

	wantFixed := filepath.Join(paths.Image, "astroimagej")
	if len(mocks.metadata.fixed) != 1 || mocks.metadata.fixed[0] != wantFixed {
		t.Errorf("metadata fixed = %v, want [%s]", mocks.metadata.fixed, wantFixed)
	}

	if len(res.Artifacts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(res.Artifacts))
	}
	a := res.Artifacts[0]
	if a.Type != entities.ArtifactArchive || filepath.Base(a.Path) != "AstroImageJ-6.0.0.00.tgz" {
		t.Errorf("artifact = %+v", a)
	}
	if a.Platform != "linux-x64" || a.Version != "6.0.0.00" {
		t.Errorf("artifact platform/version = %s/%s", a.Platform, a.Version)
	}
	if len(mocks.signer.calls) != 0 || len(mocks.notarizer.dirs) != 0 {
		t.Error("linux target should not be signed or notarized")
	}
}

func TestBuildOrchestrator_Crossbuild_Prebuilt(t *testing.T) {
	def := testDefinition(t)
	def.Packaging.Crossbuild = true
	target := def.Targets["linux"]
	paths := PathsFor(def, target)
	if err := os.MkdirAll(filepath.Join(paths.Prebuilt, "astroimagej"), 0750); err != nil {
		t.Fatal(err)
	}

	// prebuilt images need no runtime, even an incomplete one
	mocks := newBuildMocks(map[string]*entities.RuntimeDescriptor{"linux": entities.NewRuntimeDescriptor(target)})
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSLinux, JDKHome: "/jdk"})

	summary, err := orch.Build(context.Background(), "6.0.0.03", []string{"linux"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := summary.Results[0].ImageDir; got != paths.Prebuilt {
		t.Errorf("ImageDir = %s, want %s", got, paths.Prebuilt)
	}
	if len(mocks.downloader.downloaded) != 0 || len(mocks.images.reqs) != 0 {
		t.Error("prebuilt image should skip download and app image build")
	}
	if len(mocks.metadata.fixed) != 1 {
		t.Errorf("expected metadata fix on prebuilt image, got %v", mocks.metadata.fixed)
	}
	if len(mocks.packager.archives) != 1 || mocks.packager.archives[0] != paths.Prebuilt {
		t.Errorf("archived = %v, want [%s]", mocks.packager.archives, paths.Prebuilt)
	}
}

func TestBuildOrchestrator_Crossbuild_RequiresJDKHome(t *testing.T) {
	def := testDefinition(t)
	def.Packaging.Crossbuild = true
	mocks := newBuildMocks(descriptorsFor(def))
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSLinux})

	summary, err := orch.Build(context.Background(), "", []string{"linux"})
	if err == nil {
		t.Fatal("expected error without JAVA_HOME")
	}
	if !errors.Is(summary.Results[0].Error, entities.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", summary.Results[0].Error)
	}
}

func TestBuildOrchestrator_HostMismatchIsSkipped(t *testing.T) {
	def := testDefinition(t)
	mocks := newBuildMocks(descriptorsFor(def))
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSLinux})

	summary, err := orch.Build(context.Background(), "", []string{"mac", "linux"})
	if err != nil {
		t.Fatalf("Build() error = %v (skipped targets must not fail the build)", err)
	}

	var mac, linux *TargetResult
	for _, r := range summary.Results {
		switch r.Target.ID {
		case "mac":
			mac = r
		case "linux":
			linux = r
		}
	}
	if mac == nil || !mac.Skipped || !errors.Is(mac.Error, ErrTargetSkipped) {
		t.Errorf("mac result = %+v, want skipped", mac)
	}
	if linux == nil || !linux.Success() {
		t.Errorf("linux result = %+v, want success", linux)
	}
	if !strings.Contains(mac.GetBuildSummary(), "skipped") {
		t.Errorf("summary = %q", mac.GetBuildSummary())
	}

	// the jpackage path builds the app image and then swaps in the native launcher
	if len(mocks.packager.specs) != 1 || mocks.packager.specs[0].Type != services.InstallerAppImage {
		t.Fatalf("jpackage specs = %+v", mocks.packager.specs)
	}
	if len(mocks.packager.launchers) != 1 || !strings.Contains(mocks.packager.launchers[0], "Linux_x64") {
		t.Errorf("launchers = %v", mocks.packager.launchers)
	}
}

func TestBuildOrchestrator_NonReleaseVersionIsSkipped(t *testing.T) {
	def := testDefinition(t)
	mocks := newBuildMocks(descriptorsFor(def))
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSLinux})

	summary, err := orch.Build(context.Background(), "6.0.0.01", []string{"linux"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !summary.Results[0].Skipped {
		t.Errorf("expected daily build to be skipped, got %+v", summary.Results[0])
	}
	if len(mocks.downloader.downloaded) != 0 {
		t.Error("skipped target should not download a runtime")
	}
}

func TestBuildOrchestrator_MacSignedRelease(t *testing.T) {
	def := testDefinition(t)
	def.Mac.SignAndNotarize = true
	def.Mac.VolumeName = "AstroImageJ 6"
	mocks := newBuildMocks(descriptorsFor(def))
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{
		HostOS:          entities.OSMac,
		SigningIdentity: "Developer ID Application: AIJ (TEAM)",
	})

	summary, err := orch.Build(context.Background(), "6.0.0.00", []string{"mac"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	res := summary.Results[0]
	if !res.Success() {
		t.Fatalf("result = %+v", res)
	}

	if len(mocks.packager.specs) != 2 {
		t.Fatalf("expected app image and dmg jpackage runs, got %d", len(mocks.packager.specs))
	}
	image, dmg := mocks.packager.specs[0], mocks.packager.specs[1]
	if image.Type != services.InstallerAppImage || image.MacSignID == "" {
		t.Errorf("app image spec = %+v", image)
	}
	if dmg.Type != services.InstallerDMG || dmg.MacSignID != "Developer ID Application: AIJ (TEAM)" {
		t.Errorf("dmg spec = %+v", dmg)
	}
	if !strings.HasSuffix(dmg.AppImage, "AstroImageJ.app") {
		t.Errorf("dmg AppImage = %s, want the .app bundle", dmg.AppImage)
	}
	if len(dmg.Associations) != 0 {
		t.Errorf("dmg should carry no file associations, got %v", dmg.Associations)
	}

	if len(mocks.signer.calls) != 1 {
		t.Fatalf("expected one bundle signing, got %d", len(mocks.signer.calls))
	}
	opts := mocks.signer.calls[0]
	if opts.Prefix != "com.astroimagej.AstroImageJ." || opts.Entitlements != "entitlements.plist" {
		t.Errorf("sign options = %+v", opts)
	}
	if res.Signatures != 12 {
		t.Errorf("Signatures = %d, want 12", res.Signatures)
	}

	if len(mocks.notarizer.profs) != 1 || mocks.notarizer.profs[0] != "AC_PASSWORD" {
		t.Errorf("notarize profiles = %v", mocks.notarizer.profs)
	}
	if res.Notarized == "" {
		t.Error("expected notarized dmg path")
	}
	if len(mocks.volumes.renamed) != 1 || mocks.volumes.renamed[0] != "AstroImageJ 6" {
		t.Errorf("renamed volumes = %v", mocks.volumes.renamed)
	}
}

func TestBuildOrchestrator_MacUnsignedWithoutIdentity(t *testing.T) {
	def := testDefinition(t)
	def.Mac.SignAndNotarize = true
	mocks := newBuildMocks(descriptorsFor(def))
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSMac})

	if _, err := orch.Build(context.Background(), "", []string{"mac"}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(mocks.signer.calls) != 0 || len(mocks.notarizer.dirs) != 0 {
		t.Error("no identity: nothing should be signed or notarized")
	}
	if len(mocks.volumes.renamed) != 0 {
		t.Error("volume name equals app name, no rename expected")
	}
}

func TestBuildOrchestrator_WindowsInstaller(t *testing.T) {
	def := testDefinition(t)
	mocks := newBuildMocks(descriptorsFor(def))
	mocks.packager.associations = []string{"/assoc/fits.properties"}
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSWindows})

	if _, err := orch.Build(context.Background(), "", []string{"windows"}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	msi := mocks.packager.specs[len(mocks.packager.specs)-1]
	if msi.Type != services.InstallerMSI {
		t.Fatalf("Type = %s, want msi", msi.Type)
	}
	if msi.UpgradeUUID != def.Packaging.UpgradeUUID || len(msi.Associations) != 1 {
		t.Errorf("msi spec = %+v", msi)
	}
}

func TestBuildOrchestrator_SkipInstaller(t *testing.T) {
	def := testDefinition(t)
	def.Packaging.Crossbuild = true
	mocks := newBuildMocks(descriptorsFor(def))
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSLinux, JDKHome: "/jdk", SkipInstaller: true})

	summary, err := orch.Build(context.Background(), "", []string{"linux"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(summary.Results[0].Artifacts) != 0 || len(mocks.packager.archives) != 0 {
		t.Error("SkipInstaller should stop after the app image")
	}
}

func TestBuildOrchestrator_FailureContinues(t *testing.T) {
	def := testDefinition(t)
	def.Packaging.Crossbuild = true
	descs := descriptorsFor(def)
	descs["windows"] = entities.NewRuntimeDescriptor(def.Targets["windows"])
	mocks := newBuildMocks(descs)
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSLinux, JDKHome: "/jdk", SkipInstaller: true})

	summary, err := orch.Build(context.Background(), "", []string{"windows", "linux"})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 targets failed") {
		t.Fatalf("Build() error = %v, want 1 of 2 failed", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected both targets attempted, got %d", len(summary.Results))
	}
	failed := summary.Failed()
	if len(failed) != 1 || failed[0].Target.ID != "windows" {
		t.Fatalf("failed = %+v", failed)
	}
	if !errors.Is(failed[0].Error, entities.ErrIncompleteRuntime) {
		t.Errorf("error = %v, want ErrIncompleteRuntime", failed[0].Error)
	}
}

func TestBuildOrchestrator_VerificationFailureStopsAssembly(t *testing.T) {
	def := testDefinition(t)
	def.Packaging.Crossbuild = true
	mocks := newBuildMocks(descriptorsFor(def))
	mocks.checksums.err = entities.ErrChecksumMismatch
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSLinux, JDKHome: "/jdk"})

	summary, _ := orch.Build(context.Background(), "", []string{"linux"})
	if !errors.Is(summary.Results[0].Error, entities.ErrChecksumMismatch) {
		t.Errorf("error = %v, want ErrChecksumMismatch", summary.Results[0].Error)
	}
	if len(mocks.assembler.reqs) != 0 {
		t.Error("runtime must not be assembled after failed verification")
	}
	if len(mocks.signatures.imports) != 0 {
		t.Error("signatures are checked only after every checksum passed")
	}
}

func TestBuildOrchestrator_AppImageFailureReportsStage(t *testing.T) {
	def := testDefinition(t)
	def.Packaging.Crossbuild = true
	mocks := newBuildMocks(descriptorsFor(def))
	mocks.images.err = errors.New("disk full")
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSLinux, JDKHome: "/jdk"})

	summary, _ := orch.Build(context.Background(), "", []string{"linux"})
	if err := summary.Results[0].Error; err == nil || !strings.Contains(err.Error(), "runtime copied") {
		t.Errorf("error = %v, want stage in message", err)
	}
}

func TestBuildOrchestrator_UnknownTarget(t *testing.T) {
	def := testDefinition(t)
	orch := newBuildMocks(nil).orchestrator(def, BuildOrchestratorConfig{})

	if _, err := orch.Build(context.Background(), "", []string{"solaris"}); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Build() error = %v, want ErrValidation", err)
	}
}

func TestPathsFor(t *testing.T) {
	def := &entities.BuildDefinition{
		Runtime:   entities.RuntimeDefinition{CacheDir: "jres"},
		Packaging: entities.PackagingDefinition{OutputDir: "build/distributions", PrebuiltImagesDir: "images"},
	}
	target := entities.Target{ID: "armMac", OS: entities.OSMac, Arch: entities.ArchAArch64}

	got := PathsFor(def, target)
	want := TargetPaths{
		Download:  filepath.Join("jres", "Mac_aarch64"),
		Scratch:   filepath.Join("build/distributions", "jdks", "Mac_aarch64"),
		Runtime:   filepath.Join("build/distributions", "runtimes", "Mac_aarch64"),
		Image:     filepath.Join("build/distributions", "images", "Mac_aarch64"),
		Prebuilt:  filepath.Join("images", "Mac_aarch64"),
		Installer: filepath.Join("build/distributions", "Mac_aarch64"),
	}
	if got != want {
		t.Errorf("PathsFor() = %+v, want %+v", got, want)
	}
}

func TestBuildOrchestrator_SkipSigning(t *testing.T) {
	def := testDefinition(t)
	def.Mac.SignAndNotarize = true
	mocks := newBuildMocks(descriptorsFor(def))
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{
		HostOS:          entities.OSMac,
		SigningIdentity: "Developer ID Application: AIJ (TEAM)",
		SkipSigning:     true,
	})

	if _, err := orch.Build(context.Background(), "", []string{"mac"}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(mocks.signer.calls) != 0 || len(mocks.notarizer.dirs) != 0 {
		t.Error("SkipSigning should disable signing and notarization")
	}
	if dmg := mocks.packager.specs[len(mocks.packager.specs)-1]; dmg.MacSignID != "" {
		t.Errorf("dmg MacSignID = %q, want empty", dmg.MacSignID)
	}
}

func TestBuildOrchestrator_SignImage(t *testing.T) {
	def := testDefinition(t)
	mac := def.Targets["mac"]

	tests := []struct {
		name     string
		host     entities.OperatingSystem
		identity string
		target   entities.Target
		wantErr  error
	}{
		{"linux host", entities.OSLinux, "Dev", mac, ErrTargetSkipped},
		{"windows target", entities.OSMac, "Dev", def.Targets["windows"], ErrTargetSkipped},
		{"no identity", entities.OSMac, "", mac, entities.ErrValidation},
		{"signed", entities.OSMac, "Dev", mac, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := newBuildMocks(nil)
			orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: tt.host, SigningIdentity: tt.identity})

			n, err := orch.SignImage(context.Background(), def, tt.target, "/img")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SignImage() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (n != 12 || mocks.signer.calls[0].Identity != "Dev") {
				t.Errorf("SignImage() = %d, calls = %+v", n, mocks.signer.calls)
			}
		})
	}
}

func TestBuildOrchestrator_NotarizeInstaller(t *testing.T) {
	def := testDefinition(t)
	mocks := newBuildMocks(nil)
	orch := mocks.orchestrator(def, BuildOrchestratorConfig{HostOS: entities.OSMac})

	dmg, err := orch.NotarizeInstaller(context.Background(), def, def.Targets["mac"])
	if err != nil {
		t.Fatalf("NotarizeInstaller() error = %v", err)
	}
	if want := PathsFor(def, def.Targets["mac"]).Installer; mocks.notarizer.dirs[0] != want || !strings.HasPrefix(dmg, want) {
		t.Errorf("notarized %s in %v, want dir %s", dmg, mocks.notarizer.dirs, want)
	}

	mocks.notarizer.err = entities.ErrToolFailed
	if _, err := orch.NotarizeInstaller(context.Background(), def, def.Targets["mac"]); !errors.Is(err, entities.ErrToolFailed) {
		t.Errorf("NotarizeInstaller() error = %v, want ErrToolFailed", err)
	}
}
