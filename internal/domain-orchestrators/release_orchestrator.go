package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/repositories"
	prompts "github.com/astroimagej/aijpack/internal/domain/interfaces/services"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// SignatureSuffix is appended to an asset name to form its Sigstore bundle name
const SignatureSuffix = ".sigstore.json"

// ReleaseGateways are the external collaborators of a release
type ReleaseGateways struct {
	Versions  gateways.VersionsSource
	Workflows gateways.WorkflowGateway
	Signer    gateways.AssetSigner
	Checksums gateways.ChecksumVerifier
	Store     gateways.MetadataStore
	Validator gateways.MetadataValidator
}

// ReleaseOrchestrator signs release assets, maintains the update metadata and
// triggers the release workflow
type ReleaseOrchestrator struct {
	defRepo  repositories.DefinitionRepository
	inputs   repositories.WorkflowInputRepository
	prompter prompts.ReleasePrompter
	gw       ReleaseGateways
	release  *services.ReleaseService
	logger   interfaces.Logger
}

// NewReleaseOrchestrator creates a new release orchestrator
func NewReleaseOrchestrator(
	defRepo repositories.DefinitionRepository,
	inputs repositories.WorkflowInputRepository,
	prompter prompts.ReleasePrompter,
	gw ReleaseGateways,
	logger interfaces.Logger,
) *ReleaseOrchestrator {
	return &ReleaseOrchestrator{
		defRepo:  defRepo,
		inputs:   inputs,
		prompter: prompter,
		gw:       gw,
		release:  services.NewReleaseService(),
		logger:   interfaces.OrNoOp(logger),
	}
}

// WithReleaseService replaces the release service, mainly to pin its clock in tests
func (o *ReleaseOrchestrator) WithReleaseService(s *services.ReleaseService) *ReleaseOrchestrator {
	o.release = s
	return o
}

// SignatureDir is where the bundles of one version are written
func SignatureDir(def *entities.BuildDefinition, version string) string {
	return filepath.Join(def.Release.SignaturesDir, version)
}

// SignAssets writes a Sigstore bundle for every file and returns the bundle paths
func (o *ReleaseOrchestrator) SignAssets(ctx context.Context, version string, files []string) ([]string, error) {
	if version == "" {
		return nil, fmt.Errorf("%w: version is required", entities.ErrValidation)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no assets to sign", entities.ErrMissingResource)
	}
	def, err := o.defRepo.GetDefinition(ctx)
	if err != nil {
		return nil, err
	}

	outDir := SignatureDir(def, version)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create signature directory: %w", err)
	}

	bundles := make([]string, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return bundles, err
		}
		bundle := filepath.Join(outDir, filepath.Base(file)+SignatureSuffix)
		if err := o.gw.Signer.SignBlob(ctx, file, bundle); err != nil {
			return bundles, fmt.Errorf("failed to sign %s: %w", filepath.Base(file), err)
		}
		o.logger.Info("Signed asset", interfaces.F("file", filepath.Base(file)), interfaces.F("bundle", bundle))
		bundles = append(bundles, bundle)
	}
	return bundles, nil
}

// MetadataResult reports what GenerateMetadata wrote
type MetadataResult struct {
	Version      string
	SpecificPath string
	IndexPath    string
	Artifacts    int
	IndexUpdated bool // false when the version was already listed
}

// GenerateMetadata writes versions/<version>.json and prepends the version to
// versions.json. Running it again for a listed version leaves the index untouched.
func (o *ReleaseOrchestrator) GenerateMetadata(ctx context.Context, version string) (*MetadataResult, error) {
	def, err := o.defRepo.GetDefinition(ctx)
	if err != nil {
		return nil, err
	}
	if version == "" {
		version = def.App.Version
	}
	if version == "" {
		return nil, fmt.Errorf("%w: version is required", entities.ErrValidation)
	}
	rel := def.Release

	updateData, err := o.gw.Store.LoadUpdateData(rel.UpdateDataFile)
	if err != nil {
		return nil, err
	}

	doc := &entities.SpecificVersion{Version: version, Artifacts: make([]entities.ReleaseArtifact, 0, len(updateData.Files))}
	sigDir := SignatureDir(def, version)
	for _, file := range updateData.Files {
		sum, err := o.digest(filepath.Join(rel.ArtifactsDir, file.Artifact))
		if err != nil {
			return nil, err
		}
		sigSum, err := o.digest(filepath.Join(sigDir, file.Artifact+SignatureSuffix))
		if err != nil {
			return nil, err
		}
		doc.Artifacts = append(doc.Artifacts, o.release.BuildArtifact(file, version, rel.BaseArtifactURL, rel.BaseMetaURL, sum, sigSum))
	}

	if err := o.gw.Validator.ValidateSpecificVersion(doc); err != nil {
		return nil, err
	}

	result := &MetadataResult{
		Version:      version,
		SpecificPath: filepath.Join(rel.MetaDir, "versions", version+".json"),
		IndexPath:    filepath.Join(rel.MetaDir, "versions.json"),
		Artifacts:    len(doc.Artifacts),
	}
	if err := o.gw.Store.WriteSpecificVersion(result.SpecificPath, doc); err != nil {
		return nil, err
	}

	index, err := o.gw.Store.LoadVersions(result.IndexPath)
	if err != nil {
		return nil, err
	}
	entry := o.release.BuildVersion(version, rel.BaseMetaURL, updateData.MaxJava, rel.MinJava)
	if !o.release.PrependVersion(index, entry) {
		o.logger.Info("Version already listed", interfaces.F("version", version))
		return result, nil
	}
	if err := o.gw.Validator.ValidateVersions(index); err != nil {
		return nil, err
	}
	if err := o.gw.Store.WriteVersions(result.IndexPath, index); err != nil {
		return nil, err
	}
	result.IndexUpdated = true

	o.logger.Info("Metadata generated",
		interfaces.F("version", version),
		interfaces.F("type", entry.Type),
		interfaces.F("artifacts", result.Artifacts))
	return result, nil
}

func (o *ReleaseOrchestrator) digest(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", entities.ErrMissingResource, path)
	}
	sum, err := o.gw.Checksums.CalculateChecksum(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", filepath.Base(path), err)
	}
	return sum, nil
}

// DispatchOptions controls a release dispatch
type DispatchOptions struct {
	DryRun bool
}

// DispatchResult describes the outcome of the release prompt
type DispatchResult struct {
	Dispatch   *entities.WorkflowDispatch
	Latest     string // newest published version when the prompt started
	Attempts   int
	Cancelled  bool
	Dispatched bool
	Duration   time.Duration
}

// Dispatch prompts for the release workflow inputs until they validate, then
// fires the workflow. Cancelling the prompt is not an error.
func (o *ReleaseOrchestrator) Dispatch(ctx context.Context, opts DispatchOptions) (*DispatchResult, error) {
	start := time.Now()
	def, err := o.defRepo.GetDefinition(ctx)
	if err != nil {
		return nil, err
	}
	rel := def.Release

	published, err := o.gw.Versions.FetchVersions(ctx, rel.VersionsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch published versions: %w", err)
	}
	declared, err := o.inputs.GetWorkflowInputs(ctx)
	if err != nil {
		return nil, err
	}
	declared = o.release.EnsureVersionInput(declared)

	result := &DispatchResult{Latest: o.release.LatestVersion(published)}
	o.logger.Info("Preparing release", interfaces.F("latest", result.Latest), interfaces.F("inputs", len(declared)))

	defaults := map[string]string{services.VersionInputName: result.Latest}
	var values map[string]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Attempts++

		values, err = o.prompter.AskInputs(declared, defaults)
		if errors.Is(err, prompts.ErrCancelled) {
			result.Cancelled = true
			result.Duration = time.Since(start)
			o.logger.Warn("Release cancelled")
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read release inputs: %w", err)
		}

		validation := o.release.ValidateInputs(declared, values, published)
		if validation.IsReady() {
			break
		}
		o.logger.Debug("Release inputs rejected", interfaces.F("status", validation.Status))
		o.prompter.ShowError(validation.Err())
		defaults = values
	}

	result.Dispatch = &entities.WorkflowDispatch{
		Repository:   rel.Repository,
		WorkflowFile: rel.WorkflowFile,
		Ref:          rel.Ref,
		Inputs:       values,
	}

	if opts.DryRun {
		o.logger.Info("Dry run, workflow not dispatched",
			interfaces.F("repository", rel.Repository),
			interfaces.F("workflow", filepath.Base(rel.WorkflowFile)),
			interfaces.F("ref", rel.Ref),
			interfaces.F("inputs", values))
		result.Duration = time.Since(start)
		return result, nil
	}

	if err := o.gw.Workflows.DispatchWorkflow(ctx, result.Dispatch); err != nil {
		return nil, fmt.Errorf("failed to dispatch release: %w", err)
	}
	result.Dispatched = true
	result.Duration = time.Since(start)

	o.logger.Info("Release workflow dispatched",
		interfaces.F("repository", rel.Repository),
		interfaces.F("version", values[services.VersionInputName]))
	return result, nil
}
