package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	adapters "github.com/astroimagej/aijpack/internal/domain-adapters/gateways"
	orchestrators "github.com/astroimagej/aijpack/internal/domain-orchestrators"
	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
	prompts "github.com/astroimagej/aijpack/internal/domain/interfaces/services"
	"github.com/astroimagej/aijpack/internal/external-adapters/charmlog"
	"github.com/astroimagej/aijpack/internal/external-adapters/cosign"
	"github.com/astroimagej/aijpack/internal/external-adapters/prompt"
	"github.com/astroimagej/aijpack/internal/external-adapters/schema"
	"github.com/astroimagej/aijpack/internal/external-adapters/yaml"
)

// Environment variables read by the CLI
const (
	envSigningIdentity = "DeveloperId"
	envGitHubToken     = "GITHUB_TOKEN"
	envJavaHome        = "JAVA_HOME"
	envCrossbuild      = "CROSSBUILD_APP_IMAGE"
)

// app carries global flags and builds the adapters each command needs
type app struct {
	configPath string
	logLevel   string
	dotEnv     string

	hostOS   entities.OperatingSystem
	getenv   func(string) string
	logger   *charmlog.Logger
	defRepo  *yaml.DefinitionRepository
	runner   gateways.CommandRunner
	prompter prompts.ReleasePrompter
}

func newApp() *app {
	return &app{
		dotEnv: dotEnvFile,
		hostOS: adapters.HostOS(),
		getenv: os.Getenv,
	}
}

func (a *app) init(logOut io.Writer) error {
	if err := loadDotEnv(a.dotEnv); err != nil {
		return err
	}
	a.logger = charmlog.NewWithWriter(logOut, charmlog.ResolveLevel(a.logLevel))
	a.defRepo = yaml.NewDefinitionRepository(a.configPath)
	if a.runner == nil {
		a.runner = adapters.NewCommandRunner(a.logger)
	}
	if a.prompter == nil {
		a.prompter = prompt.NewSurveyPrompter()
	}
	return nil
}

func (a *app) definition(ctx context.Context) (*entities.BuildDefinition, error) {
	def, err := a.defRepo.GetDefinition(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", a.defRepo.Path(), err)
	}
	// the repository caches the definition, so the override is seen by every orchestrator
	if v := a.getenv(envCrossbuild); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a boolean", entities.ErrValidation, envCrossbuild, v)
		}
		def.Packaging.Crossbuild = on
	}
	return def, nil
}

func (a *app) verifier(def *entities.BuildDefinition) *orchestrators.VerificationOrchestrator {
	return orchestrators.NewVerificationOrchestrator(
		adapters.NewChecksumVerifier(),
		adapters.NewGPGVerifier(def.Runtime.Keyserver),
		def.Runtime.KeyID,
		a.logger,
	)
}

func (a *app) resolver(def *entities.BuildDefinition) gateways.RuntimeResolver {
	return adapters.NewCachedRuntimeResolver(
		adapters.NewAdoptiumGateway(def.Runtime.APIURL, a.logger),
		def.Runtime.CacheDir,
		a.logger,
	)
}

func (a *app) buildOrchestrator(ctx context.Context, config orchestrators.BuildOrchestratorConfig) (*orchestrators.BuildOrchestrator, *entities.BuildDefinition, error) {
	def, err := a.definition(ctx)
	if err != nil {
		return nil, nil, err
	}

	config.HostOS = a.hostOS
	if config.SigningIdentity == "" {
		config.SigningIdentity = a.getenv(envSigningIdentity)
	}
	if config.JDKHome == "" {
		config.JDKHome = a.getenv(envJavaHome)
	}

	orch := orchestrators.NewBuildOrchestrator(
		a.defRepo,
		a.verifier(def),
		orchestrators.BuildGateways{
			Resolver:   a.resolver(def),
			Downloader: adapters.NewDownloader(a.logger),
			Assembler:  adapters.NewRuntimeAssembler(a.runner, a.logger),
			Images:     adapters.NewAppImageBuilder(a.logger),
			Metadata:   adapters.NewJPackageMetadataFixer(),
			Signer:     adapters.NewMacSigner(a.runner, a.logger),
			Packager:   adapters.NewPackager(a.runner, a.logger),
			Notarizer:  adapters.NewNotarizer(a.runner, a.logger),
			Volumes:    adapters.NewDmgVolumeRenamer(a.runner, a.logger),
		},
		config,
		a.logger,
	)
	return orch, def, nil
}

func (a *app) releaseOrchestrator(ctx context.Context) (*orchestrators.ReleaseOrchestrator, *entities.BuildDefinition, error) {
	def, err := a.definition(ctx)
	if err != nil {
		return nil, nil, err
	}

	github := adapters.NewHTTPGitHubGateway(a.getenv(envGitHubToken), def.Release.APIURL).WithLogger(a.logger)
	orch := orchestrators.NewReleaseOrchestrator(
		a.defRepo,
		yaml.NewWorkflowInputRepository(def.Release.WorkflowFile),
		a.prompter,
		orchestrators.ReleaseGateways{
			Versions:  github,
			Workflows: github,
			Signer:    cosign.New(a.runner, a.logger),
			Checksums: adapters.NewChecksumVerifier(),
			Store:     adapters.NewJSONMetadataStore(),
			Validator: schema.NewValidator(),
		},
		a.logger,
	)
	return orch, def, nil
}

// selectTargets returns the named targets, or every configured target when none are named
func selectTargets(def *entities.BuildDefinition, ids []string) ([]entities.Target, error) {
	if len(ids) == 0 {
		ids = def.TargetIDs()
	}
	targets := make([]entities.Target, 0, len(ids))
	for _, id := range ids {
		t, ok := def.Targets[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown target %q (configured: %v)", entities.ErrValidation, id, def.TargetIDs())
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// singleTarget resolves the one target a per-target step operates on
func singleTarget(def *entities.BuildDefinition, id string) (entities.Target, error) {
	targets, err := selectTargets(def, []string{id})
	if err != nil {
		return entities.Target{}, err
	}
	return targets[0], nil
}
