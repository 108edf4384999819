// Package yaml provides YAML-based build definition and workflow parsing.
package yaml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// Defaults applied when aij-build.yml leaves a field empty
const (
	DefaultKeyID           = "3B04D753C9050D9A5D343F39843C48A565F8F04B"
	DefaultUpgradeUUID     = "83f529ac-39a3-4fe7-9f97-e9f259321c26"
	DefaultRepository      = "AstroImageJ/AstroImageJ"
	DefaultWorkflowFile    = ".github/workflows/publish.yml"
	DefaultRef             = "master"
	DefaultVersionsURL     = "https://astroimagej.com/meta/versions.json"
	DefaultBaseMetaURL     = "https://astroimagej.com/meta"
	DefaultBaseArtifactURL = "https://github.com/AstroImageJ/astroimagej/releases/download"
	DefaultNotaryProfile   = "AC_PASSWORD"
)

// yamlDefinition represents the raw YAML structure
type yamlDefinition struct {
	App       yamlApp               `yaml:"app"`
	Runtime   yamlRuntime           `yaml:"runtime"`
	Targets   map[string]yamlTarget `yaml:"targets"`
	Packaging yamlPackaging         `yaml:"packaging"`
	Mac       yamlMac               `yaml:"mac"`
	Release   yamlRelease           `yaml:"release"`
}

type yamlApp struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	MainJar     string   `yaml:"main_jar"`
	MainClass   string   `yaml:"main_class"`
	Identifier  string   `yaml:"identifier"`
	AboutURL    string   `yaml:"about_url"`
	HelpURL     string   `yaml:"help_url"`
	UpdateURL   string   `yaml:"update_url"`
	LicenseFile string   `yaml:"license_file"`
	JavaOptions []string `yaml:"java_options"`
}

type yamlRuntime struct {
	JavaVersion int      `yaml:"java_version"`
	APIURL      string   `yaml:"api_url"`
	CacheDir    string   `yaml:"cache_dir"`
	KeyID       string   `yaml:"key_id"`
	Keyserver   string   `yaml:"keyserver"`
	JlinkArgs   []string `yaml:"jlink_args"`
	UseJmods    bool     `yaml:"use_jmods"`
}

type yamlTarget struct {
	OS    string `yaml:"os"`
	Arch  string `yaml:"arch"`
	Ext   string `yaml:"ext"`
	Type  string `yaml:"type"`
	Jmods bool   `yaml:"jmods"`
}

type yamlPackaging struct {
	InputDir          string `yaml:"input_dir"`
	AssetsDir         string `yaml:"assets_dir"`
	OutputDir         string `yaml:"output_dir"`
	UpgradeUUID       string `yaml:"upgrade_uuid"`
	Crossbuild        bool   `yaml:"crossbuild"`
	PrebuiltImagesDir string `yaml:"prebuilt_images_dir"`
}

type yamlMac struct {
	SignAndNotarize       bool   `yaml:"sign_and_notarize"`
	SigningIdentity       string `yaml:"signing_identity"`
	Keychain              string `yaml:"keychain"`
	Entitlements          string `yaml:"entitlements"`
	InheritedEntitlements string `yaml:"inherited_entitlements"`
	NotaryProfile         string `yaml:"notary_profile"`
	VolumeName            string `yaml:"volume_name"`
}

type yamlRelease struct {
	Repository      string `yaml:"repository"`
	WorkflowFile    string `yaml:"workflow_file"`
	Ref             string `yaml:"ref"`
	APIURL          string `yaml:"api_url"`
	VersionsURL     string `yaml:"versions_url"`
	MetaDir         string `yaml:"meta_dir"`
	BaseMetaURL     string `yaml:"base_meta_url"`
	BaseArtifactURL string `yaml:"base_artifact_url"`
	UpdateDataFile  string `yaml:"update_data_file"`
	ArtifactsDir    string `yaml:"artifacts_dir"`
	SignaturesDir   string `yaml:"signatures_dir"`
	MinJava         int    `yaml:"min_java"`
}

// defaultTargets are the platforms AstroImageJ ships for
var defaultTargets = map[string]yamlTarget{
	"mac":     {OS: "mac", Arch: "x64", Ext: "tar.gz", Type: "jdk"},
	"armMac":  {OS: "mac", Arch: "aarch64", Ext: "tar.gz", Type: "jdk"},
	"linux":   {OS: "linux", Arch: "x64", Ext: "tar.gz"},
	"windows": {OS: "windows", Arch: "x64", Ext: "zip"},
}

// DefinitionParser parses aij-build.yml files
type DefinitionParser struct{}

// NewDefinitionParser creates a new YAML parser
func NewDefinitionParser() *DefinitionParser {
	return &DefinitionParser{}
}

// ParseFile parses a build definition; relative paths resolve against the file's directory
func (p *DefinitionParser) ParseFile(filePath string) (*entities.BuildDefinition, error) {
	//nolint:gosec // G304: filePath is the build definition chosen by the operator
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data, filepath.Dir(filePath))
}

// Parse parses YAML bytes into a BuildDefinition. baseDir anchors relative paths.
func (p *DefinitionParser) Parse(data []byte, baseDir string) (*entities.BuildDefinition, error) {
	var raw yamlDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if raw.App.Name == "" {
		return nil, fmt.Errorf("%w: app.name is required", entities.ErrValidation)
	}
	if raw.App.MainJar == "" {
		return nil, fmt.Errorf("%w: app.main_jar is required", entities.ErrValidation)
	}
	if raw.Runtime.JavaVersion <= 0 {
		return nil, fmt.Errorf("%w: runtime.java_version must be a positive feature release", entities.ErrValidation)
	}

	resolve := func(path, fallback string) string {
		if path == "" {
			path = fallback
		}
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(baseDir, path)
	}

	targets, err := convertTargets(raw.Targets, raw.Runtime.UseJmods)
	if err != nil {
		return nil, err
	}

	packaging, err := convertPackaging(raw.Packaging, resolve)
	if err != nil {
		return nil, err
	}

	def := &entities.BuildDefinition{
		App:       convertApp(raw.App, resolve),
		Runtime:   convertRuntime(raw.Runtime, resolve),
		Targets:   targets,
		Packaging: packaging,
		Mac:       convertMac(raw.Mac, raw.App.Name, packaging.AssetsDir, resolve),
		Release:   convertRelease(raw.Release, resolve),
	}

	return def, nil
}

func convertApp(ya yamlApp, resolve func(string, string) string) entities.AppDefinition {
	return entities.AppDefinition{
		Name:        ya.Name,
		Version:     ya.Version,
		MainJar:     ya.MainJar,
		MainClass:   ya.MainClass,
		Identifier:  ya.Identifier,
		AboutURL:    ya.AboutURL,
		HelpURL:     ya.HelpURL,
		UpdateURL:   ya.UpdateURL,
		LicenseFile: resolve(ya.LicenseFile, ""),
		JavaOptions: ya.JavaOptions,
	}
}

func convertRuntime(yr yamlRuntime, resolve func(string, string) string) entities.RuntimeDefinition {
	keyID := strings.ToUpper(strings.ReplaceAll(yr.KeyID, " ", ""))
	if keyID == "" {
		keyID = DefaultKeyID
	}
	return entities.RuntimeDefinition{
		JavaVersion: yr.JavaVersion,
		APIURL:      yr.APIURL,
		CacheDir:    resolve(yr.CacheDir, "jres"),
		KeyID:       keyID,
		Keyserver:   yr.Keyserver,
		JlinkArgs:   yr.JlinkArgs,
		UseJmods:    yr.UseJmods,
	}
}

// useJmods switches every JDK target to linking from a jmods archive
func convertTargets(raw map[string]yamlTarget, useJmods bool) (map[string]entities.Target, error) {
	if len(raw) == 0 {
		raw = defaultTargets
	}

	targets := make(map[string]entities.Target, len(raw))
	for id, yt := range raw {
		targetOS, err := entities.ParseOperatingSystem(yt.OS)
		if err != nil {
			return nil, fmt.Errorf("%w: target %s: %v", entities.ErrValidation, id, err)
		}
		arch, err := entities.ParseArchitecture(yt.Arch)
		if err != nil {
			return nil, fmt.Errorf("%w: target %s: %v", entities.ErrValidation, id, err)
		}

		kind := entities.RuntimeJRE
		if yt.Type != "" {
			if kind, err = entities.ParseRuntimeKind(yt.Type); err != nil {
				return nil, fmt.Errorf("%w: target %s: %v", entities.ErrValidation, id, err)
			}
		}

		ext := strings.TrimPrefix(strings.ToLower(yt.Ext), ".")
		switch ext {
		case "":
			ext = "tar.gz"
			if targetOS == entities.OSWindows {
				ext = "zip"
			}
		case "tar.gz", "tgz", "zip":
		default:
			return nil, fmt.Errorf("%w: target %s: unsupported archive extension %q", entities.ErrValidation, id, yt.Ext)
		}

		targets[id] = entities.Target{ID: id, OS: targetOS, Arch: arch, Ext: ext, Kind: kind, Jmods: yt.Jmods || (useJmods && kind == entities.RuntimeJDK)}
	}
	return targets, nil
}

func convertPackaging(yp yamlPackaging, resolve func(string, string) string) (entities.PackagingDefinition, error) {
	upgrade := yp.UpgradeUUID
	if upgrade == "" {
		upgrade = DefaultUpgradeUUID
	}
	if _, err := uuid.Parse(upgrade); err != nil {
		return entities.PackagingDefinition{}, fmt.Errorf("%w: packaging.upgrade_uuid: %v", entities.ErrValidation, err)
	}

	return entities.PackagingDefinition{
		InputDir:          resolve(yp.InputDir, "build/commonFiles"),
		AssetsDir:         resolve(yp.AssetsDir, "packageFiles/assets"),
		OutputDir:         resolve(yp.OutputDir, "build/distributions"),
		UpgradeUUID:       upgrade,
		Crossbuild:        yp.Crossbuild,
		PrebuiltImagesDir: resolve(yp.PrebuiltImagesDir, "images"),
	}, nil
}

func convertMac(ym yamlMac, appName, assetsDir string, resolve func(string, string) string) entities.MacDefinition {
	profile := ym.NotaryProfile
	if profile == "" {
		profile = DefaultNotaryProfile
	}
	volume := ym.VolumeName
	if volume == "" {
		volume = appName
	}
	return entities.MacDefinition{
		SignAndNotarize:       ym.SignAndNotarize,
		SigningIdentity:       ym.SigningIdentity,
		Keychain:              ym.Keychain,
		Entitlements:          resolve(ym.Entitlements, filepath.Join(assetsDir, "mac", "entitlements.plist")),
		InheritedEntitlements: resolve(ym.InheritedEntitlements, ""),
		NotaryProfile:         profile,
		VolumeName:            volume,
	}
}

func convertRelease(yr yamlRelease, resolve func(string, string) string) entities.ReleaseDefinition {
	or := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	metaDir := resolve(yr.MetaDir, "website/public/meta")
	return entities.ReleaseDefinition{
		Repository:      or(yr.Repository, DefaultRepository),
		WorkflowFile:    resolve(yr.WorkflowFile, DefaultWorkflowFile),
		Ref:             or(yr.Ref, DefaultRef),
		APIURL:          yr.APIURL,
		VersionsURL:     or(yr.VersionsURL, DefaultVersionsURL),
		MetaDir:         metaDir,
		BaseMetaURL:     or(yr.BaseMetaURL, DefaultBaseMetaURL),
		BaseArtifactURL: or(yr.BaseArtifactURL, DefaultBaseArtifactURL),
		UpdateDataFile:  resolve(yr.UpdateDataFile, "packageFiles/assets/github/updateData.json"),
		ArtifactsDir:    resolve(yr.ArtifactsDir, "build/release"),
		SignaturesDir:   resolve(yr.SignaturesDir, filepath.Join(metaDir, "signatures")),
		MinJava:         yr.MinJava,
	}
}
