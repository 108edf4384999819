package entities

import "sort"

// BuildDefinition is the parsed aij-build.yml
type BuildDefinition struct {
	App       AppDefinition
	Runtime   RuntimeDefinition
	Targets   map[string]Target
	Packaging PackagingDefinition
	Mac       MacDefinition
	Release   ReleaseDefinition
}

// AppDefinition describes the application being packaged
type AppDefinition struct {
	Name        string
	Version     string
	MainJar     string
	MainClass   string
	Identifier  string // reverse-DNS id, also the codesign prefix
	AboutURL    string
	HelpURL     string
	UpdateURL   string
	LicenseFile string
	JavaOptions []string
}

// RuntimeDefinition controls how Java runtimes are fetched, verified and trimmed
type RuntimeDefinition struct {
	JavaVersion int
	APIURL      string
	CacheDir    string
	KeyID       string
	Keyserver   string
	JlinkArgs   []string
	UseJmods    bool // jlink from a separate jmods archive instead of the unpacked JDK's module list
}

// PackagingDefinition locates the inputs and outputs of the app image and installer steps
type PackagingDefinition struct {
	InputDir    string // application files copied into the app directory
	AssetsDir   string // per-OS resources, launchers and file associations
	OutputDir   string
	UpgradeUUID string // Windows MSI upgrade code
	// Crossbuild lays out app images directly instead of running jpackage on each host
	Crossbuild bool
	// PrebuiltImagesDir holds app images built elsewhere, one <SystemID> directory each
	PrebuiltImagesDir string
}

// MacDefinition holds macOS signing and notarization settings
type MacDefinition struct {
	SignAndNotarize       bool
	SigningIdentity       string
	Keychain              string
	Entitlements          string
	InheritedEntitlements string
	NotaryProfile         string
	VolumeName            string
}

// ReleaseDefinition holds release metadata and dispatch settings
type ReleaseDefinition struct {
	Repository      string // owner/name
	WorkflowFile    string
	Ref             string
	APIURL          string
	VersionsURL     string
	MetaDir         string // local checkout of the published meta directory
	BaseMetaURL     string
	BaseArtifactURL string
	UpdateDataFile  string
	ArtifactsDir    string
	SignaturesDir   string
	MinJava         int
}

// TargetIDs returns the configured target ids in a stable order
func (d *BuildDefinition) TargetIDs() []string {
	ids := make([]string, 0, len(d.Targets))
	for id := range d.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
