package entities

// ReleaseType classifies a published version for the updater
type ReleaseType string

// Release types
const (
	ReleaseTypeRelease    ReleaseType = "RELEASE"
	ReleaseTypePrerelease ReleaseType = "PRERELEASE"
)

// MetaVersion is the schema version of versions.json
type MetaVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// CurrentMetaVersion is written to newly created version indexes
var CurrentMetaVersion = MetaVersion{Major: 1, Minor: 0}

// Version is one entry of the public version index
type Version struct {
	Version     string      `json:"version"`
	URL         string      `json:"url"`
	Type        ReleaseType `json:"type"`
	ReleaseTime string      `json:"releaseTime,omitempty"`
	MaxJava     *int        `json:"maxJava,omitempty"`
	MinJava     *int        `json:"minJava,omitempty"`
}

// Versions is the public version index (versions.json). Newest entry first.
type Versions struct {
	MetaVersion MetaVersion `json:"metaVersion"`
	Versions    []Version   `json:"versions"`
}

// Contains reports whether a version string is already published
func (v *Versions) Contains(version string) bool {
	for _, entry := range v.Versions {
		if entry.Version == version {
			return true
		}
	}
	return false
}

// ReleaseArtifact is one downloadable file of a published version
type ReleaseArtifact struct {
	Name             string   `json:"name"`
	Destination      string   `json:"destination,omitempty"`
	URL              string   `json:"url"`
	SHA256           string   `json:"sha256"`
	OS               []string `json:"os,omitempty"`
	Arch             []string `json:"arch,omitempty"`
	RequiresElevator bool     `json:"requiresElevator,omitempty"`
	SignatureURL     string   `json:"signatureUrl"`
	SignatureSHA256  string   `json:"signatureSha256"`
}

// SpecificVersion is the per-version document (versions/<v>.json)
type SpecificVersion struct {
	Version   string            `json:"version"`
	Message   string            `json:"message,omitempty"`
	Artifacts []ReleaseArtifact `json:"artifacts"`
	LaunchArg []string          `json:"launchArg,omitempty"`
}

// UpdateData is the hand-maintained list of files shipped with each release
type UpdateData struct {
	MaxJava *int         `json:"maxJava,omitempty"`
	Files   []UpdateFile `json:"files"`
}

// UpdateFile names one shipped artifact and where the updater installs it
type UpdateFile struct {
	Artifact         string   `json:"artifact"`
	Destination      string   `json:"destination"`
	OS               []string `json:"os,omitempty"`
	Arch             []string `json:"arch,omitempty"`
	RequiresElevator bool     `json:"requiresElevator,omitempty"`
}

// WorkflowInputType is the declared type of a workflow_dispatch input
type WorkflowInputType string

// Workflow input types understood by the release prompt
const (
	InputTypeString  WorkflowInputType = "string"
	InputTypeBoolean WorkflowInputType = "boolean"
	InputTypeChoice  WorkflowInputType = "choice"
)

// WorkflowInput is one workflow_dispatch input of the release workflow
type WorkflowInput struct {
	Name        string
	Description string
	Required    bool
	Default     string
	Type        WorkflowInputType
	Options     []string
}

// WorkflowDispatch is the request that triggers the release workflow
type WorkflowDispatch struct {
	Repository   string
	WorkflowFile string
	Ref          string
	Inputs       map[string]string
}
