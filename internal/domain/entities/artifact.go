// Package entities defines core domain models and data structures.
package entities

// ArtifactType tells what a build step produced
type ArtifactType string

// Artifact types produced by the build pipeline
const (
	ArtifactRuntime   ArtifactType = "runtime"
	ArtifactAppImage  ArtifactType = "app-image"
	ArtifactInstaller ArtifactType = "installer"
	ArtifactArchive   ArtifactType = "archive"
)

// Artifact is a file or directory produced for one target
type Artifact struct {
	Name     string
	Version  string
	Platform string
	Path     string
	Type     ArtifactType
}
