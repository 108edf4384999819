package gateways

import "github.com/astroimagej/aijpack/internal/domain/entities"

// MetadataStore reads and writes the release metadata documents on disk
type MetadataStore interface {
	LoadUpdateData(path string) (*entities.UpdateData, error)

	// LoadVersions returns an empty index when path does not exist
	LoadVersions(path string) (*entities.Versions, error)

	WriteVersions(path string, index *entities.Versions) error
	WriteSpecificVersion(path string, doc *entities.SpecificVersion) error
}

// MetadataValidator checks generated documents before they are written
type MetadataValidator interface {
	ValidateVersions(index *entities.Versions) error
	ValidateSpecificVersion(doc *entities.SpecificVersion) error
}
