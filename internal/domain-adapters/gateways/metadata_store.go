package gateways

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// JSONMetadataStore implements gateways.MetadataStore with pretty-printed JSON files
type JSONMetadataStore struct{}

// NewJSONMetadataStore creates a metadata store
func NewJSONMetadataStore() *JSONMetadataStore {
	return &JSONMetadataStore{}
}

// LoadUpdateData reads updateData.json
func (s *JSONMetadataStore) LoadUpdateData(path string) (*entities.UpdateData, error) {
	var data entities.UpdateData
	if err := readJSON(path, &data); err != nil {
		return nil, err
	}
	if len(data.Files) == 0 {
		return nil, fmt.Errorf("%w: %s lists no files", entities.ErrValidation, path)
	}
	return &data, nil
}

// LoadVersions reads versions.json, or returns a fresh index when the file does not exist yet
func (s *JSONMetadataStore) LoadVersions(path string) (*entities.Versions, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &entities.Versions{MetaVersion: entities.CurrentMetaVersion, Versions: []entities.Version{}}, nil
	}
	var index entities.Versions
	if err := readJSON(path, &index); err != nil {
		return nil, err
	}
	if index.Versions == nil {
		index.Versions = []entities.Version{}
	}
	return &index, nil
}

// WriteVersions writes versions.json
func (s *JSONMetadataStore) WriteVersions(path string, index *entities.Versions) error {
	return writeJSON(path, index)
}

// WriteSpecificVersion writes versions/<version>.json
func (s *JSONMetadataStore) WriteSpecificVersion(path string, doc *entities.SpecificVersion) error {
	return writeJSON(path, doc)
}

func readJSON(path string, v any) error {
	//nolint:gosec // G304: metadata paths come from the build definition
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	//nolint:gosec // G306: published metadata is world-readable
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
