// Package schema validates generated release metadata against embedded JSON schemas.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://astroimagej.com/meta/schemas/"

// Document names a release metadata document kind
type Document string

// Document kinds
const (
	VersionIndex    Document = "versions.schema.json"
	SpecificVersion Document = "version.schema.json"
)

// Validator compiles the embedded schemas once and validates documents against them
type Validator struct {
	once    sync.Once
	schemas map[Document]*jsonschema.Schema
	err     error
}

// NewValidator creates a validator; schemas are compiled on first use
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) compile() {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	docs := []Document{VersionIndex, SpecificVersion}
	for _, d := range docs {
		raw, err := schemaFS.ReadFile("schemas/" + string(d))
		if err != nil {
			v.err = fmt.Errorf("failed to read schema %s: %w", d, err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			v.err = fmt.Errorf("failed to parse schema %s: %w", d, err)
			return
		}
		if err := c.AddResource(schemaBase+string(d), doc); err != nil {
			v.err = fmt.Errorf("failed to add schema %s: %w", d, err)
			return
		}
	}

	v.schemas = make(map[Document]*jsonschema.Schema, len(docs))
	for _, d := range docs {
		sch, err := c.Compile(schemaBase + string(d))
		if err != nil {
			v.err = fmt.Errorf("failed to compile schema %s: %w", d, err)
			return
		}
		v.schemas[d] = sch
	}
}

// ValidateJSON validates raw JSON bytes against the schema for kind
func (v *Validator) ValidateJSON(kind Document, data []byte) error {
	v.once.Do(v.compile)
	if v.err != nil {
		return v.err
	}

	sch, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("%w: unknown document kind %s", entities.ErrValidation, kind)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", entities.ErrValidation, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %s: %v", entities.ErrValidation, kind, err)
	}
	return nil
}

// ValidateVersions validates a version index
func (v *Validator) ValidateVersions(index *entities.Versions) error {
	return v.validateValue(VersionIndex, index)
}

// ValidateSpecificVersion validates a per-version document
func (v *Validator) ValidateSpecificVersion(doc *entities.SpecificVersion) error {
	return v.validateValue(SpecificVersion, doc)
}

func (v *Validator) validateValue(kind Document, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	return v.ValidateJSON(kind, data)
}
