package yaml

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

type yamlWorkflowInput struct {
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	Default     any      `yaml:"default"`
	Type        string   `yaml:"type"`
	Options     []string `yaml:"options"`
}

// WorkflowInputRepository reads workflow_dispatch inputs from a GitHub Actions workflow file
type WorkflowInputRepository struct {
	path string
}

// NewWorkflowInputRepository creates a repository for the given workflow file
func NewWorkflowInputRepository(path string) *WorkflowInputRepository {
	return &WorkflowInputRepository{path: path}
}

// GetWorkflowInputs returns the declared inputs in file order
func (r *WorkflowInputRepository) GetWorkflowInputs(_ context.Context) ([]entities.WorkflowInput, error) {
	//nolint:gosec // G304: workflow path comes from the build definition
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", r.path, err)
	}
	return ParseWorkflowInputs(data)
}

// ParseWorkflowInputs extracts on.workflow_dispatch.inputs, keeping declaration order.
// A workflow without a workflow_dispatch trigger yields no inputs.
func ParseWorkflowInputs(data []byte) ([]entities.WorkflowInput, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	// "on" is a YAML 1.1 boolean, but yaml.v3 keeps it as a plain string key
	dispatch := lookup(lookup(doc.Content[0], "on"), "workflow_dispatch")
	inputs := lookup(dispatch, "inputs")
	if inputs == nil {
		return nil, nil
	}
	if inputs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: workflow_dispatch.inputs must be a mapping", entities.ErrValidation)
	}

	result := make([]entities.WorkflowInput, 0, len(inputs.Content)/2)
	for i := 0; i+1 < len(inputs.Content); i += 2 {
		name := inputs.Content[i].Value

		var raw yamlWorkflowInput
		if err := inputs.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode input %s: %w", name, err)
		}

		result = append(result, entities.WorkflowInput{
			Name:        name,
			Description: raw.Description,
			Required:    raw.Required,
			Default:     scalarString(raw.Default),
			Type:        inputType(raw.Type),
			Options:     raw.Options,
		})
	}
	return result, nil
}

func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func inputType(t string) entities.WorkflowInputType {
	switch entities.WorkflowInputType(t) {
	case entities.InputTypeBoolean:
		return entities.InputTypeBoolean
	case entities.InputTypeChoice:
		return entities.InputTypeChoice
	default:
		// environment and number inputs are entered as text
		return entities.InputTypeString
	}
}

func scalarString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
