// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// DefinitionRepository gives access to the build definition and its targets
type DefinitionRepository interface {
	// GetDefinition loads the full build definition
	GetDefinition(ctx context.Context) (*entities.BuildDefinition, error)

	// GetTarget returns one target by id
	GetTarget(ctx context.Context, id string) (entities.Target, error)

	// ListTargets returns all targets in a stable order
	ListTargets(ctx context.Context) ([]entities.Target, error)
}

// WorkflowInputRepository reads workflow_dispatch inputs from a workflow file
type WorkflowInputRepository interface {
	GetWorkflowInputs(ctx context.Context) ([]entities.WorkflowInput, error)
}
