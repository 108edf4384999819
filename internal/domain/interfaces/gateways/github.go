// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// WorkflowGateway triggers GitHub Actions workflows
type WorkflowGateway interface {
	// DispatchWorkflow fires a workflow_dispatch event; success is HTTP 204
	DispatchWorkflow(ctx context.Context, dispatch *entities.WorkflowDispatch) error
}

// VersionsSource reads the published version index
type VersionsSource interface {
	// FetchVersions downloads and decodes versions.json
	FetchVersions(ctx context.Context, url string) (*entities.Versions, error)
}
