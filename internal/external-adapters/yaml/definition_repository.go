package yaml

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// DefaultDefinitionFile is looked up in the working directory when --config is not given
const DefaultDefinitionFile = "aij-build.yml"

// DefinitionRepository implements repositories.DefinitionRepository for a single aij-build.yml
type DefinitionRepository struct {
	path   string
	parser *DefinitionParser

	once sync.Once
	def  *entities.BuildDefinition
	err  error
}

// NewDefinitionRepository creates a repository backed by the given file
func NewDefinitionRepository(path string) *DefinitionRepository {
	if path == "" {
		path = DefaultDefinitionFile
	}
	return &DefinitionRepository{
		path:   path,
		parser: NewDefinitionParser(),
	}
}

// Path returns the definition file location
func (r *DefinitionRepository) Path() string {
	return r.path
}

// GetDefinition loads and caches the build definition
func (r *DefinitionRepository) GetDefinition(_ context.Context) (*entities.BuildDefinition, error) {
	r.once.Do(func() {
		if _, err := os.Stat(r.path); os.IsNotExist(err) {
			r.err = fmt.Errorf("%w: build definition not found: %s", entities.ErrMissingResource, r.path)
			return
		}
		r.def, r.err = r.parser.ParseFile(r.path)
	})
	return r.def, r.err
}

// GetTarget returns one target by id
func (r *DefinitionRepository) GetTarget(ctx context.Context, id string) (entities.Target, error) {
	def, err := r.GetDefinition(ctx)
	if err != nil {
		return entities.Target{}, err
	}

	target, ok := def.Targets[id]
	if !ok {
		return entities.Target{}, fmt.Errorf("%w: unknown target %q", entities.ErrValidation, id)
	}
	return target, nil
}

// ListTargets returns all targets sorted by id
func (r *DefinitionRepository) ListTargets(ctx context.Context) ([]entities.Target, error) {
	def, err := r.GetDefinition(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]entities.Target, 0, len(def.Targets))
	for _, id := range def.TargetIDs() {
		targets = append(targets, def.Targets[id])
	}
	return targets, nil
}
