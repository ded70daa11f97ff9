package materials

import (
	"context"
	"fmt"

	"materials/internal/domain"
)

// Gateway answers scoped reads and resolves write targets against the
// material and project repositories.
type Gateway struct {
	materials domain.MaterialRepository
	projects  domain.ProjectRepository
}

func NewGateway(materials domain.MaterialRepository, projects domain.ProjectRepository) *Gateway {
	return &Gateway{materials: materials, projects: projects}
}

// List returns the materials selected by scope, newest first.
func (g *Gateway) List(ctx context.Context, scope domain.Scope) ([]domain.Material, error) {
	switch scope.Kind {
	case domain.ScopeAll, domain.ScopeNone:
	case domain.ScopeProject:
		if err := g.requireProject(ctx, scope.ProjectID); err != nil {
			return nil, err
		}
	default:
		return nil, domain.InvalidInput("project_id is required", nil)
	}

	rows, err := g.materials.List(ctx, scope.Filter())
	if err != nil {
		return nil, domain.Internal("failed to list materials", fmt.Errorf("list materials: %w", err))
	}
	if rows == nil {
		rows = []domain.Material{}
	}
	return rows, nil
}

// ResolveTarget maps an upload scope to the project id a new material belongs
// to. A nil result means the material is global.
func (g *Gateway) ResolveTarget(ctx context.Context, scope domain.Scope) (*string, error) {
	switch scope.Kind {
	case domain.ScopeUnspecified, domain.ScopeNone:
		return nil, nil
	case domain.ScopeProject:
		if err := g.requireProject(ctx, scope.ProjectID); err != nil {
			return nil, err
		}
		id := scope.ProjectID
		return &id, nil
	default:
		return nil, domain.InvalidInput("project_id cannot be 'all' when uploading materials", nil)
	}
}

func (g *Gateway) requireProject(ctx context.Context, id string) error {
	if id == "" {
		return domain.NotFound("Project not found", nil)
	}
	ok, err := g.projects.Exists(ctx, id)
	if err != nil {
		return domain.Internal("failed to look up project", fmt.Errorf("project exists: %w", err))
	}
	if !ok {
		return domain.NotFound("Project not found", nil)
	}
	return nil
}
