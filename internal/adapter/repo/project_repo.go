package repo

import (
	"context"
	"fmt"

	"materials/internal/domain"
	"materials/internal/infra"
	"materials/internal/sqlinline"
)

// ProjectRepositoryPG answers project existence checks.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

func (r *ProjectRepositoryPG) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.sql.QueryRow(ctx, sqlinline.QProjectExists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check project: %w", err)
	}
	return exists, nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
