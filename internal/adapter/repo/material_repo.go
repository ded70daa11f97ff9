package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"materials/internal/domain"
	"materials/internal/infra"
	"materials/internal/sqlinline"
)

// MaterialRepositoryPG implements domain.MaterialRepository using PostgreSQL.
type MaterialRepositoryPG struct {
	sql infra.TxExecutor
}

// NewMaterialRepository constructs a new material repository instance.
func NewMaterialRepository(sql infra.TxExecutor) *MaterialRepositoryPG {
	return &MaterialRepositoryPG{sql: sql}
}

// Create inserts the row in its own transaction; any failure rolls it back.
func (r *MaterialRepositoryPG) Create(ctx context.Context, m *domain.Material) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sqlinline.QInsertMaterial, m.ID, m.ProjectID, m.Filename, m.RelativePath, m.URL, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert material: %w", err)
		}
		return nil
	})
}

// GetByID returns domain.ErrNotFound when no row matches.
func (r *MaterialRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectMaterialByID, id)
	var m domain.Material
	if err := row.Scan(&m.ID, &m.ProjectID, &m.Filename, &m.RelativePath, &m.URL, &m.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select material: %w", err)
	}
	return &m, nil
}

// List returns materials newest first.
func (r *MaterialRepositoryPG) List(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch filter.Kind {
	case domain.ScopeAll:
		rows, err = r.sql.Query(ctx, sqlinline.QListMaterialsAll)
	case domain.ScopeNone:
		rows, err = r.sql.Query(ctx, sqlinline.QListMaterialsUnscoped)
	case domain.ScopeProject:
		rows, err = r.sql.Query(ctx, sqlinline.QListMaterialsByProject, filter.ProjectID)
	default:
		return nil, fmt.Errorf("list materials: unsupported scope %s", filter.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	materials := make([]domain.Material, 0)
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Filename, &m.RelativePath, &m.URL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// Delete removes the row in its own transaction. A missing row is reported as
// domain.ErrNotFound and nothing is committed.
func (r *MaterialRepositoryPG) Delete(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sqlinline.QDeleteMaterial, id)
		if err != nil {
			return fmt.Errorf("delete material: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *MaterialRepositoryPG) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.sql.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ domain.MaterialRepository = (*MaterialRepositoryPG)(nil)
