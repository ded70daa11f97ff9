package domain

import "context"

// MaterialRepository persists material metadata. Create and Delete each run
// in their own transaction.
type MaterialRepository interface {
	Create(ctx context.Context, material *Material) error
	GetByID(ctx context.Context, id string) (*Material, error)
	List(ctx context.Context, filter MaterialFilter) ([]Material, error)
	Delete(ctx context.Context, id string) error
}

// ProjectRepository only answers existence checks; projects are owned elsewhere.
type ProjectRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
}
