// Package domaintest provides in-memory repositories for tests.
package domaintest

import (
	"context"
	"sort"
	"sync"

	"materials/internal/domain"
)

// Materials is an in-memory domain.MaterialRepository.
type Materials struct {
	mu        sync.Mutex
	rows      map[string]domain.Material
	CreateErr error
	DeleteErr error
}

func NewMaterials() *Materials {
	return &Materials{rows: make(map[string]domain.Material)}
}

func (m *Materials) Create(_ context.Context, material *domain.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.rows[material.ID] = *material
	return nil
}

func (m *Materials) GetByID(_ context.Context, id string) (*domain.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

func (m *Materials) List(_ context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Material
	for _, row := range m.rows {
		switch filter.Kind {
		case domain.ScopeNone:
			if row.ProjectID != nil {
				continue
			}
		case domain.ScopeProject:
			if row.ProjectID == nil || *row.ProjectID != filter.ProjectID {
				continue
			}
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Materials) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// Len returns the number of stored rows.
func (m *Materials) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Projects is an in-memory domain.ProjectRepository.
type Projects struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewProjects(ids ...string) *Projects {
	p := &Projects{ids: make(map[string]struct{})}
	for _, id := range ids {
		p.ids[id] = struct{}{}
	}
	return p
}

func (p *Projects) Exists(_ context.Context, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ids[id]
	return ok, nil
}

var (
	_ domain.MaterialRepository = (*Materials)(nil)
	_ domain.ProjectRepository  = (*Projects)(nil)
)
