package domain

import "time"

// Material is a stored image asset. A nil ProjectID marks a global asset.
type Material struct {
	ID           string    `json:"id"`
	ProjectID    *string   `json:"project_id"`
	Filename     string    `json:"filename"`
	RelativePath string    `json:"relative_path"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsGlobal reports whether the material is not attached to any project.
func (m Material) IsGlobal() bool {
	return m.ProjectID == nil
}

// MaterialFilter narrows a material listing. Project is only consulted when
// Kind is ScopeProject.
type MaterialFilter struct {
	Kind      ScopeKind
	ProjectID string
}
