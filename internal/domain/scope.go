package domain

import "strings"

// ScopeKind enumerates the project selectors accepted by material endpoints.
type ScopeKind int

const (
	ScopeUnspecified ScopeKind = iota
	ScopeAll
	ScopeNone
	ScopeProject
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeAll:
		return "all"
	case ScopeNone:
		return "none"
	case ScopeProject:
		return "project"
	default:
		return "unspecified"
	}
}

// Scope selects which project's materials an operation reads or writes.
type Scope struct {
	Kind      ScopeKind
	ProjectID string
}

func AllScope() Scope { return Scope{Kind: ScopeAll} }

func NoneScope() Scope { return Scope{Kind: ScopeNone} }

func ProjectScope(id string) Scope { return Scope{Kind: ScopeProject, ProjectID: id} }

func UnspecifiedScope() Scope { return Scope{} }

// Filter converts the scope into the repository filter.
func (s Scope) Filter() MaterialFilter {
	return MaterialFilter{Kind: s.Kind, ProjectID: s.ProjectID}
}

// ScopePurpose names the operation a selector is parsed for.
type ScopePurpose int

const (
	ScopeForList ScopePurpose = iota
	ScopeForUpload
)

const (
	scopeAllLiteral  = "all"
	scopeNoneLiteral = "none"
)

// ParseScope maps a raw project_id selector onto a Scope and rejects the
// variants the purpose does not allow. Blank input is Unspecified.
//
// Listing accepts all, none and a project id. Uploading accepts an absent
// selector, none and a project id; all is a bad request.
func ParseScope(raw string, purpose ScopePurpose) (Scope, error) {
	raw = strings.TrimSpace(raw)
	var scope Scope
	switch raw {
	case "":
		scope = UnspecifiedScope()
	case scopeAllLiteral:
		scope = AllScope()
	case scopeNoneLiteral:
		scope = NoneScope()
	default:
		scope = ProjectScope(raw)
	}

	switch purpose {
	case ScopeForList:
		if scope.Kind == ScopeUnspecified {
			return Scope{}, InvalidInput("project_id is required", nil)
		}
	case ScopeForUpload:
		if scope.Kind == ScopeAll {
			return Scope{}, InvalidInput("project_id cannot be 'all' when uploading materials", nil)
		}
	}
	return scope, nil
}
