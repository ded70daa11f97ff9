// Package sqllint checks that every SQL string constant starts with a
// "--sql <uuid>" marker and that no marker is used twice. infra.SQLRunner
// relies on both when it logs statements.
package sqllint

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

// Violation points at a constant that breaks the marker rules.
type Violation struct {
	File    string
	Name    string
	Line    int
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.File, v.Line, v.Message, v.Name)
}

type seenMarker struct {
	file string
	name string
}

// Lint walks targets (files or directories) and reports every violation.
// Test files, hidden directories and vendor trees are skipped.
func Lint(targets ...string) ([]Violation, error) {
	if len(targets) == 0 {
		targets = []string{"."}
	}
	l := &linter{seen: make(map[string]seenMarker)}
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := l.file(target); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			return l.file(path)
		})
		if err != nil {
			return nil, err
		}
	}
	return l.violations, nil
}

type linter struct {
	seen       map[string]seenMarker
	violations []Violation
}

func (l *linter) file(path string) error {
	if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
		return nil
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for _, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil || !sqlKeywordPattern.MatchString(raw) {
				continue
			}
			name := joinNames(vs.Names)
			line := fset.Position(bl.Pos()).Line
			m := uuidMarkerPattern.FindStringSubmatch(firstLine(raw))
			if m == nil {
				l.violations = append(l.violations, Violation{
					File: path, Line: line, Name: name,
					Message: "missing or invalid --sql <uuid> marker",
				})
				continue
			}
			if prev, dup := l.seen[m[1]]; dup {
				l.violations = append(l.violations, Violation{
					File: path, Line: line, Name: name,
					Message: fmt.Sprintf("marker %s already used by %s in %s", m[1], prev.name, prev.file),
				})
				continue
			}
			l.seen[m[1]] = seenMarker{file: path, name: name}
		}
		return true
	})
	return nil
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func joinNames(idents []*ast.Ident) string {
	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		if ident != nil {
			parts = append(parts, ident.Name)
		}
	}
	return strings.Join(parts, ",")
}
