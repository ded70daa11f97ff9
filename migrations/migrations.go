// Package migrations embeds the SQL schema applied by cmd/migrate.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var files embed.FS

// Migration is a single schema file, applied in name order.
type Migration struct {
	Name string
	SQL  string
}

// All returns the embedded migrations sorted by file name.
func All() ([]Migration, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: name, SQL: string(data)})
	}
	return out, nil
}
