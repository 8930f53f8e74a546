package storage

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migration is one embedded SQL file; Version is the file name without extension.
type Migration struct {
	Version string
	SQL     string
}

// LoadMigrations reads every .sql file in dir, sorted by name.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	const op = "storage.LoadMigrations"

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: read migrations dir: %w", op, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	migrations := make([]Migration, 0, len(files))
	for _, fname := range files {
		b, err := fs.ReadFile(fsys, path.Join(dir, fname))
		if err != nil {
			return nil, fmt.Errorf("%s: read migration %s: %w", op, fname, err)
		}

		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(fname, path.Ext(fname)),
			SQL:     string(b),
		})
	}

	return migrations, nil
}
