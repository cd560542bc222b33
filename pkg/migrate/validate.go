package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredMarkers = []string{"-- +goose Up", "-- +goose Down"}

// Validate checks naming, version uniqueness and goose markers for every .sql
// file at the root of fsys. All problems are reported together.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	versions := make(map[string]string, len(entries))
	var problems error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}

		match := migrationName.FindStringSubmatch(name)
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, dup := versions[match[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, match[1], prev))
			continue
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		for _, marker := range requiredMarkers {
			if !strings.Contains(string(body), marker) {
				problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, marker))
			}
		}
	}
	return problems
}

// ValidateDir runs Validate against a directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	return Validate(os.DirFS(dir))
}
