package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin

-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin

-- +goose StatementEnd
`

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// CreateSQLMigration writes an empty goose migration named
// <dir>/<YYYYMMDDHHMMSS>_<slug>.sql and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	return createAt(dir, name, time.Now().UTC())
}

func createAt(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migrations dir: %w", err)
	}

	target := filepath.Join(dir, now.Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if _, err := f.WriteString(migrationTemplate); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write migration: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close migration: %w", err)
	}
	return target, nil
}

func slugify(name string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(slug, "_")
}
