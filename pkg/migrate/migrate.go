package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

// DefaultDir is where create and validate look for migration sources on disk.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the SQL migrations compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Runner applies goose migrations to Postgres under a session advisory lock,
// so api and cron-worker can both auto-migrate on boot.
type Runner struct {
	provider *goose.Provider
	out      io.Writer
}

// NewRunner builds a Runner over fsys. A nil fsys uses the embedded migrations
// and a nil out discards progress output.
func NewRunner(db *sql.DB, fsys fs.FS, out io.Writer) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		fsys = Migrations()
	}
	if out == nil {
		out = io.Discard
	}

	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("migration lock: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys, goose.WithSessionLocker(locker))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, out: out}, nil
}

// Up applies every pending embedded migration.
func Up(ctx context.Context, db *sql.DB) error {
	runner, err := NewRunner(db, nil, nil)
	if err != nil {
		return err
	}
	return runner.Run(ctx, "up")
}

// Run executes up, down, redo or status.
func (r *Runner) Run(ctx context.Context, command string) error {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		r.report(results...)
		return wrapGoose(command, err)
	case "down":
		result, err := r.provider.Down(ctx)
		r.report(result)
		return wrapGoose(command, err)
	case "redo":
		down, err := r.provider.Down(ctx)
		r.report(down)
		if err != nil {
			return wrapGoose(command, err)
		}
		up, err := r.provider.UpByOne(ctx)
		r.report(up)
		return wrapGoose(command, err)
	case "status":
		return r.status(ctx)
	default:
		return fmt.Errorf("unsupported migrate command %q", command)
	}
}

// ToVersion moves the schema up or down until it sits at target.
func (r *Runner) ToVersion(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}

	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil
	case current < version:
		results, err = r.provider.UpTo(ctx, version)
	default:
		results, err = r.provider.DownTo(ctx, version)
	}
	r.report(results...)
	return wrapGoose(fmt.Sprintf("to version %d", version), err)
}

func (r *Runner) status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return wrapGoose("status", err)
	}
	for _, st := range statuses {
		applied := "pending"
		if st.State == goose.StateApplied {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(r.out, "%d  %-48s %s\n", st.Source.Version, path.Base(st.Source.Path), applied)
	}
	return nil
}

func (r *Runner) report(results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fmt.Fprintf(r.out, "%-4s %s (%s)\n", res.Direction, path.Base(res.Source.Path), res.Duration.Round(time.Millisecond))
	}
}

func wrapGoose(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
