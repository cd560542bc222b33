package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/db"
	"github.com/bairdservice/baird-backend/pkg/logger"
	"github.com/bairdservice/baird-backend/pkg/migrate"
)

const usage = "migration command: up|down|redo|status|version|create|validate"

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", "", "migrations directory on disk (default: embedded set; create/validate use "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(sourceDir(*dir), *name)
		if err != nil {
			exitf("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(sourceDir(*dir)); err != nil {
			exitf("migration validation failed:\n%v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		logg.Error(ctx, "failed to extract sql.DB", err)
		os.Exit(1)
	}

	var source fs.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}
	runner, err := migrate.NewRunner(sqlDB, source, os.Stdout)
	if err != nil {
		logg.Error(ctx, "failed to prepare migrations", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up", "down", "redo", "status":
		err = runner.Run(ctx, *cmd)
	case "version":
		if *version == "" {
			exitf("missing -version for version command")
		}
		err = runner.ToVersion(ctx, *version)
	default:
		exitf("unknown -cmd %q (%s)", *cmd, usage)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func sourceDir(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
