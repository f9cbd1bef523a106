package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer runs a SQL script. *pgxpool.Pool satisfies it.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schemaFiles returns the .sql files in dir sorted by name.
func schemaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		files = append(files, entry.Name())
	}
	slices.Sort(files)
	return files, nil
}

// bootstrapSchema executes every schema file in dir. The files only use
// IF NOT EXISTS statements, so running it against a live database is a no-op.
func bootstrapSchema(ctx context.Context, db execer, dir string) ([]string, error) {
	files, err := schemaFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no schema files in %s", dir)
	}

	for _, name := range files {
		contents, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(contents)); err != nil {
			return nil, fmt.Errorf("apply schema %s: %w", name, err)
		}
	}
	return files, nil
}

// seedFile maps a seed name such as "dev" to dev_seed.sql.
func seedFile(name string) string {
	if strings.HasSuffix(name, ".sql") {
		return name
	}
	return name + "_seed.sql"
}

func applySeed(ctx context.Context, db execer, dir, name string) (string, error) {
	file := seedFile(name)
	contents, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return "", fmt.Errorf("read seed %s: %w", file, err)
	}
	if _, err := db.Exec(ctx, string(contents)); err != nil {
		return "", fmt.Errorf("apply seed %s: %w", file, err)
	}
	return file, nil
}

// resolveDir anchors a relative directory at the working directory.
func resolveDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return filepath.Join(wd, dir), nil
}
