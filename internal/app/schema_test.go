package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	scripts []string
	failOn  string
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if r.failOn != "" && strings.Contains(sql, r.failOn) {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	r.scripts = append(r.scripts, sql)
	return pgconn.CommandTag{}, nil
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestBootstrapSchemaRunsFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"0002_indexes.sql": "CREATE INDEX IF NOT EXISTS b",
		"0001_tables.sql":  "CREATE TABLE IF NOT EXISTS a",
		"README.md":        "not sql",
	})
	if err := os.Mkdir(filepath.Join(dir, "0003_nested.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	db := &recordingExecer{}
	files, err := bootstrapSchema(context.Background(), db, dir)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if diff := cmp.Diff([]string{"0001_tables.sql", "0002_indexes.sql"}, files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"CREATE TABLE IF NOT EXISTS a", "CREATE INDEX IF NOT EXISTS b"}, db.scripts); diff != "" {
		t.Fatalf("scripts mismatch (-want +got):\n%s", diff)
	}
}

func TestBootstrapSchemaFailures(t *testing.T) {
	ctx := context.Background()

	if _, err := bootstrapSchema(ctx, &recordingExecer{}, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if _, err := bootstrapSchema(ctx, &recordingExecer{}, t.TempDir()); err == nil {
		t.Fatal("expected error for empty directory")
	}

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"0001_ok.sql":  "CREATE TABLE IF NOT EXISTS a",
		"0002_bad.sql": "CREATE TABLE broken",
		"0003_ok.sql":  "CREATE TABLE IF NOT EXISTS c",
	})
	db := &recordingExecer{failOn: "broken"}
	_, err := bootstrapSchema(ctx, db, dir)
	if err == nil || !strings.Contains(err.Error(), "0002_bad.sql") {
		t.Fatalf("expected error naming the failing file, got %v", err)
	}
	if len(db.scripts) != 1 {
		t.Fatalf("expected files after the failure to be skipped, ran %d", len(db.scripts))
	}
}

func TestApplySeed(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"dev_seed.sql": "INSERT INTO users (id) VALUES ('alice')"})

	for _, name := range []string{"dev", "dev_seed.sql"} {
		db := &recordingExecer{}
		file, err := applySeed(context.Background(), db, dir, name)
		if err != nil {
			t.Fatalf("seed %q: %v", name, err)
		}
		if file != "dev_seed.sql" || len(db.scripts) != 1 {
			t.Fatalf("seed %q: unexpected result %q %v", name, file, db.scripts)
		}
	}

	if _, err := applySeed(context.Background(), &recordingExecer{}, dir, "prod"); err == nil {
		t.Fatal("expected error for unknown seed")
	}
}

func TestResolveDir(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "migrations")
	if got, err := resolveDir(abs); err != nil || got != abs {
		t.Fatalf("expected absolute dir unchanged, got %q %v", got, err)
	}
	got, err := resolveDir("migrations")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "migrations" {
		t.Fatalf("expected absolute path ending in migrations, got %q", got)
	}
}
