package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListMigrations_OrdersAndFilters(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"010_add_index.sql",
		"002_reminders.sql",
		"001_initial_schema.sql",
		"README.md",
		"000_zero.sql",
		"abc_bad.sql",
		"nounderscore.sql",
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := listMigrations(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("expected %d migrations, got %d: %+v", len(want), len(got), got)
	}
	for i, v := range want {
		if got[i].version != v {
			t.Fatalf("expected version %d at %d, got %d", v, i, got[i].version)
		}
	}
}

func TestListMigrations_MissingDir(t *testing.T) {
	if _, err := listMigrations(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestRepositoryMigrationsParse(t *testing.T) {
	got, err := listMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 || got[0].version != 1 {
		t.Fatalf("expected 001 migration first, got %+v", got)
	}
}
