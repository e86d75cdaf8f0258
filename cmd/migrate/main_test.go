package main

import (
	"os"
	"path/filepath"
	"testing"

	infra "github.com/zwickfi/zwickfi/internal/infra/bigquery"
)

func TestLoadMigrations(t *testing.T) {
	vars := infra.MigrationVars{Project: "p", MonarchSchema: "monarch_money"}

	embedded, err := loadMigrations("", vars)
	if err != nil {
		t.Fatalf("loadMigrations(embedded) error = %v", err)
	}
	if len(embedded) == 0 {
		t.Error("Expected embedded migrations")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0007_custom.sql"), []byte("SELECT '{{PROJECT_ID}}'"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := loadMigrations(dir, vars)
	if err != nil {
		t.Fatalf("loadMigrations(dir) error = %v", err)
	}
	if len(got) != 1 || got[0].Version != 7 || got[0].SQL != "SELECT 'p'" {
		t.Errorf("got %+v", got)
	}

	if _, err := loadMigrations(filepath.Join(dir, "missing"), vars); err == nil {
		t.Error("Expected error for missing directory")
	}
}
