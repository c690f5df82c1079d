package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCoreMigrationDocumentsReferenceFolders(t *testing.T) {
	migrationPath := filepath.Join("..", "..", "db", "migrations", "0001_core.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)

	expectedSnippets := []string{
		"CREATE TABLE IF NOT EXISTS areas",
		"CREATE TABLE IF NOT EXISTS folders",
		"CREATE TABLE IF NOT EXISTS documentos",
		"folder_id UUID NOT NULL REFERENCES folders(id)",
	}
	for _, snippet := range expectedSnippets {
		if !strings.Contains(sqlText, snippet) {
			t.Fatalf("expected migration to contain %q", snippet)
		}
	}
	if strings.Contains(sqlText, "ON DELETE CASCADE") {
		t.Fatalf("folder deletion must go through the application cascade so stored objects are removed too")
	}
}

func TestChecklistMigrationConstrainsAnswers(t *testing.T) {
	migrationPath := filepath.Join("..", "..", "db", "migrations", "0003_lista_chequeo.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)
	for _, snippet := range []string{"UNIQUE (contract_id, item_id)", "'CUMPLE'", "'NO_CUMPLE'", "'NO_APLICA'"} {
		if !strings.Contains(sqlText, snippet) {
			t.Fatalf("expected migration to contain %q", snippet)
		}
	}
}
