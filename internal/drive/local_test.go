package drive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalDirFetch(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.csv":      "House_ID,Bill_Amount,Month\n",
		"a.xlsx":     "not really xlsx",
		"notes.txt":  "skip me",
		"report.pdf": "skip me too",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := LocalDir{Dir: dir}.Fetch(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 spreadsheets, got %d", len(got))
	}
	// sorted by name, directories and other extensions skipped
	if got[0].Name != "a.xlsx" || got[1].Name != "b.csv" {
		t.Fatalf("unexpected order %v %v", got[0].Name, got[1].Name)
	}
	if string(got[1].Content) != files["b.csv"] {
		t.Fatalf("content mismatch: %q", got[1].Content)
	}
}

func TestLocalDirMissing(t *testing.T) {
	_, err := LocalDir{Dir: "/nonexistent/place"}.Fetch(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestIsSpreadsheet(t *testing.T) {
	for _, name := range []string{"a.xlsx", "B.XLS", "c.csv"} {
		if !IsSpreadsheet(name) {
			t.Fatalf("%s should be a spreadsheet", name)
		}
	}
	for _, name := range []string{"a.txt", "b.pdf", "noext"} {
		if IsSpreadsheet(name) {
			t.Fatalf("%s should not be a spreadsheet", name)
		}
	}
}
