package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "results.db")
	if err := os.WriteFile(db, make([]byte, 100), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(db+"-wal", make([]byte, 20), 0600); err != nil {
		t.Fatal(err)
	}

	n, err := DiskUsageBytes(SQLiteFiles(db)...)
	if err != nil {
		t.Fatal(err)
	}
	if n != 120 {
		t.Errorf("DiskUsageBytes = %d, want 120", n)
	}

	n, err = DiskUsageBytes(dir, "", filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 120 {
		t.Errorf("directory usage = %d, want 120", n)
	}
}

func TestSQLiteFiles_Empty(t *testing.T) {
	if SQLiteFiles("") != nil {
		t.Error("expected nil for empty path")
	}
}
