package mbtiles

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// createTestArchive creates a temporary MBTiles database for testing.
func createTestArchive(t *testing.T, dir, name string) string {
	t.Helper()

	dbPath := filepath.Join(dir, name+".mbtiles")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	defer db.Close()

	statements := []string{
		`CREATE TABLE metadata (name TEXT, value TEXT)`,
		`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`,
		`INSERT INTO metadata (name, value) VALUES ('name', 'test')`,
		`INSERT INTO metadata (name, value) VALUES ('format', 'pbf')`,
		`INSERT INTO metadata (name, value) VALUES ('minzoom', '0')`,
		`INSERT INTO metadata (name, value) VALUES ('maxzoom', '14')`,
		`INSERT INTO metadata (name, value) VALUES ('bounds', '-180,-85,180,85')`,
		`INSERT INTO metadata (name, value) VALUES ('center', '0,0,2')`,
		`INSERT INTO metadata (name, value) VALUES ('type', 'overlay')`,
		// z=0,x=0,y=0 in XYZ -> TMS row 0; payload is a bare 10-byte gzip header.
		`INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (0, 0, 0, X'1F8B0800000000000003')`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}

	return dbPath
}

func TestOpenAndTile(t *testing.T) {
	dir := t.TempDir()
	path := createTestArchive(t, dir, "test")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	data, ok, err := db.Tile(0, 0, 0)
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	if !ok {
		t.Fatal("expected tile to be present")
	}
	if len(data) == 0 {
		t.Error("expected non-empty tile data")
	}
}

func TestTileNotFound(t *testing.T) {
	dir := t.TempDir()
	path := createTestArchive(t, dir, "test")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	_, ok, err := db.Tile(10, 100, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no-content for a missing tile")
	}
}

func TestMetadata(t *testing.T) {
	dir := t.TempDir()
	path := createTestArchive(t, dir, "test")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	meta, err := db.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}

	if meta["format"] != "pbf" {
		t.Errorf("expected format 'pbf', got %q", meta["format"])
	}
	if meta["minzoom"] != "0" {
		t.Errorf("expected minzoom '0', got %q", meta["minzoom"])
	}
	if meta["maxzoom"] != "14" {
		t.Errorf("expected maxzoom '14', got %q", meta["maxzoom"])
	}
}

func TestOpenInvalidArchive(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "invalid.mbtiles")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	db.Exec("CREATE TABLE dummy (id INTEGER)")
	db.Close()

	if _, err := Open(dbPath); err == nil {
		t.Error("expected error opening archive without a tiles table")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/path/test.mbtiles"); err == nil {
		t.Error("expected error opening nonexistent archive")
	}
}
