package filesource

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

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
		`INSERT INTO metadata (name, value) VALUES ('name', 'openmaptiles')`,
		`INSERT INTO metadata (name, value) VALUES ('format', 'pbf')`,
		`INSERT INTO metadata (name, value) VALUES ('minzoom', '0')`,
		`INSERT INTO metadata (name, value) VALUES ('maxzoom', '14')`,
		`INSERT INTO metadata (name, value) VALUES ('bounds', '-180,-85,180,85')`,
		// Starts with the gzip magic bytes; stands in for a real tile
		// payload since these tests only check the gzip signature, not
		// a full decode.
		`INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (0, 0, 0, X'1F8B0800000000000003')`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}
	return dbPath
}

func TestFetchTileFound(t *testing.T) {
	dir := t.TempDir()
	path := createTestArchive(t, dir, "test")

	ctx := context.Background()
	src, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	resp, err := src.FetchTile(ctx, path, 0, 0, 0)
	if err != nil {
		t.Fatalf("FetchTile: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected response error: %v", resp.Error)
	}
	if resp.NoContent {
		t.Fatal("expected tile data, got NoContent")
	}
	if !IsGzipped(resp.Data) {
		t.Error("expected gzipped tile payload")
	}
}

func TestFetchTileNoContent(t *testing.T) {
	dir := t.TempDir()
	path := createTestArchive(t, dir, "test")

	ctx := context.Background()
	src, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	resp, err := src.FetchTile(ctx, path, 5, 5, 5)
	if err != nil {
		t.Fatalf("FetchTile: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected response error: %v", resp.Error)
	}
	if !resp.NoContent {
		t.Error("expected NoContent for a missing tile")
	}
}

func TestFetchSourceProducesTileJSON(t *testing.T) {
	dir := t.TempDir()
	path := createTestArchive(t, dir, "test")

	ctx := context.Background()
	src, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	resp, err := src.FetchSource(ctx, path)
	if err != nil {
		t.Fatalf("FetchSource: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected response error: %v", resp.Error)
	}

	var doc map[string]any
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		t.Fatalf("unmarshal tilejson: %v", err)
	}
	if doc["tilejson"] != "2.0.0" {
		t.Errorf("tilejson = %v, want 2.0.0", doc["tilejson"])
	}
	if doc["name"] != "openmaptiles" {
		t.Errorf("name = %v, want openmaptiles", doc["name"])
	}
	if doc["format"] != "pbf" {
		t.Errorf("format = %v, want pbf", doc["format"])
	}
	if _, ok := doc["filesize"]; !ok {
		t.Error("expected filesize to be set")
	}
}

func TestFetchSourceUnknownFile(t *testing.T) {
	ctx := context.Background()
	src, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	resp, err := src.FetchSource(ctx, "/nonexistent/path.mbtiles")
	if err != nil {
		t.Fatalf("FetchSource: %v", err)
	}
	if resp.Error == nil {
		t.Error("expected a response-level error for a missing archive")
	}
}
