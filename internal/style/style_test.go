package style

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	"github.com/kartoza/tileserve/internal/config"
	"github.com/kartoza/tileserve/internal/filesource"
)

func setupCatalogFixture(t *testing.T) (*config.Config, afero.Fs) {
	t.Helper()
	fs := afero.NewOsFs()
	dir := t.TempDir()

	for _, sub := range []string{"styles", "fonts", "sprites", "icons", "mbtiles"} {
		if err := fs.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	styleJSON := `{
		"name": "Basic",
		"sources": {"openmaptiles": {"type": "vector", "url": "mbtiles://{openmaptiles}"}},
		"sprite": "sprite",
		"glyphs": "fonts/{fontstack}/{range}.pbf",
		"bounds": [-10, -10, 10, 10]
	}`
	if err := afero.WriteFile(fs, filepath.Join(dir, "styles", "basic.json"), []byte(styleJSON), 0o644); err != nil {
		t.Fatalf("write style: %v", err)
	}

	mbPath := filepath.Join(dir, "mbtiles", "openmaptiles.mbtiles")
	db, err := sql.Open("sqlite3", mbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE metadata (name TEXT, value TEXT)`,
		`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`,
		`INSERT INTO metadata (name, value) VALUES ('name', 'openmaptiles')`,
		`INSERT INTO metadata (name, value) VALUES ('format', 'pbf')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	db.Close()

	configJSON := `{
		"options": {"paths": {"root": "` + dir + `", "styles": "styles", "fonts": "fonts", "sprites": "sprites", "icons": "icons", "mbtiles": "mbtiles"}},
		"styles": {"basic": {"style": "basic.json", "serveRendered": true, "serveData": true}},
		"data": {"openmaptiles": {"mbtiles": "openmaptiles.mbtiles"}}
	}`
	configPath := filepath.Join(dir, "config.json")
	if err := afero.WriteFile(fs, configPath, []byte(configJSON), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(fs, configPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	return cfg, fs
}

func TestLoadAllStyleAndData(t *testing.T) {
	cfg, fs := setupCatalogFixture(t)
	ctx := context.Background()

	src, err := filesource.New(ctx)
	if err != nil {
		t.Fatalf("filesource.New: %v", err)
	}
	defer src.Close()

	cat, err := LoadAll(ctx, cfg, fs, src)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	if len(cat.Styles) != 1 {
		t.Fatalf("got %d styles, want 1", len(cat.Styles))
	}
	entry := cat.Styles["basic"]
	if entry == nil {
		t.Fatal("style 'basic' missing")
	}

	sources := entry.RawStyle["sources"].(map[string]any)
	src2 := sources["openmaptiles"].(map[string]any)
	if src2["url"] != "local://data/openmaptiles.json" {
		t.Errorf("source url = %v, want local://data/openmaptiles.json", src2["url"])
	}
	if entry.RawStyle["sprite"] != "local://styles/basic/sprite" {
		t.Errorf("sprite = %v", entry.RawStyle["sprite"])
	}
	if entry.SpritePath != "sprite" {
		t.Errorf("SpritePath = %q, want sprite", entry.SpritePath)
	}
	if entry.RawStyle["glyphs"] != "local://fonts/{fontstack}/{range}.pbf" {
		t.Errorf("glyphs = %v", entry.RawStyle["glyphs"])
	}

	center, ok := entry.TileJSON["center"].([]float64)
	if !ok || len(center) != 3 {
		t.Fatalf("center = %v, want derived 3-tuple", entry.TileJSON["center"])
	}
	if center[0] != 0 || center[1] != 0 {
		t.Errorf("center = %v, want lon=0 lat=0 (midpoint of bounds)", center)
	}

	if len(cat.Data) != 1 {
		t.Fatalf("got %d data entries, want 1", len(cat.Data))
	}
	de := cat.Data["openmaptiles"]
	if de.TileJSON["format"] != "pbf" {
		t.Errorf("data format = %v, want pbf", de.TileJSON["format"])
	}
	if de.TileJSON["tilejson"] != "2.0.0" {
		t.Errorf("data tilejson = %v, want 2.0.0", de.TileJSON["tilejson"])
	}
}

func TestResolveForRenderRewritesLocalURLs(t *testing.T) {
	cfg, fs := setupCatalogFixture(t)
	ctx := context.Background()

	src, err := filesource.New(ctx)
	if err != nil {
		t.Fatalf("filesource.New: %v", err)
	}
	defer src.Close()

	cat, err := LoadAll(ctx, cfg, fs, src)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	resolved := cat.ResolveForRender(cat.Styles["basic"])
	sources := resolved["sources"].(map[string]any)
	src2 := sources["openmaptiles"].(map[string]any)
	u, _ := src2["url"].(string)
	if u == "" || u == "local://data/openmaptiles.json" {
		t.Errorf("expected concrete mbtiles:// url, got %q", u)
	}
	if sprite, _ := resolved["sprite"].(string); sprite == "" || sprite == "local://styles/basic/sprite" {
		t.Errorf("expected concrete file:// sprite, got %q", sprite)
	}
}

func TestResolveForClientRewritesPublicURL(t *testing.T) {
	cfg, fs := setupCatalogFixture(t)
	ctx := context.Background()

	src, err := filesource.New(ctx)
	if err != nil {
		t.Fatalf("filesource.New: %v", err)
	}
	defer src.Close()

	cat, err := LoadAll(ctx, cfg, fs, src)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	resolved := cat.ResolveForClient(cat.Styles["basic"], "http://localhost:8080")
	sources := resolved["sources"].(map[string]any)
	src2 := sources["openmaptiles"].(map[string]any)
	if src2["url"] != "http://localhost:8080/data/openmaptiles.json" {
		t.Errorf("url = %v", src2["url"])
	}
}

func TestSpriteBytesCached(t *testing.T) {
	cfg, fs := setupCatalogFixture(t)
	if err := afero.WriteFile(fs, filepath.Join(cfg.Options.Paths.Sprites, "sprite.png"), []byte("fakepng"), 0o644); err != nil {
		t.Fatalf("write sprite: %v", err)
	}

	ctx := context.Background()
	src, err := filesource.New(ctx)
	if err != nil {
		t.Fatalf("filesource.New: %v", err)
	}
	defer src.Close()

	cat, err := LoadAll(ctx, cfg, fs, src)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	b, err := cat.SpriteBytes("sprite.png")
	if err != nil {
		t.Fatalf("SpriteBytes: %v", err)
	}
	if string(b) != "fakepng" {
		t.Errorf("SpriteBytes = %q", b)
	}

	b2, err := cat.SpriteBytes("sprite.png")
	if err != nil || string(b2) != "fakepng" {
		t.Errorf("cached SpriteBytes mismatch: %q, %v", b2, err)
	}
}

func TestInvalidStyleJSONDropsEntry(t *testing.T) {
	cfg, fs := setupCatalogFixture(t)
	if err := afero.WriteFile(fs, filepath.Join(cfg.Options.Paths.Styles, "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write broken style: %v", err)
	}
	cfg.Styles["broken"] = config.StyleConfig{Style: "broken.json"}
	cfg.StyleOrder = append(cfg.StyleOrder, "broken")

	ctx := context.Background()
	src, err := filesource.New(ctx)
	if err != nil {
		t.Fatalf("filesource.New: %v", err)
	}
	defer src.Close()

	cat, err := LoadAll(ctx, cfg, fs, src)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if _, ok := cat.Styles["broken"]; ok {
		t.Error("expected broken style to be dropped, not fatal")
	}
	if _, ok := cat.Styles["basic"]; !ok {
		t.Error("expected valid style to still load")
	}
}

func TestUnmarshalTileJSONKeepsJSONShape(t *testing.T) {
	// sanity: TileJSON values must round-trip through encoding/json as a
	// plain map since httpserver marshals it directly in responses.
	doc := map[string]any{"tilejson": "2.0.0", "minzoom": 0}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["tilejson"] != "2.0.0" {
		t.Errorf("tilejson = %v", out["tilejson"])
	}
}
