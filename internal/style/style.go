// Package style loads MapLibre style JSON and MBTiles-derived TileJSON
// documents at startup (§4.5), rewriting source/sprite/glyph URLs through
// the local:// indirection described in §9 so the same document can be
// read three ways: loaded by a renderer, served to a client, or kept at
// rest in memory.
package style

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/kartoza/tileserve/internal/config"
	"github.com/kartoza/tileserve/internal/filesource"
	"github.com/kartoza/tileserve/internal/tilemath"
)

var mbtilesSourceURL = regexp.MustCompile(`^mbtiles://\{([^}]+)\}$`)

// Entry is the in-memory, post-load state for one configured style (§3
// "Style entry"). It is built once in LoadAll and only read afterward.
type Entry struct {
	ID            string
	RawStyle      map[string]any // local:// form, kept at rest
	TileJSON      map[string]any
	SpritePath    string // relative path inside the sprites dir, "" if none
	ServeRendered bool
	ServeData     bool
}

// DataEntry is the in-memory, post-load state for one configured data
// source (§3 "Data entry").
type DataEntry struct {
	ID          string
	MBTilesPath string // absolute
	TileJSON    map[string]any
}

// Catalog is the full set of loaded styles and data entries plus the
// shared sprite/font byte cache (§4.5).
type Catalog struct {
	Styles     map[string]*Entry
	StyleOrder []string

	Data      map[string]*DataEntry
	DataOrder []string

	cache *lru.Cache[string, []byte]
	fs    afero.Fs
	cfg   *config.Config
}

// LoadAll loads every configured style and data entry, dropping any that
// fail per §3's "removed, not fatal" policy. Each removal is logged.
func LoadAll(ctx context.Context, cfg *config.Config, fs afero.Fs, src *filesource.Source) (*Catalog, error) {
	cache, err := lru.New[string, []byte](256)
	if err != nil {
		return nil, fmt.Errorf("style: lru cache: %w", err)
	}

	cat := &Catalog{
		Styles: make(map[string]*Entry),
		Data:   make(map[string]*DataEntry),
		cache:  cache,
		fs:     fs,
		cfg:    cfg,
	}

	for _, id := range cfg.StyleOrder {
		sc := cfg.Styles[id]
		entry, err := loadStyle(cfg, fs, id, sc)
		if err != nil {
			log.Printf("style: dropping style %q: %v", id, err)
			continue
		}
		cat.Styles[id] = entry
		cat.StyleOrder = append(cat.StyleOrder, id)
	}

	for _, id := range cfg.DataOrder {
		dc := cfg.Data[id]
		entry, err := loadData(ctx, cfg, src, id, dc)
		if err != nil {
			log.Printf("style: dropping data entry %q: %v", id, err)
			continue
		}
		cat.Data[id] = entry
		cat.DataOrder = append(cat.DataOrder, id)
	}

	return cat, nil
}

func loadStyle(cfg *config.Config, fs afero.Fs, id string, sc config.StyleConfig) (*Entry, error) {
	raw, err := readStyleSource(fs, cfg.Options.Paths.Styles, sc.Style)
	if err != nil {
		return nil, fmt.Errorf("read style: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse style json: %w", err)
	}

	tj := defaultTileJSON(doc, id)
	applyCenterZoom(doc, tj)

	spritePath := rewriteStyleURLs(doc, id)

	return &Entry{
		ID:            id,
		RawStyle:      doc,
		TileJSON:      tj,
		SpritePath:    spritePath,
		ServeRendered: sc.ServeRendered,
		ServeData:     sc.ServeData,
	}, nil
}

func readStyleSource(fs afero.Fs, stylesDir, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("remote style fetch not supported in this build: %s", ref)
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(stylesDir, ref)
	}
	return afero.ReadFile(fs, path)
}

// defaultTileJSON builds the TileJSON skeleton described in §4.5 step 2,
// overlaid with any user-supplied `metadata.tilejson`-shaped fields already
// present in the style document under a conventional `tilejson` top-level
// key (some styles carry one for authoring convenience).
func defaultTileJSON(doc map[string]any, id string) map[string]any {
	tj := map[string]any{
		"tilejson":    "2.0.0",
		"name":        id,
		"attribution": "",
		"minzoom":     0,
		"maxzoom":     20,
		"bounds":      []float64{-180, -85.0511, 180, 85.0511},
		"format":      "png",
		"type":        "baselayer",
	}
	if name, ok := doc["name"].(string); ok && name != "" {
		tj["name"] = name
	}
	if extra, ok := doc["tilejson"].(map[string]any); ok {
		for k, v := range extra {
			tj[k] = v
		}
	}
	return tj
}

// applyCenterZoom implements §4.5 step 3.
func applyCenterZoom(doc map[string]any, tj map[string]any) {
	center, hasCenter := doc["center"].([]any)
	zoom, hasZoom := doc["zoom"].(float64)

	if hasCenter && hasZoom && len(center) == 2 {
		lon, _ := center[0].(float64)
		lat, _ := center[1].(float64)
		tj["center"] = []float64{lon, lat, zoom}
		return
	}

	if _, exists := tj["center"]; exists {
		return
	}

	bounds, ok := tj["bounds"].([]float64)
	if !ok || len(bounds) != 4 {
		return
	}
	lonMin, latMin, lonMax, latMax := bounds[0], bounds[1], bounds[2], bounds[3]
	centerLon := (lonMin + lonMax) / 2
	centerLat := (latMin + latMax) / 2
	z := tilemath.ZoomForBBox(lonMin, latMin, lonMax, latMax, float64(config.InternalTileSize), float64(config.InternalTileSize), 0.1)
	tj["center"] = []float64{centerLon, centerLat, z}
}

// rewriteStyleURLs implements §4.5 step 4: the first, local://-producing
// rewrite pass. It returns the style's resolved sprite path, if any.
func rewriteStyleURLs(doc map[string]any, styleKey string) string {
	spritePath := ""

	if sources, ok := doc["sources"].(map[string]any); ok {
		for _, v := range sources {
			src, ok := v.(map[string]any)
			if !ok {
				continue
			}
			u, ok := src["url"].(string)
			if !ok {
				continue
			}
			if m := mbtilesSourceURL.FindStringSubmatch(u); m != nil {
				src["url"] = fmt.Sprintf("local://data/%s.json", m[1])
			}
		}
	}

	if sprite, ok := doc["sprite"].(string); ok && sprite != "" && !isRemoteURL(sprite) {
		spritePath = sprite
		doc["sprite"] = fmt.Sprintf("local://styles/%s/sprite", styleKey)
	}

	if glyphs, ok := doc["glyphs"].(string); ok && glyphs != "" && !isRemoteURL(glyphs) {
		doc["glyphs"] = "local://fonts/{fontstack}/{range}.pbf"
	}

	return spritePath
}

func isRemoteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func loadData(ctx context.Context, cfg *config.Config, src *filesource.Source, id string, dc config.DataConfig) (*DataEntry, error) {
	absPath := dc.MBTiles
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(cfg.Options.Paths.MBTiles, dc.MBTiles)
	}

	resp, err := src.FetchSource(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s", resp.Error.Message)
	}

	var tj map[string]any
	if err := json.Unmarshal(resp.Data, &tj); err != nil {
		return nil, fmt.Errorf("parse tilejson: %w", err)
	}

	// Legacy MBTiles writers store `center` as a comma-joined string;
	// strip it per §4.5 ("strip any center field of string type").
	if _, isString := tj["center"].(string); isString {
		delete(tj, "center")
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat mbtiles: %w", err)
	}

	tj["tilejson"] = "2.0.0"
	tj["filesize"] = info.Size()
	if _, ok := tj["format"]; !ok {
		tj["format"] = "pbf"
	}
	tj["name"] = id

	return &DataEntry{ID: id, MBTilesPath: absPath, TileJSON: tj}, nil
}

// ResolveForRender runs the second rewrite pass described in §4.5: replaces
// local:// URLs in a copy of the style document with concrete
// mbtiles://, file:// targets suitable for a renderer.
func (c *Catalog) ResolveForRender(e *Entry) map[string]any {
	doc := deepCopyJSON(e.RawStyle).(map[string]any)

	if sources, ok := doc["sources"].(map[string]any); ok {
		for _, v := range sources {
			src, ok := v.(map[string]any)
			if !ok {
				continue
			}
			u, ok := src["url"].(string)
			if !ok {
				continue
			}
			if strings.HasPrefix(u, "local://data/") {
				id := strings.TrimSuffix(strings.TrimPrefix(u, "local://data/"), ".json")
				if de, ok := c.Data[id]; ok {
					src["url"] = "mbtiles://" + de.MBTilesPath
				}
			}
		}
	}

	if sprite, ok := doc["sprite"].(string); ok && strings.HasPrefix(sprite, "local://styles/") {
		doc["sprite"] = "file://" + filepath.Join(c.cfg.Options.Paths.Sprites, e.SpritePath)
	}

	if glyphs, ok := doc["glyphs"].(string); ok && strings.HasPrefix(glyphs, "local://fonts/") {
		doc["glyphs"] = "file://" + filepath.Join(c.cfg.Options.Paths.Fonts, "{fontstack}/{range}.pbf")
	}

	return doc
}

// ResolveForClient runs the response-time rewrite described in §9: replaces
// the local:// prefix with the given public base URL.
func (c *Catalog) ResolveForClient(e *Entry, publicBase string) map[string]any {
	doc := deepCopyJSON(e.RawStyle).(map[string]any)
	rewriteLocalPrefix(doc, publicBase)
	return doc
}

func rewriteLocalPrefix(v any, publicBase string) {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			if s, ok := vv.(string); ok && strings.HasPrefix(s, "local://") {
				t[k] = publicBase + "/" + strings.TrimPrefix(s, "local://")
			} else {
				rewriteLocalPrefix(vv, publicBase)
			}
		}
	case []any:
		for _, vv := range t {
			rewriteLocalPrefix(vv, publicBase)
		}
	}
}

func deepCopyJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// SpriteBytes reads (and caches) the sprite asset at relPath, e.g.
// "sprite.png" or "sprite@2x.json", under the configured sprites dir
// (§4.5: LRU-cached since sprite/font bytes are immutable and requested on
// every map load).
func (c *Catalog) SpriteBytes(relPath string) ([]byte, error) {
	return c.cachedRead(filepath.Join(c.cfg.Options.Paths.Sprites, relPath))
}

// FontRange reads (and caches) a glyph PBF at <fonts>/<fontstack>/<range>.pbf.
func (c *Catalog) FontRange(fontstack, rangeName string) ([]byte, error) {
	return c.cachedRead(filepath.Join(c.cfg.Options.Paths.Fonts, fontstack, rangeName+".pbf"))
}

func (c *Catalog) cachedRead(path string) ([]byte, error) {
	if b, ok := c.cache.Get(path); ok {
		return b, nil
	}
	b, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, b)
	return b, nil
}
