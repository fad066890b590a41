// Package config parses and validates the on-disk JSON configuration (§3):
// directory layout, renderer pool sizing, serve bounds, and the ordered
// style/data entry lists. Config is immutable after LoadConfig returns; the
// mutable per-entry state it seeds lives in internal/style.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// InternalTileSize is the fixed internal render size every tile is composed
// at before clipping down to options.tileSize (§3).
const InternalTileSize = 512

// Options holds the tunables in §3 under `options.*`.
type Options struct {
	Paths Paths `json:"paths"`

	TileSize   int     `json:"tileSize"`
	TileMargin float64 `json:"tileMargin"`

	MinRendererPoolSizes []int `json:"minRendererPoolSizes"`
	MaxRendererPoolSizes []int `json:"maxRendererPoolSizes"`

	ServeBounds [4]float64 `json:"serveBounds"`

	MaxScaleFactor int `json:"maxScaleFactor"`
	MaxSize        int `json:"maxSize"`

	FormatQuality FormatQuality `json:"formatQuality"`

	AllowRemoteMarkerIcons bool `json:"allowRemoteMarkerIcons"`
	ServeStaticMaps        bool `json:"serveStaticMaps"`
}

// Paths is the set of directories resolved against Root (§3 options.paths).
type Paths struct {
	Root    string `json:"root"`
	Styles  string `json:"styles"`
	Fonts   string `json:"fonts"`
	Sprites string `json:"sprites"`
	Icons   string `json:"icons"`
	MBTiles string `json:"mbtiles"`
}

// FormatQuality holds per-format encode quality for raster output.
type FormatQuality struct {
	PNG  int `json:"png"`
	JPEG int `json:"jpeg"`
	WebP int `json:"webp"`
}

// StyleConfig is one entry of the `styles` map in the config file.
type StyleConfig struct {
	Style         string `json:"style"`
	ServeRendered bool   `json:"serveRendered"`
	ServeData     bool   `json:"serveData"`
}

// DataConfig is one entry of the `data` map in the config file.
type DataConfig struct {
	MBTiles string `json:"mbtiles"`
}

// Config is the fully parsed, validated configuration tree (§3).
type Config struct {
	Options Options `json:"options"`

	Styles     map[string]StyleConfig `json:"styles"`
	StyleOrder []string               `json:"-"`

	Data      map[string]DataConfig `json:"data"`
	DataOrder []string              `json:"-"`
}

// LoadConfig reads and validates the JSON configuration file at path. It
// resolves every options.paths entry against root (the file's own directory
// if root is empty; a relative root is joined onto that directory) and
// verifies each directory exists --
// a missing directory aborts startup per §3 ("unless a path does not
// exist -- then process aborts").
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.StyleOrder, err = orderedKeys(data, "styles")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.DataOrder, err = orderedKeys(data, "data")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.applyDefaults()

	base := filepath.Dir(path)
	if err := cfg.resolvePaths(base); err != nil {
		return nil, err
	}
	if err := cfg.validateDirs(fs); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Options.TileSize == 0 {
		c.Options.TileSize = 256
	}
	margin := c.Options.TileMargin
	minMargin := float64(InternalTileSize-c.Options.TileSize) / 2
	if minMargin < 0 {
		minMargin = 0
	}
	if margin < minMargin {
		margin = minMargin
	}
	c.Options.TileMargin = margin

	if c.Options.MaxScaleFactor <= 0 {
		c.Options.MaxScaleFactor = 1
	}
	if c.Options.MaxScaleFactor > 9 {
		c.Options.MaxScaleFactor = 9
	}
	if c.Options.MaxSize == 0 {
		c.Options.MaxSize = 2048
	}

	lonMin, latMin, lonMax, latMax := c.Options.ServeBounds[0], c.Options.ServeBounds[1], c.Options.ServeBounds[2], c.Options.ServeBounds[3]
	if lonMin == 0 && latMin == 0 && lonMax == 0 && latMax == 0 {
		c.Options.ServeBounds = [4]float64{-180, -85.0511, 180, 85.0511}
	} else if lonMin > lonMax || latMin > latMax {
		if lonMin > lonMax {
			lonMin, lonMax = lonMax, lonMin
		}
		if latMin > latMax {
			latMin, latMax = latMax, latMin
		}
		c.Options.ServeBounds = [4]float64{lonMin, latMin, lonMax, latMax}
	}
}

func (c *Config) resolvePaths(base string) error {
	root := c.Options.Paths.Root
	if root == "" {
		root = base
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(base, root)
	}
	c.Options.Paths.Root = root

	resolveUnderRoot := func(p string) string {
		if p == "" {
			return root
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}

	c.Options.Paths.Styles = resolveUnderRoot(c.Options.Paths.Styles)
	c.Options.Paths.Fonts = resolveUnderRoot(c.Options.Paths.Fonts)
	c.Options.Paths.Sprites = resolveUnderRoot(c.Options.Paths.Sprites)
	c.Options.Paths.Icons = resolveUnderRoot(c.Options.Paths.Icons)
	c.Options.Paths.MBTiles = resolveUnderRoot(c.Options.Paths.MBTiles)

	return nil
}

func (c *Config) validateDirs(fs afero.Fs) error {
	dirs := []string{
		c.Options.Paths.Root,
		c.Options.Paths.Styles,
		c.Options.Paths.Fonts,
		c.Options.Paths.Sprites,
		c.Options.Paths.Icons,
		c.Options.Paths.MBTiles,
	}
	for _, d := range dirs {
		info, err := fs.Stat(d)
		if err != nil {
			return fmt.Errorf("config: required directory %s does not exist: %w", d, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("config: %s is not a directory", d)
		}
	}
	return nil
}

// orderedKeys extracts the key order of a top-level JSON object field from
// the raw document, since Go's map type does not preserve it.
func orderedKeys(data []byte, field string) ([]string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	raw, ok := top[field]
	if !ok {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if _, ok := tok.(json.Delim); !ok {
		return nil, fmt.Errorf("%s is not a JSON object", field)
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%s has a non-string key", field)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// OSFs is the afero filesystem used outside of tests; callers inject it so
// tests can substitute afero.NewMemMapFs() (§4.5).
func OSFs() afero.Fs {
	return afero.NewOsFs()
}
