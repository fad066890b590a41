package filesource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// metadataToTileJSON turns an MBTiles metadata table (name/value strings)
// into a TileJSON document, per the "fetch the MBTiles source metadata"
// step of §4.5. Numeric and JSON-valued metadata keys (bounds, center,
// minzoom, maxzoom, json) are parsed out of their string encoding; anything
// under the `json` key (vector_layers et al, per the MBTiles 1.3 spec) is
// merged in verbatim.
func metadataToTileJSON(meta map[string]string, fileSize int64) ([]byte, error) {
	doc := map[string]any{
		"tilejson":    "2.0.0",
		"filesize":    fileSize,
		"format":      "pbf",
		"minzoom":     0,
		"maxzoom":     20,
		"bounds":      []float64{-180, -85.0511, 180, 85.0511},
		"attribution": "",
	}

	if raw, ok := meta["json"]; ok && raw != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(raw), &extra); err == nil {
			for k, v := range extra {
				doc[k] = v
			}
		}
	}

	for key, value := range meta {
		switch key {
		case "json":
			continue
		case "name":
			doc["name"] = value
		case "description":
			doc["description"] = value
		case "attribution":
			doc["attribution"] = value
		case "format":
			doc["format"] = value
		case "minzoom", "maxzoom":
			if n, err := strconv.Atoi(value); err == nil {
				doc[key] = n
			}
		case "bounds":
			if b, err := parseFloatList(value, 4); err == nil {
				doc["bounds"] = b
			}
		case "center":
			// Legacy MBTiles writers sometimes store center as a plain
			// string; §4.5 calls for stripping that and letting the
			// style's own center/zoom derivation take over, so a
			// malformed or short center is simply skipped rather than
			// surfaced as an error.
			if c, err := parseFloatList(value, 3); err == nil {
				doc["center"] = c
			}
		}
	}

	if name, _ := doc["name"].(string); name == "" {
		doc["name"] = "unnamed"
	}
	doc["type"] = "baselayer"

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("filesource: marshal tilejson: %w", err)
	}
	return out, nil
}

func parseFloatList(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
