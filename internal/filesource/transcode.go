package filesource

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// gzipMagic is the two-byte gzip header signature (§7: "Gzip state
// machine for data tiles").
var gzipMagic = [2]byte{0x1f, 0x8b}

// IsGzipped reports whether data starts with the gzip magic bytes.
func IsGzipped(data []byte) bool {
	return len(data) >= 2 && data[0] == gzipMagic[0] && data[1] == gzipMagic[1]
}

// Gunzip decompresses data if it is gzipped, otherwise returns it unchanged.
// The transition is idempotent per §7.
func Gunzip(data []byte) ([]byte, error) {
	if !IsGzipped(data) {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("filesource: gunzip: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("filesource: gunzip: %w", err)
	}
	return out, nil
}

// Gzip compresses data if it is not already gzipped, otherwise returns it
// unchanged. The transition is idempotent per §7.
func Gzip(data []byte) ([]byte, error) {
	if IsGzipped(data) {
		return data, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("filesource: gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("filesource: gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// MVTToGeoJSON decodes a (possibly gzipped) MVT tile at (z,x,y) and converts
// every layer to a single GeoJSON FeatureCollection, injecting the
// originating layer name into each feature's properties under the
// lowercased key "layer" (§4.4 step 2).
func MVTToGeoJSON(z, x, y int, data []byte) ([]byte, error) {
	raw, err := Gunzip(data)
	if err != nil {
		return nil, err
	}

	tile := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	layers, err := mvt.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("filesource: decode mvt: %w", err)
	}
	layers.ProjectToWGS84(tile)

	fc := mergeLayersToFeatureCollection(layers)

	out, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("filesource: marshal geojson: %w", err)
	}
	return out, nil
}

// mergeLayersToFeatureCollection flattens every MVT layer's features into a
// single FeatureCollection, lowercasing property keys and stamping each
// feature with the originating layer name (§4.4 step 2).
func mergeLayersToFeatureCollection(layers mvt.Layers) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, layer := range layers {
		for _, f := range layer.Features {
			props := geojson.Properties{}
			for k, v := range f.Properties {
				props[strings.ToLower(k)] = v
			}
			props["layer"] = layer.Name
			f.Properties = props
			fc.Append(f)
		}
	}
	return fc
}

// RejectFormatMismatch implements the transcoding gate described in §4.4
// step 1: the only allowed transform is geojson over a pbf-stored source.
func RejectFormatMismatch(requestedFormat, storedFormat string) error {
	if requestedFormat == storedFormat {
		return nil
	}
	if requestedFormat == "geojson" && storedFormat == "pbf" {
		return nil
	}
	return fmt.Errorf("filesource: invalid format %q for source stored as %q", requestedFormat, storedFormat)
}

// ContentType maps an output format to its HTTP Content-Type (§4.4 step 4).
func ContentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "geojson":
		return "application/json"
	case "pbf":
		return "application/x-protobuf"
	default:
		return "application/octet-stream"
	}
}
