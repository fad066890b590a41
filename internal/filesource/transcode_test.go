package filesource

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
)

func TestGzipGunzipIdempotent(t *testing.T) {
	data := []byte("hello tileserve")

	gz, err := Gzip(data)
	if err != nil {
		t.Fatalf("Gzip: %v", err)
	}
	if !IsGzipped(gz) {
		t.Fatal("expected gzipped output to carry the gzip signature")
	}

	// Gzipping already-gzipped data must be a no-op (§7 idempotence).
	gz2, err := Gzip(gz)
	if err != nil {
		t.Fatalf("Gzip of already-gzipped data: %v", err)
	}
	if string(gz2) != string(gz) {
		t.Error("Gzip is not idempotent on already-gzipped input")
	}

	plain, err := Gunzip(gz)
	if err != nil {
		t.Fatalf("Gunzip: %v", err)
	}
	if string(plain) != string(data) {
		t.Errorf("Gunzip roundtrip = %q, want %q", plain, data)
	}

	// Gunzipping already-plain data must be a no-op.
	plain2, err := Gunzip(plain)
	if err != nil {
		t.Fatalf("Gunzip of plain data: %v", err)
	}
	if string(plain2) != string(plain) {
		t.Error("Gunzip is not idempotent on plain input")
	}
}

func TestRejectFormatMismatch(t *testing.T) {
	cases := []struct {
		requested, stored string
		wantErr           bool
	}{
		{"pbf", "pbf", false},
		{"geojson", "pbf", false},
		{"png", "png", false},
		{"geojson", "png", true},
		{"pbf", "png", true},
		{"jpg", "png", true},
	}
	for _, c := range cases {
		err := RejectFormatMismatch(c.requested, c.stored)
		if (err != nil) != c.wantErr {
			t.Errorf("RejectFormatMismatch(%q,%q): err=%v, wantErr=%v", c.requested, c.stored, err, c.wantErr)
		}
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"png":     "image/png",
		"jpg":     "image/jpeg",
		"webp":    "image/webp",
		"geojson": "application/json",
		"pbf":     "application/x-protobuf",
	}
	for format, want := range cases {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}

// TestMergeLayersInjectsLayerName exercises the layer-merge step of
// MVTToGeoJSON directly, against hand-built mvt.Layers, so the test does not
// depend on the exact tile-local encoding mvt.Marshal/ProjectToTile produce.
func TestMergeLayersInjectsLayerName(t *testing.T) {
	layers := mvt.Layers{
		{
			Name:    "Roads",
			Version: 2,
			Extent:  4096,
			Features: []*geojson.Feature{
				geojson.NewFeature(orb.Point{10, 20}),
			},
		},
	}
	layers[0].Features[0].Properties = geojson.Properties{"Class": "primary"}

	fc := mergeLayersToFeatureCollection(layers)

	out, err := fc.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if decoded.Type != "FeatureCollection" {
		t.Fatalf("type = %q, want FeatureCollection", decoded.Type)
	}
	if len(decoded.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(decoded.Features))
	}
	// §4.4/S2: properties.layer equals the originating layer name verbatim;
	// only property keys are lowercased, not this value.
	if decoded.Features[0].Properties["layer"] != "Roads" {
		t.Errorf("properties.layer = %v, want %q", decoded.Features[0].Properties["layer"], "Roads")
	}
	if decoded.Features[0].Properties["class"] != "primary" {
		t.Errorf("expected lowercased property key 'class' to survive, got %v", decoded.Features[0].Properties)
	}
}
