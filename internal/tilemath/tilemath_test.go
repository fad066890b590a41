package tilemath

import (
	"math"
	"testing"
)

func TestLonLatTileRoundTrip(t *testing.T) {
	zooms := []int{0, 1, 5, 12, 22}
	lons := []float64{-180, -90, -0.0001, 0, 0.0001, 90, 179.9999}
	lats := []float64{-85.0511, -45, -0.0001, 0, 0.0001, 45, 85.0511}

	for _, z := range zooms {
		max := 1<<uint(z) - 1
		for _, lon := range lons {
			x := LonToTileX(lon, z)
			if x < 0 || x > max {
				t.Errorf("LonToTileX(%v, %d) = %d, want in [0,%d]", lon, z, x, max)
			}
		}
		for _, lat := range lats {
			y := LatToTileY(lat, z)
			if y < 0 || y > max {
				t.Errorf("LatToTileY(%v, %d) = %d, want in [0,%d]", lat, z, y, max)
			}
		}
	}
}

func TestLonLatPixelInverse(t *testing.T) {
	for _, lon := range []float64{-170, -10, 0, 45, 170} {
		x := LonToX(lon)
		got := XToLon(x)
		if math.Abs(got-lon) > 1e-6 {
			t.Errorf("XToLon(LonToX(%v)) = %v", lon, got)
		}
	}
	for _, lat := range []float64{-80, -10, 0, 45, 80} {
		y := LatToY(lat)
		got := YToLat(y)
		if math.Abs(got-lat) > 1e-6 {
			t.Errorf("YToLat(LatToY(%v)) = %v", lat, got)
		}
	}
}

func TestZoomForBBoxMonotonic(t *testing.T) {
	wide := ZoomForBBox(-10, -10, 10, 10, 512, 512, 0.1)
	narrow := ZoomForBBox(-1, -1, 1, 1, 512, 512, 0.1)
	if narrow < wide {
		t.Errorf("shrinking the bbox must not decrease zoom: wide=%v narrow=%v", wide, narrow)
	}

	lowPad := ZoomForBBox(-10, -10, 10, 10, 512, 512, 0.0)
	highPad := ZoomForBBox(-10, -10, 10, 10, 512, 512, 1.0)
	if highPad > lowPad {
		t.Errorf("increasing padding must not increase zoom: lowPad=%v highPad=%v", lowPad, highPad)
	}
}

func TestZoomForBBoxNeverNegative(t *testing.T) {
	z := ZoomForBBox(-180, -85, 180, 85, 64, 64, 0.1)
	if z < 0 {
		t.Errorf("ZoomForBBox returned negative zoom: %v", z)
	}
}

func TestNormalizeBounds(t *testing.T) {
	got := NormalizeBounds([4]float64{10, 10, -10, -10})
	want := [4]float64{-10, -10, 10, 10}
	if got != want {
		t.Errorf("NormalizeBounds = %v, want %v", got, want)
	}
}

func TestBBoxOfPoints(t *testing.T) {
	lonMin, latMin, lonMax, latMax, ok := BBoxOfPoints([][2]float64{
		{1, 2}, {-3, 4}, {5, -6},
	})
	if !ok {
		t.Fatal("expected ok=true for non-empty input")
	}
	if lonMin != -3 || latMin != -6 || lonMax != 5 || latMax != 4 {
		t.Errorf("got bbox (%v,%v,%v,%v)", lonMin, latMin, lonMax, latMax)
	}

	if _, _, _, _, ok := BBoxOfPoints(nil); ok {
		t.Error("expected ok=false for empty input")
	}
}
