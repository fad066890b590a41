package httpserver

import "testing"

func TestTileInBoundsWorldAtZoomZero(t *testing.T) {
	world := [4]float64{-180, -85.0511, 180, 85.0511}
	if !tileInBounds(0, 0, 0, world) {
		t.Fatal("expected the single z0 tile to be in world bounds")
	}
}

func TestTileInBoundsRejectsOutsideRegion(t *testing.T) {
	// Bounds covering only the eastern hemisphere.
	bounds := [4]float64{0, -85.0511, 180, 85.0511}
	if tileInBounds(2, 0, 1, bounds) {
		t.Fatal("expected tile (2,0,1), entirely in the western hemisphere, to be out of bounds")
	}
	if !tileInBounds(2, 3, 1, bounds) {
		t.Fatal("expected tile (2,3,1), in the eastern hemisphere, to be in bounds")
	}
}
