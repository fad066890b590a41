package httpserver

import "github.com/kartoza/tileserve/internal/tilemath"

// tileInBounds implements §8 property 6: a tile index is in-bounds when it
// falls inside the tile range the configured serveBounds covers at z.
func tileInBounds(z, x, y int, bounds [4]float64) bool {
	minX := tilemath.LonToTileX(bounds[0], z)
	maxX := tilemath.LonToTileX(bounds[2], z)
	minY := tilemath.LatToTileY(bounds[3], z)
	maxY := tilemath.LatToTileY(bounds[1], z)
	return x >= minX && x <= maxX && y >= minY && y <= maxY
}
