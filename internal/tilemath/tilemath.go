// Package tilemath implements the pure coordinate math the
// rest of the server builds on: Web Mercator projection, tile-index
// conversion, and the bbox-to-zoom heuristic used by the static renderer's
// "auto" viewport and by TileJSON center derivation.
//
// Every function here is a pure function of IEEE-754 doubles, matching
// §4.1 of the specification, and shares its coordinate type with the rest
// of the codebase via paulmach/orb so tile math, MVT transcoding and camera
// placement all speak the same (lon, lat) point type.
package tilemath

import (
	"math"

	"github.com/gonum/floats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// InternalTileSize is the native rendering grid of the renderer engine; tile
// output is clipped/resampled down to the configured tile size (§2 glossary).
const InternalTileSize = 512

// LonToX maps a longitude to [0,1] on the unit Web Mercator square.
func LonToX(lon float64) float64 {
	return (lon + 180) / 360
}

// LatToY maps a latitude to [0,1] on the unit Web Mercator square.
func LatToY(lat float64) float64 {
	latRad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
}

// XToLon is the inverse of LonToX.
func XToLon(x float64) float64 {
	return x*360 - 180
}

// YToLat is the inverse of LatToY.
func YToLat(y float64) float64 {
	n := math.Pi - 2*math.Pi*y
	return 180 / math.Pi * math.Atan(0.5*(math.Exp(n)-math.Exp(-n)))
}

// LonToTileX returns the tile column containing lon at zoom z.
func LonToTileX(lon float64, z int) int {
	return int(math.Floor(LonToX(lon) * math.Exp2(float64(z))))
}

// LatToTileY returns the tile row containing lat at zoom z.
func LatToTileY(lat float64, z int) int {
	return int(math.Floor(LatToY(lat) * math.Exp2(float64(z))))
}

// LonToPixel converts a longitude to a pixel coordinate at zoom z for the
// given tile size.
func LonToPixel(lon float64, z int, tileSize float64) float64 {
	return LonToX(lon) * math.Exp2(float64(z)) * tileSize
}

// LatToPixel converts a latitude to a pixel coordinate at zoom z for the
// given tile size.
func LatToPixel(lat float64, z int, tileSize float64) float64 {
	return LatToY(lat) * math.Exp2(float64(z)) * tileSize
}

// Tile returns the maptile.Tile containing (lon, lat) at zoom z, shared with
// the MVT transcoding path in internal/filesource.
func Tile(lon, lat float64, z maptile.Zoom) maptile.Tile {
	return maptile.At(orb.Point{lon, lat}, z)
}

// ZoomForBBox picks the highest integer-or-fractional zoom at which a
// bounding box (lonMin, latMin, lonMax, latMax) still fits inside a W×H
// viewport with the given fractional padding on every side, per §4.1.
//
// It returns 0 rather than a negative zoom when the box is larger than the
// viewport even at zoom 0 (shrinking the box, or increasing W/H, can only
// raise the result — see the monotonicity property in §8).
func ZoomForBBox(lonMin, latMin, lonMax, latMax float64, w, h, padding float64) float64 {
	x0, x1 := LonToX(lonMin), LonToX(lonMax)
	// latToY is monotonically decreasing in lat, so the max latitude maps to
	// the smaller y.
	y0, y1 := LatToY(latMax), LatToY(latMin)

	boxW := x1 - x0
	boxH := y1 - y0
	if boxW < 0 {
		boxW = -boxW
	}
	if boxH < 0 {
		boxH = -boxH
	}

	// Whichever dimension is most constrained relative to the target image
	// aspect ratio drives the zoom.
	wZoom := math.Log2(w / (1 + 2*padding) / boxW / InternalTileSize)
	hZoom := math.Log2(h / (1 + 2*padding) / boxH / InternalTileSize)

	zoom := wZoom
	if boxW == 0 || (boxH != 0 && hZoom < wZoom) {
		zoom = hZoom
	}
	if boxW == 0 && boxH == 0 {
		// A degenerate (point) bbox imposes no constraint; let the caller's
		// maxzoom clamp take over.
		return math.Inf(1)
	}
	if zoom < 0 || math.IsNaN(zoom) {
		return 0
	}
	return zoom
}

// NormalizeBounds returns [minLon, minLat, maxLon, maxLat], swapping any pair
// that arrived reversed, per §3's "normalized so min≤max" invariant.
func NormalizeBounds(b [4]float64) [4]float64 {
	if b[0] > b[2] {
		b[0], b[2] = b[2], b[0]
	}
	if b[1] > b[3] {
		b[1], b[3] = b[3], b[1]
	}
	return b
}

// BBoxOfPoints folds a set of (lon, lat) points into a bounding box. Used by
// the static renderer's "auto" viewport, where every vertex of every overlay
// (marker point or path vertex) contributes, per §9's resolved Open Question.
func BBoxOfPoints(points [][2]float64) (lonMin, latMin, lonMax, latMax float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, 0, 0, false
	}
	lons := make([]float64, len(points))
	lats := make([]float64, len(points))
	for i, p := range points {
		lons[i] = p[0]
		lats[i] = p[1]
	}
	return floats.Min(lons), floats.Min(lats), floats.Max(lons), floats.Max(lats), true
}
