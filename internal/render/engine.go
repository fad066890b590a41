// Package render drives the headless rendering engine, one instance per
// worker handle (§4.2, §4.6, §4.7). The real binding is cgo-gated
// (engine_cgo.go); the default build uses a pure-Go stand-in
// (engine_stub.go) so the rest of the pipeline always builds and runs.
package render

import (
	"context"
	"image"
)

// CameraOptions mirrors MapLibre Native's mbgl::CameraOptions: the pose the
// engine renders from (§4.6, §4.7).
type CameraOptions struct {
	CenterLon float64
	CenterLat float64
	Zoom      float64
	Bearing   float64
	Pitch     float64

	// EdgeInsets adds a margin (pixels) on each side when fitting bounds,
	// used by the tile renderer's internalTileMargin (§4.6).
	EdgeInsets Insets
}

// Insets is a four-sided pixel margin.
type Insets struct {
	Top, Right, Bottom, Left float64
}

// Engine is the abstraction a renderer worker.Worker drives (§4.6a). Implementations
// are not safe for concurrent use; each Engine is owned by exactly one
// worker goroutine.
type Engine interface {
	// LoadStyle compiles the given style document (already resolved to
	// concrete mbtiles://, file:// URLs by internal/style).
	LoadStyle(styleJSON map[string]any) error

	// SetSize sets the frontend's pixel dimensions (width, height) at the
	// given pixel ratio (scale factor).
	SetSize(width, height int, pixelRatio float64)

	// SetCamera positions the map for the next RenderStill call.
	SetCamera(cam CameraOptions)

	// RenderStill renders one still frame and returns it as RGBA.
	RenderStill(ctx context.Context) (*image.RGBA, error)

	// Close releases the engine's native resources.
	Close()
}

// Factory constructs a new Engine instance, one per renderer worker.
type Factory func() (Engine, error)
