package render

import (
	"context"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/kartoza/tileserve/internal/tilemath"
	"github.com/kartoza/tileserve/internal/worker"
)

// Handle is the per-worker resource a renderer Pool manages: one Engine
// with a style already loaded (§4.2: "run-loop, frontend, map").
type Handle struct {
	Engine Engine
}

// NewHandleFactory returns a worker.Pool factory that builds a fresh Engine
// and loads styleJSON into it, for one (style id, scale) renderer pool.
func NewHandleFactory(newEngine Factory, styleJSON map[string]any) func(context.Context) (Handle, error) {
	return func(ctx context.Context) (Handle, error) {
		eng, err := newEngine()
		if err != nil {
			return Handle{}, err
		}
		if err := eng.LoadStyle(styleJSON); err != nil {
			eng.Close()
			return Handle{}, err
		}
		return Handle{Engine: eng}, nil
	}
}

// TeardownHandle closes a Handle's Engine; it is the teardown function every
// renderer worker.Pool is built with.
func TeardownHandle(h Handle) {
	teardownHandle(h)
}

func teardownHandle(h Handle) {
	if h.Engine != nil {
		h.Engine.Close()
	}
}

// TileParams describes one raster-tile request, already validated against
// serveBounds (§4.6).
type TileParams struct {
	Z, X, Y    int
	TileSize   int
	Scale      float64
	MarginPx   float64 // options.tileMargin, already max()'d against (internalTileSize-tileSize)/2
	InternalSz int      // config.InternalTileSize, 512
}

// RenderTile implements §4.6: internalZoom placement, camera-bounds
// rendering with edge insets, and the clip/resize rules.
func RenderTile(ctx context.Context, pool *worker.Pool[Handle], p TileParams) (*image.RGBA, error) {
	w, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: acquire worker: %w", err)
	}
	defer pool.Release(w)

	v, err := w.Submit(func(h Handle) (any, error) {
		return renderTileOnEngine(ctx, h.Engine, p)
	}).Wait(ctx)
	if err != nil {
		return nil, err
	}
	return v.(*image.RGBA), nil
}

func renderTileOnEngine(ctx context.Context, eng Engine, p TileParams) (*image.RGBA, error) {
	internalZoom := float64(p.Z) + math.Log2(float64(p.TileSize)/float64(p.InternalSz))

	lonMin, latMin, lonMax, latMax := tileBounds(p.Z, p.X, p.Y)
	centerLon := (lonMin + lonMax) / 2
	centerLat := (latMin + latMax) / 2

	mapSize := p.TileSize + int(2*p.MarginPx)
	eng.SetSize(mapSize, mapSize, p.Scale)
	eng.SetCamera(CameraOptions{
		CenterLon: centerLon,
		CenterLat: centerLat,
		Zoom:      internalZoom,
		EdgeInsets: Insets{
			Top: p.MarginPx, Right: p.MarginPx, Bottom: p.MarginPx, Left: p.MarginPx,
		},
	})

	raw, err := eng.RenderStill(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return clipAndResizeTile(raw, p, internalZoom)
}

// tileBounds returns the XYZ tile's LonLatBounds at z/x/y.
func tileBounds(z, x, y int) (lonMin, latMin, lonMax, latMax float64) {
	n := float64(int(1) << uint(z))
	lonMin = tilemath.XToLon(float64(x) / n)
	lonMax = tilemath.XToLon(float64(x+1) / n)
	latMax = tilemath.YToLat(float64(y) / n)
	latMin = tilemath.YToLat(float64(y+1) / n)
	return
}

// clipAndResizeTile implements §4.6's "Clip & resize" section.
func clipAndResizeTile(raw *image.RGBA, p TileParams, internalZoom float64) (*image.RGBA, error) {
	outSize := int(float64(p.TileSize) * p.Scale)

	if p.MarginPx <= 0 {
		return resizeIfNeeded(raw, outSize), nil
	}

	marginPx := int(p.MarginPx * p.Scale)

	if internalZoom >= 0 {
		tileSizeScaled := int(float64(p.TileSize) * p.Scale)
		sub := subImage(raw, marginPx, marginPx, tileSizeScaled, tileSizeScaled)
		return resizeIfNeeded(sub, outSize), nil
	}

	// internalZoom < 0: extract a centered subset of side
	// tileSize*2^(-floor(internalZoom)) then down-sample to tileSize*scale.
	factor := math.Pow(2, -math.Floor(internalZoom))
	side := int(float64(p.TileSize) * factor * p.Scale)
	bounds := raw.Bounds()
	cx, cy := bounds.Dx()/2, bounds.Dy()/2
	sub := subImage(raw, cx-side/2, cy-side/2, side, side)
	return resizeIfNeeded(sub, outSize), nil
}

func subImage(img *image.RGBA, x, y, w, h int) *image.RGBA {
	rect := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

func resizeIfNeeded(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(out, out.Bounds(), img, b, draw.Over, nil)
	return out
}
