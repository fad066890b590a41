package render

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/kartoza/tileserve/internal/overlay"
	"github.com/kartoza/tileserve/internal/tilemath"
	"github.com/kartoza/tileserve/internal/worker"
)

// staticTileSize is the base tile size the lon/lat/zoom family of camera
// parameters is defined against, matching the XYZ tile convention used by
// the raster tile endpoints (§4.1, §4.6).
const staticTileSize = 256

// ViewportMode selects one of the three static-map viewport families (§4.7).
type ViewportMode int

const (
	// ViewportCenterZoom is `/static/<lon>,<lat>,<zoom>[@<bearing>[,<pitch>]]/...`.
	ViewportCenterZoom ViewportMode = iota
	// ViewportBBox is `/static/<minx>,<miny>,<maxx>,<maxy>/...`.
	ViewportBBox
	// ViewportAuto is `/static/auto/...`, derived from overlay data.
	ViewportAuto
)

// StaticRequest is one fully-parsed `/static/...` request (§4.7).
type StaticRequest struct {
	Mode ViewportMode

	// ViewportCenterZoom fields.
	Lon, Lat, Zoom, Bearing, Pitch float64

	// ViewportBBox fields.
	MinX, MinY, MaxX, MaxY float64

	Paths   []overlay.Path
	Markers []overlay.Marker

	Width, Height int
	Scale         float64

	Defaults overlay.Defaults // carries Padding and MaxZoom too
}

// Viewport is the resolved camera pose for a static-map render.
type Viewport struct {
	CenterLon, CenterLat, Zoom, Bearing, Pitch float64
}

// SelectViewport implements §4.7's four-branch viewport selection rule.
func SelectViewport(req StaticRequest, serveBounds [4]float64) (Viewport, error) {
	switch req.Mode {
	case ViewportCenterZoom:
		if req.Lon < serveBounds[0] || req.Lon > serveBounds[2] || req.Lat < serveBounds[1] || req.Lat > serveBounds[3] {
			return Viewport{}, fmt.Errorf("render: center (%v,%v) outside serve bounds", req.Lon, req.Lat)
		}
		return Viewport{CenterLon: req.Lon, CenterLat: req.Lat, Zoom: req.Zoom, Bearing: req.Bearing, Pitch: req.Pitch}, nil

	case ViewportBBox:
		return viewportFromBBox(req.MinX, req.MinY, req.MaxX, req.MaxY, req.Width, req.Height, req.Defaults, serveBounds)

	case ViewportAuto:
		var pts [][2]float64
		for _, p := range req.Paths {
			for _, pt := range p.Points {
				pts = append(pts, [2]float64{pt.Lon, pt.Lat})
			}
		}
		for _, m := range req.Markers {
			pts = append(pts, [2]float64{m.Point.Lon, m.Point.Lat})
		}
		lonMin, latMin, lonMax, latMax, ok := tilemath.BBoxOfPoints(pts)
		if !ok {
			return Viewport{}, fmt.Errorf("render: auto viewport requires at least one overlay point")
		}
		return viewportFromBBox(lonMin, latMin, lonMax, latMax, req.Width, req.Height, req.Defaults, serveBounds)

	default:
		return Viewport{}, fmt.Errorf("render: no viewport specified")
	}
}

func viewportFromBBox(minX, minY, maxX, maxY float64, width, height int, defaults overlay.Defaults, serveBounds [4]float64) (Viewport, error) {
	if minX > serveBounds[2] || maxX < serveBounds[0] || minY > serveBounds[3] || maxY < serveBounds[1] {
		return Viewport{}, fmt.Errorf("render: bbox (%v,%v,%v,%v) disjoint from serve bounds", minX, minY, maxX, maxY)
	}
	minX, maxX = math.Max(minX, serveBounds[0]), math.Min(maxX, serveBounds[2])
	minY, maxY = math.Max(minY, serveBounds[1]), math.Min(maxY, serveBounds[3])

	centerLon := (minX + maxX) / 2
	centerLat := (minY + maxY) / 2
	zoom := tilemath.ZoomForBBox(minX, minY, maxX, maxY, float64(width), float64(height), defaults.Padding)
	if zoom > defaults.MaxZoom {
		zoom = defaults.MaxZoom
	}
	return Viewport{CenterLon: centerLon, CenterLat: centerLat, Zoom: zoom}, nil
}

// RenderStatic implements §4.7's render + composite pipeline: it acquires a
// static pool worker, renders the basemap, then composites paths and
// markers on the raw bitmap before the caller encodes it.
func RenderStatic(ctx context.Context, pool *worker.Pool[Handle], req StaticRequest, icons *IconLoader) (*image.RGBA, error) {
	viewport, err := SelectViewport(req, [4]float64{-180, -85.0511, 180, 85.0511})
	if err != nil {
		return nil, err
	}
	return RenderStaticAt(ctx, pool, req, viewport, icons)
}

// RenderStaticAt renders with an already-selected viewport (serve-bounds
// validation done by the caller, which knows the configured bounds).
func RenderStaticAt(ctx context.Context, pool *worker.Pool[Handle], req StaticRequest, viewport Viewport, icons *IconLoader) (*image.RGBA, error) {
	w, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: acquire static worker: %w", err)
	}
	defer pool.Release(w)

	v, err := w.Submit(func(h Handle) (any, error) {
		return renderStaticOnEngine(ctx, h.Engine, req, viewport)
	}).Wait(ctx)
	if err != nil {
		return nil, err
	}
	raw := v.(*image.RGBA)

	project := NewProjector(viewport.CenterLon, viewport.CenterLat, viewport.Zoom, req.Width, req.Height, req.Scale)

	for _, p := range req.Paths {
		overlay.DrawPath(raw, p, req.Defaults, project)
	}
	if err := compositeMarkers(ctx, raw, req.Markers, req.Scale, icons, project); err != nil {
		return nil, err
	}

	return raw, nil
}

func renderStaticOnEngine(ctx context.Context, eng Engine, req StaticRequest, viewport Viewport) (*image.RGBA, error) {
	eng.SetSize(req.Width, req.Height, req.Scale)
	eng.SetCamera(CameraOptions{
		CenterLon: viewport.CenterLon,
		CenterLat: viewport.CenterLat,
		Zoom:      viewport.Zoom,
		Bearing:   viewport.Bearing,
		Pitch:     viewport.Pitch,
	})
	raw, err := eng.RenderStill(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return raw, nil
}

func compositeMarkers(ctx context.Context, dst draw.Image, markers []overlay.Marker, scale float64, icons *IconLoader, project overlay.Projector) error {
	for _, m := range markers {
		if icons == nil || m.IconPath == "" {
			continue
		}
		icon, err := icons.Load(ctx, m.IconPath)
		if err != nil {
			return err
		}
		overlay.DrawMarker(dst, m, icon, scale, project)
	}
	return nil
}

// NewProjector builds the screen-space projector used to place overlay
// vertices after a still render (§4.7: "use the map's transform state to
// project every overlay lon/lat to screen coordinates"). Web Mercator pixel
// math is applied directly rather than queried from the engine, since it is
// fully determined by the camera already handed to SetCamera/RenderStill;
// the resulting coordinates are already image-row-down, so no further
// "y' = H - y" flip is needed on top of them.
func NewProjector(centerLon, centerLat, zoom float64, width, height int, scale float64) overlay.Projector {
	worldSize := staticTileSize * math.Exp2(zoom)
	cx := tilemath.LonToX(centerLon) * worldSize
	cy := tilemath.LatToY(centerLat) * worldSize
	halfW := float64(width) / 2
	halfH := float64(height) / 2

	return func(pt overlay.Point) overlay.ScreenPoint {
		x := tilemath.LonToX(pt.Lon)*worldSize - cx + halfW
		y := tilemath.LatToY(pt.Lat)*worldSize - cy + halfH
		return overlay.ScreenPoint{X: x * scale, Y: y * scale}
	}
}
