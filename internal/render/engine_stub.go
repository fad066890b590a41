//go:build !(cgo && maplibre)

package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
)

// stubEngine is a pure-Go stand-in for the real MapLibre Native binding
// (engine_cgo.go). It has no access to vector tiles or glyphs, so it
// cannot produce a photorealistic render; instead it rasterizes the
// style's background color plus a debug tile grid, which is enough to
// exercise every other Go-side stage end to end (worker run-loop, pool,
// clip/resize, overlay compositing, transcoding) without the native
// library installed. See DESIGN.md for the cgo/stub split rationale.
type stubEngine struct {
	width, height int
	pixelRatio    float64
	cam           CameraOptions
	background    color.RGBA
}

// NewStubEngine constructs the always-available fallback Engine.
func NewStubEngine() (Engine, error) {
	return &stubEngine{pixelRatio: 1, background: color.RGBA{0xf0, 0xf0, 0xe8, 0xff}}, nil
}

// NewEngine is the Factory used by default builds (no maplibre build tag):
// the pure-Go stub.
func NewEngine() (Engine, error) {
	return NewStubEngine()
}

func (e *stubEngine) LoadStyle(styleJSON map[string]any) error {
	e.background = backgroundColorFromStyle(styleJSON)
	return nil
}

func (e *stubEngine) SetSize(width, height int, pixelRatio float64) {
	e.width, e.height = width, height
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	e.pixelRatio = pixelRatio
}

func (e *stubEngine) SetCamera(cam CameraOptions) {
	e.cam = cam
}

func (e *stubEngine) RenderStill(ctx context.Context) (*image.RGBA, error) {
	if e.width <= 0 || e.height <= 0 {
		return nil, fmt.Errorf("render: stub engine: size not set")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	w := int(float64(e.width) * e.pixelRatio)
	h := int(float64(e.height) * e.pixelRatio)
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, e.background)
		}
	}
	drawDebugGrid(img, e.cam.Zoom)

	return img, nil
}

func (e *stubEngine) Close() {}

// backgroundColorFromStyle reads the first "background" layer's
// "paint.background-color" as a hex string, falling back to a neutral gray.
func backgroundColorFromStyle(styleJSON map[string]any) color.RGBA {
	layers, ok := styleJSON["layers"].([]any)
	if !ok {
		return color.RGBA{0xf0, 0xf0, 0xe8, 0xff}
	}
	for _, l := range layers {
		layer, ok := l.(map[string]any)
		if !ok || layer["type"] != "background" {
			continue
		}
		paint, ok := layer["paint"].(map[string]any)
		if !ok {
			continue
		}
		if hex, ok := paint["background-color"].(string); ok {
			if c, ok := parseHexColor(hex); ok {
				return c
			}
		}
	}
	return color.RGBA{0xf0, 0xf0, 0xe8, 0xff}
}

func parseHexColor(s string) (color.RGBA, bool) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, false
	}
	var r, g, b int
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 0xff}, true
}

// drawDebugGrid stamps a sparse grid so rendered output visibly varies by
// position (useful for tests asserting "the image is not a flat color").
func drawDebugGrid(img *image.RGBA, zoom float64) {
	bounds := img.Bounds()
	step := bounds.Dx() / 8
	if step <= 0 {
		return
	}
	line := color.RGBA{0, 0, 0, 40}
	for x := bounds.Min.X; x < bounds.Max.X; x += step {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			img.Set(x, y, line)
		}
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.Set(x, y, line)
		}
	}
}
