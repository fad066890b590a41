//go:build cgo && maplibre

package render

/*
#cgo pkg-config: maplibre-native-core
#include <stdlib.h>
#include <mln_headless.h>
*/
import "C"

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"unsafe"
)

// cgoEngine binds internal/render.Engine to MapLibre Native's headless
// frontend via cgo, mirroring go-mapnik's Map/Resize/RenderToMemoryPng
// shape one-for-one translated to MapLibre's camera-based API.
type cgoEngine struct {
	handle C.mln_map_t
}

// NewCGOEngine constructs the real MapLibre Native-backed Engine. Requires
// the maplibre-native-core package to be available to pkg-config at build
// time, and CGO_ENABLED=1 plus the "maplibre" build tag.
func NewCGOEngine() (Engine, error) {
	h := C.mln_map_new()
	if h == nil {
		return nil, fmt.Errorf("render: failed to create maplibre native map")
	}
	return &cgoEngine{handle: h}, nil
}

func (e *cgoEngine) LoadStyle(styleJSON map[string]any) error {
	data, err := json.Marshal(styleJSON)
	if err != nil {
		return fmt.Errorf("render: marshal style: %w", err)
	}
	cstr := C.CString(string(data))
	defer C.free(unsafe.Pointer(cstr))
	if rc := C.mln_map_load_style_json(e.handle, cstr); rc != 0 {
		return fmt.Errorf("render: load style failed (rc=%d)", int(rc))
	}
	return nil
}

func (e *cgoEngine) SetSize(width, height int, pixelRatio float64) {
	C.mln_map_set_size(e.handle, C.int(width), C.int(height), C.double(pixelRatio))
}

func (e *cgoEngine) SetCamera(cam CameraOptions) {
	C.mln_map_set_camera(
		e.handle,
		C.double(cam.CenterLon), C.double(cam.CenterLat),
		C.double(cam.Zoom), C.double(cam.Bearing), C.double(cam.Pitch),
		C.double(cam.EdgeInsets.Top), C.double(cam.EdgeInsets.Right),
		C.double(cam.EdgeInsets.Bottom), C.double(cam.EdgeInsets.Left),
	)
}

func (e *cgoEngine) RenderStill(ctx context.Context) (*image.RGBA, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var w, h C.int
	var pix *C.uint8_t
	rc := C.mln_map_render_still(e.handle, &pix, &w, &h)
	if rc != 0 || pix == nil {
		return nil, fmt.Errorf("render: render still failed (rc=%d)", int(rc))
	}
	defer C.mln_map_free_buffer(pix)

	width, height := int(w), int(h)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	src := unsafe.Slice((*byte)(unsafe.Pointer(pix)), width*height*4)
	copy(img.Pix, src)
	return img, nil
}

// NewEngine is the Factory used when built with `-tags maplibre` and cgo
// enabled: the real MapLibre Native binding.
func NewEngine() (Engine, error) {
	return NewCGOEngine()
}

func (e *cgoEngine) Close() {
	if e.handle != nil {
		C.mln_map_destroy(e.handle)
		e.handle = nil
	}
}
