package render

import (
	"context"
	"testing"
)

func TestStubEngineRendersRequestedSize(t *testing.T) {
	eng, err := NewStubEngine()
	if err != nil {
		t.Fatalf("NewStubEngine: %v", err)
	}
	defer eng.Close()

	if err := eng.LoadStyle(map[string]any{
		"layers": []any{
			map[string]any{"type": "background", "paint": map[string]any{"background-color": "#112233"}},
		},
	}); err != nil {
		t.Fatalf("LoadStyle: %v", err)
	}

	eng.SetSize(64, 64, 2)
	eng.SetCamera(CameraOptions{CenterLon: 0, CenterLat: 0, Zoom: 3})

	img, err := eng.RenderStill(context.Background())
	if err != nil {
		t.Fatalf("RenderStill: %v", err)
	}
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 128 {
		t.Errorf("image size = %v, want 128x128 (64*scale2)", img.Bounds())
	}
}

func TestStubEngineRespectsContextCancellation(t *testing.T) {
	eng, err := NewStubEngine()
	if err != nil {
		t.Fatalf("NewStubEngine: %v", err)
	}
	defer eng.Close()
	eng.SetSize(16, 16, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.RenderStill(ctx); err == nil {
		t.Error("expected RenderStill to observe a cancelled context")
	}
}

func TestStubEngineRequiresSize(t *testing.T) {
	eng, err := NewStubEngine()
	if err != nil {
		t.Fatalf("NewStubEngine: %v", err)
	}
	defer eng.Close()

	if _, err := eng.RenderStill(context.Background()); err == nil {
		t.Error("expected error when size was never set")
	}
}
