package overlay

import (
	"image"
	"image/color"
	"testing"
)

func identityProjector(scale float64) Projector {
	return func(p Point) ScreenPoint {
		return ScreenPoint{X: p.Lon * scale, Y: p.Lat * scale}
	}
}

func TestParseHexRGBA(t *testing.T) {
	c, ok := parseHexRGBA("#ff0000")
	if !ok || c != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Errorf("#ff0000 = %v, %v", c, ok)
	}
	c2, ok := parseHexRGBA("#0040ffb2")
	if !ok || c2 != (color.RGBA{0x00, 0x40, 0xff, 0xb2}) {
		t.Errorf("#0040ffb2 = %v, %v", c2, ok)
	}
	if _, ok := parseHexRGBA("blue"); ok {
		t.Error("expected non-hex color string to fail")
	}
}

func TestDrawPathFillSkipsStroke(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	p := Path{
		Points: []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
		Fill:   "#ff0000ff",
		Stroke: "#00ff00ff",
	}
	DrawPath(dst, p, DefaultDefaults(), identityProjector(1))

	// Interior point should be fill-colored.
	if c := dst.RGBAAt(5, 5); c.R != 0xff || c.G != 0 {
		t.Errorf("interior = %v, want red fill", c)
	}
}

func TestDrawPathStrokesWhenNoFill(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	p := Path{
		Points:   []Point{{0, 5}, {19, 5}},
		Stroke:   "#ff0000ff",
		Width:    2,
		HasWidth: true,
	}
	DrawPath(dst, p, DefaultDefaults(), identityProjector(1))

	if c := dst.RGBAAt(10, 5); c.R != 0xff {
		t.Errorf("stroke pixel = %v, want red", c)
	}
	// Well away from the line, nothing should be drawn.
	if c := dst.RGBAAt(10, 19); c.A != 0 {
		t.Errorf("far pixel = %v, want transparent", c)
	}
}

func TestDrawMarkerCentersIconAtAnchor(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 40, 40))
	icon := image.NewRGBA(image.Rect(0, 0, 10, 10))
	red := color.RGBA{0xff, 0, 0, 0xff}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			icon.Set(x, y, red)
		}
	}

	m := Marker{Point: Point{20, 20}, Scale: 1}
	DrawMarker(dst, m, icon, 1, identityProjector(1))

	// Bottom-center anchor: the icon's bottom edge should sit at the
	// projected point, so a pixel just above (20,20) should be inside it.
	if c := dst.RGBAAt(20, 19); c.R != 0xff {
		t.Errorf("pixel above anchor = %v, want red icon", c)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	if got := firstNonEmpty("first", "second"); got != "first" {
		t.Errorf("got %q", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
