package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	polyclip "github.com/ctessum/polyclip-go"
	imagedraw "golang.org/x/image/draw"
)

// ScreenPoint is a projected pixel coordinate, Y already flipped to image
// space (§4.7: "flipping Y: y' = H - y").
type ScreenPoint struct {
	X, Y float64
}

// Projector maps a geographic point to a screen pixel using the renderer's
// post-render transform state.
type Projector func(Point) ScreenPoint

// ProjectPath projects every vertex of a path to screen space and closes
// the ring if the first and last point coincide (§4.7).
func ProjectPath(p Path, project Projector) polyclip.Polygon {
	contour := make(polyclip.Contour, 0, len(p.Points))
	for _, pt := range p.Points {
		sp := project(pt)
		contour = append(contour, polyclip.Point{X: sp.X, Y: sp.Y})
	}
	if len(contour) > 1 && contour[0] == contour[len(contour)-1] {
		contour = contour[:len(contour)-1]
	}
	// Construct() resolves self-intersections so the fill below never
	// double-paints a self-crossing ring (§4.7: "close it ... the same
	// polygon machinery gpkg_store.go already uses for ... union/difference").
	return polyclip.Polygon{contour}.Construct(polyclip.UNION, polyclip.Polygon{contour})
}

// DrawPath composites one path onto dst following the fill/stroke/border
// rules in §4.7.
func DrawPath(dst draw.Image, p Path, defaults Defaults, project Projector) {
	poly := ProjectPath(p, project)
	if len(poly) == 0 || len(poly[0]) == 0 {
		return
	}

	fillColor := firstNonEmpty(p.Fill, defaults.Fill)
	// "Fill-draw if global fill is set OR the path carries fill: ...
	// no stroke" (§4.7).
	if fillColor != "" {
		fillPolygon(dst, poly[0], parseColor(fillColor))
		return
	}

	strokeColor := firstNonEmpty(p.Stroke, defaults.Stroke)
	width := defaults.Width
	if p.HasWidth {
		width = p.Width
	}
	if width <= 0 {
		width = 1
	}

	borderColor := firstNonEmpty(p.Border, defaults.Border)
	if borderColor != "" {
		borderWidth := defaults.BorderWidth
		if p.HasBorderWidth {
			borderWidth = p.BorderWidth
		}
		if borderWidth <= 0 {
			borderWidth = width * 0.1
		}
		strokePolyline(dst, poly[0], parseColor(borderColor), width+2*borderWidth)
	}
	strokePolyline(dst, poly[0], parseColor(strokeColor), width)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// fillPolygon does an even-odd scanline fill of a single contour.
func fillPolygon(dst draw.Image, contour polyclip.Contour, c color.Color) {
	if len(contour) < 3 {
		return
	}
	bounds := dst.Bounds()
	minY, maxY := bounds.Max.Y, bounds.Min.Y
	for _, pt := range contour {
		if int(pt.Y) < minY {
			minY = int(pt.Y)
		}
		if int(pt.Y) > maxY {
			maxY = int(pt.Y)
		}
	}
	if minY < bounds.Min.Y {
		minY = bounds.Min.Y
	}
	if maxY > bounds.Max.Y {
		maxY = bounds.Max.Y
	}

	n := len(contour)
	for y := minY; y <= maxY; y++ {
		fy := float64(y) + 0.5
		var xs []float64
		for i := 0; i < n; i++ {
			a, b := contour[i], contour[(i+1)%n]
			if (a.Y <= fy && b.Y > fy) || (b.Y <= fy && a.Y > fy) {
				t := (fy - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		sortFloats(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := int(math.Round(xs[i])), int(math.Round(xs[i+1]))
			span := image.Rect(x0, y, x1, y+1).Intersect(bounds)
			if span.Empty() {
				continue
			}
			// Over-composite rather than replace, so a semi-transparent
			// fill (e.g. #ffffff66) blends with the basemap
			// underneath instead of overwriting it (§4.7).
			draw.Draw(dst, span, &image.Uniform{C: c}, image.Point{}, draw.Over)
		}
	}
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// strokePolyline draws a width-pixel line along the contour's edges.
func strokePolyline(dst draw.Image, contour polyclip.Contour, c color.Color, width float64) {
	n := len(contour)
	for i := 0; i < n; i++ {
		a, b := contour[i], contour[(i+1)%n]
		drawThickLine(dst, a.X, a.Y, b.X, b.Y, width, c)
	}
}

func drawThickLine(dst draw.Image, x0, y0, x1, y1, width float64, c color.Color) {
	half := width / 2
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*half, dx/length*half

	contour := polyclip.Contour{
		{X: x0 + nx, Y: y0 + ny},
		{X: x1 + nx, Y: y1 + ny},
		{X: x1 - nx, Y: y1 - ny},
		{X: x0 - nx, Y: y0 - ny},
	}
	fillPolygon(dst, contour, c)
}

// DrawMarker composites an icon bitmap centered with bottom-center anchor
// plus optional offset, scaled, using antialiased sampling (§4.7).
func DrawMarker(dst draw.Image, m Marker, icon image.Image, scale float64, project Projector) {
	sp := project(m.Point)

	iw := float64(icon.Bounds().Dx()) * m.Scale
	ih := float64(icon.Bounds().Dy()) * m.Scale

	px := sp.X + (-iw/2+m.OffsetX)*scale
	py := sp.Y + (-ih+m.OffsetY)*scale

	destRect := image.Rect(int(px), int(py), int(px+iw*scale), int(py+ih*scale))
	imagedraw.CatmullRom.Scale(dst, destRect, icon, icon.Bounds(), imagedraw.Over, nil)
}

func parseColor(s string) color.Color {
	c, ok := parseHexRGBA(s)
	if !ok {
		return color.Transparent
	}
	return c
}

// parseHexRGBA parses #rrggbb or #rrggbbaa.
func parseHexRGBA(s string) (color.RGBA, bool) {
	if len(s) == 0 || s[0] != '#' {
		return color.RGBA{}, false
	}
	hex := s[1:]
	var r, g, b, a uint64 = 0, 0, 0, 255
	switch len(hex) {
	case 6:
		r = hexByte(hex[0:2])
		g = hexByte(hex[2:4])
		b = hexByte(hex[4:6])
	case 8:
		r = hexByte(hex[0:2])
		g = hexByte(hex[2:4])
		b = hexByte(hex[4:6])
		a = hexByte(hex[6:8])
	default:
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), uint8(a)}, true
}

func hexByte(s string) uint64 {
	var v uint64
	for _, ch := range s {
		v <<= 4
		switch {
		case ch >= '0' && ch <= '9':
			v |= uint64(ch - '0')
		case ch >= 'a' && ch <= 'f':
			v |= uint64(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			v |= uint64(ch-'A') + 10
		}
	}
	return v
}
