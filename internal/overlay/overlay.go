// Package overlay parses the path/marker query grammar (§4.7) and turns the
// result into drawable primitives over a rendered basemap.
package overlay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kartoza/tileserve/internal/tilemath"
)

// Path is one `path=` query parameter, parsed.
type Path struct {
	Points      []Point
	Fill        string
	Stroke      string
	Width       float64
	HasWidth    bool
	LineCap     string
	LineJoin    string
	Border         string
	BorderWidth    float64
	HasBorderWidth bool
}

// Point is a projected-or-not (lon, lat) pair.
type Point struct {
	Lon, Lat float64
}

// Marker is one `marker=` query parameter, parsed.
type Marker struct {
	Point      Point
	IconPath   string
	Scale      float64
	OffsetX    float64
	OffsetY    float64
}

// Defaults holds the top-level query-param overlay defaults (§4.7).
type Defaults struct {
	Fill        string
	Stroke      string
	Width       float64
	LineCap     string
	LineJoin    string
	Border      string
	BorderWidth float64
	Padding     float64
	MaxZoom     float64
}

// DefaultDefaults returns the zero-state defaults before any query
// parameter override: no global fill (so paths are stroked unless a fill is
// given), stroke #0040ffb2, no border, strokeCap butt, strokeJoin miter.
func DefaultDefaults() Defaults {
	return Defaults{
		Fill:    "",
		Stroke:  "#0040ffb2",
		LineCap: "butt",
		LineJoin: "miter",
		Border:  "",
		Padding: 0.1,
		MaxZoom: 22,
	}
}

// ParsePath parses one `path=` value: up to 8 `name:value|` property pairs
// followed by either `enc:<polyline>` or a `|`-joined coordinate list
// (§4.7). The `latlng` property, if present, swaps coordinate order for the
// plain coordinate-list form.
func ParsePath(raw string) (Path, error) {
	segments := strings.Split(raw, "|")

	props := map[string]string{}
	i := 0
	for i < len(segments) && i < 8 {
		kv := strings.SplitN(segments[i], ":", 2)
		if len(kv) != 2 || !isPathPropertyKey(kv[0]) {
			break
		}
		props[kv[0]] = kv[1]
		i++
	}

	p := Path{
		Fill:    props["fill"],
		Stroke:  props["stroke"],
		LineCap: props["linecap"],
		Border:  props["border"],
	}
	if w, ok := props["width"]; ok {
		v, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return Path{}, fmt.Errorf("overlay: invalid path width %q", w)
		}
		p.Width, p.HasWidth = v, true
	}
	if bw, ok := props["borderwidth"]; ok {
		v, err := strconv.ParseFloat(bw, 64)
		if err != nil {
			return Path{}, fmt.Errorf("overlay: invalid path borderWidth %q", bw)
		}
		p.BorderWidth, p.HasBorderWidth = v, true
	}
	// §9 resolved Open Question: "linejoin key for linejoin" is the correct
	// reading, not the source's linecap-for-linejoin mix-up.
	p.LineJoin = props["linejoin"]

	remainder := strings.Join(segments[i:], "|")
	if remainder == "" {
		return Path{}, fmt.Errorf("overlay: path has no coordinates")
	}

	if strings.HasPrefix(remainder, "enc:") {
		points, err := tilemath.DecodePolyline(strings.TrimPrefix(remainder, "enc:"))
		if err != nil {
			return Path{}, fmt.Errorf("overlay: %w", err)
		}
		for _, pt := range points {
			p.Points = append(p.Points, Point{Lon: pt[0], Lat: pt[1]})
		}
		return p, nil
	}

	swapLatLng := props["latlng"] != ""
	for _, coord := range strings.Split(remainder, "|") {
		parts := strings.SplitN(coord, ",", 2)
		if len(parts) != 2 {
			return Path{}, fmt.Errorf("overlay: invalid path coordinate %q", coord)
		}
		a, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		b, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return Path{}, fmt.Errorf("overlay: invalid path coordinate %q", coord)
		}
		lon, lat := a, b
		if swapLatLng {
			lon, lat = b, a
		}
		p.Points = append(p.Points, Point{Lon: lon, Lat: lat})
	}
	if len(p.Points) < 2 {
		return Path{}, fmt.Errorf("overlay: path needs at least 2 points")
	}
	return p, nil
}

func isPathPropertyKey(k string) bool {
	switch k {
	case "latlng", "fill", "stroke", "width", "linecap", "linejoin", "border", "borderwidth":
		return true
	default:
		return false
	}
}

// ParseMarker parses one `marker=` value: `<lon>,<lat>|<iconPath>` followed
// by up to two `scale:<f>` / `offset:<dx>,<dy>` properties (§4.7).
func ParseMarker(raw string, allowRemote bool) (Marker, bool, error) {
	segments := strings.Split(raw, "|")
	if len(segments) < 2 {
		return Marker{}, false, fmt.Errorf("overlay: invalid marker %q", raw)
	}

	coord := strings.SplitN(segments[0], ",", 2)
	if len(coord) != 2 {
		return Marker{}, false, fmt.Errorf("overlay: invalid marker coordinate %q", segments[0])
	}
	lon, err1 := strconv.ParseFloat(strings.TrimSpace(coord[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(coord[1]), 64)
	if err1 != nil || err2 != nil {
		return Marker{}, false, fmt.Errorf("overlay: invalid marker coordinate %q", segments[0])
	}

	m := Marker{Point: Point{Lon: lon, Lat: lat}, IconPath: segments[1], Scale: 1}

	if isRemoteIcon(m.IconPath) && !allowRemote {
		return Marker{}, false, nil // silently omitted per S6
	}

	for _, seg := range segments[2:] {
		kv := strings.SplitN(seg, ":", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "scale":
			v, err := strconv.ParseFloat(kv[1], 64)
			if err != nil {
				return Marker{}, false, fmt.Errorf("overlay: invalid marker scale %q", kv[1])
			}
			m.Scale = v
		case "offset":
			parts := strings.SplitN(kv[1], ",", 2)
			if len(parts) != 2 {
				return Marker{}, false, fmt.Errorf("overlay: invalid marker offset %q", kv[1])
			}
			dx, err1 := strconv.ParseFloat(parts[0], 64)
			dy, err2 := strconv.ParseFloat(parts[1], 64)
			if err1 != nil || err2 != nil {
				return Marker{}, false, fmt.Errorf("overlay: invalid marker offset %q", kv[1])
			}
			m.OffsetX, m.OffsetY = dx, dy
		}
	}

	return m, true, nil
}

func isRemoteIcon(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// BBox returns the bounding box of every vertex across paths and markers,
// per §9's resolved Open Question: all overlay vertices contribute.
func BBox(paths []Path, markers []Marker) (lonMin, latMin, lonMax, latMax float64, ok bool) {
	var pts [][2]float64
	for _, p := range paths {
		for _, pt := range p.Points {
			pts = append(pts, [2]float64{pt.Lon, pt.Lat})
		}
	}
	for _, m := range markers {
		pts = append(pts, [2]float64{m.Point.Lon, m.Point.Lat})
	}
	return tilemath.BBoxOfPoints(pts)
}
