package httpserver

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kartoza/tileserve/internal/overlay"
	"github.com/kartoza/tileserve/internal/render"
)

// staticSpec is a parsed `/static/...` path, before overlay query parameters
// are applied (§4.7).
type staticSpec struct {
	Mode render.ViewportMode
	Raw  bool // coordinates are EPSG:3857 meters, need reprojecting (§4.7)

	Lon, Lat, Zoom, Bearing, Pitch float64
	MinX, MinY, MaxX, MaxY         float64

	Width, Height int
	Scale         int
	Format        string
}

// parseStaticPath parses the path remainder after `/styles/<id>/static/`,
// e.g. `-1,-1,1,1/256x256@2x.png` or `auto/512x512.jpg` or
// `12.4,51.3,10@45,30/800x600.png` (§4.7's three endpoint families plus the
// optional `raw/` EPSG:3857 prefix).
func parseStaticPath(spec string) (staticSpec, error) {
	segments := strings.Split(strings.Trim(spec, "/"), "/")

	var out staticSpec
	if len(segments) > 0 && segments[0] == "raw" {
		out.Raw = true
		segments = segments[1:]
	}
	if len(segments) != 2 {
		return staticSpec{}, fmt.Errorf("static: expected <coords>/<size>.<fmt>, got %q", spec)
	}

	if err := parseStaticCoords(segments[0], &out); err != nil {
		return staticSpec{}, err
	}
	if err := parseStaticSize(segments[1], &out); err != nil {
		return staticSpec{}, err
	}
	return out, nil
}

func parseStaticCoords(coordSpec string, out *staticSpec) error {
	if coordSpec == "auto" {
		out.Mode = render.ViewportAuto
		return nil
	}

	main, attitude, hasAttitude := strings.Cut(coordSpec, "@")
	fields := strings.Split(main, ",")

	switch len(fields) {
	case 3:
		out.Mode = render.ViewportCenterZoom
		lon, err1 := strconv.ParseFloat(fields[0], 64)
		lat, err2 := strconv.ParseFloat(fields[1], 64)
		zoom, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return fmt.Errorf("static: invalid center/zoom %q", coordSpec)
		}
		out.Lon, out.Lat, out.Zoom = lon, lat, zoom

		if hasAttitude {
			attFields := strings.Split(attitude, ",")
			bearing, err := strconv.ParseFloat(attFields[0], 64)
			if err != nil {
				return fmt.Errorf("static: invalid bearing %q", attitude)
			}
			out.Bearing = bearing
			if len(attFields) > 1 {
				pitch, err := strconv.ParseFloat(attFields[1], 64)
				if err != nil {
					return fmt.Errorf("static: invalid pitch %q", attitude)
				}
				out.Pitch = pitch
			}
		}
		return nil

	case 4:
		out.Mode = render.ViewportBBox
		minX, err1 := strconv.ParseFloat(fields[0], 64)
		minY, err2 := strconv.ParseFloat(fields[1], 64)
		maxX, err3 := strconv.ParseFloat(fields[2], 64)
		maxY, err4 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return fmt.Errorf("static: invalid bbox %q", coordSpec)
		}
		out.MinX, out.MinY, out.MaxX, out.MaxY = minX, minY, maxX, maxY
		return nil

	default:
		return fmt.Errorf("static: unrecognized coordinate spec %q", coordSpec)
	}
}

func parseStaticSize(sizeSpec string, out *staticSpec) error {
	dims, format, ok := strings.Cut(sizeSpec, ".")
	if !ok || format == "" {
		return fmt.Errorf("static: missing format in %q", sizeSpec)
	}
	out.Format = format

	dims, scalePart, hasScale := strings.Cut(dims, "@")
	out.Scale = 1
	if hasScale {
		scalePart = strings.TrimSuffix(scalePart, "x")
		n, err := strconv.Atoi(scalePart)
		if err != nil || n <= 0 {
			return fmt.Errorf("static: invalid scale %q", scalePart)
		}
		out.Scale = n
	}

	w, h, ok := strings.Cut(dims, "x")
	if !ok {
		return fmt.Errorf("static: invalid size %q", dims)
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return fmt.Errorf("static: invalid size %q", dims)
	}
	out.Width, out.Height = width, height
	return nil
}

// reprojectIfRaw converts a raw-mode spec's viewport coordinates, plus every
// overlay path/marker vertex, from EPSG:3857 meters to EPSG:4326 degrees in
// place (§4.7: "any coordinate inputs are in EPSG:3857 meters and must be
// reprojected … overlay coordinates likewise").
func (s *staticSpec) reprojectIfRaw(paths []overlay.Path, markers []overlay.Marker) {
	if !s.Raw {
		return
	}
	switch s.Mode {
	case render.ViewportCenterZoom:
		s.Lon, s.Lat = reproject3857To4326(s.Lon, s.Lat)
	case render.ViewportBBox:
		s.MinX, s.MinY = reproject3857To4326(s.MinX, s.MinY)
		s.MaxX, s.MaxY = reproject3857To4326(s.MaxX, s.MaxY)
	}

	for i := range paths {
		for j := range paths[i].Points {
			paths[i].Points[j].Lon, paths[i].Points[j].Lat =
				reproject3857To4326(paths[i].Points[j].Lon, paths[i].Points[j].Lat)
		}
	}
	for i := range markers {
		markers[i].Point.Lon, markers[i].Point.Lat =
			reproject3857To4326(markers[i].Point.Lon, markers[i].Point.Lat)
	}
}

// reproject3857To4326 converts EPSG:3857 meters to EPSG:4326 degrees, for
// the `/static/raw/...` form and its overlay coordinates (§4.7: "any
// coordinate inputs are in EPSG:3857 meters and must be reprojected to
// EPSG:4326 before use").
func reproject3857To4326(x, y float64) (lon, lat float64) {
	const earthRadius = 6378137.0
	lon = x / earthRadius * 180 / math.Pi
	lat = 180 / math.Pi * (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2)
	return
}
