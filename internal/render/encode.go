package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/webp"
)

// EncodeImage encodes img in the requested raster format at the configured
// quality (§4.6, §4.7: "Encode with the requested format at the configured
// quality"). format is one of "png", "jpeg"/"jpg", "webp".
func EncodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("render: encode png: %w", err)
		}
	case "jpeg", "jpg":
		if quality <= 0 {
			quality = 80
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("render: encode jpeg: %w", err)
		}
	case "webp":
		if quality <= 0 {
			quality = 80
		}
		if err := webp.Encode(&buf, img, webp.Options{Quality: float32(quality)}); err != nil {
			return nil, fmt.Errorf("render: encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("render: unsupported output format %q", format)
	}
	return buf.Bytes(), nil
}
