package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/webp"
	"github.com/spf13/afero"
)

// IconLoader fetches and decodes a marker icon bitmap, either from the
// configured icons directory or, when allowed, a remote URL (§4.7
// "Markers: after fetching the icon bitmap (HTTP or from
// options.paths.icons)").
type IconLoader struct {
	fs       afero.Fs
	iconsDir string
	client   *http.Client
}

// NewIconLoader builds an IconLoader rooted at iconsDir for relative paths.
func NewIconLoader(fs afero.Fs, iconsDir string) *IconLoader {
	return &IconLoader{fs: fs, iconsDir: iconsDir, client: &http.Client{Timeout: 10 * time.Second}}
}

// Load fetches and decodes the icon bitmap at path, which is either an
// absolute http(s) URL or a path relative to the icons directory.
func (l *IconLoader) Load(ctx context.Context, path string) (image.Image, error) {
	var data []byte
	var err error

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		data, err = l.fetchRemote(ctx, path)
	} else {
		full := path
		if !filepath.IsAbs(full) {
			full = filepath.Join(l.iconsDir, path)
		}
		data, err = afero.ReadFile(l.fs, full)
	}
	if err != nil {
		return nil, fmt.Errorf("render: load icon %s: %w", path, err)
	}

	return decodeIcon(path, data)
}

func (l *IconLoader) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("icon fetch: status %d", resp.StatusCode)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeIcon(path string, data []byte) (image.Image, error) {
	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		return webp.Decode(bytes.NewReader(data))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
