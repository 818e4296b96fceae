package codec

import (
	"bytes"
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

// ImageDimensions reads width and height from an encoded image header
// without decoding pixel data. Supported: jpeg, png, gif, bmp, webp.
func ImageDimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	return cfg.Width, cfg.Height, nil
}

// ImageFileDimensions reads dimensions from an image file on disk.
func ImageFileDimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	return cfg.Width, cfg.Height, nil
}
