package imagequality

import (
	"bytes"
	"fmt"
	"image"

	// Registered decoders for formats camera traps upload
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tphakala/trapwatch/internal/errors"
)

// DefaultMaxPixels bounds the decoded raster of an upload, 40 megapixels.
const DefaultMaxPixels = 40_000_000

// Decode decodes an uploaded image with the default pixel limit.
func Decode(data []byte) (image.Image, string, error) {
	return DecodeLimited(data, DefaultMaxPixels)
}

// DecodeLimited decodes an uploaded image and returns it with its format
// name. The header is checked first and images with more than maxPixels
// pixels are refused without decoding the raster. maxPixels <= 0 disables
// the check.
func DecodeLimited(data []byte, maxPixels int64) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.Newf("image data is empty").
			Component("imagequality").
			Category(errors.CategoryImageDecode).
			Build()
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", decodeError(err, len(data))
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && pixels > maxPixels {
		return nil, "", errors.Newf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels).
			Component("imagequality").
			Category(errors.CategoryImageDecode).
			Context("format", format).
			Context("width", cfg.Width).
			Context("height", cfg.Height).
			Build()
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", decodeError(err, len(data))
	}
	return img, format, nil
}

func decodeError(err error, size int) error {
	return errors.New(fmt.Errorf("decode image: %w", err)).
		Component("imagequality").
		Category(errors.CategoryImageDecode).
		Context("size_bytes", size).
		Build()
}
