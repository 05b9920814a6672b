package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// Checkerboard returns a grayscale checkerboard with the given cell size and
// alternating luma values. With strongly differing values it scores as a sharp,
// well exposed, high contrast frame.
func Checkerboard(size, cell int, a, b uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := a
			if (x/cell+y/cell)%2 == 1 {
				v = b
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// Uniform returns a single-colour grayscale image.
func Uniform(size int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// EncodePNG encodes img as PNG.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// GoodImage returns an encoded 64x64 checkerboard of good quality.
func GoodImage(t testing.TB) []byte {
	t.Helper()
	return EncodePNG(t, Checkerboard(64, 8, 60, 200))
}
