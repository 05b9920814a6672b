package imagequality

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/testutil"
)

func TestAnalyzeSharpCheckerboard(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	m := a.Analyze(testutil.Checkerboard(64, 8, 60, 200))

	assert.True(t, m.Analyzed)
	assert.InDelta(t, 130, m.Brightness, 0.01)
	assert.InDelta(t, 70, m.Contrast, 0.01)
	assert.Greater(t, m.BlurScore, 1000.0)
	assert.False(t, m.IsBlurry)
	assert.False(t, m.IsTooDark)
	assert.False(t, m.IsOverexposed)
	assert.False(t, m.IsLowContrast)
	assert.InDelta(t, 1.0, m.QualityScore, 1e-9)
	assert.True(t, m.IsGoodQuality)
	assert.Equal(t, 64, m.Width)
	assert.Equal(t, 64, m.Height)
}

func TestAnalyzeFlatImages(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	tests := []struct {
		name        string
		value       uint8
		wantScore   float64
		tooDark     bool
		overexposed bool
	}{
		{"mid gray", 128, 1.0 / 3, false, false},
		{"black", 5, 0, true, false},
		{"white", 250, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := a.Analyze(testutil.Uniform(32, tt.value))

			assert.InDelta(t, tt.wantScore, m.QualityScore, 1e-9)
			assert.InDelta(t, 0, m.BlurScore, 1e-9)
			assert.True(t, m.IsBlurry)
			assert.True(t, m.IsLowContrast)
			assert.Equal(t, tt.tooDark, m.IsTooDark)
			assert.Equal(t, tt.overexposed, m.IsOverexposed)
			assert.False(t, m.IsGoodQuality)
		})
	}
}

func TestExposureScoreRamps(t *testing.T) {
	a := NewAnalyzer(Config{})

	assert.InDelta(t, 0, a.exposureScore(19.9), 1e-9)
	assert.InDelta(t, 0.5, a.exposureScore(45), 1e-9)
	assert.InDelta(t, 1, a.exposureScore(70), 1e-9)
	assert.InDelta(t, 1, a.exposureScore(180), 1e-9)
	assert.InDelta(t, 0.5, a.exposureScore(215), 1e-9)
	assert.InDelta(t, 0, a.exposureScore(240.1), 1e-9)
}

func TestAnalyzeColorImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}

	m := NewAnalyzer(DefaultConfig()).Analyze(img)

	assert.InDelta(t, 100, m.Brightness, 0.01)
}

func TestAnalyzeDownscalesLargeImages(t *testing.T) {
	a := NewAnalyzer(Config{MaxDimension: 32})

	m := a.Analyze(testutil.Checkerboard(128, 16, 60, 200))

	assert.True(t, m.Analyzed)
	assert.Equal(t, 128, m.Width)
	assert.InDelta(t, 130, m.Brightness, 2)
}

func TestAnalyzeBytesNeutralOnDecodeFailure(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	for name, data := range map[string][]byte{"empty": nil, "garbage": []byte("not an image")} {
		t.Run(name, func(t *testing.T) {
			m, img, err := a.AnalyzeBytes(data)

			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
			assert.Nil(t, img)
			assert.Equal(t, 0.5, m.QualityScore)
			assert.False(t, m.Analyzed)
			assert.False(t, m.IsBlurry)
			assert.False(t, m.IsGoodQuality)
		})
	}
}

func TestAnalyzeBytesDecodesBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testutil.Checkerboard(32, 4, 60, 200)))

	m, img, err := NewAnalyzer(DefaultConfig()).AnalyzeBytes(buf.Bytes())

	require.NoError(t, err)
	require.NotNil(t, img)
	assert.True(t, m.IsGoodQuality)
}

func TestAnalyzeTinyImage(t *testing.T) {
	m := NewAnalyzer(DefaultConfig()).Analyze(testutil.Uniform(2, 128))
	assert.True(t, m.Analyzed)
	assert.InDelta(t, 0, m.BlurScore, 0)
}

func TestAnalyzeBytesRefusesOversizedImages(t *testing.T) {
	data := testutil.EncodePNG(t, testutil.Uniform(200, 128))
	a := NewAnalyzer(Config{MaxPixels: 100 * 100})

	m, img, err := a.AnalyzeBytes(data)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
	assert.Contains(t, err.Error(), "200x200")
	assert.Nil(t, img)
	assert.Equal(t, 0.5, m.QualityScore)
	assert.False(t, m.Analyzed)

	_, img, err = NewAnalyzer(Config{MaxPixels: 200 * 200}).AnalyzeBytes(data)
	require.NoError(t, err, "exactly at the limit decodes")
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestDecodeChecksHeaderBeforeRaster(t *testing.T) {
	// 30000x30000 gray raster would need 900 MB; only the header is read.
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testutil.Uniform(4, 10)))
	data := buf.Bytes()
	// BITMAPINFOHEADER width and height live at offsets 18 and 22.
	binary.LittleEndian.PutUint32(data[18:], 30000)
	binary.LittleEndian.PutUint32(data[22:], 30000)

	_, _, err := Decode(data)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
	assert.Contains(t, err.Error(), "exceeds")
}

