// Package imagequality scores uploaded images for sharpness, exposure and contrast.
//
// Sub-scores are each normalized to [0,1] and averaged into a composite
// quality score. Analysis is advisory: images that cannot be decoded receive
// neutral metrics instead of failing the caller.
package imagequality

import (
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/tphakala/trapwatch/internal/detection"
)

// Config holds the analyzer thresholds.
type Config struct {
	BlurThreshold        float64 // Laplacian variance below which an image is blurry
	DarkThreshold        float64 // Mean luma below which an image is too dark
	BrightThreshold      float64 // Mean luma above which an image is overexposed
	LowContrastThreshold float64 // Luma standard deviation below which contrast is low
	GoodQualityScore     float64 // Composite score at or above which quality is good
	MaxDimension         int     // Larger images are down-scaled before analysis, 0 disables
	MaxPixels            int64   // Larger images are not decoded and get neutral metrics
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		BlurThreshold:        100,
		DarkThreshold:        20,
		BrightThreshold:      240,
		LowContrastThreshold: 10,
		GoodQualityScore:     0.7,
		MaxDimension:         1024,
		MaxPixels:            DefaultMaxPixels,
	}
}

const (
	sharpnessScale = 200.0 // Laplacian variance mapped to sharpness 1.0
	contrastScale  = 50.0  // Luma standard deviation mapped to contrast 1.0
	exposureRamp   = 50.0  // Width of the linear ramp at both exposure limits
)

// Analyzer computes ImageQualityMetrics. It is immutable and safe for concurrent use.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an analyzer; zero fields in cfg take their default values.
func NewAnalyzer(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.BlurThreshold <= 0 {
		cfg.BlurThreshold = def.BlurThreshold
	}
	if cfg.DarkThreshold <= 0 {
		cfg.DarkThreshold = def.DarkThreshold
	}
	if cfg.BrightThreshold <= 0 {
		cfg.BrightThreshold = def.BrightThreshold
	}
	if cfg.LowContrastThreshold <= 0 {
		cfg.LowContrastThreshold = def.LowContrastThreshold
	}
	if cfg.GoodQualityScore <= 0 {
		cfg.GoodQualityScore = def.GoodQualityScore
	}
	if cfg.MaxDimension < 0 {
		cfg.MaxDimension = 0
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = def.MaxPixels
	}
	return &Analyzer{cfg: cfg}
}

// AnalyzeBytes decodes data and analyzes it. On decode failure it returns the
// neutral metrics together with the decode error so the caller can log it.
func (a *Analyzer) AnalyzeBytes(data []byte) (detection.ImageQualityMetrics, image.Image, error) {
	img, _, err := DecodeLimited(data, a.cfg.MaxPixels)
	if err != nil {
		return detection.NeutralQuality(), nil, err
	}
	return a.Analyze(img), img, nil
}

// Analyze scores a decoded image.
func (a *Analyzer) Analyze(img image.Image) detection.ImageQualityMetrics {
	if img == nil || img.Bounds().Empty() {
		return detection.NeutralQuality()
	}

	bounds := img.Bounds()
	m := detection.ImageQualityMetrics{
		Analyzed: true,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}

	if limit := a.cfg.MaxDimension; limit > 0 && (bounds.Dx() > limit || bounds.Dy() > limit) {
		img = resize.Thumbnail(uint(limit), uint(limit), img, resize.Bilinear)
	}

	plane := newLumaPlane(img)
	m.Brightness, m.Contrast = plane.meanStdDev()
	m.BlurScore = plane.laplacianVariance()

	m.IsBlurry = m.BlurScore < a.cfg.BlurThreshold
	m.IsTooDark = m.Brightness < a.cfg.DarkThreshold
	m.IsOverexposed = m.Brightness > a.cfg.BrightThreshold
	m.IsLowContrast = m.Contrast < a.cfg.LowContrastThreshold

	sharpness := detection.Clamp01(m.BlurScore / sharpnessScale)
	exposure := a.exposureScore(m.Brightness)
	contrast := detection.Clamp01(m.Contrast / contrastScale)

	m.QualityScore = detection.Clamp01((sharpness + exposure + contrast) / 3)
	m.IsGoodQuality = m.QualityScore >= a.cfg.GoodQualityScore
	return m
}

// exposureScore is 1 inside the comfortable band, 0 beyond the dark and bright
// limits, and linear in between.
func (a *Analyzer) exposureScore(brightness float64) float64 {
	low, high := a.cfg.DarkThreshold, a.cfg.BrightThreshold
	switch {
	case brightness < low || brightness > high:
		return 0
	case brightness < low+exposureRamp:
		return (brightness - low) / exposureRamp
	case brightness > high-exposureRamp:
		return (high - brightness) / exposureRamp
	default:
		return 1
	}
}

// lumaPlane holds Rec. 601 luma values in row-major order.
type lumaPlane struct {
	w, h int
	pix  []float64
}

func newLumaPlane(img image.Image) *lumaPlane {
	b := img.Bounds()
	p := &lumaPlane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < p.h; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+p.w]
			for x, v := range row {
				p.pix[y*p.w+x] = float64(v)
			}
		}
		return p
	}

	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			p.pix[y*p.w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}
	return p
}

func (p *lumaPlane) meanStdDev() (mean, std float64) {
	if len(p.pix) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range p.pix {
		sum += v
	}
	mean = sum / float64(len(p.pix))

	var sq float64
	for _, v := range p.pix {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(p.pix)))
}

// laplacianVariance applies the 4-neighbour Laplacian kernel to interior pixels
// and returns the variance of the response. Images under 3x3 return 0.
func (p *lumaPlane) laplacianVariance() float64 {
	if p.w < 3 || p.h < 3 {
		return 0
	}
	n := float64((p.w - 2) * (p.h - 2))
	var sum, sq float64
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			i := y*p.w + x
			l := p.pix[i-p.w] + p.pix[i+p.w] + p.pix[i-1] + p.pix[i+1] - 4*p.pix[i]
			sum += l
			sq += l * l
		}
	}
	mean := sum / n
	return sq/n - mean*mean
}
