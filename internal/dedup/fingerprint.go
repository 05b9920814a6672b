package dedup

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"

	"github.com/tphakala/trapwatch/internal/errors"
)

// Fingerprinter computes and compares perceptual image fingerprints.
type Fingerprinter interface {
	// Fingerprint returns a serialized fingerprint of img.
	Fingerprint(img image.Image) (string, error)
	// Similarity compares two serialized fingerprints, 1.0 means identical.
	Similarity(a, b string) (float64, error)
}

// PHash is a 64-bit DCT perceptual hash fingerprinter.
type PHash struct{}

const phashBits = 64

// Fingerprint implements Fingerprinter.
func (PHash) Fingerprint(img image.Image) (string, error) {
	if img == nil {
		return "", errors.Newf("nil image").Component("dedup").Category(errors.CategoryImageDecode).Build()
	}
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", errors.New(fmt.Errorf("perceptual hash: %w", err)).
			Component("dedup").
			Category(errors.CategoryImageDecode).
			Build()
	}
	return h.ToString(), nil
}

// Similarity implements Fingerprinter as 1 - hamming distance / 64.
func (PHash) Similarity(a, b string) (float64, error) {
	ha, err := goimagehash.ImageHashFromString(a)
	if err != nil {
		return 0, errors.New(fmt.Errorf("parse fingerprint %q: %w", a, err)).Component("dedup").Category(errors.CategoryValidation).Build()
	}
	hb, err := goimagehash.ImageHashFromString(b)
	if err != nil {
		return 0, errors.New(fmt.Errorf("parse fingerprint %q: %w", b, err)).Component("dedup").Category(errors.CategoryValidation).Build()
	}
	dist, err := ha.Distance(hb)
	if err != nil {
		return 0, errors.New(fmt.Errorf("compare fingerprints: %w", err)).Component("dedup").Category(errors.CategoryValidation).Build()
	}
	return 1 - float64(dist)/phashBits, nil
}
