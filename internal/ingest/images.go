package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/imagequality"
)

const maxNameCollisions = 100

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// ImageStore writes saved event images below a root directory as
// <camera>/<yyyy>/<mm>/<species>_<pct>p_<ts>.<ext>. References are slash
// separated paths relative to the root.
type ImageStore struct {
	root string
}

// NewImageStore creates a store rooted at dir. The directory is created on
// first write.
func NewImageStore(dir string) *ImageStore {
	return &ImageStore{root: dir}
}

// Save writes data and returns its reference.
func (s *ImageStore) Save(cameraID string, ts time.Time, species string, confidence float64, data []byte) (string, error) {
	dir := filepath.Join(cameraID, ts.Format("2006"), ts.Format("01"))
	base := fmt.Sprintf("%s_%dp_%s", speciesSlug(species), int(confidence*100), ts.Format("20060102T150405"))
	ext := extension(data)

	if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
		return "", fileError(err, dir)
	}

	for i := range maxNameCollisions {
		name := base + "." + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d.%s", base, i, ext)
		}
		rel := filepath.Join(dir, name)
		f, err := os.OpenFile(filepath.Join(s.root, rel), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fileError(err, rel)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(filepath.Join(s.root, rel))
			return "", fileError(err, rel)
		}
		if err := f.Close(); err != nil {
			return "", fileError(err, rel)
		}
		return filepath.ToSlash(rel), nil
	}
	return "", errors.Newf("too many images named %s", base).
		Component("ingest").
		Category(errors.CategoryFileIO).
		Build()
}

// Remove deletes a stored image, used when persisting its detection fails.
func (s *ImageStore) Remove(ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fileError(err, ref)
	}
	return nil
}

// LoadImage implements dedup.ImageLoader.
func (s *ImageStore) LoadImage(_ context.Context, ref string) (image.Image, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileError(err, ref)
	}
	img, _, err := imagequality.Decode(data)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *ImageStore) path(ref string) (string, error) {
	rel := filepath.FromSlash(ref)
	if ref == "" || !filepath.IsLocal(rel) {
		return "", errors.Newf("invalid image reference %q", ref).
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}
	return filepath.Join(s.root, rel), nil
}

// speciesSlug turns a canonical label into a file name component.
func speciesSlug(species string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(species)), " ", "_")
	slug = strings.Trim(unsafeNameChars.ReplaceAllString(slug, ""), "_-")
	if slug == "" {
		return "unknown"
	}
	return slug
}

func extension(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	switch {
	case err != nil:
		return "bin"
	case format == "jpeg":
		return "jpg"
	default:
		return format
	}
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("ingest").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
