package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/testutil"
)

func TestImageStoreSave(t *testing.T) {
	root := t.TempDir()
	store := NewImageStore(root)
	ts := time.Date(2024, 11, 3, 22, 5, 9, 0, time.UTC)
	img := testutil.GoodImage(t)

	ref, err := store.Save("cam-1", ts, "Red Fox", 0.734, img)
	require.NoError(t, err)
	assert.Equal(t, "cam-1/2024/11/red_fox_73p_20241103T220509.png", ref)

	again, err := store.Save("cam-1", ts, "Red Fox", 0.734, img)
	require.NoError(t, err)
	assert.Equal(t, "cam-1/2024/11/red_fox_73p_20241103T220509_1.png", again)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, img, data)
}

func TestImageStoreNaming(t *testing.T) {
	store := NewImageStore(t.TempDir())
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	ref, err := store.Save("cam", ts, "  ", 0.5, []byte("not an image"))
	require.NoError(t, err)
	assert.Equal(t, "cam/2024/01/unknown_50p_20240102T030405.bin", ref)

	ref, err = store.Save("cam", ts, "Roe Deer (juvenile)", 1, testutil.GoodImage(t))
	require.NoError(t, err)
	assert.Equal(t, "cam/2024/01/roe_deer_juvenile_100p_20240102T030405.png", ref)
}

func TestImageStoreLoadAndRemove(t *testing.T) {
	store := NewImageStore(t.TempDir())
	ref, err := store.Save("cam", time.Now(), "Deer", 0.9, testutil.GoodImage(t))
	require.NoError(t, err)

	img, err := store.LoadImage(t.Context(), ref)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	require.NoError(t, store.Remove(ref))
	require.NoError(t, store.Remove(ref), "removing a missing image is not an error")

	_, err = store.LoadImage(t.Context(), ref)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestImageStoreRejectsEscapingRefs(t *testing.T) {
	store := NewImageStore(t.TempDir())
	for _, ref := range []string{"", "../outside.png", "/etc/passwd"} {
		_, err := store.LoadImage(t.Context(), ref)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation), ref)
		assert.True(t, errors.IsCategory(store.Remove(ref), errors.CategoryValidation), ref)
	}
}
