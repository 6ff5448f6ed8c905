package export_test

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/mnist-api/internal/digit"
	"github.com/Brownie44l1/mnist-api/internal/export"
)

func filled(v float32) *digit.Tensor {
	var t digit.Tensor
	for i := range t {
		t[i] = v
	}
	return &t
}

func TestDenormalize(t *testing.T) {
	for _, px := range export.Denormalize(filled(1)).Pix {
		require.Equal(t, uint8(255), px)
	}
	for _, px := range export.Denormalize(filled(0)).Pix {
		require.Equal(t, uint8(0), px)
	}

	img := export.Denormalize(&digit.Tensor{0.5, 1.2, -0.1})
	assert.Equal(t, uint8(127), img.Pix[0])
	assert.Equal(t, uint8(255), img.Pix[1])
	assert.Equal(t, uint8(0), img.Pix[2])
	assert.Equal(t, digit.Size, img.Bounds().Dx())
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)
	assert.Equal(t, "20240309_070502_label7.png", export.FileName(now, 7))

	label, ok := export.ParseLabel("20240309_070502_label7.png")
	assert.True(t, ok)
	assert.Equal(t, 7, label)

	_, ok = export.ParseLabel("notes.png")
	assert.False(t, ok)
}

func TestStore_SaveWritesPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saved")
	s := export.NewStore(dir)

	now := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)
	path, err := s.Save(filled(1), 4, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240309_070502_label4.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, digit.Size, img.Bounds().Dx())
	r, _, _, _ := img.At(3, 3).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestStore_RecentNewestFirst(t *testing.T) {
	s := export.NewStore(t.TempDir())
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.Save(filled(0), i, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "readme.txt"), []byte("x"), 0o644))

	recent, err := s.Recent(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "20240101_120004_label4.png", recent[0].Name)
	assert.Equal(t, 4, recent[0].Label)
	assert.Equal(t, 2, recent[2].Label)
}

func TestStore_RecentMissingDir(t *testing.T) {
	recent, err := export.NewStore(filepath.Join(t.TempDir(), "nope")).Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestStore_SaveSameSecondKeepsBoth(t *testing.T) {
	s := export.NewStore(t.TempDir())
	now := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)

	first, err := s.Save(filled(1), 4, now)
	require.NoError(t, err)
	second, err := s.Save(filled(0), 4, now)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(s.Dir, "20240309_070502_label4_1.png"), second)

	recent, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "20240309_070502_label4_1.png", recent[0].Name)
	assert.Equal(t, 4, recent[0].Label)
	assert.Equal(t, 4, recent[1].Label)
}
