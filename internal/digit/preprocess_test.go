package digit_test

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/mnist-api/internal/digit"
)

func uniformCanvas(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func strokeCanvas() *image.RGBA {
	img := uniformCanvas(400, 400, color.White)
	draw.Draw(img, image.Rect(100, 100, 300, 300), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}

func TestPreprocess_WhiteCanvasIsAllZero(t *testing.T) {
	tensor, err := digit.Preprocess(uniformCanvas(400, 400, color.White), nil)
	require.NoError(t, err)
	for i, v := range tensor {
		require.Equalf(t, float32(0), v, "pixel %d", i)
	}
}

func TestPreprocess_BlackCanvasIsAllOne(t *testing.T) {
	tensor, err := digit.Preprocess(uniformCanvas(123, 77, color.Black), nil)
	require.NoError(t, err)
	for i, v := range tensor {
		require.Equalf(t, float32(1), v, "pixel %d", i)
	}
}

func TestPreprocess_TransparentCanvasReadsAsBackground(t *testing.T) {
	tensor, err := digit.Preprocess(image.NewRGBA(image.Rect(0, 0, 64, 64)), nil)
	require.NoError(t, err)
	for _, v := range tensor {
		require.Equal(t, float32(0), v)
	}
}

func TestPreprocess_StrokeIsInverted(t *testing.T) {
	tensor, err := digit.Preprocess(strokeCanvas(), nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 1, digit.Size, digit.Size}, tensor.Shape())
	assert.Equal(t, float32(1), tensor.At(14, 14))
	assert.Equal(t, float32(0), tensor.At(0, 0))
	assert.Equal(t, float32(0), tensor.At(27, 27))
}

func TestPreprocess_Deterministic(t *testing.T) {
	img := strokeCanvas()
	first, err := digit.Preprocess(img, nil)
	require.NoError(t, err)
	second, err := digit.Preprocess(img, nil)
	require.NoError(t, err)
	assert.Equal(t, *first, *second)
}

func TestPreprocess_AllResamplersStayInRange(t *testing.T) {
	for _, name := range digit.ResamplerNames() {
		t.Run(name, func(t *testing.T) {
			r, err := digit.ResamplerByName(name)
			require.NoError(t, err)

			tensor, err := digit.Preprocess(strokeCanvas(), r)
			require.NoError(t, err)
			require.Len(t, tensor[:], digit.Size*digit.Size)
			for _, v := range tensor {
				require.GreaterOrEqual(t, v, float32(0))
				require.LessOrEqual(t, v, float32(1))
			}
		})
	}
}

func TestPreprocess_InvalidInput(t *testing.T) {
	_, err := digit.Preprocess(nil, nil)
	require.ErrorIs(t, err, digit.ErrInvalidInput)

	_, err = digit.Preprocess(image.NewGray(image.Rect(0, 0, 0, 10)), nil)
	require.ErrorIs(t, err, digit.ErrInvalidInput)
}

func TestResamplerByName_Unknown(t *testing.T) {
	_, err := digit.ResamplerByName("sinc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bicubic")
}

func TestFromGrid(t *testing.T) {
	img, err := digit.FromGrid([][]uint8{
		{255, 0, 255},
		{255, 0, 255},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, uint8(0), img.GrayAt(1, 1).Y)

	_, err = digit.FromGrid(nil)
	require.ErrorIs(t, err, digit.ErrInvalidInput)

	_, err = digit.FromGrid([][]uint8{{1, 2}, {3}})
	require.ErrorIs(t, err, digit.ErrInvalidInput)
}

func TestFromGrid_FeedsPreprocess(t *testing.T) {
	rows := make([][]uint8, 56)
	for y := range rows {
		rows[y] = make([]uint8, 56)
	}
	tensor, err := digit.Preprocess(mustGrid(t, rows), nil)
	require.NoError(t, err)
	for _, v := range tensor {
		require.Equal(t, float32(1), v)
	}
}

func mustGrid(t *testing.T, rows [][]uint8) *image.Gray {
	t.Helper()
	img, err := digit.FromGrid(rows)
	require.NoError(t, err)
	return img
}

func TestPreprocess_ShapesAndOrigins(t *testing.T) {
	offset := uniformCanvas(60, 60, color.White)
	draw.Draw(offset, image.Rect(30, 30, 60, 60), image.NewUniform(color.Black), image.Point{}, draw.Src)

	cases := map[string]image.Image{
		"1x1":          uniformCanvas(1, 1, color.Black),
		"1xN":          uniformCanvas(1, 90, color.Black),
		"Nx1":          uniformCanvas(90, 1, color.Black),
		"sub image":    offset.SubImage(image.Rect(30, 30, 60, 60)),
		"negative min": image.NewGray(image.Rect(-5, -7, 10, 3)),
	}
	for name, img := range cases {
		for _, rname := range digit.ResamplerNames() {
			t.Run(name+"/"+rname, func(t *testing.T) {
				r, err := digit.ResamplerByName(rname)
				require.NoError(t, err)

				tensor, err := digit.Preprocess(img, r)
				require.NoError(t, err)
				assert.Equal(t, []int64{1, 1, digit.Size, digit.Size}, tensor.Shape())
				for _, v := range tensor {
					require.GreaterOrEqual(t, v, float32(0))
					require.LessOrEqual(t, v, float32(1))
				}
			})
		}
	}
}

func TestPreprocess_SubImageUsesItsOwnPixels(t *testing.T) {
	img := uniformCanvas(60, 60, color.White)
	draw.Draw(img, image.Rect(30, 30, 60, 60), image.NewUniform(color.Black), image.Point{}, draw.Src)

	tensor, err := digit.Preprocess(img.SubImage(image.Rect(30, 30, 60, 60)), nil)
	require.NoError(t, err)
	for _, v := range tensor {
		require.Equal(t, float32(1), v)
	}
}
