package digit

import (
	"fmt"
	"image"
	"sort"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// Resampler scales a grayscale bitmap to a size×size square.
type Resampler func(src *image.Gray, size int) *image.Gray

// DefaultResampler names the resampler used when none is configured. Bicubic
// matches the filter the model's reference preprocessing resized with.
const DefaultResampler = "bicubic"

var resamplers = map[string]Resampler{
	"nearest":        nfnt(resize.NearestNeighbor),
	"bilinear":       nfnt(resize.Bilinear),
	"bicubic":        nfnt(resize.Bicubic),
	"lanczos3":       nfnt(resize.Lanczos3),
	"catmullrom":     scaler(xdraw.CatmullRom),
	"approxbilinear": scaler(xdraw.ApproxBiLinear),
}

// Bicubic is the default resampler.
var Bicubic = resamplers[DefaultResampler]

// ResamplerByName looks up a resampler by its configuration name.
func ResamplerByName(name string) (Resampler, error) {
	r, ok := resamplers[name]
	if !ok {
		return nil, fmt.Errorf("unknown resampler %q (available: %v)", name, ResamplerNames())
	}
	return r, nil
}

// ResamplerNames lists the accepted resampler names in sorted order.
func ResamplerNames() []string {
	names := make([]string, 0, len(resamplers))
	for name := range resamplers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nfnt(interp resize.InterpolationFunction) Resampler {
	return func(src *image.Gray, size int) *image.Gray {
		out := resize.Resize(uint(size), uint(size), src, interp)
		if g, ok := out.(*image.Gray); ok {
			return g
		}
		dst := image.NewGray(image.Rect(0, 0, size, size))
		xdraw.Draw(dst, dst.Bounds(), out, out.Bounds().Min, xdraw.Src)
		return dst
	}
}

func scaler(s xdraw.Scaler) Resampler {
	return func(src *image.Gray, size int) *image.Gray {
		dst := image.NewGray(image.Rect(0, 0, size, size))
		s.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		return dst
	}
}
