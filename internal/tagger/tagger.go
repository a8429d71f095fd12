// Package tagger derives visual tags from pixel content: orientation,
// resolution class and the dominant background color. Classification is a
// pure function of the decoded image, so the same upload always produces
// the same tags.
package tagger

import (
	"image"
	"math"

	"picserve/internal/imaging"
)

// Full HD threshold separating sq from hq.
const (
	fullHDWidth  = 1920
	fullHDHeight = 1080
)

// Orientation tags.
const (
	TagHorizontal = "horizontal"
	TagVertical   = "vertical"
)

// Resolution tags.
const (
	TagHQ = "hq"
	TagSQ = "sq"
)

// Background tags.
const (
	TagWhiteBg  = "whiteBg"
	TagBlackBg  = "blackBg"
	TagGrayBg   = "grayBg"
	TagRedBg    = "redBg"
	TagOrangeBg = "orangeBg"
	TagYellowBg = "yellowBg"
	TagGreenBg  = "greenBg"
	TagBlueBg   = "blueBg"
	TagMixedBg  = "mixedBg"
)

type Tagger struct{}

func New() *Tagger {
	return &Tagger{}
}

// Classify returns exactly three tags: orientation, resolution class and
// background color.
func (t *Tagger) Classify(img image.Image) []string {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	orientation := TagVertical
	if width >= height {
		orientation = TagHorizontal
	}

	resolution := TagSQ
	if width*height > fullHDWidth*fullHDHeight {
		resolution = TagHQ
	}

	return []string{orientation, resolution, t.background(img)}
}

// background reduces the image to its average pixel and maps it through
// HSV: near-white and near-black by value, gray by saturation, everything
// else by hue bucket.
func (t *Tagger) background(img image.Image) string {
	r, g, b := imaging.AverageColor(img)
	h, s, v := rgbToHSV(r, g, b)

	switch {
	case v > 0.85:
		return TagWhiteBg
	case v < 0.05:
		return TagBlackBg
	case s < 0.1:
		return TagGrayBg
	}

	switch {
	case h < 15 || h >= 345:
		return TagRedBg
	case h < 45:
		return TagOrangeBg
	case h < 65:
		return TagYellowBg
	case h < 170:
		return TagGreenBg
	case h < 260:
		return TagBlueBg
	default:
		return TagMixedBg
	}
}

// rgbToHSV converts RGB in [0,255] to H in [0,360), S and V in [0,1].
// The hue sector is computed with true floating-point modulo; a truncating
// integer remainder here would produce wrong hues for some channel ratios.
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255
	g /= 255
	b /= 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max
	if delta < 1e-6 {
		return 0, 0, v
	}
	s = delta / max

	switch max {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	case b:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
