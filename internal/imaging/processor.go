package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // uploads may arrive as PNG; they are normalized to JPEG
	"io"

	"golang.org/x/image/draw"
)

// Processor handles the pixel-level operations: decoding, the cover-style
// crop-resize used by the render cache, rotation and JPEG encoding.
type Processor struct {
	quality int
}

func NewProcessor(quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Processor{quality: quality}
}

func (p *Processor) Quality() int {
	return p.quality
}

// Decode reads an image and reports its registered format name.
func (p *Processor) Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// EncodeJPEG writes img as JPEG at the configured quality.
func (p *Processor) EncodeJPEG(w io.Writer, img image.Image) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return nil
}

// EncodeJPEGBytes is EncodeJPEG into a fresh buffer.
func (p *Processor) EncodeJPEGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.EncodeJPEG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CoverResize fills the exact target dimensions, cropping the excess of the
// longer axis around the center instead of letterboxing. The source crop
// window matching the target aspect ratio is scaled directly onto the
// destination, so there is no intermediate full-size scale.
func (p *Processor) CoverResize(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	// Window in the source with the target aspect ratio, centered.
	cropW := srcW
	cropH := srcH
	if srcW*height > srcH*width {
		cropW = srcH * width / height
	} else {
		cropH = srcW * height / width
	}
	x0 := bounds.Min.X + (srcW-cropW)/2
	y0 := bounds.Min.Y + (srcH-cropH)/2
	window := image.Rect(x0, y0, x0+cropW, y0+cropH)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, window, draw.Src, nil)
	return dst
}

// Rotate90 rotates the image a quarter turn, clockwise or counterclockwise.
func (p *Processor) Rotate90(img image.Image, clockwise bool) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			if clockwise {
				dst.Set(h-1-y, x, c)
			} else {
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}

// AverageColor box-filters the whole image down to a single representative
// pixel and returns its RGB channels in [0,255].
func AverageColor(img image.Image) (r, g, b float64) {
	bounds := img.Bounds()
	var sumR, sumG, sumB uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			sumR += uint64(pr >> 8)
			sumG += uint64(pg >> 8)
			sumB += uint64(pb >> 8)
		}
	}
	n := uint64(bounds.Dx()) * uint64(bounds.Dy())
	if n == 0 {
		return 0, 0, 0
	}
	return float64(sumR) / float64(n), float64(sumG) / float64(n), float64(sumB) / float64(n)
}
