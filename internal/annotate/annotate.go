// Package annotate draws recognition results onto camera frames.
package annotate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"github.com/kozaktomas/attendance-kiosk/internal/constants"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrEmptyCrop is returned by CropFace when the box lies outside the frame.
var ErrEmptyCrop = errors.New("face box does not intersect frame")

var labelFace = basicfont.Face7x13

// Options controls frame annotation.
type Options struct {
	BoxColor  color.Color
	BandColor color.Color
	TextColor color.Color
	MinScale  float64 // label scale floor
}

// DefaultOptions returns green box and band with black text.
func DefaultOptions() Options {
	return Options{
		BoxColor:  color.RGBA{G: 255, A: 255},
		BandColor: color.RGBA{G: 255, A: 255},
		TextColor: color.Black,
		MinScale:  constants.DefaultLabelMinScale,
	}
}

// TextWidth returns the label width in pixels at scale 1.
func TextWidth(text string) int {
	return font.MeasureString(labelFace, text).Ceil()
}

// FitScale returns the largest scale start - k*step (k >= 0) at which text
// fits in maxWidth, never going below floor.
func FitScale(text string, maxWidth int, start, step, floor float64) float64 {
	w := float64(TextWidth(text))
	if step <= 0 {
		return math.Max(start, floor)
	}
	for k := 0; ; k++ {
		s := start - float64(k)*step
		// Tolerance absorbs float drift from repeated subtraction
		if s <= floor+1e-9 {
			return floor
		}
		if w*s <= float64(maxWidth) {
			return s
		}
	}
}

// Annotate returns a copy of img with a box around the face and a filled
// label band directly below it. The input image is not modified.
func Annotate(img image.Image, box image.Rectangle, label string, opts Options) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	box = box.Canon()
	if box.Empty() {
		return out
	}

	drawBox(out, box, opts.BoxColor, constants.BoxStroke)

	band := image.Rect(box.Min.X, box.Max.Y, box.Max.X, box.Max.Y+constants.LabelBandHeight)
	draw.Draw(out, band.Intersect(bounds), image.NewUniform(opts.BandColor), image.Point{}, draw.Src)

	maxWidth := box.Dx() - 2*constants.LabelPadding
	minScale := opts.MinScale
	if minScale <= 0 {
		minScale = constants.DefaultLabelMinScale
	}
	scale := FitScale(label, maxWidth, constants.LabelStartScale, constants.LabelScaleStep, minScale)
	drawLabel(out, band, label, scale, opts.TextColor)

	return out
}

func drawBox(dst *image.RGBA, box image.Rectangle, c color.Color, stroke int) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+stroke), // top
		image.Rect(box.Min.X, box.Max.Y-stroke, box.Max.X, box.Max.Y), // bottom
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+stroke, box.Max.Y), // left
		image.Rect(box.Max.X-stroke, box.Min.Y, box.Max.X, box.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawLabel renders text at scale 1 into a transparent buffer, scales it,
// and composites it into band. Anything past the band's right edge is clipped.
func drawLabel(dst *image.RGBA, band image.Rectangle, text string, scale float64, c color.Color) {
	if text == "" {
		return
	}
	metrics := labelFace.Metrics()
	w := TextWidth(text)
	h := (metrics.Ascent + metrics.Descent).Ceil()

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: labelFace,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(text)

	sw := int(math.Ceil(float64(w) * scale))
	sh := int(math.Ceil(float64(h) * scale))
	x := band.Min.X + constants.LabelPadding
	y := band.Min.Y + (band.Dy()-sh)/2
	target := image.Rect(x, y, x+sw, y+sh)

	clip := band.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	sub, ok := dst.SubImage(clip).(*image.RGBA)
	if !ok {
		return
	}
	draw.ApproxBiLinear.Scale(sub, target, glyphs, glyphs.Bounds(), draw.Over, nil)
}

// CropFace cuts the face box out of img, downscales it so neither side
// exceeds maxSide, and returns it JPEG-encoded.
func CropFace(img image.Image, box image.Rectangle, maxSide int) ([]byte, error) {
	r := box.Canon().Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyCrop
	}

	width, height := r.Dx(), r.Dy()
	newWidth, newHeight := width, height
	if maxSide > 0 && (width > maxSide || height > maxSide) {
		if width > height {
			newWidth = maxSide
			newHeight = max(1, int(float64(height)*float64(maxSide)/float64(width)))
		} else {
			newHeight = maxSide
			newWidth = max(1, int(float64(width)*float64(maxSide)/float64(height)))
		}
	}

	crop := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(crop, crop.Bounds(), img, r, draw.Src, nil)

	return EncodeJPEG(crop, constants.ReferencePhotoQuality)
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
