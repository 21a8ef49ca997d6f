// Package compositor draws storybook titles onto cover artwork and
// produces resized display variants. The print pipeline keeps typography
// in the PDF layer; this package only serves web display, where the cover
// image must carry its own title.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // WebP decode support
)

const (
	// Title band geometry as fractions of the cover height.
	bandTop    = 0.06
	bandBottom = 0.34

	maxTitlePx = 120.0
	minTitlePx = 28.0

	jpegQuality = 90
)

// Compositor renders titles onto cover images.
type Compositor struct {
	face *opentype.Font
}

// New parses the bundled bold face once and returns a compositor.
func New() (*Compositor, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse title font: %w", err)
	}
	return &Compositor{face: f}, nil
}

// OverlayTitle decodes the cover image, draws the title centered in the
// upper band with a translucent scrim behind it, and re-encodes in the
// source format (JPEG or PNG; WebP input is re-encoded as PNG).
func (c *Compositor) OverlayTitle(cover []byte, title string) ([]byte, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return cover, nil
	}

	src, format, err := image.Decode(bytes.NewReader(cover))
	if err != nil {
		return nil, fmt.Errorf("decode cover image: %w", err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	stddraw.Draw(dst, bounds, src, bounds.Min, stddraw.Src)

	availW := float64(bounds.Dx()) * 0.84
	availH := float64(bounds.Dy()) * (bandBottom - bandTop)

	face, lines, lineH, err := c.fitTitle(title, availW, availH)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	// Scrim behind the text block so the title reads on busy artwork.
	blockH := lineH * float64(len(lines))
	scrimTop := int(float64(bounds.Dy())*bandTop) - int(lineH*0.25)
	scrimBot := scrimTop + int(blockH+lineH*0.5)
	scrim := image.Rect(bounds.Min.X, bounds.Min.Y+scrimTop, bounds.Max.X, bounds.Min.Y+scrimBot)
	stddraw.DrawMask(dst, scrim, image.NewUniform(color.Black), image.Point{},
		image.NewUniform(color.Alpha{A: 96}), image.Point{}, stddraw.Over)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	metrics := face.Metrics()
	y := float64(bounds.Dy())*bandTop + float64(metrics.Ascent.Round())
	for _, ln := range lines {
		w := drawer.MeasureString(ln)
		x := (float64(bounds.Dx()) - float64(w.Round())) / 2
		drawer.Dot = fixed.P(bounds.Min.X+int(x), bounds.Min.Y+int(y))
		drawer.DrawString(ln)
		y += lineH
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode composited cover: %w", err)
	}
	return buf.Bytes(), nil
}

// fitTitle finds the largest face size whose wrapped title fits the band,
// floored at minTitlePx. Mirrors the PDF cover heuristic: shrink for line
// count, width, and height, then take the minimum.
func (c *Compositor) fitTitle(title string, availW, availH float64) (font.Face, []string, float64, error) {
	size := maxTitlePx
	for {
		face, err := opentype.NewFace(c.face, &opentype.FaceOptions{
			Size: size, DPI: 72, Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, nil, 0, fmt.Errorf("size title font: %w", err)
		}

		lines := wrapByMeasure(title, availW, face)
		metrics := face.Metrics()
		lineH := float64(metrics.Height.Round()) * 1.1

		fitsH := lineH*float64(len(lines)) <= availH
		fitsW := true
		d := &font.Drawer{Face: face}
		for _, ln := range lines {
			if float64(d.MeasureString(ln).Round()) > availW {
				fitsW = false
				break
			}
		}

		if (fitsH && fitsW) || size <= minTitlePx {
			return face, lines, lineH, nil
		}
		face.Close()
		size *= 0.85
		if size < minTitlePx {
			size = minTitlePx
		}
	}
}

// wrapByMeasure greedily wraps words using real glyph measurements.
func wrapByMeasure(text string, maxW float64, face font.Face) []string {
	d := &font.Drawer{Face: face}
	var lines []string
	cur := ""
	for _, w := range strings.Fields(text) {
		cand := w
		if cur != "" {
			cand = cur + " " + w
		}
		if float64(d.MeasureString(cand).Round()) <= maxW || cur == "" {
			cur = cand
		} else {
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// Resize scales an image down to maxWidth, preserving aspect ratio, and
// re-encodes it in the original format. Images already narrower than
// maxWidth are returned unchanged.
func Resize(data []byte, maxWidth int) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= maxWidth {
		return data, nil
	}

	h := int(float64(bounds.Dy()) * float64(maxWidth) / float64(bounds.Dx()))
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
