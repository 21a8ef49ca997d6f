package printpdf

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
)

const (
	coverFont = "Helvetica"
	bodyFont  = "Times"
)

// ImageFetcher loads image bytes for a page illustration. The production
// implementation fetches from object storage / CDN; tests inject fakes.
type ImageFetcher func(ctx context.Context, url string) ([]byte, error)

// BookResult carries the rendered PDF plus layout diagnostics.
type BookResult struct {
	PDF []byte

	// PageCount is the number of PDF pages emitted: cover + 2 per story page.
	PageCount int

	// TruncatedPages lists 1-based story page numbers whose text did not
	// fit the safe area and was cut. Truncation is a degraded render,
	// not an error.
	TruncatedPages []int

	// FailedImages lists URLs that could not be fetched or embedded.
	// Those pages are emitted without their illustration.
	FailedImages []string
}

// BookBuilder renders a storybook into a print-ready interior PDF.
type BookBuilder struct {
	fetch ImageFetcher
}

// NewBookBuilder creates a builder using the given image fetcher.
func NewBookBuilder(fetch ImageFetcher) *BookBuilder {
	return &BookBuilder{fetch: fetch}
}

// Build renders the full interior: one cover page, then for each story
// page a full-bleed illustration page (verso) followed by a text page
// (recto). Total pages = 2×N+1.
func (b *BookBuilder) Build(ctx context.Context, book *domain.Storybook, size domain.BookSize) (*BookResult, error) {
	if book == nil || len(book.Pages) == 0 {
		return nil, fmt.Errorf("storybook has no pages")
	}

	geo := ForBook(size, book.Orientation)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "in",
		Size:    fpdf.SizeType{Wd: geo.PageW(), Ht: geo.PageH()},
	})
	pdf.SetTitle(book.Title, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	// Core fonts are cp1252; translate UTF-8 input before measuring or
	// drawing so widths match what is rendered.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	res := &BookResult{}

	b.drawCover(ctx, pdf, tr, geo, book, res)

	for _, page := range book.Pages {
		b.drawImagePage(ctx, pdf, geo, page, res)
		b.drawTextPage(pdf, tr, geo, page, res)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render book pdf: %w", err)
	}
	res.PDF = buf.Bytes()
	res.PageCount = pdf.PageCount()
	return res, nil
}

// drawCover emits the cover: the cover image at full bleed with the title
// drawn over the upper portion at an adaptively chosen size.
func (b *BookBuilder) drawCover(ctx context.Context, pdf *fpdf.Fpdf, tr func(string) string, geo Geometry, book *domain.Storybook, res *BookResult) {
	pdf.AddPage()
	b.placeImage(ctx, pdf, book.CoverImageURL, 0, 0, geo.PageW(), geo.PageH(), res)

	title := tr(strings.TrimSpace(book.Title))
	if title == "" {
		return
	}

	safe := geo.SafeRect(false)
	// On the cover there is no binding offset yet; give the title the
	// symmetric safe area and the top 40% of its height.
	safe.X1 = geo.Bleed + geo.TrimW - geo.SafeMargin
	bandH := safe.H() * 0.4

	measure := func(s string, sizePt float64) float64 {
		pdf.SetFont(coverFont, "B", sizePt)
		return pdf.GetStringWidth(s)
	}
	sizePt, lines := titleFontSize(title, safe.W(), bandH, measure)

	pdf.SetFont(coverFont, "B", sizePt)
	pdf.SetTextColor(255, 255, 255)
	lh := lineHeightIn(sizePt)
	y := safe.Y0 + lh*0.8 // first baseline
	for _, ln := range lines {
		x := safe.X0 + (safe.W()-pdf.GetStringWidth(ln))/2
		// Soft shadow so the title reads on light artwork.
		pdf.SetTextColor(40, 40, 40)
		pdf.Text(x+0.015, y+0.015, ln)
		pdf.SetTextColor(255, 255, 255)
		pdf.Text(x, y, ln)
		y += lh
	}
}

// drawImagePage emits a left-hand page with the illustration at full bleed.
func (b *BookBuilder) drawImagePage(ctx context.Context, pdf *fpdf.Fpdf, geo Geometry, page domain.StoryPage, res *BookResult) {
	pdf.AddPage()
	b.placeImage(ctx, pdf, page.ImageURL, 0, 0, geo.PageW(), geo.PageH(), res)
}

// drawTextPage emits a right-hand page with the story text wrapped and
// centered inside the safe area, offset by the spine margin on the
// binding side. Lines that would fall below the safe area are dropped.
func (b *BookBuilder) drawTextPage(pdf *fpdf.Fpdf, tr func(string) string, geo Geometry, page domain.StoryPage, res *BookResult) {
	pdf.AddPage()

	text := tr(strings.TrimSpace(page.Text))
	if text == "" {
		return
	}

	safe := geo.SafeRect(true)
	measure := func(s string, sizePt float64) float64 {
		pdf.SetFont(bodyFont, "", sizePt)
		return pdf.GetStringWidth(s)
	}
	lines := wrapText(text, bodySizePt, safe.W(), measure)

	lh := lineHeightIn(bodySizePt)
	maxLines := int(safe.H() / lh)
	if len(lines) > maxLines {
		// Silent truncation: a visibly clipped page beats a failed order.
		lines = lines[:maxLines]
		res.TruncatedPages = append(res.TruncatedPages, page.PageNumber)
		logger.Warn("story text truncated to fit safe area",
			"page", page.PageNumber, "max_lines", maxLines)
	}

	// Vertically center the block inside the safe area.
	blockH := float64(len(lines)) * lh
	y := safe.Y0 + (safe.H()-blockH)/2 + lh*0.8

	pdf.SetFont(bodyFont, "", bodySizePt)
	pdf.SetTextColor(30, 30, 30)
	for _, ln := range lines {
		x := safe.X0 + (safe.W()-pdf.GetStringWidth(ln))/2
		pdf.Text(x, y, ln)
		y += lh
	}
}

// placeImage fetches and embeds an image. Failures are recorded and logged
// but never abort the build; the page is emitted without the image.
func (b *BookBuilder) placeImage(ctx context.Context, pdf *fpdf.Fpdf, url string, x, y, w, h float64, res *BookResult) {
	if url == "" {
		return
	}
	data, err := b.fetch(ctx, url)
	if err != nil {
		logger.Error("page image fetch failed", "url", url, "error", err)
		res.FailedImages = append(res.FailedImages, url)
		return
	}

	imgType := detectImageType(data)
	if imgType == "" {
		logger.Error("page image has unsupported format", "url", url)
		res.FailedImages = append(res.FailedImages, url)
		return
	}

	opts := fpdf.ImageOptions{ImageType: imgType}
	info := pdf.RegisterImageOptionsReader(url, opts, bytes.NewReader(data))
	if info == nil || pdf.Err() {
		logger.Error("page image embed failed", "url", url, "error", pdf.Error())
		res.FailedImages = append(res.FailedImages, url)
		pdf.ClearError()
		return
	}
	pdf.ImageOptions(url, x, y, w, h, false, opts, 0, "")
}

// detectImageType maps sniffed content types to fpdf image type strings.
func detectImageType(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "JPG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}
