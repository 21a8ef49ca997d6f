// Package printpdf renders print-ready book PDFs and customer invoices.
//
// Book interiors are laid out against a physical print specification:
// a fixed trim size, bleed beyond the trim for full-page art, a safe
// margin inside the trim that text must never leave, and an extra spine
// margin on the binding side of text pages. Getting this geometry wrong
// produces a physically broken book, so all of it lives here in one
// place and is covered by tests.
package printpdf

import "github.com/saiyamvora13/vesabooks/internal/domain"

// Standard print spec values, in inches.
const (
	DefaultBleed       = 0.125
	DefaultSafeMargin  = 0.5
	DefaultSpineMargin = 0.75
)

// Rect is an axis-aligned rectangle in page coordinates (inches,
// origin top-left).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// W returns the rectangle width.
func (r Rect) W() float64 { return r.X1 - r.X0 }

// H returns the rectangle height.
func (r Rect) H() float64 { return r.Y1 - r.Y0 }

// Contains reports whether (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Geometry describes the physical layout of one book format.
// All dimensions are in inches.
type Geometry struct {
	TrimW       float64
	TrimH       float64
	Bleed       float64
	SafeMargin  float64
	SpineMargin float64
}

// ForBook returns the geometry for a book size and orientation.
// Landscape swaps the trim axes; bleed and margins are unchanged.
func ForBook(size domain.BookSize, orientation domain.Orientation) Geometry {
	g := Geometry{
		Bleed:       DefaultBleed,
		SafeMargin:  DefaultSafeMargin,
		SpineMargin: DefaultSpineMargin,
	}
	switch size {
	case domain.BookSize8x8:
		g.TrimW, g.TrimH = 8, 8
	default: // 6x9 trade
		g.TrimW, g.TrimH = 6, 9
	}
	if orientation == domain.OrientationLandscape {
		g.TrimW, g.TrimH = g.TrimH, g.TrimW
	}
	return g
}

// PageW returns the full page width including bleed on both sides.
func (g Geometry) PageW() float64 { return g.TrimW + 2*g.Bleed }

// PageH returns the full page height including bleed on both sides.
func (g Geometry) PageH() float64 { return g.TrimH + 2*g.Bleed }

// TrimRect returns the final cut rectangle in page coordinates.
func (g Geometry) TrimRect() Rect {
	return Rect{X0: g.Bleed, Y0: g.Bleed, X1: g.Bleed + g.TrimW, Y1: g.Bleed + g.TrimH}
}

// SafeRect returns the region text and critical content must stay inside.
// For right-hand (recto) pages the binding is on the left, so the spine
// margin replaces the safe margin on that side. The spine margin is
// measured from the trim edge, like the safe margin.
func (g Geometry) SafeRect(rightHand bool) Rect {
	r := Rect{
		X0: g.Bleed + g.SafeMargin,
		Y0: g.Bleed + g.SafeMargin,
		X1: g.Bleed + g.TrimW - g.SafeMargin,
		Y1: g.Bleed + g.TrimH - g.SafeMargin,
	}
	if rightHand {
		r.X0 = g.Bleed + g.SpineMargin
	} else {
		r.X1 = g.Bleed + g.TrimW - g.SpineMargin
	}
	return r
}
