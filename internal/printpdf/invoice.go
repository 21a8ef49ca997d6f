package printpdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// InvoiceLine is one billed item on an invoice.
type InvoiceLine struct {
	Description string
	Quantity    int
	UnitCents   int64
	TotalCents  int64
}

// Invoice holds everything printed on a customer invoice.
type Invoice struct {
	OrderReference string
	IssuedAt       time.Time
	BillToName     string
	BillToEmail    string
	Lines          []InvoiceLine
	SubtotalCents  int64
	ShippingCents  int64
	TaxCents       int64
	TotalCents     int64
	Currency       string
}

// Letter page metrics, in inches.
const (
	invPageW   = 8.5
	invPageH   = 11.0
	invMargin  = 0.75
	invRowH    = 0.32
	invFooterY = invPageH - invMargin - 0.5
)

// RenderInvoice renders a paginated invoice PDF. Long orders flow onto
// continuation pages; the column header repeats on each page and totals
// print only after the last line.
func RenderInvoice(inv *Invoice) ([]byte, error) {
	if inv == nil || len(inv.Lines) == 0 {
		return nil, fmt.Errorf("invoice has no lines")
	}
	cur := inv.Currency
	if cur == "" {
		cur = "USD"
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "in",
		Size:    fpdf.SizeType{Wd: invPageW, Ht: invPageH},
	})
	pdf.SetTitle("Invoice "+inv.OrderReference, true)
	pdf.SetMargins(invMargin, invMargin, invMargin)
	pdf.SetAutoPageBreak(false, 0)
	// Core fonts are cp1252; translate UTF-8 input once up front.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	newPage := func(first bool) {
		pdf.AddPage()
		y := invMargin
		if first {
			pdf.SetFont(coverFont, "B", 22)
			pdf.Text(invMargin, y+0.3, "Invoice")
			pdf.SetFont(coverFont, "", 10)
			pdf.Text(invMargin, y+0.55, "Order "+inv.OrderReference)
			pdf.Text(invMargin, y+0.72, inv.IssuedAt.Format("January 2, 2006"))

			pdf.SetFont(coverFont, "B", 10)
			pdf.Text(invPageW-invMargin-2.5, y+0.3, "Billed to")
			pdf.SetFont(coverFont, "", 10)
			pdf.Text(invPageW-invMargin-2.5, y+0.47, tr(inv.BillToName))
			pdf.Text(invPageW-invMargin-2.5, y+0.64, tr(inv.BillToEmail))
			y += 1.1
		} else {
			pdf.SetFont(coverFont, "", 9)
			pdf.Text(invMargin, y+0.2, "Invoice "+inv.OrderReference+" (continued)")
			y += 0.5
		}

		// Column header
		pdf.SetFont(coverFont, "B", 10)
		pdf.SetXY(invMargin, y)
		pdf.CellFormat(4.0, invRowH, "Item", "B", 0, "L", false, 0, "")
		pdf.CellFormat(0.8, invRowH, "Qty", "B", 0, "R", false, 0, "")
		pdf.CellFormat(1.1, invRowH, "Unit", "B", 0, "R", false, 0, "")
		pdf.CellFormat(1.1, invRowH, "Amount", "B", 1, "R", false, 0, "")
	}

	newPage(true)
	pdf.SetFont(coverFont, "", 10)

	for _, line := range inv.Lines {
		if pdf.GetY()+invRowH > invFooterY {
			newPage(false)
			pdf.SetFont(coverFont, "", 10)
		}
		desc := tr(line.Description)
		// Clip long descriptions to the column rather than wrapping rows.
		for pdf.GetStringWidth(desc) > 3.9 && len(desc) > 4 {
			desc = desc[:len(desc)-4] + "..."
		}
		pdf.CellFormat(4.0, invRowH, desc, "", 0, "L", false, 0, "")
		pdf.CellFormat(0.8, invRowH, fmt.Sprintf("%d", line.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(1.1, invRowH, tr(formatCents(line.UnitCents, cur)), "", 0, "R", false, 0, "")
		pdf.CellFormat(1.1, invRowH, tr(formatCents(line.TotalCents, cur)), "", 1, "R", false, 0, "")
	}

	// Totals block
	if pdf.GetY()+4*invRowH > invFooterY {
		newPage(false)
	}
	pdf.Ln(0.15)
	writeTotal := func(label string, cents int64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont(coverFont, style, 10)
		pdf.SetX(invMargin + 4.0)
		pdf.CellFormat(1.9, invRowH, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(1.1, invRowH, tr(formatCents(cents, cur)), "", 1, "R", false, 0, "")
	}
	writeTotal("Subtotal", inv.SubtotalCents, false)
	if inv.ShippingCents > 0 {
		writeTotal("Shipping", inv.ShippingCents, false)
	}
	if inv.TaxCents > 0 {
		writeTotal("Tax", inv.TaxCents, false)
	}
	writeTotal("Total", inv.TotalCents, true)

	pdf.SetFont(coverFont, "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.Text(invMargin, invPageH-invMargin, "Thank you for your order.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// formatCents renders an integer cent amount as a currency string.
func formatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	sym := "$"
	switch currency {
	case "EUR":
		sym = "€"
	case "GBP":
		sym = "£"
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, sym, cents/100, cents%100)
}
