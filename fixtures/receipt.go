// Package fixtures renders receipt PDFs and serves a minimal stand-in for the
// application under test.
package fixtures

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// LineItem is one row of a receipt
type LineItem struct {
	Description string
	Amount      string
}

// Receipt is the content rendered into the PDF
type Receipt struct {
	Shop   string
	Items  []LineItem
	Total  string
	Footer string
}

// DefaultReceipt is the receipt the demo shop produces
func DefaultReceipt() Receipt {
	return Receipt{
		Shop: "Papito Shop",
		Items: []LineItem{
			{Description: "Camiseta", Amount: "12.000"},
			{Description: "Caneca", Amount: "7.000"},
			{Description: "Adesivos", Amount: "5.000"},
		},
		Total:  "24.000",
		Footer: "Obrigado pela preferencia",
	}
}

// RenderReceipt returns the receipt as PDF bytes. The total label and amount
// are separate cells on one line; row-wise extraction reads them as "Total24.000".
func RenderReceipt(r Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Recibo", false)
	pdf.SetCreator("receipt-e2e fixtures", false)
	pdf.AddPage()

	if r.Shop != "" {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, r.Shop, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, item := range r.Items {
		pdf.CellFormat(90, 7, item.Description, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, item.Amount, "", 1, "R", false, 0, "")
	}

	if r.Total != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(90, 8, "Total", "T", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, r.Total, "T", 1, "R", false, 0, "")
	}

	if r.Footer != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, r.Footer, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
