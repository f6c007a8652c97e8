package invoice

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/smartbiz/smartbiz/internal/store"
)

func renderPDF(business store.Business, invoice store.Invoice) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "TAX INVOICE")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, business.Name)
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	if business.RegistrationNumber != "" {
		pdf.Cell(0, 5, "Reg no: "+business.RegistrationNumber)
		pdf.Ln(5)
	}
	if business.VATNumber != "" {
		pdf.Cell(0, 5, "VAT no: "+business.VATNumber)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.Cell(0, 5, "Invoice number: "+invoice.InvoiceNumber)
	pdf.Ln(5)
	pdf.Cell(0, 5, "Date: "+invoice.CreatedAt.Format("2 January 2006"))
	pdf.Ln(5)
	pdf.Cell(0, 5, "Billed to: "+invoice.ClientName)
	pdf.Ln(5)
	if invoice.ClientEmail != "" {
		pdf.Cell(0, 5, invoice.ClientEmail)
		pdf.Ln(5)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 7, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Unit price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range invoice.Items {
		pdf.CellFormat(90, 7, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, trimZeros(item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, rands(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, rands(item.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.CellFormat(150, 6, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, rands(invoice.Subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(150, 6, "VAT (15%)", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, rands(invoice.VATAmount), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 8, "Total due", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, rands(invoice.Total), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func rands(v float64) string {
	return fmt.Sprintf("R %.2f", v)
}

func trimZeros(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
