package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/smartbiz/smartbiz/internal/store"
)

type ParquetEncodeResult struct {
	Data        []byte
	RecordCount int64
	MinIssuedAt *time.Time
	MaxIssuedAt *time.Time
}

type parquetInvoice struct {
	InvoiceID       int64   `parquet:"invoice_id"`
	BusinessID      int64   `parquet:"business_id"`
	InvoiceNumber   string  `parquet:"invoice_number"`
	ClientName      string  `parquet:"client_name"`
	Subtotal        float64 `parquet:"subtotal"`
	VATAmount       float64 `parquet:"vat_amount"`
	Total           float64 `parquet:"total"`
	Status          string  `parquet:"status"`
	CreatedAtUnixMs int64   `parquet:"created_at_unix_ms"`
	PaidAtUnixMs    int64   `parquet:"paid_at_unix_ms"`
}

func EncodeInvoicesToParquet(invoices []store.Invoice) (ParquetEncodeResult, error) {
	if len(invoices) == 0 {
		return ParquetEncodeResult{}, fmt.Errorf("invoices are required")
	}

	rows := make([]parquetInvoice, 0, len(invoices))
	var minTime *time.Time
	var maxTime *time.Time

	for _, invoice := range invoices {
		row := parquetInvoice{
			InvoiceID:       invoice.ID,
			BusinessID:      invoice.BusinessID,
			InvoiceNumber:   invoice.InvoiceNumber,
			ClientName:      invoice.ClientName,
			Subtotal:        invoice.Subtotal,
			VATAmount:       invoice.VATAmount,
			Total:           invoice.Total,
			Status:          invoice.Status,
			CreatedAtUnixMs: invoice.CreatedAt.UnixMilli(),
		}
		if invoice.PaidAt != nil {
			row.PaidAtUnixMs = invoice.PaidAt.UnixMilli()
		}
		rows = append(rows, row)

		issuedAt := invoice.CreatedAt.UTC()
		if minTime == nil || issuedAt.Before(*minTime) {
			copy := issuedAt
			minTime = &copy
		}
		if maxTime == nil || issuedAt.After(*maxTime) {
			copy := issuedAt
			maxTime = &copy
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetInvoice](buf)
	if _, err := writer.Write(rows); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return ParquetEncodeResult{
		Data:        buf.Bytes(),
		RecordCount: int64(len(rows)),
		MinIssuedAt: minTime,
		MaxIssuedAt: maxTime,
	}, nil
}
