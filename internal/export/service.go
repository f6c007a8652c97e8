// Package export writes invoice ledgers to the document store as
// parquet files for downstream analytics.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartbiz/smartbiz/internal/docstore"
	"github.com/smartbiz/smartbiz/internal/store"
)

var (
	ErrNotConfigured = errors.New("document store is not configured")
	ErrEmptyLedger   = errors.New("no invoices to export")
)

type InvoiceLister interface {
	ListInvoices(ctx context.Context, businessID int64) ([]store.Invoice, error)
}

type ExportResult struct {
	Key         string `json:"key"`
	RecordCount int64  `json:"record_count"`
	SizeBytes   int64  `json:"size_bytes"`
}

type Service struct {
	invoices InvoiceLister
	docs     docstore.Store
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(invoices InvoiceLister, docs docstore.Store, logger *slog.Logger) *Service {
	return &Service{invoices: invoices, docs: docs, logger: logger, now: time.Now}
}

// ExportInvoices snapshots a business ledger to the document store.
func (s *Service) ExportInvoices(ctx context.Context, businessID int64) (ExportResult, error) {
	if s.docs == nil {
		return ExportResult{}, ErrNotConfigured
	}

	invoices, err := s.invoices.ListInvoices(ctx, businessID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list invoices for export: %w", err)
	}
	if len(invoices) == 0 {
		return ExportResult{}, fmt.Errorf("business %d: %w", businessID, ErrEmptyLedger)
	}

	encoded, err := EncodeInvoicesToParquet(invoices)
	if err != nil {
		return ExportResult{}, err
	}

	key := fmt.Sprintf("exports/invoices/%d/%d.parquet", businessID, s.now().UTC().UnixMilli())
	info, err := s.docs.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), docstore.PutOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("store invoice export: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "invoice export written",
			slog.String("key", info.Key),
			slog.Int64("records", encoded.RecordCount),
			slog.Int64("bytes", info.Size),
		)
	}
	return ExportResult{Key: info.Key, RecordCount: encoded.RecordCount, SizeBytes: info.Size}, nil
}
