// Package invoice issues SARS-compliant tax invoices: 15% VAT on the
// item subtotal, millisecond-stamped invoice numbers, and PDF copies
// archived to the document store.
package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smartbiz/smartbiz/internal/docstore"
	"github.com/smartbiz/smartbiz/internal/observability"
	"github.com/smartbiz/smartbiz/internal/store"
)

const VATRate = 0.15

// ErrInvalid marks caller mistakes so the HTTP layer can answer 400.
var ErrInvalid = errors.New("invalid invoice input")

type Repository interface {
	CreateUser(ctx context.Context, in store.CreateUserInput) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateBusiness(ctx context.Context, in store.CreateBusinessInput) (store.Business, error)
	GetBusiness(ctx context.Context, businessID int64) (store.Business, error)
	CreateInvoice(ctx context.Context, in store.CreateInvoiceInput) (store.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int64) (store.Invoice, error)
	ListInvoices(ctx context.Context, businessID int64) ([]store.Invoice, error)
	MarkInvoicePaid(ctx context.Context, invoiceID int64) (store.Invoice, error)
}

type ItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type GenerateInput struct {
	BusinessID  int64       `json:"business_id"`
	ClientName  string      `json:"client_name"`
	ClientEmail string      `json:"client_email"`
	Items       []ItemInput `json:"items"`
}

type Service struct {
	repo   Repository
	docs   docstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the invoice engine. docs may be nil; PDF archival is
// then skipped.
func NewService(repo Repository, docs docstore.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, docs: docs, logger: logger, now: time.Now}
}

// Generate issues an invoice. A zero or unknown business id provisions
// the shared demo business so the endpoint works out of the box.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (store.Invoice, error) {
	if strings.TrimSpace(in.ClientName) == "" {
		return store.Invoice{}, fmt.Errorf("%w: client name is required", ErrInvalid)
	}
	if len(in.Items) == 0 {
		return store.Invoice{}, fmt.Errorf("%w: at least one line item is required", ErrInvalid)
	}

	items := make([]store.InvoiceItem, 0, len(in.Items))
	subtotal := 0.0
	for i, item := range in.Items {
		if strings.TrimSpace(item.Description) == "" {
			return store.Invoice{}, fmt.Errorf("%w: item %d: description is required", ErrInvalid, i+1)
		}
		if item.Quantity <= 0 {
			return store.Invoice{}, fmt.Errorf("%w: item %d: quantity must be positive", ErrInvalid, i+1)
		}
		if item.UnitPrice < 0 {
			return store.Invoice{}, fmt.Errorf("%w: item %d: unit price cannot be negative", ErrInvalid, i+1)
		}
		lineTotal := roundCents(item.Quantity * item.UnitPrice)
		items = append(items, store.InvoiceItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       lineTotal,
		})
		subtotal += lineTotal
	}
	subtotal = roundCents(subtotal)
	vat := roundCents(subtotal * VATRate)
	total := roundCents(subtotal + vat)

	business, err := s.resolveBusiness(ctx, in.BusinessID)
	if err != nil {
		return store.Invoice{}, err
	}

	invoice, err := s.repo.CreateInvoice(ctx, store.CreateInvoiceInput{
		BusinessID:    business.ID,
		InvoiceNumber: "INV-" + strconv.FormatInt(s.now().UnixMilli(), 10),
		ClientName:    strings.TrimSpace(in.ClientName),
		ClientEmail:   strings.TrimSpace(in.ClientEmail),
		Items:         items,
		Subtotal:      subtotal,
		VATAmount:     vat,
		Total:         total,
		Status:        "pending",
	})
	if err != nil {
		return store.Invoice{}, err
	}
	observability.IncrementInvoicesGenerated()

	s.archivePDF(ctx, business, invoice)
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, invoiceID int64) (store.Invoice, error) {
	return s.repo.GetInvoice(ctx, invoiceID)
}

func (s *Service) List(ctx context.Context, businessID int64) ([]store.Invoice, error) {
	return s.repo.ListInvoices(ctx, businessID)
}

func (s *Service) MarkPaid(ctx context.Context, invoiceID int64) (store.Invoice, error) {
	return s.repo.MarkInvoicePaid(ctx, invoiceID)
}

// RenderPDF serves the printable invoice, preferring the archived copy
// in the document store over a fresh render.
func (s *Service) RenderPDF(ctx context.Context, invoiceID int64) ([]byte, error) {
	invoice, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if pdf, ok := s.archivedPDF(ctx, invoice); ok {
		return pdf, nil
	}
	business, err := s.repo.GetBusiness(ctx, invoice.BusinessID)
	if err != nil {
		return nil, err
	}
	return renderPDF(business, invoice)
}

func (s *Service) archivedPDF(ctx context.Context, invoice store.Invoice) ([]byte, bool) {
	if s.docs == nil {
		return nil, false
	}
	body, err := s.docs.Get(ctx, archiveKey(invoice))
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) && s.logger != nil {
			s.logger.WarnContext(ctx, "archived invoice pdf read failed",
				slog.String("invoice_number", invoice.InvoiceNumber),
				slog.Any("error", err),
			)
		}
		return nil, false
	}
	defer func() { _ = body.Close() }()
	pdf, err := io.ReadAll(body)
	if err != nil {
		return nil, false
	}
	return pdf, true
}

func (s *Service) resolveBusiness(ctx context.Context, businessID int64) (store.Business, error) {
	if businessID > 0 {
		business, err := s.repo.GetBusiness(ctx, businessID)
		if err == nil {
			return business, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return store.Business{}, err
		}
	}
	return s.provisionDemoBusiness(ctx)
}

// provisionDemoBusiness mirrors the onboarding shortcut: a shared demo
// user and business back invoices issued before registration.
func (s *Service) provisionDemoBusiness(ctx context.Context) (store.Business, error) {
	user, err := s.repo.GetUserByEmail(ctx, "demo@smartbiz.co.za")
	if errors.Is(err, store.ErrNotFound) {
		user, err = s.repo.CreateUser(ctx, store.CreateUserInput{
			Email: "demo@smartbiz.co.za",
			Name:  "Demo User",
		})
	}
	if err != nil {
		return store.Business{}, fmt.Errorf("provision demo user: %w", err)
	}
	business, err := s.repo.CreateBusiness(ctx, store.CreateBusinessInput{
		UserID:   user.ID,
		Name:     "Demo Business (Pty) Ltd",
		Industry: "General",
	})
	if err != nil {
		return store.Business{}, fmt.Errorf("provision demo business: %w", err)
	}
	return business, nil
}

func (s *Service) archivePDF(ctx context.Context, business store.Business, invoice store.Invoice) {
	if s.docs == nil {
		return
	}
	pdf, err := renderPDF(business, invoice)
	if err == nil {
		_, err = s.docs.Put(ctx, archiveKey(invoice), bytes.NewReader(pdf), int64(len(pdf)), docstore.PutOptions{ContentType: "application/pdf"})
	}
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "invoice pdf archival failed",
			slog.String("invoice_number", invoice.InvoiceNumber),
			slog.Any("error", err),
		)
	}
}

func archiveKey(invoice store.Invoice) string {
	return fmt.Sprintf("invoices/%d/%s.pdf", invoice.BusinessID, invoice.InvoiceNumber)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
