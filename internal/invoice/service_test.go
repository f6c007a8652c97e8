package invoice

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/smartbiz/smartbiz/internal/docstore"
	"github.com/smartbiz/smartbiz/internal/store"
)

type fakeArchive struct {
	objects map[string][]byte
}

func (f *fakeArchive) Put(_ context.Context, key string, body io.Reader, size int64, _ docstore.PutOptions) (docstore.DocumentInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return docstore.DocumentInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return docstore.DocumentInfo{Key: key, Size: size}, nil
}

func (f *fakeArchive) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeRepo struct {
	users      map[string]store.User
	businesses map[int64]store.Business
	invoices   map[int64]store.Invoice
	nextID     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      map[string]store.User{},
		businesses: map[int64]store.Business{},
		invoices:   map[int64]store.Invoice{},
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) CreateUser(_ context.Context, in store.CreateUserInput) (store.User, error) {
	user := store.User{ID: f.id(), Email: in.Email, Name: in.Name, CreatedAt: time.Now()}
	f.users[in.Email] = user
	return user, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.users[email]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) CreateBusiness(_ context.Context, in store.CreateBusinessInput) (store.Business, error) {
	business := store.Business{
		ID:        f.id(),
		UserID:    in.UserID,
		Name:      in.Name,
		Industry:  in.Industry,
		CreatedAt: time.Now(),
	}
	f.businesses[business.ID] = business
	return business, nil
}

func (f *fakeRepo) GetBusiness(_ context.Context, businessID int64) (store.Business, error) {
	business, ok := f.businesses[businessID]
	if !ok {
		return store.Business{}, store.ErrNotFound
	}
	return business, nil
}

func (f *fakeRepo) CreateInvoice(_ context.Context, in store.CreateInvoiceInput) (store.Invoice, error) {
	invoice := store.Invoice{
		ID:            f.id(),
		BusinessID:    in.BusinessID,
		InvoiceNumber: in.InvoiceNumber,
		ClientName:    in.ClientName,
		ClientEmail:   in.ClientEmail,
		Items:         in.Items,
		Subtotal:      in.Subtotal,
		VATAmount:     in.VATAmount,
		Total:         in.Total,
		Status:        in.Status,
		CreatedAt:     time.Now(),
	}
	f.invoices[invoice.ID] = invoice
	return invoice, nil
}

func (f *fakeRepo) GetInvoice(_ context.Context, invoiceID int64) (store.Invoice, error) {
	invoice, ok := f.invoices[invoiceID]
	if !ok {
		return store.Invoice{}, store.ErrNotFound
	}
	return invoice, nil
}

func (f *fakeRepo) ListInvoices(_ context.Context, businessID int64) ([]store.Invoice, error) {
	var invoices []store.Invoice
	for _, invoice := range f.invoices {
		if invoice.BusinessID == businessID {
			invoices = append(invoices, invoice)
		}
	}
	return invoices, nil
}

func (f *fakeRepo) MarkInvoicePaid(_ context.Context, invoiceID int64) (store.Invoice, error) {
	invoice, ok := f.invoices[invoiceID]
	if !ok {
		return store.Invoice{}, store.ErrNotFound
	}
	now := time.Now()
	invoice.Status = "paid"
	invoice.PaidAt = &now
	f.invoices[invoiceID] = invoice
	return invoice, nil
}

func TestGenerateComputesVAT(t *testing.T) {
	repo := newFakeRepo()
	business, _ := repo.CreateBusiness(context.Background(), store.CreateBusinessInput{UserID: 1, Name: "Acme (Pty) Ltd"})

	svc := NewService(repo, nil, nil)
	svc.now = func() time.Time { return time.UnixMilli(1756400000000) }

	invoice, err := svc.Generate(context.Background(), GenerateInput{
		BusinessID: business.ID,
		ClientName: "Client One",
		Items: []ItemInput{
			{Description: "Consulting", Quantity: 2, UnitPrice: 500},
			{Description: "Travel", Quantity: 1, UnitPrice: 120.40},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if invoice.InvoiceNumber != "INV-1756400000000" {
		t.Fatalf("invoice number = %q", invoice.InvoiceNumber)
	}
	if invoice.Subtotal != 1120.40 {
		t.Fatalf("subtotal = %v", invoice.Subtotal)
	}
	if invoice.VATAmount != 168.06 {
		t.Fatalf("vat = %v", invoice.VATAmount)
	}
	if invoice.Total != 1288.46 {
		t.Fatalf("total = %v", invoice.Total)
	}
	if invoice.Status != "pending" {
		t.Fatalf("status = %q", invoice.Status)
	}
	if invoice.Items[0].Total != 1000 {
		t.Fatalf("line total = %v", invoice.Items[0].Total)
	}
}

func TestGenerateProvisionsDemoBusiness(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	invoice, err := svc.Generate(context.Background(), GenerateInput{
		ClientName: "Walk-in Client",
		Items:      []ItemInput{{Description: "Service", Quantity: 1, UnitPrice: 100}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	business, err := repo.GetBusiness(context.Background(), invoice.BusinessID)
	if err != nil {
		t.Fatalf("GetBusiness() error = %v", err)
	}
	if business.Name != "Demo Business (Pty) Ltd" {
		t.Fatalf("business = %+v", business)
	}
	if _, err := repo.GetUserByEmail(context.Background(), "demo@smartbiz.co.za"); err != nil {
		t.Fatalf("demo user missing: %v", err)
	}
}

func TestGenerateValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)
	tests := []struct {
		name string
		in   GenerateInput
	}{
		{name: "missing client", in: GenerateInput{Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: 1}}}},
		{name: "no items", in: GenerateInput{ClientName: "Client"}},
		{name: "zero quantity", in: GenerateInput{ClientName: "Client", Items: []ItemInput{{Description: "x", Quantity: 0, UnitPrice: 1}}}},
		{name: "negative price", in: GenerateInput{ClientName: "Client", Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: -1}}}},
		{name: "blank description", in: GenerateInput{ClientName: "Client", Items: []ItemInput{{Description: " ", Quantity: 1, UnitPrice: 1}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Generate(context.Background(), tc.in); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMarkPaid(t *testing.T) {
	repo := newFakeRepo()
	business, _ := repo.CreateBusiness(context.Background(), store.CreateBusinessInput{UserID: 1, Name: "Acme"})
	svc := NewService(repo, nil, nil)

	invoice, err := svc.Generate(context.Background(), GenerateInput{
		BusinessID: business.ID,
		ClientName: "Client",
		Items:      []ItemInput{{Description: "Service", Quantity: 1, UnitPrice: 100}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	paid, err := svc.MarkPaid(context.Background(), invoice.ID)
	if err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if paid.Status != "paid" || paid.PaidAt == nil {
		t.Fatalf("paid = %+v", paid)
	}
}

func TestRenderPDF(t *testing.T) {
	repo := newFakeRepo()
	business, _ := repo.CreateBusiness(context.Background(), store.CreateBusinessInput{UserID: 1, Name: "Acme (Pty) Ltd"})
	svc := NewService(repo, nil, nil)

	invoice, err := svc.Generate(context.Background(), GenerateInput{
		BusinessID:  business.ID,
		ClientName:  "Client One",
		ClientEmail: "client@example.co.za",
		Items:       []ItemInput{{Description: "Consulting", Quantity: 2, UnitPrice: 500}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	pdf, err := svc.RenderPDF(context.Background(), invoice.ID)
	if err != nil {
		t.Fatalf("RenderPDF() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("pdf prefix = %q", pdf[:min(8, len(pdf))])
	}
}

func TestGenerateArchivesPDF(t *testing.T) {
	repo := newFakeRepo()
	business, _ := repo.CreateBusiness(context.Background(), store.CreateBusinessInput{UserID: 1, Name: "Acme (Pty) Ltd"})
	archive := &fakeArchive{}
	svc := NewService(repo, archive, nil)

	invoice, err := svc.Generate(context.Background(), GenerateInput{
		BusinessID: business.ID,
		ClientName: "Client One",
		Items:      []ItemInput{{Description: "Consulting", Quantity: 1, UnitPrice: 100}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	key := archiveKey(invoice)
	if !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("archive key = %q", key)
	}
	stored, ok := archive.objects[key]
	if !ok {
		t.Fatalf("archived keys = %v", archive.objects)
	}
	if !bytes.HasPrefix(stored, []byte("%PDF")) {
		t.Fatalf("archived prefix = %q", stored[:min(8, len(stored))])
	}
}

func TestRenderPDFPrefersArchivedCopy(t *testing.T) {
	repo := newFakeRepo()
	business, _ := repo.CreateBusiness(context.Background(), store.CreateBusinessInput{UserID: 1, Name: "Acme (Pty) Ltd"})
	archive := &fakeArchive{}
	svc := NewService(repo, archive, nil)

	invoice, err := svc.Generate(context.Background(), GenerateInput{
		BusinessID: business.ID,
		ClientName: "Client One",
		Items:      []ItemInput{{Description: "Consulting", Quantity: 1, UnitPrice: 100}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	archive.objects[archiveKey(invoice)] = []byte("%PDF-archived")

	pdf, err := svc.RenderPDF(context.Background(), invoice.ID)
	if err != nil {
		t.Fatalf("RenderPDF() error = %v", err)
	}
	if string(pdf) != "%PDF-archived" {
		t.Fatalf("pdf = %q, want archived copy", pdf)
	}
}

func TestRenderPDFRendersWhenArchiveMissing(t *testing.T) {
	repo := newFakeRepo()
	business, _ := repo.CreateBusiness(context.Background(), store.CreateBusinessInput{UserID: 1, Name: "Acme (Pty) Ltd"})
	archive := &fakeArchive{}
	svc := NewService(repo, archive, nil)

	invoice, err := svc.Generate(context.Background(), GenerateInput{
		BusinessID: business.ID,
		ClientName: "Client One",
		Items:      []ItemInput{{Description: "Consulting", Quantity: 1, UnitPrice: 100}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	delete(archive.objects, archiveKey(invoice))

	pdf, err := svc.RenderPDF(context.Background(), invoice.ID)
	if err != nil {
		t.Fatalf("RenderPDF() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("pdf prefix = %q", pdf[:min(8, len(pdf))])
	}
}

func TestRoundCents(t *testing.T) {
	if got := roundCents(2.347); got != 2.35 {
		t.Fatalf("roundCents = %v", got)
	}
	if got := roundCents(99.994); got != 99.99 {
		t.Fatalf("roundCents = %v", got)
	}
}
