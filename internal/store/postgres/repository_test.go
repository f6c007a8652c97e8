package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/smartbiz/smartbiz/internal/store"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func TestCreateUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO users (email, name)
VALUES ($1, $2)
RETURNING id, created_at`)).
		WithArgs("thandi@example.co.za", "Thandi").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	user, err := repo.CreateUser(context.Background(), store.CreateUserInput{Email: "thandi@example.co.za", Name: "Thandi"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID != 7 || user.Email != "thandi@example.co.za" {
		t.Fatalf("user = %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT id, email, name, created_at
FROM users
WHERE email = $1`)).
		WithArgs("nobody@example.co.za").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "created_at"}))

	if _, err := repo.GetUserByEmail(context.Background(), "nobody@example.co.za"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateInvoiceSerializesItems(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO invoices (business_id, invoice_number, client_name, client_email, items, subtotal, vat_amount, total, status)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)
RETURNING id, created_at`)).
		WithArgs(
			int64(3),
			"INV-1756400000000",
			"Acme Ltd",
			"billing@acme.co.za",
			`[{"description":"Consulting","quantity":2,"unit_price":500,"total":1000}]`,
			1000.0,
			150.0,
			1150.0,
			"pending",
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

	invoice, err := repo.CreateInvoice(context.Background(), store.CreateInvoiceInput{
		BusinessID:    3,
		InvoiceNumber: "INV-1756400000000",
		ClientName:    "Acme Ltd",
		ClientEmail:   "billing@acme.co.za",
		Items: []store.InvoiceItem{
			{Description: "Consulting", Quantity: 2, UnitPrice: 500, Total: 1000},
		},
		Subtotal:  1000,
		VATAmount: 150,
		Total:     1150,
	})
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if invoice.ID != 42 || invoice.Status != "pending" {
		t.Fatalf("invoice = %+v", invoice)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListInvoicesDecodesItems(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "business_id", "invoice_number", "client_name", "client_email",
		"items", "subtotal", "vat_amount", "total", "status", "created_at", "paid_at",
	}).AddRow(
		int64(1), int64(3), "INV-1", "Acme Ltd", "",
		[]byte(`[{"description":"Widgets","quantity":4,"unit_price":25,"total":100}]`),
		100.0, 15.0, 115.0, "pending", now, nil,
	)

	mock.ExpectQuery("SELECT id, business_id, invoice_number").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	invoices, err := repo.ListInvoices(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListInvoices() error = %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("invoices = %d", len(invoices))
	}
	if len(invoices[0].Items) != 1 || invoices[0].Items[0].Description != "Widgets" {
		t.Fatalf("items = %+v", invoices[0].Items)
	}
	if invoices[0].PaidAt != nil {
		t.Fatalf("paid_at = %v", invoices[0].PaidAt)
	}
}

func TestMarkInvoicePaid(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "business_id", "invoice_number", "client_name", "client_email",
		"items", "subtotal", "vat_amount", "total", "status", "created_at", "paid_at",
	}).AddRow(
		int64(42), int64(3), "INV-1", "Acme Ltd", "",
		[]byte(`[]`), 100.0, 15.0, 115.0, "paid", now, now,
	)

	mock.ExpectQuery("UPDATE invoices").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	invoice, err := repo.MarkInvoicePaid(context.Background(), 42)
	if err != nil {
		t.Fatalf("MarkInvoicePaid() error = %v", err)
	}
	if invoice.Status != "paid" || invoice.PaidAt == nil {
		t.Fatalf("invoice = %+v", invoice)
	}
}

func TestMarkInvoicePaidNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE invoices").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.MarkInvoicePaid(context.Background(), 99); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendChat(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO chat_history (user_id, message, response)
VALUES ($1, $2, $3)
RETURNING id, created_at`)).
		WithArgs(int64(7), "How does VAT work?", "The standard rate is 15%.").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))

	msg, err := repo.AppendChat(context.Background(), store.AppendChatInput{
		UserID:   7,
		Message:  "How does VAT work?",
		Response: "The standard rate is 15%.",
	})
	if err != nil {
		t.Fatalf("AppendChat() error = %v", err)
	}
	if msg.ID != 11 {
		t.Fatalf("msg = %+v", msg)
	}
}

func TestListChatHistoryWithLimit(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, user_id, message, response, created_at").
		WithArgs(int64(7), 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "message", "response", "created_at"}).
			AddRow(int64(2), int64(7), "hi", "hello", now).
			AddRow(int64(1), int64(7), "first", "reply", now.Add(-time.Minute)))

	messages, err := repo.ListChatHistory(context.Background(), 7, 20)
	if err != nil {
		t.Fatalf("ListChatHistory() error = %v", err)
	}
	if len(messages) != 2 || messages[0].ID != 2 {
		t.Fatalf("messages = %+v", messages)
	}
}
