package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartbiz/smartbiz/internal/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store db: %w", err)
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, in store.CreateUserInput) (store.User, error) {
	query := `
INSERT INTO users (email, name)
VALUES ($1, $2)
RETURNING id, created_at`

	user := store.User{Email: in.Email, Name: in.Name}
	if err := r.db.QueryRowContext(ctx, query, in.Email, in.Name).Scan(&user.ID, &user.CreatedAt); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	query := `
SELECT id, email, name, created_at
FROM users
WHERE email = $1`

	var user store.User
	if err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, store.ErrNotFound
		}
		return store.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *Repository) CreateBusiness(ctx context.Context, in store.CreateBusinessInput) (store.Business, error) {
	query := `
INSERT INTO businesses (user_id, name, registration_number, vat_number, industry)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

	business := store.Business{
		UserID:             in.UserID,
		Name:               in.Name,
		RegistrationNumber: in.RegistrationNumber,
		VATNumber:          in.VATNumber,
		Industry:           in.Industry,
	}
	if err := r.db.QueryRowContext(ctx, query,
		in.UserID,
		in.Name,
		in.RegistrationNumber,
		in.VATNumber,
		in.Industry,
	).Scan(&business.ID, &business.CreatedAt); err != nil {
		return store.Business{}, fmt.Errorf("create business: %w", err)
	}
	return business, nil
}

func (r *Repository) GetBusiness(ctx context.Context, businessID int64) (store.Business, error) {
	query := `
SELECT id, user_id, name, COALESCE(registration_number, ''), COALESCE(vat_number, ''), COALESCE(industry, ''), created_at
FROM businesses
WHERE id = $1`

	var business store.Business
	if err := r.db.QueryRowContext(ctx, query, businessID).Scan(
		&business.ID,
		&business.UserID,
		&business.Name,
		&business.RegistrationNumber,
		&business.VATNumber,
		&business.Industry,
		&business.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Business{}, store.ErrNotFound
		}
		return store.Business{}, fmt.Errorf("get business: %w", err)
	}
	return business, nil
}

func (r *Repository) CreateInvoice(ctx context.Context, in store.CreateInvoiceInput) (store.Invoice, error) {
	items, err := store.ItemsJSON(in.Items)
	if err != nil {
		return store.Invoice{}, fmt.Errorf("encode invoice items: %w", err)
	}
	status := in.Status
	if status == "" {
		status = "pending"
	}

	query := `
INSERT INTO invoices (business_id, invoice_number, client_name, client_email, items, subtotal, vat_amount, total, status)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)
RETURNING id, created_at`

	invoice := store.Invoice{
		BusinessID:    in.BusinessID,
		InvoiceNumber: in.InvoiceNumber,
		ClientName:    in.ClientName,
		ClientEmail:   in.ClientEmail,
		Items:         in.Items,
		Subtotal:      in.Subtotal,
		VATAmount:     in.VATAmount,
		Total:         in.Total,
		Status:        status,
	}
	if err := r.db.QueryRowContext(ctx, query,
		in.BusinessID,
		in.InvoiceNumber,
		in.ClientName,
		in.ClientEmail,
		string(items),
		in.Subtotal,
		in.VATAmount,
		in.Total,
		status,
	).Scan(&invoice.ID, &invoice.CreatedAt); err != nil {
		return store.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	return invoice, nil
}

func (r *Repository) GetInvoice(ctx context.Context, invoiceID int64) (store.Invoice, error) {
	query := `
SELECT id, business_id, invoice_number, client_name, COALESCE(client_email, ''), items, subtotal, vat_amount, total, status, created_at, paid_at
FROM invoices
WHERE id = $1`
	return scanInvoice(r.db.QueryRowContext(ctx, query, invoiceID))
}

func (r *Repository) ListInvoices(ctx context.Context, businessID int64) ([]store.Invoice, error) {
	query := `
SELECT id, business_id, invoice_number, client_name, COALESCE(client_email, ''), items, subtotal, vat_amount, total, status, created_at, paid_at
FROM invoices
WHERE business_id = $1
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	invoices := make([]store.Invoice, 0)
	for rows.Next() {
		var invoice store.Invoice
		var items []byte
		if err := rows.Scan(
			&invoice.ID,
			&invoice.BusinessID,
			&invoice.InvoiceNumber,
			&invoice.ClientName,
			&invoice.ClientEmail,
			&items,
			&invoice.Subtotal,
			&invoice.VATAmount,
			&invoice.Total,
			&invoice.Status,
			&invoice.CreatedAt,
			&invoice.PaidAt,
		); err != nil {
			return nil, fmt.Errorf("scan invoice row: %w", err)
		}
		if err := json.Unmarshal(items, &invoice.Items); err != nil {
			return nil, fmt.Errorf("decode invoice items: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice rows: %w", err)
	}
	return invoices, nil
}

func (r *Repository) MarkInvoicePaid(ctx context.Context, invoiceID int64) (store.Invoice, error) {
	query := `
UPDATE invoices
SET status = 'paid', paid_at = NOW()
WHERE id = $1
RETURNING id, business_id, invoice_number, client_name, COALESCE(client_email, ''), items, subtotal, vat_amount, total, status, created_at, paid_at`
	return scanInvoice(r.db.QueryRowContext(ctx, query, invoiceID))
}

func (r *Repository) AppendChat(ctx context.Context, in store.AppendChatInput) (store.ChatMessage, error) {
	query := `
INSERT INTO chat_history (user_id, message, response)
VALUES ($1, $2, $3)
RETURNING id, created_at`

	msg := store.ChatMessage{UserID: in.UserID, Message: in.Message, Response: in.Response}
	if err := r.db.QueryRowContext(ctx, query, in.UserID, in.Message, in.Response).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return store.ChatMessage{}, fmt.Errorf("append chat message: %w", err)
	}
	return msg, nil
}

func (r *Repository) ListChatHistory(ctx context.Context, userID int64, limit int) ([]store.ChatMessage, error) {
	query := `
SELECT id, user_id, message, response, created_at
FROM chat_history
WHERE user_id = $1
ORDER BY created_at DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+`
LIMIT $2`, userID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages := make([]store.ChatMessage, 0)
	for rows.Next() {
		var msg store.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Message, &msg.Response, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rows: %w", err)
	}
	return messages, nil
}

func scanInvoice(row *sql.Row) (store.Invoice, error) {
	var invoice store.Invoice
	var items []byte
	if err := row.Scan(
		&invoice.ID,
		&invoice.BusinessID,
		&invoice.InvoiceNumber,
		&invoice.ClientName,
		&invoice.ClientEmail,
		&items,
		&invoice.Subtotal,
		&invoice.VATAmount,
		&invoice.Total,
		&invoice.Status,
		&invoice.CreatedAt,
		&invoice.PaidAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Invoice{}, store.ErrNotFound
		}
		return store.Invoice{}, fmt.Errorf("scan invoice: %w", err)
	}
	if err := json.Unmarshal(items, &invoice.Items); err != nil {
		return store.Invoice{}, fmt.Errorf("decode invoice items: %w", err)
	}
	return invoice, nil
}
