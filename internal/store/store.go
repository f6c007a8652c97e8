// Package store defines the persistent domain model for SmartBiz:
// users, their businesses, invoices, and chat history.
package store

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Business struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	VATNumber          string    `json:"vat_number,omitempty"`
	Industry           string    `json:"industry,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

type Invoice struct {
	ID            int64         `json:"id"`
	BusinessID    int64         `json:"business_id"`
	InvoiceNumber string        `json:"invoice_number"`
	ClientName    string        `json:"client_name"`
	ClientEmail   string        `json:"client_email,omitempty"`
	Items         []InvoiceItem `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	VATAmount     float64       `json:"vat_amount"`
	Total         float64       `json:"total"`
	Status        string        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

type ChatMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateUserInput struct {
	Email string
	Name  string
}

type CreateBusinessInput struct {
	UserID             int64
	Name               string
	RegistrationNumber string
	VATNumber          string
	Industry           string
}

type CreateInvoiceInput struct {
	BusinessID    int64
	InvoiceNumber string
	ClientName    string
	ClientEmail   string
	Items         []InvoiceItem
	Subtotal      float64
	VATAmount     float64
	Total         float64
	Status        string
}

type AppendChatInput struct {
	UserID   int64
	Message  string
	Response string
}

// ItemsJSON renders invoice items for the jsonb column; nil becomes [].
func ItemsJSON(items []InvoiceItem) ([]byte, error) {
	if items == nil {
		items = []InvoiceItem{}
	}
	return json.Marshal(items)
}
