package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/smartbiz/smartbiz/internal/export"
	"github.com/smartbiz/smartbiz/internal/invoice"
	"github.com/smartbiz/smartbiz/internal/store"
)

func handleInvoiceGenerate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Invoices == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INVOICE_SERVICE_MISSING", "invoice service is not configured", false, nil)
		return
	}

	var req invoice.GenerateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", false, nil)
		return
	}

	generated, err := deps.Invoices.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, invoice.ErrInvalid) {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INVOICE_GENERATE_FAILED", "failed to generate invoice", true, nil)
		return
	}
	writeJSON(w, http.StatusCreated, generated)
}

func handleInvoiceList(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Invoices == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INVOICE_SERVICE_MISSING", "invoice service is not configured", false, nil)
		return
	}
	businessID, ok := pathID(w, r, "business")
	if !ok {
		return
	}

	invoices, err := deps.Invoices.List(r.Context(), businessID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INVOICE_LIST_FAILED", "failed to list invoices", true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func handleInvoiceGet(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Invoices == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INVOICE_SERVICE_MISSING", "invoice service is not configured", false, nil)
		return
	}
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	found, err := deps.Invoices.Get(r.Context(), invoiceID)
	if err != nil {
		writeInvoiceError(w, r, err, "INVOICE_GET_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func handleInvoicePDF(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Invoices == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INVOICE_SERVICE_MISSING", "invoice service is not configured", false, nil)
		return
	}
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	pdf, err := deps.Invoices.RenderPDF(r.Context(), invoiceID)
	if err != nil {
		writeInvoiceError(w, r, err, "INVOICE_PDF_FAILED")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("invoice-%d.pdf", invoiceID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func handleInvoicePaid(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Invoices == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INVOICE_SERVICE_MISSING", "invoice service is not configured", false, nil)
		return
	}
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	paid, err := deps.Invoices.MarkPaid(r.Context(), invoiceID)
	if err != nil {
		writeInvoiceError(w, r, err, "INVOICE_PAID_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, paid)
}

func handleInvoiceExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exports == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_SERVICE_MISSING", "export service is not configured", false, nil)
		return
	}
	businessID, ok := pathID(w, r, "business")
	if !ok {
		return
	}

	result, err := deps.Exports.ExportInvoices(r.Context(), businessID)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrNotConfigured):
			writeError(r.Context(), w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "document store is not configured", false, nil)
		case errors.Is(err, export.ErrEmptyLedger):
			writeError(r.Context(), w, http.StatusNotFound, "EXPORT_EMPTY", "no invoices to export", false, nil)
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "failed to export invoices", true, nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a positive integer", false, nil)
		return 0, false
	}
	return id, true
}

func writeInvoiceError(w http.ResponseWriter, r *http.Request, err error, code string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found", false, nil)
		return
	}
	writeError(r.Context(), w, http.StatusInternalServerError, code, "invoice operation failed", true, nil)
}
