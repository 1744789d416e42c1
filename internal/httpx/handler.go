package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/cart"
	"github.com/ariefcatur/telava-pos/internal/catalog"
	"github.com/ariefcatur/telava-pos/internal/checkout"
	"github.com/ariefcatur/telava-pos/internal/notify"
	"github.com/ariefcatur/telava-pos/internal/printer"
	"github.com/ariefcatur/telava-pos/internal/session"
	"github.com/ariefcatur/telava-pos/internal/stock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TerminalHandler serves the cashier front end of one terminal.
type TerminalHandler struct {
	Backend  *backend.Client
	Session  *session.Store
	Shelf    *catalog.Shelf
	Cart     *cart.Ledger
	Checkout *checkout.Service
	Stock    *stock.Intake
	Printer  *printer.Adapter
	Hub      *notify.Hub
	// Seller is used on receipts when nobody is logged in.
	Seller  string
	Timeout time.Duration
}

func (h *TerminalHandler) Register(r chi.Router) {
	// the websocket outlives any request timeout
	r.Get("/ws", h.Hub.ServeHTTP)

	r.Group(func(r chi.Router) {
		timeout := h.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		r.Use(middleware.Timeout(timeout))

		r.Get("/notices", h.listNotices)

		r.Get("/session", h.getSession)
		r.Post("/session/login", h.login)
		r.Post("/session/logout", h.logout)
		r.Put("/session/profile", h.updateProfile)

		r.Get("/catalog", h.getCatalog)
		r.Get("/categories", h.listCategories)
		r.Post("/categories", h.createCategory)
		r.Put("/categories/{id}", h.updateCategory)
		r.Delete("/categories/{id}", h.deleteCategory)
		r.Post("/products", h.createProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)

		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/lines", h.addLine)
		r.Put("/cart/lines/{id}", h.setLine)
		r.Delete("/cart/lines/{id}", h.removeLine)

		r.Post("/checkout", h.checkout)
		r.Get("/payments/{code}/return", h.paymentReturn)

		r.Get("/printers", h.scanPrinters)
		r.Post("/printers/connect", h.connectPrinter)
		r.Post("/printers/disconnect", h.disconnectPrinter)
		r.Post("/printers/print", h.printReceipt)

		r.Post("/stock/in", h.stockIn)

		r.Get("/transactions", h.listTransactions)
		r.Get("/transactions/summary", h.summary)
		r.Get("/transactions/report.pdf", h.reportPDF)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// fail maps domain and backend errors onto a response.
func fail(w http.ResponseWriter, err error) {
	var se *cart.StockError
	switch {
	case errors.As(err, &se):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "insufficient stock", "product_id": se.ProductID, "available": se.Available})
	case errors.Is(err, cart.ErrLineNotFound), errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrMissingCode),
		errors.Is(err, checkout.ErrNoItems),
		errors.Is(err, stock.ErrNoProduct), errors.Is(err, stock.ErrInvalidQuantity):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, checkout.ErrBusy), errors.Is(err, printer.ErrNotConnected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrAbandoned), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, backend.ErrRejected), errors.Is(err, checkout.ErrReceiptFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		if ae, ok := backend.AsAPIError(err); ok {
			switch ae.Status {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
				writeJSON(w, ae.Status, map[string]any{"error": ae.Message, "fields": ae.Fields})
			default:
				writeError(w, http.StatusBadGateway, ae.Error())
			}
			return
		}
		log.Printf("httpx: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *TerminalHandler) notify(level notify.Level, title, msg string) {
	if h.Hub != nil {
		h.Hub.Notify(notify.Notice{Level: level, Title: title, Message: msg})
	}
}

func (h *TerminalHandler) listNotices(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, h.Hub.Recent(limit))
}
