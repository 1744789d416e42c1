package httpx

import (
	"errors"
	"log"
	"net/http"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/checkout"
	"github.com/ariefcatur/telava-pos/internal/sales"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type checkoutReq struct {
	Method string `json:"method"`
	Seller string `json:"seller,omitempty"`
}

type checkoutResp struct {
	checkout.Result
	// ReceiptError is set when the sale went through but no receipt came back.
	ReceiptError string `json:"receipt_error,omitempty"`
}

func (h *TerminalHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if !decode(w, r, &req) {
		return
	}
	method, err := backend.ParsePaymentMethod(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seller := req.Seller
	if seller == "" {
		seller = h.Session.SellerName(h.Seller)
	}

	ctx := sales.WithTrace(r.Context(), middleware.GetReqID(r.Context()))
	res, err := h.Checkout.Checkout(ctx, method, seller)
	if err != nil && !errors.Is(err, checkout.ErrReceiptFailed) {
		fail(w, err)
		return
	}
	out := checkoutResp{Result: res}
	if err != nil {
		out.ReceiptError = err.Error()
	}
	if !method.Redirects() {
		// stock moved; a failed refresh only leaves the shelf stale
		if _, rerr := h.refresh(ctx); rerr != nil {
			log.Printf("httpx: refresh after checkout %s: %v", res.Code, rerr)
		}
	}
	writeJSON(w, http.StatusCreated, out)
}

// paymentReturn is where the payment page sends the customer back.
func (h *TerminalHandler) paymentReturn(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rec, err := h.Checkout.Reconcile(r.Context(), code)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, rec)
			return
		}
		fail(w, err)
		return
	}
	if rec.Outcome == checkout.OutcomePaid && !rec.Replayed {
		if _, rerr := h.refresh(r.Context()); rerr != nil {
			log.Printf("httpx: refresh after payment %s: %v", rec.Code, rerr)
		}
	}
	writeJSON(w, http.StatusOK, rec)
}
