package httpx

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/report"
)

type transactionView struct {
	backend.Transaction
	Label string `json:"label"`
}

// history lists backend transactions narrowed by ?status= and ?q=.
func (h *TerminalHandler) history(w http.ResponseWriter, r *http.Request) ([]backend.Transaction, bool) {
	f, err := report.ParseFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	trxs, err := h.Backend.ListTransactions(r.Context())
	if err != nil {
		log.Printf("httpx: list transactions: %v", err)
		fail(w, err)
		return nil, false
	}
	return report.Apply(trxs, f, r.URL.Query().Get("q")), true
}

func (h *TerminalHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	trxs, ok := h.history(w, r)
	if !ok {
		return
	}
	out := make([]transactionView, 0, len(trxs))
	for _, t := range trxs {
		out = append(out, transactionView{Transaction: t, Label: report.Label(t.RawStatus)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *TerminalHandler) summary(w http.ResponseWriter, r *http.Request) {
	trxs, err := h.Backend.ListTransactions(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	products := len(h.Shelf.Products())
	if ps, err := h.refresh(r.Context()); err == nil {
		products = len(ps)
	}
	writeJSON(w, http.StatusOK, report.Summarize(trxs, products, time.Now()))
}

func (h *TerminalHandler) reportPDF(w http.ResponseWriter, r *http.Request) {
	trxs, ok := h.history(w, r)
	if !ok {
		return
	}
	rows, err := report.Collect(r.Context(), h.Backend, trxs)
	if err != nil {
		fail(w, err)
		return
	}
	now := time.Now()
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, rows, now); err != nil {
		log.Printf("httpx: report pdf: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="laporan-transaksi-%s.pdf"`, now.Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
