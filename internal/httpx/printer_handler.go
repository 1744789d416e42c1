package httpx

import (
	"net/http"

	"github.com/ariefcatur/telava-pos/internal/checkout"
	"github.com/ariefcatur/telava-pos/internal/printer"
)

type printerStatus struct {
	Devices   []printer.Device `json:"devices,omitempty"`
	Connected *printer.Device  `json:"connected,omitempty"`
}

func (h *TerminalHandler) status() printerStatus {
	var st printerStatus
	if d, ok := h.Printer.Connected(); ok {
		st.Connected = &d
	}
	return st
}

func (h *TerminalHandler) scanPrinters(w http.ResponseWriter, r *http.Request) {
	st := h.status()
	st.Devices = h.Printer.Scan(r.Context())
	if st.Devices == nil {
		st.Devices = []printer.Device{}
	}
	writeJSON(w, http.StatusOK, st)
}

type connectReq struct {
	Address string `json:"address"`
}

func (h *TerminalHandler) connectPrinter(w http.ResponseWriter, r *http.Request) {
	var req connectReq
	if !decode(w, r, &req) {
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address required")
		return
	}
	if err := h.Printer.Connect(r.Context(), req.Address); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}

func (h *TerminalHandler) disconnectPrinter(w http.ResponseWriter, r *http.Request) {
	h.Printer.Disconnect()
	writeJSON(w, http.StatusOK, h.status())
}

type printReq struct {
	Code string `json:"transaction_code,omitempty"`
	// QR is printed under the totals, e.g. the payment link of a pending sale.
	QR string `json:"qr,omitempty"`
}

// printReceipt prints the last receipt, or a cached one by code.
func (h *TerminalHandler) printReceipt(w http.ResponseWriter, r *http.Request) {
	var req printReq
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	var (
		rcpt checkout.Receipt
		ok   bool
	)
	if req.Code != "" {
		rcpt, ok = h.Checkout.Receipt(r.Context(), req.Code)
	} else {
		rcpt, ok = h.Checkout.LastReceipt()
	}
	if !ok {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}
	slip := rcpt.Slip()
	slip.QR = req.QR
	if err := h.Printer.Print(r.Context(), printer.FormatReceipt(slip)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"printed": rcpt.Code})
}
