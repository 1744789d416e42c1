package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ariefcatur/telava-pos/internal/cart"
	"github.com/ariefcatur/telava-pos/internal/notify"
)

type cartView struct {
	Lines     []cart.Line `json:"lines"`
	ItemCount int         `json:"item_count"`
	cart.Totals
}

func (h *TerminalHandler) cartView() cartView {
	lines := h.Cart.Lines()
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return cartView{Lines: lines, ItemCount: n, Totals: cart.Compute(lines)}
}

func (h *TerminalHandler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartView())
}

func (h *TerminalHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.Cart.Clear()
	writeJSON(w, http.StatusOK, h.cartView())
}

type addLineReq struct {
	ProductID int `json:"product_id"`
}

func (h *TerminalHandler) addLine(w http.ResponseWriter, r *http.Request) {
	var req addLineReq
	if !decode(w, r, &req) {
		return
	}
	p, ok := h.Shelf.Product(req.ProductID)
	if !ok {
		writeError(w, http.StatusNotFound, "product not in catalog")
		return
	}
	if _, err := h.Cart.Add(p); err != nil {
		h.stockWarning(err)
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView())
}

type setLineReq struct {
	Quantity int `json:"quantity"`
}

func (h *TerminalHandler) setLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req setLineReq
	if !decode(w, r, &req) {
		return
	}
	if err := h.Cart.SetQuantity(id, req.Quantity); err != nil {
		h.stockWarning(err)
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView())
}

func (h *TerminalHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.Cart.Remove(id)
	writeJSON(w, http.StatusOK, h.cartView())
}

func (h *TerminalHandler) stockWarning(err error) {
	var se *cart.StockError
	if !errors.As(err, &se) {
		return
	}
	msg := "Stok produk habis"
	if se.Available > 0 {
		msg = fmt.Sprintf("Stok %s hanya tersisa %d", se.Name, se.Available)
	}
	h.notify(notify.LevelWarning, "Stok Tidak Cukup", msg)
}
