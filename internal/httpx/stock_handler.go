package httpx

import "net/http"

type stockInReq struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

func (h *TerminalHandler) stockIn(w http.ResponseWriter, r *http.Request) {
	var req stockInReq
	if !decode(w, r, &req) {
		return
	}
	ps, err := h.Stock.Receive(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		fail(w, err)
		return
	}
	if ps != nil {
		h.observe(ps)
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": req.ProductID, "added": req.Quantity})
}
