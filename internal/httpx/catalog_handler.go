package httpx

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/ariefcatur/telava-pos/internal/catalog"
	"github.com/ariefcatur/telava-pos/internal/notify"
	"github.com/shopspring/decimal"
)

const maxPhotoUpload = 8 << 20

// refresh reloads products and lets the cart observe the new stock figures.
func (h *TerminalHandler) refresh(ctx context.Context) ([]catalog.Product, error) {
	ps, err := h.Backend.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	h.observe(ps)
	return ps, nil
}

func (h *TerminalHandler) observe(ps []catalog.Product) {
	h.Shelf.SetProducts(ps)
	if adjusted := h.Cart.ObserveStock(ps); len(adjusted) > 0 {
		log.Printf("httpx: cart adjusted to stock for products %v", adjusted)
		h.notify(notify.LevelWarning, "Stok Berubah", "Jumlah di keranjang disesuaikan dengan stok terbaru")
	}
}

func (h *TerminalHandler) getCatalog(w http.ResponseWriter, r *http.Request) {
	ps, err := h.refresh(r.Context())
	if err != nil {
		log.Printf("httpx: list products: %v", err)
		h.notify(notify.LevelError, "Error", "Gagal memuat produk")
		fail(w, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]any{
		"products": catalog.Filter(ps, q.Get("category"), q.Get("q")),
		"total":    len(ps),
	})
}

func (h *TerminalHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Backend.ListCategories(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	h.Shelf.SetCategories(cs)
	writeJSON(w, http.StatusOK, catalog.WithAll(cs))
}

func (h *TerminalHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var d catalog.CategoryDraft
	if !decode(w, r, &d) {
		return
	}
	if v := d.Validate(); !v.Empty() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": v})
		return
	}
	c, err := h.Backend.CreateCategory(r.Context(), d)
	if err != nil {
		fail(w, err)
		return
	}
	h.notify(notify.LevelSuccess, "Kategori", "Kategori berhasil ditambahkan")
	writeJSON(w, http.StatusCreated, c)
}

func (h *TerminalHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var d catalog.CategoryDraft
	if !decode(w, r, &d) {
		return
	}
	if v := d.Validate(); !v.Empty() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": v})
		return
	}
	if err := h.Backend.UpdateCategory(r.Context(), id, d); err != nil {
		fail(w, err)
		return
	}
	h.notify(notify.LevelSuccess, "Kategori", "Kategori berhasil diperbarui")
	w.WriteHeader(http.StatusNoContent)
}

func (h *TerminalHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Backend.DeleteCategory(r.Context(), id); err != nil {
		fail(w, err)
		return
	}
	h.notify(notify.LevelSuccess, "Kategori", "Kategori berhasil dihapus")
	w.WriteHeader(http.StatusNoContent)
}

func (h *TerminalHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	d, ok := productForm(w, r)
	if !ok {
		return
	}
	if err := h.Backend.CreateProduct(r.Context(), d); err != nil {
		fail(w, err)
		return
	}
	h.notify(notify.LevelSuccess, "Produk", "Produk berhasil ditambahkan")
	w.WriteHeader(http.StatusCreated)
}

func (h *TerminalHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, ok := productForm(w, r)
	if !ok {
		return
	}
	if err := h.Backend.UpdateProduct(r.Context(), id, d); err != nil {
		fail(w, err)
		return
	}
	h.notify(notify.LevelSuccess, "Produk", "Produk berhasil diperbarui")
	w.WriteHeader(http.StatusNoContent)
}

func (h *TerminalHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Backend.DeleteProduct(r.Context(), id); err != nil {
		fail(w, err)
		return
	}
	h.notify(notify.LevelSuccess, "Produk", "Produk berhasil dihapus")
	w.WriteHeader(http.StatusNoContent)
}

// productForm reads the multipart product form; photo is optional.
func productForm(w http.ResponseWriter, r *http.Request) (catalog.ProductDraft, bool) {
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return catalog.ProductDraft{}, false
	}
	v := catalog.Violations{}
	d := catalog.ProductDraft{Name: strings.TrimSpace(r.FormValue("name"))}
	if s := r.FormValue("price"); s != "" {
		p, err := decimal.NewFromString(s)
		if err != nil {
			v["price"] = "invalid"
		}
		d.Price = p
	}
	d.Stock = formInt(r, "stock", v)
	d.CategoryID = formInt(r, "id_category", v)

	if f, _, err := r.FormFile("photo"); err == nil {
		defer f.Close()
		jpg, err := catalog.NormalizePhoto(f)
		if err != nil {
			v["photo"] = "invalid_image"
		}
		d.Photo = jpg
	}
	for k, reason := range d.Validate() {
		if _, seen := v[k]; !seen {
			v[k] = reason
		}
	}
	if !v.Empty() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": v})
		return catalog.ProductDraft{}, false
	}
	return d, true
}

func formInt(r *http.Request, key string, v catalog.Violations) int {
	s := r.FormValue(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		v[key] = "invalid"
	}
	return n
}
