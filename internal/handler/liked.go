package handler

import (
	"net/http"

	"github.com/msomdec/spacebook/internal/domain"
	"github.com/msomdec/spacebook/internal/liked"
)

// LikedHandler serves the liked-products list and the selected product.
type LikedHandler struct {
	liked *liked.Store
}

// NewLikedHandler creates a new LikedHandler.
func NewLikedHandler(store *liked.Store) *LikedHandler {
	return &LikedHandler{liked: store}
}

// HandleList returns the liked products in the order they were liked.
// GET /api/liked
func (h *LikedHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items := h.liked.Liked()
	if items == nil {
		items = []domain.LikedProduct{}
	}
	writeOK(w, http.StatusOK, "", items)
}

// HandleToggle adds the product when absent and removes it when present.
// POST /api/liked/toggle
// Request:  {"id":"...","name":"...","priceFrom":"...",...}
// Response: {"success":true,"data":{"id":"...","liked":true}}
func (h *LikedHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	var p domain.LikedProduct
	if err := readJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if p.ID == "" {
		writeError(w, http.StatusUnprocessableEntity, "Product id is required.")
		return
	}
	writeOK(w, http.StatusOK, "", LikedDTO{ID: p.ID, Liked: h.liked.ToggleLike(p)})
}

// HandleIsLiked reports whether a product is liked.
// GET /api/liked/{id}
func (h *LikedHandler) HandleIsLiked(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeOK(w, http.StatusOK, "", LikedDTO{ID: id, Liked: h.liked.IsLiked(id)})
}

// HandleGetSelected returns the product currently open in the detail view.
// GET /api/products/selected
func (h *LikedHandler) HandleGetSelected(w http.ResponseWriter, r *http.Request) {
	p, ok := h.liked.SelectedProduct()
	if !ok {
		writeError(w, http.StatusNotFound, "No product selected.")
		return
	}
	writeOK(w, http.StatusOK, "", p)
}

// HandleSetSelected replaces the selected product.
// PUT /api/products/selected
func (h *LikedHandler) HandleSetSelected(w http.ResponseWriter, r *http.Request) {
	var p domain.LikedProduct
	if err := readJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if p.ID == "" {
		writeError(w, http.StatusUnprocessableEntity, "Product id is required.")
		return
	}
	h.liked.SetSelectedProduct(p)
	writeOK(w, http.StatusOK, "", p)
}
