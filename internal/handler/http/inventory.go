package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/inventory"
	"github.com/utafrali/storefront/pkg/httputil"
)

// InventoryHandler answers stock queries with a fixed level. It stands in
// for the inventory service the catalog consults.
type InventoryHandler struct {
	available int
}

// NewInventoryHandler creates a stub reporting available units for every
// product.
func NewInventoryHandler(available int) *InventoryHandler {
	return &InventoryHandler{available: available}
}

// GetStock handles GET /api/v1/inventory/{productId}
func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inventory.Availability{ProductID: id, Available: h.available})
}
