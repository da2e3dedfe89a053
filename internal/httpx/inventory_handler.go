package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mhardiyanto/go-stock-orders/internal/inventory"
)

type InventoryHandler struct {
	Catalog *inventory.Catalog
	Ledger  *inventory.Ledger
}

type stockReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Post("/products", h.createProduct)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deactivateProduct)

	r.Post("/inventory/add", h.addStock)
	r.Post("/inventory/reserve", h.reserveStock)
	r.Post("/inventory/release", h.releaseStock)
	r.Get("/inventory/check", h.checkStock)
}

func (h *InventoryHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in inventory.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *InventoryHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		ps  []inventory.Product
		err error
	)
	if r.URL.Query().Get("active") == "1" {
		ps, err = h.Catalog.ListActiveProducts(r.Context())
	} else {
		ps, err = h.Catalog.ListProducts(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *InventoryHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in inventory.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeactivateProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) addStock(w http.ResponseWriter, r *http.Request) {
	h.mutateStock(w, r, h.Ledger.Add)
}

func (h *InventoryHandler) reserveStock(w http.ResponseWriter, r *http.Request) {
	h.mutateStock(w, r, h.Ledger.Reserve)
}

func (h *InventoryHandler) releaseStock(w http.ResponseWriter, r *http.Request) {
	h.mutateStock(w, r, h.Ledger.Release)
}

func (h *InventoryHandler) mutateStock(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, productID string, qty int) error) {
	var req stockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" || req.Qty <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id and positive qty required"})
		return
	}
	if err := op(r.Context(), req.ProductID, req.Qty); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.Catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) checkStock(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	qty, err := strconv.Atoi(r.URL.Query().Get("qty"))
	if productID == "" || err != nil || qty <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id and positive qty required"})
		return
	}
	ok, err := h.Ledger.CheckAvailability(r.Context(), productID, qty)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}
