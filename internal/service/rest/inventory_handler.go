package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

type stockResponse struct {
	ProductID int64 `json:"product_id"`
	Available int32 `json:"available"`
	Reserved  int32 `json:"reserved"`
}

type addStockRequest struct {
	Qty int32 `json:"qty"`
}

type inStockResponse struct {
	ProductID int64 `json:"product_id"`
	Qty       int32 `json:"qty"`
	InStock   bool  `json:"in_stock"`
}

// InventoryHandler обслуживает HTTP-операции складского учёта.
// Пополнение остатка доступно только роли ADMIN.
type InventoryHandler struct {
	ledger domain.InventoryLedger
	logger *log.Entry
}

// NewInventoryHandler создает обработчик склада.
func NewInventoryHandler(ledger domain.InventoryLedger, logger *log.Entry) *InventoryHandler {
	if logger == nil {
		logger = log.New().WithField("component", "rest-inventory")
	}
	return &InventoryHandler{ledger: ledger, logger: logger}
}

// Register добавляет маршруты склада в mux.
func (h *InventoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/inventory/{productID}", h.getStock)
	mux.HandleFunc("GET /api/inventory/{productID}/in-stock", h.checkStock)
	mux.HandleFunc("POST /api/admin/inventory/{productID}/stock", h.addStock)
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "product id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *InventoryHandler) getStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	rec, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stockResponse{
		ProductID: rec.ProductID,
		Available: rec.Available,
		Reserved:  rec.Reserved,
	})
}

func (h *InventoryHandler) checkStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	qty := int32(1)
	if raw := r.URL.Query().Get("qty"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "qty must be a positive integer")
			return
		}
		qty = int32(parsed)
	}

	inStock, err := h.ledger.IsInStock(r.Context(), id, qty)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, inStockResponse{ProductID: id, Qty: qty, InStock: inStock})
}

func (h *InventoryHandler) addStock(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := identity(w, r); !ok {
		return
	}
	if r.Header.Get(headerUserRole) != roleAdmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req addStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.ledger.AddStock(r.Context(), id, req.Qty)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.WithFields(log.Fields{
		"product_id": id,
		"qty":        req.Qty,
	}).Info("stock added by admin")

	writeJSON(w, http.StatusOK, stockResponse{
		ProductID: rec.ProductID,
		Available: rec.Available,
		Reserved:  rec.Reserved,
	})
}
