package rest

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// CartManager расширяет CartStore операцией сохранения: оформлению заказа
// запись корзины не нужна, а HTTP-слою — нужна.
type CartManager interface {
	domain.CartStore
	SaveCart(ctx context.Context, cart domain.Cart) error
}

type cartItemRequest struct {
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

type saveCartRequest struct {
	Items []cartItemRequest `json:"items"`
}

// CartHandler обслуживает HTTP-операции над корзиной пользователя.
type CartHandler struct {
	carts  CartManager
	logger *log.Entry
}

// NewCartHandler создает обработчик корзины.
func NewCartHandler(carts CartManager, logger *log.Entry) *CartHandler {
	if logger == nil {
		logger = log.New().WithField("component", "rest-cart")
	}
	return &CartHandler{carts: carts, logger: logger}
}

// Register добавляет маршруты корзины в mux.
func (h *CartHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("PUT /api/cart", h.saveCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// saveCart заменяет корзину целиком; суммы строк и итог пересчитываются на
// сервере, клиентским суммам доверия нет.
func (h *CartHandler) saveCart(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	var req saveCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart := domain.Cart{UserID: userID}
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			writeError(w, http.StatusBadRequest, "item product_id must be positive")
			return
		}
		if item.Qty <= 0 {
			writeError(w, http.StatusBadRequest, "item qty must be positive")
			return
		}
		if item.PriceMinor < 0 {
			writeError(w, http.StatusBadRequest, "item price_minor must be non-negative")
			return
		}

		subtotal := int64(item.Qty) * item.PriceMinor
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:     item.ProductID,
			Name:          item.Name,
			Qty:           item.Qty,
			PriceMinor:    item.PriceMinor,
			SubtotalMinor: subtotal,
		})
		cart.TotalMinor += subtotal
	}

	if err := h.carts.SaveCart(r.Context(), cart); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
