package rest

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/service/saga"
)

// Заголовки идентичности, проставляемые API-gateway'ем после аутентификации.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
	headerUserRole  = "X-User-Role"

	roleAdmin = "ADMIN"
)

const defaultListLimit = 50

type orderItemResponse struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	Qty           int32  `json:"qty"`
	PriceMinor    int64  `json:"price_minor"`
	SubtotalMinor int64  `json:"subtotal_minor"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Status     string              `json:"status"`
	Currency   string              `json:"currency"`
	TotalMinor int64               `json:"total_minor"`
	PaymentRef string              `json:"payment_ref,omitempty"`
	Items      []orderItemResponse `json:"items"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func toOrderResponse(order domain.Order) orderResponse {
	resp := orderResponse{
		ID:         order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		Currency:   order.Currency,
		TotalMinor: order.TotalMinor,
		PaymentRef: order.PaymentRef,
		Items:      make([]orderItemResponse, 0, len(order.Items)),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:     item.ProductID,
			Name:          item.Name,
			Qty:           item.Qty,
			PriceMinor:    item.PriceMinor,
			SubtotalMinor: item.SubtotalMinor,
		})
	}
	return resp
}

// OrderHandler обслуживает HTTP-операции над заказами.
type OrderHandler struct {
	orch   saga.Orchestrator
	logger *log.Entry
}

// NewOrderHandler создает обработчик заказов.
func NewOrderHandler(orch saga.Orchestrator, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.New().WithField("component", "rest-orders")
	}
	return &OrderHandler{orch: orch, logger: logger}
}

// Register добавляет маршруты заказов в mux.
func (h *OrderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
}

// identity извлекает пользователя из заголовков; пустой X-User-Id — 401.
func identity(w http.ResponseWriter, r *http.Request) (userID, email string, ok bool) {
	userID = r.Header.Get(headerUserID)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+headerUserID+" header")
		return "", "", false
	}
	return userID, r.Header.Get(headerUserEmail), true
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := identity(w, r)
	if !ok {
		return
	}

	order, err := h.orch.CreateOrder(r.Context(), userID, email)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	order, err := h.orch.GetOrder(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	orders, err := h.orch.ListUserOrders(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := identity(w, r)
	if !ok {
		return
	}

	order, err := h.orch.CancelOrder(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
