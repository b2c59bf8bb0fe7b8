package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mercata/orderflow/internal/core/domain"
	"github.com/mercata/orderflow/internal/core/service"
)

type HTTPHandler struct {
	orders *service.OrderService
	logger *zap.Logger
}

func NewHTTPHandler(orders *service.OrderService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{orders: orders, logger: logger}
}

// Routes builds the router. Authentication is handled upstream; the owner id
// arrives via the X-User-ID header and is empty for guest checkout.
func (h *HTTPHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Post("/api/orders", h.CreateOrder)
	r.Get("/api/orders/{orderID}", h.GetOrder)
	r.Post("/api/orders/{orderID}/cancel", h.CancelOrder)

	return r
}

type createOrderRequest struct {
	Items []struct {
		ProductID   string `json:"product_id"`
		Quantity    int    `json:"quantity"`
		ClientPrice int64  `json:"client_price"`
	} `json:"items"`
	Shipping struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Address    string `json:"address"`
		City       string `json:"city"`
		PostalCode string `json:"postal_code"`
	} `json:"shipping"`
	PromoCode   string `json:"promo_code"`
	Attribution *struct {
		Source   string `json:"source"`
		Medium   string `json:"medium"`
		Campaign string `json:"campaign"`
	} `json:"attribution"`
}

type orderResponse struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Total       int64  `json:"total"`
	CreatedAt   string `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if len(req.Items) == 0 || req.Shipping.Name == "" || req.Shipping.Address == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required fields"})
		return
	}

	orderReq := domain.OrderRequest{
		PromoCode: req.PromoCode,
		Shipping: domain.ShippingInfo{
			Name:       req.Shipping.Name,
			Email:      req.Shipping.Email,
			Phone:      req.Shipping.Phone,
			Address:    req.Shipping.Address,
			City:       req.Shipping.City,
			PostalCode: req.Shipping.PostalCode,
		},
	}
	for _, item := range req.Items {
		orderReq.Items = append(orderReq.Items, domain.OrderRequestItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			ClientPrice: item.ClientPrice,
		})
	}
	if req.Attribution != nil {
		orderReq.Attribution = &domain.Attribution{
			Source:   req.Attribution.Source,
			Medium:   req.Attribution.Medium,
			Campaign: req.Attribution.Campaign,
		}
	}

	summary, err := h.orders.CreateOrder(r.Context(), orderReq, r.Header.Get("X-User-ID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, orderResponse{
		ID:          summary.ID,
		OrderNumber: summary.OrderNumber,
		Status:      string(summary.Status),
		Total:       summary.Total,
		CreatedAt:   summary.CreatedAt.Format(time.RFC3339),
	})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, items, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	type lineItem struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
		UnitPrice int64  `json:"unit_price"`
	}
	resp := struct {
		orderResponse
		Subtotal int64      `json:"subtotal"`
		Shipping int64      `json:"shipping"`
		Discount int64      `json:"discount"`
		Items    []lineItem `json:"items"`
	}{
		orderResponse: orderResponse{
			ID:          order.ID,
			OrderNumber: order.OrderNumber,
			Status:      string(order.Status),
			Total:       order.Totals.Total,
			CreatedAt:   order.CreatedAt.Format(time.RFC3339),
		},
		Subtotal: order.Totals.Subtotal,
		Shipping: order.Totals.Shipping,
		Discount: order.Totals.Discount,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, lineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if err := h.orders.CancelOrder(r.Context(), orderID); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.OrderStatusCancelled)})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		status, message = http.StatusNotFound, "product not found"
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, message = http.StatusUnprocessableEntity, "invalid quantity"
	case errors.Is(err, domain.ErrTooManyItems):
		status, message = http.StatusUnprocessableEntity, "too many items"
	case errors.Is(err, domain.ErrTotalTooLow):
		status, message = http.StatusUnprocessableEntity, "order total too low"
	case errors.Is(err, domain.ErrTotalTooHigh):
		status, message = http.StatusUnprocessableEntity, "order total too high"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, message = http.StatusConflict, "insufficient stock"
	case errors.Is(err, domain.ErrOrderNotFound):
		status, message = http.StatusNotFound, "order not found"
	case errors.Is(err, domain.ErrNotCancellable):
		status, message = http.StatusConflict, "order cannot be cancelled"
	default:
		status, message = http.StatusInternalServerError, "internal error"
		h.logger.Error("order request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
