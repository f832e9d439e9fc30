package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/clovelane/order-service/internal/notify"
	"github.com/clovelane/order-service/internal/order"
	"github.com/clovelane/order-service/internal/validation"
)

// NotificationHistory is the read side of the per-order notification log.
type NotificationHistory interface {
	List(ctx context.Context, orderNumber string, limit int) ([]notify.HistoryEntry, error)
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	svc      order.Service
	history  NotificationHistory
	validate *validatorv10.Validate
}

func NewOrderHandler(svc order.Service, history NotificationHistory) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		history:  history,
		validate: validation.New(),
	}
}

// CreateOrder handles checkout: validates the request and persists the
// order; notification dispatch never affects the response.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req validation.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid order: "+err.Error(), http.StatusBadRequest)
		return
	}

	o := toOrder(&req)
	created, err := h.svc.CreateOrder(r.Context(), o)
	if err != nil {
		log.Info().Msgf("Failed to create order: %v", err)
		http.Error(w, "failed to create order", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetOrder handles retrieving an order by its number.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		http.Error(w, "order number is required", http.StatusBadRequest)
		return
	}

	o, err := h.svc.GetOrderByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		log.Info().Msgf("Failed to get order: %v", err)
		http.Error(w, "failed to get order", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// UpdateStatus handles a fulfilment status transition with optional
// tracking fields.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		http.Error(w, "order number is required", http.StatusBadRequest)
		return
	}

	var req validation.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	tracking := &order.TrackingUpdate{
		TrackingNumber:    req.TrackingNumber,
		CourierName:       req.CourierName,
		TrackingURL:       req.TrackingURL,
		EstimatedDelivery: req.EstimatedDelivery,
		DeliveryWindow:    req.DeliveryWindow,
	}

	updated, err := h.svc.UpdateStatus(r.Context(), number, order.Status(req.Status), tracking)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, order.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Info().Msgf("Failed to update order status: %v", err)
			http.Error(w, "failed to update order status", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// GetNotifications returns the append-only notification history of an order.
func (h *OrderHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		http.Error(w, "order number is required", http.StatusBadRequest)
		return
	}

	entries, err := h.history.List(r.Context(), number, 50)
	if err != nil {
		log.Info().Msgf("Failed to list notifications: %v", err)
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": entries})
}

func toOrder(req *validation.CreateOrderRequest) *order.Order {
	items := make([]order.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.OrderItem{
			Name:      item.Name,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	return &order.Order{
		Subtotal:      req.Subtotal,
		ShippingCost:  req.ShippingCost,
		Tax:           req.Tax,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
		CustomerEmail: req.CustomerEmail,
		Shipping:      toContact(req.Shipping),
		Billing:       toContact(req.Billing),
		Items:         items,
	}
}

func toContact(req validation.ContactRequest) order.Contact {
	return order.Contact{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Info().Msgf("Failed to encode response: %v", err)
	}
}
