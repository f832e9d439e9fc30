package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clovelane/order-service/internal/handler"
)

func NewRouter(h *handler.OrderHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{number}", h.GetOrder)
	r.Patch("/orders/{number}/status", h.UpdateStatus)
	r.Get("/orders/{number}/notifications", h.GetNotifications)

	return r
}
