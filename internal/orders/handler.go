package orders

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
	"github.com/AKAPP611/al-jameel-mes/internal/platform/httpx"
)

// Handler exposes the order lifecycle over JSON HTTP.
type Handler struct {
	logger *slog.Logger
	repo   *inventory.Repository
}

// NewHandler constructs the orders handler.
func NewHandler(logger *slog.Logger, repo *inventory.Repository) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/factories/{factoryID}/orders", h.List)
	r.Post("/factories/{factoryID}/orders", h.Create)
	r.Get("/factories/{factoryID}/orders/{orderID}", h.Show)
	r.Post("/factories/{factoryID}/orders/{orderID}/reserve", h.Reserve)
	r.Post("/factories/{factoryID}/orders/{orderID}/fulfill", h.Fulfill)
	r.Post("/factories/{factoryID}/orders/{orderID}/cancel", h.Cancel)
}

func (h *Handler) manager(r *http.Request) *Manager {
	return NewManager(h.repo, chi.URLParam(r, "factoryID"), h.logger)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := OrderFilter{
		Status:   inventory.OrderStatus(q.Get("status")),
		Customer: q.Get("customer"),
	}
	orders, err := h.manager(r).GetOrders(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	order, err := h.manager(r).CreateOrder(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	order, err := h.manager(r).GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	order, err := h.manager(r).ReserveOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Fulfill(w http.ResponseWriter, r *http.Request) {
	var req ShipmentRequest
	if err := decodeOptional(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	order, err := h.manager(r).FulfillOrder(r.Context(), chi.URLParam(r, "orderID"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := decodeOptional(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	order, err := h.manager(r).CancelOrder(r.Context(), chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// decodeOptional accepts an empty body as the zero request.
func decodeOptional(r *http.Request, target any) error {
	err := httpx.DecodeJSON(r, target)
	if err != nil && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug("order request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	httpx.RespondError(w, err)
}
