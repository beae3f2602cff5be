package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/builderhub/checkout/internal/core/domain"
	"github.com/builderhub/checkout/internal/core/service"
	"github.com/builderhub/checkout/internal/payment"
	"github.com/builderhub/checkout/internal/port"
)

type HTTPHandler struct {
	checkout *service.CheckoutService
	items    port.ItemReader
	db       port.DatabaseRepository
	logger   *slog.Logger
}

func NewHTTPHandler(checkout *service.CheckoutService, items port.ItemReader, db port.DatabaseRepository, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{checkout: checkout, items: items, db: db, logger: logger}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("POST /api/checkout/{id}/outcome", h.WidgetOutcome)
	mux.HandleFunc("GET /api/checkout/{id}", h.CheckoutStatus)
	mux.HandleFunc("GET /api/items", h.ListItems)
	mux.HandleFunc("POST /api/items", h.CreateItem)
	mux.HandleFunc("GET /api/items/{id}", h.GetItem)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /api/notifications/{recipient}", h.ListNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.MarkNotificationRead)
}

type CheckoutRequest struct {
	ItemID        string `json:"item_id"`
	BuyerID       string `json:"buyer_id"`
	Quantity      int    `json:"quantity"`
	Address       string `json:"address"`
	ContactNumber string `json:"contact_number"`
	PaymentMethod string `json:"payment_method"`
}

type AttemptResponse struct {
	AttemptID string                `json:"attempt_id"`
	Status    string                `json:"status"`
	Order     *domain.Order         `json:"order,omitempty"`
	Widget    *payment.WidgetConfig `json:"widget,omitempty"`
	Message   string                `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.ItemID == "" || req.BuyerID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required fields"})
		return
	}

	item, err := h.items.GetItem(r.Context(), req.ItemID)
	if err != nil {
		h.logger.Error("item lookup failed", "item", req.ItemID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "item not found"})
		return
	}

	attempt, err := h.checkout.PlaceOrder(r.Context(), service.PurchaseRequest{
		Item:          *item,
		BuyerID:       req.BuyerID,
		Quantity:      req.Quantity,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	if attempt.State() == service.AttemptPendingPayment {
		writeJSON(w, http.StatusAccepted, AttemptResponse{
			AttemptID: attempt.ID,
			Status:    string(service.AttemptPendingPayment),
			Widget:    &attempt.Widget,
		})
		return
	}

	writeJSON(w, http.StatusCreated, AttemptResponse{
		AttemptID: attempt.ID,
		Status:    string(attempt.State()),
		Order:     attempt.Order(),
	})
}

func (h *HTTPHandler) WidgetOutcome(w http.ResponseWriter, r *http.Request) {
	attemptID := r.PathValue("id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable request body"})
		return
	}

	msg, err := payment.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	attempt, err := h.checkout.HandleWidgetMessage(r.Context(), attemptID, msg)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "attempt not found"})
		case errors.Is(err, service.ErrAttemptResolved):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "attempt already resolved"})
		default:
			h.writeCheckoutError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, attemptResponse(attempt))
}

func (h *HTTPHandler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	attempt, ok := h.checkout.Attempt(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "attempt not found"})
		return
	}
	writeJSON(w, http.StatusOK, attemptResponse(attempt))
}

type CreateItemRequest struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	OwnerID     string   `json:"owner_id"`
	Images      []string `json:"images"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Color       string   `json:"color"`
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.Name == "" || req.OwnerID == "" || req.Price <= 0 || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing or invalid item fields"})
		return
	}

	item := &domain.Item{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		OwnerID:     req.OwnerID,
		Images:      req.Images,
		Description: req.Description,
		Category:    req.Category,
		Color:       req.Color,
		CreatedAt:   time.Now(),
	}

	if err := h.db.CreateItem(r.Context(), item); err != nil {
		h.logger.Error("item create failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("item lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.db.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("order lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if order == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.ListItems(r.Context())
	if err != nil {
		h.logger.Error("item list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifs, err := h.db.ListNotifications(r.Context(), r.PathValue("recipient"))
	if err != nil {
		h.logger.Error("notification list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if notifs == nil {
		notifs = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notifs)
}

func (h *HTTPHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.db.MarkNotificationRead(r.Context(), r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "notification not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeCheckoutError maps workflow errors to responses. The incomplete
// case gets its own message so the client can tell "nothing happened"
// from "payment captured but order record missing".
func (h *HTTPHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	var (
		validationErr *service.ValidationError
		paymentErr    *service.PaymentError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.Is(err, service.ErrInsufficientStock):
		writeJSON(w, http.StatusGone, errorResponse{Error: "sold out"})
	case errors.As(err, &paymentErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: paymentErr.Error()})
	case errors.Is(err, service.ErrOrderIncomplete):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "order confirmation incomplete, contact support",
		})
	default:
		h.logger.Error("checkout failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func attemptResponse(a *service.Attempt) AttemptResponse {
	resp := AttemptResponse{
		AttemptID: a.ID,
		Status:    string(a.State()),
		Order:     a.Order(),
	}
	if resp.Status == string(service.AttemptPendingPayment) {
		widget := a.Widget
		resp.Widget = &widget
	}
	if err := a.Err(); err != nil && !errors.Is(err, service.ErrPaymentCancelled) {
		resp.Message = err.Error()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
