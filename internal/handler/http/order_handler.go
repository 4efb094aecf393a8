package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/digitalstore/internal/auth"
	"github.com/vasiliy-maslov/digitalstore/internal/order"
	"github.com/vasiliy-maslov/digitalstore/internal/user"
)

type CreateOrderRequest struct {
	// UserID may only be set by MANAGER/ADMIN callers placing an order on
	// someone's behalf; clients always order for themselves.
	UserID    string `json:"user_id,omitempty" validate:"omitempty,uuid"`
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=NEW ACCEPTED IN_TRANSIT DELIVERED CANCELLED"`
}

type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	staffOnly := auth.RequireRole(user.RoleManager, user.RoleAdmin)

	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders/{id}", h.handleGetOrderByID)
	router.Patch("/orders/{id}/status", h.handleUpdateOrderStatus)
	router.With(staffOnly).Get("/orders", h.handleSearchOrders)
	router.Get("/orders/my", h.handleSearchMyOrders)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	var requestPayload CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create order request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	productID, err := uuid.FromString(requestPayload.ProductID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product_id")
		return
	}

	ownerID := principal.UserID
	if requestPayload.UserID != "" {
		requestedOwner, err := uuid.FromString(requestPayload.UserID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		if requestedOwner != principal.UserID && !principal.Role.Privileged() {
			respondWithError(w, http.StatusForbidden, "clients can only place orders for themselves")
			return
		}
		ownerID = requestedOwner
	}

	createdOrder, err := h.svc.Create(r.Context(), order.CreateInput{
		UserID:    ownerID,
		ProductID: productID,
		Quantity:  requestPayload.Quantity,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create order via service")
		respondWithServiceError(w, err, "Failed to create order")
		return
	}

	respondWithJSON(w, http.StatusCreated, createdOrder)
}

func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	orderID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	foundOrder, err := h.svc.GetByID(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}

	// Clients may only see their own orders.
	if !principal.Role.Privileged() && foundOrder.UserID != principal.UserID {
		respondWithError(w, http.StatusForbidden, "you can only view your own orders")
		return
	}

	respondWithJSON(w, http.StatusOK, foundOrder)
}

func (h *OrderHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	orderID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload UpdateOrderStatusRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode update order status request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	updatedOrder, err := h.svc.UpdateStatus(r.Context(), orderID, order.Status(requestPayload.Status), principal.Email)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to update order status via service")
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	respondWithJSON(w, http.StatusOK, updatedOrder)
}

func (h *OrderHandler) handleSearchOrders(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseOrderFilter(w, r)
	if !ok {
		return
	}
	filter.UserEmail = r.URL.Query().Get("email")

	orders, err := h.svc.Search(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search orders via service")
		respondWithServiceError(w, err, "Failed to search orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleSearchMyOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	filter, ok := parseOrderFilter(w, r)
	if !ok {
		return
	}

	orders, err := h.svc.SearchForUser(r.Context(), principal.UserID, filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search user orders via service")
		respondWithServiceError(w, err, "Failed to search orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

// parseOrderFilter reads the filter fields shared by both search variants.
// The email predicate is only exposed on the unrestricted route.
func parseOrderFilter(w http.ResponseWriter, r *http.Request) (order.Filter, bool) {
	query := r.URL.Query()

	filter := order.Filter{
		ProductName: query.Get("product"),
	}

	if statusParam := query.Get("status"); statusParam != "" {
		status := order.Status(statusParam)
		if !status.Valid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status parameter")
			return order.Filter{}, false
		}
		filter.Status = &status
	}

	var err error
	if filter.CreatedFrom, err = parseTimeParam(query.Get("created_from")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return order.Filter{}, false
	}
	if filter.CreatedTo, err = parseTimeParam(query.Get("created_to")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return order.Filter{}, false
	}
	if filter.UpdatedFrom, err = parseTimeParam(query.Get("updated_from")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return order.Filter{}, false
	}
	if filter.UpdatedTo, err = parseTimeParam(query.Get("updated_to")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return order.Filter{}, false
	}

	return filter, true
}
