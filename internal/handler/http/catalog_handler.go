package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/digitalstore/internal/auth"
	"github.com/vasiliy-maslov/digitalstore/internal/catalog"
	"github.com/vasiliy-maslov/digitalstore/internal/user"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description"`
}

type ProductRequest struct {
	Name       string          `json:"name" validate:"required,min=2,max=255"`
	Brand      string          `json:"brand"`
	CategoryID string          `json:"category_id" validate:"required,uuid"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity" validate:"gte=0"`
}

type CatalogHandler struct {
	svc      catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(svc catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	staffOnly := auth.RequireRole(user.RoleManager, user.RoleAdmin)

	router.Get("/categories", h.handleSearchCategories)
	router.Get("/categories/{id}", h.handleGetCategoryByID)
	router.With(staffOnly).Post("/categories", h.handleCreateCategory)
	router.With(staffOnly).Put("/categories/{id}", h.handleUpdateCategory)
	router.With(staffOnly).Delete("/categories/{id}", h.handleDeleteCategory)

	router.Get("/products", h.handleSearchProducts)
	router.Get("/products/{id}", h.handleGetProductByID)
	router.With(staffOnly).Post("/products", h.handleCreateProduct)
	router.With(staffOnly).Put("/products/{id}", h.handleUpdateProduct)
	router.With(staffOnly).Delete("/products/{id}", h.handleDeleteProduct)
}

func (h *CatalogHandler) handleSearchCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.SearchCategories(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to search categories via service")
		respondWithServiceError(w, err, "Failed to search categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleGetCategoryByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	category, err := h.svc.GetCategoryByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get category")
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var requestPayload CategoryRequest
	if !h.decodeAndValidate(w, r, &requestPayload) {
		return
	}

	category, err := h.svc.CreateCategory(r.Context(), catalog.CategoryInput{
		Name:        requestPayload.Name,
		Description: requestPayload.Description,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create category via service")
		respondWithServiceError(w, err, "Failed to create category")
		return
	}

	respondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload CategoryRequest
	if !h.decodeAndValidate(w, r, &requestPayload) {
		return
	}

	category, err := h.svc.UpdateCategory(r.Context(), id, catalog.CategoryInput{
		Name:        requestPayload.Name,
		Description: requestPayload.Description,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to update category via service")
		respondWithServiceError(w, err, "Failed to update category")
		return
	}

	respondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := catalog.ProductFilter{
		Name:         query.Get("name"),
		Brand:        query.Get("brand"),
		CategoryName: query.Get("category"),
	}

	var err error
	if filter.MinPrice, err = parseDecimalParam(query.Get("min_price")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.MaxPrice, err = parseDecimalParam(query.Get("max_price")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.MinQuantity, err = parseIntParam(query.Get("min_quantity")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.MaxQuantity, err = parseIntParam(query.Get("max_quantity")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.svc.SearchProducts(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search products via service")
		respondWithServiceError(w, err, "Failed to search products")
		return
	}

	respondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) handleGetProductByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	product, err := h.svc.GetProductByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var requestPayload ProductRequest
	if !h.decodeAndValidate(w, r, &requestPayload) {
		return
	}

	input, ok := toProductInput(w, requestPayload)
	if !ok {
		return
	}

	product, err := h.svc.CreateProduct(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create product via service")
		respondWithServiceError(w, err, "Failed to create product")
		return
	}

	respondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload ProductRequest
	if !h.decodeAndValidate(w, r, &requestPayload) {
		return
	}

	input, ok := toProductInput(w, requestPayload)
	if !ok {
		return
	}

	product, err := h.svc.UpdateProduct(r.Context(), id, input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update product via service")
		respondWithServiceError(w, err, "Failed to update product")
		return
	}

	respondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		respondWithValidationError(w, err)
		return false
	}
	return true
}

func toProductInput(w http.ResponseWriter, req ProductRequest) (catalog.ProductInput, bool) {
	categoryID, err := uuid.FromString(req.CategoryID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category_id")
		return catalog.ProductInput{}, false
	}

	return catalog.ProductInput{
		Name:       req.Name,
		Brand:      req.Brand,
		CategoryID: categoryID,
		Price:      req.Price,
		Quantity:   req.Quantity,
	}, true
}

func parseDecimalParam(value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseIntParam(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
