package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/digitalstore/internal/auth"
	"github.com/vasiliy-maslov/digitalstore/internal/user"
)

type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,min=2"`
	LastName  string `json:"last_name" validate:"required,min=2"`
	Role      string `json:"role" validate:"required,oneof=CLIENT MANAGER ADMIN"`
	Password  string `json:"password" validate:"required,min=6"`
}

type UpdateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required,min=2"`
	LastName  string  `json:"last_name" validate:"required,min=2"`
	Role      string  `json:"role" validate:"required,oneof=CLIENT MANAGER ADMIN"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=6"`
}

type UpdateProfileRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required,min=2"`
	LastName  string  `json:"last_name" validate:"required,min=2"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=6"`
}

// ProfileResponse carries the fresh token minted when an email change made
// the caller's previous session identity stale.
type ProfileResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token,omitempty"`
}

type UserHandler struct {
	users    user.Service
	tokens   *auth.TokenManager
	validate *validator.Validate
}

func NewUserHandler(users user.Service, tokens *auth.TokenManager) *UserHandler {
	return &UserHandler{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	adminOnly := auth.RequireRole(user.RoleAdmin)

	router.With(adminOnly).Get("/users", h.handleSearchUsers)
	router.With(adminOnly).Post("/users", h.handleCreateUser)
	router.With(adminOnly).Get("/users/{id}", h.handleGetUserByID)
	router.With(adminOnly).Put("/users/{id}", h.handleUpdateUser)
	router.With(adminOnly).Delete("/users/{id}", h.handleDeleteUser)
	router.Put("/profile/{id}", h.handleUpdateProfile)
}

func (h *UserHandler) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := user.Filter{
		Email:     query.Get("email"),
		FirstName: query.Get("first_name"),
		LastName:  query.Get("last_name"),
	}

	if roleParam := query.Get("role"); roleParam != "" {
		role := user.Role(roleParam)
		if !role.Valid() {
			respondWithError(w, http.StatusBadRequest, "Invalid role parameter")
			return
		}
		filter.Role = &role
	}

	var err error
	if filter.CreatedFrom, err = parseTimeParam(query.Get("created_from")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.CreatedTo, err = parseTimeParam(query.Get("created_to")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.UpdatedFrom, err = parseTimeParam(query.Get("updated_from")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.UpdatedTo, err = parseTimeParam(query.Get("updated_to")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.users.Search(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search users via service")
		respondWithServiceError(w, err, "Failed to search users")
		return
	}

	responsePayload := make([]UserResponse, 0, len(users))
	for i := range users {
		responsePayload = append(responsePayload, toUserResponse(&users[i]))
	}

	respondWithJSON(w, http.StatusOK, responsePayload)
}

func (h *UserHandler) handleGetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	foundUser, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get user")
		return
	}

	respondWithJSON(w, http.StatusOK, toUserResponse(foundUser))
}

func (h *UserHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateUserRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create user request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	createdUser, err := h.users.Create(r.Context(), user.CreateInput{
		Email:     requestPayload.Email,
		FirstName: requestPayload.FirstName,
		LastName:  requestPayload.LastName,
		Role:      user.Role(requestPayload.Role),
		Password:  requestPayload.Password,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user via service")
		respondWithServiceError(w, err, "Failed to create user")
		return
	}

	respondWithJSON(w, http.StatusCreated, toUserResponse(createdUser))
}

func (h *UserHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload UpdateUserRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode update user request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	input := user.UpdateInput{
		Email:     requestPayload.Email,
		FirstName: requestPayload.FirstName,
		LastName:  requestPayload.LastName,
		Role:      user.Role(requestPayload.Role),
	}
	if requestPayload.Password != nil {
		input.Password = *requestPayload.Password
	}

	updatedUser, err := h.users.Update(r.Context(), userID, input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update user via service")
		respondWithServiceError(w, err, "Failed to update user")
		return
	}

	respondWithJSON(w, http.StatusOK, toUserResponse(updatedUser))
}

func (h *UserHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		respondWithServiceError(w, err, "Failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	userID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload UpdateProfileRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode update profile request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	input := user.ProfileInput{
		Email:     requestPayload.Email,
		FirstName: requestPayload.FirstName,
		LastName:  requestPayload.LastName,
	}
	if requestPayload.Password != nil {
		input.Password = *requestPayload.Password
	}

	result, err := h.users.UpdateProfile(r.Context(), userID, input, principal.Email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update profile via service")
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}

	responsePayload := ProfileResponse{User: toUserResponse(result.User)}

	// The login identity changed: hand back a token carrying the new email
	// so the caller's session survives the change.
	if result.EmailChanged {
		token, err := h.tokens.Generate(result.User)
		if err != nil {
			log.Error().Err(err).Msg("Failed to refresh token after email change")
			respondWithError(w, http.StatusInternalServerError, "Failed to refresh session")
			return
		}
		responsePayload.Token = token
	}

	respondWithJSON(w, http.StatusOK, responsePayload)
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return id, true
}
