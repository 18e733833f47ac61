// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides the HTTP delivery layer for the caller's own profile.

# Security

GET /user never fails for lack of a token: an absent or stale token resolves
to the anonymous identity upstream. PUT /user requires a valid identity.
*/
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/murmur/internal/platform/request"
	"github.com/taibuivan/murmur/internal/platform/respond"
	"github.com/taibuivan/murmur/internal/platform/validate"
)

// Handler implements the HTTP layer for profile management.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the profile endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.getUser)
	router.Put("/", handler.renameUser)

	return router
}

/*
GET /api/v1/user.

Response:
  - 200: sec.Identity: The resolved caller (anonymous when unauthenticated)
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, requestutil.Identity(request))
}

// renameRequest defines the expected JSON payload for a rename.
type renameRequest struct {
	Username string `json:"username"`
}

/*
PUT /api/v1/user.

Request:
  - body: renameRequest

Response:
  - 200: sec.Identity: The updated identity
  - 400: ErrInvalidJSON/Validation: Missing or badly sized username
  - 401: ErrUnauthorized: No valid session
*/
func (handler *Handler) renameUser(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input renameRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.accountService.Rename(request.Context(), identity.Email, input.Username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}
