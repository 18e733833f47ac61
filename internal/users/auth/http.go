// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth provides the HTTP delivery layer for passwordless sign-in.

# Flow

  - POST /register or /token asks for a code to be emailed.
  - POST /verify trades the code for a bearer token.
  - POST /logout revokes the presented token only.
*/
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/murmur/internal/platform/middleware"
	requestutil "github.com/taibuivan/murmur/internal/platform/request"
	"github.com/taibuivan/murmur/internal/platform/respond"
	"github.com/taibuivan/murmur/internal/platform/validate"
	"github.com/taibuivan/murmur/internal/users/account"
)

// Request field names used in validation details.
const (
	FieldUsername         = account.FieldUsername
	FieldVerificationCode = "verification_code"
)

// # Definitions & Constructors

// Handler implements the authentication endpoints.
type Handler struct {
	broker   *Broker
	sessions *SessionManager
}

// NewHandler constructs a new [Handler] with its service dependencies.
func NewHandler(broker *Broker, sessions *SessionManager) *Handler {
	return &Handler{broker: broker, sessions: sessions}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register : Emails a registration code.
//   - POST /token    : Emails a login code.
//   - POST /verify   : Exchanges a code for an access token.
//   - POST /logout   : Revokes the current access token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/token", handler.requestToken)
	router.Post("/verify", handler.verify)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)
		r.Post("/logout", handler.logout)
	})

	return router
}

// # Request & Response Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

type tokenRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

/*
POST /api/v1/auth/register.

Request:
  - Body: registerRequest (Email, Username)

Response:
  - 200: messageResponse: Code sent
  - 400: Validation: Bad email or username
  - 409: ErrUserExists: Email already registered
  - 502: DeliveryFailed: Mail relay failure
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldUsername, input.Username)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.broker.RequestChallenge(request.Context(), input.Email, &input.Username); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Verification code sent"})
}

/*
POST /api/v1/auth/token.

Request:
  - Body: tokenRequest (Email)

Response:
  - 200: messageResponse: Code sent
  - 404: ErrUserNotFound: Unknown email
*/
func (handler *Handler) requestToken(writer http.ResponseWriter, request *http.Request) {
	var input tokenRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.broker.RequestChallenge(request.Context(), input.Email, nil); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Verification code sent"})
}

/*
POST /api/v1/auth/verify.

Request:
  - Body: verifyRequest (Email, VerificationCode)

Response:
  - 200: accessTokenResponse: The new bearer token
  - 400: ErrInvalidCode/ErrCodeExpired: Wrong or stale code
  - 404: ErrChallengeNotFound: No pending code
*/
func (handler *Handler) verify(writer http.ResponseWriter, request *http.Request) {
	var input verifyRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldVerificationCode, input.VerificationCode).
		Digits(FieldVerificationCode, input.VerificationCode, CodeLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, err := handler.broker.Verify(request.Context(), input.Email, input.VerificationCode)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, accessTokenResponse{AccessToken: token})
}

/*
POST /api/v1/auth/logout.

Response:
  - 200: messageResponse: Token revoked
  - 401: ErrUnauthorized: No valid session
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if err := handler.sessions.Revoke(request.Context(), requestutil.AccessToken(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "ok"})
}
