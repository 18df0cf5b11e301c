package handler

import (
	"errors"
	"net/http"

	"neurosim/internal/auth"

	"go.uber.org/zap"
)

// CredentialsRequest is the body of register and login
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// TokenResponse is returned by login
type TokenResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// AuthHandler serves account endpoints
type AuthHandler struct {
	svc    *auth.Service
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Register creates an account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeAndValidate(w, r, h.logger, &req, false) {
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, "Registration failed", err)
		return
	}
	writeJSON(w, h.logger, user, http.StatusCreated)
}

// Login exchanges credentials for a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeAndValidate(w, r, h.logger, &req, false) {
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, "Login failed", err)
		return
	}
	writeJSON(w, h.logger, TokenResponse{Token: token, UserID: user.ID, Username: user.Username}, http.StatusOK)
}

func (h *AuthHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		writeError(w, h.logger, msg, "", status)
		return
	}
	writeError(w, h.logger, msg, err.Error(), status)
}

// Authenticate requires a valid bearer token and puts its subject on the
// request context as the owner. The token may also come from the "token"
// query parameter, since EventSource cannot set headers.
func Authenticate(tokens *auth.TokenIssuer, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" {
				token = r.URL.Query().Get("token")
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				if !errors.Is(err, auth.ErrMissingToken) {
					logger.Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				}
				msg := "Invalid token"
				switch {
				case errors.Is(err, auth.ErrMissingToken):
					msg = "Missing authentication token"
				case errors.Is(err, auth.ErrExpiredToken):
					msg = "Token has expired"
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="neurosim"`)
				writeError(w, logger, msg, "", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithOwner(r.Context(), claims.Subject)))
		})
	}
}
