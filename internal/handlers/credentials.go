package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/karkinos-edge/authserver/internal/services"
	"github.com/sirupsen/logrus"
)

const (
	msgRegistered         = "User registered successfully"
	msgUsernameTaken      = "Username already exists"
	msgLoginOK            = "Login successful"
	msgInvalidCredentials = "Invalid username or password"
	msgPasswordChanged    = "Password changed successfully"
	msgUserNotFound       = "User not found"
	msgInvalidCurrent     = "Invalid current password"
	msgInvalidBody        = "Invalid request body"
	msgInternal           = "An error occurred"

	welcomeText = "Welcome TO KARKINOS EDGE M-HEALTH"
)

// CredentialHandler provides the register, login and change-password endpoints.
type CredentialHandler struct {
	service *services.CredentialService
	logger  logrus.FieldLogger
}

// NewCredentialHandler constructs a CredentialHandler with the provided dependencies.
func NewCredentialHandler(service *services.CredentialService, logger logrus.FieldLogger) *CredentialHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CredentialHandler{service: service, logger: logger}
}

// CredentialRouter registers credential routes on the given router.
func CredentialRouter(r chi.Router, service *services.CredentialService, logger logrus.FieldLogger) {
	handler := NewCredentialHandler(service, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/change-password", handler.ChangePassword)
}

func (h *CredentialHandler) Register(w http.ResponseWriter, r *http.Request) {
	var cmd services.RegisterCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if _, err := h.service.Register(r.Context(), cmd); err != nil {
		if errors.Is(err, services.ErrDuplicateUsername) {
			writeMessage(w, http.StatusBadRequest, msgUsernameTaken)
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeMessage(w, http.StatusCreated, msgRegistered)
}

func (h *CredentialHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cmd services.AuthenticateCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if _, err := h.service.Authenticate(r.Context(), cmd); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeMessage(w, http.StatusBadRequest, msgInvalidCredentials)
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, msgLoginOK)
}

func (h *CredentialHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var cmd services.ChangePasswordCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.service.ChangePassword(r.Context(), cmd); err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			writeMessage(w, http.StatusBadRequest, msgUserNotFound)
		case errors.Is(err, services.ErrInvalidCurrentPassword):
			writeMessage(w, http.StatusBadRequest, msgInvalidCurrent)
		default:
			h.internalError(w, r, err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgPasswordChanged)
}

// internalError logs the cause and answers with the generic message.
func (h *CredentialHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
	}).Error("request failed")
	writeMessage(w, http.StatusInternalServerError, msgInternal)
}

// Welcome serves the static root greeting.
func Welcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(welcomeText))
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
