package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/attendance-kiosk/internal/kiosk"
	"github.com/kozaktomas/attendance-kiosk/internal/recognition"
)

const errRegistrationFailed = "registration failed"

// Registrar registers the face currently held by the live session.
type Registrar interface {
	Register(ctx context.Context, fields recognition.ProfileFields) (recognition.RegistrationResult, error)
}

// RegistrationHandler handles the registration form.
type RegistrationHandler struct {
	registrar Registrar
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(registrar Registrar) *RegistrationHandler {
	return &RegistrationHandler{registrar: registrar}
}

// RegistrationResponse is returned for a successful registration.
type RegistrationResponse struct {
	Registered bool                 `json:"registered"`
	Profile    *recognition.Profile `json:"profile,omitempty"`
	Reason     string               `json:"reason,omitempty"`
}

// Register enrols the held face with the submitted profile fields.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var fields recognition.ProfileFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	result, err := h.registrar.Register(r.Context(), fields)
	switch {
	case errors.Is(err, kiosk.ErrNoSession):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Printf("Registration failed: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, errRegistrationFailed)
		return
	}

	if !result.Registered {
		respondJSON(w, http.StatusUnprocessableEntity, RegistrationResponse{Reason: result.Reason})
		return
	}

	respondJSON(w, http.StatusCreated, RegistrationResponse{
		Registered: true,
		Profile:    recognition.ProfileOf(result.Identity),
	})
}
