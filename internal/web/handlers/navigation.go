package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/attendance-kiosk/internal/kiosk"
)

// Navigator moves the kiosk between screens.
type Navigator interface {
	Handle(ev kiosk.NavEvent) error
	Screen() string
}

// NavigationHandler switches the kiosk between the home and recognition
// screens.
type NavigationHandler struct {
	nav Navigator
}

// NewNavigationHandler creates a new navigation handler.
func NewNavigationHandler(nav Navigator) *NavigationHandler {
	return &NavigationHandler{nav: nav}
}

// NavigationRequest is the body of POST /navigation.
type NavigationRequest struct {
	Event string `json:"event"`
}

// Get returns the active screen.
func (h *NavigationHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"screen": h.nav.Screen()})
}

// Navigate applies a navigation event. Shutdown is reserved for the process
// signal handler and is rejected here.
func (h *NavigationHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	ev, err := kiosk.ParseNavEvent(req.Event)
	if err != nil || ev == kiosk.Shutdown {
		respondError(w, http.StatusBadRequest, "event must be enter_recognition or leave_recognition")
		return
	}

	if err := h.nav.Handle(ev); err != nil {
		if errors.Is(err, kiosk.ErrShutdown) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		log.Printf("Navigation %s failed: %v", ev, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"screen": h.nav.Screen()})
}
