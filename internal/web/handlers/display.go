package handlers

import (
	"log"
	"net/http"
)

// DisplayHandler serves the kiosk screen: the annotated feed, the matched
// identity's photo and the display state.
type DisplayHandler struct {
	hub *Hub
}

// NewDisplayHandler creates a new display handler.
func NewDisplayHandler(hub *Hub) *DisplayHandler {
	return &DisplayHandler{hub: hub}
}

// State returns the latest display state.
func (h *DisplayHandler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.hub.State())
}

// Frame returns the latest annotated frame, or 204 when there is none yet.
func (h *DisplayHandler) Frame(w http.ResponseWriter, r *http.Request) {
	data, err := h.hub.FrameJPEG()
	if err != nil {
		log.Printf("Display: failed to encode frame: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to encode frame")
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondImage(w, data)
}

// Photo returns the matched identity's reference photo.
func (h *DisplayHandler) Photo(w http.ResponseWriter, r *http.Request) {
	photo := h.hub.Photo()
	if len(photo) == 0 {
		respondError(w, http.StatusNotFound, "no photo")
		return
	}
	respondImage(w, photo)
}

// Events streams display states as server-sent events until the client
// disconnects.
func (h *DisplayHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, eventCh, current := h.hub.AddListener()
	defer h.hub.RemoveListener(id)

	sendSSEEvent(w, flusher, "state", current)

	for {
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "state", state)
		}
	}
}
