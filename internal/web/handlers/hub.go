package handlers

import (
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendance-kiosk/internal/annotate"
	"github.com/kozaktomas/attendance-kiosk/internal/constants"
	"github.com/kozaktomas/attendance-kiosk/internal/recognition"
)

// Hub keeps the latest session output for the display endpoints and fans
// state changes out to SSE listeners. It implements recognition.Sink.
type Hub struct {
	mu        sync.RWMutex
	session   string
	seq       uint64
	published bool
	state     recognition.DisplayState
	image     image.Image
	photo     []byte

	// JPEG of image, encoded lazily on the first request
	frameJPEG []byte
	frameSeq  uint64
	quality   int

	listeners map[string]chan recognition.DisplayState
}

// NewHub creates a hub showing the idle state.
func NewHub() *Hub {
	return &Hub{
		state:     recognition.IdleState(),
		quality:   constants.FrameJPEGQuality,
		listeners: make(map[string]chan recognition.DisplayState),
	}
}

// Publish stores a frame unless it is older than what the hub already
// shows. Frames from a different session always replace the current one.
func (h *Hub) Publish(f recognition.Frame) {
	h.mu.Lock()
	if h.published && f.Session == h.session && f.Seq <= h.seq {
		h.mu.Unlock()
		return
	}
	h.published = true
	h.session = f.Session
	h.seq = f.Seq
	h.state = f.State
	h.photo = f.Photo
	h.image = f.Image
	h.frameJPEG = nil
	h.broadcastLocked(h.state)
	h.mu.Unlock()
}

// State returns the latest display state.
func (h *Hub) State() recognition.DisplayState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// FrameJPEG returns the latest annotated frame as JPEG, or nil when the
// session has not captured one.
func (h *Hub) FrameJPEG() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.image == nil {
		return nil, nil
	}
	if h.frameJPEG != nil && h.frameSeq == h.seq {
		return h.frameJPEG, nil
	}
	data, err := annotate.EncodeJPEG(h.image, h.quality)
	if err != nil {
		return nil, err
	}
	h.frameJPEG, h.frameSeq = data, h.seq
	return data, nil
}

// Photo returns the matched identity's reference photo, or nil.
func (h *Hub) Photo() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.photo
}

// AddListener registers an SSE listener. It returns the listener ID, its
// channel and the state current at registration; later states arrive on the
// channel.
func (h *Hub) AddListener() (string, chan recognition.DisplayState, recognition.DisplayState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.NewString()
	ch := make(chan recognition.DisplayState, constants.EventChannelBuffer)
	h.listeners[id] = ch
	return id, ch, h.state
}

// RemoveListener unregisters and closes a listener.
func (h *Hub) RemoveListener(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// ListenerCount returns the number of connected SSE listeners.
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// broadcastLocked must be called with h.mu held so listeners see states in
// publication order.
func (h *Hub) broadcastLocked(state recognition.DisplayState) {
	for _, listener := range h.listeners {
		select {
		case listener <- state:
		default:
			// Listener buffer full, skip.
		}
	}
}
