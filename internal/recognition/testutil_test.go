package recognition

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// unitVec returns a 4-dim vector pointing mostly along axis i.
func unitVec(i int) []float32 {
	v := make([]float32, 4)
	v[i%4] = 1
	return v
}

func identity(id, first, last string, emb []float32) database.EnrolledIdentity {
	return database.EnrolledIdentity{
		ID:            id,
		FirstName:     first,
		LastName:      last,
		Course:        "BSIT",
		Section:       "3A",
		EmbeddingBlob: embedding.EncodeBlob(emb),
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// fakeCamera serves a fixed frame, or nothing when noFrame is set.
type fakeCamera struct {
	mu      sync.Mutex
	frame   image.Image
	noFrame bool
	readErr error
	openErr error
	opened  int
	closed  int
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{frame: createTestImage(160, 120, color.White)}
}

func (c *fakeCamera) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.opened++
	return nil
}

func (c *fakeCamera) Read(ctx context.Context) (image.Image, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, false, c.readErr
	}
	if c.noFrame {
		return nil, false, nil
	}
	return c.frame, true, nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeCamera) counts() (opened, closed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened, c.closed
}

// fakeExtractor reports the configured faces for every frame.
type fakeExtractor struct {
	mu       sync.Mutex
	faces    []embedding.Face
	err      error
	panicMsg string
	calls    int
}

func (e *fakeExtractor) Detect(ctx context.Context, frame image.Image) ([]embedding.Face, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.panicMsg != "" {
		panic(e.panicMsg)
	}
	if e.err != nil {
		return nil, e.err
	}
	return append([]embedding.Face(nil), e.faces...), nil
}

func (e *fakeExtractor) set(faces []embedding.Face, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faces, e.err = faces, err
}

func (e *fakeExtractor) setPanic(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panicMsg = msg
}

func face(emb []float32) embedding.Face {
	return embedding.Face{Box: image.Rect(40, 20, 120, 90), Embedding: emb}
}

// recordingSink keeps every published frame.
type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *recordingSink) Publish(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) last() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Frame{}
	}
	return s.frames[len(s.frames)-1]
}

func (s *recordingSink) all() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
