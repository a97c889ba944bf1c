// Package kiosk coordinates the screens of the attendance kiosk. The
// recognition screen owns a live recognition session; leaving it releases the
// camera.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/kozaktomas/attendance-kiosk/internal/recognition"
)

var (
	// ErrNoSession is returned by Register when the recognition screen is not active.
	ErrNoSession = errors.New("recognition screen is not active")
	// ErrShutdown is returned by Handle after a Shutdown event.
	ErrShutdown = errors.New("kiosk is shutting down")
)

// NavEvent is a navigation request from the kiosk screens.
type NavEvent int

const (
	EnterRecognition NavEvent = iota + 1
	LeaveRecognition
	Shutdown
)

func (e NavEvent) String() string {
	switch e {
	case EnterRecognition:
		return "enter_recognition"
	case LeaveRecognition:
		return "leave_recognition"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("NavEvent(%d)", int(e))
	}
}

// ParseNavEvent parses the wire name of a navigation event.
func ParseNavEvent(s string) (NavEvent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enter_recognition":
		return EnterRecognition, nil
	case "leave_recognition":
		return LeaveRecognition, nil
	case "shutdown":
		return Shutdown, nil
	default:
		return 0, fmt.Errorf("unknown navigation event %q", s)
	}
}

// Screen names reported by Coordinator.Screen.
const (
	ScreenHome        = "home"
	ScreenRecognition = "recognition"
)

// Session is the part of recognition.Session the coordinator drives.
type Session interface {
	Start(ctx context.Context) error
	Stop()
	Register(ctx context.Context, fields recognition.ProfileFields) (recognition.RegistrationResult, error)
}

// Factory builds a fresh, unstarted session for each visit to the
// recognition screen.
type Factory func() (Session, error)

// Coordinator is the single owner of the live recognition session.
type Coordinator struct {
	factory Factory

	mu       sync.Mutex
	current  Session
	shutdown bool
}

// NewCoordinator creates a coordinator on the home screen.
func NewCoordinator(factory Factory) *Coordinator {
	return &Coordinator{factory: factory}
}

// Handle applies a navigation event. Entering while already on the
// recognition screen is a no-op.
func (c *Coordinator) Handle(ev NavEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return ErrShutdown
	}

	switch ev {
	case EnterRecognition:
		if c.current != nil {
			return nil
		}
		s, err := c.factory()
		if err != nil {
			return fmt.Errorf("create recognition session: %w", err)
		}
		// The session outlives the request that entered the screen
		if err := s.Start(context.Background()); err != nil {
			return fmt.Errorf("start recognition session: %w", err)
		}
		c.current = s
		log.Printf("Kiosk: entered recognition screen")
	case LeaveRecognition:
		c.stopCurrent()
	case Shutdown:
		c.stopCurrent()
		c.shutdown = true
		log.Printf("Kiosk: shutdown")
	default:
		return fmt.Errorf("unknown navigation event %v", ev)
	}
	return nil
}

func (c *Coordinator) stopCurrent() {
	if c.current == nil {
		return
	}
	c.current.Stop()
	c.current = nil
	log.Printf("Kiosk: left recognition screen")
}

// Screen reports the active screen.
func (c *Coordinator) Screen() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return ScreenRecognition
	}
	return ScreenHome
}

// Register forwards a registration to the live session.
func (c *Coordinator) Register(ctx context.Context, fields recognition.ProfileFields) (recognition.RegistrationResult, error) {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return recognition.RegistrationResult{}, ErrNoSession
	}

	result, err := s.Register(ctx, fields)
	if errors.Is(err, recognition.ErrSessionStopped) {
		return result, ErrNoSession
	}
	return result, err
}
