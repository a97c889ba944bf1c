package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendance-kiosk/internal/annotate"
	"github.com/kozaktomas/attendance-kiosk/internal/camera"
	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/constants"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

var (
	// ErrSessionRunning is returned by Start on a running session.
	ErrSessionRunning = errors.New("recognition session already running")
	// ErrSessionStopped is returned by Register when the loop is not running.
	ErrSessionStopped = errors.New("recognition session is not running")
)

// Options tunes a Session.
type Options struct {
	FrameInterval time.Duration
	StoreTimeout  time.Duration
	Threshold     float64
	LabelMinScale float64
	Location      *time.Location
}

// OptionsFromConfig builds session options from configuration.
func OptionsFromConfig(cfg *config.RecognitionConfig) Options {
	return Options{
		FrameInterval: cfg.FrameInterval(),
		StoreTimeout:  cfg.StoreTimeout,
		Threshold:     cfg.Threshold,
		LabelMinScale: cfg.LabelMinScale,
		Location:      cfg.Location,
	}
}

type registerRequest struct {
	fields ProfileFields
	reply  chan registerReply
}

type registerReply struct {
	result RegistrationResult
	err    error
}

// Session owns one run of the recognition loop: the camera handle, the held
// probe embedding and the registration affordance. A stopped session cannot
// be restarted; create a new one.
type Session struct {
	id        string
	camera    camera.Camera
	extractor embedding.Extractor
	gallery   database.GalleryReader
	matcher   *Matcher
	ledger    *Ledger
	registrar *Registrar
	sink      Sink
	opts      Options
	annotate  annotate.Options

	registerCh chan registerRequest

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Owned by the loop goroutine
	seq              uint64
	probe            []float32
	frame            image.Image
	output           image.Image
	registrationOpen bool
	photoID          string
	photo            []byte
	lastState        DisplayState
	lastReadErr      string
	lastSkipped      int
}

// NewSession wires a session. sink may be nil.
func NewSession(
	cam camera.Camera,
	extractor embedding.Extractor,
	gallery database.GalleryWriter,
	attendance database.AttendanceStore,
	sink Sink,
	opts Options,
) *Session {
	if sink == nil {
		sink = discardSink{}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second / constants.DefaultFrameRate
	}
	annotateOpts := annotate.DefaultOptions()
	if opts.LabelMinScale > 0 {
		annotateOpts.MinScale = opts.LabelMinScale
	}
	return &Session{
		id:         uuid.NewString(),
		camera:     cam,
		extractor:  extractor,
		gallery:    gallery,
		matcher:    NewMatcher(opts.Threshold),
		ledger:     NewLedger(attendance, opts.StoreTimeout, opts.Location),
		registrar:  NewRegistrar(extractor, gallery, opts.StoreTimeout),
		sink:       sink,
		opts:       opts,
		annotate:   annotateOpts,
		registerCh: make(chan registerRequest),
		done:       make(chan struct{}),
	}
}

// Start acquires the camera and launches the loop goroutine. ctx bounds the
// whole session, not just the start-up.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSessionRunning
	}
	if err := s.camera.Open(ctx); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.publish(IdleState())

	go s.run(ctx)
	return nil
}

// Stop ends the loop, waits for the camera to be released and publishes an
// idle state with registration closed. Safe to call more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started || s.cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	<-s.done

	s.probe = nil
	s.registrationOpen = false
	s.photoID, s.photo = "", nil
	s.output = nil
	s.publish(IdleState())
}

// ID identifies the session in published frames.
func (s *Session) ID() string {
	return s.id
}

// Done is closed when the loop goroutine has exited and the camera is released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Register submits a registration to the loop goroutine and waits for the
// result, so it never interleaves with a tick.
func (s *Session) Register(ctx context.Context, fields ProfileFields) (RegistrationResult, error) {
	s.mu.Lock()
	running := s.started && s.cancel != nil
	s.mu.Unlock()
	if !running {
		return RegistrationResult{}, ErrSessionStopped
	}

	req := registerRequest{fields: fields, reply: make(chan registerReply, 1)}
	select {
	case s.registerCh <- req:
	case <-s.done:
		return RegistrationResult{}, ErrSessionStopped
	case <-ctx.Done():
		return RegistrationResult{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.result, r.err
	case <-s.done:
		return RegistrationResult{}, ErrSessionStopped
	case <-ctx.Done():
		return RegistrationResult{}, ctx.Err()
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if err := s.camera.Close(); err != nil {
			log.Printf("Recognition: failed to release camera: %v", err)
		}
	}()

	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	log.Printf("Recognition: session started (interval %s, threshold %.2f)", s.opts.FrameInterval, s.opts.Threshold)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Recognition: session stopped")
			return
		case req := <-s.registerCh:
			result, err := s.safeRegister(ctx, req.fields)
			req.reply <- registerReply{result: result, err: err}
		case <-ticker.C:
			s.safeTick(ctx)
		}
	}
}

func (s *Session) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recognition: recovered from panic in tick: %v\n%s", r, debug.Stack())
		}
	}()
	s.tick(ctx)
}

func (s *Session) safeRegister(ctx context.Context, fields ProfileFields) (result RegistrationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recognition: recovered from panic in registration: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("registration failed: %v", r)
		}
	}()
	return s.register(ctx, fields)
}

// tick runs one pass: read → detect → select → match → decide → ledger →
// annotate → publish.
func (s *Session) tick(ctx context.Context) {
	frame, ok, err := s.camera.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if msg := err.Error(); msg != s.lastReadErr {
			log.Printf("Recognition: camera read failed: %v", err)
			s.lastReadErr = msg
		}
		return
	}
	s.lastReadErr = ""
	if !ok {
		return
	}
	s.frame = frame

	faces, err := s.extractor.Detect(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.probe = nil
		s.registrationOpen = false
		s.output = frame
		s.publish(ErrorState(fmt.Sprintf(constants.MessageExtractorError, err)))
		return
	}

	face, found := SelectPrimary(faces)
	if !found {
		s.probe = nil
		s.registrationOpen = false
		s.output = frame
		s.publish(IdleState())
		return
	}
	s.probe = face.Embedding

	gallery, err := callStore(ctx, s.opts.StoreTimeout, s.gallery.ListIdentities)
	if err != nil {
		s.registrationOpen = false
		s.output = AnnotateFace(frame, face, constants.UnknownLabel, s.annotate)
		s.publish(ErrorState(fmt.Sprintf(constants.MessageStoreError, err)))
		return
	}

	match, matched := s.matcher.Match(face.Embedding, gallery)
	if match.Skipped > 0 && match.Skipped != s.lastSkipped {
		log.Printf("Recognition: skipped %d gallery rows with undecodable embeddings", match.Skipped)
	}
	s.lastSkipped = match.Skipped

	state := Decide(match, matched)
	s.registrationOpen = state.RegistrationOpen
	if matched {
		ApplyOutcome(&state, s.ledger.LogAttendance(ctx, match.Identity.ID))
		s.loadPhoto(ctx, match.Identity.ID)
	}

	s.output = AnnotateFace(frame, face, state.Label, s.annotate)
	s.publish(state)
}

// loadPhoto caches the matched identity's reference photo.
func (s *Session) loadPhoto(ctx context.Context, id string) {
	if id == s.photoID {
		return
	}
	photo, err := callStore(ctx, s.opts.StoreTimeout, func(ctx context.Context) ([]byte, error) {
		return s.gallery.IdentityPhoto(ctx, id)
	})
	if err != nil {
		log.Printf("Recognition: failed to load photo for %s: %v", id, err)
		s.photoID, s.photo = "", nil
		return
	}
	s.photoID, s.photo = id, photo
}

func (s *Session) register(ctx context.Context, fields ProfileFields) (RegistrationResult, error) {
	result, err := s.registrar.Register(ctx, fields, s.probe, s.frame)
	if err != nil {
		state := ErrorState(fmt.Sprintf(constants.MessageStoreError, errors.Unwrap(err)))
		state.RegistrationOpen = s.registrationOpen
		s.publish(state)
		return result, err
	}

	state := s.lastState
	state.RegistrationOpen = s.registrationOpen
	switch {
	case result.Registered:
		log.Printf("Recognition: registered %s (%s)", result.Identity.FullName(), result.Identity.ID)
		s.probe = nil
		s.registrationOpen = false
		state = IdleState()
		state.Message = fmt.Sprintf(constants.MessageRegistered, result.Identity.FirstName, result.Identity.LastName)
	case result.Reason == ReasonNoFace:
		state.Message = constants.MessageNoFaceToEnroll
	default:
		state.Message = constants.MessageMissingFields
	}
	s.publish(state)
	return result, nil
}

// publish stamps the state with the next sequence number and hands it to the
// sink. Status changes are logged; repeated identical states are not.
func (s *Session) publish(state DisplayState) {
	s.seq++
	state.Seq = s.seq
	state.UpdatedAt = time.Now()

	var photo []byte
	if state.Status == StatusMatched {
		photo = s.photo
	}
	state.HasPhoto = len(photo) > 0

	if state.Status != s.lastState.Status || state.Message != s.lastState.Message {
		log.Printf("Recognition: %s: %s", state.Status, state.Message)
	}
	s.lastState = state

	s.sink.Publish(Frame{Session: s.id, Seq: state.Seq, Image: s.output, Photo: photo, State: state})
}
