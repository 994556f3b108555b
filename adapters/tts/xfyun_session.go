package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/xfyun-tts/domain/entities"
	"github.com/satriahrh/xfyun-tts/domain/repositories"
)

const (
	// Time allowed to write the request or the close frame.
	writeWait = 5 * time.Second

	// Maximum size of one inbound frame; streamed mp3 frames are far smaller.
	maxMessageSize = 4 << 20
)

var (
	// ErrTransport wraps connection level failures (dial, TLS, read, write)
	ErrTransport = errors.New("transport error")
	// ErrTimeout means no last frame arrived within the session budget
	ErrTimeout = errors.New("synthesis timed out")
	// ErrIncomplete means the connection closed before the last frame
	ErrIncomplete = errors.New("connection closed before last frame")
	// ErrNoAudio is the soft outcome of a session that completed without audio
	ErrNoAudio = repositories.ErrNoAudio
	// ErrNotComplete is returned when assembling a result of an unfinished session
	ErrNotComplete = errors.New("session not complete")
)

type eventKind int

const (
	eventFragment eventKind = iota
	eventMalformed
	eventTransportError
	eventClosed
)

// sessionEvent is what the reader goroutine reports to the waiting caller
type sessionEvent struct {
	kind     eventKind
	fragment *InboundFragment
	err      error
}

// SessionDeps are the collaborators a session needs
type SessionDeps struct {
	Signer  *RequestSigner
	Dialer  *websocket.Dialer
	Storage repositories.AudioStorage
	Logger  *zap.Logger
}

// Session drives one text-to-speech exchange: sign, connect, send the text
// once, collect audio fragments until the last one, then assemble.
// A session is single use.
type Session struct {
	job     entities.SynthesisJob
	config  XfyunConfig
	signer  *RequestSigner
	dialer  *websocket.Dialer
	storage repositories.AudioStorage
	logger  *zap.Logger
	traceID string

	mu         sync.Mutex
	state      entities.SessionState
	complete   bool
	chunks     []string
	fragments  int
	protocolEr []*ProtocolError
	sid        string

	conn      *websocket.Conn
	events    chan sessionEvent
	quit      chan struct{}
	closeOnce sync.Once
}

// NewSession creates an idle session for job
func NewSession(job entities.SynthesisJob, config XfyunConfig, deps SessionDeps) *Session {
	traceID := uuid.NewString()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := deps.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	signer := deps.Signer
	if signer == nil {
		signer = NewRequestSigner(config.Credentials,
			WithEndpoint(config.Endpoint),
			WithSignedHost(config.SignedHost),
			WithRequestLine(config.RequestLine))
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	return &Session{
		job:     job,
		config:  config,
		signer:  signer,
		dialer:  dialer,
		storage: deps.Storage,
		logger:  logger.With(zap.Int("jobID", job.ID), zap.String("traceID", traceID)),
		traceID: traceID,
		state:   entities.SessionStateIdle,
		events:  make(chan sessionEvent, 16),
		quit:    make(chan struct{}),
	}
}

// Run executes the session and persists the audio on success. On ErrNoAudio
// the returned result is still in state Complete.
func (s *Session) Run(ctx context.Context) (entities.SynthesisResult, error) {
	started := time.Now()
	result := entities.SynthesisResult{
		JobID:     s.job.ID,
		TraceID:   s.traceID,
		StartedAt: started,
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	err := s.exchange(waitCtx)
	if err == nil {
		result.Path, result.Bytes, err = s.Result(ctx)
	}

	result.State = s.State()
	result.SessionID = s.ServiceSID()
	result.Fragments = s.fragmentCount()
	result.Duration = time.Since(started)

	switch {
	case err == nil:
		s.logger.Info("Synthesis completed",
			zap.String("sid", result.SessionID),
			zap.String("path", result.Path),
			zap.Int("bytes", result.Bytes),
			zap.Int("fragments", result.Fragments),
			zap.Duration("duration", result.Duration))
	case errors.Is(err, ErrNoAudio):
		s.logger.Warn("Synthesis completed without audio", zap.String("sid", result.SessionID))
	default:
		s.logger.Error("Synthesis failed",
			zap.String("state", string(result.State)),
			zap.Error(err))
	}

	return result, err
}

// exchange runs Connecting → Sending → Listening until a terminal state
func (s *Session) exchange(ctx context.Context) error {
	s.setState(entities.SessionStateConnecting)

	conn, resp, err := s.dialer.DialContext(ctx, s.signer.URL(), nil)
	if err != nil {
		s.setState(entities.SessionStateFailed)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return s.timeoutError()
		}
		if resp != nil {
			// Rejected signatures come back as a plain HTTP status on the handshake
			s.logger.Error("Handshake rejected", zap.Int("statusCode", resp.StatusCode))
			return fmt.Errorf("%w: handshake rejected with status %d: %w", ErrTransport, resp.StatusCode, err)
		}
		return fmt.Errorf("%w: dial: %w", ErrTransport, err)
	}
	s.conn = conn
	defer s.closeConn()

	conn.SetReadLimit(maxMessageSize)

	s.setState(entities.SessionStateSending)
	msg := NewOutboundMessage(s.config.Credentials, s.config.Business, s.job.Text)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		s.setState(entities.SessionStateFailed)
		return fmt.Errorf("%w: send request: %w", ErrTransport, err)
	}
	s.logger.Info("Sent synthesis request", zap.Int("textLength", len(s.job.Text)))

	s.setState(entities.SessionStateListening)
	go s.readLoop(conn)

	return s.await(ctx)
}

// await consumes reader events until completion, failure or the deadline
func (s *Session) await(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.setState(entities.SessionStateFailed)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return s.timeoutError()
			}
			return ctx.Err()

		case ev, ok := <-s.events:
			if !ok {
				s.setState(entities.SessionStateClosed)
				return s.incompleteError(nil)
			}

			switch ev.kind {
			case eventFragment:
				if s.handleFragment(ev.fragment) {
					s.setState(entities.SessionStateComplete)
					s.logger.Info("Last frame received", zap.String("sid", ev.fragment.SID))
					return nil
				}

			case eventMalformed:
				s.logger.Warn("Dropping malformed message", zap.Error(ev.err))

			case eventTransportError:
				s.setState(entities.SessionStateFailed)
				return fmt.Errorf("%w: %w", ErrTransport, ev.err)

			case eventClosed:
				s.setState(entities.SessionStateClosed)
				return s.incompleteError(ev.err)
			}
		}
	}
}

// handleFragment applies one fragment and reports whether the session is complete
func (s *Session) handleFragment(f *InboundFragment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return true
	}

	s.fragments++
	if f.SID != "" {
		s.sid = f.SID
	}

	if f.Code == 0 {
		if f.Data != nil && f.Data.Audio != "" {
			s.chunks = append(s.chunks, f.Data.Audio)
		}
	} else {
		perr := &ProtocolError{Code: f.Code, Message: f.Message, SID: f.SID}
		s.protocolEr = append(s.protocolEr, perr)
		s.logger.Warn("Service reported an error", zap.Int("code", f.Code), zap.Error(perr))
	}

	if f.Data != nil {
		s.logger.Debug("Received fragment",
			zap.Stringer("status", f.Data.Status),
			zap.Int("audioLength", len(f.Data.Audio)),
			zap.Int("fragments", s.fragments))
	}

	if f.IsLast() {
		s.complete = true
	}
	return s.complete
}

// readLoop is the only producer of s.events. It stops after the last frame,
// on any read error, or once the session quits.
func (s *Session) readLoop(conn *websocket.Conn) {
	defer close(s.events)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) ||
				errors.Is(err, net.ErrClosed) {
				s.emit(sessionEvent{kind: eventClosed, err: err})
			} else {
				s.emit(sessionEvent{kind: eventTransportError, err: err})
			}
			return
		}

		fragment, err := ParseFragment(raw)
		if err != nil {
			if !s.emit(sessionEvent{kind: eventMalformed, err: err}) {
				return
			}
			continue
		}

		if !s.emit(sessionEvent{kind: eventFragment, fragment: fragment}) {
			return
		}
		if fragment.IsLast() {
			return
		}
	}
}

func (s *Session) emit(ev sessionEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.quit:
		return false
	}
}

// closeConn stops the reader and closes the connection. Safe to call more than once.
func (s *Session) closeConn() {
	s.closeOnce.Do(func() {
		close(s.quit)
		if s.conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = s.conn.Close()
	})
}

// Result decodes the accumulated chunks in arrival order and persists them
// as "<job id>.<ext>". It returns ErrNoAudio when nothing was received.
func (s *Session) Result(ctx context.Context) (string, int, error) {
	s.mu.Lock()
	if !s.complete {
		s.mu.Unlock()
		return "", 0, ErrNotComplete
	}
	chunks := make([]string, len(s.chunks))
	copy(chunks, s.chunks)
	s.mu.Unlock()

	if len(chunks) == 0 {
		return "", 0, ErrNoAudio
	}

	if s.storage == nil {
		return "", 0, errors.New("no audio storage configured")
	}

	var buf bytes.Buffer
	for i, chunk := range chunks {
		audio, err := base64.StdEncoding.DecodeString(chunk)
		if err != nil {
			return "", 0, fmt.Errorf("failed to decode audio chunk %d: %w", i, err)
		}
		buf.Write(audio)
	}

	name := fmt.Sprintf("%d.%s", s.job.ID, s.config.Business.FileExtension())
	path, err := s.storage.Save(ctx, name, buf.Bytes())
	if err != nil {
		return "", 0, fmt.Errorf("failed to save audio: %w", err)
	}

	return path, buf.Len(), nil
}

func (s *Session) timeoutError() error {
	if last := s.lastProtocolError(); last != nil {
		return fmt.Errorf("%w after %s, last service error: %w", ErrTimeout, s.config.Timeout, last)
	}
	return fmt.Errorf("%w after %s", ErrTimeout, s.config.Timeout)
}

func (s *Session) incompleteError(cause error) error {
	if last := s.lastProtocolError(); last != nil {
		return fmt.Errorf("%w: %w", ErrIncomplete, last)
	}
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrIncomplete, cause)
	}
	return ErrIncomplete
}

func (s *Session) setState(state entities.SessionState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	s.logger.Debug("Session state changed",
		zap.String("from", string(prev)),
		zap.String("to", string(state)))
}

// State returns the current lifecycle state
func (s *Session) State() entities.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TraceID returns the id used to correlate this session's log lines
func (s *Session) TraceID() string { return s.traceID }

// ServiceSID returns the session id assigned by the service, if any
func (s *Session) ServiceSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

// ProtocolErrors returns the service errors seen so far, in arrival order
func (s *Session) ProtocolErrors() []*ProtocolError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ProtocolError, len(s.protocolEr))
	copy(out, s.protocolEr)
	return out
}

func (s *Session) lastProtocolError() *ProtocolError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.protocolEr) == 0 {
		return nil
	}
	return s.protocolEr[len(s.protocolEr)-1]
}

func (s *Session) fragmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragments
}
