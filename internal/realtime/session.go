package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Bilal-Bjo/meeting-assistant/internal/audio"
	"github.com/Bilal-Bjo/meeting-assistant/internal/observability/metrics"
)

// State is the lifecycle state of a transcription session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

var (
	// ErrMissingCredential means no API key was configured for the
	// speech service. Fatal to starting a session; never retried.
	ErrMissingCredential = errors.New("realtime: speech service API key not configured")
	// ErrSessionClosed means Connect was called on a session that already
	// ran its connection down. Sessions are single-use.
	ErrSessionClosed = errors.New("realtime: session closed")
	// ErrHandshakeAborted means the connection closed or was torn down
	// before the handshake completed.
	ErrHandshakeAborted = errors.New("realtime: connection closed before handshake completed")
)

// DefaultConnectTimeout bounds the handshake; the socket otherwise only
// resolves or rejects on its own events.
const DefaultConnectTimeout = 15 * time.Second

// Dialer opens the duplex connection to the speech service. Injected so
// tests can point sessions at a fake server.
type Dialer func(ctx context.Context, endpoint string, header http.Header) (*websocket.Conn, *http.Response, error)

func defaultDial(ctx context.Context, endpoint string, header http.Header) (*websocket.Conn, *http.Response, error) {
	return websocket.DefaultDialer.DialContext(ctx, endpoint, header)
}

// SessionOptions configures a per-channel transcription session.
type SessionOptions struct {
	MeetingID      string
	Channel        Channel
	Model          string
	Endpoint       string        // empty selects DefaultEndpoint
	VADThreshold   float64       // <= 0 selects the per-channel default
	ConnectTimeout time.Duration // <= 0 selects DefaultConnectTimeout
	Dialer         Dialer        // nil selects the gorilla default dialer
}

// Session owns one persistent duplex connection to the speech service for
// one audio channel. It forwards encoded audio, parses inbound protocol
// events and surfaces them as normalized events through the emit callback.
type Session struct {
	opts    SessionOptions
	emit    func(Event)
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	cancelDial  context.CancelFunc
	batcher     *audio.Batcher
	partial     string
	openedAt    time.Time
	connectDone chan struct{}
	connectErr  error
}

// NewSession creates an idle session. Events are delivered through emit in
// the order the connection produces them; emit must not block indefinitely.
func NewSession(opts SessionOptions, emit func(Event)) *Session {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.VADThreshold <= 0 {
		opts.VADThreshold = VADThresholdFor(opts.Channel)
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = defaultDial
	}
	if emit == nil {
		emit = func(Event) {}
	}
	return &Session{
		opts:    opts,
		emit:    emit,
		metrics: metrics.DefaultMetrics,
		batcher: audio.NewBatcher(),
		log: log.With().
			Str("component", "realtime").
			Str("meetingId", opts.MeetingID).
			Str("channel", string(opts.Channel)).
			Logger(),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Channel returns the audio channel this session transcribes.
func (s *Session) Channel() Channel {
	return s.opts.Channel
}

// Connect opens the duplex connection and sends the session configuration.
// It returns once the handshake completes, or with an error if the
// connection closes or times out first. Calling Connect while an attempt
// is pending or a connection is open joins the existing attempt instead of
// starting a second one.
func (s *Session) Connect(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return ErrMissingCredential
	}

	s.mu.Lock()
	switch s.state {
	case StateOpen:
		s.mu.Unlock()
		return nil
	case StateConnecting:
		done := s.connectDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		err := s.connectErr
		s.mu.Unlock()
		return err
	case StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	}

	s.state = StateConnecting
	s.connectDone = make(chan struct{})
	dialCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	s.cancelDial = cancel
	s.mu.Unlock()

	header := http.Header{
		"Authorization": []string{"Bearer " + apiKey},
		"OpenAI-Beta":   []string{"realtime=v1"},
	}
	endpoint := s.opts.Endpoint + "?model=" + CoerceModel(s.opts.Model)

	conn, _, err := s.opts.Dialer(dialCtx, endpoint, header)
	cancel()

	s.mu.Lock()
	s.cancelDial = nil

	if err != nil {
		connErr := fmt.Errorf("%w: %v", ErrHandshakeAborted, err)
		s.state = StateClosed
		s.connectErr = connErr
		close(s.connectDone)
		s.mu.Unlock()

		s.metrics.RecordHandshakeFailure(string(s.opts.Channel))
		s.log.Error().Err(err).Msg("Transcription session handshake failed")
		s.emit(Event{Type: EventError, Channel: s.opts.Channel, Message: err.Error()})
		return connErr
	}

	if s.state == StateClosed {
		// Disconnect raced the dial; abandon the fresh connection.
		s.connectErr = ErrSessionClosed
		close(s.connectDone)
		s.mu.Unlock()
		conn.Close()
		return ErrSessionClosed
	}

	if err := conn.WriteJSON(newSessionUpdate(s.opts.VADThreshold)); err != nil {
		connErr := fmt.Errorf("realtime: sending session configuration: %w", err)
		s.state = StateClosed
		s.connectErr = connErr
		close(s.connectDone)
		s.mu.Unlock()

		conn.Close()
		s.metrics.RecordHandshakeFailure(string(s.opts.Channel))
		s.emit(Event{Type: EventError, Channel: s.opts.Channel, Message: err.Error()})
		return connErr
	}

	s.conn = conn
	s.state = StateOpen
	s.openedAt = time.Now()
	s.connectErr = nil
	close(s.connectDone)
	s.mu.Unlock()

	s.metrics.RecordSessionStart(string(s.opts.Channel))
	s.log.Info().Str("model", CoerceModel(s.opts.Model)).Msg("Transcription session open")

	go s.readLoop(conn)
	return nil
}

// SendAudio pushes raw float samples into the session's batcher. Once the
// minimum chunk size accumulates, the batch is converted to PCM16 and
// transmitted. No-op unless the session is open.
func (s *Session) SendAudio(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen || s.conn == nil {
		return
	}

	chunk, ok := s.batcher.Push(samples)
	if !ok {
		return
	}
	s.writeAudioLocked(chunk)
}

// SendAudioPCM16 transmits pre-quantized samples immediately, bypassing
// the batcher. Capture paths that resample close to the source use this.
// No-op unless the session is open.
func (s *Session) SendAudioPCM16(pcm []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen || s.conn == nil {
		return
	}
	s.writeAudioLocked(audio.EncodePCM16(pcm))
}

func (s *Session) writeAudioLocked(chunk string) {
	if err := s.conn.WriteJSON(audioAppend{Type: msgAudioAppend, Audio: chunk}); err != nil {
		// The read loop observes the broken socket and tears down.
		s.log.Warn().Err(err).Msg("Audio append write failed")
		return
	}
	s.metrics.RecordAudioSent(string(s.opts.Channel), len(chunk))
}

// Disconnect tears the connection down. A pending handshake is aborted
// outright; an open connection gets a best-effort close message. All
// session-local buffers and partial-transcript state are cleared. Safe to
// call repeatedly, including on sessions that never connected.
func (s *Session) Disconnect() {
	s.mu.Lock()

	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}

	wasOpen := s.state == StateOpen
	openedAt := s.openedAt
	conn := s.conn

	s.state = StateClosed
	s.conn = nil
	s.partial = ""
	s.batcher.Reset()
	s.mu.Unlock()

	if conn != nil {
		if wasOpen {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
		}
		conn.Close()
	}
	if wasOpen {
		s.metrics.RecordSessionEnd(time.Since(openedAt).Seconds())
		s.log.Info().Msg("Transcription session closed")
	}
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			deliberate := s.state == StateClosed
			if !deliberate {
				s.state = StateClosed
				s.conn = nil
				s.partial = ""
				s.batcher.Reset()
				openedAt := s.openedAt
				s.mu.Unlock()

				conn.Close()
				s.metrics.RecordSessionEnd(time.Since(openedAt).Seconds())
				s.log.Warn().Err(err).Msg("Transcription socket closed unexpectedly")
				s.emit(Event{Type: EventError, Channel: s.opts.Channel, Message: err.Error()})
				s.emit(Event{Type: EventDisconnected, Channel: s.opts.Channel})
			} else {
				s.mu.Unlock()
			}
			return
		}
		s.handleMessage(data)
	}
}

func (s *Session) handleMessage(data []byte) {
	ev, err := parseServerEvent(data)
	if err != nil {
		// Malformed payloads must never desynchronize session state.
		s.metrics.RecordProtocolError("malformed")
		s.log.Warn().Err(err).Msg("Dropping unparseable protocol message")
		return
	}

	switch ev.Type {
	case msgSpeechStarted:
		s.mu.Lock()
		s.partial = ""
		s.mu.Unlock()
		s.emit(Event{
			Type:    EventStatus,
			Channel: s.opts.Channel,
			Stage:   StageTranscribing,
			Message: s.hearingMessage(),
		})

	case msgSpeechStopped:
		// A final transcript is still pending; keep the accumulator.
		s.emit(Event{
			Type:    EventStatus,
			Channel: s.opts.Channel,
			Stage:   StageTranscribing,
			Message: "Processing…",
		})

	case msgTranscriptionDelta:
		if ev.Delta == "" {
			return
		}
		s.mu.Lock()
		s.partial += ev.Delta
		text := s.partial
		s.mu.Unlock()

		s.metrics.RecordTranscriptDelta()
		s.emit(Event{
			Type:    EventTranscriptDelta,
			Channel: s.opts.Channel,
			Text:    text,
		})

	case msgTranscriptionCompleted:
		if ev.Transcript == "" {
			return
		}
		s.mu.Lock()
		s.partial = ""
		s.mu.Unlock()

		s.metrics.RecordTranscriptFinal()
		s.emit(Event{
			Type:    EventTranscript,
			Channel: s.opts.Channel,
			Text:    ev.Transcript,
		})
		s.emit(Event{
			Type:    EventStatus,
			Channel: s.opts.Channel,
			Stage:   StageListening,
			Message: "Recording",
		})

	case msgError:
		// Service-reported error on a live connection; the socket stays up.
		msg := "Unknown error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		s.metrics.RecordProtocolError("service")
		s.log.Error().Str("error", msg).Msg("Speech service reported an error")
		s.emit(Event{Type: EventError, Channel: s.opts.Channel, Message: msg})
	}
}

func (s *Session) hearingMessage() string {
	if s.opts.Channel == ChannelRemote {
		return "Hearing participant…"
	}
	return "Hearing you…"
}

// partialText returns the running partial transcript. Test hook.
func (s *Session) partialText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partial
}
