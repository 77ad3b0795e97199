package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ManagerConfig configures the meeting-level session orchestration.
type ManagerConfig struct {
	APIKey   string
	Model    string
	Endpoint string

	// InPersonMode suppresses remote capture entirely: everyone is in the
	// room, there is no system audio worth transcribing.
	InPersonMode bool
	// RemoteSourceConfigured reports whether a loopback device or desktop
	// source has been configured for the remote channel.
	RemoteSourceConfigured bool
	// LoopbackCapable reports whether the platform can capture system
	// audio without extra configuration.
	LoopbackCapable bool

	LocalVADThreshold  float64 // <= 0 selects the channel default
	RemoteVADThreshold float64 // <= 0 selects the channel default
	ConnectTimeout     time.Duration
	EventBuffer        int // per-meeting event channel capacity

	Dialer Dialer // nil selects the gorilla default dialer
}

const defaultEventBuffer = 256

// managedSession is the slice of Session the manager drives. Narrowed to
// an interface so orchestration logic is testable without live sockets.
type managedSession interface {
	Connect(ctx context.Context, apiKey string) error
	Disconnect()
	SendAudio(samples []float32)
	SendAudioPCM16(pcm []int16)
	State() State
	Channel() Channel
}

type meeting struct {
	id       string
	events   chan Event
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	sessions map[Channel]managedSession
}

// emit appends an event to the meeting's ordered stream. After the meeting
// stops, late events from winding-down read loops are discarded.
func (m *meeting) emit(ev Event) {
	select {
	case <-m.done:
	case m.events <- ev:
	}
}

func (m *meeting) session(ch Channel) managedSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[ch]
}

// Manager orchestrates up to two transcription sessions per meeting (local
// always, remote conditionally) and fans their events into a single
// ordered channel per meeting. Construct one per process; there is no
// package-level registry.
type Manager struct {
	cfg        ManagerConfig
	newSession func(opts SessionOptions, emit func(Event)) managedSession

	mu       sync.Mutex
	meetings map[string]*meeting
	inflight map[string]*connectAttempt
}

type connectAttempt struct {
	done chan struct{}
	err  error
}

// NewManager creates a Manager with the given configuration.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	return &Manager{
		cfg: cfg,
		newSession: func(opts SessionOptions, emit func(Event)) managedSession {
			return NewSession(opts, emit)
		},
		meetings: make(map[string]*meeting),
		inflight: make(map[string]*connectAttempt),
	}
}

// StartMeeting establishes the meeting's transcription sessions and
// returns its event stream. The local channel is mandatory: its handshake
// failing aborts the start. The remote channel degrades gracefully: its
// failure means the meeting proceeds with local-only transcription.
//
// A second call while a connect is in flight, or after the meeting is
// connected, joins the existing attempt rather than duplicating it. The
// returned channel is not closed; EventDisconnected is the terminal event.
func (m *Manager) StartMeeting(ctx context.Context, meetingID string) (<-chan Event, error) {
	if m.cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}

	m.mu.Lock()
	if attempt, ok := m.inflight[meetingID]; ok {
		m.mu.Unlock()
		return m.awaitAttempt(ctx, meetingID, attempt)
	}
	if mt, ok := m.meetings[meetingID]; ok {
		m.mu.Unlock()
		return mt.events, nil
	}

	attempt := &connectAttempt{done: make(chan struct{})}
	m.inflight[meetingID] = attempt

	mt := &meeting{
		id:       meetingID,
		events:   make(chan Event, m.cfg.EventBuffer),
		done:     make(chan struct{}),
		sessions: make(map[Channel]managedSession),
	}

	local := m.newSession(m.sessionOptions(meetingID, ChannelLocal), mt.emit)
	mt.sessions[ChannelLocal] = local

	var remote managedSession
	if m.shouldConnectRemote() {
		remote = m.newSession(m.sessionOptions(meetingID, ChannelRemote), mt.emit)
		mt.sessions[ChannelRemote] = remote
	}

	m.meetings[meetingID] = mt
	m.mu.Unlock()

	mt.emit(Event{Type: EventStatus, Stage: StageConnecting, Message: "Connecting…"})

	var wg sync.WaitGroup
	var localErr, remoteErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		localErr = local.Connect(ctx, m.cfg.APIKey)
	}()
	if remote != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			remoteErr = remote.Connect(ctx, m.cfg.APIKey)
		}()
	}
	wg.Wait()

	if localErr != nil {
		local.Disconnect()
		if remote != nil {
			remote.Disconnect()
		}

		err := fmt.Errorf("realtime: connecting local channel: %w", localErr)
		m.mu.Lock()
		delete(m.meetings, meetingID)
		attempt.err = err
		close(attempt.done)
		delete(m.inflight, meetingID)
		m.mu.Unlock()

		log.Error().Err(localErr).Str("meetingId", meetingID).Msg("Meeting start aborted")
		return nil, err
	}

	if remoteErr != nil {
		// Local-only transcription; the dead remote session stops routing.
		mt.mu.Lock()
		delete(mt.sessions, ChannelRemote)
		mt.mu.Unlock()
		log.Warn().Err(remoteErr).Str("meetingId", meetingID).
			Msg("Remote channel unavailable, continuing local-only")
	}

	m.mu.Lock()
	close(attempt.done)
	delete(m.inflight, meetingID)
	m.mu.Unlock()

	mt.emit(Event{Type: EventConnected})
	mt.emit(Event{Type: EventStatus, Stage: StageListening, Message: "Recording"})

	log.Info().Str("meetingId", meetingID).Bool("remote", remote != nil && remoteErr == nil).
		Msg("Meeting transcription connected")
	return mt.events, nil
}

func (m *Manager) awaitAttempt(ctx context.Context, meetingID string, attempt *connectAttempt) (<-chan Event, error) {
	select {
	case <-attempt.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if attempt.err != nil {
		return nil, attempt.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt, ok := m.meetings[meetingID]; ok {
		return mt.events, nil
	}
	return nil, ErrSessionClosed
}

func (m *Manager) shouldConnectRemote() bool {
	return !m.cfg.InPersonMode && (m.cfg.RemoteSourceConfigured || m.cfg.LoopbackCapable)
}

func (m *Manager) sessionOptions(meetingID string, ch Channel) SessionOptions {
	threshold := m.cfg.LocalVADThreshold
	if ch == ChannelRemote {
		threshold = m.cfg.RemoteVADThreshold
	}
	return SessionOptions{
		MeetingID:      meetingID,
		Channel:        ch,
		Model:          m.cfg.Model,
		Endpoint:       m.cfg.Endpoint,
		VADThreshold:   threshold,
		ConnectTimeout: m.cfg.ConnectTimeout,
		Dialer:         m.cfg.Dialer,
	}
}

// SendAudio routes raw float samples to the matching session. Chunks for
// unknown meetings, missing channels or not-yet-open connections are
// silently dropped; that is expected transient behavior, not a fault.
func (m *Manager) SendAudio(meetingID string, ch Channel, samples []float32) {
	if s := m.lookupSession(meetingID, ch); s != nil {
		s.SendAudio(samples)
	}
}

// SendAudioPCM16 routes pre-quantized samples to the matching session,
// bypassing batching. Dropped silently when no open session matches.
func (m *Manager) SendAudioPCM16(meetingID string, ch Channel, pcm []int16) {
	if s := m.lookupSession(meetingID, ch); s != nil {
		s.SendAudioPCM16(pcm)
	}
}

func (m *Manager) lookupSession(meetingID string, ch Channel) managedSession {
	m.mu.Lock()
	mt, ok := m.meetings[meetingID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return mt.session(ch)
}

// StopMeeting disconnects the meeting's sessions, clears its state and
// emits the terminal EventDisconnected. Safe to call for unknown meetings
// and safe to call repeatedly.
func (m *Manager) StopMeeting(meetingID string) {
	m.mu.Lock()
	mt, ok := m.meetings[meetingID]
	delete(m.meetings, meetingID)
	m.mu.Unlock()
	if !ok {
		return
	}

	mt.stopOnce.Do(func() {
		mt.mu.Lock()
		sessions := make([]managedSession, 0, len(mt.sessions))
		for _, s := range mt.sessions {
			sessions = append(sessions, s)
		}
		mt.mu.Unlock()

		for _, s := range sessions {
			s.Disconnect()
		}

		mt.emit(Event{Type: EventDisconnected})
		close(mt.done)
		log.Info().Str("meetingId", meetingID).Msg("Meeting transcription stopped")
	})
}

// IsConnected reports whether the meeting's mandatory local session is
// currently open.
func (m *Manager) IsConnected(meetingID string) bool {
	s := m.lookupSession(meetingID, ChannelLocal)
	return s != nil && s.State() == StateOpen
}

// Events returns the meeting's event stream, if the meeting is active.
func (m *Manager) Events(meetingID string) (<-chan Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.meetings[meetingID]
	if !ok {
		return nil, false
	}
	return mt.events, true
}
