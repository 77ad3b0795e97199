// Package ingress exposes the audio ingress HTTP server. Capture helpers
// stream meeting audio over websockets; the server decodes each frame and
// routes it to the matching transcription session.
package ingress

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Bilal-Bjo/meeting-assistant/internal/audio"
	"github.com/Bilal-Bjo/meeting-assistant/internal/observability/metrics"
	"github.com/Bilal-Bjo/meeting-assistant/internal/realtime"
)

// Pipeline is the transcription entry point the ingress routes audio into.
// Satisfied by realtime.Manager.
type Pipeline interface {
	StartMeeting(ctx context.Context, meetingID string) (<-chan realtime.Event, error)
	StopMeeting(meetingID string)
	SendAudio(meetingID string, ch realtime.Channel, samples []float32)
	SendAudioPCM16(meetingID string, ch realtime.Channel, pcm []int16)
}

// floatFrame is the text-message payload for capture helpers that ship raw
// float samples at their native rate.
type floatFrame struct {
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

// Server accepts audio streams from capture helpers over websockets.
type Server struct {
	addr     string
	pipeline Pipeline
	server   *http.Server
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
}

// NewServer creates the ingress server listening on addr.
func NewServer(addr string, pipeline Pipeline) *Server {
	s := &Server{
		addr:     addr,
		pipeline: pipeline,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 4 * 1024,
		},
		metrics: metrics.DefaultMetrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1/meetings/{meetingID}", func(r chi.Router) {
		r.Get("/audio", s.handleAudio)
		r.Post("/stop", s.handleStop)
	})

	s.server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Audio ingress server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Audio ingress server failed")
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleAudio upgrades the connection and pumps incoming frames into the
// pipeline. Binary messages carry little-endian PCM16 at the target rate;
// text messages carry JSON float frames at the helper's native rate.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	ch := realtime.Channel(r.URL.Query().Get("channel"))
	if ch == "" {
		ch = realtime.ChannelLocal
	}
	if !ch.Valid() {
		http.Error(w, "unknown channel", http.StatusBadRequest)
		return
	}

	streamLogger := log.With().
		Str("component", "ingress").
		Str("meetingId", meetingID).
		Str("channel", string(ch)).
		Logger()

	if _, err := s.pipeline.StartMeeting(r.Context(), meetingID); err != nil {
		streamLogger.Error().Err(err).Msg("Failed to start meeting transcription")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		streamLogger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	streamLogger.Info().Msg("Audio stream connected")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				streamLogger.Warn().Err(err).Msg("Audio stream closed unexpectedly")
			} else {
				streamLogger.Info().Msg("Audio stream closed")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.metrics.RecordIngressFrame(string(ch), "pcm16", len(data))
			s.pipeline.SendAudioPCM16(meetingID, ch, audio.DecodePCM16(data))

		case websocket.TextMessage:
			var frame floatFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				s.metrics.RecordProtocolError("ingress_frame_decode")
				streamLogger.Warn().Err(err).Msg("Dropping malformed audio frame")
				continue
			}
			s.metrics.RecordIngressFrame(string(ch), "float32", len(data))
			samples := frame.Samples
			if frame.SampleRate > 0 {
				samples = audio.Resample(samples, frame.SampleRate, audio.TargetSampleRate)
			}
			s.pipeline.SendAudio(meetingID, ch, samples)
		}
	}
}

// handleStop ends the meeting's transcription sessions.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	s.pipeline.StopMeeting(meetingID)
	w.WriteHeader(http.StatusNoContent)
}
