package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Bilal-Bjo/meeting-assistant/internal/app"
	"github.com/Bilal-Bjo/meeting-assistant/internal/audio"
	"github.com/Bilal-Bjo/meeting-assistant/internal/capture"
	"github.com/Bilal-Bjo/meeting-assistant/internal/config"
	"github.com/Bilal-Bjo/meeting-assistant/internal/events"
	"github.com/Bilal-Bjo/meeting-assistant/internal/ingress"
	"github.com/Bilal-Bjo/meeting-assistant/internal/models"
	"github.com/Bilal-Bjo/meeting-assistant/internal/observability"
	"github.com/Bilal-Bjo/meeting-assistant/internal/observability/metrics"
	"github.com/Bilal-Bjo/meeting-assistant/internal/realtime"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application startup failed")
	}

	obsServer := observability.NewServer(cfg.Observability.MetricsAddr)
	obsServer.Start()

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	manager := realtime.NewManager(realtime.ManagerConfig{
		APIKey:                 cfg.Realtime.APIKey,
		Model:                  cfg.Realtime.Model,
		Endpoint:               cfg.Realtime.Endpoint,
		InPersonMode:           cfg.Realtime.InPersonMode,
		RemoteSourceConfigured: cfg.Realtime.RemoteSourceID != "",
		LoopbackCapable:        capture.LoopbackCapable(),
		LocalVADThreshold:      cfg.Realtime.LocalVADThreshold,
		RemoteVADThreshold:     cfg.Realtime.RemoteVADThreshold,
		ConnectTimeout:         cfg.Realtime.ConnectTimeout,
	})

	pipeline := newPublishingPipeline(manager, publisher)

	ingressServer := ingress.NewServer(cfg.Ingress.Addr, pipeline)
	ingressServer.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var captureSource capture.Source
	if cfg.Audio.Enabled {
		captureSource = startLocalCapture(ctx, cfg, pipeline)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	cancel()
	if captureSource != nil {
		captureSource.Stop()
	}
	pipeline.StopAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := ingressServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ingress server shutdown error")
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown error")
	}
	application.Shutdown()
}

// startLocalCapture acquires the configured microphone and feeds its frames
// into a fresh meeting on the local channel. Used for standalone operation
// without an external capture helper.
func startLocalCapture(ctx context.Context, cfg *config.Configuration, pipeline *publishingPipeline) capture.Source {
	source, err := capture.Open(capture.Config{
		DeviceID:   cfg.Audio.DeviceID,
		SampleRate: cfg.Audio.SampleRate,
		Interval:   cfg.Audio.FrameInterval,
	})
	if err != nil {
		log.Error().Err(err).Str("deviceId", cfg.Audio.DeviceID).Msg("Local capture unavailable")
		return nil
	}

	meetingID := uuid.NewString()
	if _, err := pipeline.StartMeeting(ctx, meetingID); err != nil {
		log.Error().Err(err).Str("meetingId", meetingID).Msg("Local capture meeting failed to start")
		source.Stop()
		return nil
	}

	go func() {
		for frame := range source.Frames() {
			samples := frame.Samples
			if frame.SampleRate != audio.TargetSampleRate {
				samples = audio.Resample(samples, frame.SampleRate, audio.TargetSampleRate)
			}
			pipeline.SendAudio(meetingID, realtime.ChannelLocal, samples)
		}
	}()

	log.Info().Str("meetingId", meetingID).Str("deviceId", cfg.Audio.DeviceID).
		Msg("Local capture started")
	return source
}

// publishingPipeline wraps the session manager and forwards each meeting's
// transcript events to the downstream publisher.
type publishingPipeline struct {
	*realtime.Manager
	publisher *events.Publisher

	mu      sync.Mutex
	started map[string]time.Time
}

func newPublishingPipeline(manager *realtime.Manager, publisher *events.Publisher) *publishingPipeline {
	return &publishingPipeline{
		Manager:   manager,
		publisher: publisher,
		started:   make(map[string]time.Time),
	}
}

// StartMeeting starts the meeting's transcription and, on first start,
// spawns a forwarder consuming its event stream.
func (p *publishingPipeline) StartMeeting(ctx context.Context, meetingID string) (<-chan realtime.Event, error) {
	stream, err := p.Manager.StartMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	_, running := p.started[meetingID]
	if !running {
		p.started[meetingID] = time.Now()
	}
	p.mu.Unlock()

	if !running {
		go p.forward(meetingID, stream)
	}
	return stream, nil
}

// StopAll stops every meeting this process started.
func (p *publishingPipeline) StopAll() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.started))
	for id := range p.started {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.StopMeeting(id)
	}
}

// forward drains a meeting's event stream until the terminal disconnect,
// publishing partial and final transcripts downstream.
func (p *publishingPipeline) forward(meetingID string, stream <-chan realtime.Event) {
	p.mu.Lock()
	startedAt := p.started[meetingID]
	p.mu.Unlock()

	m := metrics.DefaultMetrics
	for ev := range stream {
		switch ev.Type {
		case realtime.EventTranscriptDelta:
			m.RecordTranscriptDelta()
			err := p.publisher.PublishPartial(context.Background(), meetingID, models.TranscriptPartial{
				EventType: "meeting.transcript.partial",
				MeetingID: meetingID,
				Channel:   string(ev.Channel),
				Timestamp: time.Now().UnixMilli(),
				Text:      ev.Text,
			})
			if err != nil {
				log.Error().Err(err).Str("meetingId", meetingID).Msg("Partial transcript publish failed")
			}

		case realtime.EventTranscript:
			m.RecordTranscriptFinal()
			now := time.Now()
			err := p.publisher.PublishFinal(context.Background(), meetingID, models.TranscriptFinal{
				EventType: "meeting.transcript.final",
				MeetingID: meetingID,
				Channel:   string(ev.Channel),
				Timestamp: now.UnixMilli(),
				OffsetMs:  now.Sub(startedAt).Milliseconds(),
				Text:      ev.Text,
			})
			if err != nil {
				log.Error().Err(err).Str("meetingId", meetingID).Msg("Final transcript publish failed")
			}

		case realtime.EventError:
			log.Warn().Str("meetingId", meetingID).Str("channel", string(ev.Channel)).
				Str("message", ev.Message).Msg("Transcription error event")

		case realtime.EventDisconnected:
			p.mu.Lock()
			delete(p.started, meetingID)
			p.mu.Unlock()
			log.Info().Str("meetingId", meetingID).Msg("Meeting event stream ended")
			return
		}
	}
}
