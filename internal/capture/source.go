// Package capture acquires live audio input and delivers it as a stream
// of frames at the device's native rate. The transcription pipeline never
// retries device acquisition itself; device failures propagate to the
// caller.
package capture

import (
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Bilal-Bjo/meeting-assistant/internal/audio"
)

var (
	// ErrDeviceUnavailable is returned when no matching input device exists.
	ErrDeviceUnavailable = errors.New("capture: audio device unavailable")
	// ErrPermissionDenied is returned when OS-level audio permission is refused.
	ErrPermissionDenied = errors.New("capture: audio permission denied")
)

// DefaultDeviceID selects the platform default input device.
const DefaultDeviceID = "default"

// Device describes a selectable audio input.
type Device struct {
	ID         string
	Name       string
	IsDefault  bool
	SampleRate int
	Channels   int
}

// Devices enumerates the known audio inputs. The loopback device is only
// advertised where the platform supports system-audio capture.
func Devices() []Device {
	devices := []Device{
		{
			ID:         DefaultDeviceID,
			Name:       "System Default Microphone",
			IsDefault:  true,
			SampleRate: audio.TargetSampleRate,
			Channels:   1,
		},
	}
	if LoopbackCapable() {
		devices = append(devices, Device{
			ID:         "loopback",
			Name:       "System Audio (Loopback)",
			SampleRate: 48000,
			Channels:   2,
		})
	}
	return devices
}

// LoopbackCapable reports whether the platform can capture system audio
// output as an input stream.
func LoopbackCapable() bool {
	return runtime.GOOS == "darwin"
}

// Config selects a device and frame pacing for a capture source.
type Config struct {
	DeviceID   string        // empty selects the default device
	SampleRate int           // native rate frames are delivered at
	FrameSize  int           // samples per frame
	Interval   time.Duration // delivery cadence
}

func (c Config) withDefaults() Config {
	if c.DeviceID == "" {
		c.DeviceID = DefaultDeviceID
	}
	if c.SampleRate <= 0 {
		c.SampleRate = audio.TargetSampleRate
	}
	if c.FrameSize <= 0 {
		c.FrameSize = 2400
	}
	if c.Interval <= 0 {
		c.Interval = 100 * time.Millisecond
	}
	return c
}

// Source delivers an unbounded sequence of frames until stopped. A stopped
// source cannot be restarted; acquire a new one to resume capture.
type Source interface {
	// Frames returns the frame stream. The channel is closed after Stop.
	Frames() <-chan audio.Frame

	// Stop releases the underlying device resource. Idempotent.
	Stop()
}

// Open acquires the configured input device and starts delivering frames.
// Returns ErrDeviceUnavailable when the device id matches nothing.
func Open(cfg Config) (Source, error) {
	cfg = cfg.withDefaults()

	found := false
	for _, d := range Devices() {
		if d.ID == cfg.DeviceID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrDeviceUnavailable
	}

	return newSynthetic(cfg), nil
}

// synthetic is a ticker-driven source producing low-level noise frames at
// the configured cadence. It stands in for platform capture in development
// and tests; real capture helpers feed the pipeline through the ingress.
type synthetic struct {
	cfg    Config
	frames chan audio.Frame
	done   chan struct{}
	stop   sync.Once
}

// NewSynthetic returns a running synthetic source.
func NewSynthetic(cfg Config) Source {
	return newSynthetic(cfg.withDefaults())
}

func newSynthetic(cfg Config) *synthetic {
	s := &synthetic{
		cfg:    cfg,
		frames: make(chan audio.Frame, 4),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *synthetic) Frames() <-chan audio.Frame {
	return s.frames
}

func (s *synthetic) Stop() {
	s.stop.Do(func() {
		close(s.done)
	})
}

func (s *synthetic) run() {
	defer close(s.frames)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Debug().
		Str("component", "capture").
		Str("deviceId", s.cfg.DeviceID).
		Int("sampleRate", s.cfg.SampleRate).
		Msg("Capture source started")

	for {
		select {
		case <-s.done:
			log.Debug().
				Str("component", "capture").
				Str("deviceId", s.cfg.DeviceID).
				Msg("Capture source stopped")
			return
		case <-ticker.C:
			samples := make([]float32, s.cfg.FrameSize)
			for i := range samples {
				samples[i] = (rand.Float32() - 0.5) * 0.02
			}
			frame := audio.Frame{
				Samples:    samples,
				SampleRate: s.cfg.SampleRate,
				Timestamp:  time.Now(),
			}
			select {
			case s.frames <- frame:
			case <-s.done:
				return
			}
		}
	}
}
