package capture

import (
	"errors"
	"testing"
	"time"
)

func TestOpen_UnknownDevice(t *testing.T) {
	_, err := Open(Config{DeviceID: "no-such-device"})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestOpen_DefaultDevice(t *testing.T) {
	src, err := Open(Config{Interval: 5 * time.Millisecond, FrameSize: 240})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer src.Stop()

	select {
	case frame, ok := <-src.Frames():
		if !ok {
			t.Fatal("frame channel closed before stop")
		}
		if len(frame.Samples) != 240 {
			t.Errorf("expected 240 samples per frame, got %d", len(frame.Samples))
		}
		if frame.SampleRate != 24000 {
			t.Errorf("expected default 24000 Hz, got %d", frame.SampleRate)
		}
		if frame.Timestamp.IsZero() {
			t.Error("expected frame timestamp to be set")
		}
	case <-time.After(time.Second):
		t.Fatal("no frame delivered within 1s")
	}
}

func TestSource_StopClosesFrames(t *testing.T) {
	src := NewSynthetic(Config{Interval: 5 * time.Millisecond})

	src.Stop()
	// Stop is idempotent.
	src.Stop()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-src.Frames():
			if !ok {
				return // closed as expected
			}
		case <-deadline:
			t.Fatal("frame channel not closed within 1s of Stop")
		}
	}
}

func TestDevices_AlwaysIncludesDefault(t *testing.T) {
	devices := Devices()
	if len(devices) == 0 {
		t.Fatal("expected at least one device")
	}
	if devices[0].ID != DefaultDeviceID || !devices[0].IsDefault {
		t.Errorf("expected first device to be the default, got %+v", devices[0])
	}
}
