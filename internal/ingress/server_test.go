package ingress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bilal-Bjo/meeting-assistant/internal/realtime"
)

type fakePipeline struct {
	mu       sync.Mutex
	started  []string
	stopped  []string
	startErr error
	lastCh   realtime.Channel
	gotPCM   chan []int16
	gotFloat chan []float32
	events   chan realtime.Event
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{
		gotPCM:   make(chan []int16, 8),
		gotFloat: make(chan []float32, 8),
		events:   make(chan realtime.Event, 8),
	}
}

func (f *fakePipeline) StartMeeting(_ context.Context, meetingID string) (<-chan realtime.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, meetingID)
	return f.events, nil
}

func (f *fakePipeline) StopMeeting(meetingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, meetingID)
}

func (f *fakePipeline) SendAudio(_ string, ch realtime.Channel, samples []float32) {
	f.mu.Lock()
	f.lastCh = ch
	f.mu.Unlock()
	f.gotFloat <- samples
}

func (f *fakePipeline) SendAudioPCM16(_ string, ch realtime.Channel, pcm []int16) {
	f.mu.Lock()
	f.lastCh = ch
	f.mu.Unlock()
	f.gotPCM <- pcm
}

func (f *fakePipeline) startedMeetings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

func (f *fakePipeline) stoppedMeetings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stopped...)
}

func (f *fakePipeline) channel() realtime.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCh
}

func newTestServer(t *testing.T, pipeline Pipeline) *httptest.Server {
	t.Helper()
	s := NewServer(":0", pipeline)
	ts := httptest.NewServer(s.server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func dialAudio(t *testing.T, ts *httptest.Server, meetingID, channel string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/meetings/" + meetingID + "/audio?channel=" + channel
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, newFakePipeline())

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAudioStream_RejectsUnknownChannel(t *testing.T) {
	fake := newFakePipeline()
	ts := newTestServer(t, fake)

	resp, err := http.Get(ts.URL + "/v1/meetings/meet-1/audio?channel=broadcast")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if len(fake.startedMeetings()) != 0 {
		t.Error("meeting must not be started for an invalid channel")
	}
}

func TestAudioStream_StartFailureReturnsBadGateway(t *testing.T) {
	fake := newFakePipeline()
	fake.startErr = errors.New("no credential")
	ts := newTestServer(t, fake)

	resp, err := http.Get(ts.URL + "/v1/meetings/meet-1/audio?channel=local")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestAudioStream_BinaryFramesRoutedAsPCM16(t *testing.T) {
	fake := newFakePipeline()
	ts := newTestServer(t, fake)

	conn := dialAudio(t, ts, "meet-1", "local")

	pcm := []int16{100, -200, 300}
	raw := make([]byte, 0, len(pcm)*2)
	for _, s := range pcm {
		raw = append(raw, byte(uint16(s)), byte(uint16(s)>>8))
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-fake.gotPCM:
		if len(got) != len(pcm) {
			t.Fatalf("got %d samples, want %d", len(got), len(pcm))
		}
		for i := range pcm {
			if got[i] != pcm[i] {
				t.Errorf("sample %d = %d, want %d", i, got[i], pcm[i])
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PCM frame")
	}

	if got := fake.startedMeetings(); len(got) != 1 || got[0] != "meet-1" {
		t.Errorf("started meetings = %v, want [meet-1]", got)
	}
	if fake.channel() != realtime.ChannelLocal {
		t.Errorf("channel = %s, want local", fake.channel())
	}
}

func TestAudioStream_FloatFramesResampled(t *testing.T) {
	fake := newFakePipeline()
	ts := newTestServer(t, fake)

	conn := dialAudio(t, ts, "meet-1", "remote")

	// 48kHz input halves to the 24kHz target rate
	frame := `{"samples":[0.1,0.2,0.3,0.4],"sample_rate":48000}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-fake.gotFloat:
		if len(got) != 2 {
			t.Errorf("got %d samples after resample, want 2", len(got))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for float frame")
	}
	if fake.channel() != realtime.ChannelRemote {
		t.Errorf("channel = %s, want remote", fake.channel())
	}
}

func TestAudioStream_NativeRatePassedThrough(t *testing.T) {
	fake := newFakePipeline()
	ts := newTestServer(t, fake)

	conn := dialAudio(t, ts, "meet-1", "local")

	frame := `{"samples":[0.1,0.2,0.3],"sample_rate":24000}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-fake.gotFloat:
		if len(got) != 3 {
			t.Errorf("got %d samples, want 3 unchanged", len(got))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for float frame")
	}
}

func TestAudioStream_MalformedFrameDoesNotCloseStream(t *testing.T) {
	fake := newFakePipeline()
	ts := newTestServer(t, fake)

	conn := dialAudio(t, ts, "meet-1", "local")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write malformed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"samples":[0.5],"sample_rate":24000}`)); err != nil {
		t.Fatalf("write valid: %v", err)
	}

	select {
	case got := <-fake.gotFloat:
		if len(got) != 1 {
			t.Errorf("got %d samples, want 1", len(got))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream should survive a malformed frame")
	}
}

func TestAudioStream_DefaultChannelIsLocal(t *testing.T) {
	fake := newFakePipeline()
	ts := newTestServer(t, fake)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/meetings/meet-1/audio"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial without channel param: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"samples":[0.5],"sample_rate":24000}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-fake.gotFloat:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	if fake.channel() != realtime.ChannelLocal {
		t.Errorf("channel = %s, want local default", fake.channel())
	}
}

func TestStopMeeting(t *testing.T) {
	fake := newFakePipeline()
	ts := newTestServer(t, fake)

	resp, err := http.Post(ts.URL+"/v1/meetings/meet-1/stop", "", nil)
	if err != nil {
		t.Fatalf("POST stop: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := fake.stoppedMeetings(); len(got) != 1 || got[0] != "meet-1" {
		t.Errorf("stopped meetings = %v, want [meet-1]", got)
	}
}
