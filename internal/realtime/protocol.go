package realtime

import "encoding/json"

// DefaultEndpoint is the speech service's realtime websocket endpoint.
const DefaultEndpoint = "wss://api.openai.com/v1/realtime"

// DefaultModel is the fallback transcription model sent when the
// configured identifier is not in the known-valid set.
const DefaultModel = "gpt-4o-realtime-preview"

var validModels = []string{
	"gpt-4o-realtime-preview",
	"gpt-4o-realtime-preview-2024-12-17",
	"gpt-4o-mini-realtime-preview",
	"gpt-4o-mini-realtime-preview-2024-12-17",
}

// CoerceModel returns model if it is a known-valid realtime identifier,
// the safe default otherwise. Sending an unrecognized model would fail the
// whole handshake.
func CoerceModel(model string) string {
	for _, m := range validModels {
		if m == model {
			return m
		}
	}
	return DefaultModel
}

// Per-channel server VAD energy thresholds. Loopback audio is typically
// quieter than a microphone pointed at the speaker, so the remote channel
// uses a lower threshold.
const (
	DefaultLocalVADThreshold  = 0.25
	DefaultRemoteVADThreshold = 0.12

	vadPrefixPaddingMS   = 200
	vadSilenceDurationMS = 400
)

// VADThresholdFor returns the default VAD threshold for a channel.
func VADThresholdFor(ch Channel) float64 {
	if ch == ChannelRemote {
		return DefaultRemoteVADThreshold
	}
	return DefaultLocalVADThreshold
}

// Outbound message types.
const (
	msgSessionUpdate = "session.update"
	msgAudioAppend   = "input_audio_buffer.append"
)

// Inbound message types.
const (
	msgSpeechStarted          = "input_audio_buffer.speech_started"
	msgSpeechStopped          = "input_audio_buffer.speech_stopped"
	msgTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	msgTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	msgError                  = "error"
)

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities              []string        `json:"modalities"`
	InputAudioFormat        string          `json:"input_audio_format"`
	InputAudioTranscription transcriptionOn `json:"input_audio_transcription"`
	TurnDetection           turnDetection   `json:"turn_detection"`
}

type transcriptionOn struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
	CreateResponse    bool    `json:"create_response"`
}

// newSessionUpdate builds the configuration message sent once after the
// handshake: 16-bit PCM input, transcription on, server VAD tuned for the
// channel, and response auto-generation off. This pipeline consumes
// transcripts only.
func newSessionUpdate(vadThreshold float64) sessionUpdate {
	return sessionUpdate{
		Type: msgSessionUpdate,
		Session: sessionConfig{
			Modalities:              []string{"text"},
			InputAudioFormat:        "pcm16",
			InputAudioTranscription: transcriptionOn{Model: "whisper-1"},
			TurnDetection: turnDetection{
				Type:              "server_vad",
				Threshold:         vadThreshold,
				PrefixPaddingMS:   vadPrefixPaddingMS,
				SilenceDurationMS: vadSilenceDurationMS,
				CreateResponse:    false,
			},
		},
	}
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// serverEvent is the inbound protocol envelope. Only the fields the
// pipeline consumes are decoded; everything else is ignored.
type serverEvent struct {
	Type       string       `json:"type"`
	Delta      string       `json:"delta"`
	Transcript string       `json:"transcript"`
	Error      *serverError `json:"error"`
}

type serverError struct {
	Message string `json:"message"`
}

func parseServerEvent(data []byte) (serverEvent, error) {
	var ev serverEvent
	err := json.Unmarshal(data, &ev)
	return ev, err
}
