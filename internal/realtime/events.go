// Package realtime implements the dual-stream transcription pipeline: one
// persistent duplex connection to the speech service per audio channel,
// protocol state tracking for partial transcripts, and a meeting-level
// manager that merges both channels into a single ordered event stream.
package realtime

// Channel identifies one of the two fixed audio sources of a meeting.
type Channel string

const (
	// ChannelLocal is the user's own microphone.
	ChannelLocal Channel = "local"
	// ChannelRemote is captured system/loopback audio carrying the other
	// meeting participants.
	ChannelRemote Channel = "remote"
)

// Valid reports whether c names a known channel.
func (c Channel) Valid() bool {
	return c == ChannelLocal || c == ChannelRemote
}

// Stage describes what the pipeline is doing, for status events.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageConnecting   Stage = "connecting"
	StageListening    Stage = "listening"
	StageTranscribing Stage = "transcribing"
)

// EventType discriminates the transcript event union.
type EventType string

const (
	EventConnected       EventType = "connected"
	EventDisconnected    EventType = "disconnected"
	EventStatus          EventType = "status"
	EventTranscriptDelta EventType = "transcript_delta"
	EventTranscript      EventType = "transcript"
	EventError           EventType = "error"
)

// Event is one entry in a meeting's ordered event stream.
//
// For a given channel and utterance, zero or more EventTranscriptDelta
// events precede exactly one EventTranscript. Delta events carry the full
// running text of the utterance so far, not just the new fragment.
type Event struct {
	Type    EventType `json:"type"`
	Channel Channel   `json:"channel,omitempty"`
	Stage   Stage     `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	Text    string    `json:"text,omitempty"`
}
