// Package models defines the transcript event records published
// downstream for persistence.
package models

// TranscriptPartial is an in-progress transcript for an utterance that is
// not yet finalized. Text carries the full running text so far.
type TranscriptPartial struct {
	EventType string `json:"eventType"`
	MeetingID string `json:"meetingId"`
	Channel   string `json:"channel"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// TranscriptFinal is a finalized utterance. Consumers persist these keyed
// by meeting id, channel and offset; the pipeline itself stores nothing.
type TranscriptFinal struct {
	EventType string `json:"eventType"`
	MeetingID string `json:"meetingId"`
	Channel   string `json:"channel"`
	Timestamp int64  `json:"timestamp"`
	OffsetMs  int64  `json:"offsetMs"`
	Text      string `json:"text"`
}
