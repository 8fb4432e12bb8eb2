package models

import "time"

// PushEnvelope is the JSON record carried on the push input topic.
type PushEnvelope struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	ReceivedAt time.Time  `json:"received_at"`
	Push       PushFields `json:"push"`
	Metadata   Metadata   `json:"metadata"`
}

// PushFields are the flat fields sent by the vehicle server.
type PushFields struct {
	Title   string `json:"title"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Time    string `json:"time,omitempty"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
}
