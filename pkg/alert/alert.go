// Package alert defines the wire types shared by the publish gateway and
// the fan-out bridge.
package alert

import "time"

// TypeAlert is the fixed payload type pushed to devices.
const TypeAlert = "alert"

// Payload is the message pushed down a device connection. Timestamp is the
// creation time of the alert, not its delivery time.
type Payload struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope is the unit published on the bus. One envelope addresses exactly
// one target address; multi-target requests are expanded into multiple
// envelopes before publishing.
type Envelope struct {
	TargetAddress string  `json:"targetAddress"`
	Payload       Payload `json:"payload"`
}

// NewPayload creates a freshly-timestamped alert payload.
func NewPayload(title, message string) Payload {
	return Payload{
		Type:      TypeAlert,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().Round(time.Millisecond).UTC(),
	}
}
