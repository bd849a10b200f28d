// Package mqtt publishes board events to an MQTT broker. The Publisher
// interface lets the daemon loop run against a fake in tests.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/pixiboo/internal/event"
)

// DefaultTopicPrefix roots every topic when none is configured.
const DefaultTopicPrefix = "pixiboo"

// Topics are the topics a publisher writes to.
type Topics struct {
	Events string // button and shake events
	System string // lifecycle events and status snapshots
}

// NewTopics derives the topic set from a prefix such as "home/pixiboo".
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Events: prefix + "/events",
		System: prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a board event. A failure is returned to the caller
	// and must not stop the process.
	Publish(e event.Event) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(e SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event: STARTUP, SHUTDOWN, HEARTBEAT,
// RECONNECTED, or an IMU status change.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // shutdown signal or failure reason
	RawPayload []byte // pre-formatted JSON; returned as-is by FormatSystemPayload
	Retained   bool
}

// Payload is the JSON body of a board event.
type Payload struct {
	Board BoardPayload `json:"pixiboo"`
}

// BoardPayload contains the event details.
type BoardPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Button    string `json:"button,omitempty"`
}

// FormatPayload creates the JSON payload for a board event.
func FormatPayload(e event.Event) ([]byte, error) {
	return json.Marshal(Payload{
		Board: BoardPayload{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(e.Type),
			Button:    e.Button,
		},
	})
}

// SystemPayload is the body of a system event that carries no status
// snapshot (LWT, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// RawPayload wins when set.
func FormatSystemPayload(e SystemEvent) ([]byte, error) {
	if e.RawPayload != nil {
		return e.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     e.Event,
			Reason:    e.Reason,
		},
	})
}
