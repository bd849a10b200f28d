package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Buttons       ButtonsJSON `json:"buttons"`
	IMU           IMUJSON     `json:"imu"`
	LastEvent     *EventJSON  `json:"last_event,omitempty"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"event_counts"`
	Config        ConfigJSON  `json:"config"`
}

// ButtonsJSON reports the raw button levels and delivery mode.
type ButtonsJSON struct {
	Mode   string `json:"mode"` // "interrupt" or "polled"
	Left   bool   `json:"left"`
	Center bool   `json:"center"`
	Right  bool   `json:"right"`
}

// IMUJSON describes the accelerometer.
type IMUJSON struct {
	Present bool   `json:"present"`
	Kind    string `json:"kind,omitempty"`
	Address string `json:"address,omitempty"`
	Bus     string `json:"bus,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EventJSON is the most recent board event.
type EventJSON struct {
	Type      string `json:"type"`
	Button    string `json:"button,omitempty"`
	Timestamp string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Left   int `json:"left"`
	Center int `json:"center"`
	Right  int `json:"right"`
	Shakes int `json:"shakes"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DebounceMs       uint32 `json:"debounce_ms"`
	ShakeThresholdMg uint32 `json:"shake_threshold_mg"`
	ShakeDebounceMs  uint32 `json:"shake_debounce_ms"`
	ShakePollMs      uint32 `json:"shake_poll_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Broker           string `json:"broker"`
	TopicPrefix      string `json:"topic_prefix"`
	HTTPAddr         string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := "polled"
	if snap.Buttons.Interrupts {
		mode = "interrupt"
	}
	inner := StatusInner{
		Buttons: ButtonsJSON{
			Mode:   mode,
			Left:   snap.Buttons.Pressed[0],
			Center: snap.Buttons.Pressed[1],
			Right:  snap.Buttons.Pressed[2],
		},
		IMU: IMUJSON{
			Present: snap.IMU.Present,
			Kind:    snap.IMU.Kind,
			Bus:     snap.IMU.Bus,
			Error:   snap.IMU.Error,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Left:   snap.Counts.Left,
			Center: snap.Counts.Center,
			Right:  snap.Counts.Right,
			Shakes: snap.Counts.Shakes,
		},
		Config: ConfigJSON{
			DebounceMs:       snap.Config.DebounceMs,
			ShakeThresholdMg: snap.Config.ShakeThresholdMg,
			ShakeDebounceMs:  snap.Config.ShakeDebounceMs,
			ShakePollMs:      snap.Config.ShakePollMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			TopicPrefix:      snap.Config.TopicPrefix,
			HTTPAddr:         snap.Config.HTTPAddr,
		},
	}
	if snap.IMU.Present {
		inner.IMU.Address = fmt.Sprintf("0x%02x", snap.IMU.Addr)
	}
	if snap.Last != nil {
		inner.LastEvent = &EventJSON{
			Type:      string(snap.Last.Type),
			Button:    snap.Last.Button,
			Timestamp: snap.Last.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
