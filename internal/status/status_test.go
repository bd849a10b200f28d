package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/pixiboo/internal/event"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	cfg := Config{DebounceMs: 50, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.DebounceMs != 50 {
		t.Errorf("Config.DebounceMs: got %d, want 50", snap.Config.DebounceMs)
	}
	if snap.MQTTConnected || snap.IMU.Present || snap.Last != nil {
		t.Errorf("unexpected initial state: %+v", snap)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	last := event.Event{Timestamp: start, Type: event.TypeButtonPressed, Button: "center"}

	tr.Update(event.Counts{Center: 3, Shakes: 1}, &last)

	snap := tr.Snapshot()
	if snap.Counts.Center != 3 || snap.Counts.Shakes != 1 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}
	if snap.Last == nil || snap.Last.Button != "center" {
		t.Errorf("unexpected last event: %+v", snap.Last)
	}

	// nil keeps the previous last event
	tr.Update(event.Counts{Center: 3, Shakes: 1}, nil)
	if tr.Snapshot().Last == nil {
		t.Error("Update with nil should keep the last event")
	}
}

func TestSetters(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	tr.SetButtons(Buttons{Interrupts: true, Pressed: [3]bool{false, true, false}})
	tr.SetIMU(IMUInfo{Present: true, Kind: "BNO055", Addr: 0x28, Bus: "I2C0@100kHz"})

	snap := tr.Snapshot()
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	if !snap.Buttons.Interrupts || !snap.Buttons.Pressed[1] {
		t.Errorf("unexpected buttons: %+v", snap.Buttons)
	}
	if snap.IMU.Kind != "BNO055" {
		t.Errorf("unexpected imu: %+v", snap.IMU)
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(start, Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(event.Counts{Left: 1}, &event.Event{Type: event.TypeButtonPressed, Button: "left"})

	snap1 := tr.Snapshot()
	snap1.Last.Button = "mutated"

	tr.Update(event.Counts{Left: 2}, nil)

	if snap1.Counts.Left != 1 {
		t.Error("snapshot should be a copy; counts were modified")
	}
	if tr.Snapshot().Last.Button != "left" {
		t.Error("mutating a snapshot must not reach the tracker")
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Counts:        event.Counts{Left: 5, Center: 2, Right: 1, Shakes: 4},
		Last:          &event.Event{Timestamp: start.Add(time.Minute), Type: event.TypeShake},
		Buttons:       Buttons{Interrupts: true, Pressed: [3]bool{true, false, false}},
		IMU:           IMUInfo{Present: true, Kind: "MPU6050", Addr: 0x68, Bus: "I2C0@100kHz"},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{DebounceMs: 50, ShakeThresholdMg: 1500, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPAddr: ":80"},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.Buttons.Mode != "interrupt" || !s.Buttons.Left || s.Buttons.Center {
		t.Errorf("unexpected buttons: %+v", s.Buttons)
	}
	if !s.IMU.Present || s.IMU.Kind != "MPU6050" || s.IMU.Address != "0x68" {
		t.Errorf("unexpected imu: %+v", s.IMU)
	}
	if s.LastEvent == nil || s.LastEvent.Type != "SHAKE" || s.LastEvent.Timestamp != "2026-01-01T00:01:00Z" {
		t.Errorf("unexpected last event: %+v", s.LastEvent)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts != (CountsJSON{Left: 5, Center: 2, Right: 1, Shakes: 4}) {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
	if s.Config.ShakeThresholdMg != 1500 {
		t.Errorf("Config.ShakeThresholdMg: got %d", s.Config.ShakeThresholdMg)
	}
	if s.Event != "" || s.Reason != "" {
		t.Errorf("web format should omit event/reason, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONWithoutIMU(t *testing.T) {
	snap := Snapshot{
		IMU:       IMUInfo{Error: "imu probe: no device answered on any i2c bus"},
		StartTime: start,
		Now:       start.Add(time.Second),
	}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	imu := raw["status"]["imu"].(map[string]interface{})
	if imu["present"] != false {
		t.Errorf("expected present=false, got %v", imu["present"])
	}
	if _, exists := imu["address"]; exists {
		t.Error("address should be omitted without an imu")
	}
	if imu["error"] == "" {
		t.Error("expected the bring-up error")
	}
	if _, exists := raw["status"]["last_event"]; exists {
		t.Error("last_event should be omitted before the first event")
	}
	buttons := raw["status"]["buttons"].(map[string]interface{})
	if buttons["mode"] != "polled" {
		t.Errorf("expected polled mode, got %v", buttons["mode"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Counts:    event.Counts{Right: 3},
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(snap, "HEARTBEAT", ""), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "HEARTBEAT" || parsed.Status.Reason != "" {
		t.Errorf("unexpected event/reason: %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.Counts.Right != 3 {
		t.Errorf("Counts.Right: got %d, want 3", parsed.Status.Counts.Right)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(30 * time.Minute)}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("unexpected event/reason: %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var raw map[string]map[string]interface{}
	json.Unmarshal(FormatStatusEvent(snap, "STARTUP", ""), &raw)
	if _, exists := raw["status"]["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if raw["status"]["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", raw["status"]["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(event.Counts{Left: i}, &event.Event{Type: event.TypeShake})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetButtons(Buttons{Pressed: [3]bool{i%2 == 0}})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
