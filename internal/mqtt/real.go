package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/pixiboo/internal/event"
)

// DefaultBufferSize is how many messages are held while the broker is
// unreachable.
const DefaultBufferSize = 100

const publishTimeout = 5 * time.Second

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int
}

// RealPublisher publishes to an MQTT broker. Messages published while the
// connection is down are buffered and sent, oldest first, on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics

	mu        sync.Mutex
	box       *outbox
	connected bool // seen at least one connection
	replaying bool // outbox is being drained; new messages queue behind it
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It never blocks on the broker.
func NewRealPublisher(opts Options) *RealPublisher {
	p := newRealPublisher(opts)
	p.client.Connect()
	return p
}

func newRealPublisher(opts Options) *RealPublisher {
	if opts.ClientID == "" {
		opts.ClientID = "pixiboo"
	}
	if opts.Topics == (Topics{}) {
		opts.Topics = NewTopics("")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		topics: opts.Topics,
		box:    newOutbox(opts.BufferSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(opts.Topics.System, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(co)
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		p.box.push(pendingMsg{topic: p.topics.System, payload: payload, qos: 1})
	}
	n := p.box.len()
	start := !p.replaying
	p.replaying = true
	p.mu.Unlock()

	log.Printf("mqtt: connected, replaying %d buffered messages", n)
	if start {
		go p.replay()
	}
}

// replay drains the outbox in order. Messages published meanwhile join the
// outbox behind the ones already waiting.
func (p *RealPublisher) replay() {
	for {
		p.mu.Lock()
		pending := p.box.flush()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for _, m := range pending {
			if err := p.send(m); err != nil {
				log.Printf("mqtt: replay to %s failed: %v", m.topic, err)
			}
		}
	}
}

// Publish sends a button or shake event.
func (p *RealPublisher) Publish(e event.Event) error {
	payload, err := FormatPayload(e)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0, not retained
	return p.publish(pendingMsg{topic: p.topics.Events, payload: payload})
}

// PublishSystem sends a lifecycle event.
func (p *RealPublisher) PublishSystem(e SystemEvent) error {
	payload, err := FormatSystemPayload(e)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 so shutdown events are delivered
	return p.publish(pendingMsg{topic: p.topics.System, payload: payload, qos: 1, retained: e.Retained})
}

func (p *RealPublisher) publish(m pendingMsg) error {
	p.mu.Lock()
	if p.replaying || !p.client.IsConnectionOpen() {
		p.box.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.send(m)
}

func (p *RealPublisher) send(m pendingMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.box.len()
}

func (p *RealPublisher) isReplaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.replaying
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker, waiting up to one second.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
