package mqtt

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Starter starts a check run; false means one was already running.
type Starter interface {
	Start() bool
}

// Trigger starts a check for every message on its topic, acting as a
// hardware run button.
type Trigger struct {
	conn    Conn
	topic   string
	starter Starter
	logger  *zap.Logger

	mu         sync.Mutex
	subscribed bool
}

func NewTrigger(conn Conn, topic string, starter Starter, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		conn:    conn,
		topic:   topic,
		starter: starter,
		logger:  logger.With(zap.String("topic", topic)),
	}
}

// Subscribe registers the trigger handler. Calling it again is a no-op until
// Reset is called.
func (t *Trigger) Subscribe() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.subscribed {
		return nil
	}
	if err := t.conn.Subscribe(t.topic, t.handle); err != nil {
		return err
	}
	t.subscribed = true
	return nil
}

// Reset forgets the subscription so the next Subscribe re-registers it.
// Call it when the connection drops.
func (t *Trigger) Reset() {
	t.mu.Lock()
	t.subscribed = false
	t.mu.Unlock()
}

func (t *Trigger) Subscribed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribed
}

func (t *Trigger) handle(_ paho.Client, msg paho.Message) {
	if t.starter.Start() {
		t.logger.Info("check triggered over mqtt")
		return
	}
	t.logger.Debug("mqtt trigger ignored, check already running", zap.Int("payload_bytes", len(msg.Payload())))
}
