package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/verifypanel/internal/audio"
)

// mockConn records subscriptions and publishes.
type mockConn struct {
	mu            sync.Mutex
	subscriptions map[string]paho.MessageHandler
	subscribes    int
	published     map[string][][]byte
	publishErr    error
}

func newMockConn() *mockConn {
	return &mockConn{
		subscriptions: make(map[string]paho.MessageHandler),
		published:     make(map[string][][]byte),
	}
}

func (m *mockConn) Subscribe(topic string, handler paho.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = handler
	m.subscribes++
	return nil
}

func (m *mockConn) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published[topic] = append(m.published[topic], payload)
	return nil
}

func (m *mockConn) SimulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	handler, ok := m.subscriptions[topic]
	m.mu.Unlock()
	if ok {
		handler(nil, &mockMessage{topic: topic, payload: payload})
	}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

type countingStarter struct {
	mu      sync.Mutex
	calls   int
	running bool
}

func (s *countingStarter) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.running {
		return false
	}
	s.running = true
	return true
}

func TestTriggerStartsCheck(t *testing.T) {
	conn := newMockConn()
	starter := &countingStarter{}
	trig := NewTrigger(conn, "panel/trigger", starter, nil)

	if err := trig.Subscribe(); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if !trig.Subscribed() {
		t.Error("expected trigger to be subscribed")
	}

	conn.SimulateMessage("panel/trigger", []byte("press"))
	conn.SimulateMessage("panel/trigger", []byte("press"))
	conn.SimulateMessage("panel/other", []byte("press"))

	if starter.calls != 2 {
		t.Errorf("expected 2 start attempts, got %d", starter.calls)
	}
}

func TestTriggerSubscribeIdempotent(t *testing.T) {
	conn := newMockConn()
	trig := NewTrigger(conn, "panel/trigger", &countingStarter{}, nil)

	for i := 0; i < 3; i++ {
		if err := trig.Subscribe(); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
	}
	if conn.subscribes != 1 {
		t.Errorf("expected 1 broker subscription, got %d", conn.subscribes)
	}

	trig.Reset()
	if trig.Subscribed() {
		t.Error("expected Reset to clear subscription state")
	}
	if err := trig.Subscribe(); err != nil {
		t.Fatalf("resubscribe failed: %v", err)
	}
	if conn.subscribes != 2 {
		t.Errorf("expected resubscribe after Reset, got %d subscriptions", conn.subscribes)
	}
}

func TestCueBeeperPublishesJSON(t *testing.T) {
	conn := newMockConn()
	b := NewCueBeeper(conn, "panel/buzzer", nil)

	b.Beep(988, 90*time.Millisecond)

	msgs := conn.published["panel/buzzer"]
	if len(msgs) != 1 {
		t.Fatalf("expected 1 published cue, got %d", len(msgs))
	}
	var cue audio.Cue
	if err := json.Unmarshal(msgs[0], &cue); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if cue.FreqHz != 988 || cue.DurationMS != 90 {
		t.Errorf("unexpected cue %+v", cue)
	}
}

func TestCueBeeperSwallowsErrors(t *testing.T) {
	conn := newMockConn()
	conn.publishErr = errors.New("broker gone")

	// Must not panic or block.
	NewCueBeeper(conn, "panel/buzzer", nil).Beep(220, 110*time.Millisecond)

	var _ audio.Beeper = (*CueBeeper)(nil)
	var _ Conn = (*Client)(nil)
}

func TestTimeoutErrors(t *testing.T) {
	if got := (&ConnectTimeoutError{URL: "tcp://b:1883"}).Error(); got != "mqtt connect timeout: tcp://b:1883" {
		t.Errorf("unexpected message %q", got)
	}
	if got := (&SubscribeTimeoutError{Topic: "x"}).Error(); got != "mqtt subscribe timeout: x" {
		t.Errorf("unexpected message %q", got)
	}
}
