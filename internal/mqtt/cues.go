package mqtt

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/AaronLay10/verifypanel/internal/audio"
)

// CueBeeper publishes audio cues for a buzzer listening on topic. Failures
// are logged at debug level and otherwise ignored.
type CueBeeper struct {
	conn   Conn
	topic  string
	logger *zap.Logger
}

func NewCueBeeper(conn Conn, topic string, logger *zap.Logger) *CueBeeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CueBeeper{conn: conn, topic: topic, logger: logger}
}

func (b *CueBeeper) Beep(freqHz float64, d time.Duration) {
	payload, err := json.Marshal(audio.NewCue(freqHz, d))
	if err != nil {
		return
	}
	if err := b.conn.Publish(b.topic, payload); err != nil {
		b.logger.Debug("audio cue not published", zap.String("topic", b.topic), zap.Error(err))
	}
}
