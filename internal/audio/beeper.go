// Package audio carries the panel's short confirmation tones to wherever they
// can be played. Every outlet is best-effort: a missing speaker, a closed
// page or an unreachable broker is never an error for the caller.
package audio

import (
	"time"

	"go.uber.org/zap"

	"github.com/AaronLay10/verifypanel/internal/events"
)

// Beeper plays a tone of freqHz for d.
type Beeper interface {
	Beep(freqHz float64, d time.Duration)
}

// Cue is the wire form of a tone.
type Cue struct {
	FreqHz     float64 `json:"freq_hz"`
	DurationMS int64   `json:"duration_ms"`
}

func NewCue(freqHz float64, d time.Duration) Cue {
	return Cue{FreqHz: freqHz, DurationMS: d.Milliseconds()}
}

// Nop discards every cue.
type Nop struct{}

func (Nop) Beep(float64, time.Duration) {}

// Multi plays a cue on every beeper in order.
type Multi []Beeper

func (m Multi) Beep(freqHz float64, d time.Duration) {
	for _, b := range m {
		if b != nil {
			b.Beep(freqHz, d)
		}
	}
}

// EventBeeper publishes cues on the event bus; connected pages play them
// through WebAudio.
type EventBeeper struct {
	bus    *events.Bus
	logger *zap.Logger
}

func NewEventBeeper(bus *events.Bus, logger *zap.Logger) *EventBeeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBeeper{bus: bus, logger: logger}
}

func (b *EventBeeper) Beep(freqHz float64, d time.Duration) {
	if b == nil || b.bus == nil {
		return
	}
	cue := NewCue(freqHz, d)
	if _, err := b.bus.Emit("info", "audio.cue", "", map[string]any{
		"freq_hz":     cue.FreqHz,
		"duration_ms": cue.DurationMS,
	}); err != nil {
		b.logger.Debug("audio cue dropped", zap.Error(err))
	}
}
