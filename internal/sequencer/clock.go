package sequencer

import (
	"math/rand/v2"
	"time"
)

// Clock provides the two suspend points of a run. Sleep yields the calling
// goroutine; the rest of the service keeps serving requests meanwhile.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Rand supplies the outcome draws.
type Rand interface {
	Float64() float64
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Timing controls the progress ramp.
type Timing struct {
	Step        int
	StepDelay   time.Duration
	SettleDelay time.Duration
}

// DefaultTiming is a step of 2 every 40ms and a 120ms settle per stage.
func DefaultTiming() Timing {
	return Timing{
		Step:        2,
		StepDelay:   40 * time.Millisecond,
		SettleDelay: 120 * time.Millisecond,
	}
}
