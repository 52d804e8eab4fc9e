package sequencer

import (
	"errors"
	"fmt"
)

// IndicatorKey identifies one module indicator on the panel.
type IndicatorKey string

const (
	Network   IndicatorKey = "network"
	Storage   IndicatorKey = "storage"
	Integrity IndicatorKey = "integrity"
	UI        IndicatorKey = "ui"
)

// IndicatorKeys lists every indicator in display order.
var IndicatorKeys = []IndicatorKey{Network, Storage, Integrity, UI}

func (k IndicatorKey) Valid() bool {
	switch k {
	case Network, Storage, Integrity, UI:
		return true
	}
	return false
}

// Stage is one phase of a run. Progress is ramped to Target before the stage
// resolves. OKChance is the probability that the stage resolves ok rather
// than warn; 1 means it always resolves ok and no random draw is made.
type Stage struct {
	Name     string       `json:"name"`
	Target   int          `json:"target"`
	Key      IndicatorKey `json:"key"`
	OKChance float64      `json:"ok_chance"`
}

const (
	DefaultIntegrityOKChance = 0.92
	DefaultVerifiedChance    = 0.93
)

// DefaultStages returns the fixed four-stage check sequence.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "Network handshake", Target: 22, Key: Network, OKChance: 1},
		{Name: "Storage mount", Target: 46, Key: Storage, OKChance: 1},
		{Name: "Integrity scan", Target: 73, Key: Integrity, OKChance: DefaultIntegrityOKChance},
		{Name: "UI layer sync", Target: 100, Key: UI, OKChance: 1},
	}
}

var ErrNoStages = errors.New("no stages configured")

// ValidateStages checks that there is one stage per indicator in display
// order, and that targets are non-decreasing, within [0,100] and end at
// exactly 100. Names, targets and chances may be customised; the indicator
// sequence may not, since a run marks every indicator pending up front.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return ErrNoStages
	}
	if len(stages) != len(IndicatorKeys) {
		return fmt.Errorf("got %d stages, want %d (one per indicator)", len(stages), len(IndicatorKeys))
	}

	seen := make(map[IndicatorKey]bool, len(stages))
	prev := 0
	for i, st := range stages {
		if st.Name == "" {
			return fmt.Errorf("stage %d: name required", i)
		}
		if !st.Key.Valid() {
			return fmt.Errorf("stage %q: unknown indicator %q", st.Name, st.Key)
		}
		if seen[st.Key] {
			return fmt.Errorf("stage %q: indicator %q already used", st.Name, st.Key)
		}
		seen[st.Key] = true
		if st.Key != IndicatorKeys[i] {
			return fmt.Errorf("stage %q: indicator %q out of order, want %q", st.Name, st.Key, IndicatorKeys[i])
		}

		if st.Target < 0 || st.Target > 100 {
			return fmt.Errorf("stage %q: target %d outside [0,100]", st.Name, st.Target)
		}
		if st.Target < prev {
			return fmt.Errorf("stage %q: target %d below previous target %d", st.Name, st.Target, prev)
		}
		prev = st.Target

		if st.OKChance < 0 || st.OKChance > 1 {
			return fmt.Errorf("stage %q: ok_chance %v outside [0,1]", st.Name, st.OKChance)
		}
	}
	if prev != 100 {
		return fmt.Errorf("last stage target is %d, want 100", prev)
	}
	return nil
}
