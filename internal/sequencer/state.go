package sequencer

import "time"

// Kind is the tri-state style of an indicator, the status tag and the
// aggregate modules tag.
type Kind string

const (
	KindIdle    Kind = "idle"
	KindPending Kind = "pending"
	KindOK      Kind = "ok"
	KindWarn    Kind = "warn"
	KindBad     Kind = "bad"
)

// Style maps a kind to the display token used by renderers.
func (k Kind) Style() string {
	switch k {
	case KindOK:
		return "ok"
	case KindWarn:
		return "warn"
	case KindBad:
		return "bad"
	default:
		return "muted"
	}
}

// ModulesLabel is the text of the aggregate modules tag.
func ModulesLabel(k Kind) string {
	switch k {
	case KindOK:
		return "OK"
	case KindWarn:
		return "WARN"
	case KindIdle, "":
		return "—"
	default:
		return "FAIL"
	}
}

// Outcome is the terminal classification of a run.
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeVerified    Outcome = "verified"
	OutcomeNeedsReview Outcome = "needs_review"
)

const (
	StatusIdle        = "Idle"
	StatusInProgress  = "In progress…"
	StatusConfirmed   = "Confirmed"
	StatusNeedsReview = "Needs manual check"
)

type Indicator struct {
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

type Status struct {
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	RunID      string                     `json:"run_id,omitempty"`
	Running    bool                       `json:"running"`
	Progress   int                        `json:"progress"`
	Indicators map[IndicatorKey]Indicator `json:"indicators"`
	Status     Status                     `json:"status"`
	Modules    Kind                       `json:"modules"`
	Outcome    Outcome                    `json:"outcome,omitempty"`
	Runs       int                        `json:"runs"`
	StartedAt  time.Time                  `json:"started_at,omitzero"`
	FinishedAt time.Time                  `json:"finished_at,omitzero"`
}

func idleSnapshot() Snapshot {
	s := Snapshot{
		Indicators: make(map[IndicatorKey]Indicator, len(IndicatorKeys)),
		Status:     Status{Label: StatusIdle, Kind: KindIdle},
		Modules:    KindIdle,
	}
	for _, k := range IndicatorKeys {
		s.Indicators[k] = Indicator{Label: string(KindIdle), Kind: KindIdle}
	}
	return s
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Indicators = make(map[IndicatorKey]Indicator, len(s.Indicators))
	for k, v := range s.Indicators {
		out.Indicators[k] = v
	}
	return out
}

// Result summarizes a finished run.
type Result struct {
	RunID      string
	Outcome    Outcome
	Indicators map[IndicatorKey]Kind
	Duration   time.Duration
}
