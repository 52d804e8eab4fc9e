package api

import (
	"go.uber.org/zap"

	"github.com/AaronLay10/verifypanel/internal/events"
	"github.com/AaronLay10/verifypanel/internal/prefs"
	"github.com/AaronLay10/verifypanel/internal/sequencer"
)

// Bridge republishes controller, log pane and theme changes on the event
// bus so connected pages can follow them.
type Bridge struct {
	bus    *events.Bus
	logger *zap.Logger
}

func NewBridge(bus *events.Bus, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{bus: bus, logger: logger}
}

func (b *Bridge) emit(level, name string, fields map[string]any) {
	if _, err := b.bus.Emit(level, name, "", fields); err != nil {
		b.logger.Warn("event rejected", zap.String("event", name), zap.Error(err))
	}
}

// Snapshot is a sequencer.Observer.
func (b *Bridge) Snapshot(s sequencer.Snapshot) {
	b.emit("info", "panel.snapshot", map[string]any{"snapshot": s})
}

func (b *Bridge) LineAppended(line string, count int) {
	b.emit("info", "log.line", map[string]any{"line": line, "count": count})
}

func (b *Bridge) Cleared() {
	b.emit("info", "log.reset", nil)
}

func (b *Bridge) ThemeChanged(t prefs.Theme) {
	b.emit("info", "theme.changed", map[string]any{"theme": string(t)})
}

func (b *Bridge) RunStarted(runID string) {
	b.emit("info", "check.started", map[string]any{"run_id": runID})
}

func (b *Bridge) StageCompleted(runID string, st sequencer.Stage, kind sequencer.Kind) {
	b.emit("info", "stage.completed", map[string]any{
		"run_id": runID,
		"stage":  st.Name,
		"key":    string(st.Key),
		"kind":   string(kind),
	})
}

func (b *Bridge) RunFinished(res sequencer.Result) {
	level := "info"
	if res.Outcome != sequencer.OutcomeVerified {
		level = "warn"
	}
	b.emit(level, "check.completed", map[string]any{
		"run_id":      res.RunID,
		"outcome":     string(res.Outcome),
		"duration_ms": res.Duration.Milliseconds(),
	})
}
