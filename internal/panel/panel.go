// Package panel holds the cosmetic page state around the check: the session
// label, the profile and mode picked in the hidden settings drawer, and the
// privacy blur notice.
package panel

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AaronLay10/verifypanel/internal/events"
)

var (
	Names = []string{"User", "Operator", "Guest", "Ivan", "Pasha", "Admin"}
	Modes = []string{"Standard", "Beta", "Internal", "Maintenance"}
)

var ErrUnknownMode = errors.New("unknown mode")

// Cue frequencies for drawer interactions.
const (
	CueDrawerHz    = 880
	CueApplyHz     = 1046
	CueRandomizeHz = 660
)

type LogSink interface {
	Append(line string)
}

type Beeper interface {
	Beep(freqHz float64, d time.Duration)
}

// Session identifies one service lifetime on the page header.
type Session struct {
	ID      string `json:"session_id"`
	Build   string `json:"build"`
	Version string `json:"version"`
}

// NewSession labels a session "S-" plus 8 uppercase hex digits taken from id.
func NewSession(id uuid.UUID, built time.Time, version string) Session {
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return Session{
		ID:      "S-" + hex[:8],
		Build:   "build " + built.Format("2006-01-02"),
		Version: version,
	}
}

type Profile struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

func DefaultProfile() Profile {
	return Profile{Name: Names[0], Mode: Modes[0]}
}

// Panel owns the drawer state.
type Panel struct {
	log    LogSink
	beeper Beeper
	bus    *events.Bus
	pick   func(n int) int
	logger *zap.Logger

	mu      sync.RWMutex
	profile Profile
}

type Option func(*Panel)

// WithPicker replaces the random index source used by Randomize.
func WithPicker(pick func(n int) int) Option {
	return func(p *Panel) { p.pick = pick }
}

func WithBus(bus *events.Bus) Option {
	return func(p *Panel) { p.bus = bus }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Panel) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(log LogSink, beeper Beeper, opts ...Option) *Panel {
	p := &Panel{
		log:     log,
		beeper:  beeper,
		pick:    rand.IntN,
		logger:  zap.NewNop(),
		profile: DefaultProfile(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Panel) Profile() Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profile
}

// OpenDrawer acknowledges the long press that reveals the drawer.
func (p *Panel) OpenDrawer() {
	p.beeper.Beep(CueDrawerHz, 60*time.Millisecond)
	p.emit("drawer.opened", nil)
}

// Apply sets the mode and, if name is not blank, the profile name.
func (p *Panel) Apply(name, mode string) (Profile, error) {
	name = strings.TrimSpace(name)
	if !slices.Contains(Modes, mode) {
		return p.Profile(), fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	p.mu.Lock()
	if name != "" {
		p.profile.Name = name
	}
	p.profile.Mode = mode
	prof := p.profile
	p.mu.Unlock()

	shown := name
	if shown == "" {
		shown = "(unchanged)"
	}
	p.log.Append(fmt.Sprintf("SECRET APPLY: profile=%s mode=%s", shown, mode))
	p.beeper.Beep(CueApplyHz, 70*time.Millisecond)
	p.emit("profile.applied", map[string]any{"name": prof.Name, "mode": prof.Mode})
	return prof, nil
}

// Randomize picks a name and mode from the fixed lists.
func (p *Panel) Randomize() Profile {
	prof := Profile{
		Name: Names[p.pick(len(Names))],
		Mode: Modes[p.pick(len(Modes))],
	}

	p.mu.Lock()
	p.profile = prof
	p.mu.Unlock()

	p.log.Append("SECRET: randomize")
	p.beeper.Beep(CueRandomizeHz, 70*time.Millisecond)
	p.emit("profile.randomized", map[string]any{"name": prof.Name, "mode": prof.Mode})
	return prof
}

// Hidden records that the installed app was switched away from and blurred.
func (p *Panel) Hidden() {
	p.log.Append("APP HIDDEN (privacy blur)")
	p.emit("panel.hidden", nil)
}

func (p *Panel) emit(name string, fields map[string]any) {
	if p.bus == nil {
		return
	}
	if _, err := p.bus.Emit("info", name, "", fields); err != nil {
		p.logger.Warn("event rejected", zap.String("event", name), zap.Error(err))
	}
}
