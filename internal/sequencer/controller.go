// Package sequencer runs the staged verification check: four stages in fixed
// order, an animated progress ramp, and a weighted random outcome.
package sequencer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSink receives the human-readable log lines of a run.
type LogSink interface {
	Append(line string)
}

// Beeper emits a short tone. Implementations are best-effort.
type Beeper interface {
	Beep(freqHz float64, d time.Duration)
}

// Observer is called with a fresh snapshot after every state change.
type Observer func(Snapshot)

// Recorder receives run lifecycle callbacks, e.g. for metrics.
type Recorder interface {
	RunStarted(runID string)
	StageCompleted(runID string, stage Stage, kind Kind)
	RunFinished(res Result)
}

// Cue frequencies and durations.
const (
	CueStartHz       = 740
	CueVerifiedHz    = 988
	CueVerifiedTopHz = 1318
	CueReviewHz      = 220
)

var (
	cueStart       = 70 * time.Millisecond
	cueVerified    = 90 * time.Millisecond
	cueVerifiedTop = 70 * time.Millisecond
	cueReview      = 110 * time.Millisecond
)

// Controller owns the state of the panel's verification check. At most one
// run executes at a time; Start and Run are no-ops while a run is active.
type Controller struct {
	stages         []Stage
	timing         Timing
	verifiedChance float64

	clock    Clock
	rand     Rand
	log      LogSink
	beeper   Beeper
	newID    func() string
	logger   *zap.Logger
	recorder []Recorder

	running atomic.Bool
	wg      sync.WaitGroup

	// lifeMu orders wg.Add against Shutdown's wg.Wait.
	lifeMu sync.Mutex
	closed bool

	mu        sync.RWMutex
	state     Snapshot
	observers []Observer
}

type Option func(*Controller)

func WithStages(stages []Stage) Option {
	return func(c *Controller) { c.stages = append([]Stage(nil), stages...) }
}

func WithTiming(t Timing) Option {
	return func(c *Controller) {
		if t.Step <= 0 {
			t.Step = DefaultTiming().Step
		}
		c.timing = t
	}
}

// WithVerifiedChance sets the probability of the final verified outcome.
func WithVerifiedChance(p float64) Option {
	return func(c *Controller) { c.verifiedChance = p }
}

func WithClock(clk Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

func WithRand(r Rand) Option {
	return func(c *Controller) { c.rand = r }
}

func WithLog(sink LogSink) Option {
	return func(c *Controller) { c.log = sink }
}

func WithBeeper(b Beeper) Option {
	return func(c *Controller) { c.beeper = b }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = append(c.recorder, r) }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithIDs overrides run ID generation.
func WithIDs(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

type nopSink struct{}

func (nopSink) Append(string)               {}
func (nopSink) Beep(float64, time.Duration) {}

// New creates an idle controller. Stages are used as given; callers loading
// them from configuration should run ValidateStages first.
func New(opts ...Option) *Controller {
	c := &Controller{
		stages:         DefaultStages(),
		timing:         DefaultTiming(),
		verifiedChance: DefaultVerifiedChance,
		clock:          RealClock(),
		rand:           globalRand{},
		log:            nopSink{},
		beeper:         nopSink{},
		newID:          uuid.NewString,
		logger:         zap.NewNop(),
		state:          idleSnapshot(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers an observer for subsequent state changes.
func (c *Controller) Subscribe(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

// Stages returns a copy of the configured stage list.
func (c *Controller) Stages() []Stage {
	return append([]Stage(nil), c.stages...)
}

// Running reports whether a run is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Start launches a run in the background. It returns false, without touching
// any state, if a run is already active.
func (c *Controller) Start() bool {
	if !c.acquire() {
		return false
	}
	go func() {
		defer c.wg.Done()
		c.run()
	}()
	return true
}

// Run executes a run on the calling goroutine. ok is false if another run
// was active.
func (c *Controller) Run() (res Result, ok bool) {
	if !c.acquire() {
		return Result{}, false
	}
	defer c.wg.Done()
	return c.run(), true
}

// Wait blocks until the active run, if any, has finished. Callers that may
// race with new triggers should use Shutdown instead.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Shutdown makes every later Start and Run a no-op, then waits for the
// active run, if any, to finish.
func (c *Controller) Shutdown() {
	c.lifeMu.Lock()
	c.closed = true
	c.lifeMu.Unlock()
	c.wg.Wait()
}

// acquire takes the run guard and registers the run with wg.
func (c *Controller) acquire() bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed {
		c.logger.Debug("controller shut down, trigger ignored")
		return false
	}
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Debug("check already running, trigger ignored")
		return false
	}
	c.wg.Add(1)
	return true
}

func (c *Controller) run() Result {
	// The guard is released on every path; no step below can fail.
	defer c.release()

	runID := c.newID()
	started := c.clock.Now()
	logger := c.logger.With(zap.String("run_id", runID))
	logger.Info("check started")

	for _, r := range c.recorder {
		r.RunStarted(runID)
	}

	c.beeper.Beep(CueStartHz, cueStart)
	c.log.Append("INIT CHECK")
	c.update(func(s *Snapshot) {
		s.RunID = runID
		s.Running = true
		s.StartedAt = started
		s.FinishedAt = time.Time{}
		s.Outcome = OutcomeNone
		s.Status = Status{Label: StatusInProgress, Kind: KindWarn}
		s.Modules = KindWarn
		for _, k := range IndicatorKeys {
			s.Indicators[k] = Indicator{Label: string(KindPending), Kind: KindPending}
		}
		s.Progress = 0
	})

	kinds := make(map[IndicatorKey]Kind, len(c.stages))
	for _, st := range c.stages {
		kind := c.step(st)
		kinds[st.Key] = kind
		for _, r := range c.recorder {
			r.StageCompleted(runID, st, kind)
		}
		logger.Debug("stage completed", zap.String("stage", st.Name), zap.String("kind", string(kind)))
	}

	// Independent of the stage results.
	outcome := OutcomeNeedsReview
	if c.rand.Float64() < c.verifiedChance {
		outcome = OutcomeVerified
	}

	finished := c.clock.Now()
	switch outcome {
	case OutcomeVerified:
		c.update(func(s *Snapshot) {
			s.Status = Status{Label: StatusConfirmed, Kind: KindOK}
			s.Modules = KindOK
			s.Outcome = outcome
			s.FinishedAt = finished
		})
		c.log.Append("RESULT: VERIFIED")
		c.beeper.Beep(CueVerifiedHz, cueVerified)
		c.beeper.Beep(CueVerifiedTopHz, cueVerifiedTop)
	default:
		c.update(func(s *Snapshot) {
			s.Status = Status{Label: StatusNeedsReview, Kind: KindWarn}
			s.Modules = KindWarn
			s.Outcome = outcome
			s.FinishedAt = finished
		})
		c.log.Append("RESULT: NEED MANUAL REVIEW")
		c.beeper.Beep(CueReviewHz, cueReview)
	}

	res := Result{
		RunID:      runID,
		Outcome:    outcome,
		Indicators: kinds,
		Duration:   finished.Sub(started),
	}
	for _, r := range c.recorder {
		r.RunFinished(res)
	}
	logger.Info("check finished", zap.String("outcome", string(outcome)), zap.Duration("duration", res.Duration))
	return res
}

// step ramps progress to the stage target, settles, then resolves the
// stage's indicator.
func (c *Controller) step(st Stage) Kind {
	c.log.Append(st.Name + "…")

	for {
		cur := c.progress()
		if cur >= st.Target {
			break
		}
		next := min(cur+c.timing.Step, st.Target)
		c.update(func(s *Snapshot) { s.Progress = next })
		c.clock.Sleep(c.timing.StepDelay)
	}
	c.clock.Sleep(c.timing.SettleDelay)

	kind := KindOK
	if st.OKChance < 1 && !(c.rand.Float64() < st.OKChance) {
		kind = KindWarn
	}
	c.update(func(s *Snapshot) {
		s.Indicators[st.Key] = Indicator{Label: string(kind), Kind: kind}
	})
	c.log.Append(st.Name + ": OK")
	return kind
}

func (c *Controller) progress() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Progress
}

func (c *Controller) release() {
	c.update(func(s *Snapshot) {
		s.Running = false
		s.Runs++
	})
	c.running.Store(false)
}

// update applies fn under the state lock and notifies observers outside it.
func (c *Controller) update(fn func(*Snapshot)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.state.clone()
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}
