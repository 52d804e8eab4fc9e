package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AaronLay10/verifypanel/internal/audio"
	"github.com/AaronLay10/verifypanel/internal/events"
	"github.com/AaronLay10/verifypanel/internal/logpane"
	"github.com/AaronLay10/verifypanel/internal/panel"
	"github.com/AaronLay10/verifypanel/internal/prefs"
	"github.com/AaronLay10/verifypanel/internal/sequencer"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// virtualClock advances on Sleep without blocking.
type virtualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

type testEnv struct {
	srv     *Server
	ctrl    *sequencer.Controller
	bus     *events.Bus
	pane    *logpane.Pane
	store   *prefs.MemoryStore
	themes  *prefs.Themes
	panel   *panel.Panel
	metrics *Metrics
	ready   *Readiness
}

// newTestEnv wires a full panel with instant sleeps. draw is returned by
// every random draw: below 0.92 verifies, 0.99 needs review.
func newTestEnv(t *testing.T, draw float64) *testEnv {
	t.Helper()

	bus := events.NewBus(512)
	bridge := NewBridge(bus, nil)
	pane := logpane.New(
		logpane.WithPublisher(bridge),
		logpane.WithClock(func() time.Time { return testNow }),
	)
	beeper := audio.NewEventBeeper(bus, nil)
	metrics := NewMetrics("test-panel", bus, testNow)

	ctrl := sequencer.New(
		sequencer.WithClock(&virtualClock{now: testNow}),
		sequencer.WithRand(fixedRand(draw)),
		sequencer.WithLog(pane),
		sequencer.WithBeeper(beeper),
		sequencer.WithRecorder(bridge),
		sequencer.WithRecorder(metrics),
		sequencer.WithObserver(bridge.Snapshot),
	)

	store := prefs.NewMemoryStore()
	themes := prefs.NewThemes(store)
	themes.OnChange(bridge.ThemeChanged)

	p := panel.New(pane, beeper, panel.WithBus(bus))
	ready := NewReadiness()

	srv := NewServer(Deps{
		Checker:   ctrl,
		Bus:       bus,
		Pane:      pane,
		Themes:    themes,
		Panel:     p,
		Session:   panel.NewSession(uuid.MustParse("0badc0de-0000-4000-8000-000000000000"), testNow, "test"),
		PanelName: "Test panel",
		Metrics:   metrics,
		Readiness: ready,
	})

	t.Cleanup(func() {
		ctrl.Wait()
		bus.CloseAll()
	})

	return &testEnv{
		srv:     srv,
		ctrl:    ctrl,
		bus:     bus,
		pane:    pane,
		store:   store,
		themes:  themes,
		panel:   p,
		metrics: metrics,
		ready:   ready,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

// waitFor polls a condition until it returns true or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("timeout waiting for: %s", msg)
}

func eventNames(evts []events.Event) []string {
	names := make([]string, 0, len(evts))
	for _, e := range evts {
		names = append(names, e.Name)
	}
	return names
}
