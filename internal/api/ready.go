package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	CheckOK          = "ok"
	CheckNotReady    = "not_ready"
	CheckUnavailable = "unavailable"
)

// Probe reports whether a dependency is usable.
type Probe func(ctx context.Context) error

type CheckResult struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckResult `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
	Timestamp   string                 `json:"ts"`
}

type readinessCheck struct {
	optional bool
	probe    Probe
}

// Readiness aggregates dependency probes for /ready. A failing optional
// probe is reported as unavailable but does not make the panel unready.
type Readiness struct {
	mu     sync.RWMutex
	checks map[string]readinessCheck
}

func NewReadiness() *Readiness {
	return &Readiness{checks: make(map[string]readinessCheck)}
}

func (r *Readiness) Add(name string, optional bool, probe Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = readinessCheck{optional: optional, probe: probe}
}

func (r *Readiness) Evaluate(ctx context.Context) ReadinessResponse {
	r.mu.RLock()
	checks := make(map[string]readinessCheck, len(r.checks))
	for k, v := range r.checks {
		checks[k] = v
	}
	r.mu.RUnlock()

	resp := ReadinessResponse{
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	var failing []string
	for name, c := range checks {
		res := CheckResult{Status: CheckOK, Optional: c.optional}
		if err := c.probe(ctx); err != nil {
			res.Error = err.Error()
			if c.optional {
				res.Status = CheckUnavailable
			} else {
				res.Status = CheckNotReady
				resp.Ready = false
				failing = append(failing, name)
			}
		}
		resp.Checks[name] = res
	}

	if len(failing) > 0 {
		sort.Strings(failing)
		resp.NotReadyMsg = "not ready: " + strings.Join(failing, ", ")
	}
	return resp
}
