package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AaronLay10/verifypanel/internal/sequencer"
)

const (
	SeverityWarning = "warning"

	AlertNeedsReview = "needs_review"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	PanelName string         `json:"panel_name"`
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Alerter posts a webhook when a run ends needing manual review. It is a
// sequencer.Recorder; delivery is best-effort and never delays the run.
type Alerter struct {
	url       string
	panelName string
	client    *http.Client
	logger    *zap.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewAlerter(webhookURL, panelName string, timeout time.Duration, logger *zap.Logger) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if panelName == "" {
		panelName = "unknown"
	}
	return &Alerter{
		url:       webhookURL,
		panelName: panelName,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		now:       time.Now,
	}
}

func (a *Alerter) Enabled() bool {
	return a.url != ""
}

func (a *Alerter) RunStarted(string)                                      {}
func (a *Alerter) StageCompleted(string, sequencer.Stage, sequencer.Kind) {}

func (a *Alerter) RunFinished(res sequencer.Result) {
	if res.Outcome != sequencer.OutcomeNeedsReview {
		return
	}

	indicators := make(map[string]string, len(res.Indicators))
	for k, v := range res.Indicators {
		indicators[string(k)] = string(v)
	}
	payload := AlertPayload{
		PanelName: a.panelName,
		Event:     AlertNeedsReview,
		Timestamp: a.now().UTC().Format(time.RFC3339),
		Severity:  SeverityWarning,
		Message:   "verification needs manual check",
		Details: map[string]any{
			"run_id":      res.RunID,
			"indicators":  indicators,
			"duration_ms": res.Duration.Milliseconds(),
		},
	}

	if !a.Enabled() {
		a.logger.Info("alert", zap.String("event", payload.Event), zap.String("run_id", res.RunID))
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.send(context.Background(), payload); err != nil {
			a.logger.Warn("alert webhook failed", zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight deliveries have finished.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) send(ctx context.Context, payload AlertPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
