package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/config"
	"github.com/sells-group/crime-cli/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSyncFailureRate AlertType = "sync_failure_rate"
	AlertSyncFailure     AlertType = "sync_failure"
	AlertStaleAreas      AlertType = "stale_areas"
)

// minFinishedForRate is the number of finished syncs needed before the
// failure rate is judged.
const minFinishedForRate = 5

// Alert is one health problem found in a snapshot.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// webhookPayload is the body posted for each batch of alerts.
type webhookPayload struct {
	Source string  `json:"source"`
	Alerts []Alert `json:"alerts"`
}

// rule inspects a snapshot and returns an alert, or nil when healthy.
type rule func(cfg config.MonitoringConfig, snap *Snapshot) *Alert

var rules = []rule{failedSyncs, staleAreasRule}

// failedSyncs reports either a failure rate over threshold or, when too few
// syncs finished to judge a rate, any failure at all.
func failedSyncs(cfg config.MonitoringConfig, snap *Snapshot) *Alert {
	finished := snap.SyncComplete + snap.SyncFailed
	if finished >= minFinishedForRate && snap.SyncFailRate > cfg.FailureRateThreshold {
		return &Alert{
			Type:     AlertSyncFailureRate,
			Severity: "high",
			Message: fmt.Sprintf("%d of %d area syncs failed in the last %dh (%.0f%%, threshold %.0f%%)",
				snap.SyncFailed, finished, snap.LookbackHours,
				snap.SyncFailRate*100, cfg.FailureRateThreshold*100),
			Details: map[string]any{
				"failure_rate": snap.SyncFailRate,
				"threshold":    cfg.FailureRateThreshold,
				"failed":       snap.SyncFailed,
				"finished":     finished,
			},
		}
	}
	if snap.SyncFailed == 0 {
		return nil
	}
	return &Alert{
		Type:     AlertSyncFailure,
		Severity: "medium",
		Message:  fmt.Sprintf("%d area sync(s) failed in the last %dh", snap.SyncFailed, snap.LookbackHours),
		Details: map[string]any{
			"failed":    snap.SyncFailed,
			"sync_runs": snap.SyncTotal,
		},
	}
}

func staleAreasRule(cfg config.MonitoringConfig, snap *Snapshot) *Alert {
	if len(snap.StaleAreas) == 0 {
		return nil
	}
	return &Alert{
		Type:     AlertStaleAreas,
		Severity: "low",
		Message: fmt.Sprintf("cache not refreshed in %d days for %s",
			cfg.StaleAfterDays, strings.Join(snap.StaleAreas, ", ")),
		Details: map[string]any{
			"areas":            snap.StaleAreas,
			"stale_after_days": cfg.StaleAfterDays,
		},
	}
}

// Alerter turns snapshots into alerts and posts them to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewAlerter creates an Alerter. Without a webhook URL alerts are only
// evaluated.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 2
	retry.OnRetry = resilience.RetryLogger("monitoring.alerter", "webhook")
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  retry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate applies every rule to snap in a fixed order.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := a.now()
	for _, r := range rules {
		if al := r(a.cfg, snap); al != nil {
			al.Timestamp = now
			alerts = append(alerts, *al)
		}
	}
	return alerts
}

// SendAlerts posts alerts to the webhook as one batch and returns how many
// were delivered.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	log := zap.L().With(zap.String("component", "monitoring.alerter"))
	body, err := json.Marshal(webhookPayload{Source: "crime-cli", Alerts: alerts})
	if err != nil {
		log.Error("failed to encode alerts", zap.Error(err))
		return 0
	}

	err = resilience.Do(ctx, a.retry, func(ctx context.Context) error {
		return a.post(ctx, body)
	})
	if err != nil {
		log.Error("failed to send alerts", zap.Int("alerts", len(alerts)), zap.Error(err))
		return 0
	}
	log.Info("alerts sent", zap.Int("alerts", len(alerts)))
	return len(alerts)
}

func (a *Alerter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "monitoring: webhook request"), 0)
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}
