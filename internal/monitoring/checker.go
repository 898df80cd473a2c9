package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker periodically collects a snapshot, publishes it as gauges and
// sends alerts. An alert whose message matches the one last sent for its
// type is not sent again until it changes or clears.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
	log       *zap.Logger

	mu   sync.Mutex
	sent map[AlertType]string
}

// NewChecker creates a background checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		log:       zap.L().With(zap.String("component", "monitoring.checker")),
		sent:      make(map[AlertType]string),
	}
}

// Run checks once immediately and then on every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	every := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if every <= 0 {
		every = defaultCheckInterval
	}
	c.log.Info("checker started", zap.Duration("interval", every))

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		c.Check(ctx)
		select {
		case <-ctx.Done():
			c.log.Info("checker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check runs one cycle and returns the number of alerts the snapshot
// triggered, including repeats that were not re-sent.
func (c *Checker) Check(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		c.log.Error("collect snapshot", zap.Error(err))
		return 0
	}
	Publish(snap)

	alerts := c.alerter.Evaluate(snap)
	fresh := c.unsent(alerts)
	if len(fresh) > 0 {
		c.alerter.SendAlerts(ctx, fresh)
	}
	c.log.Debug("check complete",
		zap.Int("alerts", len(alerts)),
		zap.Int("new", len(fresh)),
		zap.Int("stale_areas", len(snap.StaleAreas)),
	)
	return len(alerts)
}

// unsent returns the alerts that differ from what was last sent and
// forgets types that are no longer firing.
func (c *Checker) unsent(alerts []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	firing := make(map[AlertType]bool, len(alerts))
	var out []Alert
	for _, al := range alerts {
		firing[al.Type] = true
		if c.sent[al.Type] == al.Message {
			continue
		}
		c.sent[al.Type] = al.Message
		out = append(out, al)
	}
	for t := range c.sent {
		if !firing[t] {
			delete(c.sent, t)
		}
	}
	return out
}
