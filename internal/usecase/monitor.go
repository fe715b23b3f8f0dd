package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"TradeWatch/internal/domain/models"
	"TradeWatch/internal/domain/repository"
	"TradeWatch/internal/service/cache"
	xlogger "TradeWatch/pkg/logger"
)

const monitorErrorBackoff = time.Minute

const alertStatusNew = "NEW"

// MonitorConfig tunes the continuous detection sweep.
type MonitorConfig struct {
	Interval      time.Duration
	LookbackHours int
	MinConfidence float64
	DedupeTTL     time.Duration
}

// Monitor sweeps the graph on a fixed interval and publishes alerts for new
// high-confidence findings. Findings are deduplicated by activity id, so an
// unchanged pattern alerts once per dedupe window rather than every sweep.
type Monitor struct {
	detector  *Detector
	publisher repository.AlertPublisher
	dedupe    cache.BytesCache
	logger    *xlogger.Logger
	cfg       MonitorConfig
}

func NewMonitor(detector *Detector, publisher repository.AlertPublisher, dedupe cache.BytesCache, logger *xlogger.Logger, cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.7
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 24 * time.Hour
	}
	return &Monitor{
		detector:  detector,
		publisher: publisher,
		dedupe:    dedupe,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run sweeps until the context is cancelled. A failed sweep backs off for a
// minute instead of waiting the full interval.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("monitor started",
		xlogger.Duration("interval", m.cfg.Interval),
		xlogger.Float64("min_confidence", m.cfg.MinConfidence))

	for {
		delay := m.cfg.Interval
		if err := m.sweep(ctx); err != nil {
			m.logger.Error("monitor sweep failed", xlogger.Error(err))
			delay = monitorErrorBackoff
		}

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-time.After(delay):
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) error {
	findings, err := m.detector.DetectAll(ctx, m.cfg.LookbackHours)
	if err != nil {
		return err
	}

	published := 0
	for _, a := range findings {
		if a.ConfidenceScore < m.cfg.MinConfidence {
			continue
		}
		if m.seen(a.ActivityID) {
			continue
		}

		alert := &models.Alert{
			AlertID:   uuid.NewString(),
			Activity:  a,
			Status:    alertStatusNew,
			CreatedAt: time.Now().UTC(),
		}
		if err := m.publisher.Publish(ctx, alert); err != nil {
			m.logger.Error("alert publish failed",
				xlogger.String("activity_id", a.ActivityID),
				xlogger.Error(err))
			continue
		}
		m.mark(a.ActivityID)
		published++
	}

	if published > 0 {
		m.logger.Info("alerts published", xlogger.Int("count", published))
	}
	return nil
}

func (m *Monitor) seen(activityID string) bool {
	_, ok, err := m.dedupe.GetBytes(dedupeKey(activityID))
	if err != nil {
		m.logger.Warn("dedupe lookup failed", xlogger.Error(err))
		return false
	}
	return ok
}

func (m *Monitor) mark(activityID string) {
	if err := m.dedupe.SetBytes(dedupeKey(activityID), []byte{1}, m.cfg.DedupeTTL); err != nil {
		m.logger.Warn("dedupe mark failed", xlogger.Error(err))
	}
}

func dedupeKey(activityID string) string {
	return "alert:" + activityID
}
