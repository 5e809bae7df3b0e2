// Package monitor runs the disclosure pipeline continuously, polling KIND
// on a fixed interval during active market hours and suppressing filings
// already recorded in the sent ledger.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kindwatch/internal/app"
	"github.com/ternarybob/kindwatch/internal/common"
)

// Monitor drives scheduled pipeline cycles. At most one monitor process
// per ledger path is supported; concurrent monitors would race on the
// ledger file.
type Monitor struct {
	config   *common.Config
	logger   arbor.ILogger
	pipeline *app.Pipeline
	cron     *cron.Cron

	mu        sync.Mutex
	isRunning bool
}

// New creates a monitor around a pipeline.
func New(config *common.Config, logger arbor.ILogger, pipeline *app.Pipeline) *Monitor {
	return &Monitor{
		config:   config,
		logger:   logger,
		pipeline: pipeline,
		cron:     cron.New(),
	}
}

// Run starts the monitoring loop and blocks until the context is
// cancelled. Cycles poll every configured interval inside the active
// window; the ledger is purged of stale entries at startup and at
// midnight.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.config.Monitor.IntervalMinutes

	m.logger.Info().
		Int("interval_minutes", interval).
		Int("active_start_hour", m.config.Monitor.ActiveStartHour).
		Int("active_end_hour", m.config.Monitor.ActiveEndHour).
		Str("ledger", m.pipeline.Ledger().Path()).
		Msg("Starting disclosure monitor")

	if err := m.purgeLedger(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to purge sent ledger on startup")
	}

	if _, err := m.cron.AddFunc(fmt.Sprintf("*/%d * * * *", interval), func() { m.cycle(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule poll cycle: %w", err)
	}
	if _, err := m.cron.AddFunc("0 0 * * *", func() {
		if err := m.purgeLedger(); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to purge sent ledger at midnight")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule ledger purge: %w", err)
	}

	// First cycle runs immediately rather than waiting a full interval.
	m.cycle(ctx)

	m.cron.Start()
	<-ctx.Done()

	stopCtx := m.cron.Stop()
	// Let an in-flight cycle finish before returning.
	<-stopCtx.Done()

	m.logger.Info().Msg("Monitor stopped")
	return nil
}

// cycle runs one only-new, notify-enabled pipeline pass when inside the
// active window. Overlapping cycles are collapsed: if a pass is still
// running when the next tick fires, the tick is dropped.
func (m *Monitor) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		m.logger.Debug().Msg("Previous cycle still running, skipping tick")
		return
	}
	m.isRunning = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.isRunning = false
		m.mu.Unlock()
	}()

	now := time.Now()
	if !m.inActiveWindow(now) {
		m.logger.Debug().
			Int("hour", now.Hour()).
			Msg("Outside active hours, skipping cycle")
		return
	}

	res, err := m.pipeline.Run(ctx, now.Format("20060102"), app.Options{Notify: true, OnlyNew: true})
	if err != nil {
		m.logger.Warn().Err(err).Msg("Monitor cycle interrupted")
		return
	}

	if res.Notified > 0 {
		m.logger.Info().Int("notified", res.Notified).Msg("Sent new disclosure notifications")
	} else {
		m.logger.Debug().Msg("No new disclosures this cycle")
	}
}

// inActiveWindow reports whether t falls inside the daily active hours.
func (m *Monitor) inActiveWindow(t time.Time) bool {
	hour := t.Hour()
	return hour >= m.config.Monitor.ActiveStartHour && hour < m.config.Monitor.ActiveEndHour
}

func (m *Monitor) purgeLedger() error {
	return m.pipeline.Ledger().PurgeOld(time.Now().Format("20060102"))
}
