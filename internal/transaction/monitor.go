package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baely/bezos/internal/common/errors"
	"github.com/baely/bezos/internal/config"
)

// DefaultInterval is the polling period used when none is configured
const DefaultInterval = 10 * time.Second

// ErrCycleInFlight is returned when a cycle is requested while another is running
var ErrCycleInFlight = errors.Mark(errors.ErrConflict, "fetch cycle already in flight")

// MonitorConfig contains configuration for the Monitor
type MonitorConfig struct {
	Fetcher  Fetcher
	Broker   *Broker
	Interval time.Duration
	Window   Window
	Logger   *slog.Logger

	// Publisher overrides where updates are sent. Defaults to Broker.
	Publisher Publisher
}

// Status summarises the monitor's recent activity
type Status struct {
	LastAttempt  time.Time `json:"lastAttempt"`
	LastSuccess  time.Time `json:"lastSuccess"`
	LastError    string    `json:"lastError,omitempty"`
	Cycles       uint64    `json:"cycles"`
	Publishes    uint64    `json:"publishes"`
	Transactions int       `json:"transactions"` // size of the current snapshot
}

// Monitor polls the feed and republishes the filtered snapshot whenever the feed changes
type Monitor struct {
	fetcher   Fetcher
	broker    *Broker
	publisher Publisher
	interval  time.Duration
	window    Window
	logger    *slog.Logger

	snapshot atomic.Pointer[Records]
	inFlight atomic.Bool

	mu       sync.Mutex
	previous Records // raw payload of the last successful fetch
	status   Status
}

// NewMonitor creates a Monitor. Zero values in cfg fall back to package defaults.
func NewMonitor(cfg *MonitorConfig) *Monitor {
	m := &Monitor{
		fetcher:   cfg.Fetcher,
		broker:    cfg.Broker,
		publisher: cfg.Publisher,
		interval:  cfg.Interval,
		window:    cfg.Window,
		logger:    cfg.Logger,
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.broker == nil {
		m.broker = NewBroker(m.logger)
	}
	if m.publisher == nil {
		m.publisher = m.broker
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.window == (Window{}) {
		m.window = DefaultWindow
	}

	empty := Records{}
	m.snapshot.Store(&empty)

	return m
}

// NewMonitorFromConfig creates a Monitor polling the configured feed with its own broker
func NewMonitorFromConfig(cfg config.FeedConfig, logger *slog.Logger) *Monitor {
	return NewMonitor(&MonitorConfig{
		Fetcher:  NewFeedClient(cfg.URL, cfg.RequestTimeout).WithLogger(logger),
		Broker:   NewBroker(logger),
		Interval: cfg.PollInterval,
		Window:   Window{Year: cfg.WindowYear, Month: time.Month(cfg.WindowMonth)},
		Logger:   logger,
	})
}

// Start runs one cycle immediately and then one per interval until ctx is cancelled.
// Cycles never overlap: ticks that fire while a fetch is running are dropped.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("Starting transaction monitor",
		"interval", m.interval.String(),
		"window", fmt.Sprintf("%d-%02d", m.window.Year, m.window.Month))

	m.RunCycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping transaction monitor")
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// RunCycle performs one fetch, filter, compare and publish pass.
// Failures leave the snapshot untouched; the error is logged and returned.
func (m *Monitor) RunCycle(ctx context.Context) (err error) {
	if !m.inFlight.CompareAndSwap(false, true) {
		m.logger.Warn("Skipping fetch cycle, previous cycle still running")
		return ErrCycleInFlight
	}
	defer m.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch cycle panicked: %v", r)
			m.recordFailure(err)
		}
	}()

	m.mu.Lock()
	m.status.Cycles++
	m.status.LastAttempt = time.Now()
	m.mu.Unlock()

	raw, err := m.fetcher.Fetch(ctx)
	if err != nil {
		m.recordFailure(err)
		return err
	}

	filtered := FilterByDate(raw, m.window)

	m.mu.Lock()
	m.status.LastSuccess = time.Now()
	m.status.LastError = ""
	changed := !m.previous.Equal(raw)
	if changed {
		m.previous = raw
		m.snapshot.Store(&filtered)
		m.status.Publishes++
		m.status.Transactions = len(filtered)
	}
	m.mu.Unlock()

	if !changed {
		m.logger.Debug("Transactions unchanged", "fetched", len(raw))
		return nil
	}

	m.logger.Info("Transactions updated", "fetched", len(raw), "in_window", len(filtered))
	m.publisher.Publish(EventTransactionsUpdated, Update{TransactionsUpdated: filtered})
	return nil
}

func (m *Monitor) recordFailure(err error) {
	m.logger.Error("Fetch cycle failed", "error", err)

	m.mu.Lock()
	m.status.LastError = err.Error()
	m.mu.Unlock()
}

// Snapshot returns the current filtered transactions without blocking.
// The returned slice is shared and must not be modified.
func (m *Monitor) Snapshot() Records {
	return *m.snapshot.Load()
}

// Subscribe returns a handle that yields every snapshot published from now on
func (m *Monitor) Subscribe() *Subscription {
	return m.broker.Subscribe(EventTransactionsUpdated)
}

// Subscribers returns the number of live subscriptions
func (m *Monitor) Subscribers() int {
	return m.broker.Len(EventTransactionsUpdated)
}

// Status returns a copy of the monitor's activity counters
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}
