package alarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/alarm.go . Manager

// ErrInvalidPeriod is returned when an alarm is created with a non-positive period
var ErrInvalidPeriod = errors.New("alarm period must be positive")

// Manager owns named periodic alarms. Creating an alarm under an existing
// name replaces it, so at most one alarm exists per name.
type Manager interface {
	Create(name string, period time.Duration) error
	Clear(name string) (bool, error)
	Get(name string) (Alarm, bool)
}

// Alarm describes a scheduled periodic alarm
type Alarm struct {
	Name   string
	Period time.Duration
	Next   time.Time
}

// Handler is invoked once per alarm firing
type Handler func(ctx context.Context, name string)

type entry struct {
	id     cron.EntryID
	period time.Duration
}

// CronManager implements Manager on top of a cron runner
type CronManager struct {
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]entry
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewCronManager creates an alarm manager. Fired alarms are dropped
// until a handler is registered with OnFire.
func NewCronManager(logger *zap.Logger) *CronManager {
	logger = logger.With(zap.String("component", "alarm"))
	ctx, cancel := context.WithCancel(context.Background())
	return &CronManager{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger.Sugar()}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()})),
		),
		logger:  logger,
		entries: make(map[string]entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnFire registers the handler for every alarm firing
func (m *CronManager) OnFire(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Start implements core.Interface
func (m *CronManager) Start(ctx context.Context) error {
	m.cron.Start()
	m.logger.Info("alarm runner started")
	return nil
}

// Stop implements core.Interface
func (m *CronManager) Stop() {
	m.cancel()
	<-m.cron.Stop().Done()
	m.logger.Info("alarm runner stopped")
}

// Create schedules name to fire every period, replacing any alarm of the same name
func (m *CronManager) Create(name string, period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("create alarm %q: %w", name, ErrInvalidPeriod)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[name]; ok {
		m.cron.Remove(existing.id)
	}

	id := m.cron.Schedule(cron.Every(period), cron.FuncJob(func() { m.fire(name) }))
	m.entries[name] = entry{id: id, period: period}

	m.logger.Info("alarm created", zap.String("alarm", name), zap.Duration("period", period))
	return nil
}

// Clear removes the named alarm and reports whether one existed
func (m *CronManager) Clear(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.entries[name]
	if !ok {
		return false, nil
	}
	m.cron.Remove(existing.id)
	delete(m.entries, name)

	m.logger.Info("alarm cleared", zap.String("alarm", name))
	return true, nil
}

// Get returns the named alarm if it is scheduled
func (m *CronManager) Get(name string) (Alarm, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.entries[name]
	if !ok {
		return Alarm{}, false
	}
	return Alarm{
		Name:   name,
		Period: existing.period,
		Next:   m.cron.Entry(existing.id).Next,
	}, true
}

func (m *CronManager) fire(name string) {
	m.mu.Lock()
	h := m.handler
	_, scheduled := m.entries[name]
	m.mu.Unlock()

	if !scheduled || h == nil {
		return
	}
	m.logger.Debug("alarm fired", zap.String("alarm", name))
	h(m.ctx, name)
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
