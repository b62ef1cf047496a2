package background

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/alarm"
	"github.com/cryptoview/pricewatch/badge"
	"github.com/cryptoview/pricewatch/config"
	"github.com/cryptoview/pricewatch/events"
	"github.com/cryptoview/pricewatch/settings"
	"github.com/cryptoview/pricewatch/storage"
)

// DefaultAlarmName is the alarm driving badge refreshes
const DefaultAlarmName = "refreshPriceAlarm"

// ChangeSource publishes store changes
type ChangeSource interface {
	Subscribe() *events.Subscription[storage.Change]
}

// Refresher runs one badge refresh
type Refresher interface {
	Refresh(ctx context.Context) badge.Result
}

// State reports whether the refresh alarm is scheduled
type State struct {
	Scheduled bool          `json:"scheduled"`
	Period    time.Duration `json:"period"`
	Next      time.Time     `json:"next,omitempty"`
}

// Service keeps the badge refresh alarm in line with the settings and
// refreshes the badge each time it fires.
type Service struct {
	alarmName string
	alarms    alarm.Manager
	settings  *settings.Manager
	changes   ChangeSource
	refresher Refresher
	logger    *zap.Logger

	mu  sync.Mutex
	sub *events.Subscription[storage.Change]
}

func NewService(cfg config.BackgroundConfig, alarms alarm.Manager, settingsManager *settings.Manager, changes ChangeSource, refresher Refresher, logger *zap.Logger) *Service {
	name := cfg.AlarmName
	if name == "" {
		name = DefaultAlarmName
	}
	return &Service{
		alarmName: name,
		alarms:    alarms,
		settings:  settingsManager,
		changes:   changes,
		refresher: refresher,
		logger:    logger.With(zap.String("component", "background")),
	}
}

// Start schedules the alarm from the current settings and follows settings changes
func (s *Service) Start(ctx context.Context) error {
	if s.alarms == nil || s.settings == nil {
		return fmt.Errorf("background service not properly initialized")
	}

	if err := s.Reschedule(ctx); err != nil {
		s.logger.Error("initial scheduling failed", zap.Error(err))
	}

	if s.changes != nil {
		sub := s.changes.Subscribe().Watch(ctx, func(change storage.Change) {
			s.onChange(ctx, change)
		})
		s.mu.Lock()
		s.sub = sub
		s.mu.Unlock()
	}
	return nil
}

// Stop implements core.Interface
func (s *Service) Stop() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Reschedule clears the alarm and recreates it when the settings enable
// refreshing and a coin is pinned.
func (s *Service) Reschedule(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.alarms.Clear(s.alarmName); err != nil {
		return fmt.Errorf("failed to clear alarm: %w", err)
	}

	current, found, err := s.settings.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	if !found {
		s.logger.Debug("no settings stored, alarm not scheduled")
		return nil
	}

	if current.RefreshInterval <= 0 || current.PinnedCoin == "" {
		s.logger.Info("alarm not scheduled",
			zap.Int("refreshInterval", current.RefreshInterval),
			zap.String("pinnedCoin", current.PinnedCoin))
		return nil
	}

	period := AlarmPeriod(current.RefreshInterval)
	if err := s.alarms.Create(s.alarmName, period); err != nil {
		return fmt.Errorf("failed to create alarm: %w", err)
	}
	s.logger.Info("alarm scheduled",
		zap.String("pinnedCoin", current.PinnedCoin),
		zap.Duration("period", period))
	return nil
}

// HandleAlarm runs one badge refresh when the refresh alarm fires
func (s *Service) HandleAlarm(ctx context.Context, name string) {
	if name != s.alarmName {
		return
	}
	res := s.refresher.Refresh(ctx)
	s.logger.Debug("badge refresh finished", zap.String("outcome", string(res.Outcome)), zap.Error(res.Err))
}

// State reports the alarm schedule
func (s *Service) State() State {
	a, ok := s.alarms.Get(s.alarmName)
	if !ok {
		return State{}
	}
	return State{Scheduled: true, Period: a.Period, Next: a.Next}
}

func (s *Service) onChange(ctx context.Context, change storage.Change) {
	if change.Key != settings.StorageKey {
		return
	}
	prev, next, err := settings.DecodeChange(change)
	if err != nil {
		s.logger.Warn("undecodable settings change", zap.Error(err))
		return
	}
	if !settings.SchedulingChanged(prev, next) {
		return
	}
	if err := s.Reschedule(ctx); err != nil {
		s.logger.Error("rescheduling failed", zap.Error(err))
	}
}

// AlarmPeriod converts a refresh interval in seconds to whole minutes, at least one
func AlarmPeriod(intervalSeconds int) time.Duration {
	minutes := int(math.Ceil(float64(intervalSeconds) / 60))
	if minutes < 1 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}
