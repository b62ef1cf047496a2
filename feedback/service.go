package feedback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/config"
	"github.com/cryptoview/pricewatch/metrics"
	"github.com/cryptoview/pricewatch/storage"
)

// LastSubmissionKey is the store key holding the last successful submission time (epoch ms)
const LastSubmissionKey = "lastFeedbackTime"

const titleLength = 50

var (
	ErrEmptyFeedback = errors.New("feedback content is empty")
	ErrNotConfigured = errors.New("feedback destination is not configured")
	ErrTooFrequent   = errors.New("feedback submitted too frequently")
)

// TooFrequentError carries how long the caller has to wait
type TooFrequentError struct {
	RemainingSeconds int
}

func (e *TooFrequentError) Error() string {
	return fmt.Sprintf("%s, retry in %d seconds", ErrTooFrequent, e.RemainingSeconds)
}

func (e *TooFrequentError) Is(target error) bool {
	return target == ErrTooFrequent
}

// PageCreator writes a feedback page
type PageCreator interface {
	CreatePage(ctx context.Context, p Page) (string, error)
}

// Receipt identifies a stored submission
type Receipt struct {
	PageID      string    `json:"pageId"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Service throttles and forwards user feedback
type Service struct {
	creator     PageCreator
	store       storage.KeyValueStore
	clock       clock.Clock
	configured  bool
	minInterval time.Duration
	logger      *zap.Logger
}

func NewService(cfg config.FeedbackConfig, creator PageCreator, store storage.KeyValueStore, clk clock.Clock, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		creator:     creator,
		store:       store,
		clock:       clk,
		configured:  cfg.Configured(),
		minInterval: cfg.MinInterval,
		logger:      logger.With(zap.String("component", "feedback")),
	}
}

// Submit sends content unless it is empty or the previous successful
// submission was less than the minimum interval ago.
func (s *Service) Submit(ctx context.Context, content string) (Receipt, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		metrics.RecordFeedbackSubmission("empty")
		return Receipt{}, ErrEmptyFeedback
	}
	if !s.configured || s.creator == nil {
		metrics.RecordFeedbackSubmission("not_configured")
		return Receipt{}, ErrNotConfigured
	}

	now := s.clock.Now()
	var last int64
	if _, err := s.store.Get(ctx, LastSubmissionKey, &last); err != nil {
		s.logger.Warn("failed to read last feedback time", zap.Error(err))
	}
	if last > 0 {
		elapsed := now.Sub(time.UnixMilli(last))
		if elapsed < s.minInterval {
			remaining := int(math.Ceil((s.minInterval - elapsed).Seconds()))
			metrics.RecordFeedbackSubmission("throttled")
			return Receipt{}, &TooFrequentError{RemainingSeconds: remaining}
		}
	}

	pageID, err := s.creator.CreatePage(ctx, Page{
		Title:     title(content),
		Content:   content,
		Published: now,
	})
	if err != nil {
		metrics.RecordFeedbackSubmission("error")
		return Receipt{}, fmt.Errorf("failed to submit feedback: %w", err)
	}

	if err := s.store.Set(ctx, LastSubmissionKey, now.UnixMilli()); err != nil {
		s.logger.Warn("failed to store last feedback time", zap.Error(err))
	}
	metrics.RecordFeedbackSubmission("success")
	return Receipt{PageID: pageID, SubmittedAt: now}, nil
}

// title is the first line of content, shortened to titleLength runes
func title(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= titleLength {
		return line
	}
	runes := []rune(line)
	return string(runes[:titleLength]) + "..."
}
