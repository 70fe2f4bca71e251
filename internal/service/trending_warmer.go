package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"athena-feed/internal/cache"
)

const warmerLockTTL = 30 * time.Second

// DefaultWarmLimits are the trending sizes readers request without
// overrides: the trending endpoint default and the shared candidate pool.
var DefaultWarmLimits = []int{DefaultTrendingLimit, TrendingPoolSize}

// TrendingWarmer recomputes the cached trending windows. It satisfies
// scheduler.BatchProcessor.
type TrendingWarmer struct {
	feed    FeedService
	cache   cache.Cache
	windows []int
	limits  []int
	lockTTL time.Duration
	logger  *logrus.Logger
}

func NewTrendingWarmer(feed FeedService, c cache.Cache, windows, limits []int, lockTTL time.Duration, logger *logrus.Logger) *TrendingWarmer {
	if len(windows) == 0 {
		windows = []int{DefaultTrendingHours}
	}
	if len(limits) == 0 {
		limits = DefaultWarmLimits
	}
	if lockTTL <= 0 {
		lockTTL = warmerLockTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &TrendingWarmer{feed: feed, cache: c, windows: windows, limits: limits, lockTTL: lockTTL, logger: logger}
}

// ProcessBatch refreshes every window and limit unless another instance
// holds the lock. Entries are refreshed independently and the first error is
// returned. The lock is released only if this batch still owns it.
func (w *TrendingWarmer) ProcessBatch(ctx context.Context) error {
	lockKey := cache.SchedulerLock.Key("trending")
	token := uuid.NewString()
	acquired, err := w.cache.SetNX(ctx, lockKey, token, w.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire trending lock: %w", err)
	}
	if !acquired {
		w.logger.Debug("trending refresh skipped, lock held elsewhere")
		return nil
	}
	defer func() {
		released, err := w.cache.DelIfEqual(context.WithoutCancel(ctx), lockKey, token)
		if err != nil {
			w.logger.WithError(err).Warn("release trending lock")
		} else if !released {
			w.logger.Warn("trending lock expired before the batch finished")
		}
	}()

	var firstErr error
	for _, hours := range w.windows {
		for _, limit := range w.limits {
			fields := logrus.Fields{"hours": hours, "limit": limit}
			posts, err := w.feed.RefreshTrending(ctx, hours, limit)
			if err != nil {
				w.logger.WithError(err).WithFields(fields).Error("trending refresh failed")
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			fields["posts"] = len(posts)
			w.logger.WithFields(fields).Debug("trending refreshed")
		}
	}
	return firstErr
}
