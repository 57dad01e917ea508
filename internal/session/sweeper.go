package session

import (
	"context"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
)

// ExpiryNotifier is called once for each draft the sweep force-cancels
type ExpiryNotifier interface {
	NotifyDraftExpired(ctx context.Context, userID int64)
}

// ExpiryNotifierFunc adapts a function to the ExpiryNotifier interface
type ExpiryNotifierFunc func(ctx context.Context, userID int64)

func (f ExpiryNotifierFunc) NotifyDraftExpired(ctx context.Context, userID int64) {
	f(ctx, userID)
}

// Sweeper runs the two wall-clock sweeps: draft expiry and idle-lock
// eviction. Both are polling-based on a fixed tick. The clock is injected
// so tests advance virtual time instead of sleeping.
type Sweeper struct {
	drafts   *DraftStore
	contents *ContentStore
	locker   *Locker
	notifier ExpiryNotifier
	logger   domain.Logger

	interval     time.Duration
	draftTimeout time.Duration
	lockIdleAge  time.Duration
	now          func() time.Time
}

// NewSweeper creates a sweeper over the given stores and locker
func NewSweeper(
	drafts *DraftStore,
	contents *ContentStore,
	locker *Locker,
	notifier ExpiryNotifier,
	logger domain.Logger,
	interval, draftTimeout, lockIdleAge time.Duration,
) *Sweeper {
	return &Sweeper{
		drafts:       drafts,
		contents:     contents,
		locker:       locker,
		notifier:     notifier,
		logger:       logger,
		interval:     interval,
		draftTimeout: draftTimeout,
		lockIdleAge:  lockIdleAge,
		now:          time.Now,
	}
}

// SetClock replaces the wall clock, for tests
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Run executes the sweep loop until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started",
		"interval", s.interval,
		"draft_timeout", s.draftTimeout,
		"lock_idle_age", s.lockIdleAge)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass of both sweeps. A draft past the inactivity
// threshold is removed and its owner notified exactly once; on earlier
// ticks within the threshold nothing happens.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	for _, userID := range s.drafts.Users() {
		draft := s.drafts.Get(userID)
		if draft == nil {
			continue
		}
		if now.Sub(draft.LastActivity) > s.draftTimeout {
			s.drafts.Remove(userID)
			s.logger.Info("submission draft timed out",
				"user_id", userID,
				"state", draft.State,
				"photos", len(draft.Photos))
			if s.notifier != nil {
				s.notifier.NotifyDraftExpired(ctx, userID)
			}
		}
	}

	if s.contents != nil {
		for _, userID := range s.contents.Users() {
			sess := s.contents.Get(userID)
			if sess == nil {
				continue
			}
			if now.Sub(sess.LastActivity) > s.draftTimeout {
				s.contents.Remove(userID)
				s.logger.Info("content session timed out",
					"user_id", userID,
					"kind", sess.Draft.Kind())
				if s.notifier != nil {
					s.notifier.NotifyDraftExpired(ctx, userID)
				}
			}
		}
	}

	if removed := s.locker.Cleanup(s.lockIdleAge); removed > 0 {
		s.logger.Debug("evicted idle lock entries", "count", removed)
	}
}
