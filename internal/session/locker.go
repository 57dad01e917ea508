package session

import (
	"sync"
	"time"
)

// Locker serializes handler execution per user. The gateway delivers a
// user's messages as independent events, so two events for the same user
// can arrive near-simultaneously; only the first acquires the user's slot,
// the rest get a busy signal and are dropped by the caller.
//
// Media-group bursts get a second admission path: the first event of a
// group takes a group slot, and every later event carrying the same group
// ID is treated as already admitted so the whole album is one logical turn.
type Locker struct {
	mu          sync.Mutex
	users       map[int64]*lockEntry
	mediaGroups map[string]*groupEntry
	now         func() time.Time
}

type lockEntry struct {
	held     bool
	lastSeen time.Time
}

type groupEntry struct {
	userID   int64
	lastSeen time.Time
}

// NewLocker creates a locker using the wall clock
func NewLocker() *Locker {
	return NewLockerWithClock(time.Now)
}

// NewLockerWithClock creates a locker with an injected clock for tests
func NewLockerWithClock(now func() time.Time) *Locker {
	return &Locker{
		users:       make(map[int64]*lockEntry),
		mediaGroups: make(map[string]*groupEntry),
		now:         now,
	}
}

// TryAcquire attempts to take the user's slot without blocking. It returns
// false when the slot is already held; that is an ordinary busy signal,
// not an error.
func (l *Locker) TryAcquire(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.users[userID]
	if !ok {
		entry = &lockEntry{}
		l.users[userID] = entry
	}
	if entry.held {
		return false
	}
	entry.held = true
	entry.lastSeen = l.now()
	return true
}

// Release frees the user's slot. Releasing an unheld or unknown slot is
// tolerated without complaint.
func (l *Locker) Release(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.users[userID]; ok {
		entry.held = false
		entry.lastSeen = l.now()
	}
}

// TryAcquireMediaGroup admits an event that belongs to a photo burst.
// The first event for a group ID takes the user's slot and registers the
// group; subsequent events for the same group are already admitted. Both
// the slot and the group registration are decided under one lock, and
// first reports whether this call registered the group, so a caller
// schedules exactly one release per registration even when the release
// of a previous registration lands between two events of the burst.
func (l *Locker) TryAcquireMediaGroup(userID int64, groupID string) (admitted, first bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if g, ok := l.mediaGroups[groupID]; ok && g.userID == userID {
		g.lastSeen = l.now()
		return true, false
	}

	entry, ok := l.users[userID]
	if !ok {
		entry = &lockEntry{}
		l.users[userID] = entry
	}
	if entry.held {
		return false, false
	}
	entry.held = true
	entry.lastSeen = l.now()
	l.mediaGroups[groupID] = &groupEntry{userID: userID, lastSeen: l.now()}
	return true, true
}

// ReleaseMediaGroup forgets the group and frees the user's slot once the
// burst's debounce window has elapsed.
func (l *Locker) ReleaseMediaGroup(userID int64, groupID string) {
	l.mu.Lock()
	delete(l.mediaGroups, groupID)
	l.mu.Unlock()

	l.Release(userID)
}

// Cleanup drops lock and group entries idle longer than maxAge, bounding
// registry growth. Held slots are never evicted. The key sets are
// snapshotted before mutation.
func (l *Locker) Cleanup(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0

	userIDs := make([]int64, 0, len(l.users))
	for userID := range l.users {
		userIDs = append(userIDs, userID)
	}
	for _, userID := range userIDs {
		entry := l.users[userID]
		if !entry.held && now.Sub(entry.lastSeen) > maxAge {
			delete(l.users, userID)
			removed++
		}
	}

	groupIDs := make([]string, 0, len(l.mediaGroups))
	for groupID := range l.mediaGroups {
		groupIDs = append(groupIDs, groupID)
	}
	for _, groupID := range groupIDs {
		if now.Sub(l.mediaGroups[groupID].lastSeen) > maxAge {
			delete(l.mediaGroups, groupID)
			removed++
		}
	}

	return removed
}

// Len returns the number of tracked user entries
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
