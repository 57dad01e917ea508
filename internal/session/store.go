package session

import (
	"sync"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
)

// DraftStore holds in-flight submission drafts keyed by user ID. Entries
// are created when a user starts a submission and removed on dispatch,
// cancel or timeout.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[int64]*domain.SubmissionDraft
}

// NewDraftStore creates an empty draft store
func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: make(map[int64]*domain.SubmissionDraft),
	}
}

// Put stores a draft for a user, replacing any previous one
func (s *DraftStore) Put(userID int64, draft *domain.SubmissionDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = draft
}

// Get returns the user's draft, or nil if none exists
func (s *DraftStore) Get(userID int64) *domain.SubmissionDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[userID]
}

// Exists reports whether the user has a draft in progress
func (s *DraftStore) Exists(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.drafts[userID]
	return ok
}

// Touch updates the draft's activity stamp if it exists
func (s *DraftStore) Touch(userID int64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if draft, ok := s.drafts[userID]; ok {
		draft.Touch(now)
	}
}

// Remove deletes the user's draft; removing a missing draft is a no-op
func (s *DraftStore) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
}

// Users returns a snapshot of user IDs with drafts in progress. The sweep
// iterates over this snapshot so concurrent mutation is safe.
func (s *DraftStore) Users() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]int64, 0, len(s.drafts))
	for userID := range s.drafts {
		users = append(users, userID)
	}
	return users
}

// Len returns the number of drafts in progress
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Clear drops all drafts
func (s *DraftStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = make(map[int64]*domain.SubmissionDraft)
}

// ContentStore holds in-flight content sessions keyed by user ID, same
// lifecycle as DraftStore but for the per-kind content flows.
type ContentStore struct {
	mu       sync.Mutex
	sessions map[int64]*domain.ContentSession
}

// NewContentStore creates an empty content store
func NewContentStore() *ContentStore {
	return &ContentStore{
		sessions: make(map[int64]*domain.ContentSession),
	}
}

// Put stores a content session for a user, replacing any previous one
func (s *ContentStore) Put(userID int64, session *domain.ContentSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

// Get returns the user's content session, or nil if none exists
func (s *ContentStore) Get(userID int64) *domain.ContentSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// Remove deletes the user's content session
func (s *ContentStore) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Users returns a snapshot of user IDs with content sessions in progress
func (s *ContentStore) Users() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]int64, 0, len(s.sessions))
	for userID := range s.sessions {
		users = append(users, userID)
	}
	return users
}
