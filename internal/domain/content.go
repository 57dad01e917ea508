package domain

import "time"

// ContentKind tags the kind of user content being collected for staff
type ContentKind string

const (
	KindAdminMessage ContentKind = "admin_message"
	KindNews         ContentKind = "news"
	KindCode         ContentKind = "code"
	KindPocket       ContentKind = "pocket"
	KindDesign       ContentKind = "design"
)

// ContentDraft is one variant per content kind, each carrying exactly its
// required fields. Completeness is a per-variant check, not key probing.
type ContentDraft interface {
	Kind() ContentKind
	Complete() bool
}

// AdminMessageDraft is a free-form message to the staff chat
type AdminMessageDraft struct {
	Photos []PhotoRef
	Text   string
}

func (d *AdminMessageDraft) Kind() ContentKind { return KindAdminMessage }

func (d *AdminMessageDraft) Complete() bool {
	return d.Text != "" || len(d.Photos) > 0
}

// NewsDraft is a news item for the community newspaper
type NewsDraft struct {
	Photos      []PhotoRef
	Description string
	Speaker     string // name of the villager quoted
	Island      string
}

func (d *NewsDraft) Kind() ContentKind { return KindNews }

func (d *NewsDraft) Complete() bool {
	return len(d.Photos) > 0 && d.Description != "" && d.Speaker != "" && d.Island != ""
}

// CodeDraft is a sleep/DLC code share
type CodeDraft struct {
	Value   string
	Photos  []PhotoRef
	Speaker string
	Island  string
}

func (d *CodeDraft) Kind() ContentKind { return KindCode }

func (d *CodeDraft) Complete() bool {
	return d.Value != "" && len(d.Photos) > 0 && d.Speaker != "" && d.Island != ""
}

// PocketDraft is a PocketCamp friend-code pair: exactly two screenshots
type PocketDraft struct {
	Screens []PhotoRef
}

func (d *PocketDraft) Kind() ContentKind { return KindPocket }

func (d *PocketDraft) Complete() bool {
	return len(d.Screens) == 2
}

// DesignDraft is a custom-design code with its preview screens
type DesignDraft struct {
	Code         string
	DesignScreen *PhotoRef
	GameScreens  []PhotoRef
}

func (d *DesignDraft) Kind() ContentKind { return KindDesign }

func (d *DesignDraft) Complete() bool {
	return d.Code != "" && d.DesignScreen != nil && len(d.GameScreens) > 0
}

// ContentSession wraps a content draft with the bookkeeping the session
// store needs: owner, progress indicator and activity stamp.
type ContentSession struct {
	UserID            int64
	Draft             ContentDraft
	Step              int // position within the kind's collection sequence
	ProgressMessageID int
	LastActivity      time.Time
}

// NewContentSession creates a session for the given draft variant
func NewContentSession(userID int64, draft ContentDraft, now time.Time) *ContentSession {
	return &ContentSession{
		UserID:       userID,
		Draft:        draft,
		LastActivity: now,
	}
}

// Touch records session activity
func (s *ContentSession) Touch(now time.Time) {
	s.LastActivity = now
}
