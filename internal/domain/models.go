package domain

import (
	"errors"
	"time"
)

// Validation and workflow errors
var (
	ErrEmptyTheme        = errors.New("contest theme cannot be empty")
	ErrEmptyDescription  = errors.New("contest description cannot be empty")
	ErrInvalidDate       = errors.New("date must be in DD.MM.YYYY format")
	ErrInvalidUserID     = errors.New("user ID must be set")
	ErrInvalidStatus     = errors.New("invalid submission status")
	ErrEmptyReason       = errors.New("rejection reason cannot be empty")
	ErrDuplicatePhoto    = errors.New("photo already added")
	ErrTooManyPhotos     = errors.New("photo limit reached")
	ErrNoPhotos          = errors.New("at least one photo is required")
	ErrDraftExists       = errors.New("draft already in progress")
	ErrAlreadyApproved   = errors.New("user already has an approved submission")
	ErrAlreadyJudge      = errors.New("user is already registered as a judge")
	ErrNotChatMember     = errors.New("user is not a member of the community chat")
	ErrSubmissionMissing = errors.New("submission not found")
)

// MaxPhotosPerSubmission is the hard ceiling for one contest entry.
const MaxPhotosPerSubmission = 10

// DateLayout is the calendar date format used for contest metadata input.
const DateLayout = "02.01.2006"

// SubmissionStatus represents the moderation status of a submission
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// PhotoRef identifies one photo of a submission. FileID is the transient
// reference used to re-send the photo; UniqueID stays constant across
// resolution variants of the same source image and is what deduplication
// keys on.
type PhotoRef struct {
	FileID   string `json:"file_id"`
	UniqueID string `json:"unique_id"`
}

// Contest is the current contest's metadata. At most one row exists;
// updating replaces it.
type Contest struct {
	ID                int64
	Theme             string
	Description       string
	ContestDate       string // DD.MM.YYYY
	AdmissionDeadline string // DD.MM.YYYY
}

// Submission is a persisted contest entry
type Submission struct {
	ID        int64
	UserID    int64
	Username  string
	FullName  string
	Photos    []PhotoRef
	Caption   string
	Status    SubmissionStatus
	Reason    string
	Number    *int // assigned on approval, nil otherwise
	CreatedAt time.Time
}

// Judge is a self-registered contest judge
type Judge struct {
	ID       int64
	UserID   int64
	Username string
	FullName string
}

// BlockedUser is a blocklist entry with a snapshot of the user's identity
// at block time
type BlockedUser struct {
	UserID    int64
	Username  string
	FullName  string
	BlockedAt time.Time
}

// Validate validates a Contest
func (c *Contest) Validate() error {
	if c.Theme == "" {
		return ErrEmptyTheme
	}
	if c.Description == "" {
		return ErrEmptyDescription
	}
	if _, err := time.Parse(DateLayout, c.ContestDate); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, c.AdmissionDeadline); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Validate validates a Submission before it is persisted
func (s *Submission) Validate() error {
	if s.UserID == 0 {
		return ErrInvalidUserID
	}
	if len(s.Photos) == 0 {
		return ErrNoPhotos
	}
	if len(s.Photos) > MaxPhotosPerSubmission {
		return ErrTooManyPhotos
	}
	switch s.Status {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return ErrInvalidStatus
	}
	// submission_number is non-null iff approved
	if (s.Number != nil) != (s.Status == StatusApproved) {
		return ErrInvalidStatus
	}
	return nil
}

// Validate validates a Judge
func (j *Judge) Validate() error {
	if j.UserID == 0 {
		return ErrInvalidUserID
	}
	return nil
}

// Logger is the logging interface used across domain and bot layers
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}
