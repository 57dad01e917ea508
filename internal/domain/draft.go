package domain

import "time"

// DraftState is the intake state machine position of a submission draft
type DraftState string

const (
	StateCollectingPhotos DraftState = "collecting_photos"
	StateWaitingCaption   DraftState = "waiting_caption"
	StatePreview          DraftState = "preview"
)

// SubmissionDraft is the ephemeral working state of one user's in-progress
// contest entry. It is never persisted; it lives in the session store until
// dispatch, cancel or timeout.
type SubmissionDraft struct {
	UserID            int64
	Username          string
	FullName          string
	Photos            []PhotoRef
	Caption           string
	State             DraftState
	SendByBot         bool   // preview choice: bot posts vs user posts themselves
	MediaGroupID      string // current album, if photos arrive as a burst
	ProgressMessageID int    // progress indicator, deleted and re-posted on update
	CreatedAt         time.Time
	LastActivity      time.Time
}

// NewSubmissionDraft creates a draft in the photo collection state
func NewSubmissionDraft(userID int64, username, fullName string, now time.Time) *SubmissionDraft {
	return &SubmissionDraft{
		UserID:       userID,
		Username:     username,
		FullName:     fullName,
		State:        StateCollectingPhotos,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// AddPhoto appends a photo to the draft. A photo whose unique reference is
// already present (any resolution variant of the same image) is rejected
// with ErrDuplicatePhoto; the 11th photo is rejected with ErrTooManyPhotos.
func (d *SubmissionDraft) AddPhoto(p PhotoRef) error {
	if d.State != StateCollectingPhotos {
		return ErrInvalidStatus
	}
	for _, existing := range d.Photos {
		if existing.UniqueID == p.UniqueID {
			return ErrDuplicatePhoto
		}
	}
	if len(d.Photos) >= MaxPhotosPerSubmission {
		return ErrTooManyPhotos
	}
	d.Photos = append(d.Photos, p)
	return nil
}

// Full reports whether the draft reached the photo ceiling
func (d *SubmissionDraft) Full() bool {
	return len(d.Photos) >= MaxPhotosPerSubmission
}

// ClosePhotos moves the draft to the caption step. Closing with zero photos
// is rejected and the draft stays in collecting_photos.
func (d *SubmissionDraft) ClosePhotos() error {
	if d.State != StateCollectingPhotos {
		return ErrInvalidStatus
	}
	if len(d.Photos) == 0 {
		return ErrNoPhotos
	}
	d.State = StateWaitingCaption
	return nil
}

// SetCaption stores the caption and moves the draft to preview
func (d *SubmissionDraft) SetCaption(caption string) error {
	if d.State != StateWaitingCaption {
		return ErrInvalidStatus
	}
	d.Caption = caption
	d.State = StatePreview
	return nil
}

// Touch records draft activity
func (d *SubmissionDraft) Touch(now time.Time) {
	d.LastActivity = now
}

// ToSubmission converts a previewed draft into a pending submission row
func (d *SubmissionDraft) ToSubmission(now time.Time) *Submission {
	return &Submission{
		UserID:    d.UserID,
		Username:  d.Username,
		FullName:  d.FullName,
		Photos:    d.Photos,
		Caption:   d.Caption,
		Status:    StatusPending,
		CreatedAt: now,
	}
}
