package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ad/telegram-contest-bot/internal/domain"
)

// SubmissionRepository handles contest submission data operations
type SubmissionRepository struct {
	queue *DBQueue
}

// NewSubmissionRepository creates a new SubmissionRepository
func NewSubmissionRepository(queue *DBQueue) *SubmissionRepository {
	return &SubmissionRepository{queue: queue}
}

// Create inserts a new submission row and fills in its ID
func (r *SubmissionRepository) Create(ctx context.Context, sub *domain.Submission) error {
	return r.queue.Execute(func(db *sql.DB) error {
		photosJSON, err := json.Marshal(sub.Photos)
		if err != nil {
			return err
		}

		result, err := db.ExecContext(ctx,
			`INSERT INTO submissions (user_id, username, full_name, photos_json, caption, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sub.UserID, sub.Username, sub.FullName, string(photosJSON), sub.Caption, sub.Status, sub.CreatedAt,
		)
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		sub.ID = id
		return nil
	})
}

// Get returns a submission by ID, or (nil, nil) when it does not exist
func (r *SubmissionRepository) Get(ctx context.Context, submissionID int64) (*domain.Submission, error) {
	var sub domain.Submission
	var photosJSON string
	var username, fullName, caption, reason sql.NullString
	var number sql.NullInt64

	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT id, user_id, username, full_name, photos_json, caption, status, reason, submission_number, created_at
			 FROM submissions WHERE id = ?`,
			submissionID,
		).Scan(
			&sub.ID, &sub.UserID, &username, &fullName, &photosJSON,
			&caption, &sub.Status, &reason, &number, &sub.CreatedAt,
		)
	})

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(photosJSON), &sub.Photos); err != nil {
		return nil, err
	}
	sub.Username = username.String
	sub.FullName = fullName.String
	sub.Caption = caption.String
	sub.Reason = reason.String
	if number.Valid {
		val := int(number.Int64)
		sub.Number = &val
	}

	return &sub, nil
}

// ListByStatus returns all submissions with the given status, oldest first
func (r *SubmissionRepository) ListByStatus(ctx context.Context, status domain.SubmissionStatus) ([]*domain.Submission, error) {
	var subs []*domain.Submission

	err := r.queue.Execute(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, user_id, username, full_name, photos_json, caption, status, reason, submission_number, created_at
			 FROM submissions WHERE status = ? ORDER BY created_at ASC`,
			status,
		)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var sub domain.Submission
			var photosJSON string
			var username, fullName, caption, reason sql.NullString
			var number sql.NullInt64

			if err := rows.Scan(
				&sub.ID, &sub.UserID, &username, &fullName, &photosJSON,
				&caption, &sub.Status, &reason, &number, &sub.CreatedAt,
			); err != nil {
				return err
			}

			if err := json.Unmarshal([]byte(photosJSON), &sub.Photos); err != nil {
				return err
			}
			sub.Username = username.String
			sub.FullName = fullName.String
			sub.Caption = caption.String
			sub.Reason = reason.String
			if number.Valid {
				val := int(number.Int64)
				sub.Number = &val
			}

			subs = append(subs, &sub)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return subs, nil
}

// CountByStatus returns the number of submissions with the given status
func (r *SubmissionRepository) CountByStatus(ctx context.Context, status domain.SubmissionStatus) (int, error) {
	var count int
	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM submissions WHERE status = ?`, status,
		).Scan(&count)
	})
	return count, err
}

// Approve marks a submission approved inside one transaction: the shared
// counter is incremented, its new value becomes the submission number, and
// the approved_submissions join row is inserted. Returns the assigned
// number.
func (r *SubmissionRepository) Approve(ctx context.Context, submissionID int64) (int, error) {
	var number int

	err := r.queue.Execute(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`UPDATE counters SET value = value + 1 WHERE name = 'submission'`,
		); err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT value FROM counters WHERE name = 'submission'`,
		).Scan(&number); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE submissions SET status = ?, submission_number = ? WHERE id = ?`,
			domain.StatusApproved, number, submissionID,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrSubmissionMissing
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO approved_submissions (user_id, submission_id)
			 VALUES ((SELECT user_id FROM submissions WHERE id = ?), ?)`,
			submissionID, submissionID,
		); err != nil {
			return err
		}

		return tx.Commit()
	})

	if err != nil {
		return 0, err
	}

	return number, nil
}

// Reject marks a submission rejected with the given reason
func (r *SubmissionRepository) Reject(ctx context.Context, submissionID int64, reason string) error {
	return r.queue.Execute(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE submissions SET status = ?, reason = ? WHERE id = ?`,
			domain.StatusRejected, reason, submissionID,
		)
		return err
	})
}

// Rollback reverts a submission to pending and clears its number. The
// counter is not decremented: assigned numbers are burned, never reused.
func (r *SubmissionRepository) Rollback(ctx context.Context, submissionID int64) error {
	return r.queue.Execute(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`UPDATE submissions SET status = ?, submission_number = NULL, reason = NULL WHERE id = ?`,
			domain.StatusPending, submissionID,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM approved_submissions WHERE submission_id = ?`,
			submissionID,
		); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// HasApproved reports whether the user has any approved entry, via the
// approved_submissions join table
func (r *SubmissionRepository) HasApproved(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM approved_submissions WHERE user_id = ?`, userID,
		).Scan(&count)
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CurrentNumber returns the submission counter's current value
func (r *SubmissionRepository) CurrentNumber(ctx context.Context) (int, error) {
	var value int
	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT value FROM counters WHERE name = 'submission'`,
		).Scan(&value)
	})
	return value, err
}

// Reset wipes submissions, approved join rows and judges, and zeroes the
// counter, as one administrative action. Contest metadata and the
// blocklist are untouched.
func (r *SubmissionRepository) Reset(ctx context.Context) error {
	return r.queue.Execute(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for _, stmt := range []string{
			`UPDATE counters SET value = 0 WHERE name = 'submission'`,
			`DELETE FROM submissions`,
			`DELETE FROM approved_submissions`,
			`DELETE FROM judges`,
			`DELETE FROM sqlite_sequence WHERE name IN ('submissions', 'judges')`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}
