package storage

import (
	"context"
	"database/sql"

	"github.com/ad/telegram-contest-bot/internal/domain"
)

// JudgeRepository handles the judge registry
type JudgeRepository struct {
	queue *DBQueue
}

// NewJudgeRepository creates a new JudgeRepository
func NewJudgeRepository(queue *DBQueue) *JudgeRepository {
	return &JudgeRepository{queue: queue}
}

// Add registers a user as a judge. Registration is idempotent: it reports
// false without inserting when the user is already registered.
func (r *JudgeRepository) Add(ctx context.Context, judge *domain.Judge) (bool, error) {
	var added bool

	err := r.queue.Execute(func(db *sql.DB) error {
		var exists int
		err := db.QueryRowContext(ctx,
			`SELECT 1 FROM judges WHERE user_id = ?`, judge.UserID,
		).Scan(&exists)
		if err == nil {
			added = false
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		result, err := db.ExecContext(ctx,
			`INSERT INTO judges (user_id, username, full_name) VALUES (?, ?, ?)`,
			judge.UserID, judge.Username, judge.FullName,
		)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		judge.ID = id
		added = true
		return nil
	})

	if err != nil {
		return false, err
	}
	return added, nil
}

// Remove deletes the user's judge record, reporting whether one existed
func (r *JudgeRepository) Remove(ctx context.Context, userID int64) (bool, error) {
	var removed bool
	err := r.queue.Execute(func(db *sql.DB) error {
		result, err := db.ExecContext(ctx, `DELETE FROM judges WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		removed = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// IsJudge reports whether the user holds a judge record
func (r *JudgeRepository) IsJudge(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM judges WHERE user_id = ?`, userID,
		).Scan(&count)
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns all registered judges
func (r *JudgeRepository) List(ctx context.Context) ([]*domain.Judge, error) {
	var judges []*domain.Judge

	err := r.queue.Execute(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, user_id, username, full_name FROM judges ORDER BY id ASC`,
		)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var judge domain.Judge
			var username sql.NullString
			if err := rows.Scan(&judge.ID, &judge.UserID, &username, &judge.FullName); err != nil {
				return err
			}
			judge.Username = username.String
			judges = append(judges, &judge)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return judges, nil
}

// Count returns the number of registered judges
func (r *JudgeRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM judges`).Scan(&count)
	})
	return count, err
}
