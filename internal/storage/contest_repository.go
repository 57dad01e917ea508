package storage

import (
	"context"
	"database/sql"

	"github.com/ad/telegram-contest-bot/internal/domain"
)

// ContestRepository handles contest metadata. The contest row is a
// singleton: Replace wipes the table and inserts the new row atomically.
type ContestRepository struct {
	queue *DBQueue
}

// NewContestRepository creates a new ContestRepository
func NewContestRepository(queue *DBQueue) *ContestRepository {
	return &ContestRepository{queue: queue}
}

// Replace sets the current contest, discarding any previous one
func (r *ContestRepository) Replace(ctx context.Context, contest *domain.Contest) error {
	return r.queue.Execute(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM contests`); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO contests (theme, description, contest_date, end_date_of_admission)
			 VALUES (?, ?, ?, ?)`,
			contest.Theme, contest.Description, contest.ContestDate, contest.AdmissionDeadline,
		)
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		contest.ID = id

		return tx.Commit()
	})
}

// Current returns the current contest, or (nil, nil) when none has been
// created yet.
func (r *ContestRepository) Current(ctx context.Context) (*domain.Contest, error) {
	var contest domain.Contest

	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT id, theme, description, contest_date, end_date_of_admission
			 FROM contests ORDER BY id DESC LIMIT 1`,
		).Scan(&contest.ID, &contest.Theme, &contest.Description, &contest.ContestDate, &contest.AdmissionDeadline)
	})

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &contest, nil
}
