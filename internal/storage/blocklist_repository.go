package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
)

// BlocklistRepository handles the blocked-user registry
type BlocklistRepository struct {
	queue *DBQueue
}

// NewBlocklistRepository creates a new BlocklistRepository
func NewBlocklistRepository(queue *DBQueue) *BlocklistRepository {
	return &BlocklistRepository{queue: queue}
}

// Block marks a user as blocked, snapshotting their handle and name.
// Blocking an already-blocked user refreshes the snapshot.
func (r *BlocklistRepository) Block(ctx context.Context, user *domain.BlockedUser) error {
	if user.BlockedAt.IsZero() {
		user.BlockedAt = time.Now()
	}
	return r.queue.Execute(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT OR REPLACE INTO blocked_users (user_id, username, full_name, blocked_at)
			 VALUES (?, ?, ?, ?)`,
			user.UserID, user.Username, user.FullName, user.BlockedAt,
		)
		return err
	})
}

// Unblock removes a user from the blocklist, reporting whether they were
// blocked
func (r *BlocklistRepository) Unblock(ctx context.Context, userID int64) (bool, error) {
	var removed bool
	err := r.queue.Execute(func(db *sql.DB) error {
		result, err := db.ExecContext(ctx, `DELETE FROM blocked_users WHERE user_id = ?`, userID)
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

// IsBlocked reports whether the user is on the blocklist
func (r *BlocklistRepository) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM blocked_users WHERE user_id = ?`, userID,
		).Scan(&count)
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns all blocked users, most recently blocked first
func (r *BlocklistRepository) List(ctx context.Context) ([]*domain.BlockedUser, error) {
	var users []*domain.BlockedUser

	err := r.queue.Execute(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT user_id, username, full_name, blocked_at
			 FROM blocked_users ORDER BY blocked_at DESC`,
		)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var user domain.BlockedUser
			var username, fullName sql.NullString
			if err := rows.Scan(&user.UserID, &username, &fullName, &user.BlockedAt); err != nil {
				return err
			}
			user.Username = username.String
			user.FullName = fullName.String
			users = append(users, &user)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return users, nil
}
