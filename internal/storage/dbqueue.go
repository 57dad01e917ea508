package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// DBQueue serializes all SQLite access through a single goroutine. SQLite
// tolerates one writer at a time; funneling every operation through the
// queue avoids SQLITE_BUSY contention between handlers and the sweeps.
type DBQueue struct {
	db         *sql.DB
	queryQueue chan *dbRequest
	done       chan struct{}
}

type dbRequest struct {
	query    func(*sql.DB) error
	response chan error
}

// NewDBQueue creates a new DBQueue instance
func NewDBQueue(db *sql.DB) *DBQueue {
	q := &DBQueue{
		db:         db,
		queryQueue: make(chan *dbRequest, 100),
		done:       make(chan struct{}),
	}
	go q.processQueue()
	return q
}

func (q *DBQueue) processQueue() {
	for {
		select {
		case req := <-q.queryQueue:
			req.response <- q.executeWithRetry(req.query)
		case <-q.done:
			return
		}
	}
}

// executeWithRetry retries SQLITE_BUSY failures with linear backoff
func (q *DBQueue) executeWithRetry(query func(*sql.DB) error) error {
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		err := query(q.db)
		if err == nil {
			return nil
		}
		if isBusyError(err) {
			time.Sleep(time.Millisecond * time.Duration(100*(i+1)))
			continue
		}
		return err
	}
	return errors.New("max retries exceeded for SQLITE_BUSY")
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "SQLITE_BUSY")
}

// Execute executes a database operation through the queue
func (q *DBQueue) Execute(query func(*sql.DB) error) error {
	req := &dbRequest{
		query:    query,
		response: make(chan error, 1),
	}
	q.queryQueue <- req
	return <-req.response
}

// Close closes the DBQueue and stops processing
func (q *DBQueue) Close() {
	close(q.done)
}
