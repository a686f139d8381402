package storage

import (
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	queueSize       = 100
	maxBusyRetries  = 3
	busyRetryFactor = 100 * time.Millisecond
)

// ErrQueueClosed is returned by Execute after Close
var ErrQueueClosed = errors.New("database queue closed")

// DBQueue serializes access to a SQLite database through a single worker
type DBQueue struct {
	db         *sql.DB
	queryQueue chan *dbRequest
	done       chan struct{}
	closeOnce  sync.Once
}

type dbRequest struct {
	query    func(*sql.DB) error
	response chan error
}

// NewDBQueue starts the worker for db
func NewDBQueue(db *sql.DB) *DBQueue {
	q := &DBQueue{
		db:         db,
		queryQueue: make(chan *dbRequest, queueSize),
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

// executeWithRetry retries SQLITE_BUSY failures with a linear backoff
func (q *DBQueue) executeWithRetry(query func(*sql.DB) error) error {
	for i := 0; i < maxBusyRetries; i++ {
		err := query(q.db)
		if err == nil {
			return nil
		}
		if !isBusyError(err) {
			return err
		}
		time.Sleep(busyRetryFactor * time.Duration(i+1))
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

// Execute runs query on the worker and waits for its result
func (q *DBQueue) Execute(query func(*sql.DB) error) error {
	req := &dbRequest{
		query:    query,
		response: make(chan error, 1),
	}

	select {
	case q.queryQueue <- req:
	case <-q.done:
		return ErrQueueClosed
	}

	select {
	case err := <-req.response:
		return err
	case <-q.done:
		return ErrQueueClosed
	}
}

// Close stops the worker. It does not close the database.
func (q *DBQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
