package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/japaniel/kokkai/pkg/db"
)

// InsertFunc stores one row inside the batch transaction.
type InsertFunc func(tx db.DBExecutor, row *db.Speech) error

func insertSpeech(tx db.DBExecutor, row *db.Speech) error {
	_, err := db.InsertSpeech(tx, row)
	return err
}

// BatchWriter buffers speech rows and commits them in batches, one
// transaction per batch, on a background goroutine.
type BatchWriter struct {
	mu     sync.Mutex
	buf    []db.Speech
	cap    int
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	commitCh chan []db.Speech
	conn     *sql.DB
	insert   InsertFunc
	OnError  func(error)

	committed atomic.Int64

	// errMu guards lastErr, the first asynchronous error.
	errMu   sync.Mutex
	lastErr error
}

// NewBatchWriter returns a writer that commits every bufferSize rows.
// A nil conn runs inserts without a transaction, which tests use together
// with WithInsert.
func NewBatchWriter(conn *sql.DB, bufferSize int) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 200
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		buf:      make([]db.Speech, 0, bufferSize),
		cap:      bufferSize,
		ctx:      ctx,
		cancel:   cancel,
		commitCh: make(chan []db.Speech, 2),
		conn:     conn,
		insert:   insertSpeech,
	}
	bw.wg.Add(1)
	go bw.committer()
	return bw
}

// WithInsert replaces the per-row insert. It must be called before Submit.
func (bw *BatchWriter) WithInsert(fn InsertFunc) *BatchWriter {
	bw.insert = fn
	return bw
}

// Submit enqueues a row.
func (bw *BatchWriter) Submit(row db.Speech) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, row)
	if len(bw.buf) >= bw.cap {
		bw.flushLocked()
	}
	return nil
}

// Committed returns the number of rows in committed batches so far.
func (bw *BatchWriter) Committed() int {
	return int(bw.committed.Load())
}

// Err returns the first asynchronous error, if any.
func (bw *BatchWriter) Err() error {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.lastErr
}

func (bw *BatchWriter) recordErr(err error) {
	bw.errMu.Lock()
	if bw.lastErr == nil {
		bw.lastErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

// flushLocked assumes bw.mu is held. A full commit queue blocks Submit,
// which is the writer's backpressure.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]db.Speech, 0, bw.cap)

	select {
	case bw.commitCh <- batch:
	case <-bw.ctx.Done():
		bw.recordErr(fmt.Errorf("batch writer: dropping batch of %d rows due to cancellation", len(batch)))
	}
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		if bw.Err() != nil {
			// a failed batch poisons the load; later rows are discarded
			continue
		}
		if err := bw.executeBatch(batch); err != nil {
			bw.recordErr(err)
			continue
		}
		bw.committed.Add(int64(len(batch)))
	}
}

func (bw *BatchWriter) executeBatch(batch []db.Speech) error {
	if bw.conn == nil {
		for i := range batch {
			if err := bw.insert(nil, &batch[i]); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := bw.conn.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for i := range batch {
		if err := bw.insert(tx, &batch[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch (%d rows): %w", len(batch), err)
	}
	return nil
}

// Abort discards buffered rows and stops queueing new batches. Batches
// already queued still commit. Close must still be called.
func (bw *BatchWriter) Abort() {
	bw.mu.Lock()
	bw.buf = bw.buf[:0]
	bw.mu.Unlock()
	bw.cancel()
}

// Close flushes the remaining rows, waits for every queued batch and returns
// the first error seen.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()
	close(bw.commitCh)
	bw.wg.Wait()
	return bw.Err()
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
