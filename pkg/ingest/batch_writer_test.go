package ingest

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/japaniel/kokkai/pkg/db"
)

func row(id string) db.Speech {
	return db.Speech{
		SpeechID:  id,
		House:     "衆議院",
		Committee: "予算委員会",
		Speaker:   "山田太郎",
		Party:     "自由民主党",
		Text:      "消費税について",
		CharCount: 7,
	}
}

func TestBatchWriterTransactions(t *testing.T) {
	conn := setupDB(t)

	bw := NewBatchWriter(conn, 2)
	var errs []error
	var mu sync.Mutex
	bw.OnError = func(e error) {
		mu.Lock()
		errs = append(errs, e)
		mu.Unlock()
	}

	for _, id := range []string{"A", "B", "C"} {
		if err := bw.Submit(row(id)); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	// Close and wait for pending batches to be committed. Use a timeout to avoid hanging tests.
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- bw.Close()
	}()
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for batch commit/close")
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected async errors: %v", errs)
	}

	n, err := db.CountSpeeches(conn)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 || bw.Committed() != 3 {
		t.Fatalf("expected 3 rows, got %d (committed %d)", n, bw.Committed())
	}
}

func TestBatchWriterRollback(t *testing.T) {
	conn := setupDB(t)

	bw := NewBatchWriter(conn, 2)
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		errCh <- e
	}

	// Batch of 2: the second row is not normalised, so the whole batch rolls back.
	_ = bw.Submit(row("C"))
	_ = bw.Submit(db.Speech{SpeechID: "broken"})

	if err := bw.Close(); err == nil {
		t.Fatal("expected Close to report the failed batch")
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	default:
		t.Fatal("expected OnError to be called")
	}

	n, err := db.CountSpeeches(conn)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows (rollback), got %d", n)
	}
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	bw := NewBatchWriter(nil, 5).WithInsert(func(_ db.DBExecutor, r *db.Speech) error {
		mu.Lock()
		seen = append(seen, r.SpeechID)
		mu.Unlock()
		return nil
	})
	for i := 0; i < 12; i++ {
		if err := bw.Submit(row(string(rune('a' + i)))); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if len(seen) != 12 {
		t.Fatalf("expected 12 inserts, got %d", len(seen))
	}
	if strings.Join(seen, "") != "abcdefghijkl" {
		t.Fatalf("rows committed out of order: %v", seen)
	}
}

func TestBatchWriterStopsAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	bw := NewBatchWriter(nil, 1).WithInsert(func(_ db.DBExecutor, r *db.Speech) error {
		calls++
		if r.SpeechID == "b" {
			return boom
		}
		return nil
	})
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := bw.Submit(row(id)); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}
	if err := bw.Close(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected later batches to be skipped, got %d calls", calls)
	}
	if bw.Committed() != 1 {
		t.Fatalf("expected 1 committed row, got %d", bw.Committed())
	}
}

func TestBatchWriterDropsBatchOnCancel(t *testing.T) {
	blocker := make(chan struct{})
	bw := NewBatchWriter(nil, 1).WithInsert(func(_ db.DBExecutor, r *db.Speech) error {
		if r.SpeechID == "first" {
			<-blocker
		}
		return nil
	})
	errCh := make(chan error, 4)
	bw.OnError = func(e error) {
		errCh <- e
	}

	// The committer blocks on the first batch, the next two fill the queue.
	for _, id := range []string{"first", "second", "third"} {
		if err := bw.Submit(row(id)); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	bw.cancel()

	// The queue is full and the writer is cancelled, so this batch is dropped.
	if err := bw.Submit(row("fourth")); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	close(blocker)

	select {
	case e := <-errCh:
		if e == nil || !strings.Contains(e.Error(), "dropping batch") {
			t.Fatalf("unexpected OnError value: %v", e)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected OnError to be called when batch dropped")
	}
	if err := bw.Close(); err == nil {
		t.Fatal("expected Close to report the dropped batch")
	}
}

func TestSubmitAfterClose(t *testing.T) {
	bw := NewBatchWriter(nil, 2)
	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := bw.Submit(row("late")); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed, got %v", err)
	}
	if err := bw.Close(); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed on second close, got %v", err)
	}
}
