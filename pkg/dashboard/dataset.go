package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/kokkai/pkg/db"
	"github.com/japaniel/kokkai/pkg/ingest"
)

// ErrNotLoaded is returned by a Dataset that has been closed.
var ErrNotLoaded = errors.New("dataset not loaded")

// Dataset is the base speech table of the dashboard. It is loaded from a
// speech CSV once and replaced only on Reload.
type Dataset struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	conn    *sql.DB
	modTime time.Time
	stats   ingest.Stats
}

// Open loads the speech CSV at path into a private in-memory table.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dataset{path: path, logger: logger}
	if err := d.Reload(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the CSV the dataset reads.
func (d *Dataset) Path() string { return d.path }

// Reload reads the CSV again into a fresh table and swaps it in. The previous
// table keeps serving if the load fails.
func (d *Dataset) Reload(ctx context.Context) error {
	info, err := os.Stat(d.path)
	if err != nil {
		return fmt.Errorf("speech data: %w", err)
	}

	conn, err := db.Open(db.MemoryDSN)
	if err != nil {
		return err
	}
	stats, err := ingest.NewLoader(conn, d.logger).LoadFile(ctx, d.path)
	if err != nil {
		conn.Close()
		return fmt.Errorf("load %s: %w", d.path, err)
	}

	d.mu.Lock()
	old := d.conn
	d.conn = conn
	d.modTime = info.ModTime()
	d.stats = stats
	d.mu.Unlock()

	if old != nil {
		old.Close()
	}
	d.logger.Info("dataset loaded", zap.String("path", d.path), zap.Int("rows", stats.Rows))
	return nil
}

// Stale reports whether the CSV changed since the last load.
func (d *Dataset) Stale() (bool, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		return false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !info.ModTime().Equal(d.modTime), nil
}

// Stats describes the last successful load.
func (d *Dataset) Stats() ingest.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

// Speeches returns the rows matching f.
func (d *Dataset) Speeches(f db.Filter) ([]db.Speech, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil {
		return nil, ErrNotLoaded
	}
	return db.QuerySpeeches(d.conn, f)
}

// Facets lists the filter choices over the whole table.
func (d *Dataset) Facets() (db.Facets, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil {
		return db.Facets{}, ErrNotLoaded
	}
	return db.GetFacets(d.conn)
}

// Close releases the table.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
