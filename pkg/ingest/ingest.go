package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/japaniel/kokkai/pkg/db"
	"github.com/japaniel/kokkai/pkg/records"
)

// dateLayouts are tried in order when parsing CSV dates.
var dateLayouts = []string{
	db.DateLayout,
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"20060102",
}

// ParseDate parses the date forms found in exported meeting records. ok is
// false for empty or unparseable input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Normalize turns a fetched speech into a table row: placeholders for absent
// house, committee, speaker and party, a parsed date and the body length in
// characters.
func Normalize(rec records.Speech) db.Speech {
	s := db.Speech{
		SpeechID:   rec.ID,
		House:      orDefault(rec.House, db.UnknownHouse),
		Committee:  orDefault(rec.Meeting, db.UnknownCommittee),
		Speaker:    orDefault(rec.Speaker, db.UnknownSpeaker),
		Party:      orDefault(rec.SpeakerGroup, db.UnknownParty),
		Text:       rec.Text,
		SpeechURL:  rec.SpeechURL,
		IssueID:    rec.IssueID,
		MeetingURL: rec.MeetingURL,
		BillID:     rec.BillID,
		CharCount:  utf8.RuneCountInString(rec.Text),
	}
	if t, ok := ParseDate(rec.Date); ok {
		s.Date = t
	}
	return s
}

// Stats summarises one load.
type Stats struct {
	Rows    int `json:"rows"`
	Undated int `json:"undated"`
	// NoText counts rows read from a file without a speech column or with an
	// empty body.
	NoText int `json:"no_text"`
}

// Loader streams speech CSV into the speech table.
type Loader struct {
	DB        *sql.DB
	BatchSize int
	Logger    *zap.Logger
	// OnProgress is called after every submitted row with the running count.
	OnProgress func(rows int)
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(conn *sql.DB, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		DB:        conn,
		BatchSize: 200,
		Logger:    logger,
	}
}

// LoadFile loads the CSV at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load reads every row of r and inserts it. On any error the rows already
// committed stay in the table; callers that need all-or-nothing load into a
// fresh database.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Stats, error) {
	sr, err := records.NewSpeechReader(r)
	if err != nil {
		return Stats{}, fmt.Errorf("open speech csv: %w", err)
	}
	if !sr.HasColumn("speech") {
		l.Logger.Warn("speech column missing, character counts will be zero")
	}

	bw := NewBatchWriter(l.DB, l.BatchSize)
	var stats Stats
	submitted := 0

	for {
		if err := ctx.Err(); err != nil {
			bw.Abort()
			_ = bw.Close()
			return stats, err
		}
		rec, err := sr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			bw.Abort()
			_ = bw.Close()
			return stats, fmt.Errorf("read row %d: %w", submitted+1, err)
		}

		row := Normalize(rec)
		if !row.Dated() {
			stats.Undated++
		}
		if row.Text == "" {
			stats.NoText++
		}
		if err := bw.Submit(row); err != nil {
			_ = bw.Close()
			return stats, err
		}
		submitted++
		if l.OnProgress != nil {
			l.OnProgress(submitted)
		}
	}

	err = bw.Close()
	stats.Rows = bw.Committed()
	if err != nil {
		return stats, fmt.Errorf("store speeches: %w", err)
	}
	l.Logger.Info("speeches loaded",
		zap.Int("rows", stats.Rows),
		zap.Int("undated", stats.Undated),
		zap.Int("no_text", stats.NoText),
	)
	return stats, nil
}
