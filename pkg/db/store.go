package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

const speechColumns = `id, speech_id, date, house, committee, speaker, party, speech, speech_url, issue_id, meeting_url, bill_id, char_count`

// InsertSpeech stores s and returns its row id. House, committee, speaker and
// party must already be normalised.
func InsertSpeech(db DBExecutor, s *Speech) (int64, error) {
	if s.House == "" || s.Committee == "" || s.Speaker == "" || s.Party == "" {
		return 0, fmt.Errorf("speech %q is not normalised", s.SpeechID)
	}
	res, err := db.Exec(
		`INSERT INTO speeches (speech_id, date, house, committee, speaker, party, speech, speech_url, issue_id, meeting_url, bill_id, char_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(s.SpeechID), nullableDate(s.Date), s.House, s.Committee, s.Speaker, s.Party, s.Text,
		nullableString(s.SpeechURL), nullableString(s.IssueID), nullableString(s.MeetingURL), nullableString(s.BillID),
		s.CharCount,
	)
	if err != nil {
		return 0, fmt.Errorf("insert speech: %w", err)
	}
	return res.LastInsertId()
}

// CountSpeeches returns the number of stored rows.
func CountSpeeches(db DBExecutor) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM speeches`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// where renders f as a WHERE clause and its arguments.
func (f Filter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if !f.From.IsZero() || !f.Until.IsZero() {
		conds = append(conds, "date IS NOT NULL")
	}
	if !f.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.From.Format(DateLayout))
	}
	if !f.Until.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.Until.Format(DateLayout))
	}
	if c, a := inClause("house", f.Houses); c != "" {
		conds = append(conds, c)
		args = append(args, a...)
	}
	if c, a := inClause("committee", f.Committees); c != "" {
		conds = append(conds, c)
		args = append(args, a...)
	}

	var kw []string
	for _, k := range f.Keywords {
		if k = strings.TrimSpace(k); k == "" {
			continue
		}
		kw = append(kw, "instr(lower(speech), lower(?)) > 0")
		args = append(args, k)
	}
	if len(kw) > 0 {
		conds = append(conds, "("+strings.Join(kw, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func inClause(col string, vals []string) (string, []interface{}) {
	if len(vals) == 0 {
		return "", nil
	}
	args := make([]interface{}, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return col + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(vals)), ",") + ")", args
}

// QuerySpeeches returns the rows matching f in insertion order.
func QuerySpeeches(db DBExecutor, f Filter) ([]Speech, error) {
	where, args := f.where()
	rows, err := db.Query(`SELECT `+speechColumns+` FROM speeches`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query speeches: %w", err)
	}
	defer rows.Close()

	var out []Speech
	for rows.Next() {
		var s Speech
		var speechID, date, speechURL, issueID, meetingURL, billID sql.NullString
		if err := rows.Scan(&s.ID, &speechID, &date, &s.House, &s.Committee, &s.Speaker, &s.Party, &s.Text,
			&speechURL, &issueID, &meetingURL, &billID, &s.CharCount); err != nil {
			return nil, err
		}
		s.SpeechID = speechID.String
		s.SpeechURL = speechURL.String
		s.IssueID = issueID.String
		s.MeetingURL = meetingURL.String
		s.BillID = billID.String
		if date.Valid {
			t, err := time.Parse(DateLayout, date.String)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad stored date %q: %w", s.ID, date.String, err)
			}
			s.Date = t
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFacets lists the known houses and committees, without placeholders, and
// the stored date range.
func GetFacets(db DBExecutor) (Facets, error) {
	var f Facets
	var err error

	f.Houses, err = distinct(db, `SELECT DISTINCT house FROM speeches WHERE house <> '' AND house <> ? ORDER BY house`, UnknownHouse)
	if err != nil {
		return Facets{}, fmt.Errorf("house facets: %w", err)
	}
	f.Committees, err = distinct(db, `SELECT DISTINCT committee FROM speeches WHERE committee <> '' AND committee <> ? ORDER BY committee LIMIT ?`, UnknownCommittee, MaxCommitteeFacets)
	if err != nil {
		return Facets{}, fmt.Errorf("committee facets: %w", err)
	}

	var lo, hi sql.NullString
	if err := db.QueryRow(`SELECT MIN(date), MAX(date) FROM speeches WHERE date IS NOT NULL`).Scan(&lo, &hi); err != nil {
		return Facets{}, fmt.Errorf("date range: %w", err)
	}
	if lo.Valid {
		if f.MinDate, err = time.Parse(DateLayout, lo.String); err != nil {
			return Facets{}, err
		}
	}
	if hi.Valid {
		if f.MaxDate, err = time.Parse(DateLayout, hi.String); err != nil {
			return Facets{}, err
		}
	}
	return f, nil
}

func distinct(db DBExecutor, query string, args ...interface{}) ([]string, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullableDate returns nil for the zero time (meaning undated).
func nullableDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(DateLayout)
}
