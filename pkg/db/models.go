package db

import "time"

// Placeholders written in place of absent row attributes.
const (
	UnknownHouse     = "院不明"
	UnknownCommittee = "委員会不明"
	UnknownSpeaker   = "発言者不明"
	UnknownParty     = "政党不明"
)

// DateLayout is how dates are stored and compared.
const DateLayout = "2006-01-02"

// Speech is one normalised speech row.
type Speech struct {
	ID         int64     `json:"-"`
	SpeechID   string    `json:"speech_id,omitempty"`
	Date       time.Time `json:"date"`
	House      string    `json:"house"`
	Committee  string    `json:"committee"`
	Speaker    string    `json:"speaker"`
	Party      string    `json:"party"`
	Text       string    `json:"speech"`
	SpeechURL  string    `json:"speech_url,omitempty"`
	IssueID    string    `json:"issue_id,omitempty"`
	MeetingURL string    `json:"meeting_url,omitempty"`
	BillID     string    `json:"bill_id,omitempty"`
	CharCount  int       `json:"char_count"`
}

// Dated reports whether the row carries a usable date.
func (s *Speech) Dated() bool { return !s.Date.IsZero() }

// Filter narrows the speech table. Zero values do not restrict.
type Filter struct {
	From  time.Time
	Until time.Time
	// Houses and Committees are allow-lists.
	Houses     []string
	Committees []string
	// Keywords match when any of them occurs in the body, ignoring case.
	Keywords []string
}

// Facets lists the choices a dashboard filter can offer.
type Facets struct {
	Houses     []string  `json:"houses"`
	Committees []string  `json:"committees"`
	MinDate    time.Time `json:"min_date"`
	MaxDate    time.Time `json:"max_date"`
}

// MaxCommitteeFacets caps Facets.Committees.
const MaxCommitteeFacets = 20
