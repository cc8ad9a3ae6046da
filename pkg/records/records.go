// Package records defines the flat row shapes produced by the fetcher and
// their CSV encoding.
package records

import "fmt"

// Kind selects which upstream record shape a fetch targets.
type Kind string

const (
	KindSpeech  Kind = "speech"
	KindMeeting Kind = "meeting"
)

// ParseKind accepts "speech" or "meeting" (also "meeting_list").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "speech", "":
		return KindSpeech, nil
	case "meeting", "meeting_list":
		return KindMeeting, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// Speech is one utterance row. Empty strings mean the upstream field was absent.
type Speech struct {
	ID           string
	Date         string
	House        string
	Meeting      string
	Speaker      string
	SpeakerGroup string
	Text         string
	SpeechURL    string
	IssueID      string
	MeetingURL   string
	BillID       string
}

// Meeting is one meeting row from the meeting_list endpoint.
type Meeting struct {
	Date    string
	House   string
	Meeting string
	Issue   string
	Session string
	URL     string
}

// SpeechColumns is the fixed CSV header for speech rows.
var SpeechColumns = []string{
	"speech_id", "date", "nameOfHouse", "nameOfMeeting", "speaker", "speakerGroup",
	"speech", "speechURL", "issueID", "meetingURL", "billID",
}

// MeetingColumns is the fixed CSV header for meeting rows.
var MeetingColumns = []string{"date", "house", "meeting", "issue", "session", "url"}

// Row returns the values in SpeechColumns order.
func (s Speech) Row() []string {
	return []string{
		s.ID, s.Date, s.House, s.Meeting, s.Speaker, s.SpeakerGroup,
		s.Text, s.SpeechURL, s.IssueID, s.MeetingURL, s.BillID,
	}
}

// Row returns the values in MeetingColumns order.
func (m Meeting) Row() []string {
	return []string{m.Date, m.House, m.Meeting, m.Issue, m.Session, m.URL}
}

// speechFromFields maps a header-indexed CSV record onto a Speech.
func speechFromFields(idx map[string]int, rec []string) Speech {
	get := func(col string) string {
		if i, ok := idx[col]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}
	return Speech{
		ID:           get("speech_id"),
		Date:         get("date"),
		House:        get("nameOfHouse"),
		Meeting:      get("nameOfMeeting"),
		Speaker:      get("speaker"),
		SpeakerGroup: get("speakerGroup"),
		Text:         get("speech"),
		SpeechURL:    get("speechURL"),
		IssueID:      get("issueID"),
		MeetingURL:   get("meetingURL"),
		BillID:       get("billID"),
	}
}

// DedupeSpeeches drops rows whose non-empty ID was already seen. Rows without
// an ID are always kept. Order is preserved and the first occurrence wins.
func DedupeSpeeches(rows []Speech) []Speech {
	seen := make(map[string]struct{}, len(rows))
	out := make([]Speech, 0, len(rows))
	for _, r := range rows {
		if r.ID != "" {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}
