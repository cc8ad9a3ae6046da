package kokkai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/japaniel/kokkai/pkg/records"
)

// previewRunes bounds the raw-response preview kept for diagnostics.
const previewRunes = 800

// flexString accepts a JSON string, number, bool or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(b)
	}
	return nil
}

type apiSpeech struct {
	SpeechID      flexString `json:"speechID"`
	Date          flexString `json:"date"`
	NameOfHouse   flexString `json:"nameOfHouse"`
	HouseName     flexString `json:"houseName"`
	NameOfMeeting flexString `json:"nameOfMeeting"`
	Speaker       flexString `json:"speaker"`
	SpeakerGroup  flexString `json:"speakerGroup"`
	Speech        flexString `json:"speech"`
	SpeechURL     flexString `json:"speechURL"`
	IssueID       flexString `json:"issueID"`
	MeetingURL    flexString `json:"meetingURL"`
	BillID        flexString `json:"billID"`
}

func (s apiSpeech) row() records.Speech {
	house := string(s.NameOfHouse)
	if house == "" {
		house = string(s.HouseName)
	}
	return records.Speech{
		ID:           string(s.SpeechID),
		Date:         string(s.Date),
		House:        house,
		Meeting:      string(s.NameOfMeeting),
		Speaker:      string(s.Speaker),
		SpeakerGroup: string(s.SpeakerGroup),
		Text:         string(s.Speech),
		SpeechURL:    string(s.SpeechURL),
		IssueID:      string(s.IssueID),
		MeetingURL:   string(s.MeetingURL),
		BillID:       string(s.BillID),
	}
}

type apiMeeting struct {
	Date          flexString `json:"date"`
	NameOfHouse   flexString `json:"nameOfHouse"`
	NameOfMeeting flexString `json:"nameOfMeeting"`
	Issue         flexString `json:"issue"`
	Session       flexString `json:"session"`
	SpeechRecord  []struct {
		SpeechURL flexString `json:"speechURL"`
	} `json:"speechRecord"`
}

func (m apiMeeting) row() records.Meeting {
	var u string
	if len(m.SpeechRecord) > 0 {
		u = string(m.SpeechRecord[0].SpeechURL)
	}
	return records.Meeting{
		Date:    string(m.Date),
		House:   string(m.NameOfHouse),
		Meeting: string(m.NameOfMeeting),
		Issue:   string(m.Issue),
		Session: string(m.Session),
		URL:     u,
	}
}

// page is one decoded response of either endpoint.
type page struct {
	NumberOfRecords *flexString `json:"numberOfRecords"`
	Records         *struct {
		NumberOfRecords *flexString `json:"numberOfRecords"`
	} `json:"records"`
	SpeechRecord  []apiSpeech  `json:"speechRecord"`
	MeetingRecord []apiMeeting `json:"meetingRecord"`
}

// numberOfRecords returns the reported total, looking at the top level first
// and then under "records". ok is false when neither is present or numeric.
func (p *page) numberOfRecords() (int, bool) {
	raw := p.NumberOfRecords
	if raw == nil && p.Records != nil {
		raw = p.Records.NumberOfRecords
	}
	if raw == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(*raw)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// preview compacts body and keeps its first previewRunes characters.
func preview(body []byte) string {
	var buf bytes.Buffer
	s := string(body)
	if err := json.Compact(&buf, body); err == nil {
		s = buf.String()
	}
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes])
}
