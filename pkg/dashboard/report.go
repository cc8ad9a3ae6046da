package dashboard

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/japaniel/kokkai/pkg/db"
	"github.com/japaniel/kokkai/pkg/keywords"
)

// Panel sizes.
const (
	TopKeywordCount   = 30
	HeatmapFocusTerms = 15
	HeatmapMaxTerms   = 20
	ExampleCount      = 3
	ExampleExcerpt    = 150
	SpeakerRankCount  = 20
	LatestCount       = 20
	LatestExcerpt     = 200
)

// Metrics are the headline numbers of a filtered set.
type Metrics struct {
	Speeches   int `json:"speeches"`
	Speakers   int `json:"speakers"`
	Characters int `json:"characters"`
	Parties    int `json:"parties"`
}

// Heatmap is the party × keyword table. Insufficient means no focus term
// occurred anywhere and Table is nil.
type Heatmap struct {
	Table        *keywords.ContingencyTable `json:"table,omitempty"`
	Truncated    bool                       `json:"truncated"`
	Insufficient bool                       `json:"insufficient"`
}

// Example is one speech quoting a keyword.
type Example struct {
	Date    string `json:"date"`
	Speaker string `json:"speaker"`
	Party   string `json:"party"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url,omitempty"`
}

// KeywordExamples lists the newest speeches containing Term.
type KeywordExamples struct {
	Term     string    `json:"term"`
	Examples []Example `json:"examples"`
}

type SpeakerStat struct {
	Speaker    string `json:"speaker"`
	Party      string `json:"party"`
	Characters int    `json:"characters"`
}

type PartyStat struct {
	Party      string `json:"party"`
	Speeches   int    `json:"speeches"`
	Characters int    `json:"characters"`
}

type DayStat struct {
	Date       string `json:"date"`
	Speeches   int    `json:"speeches"`
	Characters int    `json:"characters"`
}

type LatestSpeech struct {
	Date      string `json:"date"`
	House     string `json:"house"`
	Committee string `json:"committee"`
	Speaker   string `json:"speaker"`
	Party     string `json:"party"`
	Excerpt   string `json:"excerpt"`
}

// Report holds every panel for one filtered set. An Empty report carries no
// panels.
type Report struct {
	Empty       bool                 `json:"empty"`
	Metrics     Metrics              `json:"metrics"`
	TopKeywords []keywords.TermCount `json:"top_keywords,omitempty"`
	Heatmap     *Heatmap             `json:"heatmap,omitempty"`
	Examples    *KeywordExamples     `json:"examples,omitempty"`
	Speakers    []SpeakerStat        `json:"speakers,omitempty"`
	Parties     []PartyStat          `json:"parties,omitempty"`
	Timeline    []DayStat            `json:"timeline,omitempty"`
	Latest      []LatestSpeech       `json:"latest,omitempty"`
}

// BuildReport computes every panel over rows on a pool of workers. rows is
// only read.
func BuildReport(ctx context.Context, rows []db.Speech, workers int) (*Report, error) {
	if len(rows) == 0 {
		return &Report{Empty: true}, nil
	}
	r := &Report{}
	jobs := []Job{
		func(context.Context) error { r.Metrics = metrics(rows); return nil },
		func(context.Context) error {
			freq := frequencies(rows)
			r.TopKeywords = freq.Top(TopKeywordCount)
			r.Heatmap = heatmap(rows, freq.TopTerms(HeatmapFocusTerms))
			if len(r.TopKeywords) > 0 {
				r.Examples = Examples(rows, r.TopKeywords[0].Term, ExampleCount)
			}
			return nil
		},
		func(context.Context) error { r.Speakers = speakerRanking(rows, SpeakerRankCount); return nil },
		func(context.Context) error { r.Parties = partyStats(rows); return nil },
		func(context.Context) error { r.Timeline = timeline(rows); return nil },
		func(context.Context) error { r.Latest = latest(rows, LatestCount); return nil },
	}
	if err := runJobs(ctx, workers, jobs); err != nil {
		return nil, err
	}
	return r, nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(db.DateLayout)
}

// excerpt keeps the first n characters of s, marking a cut with "...".
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// newestFirst returns the indexes of rows by date, newest first, undated
// rows last, ties in input order.
func newestFirst(rows []db.Speech, keep func(*db.Speech) bool) []int {
	var idx []int
	for i := range rows {
		if keep == nil || keep(&rows[i]) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := rows[idx[a]].Date, rows[idx[b]].Date
		if ta.IsZero() || tb.IsZero() {
			return !ta.IsZero() && tb.IsZero()
		}
		return ta.After(tb)
	})
	return idx
}

func metrics(rows []db.Speech) Metrics {
	speakers := map[string]struct{}{}
	parties := map[string]struct{}{}
	m := Metrics{Speeches: len(rows)}
	for i := range rows {
		speakers[rows[i].Speaker] = struct{}{}
		parties[rows[i].Party] = struct{}{}
		m.Characters += rows[i].CharCount
	}
	m.Speakers = len(speakers)
	m.Parties = len(parties)
	return m
}

func frequencies(rows []db.Speech) *keywords.FrequencyTable {
	texts := make([]string, len(rows))
	for i := range rows {
		texts[i] = rows[i].Text
	}
	return keywords.CountTerms(texts)
}

func heatmap(rows []db.Speech, focus []string) *Heatmap {
	docs := make([]keywords.Document, len(rows))
	for i := range rows {
		docs[i] = keywords.Document{Group: rows[i].Party, Text: rows[i].Text}
	}
	table := keywords.BuildContingency(docs, focus)
	if table.Empty() || table.Total() == 0 {
		return &Heatmap{Insufficient: true}
	}
	table, cut := table.Truncate(HeatmapMaxTerms)
	return &Heatmap{Table: table, Truncated: cut}
}

// Examples returns up to n of the newest rows whose body contains term.
func Examples(rows []db.Speech, term string, n int) *KeywordExamples {
	out := &KeywordExamples{Term: term, Examples: []Example{}}
	if term == "" {
		return out
	}
	idx := newestFirst(rows, func(s *db.Speech) bool { return strings.Contains(s.Text, term) })
	for _, i := range idx {
		if len(out.Examples) == n {
			break
		}
		s := &rows[i]
		out.Examples = append(out.Examples, Example{
			Date:    formatDay(s.Date),
			Speaker: s.Speaker,
			Party:   s.Party,
			Excerpt: excerpt(s.Text, ExampleExcerpt),
			URL:     s.SpeechURL,
		})
	}
	return out
}

// speakerRanking sums characters per (speaker, party). Ties are ordered by
// speaker then party.
func speakerRanking(rows []db.Speech, n int) []SpeakerStat {
	type key struct{ speaker, party string }
	sums := map[key]int{}
	for i := range rows {
		sums[key{rows[i].Speaker, rows[i].Party}] += rows[i].CharCount
	}
	out := make([]SpeakerStat, 0, len(sums))
	for k, v := range sums {
		out = append(out, SpeakerStat{Speaker: k.speaker, Party: k.party, Characters: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Characters != out[j].Characters {
			return out[i].Characters > out[j].Characters
		}
		if out[i].Speaker != out[j].Speaker {
			return out[i].Speaker < out[j].Speaker
		}
		return out[i].Party < out[j].Party
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// partyStats counts rows with a body and sums characters per party, by count
// then party name.
func partyStats(rows []db.Speech) []PartyStat {
	idx := map[string]int{}
	var out []PartyStat
	for i := range rows {
		j, ok := idx[rows[i].Party]
		if !ok {
			j = len(out)
			idx[rows[i].Party] = j
			out = append(out, PartyStat{Party: rows[i].Party})
		}
		if rows[i].Text != "" {
			out[j].Speeches++
		}
		out[j].Characters += rows[i].CharCount
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Speeches != out[j].Speeches {
			return out[i].Speeches > out[j].Speeches
		}
		return out[i].Party < out[j].Party
	})
	return out
}

// timeline aggregates dated rows per day, oldest first.
func timeline(rows []db.Speech) []DayStat {
	byDay := map[time.Time]*DayStat{}
	var days []time.Time
	for i := range rows {
		if !rows[i].Dated() {
			continue
		}
		d := rows[i].Date
		st, ok := byDay[d]
		if !ok {
			st = &DayStat{Date: formatDay(d)}
			byDay[d] = st
			days = append(days, d)
		}
		if rows[i].Text != "" {
			st.Speeches++
		}
		st.Characters += rows[i].CharCount
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	out := make([]DayStat, len(days))
	for i, d := range days {
		out[i] = *byDay[d]
	}
	return out
}

func latest(rows []db.Speech, n int) []LatestSpeech {
	idx := newestFirst(rows, nil)
	if len(idx) > n {
		idx = idx[:n]
	}
	out := make([]LatestSpeech, len(idx))
	for k, i := range idx {
		s := &rows[i]
		out[k] = LatestSpeech{
			Date:      formatDay(s.Date),
			House:     s.House,
			Committee: s.Committee,
			Speaker:   s.Speaker,
			Party:     s.Party,
			Excerpt:   excerpt(s.Text, LatestExcerpt),
		}
	}
	return out
}

// Dashboard answers report queries over a Dataset.
type Dashboard struct {
	Data    *Dataset
	Workers int

	mu sync.Mutex
}

// New returns a Dashboard computing panels on four workers.
func New(data *Dataset) *Dashboard {
	return &Dashboard{Data: data, Workers: 4}
}

// Report filters the dataset and builds every panel.
func (d *Dashboard) Report(ctx context.Context, f db.Filter) (*Report, error) {
	rows, err := d.Data.Speeches(f)
	if err != nil {
		return nil, err
	}
	return BuildReport(ctx, rows, d.Workers)
}

// KeywordExamples returns up to n newest filtered speeches containing term.
func (d *Dashboard) KeywordExamples(term string, f db.Filter, n int) (*KeywordExamples, error) {
	rows, err := d.Data.Speeches(f)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = ExampleCount
	}
	return Examples(rows, term, n), nil
}

// Facets lists the filter choices of the dataset.
func (d *Dashboard) Facets() (db.Facets, error) {
	return d.Data.Facets()
}

// ReloadIfStale reloads the dataset when its CSV changed. It reports whether
// a reload happened.
func (d *Dashboard) ReloadIfStale(ctx context.Context, force bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !force {
		stale, err := d.Data.Stale()
		if err != nil {
			return false, err
		}
		if !stale {
			return false, nil
		}
	}
	if err := d.Data.Reload(ctx); err != nil {
		return false, err
	}
	return true, nil
}
