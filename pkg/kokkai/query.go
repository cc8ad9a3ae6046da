package kokkai

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/japaniel/kokkai/pkg/records"
)

// Version returns the fetcher version reported in the User-Agent.
func Version() string { return "1.0" }

const (
	// DefaultBaseURL is the public 国会会議録検索システム API root.
	DefaultBaseURL = "https://kokkai.ndl.go.jp/api"
	// PageSize is the maximumRecords value sent with every page request.
	PageSize = 100
	// BothHouses is the wildcard house value; it sends no nameOfHouse.
	BothHouses = "両院"

	dateLayout = "2006-01-02"
)

// DefaultUserAgent identifies the fetcher to the upstream service.
var DefaultUserAgent = "kokkai-dashboard-gui-fetcher/" + Version()

// Mode is how keyword terms combine into upstream queries.
type Mode string

const (
	// ModeAnd sends all terms together in one query.
	ModeAnd Mode = "AND"
	// ModeOr sends each term as its own query and pools the rows.
	ModeOr Mode = "OR"
	// ModeNone ignores the terms entirely.
	ModeNone Mode = "NONE"
)

// ParseMode accepts AND, OR, NONE (any case) and the Japanese なし. The
// empty string maps to OR.
func ParseMode(s string) (Mode, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case u == "":
		return ModeOr, nil
	case strings.HasPrefix(u, "AND"):
		return ModeAnd, nil
	case strings.HasPrefix(u, "OR"):
		return ModeOr, nil
	case strings.HasPrefix(u, "NONE"), strings.HasPrefix(u, "なし"):
		return ModeNone, nil
	}
	return "", fmt.Errorf("unknown keyword mode %q", s)
}

// SplitTerms splits a whitespace separated keyword string.
func SplitTerms(s string) []string {
	return strings.Fields(s)
}

// Query describes everything one fetch run should retrieve.
type Query struct {
	Kind  records.Kind
	From  string
	Until string
	// Houses defaults to BothHouses.
	Houses []string
	// Committees defaults to a single wildcard; AllCommittees forces it.
	Committees    []string
	AllCommittees bool
	Terms         []string
	Mode          Mode
}

// Validate checks the dates and enumerations.
func (q Query) Validate() error {
	if q.Kind != records.KindSpeech && q.Kind != records.KindMeeting {
		return fmt.Errorf("unknown record kind %q", q.Kind)
	}
	from, err := time.Parse(dateLayout, q.From)
	if err != nil {
		return fmt.Errorf("invalid from date %q: %w", q.From, err)
	}
	until, err := time.Parse(dateLayout, q.Until)
	if err != nil {
		return fmt.Errorf("invalid until date %q: %w", q.Until, err)
	}
	if until.Before(from) {
		return fmt.Errorf("until %s is before from %s", q.Until, q.From)
	}
	switch q.Mode {
	case ModeAnd, ModeOr, ModeNone:
	default:
		return fmt.Errorf("unknown keyword mode %q", q.Mode)
	}
	return nil
}

func (q Query) houses() []string {
	if len(q.Houses) == 0 {
		return []string{BothHouses}
	}
	return q.Houses
}

// committees returns "" as the wildcard entry.
func (q Query) committees() []string {
	if q.AllCommittees || len(q.Committees) == 0 {
		return []string{""}
	}
	return q.Committees
}

func (q Query) terms() []string {
	if q.Mode == ModeNone {
		return nil
	}
	var out []string
	for _, t := range q.Terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// termSets returns the keyword restriction of each speech combination.
// A single nil set means no restriction.
func (q Query) termSets() [][]string {
	terms := q.terms()
	switch {
	case len(terms) == 0:
		return [][]string{nil}
	case q.Mode == ModeAnd:
		return [][]string{terms}
	}
	sets := make([][]string, len(terms))
	for i, t := range terms {
		sets[i] = []string{t}
	}
	return sets
}

// combination is one independent paginated query.
type combination struct {
	house     string
	committee string
	terms     []string
}

// combinations expands houses × committees × term sets. Meeting queries never
// carry terms.
func (q Query) combinations() []combination {
	sets := [][]string{nil}
	if q.Kind == records.KindSpeech {
		sets = q.termSets()
	}
	var out []combination
	for _, h := range q.houses() {
		for _, c := range q.committees() {
			for _, ts := range sets {
				out = append(out, combination{house: h, committee: c, terms: ts})
			}
		}
	}
	return out
}

// params builds the query string for one page.
func (q Query) params(c combination, start int) url.Values {
	v := url.Values{}
	v.Set("recordPacking", "json")
	v.Set("maximumRecords", strconv.Itoa(PageSize))
	v.Set("startRecord", strconv.Itoa(start))
	v.Set("from", q.From)
	v.Set("until", q.Until)
	if c.committee != "" {
		v.Set("nameOfMeeting", c.committee)
	}
	if c.house != "" && c.house != BothHouses {
		v.Set("nameOfHouse", c.house)
	}
	if len(c.terms) > 0 {
		v.Set("any", strings.Join(c.terms, " "))
	}
	return v
}

// flattenParams keeps the first value of every key, for diagnostics.
func flattenParams(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}
