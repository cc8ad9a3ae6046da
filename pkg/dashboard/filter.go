package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/kokkai/pkg/db"
	"github.com/japaniel/kokkai/pkg/kokkai"
)

// FilterParams is the text form of a filter as typed on the command line or
// sent as query parameters.
type FilterParams struct {
	From       string   `query:"from" json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Until      string   `query:"until" json:"until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Houses     []string `query:"house" json:"houses,omitempty" validate:"dive,required"`
	Committees []string `query:"committee" json:"committees,omitempty" validate:"dive,required"`
	// Q holds space separated keywords.
	Q string `query:"q" json:"q,omitempty"`
}

// Filter parses p.
func (p FilterParams) Filter() (db.Filter, error) {
	var f db.Filter
	var err error
	if f.From, err = parseDay(p.From); err != nil {
		return db.Filter{}, fmt.Errorf("from: %w", err)
	}
	if f.Until, err = parseDay(p.Until); err != nil {
		return db.Filter{}, fmt.Errorf("until: %w", err)
	}
	if !f.From.IsZero() && !f.Until.IsZero() && f.Until.Before(f.From) {
		return db.Filter{}, fmt.Errorf("until %s is before from %s", p.Until, p.From)
	}
	f.Houses = nonBlank(p.Houses)
	f.Committees = nonBlank(p.Committees)
	f.Keywords = kokkai.SplitTerms(p.Q)
	return f, nil
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(db.DateLayout, s)
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
