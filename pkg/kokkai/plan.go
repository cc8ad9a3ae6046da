package kokkai

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/japaniel/kokkai/pkg/records"
)

// plan is the YAML shape of a saved fetch. Keywords may be given either as a
// list under terms or as one space separated string under keywords.
type plan struct {
	Kind          string   `yaml:"kind"`
	From          string   `yaml:"from"`
	Until         string   `yaml:"until"`
	Houses        []string `yaml:"houses"`
	Committees    []string `yaml:"committees"`
	AllCommittees bool     `yaml:"all_committees"`
	Terms         []string `yaml:"terms"`
	Keywords      string   `yaml:"keywords"`
	Mode          string   `yaml:"mode"`
}

// LoadPlan reads a fetch plan such as:
//
//	kind: speech
//	from: 2025-01-23
//	until: 2025-08-05
//	houses: [衆議院]
//	mode: OR
//	keywords: 消費税 税制 外国
func LoadPlan(path string) (Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Query{}, err
	}
	return ParsePlan(data)
}

// ParsePlan decodes a plan document. Missing kind and mode default to speech
// and OR.
func ParsePlan(data []byte) (Query, error) {
	var p plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Query{}, fmt.Errorf("parse plan: %w", err)
	}
	q := Query{
		From:          p.From,
		Until:         p.Until,
		Houses:        p.Houses,
		Committees:    p.Committees,
		AllCommittees: p.AllCommittees,
		Terms:         p.Terms,
	}

	kind, err := records.ParseKind(strings.TrimSpace(p.Kind))
	if err != nil {
		return Query{}, err
	}
	q.Kind = kind

	mode, err := ParseMode(p.Mode)
	if err != nil {
		return Query{}, err
	}
	q.Mode = mode

	q.Terms = append(q.Terms, SplitTerms(p.Keywords)...)
	return q, nil
}
