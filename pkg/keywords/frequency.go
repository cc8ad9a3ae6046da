package keywords

import "sort"

// TermCount is one tally entry. Seq is the order in which the term was first
// seen and breaks ties between equal counts.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
	Seq   int    `json:"-"`
}

// FrequencyTable counts term occurrences across a collection of texts.
// The zero value is not usable; call NewFrequencyTable.
type FrequencyTable struct {
	index   map[string]int
	entries []TermCount
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{index: make(map[string]int)}
}

// Add records one occurrence of term.
func (ft *FrequencyTable) Add(term string) {
	if i, ok := ft.index[term]; ok {
		ft.entries[i].Count++
		return
	}
	ft.index[term] = len(ft.entries)
	ft.entries = append(ft.entries, TermCount{Term: term, Count: 1, Seq: len(ft.entries)})
}

// AddText extracts terms from text with the default bounds and tallies them.
func (ft *FrequencyTable) AddText(text string) {
	for _, term := range Extract(text) {
		ft.Add(term)
	}
}

// Len returns the number of distinct terms.
func (ft *FrequencyTable) Len() int { return len(ft.entries) }

// Empty reports whether no term survived extraction.
func (ft *FrequencyTable) Empty() bool { return len(ft.entries) == 0 }

// Count returns the tally for term, 0 when unseen.
func (ft *FrequencyTable) Count(term string) int {
	if i, ok := ft.index[term]; ok {
		return ft.entries[i].Count
	}
	return 0
}

// Top returns the n most frequent terms, highest count first and ties in
// first-seen order. n <= 0 returns every entry.
func (ft *FrequencyTable) Top(n int) []TermCount {
	ranked := make([]TermCount, len(ft.entries))
	copy(ranked, ft.entries)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Seq < ranked[j].Seq
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// TopTerms is Top without the counts.
func (ft *FrequencyTable) TopTerms(n int) []string {
	top := ft.Top(n)
	out := make([]string, len(top))
	for i, tc := range top {
		out[i] = tc.Term
	}
	return out
}

// CountTerms tallies the terms of every text into a single table.
func CountTerms(texts []string) *FrequencyTable {
	ft := NewFrequencyTable()
	for _, text := range texts {
		ft.AddText(text)
	}
	return ft
}
