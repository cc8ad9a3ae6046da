package keywords

import "sort"

// Document is one text body tagged with its grouping label (usually party).
type Document struct {
	Group string
	Text  string
}

// Cell is one (group, term) count of a ContingencyTable.
type Cell struct {
	Group string `json:"party"`
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// ContingencyTable is a dense group × term matrix. Cells are laid out group
// major, following Groups and Terms order.
type ContingencyTable struct {
	Groups []string `json:"parties"`
	Terms  []string `json:"terms"`
	Cells  []Cell   `json:"cells"`
}

// Empty reports whether the table carries no cells.
func (ct *ContingencyTable) Empty() bool { return ct == nil || len(ct.Cells) == 0 }

// Total sums every cell.
func (ct *ContingencyTable) Total() int {
	total := 0
	for _, c := range ct.Cells {
		total += c.Count
	}
	return total
}

// Truncate returns a copy restricted to the first n terms of the term axis
// and reports whether any term was dropped.
func (ct *ContingencyTable) Truncate(n int) (*ContingencyTable, bool) {
	if ct.Empty() || n <= 0 || len(ct.Terms) <= n {
		return ct, false
	}
	keep := make(map[string]struct{}, n)
	for _, t := range ct.Terms[:n] {
		keep[t] = struct{}{}
	}
	out := &ContingencyTable{
		Groups: ct.Groups,
		Terms:  append([]string(nil), ct.Terms[:n]...),
		Cells:  make([]Cell, 0, len(ct.Groups)*n),
	}
	for _, c := range ct.Cells {
		if _, ok := keep[c.Term]; ok {
			out.Cells = append(out.Cells, c)
		}
	}
	return out, true
}

// ranked is an axis label with its total and tie-break position.
type ranked struct {
	label string
	total int
	seq   int
}

func orderAxis(items []ranked) []string {
	sort.Slice(items, func(i, j int) bool {
		if items[i].total != items[j].total {
			return items[i].total > items[j].total
		}
		return items[i].seq < items[j].seq
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.label
	}
	return out
}

// BuildContingency cross-tabulates focus-term occurrences by document group.
// Terms are ordered by total count (ties by focus order), groups by total
// count (ties by first appearance). Every group present in docs appears,
// including groups with no focus-term hit. An empty focus set or an empty
// document list yields an empty table.
func BuildContingency(docs []Document, focus []string) *ContingencyTable {
	if len(docs) == 0 || len(focus) == 0 {
		return &ContingencyTable{}
	}

	termSeq := make(map[string]int, len(focus))
	for _, t := range focus {
		if _, ok := termSeq[t]; !ok {
			termSeq[t] = len(termSeq)
		}
	}

	groupSeq := make(map[string]int)
	counts := make(map[string]map[string]int)
	for _, d := range docs {
		if _, ok := groupSeq[d.Group]; !ok {
			groupSeq[d.Group] = len(groupSeq)
			counts[d.Group] = make(map[string]int)
		}
		row := counts[d.Group]
		for _, term := range Extract(d.Text) {
			if _, ok := termSeq[term]; ok {
				row[term]++
			}
		}
	}

	termTotals := make(map[string]int, len(termSeq))
	groups := make([]ranked, 0, len(groupSeq))
	for g, seq := range groupSeq {
		total := 0
		for term, n := range counts[g] {
			total += n
			termTotals[term] += n
		}
		groups = append(groups, ranked{label: g, total: total, seq: seq})
	}
	terms := make([]ranked, 0, len(termSeq))
	for t, seq := range termSeq {
		terms = append(terms, ranked{label: t, total: termTotals[t], seq: seq})
	}

	ct := &ContingencyTable{
		Groups: orderAxis(groups),
		Terms:  orderAxis(terms),
	}
	ct.Cells = make([]Cell, 0, len(ct.Groups)*len(ct.Terms))
	for _, g := range ct.Groups {
		for _, t := range ct.Terms {
			ct.Cells = append(ct.Cells, Cell{Group: g, Term: t, Count: counts[g][t]})
		}
	}
	return ct
}
