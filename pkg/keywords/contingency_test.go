package keywords

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleDocs() []Document {
	return []Document{
		{Group: "自由民主党", Text: "防衛費の増額と消費税について"},
		{Group: "立憲民主党", Text: "消費税の減税を求めます。消費税は逆進的です"},
		{Group: "自由民主党", Text: "防衛費は必要です"},
		{Group: "日本維新の会", Text: "本日は晴天です"},
		{Group: "立憲民主党", Text: "年金と制度と防衛費"},
	}
}

func TestBuildContingencyDense(t *testing.T) {
	docs := sampleDocs()
	focus := []string{"防衛費", "消費税", "年金"}
	ct := BuildContingency(docs, focus)

	if got, want := len(ct.Cells), len(focus)*3; got != want {
		t.Fatalf("expected %d cells, got %d", want, got)
	}

	// Totals: 立憲 = 消費税×2 + 年金 + 防衛費 = 4, 自民 = 防衛費×2 + 消費税 = 3, 維新 = 0.
	if diff := cmp.Diff([]string{"立憲民主党", "自由民主党", "日本維新の会"}, ct.Groups); diff != "" {
		t.Fatalf("group order (-want +got):\n%s", diff)
	}
	// 防衛費 = 3, 消費税 = 3 (tie broken by focus order), 年金 = 1.
	if diff := cmp.Diff([]string{"防衛費", "消費税", "年金"}, ct.Terms); diff != "" {
		t.Fatalf("term order (-want +got):\n%s", diff)
	}

	want := []Cell{
		{"立憲民主党", "防衛費", 1}, {"立憲民主党", "消費税", 2}, {"立憲民主党", "年金", 1},
		{"自由民主党", "防衛費", 2}, {"自由民主党", "消費税", 1}, {"自由民主党", "年金", 0},
		{"日本維新の会", "防衛費", 0}, {"日本維新の会", "消費税", 0}, {"日本維新の会", "年金", 0},
	}
	if diff := cmp.Diff(want, ct.Cells); diff != "" {
		t.Fatalf("cells (-want +got):\n%s", diff)
	}
}

func TestBuildContingencySumMatchesFocusHits(t *testing.T) {
	docs := sampleDocs()
	focus := []string{"防衛費", "消費税"}
	ct := BuildContingency(docs, focus)

	in := map[string]bool{"防衛費": true, "消費税": true}
	expected := 0
	for _, d := range docs {
		for _, term := range Extract(d.Text) {
			if in[term] {
				expected++
			}
		}
	}
	if ct.Total() != expected {
		t.Fatalf("expected total %d, got %d", expected, ct.Total())
	}
	for _, c := range ct.Cells {
		if c.Count < 0 {
			t.Fatalf("negative count in %+v", c)
		}
	}
}

func TestBuildContingencyDegenerate(t *testing.T) {
	if ct := BuildContingency(nil, []string{"防衛費"}); !ct.Empty() {
		t.Fatalf("expected empty table for no documents, got %+v", ct)
	}
	if ct := BuildContingency(sampleDocs(), nil); !ct.Empty() {
		t.Fatalf("expected empty table for no focus terms, got %+v", ct)
	}
}

func TestBuildContingencyDuplicateFocus(t *testing.T) {
	ct := BuildContingency(sampleDocs(), []string{"防衛費", "防衛費"})
	if len(ct.Terms) != 1 || len(ct.Cells) != 3 {
		t.Fatalf("duplicate focus terms must collapse, got terms=%v cells=%d", ct.Terms, len(ct.Cells))
	}
}

func TestTruncate(t *testing.T) {
	ct := BuildContingency(sampleDocs(), []string{"防衛費", "消費税", "年金"})

	same, cut := ct.Truncate(20)
	if cut || same != ct {
		t.Fatal("expected no truncation below the limit")
	}

	short, cut := ct.Truncate(2)
	if !cut {
		t.Fatal("expected truncation")
	}
	if diff := cmp.Diff([]string{"防衛費", "消費税"}, short.Terms); diff != "" {
		t.Fatalf("truncated terms (-want +got):\n%s", diff)
	}
	if len(short.Cells) != 2*len(short.Groups) {
		t.Fatalf("expected %d cells, got %d", 2*len(short.Groups), len(short.Cells))
	}
	if len(ct.Terms) != 3 {
		t.Fatal("Truncate must not modify the receiver")
	}
}
