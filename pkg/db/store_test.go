package db

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	conn, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seed(t *testing.T, conn *sql.DB) {
	t.Helper()
	rows := []Speech{
		{SpeechID: "S1", Date: day("2025-02-03"), House: "衆議院", Committee: "予算委員会", Speaker: "山田太郎", Party: "自由民主党", Text: "消費税の引き上げについて", CharCount: 12},
		{SpeechID: "S2", Date: day("2025-02-10"), House: "参議院", Committee: "厚生労働委員会", Speaker: "佐藤花子", Party: "立憲民主党", Text: "年金とNISAの関係", CharCount: 10},
		{SpeechID: "S3", House: UnknownHouse, Committee: UnknownCommittee, Speaker: UnknownSpeaker, Party: UnknownParty, Text: "", CharCount: 0},
		{Date: day("2025-03-01"), House: "衆議院", Committee: "本会議", Speaker: "鈴木一郎", Party: "日本維新の会", Text: "防衛費と消費税", CharCount: 7},
	}
	for i := range rows {
		if _, err := InsertSpeech(conn, &rows[i]); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
}

func TestInitDBCreatesSpeechTable(t *testing.T) {
	conn := setupTestDB(t)

	rows, err := conn.Query("PRAGMA table_info(speeches)")
	if err != nil {
		t.Fatalf("pragma: %v", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	for _, c := range []string{"speech_id", "date", "house", "committee", "speaker", "party", "speech", "char_count"} {
		if !cols[c] {
			t.Fatalf("missing column %s in %v", c, cols)
		}
	}

	// migrations are idempotent
	if err := InitDB(conn); err != nil {
		t.Fatalf("second InitDB: %v", err)
	}
}

func TestInsertRejectsUnnormalisedRow(t *testing.T) {
	conn := setupTestDB(t)
	if _, err := InsertSpeech(conn, &Speech{SpeechID: "S1", Speaker: "山田太郎"}); err == nil {
		t.Fatal("expected error for row without placeholders")
	}
}

func TestQueryRoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	seed(t, conn)

	n, err := CountSpeeches(conn)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 rows, got %d", n)
	}

	all, err := QuerySpeeches(conn, Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(all))
	}
	if all[0].SpeechID != "S1" || !all[0].Date.Equal(day("2025-02-03")) || all[0].CharCount != 12 {
		t.Fatalf("unexpected first row %+v", all[0])
	}
	if all[2].Dated() {
		t.Fatalf("row without date came back dated: %+v", all[2])
	}
	if all[3].SpeechID != "" {
		t.Fatalf("expected empty speech id, got %q", all[3].SpeechID)
	}
}

func TestQueryFilters(t *testing.T) {
	conn := setupTestDB(t)
	seed(t, conn)

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"date range drops undated", Filter{From: day("2025-02-01"), Until: day("2025-02-28")}, []string{"山田太郎", "佐藤花子"}},
		{"until is inclusive", Filter{Until: day("2025-02-03")}, []string{"山田太郎"}},
		{"house allow-list", Filter{Houses: []string{"衆議院"}}, []string{"山田太郎", "鈴木一郎"}},
		{"committee allow-list", Filter{Committees: []string{"厚生労働委員会", "本会議"}}, []string{"佐藤花子", "鈴木一郎"}},
		{"keywords any match", Filter{Keywords: []string{"防衛費", "年金"}}, []string{"佐藤花子", "鈴木一郎"}},
		{"keywords ignore case", Filter{Keywords: []string{"nisa"}}, []string{"佐藤花子"}},
		{"blank keywords ignored", Filter{Keywords: []string{" "}}, []string{"山田太郎", "佐藤花子", UnknownSpeaker, "鈴木一郎"}},
		{"combined", Filter{Houses: []string{"衆議院"}, Keywords: []string{"消費税"}, From: day("2025-02-15")}, []string{"鈴木一郎"}},
		{"no match", Filter{Houses: []string{"両院協議会"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuerySpeeches(conn, tt.f)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			var speakers []string
			for _, s := range got {
				speakers = append(speakers, s.Speaker)
			}
			if len(speakers) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, speakers)
			}
			for i := range speakers {
				if speakers[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, speakers)
				}
			}
		})
	}
}

func TestGetFacets(t *testing.T) {
	conn := setupTestDB(t)
	seed(t, conn)

	f, err := GetFacets(conn)
	if err != nil {
		t.Fatalf("facets: %v", err)
	}
	if len(f.Houses) != 2 || f.Houses[0] != "参議院" || f.Houses[1] != "衆議院" {
		t.Fatalf("unexpected houses %v", f.Houses)
	}
	for _, c := range f.Committees {
		if c == UnknownCommittee {
			t.Fatalf("placeholder committee leaked into facets: %v", f.Committees)
		}
	}
	if len(f.Committees) != 3 {
		t.Fatalf("unexpected committees %v", f.Committees)
	}
	if !f.MinDate.Equal(day("2025-02-03")) || !f.MaxDate.Equal(day("2025-03-01")) {
		t.Fatalf("unexpected range %v..%v", f.MinDate, f.MaxDate)
	}
}

func TestGetFacetsCapsCommittees(t *testing.T) {
	conn := setupTestDB(t)
	for i := 0; i < MaxCommitteeFacets+5; i++ {
		s := Speech{House: "衆議院", Committee: string(rune('あ'+i)) + "委員会", Speaker: "山田太郎", Party: "自由民主党"}
		if _, err := InsertSpeech(conn, &s); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	f, err := GetFacets(conn)
	if err != nil {
		t.Fatalf("facets: %v", err)
	}
	if len(f.Committees) != MaxCommitteeFacets {
		t.Fatalf("expected %d committees, got %d", MaxCommitteeFacets, len(f.Committees))
	}
	if f.Committees[0] != "あ委員会" {
		t.Fatalf("expected sorted committees, got %v", f.Committees)
	}
	if !f.MinDate.IsZero() {
		t.Fatalf("expected no date range, got %v", f.MinDate)
	}
}
