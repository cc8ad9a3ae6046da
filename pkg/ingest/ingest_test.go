package ingest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/kokkai/pkg/db"
	"github.com/japaniel/kokkai/pkg/records"
)

func setupDB(t *testing.T) *sql.DB {
	conn, err := db.Open(db.MemoryDSN)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-02-03", "2025/02/03", "2025-02-03 10:00:00", "2025-02-03T10:00:00", "2025-02-03T10:00:00+09:00", "20250203"} {
		got, ok := ParseDate(in)
		assert.True(t, ok, in)
		assert.True(t, want.Equal(got), "%s parsed as %v", in, got)
	}
	for _, in := range []string{"", "  ", "令和7年2月3日", "2025-13-01"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(records.Speech{ID: "S1", Date: "2025-02-03", Text: "消費税について伺います。"})
	assert.Equal(t, db.UnknownHouse, got.House)
	assert.Equal(t, db.UnknownCommittee, got.Committee)
	assert.Equal(t, db.UnknownSpeaker, got.Speaker)
	assert.Equal(t, db.UnknownParty, got.Party)
	assert.Equal(t, 12, got.CharCount, "characters, not bytes")
	assert.True(t, got.Dated())

	got = Normalize(records.Speech{House: "参議院", Meeting: "本会議", Speaker: "佐藤花子", SpeakerGroup: "立憲民主党", Date: "不明"})
	assert.Equal(t, "参議院", got.House)
	assert.Equal(t, "本会議", got.Committee)
	assert.Equal(t, "佐藤花子", got.Speaker)
	assert.Equal(t, "立憲民主党", got.Party)
	assert.Zero(t, got.CharCount)
	assert.False(t, got.Dated())
}

const sampleCSV = records.BOM + `speech_id,date,nameOfHouse,nameOfMeeting,speaker,speakerGroup,speech,speechURL,issueID,meetingURL,billID
S1,2025-02-03,衆議院,予算委員会,山田太郎,自由民主党,消費税の引き上げについて,https://kokkai.ndl.go.jp/txt/1,I1,https://kokkai.ndl.go.jp/txt/I1,
S2,2025-02-10,参議院,厚生労働委員会,佐藤花子,,年金制度の持続性,,,,
S3,,,,,,,,,,
`

func TestLoad(t *testing.T) {
	conn := setupDB(t)
	l := NewLoader(conn, nil)
	l.BatchSize = 2
	var progress []int
	l.OnProgress = func(n int) { progress = append(progress, n) }

	stats, err := l.Load(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 3, Undated: 1, NoText: 1}, stats)
	assert.Equal(t, []int{1, 2, 3}, progress)

	rows, err := db.QuerySpeeches(conn, db.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "自由民主党", rows[0].Party)
	assert.Equal(t, "https://kokkai.ndl.go.jp/txt/1", rows[0].SpeechURL)
	assert.Equal(t, db.UnknownParty, rows[1].Party)
	assert.Equal(t, 8, rows[1].CharCount)
	assert.Equal(t, db.UnknownHouse, rows[2].House)
	assert.False(t, rows[2].Dated())
}

func TestLoadWithoutSpeechColumn(t *testing.T) {
	conn := setupDB(t)
	csv := "speech_id,date,speaker\nS1,2025-02-03,山田太郎\n"

	stats, err := NewLoader(conn, nil).Load(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rows)

	rows, err := db.QuerySpeeches(conn, db.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].CharCount)
	assert.Equal(t, db.UnknownCommittee, rows[0].Committee)
}

func TestLoadFile(t *testing.T) {
	conn := setupDB(t)
	path := filepath.Join(t.TempDir(), "speeches.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	stats, err := NewLoader(conn, nil).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rows)

	_, err = NewLoader(conn, nil).LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	conn := setupDB(t)

	_, err := NewLoader(conn, nil).Load(context.Background(), strings.NewReader(""))
	assert.Error(t, err, "empty input has no header")

	bad := "speech_id,speech\nS1,\"unterminated\n"
	_, err = NewLoader(conn, nil).Load(context.Background(), strings.NewReader(bad))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewLoader(conn, nil).Load(ctx, strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, context.Canceled)
}
