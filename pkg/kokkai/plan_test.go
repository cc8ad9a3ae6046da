package kokkai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/kokkai/pkg/records"
)

func TestParsePlan(t *testing.T) {
	doc := `
kind: speech
from: 2025-01-23
until: 2025-08-05
houses: [衆議院]
committees:
  - 予算委員会
mode: AND
terms: [消費税]
keywords: 税制 外国
`
	q, err := ParsePlan([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, Query{
		Kind:       records.KindSpeech,
		From:       "2025-01-23",
		Until:      "2025-08-05",
		Houses:     []string{"衆議院"},
		Committees: []string{"予算委員会"},
		Terms:      []string{"消費税", "税制", "外国"},
		Mode:       ModeAnd,
	}, q)
	assert.NoError(t, q.Validate())
}

func TestParsePlanDefaults(t *testing.T) {
	q, err := ParsePlan([]byte("from: 2025-01-01\nuntil: 2025-01-31\n"))
	require.NoError(t, err)
	assert.Equal(t, records.KindSpeech, q.Kind)
	assert.Equal(t, ModeOr, q.Mode)
	assert.Empty(t, q.Terms)
}

func TestParsePlanMeetingList(t *testing.T) {
	q, err := ParsePlan([]byte("kind: meeting_list\nall_committees: true\nfrom: 2025-01-01\nuntil: 2025-01-31\n"))
	require.NoError(t, err)
	assert.Equal(t, records.KindMeeting, q.Kind)
	assert.True(t, q.AllCommittees)
}

func TestParsePlanErrors(t *testing.T) {
	_, err := ParsePlan([]byte("kind: transcript\n"))
	assert.Error(t, err)

	_, err = ParsePlan([]byte("mode: sometimes\n"))
	assert.Error(t, err)

	_, err = ParsePlan([]byte("houses: {"))
	assert.Error(t, err)
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("from: 2025-03-01\nuntil: 2025-03-31\nmode: none\n"), 0o644))

	q, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, ModeNone, q.Mode)
	assert.Equal(t, "2025-03-01", q.From)

	_, err = LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
