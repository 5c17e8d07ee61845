package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = logging.MustGetLogger("ledger_test")

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger"), testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndLast(t *testing.T) {
	l := openLedger(t)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(&Entry{Location: "data/a.csv", Kind: "csv", Rows: 2, Columns: 2, Size: 12,
		Checksums: map[string]string{"sha256": "aa"}, Time: base}))
	require.NoError(t, l.Record(&Entry{Location: "data/a.csv", Kind: "csv", Rows: 3, Columns: 2, Size: 16,
		Checksums: map[string]string{"sha256": "bb"}, Time: base.Add(time.Hour)}))
	require.NoError(t, l.Record(&Entry{Location: "data/a.csv:old", Kind: "csv", Rows: 1, Time: base.Add(2 * time.Hour)}))

	last, err := l.Last("data/a.csv")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 3, last.Rows)
	assert.Equal(t, "bb", last.Checksums["sha256"])
	assert.True(t, last.Time.Equal(base.Add(time.Hour)))

	history, err := l.History("data/a.csv")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Rows)

	all, err := l.All()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLastUnknown(t *testing.T) {
	l := openLedger(t)
	last, err := l.Last("never/seen.csv")
	assert.NoError(t, err)
	assert.Nil(t, last)
}

func TestRecordSameTime(t *testing.T) {
	l := openLedger(t)
	ts := time.Now()
	require.NoError(t, l.Record(&Entry{Location: "q", Kind: "query", Rows: 1, Time: ts}))
	require.NoError(t, l.Record(&Entry{Location: "q", Kind: "query", Rows: 2, Time: ts}))

	history, err := l.History("q")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[1].Rows)
}

func TestRecordDefaults(t *testing.T) {
	l := openLedger(t)
	assert.Error(t, l.Record(&Entry{Kind: "csv"}))

	e := &Entry{Location: "x.json", Kind: "json"}
	require.NoError(t, l.Record(e))
	assert.False(t, e.Time.IsZero())
}

func TestReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")
	l, err := Open(dir, testLogger)
	require.NoError(t, err)
	require.NoError(t, l.Record(&Entry{Location: "x.csv", Kind: "csv", Rows: 7}))
	require.NoError(t, l.Close())

	l, err = Open(dir, nil)
	require.NoError(t, err)
	defer l.Close()
	last, err := l.Last("x.csv")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 7, last.Rows)
}

func TestChanged(t *testing.T) {
	last := &Entry{Checksums: map[string]string{"sha256": "ABC", "md5": "01"}}
	assert.False(t, Changed(last, map[string]string{"sha256": "abc"}))
	assert.True(t, Changed(last, map[string]string{"sha256": "abd"}))
	assert.True(t, Changed(last, map[string]string{"sha512": "abc"}))
	assert.True(t, Changed(nil, map[string]string{"sha256": "abc"}))
}
