package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	table := NewTable([]string{"id", "name", "created"})
	table.Rows = append(table.Rows,
		[]any{int64(1), "TechXT", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		[]any{int64(2), nil, nil},
		[]any{int64(3), "bagarc", nil},
	)
	return table
}

func TestTableAccess(t *testing.T) {
	table := sampleTable()
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 3, table.Width())
	assert.Equal(t, 1, table.ColumnIndex("name"))
	assert.Equal(t, -1, table.ColumnIndex("missing"))

	ids, err := table.Column("id")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, ids)
	_, err = table.Column("missing")
	assert.Error(t, err)

	v, err := table.Value(2, "name")
	require.NoError(t, err)
	assert.Equal(t, "bagarc", v)
	_, err = table.Value(3, "name")
	assert.Error(t, err)
	_, err = table.Value(0, "missing")
	assert.Error(t, err)

	records := table.Records()
	require.Len(t, records, 3)
	assert.Equal(t, map[string]any{"id": int64(2), "name": nil, "created": nil}, records[1])
}

func TestTableHead(t *testing.T) {
	table := sampleTable()
	assert.Equal(t, 2, table.Head(2).Len())
	assert.Equal(t, 3, table.Head(10).Len())
	assert.Equal(t, 3, table.Head(-1).Len())
	assert.Equal(t, 0, table.Head(0).Len())
	assert.Equal(t, table.Columns, table.Head(1).Columns)
}

func TestTablePrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().Print(&buf, 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"id", "name", "created"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "TechXT", "2024-03-01T12:00:00Z"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "NULL", "NULL"}, strings.Fields(lines[2]))
	assert.Equal(t, "(3 rows, 3 columns)", lines[3])
}

func TestTablePrintLarge(t *testing.T) {
	table := NewTable([]string{"n"})
	for i := 0; i < 1500; i++ {
		table.Rows = append(table.Rows, []any{i})
	}
	var buf bytes.Buffer
	require.NoError(t, table.Print(&buf, 0))
	assert.Equal(t, "n\n(1,500 rows, 1 columns)\n", buf.String())
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	err := newError(ErrQuery, opQuery, cause)
	assert.ErrorIs(t, err, ErrQuery)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConnection)
	assert.Equal(t, "query: query error: boom", err.Error())

	wrapped := fmt.Errorf("outer: %w", err)
	var ingestErr *Error
	require.True(t, errors.As(wrapped, &ingestErr))
	assert.Equal(t, ErrQuery, ingestErr.Kind)
	assert.Equal(t, "query", ingestErr.Op)

	assert.Equal(t, "create engine: connection error", newError(ErrConnection, opNewEngine, nil).Error())
}
