package ingest

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/goph/emperror"
)

// Query executes query on a dedicated connection and materializes the complete result.
// The query is passed to the database as is, the caller is responsible for safe interpolation.
// A result without rows yields ErrEmptyResult, every other failure ErrQuery.
func (e *Engine) Query(ctx context.Context, query string) (*Table, error) {
	table, err := e.query(ctx, query)
	if err != nil {
		if errors.Is(err, ErrEmptyResult) {
			e.logger.Errorf("sql query failed: %v", err)
		} else {
			e.logger.Errorf("an error occurred while querying the database: %v", err)
		}
		return nil, err
	}
	e.logger.Infof("query executed successfully: %s rows, %d columns", humanize.Comma(int64(table.Len())), table.Width())
	return table, nil
}

func (e *Engine) query(ctx context.Context, query string) (*Table, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, newError(ErrQuery, opQuery, emperror.Wrapf(err, "cannot get connection to %s", e.source.URL))
	}
	defer conn.Close()

	e.logger.Debugf("query %s: %s", e.source.URL, query)
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, newError(ErrQuery, opQuery, emperror.Wrap(err, "cannot execute query"))
	}
	defer rows.Close()

	table, err := scanTable(rows)
	if err != nil {
		return nil, newError(ErrQuery, opQuery, err)
	}
	if table.Len() == 0 {
		return nil, newError(ErrEmptyResult, opQuery, errors.New("the query returned an empty table"))
	}
	return table, nil
}

func scanTable(rows *sql.Rows) (*Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, emperror.Wrap(err, "cannot get columns")
	}
	table := NewTable(columns)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, emperror.Wrapf(err, "cannot scan row %d", table.Len())
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, emperror.Wrap(err, "cannot iterate rows")
	}
	return table, nil
}
