package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goph/emperror"
	"github.com/je4/dataingest/pkg/checksum"
	"github.com/je4/dataingest/pkg/source"
	"github.com/op/go-logging"
)

// jsonBuilder collects objects into a table, columns appear in first seen order
type jsonBuilder struct {
	table *Table
	index map[string]int
}

func (b *jsonBuilder) add(keys []string, values []any) {
	row := make([]any, len(b.table.Columns), len(b.table.Columns)+len(keys))
	for i, key := range keys {
		idx, ok := b.index[key]
		if !ok {
			idx = len(b.table.Columns)
			b.index[key] = idx
			b.table.Columns = append(b.table.Columns, key)
			row = append(row, nil)
		}
		row[idx] = values[i]
	}
	b.table.Rows = append(b.table.Rows, row)
}

// finish pads rows created before later columns appeared
func (b *jsonBuilder) finish() *Table {
	width := len(b.table.Columns)
	for i, row := range b.table.Rows {
		for len(row) < width {
			row = append(row, nil)
		}
		b.table.Rows[i] = row
	}
	return b.table
}

func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, e := range val {
			val[k] = normalizeJSON(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = normalizeJSON(e)
		}
		return val
	default:
		return v
	}
}

// readObject reads the members of an object whose opening brace is already consumed
func readObject(dec *json.Decoder) ([]string, []any, error) {
	var keys []string
	var values []any
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, emperror.Wrap(err, "cannot read object key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("invalid object key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, emperror.Wrapf(err, "cannot read value of %s", key)
		}
		keys = append(keys, key)
		values = append(values, normalizeJSON(value))
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, emperror.Wrap(err, "cannot read end of object")
	}
	return keys, values, nil
}

// ReadJSON reads an array of objects (one row per object) or a single object (one row)
func ReadJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	b := &jsonBuilder{
		table: NewTable([]string{}),
		index: map[string]int{},
	}
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("no json document")
		}
		return nil, emperror.Wrap(err, "cannot read json document")
	}
	switch tok {
	case json.Delim('{'):
		keys, values, err := readObject(dec)
		if err != nil {
			return nil, err
		}
		b.add(keys, values)
	case json.Delim('['):
		for num := 0; dec.More(); num++ {
			tok, err := dec.Token()
			if err != nil {
				return nil, emperror.Wrapf(err, "cannot read element %d", num)
			}
			if tok != json.Delim('{') {
				return nil, fmt.Errorf("element %d is not an object", num)
			}
			keys, values, err := readObject(dec)
			if err != nil {
				return nil, emperror.Wrapf(err, "cannot read element %d", num)
			}
			b.add(keys, values)
		}
		if _, err := dec.Token(); err != nil {
			return nil, emperror.Wrap(err, "cannot read end of array")
		}
	default:
		return nil, fmt.Errorf("json document must be an object or an array of objects, not %v", tok)
	}
	// a second document or garbage would be dropped silently
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, emperror.Wrap(err, "unexpected data after json document")
		}
		return nil, fmt.Errorf("unexpected data after json document: %v", tok)
	}
	return b.finish(), nil
}

type JSONOptions struct {
	// Checksums of the raw document, stored in Table.Origin
	Checksums []string
	S3        *source.S3Config
}

// IngestJSON loads json records from location, usually a http(s) url.
// A missing resource yields ErrFileNotFound, every other failure ErrIngestion.
func IngestJSON(ctx context.Context, location string, opts JSONOptions, logger *logging.Logger) (*Table, error) {
	logger = ensureLogger(logger)
	table, err := ingestJSON(ctx, location, opts)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			logger.Errorf("json resource '%s' not found", location)
		} else {
			logger.Errorf("an error occurred while ingesting json data: %v", err)
		}
		return nil, err
	}
	logger.Infof("json data ingested successfully from %s: %s rows, %d columns, %s",
		location,
		humanize.Comma(int64(table.Len())),
		table.Width(),
		humanize.Bytes(uint64(table.Origin.Size)))
	return table, nil
}

func ingestJSON(ctx context.Context, location string, opts JSONOptions) (*Table, error) {
	res, err := source.Open(ctx, location, opts.S3)
	if err != nil {
		if source.IsNotExist(err) {
			return nil, newError(ErrFileNotFound, opIngestJSON, err)
		}
		return nil, newError(ErrIngestion, opIngestJSON, err)
	}
	defer res.Close()

	sums, err := checksum.NewReader(res, opts.Checksums)
	if err != nil {
		return nil, newError(ErrIngestion, opIngestJSON, err)
	}
	table, err := ReadJSON(sums)
	if err != nil {
		return nil, newError(ErrIngestion, opIngestJSON, emperror.Wrapf(err, "cannot parse %s", location))
	}
	// checksums cover the complete document
	if _, err := io.Copy(io.Discard, sums); err != nil {
		return nil, newError(ErrIngestion, opIngestJSON, emperror.Wrapf(err, "cannot read %s", location))
	}
	table.Origin = &Origin{
		Location:  location,
		Size:      sums.Size(),
		Checksums: sums.Sums(),
		Loaded:    time.Now(),
	}
	return table, nil
}
