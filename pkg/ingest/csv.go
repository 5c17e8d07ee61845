package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goph/emperror"
	"github.com/je4/dataingest/pkg/checksum"
	"github.com/je4/dataingest/pkg/source"
	"github.com/op/go-logging"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type CSVOptions struct {
	Delimiter  rune
	Comment    rune // lines starting with Comment are ignored, 0 disables
	Encoding   string
	LazyQuotes bool
	// InferTypes converts columns to int64 or float64 if all values allow it, empty cells become nil
	InferTypes bool
	// Checksums of the raw file, stored in Table.Origin
	Checksums []string
	S3        *source.S3Config
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:  ',',
		Encoding:   "utf-8",
		InferTypes: true,
	}
}

// textDecoder returns a decoder for the encoding name, utf-8 and utf-16 byte order marks are removed.
// utf-8 input is validated, not repaired.
func textDecoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "utf-8-sig":
		// invalid bytes are an error instead of U+FFFD
		return &encoding.Decoder{Transformer: encoding.UTF8Validator}, nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "latin9", "iso-8859-15":
		return charmap.ISO8859_15.NewDecoder(), nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252.NewDecoder(), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("cannot handle encoding %s", name)
	}
	return enc.NewDecoder(), nil
}

// columnNames derives unique column names from the header record
func columnNames(header []string) []string {
	names := make([]string, len(header))
	used := map[string]bool{}
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindString
)

func inferColumn(rows [][]any, col int) columnKind {
	kind := kindInt
	for _, row := range rows {
		s := row[col].(string)
		if s == "" {
			continue
		}
		if kind == kindInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				kind = kindFloat
			}
		}
		if kind == kindFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return kindString
			}
		}
	}
	return kind
}

func inferTypes(t *Table) {
	for col := range t.Columns {
		kind := inferColumn(t.Rows, col)
		for _, row := range t.Rows {
			s := row[col].(string)
			if s == "" {
				row[col] = nil
				continue
			}
			switch kind {
			case kindInt:
				row[col], _ = strconv.ParseInt(s, 10, 64)
			case kindFloat:
				row[col], _ = strconv.ParseFloat(s, 64)
			}
		}
	}
}

// ReadCSV parses delimited text with a header row
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	dec, err := textDecoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	// byte order marks are removed in all encodings
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(dec)))
	reader.Comma = opts.Delimiter
	if reader.Comma == 0 {
		reader.Comma = ','
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("no columns to parse from file")
		}
		return nil, emperror.Wrap(err, "cannot read header")
	}
	table := NewTable(columnNames(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, emperror.Wrap(err, "cannot read record")
		}
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		table.Rows = append(table.Rows, row)
	}
	if opts.InferTypes {
		inferTypes(table)
	}
	return table, nil
}

// IngestCSV reads the csv file at location (local path, file://, zip member, http(s) or s3 url).
// A missing file yields ErrFileNotFound, every other failure ErrIngestion.
// Both are logged and returned, no partial table is returned.
func IngestCSV(ctx context.Context, location string, opts CSVOptions, logger *logging.Logger) (*Table, error) {
	logger = ensureLogger(logger)
	table, err := ingestCSV(ctx, location, opts)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			logger.Errorf("csv file '%s' not found", location)
		} else {
			logger.Errorf("an error occurred while ingesting csv data: %v", err)
		}
		return nil, err
	}
	logger.Infof("csv data ingested successfully from %s: %s rows, %d columns, %s",
		location,
		humanize.Comma(int64(table.Len())),
		table.Width(),
		humanize.Bytes(uint64(table.Origin.Size)))
	return table, nil
}

func ingestCSV(ctx context.Context, location string, opts CSVOptions) (*Table, error) {
	res, err := source.Open(ctx, location, opts.S3)
	if err != nil {
		if source.IsNotExist(err) {
			return nil, newError(ErrFileNotFound, opIngestCSV, err)
		}
		return nil, newError(ErrIngestion, opIngestCSV, err)
	}
	defer res.Close()

	sums, err := checksum.NewReader(res, opts.Checksums)
	if err != nil {
		return nil, newError(ErrIngestion, opIngestCSV, err)
	}
	table, err := ReadCSV(sums, opts)
	if err != nil {
		return nil, newError(ErrIngestion, opIngestCSV, emperror.Wrapf(err, "cannot parse %s", location))
	}
	// checksums cover the complete file
	if _, err := io.Copy(io.Discard, sums); err != nil {
		return nil, newError(ErrIngestion, opIngestCSV, emperror.Wrapf(err, "cannot read %s", location))
	}
	table.Origin = &Origin{
		Location:  location,
		Size:      sums.Size(),
		Checksums: sums.Sums(),
		Loaded:    time.Now(),
	}
	return table, nil
}
