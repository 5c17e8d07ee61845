package ingest

import (
	"errors"
	"fmt"
)

// error kinds, match them with errors.Is
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConnection    = errors.New("connection error")
	ErrQuery         = errors.New("query error")
	ErrEmptyResult   = errors.New("empty result")
	ErrFileNotFound  = errors.New("file not found")
	ErrIngestion     = errors.New("ingestion error")
)

const (
	opParseURL   = "parse url"
	opNewEngine  = "create engine"
	opQuery      = "query"
	opIngestCSV  = "ingest csv"
	opIngestJSON = "ingest json"
)

// Error carries the kind of failure, the operation and the underlying cause
type Error struct {
	Kind error
	Op   string
	Err  error
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}
