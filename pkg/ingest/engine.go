// Package ingest loads query results and data files into in-memory tables.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goph/emperror"
	"github.com/op/go-logging"
)

// Engine is a handle to a relational database
type Engine struct {
	db     *sql.DB
	source *DataSource
	logger *logging.Logger
	// keeps an in memory database alive while connections come and go
	pin *sql.Conn
}

type EngineOption func(db *sql.DB)

// WithConnMaxLifetime limits the lifetime of connections held by database/sql
func WithConnMaxLifetime(d time.Duration) EngineOption {
	return func(db *sql.DB) {
		db.SetConnMaxLifetime(d)
	}
}

func ensureLogger(logger *logging.Logger) *logging.Logger {
	if logger == nil {
		return logging.MustGetLogger("dataingest")
	}
	return logger
}

// NewEngine opens the database described by dbURL (see ParseURL) and verifies it
// by opening and closing one connection.
// The database/sql driver of the dialect has to be imported by the caller,
// otherwise ErrConfiguration is returned. All other failures yield ErrConnection.
func NewEngine(ctx context.Context, dbURL string, logger *logging.Logger, opts ...EngineOption) (*Engine, error) {
	logger = ensureLogger(logger)
	ds, err := ParseURL(dbURL)
	if err != nil {
		logger.Errorf("failed to create database engine: %v", err)
		return nil, err
	}
	if !driverRegistered(ds.Driver) {
		err := newError(ErrConfiguration, opNewEngine,
			fmt.Errorf("database driver %s for dialect %s is not available - import it first", ds.Driver, ds.Dialect))
		logger.Errorf("failed to create database engine: %v", err)
		return nil, err
	}
	dsn := ds.DSN
	if ds.Memory {
		dsn = memoryDSN()
	}
	db, err := sql.Open(ds.Driver, dsn)
	if err != nil {
		// don't write dsn in error message due to password inside
		err := newError(ErrConnection, opNewEngine, emperror.Wrapf(err, "cannot open database %s", ds.URL))
		logger.Errorf("failed to create database engine: %v", err)
		return nil, err
	}
	for _, opt := range opts {
		opt(db)
	}
	engine := &Engine{
		db:     db,
		source: ds,
		logger: logger,
	}
	if err := engine.probe(ctx); err != nil {
		db.Close()
		logger.Errorf("failed to create database engine: %v", err)
		return nil, err
	}
	if ds.Memory {
		if engine.pin, err = db.Conn(ctx); err != nil {
			db.Close()
			err := newError(ErrConnection, opNewEngine, emperror.Wrapf(err, "cannot connect to %s", ds.URL))
			logger.Errorf("failed to create database engine: %v", err)
			return nil, err
		}
	}
	logger.Infof("database engine for %s created successfully", ds.URL)
	return engine, nil
}

// WrapDB creates an Engine for an already opened database, dialectName is informational only.
// The connection is verified like in NewEngine, db is not closed on failure.
func WrapDB(ctx context.Context, db *sql.DB, dialectName string, logger *logging.Logger) (*Engine, error) {
	logger = ensureLogger(logger)
	engine := &Engine{
		db: db,
		source: &DataSource{
			Dialect: dialectName,
			URL:     dialectName + "://",
		},
		logger: logger,
	}
	if err := engine.probe(ctx); err != nil {
		logger.Errorf("failed to create database engine: %v", err)
		return nil, err
	}
	logger.Infof("database engine for %s created successfully", engine.source.URL)
	return engine, nil
}

// probe opens and discards one connection
func (e *Engine) probe(ctx context.Context) error {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return newError(ErrConnection, opNewEngine, emperror.Wrapf(err, "cannot connect to %s", e.source.URL))
	}
	defer conn.Close()
	if err := conn.PingContext(ctx); err != nil {
		return newError(ErrConnection, opNewEngine, emperror.Wrapf(err, "cannot ping %s", e.source.URL))
	}
	return nil
}

// DB exposes the underlying database
func (e *Engine) DB() *sql.DB {
	return e.db
}

func (e *Engine) Dialect() string {
	return e.source.Dialect
}

func (e *Engine) String() string {
	return e.source.URL
}

func (e *Engine) Close() error {
	finalError := emperror.NewMultiErrorBuilder()
	if e.pin != nil {
		if err := e.pin.Close(); err != nil {
			finalError.Add(emperror.Wrapf(err, "cannot release connection to %s", e.source.URL))
		}
	}
	if err := e.db.Close(); err != nil {
		finalError.Add(emperror.Wrapf(err, "cannot close database %s", e.source.URL))
	}
	return finalError.ErrOrNil()
}
