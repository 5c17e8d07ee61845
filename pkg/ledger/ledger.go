// Package ledger keeps a persistent log of ingestions in a badger database.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/goph/emperror"
	"github.com/op/go-logging"
)

const keyPrefix = "ingest:"

// Entry describes one successful ingestion
type Entry struct {
	Location  string            `json:"location"`
	Kind      string            `json:"kind"` // csv, json or query
	Rows      int               `json:"rows"`
	Columns   int               `json:"columns"`
	Size      int64             `json:"size"`
	Checksums map[string]string `json:"checksums,omitempty"`
	Time      time.Time         `json:"time"`
}

type Ledger struct {
	db     *badger.DB
	logger *logging.Logger
}

// Open opens or creates the ledger database in dir
func Open(dir string, logger *logging.Logger) (*Ledger, error) {
	if logger == nil {
		logger = logging.MustGetLogger("ledger")
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, emperror.Wrapf(err, "cannot create ledger folder %s", dir)
	}
	bconfig := badger.DefaultOptions(dir)
	bconfig.Logger = logger // use our logger...
	db, err := badger.Open(bconfig)
	if err != nil {
		return nil, emperror.Wrapf(err, "cannot open badger database %s", dir)
	}
	return &Ledger{db: db, logger: logger}, nil
}

func locationPrefix(location string) []byte {
	return []byte(fmt.Sprintf("%s%s:", keyPrefix, location))
}

func entryKey(location string, t time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", keyPrefix, location, t.UnixNano()))
}

// Record stores the entry, a zero Time is set to now
func (l *Ledger) Record(e *Entry) error {
	if e.Location == "" {
		return fmt.Errorf("ledger entry without location")
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if err := l.db.Update(func(txn *badger.Txn) error {
		key := entryKey(e.Location, e.Time)
		// same location within the same nanosecond
		for {
			_, err := txn.Get(key)
			if err == badger.ErrKeyNotFound {
				break
			}
			if err != nil {
				return emperror.Wrapf(err, "cannot check key %s", string(key))
			}
			e.Time = e.Time.Add(time.Nanosecond)
			key = entryKey(e.Location, e.Time)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return emperror.Wrapf(err, "cannot marshal entry for %s", e.Location)
		}
		if err := txn.Set(key, data); err != nil {
			return emperror.Wrapf(err, "cannot store key %s", string(key))
		}
		return nil
	}); err != nil {
		return emperror.Wrapf(err, "cannot record ingestion of %s", e.Location)
	}
	l.logger.Debugf("ledger: %s ingestion of %s recorded (%d rows)", e.Kind, e.Location, e.Rows)
	return nil
}

// scan returns all entries below prefix in key order
func (l *Ledger) scan(prefix []byte, filter func(*Entry) bool) ([]*Entry, error) {
	var entries []*Entry
	if err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			e := &Entry{}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, e)
			}); err != nil {
				return emperror.Wrapf(err, "cannot read value of %s", string(item.Key()))
			}
			if filter == nil || filter(e) {
				entries = append(entries, e)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return entries, nil
}

// History returns all entries of location, oldest first
func (l *Ledger) History(location string) ([]*Entry, error) {
	// prefix of "a" also covers "a:b"
	entries, err := l.scan(locationPrefix(location), func(e *Entry) bool {
		return e.Location == location
	})
	if err != nil {
		return nil, emperror.Wrapf(err, "cannot read history of %s", location)
	}
	return entries, nil
}

// Last returns the most recent entry of location or nil if there is none
func (l *Ledger) Last(location string) (*Entry, error) {
	entries, err := l.History(location)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[len(entries)-1], nil
}

// All returns every entry in key order, entries of one location are ordered by time
func (l *Ledger) All() ([]*Entry, error) {
	entries, err := l.scan([]byte(keyPrefix), nil)
	if err != nil {
		return nil, emperror.Wrap(err, "cannot read ledger")
	}
	return entries, nil
}

// Changed reports whether sums differ from the checksums of the last entry.
// Types missing on either side are ignored, no common type counts as changed.
func Changed(last *Entry, sums map[string]string) bool {
	if last == nil {
		return true
	}
	common := 0
	for csType, sum := range sums {
		prev, ok := last.Checksums[csType]
		if !ok {
			continue
		}
		common++
		if !strings.EqualFold(prev, sum) {
			return true
		}
	}
	return common == 0
}

func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return emperror.Wrap(err, "cannot close ledger")
	}
	return nil
}
