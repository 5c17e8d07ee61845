package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goph/emperror"
	"github.com/je4/dataingest/pkg/ingest"
	"github.com/je4/dataingest/pkg/ledger"
	"github.com/je4/dataingest/pkg/source"
)

var errNoEndpoint = errors.New("endpoint missing")

const (
	stateNew       = "new"
	stateChanged   = "changed"
	stateUnchanged = "unchanged"
	stateUnknown   = "unknown" // no checksum type in common with the last ingestion
	stateMissing   = "missing"
)

// expandLocations replaces local directories by the files with one of the extensions exts below them.
// Dot files and folders are skipped, every other location is passed through.
func expandLocations(locations []string, exts ...string) ([]string, error) {
	var result []string
	for _, loc := range locations {
		scheme := source.Detect(loc)
		if scheme != source.SchemeLocal && scheme != source.SchemeFile {
			result = append(result, loc)
			continue
		}
		path := strings.TrimPrefix(loc, "file://")
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			// missing files are reported by the ingestion
			result = append(result, loc)
			continue
		}
		var found []string
		if err := filepath.WalkDir(path, func(fp string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if fp != path && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && hasExtension(d.Name(), exts) {
				found = append(found, fp)
			}
			return nil
		}); err != nil {
			return nil, emperror.Wrapf(err, "cannot walk %s", path)
		}
		sort.Strings(found)
		result = append(result, found...)
	}
	return result, nil
}

func hasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.EqualFold(filepath.Ext(name), ext) {
			return true
		}
	}
	return false
}

// compareEntry classifies the current checksums of a location against its last ingestion
func compareEntry(last *ledger.Entry, sums map[string]string) string {
	if last == nil {
		return stateNew
	}
	common := false
	for csType := range sums {
		if _, ok := last.Checksums[csType]; ok {
			common = true
			break
		}
	}
	switch {
	case !common:
		return stateUnknown
	case ledger.Changed(last, sums):
		return stateChanged
	default:
		return stateUnchanged
	}
}

func newEntry(kind, location string, table *ingest.Table) *ledger.Entry {
	e := &ledger.Entry{
		Location: location,
		Kind:     kind,
		Rows:     table.Len(),
		Columns:  table.Width(),
	}
	if table.Origin != nil {
		e.Size = table.Origin.Size
		e.Checksums = table.Origin.Checksums
		e.Time = table.Origin.Loaded
	}
	return e
}
