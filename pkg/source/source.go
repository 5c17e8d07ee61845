// Package source opens data locations (local files, zip members, http(s) and s3 objects) for reading.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/goph/emperror"
	pkgerrors "github.com/pkg/errors"
)

// Scheme of a data location
type Scheme string

const (
	SchemeLocal Scheme = "local" // no scheme, local path
	SchemeFile  Scheme = "file"
	SchemeZip   Scheme = "zip" // member of a local zip archive: archive.zip!member
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeS3    Scheme = "s3"
)

// zipSeparator separates the archive path from the member name
const zipSeparator = ".zip!"

// Resource is an opened location
type Resource struct {
	io.ReadCloser
	Location string
	// Size in bytes, -1 if the source does not tell
	Size int64
}

// Detect returns the scheme of the location
func Detect(location string) Scheme {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return SchemeS3
	case strings.HasPrefix(lower, "https://"):
		return SchemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return SchemeHTTP
	case strings.Contains(lower, zipSeparator):
		return SchemeZip
	case strings.HasPrefix(lower, "file://"):
		return SchemeFile
	default:
		return SchemeLocal
	}
}

// Open opens the location for reading.
// A missing file, zip member, http resource (404) or s3 object yields an error for which IsNotExist is true.
// s3cfg may be nil, the default aws credential chain is used then.
func Open(ctx context.Context, location string, s3cfg *S3Config) (*Resource, error) {
	switch scheme := Detect(location); scheme {
	case SchemeLocal, SchemeFile:
		return openLocal(localPath(location))
	case SchemeZip:
		return openZip(location)
	case SchemeHTTP, SchemeHTTPS:
		return openHTTP(ctx, location)
	case SchemeS3:
		return openS3(ctx, location, s3cfg)
	default:
		return nil, fmt.Errorf("unsupported scheme %s: %s", scheme, location)
	}
}

// IsNotExist reports whether err marks a missing location
func IsNotExist(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, fs.ErrNotExist) || errors.Is(pkgerrors.Cause(err), fs.ErrNotExist)
}

func localPath(location string) string {
	if len(location) >= 7 && strings.EqualFold(location[:7], "file://") {
		return location[7:]
	}
	return location
}

func openLocal(path string) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot open %s: %w", path, fs.ErrNotExist)
		}
		return nil, emperror.Wrapf(err, "cannot open %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, emperror.Wrapf(err, "cannot stat %s", path)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &Resource{ReadCloser: f, Location: path, Size: info.Size()}, nil
}
