package source

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/goph/emperror"
)

type zipMember struct {
	fs.File
	zr *zip.ReadCloser
}

func (zm *zipMember) Close() error {
	finalError := emperror.NewMultiErrorBuilder()
	if err := zm.File.Close(); err != nil {
		finalError.Add(err)
	}
	if err := zm.zr.Close(); err != nil {
		finalError.Add(err)
	}
	return finalError.ErrOrNil()
}

// splitZip splits "some/archive.zip!data/file.csv" into archive and member
func splitZip(location string) (archive, member string) {
	location = localPath(location)
	idx := strings.Index(strings.ToLower(location), zipSeparator)
	if idx < 0 {
		return location, ""
	}
	archive = location[:idx+len(".zip")]
	member = strings.TrimPrefix(filepath.ToSlash(location[idx+len(zipSeparator):]), "/")
	return
}

func openZip(location string) (*Resource, error) {
	archive, member := splitZip(location)
	zr, err := zip.OpenReader(archive)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot open zip file %s: %w", archive, fs.ErrNotExist)
		}
		return nil, emperror.Wrapf(err, "cannot open zip file %s", archive)
	}
	f, err := zr.Open(member)
	if err != nil {
		zr.Close()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot open %s in %s: %w", member, archive, fs.ErrNotExist)
		}
		return nil, emperror.Wrapf(err, "cannot open %s in %s", member, archive)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		zr.Close()
		return nil, emperror.Wrapf(err, "cannot stat %s in %s", member, archive)
	}
	if info.IsDir() {
		f.Close()
		zr.Close()
		return nil, emperror.Wrapf(fs.ErrInvalid, "%s in %s is a directory", member, archive)
	}
	return &Resource{
		ReadCloser: &zipMember{File: f, zr: zr},
		Location:   location,
		Size:       info.Size(),
	}, nil
}
