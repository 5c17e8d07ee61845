// Package checksum computes several digests of a byte stream while it is read.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"

	"github.com/goph/emperror"
	"golang.org/x/crypto/sha3"
)

// New returns the hash for a checksum type
// supported types: md5, sha1, sha256, sha512, sha3-256, sha3-384, sha3-512
func New(csType string) (hash.Hash, error) {
	var sink hash.Hash
	switch strings.ToLower(csType) {
	case "md5":
		sink = md5.New()
	case "sha1":
		sink = sha1.New()
	case "sha256":
		sink = sha256.New()
	case "sha512":
		sink = sha512.New()
	case "sha3-256":
		sink = sha3.New256()
	case "sha3-384":
		sink = sha3.New384()
	case "sha3-512":
		sink = sha3.New512()
	default:
		return nil, fmt.Errorf("unknown checksum %s", csType)
	}
	return sink, nil
}

// Reader passes all data through and feeds every configured hash
type Reader struct {
	src    io.Reader
	sinks  map[string]hash.Hash
	writer io.Writer
	size   int64
}

// NewReader wraps src. An empty checksum list only counts bytes.
func NewReader(src io.Reader, checksums []string) (*Reader, error) {
	r := &Reader{
		src:   src,
		sinks: map[string]hash.Hash{},
	}
	writers := []io.Writer{}
	for _, csType := range checksums {
		csType = strings.ToLower(csType)
		if _, ok := r.sinks[csType]; ok {
			continue
		}
		sink, err := New(csType)
		if err != nil {
			return nil, err
		}
		r.sinks[csType] = sink
		writers = append(writers, sink)
	}
	if len(writers) > 0 {
		r.writer = io.MultiWriter(writers...)
	}
	return r, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.size += int64(n)
		if r.writer != nil {
			// hash writers never fail
			r.writer.Write(p[:n])
		}
	}
	return n, err
}

// Size returns the number of bytes read so far
func (r *Reader) Size() int64 {
	return r.size
}

// Sums returns hex encoded digests of the data read so far
func (r *Reader) Sums() map[string]string {
	result := map[string]string{}
	for csType, sink := range r.sinks {
		result[csType] = fmt.Sprintf("%x", sink.Sum(nil))
	}
	return result
}

// Types returns the configured checksum types in sorted order
func (r *Reader) Types() []string {
	types := make([]string, 0, len(r.sinks))
	for csType := range r.sinks {
		types = append(types, csType)
	}
	sort.Strings(types)
	return types
}

// Sum reads src completely, the returned Reader holds digests, types and size
func Sum(src io.Reader, checksums []string) (*Reader, error) {
	r, err := NewReader(src, checksums)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, emperror.Wrapf(err, "cannot create checksums %v", checksums)
	}
	return r, nil
}
