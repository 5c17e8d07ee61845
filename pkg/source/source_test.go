package source

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := map[string]Scheme{
		"data.csv":                      SchemeLocal,
		"/tmp/data.csv":                 SchemeLocal,
		"file:///tmp/data.csv":          SchemeFile,
		"http://example.com/a.json":     SchemeHTTP,
		"HTTPS://example.com/a.json":    SchemeHTTPS,
		"s3://bucket/key.csv":           SchemeS3,
		"/tmp/archive.zip!data/a.csv":   SchemeZip,
		"file:///tmp/ARCHIVE.ZIP!a.csv": SchemeZip,
	}
	for location, want := range cases {
		assert.Equal(t, want, Detect(location), location)
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://bucket/path/to/file.csv")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "path/to/file.csv", key)

	_, _, err = parseS3URL("s3://bucket")
	assert.Error(t, err)
	_, _, err = parseS3URL("s3:///key")
	assert.Error(t, err)
}

func TestOpenLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))

	for _, location := range []string{path, "file://" + path} {
		res, err := Open(context.Background(), location, nil)
		require.NoError(t, err)
		data, err := io.ReadAll(res)
		require.NoError(t, err)
		assert.NoError(t, res.Close())
		assert.Equal(t, "a,b\n1,2\n", string(data))
		assert.Equal(t, int64(8), res.Size)
	}

	_, err := Open(context.Background(), filepath.Join(dir, "missing.csv"), nil)
	assert.True(t, IsNotExist(err))

	_, err = Open(context.Background(), dir, nil)
	assert.Error(t, err)
	assert.False(t, IsNotExist(err))
}

func TestOpenZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "data.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("inner/a.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("x\n1\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	res, err := Open(context.Background(), archive+"!inner/a.csv", nil)
	require.NoError(t, err)
	data, err := io.ReadAll(res)
	require.NoError(t, err)
	assert.NoError(t, res.Close())
	assert.Equal(t, "x\n1\n", string(data))
	assert.Equal(t, int64(4), res.Size)

	_, err = Open(context.Background(), archive+"!inner/missing.csv", nil)
	assert.True(t, IsNotExist(err))

	_, err = Open(context.Background(), filepath.Join(dir, "missing.zip")+"!a.csv", nil)
	assert.True(t, IsNotExist(err))
}

func TestOpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.json":
			w.Write([]byte(`[{"a":1}]`))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	res, err := Open(context.Background(), srv.URL+"/data.json", nil)
	require.NoError(t, err)
	data, err := io.ReadAll(res)
	require.NoError(t, err)
	res.Close()
	assert.Equal(t, `[{"a":1}]`, string(data))

	_, err = Open(context.Background(), srv.URL+"/nothing", nil)
	assert.True(t, IsNotExist(err))

	_, err = Open(context.Background(), srv.URL+"/broken", nil)
	assert.Error(t, err)
	assert.False(t, IsNotExist(err))
}
