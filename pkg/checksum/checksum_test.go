package checksum

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	r, err := Sum(strings.NewReader("hello"), []string{"md5", "SHA256", "sha256"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Size())
	assert.Equal(t, []string{"md5", "sha256"}, r.Types())
	sums := r.Sums()
	assert.Len(t, sums, 2)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sums["md5"])
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sums["sha256"])
}

func TestSumSHA3(t *testing.T) {
	r, err := Sum(strings.NewReader(""), []string{"sha3-256"})
	require.NoError(t, err)
	assert.Equal(t, "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a", r.Sums()["sha3-256"])
}

func TestUnknownChecksum(t *testing.T) {
	_, err := NewReader(strings.NewReader("x"), []string{"crc32"})
	assert.Error(t, err)
}

func TestReaderPassesData(t *testing.T) {
	r, err := NewReader(strings.NewReader("a,b\n1,2\n"), nil)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
	assert.Equal(t, int64(8), r.Size())
	assert.Empty(t, r.Sums())
	assert.Empty(t, r.Types())
}
