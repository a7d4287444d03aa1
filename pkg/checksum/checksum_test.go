package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	content := []byte("工單號,零件編號,數量\nWO-1,P-100,3\n")

	assert.Equal(t, Hash(content), Hash(content))
	assert.Len(t, Hash(content), 64)
}

func TestHash_SingleByteChange(t *testing.T) {
	a := []byte("WO-1,P-100,3")
	b := []byte("WO-1,P-100,4")

	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestRowChecksum(t *testing.T) {
	row := []string{"WO-1", "P-100", "3"}

	assert.Equal(t, RowChecksum(row), RowChecksum([]string{"WO-1", "P-100", "3"}))
	assert.NotEqual(t, RowChecksum(row), RowChecksum([]string{"WO-1", "P-100", "4"}))
}

func FuzzHash(f *testing.F) {
	f.Add([]byte("WO-1,P-100"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, content []byte) {
		first := Hash(content)
		second := Hash(content)
		if first != second {
			t.Fatalf("hash not deterministic for %q", content)
		}
		if len(first) != 64 {
			t.Fatalf("unexpected digest length %d", len(first))
		}
	})
}
