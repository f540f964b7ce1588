package poller

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZstdRoundTrip(t *testing.T) {
	compressor, err := NewZstdCompressor()
	require.NoError(t, err)

	original := bytes.Repeat([]byte(`{"members":{"total":100}}`), 200)
	compressed, err := compressor.Compress(original)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(original))

	restored, err := compressor.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestZstdDecompressGarbage(t *testing.T) {
	compressor, err := NewZstdCompressor()
	require.NoError(t, err)

	_, err = compressor.Decompress([]byte("definitely not zstd"))
	assert.Error(t, err)
}
