package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntriesJSONL(t *testing.T) {
	input := `{"id":"e1","role":"user","layer":"inscribed","content":"first entry"}

{"id":"e2","content":"second entry","tags":["a","b"]}
`
	entries, err := DecodeEntriesJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e1", entries[0].ID)
	assert.Equal(t, LayerInscribed, entries[0].Layer)
	assert.Equal(t, []string{"a", "b"}, entries[1].Tags)
}

func TestDecodeEntriesJSONLMalformedLine(t *testing.T) {
	input := `{"id":"e1","content":"ok"}
{not json}
`
	_, err := DecodeEntriesJSONL(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDecodeEntriesJSONLMissingID(t *testing.T) {
	_, err := DecodeEntriesJSONL(strings.NewReader(`{"content":"no id"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing an id")
}

func TestDecodeEntriesJSONLEmpty(t *testing.T) {
	entries, err := DecodeEntriesJSONL(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadEntriesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"e1","content":"from file"}`+"\n"), 0o644))

	entries, err := ReadEntriesJSONL(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "from file", entries[0].Content)

	_, err = ReadEntriesJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}
