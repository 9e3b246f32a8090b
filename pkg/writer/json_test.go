package writer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Network string `json:"network"`
	Size    uint64 `json:"size"`
}

func TestJSONWriter_Write(t *testing.T) {
	data := report{Network: "polkadot", Size: 42}

	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter[report]().Write(data, &buf))
	assert.Equal(t, `{"network":"polkadot","size":42}`+"\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrettyJSONWriter[report]().Write(data, &buf))
	assert.Contains(t, buf.String(), "\n  \"network\": \"polkadot\"")
}

func TestJSONWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "polkadot_storage.json")
	require.NoError(t, NewJSONWriter[report]().WriteToFile(report{Network: "kusama"}, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got report
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "kusama", got.Network)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestGzipWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json.gz")
	w := NewGzipWriterWithLevel[report](gzip.BestCompression)
	require.NoError(t, w.WriteToFile(report{Network: "westend", Size: 7}, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	var got report
	require.NoError(t, json.NewDecoder(gz).Decode(&got))
	assert.Equal(t, report{Network: "westend", Size: 7}, got)
}

func TestGzipWriter_BadLevel(t *testing.T) {
	err := NewGzipWriterWithLevel[report](42).Write(report{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	assert.Equal(t, ".json.gz", New[report](true, true).Ext())
	assert.Equal(t, ".json", New[report](false, true).Ext())
	assert.Equal(t, "  ", New[report](false, true).(*JSONWriter[report]).Indent)
	assert.Equal(t, "", New[report](false, false).(*JSONWriter[report]).Indent)
}
