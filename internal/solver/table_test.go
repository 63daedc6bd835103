package solver

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/index"
)

func sampleTable(t *testing.T) (*Table, *index.Indexer) {
	t.Helper()
	ix := newIndexer(t, "tiny")
	table := &Table{
		Version:     tableFileVersion,
		GeneratedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		RunID:       "run-1",
		Rules:       ix.Rules(),
		Policy:      make([][game.NumActions]float32, ix.Total()),
		Value:       make([]float64, ix.Total()),
	}
	for i := range table.Value {
		table.Value[i] = 0.1 + 0.8*float64(i)/float64(ix.Total())
		table.Policy[i][i%game.NumActions] = 1
	}
	return table, ix
}

func TestTableSaveLoad(t *testing.T) {
	for _, name := range []string{"table.json", "table.json.zst"} {
		t.Run(name, func(t *testing.T) {
			table, ix := sampleTable(t)
			path := filepath.Join(t.TempDir(), "out", name)

			require.NoError(t, table.Save(path))
			loaded, err := LoadTable(path)
			require.NoError(t, err)

			assert.Equal(t, table.Rules, loaded.Rules)
			assert.Equal(t, table.RunID, loaded.RunID)
			assert.True(t, table.GeneratedAt.Equal(loaded.GeneratedAt))
			assert.Equal(t, table.Policy, loaded.Policy)
			assert.Equal(t, table.Value, loaded.Value)
			require.NoError(t, loaded.Check(ix))

			p, err := loaded.PolicyAt(10)
			require.NoError(t, err)
			assert.Equal(t, 1.0, p[10%game.NumActions])
		})
	}
}

func TestTableStreamsStandardJSON(t *testing.T) {
	table, _ := sampleTable(t)
	table.Policy[3] = [game.NumActions]float32{0.25, 1.0 / 3, 0, 0, 0, 0, 0, 0, 1e-7}

	var buf bytes.Buffer
	require.NoError(t, table.encode(&buf, false))

	// Any JSON reader sees the same table.
	var decoded Table
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, table.Policy, decoded.Policy)
	assert.Equal(t, table.Value, decoded.Value)
	assert.Equal(t, table.Rules, decoded.Rules)

	streamed, err := readJSON(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, table.Policy, streamed.Policy)
	assert.Equal(t, table.Value, streamed.Value)
}

func TestReadJSON(t *testing.T) {
	t.Run("skips unknown keys", func(t *testing.T) {
		doc := `{"version":1,"comment":{"note":[1,2]},"run_id":"run-x",` +
			`"policy":[[1,0,0,0,0,0,0,0,0]],"value":[0.5],"extra":null}`
		table, err := readJSON(strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, 1, table.Version)
		assert.Equal(t, "run-x", table.RunID)
		assert.Equal(t, []float64{0.5}, table.Value)
		assert.Equal(t, float32(1), table.Policy[0][0])
	})

	t.Run("rejects malformed documents", func(t *testing.T) {
		for _, doc := range []string{
			`[]`,
			`{"version":1,"value":[0.5,`,
			`{"policy":{"a":1}}`,
			`{"value":["x"]}`,
		} {
			_, err := readJSON(strings.NewReader(doc))
			assert.Error(t, err, doc)
		}
	})
}

func TestTableCompressionShrinksFile(t *testing.T) {
	table, _ := sampleTable(t)
	dir := t.TempDir()
	plain := filepath.Join(dir, "t.json")
	packed := filepath.Join(dir, "t.json.zst")
	require.NoError(t, table.Save(plain))
	require.NoError(t, table.Save(packed))

	ps, err := os.Stat(plain)
	require.NoError(t, err)
	zs, err := os.Stat(packed)
	require.NoError(t, err)
	assert.Less(t, zs.Size(), ps.Size())
}

func TestTableLookupsOutOfRange(t *testing.T) {
	table, _ := sampleTable(t)

	_, err := table.PolicyAt(-1)
	assert.ErrorIs(t, err, index.ErrOutOfRange)
	_, err = table.ValueAt(table.Len())
	assert.ErrorIs(t, err, index.ErrOutOfRange)

	v, err := table.ValueAt(0)
	require.NoError(t, err)
	assert.Equal(t, 0.1, v)
}

func TestTableCheckRejectsMismatch(t *testing.T) {
	table, _ := sampleTable(t)

	other := newIndexer(t, "small")
	assert.Error(t, table.Check(other))

	table.Value = table.Value[:10]
	ix := newIndexer(t, "tiny")
	assert.Error(t, table.Check(ix))
}

func TestLoadTableRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTable(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o644))
	_, err = LoadTable(garbage)
	assert.Error(t, err)

	table, _ := sampleTable(t)
	table.Version = 99
	future := filepath.Join(dir, "future.json")
	require.NoError(t, table.Save(future))
	_, err = LoadTable(future)
	assert.Error(t, err)
}

func TestSaveRequiresPath(t *testing.T) {
	table, _ := sampleTable(t)
	assert.Error(t, table.Save(""))

	var nilTable *Table
	assert.Error(t, nilTable.Save(filepath.Join(t.TempDir(), "x.json")))
}
