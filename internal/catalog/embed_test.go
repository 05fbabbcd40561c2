package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/supplychain/internal/driver"
)

func TestEmbeddingsExist(t *testing.T) {
	g := newFakeGraph()
	g.Results["s.embedding IS NOT NULL"] = []driver.Record{{"count": int64(3)}}
	l := NewLoader(g, nil, nil)

	ok, err := l.EmbeddingsExist(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	g.Results["s.embedding IS NOT NULL"] = []driver.Record{{"count": int64(0)}}
	ok, err = l.EmbeddingsExist(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbedSuppliers(t *testing.T) {
	g := newFakeGraph()
	g.Results["s.embedding IS NULL"] = []driver.Record{
		{"id": "S1", "description": "Hot-rolled steel coils"},
		{"id": "S3", "description": "Aluminium extrusions"},
	}
	emb := &MockEmbedder{Vector: []float32{0.1, 0.2}}
	l := NewLoader(g, emb, nil)

	n, err := l.EmbedSuppliers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{"Hot-rolled steel coils", "Aluminium extrusions"}, emb.Texts)
	require.Len(t, g.Executed, 4)
	assert.Contains(t, g.Executed[0].Query, "CREATE VECTOR INDEX supply_chain IF NOT EXISTS")
	assert.Equal(t, 1536, g.Executed[0].Params["dimensions"])
	assert.Equal(t, "S1", g.Executed[2].Params["id"])
	assert.Equal(t, []float32{0.1, 0.2}, g.Executed[2].Params["embedding"])
}

func TestEmbedSuppliers_Errors(t *testing.T) {
	l := NewLoader(newFakeGraph(), nil, nil)
	_, err := l.EmbedSuppliers(context.Background())
	assert.Error(t, err)

	l = NewLoader(newFakeGraph(), &MockEmbedder{}, nil)
	l.VectorIndex = "bad name"
	_, err = l.EmbedSuppliers(context.Background())
	assert.ErrorContains(t, err, "invalid vector index name")

	g := newFakeGraph()
	g.Results["s.embedding IS NULL"] = []driver.Record{{"id": "S1", "description": "steel"}}
	l = NewLoader(g, &MockEmbedder{Err: errors.New("quota")}, nil)
	n, err := l.EmbedSuppliers(context.Background())
	assert.Equal(t, 0, n)
	assert.ErrorContains(t, err, `failed to embed supplier "S1"`)
}
