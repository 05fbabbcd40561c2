package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/supplychain/internal/driver"
)

const entitiesCSV = `id:ID,name,type,location,description
S1,Acme Steel,Supplier,Pittsburgh,Hot-rolled steel coils
S2,Bolt Works,Supplier,,
M1,Forge Co,Manufacturer,Detroit,Auto parts
X1,Mystery,Warehouse,Reno,Unknown type
`

const relationsCSV = `:START_ID,:END_ID,:TYPE,product
S1,M1,SUPPLIES,steel
S2,M1,SUPPLIES,
S1,NOPE,SUPPLIES,steel
`

func fixedCapacity(n int) func() int {
	return func() int { return n }
}

func loadFixture(t *testing.T, l *Loader) {
	t.Helper()
	entities, err := ReadEntities(strings.NewReader(entitiesCSV), fixedCapacity(25000))
	require.NoError(t, err)
	relations, err := ReadRelations(strings.NewReader(relationsCSV))
	require.NoError(t, err)

	_, err = l.LoadEntities(context.Background(), entities)
	require.NoError(t, err)
	_, err = l.LoadRelations(context.Background(), relations)
	require.NoError(t, err)
}

func TestCreateConstraints_Idempotent(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)

	require.NoError(t, l.CreateConstraints(context.Background()))
	require.NoError(t, l.CreateConstraints(context.Background()))

	assert.Len(t, g.Constraints, 5)
	for _, label := range Labels {
		assert.True(t, g.Constraints[label], label)
	}
	assert.Contains(t, g.Executed[0].Query, "IF NOT EXISTS")
}

func TestLoadEntities_MinimalVersusFullUpsert(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)

	entities := []Entity{
		{ID: "S1", Name: "Acme", Type: "Supplier", Location: "Pittsburgh", Description: "steel", Capacity: 30000},
		{ID: "S2", Name: "Bolt Works", Type: "Supplier", Location: "   ", Description: "ignored", Capacity: 1000},
	}
	n, err := l.LoadEntities(context.Background(), entities)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	full := g.Executed[0]
	assert.Contains(t, full.Query, "MERGE (n:Supplier {id: $id})")
	assert.Equal(t, map[string]any{
		"id":              "S1",
		"name":            "Acme",
		"location":        "Pittsburgh",
		"description":     "steel",
		"supply_capacity": 30000,
	}, full.Params)

	minimal := g.Executed[1]
	assert.NotContains(t, minimal.Query, "location")
	assert.Equal(t, map[string]any{"id": "S2", "name": "Bolt Works"}, minimal.Params)
}

func TestLoadEntities_UnknownTypeUsesDefaultLabel(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)

	_, err := l.LoadEntities(context.Background(), []Entity{{ID: "X1", Name: "Mystery", Type: "Warehouse", Location: "Reno"}})
	require.NoError(t, err)

	assert.Equal(t, DefaultLabel, g.Labels["X1"])
}

func TestLoad_Idempotent(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)

	loadFixture(t, l)
	nodes, edges := len(g.Nodes), len(g.Edges)

	loadFixture(t, l)
	assert.Equal(t, nodes, len(g.Nodes))
	assert.Equal(t, edges, len(g.Edges))
	assert.Equal(t, 4, nodes)
	assert.Equal(t, 2, edges)
}

func TestLoadRelations_MissingEndpointIsSkipped(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)
	_, err := l.LoadEntities(context.Background(), []Entity{{ID: "S1", Name: "Acme", Type: "Supplier"}})
	require.NoError(t, err)

	n, err := l.LoadRelations(context.Background(), []Relation{{StartID: "S1", EndID: "NOPE", Type: "SUPPLIES", Product: "steel"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, g.Edges)
}

func TestLoadRelations_ProductProperty(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)

	_, err := l.LoadRelations(context.Background(), []Relation{
		{StartID: "a", EndID: "b", Type: "SUPPLIES", Product: "steel"},
		{StartID: "a", EndID: "b", Type: "SUPPLIES", Product: " "},
	})
	require.NoError(t, err)

	assert.Contains(t, g.Executed[0].Query, "[r:SUPPLIES {product: $product}]")
	assert.Equal(t, "steel", g.Executed[0].Params["product"])
	assert.Contains(t, g.Executed[1].Query, "[r:SUPPLIES]")
	assert.NotContains(t, g.Executed[1].Params, "product")
}

func TestLoadRelations_RejectsUnsafeType(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)

	_, err := l.LoadRelations(context.Background(), []Relation{{StartID: "a", EndID: "b", Type: "X]->() DETACH DELETE (n"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relationship row 1")
	assert.Empty(t, g.Executed)
}

func TestLoadRelations_AllowList(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)
	l.RelationTypes = []string{"SUPPLIES"}

	_, err := l.LoadRelations(context.Background(), []Relation{{StartID: "a", EndID: "b", Type: "SELLS"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the allowed list")
}

func TestLoadEntities_AbortsOnFirstFailure(t *testing.T) {
	g := newFakeGraph()
	g.Err = &driver.QueryError{Err: errors.New("constraint violation")}
	l := NewLoader(g, nil, nil)

	n, err := l.LoadEntities(context.Background(), []Entity{
		{ID: "S1", Name: "A", Type: "Supplier"},
		{ID: "S2", Name: "B", Type: "Supplier"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, g.Executed, 1)

	var qe *driver.QueryError
	assert.True(t, errors.As(err, &qe))
	assert.Contains(t, err.Error(), `entity row 1 (id "S1")`)
}

func TestPurge(t *testing.T) {
	g := newFakeGraph()
	l := NewLoader(g, nil, nil)

	require.NoError(t, l.Purge(context.Background()))
	assert.Equal(t, driver.DeleteAllQuery, g.Executed[0].Query)
}
