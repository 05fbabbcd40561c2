package catalog

import (
	"context"
	"strings"

	"github.com/agenthands/supplychain/internal/driver"
)

type executed struct {
	Query  string
	Params map[string]any
}

// fakeGraph understands the handful of statement shapes the loader issues
// and keeps just enough state to check MERGE semantics.
type fakeGraph struct {
	Executed    []executed
	Constraints map[string]bool
	Nodes       map[string]map[string]any
	Labels      map[string]string
	Edges       map[string]bool
	Results     map[string][]driver.Record
	FailOn      string
	Err         error
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		Constraints: map[string]bool{},
		Nodes:       map[string]map[string]any{},
		Labels:      map[string]string{},
		Edges:       map[string]bool{},
		Results:     map[string][]driver.Record{},
	}
}

func (g *fakeGraph) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]driver.Record, error) {
	g.Executed = append(g.Executed, executed{Query: query, Params: params})
	if g.Err != nil && (g.FailOn == "" || strings.Contains(query, g.FailOn)) {
		return nil, g.Err
	}

	switch {
	case strings.Contains(query, "CREATE CONSTRAINT"):
		g.Constraints[between(query, "FOR (n:", ")")] = true
	case strings.Contains(query, "MERGE (n:"):
		id := params["id"].(string)
		node, ok := g.Nodes[id]
		if !ok {
			node = map[string]any{"id": id}
			g.Nodes[id] = node
		}
		g.Labels[id] = between(query, "MERGE (n:", " {")
		for k, v := range params {
			node[k] = v
		}
	case strings.Contains(query, "MATCH (start"):
		start, end := params["start_id"].(string), params["end_id"].(string)
		if _, ok := g.Nodes[start]; !ok {
			return nil, nil
		}
		if _, ok := g.Nodes[end]; !ok {
			return nil, nil
		}
		relType := between(query, "[r:", "]")
		relType = strings.SplitN(relType, " ", 2)[0]
		product, _ := params["product"].(string)
		g.Edges[start+"|"+end+"|"+relType+"|"+product] = true
	}

	for key, records := range g.Results {
		if strings.Contains(query, key) {
			return records, nil
		}
	}
	return nil, nil
}

func (g *fakeGraph) Close(ctx context.Context) error {
	return nil
}

func between(s, from, to string) string {
	i := strings.Index(s, from)
	if i < 0 {
		return ""
	}
	rest := s[i+len(from):]
	j := strings.Index(rest, to)
	if j < 0 {
		return rest
	}
	return rest[:j]
}

type MockEmbedder struct {
	Vector []float32
	Err    error
	Texts  []string
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}
