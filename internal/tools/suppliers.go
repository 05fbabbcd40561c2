package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/agenthands/supplychain/internal/driver"
	"github.com/agenthands/supplychain/internal/llm"
	"github.com/agenthands/supplychain/internal/logger"
)

const (
	DefaultListSize = 4

	SortBySupplyCapacity = "supply_capacity"
	GroupByCapacity      = "supply_capacity"
	GroupByLocation      = "location"

	supplierReturn = `RETURN t.name AS name, t.location AS location, t.description AS description, t.supply_capacity AS supply_capacity`
)

// GroupingKeys are the supplier properties supplier_count may group by.
var GroupingKeys = []string{GroupByCapacity, GroupByLocation}

type CountArgs struct {
	MinSupplyAmount *int
	MaxSupplyAmount *int
	GroupingKey     string
}

type ListArgs struct {
	SortBy          string
	K               *int
	Description     string
	MinSupplyAmount *int
	MaxSupplyAmount *int
}

// Suppliers answers supplier questions against the graph.
type Suppliers struct {
	Driver      driver.GraphDriver
	Embedder    llm.EmbedderClient
	VectorIndex string

	log *logger.Logger
}

func NewSuppliers(d driver.GraphDriver, embedder llm.EmbedderClient, vectorIndex string, log *logger.Logger) *Suppliers {
	if log == nil {
		log = logger.Nop()
	}
	return &Suppliers{
		Driver:      d,
		Embedder:    embedder,
		VectorIndex: vectorIndex,
		log:         log.With("component", "Tools"),
	}
}

// capacityFilter returns the WHERE conditions and parameters for the bounds
// that were given. Absent bounds contribute nothing.
func capacityFilter(min, max *int) ([]string, map[string]any) {
	var conditions []string
	params := map[string]any{}
	if min != nil {
		conditions = append(conditions, "t.supply_capacity >= $min_supply_amount")
		params["min_supply_amount"] = *min
	}
	if max != nil {
		conditions = append(conditions, "t.supply_capacity <= $max_supply_amount")
		params["max_supply_amount"] = *max
	}
	return conditions, params
}

func matchSuppliers(conditions []string) string {
	q := "MATCH (t:Supplier)"
	if len(conditions) > 0 {
		q += " WHERE " + strings.Join(conditions, " AND ")
	}
	return q
}

// CountQuery builds the supplier_count statement.
func CountQuery(args CountArgs) (string, map[string]any, error) {
	conditions, params := capacityFilter(args.MinSupplyAmount, args.MaxSupplyAmount)
	q := matchSuppliers(conditions)

	switch args.GroupingKey {
	case "":
		q += " RETURN count(t) AS supplier_count"
	case GroupByCapacity, GroupByLocation:
		q += " RETURN t." + args.GroupingKey + " AS " + args.GroupingKey + ", count(t) AS supplier_count"
	default:
		return "", nil, &ArgumentError{Key: "grouping_key", Reason: "must be one of " + strings.Join(GroupingKeys, ", ")}
	}
	return q, params, nil
}

func (s *Suppliers) SupplierCount(ctx context.Context, args CountArgs) ([]driver.Record, error) {
	q, params, err := CountQuery(args)
	if err != nil {
		return nil, err
	}
	s.log.Info("Executing supplier_count", "query", q, "params", params)
	return s.Driver.ExecuteQuery(ctx, q, params)
}

func listSize(k *int) int {
	if k == nil || *k <= 0 {
		return DefaultListSize
	}
	return *k
}

// ListQuery builds the supplier_list statement for the mode the arguments
// select. embedding is only read when a description is present.
func ListQuery(args ListArgs, vectorIndex string, embedding []float32) (string, map[string]any, error) {
	if args.SortBy != "" && args.SortBy != SortBySupplyCapacity {
		return "", nil, &ArgumentError{Key: "sort_by", Reason: "must be " + SortBySupplyCapacity}
	}
	limit := listSize(args.K)
	conditions, params := capacityFilter(args.MinSupplyAmount, args.MaxSupplyAmount)

	switch {
	case args.Description != "" && len(conditions) == 0:
		return driver.SupplierVectorSearchQuery, map[string]any{
			"index":     vectorIndex,
			"k":         limit,
			"embedding": embedding,
		}, nil

	case args.Description != "":
		conditions = append(conditions, "t.embedding IS NOT NULL")
		params["embedding"] = embedding
		params["limit"] = limit
		q := matchSuppliers(conditions) +
			" " + supplierReturn + ", vector.similarity.cosine(t.embedding, $embedding) AS score" +
			" ORDER BY score DESC LIMIT toInteger($limit)"
		return q, params, nil

	default:
		params["limit"] = limit
		q := matchSuppliers(conditions) +
			" " + supplierReturn +
			" ORDER BY t.supply_capacity DESC LIMIT toInteger($limit)"
		return q, params, nil
	}
}

func (s *Suppliers) SupplierList(ctx context.Context, args ListArgs) ([]driver.Record, error) {
	var embedding []float32
	if args.Description != "" {
		if s.Embedder == nil {
			return nil, &ArgumentError{Key: "description", Reason: "text search is not available without an embedding model"}
		}
		vec, err := s.Embedder.Embed(ctx, args.Description)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			return nil, errors.New("embedding model returned an empty vector")
		}
		embedding = vec
	}

	q, params, err := ListQuery(args, s.VectorIndex, embedding)
	if err != nil {
		return nil, err
	}
	s.log.Info("Executing supplier_list", "query", q, "limit", listSize(args.K), "description", args.Description)
	return s.Driver.ExecuteQuery(ctx, q, params)
}
