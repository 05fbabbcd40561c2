package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/supplychain/internal/driver"
	"github.com/agenthands/supplychain/internal/logger"
)

// Embedder turns text into a vector. Satisfied by llm.EmbedderClient.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Loader struct {
	Driver   driver.GraphDriver
	Embedder Embedder
	// RelationTypes restricts which relationship types may be created. Empty
	// means any plain identifier.
	RelationTypes []string
	VectorIndex   string
	Dimensions    int

	log *logger.Logger
}

func NewLoader(d driver.GraphDriver, embedder Embedder, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		Driver:      d,
		Embedder:    embedder,
		VectorIndex: "supply_chain",
		Dimensions:  1536,
		log:         log.With("component", "catalog"),
	}
}

// CreateConstraints makes id unique for every known label. Safe to repeat.
func (l *Loader) CreateConstraints(ctx context.Context) error {
	for _, label := range Labels {
		if _, err := l.Driver.ExecuteQuery(ctx, fmt.Sprintf(driver.CreateIDConstraintQuery, label), nil); err != nil {
			return fmt.Errorf("failed to create constraint for %s: %w", label, err)
		}
	}
	l.log.Info("Constraints ensured", "labels", len(Labels))
	return nil
}

// LoadEntities upserts every entity by id. Entities without a location only
// get their name set. The first failing row aborts the load.
func (l *Loader) LoadEntities(ctx context.Context, entities []Entity) (int, error) {
	for i, e := range entities {
		query, params := entityUpsert(e)
		if _, err := l.Driver.ExecuteQuery(ctx, query, params); err != nil {
			return i, fmt.Errorf("entity row %d (id %q): %w", i+1, e.ID, err)
		}
	}
	l.log.Info("Entities loaded", "count", len(entities))
	return len(entities), nil
}

// LoadRelations upserts one edge per row. Rows whose endpoints do not exist
// match nothing and are skipped by the database without an error.
func (l *Loader) LoadRelations(ctx context.Context, relations []Relation) (int, error) {
	for i, r := range relations {
		query, params, err := l.relationUpsert(r)
		if err != nil {
			return i, fmt.Errorf("relationship row %d: %w", i+1, err)
		}
		if _, err := l.Driver.ExecuteQuery(ctx, query, params); err != nil {
			return i, fmt.Errorf("relationship row %d (%s -> %s): %w", i+1, r.StartID, r.EndID, err)
		}
	}
	l.log.Info("Relationships loaded", "count", len(relations))
	return len(relations), nil
}

// Purge removes every node and relationship.
func (l *Loader) Purge(ctx context.Context) error {
	l.log.Warn("Deleting all data from the database")
	if _, err := l.Driver.ExecuteQuery(ctx, driver.DeleteAllQuery, nil); err != nil {
		return fmt.Errorf("failed to delete data: %w", err)
	}
	l.log.Info("All data deleted")
	return nil
}

func entityUpsert(e Entity) (string, map[string]any) {
	label := LabelFor(e.Type)
	if strings.TrimSpace(e.Location) == "" {
		return fmt.Sprintf(driver.UpsertEntityNameQuery, label), map[string]any{
			"id":   e.ID,
			"name": e.Name,
		}
	}
	return fmt.Sprintf(driver.UpsertEntityQuery, label), map[string]any{
		"id":              e.ID,
		"name":            e.Name,
		"location":        e.Location,
		"description":     e.Description,
		"supply_capacity": e.Capacity,
	}
}

func (l *Loader) relationUpsert(r Relation) (string, map[string]any, error) {
	if err := relationTypeAllowed(r.Type, l.RelationTypes); err != nil {
		return "", nil, err
	}
	params := map[string]any{
		"start_id": r.StartID,
		"end_id":   r.EndID,
	}
	if strings.TrimSpace(r.Product) == "" {
		return fmt.Sprintf(driver.UpsertRelationQuery, r.Type), params, nil
	}
	params["product"] = r.Product
	return fmt.Sprintf(driver.UpsertRelationWithProductQuery, r.Type), params, nil
}
