package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/supplychain/internal/driver"
)

// EmbeddingsExist reports whether at least one supplier carries an embedding.
func (l *Loader) EmbeddingsExist(ctx context.Context) (bool, error) {
	records, err := l.Driver.ExecuteQuery(ctx, driver.CountSupplierEmbeddingsQuery, nil)
	if err != nil {
		return false, fmt.Errorf("failed to count embeddings: %w", err)
	}
	if len(records) == 0 {
		return false, nil
	}
	count, _ := records[0]["count"].(int64)
	return count > 0, nil
}

// EmbedSuppliers ensures the vector index exists and embeds the description
// of every supplier that has none yet. It returns how many were embedded.
func (l *Loader) EmbedSuppliers(ctx context.Context) (int, error) {
	if l.Embedder == nil {
		return 0, errors.New("no embedding client configured")
	}
	if !ValidIdentifier(l.VectorIndex) {
		return 0, fmt.Errorf("invalid vector index name %q", l.VectorIndex)
	}

	_, err := l.Driver.ExecuteQuery(ctx, fmt.Sprintf(driver.CreateSupplierVectorIndexQuery, l.VectorIndex), map[string]any{
		"dimensions": l.Dimensions,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create vector index: %w", err)
	}

	pending, err := l.Driver.ExecuteQuery(ctx, driver.SuppliersMissingEmbeddingQuery, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list suppliers without embeddings: %w", err)
	}

	for i, rec := range pending {
		id, _ := rec["id"].(string)
		description, _ := rec["description"].(string)

		vec, err := l.Embedder.Embed(ctx, description)
		if err != nil {
			return i, fmt.Errorf("failed to embed supplier %q: %w", id, err)
		}
		if _, err := l.Driver.ExecuteQuery(ctx, driver.SetSupplierEmbeddingQuery, map[string]any{
			"id":        id,
			"embedding": vec,
		}); err != nil {
			return i, fmt.Errorf("failed to store embedding for supplier %q: %w", id, err)
		}
	}

	l.log.Info("Supplier embeddings updated", "count", len(pending), "index", l.VectorIndex)
	return len(pending), nil
}
