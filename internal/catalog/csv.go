package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strings"
)

// Column names with their neo4j-admin import header aliases.
var (
	entityColumns = map[string][]string{
		"id":          {"id", "id:ID"},
		"name":        {"name"},
		"type":        {"type"},
		"location":    {"location"},
		"description": {"description"},
	}
	relationColumns = map[string][]string{
		"start_id": {"start_id", ":START_ID"},
		"end_id":   {"end_id", ":END_ID"},
		"type":     {"type", ":TYPE"},
	}
	optionalRelationColumns = map[string][]string{
		"product": {"product"},
	}
)

// RandomCapacity returns a generator of supply capacities uniform in [min, max].
func RandomCapacity(min, max int) func() int {
	return func() int {
		return min + rand.Intn(max-min+1)
	}
}

func ReadEntitiesFile(path string, capacity func() int) ([]Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open entities file: %w", err)
	}
	defer f.Close()
	return ReadEntities(f, capacity)
}

// ReadEntities parses the entities CSV. Each entity gets a capacity from
// capacity at read time.
func ReadEntities(r io.Reader, capacity func() int) ([]Entity, error) {
	rows, idx, err := readTable(r, entityColumns, nil)
	if err != nil {
		return nil, fmt.Errorf("entities csv: %w", err)
	}

	entities := make([]Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, Entity{
			ID:          row[idx["id"]],
			Name:        row[idx["name"]],
			Type:        row[idx["type"]],
			Location:    row[idx["location"]],
			Description: row[idx["description"]],
			Capacity:    capacity(),
		})
	}
	return entities, nil
}

func ReadRelationsFile(path string) ([]Relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open relationships file: %w", err)
	}
	defer f.Close()
	return ReadRelations(f)
}

func ReadRelations(r io.Reader) ([]Relation, error) {
	rows, idx, err := readTable(r, relationColumns, optionalRelationColumns)
	if err != nil {
		return nil, fmt.Errorf("relationships csv: %w", err)
	}

	relations := make([]Relation, 0, len(rows))
	for _, row := range rows {
		rel := Relation{
			StartID: row[idx["start_id"]],
			EndID:   row[idx["end_id"]],
			Type:    row[idx["type"]],
		}
		if i, ok := idx["product"]; ok {
			rel.Product = row[i]
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

// readTable reads a header row and the records below it, resolving each
// wanted column to its index. Short rows are padded with empty strings.
func readTable(r io.Reader, required, optional map[string][]string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("missing header row")
		}
		return nil, nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx := make(map[string]int)
	var missing []string
	for name, aliases := range required {
		i := columnIndex(header, aliases)
		if i < 0 {
			missing = append(missing, name)
			continue
		}
		idx[name] = i
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	for name, aliases := range optional {
		if i := columnIndex(header, aliases); i >= 0 {
			idx[name] = i
		}
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(rec) < len(header) {
			rec = append(rec, make([]string, len(header)-len(rec))...)
		}
		rows = append(rows, rec)
	}
	return rows, idx, nil
}

func columnIndex(header []string, aliases []string) int {
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, a := range aliases {
			if h == a {
				return i
			}
		}
	}
	return -1
}
