package catalog

import (
	"fmt"
	"regexp"
)

// DefaultLabel is used for entity types outside the known categories.
const DefaultLabel = "Entity"

// Labels are the known entity categories, each stored under a label of the
// same name with a uniqueness constraint on id.
var Labels = []string{"Supplier", "Manufacturer", "Distributor", "Retailer", "Product"}

type Entity struct {
	ID          string
	Name        string
	Type        string
	Location    string
	Description string
	Capacity    int
}

type Relation struct {
	StartID string
	EndID   string
	Type    string
	Product string
}

// LabelFor maps an entity type to its storage label.
func LabelFor(entityType string) string {
	for _, l := range Labels {
		if l == entityType {
			return l
		}
	}
	return DefaultLabel
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be spliced into Cypher as a label,
// relationship type or index name without quoting.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// relationTypeAllowed checks t against allowed, or against the identifier
// pattern when no allow-list is configured.
func relationTypeAllowed(t string, allowed []string) error {
	if !ValidIdentifier(t) {
		return fmt.Errorf("invalid relationship type %q", t)
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, a := range allowed {
		if a == t {
			return nil
		}
	}
	return fmt.Errorf("relationship type %q is not in the allowed list", t)
}
