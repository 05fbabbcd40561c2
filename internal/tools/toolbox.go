package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/agenthands/supplychain/internal/driver"
	"github.com/agenthands/supplychain/internal/llm"
)

const (
	SupplierCountTool = "supplier_count"
	SupplierListTool  = "supplier_list"
)

var schemas = []llm.FunctionSchema{
	{
		Name:        SupplierCountTool,
		Description: "Calculate the count of Suppliers based on particular filters",
		Parameters: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Schema{
				"min_supply_amount": supplyBound("Minimum"),
				"max_supply_amount": supplyBound("Maximum"),
				"grouping_key": {
					Type:        "string",
					Enum:        GroupingKeys,
					Description: "The key to group by the aggregation",
				},
			},
			Required: []string{},
		},
	},
	{
		Name:        SupplierListTool,
		Description: "List suppliers based on particular filters",
		Parameters: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Schema{
				"sort_by": {
					Type:        "string",
					Enum:        []string{SortBySupplyCapacity},
					Description: "How to sort Suppliers by supply capacity",
				},
				"k": {
					Type:        "integer",
					Description: "Number of Suppliers to return",
				},
				"description": {
					Type:        "string",
					Description: "Description of the Suppliers",
				},
				"min_supply_amount": supplyBound("Minimum"),
				"max_supply_amount": supplyBound("Maximum"),
			},
			Required: []string{},
		},
	},
}

// Toolbox dispatches model function calls to the supplier tools.
type Toolbox struct {
	Suppliers *Suppliers
}

func NewToolbox(s *Suppliers) *Toolbox {
	return &Toolbox{Suppliers: s}
}

func (t *Toolbox) Schemas() []llm.FunctionSchema {
	out := make([]llm.FunctionSchema, len(schemas))
	copy(out, schemas)
	return out
}

// Call runs the named tool with decoded arguments and returns the records.
// Unknown tools and unusable arguments are reported as *DispatchError; store
// and model failures are returned as they are.
func (t *Toolbox) Call(ctx context.Context, name string, args map[string]any) ([]driver.Record, error) {
	var (
		records []driver.Record
		err     error
	)
	switch name {
	case SupplierCountTool:
		var a CountArgs
		if a, err = countArgs(args); err == nil {
			records, err = t.Suppliers.SupplierCount(ctx, a)
		}
	case SupplierListTool:
		var a ListArgs
		if a, err = listArgs(args); err == nil {
			records, err = t.Suppliers.SupplierList(ctx, a)
		}
	default:
		return nil, &DispatchError{Tool: name, Err: ErrUnknownTool}
	}

	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return nil, &DispatchError{Tool: name, Err: err}
	}
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []driver.Record{}
	}
	return records, nil
}

func supplyBound(which string) llm.Schema {
	return llm.Schema{Type: "integer", Description: which + " supply amount of the suppliers"}
}

func countArgs(args map[string]any) (CountArgs, error) {
	var a CountArgs
	var err error
	if a.MinSupplyAmount, err = intArg(args, "min_supply_amount"); err != nil {
		return a, err
	}
	if a.MaxSupplyAmount, err = intArg(args, "max_supply_amount"); err != nil {
		return a, err
	}
	a.GroupingKey, err = stringArg(args, "grouping_key")
	return a, err
}

func listArgs(args map[string]any) (ListArgs, error) {
	var a ListArgs
	var err error
	if a.SortBy, err = stringArg(args, "sort_by"); err != nil {
		return a, err
	}
	if a.K, err = intArg(args, "k"); err != nil {
		return a, err
	}
	if a.Description, err = stringArg(args, "description"); err != nil {
		return a, err
	}
	if a.MinSupplyAmount, err = intArg(args, "min_supply_amount"); err != nil {
		return a, err
	}
	a.MaxSupplyAmount, err = intArg(args, "max_supply_amount")
	return a, err
}

// Serialize renders records as the JSON text handed back to the model.
// Values JSON cannot carry directly, non-finite floats included, are
// stringified.
func Serialize(records []driver.Record) string {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		row := make(map[string]any, len(r))
		for k, v := range r {
			row[k] = jsonSafe(v)
		}
		out = append(out, row)
	}
	b, err := json.Marshal(out)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return string(b)
}

func jsonSafe(v any) any {
	switch val := v.(type) {
	case nil, bool, string, int, int32, int64, json.Number:
		return val
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case []float32:
		out := make([]any, len(val))
		for i, f := range val {
			out[i] = finite(float64(f))
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = jsonSafe(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonSafe(item)
		}
		return out
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case *big.Int:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}
