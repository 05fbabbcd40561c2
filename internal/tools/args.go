package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DecodeArguments reads a function-call argument payload. Models sometimes
// wrap the object in prose or markdown fences, so the outermost braces are
// extracted first. The extracted text must be exactly one JSON object; a
// payload that does not parse, or carries anything after the object, yields
// ok=false and an empty map.
func DecodeArguments(raw string) (args map[string]any, ok bool) {
	args = map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, true
	}

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end < start {
		return args, false
	}

	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	dec.UseNumber()
	var decoded map[string]any
	if err := dec.Decode(&decoded); err != nil || decoded == nil {
		return args, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return args, false
	}
	return decoded, true
}

// intArg reads an optional integer argument. Whole floats and numeric strings
// are accepted; null and absent both mean "not given".
func intArg(args map[string]any, key string) (*int, error) {
	v, present := args[key]
	if !present || v == nil {
		return nil, nil
	}

	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil, &ArgumentError{Key: key, Reason: fmt.Sprintf("%q is not a number", n.String())}
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, &ArgumentError{Key: key, Reason: fmt.Sprintf("%q is not a number", n)}
		}
		f = parsed
	default:
		return nil, &ArgumentError{Key: key, Reason: fmt.Sprintf("unexpected type %T", v)}
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil, &ArgumentError{Key: key, Reason: fmt.Sprintf("%v is not an integer", f)}
	}
	i := int(f)
	return &i, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	v, present := args[key]
	if !present || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgumentError{Key: key, Reason: fmt.Sprintf("unexpected type %T", v)}
	}
	return strings.TrimSpace(s), nil
}
