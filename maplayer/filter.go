package maplayer

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/goccy/go-json"
	"github.com/khankhulgun/khanstyle/style"
)

const maxFilterDepth = 64

type arity struct {
	min, max int // max < 0 is unbounded
}

// operators lists the filter and expression operators a filter may use,
// legacy filter syntax included.
var operators = map[string]arity{
	// comparison, legacy and expression forms
	"==": {2, 3}, "!=": {2, 3}, "<": {2, 3}, "<=": {2, 3}, ">": {2, 3}, ">=": {2, 3},
	"in": {1, -1}, "!in": {1, -1}, "has": {1, 2}, "!has": {1, 1},
	"all": {0, -1}, "any": {0, -1}, "none": {0, -1}, "!": {1, 1},

	// lookup
	"get": {1, 2}, "at": {2, 2}, "index-of": {2, 3}, "slice": {2, 3}, "length": {1, 1},
	"properties": {0, 0}, "feature-state": {1, 1}, "geometry-type": {0, 0}, "id": {0, 0},
	"zoom": {0, 0}, "within": {1, 1}, "distance": {1, 1},

	// types
	"literal": {1, 1}, "array": {1, 3}, "boolean": {1, -1}, "number": {1, -1},
	"string": {1, -1}, "object": {1, -1}, "to-boolean": {1, 1}, "to-number": {1, -1},
	"to-string": {1, 1}, "to-color": {1, -1}, "typeof": {1, 1}, "collator": {1, 1},

	// decisions and ramps
	"case": {3, -1}, "match": {4, -1}, "coalesce": {1, -1},
	"step": {4, -1}, "interpolate": {4, -1}, "let": {3, -1}, "var": {1, 1},
	"linear": {0, 0}, "exponential": {1, 1}, "cubic-bezier": {4, 4},

	// math and strings
	"+": {2, -1}, "*": {2, -1}, "-": {1, 2}, "/": {2, 2}, "%": {2, 2}, "^": {2, 2},
	"abs": {1, 1}, "ceil": {1, 1}, "floor": {1, 1}, "round": {1, 1}, "sqrt": {1, 1},
	"min": {1, -1}, "max": {1, -1}, "ln": {1, 1}, "log10": {1, 1}, "log2": {1, 1},
	"sin": {1, 1}, "cos": {1, 1}, "tan": {1, 1}, "asin": {1, 1}, "acos": {1, 1}, "atan": {1, 1},
	"pi": {0, 0}, "e": {0, 0}, "ln2": {0, 0},
	"concat": {1, -1}, "downcase": {1, 1}, "upcase": {1, 1},
	"rgb": {3, 3}, "rgba": {4, 4},
}

// FilterCompiler validates filter literals and serializes them to the
// backend's expression form. Successful compilations are cached by their
// canonical JSON.
type FilterCompiler struct {
	cache *ristretto.Cache
}

func NewFilterCompiler(maxCost int64) (*FilterCompiler, error) {
	if maxCost <= 0 {
		maxCost = 1 << 22
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("filter cache: %w", err)
	}
	return &FilterCompiler{cache: cache}, nil
}

// Compile returns the expression for literal. An empty literal compiles to
// nil, which clears a layer's filter.
func (fc *FilterCompiler) Compile(layerID string, literal []any) (*style.Expression, error) {
	if len(literal) == 0 {
		return nil, nil
	}

	raw, err := json.MarshalNoEscape(literal)
	if err != nil {
		return nil, &style.FilterCompileError{LayerID: layerID, Raw: literal, Reason: err.Error()}
	}
	key := string(raw)

	if cached, found := fc.cache.Get(key); found {
		if expr, ok := cached.(*style.Expression); ok {
			return expr, nil
		}
	}

	// Round-trip so the tree carries JSON types only (float64 numbers,
	// map[string]any objects) whatever decoder produced the literal.
	var tree []any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, &style.FilterCompileError{LayerID: layerID, Raw: literal, Reason: err.Error()}
	}
	if err := validateExpression(tree, 0); err != nil {
		return nil, &style.FilterCompileError{LayerID: layerID, Raw: literal, Reason: err.Error()}
	}

	expr := &style.Expression{JSON: raw, Tree: tree}
	fc.cache.Set(key, expr, int64(len(raw)))
	fc.cache.Wait()
	return expr, nil
}

func (fc *FilterCompiler) Close() {
	fc.cache.Close()
}

func validateExpression(expr []any, depth int) error {
	if depth > maxFilterDepth {
		return fmt.Errorf("nested deeper than %d", maxFilterDepth)
	}
	if len(expr) == 0 {
		return fmt.Errorf("empty expression")
	}
	op, ok := expr[0].(string)
	if !ok {
		return fmt.Errorf("expression must start with an operator name, got %v", expr[0])
	}
	ar, known := operators[op]
	if !known {
		return fmt.Errorf("unknown operator %q", op)
	}
	args := expr[1:]
	n := len(args)
	if n < ar.min || (ar.max >= 0 && n > ar.max) {
		return fmt.Errorf("%q takes %s, got %d", op, ar, n)
	}

	switch op {
	case "literal":
		return nil
	case "match":
		if n%2 != 0 {
			return fmt.Errorf(`"match" needs label/output pairs and a fallback`)
		}
	case "case":
		if n%2 != 1 {
			return fmt.Errorf(`"case" needs an odd number of arguments, got %d`, n)
		}
	case "step":
		if n%2 != 0 {
			return fmt.Errorf(`"step" needs an input, a base output and stop/output pairs`)
		}
	case "interpolate":
		if n%2 != 0 {
			return fmt.Errorf(`"interpolate" needs stop/output pairs`)
		}
		kind, ok := args[0].([]any)
		if !ok || len(kind) == 0 {
			return fmt.Errorf(`"interpolate" needs an interpolation type`)
		}
		if name, _ := kind[0].(string); name != "linear" && name != "exponential" && name != "cubic-bezier" {
			return fmt.Errorf("unknown interpolation type %v", kind[0])
		}
	case "all", "any", "none":
		for i, arg := range args {
			if _, ok := arg.([]any); !ok {
				return fmt.Errorf("%q argument %d must be a filter", op, i+1)
			}
		}
	}

	for i, arg := range args {
		switch a := arg.(type) {
		case []any:
			if op == "match" && i%2 == 1 && i < n-1 {
				if err := validateLabels(a); err != nil {
					return err
				}
				continue
			}
			if err := validateExpression(a, depth+1); err != nil {
				return err
			}
		case map[string]any:
			return fmt.Errorf("%q argument %d: objects must be wrapped in literal", op, i+1)
		}
	}
	return nil
}

func validateLabels(labels []any) error {
	if len(labels) == 0 {
		return fmt.Errorf(`"match" label list is empty`)
	}
	for _, l := range labels {
		switch l.(type) {
		case string, float64:
		default:
			return fmt.Errorf(`"match" labels must be strings or numbers, got %v`, l)
		}
	}
	return nil
}

func (a arity) String() string {
	switch {
	case a.max < 0:
		return fmt.Sprintf("at least %d arguments", a.min)
	case a.min == a.max:
		return fmt.Sprintf("%d arguments", a.min)
	default:
		return fmt.Sprintf("%d to %d arguments", a.min, a.max)
	}
}
