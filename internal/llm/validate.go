package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// Validate normalizes raw against schema and validates the result. It is
// the same check providers run on model output, exposed for re-validating
// stored documents on read.
func Validate(schema *Schema, raw json.RawMessage) (json.RawMessage, error) {
	return validateResponse(schema, raw)
}

// validateResponse fills policy-optional arrays, then validates. It returns
// the normalized document, or *ErrInvalidResponse.
func validateResponse(schema *Schema, raw json.RawMessage) (json.RawMessage, error) {
	if schema == nil {
		return raw, nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ErrInvalidResponse{
			Content: raw,
			Err:     fmt.Errorf("invalid JSON: %w", err),
		}
	}

	out := raw
	if len(schema.EmptyArrays) > 0 {
		changed := false
		for _, path := range schema.EmptyArrays {
			if fillEmptyArray(parsed, strings.Split(path, ".")) {
				changed = true
			}
		}
		if changed {
			b, err := json.Marshal(parsed)
			if err != nil {
				return nil, &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("re-encode normalized document: %w", err)}
			}
			out = b
		}
	}

	compiled, err := getCompiledSchema(schema)
	if err != nil {
		return nil, &ErrInvalidResponse{
			Content: raw,
			Err:     fmt.Errorf("compile schema %q: %w", schema.Name, err),
		}
	}

	if err := compiled.Validate(parsed); err != nil {
		return nil, &ErrInvalidResponse{
			Content: raw,
			Err:     fmt.Errorf("schema validation failed: %w", err),
		}
	}

	return out, nil
}

// fillEmptyArray sets the field at path to [] wherever it is absent or
// null. The final segment names the array; "*" fans out over arrays and
// objects. Missing intermediate objects are left alone so the validator
// can report them.
func fillEmptyArray(node any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	seg := path[0]

	if seg == "*" {
		changed := false
		switch n := node.(type) {
		case []any:
			for _, el := range n {
				if fillEmptyArray(el, path[1:]) {
					changed = true
				}
			}
		case map[string]any:
			for _, el := range n {
				if fillEmptyArray(el, path[1:]) {
					changed = true
				}
			}
		}
		return changed
	}

	obj, ok := node.(map[string]any)
	if !ok {
		return false
	}
	if len(path) == 1 {
		if v, present := obj[seg]; !present || v == nil {
			obj[seg] = []any{}
			return true
		}
		return false
	}
	child, ok := obj[seg]
	if !ok {
		return false
	}
	return fillEmptyArray(child, path[1:])
}

// getCompiledSchema returns a cached compiled schema or compiles and caches it.
func getCompiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not a Go map with typed
	// slices, so round-trip through encoding/json.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	defParsed, err := jsonschema.UnmarshalJSON(strings.NewReader(string(defBytes)))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
