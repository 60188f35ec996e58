// Package value turns configured string templates into typed field values.
//
// A template is an HCL template: literal text with optional ${...}
// interpolations of dotted property names, e.g. "${db.host}:${db.port}".
// Property values come from a Lookup and are always strings; the rendered
// result is then converted to the target field type.
package value

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ErrPropertyNotFound is returned when a template references a property the
// lookup does not know.
var ErrPropertyNotFound = errors.New("property not found")

var durationType = reflect.TypeOf(time.Duration(0))

// Lookup returns the raw value of a property.
type Lookup func(key string) (string, bool)

// ParseError reports a template or conversion failure.
type ParseError struct {
	Input  string
	Target reflect.Type
	Cause  error
}

func (e ParseError) Error() string {
	if e.Target == nil {
		return fmt.Sprintf("invalid template %q: %v", e.Input, e.Cause)
	}
	return fmt.Sprintf("cannot parse %q as %v: %v", e.Input, e.Target, e.Cause)
}

func (e ParseError) Unwrap() error {
	return e.Cause
}

// Resolver evaluates templates against a property lookup.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a Resolver. A nil lookup knows no properties.
func NewResolver(lookup Lookup) *Resolver {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	return &Resolver{lookup: lookup}
}

// Resolve renders template and converts the result to target. When a
// referenced property is missing and hasDefault is set, def is converted
// instead.
func (r *Resolver) Resolve(template, def string, hasDefault bool, target reflect.Type) (reflect.Value, error) {
	raw, err := r.Render(template)
	if err != nil {
		if !hasDefault || !errors.Is(err, ErrPropertyNotFound) {
			return reflect.Value{}, err
		}
		raw = def
	}

	return Convert(raw, target)
}

// Render evaluates template to a string.
func (r *Resolver) Render(template string) (string, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(template), "value", hcl.InitialPos)
	if diags.HasErrors() {
		return "", ParseError{Input: template, Cause: diags}
	}

	vars, err := r.variables(expr.Variables())
	if err != nil {
		return "", err
	}

	val, diags := expr.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return "", ParseError{Input: template, Cause: diags}
	}

	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", ParseError{Input: template, Cause: err}
	}
	if str.IsNull() || !str.IsKnown() {
		return "", ParseError{Input: template, Cause: fmt.Errorf("template produced no value")}
	}

	return str.AsString(), nil
}

// variables looks up every referenced property and nests the results into
// objects following the dotted path: "db.port" becomes db = { port = ... }.
func (r *Resolver) variables(traversals []hcl.Traversal) (map[string]cty.Value, error) {
	tree := make(map[string]any)

	for _, traversal := range traversals {
		path, err := traversalPath(traversal)
		if err != nil {
			return nil, err
		}

		key := strings.Join(path, ".")
		val, ok := r.lookup(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, key)
		}

		if err := insert(tree, path, val); err != nil {
			return nil, err
		}
	}

	return objectValues(tree), nil
}

// traversalPath flattens a traversal made of a root and attribute steps.
func traversalPath(traversal hcl.Traversal) ([]string, error) {
	path := make([]string, 0, len(traversal))
	for _, step := range traversal {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			path = append(path, s.Name)
		case hcl.TraverseAttr:
			path = append(path, s.Name)
		default:
			return nil, ParseError{
				Input: traversal.RootName(),
				Cause: fmt.Errorf("only dotted property names are supported"),
			}
		}
	}
	return path, nil
}

func insert(tree map[string]any, path []string, val string) error {
	node := tree
	for i, part := range path {
		if i == len(path)-1 {
			if _, isObj := node[part].(map[string]any); isObj {
				return fmt.Errorf("property %s is both a value and a prefix", strings.Join(path, "."))
			}
			node[part] = val
			return nil
		}

		switch next := node[part].(type) {
		case nil:
			child := make(map[string]any)
			node[part] = child
			node = child
		case map[string]any:
			node = next
		default:
			return fmt.Errorf("property %s is both a value and a prefix", strings.Join(path[:i+1], "."))
		}
	}
	return nil
}

func objectValues(tree map[string]any) map[string]cty.Value {
	vals := make(map[string]cty.Value, len(tree))
	for k, v := range tree {
		switch v := v.(type) {
		case string:
			vals[k] = cty.StringVal(v)
		case map[string]any:
			vals[k] = cty.ObjectVal(objectValues(v))
		}
	}
	return vals
}

// Convert turns raw into a value of type target. Numeric and boolean kinds
// go through cty conversion, booleans matched case-insensitively;
// time.Duration is parsed with
// time.ParseDuration; string kinds and interface types accepting a string
// receive raw unchanged.
func Convert(raw string, target reflect.Type) (reflect.Value, error) {
	if target == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return reflect.Value{}, ParseError{Input: raw, Target: target, Cause: err}
		}
		return reflect.ValueOf(d), nil
	}

	switch target.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return convertPrimitive(raw, target)
	case reflect.String:
		return reflect.ValueOf(raw).Convert(target), nil
	}

	if v := reflect.ValueOf(raw); v.Type().AssignableTo(target) {
		out := reflect.New(target).Elem()
		out.Set(v)
		return out, nil
	}

	return reflect.Value{}, ParseError{
		Input:  raw,
		Target: target,
		Cause:  fmt.Errorf("unsupported target type"),
	}
}

func convertPrimitive(raw string, target reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(target)

	implied, err := gocty.ImpliedType(ptr.Elem().Interface())
	if err != nil {
		return reflect.Value{}, ParseError{Input: raw, Target: target, Cause: err}
	}

	in := strings.TrimSpace(raw)
	if target.Kind() == reflect.Bool {
		in = strings.ToLower(in)
	}

	converted, err := convert.Convert(cty.StringVal(in), implied)
	if err != nil {
		return reflect.Value{}, ParseError{Input: raw, Target: target, Cause: err}
	}

	if err := gocty.FromCtyValue(converted, ptr.Interface()); err != nil {
		return reflect.Value{}, ParseError{Input: raw, Target: target, Cause: err}
	}

	return ptr.Elem(), nil
}
