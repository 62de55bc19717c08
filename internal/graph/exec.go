package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// object encodes its keys in selection order.
type object struct {
	keys   []string
	values map[string]any
}

func (o *object) set(key string, v any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// execute resolves root fields in document order. A failed non-null root
// field nulls the whole data object.
func (h *Handler) execute(ctx context.Context, op *ast.OperationDefinition, vars map[string]any) (*object, gqlerror.List) {
	table, typeName := h.query, "Query"
	if op.Operation == ast.Mutation {
		table, typeName = h.mutation, "Mutation"
	}

	data := &object{}
	var errs gqlerror.List
	for _, f := range collectFields(op.SelectionSet, vars) {
		if f.Name == "__typename" {
			data.set(f.Alias, typeName)
			continue
		}

		v, err := resolveField(ctx, table, f, vars)
		if err != nil {
			errs = append(errs, fieldError(ctx, f, err))
			if f.Definition != nil && f.Definition.Type.NonNull {
				return nil, errs
			}
			data.set(f.Alias, nil)
			continue
		}
		data.set(f.Alias, complete(v, f, vars))
	}
	return data, errs
}

func resolveField(ctx context.Context, table map[string]fieldFunc, f *ast.Field, vars map[string]any) (any, error) {
	if f.Definition != nil {
		if d := f.Definition.Directives.ForName("auth"); d != nil {
			if err := AuthDirective(ctx, directiveRole(d)); err != nil {
				return nil, err
			}
		}
	}

	resolve, ok := table[f.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownField, f.Name)
	}
	v, err := resolve(ctx, arguments(f.ArgumentMap(vars)))
	if err != nil {
		return nil, err
	}
	return toGeneric(v)
}

// toGeneric flattens a resolver result to its JSON shape; schema field names
// follow the json tags of the domain types.
func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// complete keeps only the selected fields of v, recursing into lists.
func complete(v any, f *ast.Field, vars map[string]any) any {
	if len(f.SelectionSet) == 0 {
		return v
	}
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = complete(v[i], f, vars)
		}
		return out
	case map[string]any:
		obj := &object{}
		for _, sub := range collectFields(f.SelectionSet, vars) {
			if sub.Name == "__typename" {
				if sub.ObjectDefinition != nil {
					obj.set(sub.Alias, sub.ObjectDefinition.Name)
				}
				continue
			}
			obj.set(sub.Alias, complete(v[sub.Name], sub, vars))
		}
		return obj
	default:
		return v
	}
}

// collectFields flattens fragments and drops @skip/@include exclusions. The
// first field under an alias wins.
func collectFields(set ast.SelectionSet, vars map[string]any) []*ast.Field {
	var fields []*ast.Field
	seen := make(map[string]bool)

	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *ast.Field:
				if excluded(sel.Directives, vars) || seen[sel.Alias] {
					continue
				}
				seen[sel.Alias] = true
				fields = append(fields, sel)
			case *ast.InlineFragment:
				if !excluded(sel.Directives, vars) {
					walk(sel.SelectionSet)
				}
			case *ast.FragmentSpread:
				if !excluded(sel.Directives, vars) && sel.Definition != nil {
					walk(sel.Definition.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return fields
}

func excluded(dirs ast.DirectiveList, vars map[string]any) bool {
	if d := dirs.ForName("skip"); d != nil && directiveIf(d, vars) {
		return true
	}
	if d := dirs.ForName("include"); d != nil && !directiveIf(d, vars) {
		return true
	}
	return false
}

func directiveIf(d *ast.Directive, vars map[string]any) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil || arg.Value == nil {
		return false
	}
	v, err := arg.Value.Value(vars)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}
