package dsl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/mgattozzi/assay/internal/duration"
	"github.com/zclconf/go-cty/cty"
)

// stringLiteral statically evaluates an expression and requires a known,
// non-null string. Traversals and function calls fail evaluation with a nil
// context, which is exactly the "must be a literal" rule we want.
func stringLiteral(expr hclsyntax.Expression) (string, bool) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() || val.IsNull() || !val.IsKnown() || val.Type() != cty.String {
		return "", false
	}
	return val.AsString(), true
}

func errDiag(summary, detail string, rng hcl.Range) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng.Ptr(),
	}}
}

func (p *parser) includeField(cfg *Config, attr *hclsyntax.Attribute) hcl.Diagnostics {
	tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr)
	if !ok {
		return errDiag(
			"Invalid include value",
			`include must be an array, e.g. include = ["file.txt", ["source.txt", "dest.txt"]].`,
			attr.Expr.Range(),
		)
	}
	if len(tuple.Exprs) == 0 {
		return errDiag(
			"Empty include array",
			`Provide at least one file path, e.g. include = ["go.mod"].`,
			attr.Expr.Range(),
		)
	}

	var diags hcl.Diagnostics
	for i, elem := range tuple.Exprs {
		switch e := elem.(type) {
		case *hclsyntax.TupleConsExpr:
			// [source, dest] pair with an explicit destination.
			if len(e.Exprs) != 2 {
				diags = append(diags, errDiag(
					"Invalid include pair",
					fmt.Sprintf(
						"include element %d must have exactly 2 elements (source, dest), found %d. Use [\"source.txt\", \"dest.txt\"].",
						i+1, len(e.Exprs),
					),
					e.Range(),
				)...)
				continue
			}
			source, ok := stringLiteral(e.Exprs[0])
			if !ok {
				diags = append(diags, errDiag(
					"Invalid include source",
					fmt.Sprintf("include element %d: the source must be a string literal.", i+1),
					e.Exprs[0].Range(),
				)...)
				continue
			}
			dest, ok := stringLiteral(e.Exprs[1])
			if !ok {
				diags = append(diags, errDiag(
					"Invalid include destination",
					fmt.Sprintf("include element %d: the destination must be a string literal.", i+1),
					e.Exprs[1].Range(),
				)...)
				continue
			}
			if source == "" {
				diags = append(diags, errDiag(
					"Empty include source",
					fmt.Sprintf("include element %d: the source path cannot be empty.", i+1),
					e.Exprs[0].Range(),
				)...)
				continue
			}
			cfg.Include = append(cfg.Include, IncludeEntry{Source: source, Dest: dest, Range: e.Range()})

		default:
			// Plain string: copy to the isolated root under the original
			// filename.
			source, ok := stringLiteral(elem)
			if !ok {
				diags = append(diags, errDiag(
					"Invalid include element",
					fmt.Sprintf(
						"include element %d must be a string literal or a [source, dest] pair.",
						i+1,
					),
					elem.Range(),
				)...)
				continue
			}
			if source == "" {
				diags = append(diags, errDiag(
					"Empty include source",
					fmt.Sprintf("include element %d: the source path cannot be empty.", i+1),
					elem.Range(),
				)...)
				continue
			}
			cfg.Include = append(cfg.Include, IncludeEntry{Source: source, Range: elem.Range()})
		}
	}
	return diags
}

func (p *parser) envField(cfg *Config, attr *hclsyntax.Attribute) hcl.Diagnostics {
	tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr)
	if !ok {
		return errDiag(
			"Invalid env value",
			`env must be an array of [key, value] pairs, e.g. env = [["KEY", "value"]].`,
			attr.Expr.Range(),
		)
	}
	if len(tuple.Exprs) == 0 {
		return errDiag(
			"Empty env array",
			`Provide at least one environment variable, e.g. env = [["KEY", "value"]].`,
			attr.Expr.Range(),
		)
	}

	var diags hcl.Diagnostics
	for i, elem := range tuple.Exprs {
		pair, ok := elem.(*hclsyntax.TupleConsExpr)
		if !ok {
			diags = append(diags, errDiag(
				"Invalid env element",
				fmt.Sprintf("env element %d must be a [key, value] pair.", i+1),
				elem.Range(),
			)...)
			continue
		}
		if len(pair.Exprs) != 2 {
			diags = append(diags, errDiag(
				"Invalid env pair",
				fmt.Sprintf(
					"env element %d must have exactly 2 elements (key, value), found %d.",
					i+1, len(pair.Exprs),
				),
				pair.Range(),
			)...)
			continue
		}
		key, ok := stringLiteral(pair.Exprs[0])
		if !ok {
			diags = append(diags, errDiag(
				"Invalid env key",
				fmt.Sprintf("env element %d: the key must be a string literal.", i+1),
				pair.Exprs[0].Range(),
			)...)
			continue
		}
		value, ok := stringLiteral(pair.Exprs[1])
		if !ok {
			diags = append(diags, errDiag(
				"Invalid env value",
				fmt.Sprintf("env element %d: the value must be a string literal.", i+1),
				pair.Exprs[1].Range(),
			)...)
			continue
		}
		cfg.Env = append(cfg.Env, EnvVar{Key: key, Value: value, Range: pair.Range()})
	}
	return diags
}

// exprField handles setup and teardown: a single expression kept as raw
// source text. The expression is spliced into generated Go code, so only its
// syntactic shape is checked here.
func (p *parser) exprField(cfg *Config, attr *hclsyntax.Attribute) hcl.Diagnostics {
	expr := &Expr{
		Raw:   p.rawText(attr.Expr.Range()),
		Range: attr.Expr.Range(),
	}
	if attr.Name == "setup" {
		cfg.Setup = expr
	} else {
		cfg.Teardown = expr
	}
	return nil
}

func (p *parser) timeoutField(cfg *Config, attr *hclsyntax.Attribute) hcl.Diagnostics {
	text, ok := stringLiteral(attr.Expr)
	if !ok {
		return errDiag(
			"Invalid timeout value",
			`timeout must be a duration string, e.g. timeout = "30s" or timeout = "500ms".`,
			attr.Expr.Range(),
		)
	}

	millis, err := duration.Parse(text)
	if err != nil {
		return errDiag(
			"Invalid timeout duration",
			fmt.Sprintf("%s. Use a value like \"30s\" or \"500ms\".", err),
			attr.Expr.Range(),
		)
	}

	cfg.TimeoutMillis = millis
	return nil
}

func (p *parser) retriesField(cfg *Config, attr *hclsyntax.Attribute) hcl.Diagnostics {
	val, valDiags := attr.Expr.Value(nil)
	if valDiags.HasErrors() || val.IsNull() || !val.IsKnown() || val.Type() != cty.Number {
		return errDiag(
			"Invalid retries value",
			"retries must be an integer literal, e.g. retries = 3.",
			attr.Expr.Range(),
		)
	}

	bf := val.AsBigFloat()
	count, acc := bf.Int64()
	if !bf.IsInt() || acc != 0 || count < 0 {
		return errDiag(
			"Invalid retries value",
			"retries must be a positive integer, e.g. retries = 3.",
			attr.Expr.Range(),
		)
	}
	if count == 0 {
		return errDiag(
			"Retries cannot be zero",
			"Use retries = 1 to run once, or omit the field for the default behavior.",
			attr.Expr.Range(),
		)
	}

	cfg.Retries = int(count)
	return nil
}

func (p *parser) casesField(cfg *Config, attr *hclsyntax.Attribute) hcl.Diagnostics {
	if cfg.Matrix != nil {
		return exclusiveDiag(attr)
	}

	obj, ok := attr.Expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return errDiag(
			"Invalid cases value",
			"cases must be an object of named argument tuples, e.g. cases = { my_case = [1, 2] }.",
			attr.Expr.Range(),
		)
	}
	if len(obj.Items) == 0 {
		return errDiag(
			"Empty cases",
			"Provide at least one case, e.g. cases = { my_case = [1, 2] }.",
			attr.Expr.Range(),
		)
	}

	var diags hcl.Diagnostics
	seen := map[string]bool{}
	for _, item := range obj.Items {
		name, nameDiags := itemName(item.KeyExpr, "case name")
		diags = append(diags, nameDiags...)
		if name == "" {
			continue
		}
		if seen[name] {
			diags = append(diags, errDiag(
				"Duplicate case name",
				fmt.Sprintf("The case %q is defined more than once.", name),
				item.KeyExpr.Range(),
			)...)
			continue
		}
		seen[name] = true

		args, argDiags := p.valueList(item.ValueExpr, fmt.Sprintf(
			"case %q must map to a tuple of arguments, e.g. %s = [1, 2]", name, name,
		))
		diags = append(diags, argDiags...)
		if argDiags.HasErrors() {
			continue
		}

		cfg.Cases = append(cfg.Cases, NamedCase{Name: name, Args: args, Range: item.KeyExpr.Range()})
	}
	return diags
}

func (p *parser) matrixField(cfg *Config, attr *hclsyntax.Attribute) hcl.Diagnostics {
	if cfg.Cases != nil {
		return exclusiveDiag(attr)
	}

	obj, ok := attr.Expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return errDiag(
			"Invalid matrix value",
			"matrix must be an object of parameter value lists, e.g. matrix = { param = [1, 2] }.",
			attr.Expr.Range(),
		)
	}
	if len(obj.Items) == 0 {
		return errDiag(
			"Empty matrix",
			"Provide at least one parameter, e.g. matrix = { x = [1, 2] }.",
			attr.Expr.Range(),
		)
	}

	var diags hcl.Diagnostics
	seen := map[string]bool{}
	for _, item := range obj.Items {
		name, nameDiags := itemName(item.KeyExpr, "matrix parameter")
		diags = append(diags, nameDiags...)
		if name == "" {
			continue
		}
		if seen[name] {
			diags = append(diags, errDiag(
				"Duplicate matrix parameter",
				fmt.Sprintf("The parameter %q is defined more than once.", name),
				item.KeyExpr.Range(),
			)...)
			continue
		}
		seen[name] = true

		values, valDiags := p.valueList(item.ValueExpr, fmt.Sprintf(
			"matrix parameter %q must map to a list of values, e.g. %s = [1, 2]", name, name,
		))
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}
		if len(values) == 0 {
			diags = append(diags, errDiag(
				"Empty matrix values",
				fmt.Sprintf("matrix parameter %q cannot have an empty value list.", name),
				item.ValueExpr.Range(),
			)...)
			continue
		}

		cfg.Matrix = append(cfg.Matrix, MatrixParam{Name: name, Values: values, Range: item.KeyExpr.Range()})
	}
	return diags
}

// exclusiveDiag reports the cases/matrix conflict at whichever field came
// second in source order.
func exclusiveDiag(attr *hclsyntax.Attribute) hcl.Diagnostics {
	return errDiag(
		"cases and matrix are mutually exclusive",
		"Use one or the other, not both.",
		attr.NameRange,
	)
}

// itemName extracts and validates an object item's key as a Go identifier.
// It returns "" when the key is unusable; diagnostics explain why.
func itemName(keyExpr hclsyntax.Expression, what string) (string, hcl.Diagnostics) {
	// ObjectConsKeyExpr evaluates a naked identifier key as a string.
	val, diags := keyExpr.Value(nil)
	if diags.HasErrors() || val.IsNull() || !val.IsKnown() || val.Type() != cty.String {
		return "", errDiag(
			"Invalid "+what,
			fmt.Sprintf("Expected a %s, e.g. { my_name = [...] }.", what),
			keyExpr.Range(),
		)
	}
	name := val.AsString()
	if !validIdentifier(name) {
		return "", errDiag(
			"Invalid "+what,
			fmt.Sprintf("%q is not a valid identifier; it is used to build the generated test name.", name),
			keyExpr.Range(),
		)
	}
	return name, nil
}

// valueList validates that expr is a tuple and captures each element with its
// raw source text.
func (p *parser) valueList(expr hclsyntax.Expression, help string) ([]Value, hcl.Diagnostics) {
	tuple, ok := expr.(*hclsyntax.TupleConsExpr)
	if !ok {
		return nil, errDiag("Invalid value list", help+".", expr.Range())
	}
	values := make([]Value, 0, len(tuple.Exprs))
	for _, e := range tuple.Exprs {
		values = append(values, Value{
			Expr:  e,
			Raw:   p.rawText(e.Range()),
			Range: e.Range(),
		})
	}
	return values, nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		digit := r >= '0' && r <= '9'
		if !alpha && (i == 0 || !digit) {
			return false
		}
	}
	return true
}
