// Package ident converts literal annotation values into identifier-safe
// fragments used to name generated matrix test instances. Values that are not
// simple literals yield no fragment; the caller falls back to the
// combination's positional index.
package ident

import (
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// FromExpression classifies a directive expression. Only expressions that
// evaluate statically (no variables, no functions) can produce a fragment.
func FromExpression(expr hcl.Expression) (string, bool) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", false
	}
	return FromValue(val)
}

// FromValue classifies an already-evaluated value. Integers map to their
// decimal digits ("neg"-prefixed when negative), strings are sanitized to
// ASCII alphanumerics, booleans map to "true"/"false". Everything else is
// too complex to name.
func FromValue(val cty.Value) (string, bool) {
	if val.IsNull() || !val.IsKnown() {
		return "", false
	}

	switch val.Type() {
	case cty.Number:
		bf := val.AsBigFloat()
		if !bf.IsInt() {
			return "", false
		}
		bi, _ := bf.Int(nil)
		if bi.Sign() < 0 {
			return "neg" + new(big.Int).Abs(bi).String(), true
		}
		return bi.String(), true

	case cty.String:
		return sanitize(val.AsString())

	case cty.Bool:
		if val.True() {
			return "true", true
		}
		return "false", true

	default:
		return "", false
	}
}

// sanitize replaces every non-alphanumeric character with an underscore. An
// identifier cannot start with a digit, so such results get a leading
// underscore instead.
func sanitize(s string) (string, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, byte(r))
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "", false
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = append([]byte{'_'}, out...)
	}
	return string(out), true
}
