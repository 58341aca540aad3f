package ident_test

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/mgattozzi/assay/internal/ident"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// parseExpr is a test helper to quickly get an hcl.Expression from a string.
func parseExpr(t *testing.T, exprStr string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(exprStr), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), "expression parsing failed: %s", diags.Error())
	return expr
}

func TestFromExpression_Literals(t *testing.T) {
	testCases := []struct {
		expr string
		want string
	}{
		{`42`, "42"},
		{`0`, "0"},
		{`-5`, "neg5"},
		{`"foo"`, "foo"},
		{`"foo-bar"`, "foo_bar"},
		{`"hello world"`, "hello_world"},
		{`"4chan"`, "_4chan"},
		{`true`, "true"},
		{`false`, "false"},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			got, ok := ident.FromExpression(parseExpr(t, tc.expr))
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFromExpression_TooComplex(t *testing.T) {
	testCases := []string{
		`""`,           // sanitizes to nothing
		`"---"`,        // only separators still produce a fragment
		`[1, 2]`,       // composite
		`{ a = 1 }`,    // composite
		`var.x`,        // reference
		`upper("x")`,   // function call
		`1.5`,          // non-integer number
		`null`,         // null literal
	}

	for _, exprStr := range testCases {
		t.Run(exprStr, func(t *testing.T) {
			got, ok := ident.FromExpression(parseExpr(t, exprStr))
			if exprStr == `"---"` {
				// Separator-only strings sanitize to underscores, which is
				// still a valid identifier fragment.
				require.True(t, ok)
				require.Equal(t, "___", got)
				return
			}
			require.False(t, ok, "expected no fragment, got %q", got)
		})
	}
}

func TestFromValue(t *testing.T) {
	got, ok := ident.FromValue(cty.NumberIntVal(-12))
	require.True(t, ok)
	require.Equal(t, "neg12", got)

	got, ok = ident.FromValue(cty.StringVal("Ünïcode!"))
	require.True(t, ok)
	require.Equal(t, "_n_code_", got)

	_, ok = ident.FromValue(cty.NullVal(cty.String))
	require.False(t, ok)

	_, ok = ident.FromValue(cty.UnknownVal(cty.Number))
	require.False(t, ok)
}
