// Package resolve expands one validated annotation into the concrete list of
// test instances to generate: one for a plain annotation, one per named case,
// or the full Cartesian product of a matrix.
package resolve

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/hashicorp/hcl/v2"
	"github.com/mgattozzi/assay/internal/directive"
	"github.com/mgattozzi/assay/internal/dsl"
	"github.com/mgattozzi/assay/internal/ident"
)

// Instance is one generated test: a unique wrapper name and the raw argument
// texts passed to the original function after its *testing.T. All instances
// of one annotated function share the same Config.
type Instance struct {
	Name   string
	Args   []string
	Config *dsl.Config
}

// BaseName derives the generated wrapper's name from the annotated
// function's own name: "addsUp" becomes "TestAddsUp".
func BaseName(fnName string) string {
	runes := []rune(fnName)
	runes[0] = unicode.ToUpper(runes[0])
	return "Test" + string(runes)
}

// Instances produces the final instance list for one annotated function.
// Matrix parameter names are validated against the function signature here;
// case argument arity is not, because a mismatch already fails to compile in
// the generated file, which is the better error site.
func Instances(fn *directive.Function, cfg *dsl.Config) ([]Instance, hcl.Diagnostics) {
	base := BaseName(fn.Name)

	switch {
	case len(cfg.Cases) > 0:
		return caseInstances(base, cfg), nil
	case len(cfg.Matrix) > 0:
		return matrixInstances(base, fn, cfg)
	default:
		return []Instance{{Name: base, Config: cfg}}, nil
	}
}

func caseInstances(base string, cfg *dsl.Config) []Instance {
	instances := make([]Instance, 0, len(cfg.Cases))
	for _, c := range cfg.Cases {
		args := make([]string, 0, len(c.Args))
		for _, a := range c.Args {
			args = append(args, a.Raw)
		}
		instances = append(instances, Instance{
			Name:   base + "_" + c.Name,
			Args:   args,
			Config: cfg,
		})
	}
	return instances
}

func matrixInstances(base string, fn *directive.Function, cfg *dsl.Config) ([]Instance, hcl.Diagnostics) {
	if diags := checkMatrixParams(fn, cfg); diags.HasErrors() {
		return nil, diags
	}

	lists := make([][]dsl.Value, 0, len(cfg.Matrix))
	for _, param := range cfg.Matrix {
		lists = append(lists, param.Values)
	}

	combos := Product(lists)
	instances := make([]Instance, 0, len(combos))
	for _, combo := range combos {
		fragments := make([]string, 0, len(combo))
		args := make([]string, 0, len(combo))
		for i, v := range combo {
			fragment, ok := ident.FromExpression(v.Expr)
			if !ok {
				// Too complex to name; the parameter position keeps the
				// name syntactically valid.
				fragment = strconv.Itoa(i)
			}
			fragments = append(fragments, fragment)
			args = append(args, v.Raw)
		}
		instances = append(instances, Instance{
			Name:   base + "_" + strings.Join(fragments, "_"),
			Args:   args,
			Config: cfg,
		})
	}
	return instances, nil
}

// checkMatrixParams requires the matrix parameter names to equal the
// function's declared parameters in both order and count.
func checkMatrixParams(fn *directive.Function, cfg *dsl.Config) hcl.Diagnostics {
	if len(cfg.Matrix) != len(fn.Params) {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Matrix parameter count mismatch",
			Detail: fmt.Sprintf(
				"The matrix has %d parameters but %s declares %d (after the *testing.T). The matrix must name every function parameter.",
				len(cfg.Matrix), fn.Name, len(fn.Params),
			),
			Subject: fn.DefRange.Ptr(),
		}}
	}

	for i, param := range cfg.Matrix {
		if param.Name != fn.Params[i].Name {
			return hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Matrix parameter %q does not match function parameter %q", param.Name, fn.Params[i].Name),
				Detail:   "Matrix parameters must match the function's parameters in the same order.",
				Subject:  param.Range.Ptr(),
			}}
		}
	}
	return nil
}
