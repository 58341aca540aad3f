package resolve_test

import (
	"strings"
	"testing"

	"github.com/mgattozzi/assay/internal/directive"
	"github.com/mgattozzi/assay/internal/dsl"
	"github.com/mgattozzi/assay/internal/resolve"
	"github.com/stretchr/testify/require"
)

func parseConfig(t *testing.T, src string) *dsl.Config {
	t.Helper()
	cfg, diags := dsl.Parse([]byte(src), "example_test.go")
	require.False(t, diags.HasErrors(), "dsl parse failed: %v", diags)
	return cfg
}

func fn(name string, params ...string) *directive.Function {
	f := &directive.Function{Name: name}
	for _, p := range params {
		f.Params = append(f.Params, directive.Param{Name: p, Type: "int"})
	}
	return f
}

func TestBaseName(t *testing.T) {
	require.Equal(t, "TestAddsUp", resolve.BaseName("addsUp"))
	require.Equal(t, "TestX", resolve.BaseName("x"))
}

func TestInstances_Unparameterized(t *testing.T) {
	cfg := parseConfig(t, `retries = 3`)
	instances, diags := resolve.Instances(fn("privateWrites"), cfg)
	require.False(t, diags.HasErrors())

	require.Len(t, instances, 1)
	require.Equal(t, "TestPrivateWrites", instances[0].Name)
	require.Empty(t, instances[0].Args)
	require.Same(t, cfg, instances[0].Config)
}

func TestInstances_Cases(t *testing.T) {
	cfg := parseConfig(t, `cases = { positive = [2, 3, 5], zeros = [0, 0, 0] }`)
	instances, diags := resolve.Instances(fn("sums", "x", "y", "want"), cfg)
	require.False(t, diags.HasErrors())

	require.Len(t, instances, 2)
	require.Equal(t, "TestSums_positive", instances[0].Name)
	require.Equal(t, []string{"2", "3", "5"}, instances[0].Args)
	require.Equal(t, "TestSums_zeros", instances[1].Name)
	require.Equal(t, []string{"0", "0", "0"}, instances[1].Args)
}

func TestInstances_Matrix(t *testing.T) {
	cfg := parseConfig(t, `matrix = { a = [1, 2], b = [10, 20] }`)
	instances, diags := resolve.Instances(fn("addsUp", "a", "b"), cfg)
	require.False(t, diags.HasErrors())

	require.Len(t, instances, 4)
	require.Equal(t, "TestAddsUp_1_10", instances[0].Name)
	require.Equal(t, []string{"1", "10"}, instances[0].Args)
	require.Equal(t, "TestAddsUp_1_20", instances[1].Name)
	require.Equal(t, "TestAddsUp_2_10", instances[2].Name)
	require.Equal(t, "TestAddsUp_2_20", instances[3].Name)
	require.Equal(t, []string{"2", "20"}, instances[3].Args)
}

func TestInstances_MatrixNameFragments(t *testing.T) {
	cfg := parseConfig(t, `matrix = { label = ["foo-bar", "baz"], flag = [true, false] }`)
	instances, diags := resolve.Instances(fn("labeled", "label", "flag"), cfg)
	require.False(t, diags.HasErrors())

	require.Len(t, instances, 4)
	require.Equal(t, "TestLabeled_foo_bar_true", instances[0].Name)
	require.Equal(t, "TestLabeled_foo_bar_false", instances[1].Name)
	require.Equal(t, "TestLabeled_baz_true", instances[2].Name)
	require.Equal(t, "TestLabeled_baz_false", instances[3].Name)
}

func TestInstances_MatrixIndexFallback(t *testing.T) {
	// An empty string sanitizes to nothing, so the parameter position is
	// used instead.
	cfg := parseConfig(t, `matrix = { s = [""], n = [-5] }`)
	instances, diags := resolve.Instances(fn("mixed", "s", "n"), cfg)
	require.False(t, diags.HasErrors())

	require.Len(t, instances, 1)
	require.Equal(t, "TestMixed_0_neg5", instances[0].Name)
	require.Equal(t, []string{`""`, "-5"}, instances[0].Args)
}

func TestInstances_MatrixCountMismatch(t *testing.T) {
	cfg := parseConfig(t, `matrix = { a = [1] }`)
	_, diags := resolve.Instances(fn("addsUp", "a", "b"), cfg)
	require.True(t, diags.HasErrors())
	require.Contains(t, diags.Error(), "1 parameters")
	require.Contains(t, diags.Error(), "declares 2")
}

func TestInstances_MatrixOrderMismatch(t *testing.T) {
	cfg := parseConfig(t, `matrix = { a = [1], b = [2] }`)
	_, diags := resolve.Instances(fn("swapped", "b", "a"), cfg)
	require.True(t, diags.HasErrors())

	msg := strings.ToLower(diags.Error())
	require.Contains(t, msg, `"a"`)
	require.Contains(t, msg, "same order")
}
