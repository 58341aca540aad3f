// Package codegen renders the generated companion file for one scanned
// source file: a Test wrapper per resolved instance, each dispatching its
// annotated function through the assay runtime.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"

	"github.com/hashicorp/hcl/v2"
	"github.com/mgattozzi/assay/internal/directive"
	"github.com/mgattozzi/assay/internal/dsl"
	"github.com/mgattozzi/assay/internal/resolve"
)

// Suffix replaces the "_test.go" suffix of an annotated file to name its
// generated companion.
const Suffix = "_assay_test.go"

// runtimeImport is the module the generated wrappers dispatch through.
const runtimeImport = "github.com/mgattozzi/assay"

// OutputPath returns the companion path for an annotated source file.
func OutputPath(source string) string {
	return strings.TrimSuffix(source, "_test.go") + Suffix
}

// IsGenerated reports whether path names a companion file this package
// emits. The scanner uses it to skip its own output.
func IsGenerated(path string) bool {
	return strings.HasSuffix(path, Suffix)
}

// expansion pairs one resolved instance with the function it came from.
type expansion struct {
	fn   *directive.Function
	inst resolve.Instance
}

// expand parses and resolves every annotation in a scanned file. Failing
// annotations contribute diagnostics instead of expansions.
func expand(file *directive.File) ([]expansion, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var out []expansion

	for i := range file.Funcs {
		fn := &file.Funcs[i]

		cfg, parseDiags := dsl.Parse(fn.Payload, file.Path)
		diags = append(diags, parseDiags...)
		if parseDiags.HasErrors() {
			continue
		}

		instances, resolveDiags := resolve.Instances(fn, cfg)
		diags = append(diags, resolveDiags...)
		if resolveDiags.HasErrors() {
			continue
		}

		for _, inst := range instances {
			out = append(out, expansion{fn: fn, inst: inst})
		}
	}
	return out, diags
}

// TestSummary describes one generated instance for listings, without
// rendering any code.
type TestSummary struct {
	Func          string
	Name          string
	Retries       int
	TimeoutMillis int64
}

// Tests expands a scanned file into the instances it would generate.
func Tests(file *directive.File) ([]TestSummary, hcl.Diagnostics) {
	expansions, diags := expand(file)
	if diags.HasErrors() {
		return nil, diags
	}

	summaries := make([]TestSummary, 0, len(expansions))
	for _, e := range expansions {
		summaries = append(summaries, TestSummary{
			Func:          e.fn.Name,
			Name:          e.inst.Name,
			Retries:       e.inst.Config.Retries,
			TimeoutMillis: e.inst.Config.TimeoutMillis,
		})
	}
	return summaries, diags
}

// Generate runs one scanned file through the full pipeline: parse each
// annotation payload, resolve it into instances, and render the companion
// source. Diagnostics from any annotation abort the whole file; nothing is
// rendered from a partially valid input.
func Generate(file *directive.File) ([]byte, hcl.Diagnostics, error) {
	expansions, diags := expand(file)
	if diags.HasErrors() {
		return nil, diags, nil
	}

	data := fileData{Package: file.Package, Source: file.Path}
	for _, e := range expansions {
		td := newTestData(e.fn, e.inst)
		if td.Timeout != "" {
			data.NeedsTime = true
		}
		data.Tests = append(data.Tests, td)
	}
	if len(data.Tests) == 0 {
		return nil, diags, nil
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, diags, fmt.Errorf("failed to render %s: %w", OutputPath(file.Path), err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		// A formatting failure means an annotation value was not valid Go
		// once spliced; surface the raw output in the error for debugging.
		return nil, diags, fmt.Errorf("generated code for %s does not parse: %w\n%s", file.Path, err, buf.String())
	}
	return formatted, diags, nil
}

type fileData struct {
	Package   string
	Source    string
	NeedsTime bool
	Tests     []testData
}

type binding struct {
	Name string
	Raw  string
}

type envData struct {
	Key   string
	Value string
}

type includeData struct {
	Source string
	Dest   string
}

type testData struct {
	Name     string
	Retries  int
	Timeout  string // rendered Go duration expression, empty when unset
	Include  []includeData
	Env      []envData
	Setup    string
	Teardown string

	// Bindings assign each argument to its parameter name before the call.
	// When arity does not match the declaration the arguments are spliced
	// into the call instead, so that the mismatch fails to compile at the
	// call site.
	Bindings []binding
	Call     string
}

func newTestData(fn *directive.Function, inst resolve.Instance) testData {
	cfg := inst.Config

	td := testData{
		Name:    inst.Name,
		Retries: cfg.Retries,
		Timeout: timeoutExpr(cfg.TimeoutMillis),
	}
	for _, inc := range cfg.Include {
		td.Include = append(td.Include, includeData{
			Source: strconv.Quote(inc.Source),
			Dest:   quoteOptional(inc.Dest),
		})
	}
	for _, env := range cfg.Env {
		td.Env = append(td.Env, envData{
			Key:   strconv.Quote(env.Key),
			Value: strconv.Quote(env.Value),
		})
	}
	if cfg.Setup != nil {
		td.Setup = cfg.Setup.Raw
	}
	if cfg.Teardown != nil {
		td.Teardown = cfg.Teardown.Raw
	}

	callArgs := []string{"t"}
	if len(inst.Args) == len(fn.Params) {
		for i, raw := range inst.Args {
			td.Bindings = append(td.Bindings, binding{Name: fn.Params[i].Name, Raw: raw})
			callArgs = append(callArgs, fn.Params[i].Name)
		}
	} else {
		callArgs = append(callArgs, inst.Args...)
	}
	td.Call = fmt.Sprintf("%s(%s)", fn.Name, strings.Join(callArgs, ", "))
	return td
}

func quoteOptional(s string) string {
	if s == "" {
		return ""
	}
	return strconv.Quote(s)
}

// timeoutExpr renders a millisecond count as the most readable Go duration
// expression: whole seconds when possible, milliseconds otherwise.
func timeoutExpr(millis int64) string {
	switch {
	case millis == 0:
		return ""
	case millis%1000 == 0:
		return fmt.Sprintf("%d * time.Second", millis/1000)
	default:
		return fmt.Sprintf("%d * time.Millisecond", millis)
	}
}

var fileTemplate = template.Must(template.New("assay").Parse(`// Code generated by assay. DO NOT EDIT.
// Source: {{.Source}}

package {{.Package}}

import (
	"testing"
{{- if .NeedsTime}}
	"time"
{{- end}}

	"` + runtimeImport + `"
)
{{range .Tests}}
func {{.Name}}(t *testing.T) {
	assay.Dispatch(t, assay.Plan{
		Name: "{{.Name}}",
{{- if .Retries}}
		Retries: {{.Retries}},
{{- end}}
{{- if .Timeout}}
		Timeout: {{.Timeout}},
{{- end}}
	}, func(t *testing.T) {
		fs, err := assay.NewPrivateFS()
		if err != nil {
			t.Fatal(err)
		}
		defer fs.Close()
{{- range .Include}}
{{- if .Dest}}
		if err := fs.IncludeAs({{.Source}}, {{.Dest}}); err != nil {
			t.Fatal(err)
		}
{{- else}}
		if err := fs.Include({{.Source}}); err != nil {
			t.Fatal(err)
		}
{{- end}}
{{- end}}
{{- if .Setup}}
		{{.Setup}}
{{- end}}
{{- range .Env}}
		t.Setenv({{.Key}}, {{.Value}})
{{- end}}
{{- range .Bindings}}
		{{.Name}} := {{.Raw}}
{{- end}}
		{{.Call}}
{{- if .Teardown}}
		{{.Teardown}}
{{- end}}
	})
}
{{end}}`))
