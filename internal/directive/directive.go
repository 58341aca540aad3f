// Package directive locates annotated test functions in Go source. An
// annotation is an `//assay:` comment in a function's doc group; the payload
// is the remainder of that line plus every following `//` line in the group.
//
// The payload is extracted into a same-length copy of the file in which
// every byte outside the directive text is blanked to a space (newlines are
// kept). Byte offsets, lines and columns inside the buffer therefore match
// the real source file exactly, and diagnostics produced by the DSL parser
// point at the user's own comment text.
package directive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Marker starts an annotation inside a doc comment.
const Marker = "//assay:"

// Param is one declared parameter of an annotated function, excluding the
// leading *testing.T.
type Param struct {
	Name string
	Type string
}

// Function is one annotated function found in a source file.
type Function struct {
	// Name is the function's own (lower-cased) name.
	Name string

	// Params are the parameters after the *testing.T, in declaration order.
	Params []Param

	// Payload is the masked directive buffer, ready for dsl.Parse.
	Payload []byte

	// DefRange covers the function name, for diagnostics about the
	// function itself rather than the annotation.
	DefRange hcl.Range
}

// File is the scan result for one source file.
type File struct {
	Path    string
	Package string
	Funcs   []Function
}

// ScanFile parses one _test.go file and extracts its annotated functions.
// Structural problems (not a *testing.T first parameter, results, already a
// Test function) are reported as diagnostics; an unreadable or unparsable
// file is an error.
func ScanFile(path string) (*File, hcl.Diagnostics, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return scan(path, src)
}

func scan(path string, src []byte) (*File, hcl.Diagnostics, error) {
	fset := token.NewFileSet()
	astFile, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out := &File{Path: path, Package: astFile.Name.Name}
	var diags hcl.Diagnostics

	for _, decl := range astFile.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Doc == nil {
			continue
		}
		payload, found := assemblePayload(fset, src, fn.Doc)
		if !found {
			continue
		}

		defRange := rangeAt(fset.Position(fn.Name.Pos()), len(fn.Name.Name))
		fnDiags := checkSignature(fn, defRange)
		if fnDiags.HasErrors() {
			diags = append(diags, fnDiags...)
			continue
		}

		out.Funcs = append(out.Funcs, Function{
			Name:     fn.Name.Name,
			Params:   paramList(fn),
			Payload:  payload,
			DefRange: defRange,
		})
	}

	return out, diags, nil
}

// assemblePayload masks a copy of the source file down to one doc comment
// group's directive text. Bytes outside the payload become spaces and
// newlines are kept, so the buffer is the same length as the file and every
// line, column and byte offset inside it matches the real source. Returns
// found=false when the group carries no marker.
func assemblePayload(fset *token.FileSet, src []byte, doc *ast.CommentGroup) ([]byte, bool) {
	buf := make([]byte, len(src))
	for i, b := range src {
		if b == '\n' {
			buf[i] = '\n'
		} else {
			buf[i] = ' '
		}
	}

	inPayload := false
	for _, c := range doc.List {
		start := fset.Position(c.Pos()).Offset
		end := start + len(c.Text)
		switch {
		case strings.HasPrefix(c.Text, Marker):
			copy(buf[start+len(Marker):end], src[start+len(Marker):end])
			inPayload = true
		case inPayload && strings.HasPrefix(c.Text, "//"):
			copy(buf[start+2:end], src[start+2:end])
		}
	}

	if !inPayload {
		return nil, false
	}
	return buf, true
}

// checkSignature enforces the shape an annotated function must have.
func checkSignature(fn *ast.FuncDecl, defRange hcl.Range) hcl.Diagnostics {
	name := fn.Name.Name
	if strings.HasPrefix(name, "Test") && (len(name) == 4 || !isLower(name[4])) {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Annotated function %q is already a test function", name),
			Detail:   "The go test harness would run it directly, bypassing the generated wrapper. Use a lower-cased name; the generator derives the Test name from it.",
			Subject:  defRange.Ptr(),
		}}
	}
	if fn.Recv != nil {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Annotated function %q has a receiver", name),
			Detail:   "Annotations are only supported on plain functions.",
			Subject:  defRange.Ptr(),
		}}
	}
	if fn.Type.TypeParams != nil {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Annotated function %q is generic", name),
			Detail:   "Annotations are only supported on non-generic functions.",
			Subject:  defRange.Ptr(),
		}}
	}
	if fn.Type.Results != nil && len(fn.Type.Results.List) > 0 {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Annotated function %q returns values", name),
			Detail:   "Report failures through the *testing.T instead of return values.",
			Subject:  defRange.Ptr(),
		}}
	}
	if !hasTestingTFirst(fn) {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Annotated function %q must take *testing.T first", name),
			Detail:   "The generated wrapper passes its own *testing.T through as the first argument.",
			Subject:  defRange.Ptr(),
		}}
	}
	return nil
}

// hasTestingTFirst reports whether the first parameter is *testing.T.
func hasTestingTFirst(fn *ast.FuncDecl) bool {
	params := fn.Type.Params
	if params == nil || len(params.List) == 0 {
		return false
	}
	star, ok := params.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "T" {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "testing"
}

// paramList flattens the declared parameters after the *testing.T. A field
// with several names ("a, b int") yields one Param per name.
func paramList(fn *ast.FuncDecl) []Param {
	var out []Param
	for i, field := range fn.Type.Params.List {
		names := field.Names
		typeName := typeString(field.Type)
		if i == 0 {
			// The *testing.T field. It can still share names with nothing
			// else, so skip the whole field.
			continue
		}
		for _, n := range names {
			out = append(out, Param{Name: n.Name, Type: typeName})
		}
	}
	return out
}

// typeString renders the small subset of type expressions that occur in test
// signatures. Anything exotic falls back to a best-effort form; the generated
// code never needs the type, it is informational only.
func typeString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + typeString(e.X)
	case *ast.SelectorExpr:
		return typeString(e.X) + "." + e.Sel.Name
	case *ast.ArrayType:
		return "[]" + typeString(e.Elt)
	case *ast.MapType:
		return "map[" + typeString(e.Key) + "]" + typeString(e.Value)
	default:
		return fmt.Sprintf("%T", expr)
	}
}

func isLower(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// rangeAt builds an hcl.Range spanning n bytes from a go/token position, so
// annotation diagnostics and signature diagnostics share one reporting path.
func rangeAt(pos token.Position, n int) hcl.Range {
	start := hcl.Pos{Line: pos.Line, Column: pos.Column, Byte: pos.Offset}
	return hcl.Range{
		Filename: pos.Filename,
		Start:    start,
		End:      hcl.Pos{Line: pos.Line, Column: pos.Column + n, Byte: pos.Offset + n},
	}
}
