// Package dsl parses and validates the assay annotation language. The
// directive payload is HCL attribute syntax; this package turns it into an
// immutable Config or a set of source-ranged diagnostics.
package dsl

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// IncludeEntry is one fixture-staging instruction: copy Source into the
// isolated working directory, at Dest when given, else at the temp root under
// the source's own filename.
type IncludeEntry struct {
	Source string
	Dest   string
	Range  hcl.Range
}

// EnvVar is one environment variable assignment. Duplicate keys are allowed
// in the annotation and applied in order, last one winning.
type EnvVar struct {
	Key   string
	Value string
	Range hcl.Range
}

// Value is a single case or matrix argument. Raw preserves the exact source
// text so the generator can splice it into Go code unchanged.
type Value struct {
	Expr  hclsyntax.Expression
	Raw   string
	Range hcl.Range
}

// Expr is a bare expression field (setup or teardown), kept as raw source.
type Expr struct {
	Raw   string
	Range hcl.Range
}

// NamedCase is one entry of the cases field.
type NamedCase struct {
	Name  string
	Args  []Value
	Range hcl.Range
}

// MatrixParam is one entry of the matrix field: a parameter name and its
// non-empty value list.
type MatrixParam struct {
	Name   string
	Values []Value
	Range  hcl.Range
}

// Config is the validated representation of one annotation. It is built once
// per annotated function and never mutated afterwards.
type Config struct {
	Include  []IncludeEntry
	Env      []EnvVar
	Setup    *Expr
	Teardown *Expr

	// TimeoutMillis is zero when no timeout was configured.
	TimeoutMillis int64

	// Retries is zero when not configured; the resolver treats that as 1.
	Retries int

	Cases  []NamedCase
	Matrix []MatrixParam
}

// Parse consumes one directive payload. The src buffer must be padded by the
// caller so that positions inside it line up with the real source file named
// by filename (the scanner does this).
func Parse(src []byte, filename string) (*Config, hcl.Diagnostics) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		// hclsyntax.ParseConfig always yields *hclsyntax.Body.
		panic("dsl: unexpected body type from hclsyntax")
	}

	for _, block := range body.Blocks {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Blocks are not allowed in an assay annotation",
			Detail:   "The annotation is a flat list of `name = value` entries.",
			Subject:  block.DefRange().Ptr(),
		})
	}

	// Map iteration order is not deterministic; process attributes in source
	// order so diagnostics are stable.
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	p := &parser{src: src}
	cfg := &Config{}
	for _, attr := range attrs {
		diags = append(diags, p.field(cfg, attr)...)
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return cfg, nil
}

// parser carries the raw buffer so field validators can slice out the exact
// source text of an expression.
type parser struct {
	src []byte
}

// rawText returns the original source text covered by rng.
func (p *parser) rawText(rng hcl.Range) string {
	start, end := rng.Start.Byte, rng.End.Byte
	if start < 0 || end > len(p.src) || start > end {
		return ""
	}
	return string(p.src[start:end])
}

// field dispatches one `name = value` entry to its validator. Duplicate
// attribute names never reach this point: hclsyntax rejects them at parse
// time with its own ranged diagnostic.
func (p *parser) field(cfg *Config, attr *hclsyntax.Attribute) hcl.Diagnostics {
	switch attr.Name {
	case "include":
		return p.includeField(cfg, attr)
	case "env":
		return p.envField(cfg, attr)
	case "setup", "teardown":
		return p.exprField(cfg, attr)
	case "timeout":
		return p.timeoutField(cfg, attr)
	case "retries":
		return p.retriesField(cfg, attr)
	case "cases":
		return p.casesField(cfg, attr)
	case "matrix":
		return p.matrixField(cfg, attr)
	case "ignore", "should_panic", "skip":
		return rejectedMarker(attr)
	default:
		return unknownField(attr)
	}
}
