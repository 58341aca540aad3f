package dsl

import (
	"fmt"

	"github.com/agext/levenshtein"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// validFields is the full annotation vocabulary, in documentation order.
var validFields = []string{
	"include", "env", "setup", "teardown", "timeout", "retries", "cases", "matrix",
}

// synonyms maps common misspellings and other frameworks' names for a field
// onto the one we actually accept.
var synonyms = map[string]string{
	"includes":     "include",
	"fixtures":     "include",
	"files":        "include",
	"envs":         "env",
	"environment":  "env",
	"set_up":       "setup",
	"before":       "setup",
	"before_each":  "setup",
	"tear_down":    "teardown",
	"after":        "teardown",
	"after_each":   "teardown",
	"cleanup":      "teardown",
	"time":         "timeout",
	"time_out":     "timeout",
	"timelimit":    "timeout",
	"time_limit":   "timeout",
	"deadline":     "timeout",
	"retry":        "retries",
	"attempts":     "retries",
	"tries":        "retries",
	"repeat":       "retries",
	"flaky":        "retries",
	"case":         "cases",
	"params":       "cases",
	"parameters":   "cases",
	"test_cases":   "cases",
	"values":       "matrix",
	"combinations": "matrix",
	"cartesian":    "matrix",
	"parametrize":  "matrix",
}

const validFieldList = "include, env, setup, teardown, timeout, retries, cases, matrix"

// unknownField builds the diagnostic for a name outside the vocabulary,
// suggesting the nearest valid field when one is plausible.
func unknownField(attr *hclsyntax.Attribute) hcl.Diagnostics {
	detail := fmt.Sprintf("Valid fields are: %s.", validFieldList)
	if suggestion := suggestField(attr.Name); suggestion != "" {
		detail = fmt.Sprintf("Did you mean %q? Valid fields are: %s.", suggestion, validFieldList)
	}
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("Unknown field %q", attr.Name),
		Detail:   detail,
		Subject:  attr.NameRange.Ptr(),
	}}
}

// suggestField returns the closest valid field name, or "" when nothing is
// close enough to be worth suggesting. The synonym table wins over edit
// distance so that e.g. "cleanup" maps to teardown instead of nothing.
func suggestField(given string) string {
	if target, ok := synonyms[given]; ok {
		return target
	}
	for _, field := range validFields {
		if levenshtein.Distance(given, field, nil) < 3 {
			return field
		}
	}
	return ""
}

// rejectedMarker handles markers other test frameworks accept that are
// deliberately not part of this annotation.
func rejectedMarker(attr *hclsyntax.Attribute) hcl.Diagnostics {
	var detail string
	switch attr.Name {
	case "should_panic":
		detail = "Expected panics are not configured in the annotation. Assert the panic inside the test body instead (e.g. require.Panics)."
	default:
		detail = "Skipping is not configured in the annotation. Call t.Skip() inside the test body, or guard the file with a build tag."
	}
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("%q does not belong in an assay annotation", attr.Name),
		Detail:   detail,
		Subject:  attr.NameRange.Ptr(),
	}}
}
