// Package schema holds the shared diagnostic type and primitive field
// rules used by the per-family spec validators. Validators never stop at
// the first problem: every defect in a document is collected into a
// Report and returned in one pass.
package schema

import (
	"fmt"
	"strings"
)

// Diagnostic is one validation defect, addressed by a dotted path into
// the document (e.g. "signals[2].check_field").
type Diagnostic struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return d.Path + ": " + d.Message
}

// Report collects diagnostics across a validation pass.
type Report struct {
	diags []Diagnostic
}

// Add appends a diagnostic at the given path.
func (r *Report) Add(path, message string) {
	r.diags = append(r.diags, Diagnostic{Path: path, Message: message})
}

// Addf appends a diagnostic with a formatted message.
func (r *Report) Addf(path, format string, args ...any) {
	r.Add(path, fmt.Sprintf(format, args...))
}

// OK reports whether no diagnostics were collected.
func (r *Report) OK() bool {
	return len(r.diags) == 0
}

// Len returns the number of collected diagnostics.
func (r *Report) Len() int {
	return len(r.diags)
}

// Diagnostics returns the collected diagnostics in insertion order.
func (r *Report) Diagnostics() []Diagnostic {
	return r.diags
}

// Join renders all diagnostics as a single "path: message; ..." string,
// used by the assert-valid wrappers.
func Join(diags []Diagnostic) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = d.String()
	}
	return strings.Join(parts, "; ")
}

// Field joins a path prefix and a field name with a dot. An empty prefix
// yields the bare field name, so root-level fields address cleanly.
func Field(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Index addresses the i-th element of the array at path.
func Index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
