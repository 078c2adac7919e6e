package record

import "strings"

// FilterSpec is a per-connection predicate over records. Zero-valued fields
// match everything for that dimension. A connection replaces its whole spec
// atomically; partial field updates never race with evaluation.
type FilterSpec struct {
	// Level matches records with exactly this severity.
	Level Level `json:"level,omitempty"`
	// Logger matches records whose logger name contains this substring.
	Logger string `json:"logger,omitempty"`
	// Search matches case-insensitively against message or logger.
	Search string `json:"search,omitempty"`
	// Expr is an optional CEL expression compiled by the logs service.
	// It is carried here so filter acks echo the full spec.
	Expr string `json:"expr,omitempty"`
}

// IsZero reports whether the spec matches all records.
func (f FilterSpec) IsZero() bool {
	return f.Level == "" && f.Logger == "" && f.Search == "" && f.Expr == ""
}

// Matches evaluates the simple predicate fields against r. The Expr field is
// evaluated separately by its compiled program.
func (f FilterSpec) Matches(r Record) bool {
	if f.Level != "" && r.Level != f.Level {
		return false
	}
	if f.Logger != "" && !strings.Contains(r.Logger, f.Logger) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Message), needle) &&
			!strings.Contains(strings.ToLower(r.Logger), needle) {
			return false
		}
	}
	return true
}
