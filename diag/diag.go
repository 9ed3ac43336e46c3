package diag

import (
	"fmt"
	"strings"

	"github.com/paiml/rash/lexer"
)

// Error codes for the compilation pipeline. Codes are stable strings so the
// reporting layers can key on them without importing Go types.
const (
	CodeParseError         = "PARSE_ERROR"
	CodeUnsupportedFeature = "UNSUPPORTED_FEATURE"
	CodeLoweringError      = "LOWERING_ERROR"
	CodeEmissionError      = "EMISSION_ERROR"
	CodeValidationFailure  = "VALIDATION_FAILURE"
	CodeDeterminismFailure = "DETERMINISM_FAILURE"
	CodeIOError            = "IO_ERROR"
)

// Severity classifies a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

var severityNames = [...]string{
	Info:    "info",
	Warning: "warning",
	Error:   "error",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) && int(s) >= 0 {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Diagnostic is a single user-facing finding with a source location, a stable
// code, and an optional suggested fix.
type Diagnostic struct {
	Span     lexer.SourceSpan `json:"span"`
	Code     string           `json:"code"`
	Severity Severity         `json:"severity"`
	Message  string           `json:"message"`
	Fix      string           `json:"fix,omitempty"`
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s: %s [%s]", d.Span, d.Severity, d.Message, d.Code)
	if d.Fix != "" {
		fmt.Fprintf(&sb, "\n  fix: %s", d.Fix)
	}
	return sb.String()
}

// List is a diagnostic set usable as an error value.
type List []Diagnostic

func (l List) Error() string {
	if len(l) == 0 {
		return "no diagnostics"
	}
	parts := make([]string, len(l))
	for i, d := range l {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}

// HasErrors reports whether any diagnostic is Error severity.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic is Warning severity.
func (l List) HasWarnings() bool {
	for _, d := range l {
		if d.Severity == Warning {
			return true
		}
	}
	return false
}

// DefaultLimit is the bound on diagnostics collected per run. Past this the
// collector records how many were dropped instead of growing without bound.
const DefaultLimit = 20

// Collector aggregates diagnostics up to a fixed limit.
type Collector struct {
	limit   int
	diags   List
	dropped int
}

// NewCollector creates a Collector with the given limit (<=0 uses DefaultLimit).
func NewCollector(limit int) *Collector {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Collector{limit: limit}
}

// Add records a diagnostic. Returns false once the limit is reached.
func (c *Collector) Add(d Diagnostic) bool {
	if len(c.diags) >= c.limit {
		c.dropped++
		return false
	}
	c.diags = append(c.diags, d)
	return true
}

// Full reports whether the collector has reached its limit.
func (c *Collector) Full() bool {
	return len(c.diags) >= c.limit
}

// Dropped returns how many diagnostics were discarded past the limit.
func (c *Collector) Dropped() int {
	return c.dropped
}

// HasErrors reports whether any collected diagnostic is an error.
func (c *Collector) HasErrors() bool {
	return c.diags.HasErrors()
}

// Diagnostics returns the collected diagnostics.
func (c *Collector) Diagnostics() List {
	return c.diags
}

// Errorf builds a single-element error List. Used by the fail-fast stages
// past the parser, which never aggregate.
func Errorf(code string, span lexer.SourceSpan, format string, args ...interface{}) List {
	return List{{
		Span:     span,
		Code:     code,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
	}}
}
