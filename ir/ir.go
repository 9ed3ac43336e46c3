// Package ir defines the shell intermediate representation and the lowering
// from the AST onto it. Values are immutable once produced: every transform
// in this package returns fresh nodes and never mutates its input.
package ir

import "fmt"

// ================================================================================================
// SHELL VALUES
// ================================================================================================

// ShellValue is the closed sum of value-level IR nodes. Every consumer is an
// exhaustive switch; an unknown variant is an internal invariant violation.
type ShellValue interface {
	isShellValue()
}

type (
	// Literal is constant text known at compile time.
	Literal struct {
		Text string
	}

	// VariableRef references a shell variable, including positional
	// parameters ("1".."9") bound at function entry.
	VariableRef struct {
		Name string
	}

	// Concat joins parts in order with no separator.
	Concat struct {
		Parts []ShellValue
	}

	// CommandSubst captures the stdout of an inner command: $( ... ).
	CommandSubst struct {
		Body ShellIR
	}

	// EnvVar reads an environment variable, optionally with a default.
	// Name is validated against the POSIX identifier pattern at lowering.
	EnvVar struct {
		Name    string
		Default ShellValue // nil when absent
	}

	// Arithmetic applies a POSIX $(( )) operator. Operands may be any
	// ShellValue variant, explicitly including nested CommandSubst.
	Arithmetic struct {
		Op  string
		Lhs ShellValue
		Rhs ShellValue
	}
)

func (*Literal) isShellValue()      {}
func (*VariableRef) isShellValue()  {}
func (*Concat) isShellValue()       {}
func (*CommandSubst) isShellValue() {}
func (*EnvVar) isShellValue()       {}
func (*Arithmetic) isShellValue()   {}

// ================================================================================================
// CONDITIONS
// ================================================================================================

// Cond is the closed sum of test conditions for If and While.
type Cond interface {
	isCond()
}

type (
	// CondArith is a numeric/boolean condition, true when the arithmetic
	// expansion is non-zero.
	CondArith struct {
		Expr ShellValue
	}

	// CondStrEq is string (in)equality under test(1) semantics.
	CondStrEq struct {
		Lhs    ShellValue
		Rhs    ShellValue
		Negate bool
	}
)

func (*CondArith) isCond() {}
func (*CondStrEq) isCond() {}

// ================================================================================================
// STATEMENTS
// ================================================================================================

// ShellIR is the closed sum of statement-level IR nodes.
type ShellIR interface {
	isShellIR()
}

type (
	// Assign binds a variable: name=value.
	Assign struct {
		Name  string
		Value ShellValue
	}

	// Echo prints a value followed by a newline, to stdout or stderr.
	Echo struct {
		Value  ShellValue
		Stderr bool
	}

	// If is a two-way branch.
	If struct {
		Cond Cond
		Then []ShellIR
		Else []ShellIR // nil when absent
	}

	// Case is a multi-way branch over literal patterns.
	Case struct {
		Word ShellValue
		Arms []CaseArm
	}

	// For iterates an inclusive integer range via seq.
	For struct {
		Var  string
		From ShellValue
		To   ShellValue
		Body []ShellIR
	}

	// While loops until its condition turns false.
	While struct {
		Cond Cond
		Body []ShellIR
	}

	// FunctionDef defines a shell function. Params records the source
	// parameter names; their positional bindings are the leading Assign
	// statements of Body.
	FunctionDef struct {
		Name   string
		Params []string
		Body   []ShellIR
	}

	// Call invokes a command: either a user-defined function or an
	// allow-listed external command with pre-escaped arguments.
	Call struct {
		Name string
		Args []ShellValue
	}

	// Pipeline connects calls stdout-to-stdin. Only produced by the fixed
	// string-helper expansions (trim, to_upper, to_lower).
	Pipeline struct {
		Stages []*Call
	}

	// Return exits the enclosing function, printing its value first so
	// callers can capture it. Exit marks main's return, which becomes exit.
	Return struct {
		Value ShellValue // nil for bare return
		Exit  bool
	}
)

func (*Assign) isShellIR()      {}
func (*Echo) isShellIR()        {}
func (*If) isShellIR()          {}
func (*Case) isShellIR()        {}
func (*For) isShellIR()         {}
func (*While) isShellIR()       {}
func (*FunctionDef) isShellIR() {}
func (*Call) isShellIR()        {}
func (*Pipeline) isShellIR()    {}
func (*Return) isShellIR()      {}

// CaseArm is one arm of a Case. Wildcard arms match `*)`.
type CaseArm struct {
	Patterns []ShellValue // literal patterns
	Wildcard bool
	Body     []ShellIR
}

// Program is the compilation unit at IR level. Functions holds every
// definition in source order; Main is always present and emitted last.
type Program struct {
	Functions []*FunctionDef
}

// Main returns the main function definition, or nil if lowering ever let a
// program without one through (it does not).
func (p *Program) Main() *FunctionDef {
	for _, fn := range p.Functions {
		if fn.Name == "main" {
			return fn
		}
	}
	return nil
}

// ================================================================================================
// TRAVERSAL
// ================================================================================================

// WalkValues visits every ShellValue reachable from a statement list,
// including values nested in conditions, arithmetic operands, and command
// substitution bodies.
func WalkValues(stmts []ShellIR, visit func(ShellValue)) {
	for _, s := range stmts {
		walkStmtValues(s, visit)
	}
}

func walkStmtValues(s ShellIR, visit func(ShellValue)) {
	switch n := s.(type) {
	case *Assign:
		walkValue(n.Value, visit)
	case *Echo:
		walkValue(n.Value, visit)
	case *If:
		walkCondValues(n.Cond, visit)
		WalkValues(n.Then, visit)
		WalkValues(n.Else, visit)
	case *Case:
		walkValue(n.Word, visit)
		for _, arm := range n.Arms {
			for _, pat := range arm.Patterns {
				walkValue(pat, visit)
			}
			WalkValues(arm.Body, visit)
		}
	case *For:
		walkValue(n.From, visit)
		walkValue(n.To, visit)
		WalkValues(n.Body, visit)
	case *While:
		walkCondValues(n.Cond, visit)
		WalkValues(n.Body, visit)
	case *FunctionDef:
		WalkValues(n.Body, visit)
	case *Call:
		for _, a := range n.Args {
			walkValue(a, visit)
		}
	case *Pipeline:
		for _, c := range n.Stages {
			walkStmtValues(c, visit)
		}
	case *Return:
		if n.Value != nil {
			walkValue(n.Value, visit)
		}
	default:
		panic(fmt.Sprintf("ir: unknown statement %T in WalkValues", s))
	}
}

func walkCondValues(c Cond, visit func(ShellValue)) {
	switch n := c.(type) {
	case *CondArith:
		walkValue(n.Expr, visit)
	case *CondStrEq:
		walkValue(n.Lhs, visit)
		walkValue(n.Rhs, visit)
	default:
		panic(fmt.Sprintf("ir: unknown condition %T in walkCondValues", c))
	}
}

func walkValue(v ShellValue, visit func(ShellValue)) {
	if v == nil {
		return
	}
	visit(v)
	switch n := v.(type) {
	case *Literal, *VariableRef:
	case *Concat:
		for _, part := range n.Parts {
			walkValue(part, visit)
		}
	case *CommandSubst:
		walkStmtValues(n.Body, visit)
	case *EnvVar:
		walkValue(n.Default, visit)
	case *Arithmetic:
		walkValue(n.Lhs, visit)
		walkValue(n.Rhs, visit)
	default:
		panic(fmt.Sprintf("ir: unknown value %T in walkValue", v))
	}
}

// ================================================================================================
// METRICS
// ================================================================================================

// Metrics are the IR size/complexity numbers the reporting layer consumes.
type Metrics struct {
	BranchCount  int `json:"branch_count"`
	NestingDepth int `json:"nesting_depth"`
	Statements   int `json:"statements"`
}

// Measure computes metrics for a statement list.
func Measure(stmts []ShellIR) Metrics {
	m := Metrics{}
	measure(stmts, 1, &m)
	return m
}

func measure(stmts []ShellIR, depth int, m *Metrics) {
	if depth > m.NestingDepth && len(stmts) > 0 {
		m.NestingDepth = depth
	}
	for _, s := range stmts {
		m.Statements++
		switch n := s.(type) {
		case *If:
			m.BranchCount++
			measure(n.Then, depth+1, m)
			measure(n.Else, depth+1, m)
		case *Case:
			m.BranchCount += len(n.Arms)
			for _, arm := range n.Arms {
				measure(arm.Body, depth+1, m)
			}
		case *For:
			m.BranchCount++
			measure(n.Body, depth+1, m)
		case *While:
			m.BranchCount++
			measure(n.Body, depth+1, m)
		case *FunctionDef:
			measure(n.Body, depth+1, m)
		}
	}
}
