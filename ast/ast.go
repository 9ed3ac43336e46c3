package ast

import "github.com/paiml/rash/lexer"

// NodeInfo carries the canonical node id and source span every accepted node
// gets at parse time. Ids are dense and stable for a given input, so later
// stages can reference nodes in diagnostics without holding the AST.
type NodeInfo struct {
	ID   int
	Span lexer.SourceSpan
}

func (n NodeInfo) NodeID() int                { return n.ID }
func (n NodeInfo) Position() lexer.SourceSpan { return n.Span }

// Type is the nominal type annotation of the accepted subset.
type Type string

const (
	TypeI32    Type = "i32"
	TypeU32    Type = "u32"
	TypeBool   Type = "bool"
	TypeStr    Type = "&str"
	TypeString Type = "String"
	TypeUnit   Type = "()"
)

// Program is the unit of compilation: an ordered collection of functions.
type Program struct {
	Functions []*Function
}

// Function is a single fn item.
type Function struct {
	NodeInfo
	Name       string
	Params     []Param
	ReturnType Type
	Body       []Statement
}

// Param is one typed function parameter.
type Param struct {
	Name string
	Type Type
}

// Statement is the closed statement set of the accepted subset.
type Statement interface {
	NodeID() int
	Position() lexer.SourceSpan
	isStatement()
}

type (
	// Let binds a (possibly mutable) name to an expression value.
	Let struct {
		NodeInfo
		Name    string
		Mutable bool
		Value   Expr
	}

	// If is an if/else-if/else chain; else-if nests as a single-statement Else.
	If struct {
		NodeInfo
		Cond Expr
		Then []Statement
		Else []Statement // nil when absent
	}

	// Match is a match over literal patterns plus an optional wildcard arm.
	Match struct {
		NodeInfo
		Subject Expr
		Arms    []MatchArm
	}

	// For is range iteration: `for v in from..to` or `from..=to`.
	For struct {
		NodeInfo
		Var       string
		From      Expr
		To        Expr
		Inclusive bool
		Body      []Statement
	}

	// While is a condition-guarded loop.
	While struct {
		NodeInfo
		Cond Expr
		Body []Statement
	}

	// ExprStmt is an expression evaluated for effect (calls, macros, assignment).
	ExprStmt struct {
		NodeInfo
		E Expr
	}

	// Return exits the enclosing function, optionally with a value.
	Return struct {
		NodeInfo
		Value Expr // nil for bare return
	}
)

func (*Let) isStatement()      {}
func (*If) isStatement()       {}
func (*Match) isStatement()    {}
func (*For) isStatement()      {}
func (*While) isStatement()    {}
func (*ExprStmt) isStatement() {}
func (*Return) isStatement()   {}

// MatchArm is one arm of a match. Wildcard arms (`_`) have no patterns.
type MatchArm struct {
	Patterns []Expr // literal patterns; empty means wildcard
	Wildcard bool
	Body     []Statement
}

// Expr is the closed expression set of the accepted subset.
type Expr interface {
	NodeID() int
	Position() lexer.SourceSpan
	isExpr()
}

type (
	// IntLit is an integer literal.
	IntLit struct {
		NodeInfo
		Value int64
	}

	// BoolLit is true or false.
	BoolLit struct {
		NodeInfo
		Value bool
	}

	// StrLit is a string literal with escapes already resolved.
	StrLit struct {
		NodeInfo
		Value string
	}

	// VarRef references a bound name.
	VarRef struct {
		NodeInfo
		Name string
	}

	// Unary is prefix negation: -x or !x.
	Unary struct {
		NodeInfo
		Op      string
		Operand Expr
	}

	// Binary is an infix operator application.
	Binary struct {
		NodeInfo
		Op string
		L  Expr
		R  Expr
	}

	// Assign is reassignment of a bound name. Compound forms (+=, -=, *=, /=,
	// %=) never reach the AST: the parser desugars them into Assign of the
	// matching Binary.
	Assign struct {
		NodeInfo
		Name  string
		Value Expr
	}

	// Call invokes a user function or an allow-listed stdlib function.
	Call struct {
		NodeInfo
		Name string
		Args []Expr
	}

	// MacroCall is one of the allow-listed macro forms: format!, vec!,
	// println!, eprintln!. Anything else is rejected at the parser.
	MacroCall struct {
		NodeInfo
		Name string
		Args []Expr
	}
)

func (*IntLit) isExpr()    {}
func (*BoolLit) isExpr()   {}
func (*StrLit) isExpr()    {}
func (*VarRef) isExpr()    {}
func (*Unary) isExpr()     {}
func (*Binary) isExpr()    {}
func (*Assign) isExpr()    {}
func (*Call) isExpr()      {}
func (*MacroCall) isExpr() {}

// StdlibFunctions is the allow-listed stdlib surface callable from the subset.
var StdlibFunctions = []string{
	"env",
	"env_var_or",
	"exec",
	"capture",
	"echo",
	"trim",
	"to_upper",
	"to_lower",
}

// IsStdlib reports whether name is an allow-listed stdlib function.
func IsStdlib(name string) bool {
	for _, f := range StdlibFunctions {
		if f == name {
			return true
		}
	}
	return false
}

// MacroForms is the allow-listed macro set.
var MacroForms = []string{"format", "vec", "println", "eprintln"}

// IsAllowedMacro reports whether name (without `!`) is an accepted macro form.
func IsAllowedMacro(name string) bool {
	for _, m := range MacroForms {
		if m == name {
			return true
		}
	}
	return false
}
