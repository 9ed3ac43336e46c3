package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/paiml/rash/ast"
	"github.com/paiml/rash/diag"
	"github.com/paiml/rash/lexer"
)

// envNamePattern is the POSIX environment-variable identifier shape. Validated
// here, eagerly; never deferred to emission.
var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// valueKind is the static type lowering tracks to pick emission forms
// (arithmetic test vs. string test, printf formats).
type valueKind int

const (
	kindNum valueKind = iota
	kindBool
	kindStr
	kindUnit
)

func kindOfType(t ast.Type) valueKind {
	switch t {
	case ast.TypeI32, ast.TypeU32:
		return kindNum
	case ast.TypeBool:
		return kindBool
	case ast.TypeStr, ast.TypeString:
		return kindStr
	}
	return kindUnit
}

// Transform lowers an accepted Program to IR. It is pure and total over the
// accepted AST: the same Program always yields a structurally identical IR
// value, and an AST shape without a lowering rule panics rather than degrading.
func Transform(program *ast.Program) (*Program, diag.List) {
	lw := &lowerer{
		fnRets:   map[string]ast.Type{},
		fnParams: map[string]int{},
	}
	for _, fn := range program.Functions {
		lw.fnRets[fn.Name] = fn.ReturnType
		lw.fnParams[fn.Name] = len(fn.Params)
	}

	if _, ok := lw.fnRets["main"]; !ok {
		return nil, diag.Errorf(diag.CodeLoweringError, lexer.SourceSpan{},
			"program has no `main` function")
	}

	out := &Program{}
	for _, fn := range program.Functions {
		def, errs := lw.lowerFunction(fn)
		if errs != nil {
			return nil, errs
		}
		out.Functions = append(out.Functions, def)
	}
	return out, nil
}

type lowerer struct {
	fnRets   map[string]ast.Type
	fnParams map[string]int

	// per-function scope
	inMain   bool
	fnPrefix string
	varKinds map[string]valueKind
	varMut   map[string]bool
}

// local maps a source variable to its emitted shell name. POSIX sh has only
// global variables, so locals outside main carry the function name as a
// prefix; a callee assignment can then never clobber a caller variable.
func (lw *lowerer) local(name string) string {
	return lw.fnPrefix + name
}

func (lw *lowerer) errf(span lexer.SourceSpan, format string, args ...interface{}) diag.List {
	return diag.Errorf(diag.CodeLoweringError, span, format, args...)
}

func (lw *lowerer) lowerFunction(fn *ast.Function) (*FunctionDef, diag.List) {
	lw.inMain = fn.Name == "main"
	lw.fnPrefix = ""
	if !lw.inMain {
		lw.fnPrefix = fn.Name + "_"
	}
	lw.varKinds = map[string]valueKind{}
	lw.varMut = map[string]bool{}

	def := &FunctionDef{Name: fn.Name}
	for i, param := range fn.Params {
		def.Params = append(def.Params, lw.local(param.Name))
		def.Body = append(def.Body, &Assign{
			Name:  lw.local(param.Name),
			Value: &VariableRef{Name: strconv.Itoa(i + 1)},
		})
		lw.varKinds[param.Name] = kindOfType(param.Type)
		lw.varMut[param.Name] = false
	}

	body, errs := lw.lowerBlock(fn.Body)
	if errs != nil {
		return nil, errs
	}
	def.Body = append(def.Body, body...)
	return def, nil
}

func (lw *lowerer) lowerBlock(stmts []ast.Statement) ([]ShellIR, diag.List) {
	var out []ShellIR
	for _, stmt := range stmts {
		lowered, errs := lw.lowerStatement(stmt)
		if errs != nil {
			return nil, errs
		}
		out = append(out, lowered...)
	}
	return out, nil
}

func (lw *lowerer) lowerStatement(stmt ast.Statement) ([]ShellIR, diag.List) {
	switch s := stmt.(type) {
	case *ast.Let:
		value, kind, errs := lw.lowerValue(s.Value)
		if errs != nil {
			return nil, errs
		}
		lw.varKinds[s.Name] = kind
		lw.varMut[s.Name] = s.Mutable
		return []ShellIR{&Assign{Name: lw.local(s.Name), Value: value}}, nil

	case *ast.If:
		return lw.lowerIf(s)

	case *ast.Match:
		return lw.lowerMatch(s)

	case *ast.For:
		return lw.lowerFor(s)

	case *ast.While:
		cond, errs := lw.lowerCond(s.Cond)
		if errs != nil {
			return nil, errs
		}
		body, errs := lw.lowerBlock(s.Body)
		if errs != nil {
			return nil, errs
		}
		return []ShellIR{&While{Cond: cond, Body: body}}, nil

	case *ast.ExprStmt:
		return lw.lowerExprStatement(s)

	case *ast.Return:
		return lw.lowerReturn(s)
	}
	panic(fmt.Sprintf("ir: no lowering rule for statement %T", stmt))
}

func (lw *lowerer) lowerIf(s *ast.If) ([]ShellIR, diag.List) {
	cond, errs := lw.lowerCond(s.Cond)
	if errs != nil {
		return nil, errs
	}
	then, errs := lw.lowerBlock(s.Then)
	if errs != nil {
		return nil, errs
	}
	els, errs := lw.lowerBlock(s.Else)
	if errs != nil {
		return nil, errs
	}
	return []ShellIR{&If{Cond: cond, Then: then, Else: els}}, nil
}

func (lw *lowerer) lowerMatch(s *ast.Match) ([]ShellIR, diag.List) {
	word, _, errs := lw.lowerValue(s.Subject)
	if errs != nil {
		return nil, errs
	}

	node := &Case{Word: word}
	hasWildcard := false
	for _, arm := range s.Arms {
		ca := CaseArm{Wildcard: arm.Wildcard}
		if arm.Wildcard {
			hasWildcard = true
		}
		for _, pat := range arm.Patterns {
			lowered, _, errs := lw.lowerValue(pat)
			if errs != nil {
				return nil, errs
			}
			lit, ok := lowered.(*Literal)
			if !ok {
				return nil, lw.errf(pat.Position(), "match patterns must lower to constants")
			}
			ca.Patterns = append(ca.Patterns, lit)
		}
		body, errs := lw.lowerBlock(arm.Body)
		if errs != nil {
			return nil, errs
		}
		ca.Body = body
		node.Arms = append(node.Arms, ca)
	}

	if !hasWildcard {
		return nil, lw.errf(s.Span, "match requires a `_` arm; POSIX case falls through silently otherwise")
	}
	return []ShellIR{node}, nil
}

func (lw *lowerer) lowerFor(s *ast.For) ([]ShellIR, diag.List) {
	from, fromKind, errs := lw.lowerValue(s.From)
	if errs != nil {
		return nil, errs
	}
	to, toKind, errs := lw.lowerValue(s.To)
	if errs != nil {
		return nil, errs
	}
	if fromKind == kindStr || toKind == kindStr {
		return nil, lw.errf(s.Span, "range bounds must be numeric")
	}

	// Exclusive ranges normalize here to an inclusive upper bound. Constant
	// bounds fold immediately; anything else subtracts one at runtime.
	if !s.Inclusive {
		to = subtractOne(to)
	}

	lw.varKinds[s.Var] = kindNum
	lw.varMut[s.Var] = false
	body, errs := lw.lowerBlock(s.Body)
	if errs != nil {
		return nil, errs
	}
	return []ShellIR{&For{Var: lw.local(s.Var), From: from, To: to, Body: body}}, nil
}

// subtractOne builds the inclusive upper bound for an exclusive range.
func subtractOne(v ShellValue) ShellValue {
	if lit, ok := v.(*Literal); ok {
		if n, err := strconv.ParseInt(lit.Text, 10, 64); err == nil {
			return &Literal{Text: strconv.FormatInt(n-1, 10)}
		}
	}
	return &Arithmetic{Op: "-", Lhs: v, Rhs: &Literal{Text: "1"}}
}

func (lw *lowerer) lowerReturn(s *ast.Return) ([]ShellIR, diag.List) {
	if s.Value == nil {
		return []ShellIR{&Return{Exit: lw.inMain}}, nil
	}
	value, kind, errs := lw.lowerValue(s.Value)
	if errs != nil {
		return nil, errs
	}
	if lw.inMain && kind == kindStr {
		return nil, lw.errf(s.Span, "main may only return a numeric exit status")
	}
	return []ShellIR{&Return{Value: value, Exit: lw.inMain}}, nil
}

func (lw *lowerer) lowerExprStatement(s *ast.ExprStmt) ([]ShellIR, diag.List) {
	switch e := s.E.(type) {
	case *ast.Assign:
		mut, declared := lw.varMut[e.Name]
		if !declared {
			return nil, lw.errf(e.Span, "assignment to undeclared variable `%s`", e.Name)
		}
		if !mut {
			return nil, diag.List{{
				Span:     e.Span,
				Code:     diag.CodeLoweringError,
				Severity: diag.Error,
				Message:  fmt.Sprintf("cannot assign twice to immutable variable `%s`", e.Name),
				Fix:      "declare it with `let mut`",
			}}
		}
		value, kind, errs := lw.lowerValue(e.Value)
		if errs != nil {
			return nil, errs
		}
		lw.varKinds[e.Name] = kind
		return []ShellIR{&Assign{Name: lw.local(e.Name), Value: value}}, nil

	case *ast.Call:
		return lw.lowerCallStatement(e)

	case *ast.MacroCall:
		switch e.Name {
		case "println", "eprintln":
			value, errs := lw.expandFormat(e)
			if errs != nil {
				return nil, errs
			}
			return []ShellIR{&Echo{Value: value, Stderr: e.Name == "eprintln"}}, nil
		}
		return nil, lw.errf(e.Span, "result of `%s!` is unused", e.Name)
	}

	return nil, lw.errf(s.Span, "expression result is unused")
}

func (lw *lowerer) lowerCallStatement(call *ast.Call) ([]ShellIR, diag.List) {
	switch call.Name {
	case "exec":
		return lw.lowerExec(call)
	case "echo":
		if len(call.Args) != 1 {
			return nil, lw.errf(call.Span, "echo takes exactly one argument")
		}
		value, _, errs := lw.lowerValue(call.Args[0])
		if errs != nil {
			return nil, errs
		}
		return []ShellIR{&Echo{Value: value}}, nil
	case "env", "env_var_or", "capture", "trim", "to_upper", "to_lower":
		return nil, lw.errf(call.Span, "result of `%s` is unused", call.Name)
	}

	// User-defined function invocation.
	if want, ok := lw.fnParams[call.Name]; ok {
		if len(call.Args) != want {
			return nil, lw.errf(call.Span, "`%s` takes %d argument(s), got %d",
				call.Name, want, len(call.Args))
		}
	}
	args, errs := lw.lowerArgs(call.Args)
	if errs != nil {
		return nil, errs
	}
	return []ShellIR{&Call{Name: call.Name, Args: args}}, nil
}

// lowerExec splits the constant command text into words and appends any
// further arguments as escaped values. The command itself must be a literal:
// running dynamically assembled text is exactly what this compiler exists to
// prevent.
func (lw *lowerer) lowerExec(call *ast.Call) ([]ShellIR, diag.List) {
	if len(call.Args) == 0 {
		return nil, lw.errf(call.Span, "exec requires a command")
	}
	cmdLit, ok := call.Args[0].(*ast.StrLit)
	if !ok {
		return nil, lw.errf(call.Args[0].Position(), "exec command must be a string literal")
	}
	words := strings.Fields(cmdLit.Value)
	if len(words) == 0 {
		return nil, lw.errf(cmdLit.Span, "exec command is empty")
	}

	node := &Call{Name: words[0]}
	for _, w := range words[1:] {
		node.Args = append(node.Args, &Literal{Text: w})
	}
	extra, errs := lw.lowerArgs(call.Args[1:])
	if errs != nil {
		return nil, errs
	}
	node.Args = append(node.Args, extra...)
	return []ShellIR{node}, nil
}

func (lw *lowerer) lowerArgs(args []ast.Expr) ([]ShellValue, diag.List) {
	var out []ShellValue
	for _, arg := range args {
		value, _, errs := lw.lowerValue(arg)
		if errs != nil {
			return nil, errs
		}
		out = append(out, value)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Conditions
// ---------------------------------------------------------------------------

var arithComparisons = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// lowerCond picks the test form by static type: string (in)equality becomes a
// test(1) comparison, everything else an arithmetic truth test.
func (lw *lowerer) lowerCond(expr ast.Expr) (Cond, diag.List) {
	if bin, ok := expr.(*ast.Binary); ok && (bin.Op == "==" || bin.Op == "!=") {
		if lw.kindOf(bin.L) == kindStr || lw.kindOf(bin.R) == kindStr {
			lhs, _, errs := lw.lowerValue(bin.L)
			if errs != nil {
				return nil, errs
			}
			rhs, _, errs := lw.lowerValue(bin.R)
			if errs != nil {
				return nil, errs
			}
			return &CondStrEq{Lhs: lhs, Rhs: rhs, Negate: bin.Op == "!="}, nil
		}
	}

	value, kind, errs := lw.lowerValue(expr)
	if errs != nil {
		return nil, errs
	}
	if kind == kindStr {
		return nil, lw.errf(expr.Position(), "condition must be boolean or numeric, not a string")
	}
	return &CondArith{Expr: value}, nil
}

// kindOf infers a value kind without lowering; used to pick condition forms
// before operands are committed to either shape.
func (lw *lowerer) kindOf(expr ast.Expr) valueKind {
	switch e := expr.(type) {
	case *ast.IntLit:
		return kindNum
	case *ast.BoolLit:
		return kindBool
	case *ast.StrLit:
		return kindStr
	case *ast.VarRef:
		if k, ok := lw.varKinds[e.Name]; ok {
			return k
		}
		return kindStr
	case *ast.Unary:
		return kindNum
	case *ast.Binary:
		if arithComparisons[e.Op] || e.Op == "&&" || e.Op == "||" {
			return kindBool
		}
		return kindNum
	case *ast.Call:
		switch e.Name {
		case "env", "env_var_or", "capture", "trim", "to_upper", "to_lower":
			return kindStr
		}
		if ret, ok := lw.fnRets[e.Name]; ok {
			return kindOfType(ret)
		}
		return kindStr
	case *ast.MacroCall:
		return kindStr
	}
	return kindStr
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

func (lw *lowerer) lowerValue(expr ast.Expr) (ShellValue, valueKind, diag.List) {
	switch e := expr.(type) {
	case *ast.IntLit:
		return &Literal{Text: strconv.FormatInt(e.Value, 10)}, kindNum, nil

	case *ast.BoolLit:
		if e.Value {
			return &Literal{Text: "1"}, kindBool, nil
		}
		return &Literal{Text: "0"}, kindBool, nil

	case *ast.StrLit:
		return &Literal{Text: e.Value}, kindStr, nil

	case *ast.VarRef:
		kind, ok := lw.varKinds[e.Name]
		if !ok {
			return nil, 0, lw.errf(e.Span, "use of undeclared variable `%s`", e.Name)
		}
		return &VariableRef{Name: lw.local(e.Name)}, kind, nil

	case *ast.Unary:
		return lw.lowerUnary(e)

	case *ast.Binary:
		return lw.lowerBinary(e)

	case *ast.Call:
		return lw.lowerCallValue(e)

	case *ast.MacroCall:
		switch e.Name {
		case "format":
			value, errs := lw.expandFormat(e)
			return value, kindStr, errs
		case "vec":
			value, errs := lw.expandVec(e)
			return value, kindStr, errs
		}
		return nil, 0, lw.errf(e.Span, "`%s!` cannot be used as a value", e.Name)

	case *ast.Assign:
		return nil, 0, lw.errf(e.Span, "assignment is not a value expression")
	}
	panic(fmt.Sprintf("ir: no lowering rule for expression %T", expr))
}

func (lw *lowerer) lowerUnary(e *ast.Unary) (ShellValue, valueKind, diag.List) {
	operand, kind, errs := lw.lowerValue(e.Operand)
	if errs != nil {
		return nil, 0, errs
	}
	if kind == kindStr {
		return nil, 0, lw.errf(e.Span, "unary `%s` requires a numeric operand", e.Op)
	}
	switch e.Op {
	case "-":
		if lit, ok := operand.(*Literal); ok {
			if n, err := strconv.ParseInt(lit.Text, 10, 64); err == nil {
				return &Literal{Text: strconv.FormatInt(-n, 10)}, kindNum, nil
			}
		}
		return &Arithmetic{Op: "-", Lhs: &Literal{Text: "0"}, Rhs: operand}, kindNum, nil
	case "!":
		return &Arithmetic{Op: "==", Lhs: operand, Rhs: &Literal{Text: "0"}}, kindBool, nil
	}
	panic(fmt.Sprintf("ir: no lowering rule for unary operator %q", e.Op))
}

// lowerBinary lowers every operator onto POSIX arithmetic expansion. Operands
// are whatever lowerValue produced, so nested CommandSubst, EnvVar, and
// Arithmetic operands all flow through here unchanged; special-casing only
// Literal and VariableRef here is the defect this shape exists to rule out.
func (lw *lowerer) lowerBinary(e *ast.Binary) (ShellValue, valueKind, diag.List) {
	lhs, lk, errs := lw.lowerValue(e.L)
	if errs != nil {
		return nil, 0, errs
	}
	rhs, rk, errs := lw.lowerValue(e.R)
	if errs != nil {
		return nil, 0, errs
	}

	if lk == kindStr || rk == kindStr {
		return nil, 0, lw.errf(e.Span,
			"operator `%s` requires numeric operands; use format! for string building", e.Op)
	}

	switch e.Op {
	case "+", "-", "*", "/", "%":
		return &Arithmetic{Op: e.Op, Lhs: lhs, Rhs: rhs}, kindNum, nil
	case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
		return &Arithmetic{Op: e.Op, Lhs: lhs, Rhs: rhs}, kindBool, nil
	}
	panic(fmt.Sprintf("ir: no lowering rule for binary operator %q", e.Op))
}

func (lw *lowerer) lowerCallValue(e *ast.Call) (ShellValue, valueKind, diag.List) {
	switch e.Name {
	case "env":
		name, errs := lw.envName(e, 1)
		if errs != nil {
			return nil, 0, errs
		}
		return &EnvVar{Name: name}, kindStr, nil

	case "env_var_or":
		name, errs := lw.envName(e, 2)
		if errs != nil {
			return nil, 0, errs
		}
		def, _, errs := lw.lowerValue(e.Args[1])
		if errs != nil {
			return nil, 0, errs
		}
		return &EnvVar{Name: name, Default: def}, kindStr, nil

	case "capture":
		stmts, errs := lw.lowerExec(&ast.Call{NodeInfo: e.NodeInfo, Name: "exec", Args: e.Args})
		if errs != nil {
			return nil, 0, errs
		}
		return &CommandSubst{Body: stmts[0]}, kindStr, nil

	case "trim", "to_upper", "to_lower":
		return lw.lowerStringHelper(e)

	case "exec", "echo":
		return nil, 0, lw.errf(e.Span, "`%s` does not produce a value; use capture for output", e.Name)
	}

	// User function: captured via command substitution of its printed result.
	ret, ok := lw.fnRets[e.Name]
	if !ok {
		// Unknown calls are rejected at the parser; reaching here is a gap.
		panic(fmt.Sprintf("ir: call to unresolved function %q", e.Name))
	}
	if ret == ast.TypeUnit {
		return nil, 0, lw.errf(e.Span, "`%s` returns no value", e.Name)
	}
	if want := lw.fnParams[e.Name]; len(e.Args) != want {
		return nil, 0, lw.errf(e.Span, "`%s` takes %d argument(s), got %d", e.Name, want, len(e.Args))
	}
	args, errs := lw.lowerArgs(e.Args)
	if errs != nil {
		return nil, 0, errs
	}
	return &CommandSubst{Body: &Call{Name: e.Name, Args: args}}, kindOfType(ret), nil
}

// envName validates an env()/env_var_or() name argument eagerly.
func (lw *lowerer) envName(e *ast.Call, arity int) (string, diag.List) {
	if len(e.Args) != arity {
		return "", lw.errf(e.Span, "`%s` takes %d argument(s), got %d", e.Name, arity, len(e.Args))
	}
	lit, ok := e.Args[0].(*ast.StrLit)
	if !ok {
		return "", lw.errf(e.Args[0].Position(), "environment variable name must be a string literal")
	}
	if !envNamePattern.MatchString(lit.Value) {
		return "", diag.List{{
			Span:     lit.Span,
			Code:     diag.CodeLoweringError,
			Severity: diag.Error,
			Message:  fmt.Sprintf("invalid environment variable name %q", lit.Value),
			Fix:      "names must match [A-Za-z_][A-Za-z0-9_]*",
		}}
	}
	return lit.Value, nil
}

// stringHelperStages is the fixed expansion table for the string helpers.
var stringHelperStages = map[string][]string{
	"trim":     {"sed", "s/^[[:space:]]*//;s/[[:space:]]*$//"},
	"to_upper": {"tr", "[:lower:]", "[:upper:]"},
	"to_lower": {"tr", "[:upper:]", "[:lower:]"},
}

func (lw *lowerer) lowerStringHelper(e *ast.Call) (ShellValue, valueKind, diag.List) {
	if len(e.Args) != 1 {
		return nil, 0, lw.errf(e.Span, "`%s` takes exactly one argument", e.Name)
	}
	arg, _, errs := lw.lowerValue(e.Args[0])
	if errs != nil {
		return nil, 0, errs
	}

	stages := stringHelperStages[e.Name]
	filter := &Call{Name: stages[0]}
	for _, a := range stages[1:] {
		filter.Args = append(filter.Args, &Literal{Text: a})
	}
	pipeline := &Pipeline{Stages: []*Call{
		{Name: "printf", Args: []ShellValue{&Literal{Text: "%s"}, arg}},
		filter,
	}}
	return &CommandSubst{Body: pipeline}, kindStr, nil
}

// ---------------------------------------------------------------------------
// Macro expansion
// ---------------------------------------------------------------------------

// expandFormat applies the fixed format!/println!/eprintln! expansion: the
// template splits at `{}` placeholders and interleaves with the lowered
// arguments into a Concat. The `{{` and `}}` escapes resolve to literal
// braces before placeholders are counted.
func (lw *lowerer) expandFormat(e *ast.MacroCall) (ShellValue, diag.List) {
	template := e.Args[0].(*ast.StrLit) // parser guarantees the shape
	segments, errs := lw.splitTemplate(template)
	if errs != nil {
		return nil, errs
	}
	args := e.Args[1:]

	if len(segments)-1 != len(args) {
		return nil, lw.errf(e.Span, "%s! has %d placeholder(s) but %d argument(s)",
			e.Name, len(segments)-1, len(args))
	}

	var parts []ShellValue
	for i, seg := range segments {
		if seg != "" {
			parts = append(parts, &Literal{Text: seg})
		}
		if i < len(args) {
			value, _, errs := lw.lowerValue(args[i])
			if errs != nil {
				return nil, errs
			}
			parts = append(parts, value)
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	if len(parts) == 0 {
		return &Literal{Text: ""}, nil
	}
	return &Concat{Parts: parts}, nil
}

// splitTemplate cuts a format template at its `{}` placeholders, yielding one
// more segment than placeholders. `{{` and `}}` become literal braces; any
// other lone brace is rejected, matching the source language.
func (lw *lowerer) splitTemplate(lit *ast.StrLit) ([]string, diag.List) {
	var segments []string
	var cur strings.Builder
	t := lit.Value
	for i := 0; i < len(t); i++ {
		switch t[i] {
		case '{':
			if i+1 < len(t) && t[i+1] == '{' {
				cur.WriteByte('{')
				i++
				continue
			}
			if i+1 < len(t) && t[i+1] == '}' {
				segments = append(segments, cur.String())
				cur.Reset()
				i++
				continue
			}
			return nil, diag.List{{
				Span:     lit.Span,
				Code:     diag.CodeLoweringError,
				Severity: diag.Error,
				Message:  "unmatched `{` in format string",
				Fix:      "write {{ for a literal brace",
			}}
		case '}':
			if i+1 < len(t) && t[i+1] == '}' {
				cur.WriteByte('}')
				i++
				continue
			}
			return nil, diag.List{{
				Span:     lit.Span,
				Code:     diag.CodeLoweringError,
				Severity: diag.Error,
				Message:  "unmatched `}` in format string",
				Fix:      "write }} for a literal brace",
			}}
		default:
			cur.WriteByte(t[i])
		}
	}
	return append(segments, cur.String()), nil
}

// expandVec lowers vec! to its space-joined scalar encoding; POSIX sh has no
// arrays, and iteration sites consume the encoding through word splitting.
func (lw *lowerer) expandVec(e *ast.MacroCall) (ShellValue, diag.List) {
	var parts []ShellValue
	for i, arg := range e.Args {
		value, _, errs := lw.lowerValue(arg)
		if errs != nil {
			return nil, errs
		}
		if i > 0 {
			parts = append(parts, &Literal{Text: " "})
		}
		parts = append(parts, value)
	}
	if len(parts) == 0 {
		return &Literal{Text: ""}, nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return &Concat{Parts: parts}, nil
}
