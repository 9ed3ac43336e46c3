// Package emit renders IR to POSIX shell text. Emission is deterministic and
// total: identical IR yields byte-identical text, and an IR shape without an
// emission rule is an internal error, not a recoverable user one.
package emit

import (
	"fmt"
	"strings"

	"github.com/paiml/rash/diag"
	"github.com/paiml/rash/ir"
	"github.com/paiml/rash/lexer"
)

// valueContext selects the escape mode for a rendered ShellValue.
type valueContext int

const (
	ctxWord      valueContext = iota // standalone shell word
	ctxQuote                         // inside an open double-quoted string
	ctxExpansion                     // inside a ${name:-word} default
	ctxArith                         // inside $(( ))
)

// emitFault aborts emission from deep inside the renderer; Emit converts it
// to a structured EmissionError.
type emitFault struct{ msg string }

// Emit renders a lowered program to shell text (no header; the compiler owns
// provenance). The only error it can return is an internal EmissionError.
func Emit(program *ir.Program) (text string, errs diag.List) {
	defer func() {
		if r := recover(); r != nil {
			fault, ok := r.(emitFault)
			if !ok {
				panic(r)
			}
			text = ""
			errs = diag.Errorf(diag.CodeEmissionError, lexer.SourceSpan{},
				"internal emission failure: %s", fault.msg)
		}
	}()

	e := &emitter{userFuncs: map[string]bool{}}
	for _, fn := range program.Functions {
		e.userFuncs[fn.Name] = true
	}

	for _, fn := range program.Functions {
		e.emitFunctionDef(fn)
		e.line("")
	}
	e.line(`main "$@"`)
	return e.sb.String(), nil
}

type emitter struct {
	sb        strings.Builder
	indent    int
	userFuncs map[string]bool
}

func (e *emitter) fail(format string, args ...interface{}) {
	panic(emitFault{msg: fmt.Sprintf(format, args...)})
}

func (e *emitter) line(text string) {
	if text != "" {
		for i := 0; i < e.indent; i++ {
			e.sb.WriteString("    ")
		}
		e.sb.WriteString(text)
	}
	e.sb.WriteByte('\n')
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (e *emitter) emitBlock(stmts []ir.ShellIR) {
	if len(stmts) == 0 {
		e.line(":")
		return
	}
	for _, s := range stmts {
		e.emitStmt(s)
	}
}

func (e *emitter) emitStmt(s ir.ShellIR) {
	switch n := s.(type) {
	case *ir.Assign:
		e.line(fmt.Sprintf("%s=%s", Mangle(n.Name), e.value(n.Value, ctxWord)))

	case *ir.Echo:
		redirect := ""
		if n.Stderr {
			redirect = " >&2"
		}
		e.line(fmt.Sprintf("printf '%%s\\n' %s%s", e.value(n.Value, ctxWord), redirect))

	case *ir.If:
		e.emitIf(n, "if")
		e.line("fi")

	case *ir.Case:
		e.emitCase(n)

	case *ir.For:
		e.line(fmt.Sprintf("for %s in $(seq %s %s); do",
			Mangle(n.Var), e.value(n.From, ctxWord), e.value(n.To, ctxWord)))
		e.indent++
		e.emitBlock(n.Body)
		e.indent--
		e.line("done")

	case *ir.While:
		e.line(fmt.Sprintf("while %s; do", e.cond(n.Cond)))
		e.indent++
		e.emitBlock(n.Body)
		e.indent--
		e.line("done")

	case *ir.FunctionDef:
		e.emitFunctionDef(n)

	case *ir.Call:
		e.line(e.command(n))

	case *ir.Pipeline:
		e.line(e.pipeline(n))

	case *ir.Return:
		e.emitReturn(n)

	default:
		e.fail("no emission rule for statement %T", s)
	}
}

func (e *emitter) emitFunctionDef(fn *ir.FunctionDef) {
	e.line(fmt.Sprintf("%s() {", Mangle(fn.Name)))
	e.indent++
	e.emitBlock(fn.Body)
	e.indent--
	e.line("}")
}

// emitIf renders an else-branch holding a lone If as elif, keeping the
// generated chain as flat as the source. The caller closes the chain with fi.
func (e *emitter) emitIf(n *ir.If, keyword string) {
	e.line(fmt.Sprintf("%s %s; then", keyword, e.cond(n.Cond)))
	e.indent++
	e.emitBlock(n.Then)
	e.indent--

	if len(n.Else) == 1 {
		if chained, ok := n.Else[0].(*ir.If); ok {
			e.emitIf(chained, "elif")
			return
		}
	}
	if len(n.Else) > 0 {
		e.line("else")
		e.indent++
		e.emitBlock(n.Else)
		e.indent--
	}
}

func (e *emitter) emitCase(n *ir.Case) {
	e.line(fmt.Sprintf("case %s in", e.value(n.Word, ctxWord)))
	e.indent++
	for _, arm := range n.Arms {
		if arm.Wildcard {
			e.line("*)")
		} else {
			patterns := make([]string, len(arm.Patterns))
			for i, pat := range arm.Patterns {
				lit, ok := pat.(*ir.Literal)
				if !ok {
					e.fail("case pattern is %T, want literal", pat)
				}
				patterns[i] = quoteLiteral(lit.Text)
			}
			e.line(strings.Join(patterns, "|") + ")")
		}
		e.indent++
		e.emitBlock(arm.Body)
		e.line(";;")
		e.indent--
	}
	e.indent--
	e.line("esac")
}

func (e *emitter) emitReturn(n *ir.Return) {
	switch {
	case n.Exit && n.Value != nil:
		e.line(fmt.Sprintf("exit %s", e.value(n.Value, ctxWord)))
	case n.Exit:
		e.line("return")
	case n.Value != nil:
		e.line(fmt.Sprintf("printf '%%s\\n' %s", e.value(n.Value, ctxWord)))
		e.line("return")
	default:
		e.line("return")
	}
}

// command renders a Call: user functions go through the mangling table, and
// external command names must be constant-safe words.
func (e *emitter) command(n *ir.Call) string {
	name := n.Name
	if e.userFuncs[name] {
		name = Mangle(name)
	} else if !shellSafe(name) {
		e.fail("unsafe external command name %q", name)
	}
	parts := []string{name}
	for _, arg := range n.Args {
		parts = append(parts, e.value(arg, ctxWord))
	}
	return strings.Join(parts, " ")
}

func (e *emitter) pipeline(n *ir.Pipeline) string {
	stages := make([]string, len(n.Stages))
	for i, c := range n.Stages {
		stages[i] = e.command(c)
	}
	return strings.Join(stages, " | ")
}

// ---------------------------------------------------------------------------
// Conditions
// ---------------------------------------------------------------------------

func (e *emitter) cond(c ir.Cond) string {
	switch n := c.(type) {
	case *ir.CondArith:
		return fmt.Sprintf("[ $(( %s )) -ne 0 ]", e.arith(n.Expr))
	case *ir.CondStrEq:
		op := "="
		if n.Negate {
			op = "!="
		}
		return fmt.Sprintf("[ %s %s %s ]", e.value(n.Lhs, ctxWord), op, e.value(n.Rhs, ctxWord))
	}
	e.fail("no emission rule for condition %T", c)
	return ""
}

// ---------------------------------------------------------------------------
// Values: the canonical escape routine
// ---------------------------------------------------------------------------

// value renders any ShellValue in the requested context. Every interpolation
// in the emitter goes through here; there is no second path.
func (e *emitter) value(v ir.ShellValue, ctx valueContext) string {
	if ctx == ctxArith {
		return e.arith(v)
	}

	switch n := v.(type) {
	case *ir.Literal:
		switch ctx {
		case ctxQuote:
			return escapeDoubleQuoted(n.Text)
		case ctxExpansion:
			return escapeExpansionWord(n.Text)
		}
		return quoteLiteral(n.Text)

	case *ir.VariableRef:
		ref := fmt.Sprintf("${%s}", Mangle(n.Name))
		if ctx != ctxWord {
			return ref
		}
		return `"` + ref + `"`

	case *ir.EnvVar:
		ref := e.envRef(n)
		if ctx != ctxWord {
			return ref
		}
		return `"` + ref + `"`

	case *ir.Concat:
		inner := ctx
		if ctx == ctxWord {
			inner = ctxQuote
		}
		var sb strings.Builder
		for _, part := range n.Parts {
			sb.WriteString(e.value(part, inner))
		}
		if ctx != ctxWord {
			return sb.String()
		}
		return `"` + sb.String() + `"`

	case *ir.CommandSubst:
		subst := "$(" + e.substBody(n.Body) + ")"
		if ctx != ctxWord {
			return subst
		}
		return `"` + subst + `"`

	case *ir.Arithmetic:
		// Arithmetic expansion never word-splits; unquoted in every context.
		return fmt.Sprintf("$(( %s ))", e.arithBinary(n))
	}

	e.fail("no emission rule for value %T", v)
	return ""
}

// envRef renders ${NAME} or ${NAME:-default}; the default is itself routed
// back through the escape routine in expansion context, so no path places
// raw default text in the output.
func (e *emitter) envRef(n *ir.EnvVar) string {
	if n.Default == nil {
		return fmt.Sprintf("${%s}", n.Name)
	}
	return fmt.Sprintf("${%s:-%s}", n.Name, e.value(n.Default, ctxExpansion))
}

// arith renders a value as an operand inside $(( )). Operands were validated
// numeric-producing at lowering; no re-validation happens here.
func (e *emitter) arith(v ir.ShellValue) string {
	switch n := v.(type) {
	case *ir.Literal:
		return n.Text
	case *ir.VariableRef:
		return Mangle(n.Name)
	case *ir.EnvVar:
		return e.envRef(n)
	case *ir.CommandSubst:
		return "$(" + e.substBody(n.Body) + ")"
	case *ir.Arithmetic:
		return "(" + e.arithBinary(n) + ")"
	}
	e.fail("value %T is not a valid arithmetic operand", v)
	return ""
}

func (e *emitter) arithBinary(n *ir.Arithmetic) string {
	return fmt.Sprintf("%s %s %s", e.arith(n.Lhs), n.Op, e.arith(n.Rhs))
}

// substBody renders the single statement inside a command substitution.
func (e *emitter) substBody(body ir.ShellIR) string {
	switch n := body.(type) {
	case *ir.Call:
		return e.command(n)
	case *ir.Pipeline:
		return e.pipeline(n)
	}
	e.fail("command substitution body is %T, want Call or Pipeline", body)
	return ""
}
