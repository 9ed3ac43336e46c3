package ir

import "strconv"

// OptimizeOptions selects which IR rewrites run. All rewrites return fresh
// nodes; shared subtrees are safe because IR values are immutable.
type OptimizeOptions struct {
	ConstantFolding       bool
	DeadCodeElimination   bool
	Inlining              bool
	InlineBranchThreshold int
}

// DefaultInlineBranchThreshold caps the branch count a caller may reach
// through inlining before the candidate is skipped.
const DefaultInlineBranchThreshold = 10

// Optimize applies the enabled rewrites in a fixed order: fold, inline, then
// eliminate. Folding first exposes constant conditions to elimination;
// inlining before elimination lets a fully inlined helper be dropped.
func Optimize(p *Program, opts OptimizeOptions) *Program {
	out := p
	if opts.ConstantFolding {
		out = foldProgram(out)
	}
	if opts.Inlining {
		threshold := opts.InlineBranchThreshold
		if threshold <= 0 {
			threshold = DefaultInlineBranchThreshold
		}
		out = inlineProgram(out, threshold)
	}
	if opts.DeadCodeElimination {
		out = eliminateProgram(out)
	}
	return out
}

// ---------------------------------------------------------------------------
// Constant folding
// ---------------------------------------------------------------------------

func foldProgram(p *Program) *Program {
	out := &Program{}
	for _, fn := range p.Functions {
		out.Functions = append(out.Functions, &FunctionDef{
			Name:   fn.Name,
			Params: fn.Params,
			Body:   foldBlock(fn.Body),
		})
	}
	return out
}

func foldBlock(stmts []ShellIR) []ShellIR {
	var out []ShellIR
	for _, s := range stmts {
		out = append(out, foldStmt(s))
	}
	return out
}

func foldStmt(s ShellIR) ShellIR {
	switch n := s.(type) {
	case *Assign:
		return &Assign{Name: n.Name, Value: foldValue(n.Value)}
	case *Echo:
		return &Echo{Value: foldValue(n.Value), Stderr: n.Stderr}
	case *If:
		return &If{Cond: foldCond(n.Cond), Then: foldBlock(n.Then), Else: foldBlock(n.Else)}
	case *Case:
		arms := make([]CaseArm, len(n.Arms))
		for i, arm := range n.Arms {
			arms[i] = CaseArm{Patterns: arm.Patterns, Wildcard: arm.Wildcard, Body: foldBlock(arm.Body)}
		}
		return &Case{Word: foldValue(n.Word), Arms: arms}
	case *For:
		return &For{Var: n.Var, From: foldValue(n.From), To: foldValue(n.To), Body: foldBlock(n.Body)}
	case *While:
		return &While{Cond: foldCond(n.Cond), Body: foldBlock(n.Body)}
	case *FunctionDef:
		return &FunctionDef{Name: n.Name, Params: n.Params, Body: foldBlock(n.Body)}
	case *Call:
		args := make([]ShellValue, len(n.Args))
		for i, a := range n.Args {
			args[i] = foldValue(a)
		}
		return &Call{Name: n.Name, Args: args}
	case *Pipeline:
		stages := make([]*Call, len(n.Stages))
		for i, c := range n.Stages {
			stages[i] = foldStmt(c).(*Call)
		}
		return &Pipeline{Stages: stages}
	case *Return:
		if n.Value == nil {
			return n
		}
		return &Return{Value: foldValue(n.Value), Exit: n.Exit}
	}
	return s
}

func foldCond(c Cond) Cond {
	switch n := c.(type) {
	case *CondArith:
		return &CondArith{Expr: foldValue(n.Expr)}
	case *CondStrEq:
		return &CondStrEq{Lhs: foldValue(n.Lhs), Rhs: foldValue(n.Rhs), Negate: n.Negate}
	}
	return c
}

func foldValue(v ShellValue) ShellValue {
	switch n := v.(type) {
	case *Concat:
		return foldConcat(n)
	case *Arithmetic:
		return foldArithmetic(n)
	case *EnvVar:
		if n.Default == nil {
			return n
		}
		return &EnvVar{Name: n.Name, Default: foldValue(n.Default)}
	case *CommandSubst:
		return &CommandSubst{Body: foldStmt(n.Body)}
	}
	return v
}

func foldConcat(c *Concat) ShellValue {
	var parts []ShellValue
	for _, part := range c.Parts {
		folded := foldValue(part)
		if lit, ok := folded.(*Literal); ok {
			if len(parts) > 0 {
				if prev, ok := parts[len(parts)-1].(*Literal); ok {
					parts[len(parts)-1] = &Literal{Text: prev.Text + lit.Text}
					continue
				}
			}
		}
		parts = append(parts, folded)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 0 {
		return &Literal{Text: ""}
	}
	return &Concat{Parts: parts}
}

func foldArithmetic(a *Arithmetic) ShellValue {
	lhs := foldValue(a.Lhs)
	rhs := foldValue(a.Rhs)

	llit, lok := lhs.(*Literal)
	rlit, rok := rhs.(*Literal)
	if lok && rok {
		l, lerr := strconv.ParseInt(llit.Text, 10, 64)
		r, rerr := strconv.ParseInt(rlit.Text, 10, 64)
		if lerr == nil && rerr == nil {
			if folded, ok := evalConstant(a.Op, l, r); ok {
				return &Literal{Text: strconv.FormatInt(folded, 10)}
			}
		}
	}
	return &Arithmetic{Op: a.Op, Lhs: lhs, Rhs: rhs}
}

// evalConstant mirrors POSIX $(( )) integer semantics, including truncating
// division. Division and modulo by zero stay unfolded so the failure remains
// a runtime one, identical to the unoptimized script.
func evalConstant(op string, l, r int64) (int64, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case "==":
		return boolToInt(l == r), true
	case "!=":
		return boolToInt(l != r), true
	case "<":
		return boolToInt(l < r), true
	case "<=":
		return boolToInt(l <= r), true
	case ">":
		return boolToInt(l > r), true
	case ">=":
		return boolToInt(l >= r), true
	case "&&":
		return boolToInt(l != 0 && r != 0), true
	case "||":
		return boolToInt(l != 0 || r != 0), true
	}
	return 0, false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Dead code elimination
// ---------------------------------------------------------------------------

func eliminateProgram(p *Program) *Program {
	dead := map[string]bool{}
	for _, name := range UnreachableFunctions(p) {
		dead[name] = true
	}

	out := &Program{}
	for _, fn := range p.Functions {
		if dead[fn.Name] {
			continue
		}
		out.Functions = append(out.Functions, &FunctionDef{
			Name:   fn.Name,
			Params: fn.Params,
			Body:   eliminateBlock(fn.Body),
		})
	}
	return out
}

// UnreachableFunctions lists the functions no call path from main reaches,
// in definition order.
func UnreachableFunctions(p *Program) []string {
	reachable := map[string]bool{"main": true}
	byName := map[string]*FunctionDef{}
	for _, fn := range p.Functions {
		byName[fn.Name] = fn
	}
	var mark func(name string)
	mark = func(name string) {
		fn, ok := byName[name]
		if !ok {
			return
		}
		var callees []string
		collectCalls(fn.Body, byName, &callees)
		for _, callee := range callees {
			if !reachable[callee] {
				reachable[callee] = true
				mark(callee)
			}
		}
	}
	mark("main")

	var out []string
	for _, fn := range p.Functions {
		if !reachable[fn.Name] {
			out = append(out, fn.Name)
		}
	}
	return out
}

func collectCalls(stmts []ShellIR, byName map[string]*FunctionDef, out *[]string) {
	for _, s := range stmts {
		collectStmtCalls(s, byName, out)
	}
	WalkValues(stmts, func(v ShellValue) {
		if cs, ok := v.(*CommandSubst); ok {
			collectStmtCalls(cs.Body, byName, out)
		}
	})
}

func collectStmtCalls(s ShellIR, byName map[string]*FunctionDef, out *[]string) {
	switch n := s.(type) {
	case *Call:
		if _, ok := byName[n.Name]; ok {
			*out = append(*out, n.Name)
		}
	case *If:
		collectCalls(n.Then, byName, out)
		collectCalls(n.Else, byName, out)
	case *Case:
		for _, arm := range n.Arms {
			collectCalls(arm.Body, byName, out)
		}
	case *For:
		collectCalls(n.Body, byName, out)
	case *While:
		collectCalls(n.Body, byName, out)
	case *Pipeline:
		for _, c := range n.Stages {
			collectStmtCalls(c, byName, out)
		}
	case *FunctionDef:
		collectCalls(n.Body, byName, out)
	}
}

// eliminateBlock drops unreachable statements: anything after a Return, and
// constant-condition branches folded down to the taken side.
func eliminateBlock(stmts []ShellIR) []ShellIR {
	var out []ShellIR
	for _, s := range stmts {
		switch n := s.(type) {
		case *Return:
			return append(out, n)
		case *If:
			if taken, decided := constantCond(n.Cond); decided {
				var branch []ShellIR
				if taken {
					branch = eliminateBlock(n.Then)
				} else {
					branch = eliminateBlock(n.Else)
				}
				out = append(out, branch...)
				continue
			}
			out = append(out, &If{Cond: n.Cond, Then: eliminateBlock(n.Then), Else: eliminateBlock(n.Else)})
		case *While:
			out = append(out, &While{Cond: n.Cond, Body: eliminateBlock(n.Body)})
		case *For:
			out = append(out, &For{Var: n.Var, From: n.From, To: n.To, Body: eliminateBlock(n.Body)})
		case *Case:
			arms := make([]CaseArm, len(n.Arms))
			for i, arm := range n.Arms {
				arms[i] = CaseArm{Patterns: arm.Patterns, Wildcard: arm.Wildcard, Body: eliminateBlock(arm.Body)}
			}
			out = append(out, &Case{Word: n.Word, Arms: arms})
		default:
			out = append(out, s)
		}
	}
	return out
}

func constantCond(c Cond) (taken, decided bool) {
	arith, ok := c.(*CondArith)
	if !ok {
		return false, false
	}
	lit, ok := arith.Expr.(*Literal)
	if !ok {
		return false, false
	}
	n, err := strconv.ParseInt(lit.Text, 10, 64)
	if err != nil {
		return false, false
	}
	return n != 0, true
}

// ---------------------------------------------------------------------------
// Inlining
// ---------------------------------------------------------------------------

// inlineProgram substitutes statement-level calls to small leaf functions.
// A candidate must contain no Return (inline return semantics differ) and no
// call back into user functions, and the substitution is skipped whenever it
// would raise the caller's branch count above the threshold.
func inlineProgram(p *Program, threshold int) *Program {
	byName := map[string]*FunctionDef{}
	for _, fn := range p.Functions {
		byName[fn.Name] = fn
	}

	out := &Program{}
	for _, fn := range p.Functions {
		branches := Measure(fn.Body).BranchCount
		out.Functions = append(out.Functions, &FunctionDef{
			Name:   fn.Name,
			Params: fn.Params,
			Body:   inlineBlock(fn.Body, byName, &branches, threshold),
		})
	}
	return out
}

func inlineBlock(stmts []ShellIR, byName map[string]*FunctionDef, branches *int, threshold int) []ShellIR {
	var out []ShellIR
	for _, s := range stmts {
		switch n := s.(type) {
		case *Call:
			if body, ok := tryInline(n, byName, branches, threshold); ok {
				out = append(out, body...)
				continue
			}
			out = append(out, n)
		case *If:
			out = append(out, &If{
				Cond: n.Cond,
				Then: inlineBlock(n.Then, byName, branches, threshold),
				Else: inlineBlock(n.Else, byName, branches, threshold),
			})
		case *For:
			out = append(out, &For{Var: n.Var, From: n.From, To: n.To,
				Body: inlineBlock(n.Body, byName, branches, threshold)})
		case *While:
			out = append(out, &While{Cond: n.Cond,
				Body: inlineBlock(n.Body, byName, branches, threshold)})
		case *Case:
			arms := make([]CaseArm, len(n.Arms))
			for i, arm := range n.Arms {
				arms[i] = CaseArm{Patterns: arm.Patterns, Wildcard: arm.Wildcard,
					Body: inlineBlock(arm.Body, byName, branches, threshold)}
			}
			out = append(out, &Case{Word: n.Word, Arms: arms})
		default:
			out = append(out, s)
		}
	}
	return out
}

func tryInline(call *Call, byName map[string]*FunctionDef, branches *int, threshold int) ([]ShellIR, bool) {
	fn, ok := byName[call.Name]
	if !ok || fn.Name == "main" {
		return nil, false
	}
	if !inlinable(fn, byName) {
		return nil, false
	}
	cost := Measure(fn.Body).BranchCount
	if *branches+cost > threshold {
		return nil, false
	}
	if len(call.Args) != len(fn.Params) {
		return nil, false
	}

	// The leading statements of a lowered function body are the positional
	// parameter bindings; replace each with a direct assignment of the
	// call-site argument.
	body := make([]ShellIR, 0, len(fn.Body))
	for i, s := range fn.Body {
		if i < len(fn.Params) {
			body = append(body, &Assign{Name: fn.Params[i], Value: call.Args[i]})
			continue
		}
		body = append(body, s)
	}
	*branches += cost
	return body, true
}

func inlinable(fn *FunctionDef, byName map[string]*FunctionDef) bool {
	ok := true
	var check func(stmts []ShellIR)
	check = func(stmts []ShellIR) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *Return:
				ok = false
			case *Call:
				if _, user := byName[n.Name]; user {
					ok = false
				}
			case *If:
				check(n.Then)
				check(n.Else)
			case *For:
				check(n.Body)
			case *While:
				check(n.Body)
			case *Case:
				for _, arm := range n.Arms {
					check(arm.Body)
				}
			}
		}
	}
	check(fn.Body)
	return ok
}
