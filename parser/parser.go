// Package parser validates source text against the accepted subset and builds
// the AST. It is the only pipeline stage that aggregates diagnostics: parse
// errors and unsupported-feature findings accumulate up to a bounded limit so
// a user sees every violation in one pass. On any diagnostic nothing
// downstream runs.
package parser

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/paiml/rash/ast"
	"github.com/paiml/rash/diag"
	"github.com/paiml/rash/lexer"
)

// Parse scans and parses source text. It returns either a complete Program or
// the aggregated diagnostics; never both.
func Parse(source string) (*ast.Program, diag.List) {
	return ParseWithLimit(source, diag.DefaultLimit)
}

// ParseWithLimit parses with an explicit diagnostic bound.
func ParseWithLimit(source string, limit int) (*ast.Program, diag.List) {
	p := &parser{
		tokens:    lexer.NewFromString(source).TokenizeToSlice(),
		collector: diag.NewCollector(limit),
		nextID:    1,
	}
	program := p.parseProgram()
	p.resolveCalls(program)

	if diags := p.collector.Diagnostics(); len(diags) > 0 {
		return nil, diags
	}
	return program, nil
}

type parser struct {
	tokens    []lexer.Token
	pos       int
	collector *diag.Collector
	nextID    int

	// user-defined function names, filled while parsing items
	defined map[string]bool

	// calls deferred for post-parse resolution
	pendingCalls []*ast.Call
}

func (p *parser) node(span lexer.SourceSpan) ast.NodeInfo {
	info := ast.NodeInfo{ID: p.nextID, Span: span}
	p.nextID++
	return info
}

func (p *parser) cur() lexer.Token { return p.tokens[p.pos] }

func (p *parser) peek() lexer.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) at(t lexer.TokenType) bool { return p.cur().Type == t }

func (p *parser) accept(t lexer.TokenType) (lexer.Token, bool) {
	if p.at(t) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

func (p *parser) expect(t lexer.TokenType, what string) (lexer.Token, bool) {
	if p.at(t) {
		return p.advance(), true
	}
	p.parseError(p.cur().Span, "expected %s, found %q", what, p.cur().Value)
	return p.cur(), false
}

func (p *parser) parseError(span lexer.SourceSpan, format string, args ...interface{}) {
	p.collector.Add(diag.Diagnostic{
		Span:     span,
		Code:     diag.CodeParseError,
		Severity: diag.Error,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (p *parser) unsupported(span lexer.SourceSpan, feature, fix string) {
	p.collector.Add(diag.Diagnostic{
		Span:     span,
		Code:     diag.CodeUnsupportedFeature,
		Severity: diag.Error,
		Message:  fmt.Sprintf("%s is outside the accepted subset", feature),
		Fix:      fix,
	})
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (p *parser) parseProgram() *ast.Program {
	program := &ast.Program{}
	p.defined = map[string]bool{}

	for !p.at(lexer.EOF) && !p.collector.Full() {
		switch p.cur().Type {
		case lexer.FN:
			if fn := p.parseFunction(); fn != nil {
				program.Functions = append(program.Functions, fn)
				p.defined[fn.Name] = true
			}
		case lexer.ASYNC:
			tok := p.advance()
			p.unsupported(tok.Span, "`async`", "remove the qualifier; only plain `fn` items are accepted")
			// keep going so the fn body itself is still checked
		case lexer.UNSAFE:
			tok := p.advance()
			p.unsupported(tok.Span, "`unsafe`", "remove the qualifier; only plain `fn` items are accepted")
		case lexer.TRAIT, lexer.IMPL, lexer.STRUCT, lexer.ENUM, lexer.USE, lexer.MOD, lexer.MACRODEF:
			tok := p.advance()
			p.unsupported(tok.Span, fmt.Sprintf("`%s`", tok.Value),
				"only `fn` items are accepted at the top level")
			p.skipItem()
		default:
			p.parseError(p.cur().Span, "expected `fn`, found %q", p.cur().Value)
			p.skipItem()
		}
	}
	return program
}

// skipItem consumes tokens through the end of the current item: either past a
// terminating semicolon or past a balanced brace block.
func (p *parser) skipItem() {
	depth := 0
	for !p.at(lexer.EOF) {
		switch p.cur().Type {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			depth--
			if depth <= 0 {
				p.advance()
				return
			}
		case lexer.SEMICOLON:
			if depth == 0 {
				p.advance()
				return
			}
		case lexer.FN:
			if depth == 0 {
				return
			}
		}
		p.advance()
	}
}

func (p *parser) parseFunction() *ast.Function {
	start := p.advance() // fn
	name, ok := p.expect(lexer.IDENT, "function name")
	if !ok {
		p.skipItem()
		return nil
	}

	if p.at(lexer.LT) {
		p.unsupported(p.cur().Span, "generic parameters",
			fmt.Sprintf("remove `<...>` from `fn %s`; generics are not accepted", name.Value))
		p.skipItem()
		return nil
	}

	if _, ok := p.expect(lexer.LPAREN, "`(`"); !ok {
		p.skipItem()
		return nil
	}

	var params []ast.Param
	for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
		pname, ok := p.expect(lexer.IDENT, "parameter name")
		if !ok {
			p.skipItem()
			return nil
		}
		if _, ok := p.expect(lexer.COLON, "`:`"); !ok {
			p.skipItem()
			return nil
		}
		ptype, ok := p.parseType()
		if !ok {
			p.skipItem()
			return nil
		}
		params = append(params, ast.Param{Name: pname.Value, Type: ptype})
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	if _, ok := p.expect(lexer.RPAREN, "`)`"); !ok {
		p.skipItem()
		return nil
	}

	retType := ast.TypeUnit
	if _, ok := p.accept(lexer.ARROW); ok {
		t, ok := p.parseType()
		if !ok {
			p.skipItem()
			return nil
		}
		retType = t
	}

	body, ok := p.parseBlock()
	if !ok {
		return nil
	}

	return &ast.Function{
		NodeInfo:   p.node(start.Span),
		Name:       name.Value,
		Params:     params,
		ReturnType: retType,
		Body:       body,
	}
}

func (p *parser) parseType() (ast.Type, bool) {
	switch p.cur().Type {
	case lexer.AMPERSAND:
		amp := p.advance()
		name, ok := p.expect(lexer.IDENT, "type name")
		if !ok {
			return "", false
		}
		if name.Value != "str" {
			p.unsupported(amp.Span, fmt.Sprintf("reference type `&%s`", name.Value),
				"only `&str` references are accepted")
			return "", false
		}
		return ast.TypeStr, true
	case lexer.LPAREN:
		p.advance()
		if _, ok := p.expect(lexer.RPAREN, "`)` of unit type"); !ok {
			return "", false
		}
		return ast.TypeUnit, true
	case lexer.IDENT:
		name := p.advance()
		switch name.Value {
		case "i32":
			return ast.TypeI32, true
		case "u32":
			return ast.TypeU32, true
		case "bool":
			return ast.TypeBool, true
		case "String":
			return ast.TypeString, true
		}
		p.unsupported(name.Span, fmt.Sprintf("type `%s`", name.Value),
			"accepted types are i32, u32, bool, &str, String, ()")
		return "", false
	}
	p.parseError(p.cur().Span, "expected type, found %q", p.cur().Value)
	return "", false
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *parser) parseBlock() ([]ast.Statement, bool) {
	if _, ok := p.expect(lexer.LBRACE, "`{`"); !ok {
		return nil, false
	}
	var stmts []ast.Statement
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) && !p.collector.Full() {
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		} else {
			p.synchronize()
		}
	}
	if _, ok := p.expect(lexer.RBRACE, "`}`"); !ok {
		return nil, false
	}
	return stmts, true
}

// synchronize skips to the next statement boundary after a parse error.
func (p *parser) synchronize() {
	for !p.at(lexer.EOF) {
		switch p.cur().Type {
		case lexer.SEMICOLON:
			p.advance()
			return
		case lexer.RBRACE, lexer.LET, lexer.IF, lexer.MATCH, lexer.FOR,
			lexer.WHILE, lexer.RETURN, lexer.FN:
			return
		}
		p.advance()
	}
}

func (p *parser) parseStatement() ast.Statement {
	switch p.cur().Type {
	case lexer.LET:
		return p.parseLet()
	case lexer.IF:
		return p.parseIf()
	case lexer.MATCH:
		return p.parseMatch()
	case lexer.FOR:
		return p.parseFor()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.LOOP:
		tok := p.advance()
		p.unsupported(tok.Span, "`loop`", "use `while` with an explicit condition")
		if p.at(lexer.LBRACE) {
			p.skipBalancedBraces()
		}
		return nil
	case lexer.ASYNC, lexer.AWAIT, lexer.UNSAFE, lexer.TRAIT, lexer.IMPL,
		lexer.STRUCT, lexer.ENUM, lexer.USE, lexer.MOD, lexer.MACRODEF:
		tok := p.advance()
		p.unsupported(tok.Span, fmt.Sprintf("`%s`", tok.Value), "")
		return nil
	}
	return p.parseExprStatement()
}

func (p *parser) skipBalancedBraces() {
	depth := 0
	for !p.at(lexer.EOF) {
		switch p.cur().Type {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			depth--
			if depth <= 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

func (p *parser) parseLet() ast.Statement {
	start := p.advance() // let
	mutable := false
	if _, ok := p.accept(lexer.MUT); ok {
		mutable = true
	}
	name, ok := p.expect(lexer.IDENT, "binding name")
	if !ok {
		return nil
	}
	// Optional type annotation is accepted and discarded; inference covers
	// the subset's needs at lowering time.
	if _, ok := p.accept(lexer.COLON); ok {
		if _, ok := p.parseType(); !ok {
			return nil
		}
	}
	if _, ok := p.expect(lexer.ASSIGN, "`=`"); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.SEMICOLON, "`;`"); !ok {
		return nil
	}
	return &ast.Let{NodeInfo: p.node(start.Span), Name: name.Value, Mutable: mutable, Value: value}
}

func (p *parser) parseIf() ast.Statement {
	start := p.advance() // if
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	then, ok := p.parseBlock()
	if !ok {
		return nil
	}
	var elseStmts []ast.Statement
	if _, ok := p.accept(lexer.ELSE); ok {
		if p.at(lexer.IF) {
			chained := p.parseIf()
			if chained == nil {
				return nil
			}
			elseStmts = []ast.Statement{chained}
		} else {
			elseStmts, ok = p.parseBlock()
			if !ok {
				return nil
			}
		}
	}
	return &ast.If{NodeInfo: p.node(start.Span), Cond: cond, Then: then, Else: elseStmts}
}

func (p *parser) parseMatch() ast.Statement {
	start := p.advance() // match
	subject := p.parseExpr()
	if subject == nil {
		return nil
	}
	if _, ok := p.expect(lexer.LBRACE, "`{`"); !ok {
		return nil
	}

	var arms []ast.MatchArm
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) && !p.collector.Full() {
		arm, ok := p.parseMatchArm()
		if !ok {
			p.synchronize()
			continue
		}
		arms = append(arms, arm)
		p.accept(lexer.COMMA)
	}
	if _, ok := p.expect(lexer.RBRACE, "`}`"); !ok {
		return nil
	}
	return &ast.Match{NodeInfo: p.node(start.Span), Subject: subject, Arms: arms}
}

func (p *parser) parseMatchArm() (ast.MatchArm, bool) {
	arm := ast.MatchArm{}
	if _, ok := p.accept(lexer.UNDERSCORE); ok {
		arm.Wildcard = true
	} else {
		for {
			pat := p.parsePrimary()
			if pat == nil {
				return arm, false
			}
			switch pat.(type) {
			case *ast.IntLit, *ast.StrLit, *ast.BoolLit:
				arm.Patterns = append(arm.Patterns, pat)
			default:
				p.parseError(pat.Position(), "match patterns must be literals or `_`")
				return arm, false
			}
			if p.at(lexer.ILLEGAL) && p.cur().Value == "|" {
				p.advance()
				continue
			}
			break
		}
	}
	if _, ok := p.expect(lexer.FATARROW, "`=>`"); !ok {
		return arm, false
	}
	if p.at(lexer.LBRACE) {
		body, ok := p.parseBlock()
		if !ok {
			return arm, false
		}
		arm.Body = body
		return arm, true
	}
	// Single-expression arm body.
	expr := p.parseExpr()
	if expr == nil {
		return arm, false
	}
	arm.Body = []ast.Statement{&ast.ExprStmt{NodeInfo: p.node(expr.Position()), E: expr}}
	return arm, true
}

func (p *parser) parseFor() ast.Statement {
	start := p.advance() // for
	name, ok := p.expect(lexer.IDENT, "loop variable")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.IN, "`in`"); !ok {
		return nil
	}
	from := p.parseExpr()
	if from == nil {
		return nil
	}
	inclusive := false
	switch p.cur().Type {
	case lexer.DOTDOT:
		p.advance()
	case lexer.DOTDOTEQ:
		p.advance()
		inclusive = true
	default:
		p.parseError(p.cur().Span, "expected `..` or `..=` in range, found %q", p.cur().Value)
		return nil
	}
	to := p.parseExpr()
	if to == nil {
		return nil
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	return &ast.For{
		NodeInfo:  p.node(start.Span),
		Var:       name.Value,
		From:      from,
		To:        to,
		Inclusive: inclusive,
		Body:      body,
	}
}

func (p *parser) parseWhile() ast.Statement {
	start := p.advance() // while
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	return &ast.While{NodeInfo: p.node(start.Span), Cond: cond, Body: body}
}

func (p *parser) parseReturn() ast.Statement {
	start := p.advance() // return
	var value ast.Expr
	if !p.at(lexer.SEMICOLON) {
		value = p.parseExpr()
		if value == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.SEMICOLON, "`;`"); !ok {
		return nil
	}
	return &ast.Return{NodeInfo: p.node(start.Span), Value: value}
}

func (p *parser) parseExprStatement() ast.Statement {
	start := p.cur()

	// Assignment and compound assignment target a plain identifier.
	if p.at(lexer.IDENT) {
		switch p.peek().Type {
		case lexer.ASSIGN:
			name := p.advance()
			p.advance() // =
			value := p.parseExpr()
			if value == nil {
				return nil
			}
			if _, ok := p.expect(lexer.SEMICOLON, "`;`"); !ok {
				return nil
			}
			assign := &ast.Assign{NodeInfo: p.node(name.Span), Name: name.Value, Value: value}
			return &ast.ExprStmt{NodeInfo: p.node(start.Span), E: assign}
		case lexer.PLUS_EQ, lexer.MINUS_EQ, lexer.STAR_EQ, lexer.SLASH_EQ, lexer.PERCENT_EQ:
			return p.parseCompoundAssign()
		}
	}

	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(lexer.SEMICOLON, "`;`"); !ok {
		return nil
	}
	return &ast.ExprStmt{NodeInfo: p.node(start.Span), E: expr}
}

// parseCompoundAssign desugars `a <op>= b` into `a = a <op> b` while building
// the AST, so no compound form survives into lowering.
func (p *parser) parseCompoundAssign() ast.Statement {
	name := p.advance()
	opTok := p.advance()
	rhs := p.parseExpr()
	if rhs == nil {
		return nil
	}
	if _, ok := p.expect(lexer.SEMICOLON, "`;`"); !ok {
		return nil
	}

	var op string
	switch opTok.Type {
	case lexer.PLUS_EQ:
		op = "+"
	case lexer.MINUS_EQ:
		op = "-"
	case lexer.STAR_EQ:
		op = "*"
	case lexer.SLASH_EQ:
		op = "/"
	case lexer.PERCENT_EQ:
		op = "%"
	}

	ref := &ast.VarRef{NodeInfo: p.node(name.Span), Name: name.Value}
	binary := &ast.Binary{NodeInfo: p.node(opTok.Span), Op: op, L: ref, R: rhs}
	assign := &ast.Assign{NodeInfo: p.node(name.Span), Name: name.Value, Value: binary}
	return &ast.ExprStmt{NodeInfo: p.node(name.Span), E: assign}
}

// ---------------------------------------------------------------------------
// Expressions (precedence climbing)
// ---------------------------------------------------------------------------

func (p *parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for left != nil && p.at(lexer.OR_OR) {
		op := p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &ast.Binary{NodeInfo: p.node(op.Span), Op: "||", L: left, R: right}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	for left != nil && p.at(lexer.AND_AND) {
		op := p.advance()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &ast.Binary{NodeInfo: p.node(op.Span), Op: "&&", L: left, R: right}
	}
	return left
}

func (p *parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for left != nil && (p.at(lexer.EQ) || p.at(lexer.NOT_EQ)) {
		op := p.advance()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = &ast.Binary{NodeInfo: p.node(op.Span), Op: op.Value, L: left, R: right}
	}
	return left
}

func (p *parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	for left != nil && (p.at(lexer.LT) || p.at(lexer.LT_EQ) || p.at(lexer.GT) || p.at(lexer.GT_EQ)) {
		op := p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &ast.Binary{NodeInfo: p.node(op.Span), Op: op.Value, L: left, R: right}
	}
	return left
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for left != nil && (p.at(lexer.PLUS) || p.at(lexer.MINUS)) {
		op := p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.Binary{NodeInfo: p.node(op.Span), Op: op.Value, L: left, R: right}
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for left != nil && (p.at(lexer.STAR) || p.at(lexer.SLASH) || p.at(lexer.PERCENT)) {
		op := p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.Binary{NodeInfo: p.node(op.Span), Op: op.Value, L: left, R: right}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	switch p.cur().Type {
	case lexer.MINUS, lexer.BANG:
		op := p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.Unary{NodeInfo: p.node(op.Span), Op: op.Value, Operand: operand}
	case lexer.AMPERSAND:
		tok := p.advance()
		p.unsupported(tok.Span, "reference expressions", "the subset passes values, not references")
		return nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.cur().Type {
	case lexer.INT:
		tok := p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.parseError(tok.Span, "integer literal %q out of range", tok.Value)
			return nil
		}
		return &ast.IntLit{NodeInfo: p.node(tok.Span), Value: v}
	case lexer.STRING:
		tok := p.advance()
		return &ast.StrLit{NodeInfo: p.node(tok.Span), Value: tok.Value}
	case lexer.TRUE:
		tok := p.advance()
		return &ast.BoolLit{NodeInfo: p.node(tok.Span), Value: true}
	case lexer.FALSE:
		tok := p.advance()
		return &ast.BoolLit{NodeInfo: p.node(tok.Span), Value: false}
	case lexer.LPAREN:
		p.advance()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.RPAREN, "`)`"); !ok {
			return nil
		}
		return inner
	case lexer.IDENT:
		return p.parseIdentExpr()
	case lexer.AWAIT:
		tok := p.advance()
		p.unsupported(tok.Span, "`await`", "")
		return nil
	}
	p.parseError(p.cur().Span, "expected expression, found %q", p.cur().Value)
	return nil
}

func (p *parser) parseIdentExpr() ast.Expr {
	name := p.advance()

	switch p.cur().Type {
	case lexer.BANG:
		return p.parseMacro(name)
	case lexer.LPAREN:
		p.advance()
		var args []ast.Expr
		for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if _, ok := p.accept(lexer.COMMA); !ok {
				break
			}
		}
		if _, ok := p.expect(lexer.RPAREN, "`)`"); !ok {
			return nil
		}
		call := &ast.Call{NodeInfo: p.node(name.Span), Name: name.Value, Args: args}
		p.pendingCalls = append(p.pendingCalls, call)
		return call
	}

	return &ast.VarRef{NodeInfo: p.node(name.Span), Name: name.Value}
}

func (p *parser) parseMacro(name lexer.Token) ast.Expr {
	p.advance() // !

	if !ast.IsAllowedMacro(name.Value) {
		fix := ""
		if suggestion := closest(name.Value, ast.MacroForms); suggestion != "" {
			fix = fmt.Sprintf("did you mean `%s!`?", suggestion)
		}
		p.unsupported(name.Span, fmt.Sprintf("macro `%s!`", name.Value), fix)
		p.skipMacroBody()
		return nil
	}

	openTok, closeTok := lexer.LPAREN, lexer.RPAREN
	if name.Value == "vec" && p.at(lexer.LBRACKET) {
		openTok, closeTok = lexer.LBRACKET, lexer.RBRACKET
	}
	if _, ok := p.expect(openTok, "macro arguments"); !ok {
		return nil
	}
	var args []ast.Expr
	for !p.at(closeTok) && !p.at(lexer.EOF) {
		arg := p.parseExpr()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	if _, ok := p.expect(closeTok, "closing macro delimiter"); !ok {
		return nil
	}

	// format!/println!/eprintln! require a leading string literal template.
	if name.Value != "vec" {
		if len(args) == 0 {
			p.parseError(name.Span, "%s! requires a format string", name.Value)
			return nil
		}
		if _, ok := args[0].(*ast.StrLit); !ok {
			p.parseError(args[0].Position(), "%s! format argument must be a string literal", name.Value)
			return nil
		}
	}

	return &ast.MacroCall{NodeInfo: p.node(name.Span), Name: name.Value, Args: args}
}

func (p *parser) skipMacroBody() {
	switch p.cur().Type {
	case lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE:
	default:
		return
	}
	depth := 0
	for !p.at(lexer.EOF) {
		switch p.cur().Type {
		case lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE:
			depth++
		case lexer.RPAREN, lexer.RBRACKET, lexer.RBRACE:
			depth--
			if depth <= 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Post-parse call resolution
// ---------------------------------------------------------------------------

// resolveCalls checks every call site against the stdlib allow-list and the
// user-defined function set, with a fuzzy suggestion when a near-miss exists.
func (p *parser) resolveCalls(program *ast.Program) {
	known := append([]string{}, ast.StdlibFunctions...)
	for name := range p.defined {
		known = append(known, name)
	}
	sort.Strings(known)

	for _, call := range p.pendingCalls {
		if ast.IsStdlib(call.Name) || p.defined[call.Name] {
			continue
		}
		fix := ""
		if suggestion := closest(call.Name, known); suggestion != "" {
			fix = fmt.Sprintf("did you mean `%s`?", suggestion)
		}
		p.collector.Add(diag.Diagnostic{
			Span:     call.Span,
			Code:     diag.CodeParseError,
			Severity: diag.Error,
			Message:  fmt.Sprintf("call to undefined function `%s`", call.Name),
			Fix:      fix,
		})
	}
}

// closest returns the best fuzzy match for name among candidates, or "".
func closest(name string, candidates []string) string {
	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
