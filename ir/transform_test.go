package ir_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiml/rash/diag"
	"github.com/paiml/rash/ir"
	"github.com/paiml/rash/parser"
)

func lower(t *testing.T, source string) *ir.Program {
	t.Helper()
	program, diags := parser.Parse(source)
	require.Nil(t, diags, "parse: %v", diags)
	lowered, diags := ir.Transform(program)
	require.Nil(t, diags, "transform: %v", diags)
	return lowered
}

func lowerErr(t *testing.T, source string) diag.List {
	t.Helper()
	program, diags := parser.Parse(source)
	require.Nil(t, diags, "parse: %v", diags)
	lowered, diags := ir.Transform(program)
	require.Nil(t, lowered)
	require.NotEmpty(t, diags)
	return diags
}

func mainBody(t *testing.T, p *ir.Program) []ir.ShellIR {
	t.Helper()
	main := p.Main()
	require.NotNil(t, main)
	return main.Body
}

func TestRangeNormalization(t *testing.T) {
	tests := []struct {
		name   string
		source string
		from   string
		to     string
	}{
		{
			name:   "exclusive constant bound folds",
			source: `fn main() { for i in 0..5 { echo(i); } }`,
			from:   "0",
			to:     "4",
		},
		{
			name:   "inclusive constant bound unchanged",
			source: `fn main() { for i in 0..=5 { echo(i); } }`,
			from:   "0",
			to:     "5",
		},
		{
			name:   "exclusive empty range",
			source: `fn main() { for i in 3..3 { echo(i); } }`,
			from:   "3",
			to:     "2",
		},
		{
			name:   "exclusive zero bound goes negative",
			source: `fn main() { for i in 0..0 { echo(i); } }`,
			from:   "0",
			to:     "-1",
		},
		{
			name:   "negative start",
			source: `fn main() { for i in -3..=3 { echo(i); } }`,
			from:   "-3",
			to:     "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := mainBody(t, lower(t, tt.source))
			require.Len(t, body, 1)
			loop, ok := body[0].(*ir.For)
			require.True(t, ok)
			assert.Equal(t, &ir.Literal{Text: tt.from}, loop.From)
			assert.Equal(t, &ir.Literal{Text: tt.to}, loop.To)
		})
	}
}

func TestExclusiveVariableBoundSubtractsAtRuntime(t *testing.T) {
	source := `fn main() {
		let n = 10;
		for i in 0..n { echo(i); }
	}`
	body := mainBody(t, lower(t, source))
	require.Len(t, body, 2)

	loop, ok := body[1].(*ir.For)
	require.True(t, ok)
	arith, ok := loop.To.(*ir.Arithmetic)
	require.True(t, ok, "non-constant exclusive bound must subtract at runtime")
	assert.Equal(t, "-", arith.Op)
	assert.Equal(t, &ir.VariableRef{Name: "n"}, arith.Lhs)
	assert.Equal(t, &ir.Literal{Text: "1"}, arith.Rhs)
}

func TestEnvNameValidation(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name:   "injection payload",
			source: `fn main() { let x = env("'; rm -rf /; #"); }`,
		},
		{
			name:   "leading digit",
			source: `fn main() { let x = env("1PATH"); }`,
		},
		{
			name:   "embedded space",
			source: `fn main() { let x = env("MY VAR"); }`,
		},
		{
			name:   "dollar sign",
			source: `fn main() { let x = env_var_or("$HOME", "/root"); }`,
		},
		{
			name:   "empty name",
			source: `fn main() { let x = env(""); }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := lowerErr(t, tt.source)
			d := diags[0]
			assert.Equal(t, diag.CodeLoweringError, d.Code)
			assert.Contains(t, d.Message, "invalid environment variable name")
			assert.Contains(t, d.Fix, "[A-Za-z_][A-Za-z0-9_]*")
		})
	}
}

func TestEnvLowering(t *testing.T) {
	body := mainBody(t, lower(t, `fn main() {
		let home = env("HOME");
		let prefix = env_var_or("PREFIX", "/usr/local");
	}`))
	require.Len(t, body, 2)

	assert.Equal(t, &ir.Assign{
		Name:  "home",
		Value: &ir.EnvVar{Name: "HOME"},
	}, body[0])
	assert.Equal(t, &ir.Assign{
		Name:  "prefix",
		Value: &ir.EnvVar{Name: "PREFIX", Default: &ir.Literal{Text: "/usr/local"}},
	}, body[1])
}

func TestImmutableReassignment(t *testing.T) {
	diags := lowerErr(t, `fn main() {
		let x = 1;
		x = 2;
	}`)
	d := diags[0]
	assert.Contains(t, d.Message, "immutable variable `x`")
	assert.Equal(t, "declare it with `let mut`", d.Fix)
}

func TestUndeclaredVariable(t *testing.T) {
	diags := lowerErr(t, `fn main() { echo(y); }`)
	assert.Contains(t, diags[0].Message, "undeclared variable `y`")
}

func TestMatchRequiresWildcard(t *testing.T) {
	diags := lowerErr(t, `fn main() {
		let x = 1;
		match x {
			1 => { echo("one"); }
			2 => { echo("two"); }
		}
	}`)
	assert.Contains(t, diags[0].Message, "match requires a `_` arm")
}

func TestStringOperandsRejectedInArithmetic(t *testing.T) {
	diags := lowerErr(t, `fn main() {
		let a = "x";
		let b = a + 1;
	}`)
	assert.Contains(t, diags[0].Message, "use format! for string building")
}

func TestStringConditionRejected(t *testing.T) {
	diags := lowerErr(t, `fn main() {
		let s = "yes";
		if s { echo("hi"); }
	}`)
	assert.Contains(t, diags[0].Message, "condition must be boolean or numeric")
}

func TestStringEqualityBecomesStringTest(t *testing.T) {
	body := mainBody(t, lower(t, `fn main() {
		let s = env("USER");
		if s == "root" { echo("admin"); }
		if s != "root" { echo("user"); }
	}`))
	require.Len(t, body, 3)

	eq, ok := body[1].(*ir.If)
	require.True(t, ok)
	cond, ok := eq.Cond.(*ir.CondStrEq)
	require.True(t, ok, "string comparison must use a test(1) condition")
	assert.False(t, cond.Negate)

	ne := body[2].(*ir.If)
	assert.True(t, ne.Cond.(*ir.CondStrEq).Negate)
}

func TestNumericComparisonStaysArithmetic(t *testing.T) {
	body := mainBody(t, lower(t, `fn main() {
		let n = 3;
		if n == 3 { echo("three"); }
	}`))
	branch := body[1].(*ir.If)
	_, ok := branch.Cond.(*ir.CondArith)
	assert.True(t, ok, "numeric comparison must stay in arithmetic form")
}

func TestFunctionCallInArithmetic(t *testing.T) {
	// A user function used as a value becomes a command substitution, and
	// must nest inside arithmetic untouched.
	body := mainBody(t, lower(t, `
		fn count() -> i32 { return 41; }
		fn main() {
			let n = count() + 1;
		}`))
	require.Len(t, body, 1)

	assign := body[0].(*ir.Assign)
	arith, ok := assign.Value.(*ir.Arithmetic)
	require.True(t, ok)
	assert.Equal(t, "+", arith.Op)

	subst, ok := arith.Lhs.(*ir.CommandSubst)
	require.True(t, ok, "function result must be captured by command substitution")
	call, ok := subst.Body.(*ir.Call)
	require.True(t, ok)
	assert.Equal(t, "count", call.Name)
}

func TestCaptureLowering(t *testing.T) {
	body := mainBody(t, lower(t, `fn main() { let files = capture("ls -la"); }`))
	assign := body[0].(*ir.Assign)
	subst := assign.Value.(*ir.CommandSubst)
	call := subst.Body.(*ir.Call)
	assert.Equal(t, "ls", call.Name)
	assert.Equal(t, []ir.ShellValue{&ir.Literal{Text: "-la"}}, call.Args)
}

func TestExecRequiresLiteralCommand(t *testing.T) {
	diags := lowerErr(t, `fn main() {
		let cmd = "ls";
		exec(cmd);
	}`)
	assert.Contains(t, diags[0].Message, "must be a string literal")
}

func TestStringHelpersExpandToPipelines(t *testing.T) {
	tests := []struct {
		name   string
		source string
		filter string
	}{
		{"trim", `fn main() { let s = trim(" x "); }`, "sed"},
		{"to_upper", `fn main() { let s = to_upper("x"); }`, "tr"},
		{"to_lower", `fn main() { let s = to_lower("X"); }`, "tr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := mainBody(t, lower(t, tt.source))
			subst := body[0].(*ir.Assign).Value.(*ir.CommandSubst)
			pipe, ok := subst.Body.(*ir.Pipeline)
			require.True(t, ok)
			require.Len(t, pipe.Stages, 2)
			assert.Equal(t, "printf", pipe.Stages[0].Name)
			assert.Equal(t, tt.filter, pipe.Stages[1].Name)
		})
	}
}

func TestFormatInterleaving(t *testing.T) {
	body := mainBody(t, lower(t, `fn main() {
		let who = env("USER");
		let msg = format!("hello {} and {}", who, 42);
	}`))
	concat, ok := body[1].(*ir.Assign).Value.(*ir.Concat)
	require.True(t, ok)
	assert.Equal(t, []ir.ShellValue{
		&ir.Literal{Text: "hello "},
		&ir.VariableRef{Name: "who"},
		&ir.Literal{Text: " and "},
		&ir.Literal{Text: "42"},
	}, concat.Parts)
}

func TestFormatPlaceholderMismatch(t *testing.T) {
	diags := lowerErr(t, `fn main() { println!("{} {}", 1); }`)
	assert.Contains(t, diags[0].Message, "2 placeholder(s) but 1 argument(s)")
}

func TestFormatBraceEscapes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   ir.ShellValue
	}{
		{
			name:   "doubled braces are literal",
			source: `fn main() { let s = format!("{{}}"); }`,
			want:   &ir.Literal{Text: "{}"},
		},
		{
			name:   "escapes around a placeholder",
			source: `fn main() { let s = format!("{{{}}}", 7); }`,
			want: &ir.Concat{Parts: []ir.ShellValue{
				&ir.Literal{Text: "{"},
				&ir.Literal{Text: "7"},
				&ir.Literal{Text: "}"},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := mainBody(t, lower(t, tt.source))
			assert.Equal(t, tt.want, body[0].(*ir.Assign).Value)
		})
	}
}

func TestFormatUnmatchedBraceRejected(t *testing.T) {
	open := lowerErr(t, `fn main() { println!("price: {"); }`)
	assert.Contains(t, open[0].Message, "unmatched `{`")
	assert.Equal(t, "write {{ for a literal brace", open[0].Fix)

	closing := lowerErr(t, `fn main() { println!("} done"); }`)
	assert.Contains(t, closing[0].Message, "unmatched `}`")
}

func TestVecSpaceJoined(t *testing.T) {
	body := mainBody(t, lower(t, `fn main() { let xs = vec![1, 2, 3]; }`))
	concat := body[0].(*ir.Assign).Value.(*ir.Concat)
	assert.Equal(t, []ir.ShellValue{
		&ir.Literal{Text: "1"},
		&ir.Literal{Text: " "},
		&ir.Literal{Text: "2"},
		&ir.Literal{Text: " "},
		&ir.Literal{Text: "3"},
	}, concat.Parts)
}

func TestParametersBindPositionally(t *testing.T) {
	program := lower(t, `
		fn greet(name: &str, times: i32) { echo(name); }
		fn main() { greet("hi", 2); }`)

	var greet *ir.FunctionDef
	for _, fn := range program.Functions {
		if fn.Name == "greet" {
			greet = fn
		}
	}
	require.NotNil(t, greet)
	require.GreaterOrEqual(t, len(greet.Body), 2)
	assert.Equal(t, &ir.Assign{Name: "greet_name", Value: &ir.VariableRef{Name: "1"}}, greet.Body[0])
	assert.Equal(t, &ir.Assign{Name: "greet_times", Value: &ir.VariableRef{Name: "2"}}, greet.Body[1])
}

func TestHelperLocalsArePrefixed(t *testing.T) {
	// Generated shell has one global namespace; a helper's `x` and main's `x`
	// must land on different shell names.
	program := lower(t, `
		fn helper() { let x = 99; echo(x); }
		fn main() {
			let x = 5;
			helper();
		}`)

	var helper *ir.FunctionDef
	for _, fn := range program.Functions {
		if fn.Name == "helper" {
			helper = fn
		}
	}
	require.NotNil(t, helper)
	assert.Equal(t, "helper_x", helper.Body[0].(*ir.Assign).Name)
	assert.Equal(t, &ir.VariableRef{Name: "helper_x"}, helper.Body[1].(*ir.Echo).Value)

	main := mainBody(t, program)
	assert.Equal(t, "x", main[0].(*ir.Assign).Name)
}

func TestMainStringReturnRejected(t *testing.T) {
	diags := lowerErr(t, `fn main() { return "done"; }`)
	assert.Contains(t, diags[0].Message, "numeric exit status")
}

func TestMissingMain(t *testing.T) {
	diags := lowerErr(t, `fn helper() { echo("x"); }`)
	assert.Contains(t, diags[0].Message, "no `main` function")
}

func TestArityMismatch(t *testing.T) {
	diags := lowerErr(t, `
		fn add(a: i32, b: i32) -> i32 { return a + b; }
		fn main() { let s = add(1); }`)
	assert.Contains(t, diags[0].Message, "takes 2 argument(s), got 1")
}

func TestLoweringIsDeterministic(t *testing.T) {
	source := `
		fn double(n: i32) -> i32 { return n * 2; }
		fn main() {
			let base = env_var_or("BASE", "10");
			for i in 0..3 {
				let d = double(i);
				println!("{}: {}", i, d);
			}
			match 1 {
				1 => { echo("one"); }
				_ => { echo("other"); }
			}
		}`

	program, diags := parser.Parse(source)
	require.Nil(t, diags)

	first, diags := ir.Transform(program)
	require.Nil(t, diags)
	second, diags := ir.Transform(program)
	require.Nil(t, diags)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated lowering diverged (-first +second):\n%s", diff)
	}
}

func TestWalkValuesReachesNestedSubstitutions(t *testing.T) {
	program := lower(t, `
		fn f() -> i32 { return 1; }
		fn main() { let n = f() + 1; }`)

	var sawSubst, sawArith bool
	ir.WalkValues(mainBody(t, program), func(v ir.ShellValue) {
		switch v.(type) {
		case *ir.CommandSubst:
			sawSubst = true
		case *ir.Arithmetic:
			sawArith = true
		}
	})
	assert.True(t, sawArith)
	assert.True(t, sawSubst, "WalkValues must descend into arithmetic operands")
}

func TestMeasureCountsBranches(t *testing.T) {
	program := lower(t, `fn main() {
		let x = 1;
		if x > 0 {
			for i in 0..2 {
				echo(i);
			}
		}
	}`)
	m := ir.Measure(mainBody(t, program))
	assert.Equal(t, 2, m.BranchCount)
	assert.Equal(t, 3, m.NestingDepth)
	assert.True(t, m.Statements >= 4, "statements: %d", m.Statements)
}

func TestDiagnosticRendersWithSpan(t *testing.T) {
	diags := lowerErr(t, "fn main() {\n\tlet x = env(\"BAD NAME\");\n}")
	rendered := diags[0].String()
	assert.True(t, strings.Contains(rendered, "2:"), "want line in %q", rendered)
}
