package ir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiml/rash/ir"
)

func optimize(t *testing.T, source string, opts ir.OptimizeOptions) *ir.Program {
	t.Helper()
	return ir.Optimize(lower(t, source), opts)
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   ir.ShellValue
	}{
		{
			name:   "addition",
			source: `fn main() { let x = 2 + 3; }`,
			want:   &ir.Literal{Text: "5"},
		},
		{
			name:   "nested expression",
			source: `fn main() { let x = (2 + 3) * 4 - 1; }`,
			want:   &ir.Literal{Text: "19"},
		},
		{
			name:   "truncating division",
			source: `fn main() { let x = 7 / 2; }`,
			want:   &ir.Literal{Text: "3"},
		},
		{
			name:   "negative division truncates toward zero",
			source: `fn main() { let x = -7 / 2; }`,
			want:   &ir.Literal{Text: "-3"},
		},
		{
			name:   "comparison folds to one",
			source: `fn main() { let x = 3 < 5; }`,
			want:   &ir.Literal{Text: "1"},
		},
		{
			name:   "logic folds to zero",
			source: `fn main() { let x = true && false; }`,
			want:   &ir.Literal{Text: "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := optimize(t, tt.source, ir.OptimizeOptions{ConstantFolding: true})
			body := mainBody(t, p)
			require.Len(t, body, 1)
			assert.Equal(t, tt.want, body[0].(*ir.Assign).Value)
		})
	}
}

func TestDivisionByZeroStaysUnfolded(t *testing.T) {
	p := optimize(t, `fn main() { let x = 1 / 0; }`, ir.OptimizeOptions{ConstantFolding: true})
	body := mainBody(t, p)
	_, ok := body[0].(*ir.Assign).Value.(*ir.Arithmetic)
	assert.True(t, ok, "division by zero must stay a runtime failure")
}

func TestConcatLiteralMerging(t *testing.T) {
	p := optimize(t, `fn main() { let s = format!("a{}c", "b"); }`,
		ir.OptimizeOptions{ConstantFolding: true})
	body := mainBody(t, p)
	assert.Equal(t, &ir.Literal{Text: "abc"}, body[0].(*ir.Assign).Value)
}

func TestFoldingLeavesVariablesAlone(t *testing.T) {
	p := optimize(t, `fn main() {
		let n = 2;
		let x = n + 3;
	}`, ir.OptimizeOptions{ConstantFolding: true})
	body := mainBody(t, p)
	arith, ok := body[1].(*ir.Assign).Value.(*ir.Arithmetic)
	require.True(t, ok)
	assert.Equal(t, &ir.VariableRef{Name: "n"}, arith.Lhs)
}

func TestDeadFunctionElimination(t *testing.T) {
	source := `
		fn used() -> i32 { return 1; }
		fn unused() -> i32 { return 2; }
		fn main() { let x = used(); }`

	p := optimize(t, source, ir.OptimizeOptions{DeadCodeElimination: true})

	var names []string
	for _, fn := range p.Functions {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"used", "main"}, names)
}

func TestTransitiveReachability(t *testing.T) {
	source := `
		fn leaf() -> i32 { return 1; }
		fn middle() -> i32 { return leaf(); }
		fn orphan() { echo("never"); }
		fn main() { let x = middle(); }`

	unreachable := ir.UnreachableFunctions(lower(t, source))
	assert.Equal(t, []string{"orphan"}, unreachable)
}

func TestPostReturnTruncation(t *testing.T) {
	p := optimize(t, `fn main() {
		echo("before");
		return 0;
		echo("after");
	}`, ir.OptimizeOptions{DeadCodeElimination: true})

	body := mainBody(t, p)
	require.Len(t, body, 2)
	_, ok := body[1].(*ir.Return)
	assert.True(t, ok, "nothing may survive past a return")
}

func TestConstantConditionFolding(t *testing.T) {
	source := `fn main() {
		if 1 < 2 {
			echo("kept");
		} else {
			echo("dropped");
		}
	}`

	// Folding reduces the condition to a literal; elimination then replaces
	// the branch with its taken side.
	p := optimize(t, source, ir.OptimizeOptions{
		ConstantFolding:     true,
		DeadCodeElimination: true,
	})
	body := mainBody(t, p)
	require.Len(t, body, 1)
	echo, ok := body[0].(*ir.Echo)
	require.True(t, ok, "constant branch must collapse to its body")
	assert.Equal(t, &ir.Literal{Text: "kept"}, echo.Value)
}

func TestFalseConditionKeepsElse(t *testing.T) {
	p := optimize(t, `fn main() {
		if 1 > 2 {
			echo("dropped");
		} else {
			echo("kept");
		}
	}`, ir.OptimizeOptions{ConstantFolding: true, DeadCodeElimination: true})
	body := mainBody(t, p)
	require.Len(t, body, 1)
	assert.Equal(t, &ir.Literal{Text: "kept"}, body[0].(*ir.Echo).Value)
}

func TestInlineLeafFunction(t *testing.T) {
	source := `
		fn announce(msg: &str) { echo(msg); }
		fn main() { announce("hi"); }`

	p := optimize(t, source, ir.OptimizeOptions{Inlining: true})
	body := mainBody(t, p)

	// The call disappears; the callee body lands with the argument bound
	// directly instead of positionally.
	require.Len(t, body, 2)
	assert.Equal(t, &ir.Assign{Name: "announce_msg", Value: &ir.Literal{Text: "hi"}}, body[0])
	_, ok := body[1].(*ir.Echo)
	assert.True(t, ok)
}

func TestInlineKeepsCalleeLocalsDistinct(t *testing.T) {
	source := `
		fn show(v: i32) { echo(v); }
		fn main() {
			let v = 1;
			show(2);
			echo(v);
		}`

	p := optimize(t, source, ir.OptimizeOptions{Inlining: true})
	body := mainBody(t, p)

	// Inlined callee statements keep their own variable names; the caller's
	// v is untouched before and after the splice.
	require.Len(t, body, 4)
	assert.Equal(t, &ir.Assign{Name: "v", Value: &ir.Literal{Text: "1"}}, body[0])
	assert.Equal(t, &ir.Assign{Name: "show_v", Value: &ir.Literal{Text: "2"}}, body[1])
	assert.Equal(t, &ir.VariableRef{Name: "show_v"}, body[2].(*ir.Echo).Value)
	assert.Equal(t, &ir.VariableRef{Name: "v"}, body[3].(*ir.Echo).Value)
}

func TestInlineSkipsFunctionsWithReturns(t *testing.T) {
	source := `
		fn pick() -> i32 { return 7; }
		fn main() { pick(); }`

	p := optimize(t, source, ir.OptimizeOptions{Inlining: true})
	body := mainBody(t, p)
	require.Len(t, body, 1)
	call, ok := body[0].(*ir.Call)
	require.True(t, ok, "functions containing return must not inline")
	assert.Equal(t, "pick", call.Name)
}

func TestInlineRespectsBranchThreshold(t *testing.T) {
	source := `
		fn branchy(n: i32) {
			if n > 0 { echo("pos"); }
			if n > 1 { echo("big"); }
		}
		fn main() {
			if 1 > 0 { echo("pre"); }
			branchy(5);
		}`

	// Caller has 1 branch, callee costs 2. Threshold 2 forbids the growth,
	// threshold 3 allows it.
	tight := optimize(t, source, ir.OptimizeOptions{Inlining: true, InlineBranchThreshold: 2})
	_, stillCall := mainBody(t, tight)[1].(*ir.Call)
	assert.True(t, stillCall, "inlining past the threshold must be skipped")

	loose := optimize(t, source, ir.OptimizeOptions{Inlining: true, InlineBranchThreshold: 3})
	_, call := mainBody(t, loose)[1].(*ir.Call)
	assert.False(t, call, "inlining under the threshold must apply")
}

func TestInlinedHelperBecomesEliminable(t *testing.T) {
	source := `
		fn announce(msg: &str) { echo(msg); }
		fn main() { announce("hi"); }`

	p := optimize(t, source, ir.OptimizeOptions{Inlining: true, DeadCodeElimination: true})
	require.Len(t, p.Functions, 1)
	assert.Equal(t, "main", p.Functions[0].Name)
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	source := `fn main() {
		let x = 2 + 3;
		if 1 < 2 { echo("hi"); }
	}`
	original := lower(t, source)
	snapshot := lower(t, source)

	ir.Optimize(original, ir.OptimizeOptions{
		ConstantFolding:     true,
		DeadCodeElimination: true,
		Inlining:            true,
	})

	if diff := cmp.Diff(snapshot, original); diff != "" {
		t.Errorf("optimizer mutated its input (-want +got):\n%s", diff)
	}
}

func TestOptimizeWithNothingEnabledIsIdentity(t *testing.T) {
	p := lower(t, `fn main() { let x = 1 + 2; }`)
	out := ir.Optimize(p, ir.OptimizeOptions{})
	assert.Same(t, p, out)
}
