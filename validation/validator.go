// Package validation holds the safety gates around emission: IR-level checks
// before text exists, text-level checks on the emitter's own output, and the
// determinism digest. The artifact may only be written once every phase here
// has passed.
package validation

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"mvdan.cc/sh/v3/syntax"

	"github.com/paiml/rash/diag"
	"github.com/paiml/rash/ir"
	"github.com/paiml/rash/lexer"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dynamicEvalCommands are command names whose presence in IR would mean the
// pipeline is about to evaluate unconstrained text. Lowering cannot produce
// them; the check stays as defense in depth.
var dynamicEvalCommands = map[string]bool{
	"eval":   true,
	"source": true,
	".":      true,
}

// ValidateIR re-checks invariants the lowering already enforced. Cheap, and
// it turns a lowering regression into a loud failure instead of unsafe text.
func ValidateIR(program *ir.Program) diag.List {
	var errs diag.List
	add := func(format string, args ...interface{}) {
		errs = append(errs, diag.Diagnostic{
			Code:     diag.CodeValidationFailure,
			Severity: diag.Error,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for _, fn := range program.Functions {
		ir.WalkValues(fn.Body, func(v ir.ShellValue) {
			if env, ok := v.(*ir.EnvVar); ok {
				if !envNamePattern.MatchString(env.Name) {
					add("IR reached validation with invalid environment name %q", env.Name)
				}
			}
			if cs, ok := v.(*ir.CommandSubst); ok {
				checkCommands(cs.Body, add)
			}
		})
		checkBlock(fn.Body, add)
	}
	return errs
}

func checkBlock(stmts []ir.ShellIR, add func(string, ...interface{})) {
	for _, s := range stmts {
		checkCommands(s, add)
		switch n := s.(type) {
		case *ir.If:
			checkBlock(n.Then, add)
			checkBlock(n.Else, add)
		case *ir.Case:
			for _, arm := range n.Arms {
				checkBlock(arm.Body, add)
			}
		case *ir.For:
			checkBlock(n.Body, add)
		case *ir.While:
			checkBlock(n.Body, add)
		case *ir.FunctionDef:
			checkBlock(n.Body, add)
		}
	}
}

func checkCommands(s ir.ShellIR, add func(string, ...interface{})) {
	switch n := s.(type) {
	case *ir.Call:
		if dynamicEvalCommands[n.Name] {
			add("IR contains dynamic evaluation command %q", n.Name)
		}
	case *ir.Pipeline:
		for _, c := range n.Stages {
			checkCommands(c, add)
		}
	}
}

// ---------------------------------------------------------------------------
// Text-level validation
// ---------------------------------------------------------------------------

// bashismPatterns is the non-POSIX construct scan. The construct mapping in
// the emitter cannot produce these; the scan catches regressions.
var bashismPatterns = []struct {
	re      *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`\[\[`), "double-bracket test `[[`"},
	{regexp.MustCompile(`^\s*function\s+[A-Za-z_]`), "`function` keyword"},
	{regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*=\(`), "array assignment"},
	{regexp.MustCompile(`\$'`), "ANSI-C quoting `$'...'`"},
	{regexp.MustCompile(`&>`), "combined redirect `&>`"},
	{regexp.MustCompile(`<<<`), "here-string `<<<`"},
	{regexp.MustCompile(`\$\[`), "deprecated arithmetic `$[...]`"},
	{regexp.MustCompile(`\bselect\s+[A-Za-z_][A-Za-z0-9_]*\s+in\b`), "`select` loop"},
	{regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*(\^|,)`), "case-modification expansion"},
}

// ValidateText re-parses emitted text against the POSIX grammar and scans it
// for non-POSIX constructs. Both checks run on the final byte sequence, after
// every transformation, so nothing can edit the script behind their back.
func ValidateText(script string) diag.List {
	var errs diag.List

	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	if _, err := parser.Parse(strings.NewReader(script), "generated.sh"); err != nil {
		errs = append(errs, diag.Diagnostic{
			Code:     diag.CodeValidationFailure,
			Severity: diag.Error,
			Message:  fmt.Sprintf("emitted script does not parse as POSIX sh: %v", err),
		})
	}

	for lineNo, line := range strings.Split(script, "\n") {
		for _, pat := range bashismPatterns {
			if pat.re.MatchString(line) {
				errs = append(errs, diag.Diagnostic{
					Span: lexer.SourceSpan{
						Start: lexer.SourcePosition{Line: lineNo + 1, Column: 1},
					},
					Code:     diag.CodeValidationFailure,
					Severity: diag.Error,
					Message:  fmt.Sprintf("emitted script contains %s", pat.message),
				})
			}
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// External analyzer
// ---------------------------------------------------------------------------

// DefaultShellCheckTimeout bounds the external analyzer invocation.
const DefaultShellCheckTimeout = 10 * time.Second

// ShellCheck invokes the external static shell analyzer as an additional
// oracle. A timeout, a failure to start, or any finding at all is a hard
// validation failure; the analyzer is never retried or silently skipped.
type ShellCheck struct {
	Path    string        // analyzer binary; empty means "shellcheck" on PATH
	Timeout time.Duration // zero means DefaultShellCheckTimeout
}

// Run feeds the script to the analyzer on stdin and requires zero findings.
func (sc ShellCheck) Run(ctx context.Context, script string) diag.List {
	path := sc.Path
	if path == "" {
		path = "shellcheck"
	}
	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = DefaultShellCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "--shell=sh", "--format=gcc", "-")
	cmd.Stdin = strings.NewReader(script)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return diag.Errorf(diag.CodeValidationFailure, lexer.SourceSpan{},
			"shell analyzer timed out after %s", timeout)
	}
	if err != nil {
		findings := strings.TrimSpace(out.String())
		if findings == "" {
			findings = err.Error()
		}
		return diag.Errorf(diag.CodeValidationFailure, lexer.SourceSpan{},
			"shell analyzer reported findings:\n%s", findings)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Determinism
// ---------------------------------------------------------------------------

// Digest returns the hex BLAKE2b-256 digest of generated text.
func Digest(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

// CheckDeterminism compares digests of two independent emissions of the same
// program. A mismatch is a failure of the pipeline itself, not of the input.
func CheckDeterminism(first, second string) diag.List {
	if Digest(first) == Digest(second) {
		return nil
	}
	return diag.Errorf(diag.CodeDeterminismFailure, lexer.SourceSpan{},
		"two emissions of the same program produced different output")
}
