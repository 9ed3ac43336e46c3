// Package compiler wires the pipeline: parse, lower, validate the IR, emit,
// validate the text, then write. Stages run strictly in that order, each
// consuming the previous stage's value; nothing downstream runs once a stage
// reports a diagnostic.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xyproto/env/v2"

	"github.com/paiml/rash/diag"
	"github.com/paiml/rash/emit"
	"github.com/paiml/rash/ir"
	"github.com/paiml/rash/lexer"
	"github.com/paiml/rash/parser"
	"github.com/paiml/rash/validation"
)

// Version is stamped into the provenance header of every artifact.
const Version = "0.4.1"

// Config carries the recognized compilation options. The zero value compiles
// with every optimization off and the external analyzer enabled.
type Config struct {
	// StrictMode rejects on the first warning as well as on errors.
	StrictMode bool

	EnableDeadCodeElimination bool
	EnableConstantFolding     bool
	EnableInlining            bool

	// InlineBranchThreshold caps inlining-driven branch growth; zero uses
	// ir.DefaultInlineBranchThreshold.
	InlineBranchThreshold int

	// DiagnosticLimit bounds parser aggregation; zero uses diag.DefaultLimit.
	DiagnosticLimit int

	// SkipShellCheck disables the external analyzer phase entirely. The
	// built-in POSIX re-parse and bashism scan always run.
	SkipShellCheck    bool
	ShellCheckPath    string
	ShellCheckTimeout time.Duration
}

// DefaultConfig resolves configuration defaults from the environment.
func DefaultConfig() Config {
	return Config{
		ShellCheckPath:    env.Str("RASH_SHELLCHECK", "shellcheck"),
		ShellCheckTimeout: time.Duration(env.Int("RASH_SHELLCHECK_TIMEOUT", 10)) * time.Second,
		SkipShellCheck:    env.Bool("RASH_SKIP_SHELLCHECK"),
	}
}

// Result is a successful compilation: the full artifact text, its digest,
// the IR metrics the reporting layer consumes, and any non-fatal warnings.
type Result struct {
	Script   string
	Digest   string
	Metrics  map[string]ir.Metrics
	Warnings diag.List
}

// Compile runs the whole pipeline over one unit of source text. sourceName
// is the identity recorded in the provenance header.
func Compile(ctx context.Context, sourceName, source string, cfg Config) (*Result, diag.List) {
	program, diags := parser.ParseWithLimit(source, cfg.DiagnosticLimit)
	if diags != nil {
		return nil, diags
	}

	lowered, diags := ir.Transform(program)
	if diags != nil {
		return nil, diags
	}

	lowered = ir.Optimize(lowered, ir.OptimizeOptions{
		ConstantFolding:       cfg.EnableConstantFolding,
		DeadCodeElimination:   cfg.EnableDeadCodeElimination,
		Inlining:              cfg.EnableInlining,
		InlineBranchThreshold: cfg.InlineBranchThreshold,
	})

	// Unreachable functions are a warning when they survive (DCE off), and a
	// hard failure under strict mode.
	var warnings diag.List
	for _, name := range ir.UnreachableFunctions(lowered) {
		warnings = append(warnings, diag.Diagnostic{
			Code:     diag.CodeLoweringError,
			Severity: diag.Warning,
			Message:  fmt.Sprintf("function `%s` is never called", name),
			Fix:      "remove it, or enable dead code elimination",
		})
	}
	if cfg.StrictMode && len(warnings) > 0 {
		return nil, warnings
	}

	if errs := validation.ValidateIR(lowered); errs != nil {
		return nil, errs
	}

	body, errs := emit.Emit(lowered)
	if errs != nil {
		return nil, errs
	}
	script := header(sourceName, source) + body

	// Determinism gate: a second, independent emission must be identical.
	second, errs := emit.Emit(lowered)
	if errs != nil {
		return nil, errs
	}
	if errs := validation.CheckDeterminism(body, second); errs != nil {
		return nil, errs
	}

	if errs := validation.ValidateText(script); errs != nil {
		return nil, errs
	}

	if !cfg.SkipShellCheck {
		sc := validation.ShellCheck{Path: cfg.ShellCheckPath, Timeout: cfg.ShellCheckTimeout}
		if errs := sc.Run(ctx, script); errs != nil {
			return nil, errs
		}
	}

	metrics := map[string]ir.Metrics{}
	for _, fn := range lowered.Functions {
		metrics[fn.Name] = ir.Measure(fn.Body)
	}

	return &Result{
		Script:   script,
		Digest:   validation.Digest(script),
		Metrics:  metrics,
		Warnings: warnings,
	}, nil
}

// header builds the deterministic provenance preamble. No timestamps: the
// same source always produces the same header.
func header(sourceName, source string) string {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&sb, "# Code generated by rash %s. DO NOT EDIT.\n", Version)
	fmt.Fprintf(&sb, "# Source: %s (blake2b:%s)\n", filepath.Base(sourceName),
		validation.Digest(source)[:16])
	sb.WriteString("set -eu\n\n")
	return sb.String()
}

// CompileFile compiles a source file and promotes the artifact to outPath
// only after every validation phase has passed. Until then the output lives
// in a temporary file beside the destination; a failed run writes nothing.
func CompileFile(ctx context.Context, srcPath, outPath string, cfg Config) (*Result, diag.List) {
	source, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, diag.Errorf(diag.CodeIOError, lexer.SourceSpan{}, "reading %s: %v", srcPath, err)
	}

	result, diags := Compile(ctx, srcPath, string(source), cfg)
	if diags != nil {
		return nil, diags
	}

	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, ".rash-*.tmp")
	if err != nil {
		return nil, diag.Errorf(diag.CodeIOError, lexer.SourceSpan{}, "creating temporary artifact: %v", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(result.Script); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, diag.Errorf(diag.CodeIOError, lexer.SourceSpan{}, "writing artifact: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, diag.Errorf(diag.CodeIOError, lexer.SourceSpan{}, "closing artifact: %v", err)
	}
	if err := os.Chmod(tmpName, 0o755); err != nil {
		os.Remove(tmpName)
		return nil, diag.Errorf(diag.CodeIOError, lexer.SourceSpan{}, "marking artifact executable: %v", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		os.Remove(tmpName)
		return nil, diag.Errorf(diag.CodeIOError, lexer.SourceSpan{}, "promoting artifact: %v", err)
	}
	return result, nil
}
