package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiml/rash/compiler"
	"github.com/paiml/rash/diag"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Diagnostics were already printed with spans; anything else gets
		// the plain cobra treatment.
		if _, ok := err.(diag.List); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rash",
		Short:         "Compile a restricted Rust subset to POSIX shell",
		Version:       compiler.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newCheckCmd())
	return rootCmd
}

func newBuildCmd() *cobra.Command {
	cfg := compiler.DefaultConfig()
	var (
		output  string
		watch   bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "build <file>...",
		Short: "Compile source files to POSIX shell scripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && len(args) > 1 {
				return fmt.Errorf("--output only applies to a single input file")
			}

			units := make([]compiler.Unit, len(args))
			for i, src := range args {
				out := compiler.DefaultOutPath(src)
				if output != "" {
					out = output
				}
				units[i] = compiler.Unit{SrcPath: src, OutPath: out}
			}

			if watch {
				return watchAndBuild(cmd.Context(), units, cfg)
			}
			return buildOnce(cmd.Context(), units, cfg, workers)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Artifact path (single input only)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Recompile whenever a source file changes")
	cmd.Flags().IntVar(&workers, "jobs", 4, "Parallel compilations in batch mode")
	addConfigFlags(cmd, &cfg)
	return cmd
}

func newCheckCmd() *cobra.Command {
	cfg := compiler.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Compile and validate without writing artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed bool
			for _, src := range args {
				source, err := os.ReadFile(src)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", src, err)
					failed = true
					continue
				}
				result, diags := compiler.Compile(cmd.Context(), src, string(source), cfg)
				if diags != nil {
					printDiagnostics(src, diags)
					failed = true
					continue
				}
				printWarnings(src, result.Warnings)
				fmt.Printf("%s: ok (%s)\n", src, result.Digest[:16])
			}
			if failed {
				return diag.List{}
			}
			return nil
		},
	}

	addConfigFlags(cmd, &cfg)
	return cmd
}

func addConfigFlags(cmd *cobra.Command, cfg *compiler.Config) {
	cmd.Flags().BoolVar(&cfg.StrictMode, "strict", false, "Reject on warnings as well as errors")
	cmd.Flags().BoolVar(&cfg.EnableConstantFolding, "fold-constants", false, "Fold constant expressions")
	cmd.Flags().BoolVar(&cfg.EnableDeadCodeElimination, "eliminate-dead-code", false, "Drop unreachable functions and statements")
	cmd.Flags().BoolVar(&cfg.EnableInlining, "inline", false, "Inline small functions under the branch threshold")
	cmd.Flags().IntVar(&cfg.InlineBranchThreshold, "inline-branch-threshold", 0, "Branch-count cap for inlining (0 = default)")
	cmd.Flags().BoolVar(&cfg.SkipShellCheck, "no-shellcheck", cfg.SkipShellCheck, "Skip the external shell analyzer")
	cmd.Flags().StringVar(&cfg.ShellCheckPath, "shellcheck", cfg.ShellCheckPath, "Path to the external shell analyzer")
}

func buildOnce(ctx context.Context, units []compiler.Unit, cfg compiler.Config, workers int) error {
	results := compiler.CompileAll(ctx, units, cfg, workers)
	var failed bool
	for _, res := range results {
		if res.Err != nil {
			if diags, ok := res.Err.(diag.List); ok {
				printDiagnostics(res.Unit.SrcPath, diags)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %v\n", res.Unit.SrcPath, res.Err)
			}
			failed = true
			continue
		}
		printWarnings(res.Unit.SrcPath, res.Result.Warnings)
		fmt.Printf("%s -> %s (%s)\n", res.Unit.SrcPath, res.Unit.OutPath, res.Result.Digest[:16])
	}
	if failed {
		return diag.List{}
	}
	return nil
}

func printDiagnostics(src string, diags diag.List) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s:%s\n", src, d)
	}
	if n := len(diags); n > 1 {
		fmt.Fprintf(os.Stderr, "%s: %d diagnostics\n", src, n)
	}
}

func printWarnings(src string, warnings diag.List) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s:%s\n", src, w)
	}
}
