package compiler

import (
	"context"
	"strings"
	"sync"
)

// Unit is one independent compilation in a batch.
type Unit struct {
	SrcPath string
	OutPath string
}

// UnitResult pairs a unit with its outcome. Err is nil on success.
type UnitResult struct {
	Unit   Unit
	Result *Result
	Err    error
}

// CompileAll compiles units in parallel. Each unit owns its Program and IR
// outright; the only shared state is the read-only Config, so units are
// embarrassingly parallel. Results come back in input order regardless of
// completion order.
func CompileAll(ctx context.Context, units []Unit, cfg Config, workers int) []UnitResult {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(units) {
		workers = len(units)
	}

	results := make([]UnitResult, len(units))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				unit := units[i]
				result, diags := CompileFile(ctx, unit.SrcPath, unit.OutPath, cfg)
				res := UnitResult{Unit: unit, Result: result}
				if diags != nil {
					res.Err = diags
				}
				results[i] = res
			}
		}()
	}

	for i := range units {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// DefaultOutPath derives the artifact path for a source path: the extension
// swaps for .sh.
func DefaultOutPath(srcPath string) string {
	if i := strings.LastIndex(srcPath, "."); i > 0 {
		return srcPath[:i] + ".sh"
	}
	return srcPath + ".sh"
}
