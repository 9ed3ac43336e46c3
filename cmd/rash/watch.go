package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/paiml/rash/compiler"
)

// debounceWindow coalesces the burst of write events editors produce for a
// single save.
const debounceWindow = 200 * time.Millisecond

// watchAndBuild compiles every unit, then recompiles a unit whenever its
// source file changes. Runs until the context is cancelled.
func watchAndBuild(ctx context.Context, units []compiler.Unit, cfg compiler.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	bySource := map[string]compiler.Unit{}
	for _, unit := range units {
		abs, err := filepath.Abs(unit.SrcPath)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", unit.SrcPath, err)
		}
		bySource[abs] = unit
		// Watch the directory, not the file: editors replace files on save,
		// which would silently detach a file-level watch.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watching %s: %w", unit.SrcPath, err)
		}
	}

	rebuild := func(unit compiler.Unit) {
		result, diags := compiler.CompileFile(ctx, unit.SrcPath, unit.OutPath, cfg)
		if diags != nil {
			printDiagnostics(unit.SrcPath, diags)
			return
		}
		printWarnings(unit.SrcPath, result.Warnings)
		fmt.Printf("%s -> %s (%s)\n", unit.SrcPath, unit.OutPath, result.Digest[:16])
	}

	for _, unit := range units {
		rebuild(unit)
	}
	fmt.Fprintf(os.Stderr, "watching %d file(s) for changes\n", len(units))

	pending := map[string]compiler.Unit{}
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			unit, tracked := bySource[abs]
			if !tracked {
				continue
			}
			pending[abs] = unit
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			for _, unit := range pending {
				rebuild(unit)
			}
			pending = map[string]compiler.Unit{}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}
