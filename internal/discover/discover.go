// Package discover walks a directory tree for batch scripts and runs the
// linter over them with a bounded amount of parallelism.
package discover

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"blinter/internal/lint"
)

// FileResult is one script's outcome: either its diagnostics or a load
// error that kept it from being analyzed at all (spec.md §7.1).
type FileResult struct {
	Path        string
	Diagnostics []lint.Diagnostic
	Err         error
}

// CollectFiles returns every .bat/.cmd file under root. recursive controls
// whether subdirectories are descended into.
func CollectFiles(root string, recursive bool) ([]string, error) {
	var files []string

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if isBatchFile(e.Name()) {
				files = append(files, filepath.Join(root, e.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isBatchFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func isBatchFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".bat" || ext == ".cmd"
}

// Run lints every file in files concurrently, bounded by a semaphore sized
// to twice the CPU count (mirroring the teacher pack's dispatch pattern),
// and returns one FileResult per input path in the same order it was
// given.
func Run(ctx context.Context, files []string, opts lint.Options) []FileResult {
	results := make([]FileResult, len(files))
	sem := semaphore.NewWeighted(int64(runtime.NumCPU() * 2))
	var wg sync.WaitGroup

	for i, path := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = FileResult{Path: path, Err: err}
			continue
		}
		wg.Add(1)
		go func(idx int, p string) {
			defer wg.Done()
			defer sem.Release(1)
			diags, err := lint.Lint(p, opts)
			results[idx] = FileResult{Path: p, Diagnostics: diags, Err: err}
		}(i, path)
	}

	wg.Wait()
	return results
}
