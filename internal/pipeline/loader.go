// Package pipeline loads billing data and runs business-day-aware anomaly detection.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/source"
)

// FileError records a file that could not be parsed.
type FileError struct {
	Path string
	Err  error
}

// LoadResult holds the output of the full data loading pipeline.
type LoadResult struct {
	Records      []model.BillingRecord
	TotalFiles   int
	ParsedFiles  int
	Rows         int
	EmptyRows    int
	CoercedCells int
	FileErrors   []FileError
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses all billing files under dir.
// It uses a bounded worker pool for parallel parsing.
func Load(ctx context.Context, dir string, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	result := &LoadResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	results, err := parseAll(ctx, files, 0, len(files), progressFn)
	if err != nil {
		return nil, err
	}
	for i, pr := range results {
		result.add(files[i].Path, pr)
	}
	return result, nil
}

// sortRecords orders records by source file and row.
func sortRecords(records []model.BillingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SourceFile != records[j].SourceFile {
			return records[i].SourceFile < records[j].SourceFile
		}
		return records[i].SourceRow < records[j].SourceRow
	})
}

func (r *LoadResult) add(path string, pr source.ParseResult) {
	if pr.Err != nil {
		r.FileErrors = append(r.FileErrors, FileError{Path: path, Err: pr.Err})
		return
	}
	r.ParsedFiles++
	r.Rows += pr.Rows
	r.EmptyRows += pr.EmptyRows
	r.CoercedCells += pr.CoercedCells
	r.Records = append(r.Records, pr.Records...)
}

// parseAll parses files with up to GOMAXPROCS workers. Results are indexed
// like files. offset and total only shape progress reporting.
func parseAll(ctx context.Context, files []source.DiscoveredFile, offset, total int, progressFn ProgressFunc) ([]source.ParseResult, error) {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	results := make([]source.ParseResult, len(files))
	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = source.ParseFile(files[i])
			n := processed.Add(1)
			if progressFn != nil {
				progressFn(int(n)+offset, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
