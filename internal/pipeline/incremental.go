package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/cbill/internal/source"
	"github.com/theirongolddev/cbill/internal/store"
)

// CachedLoadResult extends LoadResult with cache metadata.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
	Pruned    int
}

// LoadWithCache discovers, diffs against cache, parses only changed files,
// and returns the combined result set. Files that disappeared from dir are
// dropped from the cache.
func LoadWithCache(ctx context.Context, dir string, cache *store.Cache, progressFn ProgressFunc) (*CachedLoadResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	result := &CachedLoadResult{LoadResult: LoadResult{TotalFiles: len(files)}}

	// Diff: partition into changed and unchanged
	var toReparse []source.DiscoveredFile
	var reparseInfo []store.FileInfo
	unchanged := make(map[string]store.FileInfo)
	present := make(map[string]struct{}, len(files))

	for _, f := range files {
		present[f.Path] = struct{}{}
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}
		fi := store.FileInfo{MtimeNs: info.ModTime().UnixNano(), SizeBytes: info.Size()}

		cached, ok := tracked[f.Path]
		if ok && cached.MtimeNs == fi.MtimeNs && cached.SizeBytes == fi.SizeBytes {
			unchanged[f.Path] = cached
		} else {
			toReparse = append(toReparse, f)
			reparseInfo = append(reparseInfo, fi)
		}
	}

	for path := range tracked {
		if _, ok := present[path]; !ok {
			if err := cache.DeleteFile(path); err != nil {
				return nil, fmt.Errorf("pruning %s from cache: %w", path, err)
			}
			result.Pruned++
		}
	}

	result.CacheHits = len(unchanged)
	result.Reparsed = len(toReparse)

	if len(unchanged) > 0 {
		cached, err := cache.LoadAllRecords()
		if err != nil {
			return nil, fmt.Errorf("loading cached records: %w", err)
		}
		for _, r := range cached {
			if _, ok := unchanged[r.SourceFile]; ok {
				result.Records = append(result.Records, r)
			}
		}
		for _, fi := range unchanged {
			result.ParsedFiles++
			result.Rows += fi.Rows
			result.EmptyRows += fi.EmptyRows
			result.CoercedCells += fi.CoercedCells
		}
	}

	if len(toReparse) > 0 {
		results, err := parseAll(ctx, toReparse, result.CacheHits, result.TotalFiles, progressFn)
		if err != nil {
			return nil, err
		}
		for i, pr := range results {
			result.add(toReparse[i].Path, pr)
			if pr.Err != nil {
				continue
			}
			fi := reparseInfo[i]
			fi.Rows, fi.EmptyRows, fi.CoercedCells = pr.Rows, pr.EmptyRows, pr.CoercedCells
			_ = cache.SaveFile(toReparse[i].Path, pr.Records, fi)
		}
	}

	sortRecords(result.Records)
	return result, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "cbill")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "cbill")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "cbill.db")
}
