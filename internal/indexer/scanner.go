package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mgomes/mdindex/internal/logging"
	"github.com/mgomes/mdindex/internal/metrics"
)

const maxConcurrentRoots = 4

// Skip reasons recorded in a ScanReport.
const (
	SkipMissingRoot  = "missing_root"
	SkipExcludedRoot = "excluded_root"
	SkipWalkError    = "walk_error"
	SkipMetadata     = "metadata"
)

var errNotDocument = errors.New("not a markdown document")

// Skip records a root or entry the scan passed over.
type Skip struct {
	Path   string
	Reason string
	Err    error
}

func (s Skip) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s (%s): %v", s.Path, s.Reason, s.Err)
	}
	return fmt.Sprintf("%s (%s)", s.Path, s.Reason)
}

// ScanReport is the result of one scan with its diagnostics.
type ScanReport struct {
	Snapshot Snapshot
	Skipped  []Skip
	Duration time.Duration
	// Err is the context error when the scan was cancelled. Snapshot is
	// then partial and must not replace a complete one.
	Err error
}

// Scanner walks roots and collects Markdown documents. Errors never abort a
// scan; they are recorded as skips instead.
type Scanner struct {
	policy *Policy
}

func NewScanner(policy *Policy) *Scanner {
	if policy == nil {
		policy = NewPolicy(nil)
	}
	return &Scanner{policy: policy}
}

// Scan returns the snapshot for roots, newest first.
func (s *Scanner) Scan(ctx context.Context, roots []string) Snapshot {
	return s.ScanWithReport(ctx, roots).Snapshot
}

// ScanWithReport scans roots concurrently and merges the results in root
// order, so the stable sort keeps traversal order for equal timestamps.
func (s *Scanner) ScanWithReport(ctx context.Context, roots []string) ScanReport {
	start := time.Now()

	results := make([][]DocumentEntry, len(roots))
	skips := make([][]Skip, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRoots)
	for i, raw := range roots {
		g.Go(func() error {
			results[i], skips[i] = s.scanRoot(gctx, raw)
			return nil
		})
	}
	_ = g.Wait()

	var report ScanReport
	seen := make(map[string]struct{})
	for i := range roots {
		for _, entry := range results[i] {
			if _, dup := seen[entry.Path]; dup {
				continue
			}
			seen[entry.Path] = struct{}{}
			report.Snapshot = append(report.Snapshot, entry)
		}
		report.Skipped = append(report.Skipped, skips[i]...)
	}

	sort.SliceStable(report.Snapshot, func(i, j int) bool {
		return report.Snapshot[i].Modified > report.Snapshot[j].Modified
	})

	report.Duration = time.Since(start)
	if report.Snapshot == nil {
		report.Snapshot = Snapshot{}
	}

	if err := ctx.Err(); err != nil {
		report.Err = err
		logging.Debug("Scan of %d roots cancelled after %v: %v", len(roots), report.Duration, err)
		return report
	}

	metrics.ScanRunsTotal.Inc()
	metrics.ScanDuration.Observe(report.Duration.Seconds())
	metrics.ScanDocuments.Set(float64(len(report.Snapshot)))
	for _, skip := range report.Skipped {
		metrics.ScanSkippedTotal.WithLabelValues(skip.Reason).Inc()
	}

	logging.Debug("Scanned %d roots in %v: %d documents, %d skipped",
		len(roots), report.Duration, len(report.Snapshot), len(report.Skipped))

	return report
}

func (s *Scanner) scanRoot(ctx context.Context, raw string) ([]DocumentEntry, []Skip) {
	root := normalizeRoot(raw)

	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, []Skip{{Path: root, Reason: SkipMissingRoot}}
		}
		return nil, []Skip{{Path: root, Reason: SkipWalkError, Err: err}}
	}

	if s.policy.IsExcludedPath(root) {
		return nil, []Skip{{Path: root, Reason: SkipExcludedRoot}}
	}

	var entries []DocumentEntry
	var skipped []Skip

	err := walkRoot(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			skipped = append(skipped, Skip{Path: path, Reason: SkipWalkError, Err: err})
			logging.Debug("Skipping %s: %v", path, err)
			return nil
		}

		if d.IsDir() {
			if path != root && s.policy.IsExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsMarkdownPath(path) {
			return nil
		}

		entry, err := materialize(path)
		if err != nil {
			if !errors.Is(err, errNotDocument) {
				skipped = append(skipped, Skip{Path: path, Reason: SkipMetadata, Err: err})
			}
			return nil
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		skipped = append(skipped, Skip{Path: root, Reason: SkipWalkError, Err: err})
	}

	return entries, skipped
}

// walkRoot is filepath.WalkDir that also enters root when root itself is a
// symlink to a directory. Paths handed to fn stay under root as given.
func walkRoot(root string, fn fs.WalkDirFunc) error {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fn(root, nil, err)
	}
	if resolved == root {
		return filepath.WalkDir(root, fn)
	}

	return filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(resolved, path)
		if relErr != nil {
			return fn(path, d, err)
		}
		return fn(filepath.Join(root, rel), d, err)
	})
}

// normalizeRoot expands "~" and makes the root absolute and clean.
func normalizeRoot(raw string) string {
	root := ExpandRoot(raw)
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}
