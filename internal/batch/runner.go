// Package batch validates many manifest files concurrently and reports the
// outcomes in input order.
package batch

import (
	"context"
	"runtime"
	"time"

	"github.com/jsonagents/jsonagents/internal/diag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FileValidator checks one manifest file.
type FileValidator interface {
	ValidateFile(path string) (diag.Result, error)
}

// FileResult is the outcome for one input path. Err is set when the file
// could not be read or decoded; Result is then empty.
type FileResult struct {
	Path   string
	Result diag.Result
	Err    error
}

// OK reports whether the file was read and is valid.
func (r FileResult) OK() bool {
	return r.Err == nil && r.Result.Valid
}

// AllOK reports whether every file is valid.
func AllOK(results []FileResult) bool {
	for _, r := range results {
		if !r.OK() {
			return false
		}
	}
	return true
}

// Runner validates files with a bounded number of workers.
type Runner struct {
	validator FileValidator
	workers   int
	logger    *zap.Logger
}

// NewRunner creates a runner. workers below 1 selects GOMAXPROCS; a nil
// logger disables logging.
func NewRunner(v FileValidator, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{validator: v, workers: workers, logger: logger.Named("batch")}
}

// Workers returns the concurrency limit.
func (r *Runner) Workers() int {
	return r.workers
}

// Run validates every path. Each outcome is written into the slot of its
// input, so the returned slice follows the order of paths regardless of
// completion order. The only error is ctx cancellation; files not started
// before cancellation keep an empty result carrying ctx.Err().
func (r *Runner) Run(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	start := time.Now()
	for i, path := range paths {
		results[i].Path = path
		if gctx.Err() != nil {
			results[i].Err = gctx.Err()
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			began := time.Now()
			res, err := r.validator.ValidateFile(path)
			results[i].Result, results[i].Err = res, err

			if err != nil {
				r.logger.Warn("manifest could not be validated", zap.String("path", path), zap.Error(err))
				return nil
			}
			r.logger.Debug("validated manifest",
				zap.String("path", path),
				zap.Bool("valid", res.Valid),
				zap.Int("errors", len(res.Errors)),
				zap.Int("warnings", len(res.Warnings)),
				zap.Duration("elapsed", time.Since(began)),
			)
			return nil
		})
	}

	err := g.Wait()
	r.logger.Info("batch finished",
		zap.Int("files", len(paths)),
		zap.Int("workers", r.workers),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err == nil {
		err = ctx.Err()
	}
	return results, err
}
