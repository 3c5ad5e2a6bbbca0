package loader

import (
	"context"
	"fmt"
	"log/slog"
)

// BatchWriter persists one batch atomically and returns how many rows were new.
type BatchWriter[T any] interface {
	WriteBatch(ctx context.Context, batch []T) (int, error)
}

type Options struct {
	BatchSize int
	// ProgressEvery throttles progress callbacks to every N records; 0 reports every batch.
	ProgressEvery int
	// IsFatal decides which batch errors stop the whole run.
	IsFatal  func(error) bool
	// Progress gets the number of records processed so far and the running result.
	Progress func(processed int, res Result)
	Logger   *slog.Logger
}

type BatchFailure struct {
	Index int
	From  int
	To    int
	Err   error
}

type Result struct {
	Total         int
	Inserted      int
	Skipped       int
	Failed        int
	FailedBatches []BatchFailure
}

// Persisted counts rows that are in the table after the run, duplicates included.
func (r Result) Persisted() int {
	return r.Inserted + r.Skipped
}

// Run writes records in fixed-size batches, each committed on its own.
// A failed batch is recorded and loading moves on, unless IsFatal says otherwise.
func Run[T any](ctx context.Context, w BatchWriter[T], records []T, opts Options) (Result, error) {
	size := opts.BatchSize
	if size <= 0 {
		size = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := Result{Total: len(records)}
	done := 0
	lastReported := 0

	for start, idx := 0, 0; start < len(records); start, idx = start+size, idx+1 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+size, len(records))
		batch := records[start:end]

		inserted, err := w.WriteBatch(ctx, batch)
		if err != nil {
			if opts.IsFatal != nil && opts.IsFatal(err) {
				return res, fmt.Errorf("batch %d (records %d-%d): %w", idx+1, start+1, end, err)
			}
			logger.Warn("batch rolled back", "batch", idx+1, "from", start+1, "to", end, "err", err)
			res.Failed += len(batch)
			res.FailedBatches = append(res.FailedBatches, BatchFailure{Index: idx + 1, From: start + 1, To: end, Err: err})
		} else {
			res.Inserted += inserted
			res.Skipped += len(batch) - inserted
		}

		done = end
		if opts.Progress != nil && (opts.ProgressEvery <= 0 || done-lastReported >= opts.ProgressEvery || done == len(records)) {
			opts.Progress(done, res)
			lastReported = done
		}
	}

	return res, nil
}
