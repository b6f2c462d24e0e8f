// Package driver implements the parallel enumeration driver (spec
// component C7): batch partitioning over an enumerator's index space,
// worker goroutines running each decoded table through the C3 pre-run
// filter and then C4/C5 simulation, channel fan-in of partial results,
// the contiguous-prefix completion watermark, and periodic checkpointing.
//
// The worker/fan-in shape is grounded on reinforcement.alphaMonteCarloVanillaTrain's
// agent_worker -> channerics.Merge -> estimator pipeline: here, batch
// workers take the place of episode-generating agents, and the driver loop
// takes the place of the single estimator goroutine that owns all shared
// state. Worker lifecycle is supervised with golang.org/x/sync/errgroup,
// the same errgroup.WithContext idiom server/fastview/client.go's Sync
// uses to fan out its read/ping/publish goroutines under one cancellable
// context.
package driver

import (
	"context"
	"fmt"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"github.com/niceyeti/ctm/internal/aggregate"
	"github.com/niceyeti/ctm/internal/checkpoint"
	"github.com/niceyeti/ctm/internal/enumerate"
	"github.com/niceyeti/ctm/internal/filter"
	"github.com/niceyeti/ctm/internal/simulate"
	"github.com/niceyeti/ctm/internal/turing"
)

// maxBatchAttempts bounds the lost-batch re-enqueue: a batch is retried
// once after a worker failure before the run is aborted as fatal.
const maxBatchAttempts = 2

// ProgressFunc reports driver progress after each batch is merged into the
// global aggregator; completedBatches and totalBatches are both in batch
// units. It mirrors reinforcement.ProgressFunc's role but is given a
// richer, CTM-specific signature.
type ProgressFunc func(completedBatches, totalBatches uint64, global *aggregate.Aggregator)

// Driver runs an Enumerator's machines to completion across a worker pool.
type Driver struct {
	Enumerator         *enumerate.Enumerator
	SimOptions         simulate.Options
	BatchSize          uint64
	NumWorkers         int
	CheckpointPath     string
	CheckpointInterval time.Duration
	Progress           ProgressFunc
	// Limit, if nonzero, truncates the enumeration to its first Limit
	// codes (spec §6 num_machines_to_run) instead of running every code
	// the Enumerator holds.
	Limit uint64
	// Seed, if non-nil, is used as the starting global aggregator instead
	// of an empty one, so a resumed run (startBatch > 0) continues from a
	// previously checkpointed aggregate rather than recomputing it (spec
	// §4.8's resume contract).
	Seed *aggregate.Aggregator
}

type batchJob struct {
	index      uint64
	start, end uint64
	attempt    int
}

type batchResult struct {
	index uint64
	agg   *aggregate.Aggregator
	err   error
	job   batchJob
}

// effectiveSize returns the number of enumeration indices this run covers:
// the full Enumerator size, or d.Limit when it is set and smaller.
func (d *Driver) effectiveSize() uint64 {
	size := d.Enumerator.Size()
	if d.Limit > 0 && d.Limit < size {
		return d.Limit
	}
	return size
}

// TotalBatches returns the number of batches the enumeration splits into.
func (d *Driver) TotalBatches() uint64 {
	size := d.effectiveSize()
	return (size + d.BatchSize - 1) / d.BatchSize
}

func (d *Driver) batchRange(index uint64) (start, end uint64) {
	start = index * d.BatchSize
	end = start + d.BatchSize
	if size := d.effectiveSize(); end > size {
		end = size
	}
	return start, end
}

// Run executes every batch from startBatch to TotalBatches()-1, merging
// results in contiguous order into the global aggregator (d.Seed if set,
// otherwise a fresh one), and
// returns that aggregator along with the watermark (one past the highest
// batch index merged). Completion (spec §4.6) is the caller's
// responsibility, once all batches have merged.
func (d *Driver) Run(ctx context.Context, startBatch uint64) (*aggregate.Aggregator, uint64, error) {
	total := d.TotalBatches()
	remaining := total - startBatch

	// Sized to hold every initial batch plus one retry per batch, so
	// dispatch and retry pushes never block on a full buffer.
	jobs := make(chan batchJob, 2*remaining+1)
	for b := startBatch; b < total; b++ {
		start, end := d.batchRange(b)
		jobs <- batchJob{index: b, start: start, end: end, attempt: 1}
	}

	cancelCtx, cancelWorkers := context.WithCancel(ctx)
	group, workerCtx := errgroup.WithContext(cancelCtx)
	// Deferred in this order so cancelWorkers runs first (defers unwind
	// LIFO): workers must see workerCtx cancelled before group.Wait can
	// expect them to return.
	defer func() { _ = group.Wait() }()
	defer cancelWorkers()

	workerOutputs := make([]<-chan batchResult, d.NumWorkers)
	for w := 0; w < d.NumWorkers; w++ {
		workerOutputs[w] = d.spawnWorker(group, workerCtx, jobs)
	}
	merged := channerics.Merge(workerCtx.Done(), workerOutputs...)

	global := d.Seed
	if global == nil {
		global = aggregate.New()
	}
	pending := make(map[uint64]*aggregate.Aggregator)
	watermark := startBatch

	var ticks <-chan time.Time
	if d.CheckpointInterval > 0 && d.CheckpointPath != "" {
		ticks = channerics.NewTicker(workerCtx.Done(), d.CheckpointInterval)
	}

	for watermark < total {
		select {
		case res, ok := <-merged:
			if !ok {
				return global, watermark, fmt.Errorf("driver: workers exited before all batches completed (watermark=%d, total=%d)", watermark, total)
			}
			if res.err != nil {
				if res.job.attempt >= maxBatchAttempts {
					return global, watermark, fmt.Errorf("driver: batch %d failed after %d attempts: %w", res.index, res.job.attempt, res.err)
				}
				retry := batchJob{index: res.job.index, start: res.job.start, end: res.job.end, attempt: res.job.attempt + 1}
				select {
				case jobs <- retry:
				case <-ctx.Done():
					d.checkpoint(global, watermark)
					return global, watermark, ctx.Err()
				}
				continue
			}
			pending[res.index] = res.agg
			for {
				agg, ok := pending[watermark]
				if !ok {
					break
				}
				global.Merge(agg)
				delete(pending, watermark)
				watermark++
				if d.Progress != nil {
					d.Progress(watermark, total, global)
				}
			}
		case <-ticks:
			d.checkpoint(global, watermark)
		case <-ctx.Done():
			// Cancellation (spec §5): stop dispatching, merge whatever has
			// already arrived (done above), write a final checkpoint, exit.
			d.checkpoint(global, watermark)
			return global, watermark, ctx.Err()
		}
	}

	return global, watermark, nil
}

// spawnWorker registers a worker goroutine with group that pulls batches
// off jobs until it is cancelled, decoding and simulating every machine in
// each one. A panic while processing a single machine is recovered and
// reported as a batch failure instead of crashing the whole pool. The
// worker's own return value only ever signals cancellation (nil on a
// clean jobs-channel close, ctx.Err() otherwise) since batch failures are
// carried on the result channel and retried by Run, not treated as fatal
// errgroup errors.
func (d *Driver) spawnWorker(group *errgroup.Group, ctx context.Context, jobs <-chan batchJob) <-chan batchResult {
	out := make(chan batchResult)
	group.Go(func() error {
		defer close(out)
		for {
			select {
			case job, ok := <-jobs:
				if !ok {
					return nil
				}
				res := d.runBatch(job)
				select {
				case out <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	return out
}

func (d *Driver) runBatch(job batchJob) (res batchResult) {
	defer func() {
		if r := recover(); r != nil {
			res = batchResult{index: job.index, job: job, err: fmt.Errorf("driver: worker panic on batch %d: %v", job.index, r)}
		}
	}()

	agg := aggregate.New()
	n := d.Enumerator.N()
	for i := job.start; i < job.end; i++ {
		code, err := d.Enumerator.CodeAt(i)
		if err != nil {
			return batchResult{index: job.index, job: job, err: err}
		}
		table, err := turing.Decode(n, code)
		if err != nil {
			return batchResult{index: job.index, job: job, err: err}
		}
		// C3: skip simulation entirely for tables with no halt transition.
		if filter.PreRunReject(table) {
			agg.Record(turing.NonHaltingWith(turing.ReasonNoHaltTransitionReachable))
			continue
		}
		agg.Record(simulate.Run(table, d.SimOptions))
	}
	return batchResult{index: job.index, job: job, agg: agg}
}

func (d *Driver) checkpoint(global *aggregate.Aggregator, watermark uint64) {
	if d.CheckpointPath == "" {
		return
	}
	state := checkpoint.FromAggregator(
		d.Enumerator.N(),
		d.SimOptions.StepBudget,
		d.Enumerator.Mode(),
		d.SimOptions.Blank,
		d.BatchSize,
		watermark,
		d.Enumerator.Size(),
		global,
	)
	// A failed checkpoint write is not fatal to the run; the next tick will
	// try again, and Save's atomic rename means a concurrent reader never
	// observes a partial file either way.
	_ = checkpoint.Save(d.CheckpointPath, state)
}
