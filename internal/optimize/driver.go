package optimize

import (
	"context"
	"fmt"
	"math"
	"sync"

	"FinSim/internal/domain/models"
)

// Stop reasons reported through SearchOutcome.Stopped.
const (
	StoppedMaxIter   = "max_iter"
	StoppedPatience  = "patience"
	StoppedExhausted = "exhausted_space"
	StoppedCancelled = "cancelled"
	StoppedCallback  = "callback_panic"
)

// Objective scores one parameter assignment. budgetPct is the percentage of
// the data the evaluation may use; only successive halving passes anything
// below 100. A returned error marks the trial failed without aborting the
// search.
type Objective func(ctx context.Context, params models.Params, budgetPct float64) (float64, error)

// Callback observes every completed trial in iteration order. A panic inside
// the callback is swallowed by default so a reporting hook cannot kill a long
// search; Options.CallbackPolicy can surface it instead.
type Callback func(iteration int, params models.Params, score float64, best models.TrialRecord)

// CallbackPolicy decides what happens when a Callback panics.
type CallbackPolicy int

const (
	// CallbackSwallow recovers the panic and keeps searching.
	CallbackSwallow CallbackPolicy = iota
	// CallbackSurface recovers the panic, keeps the trial that triggered
	// it in the history and returns the panic as the search error.
	CallbackSurface
)

// Options configures a search run. The zero value is not usable on its own;
// Search fills unset fields with defaults.
type Options struct {
	// Policy selects the strategy: PolicyBrute (default), PolicyCoordinate
	// or PolicyHalving.
	Policy string
	// MaxIter caps total evaluations across all batches.
	MaxIter int
	// Seed fixes every random draw. Two runs with equal options, space and
	// objective produce identical histories.
	Seed int64
	// IntParams names dimensions whose values must land on integers.
	IntParams []string
	// Patience stops the search after this many stalls without a new best.
	// What counts as a stall depends on the policy: brute counts single
	// evaluations, halving counts rungs, coordinate counts full dimension
	// cycles. Zero disables early stopping.
	Patience int
	// GreaterIsBetter flips the comparison so higher scores win.
	GreaterIsBetter bool
	// Workers is the number of concurrent objective evaluations.
	Workers int
	// Eta is the halving ratio between rungs.
	Eta float64
	// MinBudget is the data percentage of the first halving rung.
	MinBudget float64
	// CoordinateGrid is the number of scan points per continuous dimension.
	CoordinateGrid int
	// Callback, when set, is invoked after every recorded trial.
	Callback Callback
	// CallbackPolicy selects CallbackSwallow (default) or CallbackSurface
	// for panics raised inside Callback.
	CallbackPolicy CallbackPolicy
}

func (o *Options) normalize() {
	if o.MaxIter <= 0 {
		o.MaxIter = 100
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Eta <= 1 {
		o.Eta = 3
	}
	if o.MinBudget <= 0 || o.MinBudget > maxBudgetPct {
		o.MinBudget = maxBudgetPct / (o.Eta * o.Eta)
	}
	if o.CoordinateGrid <= 0 {
		o.CoordinateGrid = 5
	}
}

func (o *Options) intSet() map[string]bool {
	m := make(map[string]bool, len(o.IntParams))
	for _, name := range o.IntParams {
		m[name] = true
	}
	return m
}

// stopReporter lets a self-stopping policy name the reason it returned an
// empty batch.
type stopReporter interface {
	stopReason() string
}

// Search runs the configured policy until its evaluation cap, its patience,
// ctx cancellation or space exhaustion ends it. The returned outcome always
// carries the full history in iteration order; on cancellation it holds
// everything finished so far alongside ctx.Err().
func Search(ctx context.Context, obj Objective, space Space, opts Options) (*models.SearchOutcome, error) {
	if err := space.validate(); err != nil {
		return nil, err
	}
	opts.normalize()
	names := space.Names()
	pol, err := newPolicy(space, names, &opts)
	if err != nil {
		return nil, err
	}

	h := newHistory(opts.GreaterIsBetter)
	scope := pol.patienceScope()
	stall := 0

	for {
		if h.len() >= opts.MaxIter {
			return conclude(h, StoppedMaxIter)
		}
		if ctx.Err() != nil {
			return h.outcome(StoppedCancelled), ctx.Err()
		}

		batch := pol.next(h)
		if len(batch) == 0 {
			stopped := StoppedExhausted
			if sr, ok := pol.(stopReporter); ok && sr.stopReason() != "" {
				stopped = sr.stopReason()
			}
			return conclude(h, stopped)
		}
		if rem := opts.MaxIter - h.len(); len(batch) > rem {
			batch = batch[:rem]
		}

		results := evalBatch(ctx, obj, batch, opts.Workers, opts.GreaterIsBetter)

		// Results land in the history in iteration order regardless of
		// which worker finished first, so ties and patience behave the
		// same at any worker count.
		evaluated, failed := 0, 0
		improvedInBatch := false
		for _, r := range results {
			if !r.done {
				continue
			}
			evaluated++
			if r.record.Failed {
				failed++
			}
			improved := h.record(r.record)
			if improved {
				improvedInBatch = true
			}
			if opts.Callback != nil {
				if err := invokeCallback(opts.Callback, r.record, h.best); err != nil && opts.CallbackPolicy == CallbackSurface {
					return h.outcome(StoppedCallback), err
				}
			}
			if scope == scopeEval && opts.Patience > 0 {
				if improved {
					stall = 0
				} else {
					stall++
					if stall >= opts.Patience {
						return conclude(h, StoppedPatience)
					}
				}
			}
		}

		if ctx.Err() != nil {
			return h.outcome(StoppedCancelled), ctx.Err()
		}
		// A rung or scan that fails wholesale before any success leaves
		// the policy nothing to promote from. Brute draws candidates
		// independently, so there failures are only fatal once every
		// trial up to the cap has failed; sporadic ones are recorded
		// and skipped over.
		if scope != scopeEval && evaluated > 0 && failed == evaluated && !h.hasBest {
			return h.outcome(StoppedExhausted), ErrSearchExhausted
		}
		if scope == scopeBatch && opts.Patience > 0 {
			if improvedInBatch {
				stall = 0
			} else {
				stall++
				if stall >= opts.Patience {
					return conclude(h, StoppedPatience)
				}
			}
		}
	}
}

// conclude ends a search normally, downgrading to exhaustion when not a
// single trial ever produced a score.
func conclude(h *history, stopped string) (*models.SearchOutcome, error) {
	if h.len() > 0 && !h.hasBest {
		return h.outcome(StoppedExhausted), ErrSearchExhausted
	}
	return h.outcome(stopped), nil
}

func invokeCallback(cb Callback, t models.TrialRecord, best models.TrialRecord) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("optimize: callback panic: %v", rec)
		}
	}()
	cb(t.Iteration, t.Params, t.Score, best)
	return nil
}

type evalResult struct {
	record models.TrialRecord
	done   bool
}

// evalBatch fans a batch over a worker pool. Cancellation stops dispatching
// new candidates but lets in-flight evaluations finish; undispatched slots
// come back with done unset.
func evalBatch(ctx context.Context, obj Objective, batch []candidate, workers int, greater bool) []evalResult {
	results := make([]evalResult, len(batch))
	if workers > len(batch) {
		workers = len(batch)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := batch[i]
				rec := models.TrialRecord{
					Iteration: c.iteration,
					Params:    c.params,
					Budget:    c.budget,
				}
				score, err := obj(ctx, c.params, c.budget)
				if err != nil || math.IsNaN(score) {
					rec.Failed = true
					rec.Score = worstScore(greater)
				} else {
					rec.Score = score
				}
				results[i] = evalResult{record: rec, done: true}
			}
		}()
	}

dispatch:
	for i := range batch {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	return results
}
