package valuation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/metrics"
)

// MaxWorkers is the hard cap on concurrent resolutions in one batch.
const MaxWorkers = 20

// ResolveFunc produces one valuation. It must honour ctx.
type ResolveFunc func(ctx context.Context, code string) domain.Valuation

// Coordinator fans a batch of codes out to a bounded pool of workers and
// returns whatever finished before the soft deadline. Codes still running
// at the deadline are reported unavailable; their workers are cancelled and
// their late results discarded.
type Coordinator struct {
	resolve  ResolveFunc
	workers  int
	deadline time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// CoordinatorConfig holds coordinator configuration
type CoordinatorConfig struct {
	Workers  int           // capped at MaxWorkers
	Deadline time.Duration // soft batch deadline
	Metrics  *metrics.Metrics
}

type job struct {
	code string
}

type result struct {
	code      string
	valuation domain.Valuation
}

// NewCoordinator creates a coordinator around a resolve function.
func NewCoordinator(resolve ResolveFunc, cfg CoordinatorConfig, log zerolog.Logger) *Coordinator {
	if cfg.Workers <= 0 || cfg.Workers > MaxWorkers {
		cfg.Workers = MaxWorkers
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 5 * time.Second
	}
	return &Coordinator{
		resolve:  resolve,
		workers:  cfg.Workers,
		deadline: cfg.Deadline,
		metrics:  cfg.Metrics,
		log:      log.With().Str("component", "batch_coordinator").Logger(),
	}
}

// FetchMany resolves every distinct code and returns one valuation per code.
// It returns no later than the soft deadline (or ctx cancellation).
func (c *Coordinator) FetchMany(ctx context.Context, codes []string) map[string]domain.Valuation {
	codes = dedupe(codes)
	out := make(map[string]domain.Valuation, len(codes))
	if len(codes) == 0 {
		return out
	}

	batchID := uuid.NewString()
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	// Both channels hold the whole batch so abandoned workers never block.
	jobs := make(chan job, len(codes))
	results := make(chan result, len(codes))

	workers := c.workers
	if workers > len(codes) {
		workers = len(codes)
	}
	for i := 0; i < workers; i++ {
		go c.worker(ctx, jobs, results)
	}
	for _, code := range codes {
		jobs <- job{code: code}
	}
	close(jobs)

collect:
	for len(out) < len(codes) {
		select {
		case r := <-results:
			out[r.code] = r.valuation
		case <-ctx.Done():
			break collect
		}
	}

	abandoned := 0
	for _, code := range codes {
		if _, ok := out[code]; !ok {
			out[code] = domain.Unavailable(code, "batch deadline exceeded")
			abandoned++
		}
	}

	elapsed := time.Since(start)
	c.metrics.ObserveBatch(len(codes), abandoned, elapsed)
	evt := c.log.Debug()
	if abandoned > 0 {
		evt = c.log.Warn()
	}
	evt.Str("batch_id", batchID).
		Int("size", len(codes)).
		Int("abandoned", abandoned).
		Dur("elapsed", elapsed).
		Msg("Batch resolved")

	return out
}

func (c *Coordinator) worker(ctx context.Context, jobs <-chan job, results chan<- result) {
	for j := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- result{code: j.code, valuation: c.resolve(ctx, j.code)}
	}
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
