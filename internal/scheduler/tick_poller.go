package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
)

// CodeSource lists the instruments to poll.
type CodeSource interface {
	Codes() ([]string, error)
}

// Valuations fetches current valuations; live results are persisted as ticks
// by the implementation.
type Valuations interface {
	Current(ctx context.Context, codes []string) map[string]domain.Valuation
}

// TradingClock answers whether the market session is open.
type TradingClock interface {
	IsTradingTime(t time.Time) bool
}

// TickPollerJob refreshes valuations of held instruments and the dashboard
// indices during the trading session so the tick store fills in.
type TickPollerJob struct {
	codes      CodeSource
	indices    CodeSource
	valuations Valuations
	clock      TradingClock
	timeout    time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewTickPollerJob creates the poller. timeout bounds one poll.
func NewTickPollerJob(codes, indices CodeSource, valuations Valuations, clock TradingClock, timeout time.Duration, log zerolog.Logger) *TickPollerJob {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TickPollerJob{
		codes:      codes,
		indices:    indices,
		valuations: valuations,
		clock:      clock,
		timeout:    timeout,
		now:        time.Now,
		log:        log.With().Str("job", "tick_poller").Logger(),
	}
}

// Run polls once. Outside the session it does nothing.
func (j *TickPollerJob) Run() error {
	if !j.clock.IsTradingTime(j.now()) {
		return nil
	}

	held, err := j.codes.Codes()
	if err != nil {
		return fmt.Errorf("failed to list codes: %w", err)
	}
	indices, err := j.indices.Codes()
	if err != nil {
		return fmt.Errorf("failed to list indices: %w", err)
	}
	codes := dedupe(append(append([]string{}, held...), indices...))
	if len(codes) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	vals := j.valuations.Current(ctx, codes)
	live := 0
	for _, v := range vals {
		if v.Status == domain.StatusLive {
			live++
		}
	}
	j.log.Debug().Int("codes", len(vals)).Int("live", live).Msg("Polled valuations")
	return nil
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := codes[:0]
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Name returns the job name
func (j *TickPollerJob) Name() string {
	return "tick_poller"
}
