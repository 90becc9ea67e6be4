package valuation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/metrics"
)

type fakeAdapter struct {
	id    string
	kinds []domain.InstrumentKind
	fetch func(ctx context.Context, code string) (domain.Quote, error)
	calls atomic.Int32
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) Supports(kind domain.InstrumentKind) bool {
	for _, k := range f.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (f *fakeAdapter) Fetch(ctx context.Context, code string) (domain.Quote, error) {
	f.calls.Add(1)
	return f.fetch(ctx, code)
}

func okAdapter(id string, price float64) *fakeAdapter {
	return &fakeAdapter{
		id:    id,
		kinds: []domain.InstrumentKind{domain.KindFund, domain.KindExchangeTraded},
		fetch: func(ctx context.Context, code string) (domain.Quote, error) {
			return domain.Quote{Price: price, PctChange: 1.5, ObservedDate: "2024-05-20", ObservedTime: "14:30:00"}, nil
		},
	}
}

func failingAdapter(id string) *fakeAdapter {
	return &fakeAdapter{
		id:    id,
		kinds: []domain.InstrumentKind{domain.KindFund, domain.KindExchangeTraded},
		fetch: func(ctx context.Context, code string) (domain.Quote, error) {
			return domain.Quote{}, errors.New("connection refused")
		},
	}
}

type confirmedAdapter struct {
	*fakeAdapter
}

func (confirmedAdapter) Confirmed() bool { return true }

type staticLastKnown map[string]LastKnown

func (s staticLastKnown) LastKnown(ctx context.Context, code string) (LastKnown, bool) {
	lk, ok := s[code]
	return lk, ok
}

func newResolver(t *testing.T, lk LastKnownProvider, timeout time.Duration, adapters ...Adapter) *Resolver {
	t.Helper()
	ids := make([]string, len(adapters))
	for i, a := range adapters {
		ids[i] = a.ID()
	}
	table, err := NewStrategyTable(map[domain.InstrumentKind][]string{domain.KindFund: ids}, adapters...)
	require.NoError(t, err)
	return NewResolver(ResolverConfig{Table: table, LastKnown: lk, Timeout: timeout, Metrics: metrics.New()}, zerolog.Nop())
}

func TestStrategyTable_Validation(t *testing.T) {
	sina := &fakeAdapter{id: "sina", kinds: []domain.InstrumentKind{domain.KindExchangeTraded, domain.KindIndex}}

	_, err := NewStrategyTable(map[domain.InstrumentKind][]string{domain.KindFund: {"sina"}}, sina)
	assert.Error(t, err, "adapter listed under unsupported kind")

	_, err = NewStrategyTable(map[domain.InstrumentKind][]string{domain.KindIndex: {"missing"}}, sina)
	assert.Error(t, err, "unknown adapter id")

	_, err = NewStrategyTable(map[domain.InstrumentKind][]string{domain.KindIndex: {"sina"}}, sina, sina)
	assert.Error(t, err, "duplicate adapter")

	table, err := NewStrategyTable(map[domain.InstrumentKind][]string{domain.KindIndex: {"sina"}}, sina)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"index": {"sina"}}, table.Describe())
	assert.Nil(t, table.Chain(domain.KindFund))
}

func TestResolve_FallsThroughToSecondSource(t *testing.T) {
	a := failingAdapter("a")
	b := okAdapter("b", 1.2345)
	r := newResolver(t, nil, time.Second, a, b)

	v := r.Resolve(context.Background(), "005827")

	assert.Equal(t, domain.StatusLive, v.Status)
	assert.False(t, v.IsStale)
	require.NotNil(t, v.Quote)
	assert.Equal(t, "b", v.Quote.SourceID)
	assert.Equal(t, "005827", v.Quote.InstrumentID)
	assert.Equal(t, 1.2345, v.Quote.Price)
	assert.EqualValues(t, 1, a.calls.Load())
}

func TestResolve_FirstSuccessWins(t *testing.T) {
	a := okAdapter("a", 1.0)
	b := okAdapter("b", 2.0)
	r := newResolver(t, nil, time.Second, a, b)

	v := r.Resolve(context.Background(), "005827")

	assert.Equal(t, "a", v.Quote.SourceID)
	assert.EqualValues(t, 0, b.calls.Load())
}

func TestResolve_AllFailWithLastKnownIsStale(t *testing.T) {
	lk := staticLastKnown{"005827": {Price: 1.05, Date: "2024-05-17"}}
	r := newResolver(t, lk, time.Second, failingAdapter("a"), failingAdapter("b"))

	v := r.Resolve(context.Background(), "005827")

	assert.Equal(t, domain.StatusStale, v.Status)
	assert.True(t, v.IsStale)
	require.NotNil(t, v.Quote)
	assert.Equal(t, 1.05, v.Quote.Price)
	assert.Equal(t, 0.0, v.Quote.PctChange)
	assert.Equal(t, LastKnownSourceID, v.Quote.SourceID)
	assert.Contains(t, v.Reason, ErrAllSourcesUnavailable.Error())
}

func TestResolve_ConfirmedCloseIsStale(t *testing.T) {
	nav := confirmedAdapter{okAdapter("history_nav", 2.10)}
	r := newResolver(t, nil, time.Second, failingAdapter("tiantian"), failingAdapter("eastmoney_bulk"), nav)

	v := r.Resolve(context.Background(), "005827")

	assert.Equal(t, domain.StatusStale, v.Status)
	assert.True(t, v.IsStale)
	require.NotNil(t, v.Quote)
	assert.Equal(t, "history_nav", v.Quote.SourceID)
	assert.Equal(t, 2.10, v.Quote.Price)
	assert.Contains(t, v.Reason, ErrLiveSourcesUnavailable.Error())
	assert.Contains(t, v.Reason, "connection refused")
}

func TestService_ConfirmedCloseNotCachedOrPersisted(t *testing.T) {
	nav := confirmedAdapter{okAdapter("history_nav", 2.10)}
	ticks := &recordingTicks{}
	svc := NewService(ServiceConfig{
		Resolver: newResolver(t, nil, time.Second, failingAdapter("tiantian"), nav),
		QuoteTTL: time.Minute,
		Ticks:    ticks,
	}, zerolog.Nop())

	v := svc.One(context.Background(), "005827")
	svc.One(context.Background(), "005827")

	assert.Equal(t, domain.StatusStale, v.Status)
	assert.EqualValues(t, 2, nav.calls.Load(), "stale result is not cached")
	assert.Empty(t, ticks.ticks)
}

func TestResolve_AllFailWithoutLastKnownIsUnavailable(t *testing.T) {
	r := newResolver(t, staticLastKnown{}, time.Second, failingAdapter("a"))

	v := r.Resolve(context.Background(), "005827")

	assert.Equal(t, domain.StatusUnavailable, v.Status)
	assert.True(t, v.IsStale)
	assert.Nil(t, v.Quote)
}

func TestResolve_SlowAdapterTimesOut(t *testing.T) {
	slow := &fakeAdapter{
		id:    "slow",
		kinds: []domain.InstrumentKind{domain.KindFund},
		fetch: func(ctx context.Context, code string) (domain.Quote, error) {
			<-ctx.Done()
			return domain.Quote{}, ctx.Err()
		},
	}
	r := newResolver(t, nil, 50*time.Millisecond, slow, okAdapter("fast", 1.0))

	start := time.Now()
	v := r.Resolve(context.Background(), "005827")

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "fast", v.Quote.SourceID)
}

func TestResolve_RejectsInvalidQuote(t *testing.T) {
	bad := &fakeAdapter{
		id:    "bad",
		kinds: []domain.InstrumentKind{domain.KindFund},
		fetch: func(ctx context.Context, code string) (domain.Quote, error) {
			return domain.Quote{Price: -1}, nil
		},
	}
	r := newResolver(t, nil, time.Second, bad, okAdapter("good", 1.0))

	v := r.Resolve(context.Background(), "005827")

	assert.Equal(t, "good", v.Quote.SourceID)
}

func TestResolve_UnknownCode(t *testing.T) {
	r := newResolver(t, nil, time.Second, okAdapter("a", 1.0))

	v := r.Resolve(context.Background(), "not-a-code")

	assert.Equal(t, domain.StatusUnavailable, v.Status)
}

func TestSourceError_WrapsErrSourceUnavailable(t *testing.T) {
	err := &SourceError{Source: "sina", Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "sina: context deadline exceeded", err.Error())
}

func TestCoordinator_CapsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	resolve := func(ctx context.Context, code string) domain.Valuation {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return domain.Live(domain.Quote{InstrumentID: code, Price: 1, SourceID: "x"})
	}
	c := NewCoordinator(resolve, CoordinatorConfig{Workers: 100, Deadline: 5 * time.Second}, zerolog.Nop())

	codes := make([]string, 60)
	for i := range codes {
		codes[i] = string(rune('A'+i/26)) + string(rune('a'+i%26))
	}
	out := c.FetchMany(context.Background(), codes)

	assert.Len(t, out, 60)
	assert.LessOrEqual(t, peak.Load(), int32(MaxWorkers))
	for _, v := range out {
		assert.Equal(t, domain.StatusLive, v.Status)
	}
}

func TestCoordinator_SoftDeadline(t *testing.T) {
	resolve := func(ctx context.Context, code string) domain.Valuation {
		if code == "slow" {
			<-ctx.Done()
		}
		return domain.Live(domain.Quote{InstrumentID: code, Price: 1, SourceID: "x"})
	}
	c := NewCoordinator(resolve, CoordinatorConfig{Workers: 4, Deadline: 100 * time.Millisecond}, zerolog.Nop())

	start := time.Now()
	out := c.FetchMany(context.Background(), []string{"fast", "slow"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, domain.StatusLive, out["fast"].Status)
	assert.Equal(t, domain.StatusUnavailable, out["slow"].Status)
	assert.Equal(t, "batch deadline exceeded", out["slow"].Reason)
}

func TestCoordinator_DedupesCodes(t *testing.T) {
	var calls atomic.Int32
	resolve := func(ctx context.Context, code string) domain.Valuation {
		calls.Add(1)
		return domain.Unavailable(code, "none")
	}
	c := NewCoordinator(resolve, CoordinatorConfig{}, zerolog.Nop())

	out := c.FetchMany(context.Background(), []string{"a", "a", "", "b"})

	assert.Len(t, out, 2)
	assert.EqualValues(t, 2, calls.Load())
	assert.Empty(t, c.FetchMany(context.Background(), nil))
}

type recordingTicks struct {
	mu    sync.Mutex
	ticks []domain.Tick
}

func (r *recordingTicks) AppendBatch(ctx context.Context, ticks []domain.Tick) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, ticks...)
	return int64(len(ticks)), nil
}

func TestService_CachesLiveAndPersistsTicks(t *testing.T) {
	a := okAdapter("a", 1.5)
	ticks := &recordingTicks{}
	svc := NewService(ServiceConfig{
		Resolver: newResolver(t, nil, time.Second, a),
		QuoteTTL: time.Minute,
		Ticks:    ticks,
	}, zerolog.Nop())

	out := svc.Current(context.Background(), []string{"005827"})
	require.Equal(t, domain.StatusLive, out["005827"].Status)
	svc.Current(context.Background(), []string{"005827"})

	assert.EqualValues(t, 1, a.calls.Load(), "second call served from cache")
	require.NotEmpty(t, ticks.ticks)
	assert.Equal(t, "005827", ticks.ticks[0].InstrumentID)
	assert.Equal(t, 1.5, ticks.ticks[0].Price)

	svc.Invalidate("005827")
	svc.One(context.Background(), "005827")
	assert.EqualValues(t, 2, a.calls.Load())
}

func TestService_DoesNotCacheFailures(t *testing.T) {
	a := failingAdapter("a")
	svc := NewService(ServiceConfig{Resolver: newResolver(t, nil, time.Second, a)}, zerolog.Nop())

	v1 := svc.One(context.Background(), "005827")
	v2 := svc.One(context.Background(), "005827")

	assert.Equal(t, domain.StatusUnavailable, v1.Status)
	assert.Equal(t, domain.StatusUnavailable, v2.Status)
	assert.EqualValues(t, 2, a.calls.Load())
}
