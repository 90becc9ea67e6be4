package scheduler

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

	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/database"
	"github.com/aristath/fundpulse/internal/domain"
	testdb "github.com/aristath/fundpulse/internal/testing"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestScheduler_AddJobAndRun(t *testing.T) {
	s := New(zerolog.Nop())

	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))

	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()

	failing := &countingJob{err: errors.New("boom")}
	assert.Error(t, s.RunNow(failing))
	assert.Equal(t, int32(1), failing.runs.Load())
}

type staticCodes []string

func (c staticCodes) Codes() ([]string, error) { return c, nil }

type brokenCodes struct{}

func (brokenCodes) Codes() ([]string, error) { return nil, errors.New("db locked") }

type recordingValuations struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingValuations) Current(_ context.Context, codes []string) map[string]domain.Valuation {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, codes)
	out := make(map[string]domain.Valuation, len(codes))
	for _, c := range codes {
		out[c] = domain.Live(domain.Quote{InstrumentID: c, Price: 1, SourceID: "sina"})
	}
	return out
}

type fixedClock bool

func (c fixedClock) IsTradingTime(time.Time) bool { return bool(c) }

func TestTickPollerJob(t *testing.T) {
	tests := []struct {
		name    string
		codes   CodeSource
		indices CodeSource
		open    bool
		wantErr bool
		want    [][]string
	}{
		{name: "closed market skips", codes: staticCodes{"005827"}, indices: staticCodes{"s_sh000300"}, open: false},
		{name: "polls holdings and indices", codes: staticCodes{"005827"}, indices: staticCodes{"s_sh000300"}, open: true, want: [][]string{{"005827", "s_sh000300"}}},
		{name: "held index polled once", codes: staticCodes{"sh000001"}, indices: staticCodes{"sh000001", "int_dji"}, open: true, want: [][]string{{"sh000001", "int_dji"}}},
		{name: "nothing to poll", codes: staticCodes{}, indices: staticCodes{}, open: true},
		{name: "code source failure", codes: brokenCodes{}, indices: staticCodes{}, open: true, wantErr: true},
		{name: "index source failure", codes: staticCodes{"005827"}, indices: brokenCodes{}, open: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := &recordingValuations{}
			job := NewTickPollerJob(tt.codes, tt.indices, vals, fixedClock(tt.open), time.Second, zerolog.Nop())
			assert.Equal(t, "tick_poller", job.Name())

			err := job.Run()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, vals.calls)
		})
	}
}

func TestCacheSweepJob(t *testing.T) {
	c := cache.New[int]("test", time.Nanosecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(time.Millisecond)

	job := NewCacheSweepJob([]cache.Sweeper{c}, zerolog.Nop())
	assert.Equal(t, "cache_sweep", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 0, c.Len())
}

type failingStore struct{ calls int }

func (f *failingStore) Name() string { return "broken" }

func (f *failingStore) WALCheckpoint(string) error {
	f.calls++
	return errors.New("disk I/O error")
}

func TestWALCheckpointJob(t *testing.T) {
	ticksDB := testdb.NewTestDB(t, database.NameTicks)
	portfolioDB := testdb.NewTestDB(t, database.NamePortfolio)

	job := NewWALCheckpointJob([]Checkpointer{ticksDB, portfolioDB}, zerolog.Nop())
	assert.Equal(t, "wal_checkpoint", job.Name())
	require.NoError(t, job.Run())

	broken := &failingStore{}
	job = NewWALCheckpointJob([]Checkpointer{broken, ticksDB}, zerolog.Nop())
	assert.ErrorContains(t, job.Run(), "disk I/O error")
	assert.Equal(t, 1, broken.calls)
}
