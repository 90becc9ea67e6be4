package intraday

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundpulse/internal/domain"
)

func at(s string) time.Time {
	t, err := time.ParseInLocation(domain.TimestampLayout, s, domain.MarketLocation())
	if err != nil {
		panic(err)
	}
	return t
}

// minutes returns one point per minute in [from, to].
func minutes(from, to string) []time.Time {
	var out []time.Time
	for t := at(from); !t.After(at(to)); t = t.Add(time.Minute) {
		out = append(out, t)
	}
	return out
}

func TestMerge_BackfillsBeforeFirstLocalTick(t *testing.T) {
	var local []domain.Tick
	for _, ts := range minutes("2024-05-20 09:35:00", "2024-05-20 10:00:00") {
		local = append(local, domain.Tick{InstrumentID: "005827", Timestamp: ts, PctChange: 1})
	}
	var remote []domain.TrendPoint
	for _, ts := range minutes("2024-05-20 09:15:00", "2024-05-20 09:45:00") {
		remote = append(remote, domain.TrendPoint{Time: ts, PctChange: -1})
	}

	series := Merge("005827", local, remote, at("2024-05-20 10:00:30"))

	assert.Equal(t, SourceMerged, series.Source)
	assert.False(t, series.IsHistory)
	require.Len(t, series.Points, 20+26)
	for i, p := range series.Points {
		if p.Time.Before(at("2024-05-20 09:35:00")) {
			assert.Equal(t, -1.0, p.PctChange, "remote point at %s", p.Time)
		} else {
			assert.Equal(t, 1.0, p.PctChange, "local point at %s", p.Time)
		}
		if i > 0 {
			assert.True(t, p.Time.After(series.Points[i-1].Time), "strictly ascending at %d", i)
		}
	}
	assert.Equal(t, at("2024-05-20 09:15:00"), series.Points[0].Time)
	assert.Equal(t, at("2024-05-20 10:00:00"), series.Points[len(series.Points)-1].Time)
}

func TestMerge_LocalOnly(t *testing.T) {
	local := []domain.Tick{
		{Timestamp: at("2024-05-20 09:31:00"), PctChange: 0.2},
		{Timestamp: at("2024-05-20 09:30:00"), PctChange: 0.1},
	}
	remote := []domain.TrendPoint{{Time: at("2024-05-20 09:40:00")}}

	series := Merge("005827", local, remote, at("2024-05-20 09:45:00"))

	assert.Equal(t, SourceLocal, series.Source)
	require.Len(t, series.Points, 2)
	assert.Equal(t, 0.1, series.Points[0].PctChange)
}

func TestMerge_NoLocalTicks(t *testing.T) {
	remote := []domain.TrendPoint{
		{Time: at("2024-05-17 14:59:00"), PctChange: 0.9},
		{Time: at("2024-05-17 09:30:00"), PctChange: 0.1},
	}

	history := Merge("005827", nil, remote, at("2024-05-20 08:00:00"))
	assert.Equal(t, SourceRemote, history.Source)
	assert.True(t, history.IsHistory, "previous session is history")
	assert.Equal(t, 0.1, history.Points[0].PctChange)

	today := Merge("005827", nil, remote, at("2024-05-17 15:30:00"))
	assert.False(t, today.IsHistory)

	empty := Merge("005827", nil, nil, at("2024-05-20 08:00:00"))
	assert.Equal(t, SourceNone, empty.Source)
	assert.NotNil(t, empty.Points)
	assert.Empty(t, empty.Points)
}

type stubTicks struct {
	ticks []domain.Tick
	err   error
}

func (s stubTicks) ReadToday(ctx context.Context, id string) ([]domain.Tick, error) {
	return s.ticks, s.err
}

type stubTrend struct {
	points []domain.TrendPoint
	err    error
	calls  int
}

func (s *stubTrend) Trend(ctx context.Context, code string) ([]domain.TrendPoint, error) {
	s.calls++
	return s.points, s.err
}

func TestService_RemoteFailureDegradesToLocal(t *testing.T) {
	local := []domain.Tick{{Timestamp: at("2024-05-20 09:30:00"), PctChange: 0.1}}
	remote := &stubTrend{err: errors.New("timeout")}
	svc := NewService(stubTicks{ticks: local}, remote, time.Minute, zerolog.Nop())

	series, err := svc.Series(context.Background(), "005827")

	require.NoError(t, err)
	assert.Equal(t, SourceLocal, series.Source)
	assert.Len(t, series.Points, 1)
}

func TestService_CachesRemoteTrend(t *testing.T) {
	remote := &stubTrend{points: []domain.TrendPoint{{Time: at("2024-05-20 09:30:00")}}}
	svc := NewService(stubTicks{}, remote, time.Minute, zerolog.Nop())
	svc.now = func() time.Time { return at("2024-05-20 09:31:00") }

	_, err := svc.Series(context.Background(), "005827")
	require.NoError(t, err)
	series, err := svc.Series(context.Background(), "005827")
	require.NoError(t, err)

	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, SourceRemote, series.Source)
}

func TestService_LocalReadError(t *testing.T) {
	svc := NewService(stubTicks{err: errors.New("disk")}, nil, 0, zerolog.Nop())

	_, err := svc.Series(context.Background(), "005827")
	assert.Error(t, err)
}
