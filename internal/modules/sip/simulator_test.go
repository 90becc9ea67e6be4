package sip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundpulse/internal/domain"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(domain.DateLayout, s, domain.MarketLocation())
	if err != nil {
		panic(err)
	}
	return t
}

// tradingDays returns constant-NAV points on weekdays in [from, to], minus skip.
func tradingDays(from, to string, nav float64, skip ...string) domain.HistorySeries {
	skipped := make(map[string]bool)
	for _, s := range skip {
		skipped[s] = true
	}
	var points []domain.NAVPoint
	for d := day(from); !d.After(day(to)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday || skipped[d.Format(domain.DateLayout)] {
			continue
		}
		points = append(points, domain.NAVPoint{Date: d, NAV: nav})
	}
	return domain.NewHistorySeries("005827", points)
}

func TestSimulate_MonthlyConstantNAV(t *testing.T) {
	var points []domain.NAVPoint
	for d := day("2024-01-01"); d.Before(day("2024-03-01")); d = d.AddDate(0, 0, 1) {
		points = append(points, domain.NAVPoint{Date: d, NAV: 2.0})
	}

	res, err := Simulate(domain.NewHistorySeries("005827", points), Params{Amount: 1000, Frequency: Monthly, ExecutionDay: 1, DurationYears: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Purchases)
	assert.Equal(t, 2000.0, res.InvestedTotal)
	assert.Equal(t, 2000.0, res.FinalValue)
	assert.Equal(t, 0.0, res.YieldRate)
	require.Len(t, res.Trajectory, 2)
	assert.Equal(t, "2024-01-01", res.Trajectory[0].Date)
	assert.Equal(t, 500.0, res.Trajectory[0].Units)
	assert.Equal(t, "2024-02-01", res.Trajectory[1].Date)
	assert.Equal(t, 1000.0, res.Trajectory[1].Units)
	assert.InDelta(t, 2200.0, res.FinalOptimistic, 1e-9)
	assert.InDelta(t, 1800.0, res.FinalPessimistic, 1e-9)
}

func TestSimulate_NonTradingExecutionDayRollsForward(t *testing.T) {
	// 2024-06-01 is a Saturday; the purchase moves to Monday 2024-06-03.
	series := tradingDays("2024-05-01", "2024-06-30", 1.0)

	res, err := Simulate(series, Params{Amount: 100, Frequency: Monthly, ExecutionDay: 1, DurationYears: 1})
	require.NoError(t, err)

	require.Len(t, res.Trajectory, 2)
	assert.Equal(t, "2024-05-01", res.Trajectory[0].Date)
	assert.Equal(t, "2024-06-03", res.Trajectory[1].Date)
}

func TestSimulate_MonthlySkipsPeriodWithoutEligibleDay(t *testing.T) {
	// Execution day 30: February has no such day and March 30-31 fall on a weekend.
	series := tradingDays("2024-01-01", "2024-04-30", 1.0)

	res, err := Simulate(series, Params{Amount: 100, Frequency: Monthly, ExecutionDay: 30, DurationYears: 1})
	require.NoError(t, err)

	dates := []string{}
	for _, p := range res.Trajectory {
		dates = append(dates, p.Date)
	}
	assert.Equal(t, []string{"2024-01-30", "2024-04-30"}, dates)
}

func TestSimulate_Weekly(t *testing.T) {
	// Week of 2024-05-13: Wednesday 15th is a holiday, Thursday absorbs it.
	series := tradingDays("2024-05-06", "2024-05-19", 2.0, "2024-05-15")

	res, err := Simulate(series, Params{Amount: 200, Frequency: Weekly, ExecutionDay: 3, DurationYears: 1})
	require.NoError(t, err)

	require.Len(t, res.Trajectory, 2)
	assert.Equal(t, "2024-05-08", res.Trajectory[0].Date)
	assert.Equal(t, "2024-05-16", res.Trajectory[1].Date)
	assert.Equal(t, 200.0, res.Trajectory[1].Units)
}

func TestSimulate_GainsAndWindow(t *testing.T) {
	points := []domain.NAVPoint{
		{Date: day("2020-01-02"), NAV: 0.5},
		{Date: day("2023-06-20"), NAV: 1.0},
		{Date: day("2023-08-01"), NAV: 2.0},
		{Date: day("2024-06-28"), NAV: 4.0},
	}

	res, err := Simulate(domain.NewHistorySeries("005827", points), Params{Amount: 100, Frequency: Monthly, ExecutionDay: 1, DurationYears: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Purchases, "points before 2023-06-28 are outside the one-year window")
	assert.Equal(t, 200.0, res.InvestedTotal)
	assert.InDelta(t, 300.0, res.FinalValue, 1e-9)
	assert.InDelta(t, 0.5, res.YieldRate, 1e-9)
}

func TestSimulate_NoPurchases(t *testing.T) {
	_, err := Simulate(domain.HistorySeries{}, Params{Amount: 100, Frequency: Monthly, ExecutionDay: 1, DurationYears: 1})
	assert.ErrorIs(t, err, ErrNoPurchases)

	series := tradingDays("2024-02-01", "2024-02-28", 1.0)
	res, err := Simulate(series, Params{Amount: 100, Frequency: Monthly, ExecutionDay: 31, DurationYears: 1})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoPurchases)
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid monthly", Params{Amount: 1, Frequency: Monthly, ExecutionDay: 31, DurationYears: 1}, false},
		{"valid weekly", Params{Amount: 1, Frequency: Weekly, ExecutionDay: 7, DurationYears: 3}, false},
		{"zero amount", Params{Amount: 0, Frequency: Monthly, ExecutionDay: 1, DurationYears: 1}, true},
		{"weekly day 8", Params{Amount: 1, Frequency: Weekly, ExecutionDay: 8, DurationYears: 1}, true},
		{"monthly day 0", Params{Amount: 1, Frequency: Monthly, ExecutionDay: 0, DurationYears: 1}, true},
		{"no duration", Params{Amount: 1, Frequency: Monthly, ExecutionDay: 1}, true},
		{"daily", Params{Amount: 1, Frequency: "daily", ExecutionDay: 1, DurationYears: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type stubHistory struct {
	s   domain.HistorySeries
	err error
}

func (s stubHistory) Series(ctx context.Context, code string, years int) (domain.HistorySeries, error) {
	return s.s, s.err
}

func TestService_Simulate(t *testing.T) {
	svc := NewService(stubHistory{s: tradingDays("2024-01-01", "2024-03-31", 1.0)})
	res, err := svc.Simulate(context.Background(), "005827", Params{Amount: 100, Frequency: Monthly, ExecutionDay: 1, DurationYears: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Purchases)

	_, err = NewService(stubHistory{err: errors.New("down")}).Simulate(context.Background(), "005827", Params{Amount: 100, Frequency: Monthly, ExecutionDay: 1, DurationYears: 1})
	assert.Error(t, err)

	_, err = svc.Simulate(context.Background(), "005827", Params{})
	assert.Error(t, err)
}
