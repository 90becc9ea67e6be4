package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundpulse/internal/clientdata"
	"github.com/aristath/fundpulse/internal/clients/eastmoney"
	"github.com/aristath/fundpulse/internal/clients/sina"
	"github.com/aristath/fundpulse/internal/database"
	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/modules/valuation"
	testingutil "github.com/aristath/fundpulse/internal/testing"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(domain.DateLayout, s, domain.MarketLocation())
	if err != nil {
		panic(err)
	}
	return t
}

type fakeFetcher struct {
	series      domain.HistorySeries
	funds       []eastmoney.FundInfo
	err         error
	historyHits int
	dirHits     int
}

func (f *fakeFetcher) NAVHistory(ctx context.Context, code string, start, end time.Time) (domain.HistorySeries, error) {
	f.historyHits++
	if f.err != nil {
		return domain.HistorySeries{}, f.err
	}
	s := f.series
	s.InstrumentID = code
	return s, nil
}

func (f *fakeFetcher) FundDirectory(ctx context.Context) ([]eastmoney.FundInfo, error) {
	f.dirHits++
	return f.funds, f.err
}

func sampleSeries() domain.HistorySeries {
	return domain.NewHistorySeries("005827", []domain.NAVPoint{
		{Date: day("2021-05-14"), NAV: 1.00, PctChange: 0.1},
		{Date: day("2024-05-16"), NAV: 2.00, PctChange: 0.5},
		{Date: day("2024-05-17"), NAV: 2.10, PctChange: 5.0},
	})
}

func newService(t *testing.T, f *fakeFetcher) (*Service, *clientdata.Repository) {
	t.Helper()
	store := clientdata.NewRepository(testingutil.NewMemoryDB(t, database.NameClientData))
	svc := NewService(f, store, Config{HistoryTTL: time.Hour}, zerolog.Nop())
	svc.now = func() time.Time { return day("2024-05-20").Add(10 * time.Hour) }
	return svc, store
}

func TestSeries_CachedAndPersisted(t *testing.T) {
	f := &fakeFetcher{series: sampleSeries()}
	svc, store := newService(t, f)

	s1, err := svc.Series(context.Background(), "005827", 0)
	require.NoError(t, err)
	s2, err := svc.Series(context.Background(), "005827", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, f.historyHits)
	assert.Equal(t, 3, s1.Len())
	assert.Equal(t, s1.Len(), s2.Len())

	var persisted domain.HistorySeries
	ok, err := store.GetIfFresh(clientdata.TableNAVHistory, "005827", &persisted)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, persisted.Len())
}

func TestSeries_YearsWindow(t *testing.T) {
	svc, _ := newService(t, &fakeFetcher{series: sampleSeries()})

	s, err := svc.Series(context.Background(), "005827", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestSeries_StaleFallback(t *testing.T) {
	f := &fakeFetcher{err: errors.New("upstream down")}
	svc, store := newService(t, f)
	require.NoError(t, store.Store(clientdata.TableNAVHistory, "005827", sampleSeries(), -time.Hour))

	s, err := svc.Series(context.Background(), "005827", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, f.historyHits)
}

func TestSeries_NoDataIsError(t *testing.T) {
	svc, _ := newService(t, &fakeFetcher{err: errors.New("upstream down")})

	_, err := svc.Series(context.Background(), "005827", 0)
	assert.Error(t, err)
}

func TestNAVAdapter(t *testing.T) {
	svc, _ := newService(t, &fakeFetcher{series: sampleSeries()})
	a := NewNAVAdapter(svc)

	assert.True(t, a.Supports(domain.KindFund))
	assert.False(t, a.Supports(domain.KindExchangeTraded))

	q, err := a.Fetch(context.Background(), "005827")
	require.NoError(t, err)
	assert.Equal(t, 2.10, q.Price)
	assert.Equal(t, 2.00, q.ReferencePrice)
	assert.Equal(t, 5.0, q.PctChange)
	assert.Equal(t, "2024-05-17", q.ObservedDate)
	assert.Equal(t, NAVSourceID, q.SourceID)
	require.NoError(t, q.Validate())
}

type downFeed string

func (d downFeed) ID() string                               { return string(d) }
func (d downFeed) Supports(kind domain.InstrumentKind) bool { return kind == domain.KindFund }
func (d downFeed) Fetch(ctx context.Context, code string) (domain.Quote, error) {
	return domain.Quote{}, errors.New("upstream down")
}

func TestNAVAdapter_ResolvesStaleWhenEstimatesDown(t *testing.T) {
	svc, _ := newService(t, &fakeFetcher{series: sampleSeries()})
	order := map[domain.InstrumentKind][]string{
		domain.KindFund: valuation.DefaultOrder()[domain.KindFund],
	}
	table, err := valuation.NewStrategyTable(order,
		downFeed(valuation.SourceTiantian),
		downFeed(valuation.SourceEastmoneyBulk),
		NewNAVAdapter(svc),
	)
	require.NoError(t, err)
	r := valuation.NewResolver(valuation.ResolverConfig{Table: table, Timeout: time.Second}, zerolog.Nop())

	v := r.Resolve(context.Background(), "005827")

	assert.Equal(t, domain.StatusStale, v.Status)
	assert.True(t, v.IsStale)
	require.NotNil(t, v.Quote)
	assert.Equal(t, NAVSourceID, v.Quote.SourceID)
	assert.Equal(t, "2024-05-17", v.Quote.ObservedDate)
	assert.Equal(t, 2.10, v.Quote.Price)
}

type fakeTicks struct {
	tick domain.Tick
	ok   bool
}

func (f fakeTicks) Latest(ctx context.Context, id string) (domain.Tick, bool, error) {
	return f.tick, f.ok, nil
}

func TestLastKnown(t *testing.T) {
	svc, store := newService(t, &fakeFetcher{})
	require.NoError(t, store.Store(clientdata.TableNAVHistory, "005827", sampleSeries(), -time.Hour))
	ticks := fakeTicks{tick: domain.Tick{Price: 3.3, Timestamp: day("2024-05-18").Add(14 * time.Hour)}, ok: true}
	lk := NewLastKnown(svc, ticks, zerolog.Nop())

	got, ok := lk.LastKnown(context.Background(), "005827")
	require.True(t, ok)
	assert.Equal(t, 2.10, got.Price, "confirmed NAV wins over ticks")
	assert.Equal(t, "2024-05-17", got.Date)

	got, ok = lk.LastKnown(context.Background(), "sh510300")
	require.True(t, ok)
	assert.Equal(t, 3.3, got.Price)
	assert.Equal(t, "2024-05-18", got.Date)

	_, ok = NewLastKnown(svc, nil, zerolog.Nop()).LastKnown(context.Background(), "sh510300")
	assert.False(t, ok)
}

func TestSearchFunds(t *testing.T) {
	var funds []eastmoney.FundInfo
	for i := 0; i < 30; i++ {
		funds = append(funds, eastmoney.FundInfo{Code: fmt.Sprintf("1000%02d", i), Name: fmt.Sprintf("Growth Fund %d", i), Abbr: "GF"})
	}
	funds = append(funds, eastmoney.FundInfo{Code: "005827", Name: "Blue Chip Select", Abbr: "YFDLCJX", Pinyin: "YIFANGDALANCHOU"})
	f := &fakeFetcher{funds: funds}
	svc, _ := newService(t, f)
	ctx := context.Background()

	exact, err := svc.SearchFunds(ctx, "005827")
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "Blue Chip Select", exact[0].Name)

	byName, err := svc.SearchFunds(ctx, "blue chip")
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	capped, err := svc.SearchFunds(ctx, "growth")
	require.NoError(t, err)
	assert.Len(t, capped, MaxSearchResults)

	empty, err := svc.SearchFunds(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.Equal(t, "Blue Chip Select", svc.Name(ctx, "005827"))
	assert.Empty(t, svc.Name(ctx, "999999"))

	assert.Equal(t, 1, f.dirHits, "directory cached")
}

type failingStocks struct{}

func (failingStocks) SearchStocks(ctx context.Context, keyword string) ([]sina.StockMatch, error) {
	return nil, errors.New("blocked")
}

type stocks []sina.StockMatch

func (s stocks) SearchStocks(ctx context.Context, keyword string) ([]sina.StockMatch, error) {
	return s, nil
}

func TestSearch_CombinesSources(t *testing.T) {
	svc, _ := newService(t, &fakeFetcher{funds: []eastmoney.FundInfo{{Code: "005827", Name: "Moutai Theme"}}})
	ctx := context.Background()

	res, err := svc.Search(ctx, "moutai", stocks{{Code: "sh600519", Name: "Moutai"}})
	require.NoError(t, err)
	assert.Len(t, res.Funds, 1)
	assert.Len(t, res.Stocks, 1)

	res, err = svc.Search(ctx, "moutai", failingStocks{})
	require.NoError(t, err)
	assert.Len(t, res.Funds, 1)
	assert.Empty(t, res.Stocks)
}

func TestSearchHistory(t *testing.T) {
	repo := NewSearchHistoryRepository(testingutil.NewMemoryDB(t, database.NamePortfolio))
	clock := time.Unix(1700000000, 0)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i := 0; i < 12; i++ {
		require.NoError(t, repo.Record(fmt.Sprintf("k%d", i)))
	}
	require.NoError(t, repo.Record("k5"))
	require.NoError(t, repo.Record(""))

	recent, err := repo.Recent()
	require.NoError(t, err)
	require.Len(t, recent, MaxSearchHistory)
	assert.Equal(t, "k5", recent[0])
	assert.Equal(t, "k11", recent[1])
	assert.NotContains(t, recent, "k0")

	require.NoError(t, repo.Clear())
	recent, err = repo.Recent()
	require.NoError(t, err)
	assert.Empty(t, recent)
}
