package watchlist

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundpulse/internal/database"
	"github.com/aristath/fundpulse/internal/domain"
	testdb "github.com/aristath/fundpulse/internal/testing"
)

func TestIndexRepository_DefaultsUntilPinned(t *testing.T) {
	repo := NewIndexRepository(testdb.NewMemoryDB(t, database.NamePortfolio), []string{"s_sh000300", "int_dji"}, zerolog.Nop())

	codes, err := repo.Codes()
	require.NoError(t, err)
	assert.Equal(t, []string{"s_sh000300", "int_dji"}, codes)

	_, err = repo.Add(Index{Symbol: "s_sz399006", Name: "ChiNext"})
	require.NoError(t, err)
	_, err = repo.Add(Index{Symbol: "int_nasdaq"})
	require.NoError(t, err)

	codes, err = repo.Codes()
	require.NoError(t, err)
	assert.Equal(t, []string{"s_sz399006", "int_nasdaq"}, codes, "pinned list replaces the defaults")

	require.NoError(t, repo.Remove("s_sz399006"))
	require.NoError(t, repo.Remove("int_nasdaq"))
	codes, err = repo.Codes()
	require.NoError(t, err)
	assert.Equal(t, []string{"s_sh000300", "int_dji"}, codes)
}

func TestIndexRepository_Add(t *testing.T) {
	repo := NewIndexRepository(testdb.NewMemoryDB(t, database.NamePortfolio), nil, zerolog.Nop())
	repo.now = func() time.Time { return time.Unix(1716170400, 0) }

	tests := []struct {
		name       string
		in         Index
		wantErr    bool
		wantMarket string
		wantPos    int
	}{
		{name: "index", in: Index{Symbol: "s_sh000300", Name: "CSI 300"}, wantMarket: "sh", wantPos: 0},
		{name: "overseas", in: Index{Symbol: " int_dji "}, wantMarket: "int", wantPos: 1},
		{name: "exchange symbol", in: Index{Symbol: "sz399001"}, wantMarket: "sz", wantPos: 2},
		{name: "explicit market kept", in: Index{Symbol: "int_sp500", Market: "us"}, wantMarket: "us", wantPos: 3},
		{name: "rename keeps position", in: Index{Symbol: "s_sh000300", Name: "HS300"}, wantMarket: "sh", wantPos: 0},
		{name: "fund rejected", in: Index{Symbol: "005827"}, wantErr: true},
		{name: "garbage rejected", in: Index{Symbol: "abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Add(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMarket, got.Market)
			assert.Equal(t, tt.wantPos, got.Position)
			assert.EqualValues(t, 1716170400, got.AddedAt)
		})
	}

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "HS300", list[0].Name)

	assert.ErrorIs(t, repo.Remove("s_sz399006"), ErrIndexNotFound)
	assert.True(t, IsNotFound(repo.Remove("s_sz399006")))
}

func TestFavoriteRepository(t *testing.T) {
	repo := NewFavoriteRepository(testdb.NewMemoryDB(t, database.NamePortfolio), zerolog.Nop())
	day := time.Date(2024, 5, 20, 9, 0, 0, 0, domain.MarketLocation())
	repo.now = func() time.Time { return day }

	a, err := repo.Add(Favorite{Title: "What is a SIP", URL: "https://example.com/sip", Category: "basics"})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, "2024-05-20", a.AddedDate)

	repo.now = func() time.Time { return day.AddDate(0, 0, 1) }
	b, err := repo.Add(Favorite{Title: "Drawdown explained", URL: "https://example.com/dd", Category: "risk"})
	require.NoError(t, err)

	again, err := repo.Add(Favorite{Title: "Systematic investing", URL: "https://example.com/sip", Category: "basics"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID, "same url updates in place")
	assert.Equal(t, "Systematic investing", again.Title)
	assert.Equal(t, "2024-05-20", again.AddedDate)

	all, err := repo.List("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	basics, err := repo.List("basics")
	require.NoError(t, err)
	require.Len(t, basics, 1)

	got, err := repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "risk", got.Category)

	require.NoError(t, repo.Delete(b.ID))
	_, err = repo.GetByID(b.ID)
	assert.ErrorIs(t, err, ErrFavoriteNotFound)
	assert.ErrorIs(t, repo.Delete(b.ID), ErrFavoriteNotFound)
}

func TestFavoriteRepository_Rejects(t *testing.T) {
	repo := NewFavoriteRepository(testdb.NewMemoryDB(t, database.NamePortfolio), zerolog.Nop())

	tests := []struct {
		name string
		in   Favorite
	}{
		{"missing title", Favorite{URL: "https://example.com"}},
		{"relative url", Favorite{Title: "x", URL: "/docs"}},
		{"other scheme", Favorite{Title: "x", URL: "ftp://example.com/file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Add(tt.in)
			assert.Error(t, err)
		})
	}
}
