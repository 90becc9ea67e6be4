package history

import (
	"context"
	"strings"

	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/clientdata"
	"github.com/aristath/fundpulse/internal/clients/eastmoney"
	"github.com/aristath/fundpulse/internal/clients/sina"
)

// MaxSearchResults caps each result list.
const MaxSearchResults = 20

const directoryKey = "all"

// StockSearcher finds exchange-listed instruments by keyword.
type StockSearcher interface {
	SearchStocks(ctx context.Context, keyword string) ([]sina.StockMatch, error)
}

// SearchResult groups fund directory hits and exchange hits.
type SearchResult struct {
	Funds  []eastmoney.FundInfo `json:"funds"`
	Stocks []sina.StockMatch    `json:"stocks"`
}

// Directory returns the full fund directory.
func (s *Service) Directory(ctx context.Context) ([]eastmoney.FundInfo, error) {
	return s.directory.GetOrLoad(ctx, cache.Key("directory", directoryKey), func(ctx context.Context) ([]eastmoney.FundInfo, error) {
		var funds []eastmoney.FundInfo
		if s.store != nil {
			if ok, err := s.store.GetIfFresh(clientdata.TableFundDirectory, directoryKey, &funds); err == nil && ok && len(funds) > 0 {
				return funds, nil
			}
		}

		funds, err := s.fetcher.FundDirectory(ctx)
		if err == nil && len(funds) > 0 {
			if s.store != nil {
				if err := s.store.Store(clientdata.TableFundDirectory, directoryKey, funds, clientdata.TTLFundDirectory); err != nil {
					s.log.Warn().Err(err).Msg("Failed to persist fund directory")
				}
			}
			return funds, nil
		}

		if s.store != nil {
			var stale []eastmoney.FundInfo
			if ok, serr := s.store.Get(clientdata.TableFundDirectory, directoryKey, &stale); serr == nil && ok && len(stale) > 0 {
				s.log.Warn().Err(err).Msg("Using stale fund directory")
				return stale, nil
			}
		}
		return nil, err
	})
}

// SearchFunds matches an exact six-digit code first, otherwise a
// case-insensitive substring of the name, abbreviation or pinyin.
func (s *Service) SearchFunds(ctx context.Context, keyword string) ([]eastmoney.FundInfo, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []eastmoney.FundInfo{}, nil
	}
	funds, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}
	return matchFunds(funds, keyword), nil
}

func matchFunds(funds []eastmoney.FundInfo, keyword string) []eastmoney.FundInfo {
	if len(keyword) == 6 && isDigits(keyword) {
		for _, f := range funds {
			if f.Code == keyword {
				return []eastmoney.FundInfo{f}
			}
		}
	}

	needle := strings.ToLower(keyword)
	out := []eastmoney.FundInfo{}
	for _, f := range funds {
		if strings.Contains(strings.ToLower(f.Name), needle) ||
			strings.Contains(strings.ToLower(f.Abbr), needle) ||
			strings.Contains(strings.ToLower(f.Pinyin), needle) ||
			strings.HasPrefix(f.Code, keyword) {
			out = append(out, f)
			if len(out) == MaxSearchResults {
				break
			}
		}
	}
	return out
}

// Search queries the fund directory and, when given, the exchange search.
// An exchange search failure still returns the fund hits.
func (s *Service) Search(ctx context.Context, keyword string, stocks StockSearcher) (SearchResult, error) {
	funds, err := s.SearchFunds(ctx, keyword)
	if err != nil {
		return SearchResult{}, err
	}
	res := SearchResult{Funds: funds, Stocks: []sina.StockMatch{}}
	if stocks == nil || strings.TrimSpace(keyword) == "" {
		return res, nil
	}

	matches, err := stocks.SearchStocks(ctx, keyword)
	if err != nil {
		s.log.Debug().Err(err).Str("keyword", keyword).Msg("Stock search failed")
		return res, nil
	}
	if len(matches) > MaxSearchResults {
		matches = matches[:MaxSearchResults]
	}
	if matches != nil {
		res.Stocks = matches
	}
	return res, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Name returns the directory name of a fund code, or "" when the directory
// is unavailable or has no such code.
func (s *Service) Name(ctx context.Context, code string) string {
	funds, err := s.Directory(ctx)
	if err != nil {
		return ""
	}
	for _, f := range funds {
		if f.Code == code {
			return f.Name
		}
	}
	return ""
}
