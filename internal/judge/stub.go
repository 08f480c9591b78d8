package judge

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
)

// Client is an advisory client record in the stub dataset
type Client struct {
	ID          string
	Segment     string
	RiskProfile string
	Cash        float64
}

// Holding is a raw position row in the stub dataset
type Holding struct {
	AccountID string
	Ticker    string
	Quantity  float64
}

// Constituent is an index membership row carrying sector classification
type Constituent struct {
	Ticker string
	Weight float64
	Sector string
}

// PriceBar is a daily close with the average daily volume proxy
type PriceBar struct {
	Date   string
	Ticker string
	Close  float64
	ADV    float64
}

// SentimentRecord is a raw sentiment row. Score is in the collaborator's
// [0, 1] convention and converted at the adapter boundary.
type SentimentRecord struct {
	Date   string
	Ticker string
	Label  string
	Score  float64
	Source string
}

// Dataset is the full canned dataset served by the stub adapter
type Dataset struct {
	Clients   []Client
	Holdings  []Holding
	Index     []Constituent
	Prices    []PriceBar
	Sentiment []SentimentRecord
}

// DefaultDataset returns the built-in demo dataset
func DefaultDataset() Dataset {
	return Dataset{
		Clients: []Client{
			{ID: "C001", Segment: "retail", RiskProfile: "balanced", Cash: 12500},
			{ID: "C002", Segment: "retail", RiskProfile: "conservative", Cash: 40000},
			{ID: "C003", Segment: "hni", RiskProfile: "growth", Cash: 8000},
			{ID: "C004", Segment: "retail", RiskProfile: "balanced", Cash: 6200},
		},
		Holdings: []Holding{
			{AccountID: "C001", Ticker: "AAPL", Quantity: 120},
			{AccountID: "C001", Ticker: "MSFT", Quantity: 80},
			{AccountID: "C002", Ticker: "V", Quantity: 50},
			{AccountID: "C003", Ticker: "NVDA", Quantity: 30},
			{AccountID: "C004", Ticker: "TSLA", Quantity: 20},
			{AccountID: "C004", Ticker: "AAPL", Quantity: 15},
		},
		Index: []Constituent{
			{Ticker: "AAPL", Weight: 0.035, Sector: "Information Technology"},
			{Ticker: "MSFT", Weight: 0.040, Sector: "Information Technology"},
			{Ticker: "NVDA", Weight: 0.030, Sector: "Information Technology"},
			{Ticker: "AMZN", Weight: 0.028, Sector: "Consumer Discretionary"},
			{Ticker: "TSLA", Weight: 0.020, Sector: "Consumer Discretionary"},
			{Ticker: "V", Weight: 0.018, Sector: "Financials"},
		},
		Prices: []PriceBar{
			{Date: "2025-08-25", Ticker: "AAPL", Close: 227.13, ADV: 82000000},
			{Date: "2025-08-25", Ticker: "MSFT", Close: 430.55, ADV: 25000000},
			{Date: "2025-08-25", Ticker: "NVDA", Close: 116.22, ADV: 60000000},
			{Date: "2025-08-25", Ticker: "AMZN", Close: 171.40, ADV: 50000000},
			{Date: "2025-08-25", Ticker: "TSLA", Close: 238.65, ADV: 150000000},
			{Date: "2025-08-25", Ticker: "V", Close: 278.90, ADV: 7000000},
		},
		Sentiment: []SentimentRecord{
			{Date: "2025-08-25", Ticker: "AAPL", Label: "pos", Score: 0.78, Source: "https://news.example/a"},
			{Date: "2025-08-25", Ticker: "TSLA", Label: "neg", Score: 0.34, Source: "https://news.example/b"},
			{Date: "2025-08-25", Ticker: "MSFT", Label: "neu", Score: 0.52, Source: "https://news.example/c"},
		},
	}
}

// Stub serves judge data from an in-memory dataset. The dataset can be
// replaced wholesale through Load (used by the ingest endpoint).
type Stub struct {
	mu   sync.RWMutex
	data Dataset
	log  zerolog.Logger
}

// NewStub creates a stub adapter with the given dataset
func NewStub(data Dataset, log zerolog.Logger) *Stub {
	return &Stub{
		data: data,
		log:  log.With().Str("adapter", "judge_stub").Logger(),
	}
}

// Name returns the adapter identifier
func (s *Stub) Name() string {
	return "stub"
}

// Load replaces the entire dataset
func (s *Stub) Load(data Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data

	s.log.Info().
		Int("clients", len(data.Clients)).
		Int("holdings", len(data.Holdings)).
		Int("prices", len(data.Prices)).
		Int("sentiment", len(data.Sentiment)).
		Msg("Stub dataset replaced")
}

// Securities returns the universe built from index constituents joined with
// the latest price bar per ticker.
func (s *Stub) Securities(ctx context.Context) ([]domain.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := s.latestPrices()

	var securities []domain.Security
	for _, c := range s.data.Index {
		bar, ok := prices[c.Ticker]
		if !ok {
			return nil, domain.NewError(domain.KindDataUnavailable, "no price bar for security %s", c.Ticker)
		}
		securities = append(securities, domain.Security{
			ID:     c.Ticker,
			Sector: c.Sector,
			Price:  bar.Close,
			ADV:    bar.ADV,
		})
	}

	sort.Slice(securities, func(i, j int) bool { return securities[i].ID < securities[j].ID })
	return securities, nil
}

// Accounts returns snapshots for the requested clients. Market values are
// derived from the latest reference prices.
func (s *Stub) Accounts(ctx context.Context, accountIDs []string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = true
	}

	prices := s.latestPrices()

	var accounts []domain.Account
	for _, c := range s.data.Clients {
		if len(wanted) > 0 && !wanted[c.ID] {
			continue
		}

		account := domain.Account{ID: c.ID, Cash: c.Cash}
		for _, h := range s.data.Holdings {
			if h.AccountID != c.ID {
				continue
			}
			bar, ok := prices[h.Ticker]
			if !ok {
				return nil, domain.NewError(domain.KindDataUnavailable, "no price bar for held security %s", h.Ticker)
			}
			account.Positions = append(account.Positions, domain.Position{
				AccountID:   c.ID,
				SecurityID:  h.Ticker,
				Quantity:    h.Quantity,
				MarketValue: h.Quantity * bar.Close,
			})
		}
		accounts = append(accounts, account)
	}

	if len(wanted) > 0 && len(accounts) < len(wanted) {
		return nil, domain.NewError(domain.KindDataUnavailable, "unknown account in request")
	}

	return accounts, nil
}

// Signals returns sentiment scores for the requested securities. The record
// dated exactly asOf wins; otherwise the most recent record not after asOf.
func (s *Stub) Signals(ctx context.Context, asOf string, securityIDs []string) (map[string]domain.SentimentScore, error) {
	asOfDate, err := parseAsOf(asOf)
	if err != nil {
		return nil, domain.WrapError(domain.KindDataUnavailable, err, "invalid as-of date %q", asOf)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(securityIDs))
	for _, id := range securityIDs {
		wanted[id] = true
	}

	best := make(map[string]SentimentRecord)
	for _, rec := range s.data.Sentiment {
		if !wanted[rec.Ticker] {
			continue
		}
		if rec.Date > asOf {
			continue
		}
		if prev, ok := best[rec.Ticker]; !ok || rec.Date > prev.Date {
			best[rec.Ticker] = rec
		}
	}

	scores := make(map[string]domain.SentimentScore, len(best))
	for ticker, rec := range best {
		scores[ticker] = domain.SentimentScore{
			SecurityID: ticker,
			Score:      scoreToSigned(rec.Score),
			Label:      rec.Label,
			Source:     rec.Source,
			AsOf:       asOfDate,
		}
	}

	return scores, nil
}

// Ping always succeeds; the canned dataset is local
func (s *Stub) Ping(ctx context.Context) error {
	return nil
}

// latestPrices returns the most recent price bar per ticker. Caller holds
// the read lock.
func (s *Stub) latestPrices() map[string]PriceBar {
	latest := make(map[string]PriceBar)
	for _, bar := range s.data.Prices {
		if prev, ok := latest[bar.Ticker]; !ok || bar.Date > prev.Date {
			latest[bar.Ticker] = bar
		}
	}
	return latest
}
