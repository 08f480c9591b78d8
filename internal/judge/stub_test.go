package judge

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/robo-trader/internal/domain"
)

func TestStubSecuritiesJoinsIndexWithLatestPrices(t *testing.T) {
	s := NewStub(DefaultDataset(), zerolog.Nop())

	securities, err := s.Securities(context.Background())
	require.NoError(t, err)
	require.Len(t, securities, 6)

	// Sorted by ticker, price joined from the latest bar
	assert.Equal(t, "AAPL", securities[0].ID)
	assert.Equal(t, "Information Technology", securities[0].Sector)
	assert.Equal(t, 227.13, securities[0].Price)
	assert.Equal(t, 82000000.0, securities[0].ADV)
}

func TestStubSecuritiesMissingPriceIsDataUnavailable(t *testing.T) {
	dataset := DefaultDataset()
	dataset.Prices = dataset.Prices[:1] // only AAPL priced

	s := NewStub(dataset, zerolog.Nop())

	_, err := s.Securities(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDataUnavailable))
}

func TestStubAccountsDerivesMarketValues(t *testing.T) {
	s := NewStub(DefaultDataset(), zerolog.Nop())

	accounts, err := s.Accounts(context.Background(), []string{"C001"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	account := accounts[0]
	assert.Equal(t, "C001", account.ID)
	assert.Equal(t, 12500.0, account.Cash)
	require.Len(t, account.Positions, 2)

	var appleValue float64
	for _, pos := range account.Positions {
		if pos.SecurityID == "AAPL" {
			appleValue = pos.MarketValue
		}
	}
	assert.InDelta(t, 120*227.13, appleValue, 1e-9)
}

func TestStubAccountsUnknownIDIsDataUnavailable(t *testing.T) {
	s := NewStub(DefaultDataset(), zerolog.Nop())

	_, err := s.Accounts(context.Background(), []string{"C001", "NOPE"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDataUnavailable))
}

func TestStubAccountsEmptyFilterReturnsAll(t *testing.T) {
	s := NewStub(DefaultDataset(), zerolog.Nop())

	accounts, err := s.Accounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, accounts, 4)
}

func TestStubSignalsConvertToSignedScores(t *testing.T) {
	s := NewStub(DefaultDataset(), zerolog.Nop())

	scores, err := s.Signals(context.Background(), "2025-08-25", []string{"AAPL", "TSLA", "AMZN"})
	require.NoError(t, err)

	// 0.78 on the raw [0,1] scale maps to +0.56 on [-1,1]
	require.Contains(t, scores, "AAPL")
	assert.InDelta(t, 0.56, scores["AAPL"].Score, 1e-9)
	assert.Equal(t, "pos", scores["AAPL"].Label)

	require.Contains(t, scores, "TSLA")
	assert.InDelta(t, -0.32, scores["TSLA"].Score, 1e-9)

	// AMZN has no sentiment record at all
	assert.NotContains(t, scores, "AMZN")
}

func TestStubSignalsIgnoreFutureRecords(t *testing.T) {
	s := NewStub(DefaultDataset(), zerolog.Nop())

	// All records are dated 2025-08-25; a day earlier none are visible
	scores, err := s.Signals(context.Background(), "2025-08-24", []string{"AAPL", "TSLA"})
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestStubSignalsRejectBadDate(t *testing.T) {
	s := NewStub(DefaultDataset(), zerolog.Nop())

	_, err := s.Signals(context.Background(), "08/25/2025", []string{"AAPL"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDataUnavailable))
}

func TestStubLoadReplacesDataset(t *testing.T) {
	s := NewStub(DefaultDataset(), zerolog.Nop())

	s.Load(Dataset{
		Index:  []Constituent{{Ticker: "ZZZ", Weight: 1.0, Sector: "Utilities"}},
		Prices: []PriceBar{{Date: "2025-08-26", Ticker: "ZZZ", Close: 10, ADV: 1000}},
	})

	securities, err := s.Securities(context.Background())
	require.NoError(t, err)
	require.Len(t, securities, 1)
	assert.Equal(t, "ZZZ", securities[0].ID)
}

func TestScoreToSignedClamps(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{raw: 0.5, want: 0},
		{raw: 1.0, want: 1},
		{raw: 0.0, want: -1},
		{raw: 1.7, want: 1},  // out-of-convention input clamps
		{raw: -0.3, want: -1},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, scoreToSigned(tt.raw), 1e-9)
	}
}
