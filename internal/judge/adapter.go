// Package judge provides access to the Robo Judge collaborator, the external
// source of account snapshots, the security universe, and per-security
// sentiment scores. The engine depends only on the Adapter interface; whether
// the canned or the networked implementation is active is a construction-time
// configuration choice.
package judge

import (
	"context"
	"time"

	"github.com/aristath/robo-trader/internal/domain"
)

// Adapter is the consumed contract of the judge collaborator. All methods
// respect context deadlines; failures surface as DATA_UNAVAILABLE errors and
// are never silently substituted with defaults.
type Adapter interface {
	// Name returns the adapter identifier (e.g. "stub", "remote")
	Name() string

	// Securities returns the advisory universe with sector membership,
	// reference prices, and liquidity proxies.
	Securities(ctx context.Context) ([]domain.Security, error)

	// Accounts returns snapshots for the requested accounts. An empty id
	// set means all known accounts.
	Accounts(ctx context.Context, accountIDs []string) ([]domain.Account, error)

	// Signals returns a sentiment score per requested security for the
	// given as-of date. Securities without a score for that date are
	// absent from the result.
	Signals(ctx context.Context, asOf string, securityIDs []string) (map[string]domain.SentimentScore, error)

	// Ping checks collaborator reachability for health reporting
	Ping(ctx context.Context) error
}

// scoreToSigned maps the collaborator's [0, 1] sentiment score onto the
// engine's [-1, 1] range: 0.5 is neutral.
func scoreToSigned(raw float64) float64 {
	s := (raw - 0.5) * 2
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	return s
}

func parseAsOf(asOf string) (time.Time, error) {
	return time.Parse("2006-01-02", asOf)
}
