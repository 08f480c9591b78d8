package rebalancing

import (
	"time"

	"github.com/aristath/robo-trader/internal/domain"
)

// Request is a rebalance request
type Request struct {
	AsOf            string         `json:"asOf"`
	Filters         domain.Filters `json:"filters"`
	SentimentWeight float64        `json:"sentimentWeight"`
}

// Validate checks request bounds before any collaborator call
func (r Request) Validate() error {
	if _, err := time.Parse("2006-01-02", r.AsOf); err != nil {
		return domain.WrapError(domain.KindDataUnavailable, err, "asOf must be a YYYY-MM-DD date")
	}
	if r.SentimentWeight < 0 || r.SentimentWeight > 1 {
		return domain.NewError(domain.KindInfeasibleConstraints, "sentimentWeight must be within [0, 1]")
	}
	return r.Filters.Validate()
}

// SecurityIssue reports a per-security data-quality failure that excluded
// one order without failing the whole account.
type SecurityIssue struct {
	SecurityID string           `json:"security_id"`
	Kind       domain.ErrorKind `json:"kind"`
	Message    string           `json:"message"`
}

// AccountResult is the per-account outcome of a rebalance. Failures in one
// account never abort its siblings.
type AccountResult struct {
	AccountID string           `json:"account_id"`
	Feasible  bool             `json:"feasible"`
	Orders    []domain.Order   `json:"orders"`
	Issues    []SecurityIssue  `json:"issues,omitempty"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Response is the rebalance response: one batch, per-account results
type Response struct {
	BatchID   string          `json:"batch_id"`
	AsOf      string          `json:"as_of"`
	CreatedAt time.Time       `json:"created_at"`
	Accounts  []AccountResult `json:"accounts"`
}
