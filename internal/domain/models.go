package domain

import "time"

// OrderSide represents the direction of an order
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderState represents the lifecycle state of a proposed order
type OrderState string

const (
	OrderProposed     OrderState = "PROPOSED"
	OrderAcknowledged OrderState = "ACKNOWLEDGED"
	OrderRejected     OrderState = "REJECTED"
	OrderExpired      OrderState = "EXPIRED"
)

// Terminal reports whether the state accepts no further transitions
func (s OrderState) Terminal() bool {
	return s == OrderAcknowledged || s == OrderRejected || s == OrderExpired
}

// Security represents a tradable security in the advisory universe
type Security struct {
	ID     string  `json:"id"`     // Ticker symbol
	Sector string  `json:"sector"` // GICS-style sector name
	Price  float64 `json:"price"`  // Last reference price
	ADV    float64 `json:"adv"`    // Average daily traded volume (shares)
}

// Position represents a holding within one account
type Position struct {
	AccountID   string  `json:"account_id"`
	SecurityID  string  `json:"security_id"`
	Quantity    float64 `json:"quantity"`
	MarketValue float64 `json:"market_value"` // Quantity x reference price
}

// Account is a read-only snapshot of one brokerage account
type Account struct {
	ID        string     `json:"id"`
	Positions []Position `json:"positions"`
	Cash      float64    `json:"cash"`
}

// NAV returns cash plus the market value of all positions
func (a Account) NAV() float64 {
	nav := a.Cash
	for _, p := range a.Positions {
		nav += p.MarketValue
	}
	return nav
}

// SentimentScore is a per-security signal supplied by the judge collaborator.
// Score is normalized to [-1, 1]; the collaborator payload is opaque beyond
// its numeric value.
type SentimentScore struct {
	SecurityID string    `json:"security_id"`
	Score      float64   `json:"score"`
	Label      string    `json:"label,omitempty"`
	Source     string    `json:"source,omitempty"`
	AsOf       time.Time `json:"as_of"`
}

// Filters holds the per-request rebalancing constraints
type Filters struct {
	AccountIDs        []string `json:"accountIds,omitempty"`
	MinCashPct        float64  `json:"minCashPct"`
	MaxSecurityWeight float64  `json:"maxSecurityWeight"`
	MaxSectorWeight   float64  `json:"maxSectorWeight"`
}

// Validate checks filter bounds. A single security may never be allowed to
// exceed its own sector's cap.
func (f Filters) Validate() error {
	if f.MinCashPct < 0 || f.MinCashPct > 1 {
		return NewError(KindInfeasibleConstraints, "minCashPct must be within [0, 1]")
	}
	if f.MaxSecurityWeight <= 0 || f.MaxSecurityWeight > 1 {
		return NewError(KindInfeasibleConstraints, "maxSecurityWeight must be within (0, 1]")
	}
	if f.MaxSectorWeight <= 0 || f.MaxSectorWeight > 1 {
		return NewError(KindInfeasibleConstraints, "maxSectorWeight must be within (0, 1]")
	}
	if f.MaxSecurityWeight > f.MaxSectorWeight {
		return NewError(KindInfeasibleConstraints, "maxSecurityWeight must not exceed maxSectorWeight")
	}
	return nil
}

// Order is a proposed trade. It is owned by the order store once registered
// and immutable except for state transitions.
type Order struct {
	ID         string     `json:"id"`
	BatchID    string     `json:"batch_id"`
	AccountID  string     `json:"account_id"`
	SecurityID string     `json:"security_id"`
	Side       OrderSide  `json:"side"`
	Quantity   float64    `json:"quantity"`
	Price      float64    `json:"price"` // Expected execution price, impact included
	State      OrderState `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	AsOf       string     `json:"as_of"` // Snapshot date the proposal was priced at (YYYY-MM-DD)
}

// OrderBatch is the set of orders produced by one rebalance call
type OrderBatch struct {
	ID        string    `json:"id"`
	AsOf      string    `json:"as_of"`
	CreatedAt time.Time `json:"created_at"`
	Orders    []Order   `json:"orders"`
}
