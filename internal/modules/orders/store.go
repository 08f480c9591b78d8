// Package orders owns the proposed-order lifecycle: registration, idempotent
// acknowledgement, rejection, and lazy time-based expiry.
package orders

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
)

// Store is the only shared mutable resource in the engine. All state
// transitions happen under its lock, so concurrent acknowledgement calls for
// the same order resolve to a single winner; losers observe the terminal
// state already applied.
type Store struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	batches map[string][]string // batch id -> order ids

	ttl  time.Duration
	repo *Repository // optional write-through persistence
	now  func() time.Time
	log  zerolog.Logger
}

// Config holds store configuration
type Config struct {
	TTL  time.Duration
	Repo *Repository
	Log  zerolog.Logger
}

// NewStore creates an order store
func NewStore(cfg Config) *Store {
	return &Store{
		orders:  make(map[string]*domain.Order),
		batches: make(map[string][]string),
		ttl:     cfg.TTL,
		repo:    cfg.Repo,
		now:     time.Now,
		log:     cfg.Log.With().Str("service", "orders").Logger(),
	}
}

// RegisterBatch records a batch of freshly proposed orders. Orders enter in
// the Proposed state and are owned by the store from here on. The batch is
// persisted before it becomes visible in memory: a failed save registers
// nothing, so no order can be acknowledged that a restart would forget.
func (s *Store) RegisterBatch(batch domain.OrderBatch) error {
	for i := range batch.Orders {
		batch.Orders[i].State = domain.OrderProposed
	}

	if s.repo != nil {
		if err := s.repo.SaveBatch(batch); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(batch.Orders))
	for i := range batch.Orders {
		order := batch.Orders[i]
		s.orders[order.ID] = &order
		ids = append(ids, order.ID)
	}
	s.batches[batch.ID] = ids

	s.log.Info().
		Str("batch_id", batch.ID).
		Int("orders", len(batch.Orders)).
		Msg("Order batch registered")

	return nil
}

// Hydrate loads previously persisted orders, so acknowledgement survives a
// restart. Terminal orders are loaded too: repeated acknowledgement of an
// already-acknowledged order must still succeed idempotently.
func (s *Store) Hydrate() error {
	if s.repo == nil {
		return nil
	}

	batches, err := s.repo.LoadBatches()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, batch := range batches {
		ids := make([]string, 0, len(batch.Orders))
		for i := range batch.Orders {
			order := batch.Orders[i]
			s.orders[order.ID] = &order
			ids = append(ids, order.ID)
			count++
		}
		s.batches[batch.ID] = ids
	}

	if count > 0 {
		s.log.Info().Int("orders", count).Msg("Order book hydrated from database")
	}

	return nil
}

// Get returns a copy of an order after applying lazy expiry
func (s *Store) Get(orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, domain.NewError(domain.KindNotFound, "unknown order %s", orderID)
	}

	s.expireIfDue(order)
	return *order, nil
}

// GetBatch returns copies of all orders in a batch after lazy expiry
func (s *Store) GetBatch(batchID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.batches[batchID]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "unknown batch %s", batchID)
	}

	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		order := s.orders[id]
		s.expireIfDue(order)
		out = append(out, *order)
	}
	return out, nil
}

// Acknowledge transitions an order to Acknowledged. Repeat acknowledgement
// of an already-acknowledged order succeeds silently with the same result;
// it never re-applies side effects.
func (s *Store) Acknowledge(orderID string) (domain.OrderState, error) {
	return s.transition(orderID, domain.OrderAcknowledged)
}

// Reject transitions an order to Rejected. Like acknowledgement, repeating
// the same rejection is a no-op success.
func (s *Store) Reject(orderID string) (domain.OrderState, error) {
	return s.transition(orderID, domain.OrderRejected)
}

// AcknowledgeBatch applies a transition to every order in a batch. Per-order
// failures do not abort the remaining orders.
func (s *Store) AcknowledgeBatch(batchID string, target domain.OrderState) (map[string]domain.OrderState, map[string]error, error) {
	s.mu.Lock()
	ids, ok := s.batches[batchID]
	s.mu.Unlock()
	if !ok {
		return nil, nil, domain.NewError(domain.KindNotFound, "unknown batch %s", batchID)
	}

	states := make(map[string]domain.OrderState, len(ids))
	failures := make(map[string]error)
	for _, id := range ids {
		state, err := s.transition(id, target)
		if err != nil {
			failures[id] = err
			states[id] = state
			continue
		}
		states[id] = state
	}

	return states, failures, nil
}

// transition applies the state machine under the store lock
func (s *Store) transition(orderID string, target domain.OrderState) (domain.OrderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return "", domain.NewError(domain.KindNotFound, "unknown order %s", orderID)
	}

	s.expireIfDue(order)

	// Idempotent repeat of a transition already applied
	if order.State == target {
		return order.State, nil
	}

	if order.State != domain.OrderProposed {
		return order.State, domain.NewError(domain.KindInvalidTransition,
			"order %s is %s, cannot transition to %s", orderID, order.State, target)
	}

	order.State = target
	s.persistState(order)

	s.log.Info().
		Str("order_id", orderID).
		Str("state", string(target)).
		Msg("Order state transition")

	return order.State, nil
}

// expireIfDue applies lazy TTL expiry. There is no background sweep; expiry
// is checked whenever an order is touched. Caller holds the lock.
func (s *Store) expireIfDue(order *domain.Order) {
	if s.ttl <= 0 || order.State != domain.OrderProposed {
		return
	}
	if s.now().Sub(order.CreatedAt) <= s.ttl {
		return
	}

	order.State = domain.OrderExpired
	s.persistState(order)

	s.log.Info().
		Str("order_id", order.ID).
		Msg("Order expired past TTL")
}

// persistState writes a state change through to the repository. Caller holds
// the lock. Persistence failures are logged, not propagated: the in-memory
// state machine stays authoritative for the acknowledgement contract.
func (s *Store) persistState(order *domain.Order) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpdateState(order.ID, order.State); err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("Failed to persist order state")
	}
}
