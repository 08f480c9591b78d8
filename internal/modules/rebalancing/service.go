// Package rebalancing orchestrates the rebalance pipeline: judge fetch,
// allocation, delta translation, impact pricing, and order registration.
package rebalancing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
	"github.com/aristath/robo-trader/internal/events"
	"github.com/aristath/robo-trader/internal/judge"
	"github.com/aristath/robo-trader/internal/modules/allocation"
	"github.com/aristath/robo-trader/internal/modules/orders"
	"github.com/aristath/robo-trader/internal/modules/pricing"
)

// Service runs rebalance requests end to end
type Service struct {
	judge      judge.Adapter
	allocator  *allocation.Allocator
	translator *Translator
	pricer     *pricing.Pricer
	store      *orders.Store
	events     *events.Manager

	judgeTimeout time.Duration
	log          zerolog.Logger

	// Replay cache keyed by the caller's Idempotency-Key header
	mu     sync.Mutex
	replay map[string]*Response
}

// ServiceConfig holds the service dependencies
type ServiceConfig struct {
	Judge        judge.Adapter
	Allocator    *allocation.Allocator
	Translator   *Translator
	Pricer       *pricing.Pricer
	Store        *orders.Store
	Events       *events.Manager
	JudgeTimeout time.Duration
	Log          zerolog.Logger
}

// NewService creates a rebalancing service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		judge:        cfg.Judge,
		allocator:    cfg.Allocator,
		translator:   cfg.Translator,
		pricer:       cfg.Pricer,
		store:        cfg.Store,
		events:       cfg.Events,
		judgeTimeout: cfg.JudgeTimeout,
		log:          cfg.Log.With().Str("service", "rebalancing").Logger(),
		replay:       make(map[string]*Response),
	}
}

// Rebalance computes proposed orders for every requested account. Accounts
// are processed independently and in parallel; a failure in one account is
// reported in its result and never aborts its siblings. Orders register only
// after the full per-account batch succeeds.
func (s *Service) Rebalance(ctx context.Context, req Request, idempotencyKey string) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		if cached := s.cachedResponse(idempotencyKey); cached != nil {
			s.log.Info().Str("idempotency_key", idempotencyKey).Msg("Replaying cached rebalance response")
			return cached, nil
		}
	}

	s.events.Emit(events.RebalanceStarted, "rebalancing", map[string]interface{}{
		"as_of":            req.AsOf,
		"sentiment_weight": req.SentimentWeight,
	})

	// Bound every collaborator call; a hung judge surfaces as
	// DATA_UNAVAILABLE instead of blocking the request forever.
	fetchCtx, cancel := context.WithTimeout(ctx, s.judgeTimeout)
	defer cancel()

	securities, err := s.judge.Securities(fetchCtx)
	if err != nil {
		return nil, domain.WrapError(domain.KindDataUnavailable, err, "failed to fetch security universe")
	}

	accounts, err := s.judge.Accounts(fetchCtx, req.Filters.AccountIDs)
	if err != nil {
		return nil, domain.WrapError(domain.KindDataUnavailable, err, "failed to fetch account snapshots")
	}

	securityIDs := make([]string, 0, len(securities))
	byID := make(map[string]domain.Security, len(securities))
	for _, sec := range securities {
		securityIDs = append(securityIDs, sec.ID)
		byID[sec.ID] = sec
	}

	scores, err := s.judge.Signals(fetchCtx, req.AsOf, securityIDs)
	if err != nil {
		return nil, domain.WrapError(domain.KindDataUnavailable, err, "failed to fetch sentiment signals")
	}

	now := time.Now().UTC()
	batchID := uuid.NewString()

	// Per-account computation is pure given its inputs; run in parallel
	results := make([]AccountResult, len(accounts))
	var wg sync.WaitGroup
	for i, account := range accounts {
		wg.Add(1)
		go func(i int, account domain.Account) {
			defer wg.Done()
			results[i] = s.computeAccount(account, byID, scores, req, batchID, now)
		}(i, account)
	}
	wg.Wait()

	batch := domain.OrderBatch{
		ID:        batchID,
		AsOf:      req.AsOf,
		CreatedAt: now,
	}
	for _, result := range results {
		batch.Orders = append(batch.Orders, result.Orders...)
	}

	if err := s.store.RegisterBatch(batch); err != nil {
		return nil, err
	}

	response := &Response{
		BatchID:   batchID,
		AsOf:      req.AsOf,
		CreatedAt: now,
		Accounts:  results,
	}

	if idempotencyKey != "" {
		s.cacheResponse(idempotencyKey, response)
	}

	s.events.Emit(events.RebalanceCompleted, "rebalancing", map[string]interface{}{
		"batch_id": batchID,
		"orders":   len(batch.Orders),
		"accounts": len(accounts),
	})

	return response, nil
}

// computeAccount runs the allocation pipeline for one account
func (s *Service) computeAccount(
	account domain.Account,
	securities map[string]domain.Security,
	scores map[string]domain.SentimentScore,
	req Request,
	batchID string,
	now time.Time,
) AccountResult {
	result := AccountResult{AccountID: account.ID}

	nav := account.NAV()
	if nav <= 0 {
		result.ErrorKind = domain.KindDataUnavailable
		result.Error = "account snapshot has non-positive NAV"
		return result
	}

	// Universe: every security the judge knows about plus anything the
	// account already holds.
	universe := make([]string, 0, len(securities))
	sectorOf := make(map[string]string, len(securities))
	prices := make(map[string]float64, len(securities))
	for id, sec := range securities {
		universe = append(universe, id)
		sectorOf[id] = sec.Sector
		prices[id] = sec.Price
	}

	current := make(map[string]float64, len(account.Positions))
	for _, pos := range account.Positions {
		current[pos.SecurityID] = pos.MarketValue / nav
		if _, known := securities[pos.SecurityID]; !known {
			universe = append(universe, pos.SecurityID)
			sectorOf[pos.SecurityID] = "Unknown"
			if pos.Quantity > 0 {
				prices[pos.SecurityID] = pos.MarketValue / pos.Quantity
			}
		}
	}

	projection, err := s.allocator.Targets(current, scores, universe, sectorOf, req.SentimentWeight, req.Filters)
	if err != nil {
		result.ErrorKind = domain.KindOf(err)
		result.Error = err.Error()
		s.events.EmitError("rebalancing", err, map[string]interface{}{
			"account_id": account.ID,
			"batch_id":   batchID,
		})
		return result
	}
	result.Feasible = true

	deltas := s.translator.Translate(current, projection.Weights, nav, prices)

	for _, delta := range deltas {
		sec, known := securities[delta.SecurityID]
		adv := sec.ADV
		if !known {
			adv = 0
		}

		price, err := s.pricer.Price(delta.Side, delta.Quantity, prices[delta.SecurityID], adv)
		if err != nil {
			// Data-quality failure on one security drops that order
			// but keeps the rest of the account's batch.
			result.Issues = append(result.Issues, SecurityIssue{
				SecurityID: delta.SecurityID,
				Kind:       domain.KindOf(err),
				Message:    err.Error(),
			})
			continue
		}

		result.Orders = append(result.Orders, domain.Order{
			ID:         uuid.NewString(),
			BatchID:    batchID,
			AccountID:  account.ID,
			SecurityID: delta.SecurityID,
			Side:       delta.Side,
			Quantity:   delta.Quantity,
			Price:      price,
			State:      domain.OrderProposed,
			CreatedAt:  now,
			AsOf:       req.AsOf,
		})
	}

	return result
}

func (s *Service) cachedResponse(key string) *Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay[key]
}

func (s *Service) cacheResponse(key string, response *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay[key] = response
}
