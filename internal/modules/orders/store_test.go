package orders

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/robo-trader/internal/domain"
)

func newTestStore(ttl time.Duration) *Store {
	return NewStore(Config{TTL: ttl, Log: zerolog.Nop()})
}

func testBatch(orderIDs ...string) domain.OrderBatch {
	batch := domain.OrderBatch{
		ID:        "batch-1",
		AsOf:      "2025-08-25",
		CreatedAt: time.Now().UTC(),
	}
	for _, id := range orderIDs {
		batch.Orders = append(batch.Orders, domain.Order{
			ID:         id,
			BatchID:    batch.ID,
			AccountID:  "C001",
			SecurityID: "AAPL",
			Side:       domain.SideBuy,
			Quantity:   10,
			Price:      227.20,
			State:      domain.OrderProposed,
			CreatedAt:  batch.CreatedAt,
			AsOf:       batch.AsOf,
		})
	}
	return batch
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	s := newTestStore(0)
	require.NoError(t, s.RegisterBatch(testBatch("o1")))

	state, err := s.Acknowledge("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAcknowledged, state)

	// Same call again: same result, no error
	state, err = s.Acknowledge("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAcknowledged, state)
}

func TestConflictingTransitionIsRejected(t *testing.T) {
	s := newTestStore(0)
	require.NoError(t, s.RegisterBatch(testBatch("o1")))

	_, err := s.Acknowledge("o1")
	require.NoError(t, err)

	state, err := s.Reject("o1")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInvalidTransition))
	assert.Equal(t, domain.OrderAcknowledged, state, "terminal state is reported back")
}

func TestUnknownOrder(t *testing.T) {
	s := newTestStore(0)

	// A typo'd id is not a state-machine violation
	_, err := s.Acknowledge("missing")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = s.Get("missing")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestLazyExpiry(t *testing.T) {
	s := newTestStore(15 * time.Minute)
	require.NoError(t, s.RegisterBatch(testBatch("o1")))

	// Move the clock past the TTL
	s.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	order, err := s.Get("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderExpired, order.State)

	// Expired orders accept no transitions
	state, err := s.Acknowledge("o1")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInvalidTransition))
	assert.Equal(t, domain.OrderExpired, state)
}

func TestExpiryDoesNotTouchTerminalOrders(t *testing.T) {
	s := newTestStore(15 * time.Minute)
	require.NoError(t, s.RegisterBatch(testBatch("o1")))

	_, err := s.Acknowledge("o1")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	order, err := s.Get("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAcknowledged, order.State, "acknowledged orders never expire")
}

func TestAcknowledgeBatchPartialFailures(t *testing.T) {
	s := newTestStore(0)
	require.NoError(t, s.RegisterBatch(testBatch("o1", "o2", "o3")))

	// o2 was already rejected; the batch acknowledge must not abort on it
	_, err := s.Reject("o2")
	require.NoError(t, err)

	states, failures, err := s.AcknowledgeBatch("batch-1", domain.OrderAcknowledged)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderAcknowledged, states["o1"])
	assert.Equal(t, domain.OrderAcknowledged, states["o3"])
	assert.Equal(t, domain.OrderRejected, states["o2"])
	require.Len(t, failures, 1)
	assert.True(t, domain.IsKind(failures["o2"], domain.KindInvalidTransition))
}

func TestAcknowledgeBatchUnknownBatch(t *testing.T) {
	s := newTestStore(0)

	_, _, err := s.AcknowledgeBatch("missing", domain.OrderAcknowledged)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestGetBatchReturnsAllOrders(t *testing.T) {
	s := newTestStore(0)
	require.NoError(t, s.RegisterBatch(testBatch("o1", "o2")))

	batchOrders, err := s.GetBatch("batch-1")
	require.NoError(t, err)
	assert.Len(t, batchOrders, 2)
	for _, order := range batchOrders {
		assert.Equal(t, domain.OrderProposed, order.State)
	}
}

func TestRegisterBatchFailedPersistenceRegistersNothing(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	defer db.Close()

	// No schema: the batch insert must fail
	s := NewStore(Config{
		Repo: NewRepository(db, zerolog.Nop()),
		Log:  zerolog.Nop(),
	})

	require.Error(t, s.RegisterBatch(testBatch("o1")))

	// The failed batch left no acknowledgeable orders behind
	_, err = s.Get("o1")
	assert.Error(t, err)
	_, err = s.GetBatch("batch-1")
	assert.Error(t, err)
}

func TestConcurrentAcknowledgementHasSingleWinner(t *testing.T) {
	s := newTestStore(0)
	require.NoError(t, s.RegisterBatch(testBatch("o1")))

	const callers = 16
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			_, err := s.Acknowledge("o1")
			results <- err
		}()
	}

	for i := 0; i < callers; i++ {
		assert.NoError(t, <-results, "every repeat acknowledgement succeeds idempotently")
	}

	order, err := s.Get("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAcknowledged, order.State)
}
