package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/christkv/copernicus/internal/clock"
	"github.com/christkv/copernicus/internal/domain"
)

const defaultSweepConcurrency = 4

// Sweeper reclaims holds owned by expired carts and bookings. It is the
// recovery path for every orphan the optimistic protocols can leave
// behind: abandoned carts, crashed rollbacks, half-finished releases.
// Release is idempotent per holder, so sweeping the same cart twice is
// harmless.
type Sweeper struct {
	carts       CartRepository
	stores      []ResourceStore
	clock       clock.Clock
	logger      *zap.Logger
	ttl         time.Duration
	concurrency int
}

type SweeperOption func(*Sweeper)

// WithCartTTL marks active carts untouched for longer than ttl as
// expired before each sweep. Zero disables the marking pass, leaving
// expiry to whoever set the state externally.
func WithCartTTL(ttl time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.ttl = ttl
	}
}

func WithLogger(logger *zap.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// WithConcurrency bounds how many carts are swept in parallel.
func WithConcurrency(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSweeper builds a sweeper over one cart collection and every
// resource store its carts may hold against.
func NewSweeper(carts CartRepository, stores []ResourceStore, clk clock.Clock, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		carts:       carts,
		stores:      stores,
		clock:       clk,
		logger:      zap.NewNop(),
		concurrency: defaultSweepConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs one pass: mark stale carts expired, then release every
// hold the expired carts own and retire the carts. Returns the number
// of holds released. Per-cart failures are logged and skipped; the cart
// stays expired and the next pass retries it.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.ttl > 0 {
		cutoff := s.clock.Now().Add(-s.ttl)
		marked, err := s.carts.MarkExpiredBefore(ctx, cutoff)
		if err != nil {
			return 0, err
		}
		if marked > 0 {
			s.logger.Info("marked carts expired", zap.Int("count", marked))
		}
	}

	expired, err := s.carts.FindExpired(ctx)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	var released atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, cart := range expired {
		cart := cart
		g.Go(func() error {
			n, err := s.sweepCart(ctx, cart)
			released.Add(int64(n))
			if err != nil {
				s.logger.Warn("sweep cart failed",
					zap.String("cart_id", cart.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(released.Load()), err
	}

	return int(released.Load()), nil
}

// sweepCart releases the cart's holds on every store, then moves the
// cart from expired to canceled. Losing the final transition to a
// concurrent sweeper is fine; the holds are already gone.
func (s *Sweeper) sweepCart(ctx context.Context, cart domain.Cart) (int, error) {
	released := 0
	for _, store := range s.stores {
		n, err := store.ReleaseAll(ctx, cart.ID)
		released += n
		if err != nil {
			return released, err
		}
	}

	err := s.carts.SetState(ctx, cart.ID, domain.CartExpired, domain.CartCanceled, s.clock.Now())
	if err != nil && !errors.Is(err, domain.ErrStaleState) {
		return released, err
	}
	return released, nil
}
