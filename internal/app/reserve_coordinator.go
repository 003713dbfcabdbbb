package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/christkv/copernicus/internal/domain"
)

// ReserveRequest asks for a hold on one resource. Quantity-based
// resources set Quantity; seat-map resources set Seats, with Quantity
// carrying the seat count.
type ReserveRequest struct {
	ResourceID string
	Quantity   int64
	Seats      []domain.Seat
}

// ResourceStore is the per-resource conditional-update surface the
// coordinator drives. Release, ReleaseAll and CommitAll are idempotent
// per holder id, which is what makes rollback and sweep retries safe.
type ResourceStore interface {
	Reserve(ctx context.Context, holderID string, req ReserveRequest) error
	Adjust(ctx context.Context, holderID, resourceID string, quantity, delta int64) error
	Release(ctx context.Context, holderID, resourceID string) error
	ReleaseAll(ctx context.Context, holderID string) (int, error)
	CommitAll(ctx context.Context, holderID string) error
}

// FailedRequest pairs an unsatisfied request with its cause.
type FailedRequest struct {
	Request ReserveRequest
	Err     error
}

// PartialFailure reports exactly the requests ReserveAll could not
// satisfy. Requests that succeeded are not listed; their holds have
// already been rolled back.
type PartialFailure struct {
	Failed []FailedRequest
}

func (e *PartialFailure) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.Request.ResourceID)
	}
	return fmt.Sprintf("reservation failed for %s", strings.Join(ids, ", "))
}

// ReserveCoordinator acquires all requested holds or none. There is no
// global lock: correctness relies on every Reserve being conditioned on
// availability at execution time, and on rollback running to completion.
// A crash mid-rollback leaves orphaned holds that the sweeper reclaims
// by holder id.
type ReserveCoordinator struct {
	store  ResourceStore
	logger *zap.Logger
}

func NewReserveCoordinator(store ResourceStore, logger *zap.Logger) *ReserveCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReserveCoordinator{
		store:  store,
		logger: logger,
	}
}

// ReserveAll issues every reserve concurrently, then rolls back the
// acquired subset if any request failed. Other callers may observe a
// transient over-reservation until the rollback lands; that window is
// the price of running without a lock service.
func (c *ReserveCoordinator) ReserveAll(ctx context.Context, holderID string, reqs []ReserveRequest) error {
	if len(reqs) == 0 {
		return nil
	}

	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req ReserveRequest) {
			defer wg.Done()
			errs[i] = c.store.Reserve(ctx, holderID, req)
		}(i, req)
	}
	wg.Wait()

	var failed []FailedRequest
	for i, err := range errs {
		if err != nil {
			failed = append(failed, FailedRequest{Request: reqs[i], Err: err})
		}
	}
	if len(failed) == 0 {
		return nil
	}

	for i, err := range errs {
		if err != nil {
			continue
		}
		if relErr := c.store.Release(ctx, holderID, reqs[i].ResourceID); relErr != nil {
			// Orphaned until the sweeper finds it by holder id.
			c.logger.Warn("rollback release failed",
				zap.String("holder_id", holderID),
				zap.String("resource_id", reqs[i].ResourceID),
				zap.Error(relErr),
			)
		}
	}

	return &PartialFailure{Failed: failed}
}
