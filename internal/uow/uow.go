package uow

import (
	"context"

	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

// AfterCommit is a function that runs after a successful commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work over any repository.Store.
type UoW struct {
	store repository.Store
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn atomically. After a successful commit, it executes all
// after-commit hooks; hooks registered by a failed fn never run. Side effects
// that must not be observed for an aborted purchase (confirmation dispatch,
// cache invalidation) belong in hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.Atomic(ctx, func(ctx context.Context, tx repository.Store) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
