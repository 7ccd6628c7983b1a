package lock

import (
	"context"

	"github.com/smallbiznis/pricewatch/internal/ledger/domain"
)

type chain []domain.Locker

// Chain acquires every locker in order and releases them in reverse.
func Chain(lockers ...domain.Locker) domain.Locker {
	return chain(lockers)
}

func (c chain) Lock(ctx context.Context, key string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range c {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}
