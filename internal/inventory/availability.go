package inventory

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ActiveHolds di-implement oleh reservation store: total qty hold yang masih active per key.
type ActiveHolds interface {
	SumActive(ctx context.Context, key Key) (int, error)
}

// Calculator read path untuk cart/katalog: available = ledger - sum(hold active).
// Selalu dihitung ulang, tidak di-cache, supaya staleness maksimal satu request.
type Calculator struct {
	Ledger Ledger
	Holds  ActiveHolds
}

func (c *Calculator) AvailableStock(ctx context.Context, key Key) (int, error) {
	qty, err := c.Ledger.Read(ctx, key)
	if err != nil {
		return 0, err
	}
	held, err := c.Holds.SumActive(ctx, key)
	if err != nil {
		return 0, err
	}
	avail := qty - held
	if avail < 0 {
		avail = 0
	}
	return avail, nil
}

type Item struct {
	Key Key `json:"key"`
	Qty int `json:"qty"`
}

// CheckStock: true hanya jika semua item tersedia. Fan-out per key.
func (c *Calculator) CheckStock(ctx context.Context, items []Item) (bool, error) {
	g, ctx := errgroup.WithContext(ctx)
	oks := make([]bool, len(items))
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			avail, err := c.AvailableStock(ctx, it.Key)
			if err != nil {
				return err
			}
			oks[i] = avail >= it.Qty
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	for _, ok := range oks {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
