package reducer

import (
	"fmt"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/pricing"
)

// reserveSync records the reference quote price from the secondary pool's reserves.
func (a *application) reserveSync() error {
	p := a.ev.ReserveSync
	ts := a.ev.Timestamp
	price := pricing.ReservePrice(p.Reserve0, p.Reserve1)

	sample := &domain.PriceSample{
		ID:        entityid.PriceSample(ts).String(),
		Price:     price,
		Timestamp: ts,
	}
	if err := a.tx.PriceSamples().Put(a.ctx, sample); err != nil {
		return fmt.Errorf("put price sample %s: %w", sample.ID, err)
	}

	last := &domain.PriceSample{
		ID:        entityid.LastPriceSampleKey,
		Price:     price,
		Timestamp: ts,
	}
	if err := a.tx.PriceSamples().PutLast(a.ctx, last); err != nil {
		return fmt.Errorf("put last price sample: %w", err)
	}

	a.fx.PriceSample = sample
	return nil
}
