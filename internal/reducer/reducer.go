// Package reducer applies one decoded event to the derived entity state.
//
// Apply is deterministic: given the same event and the same prior state it
// performs the same reads and writes. It uses no clock and no randomness, and
// reaches storage only through the unit of work it is handed.
package reducer

import (
	"context"
	"errors"
	"fmt"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/interval"
	"rodeo-indexer/internal/rollup"
	"rodeo-indexer/internal/storage"
)

// Options configures a Reducer.
type Options struct {
	InitialHolder HolderPolicy
}

// Reducer folds events into derived state.
type Reducer struct {
	opts      Options
	intervals []interval.Interval
}

// New creates a Reducer.
func New(opts Options) *Reducer {
	if opts.InitialHolder == "" {
		opts.InitialHolder = HolderPolicyCreator
	}
	return &Reducer{
		opts:      opts,
		intervals: interval.All(),
	}
}

// Effects are the entities an event produced or changed that downstream
// consumers care about. They are published only after the unit of work commits.
type Effects struct {
	Event       *domain.Event
	Token       *domain.Token
	Trade       *domain.Trade
	Candles     []*domain.Candle
	PriceSample *domain.PriceSample
}

// Apply applies ev through tx. Any error leaves the caller to abandon the unit of work.
func (r *Reducer) Apply(ctx context.Context, tx storage.Tx, ev *domain.Event) (*Effects, error) {
	ev, err := ev.Normalized()
	if err != nil {
		return nil, err
	}

	a := &application{
		r:   r,
		ctx: ctx,
		tx:  tx,
		ev:  ev,
		fx:  &Effects{Event: ev},
	}

	if ev.Kind == domain.KindReserveSync {
		if err := a.reserveSync(); err != nil {
			return nil, fmt.Errorf("%s at %s: %w", ev.Kind, ev.Position(), err)
		}
		return a.fx, nil
	}

	if err := a.loadPlatform(); err != nil {
		return nil, err
	}

	switch ev.Kind {
	case domain.KindCreateToken:
		err = a.createToken()
	case domain.KindTokenTrade:
		err = a.tokenTrade()
	case domain.KindLiquidityTrade:
		err = a.liquidityTrade()
	case domain.KindTransferToDex:
		err = a.transferToDex()
	case domain.KindTransfer:
		err = a.transfer()
	}
	if err != nil {
		return nil, fmt.Errorf("%s at %s: %w", ev.Kind, ev.Position(), err)
	}

	if err := tx.Platforms().Put(ctx, a.platform); err != nil {
		return nil, fmt.Errorf("put platform: %w", err)
	}
	return a.fx, nil
}

// application is the state of one Apply call.
type application struct {
	r        *Reducer
	ctx      context.Context
	tx       storage.Tx
	ev       *domain.Event
	fx       *Effects
	platform *domain.Platform
}

func (a *application) loadPlatform() error {
	p, err := a.tx.Platforms().Get(a.ctx)
	switch {
	case err == nil:
		a.platform = p
	case errors.Is(err, storage.ErrNotFound):
		a.platform = rollup.NewPlatform()
	default:
		return fmt.Errorf("get platform: %w", err)
	}
	return nil
}

// requireToken loads a token that must already exist.
func (a *application) requireToken(addr string) (*domain.Token, error) {
	tok, err := a.tx.Tokens().Get(a.ctx, entityid.Token(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("token %s: %w", addr, ErrMissingReferent)
	}
	if err != nil {
		return nil, fmt.Errorf("get token %s: %w", addr, err)
	}
	return tok, nil
}

// loadOrCreateUser returns the user at addr, creating it when absent.
// The returned user is not yet written.
func (a *application) loadOrCreateUser(addr string) (*domain.User, error) {
	key := entityid.User(addr)
	u, err := a.tx.Users().Get(a.ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return rollup.NewUser(a.platform, key), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", addr, err)
	}
	return u, nil
}

func (a *application) putUser(u *domain.User) error {
	if err := a.tx.Users().Put(a.ctx, u); err != nil {
		return fmt.Errorf("put user %s: %w", u.ID, err)
	}
	return nil
}

// ensureUser creates and writes the user at addr if absent.
func (a *application) ensureUser(addr string) error {
	_, err := a.tx.Users().Get(a.ctx, entityid.User(addr))
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("get user %s: %w", addr, err)
	}
	return a.putUser(rollup.NewUser(a.platform, entityid.User(addr)))
}

// loadOrCreateHolder returns tok's holder for addr, creating it when absent.
// Creation counts on tok, so tok must be written after the holder.
func (a *application) loadOrCreateHolder(tok *domain.Token, addr string) (*domain.Holder, error) {
	key := entityid.Holder(entityid.Token(tok.ID), entityid.User(addr))
	h, err := a.tx.Holders().Get(a.ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return rollup.NewHolder(a.platform, tok, entityid.User(addr), a.ev.Timestamp), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holder %s: %w", key, err)
	}
	return h, nil
}

func (a *application) putHolder(h *domain.Holder) error {
	h.UpdatedAt = a.ev.Timestamp
	if err := a.tx.Holders().Put(a.ctx, h); err != nil {
		return fmt.Errorf("put holder %s: %w", h.ID, err)
	}
	return nil
}

func (a *application) putToken(tok *domain.Token) error {
	if err := a.tx.Tokens().Put(a.ctx, tok); err != nil {
		return fmt.Errorf("put token %s: %w", tok.ID, err)
	}
	a.fx.Token = tok
	return nil
}
