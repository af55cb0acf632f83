package reducer

import (
	"errors"
	"fmt"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/fixedpoint"
	"rodeo-indexer/internal/rollup"
	"rodeo-indexer/internal/storage"
)

func (a *application) createToken() error {
	p := a.ev.CreateToken
	tokenKey := entityid.Token(p.Token)

	_, err := a.tx.Tokens().Get(a.ctx, tokenKey)
	if err == nil {
		return fmt.Errorf("token %s: %w", p.Token, storage.ErrDuplicateKey)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("get token %s: %w", p.Token, err)
	}

	creator, err := a.loadOrCreateUser(p.Account)
	if err != nil {
		return err
	}

	tok := rollup.NewToken(a.platform, creator, rollup.TokenParams{
		Address:     tokenKey,
		Name:        p.Name,
		Symbol:      p.Symbol,
		TotalSupply: p.TotalSupply,
		Data:        p.Data,
		CreatedAt:   a.ev.Timestamp,
	})

	if len(p.CurvePoints) > 0 {
		if err := a.recordCurve(tok, creator); err != nil {
			return err
		}
	}

	if err := a.putUser(creator); err != nil {
		return err
	}

	if err := a.initialHolder(tok); err != nil {
		return err
	}

	if err := a.tx.Tokens().Insert(a.ctx, tok); err != nil {
		return fmt.Errorf("insert token %s: %w", tok.ID, err)
	}
	a.fx.Token = tok
	return nil
}

// initialHolder credits the full supply to the holder chosen by the policy.
// This normalizes the minted supply; it is not a transfer.
func (a *application) initialHolder(tok *domain.Token) error {
	var addr string
	switch a.r.opts.InitialHolder {
	case HolderPolicyNone:
		return nil
	case HolderPolicyToken:
		addr = tok.ID
		if err := a.ensureUser(addr); err != nil {
			return err
		}
	default:
		addr = tok.Creator
	}

	h, err := a.loadOrCreateHolder(tok, addr)
	if err != nil {
		return err
	}
	h.Balance = fixedpoint.Clone(tok.TotalSupply)
	return a.putHolder(h)
}

// recordCurve stores the token's bonding curve and marks the creator as its insider.
func (a *application) recordCurve(tok *domain.Token, creator *domain.User) error {
	p := a.ev.CreateToken

	curve := &domain.Curve{
		ID:        entityid.Curve(entityid.Token(tok.ID)).String(),
		Token:     tok.ID,
		Points:    p.CurvePoints,
		UpdatedAt: a.ev.Timestamp,
	}
	if err := a.tx.Curves().Put(a.ctx, curve); err != nil {
		return fmt.Errorf("put curve %s: %w", curve.ID, err)
	}

	insider := &domain.Insider{
		ID:      entityid.Insider(entityid.Token(tok.ID), entityid.User(creator.ID)).String(),
		Token:   tok.ID,
		User:    creator.ID,
		AddedAt: a.ev.Timestamp,
	}
	if err := a.tx.Insiders().Put(a.ctx, insider); err != nil {
		return fmt.Errorf("put insider %s: %w", insider.ID, err)
	}
	creator.IsInsider = true
	return nil
}
