package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
	"rodeo-indexer/internal/indexer"
	"rodeo-indexer/internal/reducer"
	"rodeo-indexer/internal/replay"
	"rodeo-indexer/internal/storage"
	"rodeo-indexer/internal/storage/memory"
)

// ErrTokenNotFound is returned when a token is absent from the stored state.
var ErrTokenNotFound = errors.New("token not found")

// ReplayVerifier rebuilds state from the raw event log into memory and
// compares it with a stored entity store. Events past the stored cursor are
// not replayed, so a store that is still catching up verifies cleanly.
type ReplayVerifier struct {
	events  storage.RawEventStore
	stored  storage.EntityStore
	reducer reducer.Options
	logger  zerolog.Logger

	replayed *memory.EntityStore
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	Events  storage.RawEventStore
	Stored  storage.EntityStore
	Reducer reducer.Options // must match the options the stored state was built with
	Logger  zerolog.Logger
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		events:  opts.Events,
		stored:  opts.Stored,
		reducer: opts.Reducer,
		logger:  opts.Logger.With().Str("component", "verification").Logger(),
	}
}

// VerifyToken verifies a single token.
func (v *ReplayVerifier) VerifyToken(ctx context.Context, token string) (*VerificationResult, error) {
	addr, err := entityid.NormalizeAddress(token)
	if err != nil {
		return nil, err
	}
	if err := v.rebuild(ctx); err != nil {
		return nil, err
	}
	return v.verifyToken(ctx, addr)
}

// VerifyAll verifies every stored token and reports replayed tokens the stored state lacks.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	if err := v.rebuild(ctx); err != nil {
		return nil, err
	}

	stored, err := listTokens(ctx, v.stored)
	if err != nil {
		return nil, err
	}
	replayed, err := listTokens(ctx, v.replayed)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalTokens: len(stored),
		Results:     make([]VerificationResult, 0, len(stored)),
	}

	seen := make(map[string]bool, len(stored))
	for _, tok := range stored {
		seen[tok.ID] = true

		result, err := v.verifyToken(ctx, tok.ID)
		if err != nil {
			// Record error as divergence
			result = &VerificationResult{
				Token:       tok.ID,
				Divergences: []FieldDivergence{{Field: "Error", Actual: err.Error()}},
			}
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedTokens++
		} else {
			report.DivergentTokens++
		}
	}
	for _, tok := range replayed {
		if !seen[tok.ID] {
			report.MissingTokens = append(report.MissingTokens, tok.ID)
		}
	}

	v.logger.Info().Int("tokens", report.TotalTokens).Int("divergent", report.DivergentTokens).
		Int("missing", len(report.MissingTokens)).Msg("verification finished")
	return report, nil
}

func (v *ReplayVerifier) verifyToken(ctx context.Context, token string) (*VerificationResult, error) {
	stored, err := loadToken(ctx, v.stored, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", token, ErrTokenNotFound)
	}
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{Token: stored.token.ID}

	replayed, err := loadToken(ctx, v.replayed, token)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		result.Divergences = []FieldDivergence{{Field: "Token", Expected: stored.token.ID}}
		return result, nil
	case err != nil:
		return nil, err
	}

	result.Divergences = append(result.Divergences, CompareTokens(stored.token, replayed.token)...)
	result.Divergences = append(result.Divergences, CompareHolders(stored.holders, replayed.holders)...)
	result.Divergences = append(result.Divergences, CompareTrades(stored.trades, replayed.trades)...)
	result.Match = len(result.Divergences) == 0
	return result, nil
}

// rebuild replays the raw log up to the stored cursor once.
func (v *ReplayVerifier) rebuild(ctx context.Context) error {
	if v.replayed != nil {
		return nil
	}

	var cursor *domain.Position
	err := v.stored.View(ctx, func(tx storage.Tx) error {
		cur, err := tx.Cursor().Get(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		cursor = cur
		return err
	})
	if err != nil {
		return fmt.Errorf("read stored cursor: %w", err)
	}

	store := memory.NewEntityStore()
	ix := indexer.New(indexer.Options{
		Store:   store,
		Reducer: reducer.New(v.reducer),
		Logger:  v.logger,
	})

	engine := replay.EngineFunc(func(ctx context.Context, ev *domain.Event) error {
		if cursor == nil || ev.Position().Compare(*cursor) > 0 {
			return nil
		}
		return ix.OnEvent(ctx, ev)
	})
	n, err := replay.NewRunner(v.events).RunAll(ctx, engine)
	if err != nil {
		return fmt.Errorf("rebuild state: %w", err)
	}

	v.logger.Debug().Int("events", n).Msg("rebuilt state from raw event log")
	v.replayed = store
	return nil
}

type tokenState struct {
	token   *domain.Token
	holders []*domain.Holder
	trades  []*domain.Trade
}

func loadToken(ctx context.Context, store storage.EntityStore, addr string) (*tokenState, error) {
	var st tokenState
	err := store.View(ctx, func(tx storage.Tx) error {
		key := entityid.Token(addr)

		tok, err := tx.Tokens().Get(ctx, key)
		if err != nil {
			return err
		}
		st.token = tok

		if st.holders, err = tx.Holders().ListByToken(ctx, key); err != nil {
			return err
		}
		st.trades, err = tx.Trades().ListByToken(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func listTokens(ctx context.Context, store storage.EntityStore) ([]*domain.Token, error) {
	var tokens []*domain.Token
	err := store.View(ctx, func(tx storage.Tx) error {
		var err error
		tokens, err = tx.Tokens().List(ctx)
		return err
	})
	return tokens, err
}
