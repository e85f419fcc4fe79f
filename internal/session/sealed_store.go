package session

import (
	"context"
	"fmt"

	"github.com/johnrirwin/socialfeed/internal/crypto"
)

// SealedStore encrypts the token before it reaches the wrapped store.
// Tokens written before sealing was enabled are still read as plaintext
// and get sealed on the next save.
type SealedStore struct {
	inner  Store
	sealer *crypto.Sealer
}

func NewSealedStore(inner Store, sealer *crypto.Sealer) *SealedStore {
	return &SealedStore{inner: inner, sealer: sealer}
}

func (s *SealedStore) Load(ctx context.Context) (State, error) {
	state, err := s.inner.Load(ctx)
	if err != nil {
		return State{}, err
	}
	if state.Token == "" || !crypto.IsSealed(state.Token) {
		return state, nil
	}

	token, err := s.sealer.Open(state.Token)
	if err != nil {
		return State{}, fmt.Errorf("open session token: %w", err)
	}
	state.Token = token
	return state, nil
}

func (s *SealedStore) Save(ctx context.Context, state State) error {
	sealed, err := s.sealer.Seal(state.Token)
	if err != nil {
		return fmt.Errorf("seal session token: %w", err)
	}
	state.Token = sealed
	return s.inner.Save(ctx, state)
}

func (s *SealedStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

var _ Store = (*SealedStore)(nil)
