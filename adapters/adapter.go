// Package adapters moves tokens of different standards behind one interface.
// The settlement engine resolves an Adapter per token kind from a Registry
// and never talks to a token backend directly.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-protocols-sub003/chain"
)

// Registry errors
var (
	ErrNoAdapterForKind     = errors.New("no adapter for kind")
	ErrHandlerExistsForKind = errors.New("handler exists for kind")
	ErrNilAdapter           = errors.New("adapter is nil")
)

// InvalidArgumentError reports a transfer whose shape does not fit the
// token standard, such as an id on a fungible transfer.
type InvalidArgumentError struct {
	Field string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Field)
}

// Adapter checks and executes transfers for one token kind.
type Adapter interface {
	Kind() chain.TokenKind
	// AttemptFeeTransfer reports whether a separate fee leg can be taken in
	// this kind. It is a property of the standard, not of a token.
	AttemptFeeTransfer() bool
	HasAllowance(ctx context.Context, party chain.Party, spender common.Address) (bool, error)
	HasBalance(ctx context.Context, party chain.Party) (bool, error)
	Transfer(ctx context.Context, spender, from, to common.Address, amount, id *big.Int, token common.Address) error
}

// Journal lets a settlement undo the token movements it made. Every
// Snapshot is closed by exactly one RevertToSnapshot or DiscardSnapshot.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
	DiscardSnapshot(id int)
}

// Registry maps token kinds to adapters. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[chain.TokenKind]Adapter
	journal  Journal
}

// NewRegistry returns a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[chain.TokenKind]Adapter)}
	for _, a := range adapters {
		if err := r.Add(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add binds the adapter to its kind. A kind can be bound only once.
func (r *Registry) Add(a Adapter) error {
	if a == nil {
		return ErrNilAdapter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[a.Kind()]; ok {
		return fmt.Errorf("%w: %s", ErrHandlerExistsForKind, a.Kind())
	}
	r.adapters[a.Kind()] = a
	return nil
}

// Replace binds the adapter to its kind, dropping any previous binding.
func (r *Registry) Replace(a Adapter) error {
	if a == nil {
		return ErrNilAdapter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Kind()] = a
	return nil
}

// Resolve returns the adapter bound to kind.
func (r *Registry) Resolve(kind chain.TokenKind) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapterForKind, kind)
	}
	return a, nil
}

// Kinds lists the bound kinds.
func (r *Registry) Kinds() []chain.TokenKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]chain.TokenKind, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	return kinds
}

// Backend is the union of token backends the bundled adapters need. Both
// chain.ContractCaller and tokens.World satisfy it.
type Backend interface {
	FungibleBackend
	NFTBackend
	MultiTokenBackend
	OperatorBackend
}

// Journal returns the journal of the registry's backend, or nil when the
// backend cannot undo transfers.
func (r *Registry) Journal() Journal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.journal
}

// Standard returns a registry with the four bundled adapters over backend.
// A backend that implements Journal becomes the registry's journal.
func Standard(backend Backend) *Registry {
	r, _ := NewRegistry(
		NewERC20(backend),
		NewERC721(backend),
		NewERC1155(backend),
		NewERC777(backend),
	)
	if j, ok := backend.(Journal); ok {
		r.journal = j
	}
	return r
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
