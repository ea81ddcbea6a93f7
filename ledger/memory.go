package ledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type nonceKey struct {
	signer common.Address
	nonce  string
}

type grantKey struct {
	approver common.Address
	delegate common.Address
}

func keyOf(signer common.Address, nonce *big.Int) nonceKey {
	return nonceKey{signer: signer, nonce: orZero(nonce).String()}
}

// MemoryStore is an in-process Store. Each Update holds the write lock for
// its whole duration and keeps an undo journal that is replayed backwards if
// the callback fails.
type MemoryStore struct {
	mu          sync.RWMutex
	nonces      map[nonceKey]NonceStatus
	minimums    map[common.Address]*big.Int
	grants      map[grantKey]Grant
	settlements []Settlement
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:   make(map[nonceKey]NonceStatus),
		minimums: make(map[common.Address]*big.Int),
		grants:   make(map[grantKey]Grant),
	}
}

func (m *MemoryStore) NonceStatus(_ context.Context, signer common.Address, nonce *big.Int) (NonceStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nonces[keyOf(signer, nonce)], nil
}

func (m *MemoryStore) MinimumNonce(_ context.Context, signer common.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minimumLocked(signer), nil
}

func (m *MemoryStore) Grant(_ context.Context, approver, delegate common.Address) (Grant, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grants[grantKey{approver, delegate}]
	return g, ok, nil
}

// Settlements returns the recorded settlements of signer, oldest first.
func (m *MemoryStore) Settlements(_ context.Context, signer common.Address) ([]Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Settlement
	for _, s := range m.settlements {
		if s.SignerWallet == signer {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) minimumLocked(signer common.Address) *big.Int {
	if v, ok := m.minimums[signer]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Update runs fn under the write lock. Reader methods of m must not be
// called from fn; use tx instead.
func (m *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memoryTx struct {
	store *MemoryStore
	undo  []func()
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memoryTx) NonceStatus(_ context.Context, signer common.Address, nonce *big.Int) (NonceStatus, error) {
	return tx.store.nonces[keyOf(signer, nonce)], nil
}

func (tx *memoryTx) MinimumNonce(_ context.Context, signer common.Address) (*big.Int, error) {
	return tx.store.minimumLocked(signer), nil
}

func (tx *memoryTx) Grant(_ context.Context, approver, delegate common.Address) (Grant, bool, error) {
	g, ok := tx.store.grants[grantKey{approver, delegate}]
	return g, ok, nil
}

func (tx *memoryTx) SetNonceStatus(_ context.Context, signer common.Address, nonce *big.Int, status NonceStatus) error {
	key := keyOf(signer, nonce)
	prev, existed := tx.store.nonces[key]
	tx.undo = append(tx.undo, func() {
		if existed {
			tx.store.nonces[key] = prev
		} else {
			delete(tx.store.nonces, key)
		}
	})
	tx.store.nonces[key] = status
	return nil
}

func (tx *memoryTx) SetMinimumNonce(_ context.Context, signer common.Address, nonce *big.Int) error {
	prev, existed := tx.store.minimums[signer]
	tx.undo = append(tx.undo, func() {
		if existed {
			tx.store.minimums[signer] = prev
		} else {
			delete(tx.store.minimums, signer)
		}
	})
	tx.store.minimums[signer] = new(big.Int).Set(orZero(nonce))
	return nil
}

func (tx *memoryTx) PutGrant(_ context.Context, grant Grant) error {
	key := grantKey{grant.Approver, grant.Delegate}
	prev, existed := tx.store.grants[key]
	tx.undo = append(tx.undo, func() {
		if existed {
			tx.store.grants[key] = prev
		} else {
			delete(tx.store.grants, key)
		}
	})
	tx.store.grants[key] = grant
	return nil
}

func (tx *memoryTx) DeleteGrant(_ context.Context, approver, delegate common.Address) error {
	key := grantKey{approver, delegate}
	prev, existed := tx.store.grants[key]
	if !existed {
		return nil
	}
	tx.undo = append(tx.undo, func() { tx.store.grants[key] = prev })
	delete(tx.store.grants, key)
	return nil
}

func (tx *memoryTx) RecordSettlement(_ context.Context, s Settlement) error {
	n := len(tx.store.settlements)
	tx.undo = append(tx.undo, func() { tx.store.settlements = tx.store.settlements[:n] })
	tx.store.settlements = append(tx.store.settlements, s)
	return nil
}
