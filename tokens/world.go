// Package tokens is an in-process token world: fungible, unique-id,
// multi-id and operator-style tokens plus native currency, with
// snapshot/revert journaling. It implements the backends the transfer
// adapters need, so settlements can run without a chain.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token errors
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotOwner              = errors.New("not token owner")
	ErrNotApproved           = errors.New("caller is not approved")
	ErrFrozen                = errors.New("wallet is frozen")
	ErrInvalidSnapshot       = errors.New("invalid snapshot id")
	ErrNegativeAmount        = errors.New("negative amount")
)

type balanceKey struct {
	token common.Address
	owner common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

type idKey struct {
	token common.Address
	id    string
}

type multiKey struct {
	token common.Address
	owner common.Address
	id    string
}

// World holds every token balance. It is safe for concurrent use.
type World struct {
	mu sync.Mutex

	balances   map[balanceKey]*big.Int
	supply     map[common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
	owners     map[idKey]common.Address
	approvals  map[idKey]common.Address
	operators  map[allowanceKey]bool
	multi      map[multiKey]*big.Int
	native     map[common.Address]*big.Int
	frozen     map[balanceKey]bool

	// journal holds undo steps while a snapshot or an atomic call is open.
	journal   []func()
	snapshots int
	depth     int
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		balances:   make(map[balanceKey]*big.Int),
		supply:     make(map[common.Address]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		owners:     make(map[idKey]common.Address),
		approvals:  make(map[idKey]common.Address),
		operators:  make(map[allowanceKey]bool),
		multi:      make(map[multiKey]*big.Int),
		native:     make(map[common.Address]*big.Int),
		frozen:     make(map[balanceKey]bool),
	}
}

// set writes m[k] = v and journals the previous value.
func set[K comparable, V any](w *World, m map[K]V, k K, v V) {
	prev, existed := m[k]
	if w.snapshots > 0 || w.depth > 0 {
		w.journal = append(w.journal, func() {
			if existed {
				m[k] = prev
			} else {
				delete(m, k)
			}
		})
	}
	m[k] = v
}

func amountOf[K comparable](m map[K]*big.Int, k K) *big.Int {
	if v, ok := m[k]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func idString(id *big.Int) string {
	if id == nil {
		return "0"
	}
	return id.String()
}

func checkAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return new(big.Int), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	return amount, nil
}

// atomic runs fn with w.mu held and undoes its writes if it fails, the way
// a reverted token call leaves no trace.
func (w *World) atomic(fn func() error) error {
	mark := len(w.journal)
	w.depth++
	err := fn()
	if err != nil {
		w.undo(mark)
	}
	w.depth--
	w.trim()
	return err
}

func (w *World) undo(mark int) {
	for i := len(w.journal) - 1; i >= mark; i-- {
		w.journal[i]()
	}
	clear(w.journal[mark:])
	w.journal = w.journal[:mark]
}

// trim drops undo steps nobody can revert to any more.
func (w *World) trim() {
	if w.snapshots == 0 && w.depth == 0 {
		clear(w.journal)
		w.journal = w.journal[:0]
	}
}

// Snapshot returns an id that RevertToSnapshot can roll back to. Each
// snapshot must be closed with RevertToSnapshot or DiscardSnapshot.
func (w *World) Snapshot() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshots++
	return len(w.journal)
}

// RevertToSnapshot undoes every change made since the snapshot was taken.
func (w *World) RevertToSnapshot(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.checkSnapshot(id)
	w.undo(id)
	w.snapshots--
	w.trim()
}

// DiscardSnapshot keeps the changes made since the snapshot was taken.
func (w *World) DiscardSnapshot(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.checkSnapshot(id)
	w.snapshots--
	w.trim()
}

// JournalLen reports how many undo steps are held.
func (w *World) JournalLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.journal)
}

func (w *World) checkSnapshot(id int) {
	if w.snapshots == 0 || id < 0 || id > len(w.journal) {
		panic(fmt.Errorf("%w: %d", ErrInvalidSnapshot, id))
	}
}

// Freeze makes every transfer of token into or out of wallet fail.
func (w *World) Freeze(token, wallet common.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	set(w, w.frozen, balanceKey{token, wallet}, true)
}

// Unfreeze lifts a Freeze.
func (w *World) Unfreeze(token, wallet common.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	set(w, w.frozen, balanceKey{token, wallet}, false)
}

func (w *World) checkFrozen(token common.Address, wallets ...common.Address) error {
	for _, wallet := range wallets {
		if w.frozen[balanceKey{token, wallet}] {
			return fmt.Errorf("%w: %s on %s", ErrFrozen, wallet.Hex(), token.Hex())
		}
	}
	return nil
}

// Mint credits amount of a fungible token to wallet.
func (w *World) Mint(token, to common.Address, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.credit(token, to, amount)
	return nil
}

func (w *World) credit(token, to common.Address, amount *big.Int) {
	key := balanceKey{token, to}
	set(w, w.balances, key, new(big.Int).Add(amountOf(w.balances, key), amount))
	set(w, w.supply, token, new(big.Int).Add(amountOf(w.supply, token), amount))
}

func (w *World) debit(token, from common.Address, amount *big.Int) error {
	key := balanceKey{token, from}
	balance := amountOf(w.balances, key)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s of %s, needs %s", ErrInsufficientBalance, from.Hex(), balance, token.Hex(), amount)
	}
	set(w, w.balances, key, balance.Sub(balance, amount))
	set(w, w.supply, token, new(big.Int).Sub(amountOf(w.supply, token), amount))
	return nil
}

func (w *World) move(token, from, to common.Address, amount *big.Int) error {
	if err := w.checkFrozen(token, from, to); err != nil {
		return err
	}
	if err := w.debit(token, from, amount); err != nil {
		return err
	}
	w.credit(token, to, amount)
	return nil
}

// Approve sets the allowance of spender over owner's token.
func (w *World) Approve(token, owner, spender common.Address, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	set(w, w.allowances, allowanceKey{token, owner, spender}, new(big.Int).Set(amount))
	return nil
}

// SetApprovalForAll makes operator a blanket operator of owner's token. It
// covers unique-id and multi-id tokens and operator-style fungible tokens.
func (w *World) SetApprovalForAll(token, owner, operator common.Address, approved bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	set(w, w.operators, allowanceKey{token, owner, operator}, approved)
}

func (w *World) BalanceOf(_ context.Context, token, owner common.Address) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return amountOf(w.balances, balanceKey{token, owner}), nil
}

// TotalSupply returns the sum of all fungible balances of token.
func (w *World) TotalSupply(_ context.Context, token common.Address) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return amountOf(w.supply, token), nil
}

func (w *World) Allowance(_ context.Context, token, owner, spender common.Address) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return amountOf(w.allowances, allowanceKey{token, owner, spender}), nil
}

// TransferFrom moves amount from one wallet to another, spending the
// allowance of spender unless spender is the owner.
func (w *World) TransferFrom(_ context.Context, token, spender, from, to common.Address, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.atomic(func() error {
		if spender != from {
			key := allowanceKey{token, from, spender}
			allowance := amountOf(w.allowances, key)
			if allowance.Cmp(amount) < 0 {
				return fmt.Errorf("%w: %s may spend %s of %s, needs %s", ErrInsufficientAllowance, spender.Hex(), allowance, from.Hex(), amount)
			}
			set(w, w.allowances, key, allowance.Sub(allowance, amount))
		}
		return w.move(token, from, to, amount)
	})
}
