package tokens

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SetNative sets the native currency balance of wallet.
func (w *World) SetNative(wallet common.Address, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	set(w, w.native, wallet, new(big.Int).Set(amount))
	return nil
}

// NativeBalance returns the native currency balance of wallet.
func (w *World) NativeBalance(_ context.Context, wallet common.Address) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return amountOf(w.native, wallet), nil
}

// TransferNative moves native currency.
func (w *World) TransferNative(_ context.Context, from, to common.Address, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.atomic(func() error { return w.moveNative(from, to, amount) })
}

func (w *World) moveNative(from, to common.Address, amount *big.Int) error {
	balance := amountOf(w.native, from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s native, needs %s", ErrInsufficientBalance, from.Hex(), balance, amount)
	}
	set(w, w.native, from, balance.Sub(balance, amount))
	set(w, w.native, to, new(big.Int).Add(amountOf(w.native, to), amount))
	return nil
}

// Deposit wraps native currency: wallet's native balance moves into the
// wrapped token contract and wallet is credited the same amount of token.
func (w *World) Deposit(_ context.Context, token, wallet common.Address, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.atomic(func() error {
		if err := w.moveNative(wallet, token, amount); err != nil {
			return err
		}
		w.credit(token, wallet, amount)
		return nil
	})
}

// Withdraw unwraps: wallet's token balance is burnt and the wrapped token
// contract pays out the same amount of native currency.
func (w *World) Withdraw(_ context.Context, token, wallet common.Address, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.atomic(func() error {
		if err := w.checkFrozen(token, wallet); err != nil {
			return err
		}
		if err := w.debit(token, wallet, amount); err != nil {
			return err
		}
		return w.moveNative(token, wallet, amount)
	})
}

// Staking reads staked balances from a fungible staking token.
type Staking struct {
	world *World
	token common.Address
}

// Staking treats token balances as staked balances and its supply as the
// total staked amount.
func (w *World) Staking(token common.Address) *Staking {
	return &Staking{world: w, token: token}
}

func (s *Staking) StakedBalanceOf(ctx context.Context, wallet common.Address) (*big.Int, error) {
	return s.world.BalanceOf(ctx, s.token, wallet)
}

func (s *Staking) TotalStaked(ctx context.Context) (*big.Int, error) {
	return s.world.TotalSupply(ctx, s.token)
}
