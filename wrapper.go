package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-protocols-sub003/chain"
	"github.com/airswap/airswap-protocols-sub003/ledger"
)

// WrapperBackend is the token surface the Wrapper needs: native currency,
// the wrapped-native token and plain fungible transfers. tokens.World
// implements it.
type WrapperBackend interface {
	TransferNative(ctx context.Context, from, to common.Address, amount *big.Int) error
	Deposit(ctx context.Context, token, wallet common.Address, amount *big.Int) error
	Withdraw(ctx context.Context, token, wallet common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *big.Int) error
	Approve(token, owner, spender common.Address, amount *big.Int) error
}

// Wrapper lets a sender pay or be paid in native currency for flat orders
// quoted in the wrapped token. Orders must name the wrapper as sender
// wallet; the wrapper takes them with SettleERC20 semantics and forwards
// what it receives to its caller.
type Wrapper struct {
	engine  *Engine
	backend WrapperBackend
	wrapped common.Address
	address common.Address
}

// NewWrapper creates a Wrapper acting as address and converting through the
// wrapped token.
func NewWrapper(engine *Engine, backend WrapperBackend, wrapped, address common.Address) (*Wrapper, error) {
	if engine == nil || backend == nil {
		return nil, &InvalidParamError{Message: "wrapper needs an engine and a token backend"}
	}
	if wrapped == (common.Address{}) || address == (common.Address{}) {
		return nil, &InvalidParamError{Message: "wrapper needs the wrapped token and its own address"}
	}
	return &Wrapper{engine: engine, backend: backend, wrapped: wrapped, address: address}, nil
}

// Address is the wallet orders for the wrapper name as sender.
func (w *Wrapper) Address() common.Address { return w.address }

// Swap settles order on behalf of caller. value is the native currency sent
// along; it must equal the sender amount when the sender token is the
// wrapped token and be zero otherwise. If the signer token is the wrapped
// token, caller receives native currency.
func (w *Wrapper) Swap(ctx context.Context, caller common.Address, value *big.Int, order *chain.SignedOrderERC20) (*Receipt, error) {
	if order == nil {
		return nil, &InvalidParamError{Message: "order is required"}
	}
	value = bigOrZero(value)

	e := w.engine
	var (
		receipt *Receipt
		s       *settlement
	)
	err := e.update(ctx, func(tx ledger.Tx) ([]Event, error) {
		fees := e.feeConfig()
		s = e.erc20Settlement(order, fees)
		s.path = PathWrapped
		r, err := w.swapTx(ctx, tx, caller, value, s, fees)
		if err != nil {
			return nil, err
		}
		receipt = r
		return []Event{swapEvent(r)}, nil
	})
	if err != nil {
		e.rejected(PathWrapped, s, err)
		return nil, err
	}
	e.settled(receipt)
	return receipt, nil
}

func (w *Wrapper) swapTx(ctx context.Context, tx ledger.Tx, caller common.Address, value *big.Int, s *settlement, fees feeConfig) (*Receipt, error) {
	if err := s.checkRange(); err != nil {
		return nil, err
	}
	if caller == (common.Address{}) {
		return nil, &InvalidParamError{Message: "caller is required"}
	}
	if s.sender.Wallet != w.address {
		return nil, ErrSenderUnauthorized
	}

	amount := s.sender.AmountOrZero()
	if s.sender.Token == w.wrapped {
		if value.Cmp(amount) != 0 {
			return nil, ErrValueMustBeSent
		}
		if err := w.backend.TransferNative(ctx, caller, w.address, value); err != nil {
			return nil, fmt.Errorf("%w: native in: %w", ErrTransferFailed, err)
		}
		if err := w.backend.Deposit(ctx, w.wrapped, w.address, value); err != nil {
			return nil, fmt.Errorf("%w: wrap: %w", ErrTransferFailed, err)
		}
	} else {
		if value.Sign() != 0 {
			return nil, ErrValueMustBeZero
		}
		if err := w.backend.TransferFrom(ctx, s.sender.Token, w.address, caller, w.address, amount); err != nil {
			return nil, fmt.Errorf("%w: sender token in: %w", ErrTransferFailed, err)
		}
	}
	if err := w.backend.Approve(s.sender.Token, w.address, w.engine.address, amount); err != nil {
		return nil, err
	}

	receipt, err := w.engine.settleTx(ctx, tx, w.address, s, fees)
	if err != nil {
		return nil, err
	}

	out := receipt.SenderReceived
	if receipt.SignerToken == w.wrapped {
		if err := w.backend.Withdraw(ctx, w.wrapped, w.address, out); err != nil {
			return nil, fmt.Errorf("%w: unwrap: %w", ErrTransferFailed, err)
		}
		if err := w.backend.TransferNative(ctx, w.address, caller, out); err != nil {
			return nil, fmt.Errorf("%w: native out: %w", ErrTransferFailed, err)
		}
	} else if err := w.backend.TransferFrom(ctx, receipt.SignerToken, w.address, w.address, caller, out); err != nil {
		return nil, fmt.Errorf("%w: signer token out: %w", ErrTransferFailed, err)
	}

	if err := w.requireEmpty(ctx, receipt.SignerToken, ErrSignerBalanceRemaining); err != nil {
		return nil, err
	}
	if err := w.requireEmpty(ctx, w.wrapped, ErrWrappedBalanceRemaining); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (w *Wrapper) requireEmpty(ctx context.Context, token common.Address, remaining error) error {
	balance, err := w.backend.BalanceOf(ctx, token, w.address)
	if err != nil {
		return err
	}
	if balance.Sign() != 0 {
		return remaining
	}
	return nil
}
