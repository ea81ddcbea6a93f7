package adapters

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-protocols-sub003/chain"
)

// ERC20 moves fungible tokens through allowance-based transferFrom.
type ERC20 struct {
	backend FungibleBackend
}

func NewERC20(backend FungibleBackend) *ERC20 {
	return &ERC20{backend: backend}
}

func (*ERC20) Kind() chain.TokenKind    { return chain.KindERC20 }
func (*ERC20) AttemptFeeTransfer() bool { return true }

func (a *ERC20) HasAllowance(ctx context.Context, party chain.Party, spender common.Address) (bool, error) {
	allowance, err := a.backend.Allowance(ctx, party.Token, party.Wallet, spender)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(party.AmountOrZero()) >= 0, nil
}

func (a *ERC20) HasBalance(ctx context.Context, party chain.Party) (bool, error) {
	balance, err := a.backend.BalanceOf(ctx, party.Token, party.Wallet)
	if err != nil {
		return false, err
	}
	return balance.Cmp(party.AmountOrZero()) >= 0, nil
}

func (a *ERC20) Transfer(ctx context.Context, spender, from, to common.Address, amount, id *big.Int, token common.Address) error {
	if orZero(id).Sign() != 0 {
		return &InvalidArgumentError{Field: "id"}
	}
	return a.backend.TransferFrom(ctx, token, spender, from, to, orZero(amount))
}
