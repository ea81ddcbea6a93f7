package adapters

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-protocols-sub003/chain"
)

// ERC777 moves operator-style fungible tokens with operatorSend.
type ERC777 struct {
	backend OperatorBackend
}

func NewERC777(backend OperatorBackend) *ERC777 {
	return &ERC777{backend: backend}
}

func (*ERC777) Kind() chain.TokenKind    { return chain.KindERC777 }
func (*ERC777) AttemptFeeTransfer() bool { return true }

func (a *ERC777) HasAllowance(ctx context.Context, party chain.Party, spender common.Address) (bool, error) {
	return a.backend.IsOperatorFor(ctx, party.Token, spender, party.Wallet)
}

func (a *ERC777) HasBalance(ctx context.Context, party chain.Party) (bool, error) {
	balance, err := a.backend.BalanceOf(ctx, party.Token, party.Wallet)
	if err != nil {
		return false, err
	}
	return balance.Cmp(party.AmountOrZero()) >= 0, nil
}

func (a *ERC777) Transfer(ctx context.Context, spender, from, to common.Address, amount, id *big.Int, token common.Address) error {
	if orZero(id).Sign() != 0 {
		return &InvalidArgumentError{Field: "id"}
	}
	return a.backend.OperatorSend(ctx, token, spender, from, to, orZero(amount))
}
