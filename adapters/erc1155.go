package adapters

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-protocols-sub003/chain"
)

// ERC1155 moves an amount of one id of a multi-token contract.
type ERC1155 struct {
	backend MultiTokenBackend
}

func NewERC1155(backend MultiTokenBackend) *ERC1155 {
	return &ERC1155{backend: backend}
}

func (*ERC1155) Kind() chain.TokenKind    { return chain.KindERC1155 }
func (*ERC1155) AttemptFeeTransfer() bool { return true }

func (a *ERC1155) HasAllowance(ctx context.Context, party chain.Party, spender common.Address) (bool, error) {
	return a.backend.IsApprovedForAll(ctx, party.Token, party.Wallet, spender)
}

func (a *ERC1155) HasBalance(ctx context.Context, party chain.Party) (bool, error) {
	balance, err := a.backend.BalanceOfID(ctx, party.Token, party.Wallet, party.IDOrZero())
	if err != nil {
		return false, err
	}
	return balance.Cmp(party.AmountOrZero()) >= 0, nil
}

func (a *ERC1155) Transfer(ctx context.Context, spender, from, to common.Address, amount, id *big.Int, token common.Address) error {
	return a.backend.TransferID(ctx, token, spender, from, to, orZero(id), orZero(amount))
}
