package adapters

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-protocols-sub003/chain"
)

// ERC721 moves unique-id tokens. There is no fee leg: a single id cannot
// be split.
type ERC721 struct {
	backend NFTBackend
}

func NewERC721(backend NFTBackend) *ERC721 {
	return &ERC721{backend: backend}
}

func (*ERC721) Kind() chain.TokenKind    { return chain.KindERC721 }
func (*ERC721) AttemptFeeTransfer() bool { return false }

// HasAllowance is true when spender is approved for the id or is an
// operator for all of the wallet's tokens.
func (a *ERC721) HasAllowance(ctx context.Context, party chain.Party, spender common.Address) (bool, error) {
	approved, err := a.backend.GetApproved(ctx, party.Token, party.IDOrZero())
	if err != nil {
		return false, err
	}
	if approved == spender {
		return true, nil
	}
	return a.backend.IsApprovedForAll(ctx, party.Token, party.Wallet, spender)
}

func (a *ERC721) HasBalance(ctx context.Context, party chain.Party) (bool, error) {
	owner, err := a.backend.OwnerOf(ctx, party.Token, party.IDOrZero())
	if err != nil {
		return false, err
	}
	return owner == party.Wallet, nil
}

func (a *ERC721) Transfer(ctx context.Context, spender, from, to common.Address, amount, id *big.Int, token common.Address) error {
	if orZero(amount).Sign() != 0 {
		return &InvalidArgumentError{Field: "amount"}
	}
	return a.backend.TransferNFT(ctx, token, spender, from, to, orZero(id))
}
