package adapters

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FungibleBackend is the ERC20 surface.
type FungibleBackend interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *big.Int) error
}

// NFTBackend is the ERC721 surface.
type NFTBackend interface {
	OwnerOf(ctx context.Context, token common.Address, id *big.Int) (common.Address, error)
	GetApproved(ctx context.Context, token common.Address, id *big.Int) (common.Address, error)
	IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error)
	TransferNFT(ctx context.Context, token, operator, from, to common.Address, id *big.Int) error
}

// MultiTokenBackend is the ERC1155 surface.
type MultiTokenBackend interface {
	BalanceOfID(ctx context.Context, token, owner common.Address, id *big.Int) (*big.Int, error)
	IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error)
	TransferID(ctx context.Context, token, operator, from, to common.Address, id, amount *big.Int) error
}

// OperatorBackend is the ERC777 surface.
type OperatorBackend interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	IsOperatorFor(ctx context.Context, token, operator, holder common.Address) (bool, error)
	OperatorSend(ctx context.Context, token, operator, from, to common.Address, amount *big.Int) error
}
