package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrReadOnly is returned by the transfer methods of ContractCaller.
var ErrReadOnly = errors.New("contract caller is read-only")

// ContractBackend is the subset of ethclient.Client used for reads.
type ContractBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ContractCaller reads token and staking state from a live chain. It backs
// the dry-run checker; it never sends transactions.
type ContractCaller struct {
	backend ContractBackend
	client  *ethclient.Client
	erc20   abi.ABI
	erc721  abi.ABI
	erc1155 abi.ABI
	erc777  abi.ABI
	staking abi.ABI
}

// NewContractCaller connects to an RPC endpoint.
func NewContractCaller(ctx context.Context, rpcURL string) (*ContractCaller, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	cc := NewContractCallerWithBackend(client)
	cc.client = client
	return cc, nil
}

// NewContractCallerWithBackend wraps an existing backend.
func NewContractCallerWithBackend(backend ContractBackend) *ContractCaller {
	return &ContractCaller{
		backend: backend,
		erc20:   GetERC20ABI(),
		erc721:  GetERC721ABI(),
		erc1155: GetERC1155ABI(),
		erc777:  GetERC777ABI(),
		staking: GetStakingABI(),
	}
}

// Close closes the Ethereum client connection
func (cc *ContractCaller) Close() {
	if cc.client != nil {
		cc.client.Close()
	}
}

func (cc *ContractCaller) call(ctx context.Context, contract abi.ABI, to common.Address, out interface{}, method string, args ...interface{}) error {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := cc.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}

	if err := contract.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return nil
}

// BalanceOf returns the ERC20 balance for an account
func (cc *ContractCaller) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := cc.call(ctx, cc.erc20, token, &balance, "balanceOf", owner); err != nil {
		return nil, err
	}
	return balance, nil
}

// Allowance returns the ERC20 allowance for owner to spender
func (cc *ContractCaller) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := cc.call(ctx, cc.erc20, token, &allowance, "allowance", owner, spender); err != nil {
		return nil, err
	}
	return allowance, nil
}

// OwnerOf returns the owner of an ERC721 token id
func (cc *ContractCaller) OwnerOf(ctx context.Context, token common.Address, id *big.Int) (common.Address, error) {
	var owner common.Address
	if err := cc.call(ctx, cc.erc721, token, &owner, "ownerOf", id); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

// GetApproved returns the approved operator of an ERC721 token id
func (cc *ContractCaller) GetApproved(ctx context.Context, token common.Address, id *big.Int) (common.Address, error) {
	var approved common.Address
	if err := cc.call(ctx, cc.erc721, token, &approved, "getApproved", id); err != nil {
		return common.Address{}, err
	}
	return approved, nil
}

// IsApprovedForAll checks blanket operator approval (ERC721 and ERC1155 share the selector)
func (cc *ContractCaller) IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error) {
	var approved bool
	if err := cc.call(ctx, cc.erc721, token, &approved, "isApprovedForAll", owner, operator); err != nil {
		return false, err
	}
	return approved, nil
}

// BalanceOfID returns the ERC1155 balance of one id
func (cc *ContractCaller) BalanceOfID(ctx context.Context, token, owner common.Address, id *big.Int) (*big.Int, error) {
	var balance *big.Int
	if err := cc.call(ctx, cc.erc1155, token, &balance, "balanceOf", owner, id); err != nil {
		return nil, err
	}
	return balance, nil
}

// IsOperatorFor checks ERC777 operator status
func (cc *ContractCaller) IsOperatorFor(ctx context.Context, token, operator, holder common.Address) (bool, error) {
	var ok bool
	if err := cc.call(ctx, cc.erc777, token, &ok, "isOperatorFor", operator, holder); err != nil {
		return false, err
	}
	return ok, nil
}

// TransferFrom always fails: ContractCaller only reads.
func (cc *ContractCaller) TransferFrom(context.Context, common.Address, common.Address, common.Address, common.Address, *big.Int) error {
	return ErrReadOnly
}

// TransferNFT always fails: ContractCaller only reads.
func (cc *ContractCaller) TransferNFT(context.Context, common.Address, common.Address, common.Address, common.Address, *big.Int) error {
	return ErrReadOnly
}

// TransferID always fails: ContractCaller only reads.
func (cc *ContractCaller) TransferID(context.Context, common.Address, common.Address, common.Address, common.Address, *big.Int, *big.Int) error {
	return ErrReadOnly
}

// OperatorSend always fails: ContractCaller only reads.
func (cc *ContractCaller) OperatorSend(context.Context, common.Address, common.Address, common.Address, common.Address, *big.Int) error {
	return ErrReadOnly
}

// StakingContract is a staking lookup backed by an on-chain staking contract.
type StakingContract struct {
	caller  *ContractCaller
	address common.Address
}

// Staking returns a staking lookup for the contract at address.
func (cc *ContractCaller) Staking(address common.Address) *StakingContract {
	return &StakingContract{caller: cc, address: address}
}

// StakedBalanceOf returns the staked balance of wallet.
func (s *StakingContract) StakedBalanceOf(ctx context.Context, wallet common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := s.caller.call(ctx, s.caller.staking, s.address, &balance, "balanceOf", wallet); err != nil {
		return nil, err
	}
	return balance, nil
}

// TotalStaked returns the total staked supply.
func (s *StakingContract) TotalStaked(ctx context.Context) (*big.Int, error) {
	var total *big.Int
	if err := s.caller.call(ctx, s.caller.staking, s.address, &total, "totalSupply"); err != nil {
		return nil, err
	}
	return total, nil
}
