package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers eth_call by decoding the selector against known ABIs.
type fakeBackend struct {
	abis    []abi.ABI
	answers map[string]interface{}
	calls   []string
}

func (f *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	for _, contract := range f.abis {
		method, err := contract.MethodById(call.Data[:4])
		if err != nil {
			continue
		}
		f.calls = append(f.calls, fmt.Sprintf("%s@%s", method.Name, call.To.Hex()))
		answer, ok := f.answers[method.Name]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack(answer)
	}
	return nil, errors.New("unknown selector")
}

func TestContractCallerReads(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		abis: []abi.ABI{GetERC20ABI(), GetERC721ABI(), GetERC777ABI()},
		answers: map[string]interface{}{
			"balanceOf":        big.NewInt(1000),
			"allowance":        big.NewInt(250),
			"ownerOf":          testSigner,
			"getApproved":      testContract,
			"isApprovedForAll": true,
			"isOperatorFor":    false,
			"totalSupply":      big.NewInt(5000),
		},
	}
	cc := NewContractCallerWithBackend(backend)

	balance, err := cc.BalanceOf(ctx, tokenA, testSigner)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance.Int64())

	allowance, err := cc.Allowance(ctx, tokenA, testSigner, testContract)
	require.NoError(t, err)
	assert.Equal(t, int64(250), allowance.Int64())

	owner, err := cc.OwnerOf(ctx, tokenB, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, testSigner, owner)

	approved, err := cc.GetApproved(ctx, tokenB, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, testContract, approved)

	all, err := cc.IsApprovedForAll(ctx, tokenB, testSigner, testContract)
	require.NoError(t, err)
	assert.True(t, all)

	operator, err := cc.IsOperatorFor(ctx, tokenA, testContract, testSigner)
	require.NoError(t, err)
	assert.False(t, operator)

	staking := cc.Staking(testContract)
	staked, err := staking.StakedBalanceOf(ctx, testSender)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), staked.Int64())
	total, err := staking.TotalStaked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), total.Int64())

	assert.Contains(t, backend.calls, "totalSupply@"+testContract.Hex())
}

func TestContractCallerErrors(t *testing.T) {
	ctx := context.Background()
	cc := NewContractCallerWithBackend(&fakeBackend{abis: []abi.ABI{GetERC20ABI()}, answers: map[string]interface{}{}})

	_, err := cc.BalanceOf(ctx, tokenA, testSigner)
	assert.ErrorContains(t, err, "execution reverted")

	assert.ErrorIs(t, cc.TransferFrom(ctx, tokenA, testContract, testSigner, testSender, big.NewInt(1)), ErrReadOnly)
	assert.ErrorIs(t, cc.TransferNFT(ctx, tokenA, testContract, testSigner, testSender, big.NewInt(1)), ErrReadOnly)
	assert.ErrorIs(t, cc.TransferID(ctx, tokenA, testContract, testSigner, testSender, big.NewInt(1), big.NewInt(1)), ErrReadOnly)
	assert.ErrorIs(t, cc.OperatorSend(ctx, tokenA, testContract, testSigner, testSender, big.NewInt(1)), ErrReadOnly)
}
