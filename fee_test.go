package swap

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateFee(t *testing.T) {
	tests := []struct {
		amount int64
		bps    uint64
		want   int64
	}{
		{10_000, 30, 30},
		{10_000, 7, 7},
		{333, 30, 0},
		{1_000_000, 9_999, 999_900},
		{0, 30, 0},
		{10_000, 0, 0},
	}
	for _, tt := range tests {
		got := CalculateFee(big.NewInt(tt.amount), tt.bps)
		assert.Equal(t, tt.want, got.Int64(), "amount %d at %d bps", tt.amount, tt.bps)
	}
	assert.Equal(t, int64(0), CalculateFee(nil, 30).Int64())
}

func TestCalculateRebate(t *testing.T) {
	e10 := big.NewInt(10_000_000_000)
	e30, _ := new(big.Int).SetString("1000000000000000000000000000000", 10)

	tests := []struct {
		name          string
		fee           int64
		staked, total *big.Int
		scale, max    uint64
		want          int64
	}{
		{"stake equal to scale", 30, e10, e10, 10, 100, 15},
		{"large stake approaches max", 30, e30, e30, 10, 100, 29},
		{"max caps the share", 30, e30, e30, 10, 50, 14},
		{"no stake", 30, big.NewInt(0), e10, 10, 100, 0},
		{"nothing staked in total", 30, e10, big.NewInt(0), 10, 100, 0},
		{"zero max", 30, e10, e10, 10, 0, 0},
		{"zero fee", 0, e10, e10, 10, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRebate(big.NewInt(tt.fee), tt.staked, tt.total, tt.scale, tt.max)
			assert.Equal(t, tt.want, got.Int64())
			assert.LessOrEqual(t, got.Int64(), tt.fee)
		})
	}
}

type failingStaking struct{}

func (failingStaking) StakedBalanceOf(context.Context, common.Address) (*big.Int, error) {
	return nil, errors.New("rpc down")
}

func (failingStaking) TotalStaked(context.Context) (*big.Int, error) {
	return nil, errors.New("rpc down")
}

func TestCalculateProtocolFee(t *testing.T) {
	f := newFixture(t)

	fee, err := f.engine.CalculateProtocolFee(f.ctx, senderAddr, big.NewInt(10_000))
	require.NoError(t, err)
	assert.Equal(t, int64(30), fee.Int64())

	require.NoError(t, f.engine.SetStaking(f.ctx, owner, f.world.Staking(stakeToken)))
	require.NoError(t, f.world.Mint(stakeToken, senderAddr, big.NewInt(10_000_000_000)))
	fee, err = f.engine.CalculateProtocolFee(f.ctx, senderAddr, big.NewInt(10_000))
	require.NoError(t, err)
	assert.Equal(t, int64(15), fee.Int64())

	require.NoError(t, f.engine.SetStaking(f.ctx, owner, failingStaking{}))
	_, err = f.engine.CalculateProtocolFee(f.ctx, senderAddr, big.NewInt(10_000))
	assert.Error(t, err)

	_, err = f.engine.SettleERC20(f.ctx, senderAddr, f.signERC20(f.orderERC20(1)))
	require.Error(t, err)
	assert.Equal(t, "Internal", Reason(err))
	assert.Equal(t, int64(1_000_000), f.balance(tokenA, signerAddr))
}
