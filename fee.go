package swap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StakingLookup reports staked balances. chain.StakingContract and
// tokens.Staking implement it.
type StakingLookup interface {
	StakedBalanceOf(ctx context.Context, wallet common.Address) (*big.Int, error)
	TotalStaked(ctx context.Context) (*big.Int, error)
}

var (
	feeDivisor = big.NewInt(FeeDivisor)
	hundred    = big.NewInt(100)
)

// CalculateFee returns floor(amount * bps / 10000).
func CalculateFee(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return fee.Quo(fee, feeDivisor)
}

// CalculateRebate returns the part of fee paid back to a wallet holding
// staked out of totalStaked:
//
//	floor(rebateMax * staked * fee / (10^rebateScale + staked) / 100)
//
// The rebate approaches rebateMax percent of the fee as the stake grows and
// is never more than that. Nothing is rebated without stake.
func CalculateRebate(fee, staked, totalStaked *big.Int, rebateScale, rebateMax uint64) *big.Int {
	if fee == nil || staked == nil || totalStaked == nil ||
		fee.Sign() <= 0 || staked.Sign() <= 0 || totalStaked.Sign() <= 0 || rebateMax == 0 {
		return new(big.Int)
	}
	divisor := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(rebateScale), nil)
	divisor.Add(divisor, staked)

	rebate := new(big.Int).SetUint64(rebateMax)
	rebate.Mul(rebate, staked)
	rebate.Mul(rebate, fee)
	rebate.Quo(rebate, divisor)
	rebate.Quo(rebate, hundred)
	if rebate.Cmp(fee) > 0 {
		rebate.Set(fee)
	}
	return rebate
}

// CalculateProtocolFee returns what the fee recipient would keep from an
// order of amount settled at the full protocol fee with wallet as sender:
// the fee minus the wallet's rebate.
func (e *Engine) CalculateProtocolFee(ctx context.Context, wallet common.Address, amount *big.Int) (*big.Int, error) {
	fees := e.feeConfig()
	fee := CalculateFee(amount, fees.protocolFee)
	rebate, err := e.rebate(ctx, fees, wallet, fee)
	if err != nil {
		return nil, err
	}
	return fee.Sub(fee, rebate), nil
}

func (e *Engine) rebate(ctx context.Context, fees feeConfig, wallet common.Address, fee *big.Int) (*big.Int, error) {
	if fees.staking == nil || fee.Sign() == 0 {
		return new(big.Int), nil
	}
	staked, err := fees.staking.StakedBalanceOf(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if staked.Sign() == 0 {
		return new(big.Int), nil
	}
	total, err := fees.staking.TotalStaked(ctx)
	if err != nil {
		return nil, err
	}
	return CalculateRebate(fee, staked, total, fees.rebateScale, fees.rebateMax), nil
}
