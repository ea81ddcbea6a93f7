package swap

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-protocols-sub003/chain"
)

// Check reports every reason the order would currently fail Settle when
// presented by caller. An empty result means the order would settle.
// Nothing is changed.
func (e *Engine) Check(ctx context.Context, caller common.Address, order *chain.SignedOrder) []string {
	if order == nil {
		return []string{"InvalidArgument"}
	}
	fees := e.feeConfig()
	return e.check(ctx, caller, e.swapSettlement(order, fees), fees)
}

// CheckERC20 is Check for SettleERC20.
func (e *Engine) CheckERC20(ctx context.Context, caller common.Address, order *chain.SignedOrderERC20) []string {
	if order == nil {
		return []string{"InvalidArgument"}
	}
	fees := e.feeConfig()
	return e.check(ctx, caller, e.erc20Settlement(order, fees), fees)
}

func (e *Engine) check(ctx context.Context, caller common.Address, s *settlement, fees feeConfig) []string {
	_, errs := e.evaluate(ctx, e.store, caller, s, fees, e.now(), true)
	reasons := make([]string, 0, len(errs))
	seen := make(map[string]bool, len(errs))
	for _, err := range errs {
		r := Reason(err)
		if seen[r] {
			continue
		}
		seen[r] = true
		reasons = append(reasons, r)
	}
	return reasons
}
