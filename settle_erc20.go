package swap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-protocols-sub003/chain"
)

// SettleERC20 settles a flat fungible order at the full protocol fee. The
// sender wallet may be zero, in which case caller takes the order.
func (e *Engine) SettleERC20(ctx context.Context, caller common.Address, order *chain.SignedOrderERC20) (*Receipt, error) {
	if order == nil {
		return nil, &InvalidParamError{Message: "order is required"}
	}
	return e.settle(ctx, caller, PathERC20, func(fees feeConfig) *settlement {
		return e.erc20Settlement(order, fees)
	})
}

// SettleLight settles a flat order at the light fee without rebate. The order
// is hashed with caller as its sender wallet, so only the sender the signer
// had in mind can take it.
func (e *Engine) SettleLight(ctx context.Context, caller common.Address, order *chain.SignedOrderERC20) (*Receipt, error) {
	if order == nil {
		return nil, &InvalidParamError{Message: "order is required"}
	}
	return e.settle(ctx, caller, PathLight, func(fees feeConfig) *settlement {
		return e.lightSettlement(caller, order, fees)
	})
}

func (e *Engine) erc20Settlement(signed *chain.SignedOrderERC20, fees feeConfig) *settlement {
	order := signed.Order
	order.ProtocolFee = new(big.Int).SetUint64(fees.protocolFee)
	return e.flatSettlement(&order, signed.Signature, fees.protocolFee, true)
}

func (e *Engine) lightSettlement(caller common.Address, signed *chain.SignedOrderERC20, fees feeConfig) *settlement {
	order := signed.Order
	order.SenderWallet = caller
	order.ProtocolFee = new(big.Int).SetUint64(fees.protocolFeeLight)
	return e.flatSettlement(&order, signed.Signature, fees.protocolFeeLight, false)
}

func (e *Engine) flatSettlement(order *chain.OrderERC20, sig chain.Signature, feeBps uint64, rebate bool) *settlement {
	// Flat signatures carry no version byte on the wire.
	if sig.Version == 0 {
		sig.Version = chain.VersionTypedData
	}
	s := &settlement{
		path:      PathERC20,
		signature: sig,
		nonce:     order.Nonce,
		expiry:    order.Expiry,
		signer:    order.SignerParty(),
		sender:    order.SenderParty(),
		feeBps:    feeBps,
		rebate:    rebate,
	}
	if s.checkRange() == nil {
		s.digest = chain.HashOrderERC20(e.domainERC20, order)
	}
	return s
}
