// Example usage of the swap settlement engine against an in-process token world
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	swap "github.com/airswap/airswap-protocols-sub003"
	"github.com/airswap/airswap-protocols-sub003/adapters"
	"github.com/airswap/airswap-protocols-sub003/chain"
	"github.com/airswap/airswap-protocols-sub003/ledger"
	"github.com/airswap/airswap-protocols-sub003/tokens"
)

// Well-known anvil development key. Never use in production.
const signerKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	sender    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	owner     = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	recipient = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")

	usdc = common.HexToAddress("0x0000000000000000000000000000000000000Ac1")
	dai  = common.HexToAddress("0x0000000000000000000000000000000000000Ac2")
	weth = common.HexToAddress("0x0000000000000000000000000000000000000Ac3")
)

func main() {
	ctx := context.Background()
	contracts := swap.DefaultContractAddresses[swap.ChainIDLocal]

	// Initialize the engine over an in-process token world
	world := tokens.NewWorld()
	config := swap.Config{
		ChainID:           swap.ChainIDLocal,
		VerifyingContract: contracts.SwapERC20,
		Owner:             owner,
		ProtocolFee:       30,
		ProtocolFeeLight:  7,
		FeeRecipient:      recipient,
		RebateScale:       10,
		RebateMax:         100,
	}
	recorder := &swap.Recorder{}
	engine, err := swap.NewEngine(config, ledger.NewMemoryStore(), adapters.Standard(world),
		swap.WithPublisher(recorder),
		swap.WithStaking(world.Staking(contracts.Staking)),
	)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	signer, err := chain.NewOrderSigner(signerKey, int64(swap.ChainIDLocal), contracts.SwapERC20)
	if err != nil {
		log.Fatalf("Failed to create order signer: %v", err)
	}

	// Fund both parties and approve the engine
	must(world.Mint(usdc, signer.Address(), units("1000", 6)))
	must(world.Approve(usdc, signer.Address(), engine.Address(), swap.MaxUint256))
	must(world.Mint(dai, sender, units("1000", 18)))
	must(world.Approve(dai, sender, engine.Address(), swap.MaxUint256))
	must(world.Mint(contracts.Staking, sender, big.NewInt(10_000_000_000)))

	// Example: Sign and settle a flat order
	order := &chain.OrderERC20{
		Nonce:        big.NewInt(1),
		Expiry:       big.NewInt(time.Now().Add(5 * time.Minute).Unix()),
		SignerWallet: signer.Address(),
		SignerToken:  usdc,
		SignerAmount: units("100", 6),
		ProtocolFee:  new(big.Int).SetUint64(engine.ProtocolFee()),
		SenderWallet: sender,
		SenderToken:  dai,
		SenderAmount: units("99.5", 18),
	}
	signed, err := signer.SignOrderERC20(order)
	if err != nil {
		log.Fatalf("Failed to sign order: %v", err)
	}

	fmt.Println("Checking order...")
	if reasons := engine.CheckERC20(ctx, sender, signed); len(reasons) > 0 {
		log.Fatalf("Order would fail: %v", reasons)
	}

	receipt, err := engine.SettleERC20(ctx, sender, signed)
	if err != nil {
		log.Fatalf("Failed to settle order: %v", err)
	}
	fmt.Printf("Settled %s: fee %s, rebate %s\n", receipt.OrderHash.Hex(), receipt.Fee, receipt.Rebate)

	// Example: Replaying the same order fails
	if _, err := engine.SettleERC20(ctx, sender, signed); err != nil {
		fmt.Printf("Replay rejected: %s\n", swap.Reason(err))
	}

	// Example: Cancel an order before it is taken
	if err := engine.Cancel(ctx, signer.Address(), []*big.Int{big.NewInt(2)}); err != nil {
		log.Fatalf("Failed to cancel: %v", err)
	}

	// Example: Take an order paying in native currency through the wrapper
	w, err := swap.NewWrapper(engine, world, weth, contracts.Wrapper)
	if err != nil {
		log.Fatalf("Failed to create wrapper: %v", err)
	}
	must(world.SetNative(sender, units("1", 18)))

	wrapped := *order
	wrapped.Nonce = big.NewInt(3)
	wrapped.SenderWallet = w.Address()
	wrapped.SenderToken = weth
	wrapped.SenderAmount = units("0.05", 18)
	signedWrapped, err := signer.SignOrderERC20(&wrapped)
	if err != nil {
		log.Fatalf("Failed to sign order: %v", err)
	}
	receipt, err = w.Swap(ctx, sender, wrapped.SenderAmount, signedWrapped)
	if err != nil {
		log.Fatalf("Failed to swap through wrapper: %v", err)
	}
	fmt.Printf("Wrapped swap %s: sender received %s\n", receipt.OrderHash.Hex(), receipt.SenderReceived)

	for _, ev := range recorder.Events() {
		fmt.Printf("event %s %s\n", ev.Kind, ev.ID)
	}
}

func units(amount string, decimals int) *big.Int {
	v, err := swap.ToBaseUnits(amount, decimals)
	if err != nil {
		log.Fatalf("Invalid amount %s: %v", amount, err)
	}
	return v
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
