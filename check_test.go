package swap

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airswap/airswap-protocols-sub003/chain"
)

func TestCheckERC20Clean(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.engine.CheckERC20(f.ctx, senderAddr, f.signERC20(f.orderERC20(1))))
}

func TestCheckERC20ReportsEverything(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Cancel(f.ctx, signerAddr, []*big.Int{big.NewInt(1)}))

	order := f.orderERC20(1)
	order.Expiry = big.NewInt(f.now.Unix() - 1)
	order.SignerAmount = big.NewInt(2_000_000)

	reasons := f.engine.CheckERC20(f.ctx, senderAddr, f.signERC20(order))
	assert.Equal(t, []string{
		"OrderExpired",
		"NonceAlreadyUsed",
		"SignerAllowanceLow",
		"SignerBalanceLow",
	}, reasons)
}

func TestCheckERC20SenderAndSignature(t *testing.T) {
	f := newFixture(t)
	order := f.orderERC20(1)
	order.SenderAmount = big.NewInt(2_000_000)
	signed := f.signERC20(order)
	signed.Signature.S = signed.Signature.R

	reasons := f.engine.CheckERC20(f.ctx, stranger, signed)
	assert.Contains(t, reasons, "SenderUnauthorized")
	assert.Contains(t, reasons, "SignatureInvalid")
	assert.Contains(t, reasons, "SenderAllowanceLow")
	assert.Contains(t, reasons, "SenderBalanceLow")
}

func TestCheckAnySenderSkipsSenderLeg(t *testing.T) {
	f := newFixture(t)
	order := f.orderERC20(1)
	order.SenderWallet = ZeroAddress

	// stranger holds nothing, but nobody is committed to the sender leg yet.
	assert.Empty(t, f.engine.CheckERC20(f.ctx, stranger, f.signERC20(order)))
}

func TestCheckDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	signed := f.signERC20(f.orderERC20(1))

	require.Empty(t, f.engine.CheckERC20(f.ctx, senderAddr, signed))
	require.Empty(t, f.engine.CheckERC20(f.ctx, senderAddr, signed))

	used, err := f.engine.NonceUsed(f.ctx, signerAddr, big.NewInt(1))
	require.NoError(t, err)
	assert.False(t, used)
	assert.Equal(t, int64(1_000_000), f.balance(tokenA, signerAddr))
	assert.Empty(t, f.events.Events())
}

func TestCheck(t *testing.T) {
	f := newFixture(t)
	f.world.MintNFT(nftToken, stranger, big.NewInt(7))

	order := f.order(1,
		chain.Party{Wallet: signerAddr, Token: nftToken, Kind: chain.KindERC721, ID: big.NewInt(7)},
		erc20Party(senderAddr, tokenB, 5_000),
	)
	reasons := f.engine.Check(f.ctx, senderAddr, f.sign(order, chain.VersionTypedData))
	assert.Equal(t, []string{"SignerAllowanceLow", "SignerBalanceLow"}, reasons)

	assert.Equal(t, []string{"InvalidArgument"}, f.engine.Check(f.ctx, senderAddr, nil))
}
