package swap

import (
	"context"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airswap/airswap-protocols-sub003/adapters"
	"github.com/airswap/airswap-protocols-sub003/chain"
	"github.com/airswap/airswap-protocols-sub003/ledger"
	"github.com/airswap/airswap-protocols-sub003/tokens"
)

// Well-known anvil/hardhat development keys. Never use in production.
const (
	signerKey   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	delegateKey = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"
)

var (
	signerAddr   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	senderAddr   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	delegateAddr = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	contract     = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	owner        = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	recipient    = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	affiliate    = common.HexToAddress("0x00000000000000000000000000000000000000e3")
	stranger     = common.HexToAddress("0x00000000000000000000000000000000000000e4")
	wrapperAddr  = common.HexToAddress("0x00000000000000000000000000000000000000e5")

	tokenA     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB     = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	nftToken   = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	itemsToken = common.HexToAddress("0x00000000000000000000000000000000000000a4")
	weth       = common.HexToAddress("0x00000000000000000000000000000000000000a5")
	stakeToken = common.HexToAddress("0x00000000000000000000000000000000000000a6")
)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	world   *tokens.World
	store   *ledger.MemoryStore
	engine  *Engine
	events  *Recorder
	metrics *Metrics
	now     time.Time
	signer  *chain.OrderSigner
}

func testConfig() Config {
	return Config{
		ChainID:           ChainIDLocal,
		VerifyingContract: contract,
		Owner:             owner,
		ProtocolFee:       30,
		ProtocolFeeLight:  7,
		FeeRecipient:      recipient,
		RebateScale:       10,
		RebateMax:         100,
	}
}

func quietLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		world:   tokens.NewWorld(),
		store:   ledger.NewMemoryStore(),
		events:  &Recorder{},
		metrics: NewMetrics(""),
		now:     time.Unix(1_700_000_000, 0),
	}
	f.engine = f.newEngine(f.store, opts...)

	signer, err := chain.NewOrderSigner(signerKey, int64(ChainIDLocal), contract)
	require.NoError(t, err)
	f.signer = signer

	require.NoError(t, f.world.Mint(tokenA, signerAddr, big.NewInt(1_000_000)))
	require.NoError(t, f.world.Approve(tokenA, signerAddr, contract, big.NewInt(1_000_000)))
	require.NoError(t, f.world.Mint(tokenB, senderAddr, big.NewInt(1_000_000)))
	require.NoError(t, f.world.Approve(tokenB, senderAddr, contract, big.NewInt(1_000_000)))
	return f
}

func (f *fixture) newEngine(store ledger.Store, opts ...Option) *Engine {
	f.t.Helper()
	base := []Option{
		WithJournal(f.world),
		WithPublisher(f.events),
		WithMetrics(f.metrics),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return f.now }),
	}
	e, err := NewEngine(testConfig(), store, adapters.Standard(f.world), append(base, opts...)...)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) orderERC20(nonce int64) *chain.OrderERC20 {
	return &chain.OrderERC20{
		Nonce:        big.NewInt(nonce),
		Expiry:       big.NewInt(f.now.Add(time.Hour).Unix()),
		SignerWallet: signerAddr,
		SignerToken:  tokenA,
		SignerAmount: big.NewInt(10_000),
		ProtocolFee:  big.NewInt(30),
		SenderWallet: senderAddr,
		SenderToken:  tokenB,
		SenderAmount: big.NewInt(5_000),
	}
}

func (f *fixture) signERC20(order *chain.OrderERC20) *chain.SignedOrderERC20 {
	f.t.Helper()
	signed, err := f.signer.SignOrderERC20(order)
	require.NoError(f.t, err)
	return signed
}

func (f *fixture) balance(token, wallet common.Address) int64 {
	f.t.Helper()
	b, err := f.world.BalanceOf(f.ctx, token, wallet)
	require.NoError(f.t, err)
	return b.Int64()
}

func TestNewEngineValidates(t *testing.T) {
	registry := adapters.Standard(tokens.NewWorld())

	cfg := testConfig()
	cfg.ProtocolFee = FeeDivisor
	_, err := NewEngine(cfg, ledger.NewMemoryStore(), registry)
	assert.ErrorIs(t, err, ErrProtocolFeeInvalid)

	_, err = NewEngine(testConfig(), nil, registry)
	var paramErr *InvalidParamError
	assert.ErrorAs(t, err, &paramErr)

	_, err = NewEngine(testConfig(), ledger.NewMemoryStore(), nil)
	assert.ErrorAs(t, err, &paramErr)

	e, err := NewEngine(testConfig(), ledger.NewMemoryStore(), registry)
	require.NoError(t, err)
	assert.Equal(t, contract, e.Address())
	assert.Equal(t, uint64(30), e.ProtocolFee())
	assert.Equal(t, uint64(7), e.ProtocolFeeLight())
	assert.Equal(t, recipient, e.FeeRecipient())
	assert.Equal(t, "SWAP", e.Domain().Name)
	assert.Equal(t, "SWAP_ERC20", e.DomainERC20().Name)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.Cancel(f.ctx, signerAddr, nil))
	assert.Empty(t, f.events.Events())

	require.NoError(t, f.engine.Cancel(f.ctx, signerAddr, []*big.Int{big.NewInt(6), big.NewInt(7)}))
	require.NoError(t, f.engine.Cancel(f.ctx, signerAddr, []*big.Int{big.NewInt(6)}))

	cancels := f.events.Events(EventCancel)
	require.Len(t, cancels, 2)
	assert.Equal(t, int64(6), cancels[0].Payload.(*CancelEvent).Nonce.Int64())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.cancellations))

	used, err := f.engine.NonceUsed(f.ctx, signerAddr, big.NewInt(6))
	require.NoError(t, err)
	assert.True(t, used)

	_, err = f.engine.SettleERC20(f.ctx, senderAddr, f.signERC20(f.orderERC20(6)))
	assert.ErrorIs(t, err, ErrNonceAlreadyUsed)
}

func TestCancelSettledNonce(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.SettleERC20(f.ctx, senderAddr, f.signERC20(f.orderERC20(1)))
	require.NoError(t, err)

	err = f.engine.Cancel(f.ctx, signerAddr, []*big.Int{big.NewInt(1)})
	assert.ErrorIs(t, err, ErrNonceAlreadyUsed)
}

func TestInvalidateBelow(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.InvalidateBelow(f.ctx, signerAddr, big.NewInt(10)))
	require.NoError(t, f.engine.InvalidateBelow(f.ctx, signerAddr, big.NewInt(4)))

	minimum, err := f.engine.MinimumNonce(f.ctx, signerAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(10), minimum.Int64())
	assert.Len(t, f.events.Events(EventInvalidateBelow), 1)

	_, err = f.engine.SettleERC20(f.ctx, senderAddr, f.signERC20(f.orderERC20(9)))
	assert.ErrorIs(t, err, ErrNonceAlreadyUsed)

	_, err = f.engine.SettleERC20(f.ctx, senderAddr, f.signERC20(f.orderERC20(10)))
	assert.NoError(t, err)
}

func TestAuthorizeRevoke(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Authorize(f.ctx, signerAddr, signerAddr, f.now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidAuthDelegate)
	err = f.engine.Authorize(f.ctx, signerAddr, delegateAddr, f.now)
	assert.ErrorIs(t, err, ErrInvalidAuthExpiry)

	require.NoError(t, f.engine.Authorize(f.ctx, signerAddr, delegateAddr, f.now.Add(time.Hour)))
	ok, err := f.engine.IsAuthorized(f.ctx, signerAddr, delegateAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	f.now = f.now.Add(time.Hour)
	ok, err = f.engine.IsAuthorized(f.ctx, signerAddr, delegateAddr)
	require.NoError(t, err)
	assert.False(t, ok, "grant expires at its expiry")

	require.NoError(t, f.engine.Revoke(f.ctx, signerAddr, delegateAddr))
	require.NoError(t, f.engine.Revoke(f.ctx, signerAddr, delegateAddr))

	assert.Len(t, f.events.Events(EventAuthorize), 1)
	assert.Len(t, f.events.Events(EventRevoke), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.authorizations.WithLabelValues("authorize")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.authorizations.WithLabelValues("revoke")))
}

func TestAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx
	e := f.engine

	tests := []struct {
		name string
		call func(caller common.Address) error
		want error
	}{
		{"protocol fee too high", func(c common.Address) error { return e.SetProtocolFee(ctx, c, FeeDivisor) }, ErrProtocolFeeInvalid},
		{"light fee too high", func(c common.Address) error { return e.SetProtocolFeeLight(ctx, c, FeeDivisor) }, ErrProtocolFeeLightInvalid},
		{"zero fee recipient", func(c common.Address) error { return e.SetFeeRecipient(ctx, c, common.Address{}) }, ErrProtocolFeeWalletInvalid},
		{"rebate scale too high", func(c common.Address) error { return e.SetRebateScale(ctx, c, MaxRebateScale+1) }, ErrScaleTooHigh},
		{"rebate max too high", func(c common.Address) error { return e.SetRebateMax(ctx, c, MaxRebateMax+1) }, ErrMaxTooHigh},
		{"nil staking", func(c common.Address) error { return e.SetStaking(ctx, c, nil) }, ErrStakingInvalid},
		{"adapter kind taken", func(c common.Address) error { return e.AddAdapter(ctx, c, adapters.NewERC20(f.world)) }, ErrHandlerExistsForKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(stranger), ErrUnauthorized)
			assert.ErrorIs(t, tt.call(owner), tt.want)
		})
	}
	assert.Empty(t, f.events.Events(EventAdmin))

	require.NoError(t, e.SetProtocolFee(ctx, owner, 10))
	require.NoError(t, e.SetProtocolFeeLight(ctx, owner, 5))
	require.NoError(t, e.SetFeeRecipient(ctx, owner, affiliate))
	require.NoError(t, e.SetRebateScale(ctx, owner, MaxRebateScale))
	require.NoError(t, e.SetRebateMax(ctx, owner, 50))
	require.NoError(t, e.SetStaking(ctx, owner, f.world.Staking(stakeToken)))
	require.NoError(t, e.ReplaceAdapter(ctx, owner, adapters.NewERC20(f.world)))

	assert.Equal(t, uint64(10), e.ProtocolFee())
	assert.Equal(t, uint64(5), e.ProtocolFeeLight())
	assert.Equal(t, affiliate, e.FeeRecipient())

	admin := f.events.Events(EventAdmin)
	require.Len(t, admin, 7)
	assert.Equal(t, &AdminEvent{Setting: "protocolFee", Value: "10"}, admin[0].Payload)
}

func TestAdminFeeChangeInvalidatesSignedOrders(t *testing.T) {
	f := newFixture(t)
	signed := f.signERC20(f.orderERC20(1))

	require.NoError(t, f.engine.SetProtocolFee(f.ctx, owner, 10))
	_, err := f.engine.SettleERC20(f.ctx, senderAddr, signed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
