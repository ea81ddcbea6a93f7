package tokens

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airswap/airswap-protocols-sub003/adapters"
)

var _ adapters.Backend = (*World)(nil)

var (
	alice   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob     = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	engine  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	usdc    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	nft     = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	items   = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	weth    = common.HexToAddress("0x00000000000000000000000000000000000000a4")
	staking = common.HexToAddress("0x00000000000000000000000000000000000000a5")
)

func balance(t *testing.T, w *World, token, owner common.Address) int64 {
	t.Helper()
	b, err := w.BalanceOf(context.Background(), token, owner)
	require.NoError(t, err)
	return b.Int64()
}

func TestTransferFrom(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	require.NoError(t, w.Mint(usdc, alice, big.NewInt(100)))
	require.NoError(t, w.Approve(usdc, alice, engine, big.NewInt(60)))

	require.NoError(t, w.TransferFrom(ctx, usdc, engine, alice, bob, big.NewInt(40)))
	assert.Equal(t, int64(60), balance(t, w, usdc, alice))
	assert.Equal(t, int64(40), balance(t, w, usdc, bob))

	allowance, err := w.Allowance(ctx, usdc, alice, engine)
	require.NoError(t, err)
	assert.Equal(t, int64(20), allowance.Int64())

	err = w.TransferFrom(ctx, usdc, engine, alice, bob, big.NewInt(21))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	// the owner spends without allowance
	require.NoError(t, w.TransferFrom(ctx, usdc, alice, alice, bob, big.NewInt(50)))

	// a failing transfer leaves the allowance untouched
	require.NoError(t, w.Approve(usdc, alice, engine, big.NewInt(1000)))
	err = w.TransferFrom(ctx, usdc, engine, alice, bob, big.NewInt(11))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	allowance, err = w.Allowance(ctx, usdc, alice, engine)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), allowance.Int64())

	supply, err := w.TotalSupply(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, int64(100), supply.Int64())

	assert.ErrorIs(t, w.TransferFrom(ctx, usdc, alice, alice, bob, big.NewInt(-1)), ErrNegativeAmount)
}

func TestFreeze(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	require.NoError(t, w.Mint(usdc, alice, big.NewInt(100)))
	w.Freeze(usdc, bob)

	assert.ErrorIs(t, w.TransferFrom(ctx, usdc, alice, alice, bob, big.NewInt(1)), ErrFrozen)
	assert.Equal(t, int64(100), balance(t, w, usdc, alice))

	w.Unfreeze(usdc, bob)
	assert.NoError(t, w.TransferFrom(ctx, usdc, alice, alice, bob, big.NewInt(1)))
}

func TestSnapshotRevert(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	require.NoError(t, w.Mint(usdc, alice, big.NewInt(100)))
	w.MintNFT(nft, alice, big.NewInt(1))

	snap := w.Snapshot()
	require.NoError(t, w.TransferFrom(ctx, usdc, alice, alice, bob, big.NewInt(30)))
	require.NoError(t, w.TransferNFT(ctx, nft, alice, alice, bob, big.NewInt(1)))
	require.NoError(t, w.Mint(usdc, bob, big.NewInt(5)))
	w.RevertToSnapshot(snap)

	assert.Equal(t, int64(100), balance(t, w, usdc, alice))
	assert.Equal(t, int64(0), balance(t, w, usdc, bob))
	owner, err := w.OwnerOf(ctx, nft, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	assert.Panics(t, func() { w.RevertToSnapshot(snap + 100) })
}

func TestJournalReleased(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	require.NoError(t, w.Mint(usdc, alice, big.NewInt(100)))
	require.NoError(t, w.TransferFrom(ctx, usdc, alice, alice, bob, big.NewInt(10)))
	assert.Zero(t, w.JournalLen())

	snap := w.Snapshot()
	require.NoError(t, w.TransferFrom(ctx, usdc, alice, alice, bob, big.NewInt(10)))
	assert.NotZero(t, w.JournalLen())
	w.DiscardSnapshot(snap)
	assert.Zero(t, w.JournalLen())
	assert.Equal(t, int64(80), balance(t, w, usdc, alice))

	// failed calls outside a snapshot still leave no trace
	err := w.TransferFrom(ctx, usdc, alice, alice, bob, big.NewInt(1_000))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, w.JournalLen())
	assert.Equal(t, int64(80), balance(t, w, usdc, alice))

	assert.Panics(t, func() { w.DiscardSnapshot(snap) })
}

func TestNFT(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	id := big.NewInt(7)
	w.MintNFT(nft, alice, id)

	assert.ErrorIs(t, w.ApproveNFT(nft, bob, engine, id), ErrNotOwner)
	assert.ErrorIs(t, w.TransferNFT(ctx, nft, engine, alice, bob, id), ErrNotApproved)

	require.NoError(t, w.ApproveNFT(nft, alice, engine, id))
	approved, err := w.GetApproved(ctx, nft, id)
	require.NoError(t, err)
	assert.Equal(t, engine, approved)

	require.NoError(t, w.TransferNFT(ctx, nft, engine, alice, bob, id))
	owner, err := w.OwnerOf(ctx, nft, id)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
	approved, err = w.GetApproved(ctx, nft, id)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, approved)

	assert.ErrorIs(t, w.TransferNFT(ctx, nft, alice, alice, bob, id), ErrNotOwner)

	w.SetApprovalForAll(nft, bob, engine, true)
	ok, err := w.IsApprovedForAll(ctx, nft, bob, engine)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, w.TransferNFT(ctx, nft, engine, bob, alice, id))
}

func TestMultiToken(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	id := big.NewInt(3)
	require.NoError(t, w.MintID(items, alice, id, big.NewInt(10)))

	assert.ErrorIs(t, w.TransferID(ctx, items, engine, alice, bob, id, big.NewInt(1)), ErrNotApproved)
	w.SetApprovalForAll(items, alice, engine, true)
	assert.ErrorIs(t, w.TransferID(ctx, items, engine, alice, bob, id, big.NewInt(11)), ErrInsufficientBalance)
	require.NoError(t, w.TransferID(ctx, items, engine, alice, bob, id, big.NewInt(4)))

	got, err := w.BalanceOfID(ctx, items, bob, id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Int64())
	got, err = w.BalanceOfID(ctx, items, bob, big.NewInt(4))
	require.NoError(t, err)
	assert.Zero(t, got.Sign())
}

func TestOperatorSend(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	require.NoError(t, w.Mint(usdc, alice, big.NewInt(10)))

	ok, err := w.IsOperatorFor(ctx, usdc, alice, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, w.OperatorSend(ctx, usdc, engine, alice, bob, big.NewInt(1)), ErrNotApproved)
	w.SetApprovalForAll(usdc, alice, engine, true)
	require.NoError(t, w.OperatorSend(ctx, usdc, engine, alice, bob, big.NewInt(6)))
	assert.Equal(t, int64(6), balance(t, w, usdc, bob))
}

func TestWrapUnwrap(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	require.NoError(t, w.SetNative(alice, big.NewInt(100)))

	require.NoError(t, w.Deposit(ctx, weth, alice, big.NewInt(40)))
	assert.Equal(t, int64(40), balance(t, w, weth, alice))
	native, err := w.NativeBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(60), native.Int64())

	assert.ErrorIs(t, w.Deposit(ctx, weth, alice, big.NewInt(61)), ErrInsufficientBalance)

	require.NoError(t, w.Withdraw(ctx, weth, alice, big.NewInt(15)))
	native, err = w.NativeBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(75), native.Int64())
	assert.Equal(t, int64(25), balance(t, w, weth, alice))

	assert.ErrorIs(t, w.Withdraw(ctx, weth, alice, big.NewInt(26)), ErrInsufficientBalance)
	require.NoError(t, w.TransferNative(ctx, alice, bob, big.NewInt(75)))
	native, err = w.NativeBalance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(75), native.Int64())
}

func TestStaking(t *testing.T) {
	ctx := context.Background()
	w := NewWorld()
	require.NoError(t, w.Mint(staking, alice, big.NewInt(30)))
	require.NoError(t, w.Mint(staking, bob, big.NewInt(70)))

	s := w.Staking(staking)
	staked, err := s.StakedBalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(30), staked.Int64())
	total, err := s.TotalStaked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total.Int64())
}
