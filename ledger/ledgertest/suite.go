// Package ledgertest holds behaviour tests shared by every ledger.Store
// implementation.
package ledgertest

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airswap/airswap-protocols-sub003/ledger"
)

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	carol = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

var errBoom = errors.New("boom")

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) ledger.Store) {
	t.Run("ConsumeNonce", func(t *testing.T) { testConsumeNonce(t, open(t)) })
	t.Run("Cancel", func(t *testing.T) { testCancel(t, open(t)) })
	t.Run("InvalidateBelow", func(t *testing.T) { testInvalidateBelow(t, open(t)) })
	t.Run("Authorization", func(t *testing.T) { testAuthorization(t, open(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("SettlementLog", func(t *testing.T) { testSettlementLog(t, open(t)) })
}

func update(t *testing.T, store ledger.Store, fn func(tx ledger.Tx) error) error {
	t.Helper()
	return store.Update(context.Background(), fn)
}

func testConsumeNonce(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	nonce := big.NewInt(1)

	require.NoError(t, update(t, store, func(tx ledger.Tx) error {
		return ledger.ConsumeNonce(ctx, tx, alice, nonce)
	}))

	status, err := store.NonceStatus(ctx, alice, nonce)
	require.NoError(t, err)
	assert.Equal(t, ledger.NonceUsed, status)

	err = update(t, store, func(tx ledger.Tx) error {
		return ledger.ConsumeNonce(ctx, tx, alice, nonce)
	})
	assert.ErrorIs(t, err, ledger.ErrNonceAlreadyUsed)

	// nonces are per signer
	require.NoError(t, update(t, store, func(tx ledger.Tx) error {
		return ledger.ConsumeNonce(ctx, tx, bob, nonce)
	}))

	// big nonces keep their identity
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.NoError(t, update(t, store, func(tx ledger.Tx) error {
		return ledger.ConsumeNonce(ctx, tx, alice, huge)
	}))
	assert.ErrorIs(t, ledger.CheckNonce(ctx, store, alice, huge), ledger.ErrNonceAlreadyUsed)
	assert.NoError(t, ledger.CheckNonce(ctx, store, alice, big.NewInt(2)))
}

func testCancel(t *testing.T, store ledger.Store) {
	ctx := context.Background()

	var cancelled []*big.Int
	require.NoError(t, update(t, store, func(tx ledger.Tx) (err error) {
		cancelled, err = ledger.Cancel(ctx, tx, alice, nil)
		return err
	}))
	assert.Empty(t, cancelled)

	require.NoError(t, update(t, store, func(tx ledger.Tx) (err error) {
		cancelled, err = ledger.Cancel(ctx, tx, alice, []*big.Int{big.NewInt(6), big.NewInt(7)})
		return err
	}))
	assert.Len(t, cancelled, 2)
	assert.ErrorIs(t, ledger.CheckNonce(ctx, store, alice, big.NewInt(6)), ledger.ErrNonceAlreadyUsed)

	// cancelling again is a no-op
	require.NoError(t, update(t, store, func(tx ledger.Tx) (err error) {
		cancelled, err = ledger.Cancel(ctx, tx, alice, []*big.Int{big.NewInt(6), big.NewInt(8)})
		return err
	}))
	require.Len(t, cancelled, 1)
	assert.Equal(t, int64(8), cancelled[0].Int64())

	// a settled nonce cannot be cancelled and the whole call rolls back
	require.NoError(t, update(t, store, func(tx ledger.Tx) error {
		return ledger.ConsumeNonce(ctx, tx, alice, big.NewInt(9))
	}))
	err := update(t, store, func(tx ledger.Tx) error {
		_, err := ledger.Cancel(ctx, tx, alice, []*big.Int{big.NewInt(10), big.NewInt(9)})
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrNonceAlreadyUsed)
	status, err := store.NonceStatus(ctx, alice, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, ledger.NonceUnused, status)
}

func testInvalidateBelow(t *testing.T, store ledger.Store) {
	ctx := context.Background()

	invalidate := func(n int64) (*big.Int, bool) {
		var (
			current *big.Int
			changed bool
		)
		require.NoError(t, update(t, store, func(tx ledger.Tx) (err error) {
			current, changed, err = ledger.InvalidateBelow(ctx, tx, alice, big.NewInt(n))
			return err
		}))
		return current, changed
	}

	current, changed := invalidate(10)
	assert.True(t, changed)
	assert.Equal(t, int64(10), current.Int64())

	current, changed = invalidate(5)
	assert.False(t, changed)
	assert.Equal(t, int64(10), current.Int64())

	_, changed = invalidate(10)
	assert.False(t, changed)

	minimum, err := store.MinimumNonce(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(10), minimum.Int64())

	assert.ErrorIs(t, ledger.CheckNonce(ctx, store, alice, big.NewInt(9)), ledger.ErrNonceAlreadyUsed)
	assert.NoError(t, ledger.CheckNonce(ctx, store, alice, big.NewInt(10)))
	assert.NoError(t, ledger.CheckNonce(ctx, store, bob, big.NewInt(0)))
}

func testAuthorization(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	expiry := now.Add(time.Hour)

	authorize := func(approver, delegate common.Address, expiry time.Time) error {
		return update(t, store, func(tx ledger.Tx) error {
			_, err := ledger.Authorize(ctx, tx, approver, delegate, expiry, now)
			return err
		})
	}

	assert.ErrorIs(t, authorize(alice, alice, expiry), ledger.ErrInvalidAuthDelegate)
	assert.ErrorIs(t, authorize(alice, bob, now), ledger.ErrInvalidAuthExpiry)
	assert.ErrorIs(t, authorize(alice, bob, now.Add(-time.Second)), ledger.ErrInvalidAuthExpiry)

	require.NoError(t, authorize(alice, bob, expiry))

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "now", at: now, want: true},
		{name: "just before expiry", at: expiry.Add(-time.Nanosecond), want: true},
		{name: "at expiry", at: expiry, want: false},
		{name: "after expiry", at: expiry.Add(time.Second), want: false},
	}
	for _, tt := range tests {
		ok, err := ledger.IsAuthorized(ctx, store, alice, bob, tt.at)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, tt.name)
	}

	// grants are directional
	ok, err := ledger.IsAuthorized(ctx, store, bob, alice, now)
	require.NoError(t, err)
	assert.False(t, ok)

	// re-authorizing overwrites the expiry
	require.NoError(t, authorize(alice, bob, expiry.Add(time.Hour)))
	ok, err = ledger.IsAuthorized(ctx, store, alice, bob, expiry.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	// past the int64 nanosecond range
	far := time.Date(2300, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, authorize(alice, carol, far))
	grant, found, err := store.Grant(ctx, alice, carol)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, far.Equal(grant.Expiry), grant.Expiry.String())
	ok, err = ledger.IsAuthorized(ctx, store, alice, carol, now)
	require.NoError(t, err)
	assert.True(t, ok)

	// expiry is kept to whole seconds
	require.NoError(t, authorize(bob, carol, expiry.Add(500*time.Millisecond)))
	grant, _, err = store.Grant(ctx, bob, carol)
	require.NoError(t, err)
	assert.True(t, expiry.Equal(grant.Expiry), grant.Expiry.String())

	checker :=ledger.GrantChecker{Reader: store, Now: func() time.Time { return now }}
	ok, err = checker.IsAuthorized(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, update(t, store, func(tx ledger.Tx) error { return ledger.Revoke(ctx, tx, alice, bob) }))
	require.NoError(t, update(t, store, func(tx ledger.Tx) error { return ledger.Revoke(ctx, tx, alice, carol) }))
	ok, err = ledger.IsAuthorized(ctx, store, alice, bob, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testRollback(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, update(t, store, func(tx ledger.Tx) error {
		_, err := ledger.Authorize(ctx, tx, alice, carol, now.Add(time.Hour), now)
		return err
	}))

	err := update(t, store, func(tx ledger.Tx) error {
		if err := ledger.ConsumeNonce(ctx, tx, alice, big.NewInt(1)); err != nil {
			return err
		}
		if _, _, err := ledger.InvalidateBelow(ctx, tx, alice, big.NewInt(100)); err != nil {
			return err
		}
		if _, err := ledger.Authorize(ctx, tx, alice, bob, now.Add(time.Hour), now); err != nil {
			return err
		}
		if err := ledger.Revoke(ctx, tx, alice, carol); err != nil {
			return err
		}
		// writes are visible inside the transaction
		if err := ledger.CheckNonce(ctx, tx, alice, big.NewInt(1)); !errors.Is(err, ledger.ErrNonceAlreadyUsed) {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	status, err := store.NonceStatus(ctx, alice, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, ledger.NonceUnused, status)

	minimum, err := store.MinimumNonce(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, minimum.Sign())

	_, ok, err := store.Grant(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Grant(ctx, alice, carol)
	require.NoError(t, err)
	assert.True(t, ok)
}

func testSettlementLog(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	reader, ok := store.(ledger.SettlementReader)
	if !ok {
		t.Skip("store keeps no settlement log")
	}

	record := ledger.Settlement{
		OrderHash:    common.HexToHash("0x01"),
		Path:         "erc20",
		Nonce:        big.NewInt(3),
		SignerWallet: alice,
		SignerToken:  carol,
		SignerAmount: big.NewInt(10000),
		SenderWallet: bob,
		SenderToken:  carol,
		SenderAmount: big.NewInt(500),
		ProtocolFee:  big.NewInt(30),
		Fee:          big.NewInt(30),
		Rebate:       big.NewInt(15),
		SettledAt:    time.Unix(1_700_000_000, 0).UTC(),
	}
	write := func(s ledger.Settlement, fail bool) error {
		return update(t, store, func(tx ledger.Tx) error {
			log, ok := tx.(ledger.SettlementLog)
			require.True(t, ok)
			if err := log.RecordSettlement(ctx, s); err != nil {
				return err
			}
			if fail {
				return errBoom
			}
			return nil
		})
	}

	require.NoError(t, write(record, false))
	second := record
	second.OrderHash = common.HexToHash("0x02")
	second.Nonce = big.NewInt(4)
	require.ErrorIs(t, write(second, true), errBoom)

	got, err := reader.Settlements(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, record.OrderHash, got[0].OrderHash)
	assert.Equal(t, "erc20", got[0].Path)
	assert.Equal(t, 0, record.SignerAmount.Cmp(got[0].SignerAmount))
	assert.Equal(t, 0, record.Rebate.Cmp(got[0].Rebate))
	assert.True(t, record.SettledAt.Equal(got[0].SettledAt))

	none, err := reader.Settlements(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, none)
}
