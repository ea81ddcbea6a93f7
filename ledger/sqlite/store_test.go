package sqlite

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airswap/airswap-protocols-sub003/ledger"
	"github.com/airswap/airswap-protocols-sub003/ledger/ledgertest"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store { return openTempStore(t) })
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	signer := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	delegate := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	now := time.Unix(1_700_000_000, 123).UTC()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, func(tx ledger.Tx) error {
		if err := ledger.ConsumeNonce(ctx, tx, signer, big.NewInt(5)); err != nil {
			return err
		}
		if _, _, err := ledger.InvalidateBelow(ctx, tx, signer, big.NewInt(3)); err != nil {
			return err
		}
		_, err := ledger.Authorize(ctx, tx, signer, delegate, now.Add(time.Hour), now)
		return err
	}))
	require.NoError(t, store.Close())

	// migrations are not re-applied on a second open
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	status, err := store.NonceStatus(ctx, signer, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, ledger.NonceUsed, status)

	minimum, err := store.MinimumNonce(ctx, signer)
	require.NoError(t, err)
	assert.Equal(t, int64(3), minimum.Int64())

	grant, ok, err := store.Grant(ctx, signer, delegate)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, now.Add(time.Hour).Truncate(time.Second).Equal(grant.Expiry))
}

func TestUpSection(t *testing.T) {
	sql := "-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (x INT);\n", upSection(sql))
	assert.Equal(t, "SELECT 1;", upSection("SELECT 1;"))
}
