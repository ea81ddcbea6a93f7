// Package ledger keeps the replay-protection and delegation state of the
// settlement engine: per-signer nonce records, minimum-nonce watermarks and
// authorization grants. All mutations go through Store.Update so that a
// settlement either commits every change or none.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger errors
var (
	ErrNonceAlreadyUsed    = errors.New("nonce already used")
	ErrInvalidAuthDelegate = errors.New("invalid authorization delegate")
	ErrInvalidAuthExpiry   = errors.New("invalid authorization expiry")
)

// NonceStatus is the state of one (signer, nonce) pair.
type NonceStatus uint8

const (
	NonceUnused NonceStatus = iota
	NonceUsed
	NonceCancelled
)

func (s NonceStatus) String() string {
	switch s {
	case NonceUsed:
		return "used"
	case NonceCancelled:
		return "cancelled"
	default:
		return "unused"
	}
}

// Grant lets Delegate sign or act for Approver until Expiry.
type Grant struct {
	Approver common.Address
	Delegate common.Address
	Expiry   time.Time
}

// LiveAt reports whether the grant is usable at t. There is no grace period.
func (g Grant) LiveAt(t time.Time) bool {
	return t.Before(g.Expiry)
}

// Reader is the read side of the ledger.
type Reader interface {
	NonceStatus(ctx context.Context, signer common.Address, nonce *big.Int) (NonceStatus, error)
	MinimumNonce(ctx context.Context, signer common.Address) (*big.Int, error)
	Grant(ctx context.Context, approver, delegate common.Address) (Grant, bool, error)
}

// Tx is a ledger transaction. Writes become visible to other callers only
// when the enclosing Update returns nil.
type Tx interface {
	Reader
	SetNonceStatus(ctx context.Context, signer common.Address, nonce *big.Int, status NonceStatus) error
	SetMinimumNonce(ctx context.Context, signer common.Address, nonce *big.Int) error
	PutGrant(ctx context.Context, grant Grant) error
	DeleteGrant(ctx context.Context, approver, delegate common.Address) error
}

// Store is a transactional ledger. Update calls are serialized; if fn
// returns an error every write made through tx is discarded.
type Store interface {
	Reader
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Settlement is one row of the settlement log.
type Settlement struct {
	OrderHash    common.Hash
	Path         string
	Nonce        *big.Int
	SignerWallet common.Address
	SignerToken  common.Address
	SignerAmount *big.Int
	SenderWallet common.Address
	SenderToken  common.Address
	SenderAmount *big.Int
	ProtocolFee  *big.Int
	Fee          *big.Int
	Rebate       *big.Int
	SettledAt    time.Time
}

// SettlementLog is implemented by transactions of stores that keep a log
// of settled orders. The record is written in the same transaction that
// consumes the nonce.
type SettlementLog interface {
	RecordSettlement(ctx context.Context, s Settlement) error
}

// SettlementReader lists logged settlements by signer wallet.
type SettlementReader interface {
	Settlements(ctx context.Context, signer common.Address) ([]Settlement, error)
}
