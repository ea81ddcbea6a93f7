package swap

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Path names the entry point an order was settled through.
type Path string

const (
	PathSwap    Path = "swap"
	PathERC20   Path = "erc20"
	PathLight   Path = "light"
	PathWrapped Path = "wrapped"
)

// Receipt describes a completed settlement.
type Receipt struct {
	OrderHash common.Hash
	Path      Path
	Nonce     *big.Int

	SignerWallet common.Address
	SignerToken  common.Address
	SignerAmount *big.Int
	SenderWallet common.Address
	SenderToken  common.Address
	SenderAmount *big.Int

	// Signatory produced the signature; it differs from SignerWallet when a
	// delegate signed.
	Signatory common.Address

	// ProtocolFee is the fee rate in basis points the order was settled at.
	ProtocolFee uint64
	// Fee is taken from the signer wallet on top of SignerAmount.
	Fee *big.Int
	// Rebate is the part of Fee paid to the sender wallet.
	Rebate *big.Int
	// FeeToRecipient is Fee minus Rebate.
	FeeToRecipient *big.Int
	// SenderReceived is SignerAmount plus Rebate.
	SenderReceived *big.Int

	SettledAt time.Time
}

// EventKind identifies the type of an Event.
type EventKind string

const (
	EventSwap            EventKind = "Swap"
	EventCancel          EventKind = "Cancel"
	EventInvalidateBelow EventKind = "InvalidateBelow"
	EventAuthorize       EventKind = "Authorize"
	EventRevoke          EventKind = "Revoke"
	EventAdmin           EventKind = "Admin"
)

// Event is one entry of the engine's event stream. Payload holds one of
// *SwapEvent, *CancelEvent, *InvalidateBelowEvent, *AuthorizeEvent,
// *RevokeEvent or *AdminEvent, matching Kind.
type Event struct {
	ID      uuid.UUID
	Kind    EventKind
	Time    time.Time
	Payload any
}

// SwapEvent is emitted once per settled order.
type SwapEvent struct {
	OrderHash    common.Hash
	Path         Path
	Nonce        *big.Int
	SignerWallet common.Address
	SignerToken  common.Address
	SignerAmount *big.Int
	ProtocolFee  uint64
	SenderWallet common.Address
	SenderToken  common.Address
	SenderAmount *big.Int
	Fee          *big.Int
	Rebate       *big.Int
}

type CancelEvent struct {
	Signer common.Address
	Nonce  *big.Int
}

type InvalidateBelowEvent struct {
	Signer       common.Address
	MinimumNonce *big.Int
}

type AuthorizeEvent struct {
	Approver common.Address
	Delegate common.Address
	Expiry   time.Time
}

type RevokeEvent struct {
	Approver common.Address
	Delegate common.Address
}

// AdminEvent records a configuration change.
type AdminEvent struct {
	Setting string
	Value   string
}

func newEvent(kind EventKind, at time.Time, payload any) Event {
	return Event{ID: uuid.New(), Kind: kind, Time: at, Payload: payload}
}
