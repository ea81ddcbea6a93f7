// Package swap settles signed peer-to-peer token orders. An Engine verifies
// an order's signature and nonce, checks both parties can pay, takes the
// protocol fee and moves the tokens of every leg atomically through the
// transfer adapter registered for each token kind.
package swap

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/airswap/airswap-protocols-sub003/adapters"
	"github.com/airswap/airswap-protocols-sub003/chain"
	"github.com/airswap/airswap-protocols-sub003/ledger"
)

// Journal lets the engine undo token movements of a failed settlement.
// tokens.World implements it.
type Journal = adapters.Journal

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is the standard logrus logger.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics records settlement metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithJournal makes token movements part of each settlement's transaction.
// It is only needed when the registry was not built by adapters.Standard
// over a journaling backend.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithStaking enables rebates.
func WithStaking(s StakingLookup) Option {
	return func(e *Engine) { e.fees.staking = s }
}

// WithPublisher replaces the default log publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

type feeConfig struct {
	protocolFee      uint64
	protocolFeeLight uint64
	feeRecipient     common.Address
	rebateScale      uint64
	rebateMax        uint64
	staking          StakingLookup
}

// Engine is the settlement engine. All state changes go through the ledger
// store and are serialized.
type Engine struct {
	address     common.Address
	owner       common.Address
	domain      *chain.EIP712Domain
	domainERC20 *chain.EIP712Domain

	store     ledger.Store
	registry  *adapters.Registry
	journal   Journal
	publisher Publisher
	metrics   *Metrics
	log       *logrus.Entry
	now       func() time.Time

	mu   sync.RWMutex
	fees feeConfig

	// txMu serializes settlements so a journal snapshot covers exactly one
	// of them.
	txMu sync.Mutex
}

// NewEngine creates an Engine settling orders signed for cfg.VerifyingContract.
func NewEngine(cfg Config, store ledger.Store, registry *adapters.Registry, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, &InvalidParamError{Message: "ledger store is required"}
	}
	if registry == nil {
		return nil, &InvalidParamError{Message: "adapter registry is required"}
	}

	chainID := big.NewInt(int64(cfg.ChainID))
	e := &Engine{
		address:     cfg.VerifyingContract,
		owner:       cfg.Owner,
		domain:      chain.NewEIP712Domain(chainID, cfg.VerifyingContract),
		domainERC20: chain.NewEIP712DomainERC20(chainID, cfg.VerifyingContract),
		store:       store,
		registry:    registry,
		now:         time.Now,
		fees: feeConfig{
			protocolFee:      cfg.ProtocolFee,
			protocolFeeLight: cfg.ProtocolFeeLight,
			feeRecipient:     cfg.FeeRecipient,
			rebateScale:      cfg.RebateScale,
			rebateMax:        cfg.RebateMax,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.journal == nil {
		e.journal = registry.Journal()
	}
	if e.log == nil {
		e.log = logrus.NewEntry(logrus.StandardLogger())
	}
	e.log = e.log.WithField("component", "swap")
	if e.publisher == nil {
		e.publisher = NewLogPublisher(e.log)
	}
	return e, nil
}

// Address is the verifying contract orders are signed for. Adapters spend
// allowances granted to it.
func (e *Engine) Address() common.Address { return e.address }

// Domain returns the typed-data domain of multi-kind orders.
func (e *Engine) Domain() *chain.EIP712Domain { return e.domain }

// DomainERC20 returns the typed-data domain of flat orders.
func (e *Engine) DomainERC20() *chain.EIP712Domain { return e.domainERC20 }

// Registry returns the adapter registry.
func (e *Engine) Registry() *adapters.Registry { return e.registry }

func (e *Engine) feeConfig() feeConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fees
}

// ProtocolFee returns the fee in basis points charged by Settle and SettleERC20.
func (e *Engine) ProtocolFee() uint64 { return e.feeConfig().protocolFee }

// ProtocolFeeLight returns the fee in basis points charged by SettleLight.
func (e *Engine) ProtocolFeeLight() uint64 { return e.feeConfig().protocolFeeLight }

// FeeRecipient returns the wallet receiving protocol fees.
func (e *Engine) FeeRecipient() common.Address { return e.feeConfig().feeRecipient }

// update runs fn in one ledger transaction together with the token
// movements it makes, and publishes the events fn returns once committed.
func (e *Engine) update(ctx context.Context, fn func(tx ledger.Tx) ([]Event, error)) error {
	e.txMu.Lock()
	defer e.txMu.Unlock()

	snapshot := -1
	if e.journal != nil {
		snapshot = e.journal.Snapshot()
	}
	var events []Event
	err := e.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		events, err = fn(tx)
		return err
	})
	if e.journal != nil {
		if err != nil {
			e.journal.RevertToSnapshot(snapshot)
		} else {
			e.journal.DiscardSnapshot(snapshot)
		}
	}
	if err != nil {
		return err
	}
	for _, ev := range events {
		e.publisher.Publish(ctx, ev)
	}
	return nil
}

// Cancel cancels the signer's listed nonces. Nonces already cancelled are
// skipped; one event is emitted per newly cancelled nonce.
func (e *Engine) Cancel(ctx context.Context, signer common.Address, nonces []*big.Int) error {
	var n int
	err := e.update(ctx, func(tx ledger.Tx) ([]Event, error) {
		cancelled, err := ledger.Cancel(ctx, tx, signer, nonces)
		if err != nil {
			return nil, err
		}
		n = len(cancelled)
		at := e.now()
		events := make([]Event, 0, len(cancelled))
		for _, nonce := range cancelled {
			events = append(events, newEvent(EventCancel, at, &CancelEvent{Signer: signer, Nonce: nonce}))
		}
		return events, nil
	})
	if err != nil {
		return err
	}
	e.metrics.cancelled(n)
	return nil
}

// InvalidateBelow cancels every nonce of signer below minNonce. The
// watermark never decreases and an event is emitted only when it moves.
func (e *Engine) InvalidateBelow(ctx context.Context, signer common.Address, minNonce *big.Int) error {
	return e.update(ctx, func(tx ledger.Tx) ([]Event, error) {
		current, changed, err := ledger.InvalidateBelow(ctx, tx, signer, minNonce)
		if err != nil || !changed {
			return nil, err
		}
		return []Event{newEvent(EventInvalidateBelow, e.now(), &InvalidateBelowEvent{Signer: signer, MinimumNonce: current})}, nil
	})
}

// Authorize lets delegate sign orders and send them for approver until expiry.
func (e *Engine) Authorize(ctx context.Context, approver, delegate common.Address, expiry time.Time) error {
	err := e.update(ctx, func(tx ledger.Tx) ([]Event, error) {
		now := e.now()
		grant, err := ledger.Authorize(ctx, tx, approver, delegate, expiry, now)
		if err != nil {
			return nil, err
		}
		return []Event{newEvent(EventAuthorize, now, &AuthorizeEvent{Approver: approver, Delegate: delegate, Expiry: grant.Expiry})}, nil
	})
	if err != nil {
		return err
	}
	e.metrics.authorization("authorize")
	return nil
}

// Revoke removes the grant from approver to delegate. Revoking a missing
// grant succeeds.
func (e *Engine) Revoke(ctx context.Context, approver, delegate common.Address) error {
	err := e.update(ctx, func(tx ledger.Tx) ([]Event, error) {
		if err := ledger.Revoke(ctx, tx, approver, delegate); err != nil {
			return nil, err
		}
		return []Event{newEvent(EventRevoke, e.now(), &RevokeEvent{Approver: approver, Delegate: delegate})}, nil
	})
	if err != nil {
		return err
	}
	e.metrics.authorization("revoke")
	return nil
}

// IsAuthorized reports whether delegate currently holds a grant from approver.
func (e *Engine) IsAuthorized(ctx context.Context, approver, delegate common.Address) (bool, error) {
	return ledger.IsAuthorized(ctx, e.store, approver, delegate, e.now())
}

// NonceUsed reports whether the signer's nonce was settled, cancelled, or
// is below the signer's minimum nonce.
func (e *Engine) NonceUsed(ctx context.Context, signer common.Address, nonce *big.Int) (bool, error) {
	available, err := ledger.NonceAvailable(ctx, e.store, signer, nonce)
	if err != nil {
		return false, err
	}
	return !available, nil
}

// MinimumNonce returns the signer's minimum nonce.
func (e *Engine) MinimumNonce(ctx context.Context, signer common.Address) (*big.Int, error) {
	return e.store.MinimumNonce(ctx, signer)
}

func (e *Engine) admin(ctx context.Context, caller common.Address, setting, value string, apply func(*feeConfig) error) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.mu.Lock()
	next := e.fees
	err := apply(&next)
	if err == nil {
		e.fees = next
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.log.WithFields(logrus.Fields{"setting": setting, "value": value}).Info("configuration changed")
	e.publisher.Publish(ctx, newEvent(EventAdmin, e.now(), &AdminEvent{Setting: setting, Value: value}))
	return nil
}

// SetProtocolFee sets the fee of Settle and SettleERC20. Only the owner may call it.
func (e *Engine) SetProtocolFee(ctx context.Context, caller common.Address, bps uint64) error {
	return e.admin(ctx, caller, "protocolFee", strconv.FormatUint(bps, 10), func(f *feeConfig) error {
		if err := validateFee(bps, ErrProtocolFeeInvalid); err != nil {
			return err
		}
		f.protocolFee = bps
		return nil
	})
}

// SetProtocolFeeLight sets the fee of SettleLight. Only the owner may call it.
func (e *Engine) SetProtocolFeeLight(ctx context.Context, caller common.Address, bps uint64) error {
	return e.admin(ctx, caller, "protocolFeeLight", strconv.FormatUint(bps, 10), func(f *feeConfig) error {
		if err := validateFee(bps, ErrProtocolFeeLightInvalid); err != nil {
			return err
		}
		f.protocolFeeLight = bps
		return nil
	})
}

// SetFeeRecipient sets the wallet receiving fees. Only the owner may call it.
func (e *Engine) SetFeeRecipient(ctx context.Context, caller, recipient common.Address) error {
	return e.admin(ctx, caller, "feeRecipient", recipient.Hex(), func(f *feeConfig) error {
		if recipient == (common.Address{}) {
			return ErrProtocolFeeWalletInvalid
		}
		f.feeRecipient = recipient
		return nil
	})
}

// SetRebateScale sets the stake scale of the rebate curve. Only the owner may call it.
func (e *Engine) SetRebateScale(ctx context.Context, caller common.Address, scale uint64) error {
	return e.admin(ctx, caller, "rebateScale", strconv.FormatUint(scale, 10), func(f *feeConfig) error {
		if scale > MaxRebateScale {
			return ErrScaleTooHigh
		}
		f.rebateScale = scale
		return nil
	})
}

// SetRebateMax sets the largest rebate as a percentage of the fee. Only the owner may call it.
func (e *Engine) SetRebateMax(ctx context.Context, caller common.Address, pct uint64) error {
	return e.admin(ctx, caller, "rebateMax", strconv.FormatUint(pct, 10), func(f *feeConfig) error {
		if pct > MaxRebateMax {
			return ErrMaxTooHigh
		}
		f.rebateMax = pct
		return nil
	})
}

// SetStaking replaces the staking lookup. Only the owner may call it.
func (e *Engine) SetStaking(ctx context.Context, caller common.Address, staking StakingLookup) error {
	return e.admin(ctx, caller, "staking", fmt.Sprintf("%T", staking), func(f *feeConfig) error {
		if staking == nil {
			return ErrStakingInvalid
		}
		f.staking = staking
		return nil
	})
}

// AddAdapter binds an adapter to its token kind. Only the owner may call it.
func (e *Engine) AddAdapter(ctx context.Context, caller common.Address, a adapters.Adapter) error {
	if a == nil {
		return adapters.ErrNilAdapter
	}
	return e.admin(ctx, caller, "addAdapter", a.Kind().String(), func(*feeConfig) error {
		return e.registry.Add(a)
	})
}

// ReplaceAdapter rebinds a token kind. Only the owner may call it.
func (e *Engine) ReplaceAdapter(ctx context.Context, caller common.Address, a adapters.Adapter) error {
	if a == nil {
		return adapters.ErrNilAdapter
	}
	return e.admin(ctx, caller, "replaceAdapter", a.Kind().String(), func(*feeConfig) error {
		return e.registry.Replace(a)
	})
}
