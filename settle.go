package swap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/airswap/airswap-protocols-sub003/adapters"
	"github.com/airswap/airswap-protocols-sub003/chain"
	"github.com/airswap/airswap-protocols-sub003/ledger"
)

// settlement is an order of any shape reduced to what the engine checks and moves.
type settlement struct {
	path      Path
	digest    common.Hash
	signature chain.Signature
	nonce     *big.Int
	expiry    *big.Int
	signer    chain.Party
	sender    chain.Party
	affiliate chain.Party
	feeBps    uint64
	rebate    bool

	// senderNamed is set by evaluate when the order names its sender wallet.
	senderNamed bool
}

// plan is a validated settlement, ready to execute.
type plan struct {
	verified  *chain.VerifiedSigner
	signer    adapters.Adapter
	sender    adapters.Adapter
	affiliate adapters.Adapter
	fee       *big.Int
	rebate    *big.Int
}

// Settle settles a multi-kind order. A zero sender wallet lets anyone take
// the order; caller then becomes the sender.
func (e *Engine) Settle(ctx context.Context, caller common.Address, order *chain.SignedOrder) (*Receipt, error) {
	if order == nil {
		return nil, &InvalidParamError{Message: "order is required"}
	}
	return e.settle(ctx, caller, PathSwap, func(fees feeConfig) *settlement {
		return e.swapSettlement(order, fees)
	})
}

func (e *Engine) swapSettlement(signed *chain.SignedOrder, fees feeConfig) *settlement {
	order := signed.Order
	order.ProtocolFee = new(big.Int).SetUint64(fees.protocolFee)
	s := &settlement{
		path:      PathSwap,
		signature: signed.Signature,
		nonce:     order.Nonce,
		expiry:    order.Expiry,
		signer:    order.Signer,
		sender:    order.Sender,
		affiliate: order.Affiliate,
		feeBps:    fees.protocolFee,
		rebate:    true,
	}
	if s.checkRange() == nil {
		s.digest = chain.HashOrder(e.domain, &order)
	}
	return s
}

func (e *Engine) settle(ctx context.Context, caller common.Address, path Path, build func(feeConfig) *settlement) (*Receipt, error) {
	var (
		receipt *Receipt
		s       *settlement
	)
	err := e.update(ctx, func(tx ledger.Tx) ([]Event, error) {
		fees := e.feeConfig()
		s = build(fees)
		s.path = path
		r, err := e.settleTx(ctx, tx, caller, s, fees)
		if err != nil {
			return nil, err
		}
		receipt = r
		return []Event{swapEvent(r)}, nil
	})
	if err != nil {
		e.rejected(path, s, err)
		return nil, err
	}
	e.settled(receipt)
	return receipt, nil
}

// settleTx validates and executes s inside tx. Token movements it makes are
// undone by the caller's journal if it fails.
func (e *Engine) settleTx(ctx context.Context, tx ledger.Tx, caller common.Address, s *settlement, fees feeConfig) (*Receipt, error) {
	now := e.now()
	p, errs := e.evaluate(ctx, tx, caller, s, fees, now, false)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return e.execute(ctx, tx, s, p, fees, now)
}

// evaluate runs the validation sequence. With dryRun unset it stops at the
// first failure; otherwise it reports every failure it can establish.
func (e *Engine) evaluate(ctx context.Context, r ledger.Reader, caller common.Address, s *settlement, fees feeConfig, now time.Time, dryRun bool) (*plan, []error) {
	var errs []error
	fail := func(err error) bool {
		errs = append(errs, err)
		return dryRun
	}

	// Out-of-range integers wrap in the typed-data encoding and would match
	// the digest of a different order.
	if err := s.checkRange(); err != nil {
		return nil, append(errs, err)
	}
	if caller == (common.Address{}) {
		return nil, append(errs, &InvalidParamError{Message: "caller is required"})
	}

	if s.sender.Wallet == (common.Address{}) {
		if !dryRun {
			s.sender.Wallet = caller
		}
	} else {
		s.senderNamed = true
	}

	if bigOrZero(s.expiry).Cmp(big.NewInt(now.Unix())) <= 0 {
		if !fail(ErrOrderExpired) {
			return nil, errs
		}
	}

	if err := ledger.CheckNonce(ctx, r, s.signer.Wallet, s.nonce); err != nil {
		if !fail(err) {
			return nil, errs
		}
	}

	if s.senderNamed && s.sender.Wallet != caller {
		ok, err := ledger.IsAuthorized(ctx, r, s.sender.Wallet, caller, now)
		if err == nil && !ok {
			err = ErrSenderUnauthorized
		}
		if err != nil && !fail(err) {
			return nil, errs
		}
	}

	p := &plan{fee: new(big.Int), rebate: new(big.Int)}
	verified, err := chain.Verify(ctx, chain.VerifyRequest{
		Digest:         s.digest,
		Signature:      s.signature,
		RequiredSigner: s.signer.Wallet,
		Caller:         caller,
		Validator:      e.address,
	}, ledger.GrantChecker{Reader: r, Now: func() time.Time { return now }})
	if err != nil && !fail(err) {
		return nil, errs
	}
	p.verified = verified

	if p.signer, err = e.registry.Resolve(s.signer.Kind); err != nil && !fail(err) {
		return nil, errs
	}
	if p.sender, err = e.registry.Resolve(s.sender.Kind); err != nil && !fail(err) {
		return nil, errs
	}
	if s.affiliate.Wallet != (common.Address{}) {
		if p.affiliate, err = e.registry.Resolve(s.affiliate.Kind); err != nil && !fail(err) {
			return nil, errs
		}
	}

	if p.signer != nil && p.signer.AttemptFeeTransfer() {
		p.fee = CalculateFee(s.signer.AmountOrZero(), s.feeBps)
		if s.rebate && s.sender.Wallet != (common.Address{}) {
			rebate, err := e.rebate(ctx, fees, s.sender.Wallet, p.fee)
			if err != nil {
				return nil, append(errs, err)
			}
			p.rebate = rebate
		}
	}

	if p.signer != nil {
		total := new(big.Int).Add(s.signer.AmountOrZero(), p.fee)
		if p.affiliate != nil && s.paysAffiliateInSignerToken() {
			total.Add(total, s.affiliate.AmountOrZero())
		}
		if !e.precheck(ctx, s.signer.WithAmount(total), p.signer, ErrSignerAllowanceLow, ErrSignerBalanceLow, fail) {
			return nil, errs
		}
	}
	if p.sender != nil && s.sender.Wallet != (common.Address{}) {
		if !e.precheck(ctx, s.sender, p.sender, ErrSenderAllowanceLow, ErrSenderBalanceLow, fail) {
			return nil, errs
		}
	}
	if p.affiliate != nil && !s.paysAffiliateInSignerToken() {
		paid := s.affiliate
		paid.Wallet = s.signer.Wallet
		if !e.precheck(ctx, paid, p.affiliate, ErrAffiliateAllowanceLow, ErrAffiliateBalanceLow, fail) {
			return nil, errs
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

// checkRange rejects integers outside the uint256 range.
func (s *settlement) checkRange() error {
	fields := []struct {
		name  string
		value *big.Int
	}{
		{"nonce", s.nonce},
		{"expiry", s.expiry},
		{"signer amount", s.signer.Amount},
		{"signer id", s.signer.ID},
		{"sender amount", s.sender.Amount},
		{"sender id", s.sender.ID},
		{"affiliate amount", s.affiliate.Amount},
		{"affiliate id", s.affiliate.ID},
	}
	for _, f := range fields {
		if f.value != nil && (f.value.Sign() < 0 || f.value.Cmp(MaxUint256) > 0) {
			return &InvalidParamError{Message: fmt.Sprintf("%s out of uint256 range: %s", f.name, f.value)}
		}
	}
	return nil
}

// paysAffiliateInSignerToken reports whether the affiliate leg draws on the
// same balance as the signer leg.
func (s *settlement) paysAffiliateInSignerToken() bool {
	return s.affiliate.Wallet != (common.Address{}) &&
		s.affiliate.Token == s.signer.Token &&
		s.affiliate.Kind == s.signer.Kind &&
		bigOrZero(s.affiliate.ID).Cmp(bigOrZero(s.signer.ID)) == 0
}

// precheck reports whether evaluation should continue.
func (e *Engine) precheck(ctx context.Context, party chain.Party, a adapters.Adapter, allowanceErr, balanceErr error, fail func(error) bool) bool {
	ok, err := a.HasAllowance(ctx, party, e.address)
	if err == nil && !ok {
		err = allowanceErr
	}
	if err != nil && !fail(err) {
		return false
	}
	ok, err = a.HasBalance(ctx, party)
	if err == nil && !ok {
		err = balanceErr
	}
	if err != nil && !fail(err) {
		return false
	}
	return true
}

func (e *Engine) execute(ctx context.Context, tx ledger.Tx, s *settlement, p *plan, fees feeConfig, now time.Time) (*Receipt, error) {
	signer, sender := s.signer, s.sender
	toRecipient := new(big.Int).Sub(p.fee, p.rebate)
	received := new(big.Int).Add(signer.AmountOrZero(), p.rebate)

	if toRecipient.Sign() > 0 {
		if err := p.signer.Transfer(ctx, e.address, signer.Wallet, fees.feeRecipient, toRecipient, signer.ID, signer.Token); err != nil {
			return nil, fmt.Errorf("%w: fee leg: %w", ErrTransferFailed, err)
		}
	}
	if err := p.signer.Transfer(ctx, e.address, signer.Wallet, sender.Wallet, received, signer.ID, signer.Token); err != nil {
		return nil, fmt.Errorf("%w: signer leg: %w", ErrTransferFailed, err)
	}
	if err := p.sender.Transfer(ctx, e.address, sender.Wallet, signer.Wallet, sender.AmountOrZero(), sender.ID, sender.Token); err != nil {
		return nil, fmt.Errorf("%w: sender leg: %w", ErrTransferFailed, err)
	}
	if p.affiliate != nil {
		aff := s.affiliate
		if err := p.affiliate.Transfer(ctx, e.address, signer.Wallet, aff.Wallet, aff.AmountOrZero(), aff.ID, aff.Token); err != nil {
			return nil, fmt.Errorf("%w: affiliate leg: %w", ErrTransferFailed, err)
		}
	}

	if err := ledger.ConsumeNonce(ctx, tx, signer.Wallet, s.nonce); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		OrderHash:      s.digest,
		Path:           s.path,
		Nonce:          bigOrZero(s.nonce),
		SignerWallet:   signer.Wallet,
		SignerToken:    signer.Token,
		SignerAmount:   signer.AmountOrZero(),
		SenderWallet:   sender.Wallet,
		SenderToken:    sender.Token,
		SenderAmount:   sender.AmountOrZero(),
		Signatory:      p.verified.Signatory,
		ProtocolFee:    s.feeBps,
		Fee:            p.fee,
		Rebate:         p.rebate,
		FeeToRecipient: toRecipient,
		SenderReceived: received,
		SettledAt:      now,
	}
	if log, ok := tx.(ledger.SettlementLog); ok {
		if err := log.RecordSettlement(ctx, settlementRecord(receipt)); err != nil {
			return nil, err
		}
	}
	return receipt, nil
}

func settlementRecord(r *Receipt) ledger.Settlement {
	return ledger.Settlement{
		OrderHash:    r.OrderHash,
		Path:         string(r.Path),
		Nonce:        r.Nonce,
		SignerWallet: r.SignerWallet,
		SignerToken:  r.SignerToken,
		SignerAmount: r.SignerAmount,
		SenderWallet: r.SenderWallet,
		SenderToken:  r.SenderToken,
		SenderAmount: r.SenderAmount,
		ProtocolFee:  new(big.Int).SetUint64(r.ProtocolFee),
		Fee:          r.Fee,
		Rebate:       r.Rebate,
		SettledAt:    r.SettledAt,
	}
}

func swapEvent(r *Receipt) Event {
	return newEvent(EventSwap, r.SettledAt, &SwapEvent{
		OrderHash:    r.OrderHash,
		Path:         r.Path,
		Nonce:        r.Nonce,
		SignerWallet: r.SignerWallet,
		SignerToken:  r.SignerToken,
		SignerAmount: r.SignerAmount,
		ProtocolFee:  r.ProtocolFee,
		SenderWallet: r.SenderWallet,
		SenderToken:  r.SenderToken,
		SenderAmount: r.SenderAmount,
		Fee:          r.Fee,
		Rebate:       r.Rebate,
	})
}

func (e *Engine) settled(r *Receipt) {
	e.metrics.settled(r.Path)
	e.log.WithFields(logrus.Fields{
		"path":          string(r.Path),
		"nonce":         r.Nonce.String(),
		"signer":        r.SignerWallet.Hex(),
		"sender":        r.SenderWallet.Hex(),
		"signer_amount": r.SignerAmount.String(),
		"sender_amount": r.SenderAmount.String(),
		"fee":           r.Fee.String(),
		"rebate":        r.Rebate.String(),
	}).Info("order settled")
}

func (e *Engine) rejected(path Path, s *settlement, err error) {
	reason := Reason(err)
	e.metrics.rejected(path, reason)
	entry := e.log.WithFields(logrus.Fields{"path": string(path), "reason": reason})
	if s != nil {
		entry = entry.WithFields(logrus.Fields{
			"nonce":  bigOrZero(s.nonce).String(),
			"signer": s.signer.Wallet.Hex(),
		})
	}
	entry.WithError(err).Debug("order rejected")
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
