package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CheckNonce fails with ErrNonceAlreadyUsed if the nonce is used, cancelled
// or below the signer's minimum nonce.
func CheckNonce(ctx context.Context, r Reader, signer common.Address, nonce *big.Int) error {
	available, err := NonceAvailable(ctx, r, signer, nonce)
	if err != nil {
		return err
	}
	if !available {
		return ErrNonceAlreadyUsed
	}
	return nil
}

// NonceAvailable reports whether the nonce could still settle.
func NonceAvailable(ctx context.Context, r Reader, signer common.Address, nonce *big.Int) (bool, error) {
	nonce = orZero(nonce)
	minimum, err := r.MinimumNonce(ctx, signer)
	if err != nil {
		return false, err
	}
	if nonce.Cmp(minimum) < 0 {
		return false, nil
	}
	status, err := r.NonceStatus(ctx, signer, nonce)
	if err != nil {
		return false, err
	}
	return status == NonceUnused, nil
}

// ConsumeNonce checks the nonce and marks it used.
func ConsumeNonce(ctx context.Context, tx Tx, signer common.Address, nonce *big.Int) error {
	if err := CheckNonce(ctx, tx, signer, nonce); err != nil {
		return err
	}
	return tx.SetNonceStatus(ctx, signer, orZero(nonce), NonceUsed)
}

// Cancel marks each listed nonce cancelled and returns the nonces that were
// newly cancelled. Already cancelled nonces, including those below the
// minimum nonce, are skipped. A nonce that already settled fails the whole
// call with ErrNonceAlreadyUsed.
func Cancel(ctx context.Context, tx Tx, signer common.Address, nonces []*big.Int) ([]*big.Int, error) {
	minimum, err := tx.MinimumNonce(ctx, signer)
	if err != nil {
		return nil, err
	}

	var cancelled []*big.Int
	for _, nonce := range nonces {
		nonce = orZero(nonce)
		if nonce.Cmp(minimum) < 0 {
			continue
		}
		status, err := tx.NonceStatus(ctx, signer, nonce)
		if err != nil {
			return nil, err
		}
		switch status {
		case NonceUsed:
			return nil, ErrNonceAlreadyUsed
		case NonceCancelled:
			continue
		}
		if err := tx.SetNonceStatus(ctx, signer, nonce, NonceCancelled); err != nil {
			return nil, err
		}
		cancelled = append(cancelled, new(big.Int).Set(nonce))
	}
	return cancelled, nil
}

// InvalidateBelow raises the signer's minimum nonce to minNonce. The
// watermark never decreases; changed is false when it was already at or
// above minNonce. current is the watermark after the call.
func InvalidateBelow(ctx context.Context, tx Tx, signer common.Address, minNonce *big.Int) (current *big.Int, changed bool, err error) {
	minNonce = orZero(minNonce)
	existing, err := tx.MinimumNonce(ctx, signer)
	if err != nil {
		return nil, false, err
	}
	if minNonce.Cmp(existing) <= 0 {
		return existing, false, nil
	}
	if err := tx.SetMinimumNonce(ctx, signer, minNonce); err != nil {
		return nil, false, err
	}
	return new(big.Int).Set(minNonce), true, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
