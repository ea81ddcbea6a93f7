package tokens

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MintNFT assigns a unique id of token to wallet.
func (w *World) MintNFT(token, to common.Address, id *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	set(w, w.owners, idKey{token, idString(id)}, to)
}

// ApproveNFT approves spender for a single id. Only the owner may approve.
func (w *World) ApproveNFT(token, owner, spender common.Address, id *big.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := idKey{token, idString(id)}
	if w.owners[key] != owner {
		return fmt.Errorf("%w: %s does not own %s #%s", ErrNotOwner, owner.Hex(), token.Hex(), idString(id))
	}
	set(w, w.approvals, key, spender)
	return nil
}

func (w *World) OwnerOf(_ context.Context, token common.Address, id *big.Int) (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.owners[idKey{token, idString(id)}], nil
}

func (w *World) GetApproved(_ context.Context, token common.Address, id *big.Int) (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.approvals[idKey{token, idString(id)}], nil
}

func (w *World) IsApprovedForAll(_ context.Context, token, owner, operator common.Address) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.operators[allowanceKey{token, owner, operator}], nil
}

// TransferNFT moves a unique id. The operator must own it, be approved for
// it, or be a blanket operator of the owner. The single-id approval is
// cleared.
func (w *World) TransferNFT(_ context.Context, token, operator, from, to common.Address, id *big.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := idKey{token, idString(id)}
	return w.atomic(func() error {
		if err := w.checkFrozen(token, from, to); err != nil {
			return err
		}
		if w.owners[key] != from {
			return fmt.Errorf("%w: %s does not own %s #%s", ErrNotOwner, from.Hex(), token.Hex(), key.id)
		}
		if operator != from && w.approvals[key] != operator && !w.operators[allowanceKey{token, from, operator}] {
			return fmt.Errorf("%w: %s for %s #%s", ErrNotApproved, operator.Hex(), token.Hex(), key.id)
		}
		set(w, w.approvals, key, common.Address{})
		set(w, w.owners, key, to)
		return nil
	})
}

// MintID credits amount of one id of a multi-token contract.
func (w *World) MintID(token, to common.Address, id, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	key := multiKey{token, to, idString(id)}
	set(w, w.multi, key, new(big.Int).Add(amountOf(w.multi, key), amount))
	return nil
}

func (w *World) BalanceOfID(_ context.Context, token, owner common.Address, id *big.Int) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return amountOf(w.multi, multiKey{token, owner, idString(id)}), nil
}

// TransferID moves amount of one id. The operator must be the holder or a
// blanket operator.
func (w *World) TransferID(_ context.Context, token, operator, from, to common.Address, id, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.atomic(func() error {
		if err := w.checkFrozen(token, from, to); err != nil {
			return err
		}
		if operator != from && !w.operators[allowanceKey{token, from, operator}] {
			return fmt.Errorf("%w: %s for %s", ErrNotApproved, operator.Hex(), token.Hex())
		}
		fromKey := multiKey{token, from, idString(id)}
		balance := amountOf(w.multi, fromKey)
		if balance.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s has %s of %s #%s", ErrInsufficientBalance, from.Hex(), balance, token.Hex(), fromKey.id)
		}
		set(w, w.multi, fromKey, balance.Sub(balance, amount))
		toKey := multiKey{token, to, idString(id)}
		set(w, w.multi, toKey, new(big.Int).Add(amountOf(w.multi, toKey), amount))
		return nil
	})
}

// IsOperatorFor reports whether operator may move holder's operator-style
// tokens. A holder is always its own operator.
func (w *World) IsOperatorFor(_ context.Context, token, operator, holder common.Address) (bool, error) {
	if operator == holder {
		return true, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.operators[allowanceKey{token, holder, operator}], nil
}

// OperatorSend moves operator-style fungible tokens on behalf of holder.
func (w *World) OperatorSend(_ context.Context, token, operator, from, to common.Address, amount *big.Int) error {
	amount, err := checkAmount(amount)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.atomic(func() error {
		if operator != from && !w.operators[allowanceKey{token, from, operator}] {
			return fmt.Errorf("%w: %s for %s", ErrNotApproved, operator.Hex(), token.Hex())
		}
		return w.move(token, from, to, amount)
	})
}
