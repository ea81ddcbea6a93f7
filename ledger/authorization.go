package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Authorize records a grant from approver to delegate, replacing any
// existing grant for the pair. Expiry is kept to whole seconds, like order
// expiry.
func Authorize(ctx context.Context, tx Tx, approver, delegate common.Address, expiry, now time.Time) (Grant, error) {
	if delegate == approver || delegate == (common.Address{}) {
		return Grant{}, ErrInvalidAuthDelegate
	}
	expiry = expiry.Truncate(time.Second)
	if !expiry.After(now) {
		return Grant{}, ErrInvalidAuthExpiry
	}
	grant := Grant{Approver: approver, Delegate: delegate, Expiry: expiry.UTC()}
	if err := tx.PutGrant(ctx, grant); err != nil {
		return Grant{}, err
	}
	return grant, nil
}

// Revoke removes the grant for the pair. Revoking a missing grant is not an error.
func Revoke(ctx context.Context, tx Tx, approver, delegate common.Address) error {
	return tx.DeleteGrant(ctx, approver, delegate)
}

// IsAuthorized reports whether delegate holds a grant from approver that is
// live at the given time. Expired grants are not swept; they simply stop
// counting.
func IsAuthorized(ctx context.Context, r Reader, approver, delegate common.Address, at time.Time) (bool, error) {
	grant, ok, err := r.Grant(ctx, approver, delegate)
	if err != nil || !ok {
		return false, err
	}
	return grant.LiveAt(at), nil
}

// GrantChecker evaluates grants against a reader at the time given by Now.
// It satisfies chain.Authorizer.
type GrantChecker struct {
	Reader Reader
	Now    func() time.Time
}

func (c GrantChecker) IsAuthorized(ctx context.Context, approver, delegate common.Address) (bool, error) {
	return IsAuthorized(ctx, c.Reader, approver, delegate, c.Now())
}
