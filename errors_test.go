package swap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airswap/airswap-protocols-sub003/adapters"
)

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrOrderExpired, "OrderExpired"},
		{fmt.Errorf("settle: %w", ErrNonceAlreadyUsed), "NonceAlreadyUsed"},
		{fmt.Errorf("%w: validator mismatch", ErrInvalidSignature), "SignatureInvalid"},
		{fmt.Errorf("%w: sender leg: %w", ErrTransferFailed, errors.New("boom")), "TransferFailed"},
		{fmt.Errorf("%w: fee leg: %w", ErrTransferFailed, &adapters.InvalidArgumentError{Field: "id"}), "InvalidArgument"},
		{&InvalidParamError{Message: "order is required"}, "InvalidArgument"},
		{&ConfigError{Field: "RebateMax", Err: ErrMaxTooHigh}, "MaxTooHigh"},
		{errors.New("disk full"), "Internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reason(tt.err), "%v", tt.err)
	}
}

func TestReasonsAreDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range reasons {
		assert.False(t, seen[r.reason], r.reason)
		seen[r.reason] = true
	}
}
