package swap

import (
	"errors"

	"github.com/airswap/airswap-protocols-sub003/adapters"
	"github.com/airswap/airswap-protocols-sub003/chain"
	"github.com/airswap/airswap-protocols-sub003/ledger"
)

var (
	// ErrOrderExpired is returned for orders whose expiry is not in the future
	ErrOrderExpired = errors.New("order expired")

	// ErrSenderUnauthorized is returned when the caller may not act for the sender wallet
	ErrSenderUnauthorized = errors.New("sender unauthorized")

	// ErrUnauthorized is returned when a non-owner calls an administrative operation
	ErrUnauthorized = errors.New("unauthorized")

	ErrSignerAllowanceLow    = errors.New("signer allowance low")
	ErrSignerBalanceLow      = errors.New("signer balance low")
	ErrSenderAllowanceLow    = errors.New("sender allowance low")
	ErrSenderBalanceLow      = errors.New("sender balance low")
	ErrAffiliateAllowanceLow = errors.New("affiliate allowance low")
	ErrAffiliateBalanceLow   = errors.New("affiliate balance low")

	// ErrTransferFailed wraps an adapter failure during execution
	ErrTransferFailed = errors.New("transfer failed")

	ErrValueMustBeZero         = errors.New("value must be zero")
	ErrValueMustBeSent         = errors.New("value must be sent")
	ErrSignerBalanceRemaining  = errors.New("signer token balance remaining")
	ErrWrappedBalanceRemaining = errors.New("wrapped token balance remaining")

	ErrProtocolFeeInvalid       = errors.New("protocol fee invalid")
	ErrProtocolFeeLightInvalid  = errors.New("light protocol fee invalid")
	ErrProtocolFeeWalletInvalid = errors.New("protocol fee wallet invalid")
	ErrScaleTooHigh             = errors.New("rebate scale too high")
	ErrMaxTooHigh               = errors.New("rebate max too high")
	ErrStakingInvalid           = errors.New("staking invalid")
)

// Errors raised by the engine's collaborators, re-exported so callers can
// match everything against this package.
var (
	ErrNonceAlreadyUsed     = ledger.ErrNonceAlreadyUsed
	ErrInvalidAuthDelegate  = ledger.ErrInvalidAuthDelegate
	ErrInvalidAuthExpiry    = ledger.ErrInvalidAuthExpiry
	ErrInvalidSignature     = chain.ErrInvalidSignature
	ErrSignerUnauthorized   = chain.ErrSignerUnauthorized
	ErrNoAdapterForKind     = adapters.ErrNoAdapterForKind
	ErrHandlerExistsForKind = adapters.ErrHandlerExistsForKind
)

// InvalidParamError represents an invalid parameter error with context
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var reasons = []struct {
	err    error
	reason string
}{
	{ErrOrderExpired, "OrderExpired"},
	{ErrNonceAlreadyUsed, "NonceAlreadyUsed"},
	{ErrSenderUnauthorized, "SenderUnauthorized"},
	{ErrSignerUnauthorized, "SignerUnauthorized"},
	{ErrInvalidSignature, "SignatureInvalid"},
	{ErrInvalidAuthDelegate, "DelegateInvalid"},
	{ErrInvalidAuthExpiry, "ExpiryInvalid"},
	{ErrNoAdapterForKind, "NoAdapterForKind"},
	{ErrHandlerExistsForKind, "HandlerExistsForKind"},
	{ErrSignerAllowanceLow, "SignerAllowanceLow"},
	{ErrSignerBalanceLow, "SignerBalanceLow"},
	{ErrSenderAllowanceLow, "SenderAllowanceLow"},
	{ErrSenderBalanceLow, "SenderBalanceLow"},
	{ErrAffiliateAllowanceLow, "AffiliateAllowanceLow"},
	{ErrAffiliateBalanceLow, "AffiliateBalanceLow"},
	{ErrValueMustBeZero, "ValueMustBeZero"},
	{ErrValueMustBeSent, "ValueMustBeSent"},
	{ErrSignerBalanceRemaining, "SignerBalanceRemaining"},
	{ErrWrappedBalanceRemaining, "WrappedBalanceRemaining"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrProtocolFeeInvalid, "ProtocolFeeInvalid"},
	{ErrProtocolFeeLightInvalid, "ProtocolFeeLightInvalid"},
	{ErrProtocolFeeWalletInvalid, "ProtocolFeeWalletInvalid"},
	{ErrScaleTooHigh, "ScaleTooHigh"},
	{ErrMaxTooHigh, "MaxTooHigh"},
	{ErrStakingInvalid, "StakingInvalid"},
	{ErrTransferFailed, "TransferFailed"},
}

// Reason maps an error returned by the engine to its stable reason code.
// Unknown errors map to "Internal"; nil maps to "".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var argErr *adapters.InvalidArgumentError
	var paramErr *InvalidParamError
	if errors.As(err, &argErr) || errors.As(err, &paramErr) {
		return "InvalidArgument"
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "Internal"
}
