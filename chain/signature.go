package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature related errors
var (
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSignerUnauthorized = errors.New("signer unauthorized")
)

const personalSignPrefix = "\x19Ethereum Signed Message:\n32"

// Credential is a parsed signature: either *Delegated or *Recoverable.
type Credential interface {
	credential()
}

// Delegated is a signature without cryptographic material. The signatory must
// be the party presenting the order.
type Delegated struct {
	Signatory common.Address
}

// Recoverable is an ECDSA signature over the order digest.
type Recoverable struct {
	Signatory common.Address
	Validator common.Address
	Version   SignatureVersion
	V         uint8
	R         common.Hash
	S         common.Hash
}

func (*Delegated) credential()   {}
func (*Recoverable) credential() {}

// ParseSignature decides which credential a wire signature carries.
func ParseSignature(sig Signature) Credential {
	if sig.V == 0 {
		return &Delegated{Signatory: sig.Signatory}
	}
	return &Recoverable{
		Signatory: sig.Signatory,
		Validator: sig.Validator,
		Version:   sig.Version,
		V:         sig.V,
		R:         sig.R,
		S:         sig.S,
	}
}

// SigningHash returns the hash actually signed for the given version.
func SigningHash(digest common.Hash, version SignatureVersion) (common.Hash, error) {
	switch version {
	case VersionTypedData:
		return digest, nil
	case VersionPersonalSign:
		return crypto.Keccak256Hash([]byte(personalSignPrefix), digest.Bytes()), nil
	default:
		return common.Hash{}, fmt.Errorf("%w: unsupported version 0x%02x", ErrInvalidSignature, byte(version))
	}
}

// Recover returns the address that produced the signature.
func (r *Recoverable) Recover(digest common.Hash) (common.Address, error) {
	hash, err := SigningHash(digest, r.Version)
	if err != nil {
		return common.Address{}, err
	}
	if r.V != 27 && r.V != 28 {
		return common.Address{}, fmt.Errorf("%w: bad recovery id %d", ErrInvalidSignature, r.V)
	}
	v := r.V - 27
	rInt, sInt := r.R.Big(), r.S.Big()
	if !crypto.ValidateSignatureValues(v, rInt, sInt, true) {
		return common.Address{}, fmt.Errorf("%w: signature values out of range", ErrInvalidSignature)
	}

	raw := make([]byte, 0, crypto.SignatureLength)
	raw = append(raw, r.R.Bytes()...)
	raw = append(raw, r.S.Bytes()...)
	raw = append(raw, v)

	pub, err := crypto.SigToPub(hash.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	addr := crypto.PubkeyToAddress(*pub)
	if addr == (common.Address{}) {
		return common.Address{}, ErrInvalidSignature
	}
	return addr, nil
}

// RecoverSigner recovers the signing address of a digest. Delegated
// signatures carry nothing to recover and fail with ErrInvalidSignature.
func RecoverSigner(digest common.Hash, sig Signature) (common.Address, error) {
	rec, ok := ParseSignature(sig).(*Recoverable)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no signature material", ErrInvalidSignature)
	}
	return rec.Recover(digest)
}

// Authorizer reports whether delegate holds a live grant from approver.
type Authorizer interface {
	IsAuthorized(ctx context.Context, approver, delegate common.Address) (bool, error)
}

// VerifiedSigner is the outcome of a successful verification.
type VerifiedSigner struct {
	// Wallet is the signer wallet the order speaks for.
	Wallet common.Address
	// Signatory produced the signature, or presented a delegated one.
	Signatory common.Address
	// Delegated is true when no cryptographic signature was checked.
	Delegated bool
}

// VerifyRequest bundles the inputs of Verify.
type VerifyRequest struct {
	Digest         common.Hash
	Signature      Signature
	RequiredSigner common.Address
	// Caller is the party presenting the order. Delegated signatures must come from it.
	Caller common.Address
	// Validator is the verifying contract. A declared validator must match it.
	Validator common.Address
}

// Verify establishes the effective signer of an order: the required signer
// itself, or a wallet holding a live grant from it.
func Verify(ctx context.Context, req VerifyRequest, auth Authorizer) (*VerifiedSigner, error) {
	if req.RequiredSigner == (common.Address{}) {
		return nil, ErrInvalidSignature
	}

	var (
		signatory common.Address
		delegated bool
	)
	switch cred := ParseSignature(req.Signature).(type) {
	case *Delegated:
		signatory = cred.Signatory
		if signatory == (common.Address{}) {
			signatory = req.Caller
		}
		if signatory != req.Caller {
			return nil, ErrSignerUnauthorized
		}
		delegated = true
	case *Recoverable:
		if cred.Validator != (common.Address{}) && cred.Validator != req.Validator {
			return nil, fmt.Errorf("%w: validator mismatch", ErrInvalidSignature)
		}
		recovered, err := cred.Recover(req.Digest)
		if err != nil {
			return nil, err
		}
		if cred.Signatory != (common.Address{}) && cred.Signatory != recovered {
			return nil, fmt.Errorf("%w: signatory mismatch", ErrInvalidSignature)
		}
		signatory = recovered
	}

	if signatory != req.RequiredSigner {
		ok, err := auth.IsAuthorized(ctx, req.RequiredSigner, signatory)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSignerUnauthorized
		}
	}

	return &VerifiedSigner{
		Wallet:    req.RequiredSigner,
		Signatory: signatory,
		Delegated: delegated,
	}, nil
}
