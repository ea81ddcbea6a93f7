package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// OrderSigner signs orders for one verifying contract.
type OrderSigner struct {
	key         *ecdsa.PrivateKey
	address     common.Address
	domain      *EIP712Domain
	domainERC20 *EIP712Domain
}

// NewOrderSigner creates an OrderSigner from a hex private key.
func NewOrderSigner(privateKeyHex string, chainID int64, verifyingContract common.Address) (*OrderSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewOrderSignerFromKey(key, chainID, verifyingContract), nil
}

// NewOrderSignerFromKey creates an OrderSigner from a parsed key.
func NewOrderSignerFromKey(key *ecdsa.PrivateKey, chainID int64, verifyingContract common.Address) *OrderSigner {
	return &OrderSigner{
		key:         key,
		address:     crypto.PubkeyToAddress(key.PublicKey),
		domain:      NewEIP712Domain(big.NewInt(chainID), verifyingContract),
		domainERC20: NewEIP712DomainERC20(big.NewInt(chainID), verifyingContract),
	}
}

// Address returns the address of the signing key.
func (s *OrderSigner) Address() common.Address {
	return s.address
}

// SignOrder signs a multi-kind order.
func (s *OrderSigner) SignOrder(order *Order, version SignatureVersion) (*SignedOrder, error) {
	sig, err := s.SignDigest(HashOrder(s.domain, order), version)
	if err != nil {
		return nil, err
	}
	return &SignedOrder{Order: *order, Signature: sig}, nil
}

// SignOrderERC20 signs a flat order with a typed-data signature.
func (s *OrderSigner) SignOrderERC20(order *OrderERC20) (*SignedOrderERC20, error) {
	sig, err := s.SignDigest(HashOrderERC20(s.domainERC20, order), VersionTypedData)
	if err != nil {
		return nil, err
	}
	return &SignedOrderERC20{Order: *order, Signature: sig}, nil
}

// SignDigest signs an order digest and fills in signatory and validator.
func (s *OrderSigner) SignDigest(digest common.Hash, version SignatureVersion) (Signature, error) {
	hash, err := SigningHash(digest, version)
	if err != nil {
		return Signature{}, err
	}
	raw, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign order: %w", err)
	}

	return Signature{
		Signatory: s.address,
		Validator: s.domain.VerifyingContract,
		Version:   version,
		// Add recovery ID
		V: raw[64] + 27,
		R: common.BytesToHash(raw[:32]),
		S: common.BytesToHash(raw[32:64]),
	}, nil
}

// OrderERC20TypedData returns the typed-data payload a wallet signs with
// eth_signTypedData_v4 for a flat order.
func OrderERC20TypedData(domain *EIP712Domain, order *OrderERC20) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"OrderERC20": []apitypes.Type{
				{Name: "nonce", Type: "uint256"},
				{Name: "expiry", Type: "uint256"},
				{Name: "signerWallet", Type: "address"},
				{Name: "signerToken", Type: "address"},
				{Name: "signerAmount", Type: "uint256"},
				{Name: "protocolFee", Type: "uint256"},
				{Name: "senderWallet", Type: "address"},
				{Name: "senderToken", Type: "address"},
				{Name: "senderAmount", Type: "uint256"},
			},
		},
		PrimaryType: "OrderERC20",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(bigOrZero(domain.ChainID)),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"nonce":        (*math.HexOrDecimal256)(bigOrZero(order.Nonce)),
			"expiry":       (*math.HexOrDecimal256)(bigOrZero(order.Expiry)),
			"signerWallet": order.SignerWallet.Hex(),
			"signerToken":  order.SignerToken.Hex(),
			"signerAmount": (*math.HexOrDecimal256)(bigOrZero(order.SignerAmount)),
			"protocolFee":  (*math.HexOrDecimal256)(bigOrZero(order.ProtocolFee)),
			"senderWallet": order.SenderWallet.Hex(),
			"senderToken":  order.SenderToken.Hex(),
			"senderAmount": (*math.HexOrDecimal256)(bigOrZero(order.SenderAmount)),
		},
	}
}
