package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EIP712 Domain constants
const (
	DomainName      = "SWAP"
	DomainNameERC20 = "SWAP_ERC20"
	DomainVersion   = "4"
)

// Type descriptors. Field order in every digest is fixed by these strings.
const (
	domainTypeString     = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	partyTypeString      = "Party(address wallet,address token,bytes4 kind,uint256 id,uint256 amount)"
	orderTypeString      = "Order(uint256 nonce,uint256 expiry,uint256 protocolFee,Party signer,Party sender,Party affiliate)"
	orderERC20TypeString = "OrderERC20(uint256 nonce,uint256 expiry,address signerWallet,address signerToken,uint256 signerAmount,uint256 protocolFee,address senderWallet,address senderToken,uint256 senderAmount)"
)

// Pre-computed type hashes using keccak256
var (
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte(domainTypeString))
	PartyTypeHash        = crypto.Keccak256Hash([]byte(partyTypeString))
	// Referenced struct types are appended to the primary type.
	OrderTypeHash      = crypto.Keccak256Hash([]byte(orderTypeString + partyTypeString))
	OrderERC20TypeHash = crypto.Keccak256Hash([]byte(orderERC20TypeString))
)

var (
	bytes32Type = mustType("bytes32")
	bytes4Type  = mustType("bytes4")
	uint256Type = mustType("uint256")
	addressType = mustType("address")
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic("failed to build abi type " + t + ": " + err.Error())
	}
	return typ
}

// EIP712Domain represents the EIP712 domain separator data
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewEIP712Domain creates the domain for multi-kind orders.
func NewEIP712Domain(chainID *big.Int, verifyingContract common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// NewEIP712DomainERC20 creates the domain for flat fungible orders.
func NewEIP712DomainERC20(chainID *big.Int, verifyingContract common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              DomainNameERC20,
		Version:           DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// Hash computes the EIP712 domain separator hash
func (d *EIP712Domain) Hash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: bytes32Type}, // nameHash
		{Type: bytes32Type}, // versionHash
		{Type: uint256Type}, // chainId
		{Type: addressType}, // verifyingContract
	}
	return packHash("domain separator", arguments,
		EIP712DomainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		bigOrZero(d.ChainID),
		d.VerifyingContract,
	)
}

// HashParty computes the struct hash of a Party. Nil amounts and ids hash as zero.
func HashParty(p Party) common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: addressType}, // wallet
		{Type: addressType}, // token
		{Type: bytes4Type},  // kind
		{Type: uint256Type}, // id
		{Type: uint256Type}, // amount
	}
	return packHash("party struct", arguments,
		PartyTypeHash,
		p.Wallet,
		p.Token,
		[4]byte(p.Kind),
		bigOrZero(p.ID),
		bigOrZero(p.Amount),
	)
}

// HashOrderStruct computes the struct hash of an Order.
func HashOrderStruct(o *Order) common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: uint256Type}, // nonce
		{Type: uint256Type}, // expiry
		{Type: uint256Type}, // protocolFee
		{Type: bytes32Type}, // signer
		{Type: bytes32Type}, // sender
		{Type: bytes32Type}, // affiliate
	}
	return packHash("order struct", arguments,
		OrderTypeHash,
		bigOrZero(o.Nonce),
		bigOrZero(o.Expiry),
		bigOrZero(o.ProtocolFee),
		HashParty(o.Signer),
		HashParty(o.Sender),
		HashParty(o.Affiliate),
	)
}

// HashOrderERC20Struct computes the struct hash of a flat order.
func HashOrderERC20Struct(o *OrderERC20) common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: uint256Type}, // nonce
		{Type: uint256Type}, // expiry
		{Type: addressType}, // signerWallet
		{Type: addressType}, // signerToken
		{Type: uint256Type}, // signerAmount
		{Type: uint256Type}, // protocolFee
		{Type: addressType}, // senderWallet
		{Type: addressType}, // senderToken
		{Type: uint256Type}, // senderAmount
	}
	return packHash("order erc20 struct", arguments,
		OrderERC20TypeHash,
		bigOrZero(o.Nonce),
		bigOrZero(o.Expiry),
		o.SignerWallet,
		o.SignerToken,
		bigOrZero(o.SignerAmount),
		bigOrZero(o.ProtocolFee),
		o.SenderWallet,
		o.SenderToken,
		bigOrZero(o.SenderAmount),
	)
}

// HashOrder creates the final EIP712 digest of a multi-kind order:
// keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func HashOrder(domain *EIP712Domain, order *Order) common.Hash {
	return TypedDataDigest(domain.Hash(), HashOrderStruct(order))
}

// HashOrderERC20 creates the final EIP712 digest of a flat order.
func HashOrderERC20(domain *EIP712Domain, order *OrderERC20) common.Hash {
	return TypedDataDigest(domain.Hash(), HashOrderERC20Struct(order))
}

// TypedDataDigest joins a domain separator and a struct hash.
func TypedDataDigest(domainSeparator, structHash common.Hash) common.Hash {
	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domainSeparator.Bytes()...)
	data = append(data, structHash.Bytes()...)
	return crypto.Keccak256Hash(data)
}

// packHash encodes fixed-size values only, so Pack cannot fail on well-typed input.
func packHash(what string, arguments abi.Arguments, values ...interface{}) common.Hash {
	encoded, err := arguments.Pack(values...)
	if err != nil {
		panic("failed to encode " + what + ": " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}
