package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// TokenKind identifies the token standard of a Party. It is the ERC165
// interface id of the standard.
type TokenKind [4]byte

// Token kinds understood by the bundled adapters.
var (
	KindERC20   = TokenKind{0x36, 0x37, 0x2b, 0x07}
	KindERC721  = TokenKind{0x80, 0xac, 0x58, 0xcd}
	KindERC1155 = TokenKind{0xd9, 0xb6, 0x7a, 0x26}
	// ERC777 has no ERC165 id; the ERC1820 interface name hash is used instead.
	KindERC777 = kindFromName("ERC777Token")
)

var kindNames = map[TokenKind]string{
	KindERC20:   "ERC20",
	KindERC721:  "ERC721",
	KindERC1155: "ERC1155",
	KindERC777:  "ERC777",
}

func kindFromName(name string) TokenKind {
	var k TokenKind
	copy(k[:], crypto.Keccak256([]byte(name))[:4])
	return k
}

// String returns the standard name, or the hex id for unknown kinds.
func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return hexutil.Encode(k[:])
}

// MarshalText encodes the kind as 0x-prefixed hex.
func (k TokenKind) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(k[:])), nil
}

// UnmarshalText accepts either a 0x-prefixed 4-byte hex id or a standard name.
func (k *TokenKind) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	for kind, name := range kindNames {
		if strings.EqualFold(s, name) {
			*k = kind
			return nil
		}
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid token kind %q: %w", s, err)
	}
	if len(b) != 4 {
		return fmt.Errorf("invalid token kind %q: want 4 bytes, got %d", s, len(b))
	}
	copy(k[:], b)
	return nil
}

// Party is one side of an order.
type Party struct {
	Wallet common.Address `json:"wallet"`
	Token  common.Address `json:"token"`
	Kind   TokenKind      `json:"kind"`
	ID     *big.Int       `json:"id,omitempty"`
	Amount *big.Int       `json:"amount,omitempty"`
}

// IsZero reports whether the party is unset.
func (p Party) IsZero() bool {
	return p.Wallet == (common.Address{}) && p.Token == (common.Address{}) &&
		bigOrZero(p.ID).Sign() == 0 && bigOrZero(p.Amount).Sign() == 0
}

// AmountOrZero returns the amount, treating nil as zero.
func (p Party) AmountOrZero() *big.Int { return bigOrZero(p.Amount) }

// IDOrZero returns the id, treating nil as zero.
func (p Party) IDOrZero() *big.Int { return bigOrZero(p.ID) }

// WithAmount returns a copy of the party moving amount instead.
func (p Party) WithAmount(amount *big.Int) Party {
	p.Amount = amount
	return p
}

// Order is a multi-kind order between two parties.
type Order struct {
	Nonce       *big.Int `json:"nonce"`
	Expiry      *big.Int `json:"expiry"`
	ProtocolFee *big.Int `json:"protocolFee"`
	Signer      Party    `json:"signer"`
	Sender      Party    `json:"sender"`
	Affiliate   Party    `json:"affiliate"`
}

// OrderERC20 is the flattened fungible-only order.
type OrderERC20 struct {
	Nonce        *big.Int       `json:"nonce"`
	Expiry       *big.Int       `json:"expiry"`
	SignerWallet common.Address `json:"signerWallet"`
	SignerToken  common.Address `json:"signerToken"`
	SignerAmount *big.Int       `json:"signerAmount"`
	ProtocolFee  *big.Int       `json:"protocolFee"`
	SenderWallet common.Address `json:"senderWallet"`
	SenderToken  common.Address `json:"senderToken"`
	SenderAmount *big.Int       `json:"senderAmount"`
}

// SignerParty returns the signer side as an ERC20 Party.
func (o *OrderERC20) SignerParty() Party {
	return Party{Wallet: o.SignerWallet, Token: o.SignerToken, Kind: KindERC20, Amount: bigOrZero(o.SignerAmount)}
}

// SenderParty returns the sender side as an ERC20 Party.
func (o *OrderERC20) SenderParty() Party {
	return Party{Wallet: o.SenderWallet, Token: o.SenderToken, Kind: KindERC20, Amount: bigOrZero(o.SenderAmount)}
}

// SignatureVersion selects how the digest is prepared before recovery.
type SignatureVersion byte

const (
	// VersionTypedData signs the typed-data digest directly.
	VersionTypedData SignatureVersion = 0x01
	// VersionPersonalSign signs "\x19Ethereum Signed Message:\n32" ++ digest.
	VersionPersonalSign SignatureVersion = 0x45
)

// Signature is the wire form of an order signature. V == 0 marks a
// delegated signature: no cryptographic material, the signatory acts in person.
type Signature struct {
	Signatory common.Address   `json:"signatory"`
	Validator common.Address   `json:"validator"`
	Version   SignatureVersion `json:"version"`
	V         uint8            `json:"v"`
	R         common.Hash      `json:"r"`
	S         common.Hash      `json:"s"`
}

// SignedOrder is the unit of settlement for multi-kind orders.
type SignedOrder struct {
	Order     Order     `json:"order"`
	Signature Signature `json:"signature"`
}

// SignedOrderERC20 is the unit of settlement for flat orders.
type SignedOrderERC20 struct {
	Order     OrderERC20 `json:"order"`
	Signature Signature  `json:"signature"`
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// ERC20 ABI JSON for the reads the contract caller performs
const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "totalSupply",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// ERC721 ABI JSON
const erc721ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "getApproved",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// ERC1155 ABI JSON
const erc1155ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "account", "type": "address"},
			{"name": "id", "type": "uint256"}
		],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "account", "type": "address"},
			{"name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// ERC777 ABI JSON
const erc777ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "holder", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "operator", "type": "address"},
			{"name": "tokenHolder", "type": "address"}
		],
		"name": "isOperatorFor",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// GetERC20ABI returns the parsed ERC20 ABI
func GetERC20ABI() abi.ABI { return mustParseABI("ERC20", erc20ABIJSON) }

// GetERC721ABI returns the parsed ERC721 ABI
func GetERC721ABI() abi.ABI { return mustParseABI("ERC721", erc721ABIJSON) }

// GetERC1155ABI returns the parsed ERC1155 ABI
func GetERC1155ABI() abi.ABI { return mustParseABI("ERC1155", erc1155ABIJSON) }

// GetERC777ABI returns the parsed ERC777 ABI
func GetERC777ABI() abi.ABI { return mustParseABI("ERC777", erc777ABIJSON) }

// GetStakingABI returns the parsed staking ABI. The staking contract exposes
// the ERC20 read surface for staked balances.
func GetStakingABI() abi.ABI { return mustParseABI("Staking", erc20ABIJSON) }

func mustParseABI(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}
