package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testSigner   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testSender   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	tokenA       = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB       = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func sampleOrder() *Order {
	return &Order{
		Nonce:       big.NewInt(1),
		Expiry:      big.NewInt(1_900_000_000),
		ProtocolFee: big.NewInt(30),
		Signer:      Party{Wallet: testSigner, Token: tokenA, Kind: KindERC20, Amount: big.NewInt(10000)},
		Sender:      Party{Wallet: testSender, Token: tokenB, Kind: KindERC721, ID: big.NewInt(7)},
	}
}

func sampleOrderERC20() *OrderERC20 {
	return &OrderERC20{
		Nonce:        big.NewInt(1),
		Expiry:       big.NewInt(1_900_000_000),
		SignerWallet: testSigner,
		SignerToken:  tokenA,
		SignerAmount: big.NewInt(10000),
		ProtocolFee:  big.NewInt(30),
		SenderWallet: testSender,
		SenderToken:  tokenB,
		SenderAmount: big.NewInt(10000),
	}
}

func TestTypeHashes(t *testing.T) {
	assert.Equal(t,
		crypto.Keccak256Hash([]byte("Order(uint256 nonce,uint256 expiry,uint256 protocolFee,Party signer,Party sender,Party affiliate)Party(address wallet,address token,bytes4 kind,uint256 id,uint256 amount)")),
		OrderTypeHash)
	assert.Equal(t,
		crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)")),
		EIP712DomainTypeHash)
}

func TestHashOrderDeterministic(t *testing.T) {
	domain := NewEIP712Domain(big.NewInt(31337), testContract)

	first := HashOrder(domain, sampleOrder())
	second := HashOrder(domain, sampleOrder())
	assert.Equal(t, first, second)

	tests := []struct {
		name   string
		mutate func(o *Order)
	}{
		{name: "nonce", mutate: func(o *Order) { o.Nonce = big.NewInt(2) }},
		{name: "expiry", mutate: func(o *Order) { o.Expiry = big.NewInt(1) }},
		{name: "protocol fee", mutate: func(o *Order) { o.ProtocolFee = big.NewInt(7) }},
		{name: "signer amount", mutate: func(o *Order) { o.Signer.Amount = big.NewInt(10001) }},
		{name: "sender id", mutate: func(o *Order) { o.Sender.ID = big.NewInt(8) }},
		{name: "sender kind", mutate: func(o *Order) { o.Sender.Kind = KindERC1155 }},
		{name: "affiliate", mutate: func(o *Order) { o.Affiliate.Wallet = testContract }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := sampleOrder()
			tt.mutate(o)
			assert.NotEqual(t, first, HashOrder(domain, o))
		})
	}
}

func TestHashOrderDomainSeparation(t *testing.T) {
	order := sampleOrder()
	base := HashOrder(NewEIP712Domain(big.NewInt(31337), testContract), order)

	assert.NotEqual(t, base, HashOrder(NewEIP712Domain(big.NewInt(1), testContract), order))
	assert.NotEqual(t, base, HashOrder(NewEIP712Domain(big.NewInt(31337), tokenA), order))
	assert.NotEqual(t, base, HashOrder(NewEIP712DomainERC20(big.NewInt(31337), testContract), order))
}

func TestHashPartyNilFieldsAreZero(t *testing.T) {
	bare := Party{Wallet: testSigner, Token: tokenA, Kind: KindERC20}
	zeroed := Party{Wallet: testSigner, Token: tokenA, Kind: KindERC20, ID: new(big.Int), Amount: new(big.Int)}
	assert.Equal(t, HashParty(bare), HashParty(zeroed))

	assert.NotPanics(t, func() { HashOrder(NewEIP712Domain(nil, testContract), &Order{}) })
}

func TestHashOrderERC20MatchesTypedData(t *testing.T) {
	domain := NewEIP712DomainERC20(big.NewInt(31337), testContract)
	order := sampleOrderERC20()

	typed := OrderERC20TypedData(domain, order)
	domainSeparator, err := typed.HashStruct("EIP712Domain", typed.Domain.Map())
	require.NoError(t, err)
	structHash, err := typed.HashStruct(typed.PrimaryType, typed.Message)
	require.NoError(t, err)

	assert.Equal(t, common.BytesToHash(domainSeparator), domain.Hash())
	assert.Equal(t, common.BytesToHash(structHash), HashOrderERC20Struct(order))
	assert.Equal(t,
		TypedDataDigest(common.BytesToHash(domainSeparator), common.BytesToHash(structHash)),
		HashOrderERC20(domain, order))
}

func TestTokenKindText(t *testing.T) {
	text, err := KindERC721.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "0x80ac58cd", string(text))

	var k TokenKind
	require.NoError(t, k.UnmarshalText([]byte("0xd9b67a26")))
	assert.Equal(t, KindERC1155, k)

	require.NoError(t, k.UnmarshalText([]byte("erc20")))
	assert.Equal(t, KindERC20, k)

	assert.Error(t, k.UnmarshalText([]byte("0x1234")))
	assert.Equal(t, "0xffffffff", TokenKind{0xff, 0xff, 0xff, 0xff}.String())
}
