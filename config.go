package swap

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// ChainID represents a blockchain chain ID
type ChainID int64

const (
	ChainIDMainnet ChainID = 1
	ChainIDSepolia ChainID = 11155111
	ChainIDLocal   ChainID = 31337 // anvil / hardhat
)

// Fee and rebate bounds
const (
	FeeDivisor     = 10000
	MaxRebateScale = 77
	MaxRebateMax   = 100
)

// ContractAddresses holds contract addresses for each chain
type ContractAddresses struct {
	Swap      common.Address
	SwapERC20 common.Address
	Wrapper   common.Address
	Staking   common.Address
}

// DefaultContractAddresses maps chain IDs to their contract addresses. The
// local entries are the deterministic addresses of the first deployments
// made by the default anvil account.
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDLocal: {
		Swap:      common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		SwapERC20: common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"),
		Wrapper:   common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"),
		Staking:   common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9"),
	},
}

// Config holds the engine configuration. It is usually read from SWAP_*
// environment variables with LoadConfig.
type Config struct {
	ChainID           ChainID        `env:"SWAP_CHAIN_ID" envDefault:"31337"`
	VerifyingContract common.Address `env:"SWAP_CONTRACT"`
	Owner             common.Address `env:"SWAP_OWNER"`
	ProtocolFee       uint64         `env:"SWAP_PROTOCOL_FEE" envDefault:"30"`
	ProtocolFeeLight  uint64         `env:"SWAP_PROTOCOL_FEE_LIGHT" envDefault:"7"`
	FeeRecipient      common.Address `env:"SWAP_FEE_RECIPIENT"`
	RebateScale       uint64         `env:"SWAP_REBATE_SCALE" envDefault:"10"`
	RebateMax         uint64         `env:"SWAP_REBATE_MAX" envDefault:"100"`
	StakingContract   common.Address `env:"SWAP_STAKING"`
	RPCURL            string         `env:"SWAP_RPC_URL"`
	LedgerPath        string         `env:"SWAP_LEDGER_PATH"`
	LogLevel          string         `env:"SWAP_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig parses the environment, fills contract addresses the chain has
// defaults for, and validates the result.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults, ok := DefaultContractAddresses[c.ChainID]
	if !ok {
		return
	}
	if c.VerifyingContract == (common.Address{}) {
		c.VerifyingContract = defaults.SwapERC20
	}
	if c.StakingContract == (common.Address{}) {
		c.StakingContract = defaults.Staking
	}
}

// Validate checks the fee configuration bounds.
func (c Config) Validate() error {
	if c.VerifyingContract == (common.Address{}) {
		return &ConfigError{Field: "VerifyingContract", Err: &InvalidParamError{Message: "verifying contract is required"}}
	}
	if err := validateFee(c.ProtocolFee, ErrProtocolFeeInvalid); err != nil {
		return &ConfigError{Field: "ProtocolFee", Err: err}
	}
	if err := validateFee(c.ProtocolFeeLight, ErrProtocolFeeLightInvalid); err != nil {
		return &ConfigError{Field: "ProtocolFeeLight", Err: err}
	}
	if c.FeeRecipient == (common.Address{}) {
		return &ConfigError{Field: "FeeRecipient", Err: ErrProtocolFeeWalletInvalid}
	}
	if c.RebateScale > MaxRebateScale {
		return &ConfigError{Field: "RebateScale", Err: ErrScaleTooHigh}
	}
	if c.RebateMax > MaxRebateMax {
		return &ConfigError{Field: "RebateMax", Err: ErrMaxTooHigh}
	}
	return nil
}

func validateFee(bps uint64, invalid error) error {
	if bps >= FeeDivisor {
		return fmt.Errorf("%w: %d bps", invalid, bps)
	}
	return nil
}
