// Command swapcheck reports why a signed order would fail to settle against
// a live chain. It reads balances, allowances and staking through an RPC
// endpoint and nonces and grants from a local ledger.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	swap "github.com/airswap/airswap-protocols-sub003"
	"github.com/airswap/airswap-protocols-sub003/adapters"
	"github.com/airswap/airswap-protocols-sub003/chain"
	"github.com/airswap/airswap-protocols-sub003/ledger"
	"github.com/airswap/airswap-protocols-sub003/ledger/sqlite"
)

type options struct {
	orderPath string
	kind      string
	caller    common.Address
	timeout   time.Duration
}

func main() {
	var (
		envFile   = flag.String("env", ".env", "Optional .env file with SWAP_* settings")
		orderPath = flag.String("order", "-", "Signed order JSON file, - for stdin")
		kind      = flag.String("kind", "erc20", "Order shape: erc20|swap")
		callerHex = flag.String("caller", "", "Address that would submit the order")
		timeout   = flag.Duration("timeout", 30*time.Second, "RPC timeout")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Fatalf("load env (%s): %v", *envFile, err)
	}
	if !common.IsHexAddress(*callerHex) {
		logrus.Fatalf("invalid -caller %q", *callerHex)
	}

	reasons, err := run(options{
		orderPath: *orderPath,
		kind:      strings.ToLower(*kind),
		caller:    common.HexToAddress(*callerHex),
		timeout:   *timeout,
	})
	if err != nil {
		logrus.Fatal(err)
	}
	if len(reasons) == 0 {
		fmt.Println("ok")
		return
	}
	for _, r := range reasons {
		fmt.Println(r)
	}
	os.Exit(1)
}

func run(opts options) ([]string, error) {
	cfg, err := swap.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(level)
	log := logrus.WithField("cmd", "swapcheck")

	if cfg.RPCURL == "" {
		return nil, errors.New("SWAP_RPC_URL is required")
	}

	raw, err := readOrder(opts.orderPath)
	if err != nil {
		return nil, fmt.Errorf("read order: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	rpc, err := chain.NewContractCaller(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("rpc: %w", err)
	}
	defer rpc.Close()

	store, closeStore, err := openLedger(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	defer closeStore()

	engineOpts := []swap.Option{swap.WithLogger(log)}
	if cfg.StakingContract != (common.Address{}) {
		engineOpts = append(engineOpts, swap.WithStaking(rpc.Staking(cfg.StakingContract)))
	}
	engine, err := swap.NewEngine(cfg, store, adapters.Standard(rpc), engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	switch opts.kind {
	case "erc20":
		var order chain.SignedOrderERC20
		if err := json.Unmarshal(raw, &order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		return engine.CheckERC20(ctx, opts.caller, &order), nil
	case "swap":
		var order chain.SignedOrder
		if err := json.Unmarshal(raw, &order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		return engine.Check(ctx, opts.caller, &order), nil
	default:
		return nil, fmt.Errorf("unknown -kind %q", opts.kind)
	}
}

func readOrder(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filepath.Clean(path))
}

func openLedger(path string) (ledger.Store, func(), error) {
	if path == "" {
		return ledger.NewMemoryStore(), func() {}, nil
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
