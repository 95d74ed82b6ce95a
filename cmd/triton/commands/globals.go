package commands

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/valory-xyz/triton-bot/internal/chain"
	"github.com/valory-xyz/triton-bot/internal/config"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/internal/metadata"
	"github.com/valory-xyz/triton-bot/internal/service"
	"github.com/valory-xyz/triton-bot/internal/staking"
	"github.com/valory-xyz/triton-bot/internal/wallet"
)

// ConfigPath is the --config flag value, empty for the default path.
var ConfigPath string

// Build information, set via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func configPath() string {
	if ConfigPath != "" {
		return ConfigPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath())
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logging.Configure(os.Stderr, cfg.Logging.Format, level)
}

// app bundles the pieces every chain-touching command needs.
type app struct {
	cfg        *config.Config
	client     *chain.Client
	registry   *service.Registry
	slots      *service.SlotChecker
	calculator *staking.Calculator
}

// walletKey unlocks the signing key using the password from the
// environment or the platform keyring.
func walletKey(cfg *config.Config) (*ecdsa.PrivateKey, error) {
	wm, err := wallet.Load(cfg.Wallet.KeystoreDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if wm == nil {
		return nil, fmt.Errorf("no wallet found in %s (create one with: triton wallet create)", cfg.Wallet.KeystoreDir)
	}

	password := cfg.Wallet.Password()
	if password == "" {
		password, err = wallet.RetrieveWalletPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to read wallet password from keyring: %w", err)
		}
	}
	if password == "" {
		return nil, fmt.Errorf("wallet password not found: set %s or store it with: triton wallet create", config.EnvWalletPassword)
	}

	return wm.PrivateKey(password)
}

// buildApp loads the configuration, connects to the chain and builds
// the service registry. With needsKey the wallet must be unlocked so
// claim and withdrawal transactions can be signed.
func buildApp(ctx context.Context, needsKey bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	var key *ecdsa.PrivateKey
	if needsKey {
		key, err = walletKey(cfg)
		if err != nil {
			return nil, err
		}
	}

	clientCfg := chain.DefaultClientConfig()
	if cfg.Chain.RPCURL != "" {
		clientCfg.RPCURL = cfg.Chain.RPCURL
	}
	if cfg.Chain.ChainID != 0 {
		clientCfg.ChainID = cfg.Chain.ChainID
	}
	if cfg.Chain.BlockConfirmations != 0 {
		clientCfg.BlockConfirmations = cfg.Chain.BlockConfirmations
	}
	if cfg.Chain.MaxGasPriceGwei != 0 {
		clientCfg.MaxGasPrice = new(big.Int).Mul(big.NewInt(cfg.Chain.MaxGasPriceGwei), big.NewInt(1e9))
	}

	client, err := chain.NewClient(clientCfg, key)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	opts := []metadata.Option{
		metadata.WithTimeout(time.Duration(cfg.Metadata.TimeoutSecs) * time.Second),
	}
	if cfg.Metadata.GatewayURL != "" {
		opts = append(opts, metadata.WithGatewayURL(cfg.Metadata.GatewayURL))
	}
	if cfg.Metadata.NodeAPIURL != "" {
		opts = append(opts, metadata.WithNodeAPI(cfg.Metadata.NodeAPIURL))
	}
	fetcher := metadata.NewFetcher(opts...)

	calculator := staking.NewCalculator(client, fetcher, cfg.Location())

	registry := service.NewRegistry()
	for _, sc := range cfg.Services {
		svc, err := service.New(sc, client, calculator)
		if err != nil {
			client.Close()
			return nil, err
		}
		if err := registry.Add(svc); err != nil {
			client.Close()
			return nil, err
		}
	}

	return &app{
		cfg:        cfg,
		client:     client,
		registry:   registry,
		slots:      service.NewSlotChecker(client, cfg.Programs),
		calculator: calculator,
	}, nil
}
