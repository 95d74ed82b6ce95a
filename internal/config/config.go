// Package config loads and validates the bot configuration from YAML,
// with secrets pulled from the environment.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valory-xyz/triton-bot/pkg/types"
)

// Gnosisscan explorer URL templates used in chat messages.
const (
	GnosisscanAddressURL = "https://gnosisscan.io/address/%s"
	GnosisscanTxURL      = "https://gnosisscan.io/tx/%s"
)

// Environment variables holding secrets. Secrets never live in the
// YAML file.
const (
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvWalletPassword = "WALLET_PASSWORD"
)

// Config represents the complete bot configuration
type Config struct {
	Telegram Telegram        `yaml:"telegram"`
	Chain    Chain           `yaml:"chain"`
	Wallet   Wallet          `yaml:"wallet"`
	Services []Service       `yaml:"services"`
	Programs []Program       `yaml:"staking_programs"`
	Jobs     Jobs            `yaml:"jobs"`
	Metadata Metadata        `yaml:"metadata"`
	Metrics  Metrics         `yaml:"metrics"`
	Logging  Logging         `yaml:"logging"`
	Timezone string          `yaml:"timezone"`
}

// Telegram contains bot transport settings. The token comes from
// TELEGRAM_TOKEN, never from the file.
type Telegram struct {
	ChatID int64 `yaml:"chat_id"`
}

// Token returns the bot token from the environment
func (t Telegram) Token() string {
	return os.Getenv(EnvTelegramToken)
}

// Chain contains Gnosis RPC settings
type Chain struct {
	RPCURL             string `yaml:"rpc_url"`
	ChainID            int64  `yaml:"chain_id"`
	BlockConfirmations int    `yaml:"block_confirmations"`
	MaxGasPriceGwei    int64  `yaml:"max_gas_price_gwei"`
}

// Wallet contains agent keystore settings. The password comes from
// WALLET_PASSWORD or the platform keyring.
type Wallet struct {
	KeystoreDir string `yaml:"keystore_dir"`
}

// Password returns the wallet password from the environment, or ""
// when the keyring should be consulted instead.
func (w Wallet) Password() string {
	return os.Getenv(EnvWalletPassword)
}

// Service describes one staked service the bot watches
type Service struct {
	Name              string `yaml:"name"`
	ServiceID         uint64 `yaml:"service_id"`
	StakingContract   string `yaml:"staking_contract"`
	AgentEOA          string `yaml:"agent_eoa"`
	ServiceSafe       string `yaml:"service_safe"`
	MasterEOA         string `yaml:"master_eoa"`
	MasterSafe        string `yaml:"master_safe"`
	WithdrawalAddress string `yaml:"withdrawal_address,omitempty"`
}

// Program is one staking program tracked for slot availability
type Program struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Slots   int    `yaml:"slots"`
}

// Jobs contains background job settings
type Jobs struct {
	// Balance alert thresholds in xDAI display units
	AgentBalanceThreshold      float64 `yaml:"agent_balance_threshold"`
	SafeBalanceThreshold       float64 `yaml:"safe_balance_threshold"`
	MasterSafeBalanceThreshold float64 `yaml:"master_safe_balance_threshold"`

	// Monthly autoclaim schedule
	Autoclaim        bool `yaml:"autoclaim"`
	AutoclaimDay     int  `yaml:"autoclaim_day"`
	AutoclaimHourUTC int  `yaml:"autoclaim_hour_utc"`

	// ManualClaim gates the chat claim command
	ManualClaim bool `yaml:"manual_claim"`
}

// Metadata contains IPFS metadata fetch settings
type Metadata struct {
	GatewayURL  string `yaml:"gateway_url"`
	NodeAPIURL  string `yaml:"node_api_url,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Metrics contains Prometheus exporter settings
type Metrics struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// Logging contains log output settings
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// DefaultPrograms returns the Pearl staking programs on Gnosis
func DefaultPrograms() []Program {
	return []Program{
		{Name: "Hobbyist (100 OLAS)", Address: "0x389b46c259631acd6a69bde8b6cee218230bae8c", Slots: 100},
		{Name: "Hobbyist 2 (500 OLAS)", Address: "0x238eb6993b90a978ec6aad7530d6429c949c08da", Slots: 50},
		{Name: "Expert (1k OLAS)", Address: "0x5344b7dd311e5d3dddd46a4f71481bd7b05aaa3e", Slots: 20},
		{Name: "Expert 2 (1k OLAS)", Address: "0xb964e44c126410df341ae04b13ab10a985fe3513", Slots: 40},
		{Name: "Expert 3 (2k OLAS)", Address: "0x80fad33cadb5f53f9d29f02db97d682e8b101618", Slots: 20},
		{Name: "Expert 4 (10k OLAS)", Address: "0xad9d891134443b443d7f30013c7e14fe27f2e029", Slots: 26},
		{Name: "Expert 5 (10k OLAS)", Address: "0xe56df1e563de1b10715cb313d514af350d207212", Slots: 26},
		{Name: "Expert 6 (1k OLAS)", Address: "0x2546214aee7eea4bee7689c81231017ca231dc93", Slots: 40},
		{Name: "Expert 7 (10k OLAS)", Address: "0xd7a3c8b975f71030135f1a66e9e23164d54ff455", Slots: 26},
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".triton")

	return &Config{
		Telegram: Telegram{},
		Chain: Chain{
			RPCURL:             "https://rpc.gnosischain.com",
			ChainID:            100,
			BlockConfirmations: 1,
			MaxGasPriceGwei:    50,
		},
		Wallet: Wallet{
			KeystoreDir: filepath.Join(dataDir, "keystore"),
		},
		Programs: DefaultPrograms(),
		Jobs: Jobs{
			AgentBalanceThreshold:      0.1,
			SafeBalanceThreshold:       1,
			MasterSafeBalanceThreshold: 5,
			Autoclaim:                  false,
			AutoclaimDay:               1,
			AutoclaimHourUTC:           9,
			ManualClaim:                true,
		},
		Metadata: Metadata{
			GatewayURL:  "https://gateway.autonolas.tech/ipfs/%s",
			TimeoutSecs: 30,
		},
		Metrics: Metrics{
			Enabled:    false,
			ListenAddr: ":9102",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Timezone: "UTC",
	}
}

// Load loads configuration from file, applying defaults for anything
// the file leaves out. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Wallet.KeystoreDir = expandPath(cfg.Wallet.KeystoreDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain rpc_url is required")
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("invalid chain_id: %d", c.Chain.ChainID)
	}
	if !types.ChainFromID(c.Chain.ChainID).IsValid() {
		return fmt.Errorf("unsupported chain_id: %d", c.Chain.ChainID)
	}

	if c.Jobs.AutoclaimDay < 1 || c.Jobs.AutoclaimDay > 28 {
		return fmt.Errorf("autoclaim_day must be between 1 and 28, got %d", c.Jobs.AutoclaimDay)
	}
	if c.Jobs.AutoclaimHourUTC < 0 || c.Jobs.AutoclaimHourUTC > 23 {
		return fmt.Errorf("autoclaim_hour_utc must be between 0 and 23, got %d", c.Jobs.AutoclaimHourUTC)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	seen := make(map[string]bool)
	for i, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("service %d: name is required", i)
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service name %q", svc.Name)
		}
		seen[svc.Name] = true

		addrs := map[string]string{
			"staking_contract": svc.StakingContract,
			"agent_eoa":        svc.AgentEOA,
			"service_safe":     svc.ServiceSafe,
			"master_eoa":       svc.MasterEOA,
			"master_safe":      svc.MasterSafe,
		}
		for name, addr := range addrs {
			if err := validateEthAddress(name, addr); err != nil {
				return fmt.Errorf("service %q: %w", svc.Name, err)
			}
		}
		// withdrawal_address is optional, but must be valid when set
		if svc.WithdrawalAddress != "" {
			if err := validateEthAddress("withdrawal_address", svc.WithdrawalAddress); err != nil {
				return fmt.Errorf("service %q: %w", svc.Name, err)
			}
		}
	}

	for i, prog := range c.Programs {
		if prog.Name == "" {
			return fmt.Errorf("staking program %d: name is required", i)
		}
		if err := validateEthAddress("address", prog.Address); err != nil {
			return fmt.Errorf("staking program %q: %w", prog.Name, err)
		}
		if prog.Slots < 1 {
			return fmt.Errorf("staking program %q: slots must be at least 1", prog.Name)
		}
	}

	return nil
}

// Location returns the configured timezone. Validate guarantees it
// parses; a bare Config falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// validateEthAddress checks that an Ethereum address is 0x-prefixed,
// 40 hex chars, and non-zero.
func validateEthAddress(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", name)
	}
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("%s must start with 0x, got %q", name, addr)
	}
	hexPart := addr[2:]
	if len(hexPart) != 40 {
		return fmt.Errorf("%s must be 42 characters (0x + 40 hex), got %d", name, len(addr))
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return fmt.Errorf("%s contains invalid hex characters: %w", name, err)
	}
	allZero := true
	for _, ch := range hexPart {
		if ch != '0' {
			allZero = false
			break
		}
	}
	if allZero {
		return fmt.Errorf("%s must not be the zero address", name)
	}
	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".triton", "config.yaml")
}
