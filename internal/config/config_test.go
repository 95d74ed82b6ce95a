package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validService() Service {
	return Service{
		Name:            "trader",
		ServiceID:       100,
		StakingContract: "0x5344b7dd311e5d3dddd46a4f71481bd7b05aaa3e",
		AgentEOA:        "0x1111111111111111111111111111111111111111",
		ServiceSafe:     "0x2222222222222222222222222222222222222222",
		MasterEOA:       "0x3333333333333333333333333333333333333333",
		MasterSafe:      "0x4444444444444444444444444444444444444444",
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if len(cfg.Programs) != 9 {
		t.Errorf("expected 9 default staking programs, got %d", len(cfg.Programs))
	}
	if cfg.Jobs.MasterSafeBalanceThreshold != 5 {
		t.Errorf("unexpected master safe threshold: %f", cfg.Jobs.MasterSafeBalanceThreshold)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chain.ChainID != 100 {
		t.Errorf("expected default chain ID 100, got %d", cfg.Chain.ChainID)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chain:
  rpc_url: https://rpc.example.org
  chain_id: 100
timezone: Europe/Madrid
services:
  - name: trader
    service_id: 100
    staking_contract: "0x5344b7dd311e5d3dddd46a4f71481bd7b05aaa3e"
    agent_eoa: "0x1111111111111111111111111111111111111111"
    service_safe: "0x2222222222222222222222222222222222222222"
    master_eoa: "0x3333333333333333333333333333333333333333"
    master_safe: "0x4444444444444444444444444444444444444444"
    withdrawal_address: "0x5555555555555555555555555555555555555555"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chain.RPCURL != "https://rpc.example.org" {
		t.Errorf("file value not applied: %s", cfg.Chain.RPCURL)
	}
	if cfg.Jobs.AutoclaimDay != 1 {
		t.Errorf("default not preserved: %d", cfg.Jobs.AutoclaimDay)
	}
	if len(cfg.Services) != 1 || cfg.Services[0].WithdrawalAddress == "" {
		t.Errorf("services not parsed: %+v", cfg.Services)
	}
	if cfg.Location().String() != "Europe/Madrid" {
		t.Errorf("unexpected location: %s", cfg.Location())
	}
}

func TestValidateRejectsBadService(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Service)
		want   string
	}{
		{"missing name", func(s *Service) { s.Name = "" }, "name is required"},
		{"bad address", func(s *Service) { s.AgentEOA = "not-an-address" }, "agent_eoa"},
		{"zero address", func(s *Service) { s.MasterSafe = "0x0000000000000000000000000000000000000000" }, "zero address"},
		{"short address", func(s *Service) { s.ServiceSafe = "0x1234" }, "service_safe"},
		{"bad withdrawal", func(s *Service) { s.WithdrawalAddress = "0xzz44444444444444444444444444444444444444" }, "withdrawal_address"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			svc := validService()
			tc.mutate(&svc)
			cfg.Services = []Service{svc}

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateRejectsDuplicateServiceNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Services = []Service{validService(), validService()}

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate name error, got %v", err)
	}
}

func TestValidateRejectsUnsupportedChainID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chain.ChainID = 56

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unsupported chain_id") {
		t.Errorf("expected unsupported chain_id error, got %v", err)
	}
}

func TestValidateSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jobs.AutoclaimDay = 31
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for autoclaim_day 31")
	}

	cfg = DefaultConfig()
	cfg.Jobs.AutoclaimHourUTC = 24
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for autoclaim_hour_utc 24")
	}

	cfg = DefaultConfig()
	cfg.Timezone = "Not/AZone"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bad timezone")
	}
}

func TestSecretsComeFromEnv(t *testing.T) {
	t.Setenv(EnvTelegramToken, "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	t.Setenv(EnvWalletPassword, "hunter2")

	cfg := DefaultConfig()
	if cfg.Telegram.Token() != "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA" {
		t.Error("telegram token not read from environment")
	}
	if cfg.Wallet.Password() != "hunter2" {
		t.Error("wallet password not read from environment")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Berlin"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded.Timezone != "Europe/Berlin" {
		t.Errorf("round trip lost timezone: %s", loaded.Timezone)
	}
}
