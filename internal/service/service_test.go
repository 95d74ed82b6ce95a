package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/valory-xyz/triton-bot/internal/chain"
	"github.com/valory-xyz/triton-bot/internal/config"
	"github.com/valory-xyz/triton-bot/pkg/types"
)

var (
	agentEOA    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	serviceSafe = common.HexToAddress("0x2222222222222222222222222222222222222222")
	masterEOA   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	masterSafe  = common.HexToAddress("0x4444444444444444444444444444444444444444")
	withdrawTo  = common.HexToAddress("0x5555555555555555555555555555555555555555")
	stakingAddr = common.HexToAddress("0x5344b7dd311e5d3dddd46a4f71481bd7b05aaa3e")
)

type fixture struct {
	client      *chain.Client
	staking     *chain.StakingTokenContract
	masterSafe  *chain.SafeContract
	serviceSafe *chain.SafeContract
	olas        *chain.ERC20Contract
	wxdai       *chain.ERC20Contract
	svc         *Service
}

func newFixture(t *testing.T, mutate func(*config.Service)) *fixture {
	t.Helper()

	cfg := config.Service{
		Name:              "trader",
		ServiceID:         100,
		StakingContract:   stakingAddr.Hex(),
		AgentEOA:          agentEOA.Hex(),
		ServiceSafe:       serviceSafe.Hex(),
		MasterEOA:         masterEOA.Hex(),
		MasterSafe:        masterSafe.Hex(),
		WithdrawalAddress: withdrawTo.Hex(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f := &fixture{
		client:      chain.NewMockClient(),
		staking:     chain.NewMockStakingTokenContract(stakingAddr),
		masterSafe:  chain.NewMockSafeContract(masterSafe),
		serviceSafe: chain.NewMockSafeContract(serviceSafe),
		olas:        chain.NewMockERC20Contract(chain.OLASTokenAddress),
		wxdai:       chain.NewMockERC20Contract(chain.WXDAITokenAddress),
	}
	f.svc = NewWithContracts(cfg, f.client, f.staking, f.masterSafe, f.serviceSafe, f.olas, f.wxdai, nil)
	return f
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestCheckBalanceSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	f.client.SetMockBalance(agentEOA, ether(1))
	f.client.SetMockBalance(serviceSafe, ether(2))
	f.client.SetMockBalance(masterEOA, ether(3))
	f.client.SetMockBalance(masterSafe, ether(4))
	f.wxdai.SetMockBalance(serviceSafe, ether(5))
	f.olas.SetMockBalance(masterSafe, ether(6))
	f.olas.SetMockBalance(serviceSafe, ether(7))

	snap, err := f.svc.CheckBalance(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name string
		got  *big.Float
		want string
	}{
		{"agent EOA native", snap.AgentEOANative, "1"},
		{"service safe native", snap.ServiceSafeNative, "2"},
		{"master EOA native", snap.MasterEOANative, "3"},
		{"master safe native", snap.MasterSafeNative, "4"},
		{"service safe wrapped", snap.ServiceSafeWrappedNative, "5"},
		{"master safe OLAS", snap.MasterSafeOLAS, "6"},
		{"service safe OLAS", snap.ServiceSafeOLAS, "7"},
	}
	for _, c := range checks {
		if got := c.got.Text('f', 0); got != c.want {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, got)
		}
	}
}

func TestCheckBalanceFailsFastOnMissingAgent(t *testing.T) {
	f := newFixture(t, func(cfg *config.Service) {
		cfg.AgentEOA = "0x0000000000000000000000000000000000000000"
	})
	// A nil client would panic on any RPC read; validation must return
	// before that.
	f.svc.client = nil

	if _, err := f.svc.CheckBalance(context.Background()); err == nil {
		t.Fatal("expected validation error for missing agent instance")
	}
}

func TestClaimRewardsReportsAccruedAmount(t *testing.T) {
	f := newFixture(t, nil)
	f.staking.SetMockServiceInfo(100, &chain.ServiceStakingInfo{
		Multisig: serviceSafe,
		Reward:   ether(3),
	})

	amount := f.svc.ClaimRewards(context.Background())
	if got := amount.Text('f', 0); got != "3" {
		t.Errorf("expected 3 OLAS claimed, got %s", got)
	}

	calls := f.masterSafe.MockCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 safe exec for claim, got %d", len(calls))
	}
	if calls[0].To != stakingAddr {
		t.Errorf("claim must target the staking contract, got %s", calls[0].To.Hex())
	}
}

func TestClaimRewardsFailureReturnsZero(t *testing.T) {
	f := newFixture(t, nil)
	f.staking.SetMockServiceInfo(100, &chain.ServiceStakingInfo{Reward: ether(3)})
	f.masterSafe.SetMockExecError(errors.New("execution reverted"))

	amount := f.svc.ClaimRewards(context.Background())
	if amount.Sign() != 0 {
		t.Errorf("expected zero on claim failure, got %s", amount.String())
	}
}

func TestClaimRewardsNothingAccrued(t *testing.T) {
	f := newFixture(t, nil)
	f.staking.SetMockServiceInfo(100, &chain.ServiceStakingInfo{Reward: big.NewInt(0)})

	amount := f.svc.ClaimRewards(context.Background())
	if amount.Sign() != 0 {
		t.Errorf("expected zero, got %s", amount.String())
	}
	if len(f.masterSafe.MockCalls()) != 0 {
		t.Error("no claim transaction expected when nothing is accrued")
	}
}

func TestWithdrawSkipsWhenUnconfigured(t *testing.T) {
	f := newFixture(t, func(cfg *config.Service) {
		cfg.WithdrawalAddress = ""
	})
	f.olas.SetMockBalance(masterSafe, ether(10))

	withdrawals := f.svc.WithdrawRewards(context.Background())
	if len(withdrawals) != 0 {
		t.Errorf("expected no withdrawals without a withdrawal address, got %d", len(withdrawals))
	}
	if len(f.masterSafe.MockCalls()) != 0 {
		t.Error("no transfers expected without a withdrawal address")
	}
}

func TestWithdrawBothSafes(t *testing.T) {
	f := newFixture(t, nil)
	f.olas.SetMockBalance(masterSafe, ether(10))
	f.olas.SetMockBalance(serviceSafe, ether(4))

	withdrawals := f.svc.WithdrawRewards(context.Background())
	if len(withdrawals) != 2 {
		t.Fatalf("expected 2 withdrawals, got %d", len(withdrawals))
	}

	if withdrawals[0].Source != types.SourceMasterSafe {
		t.Errorf("expected master safe first, got %s", withdrawals[0].Source)
	}
	if got := withdrawals[0].Amount.Text('f', 0); got != "10" {
		t.Errorf("expected 10 OLAS from master safe, got %s", got)
	}
	if withdrawals[1].Source != types.SourceServiceSafe {
		t.Errorf("expected service safe second, got %s", withdrawals[1].Source)
	}
	if got := withdrawals[1].Amount.Text('f', 0); got != "4" {
		t.Errorf("expected 4 OLAS from service safe, got %s", got)
	}

	// Both transfers target the OLAS token contract.
	for _, call := range append(f.masterSafe.MockCalls(), f.serviceSafe.MockCalls()...) {
		if call.To != chain.OLASTokenAddress {
			t.Errorf("transfer must target OLAS token, got %s", call.To.Hex())
		}
	}
}

func TestWithdrawMasterEmptyStillTriesServiceSafe(t *testing.T) {
	f := newFixture(t, nil)
	f.olas.SetMockBalance(serviceSafe, ether(4))

	withdrawals := f.svc.WithdrawRewards(context.Background())
	if len(withdrawals) != 1 {
		t.Fatalf("expected 1 withdrawal, got %d", len(withdrawals))
	}
	if withdrawals[0].Source != types.SourceServiceSafe {
		t.Errorf("expected service safe withdrawal, got %s", withdrawals[0].Source)
	}
}

func TestWithdrawMasterFailureIsolated(t *testing.T) {
	f := newFixture(t, nil)
	f.olas.SetMockBalance(masterSafe, ether(10))
	f.olas.SetMockBalance(serviceSafe, ether(4))
	f.masterSafe.SetMockExecError(errors.New("execution reverted"))

	withdrawals := f.svc.WithdrawRewards(context.Background())
	if len(withdrawals) != 1 {
		t.Fatalf("expected service safe withdrawal to survive master failure, got %d", len(withdrawals))
	}
	if withdrawals[0].Source != types.SourceServiceSafe {
		t.Errorf("expected service safe source, got %s", withdrawals[0].Source)
	}
}
