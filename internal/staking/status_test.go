package staking

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/valory-xyz/triton-bot/internal/chain"
	"github.com/valory-xyz/triton-bot/pkg/types"
)

type stubMetadata struct {
	meta types.ProgramMetadata
	err  error
}

func (s *stubMetadata) Fetch(_ context.Context, _ [32]byte) (types.ProgramMetadata, error) {
	return s.meta, s.err
}

type statusFixture struct {
	staking *chain.StakingTokenContract
	checker *chain.ActivityCheckerContract
	mech    *chain.MechContract
	calc    *Calculator
}

func newStatusFixture(meta MetadataFetcher) *statusFixture {
	checkerAddr := common.HexToAddress("0xcccc000000000000000000000000000000000001")
	mechAddr := common.HexToAddress("0x4554fE75c1f5576c1d7F765B2A036c199Adae329")
	multisig := common.HexToAddress("0x1111000000000000000000000000000000000001")

	staking := chain.NewMockStakingTokenContract(common.HexToAddress("0x5add592ce0a1B5DceCebB5Dcac086Cd9F9e3eA5C"))
	staking.SetMockActivityChecker(checkerAddr)
	staking.SetMockServiceInfo(1, &chain.ServiceStakingInfo{
		Multisig: multisig,
		Nonces:   []*big.Int{big.NewInt(100), big.NewInt(40)},
		Reward:   big.NewInt(2e18),
	})
	staking.SetMockEpoch(big.NewInt(86400), big.NewInt(1700000000))

	checker := chain.NewMockActivityCheckerContract(checkerAddr)
	checker.SetMockMechMarketplace(mechAddr, nil)
	// one request per day
	checker.SetMockLivenessRatio(new(big.Int).Div(big.NewInt(1e18), big.NewInt(86400)))

	mech := chain.NewMockMechContract(mechAddr)
	mech.SetMockRequestCount(multisig, 45)

	calc := NewCalculatorWithFactories(meta, time.UTC,
		func(_ common.Address) (*chain.ActivityCheckerContract, error) { return checker, nil },
		func(_ common.Address) (*chain.MechContract, error) { return mech, nil },
	)

	return &statusFixture{staking: staking, checker: checker, mech: mech, calc: calc}
}

func TestComputeStatus(t *testing.T) {
	meta := &stubMetadata{meta: types.ProgramMetadata{Name: "Triton Expert", Description: "expert program"}}
	f := newStatusFixture(meta)

	status, err := f.calc.Compute(context.Background(), f.staking, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := status.AccruedRewards.Text('f', 0); got != "2" {
		t.Errorf("expected 2 OLAS accrued, got %s", got)
	}
	if status.MechRequestsThisEpoch != 5 {
		t.Errorf("expected 5 epoch requests (45 lifetime - 40 checkpoint), got %d", status.MechRequestsThisEpoch)
	}
	if status.RequiredMechRequests != 1 {
		t.Errorf("expected 1 required request per day, got %d", status.RequiredMechRequests)
	}
	if !status.Meets() {
		t.Error("expected requirement to be met")
	}
	if status.MechResolution != types.ResolvedMarketplace {
		t.Errorf("expected marketplace resolution, got %s", status.MechResolution)
	}
	wantEnd := time.Unix(1700000000+86400, 0).UTC()
	if !status.EpochEnd.Equal(wantEnd) {
		t.Errorf("expected epoch end %v, got %v", wantEnd, status.EpochEnd)
	}
	if status.Metadata.Name != "Triton Expert" {
		t.Errorf("unexpected metadata: %+v", status.Metadata)
	}
}

func TestComputeStatusNegativeEpochCount(t *testing.T) {
	meta := &stubMetadata{}
	f := newStatusFixture(meta)

	// Lifetime counter behind the checkpoint counter.
	multisig := common.HexToAddress("0x1111000000000000000000000000000000000001")
	f.mech.SetMockRequestCount(multisig, 30)

	_, err := f.calc.Compute(context.Background(), f.staking, 1)
	var negErr *NegativeEpochCountError
	if !errors.As(err, &negErr) {
		t.Fatalf("expected NegativeEpochCountError, got %v", err)
	}
	if negErr.Lifetime != 30 || negErr.Checkpoint != 40 {
		t.Errorf("unexpected error detail: %+v", negErr)
	}
}

func TestComputeStatusMetadataFailureIsFatal(t *testing.T) {
	meta := &stubMetadata{err: errors.New("failed to fetch metadata")}
	f := newStatusFixture(meta)

	if _, err := f.calc.Compute(context.Background(), f.staking, 1); err == nil {
		t.Fatal("expected metadata fetch failure to surface")
	}
}

func TestComputeStatusUnstakedService(t *testing.T) {
	meta := &stubMetadata{}
	f := newStatusFixture(meta)

	if _, err := f.calc.Compute(context.Background(), f.staking, 99); err == nil {
		t.Fatal("expected error for unstaked service")
	}
}

func TestRequiredRequestsPerDayRoundsUp(t *testing.T) {
	// ratio of exactly 1/day
	exact := new(big.Int).Div(big.NewInt(1e18), big.NewInt(86400))
	if got := requiredRequestsPerDay(exact); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}

	// slightly above 1/day must round up to 2
	above := new(big.Int).Add(exact, big.NewInt(1e10))
	if got := requiredRequestsPerDay(above); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}

	if got := requiredRequestsPerDay(nil); got != 0 {
		t.Errorf("expected 0 for nil ratio, got %d", got)
	}
	if got := requiredRequestsPerDay(big.NewInt(0)); got != 0 {
		t.Errorf("expected 0 for zero ratio, got %d", got)
	}
}
