package staking

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/valory-xyz/triton-bot/internal/chain"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/pkg/types"
)

// secondsPerDay scales the liveness ratio, which the checker expresses
// per second, into the per-day requirement shown to the user.
const secondsPerDay = 86400

var ratioScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// NegativeEpochCountError reports a mech lifetime counter behind the
// last checkpoint counter. That means the two reads hit different mechs
// or a stale RPC node, and the status would be nonsense.
type NegativeEpochCountError struct {
	Lifetime   uint64
	Checkpoint uint64
}

func (e *NegativeEpochCountError) Error() string {
	return fmt.Sprintf("mech lifetime request count %d is behind checkpoint count %d", e.Lifetime, e.Checkpoint)
}

// MetadataFetcher resolves staking program metadata from its on-chain
// content hash.
type MetadataFetcher interface {
	Fetch(ctx context.Context, hash [32]byte) (types.ProgramMetadata, error)
}

// Calculator derives the staking status snapshot for a service from
// its staking program contract.
type Calculator struct {
	metadata MetadataFetcher
	location *time.Location

	// Contract factories, replaced with mock builders in tests.
	newChecker func(addr common.Address) (*chain.ActivityCheckerContract, error)
	newMech    func(addr common.Address) (*chain.MechContract, error)
}

// NewCalculator creates a status calculator backed by the given chain
// client. Epoch deadlines are rendered in location.
func NewCalculator(client *chain.Client, metadata MetadataFetcher, location *time.Location) *Calculator {
	if location == nil {
		location = time.UTC
	}
	return &Calculator{
		metadata: metadata,
		location: location,
		newChecker: func(addr common.Address) (*chain.ActivityCheckerContract, error) {
			return chain.NewActivityCheckerContract(client, addr)
		},
		newMech: func(addr common.Address) (*chain.MechContract, error) {
			return chain.NewMechContract(client, addr)
		},
	}
}

// NewCalculatorWithFactories creates a calculator with explicit contract
// builders. Used by tests to wire mock contracts.
func NewCalculatorWithFactories(
	metadata MetadataFetcher,
	location *time.Location,
	newChecker func(addr common.Address) (*chain.ActivityCheckerContract, error),
	newMech func(addr common.Address) (*chain.MechContract, error),
) *Calculator {
	if location == nil {
		location = time.UTC
	}
	return &Calculator{
		metadata:   metadata,
		location:   location,
		newChecker: newChecker,
		newMech:    newMech,
	}
}

// Compute builds the staking status snapshot for a staked service.
func (c *Calculator) Compute(ctx context.Context, staking *chain.StakingTokenContract, serviceID uint64) (*types.StakingStatus, error) {
	info, err := staking.MapServiceInfo(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to read staking record: %w", err)
	}

	checkerAddr, err := staking.ActivityChecker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity checker address: %w", err)
	}
	checker, err := c.newChecker(checkerAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind activity checker: %w", err)
	}

	resolution := ResolveMech(ctx, checker)
	mech, err := c.newMech(resolution.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to bind mech contract: %w", err)
	}

	lifetime, err := mech.RequestCount(ctx, info.Multisig)
	if err != nil {
		return nil, fmt.Errorf("failed to read mech request count: %w", err)
	}

	sInfo, err := staking.GetServiceInfo(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to read service nonces: %w", err)
	}
	var checkpointCount uint64
	if len(sInfo.Nonces) > 1 {
		checkpointCount = sInfo.Nonces[1].Uint64()
	}

	if lifetime < checkpointCount {
		return nil, &NegativeEpochCountError{Lifetime: lifetime, Checkpoint: checkpointCount}
	}
	epochCount := lifetime - checkpointCount

	ratio, err := checker.LivenessRatio(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read liveness ratio: %w", err)
	}
	required := requiredRequestsPerDay(ratio)

	period, err := staking.LivenessPeriod(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read liveness period: %w", err)
	}
	checkpoint, err := staking.TsCheckpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint timestamp: %w", err)
	}
	epochEnd := time.Unix(checkpoint.Int64()+period.Int64(), 0).In(c.location)

	hash, err := staking.MetadataHash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata hash: %w", err)
	}
	meta, err := c.metadata.Fetch(ctx, hash)
	if err != nil {
		return nil, err
	}

	logging.Debug("computed staking status",
		"service_id", serviceID,
		"mech", resolution.Address.Hex(),
		"resolution", string(resolution.Path),
		"epoch_requests", epochCount,
		"required", required)

	return &types.StakingStatus{
		AccruedRewards:        chain.WeiToEther(info.Reward),
		MechRequestsThisEpoch: epochCount,
		RequiredMechRequests:  required,
		EpochEnd:              epochEnd,
		Metadata:              meta,
		MechAddress:           resolution.Address,
		MechResolution:        resolution.Path,
	}, nil
}

// requiredRequestsPerDay converts the 1e18-scaled per-second liveness
// ratio to a whole per-day request count, rounding up.
func requiredRequestsPerDay(ratio *big.Int) uint64 {
	if ratio == nil || ratio.Sign() <= 0 {
		return 0
	}
	perDay := new(big.Int).Mul(ratio, big.NewInt(secondsPerDay))
	perDay.Add(perDay, new(big.Int).Sub(ratioScale, big.NewInt(1)))
	perDay.Div(perDay, ratioScale)
	return perDay.Uint64()
}
