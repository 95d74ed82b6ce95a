package staking

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/valory-xyz/triton-bot/internal/chain"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/pkg/types"
)

// FallbackMechAddress is the known agent mech on Gnosis used when the
// activity checker exposes neither getter. Old checker deployments
// predate both schemas but in practice route through this mech.
var FallbackMechAddress = common.HexToAddress("0x77af31De935740567Cf4fF1986D04B2c964A786a")

// Resolution is the outcome of resolving the mech behind an activity
// checker.
type Resolution struct {
	Address common.Address
	Path    types.ResolutionPath
}

type resolverStrategy struct {
	name string
	path types.ResolutionPath
	call func(ctx context.Context, checker *chain.ActivityCheckerContract) (common.Address, error)
}

// Strategies are tried in order; the first one that returns a non-zero
// address wins. The fallback never fails.
var resolverStrategies = []resolverStrategy{
	{
		name: "mech_marketplace",
		path: types.ResolvedMarketplace,
		call: func(ctx context.Context, checker *chain.ActivityCheckerContract) (common.Address, error) {
			return checker.MechMarketplace(ctx)
		},
	},
	{
		name: "agent_mech",
		path: types.ResolvedAgentMech,
		call: func(ctx context.Context, checker *chain.ActivityCheckerContract) (common.Address, error) {
			return checker.AgentMech(ctx)
		},
	},
}

// ResolveMech determines which mech contract records the activity
// counted by the given checker.
func ResolveMech(ctx context.Context, checker *chain.ActivityCheckerContract) *Resolution {
	for _, strategy := range resolverStrategies {
		addr, err := strategy.call(ctx, checker)
		if err != nil {
			logging.Debug("mech resolution strategy failed",
				"strategy", strategy.name,
				"checker", checker.Address().Hex(),
				"error", err)
			continue
		}
		if addr == (common.Address{}) {
			continue
		}
		return &Resolution{Address: addr, Path: strategy.path}
	}

	logging.Debug("falling back to known agent mech", "checker", checker.Address().Hex())
	return &Resolution{Address: FallbackMechAddress, Path: types.ResolvedFallback}
}
