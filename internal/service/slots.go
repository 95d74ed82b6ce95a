package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/valory-xyz/triton-bot/internal/chain"
	"github.com/valory-xyz/triton-bot/internal/config"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/pkg/types"
)

// SlotChecker reports free staking slots across the tracked programs.
type SlotChecker struct {
	programs []types.StakingProgram

	// newStaking binds a program contract, replaced with a mock
	// builder in tests.
	newStaking func(addr common.Address) (*chain.StakingTokenContract, error)
}

// NewSlotChecker creates a slot checker over the configured programs
func NewSlotChecker(client *chain.Client, programs []config.Program) *SlotChecker {
	return &SlotChecker{
		programs: stakingPrograms(programs),
		newStaking: func(addr common.Address) (*chain.StakingTokenContract, error) {
			return chain.NewStakingTokenContract(client, addr)
		},
	}
}

// NewSlotCheckerWithFactory creates a slot checker with an explicit
// contract builder. Used by tests.
func NewSlotCheckerWithFactory(programs []config.Program, newStaking func(addr common.Address) (*chain.StakingTokenContract, error)) *SlotChecker {
	return &SlotChecker{programs: stakingPrograms(programs), newStaking: newStaking}
}

func stakingPrograms(programs []config.Program) []types.StakingProgram {
	out := make([]types.StakingProgram, 0, len(programs))
	for _, p := range programs {
		out = append(out, types.StakingProgram{
			Name:     p.Name,
			Address:  common.HexToAddress(p.Address),
			MaxSlots: p.Slots,
		})
	}
	return out
}

// FreeSlots returns the available slot count per program in
// configuration order. A program whose contract cannot be read is
// skipped with a log entry rather than failing the whole report.
func (sc *SlotChecker) FreeSlots(ctx context.Context) []types.SlotReport {
	reports := make([]types.SlotReport, 0, len(sc.programs))

	for _, prog := range sc.programs {
		contract, err := sc.newStaking(prog.Address)
		if err != nil {
			logging.Warn("failed to bind staking program", "program", prog.Name, logging.Err(err))
			continue
		}

		ids, err := contract.GetServiceIDs(ctx)
		if err != nil {
			logging.Warn("failed to read staked services", "program", prog.Name, logging.Err(err))
			continue
		}

		free := prog.MaxSlots - len(ids)
		if free < 0 {
			free = 0
		}
		reports = append(reports, types.SlotReport{
			Program:        prog.Name,
			AvailableSlots: free,
		})
	}

	return reports
}
