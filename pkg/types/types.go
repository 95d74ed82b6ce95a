package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain identifies a supported home chain for a staked service.
type Chain string

const (
	ChainGnosis   Chain = "gnosis"
	ChainEthereum Chain = "ethereum"
	ChainBase     Chain = "base"
)

// IsValid reports whether the chain is one of the supported chains.
func (c Chain) IsValid() bool {
	switch c {
	case ChainGnosis, ChainEthereum, ChainBase:
		return true
	}
	return false
}

// ChainFromID maps an EVM chain ID to the chain it identifies.
// Unsupported IDs map to the empty Chain, which is not valid.
func ChainFromID(id int64) Chain {
	switch id {
	case 100:
		return ChainGnosis
	case 1:
		return ChainEthereum
	case 8453:
		return ChainBase
	}
	return ""
}

// ResolutionPath records which strategy produced a mech address.
type ResolutionPath string

const (
	// ResolvedMarketplace means the marketplace activity-checker schema answered.
	ResolvedMarketplace ResolutionPath = "marketplace"
	// ResolvedAgentMech means the legacy mech-activity schema answered.
	ResolvedAgentMech ResolutionPath = "agent-mech"
	// ResolvedFallback means both schemas failed and the fixed default was used.
	ResolvedFallback ResolutionPath = "fallback"
)

// StakingStatus is a point-in-time snapshot of one service's staking state.
// It is derived fresh on each query and never persisted.
type StakingStatus struct {
	// AccruedRewards is the unclaimed reward amount in OLAS display units.
	AccruedRewards *big.Float
	// MechRequestsThisEpoch is the number of mech requests made since the
	// last staking checkpoint.
	MechRequestsThisEpoch uint64
	// RequiredMechRequests is how many requests per day the activity
	// checker demands for the service to stay compliant.
	RequiredMechRequests uint64
	// EpochEnd is the end of the current liveness window in the configured
	// local timezone.
	EpochEnd time.Time
	// Metadata is the staking program metadata resolved from
	// content-addressed storage.
	Metadata ProgramMetadata
	// MechAddress and MechResolution record which mech contract was used
	// and how it was found.
	MechAddress    common.Address
	MechResolution ResolutionPath
}

// Meets reports whether the epoch request count satisfies the requirement.
func (s *StakingStatus) Meets() bool {
	return s.MechRequestsThisEpoch >= s.RequiredMechRequests
}

// ProgramMetadata is the staking program descriptor stored on IPFS.
type ProgramMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BalanceSnapshot holds the seven balances tracked for one service.
// Values are display units (xDAI / OLAS), sampled at approximately the same
// instant with no atomicity guarantee across reads.
type BalanceSnapshot struct {
	AgentEOANative           *big.Float
	ServiceSafeNative        *big.Float
	ServiceSafeWrappedNative *big.Float
	MasterEOANative          *big.Float
	MasterSafeNative         *big.Float
	MasterSafeOLAS           *big.Float
	ServiceSafeOLAS          *big.Float
}

// WithdrawalSource labels where a withdrawal transfer originated.
type WithdrawalSource string

const (
	SourceMasterSafe  WithdrawalSource = "Master Safe"
	SourceServiceSafe WithdrawalSource = "Service Safe"
)

// Withdrawal is one successful reward transfer to the withdrawal address.
type Withdrawal struct {
	TxHash common.Hash
	// Amount is the transferred value in OLAS display units.
	Amount *big.Float
	Source WithdrawalSource
}

// StakingProgram is one staking contract tracked for slot availability.
type StakingProgram struct {
	Name     string
	Address  common.Address
	MaxSlots int
}

// SlotReport is the free-slot count for one staking program.
type SlotReport struct {
	Program        string
	AvailableSlots int
}
