package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/valory-xyz/triton-bot/internal/util"
)

// ServiceStakingInfo mirrors the ServiceInfo struct of the Olas
// StakingToken contract.
type ServiceStakingInfo struct {
	Multisig   common.Address
	Owner      common.Address
	Nonces     []*big.Int
	TsStart    *big.Int
	Reward     *big.Int
	Inactivity *big.Int
}

// StakingTokenContract provides access to an Olas staking program
// contract (one deployment per program).
type StakingTokenContract struct {
	client       *Client
	contract     *bind.BoundContract
	contractABI  abi.ABI
	contractAddr common.Address
	mockMode     bool
	retryConfig  *util.RetryConfig

	// Mock state
	mockServices        map[uint64]*ServiceStakingInfo
	mockLivenessPeriod  *big.Int
	mockTsCheckpoint    *big.Int
	mockMetadataHash    [32]byte
	mockMaxNumServices  uint64
	mockServiceIDs      []*big.Int
	mockActivityChecker common.Address
	mockClaimErr        error
	mockMu              sync.RWMutex
}

// NewStakingTokenContract creates a new staking program contract client
func NewStakingTokenContract(client *Client, contractAddr common.Address) (*StakingTokenContract, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is required (use NewMockStakingTokenContract for testing)")
	}
	if !client.IsConnected() {
		return nil, fmt.Errorf("chain client not connected to RPC")
	}

	parsedABI, err := abi.JSON(strings.NewReader(StakingTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse staking token ABI: %w", err)
	}

	ec := client.Client()
	return &StakingTokenContract{
		client:       client,
		contract:     bind.NewBoundContract(contractAddr, parsedABI, ec, ec, ec),
		contractABI:  parsedABI,
		contractAddr: contractAddr,
		retryConfig:  util.DefaultRetryConfig(),
	}, nil
}

// NewMockStakingTokenContract creates a mock staking contract for testing
func NewMockStakingTokenContract(addr common.Address) *StakingTokenContract {
	return &StakingTokenContract{
		mockMode:           true,
		contractAddr:       addr,
		mockServices:       make(map[uint64]*ServiceStakingInfo),
		mockLivenessPeriod: big.NewInt(86400),
		mockTsCheckpoint:   big.NewInt(0),
		mockMaxNumServices: 100,
	}
}

// Address returns the staking contract address
func (sc *StakingTokenContract) Address() common.Address {
	return sc.contractAddr
}

// MapServiceInfo returns the staking info record for a service through
// the public mapping getter. The reward field holds the accrued but
// unclaimed OLAS in wei. The getter returns five static words; the
// nonces array is not part of it, use GetServiceInfo for nonces.
func (sc *StakingTokenContract) MapServiceInfo(ctx context.Context, serviceID uint64) (*ServiceStakingInfo, error) {
	if sc.mockMode {
		sc.mockMu.RLock()
		defer sc.mockMu.RUnlock()
		info, exists := sc.mockServices[serviceID]
		if !exists {
			return nil, fmt.Errorf("service %d not staked on %s", serviceID, sc.contractAddr.Hex())
		}
		return info, nil
	}

	info, result := util.RetryWithValue(ctx, sc.retryConfig, func() (*ServiceStakingInfo, error) {
		var out []interface{}
		err := sc.contract.Call(&bind.CallOpts{Context: ctx}, &out, "mapServiceInfo", new(big.Int).SetUint64(serviceID))
		if err != nil {
			return nil, err
		}
		return decodeServiceInfoWords(out)
	})
	if result.LastError != nil {
		return nil, fmt.Errorf("failed to get service info for %d: %w", serviceID, result.LastError)
	}

	return info, nil
}

// decodeServiceInfoWords decodes the five-word mapping getter return:
// multisig, owner, tsStart, reward, inactivity.
func decodeServiceInfoWords(out []interface{}) (*ServiceStakingInfo, error) {
	if len(out) < 5 {
		return nil, fmt.Errorf("unexpected mapServiceInfo result length %d", len(out))
	}
	info := &ServiceStakingInfo{}
	if v, ok := out[0].(common.Address); ok {
		info.Multisig = v
	}
	if v, ok := out[1].(common.Address); ok {
		info.Owner = v
	}
	if v, ok := out[2].(*big.Int); ok {
		info.TsStart = v
	}
	if v, ok := out[3].(*big.Int); ok {
		info.Reward = v
	}
	if v, ok := out[4].(*big.Int); ok {
		info.Inactivity = v
	}
	return info, nil
}

// GetServiceInfo returns the same record through the tuple-returning
// getter. The nonces array carries activity counters; index 1 is the
// mech request count at the last checkpoint.
func (sc *StakingTokenContract) GetServiceInfo(ctx context.Context, serviceID uint64) (*ServiceStakingInfo, error) {
	if sc.mockMode {
		return sc.MapServiceInfo(ctx, serviceID)
	}

	info, result := util.RetryWithValue(ctx, sc.retryConfig, func() (*ServiceStakingInfo, error) {
		var out []interface{}
		err := sc.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getServiceInfo", new(big.Int).SetUint64(serviceID))
		if err != nil {
			return nil, err
		}
		return decodeServiceInfoTuple(out)
	})
	if result.LastError != nil {
		return nil, fmt.Errorf("failed to get service info for %d: %w", serviceID, result.LastError)
	}

	return info, nil
}

// serviceInfoTuple matches the getServiceInfo tuple components by field
// name. The decoder synthesizes its own struct type for the tuple, so
// conversion goes through abi.ConvertType rather than a type assertion.
type serviceInfoTuple struct {
	Multisig   common.Address
	Owner      common.Address
	Nonces     []*big.Int
	TsStart    *big.Int
	Reward     *big.Int
	Inactivity *big.Int
}

// decodeServiceInfoTuple decodes the tuple-returning getServiceInfo
// result, the only read that carries the nonces array.
func decodeServiceInfoTuple(out []interface{}) (*ServiceStakingInfo, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("empty getServiceInfo result")
	}
	res := *abi.ConvertType(out[0], new(serviceInfoTuple)).(*serviceInfoTuple)
	return &ServiceStakingInfo{
		Multisig:   res.Multisig,
		Owner:      res.Owner,
		Nonces:     res.Nonces,
		TsStart:    res.TsStart,
		Reward:     res.Reward,
		Inactivity: res.Inactivity,
	}, nil
}

// LivenessPeriod returns the epoch length in seconds
func (sc *StakingTokenContract) LivenessPeriod(ctx context.Context) (*big.Int, error) {
	if sc.mockMode {
		sc.mockMu.RLock()
		defer sc.mockMu.RUnlock()
		return new(big.Int).Set(sc.mockLivenessPeriod), nil
	}
	return sc.callUint(ctx, "livenessPeriod")
}

// TsCheckpoint returns the unix timestamp of the last epoch checkpoint
func (sc *StakingTokenContract) TsCheckpoint(ctx context.Context) (*big.Int, error) {
	if sc.mockMode {
		sc.mockMu.RLock()
		defer sc.mockMu.RUnlock()
		return new(big.Int).Set(sc.mockTsCheckpoint), nil
	}
	return sc.callUint(ctx, "tsCheckpoint")
}

// MaxNumServices returns the slot capacity of the program
func (sc *StakingTokenContract) MaxNumServices(ctx context.Context) (uint64, error) {
	if sc.mockMode {
		sc.mockMu.RLock()
		defer sc.mockMu.RUnlock()
		return sc.mockMaxNumServices, nil
	}
	v, err := sc.callUint(ctx, "maxNumServices")
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// GetServiceIDs returns the IDs of all currently staked services
func (sc *StakingTokenContract) GetServiceIDs(ctx context.Context) ([]*big.Int, error) {
	if sc.mockMode {
		sc.mockMu.RLock()
		defer sc.mockMu.RUnlock()
		out := make([]*big.Int, len(sc.mockServiceIDs))
		copy(out, sc.mockServiceIDs)
		return out, nil
	}

	ids, result := util.RetryWithValue(ctx, sc.retryConfig, func() ([]*big.Int, error) {
		var out []interface{}
		err := sc.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getServiceIds")
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, nil
		}
		if ids, ok := out[0].([]*big.Int); ok {
			return ids, nil
		}
		return nil, nil
	})
	if result.LastError != nil {
		return nil, fmt.Errorf("failed to get service IDs: %w", result.LastError)
	}

	return ids, nil
}

// MetadataHash returns the IPFS content hash of the program metadata
func (sc *StakingTokenContract) MetadataHash(ctx context.Context) ([32]byte, error) {
	if sc.mockMode {
		sc.mockMu.RLock()
		defer sc.mockMu.RUnlock()
		return sc.mockMetadataHash, nil
	}

	hash, result := util.RetryWithValue(ctx, sc.retryConfig, func() ([32]byte, error) {
		var out []interface{}
		err := sc.contract.Call(&bind.CallOpts{Context: ctx}, &out, "metadataHash")
		if err != nil {
			return [32]byte{}, err
		}
		if len(out) == 0 {
			return [32]byte{}, fmt.Errorf("empty metadataHash result")
		}
		if h, ok := out[0].([32]byte); ok {
			return h, nil
		}
		return [32]byte{}, fmt.Errorf("unexpected metadataHash result type")
	})
	if result.LastError != nil {
		return [32]byte{}, fmt.Errorf("failed to get metadata hash: %w", result.LastError)
	}

	return hash, nil
}

// ActivityChecker returns the address of the activity checker wired to
// this program
func (sc *StakingTokenContract) ActivityChecker(ctx context.Context) (common.Address, error) {
	if sc.mockMode {
		sc.mockMu.RLock()
		defer sc.mockMu.RUnlock()
		return sc.mockActivityChecker, nil
	}

	addr, result := util.RetryWithValue(ctx, sc.retryConfig, func() (common.Address, error) {
		var out []interface{}
		err := sc.contract.Call(&bind.CallOpts{Context: ctx}, &out, "activityChecker")
		if err != nil {
			return common.Address{}, err
		}
		if len(out) == 0 {
			return common.Address{}, fmt.Errorf("empty activityChecker result")
		}
		if a, ok := out[0].(common.Address); ok {
			return a, nil
		}
		return common.Address{}, fmt.Errorf("unexpected activityChecker result type")
	})
	if result.LastError != nil {
		return common.Address{}, fmt.Errorf("failed to get activity checker: %w", result.LastError)
	}

	return addr, nil
}

// ClaimCalldata encodes a claim call for execution through the service
// owner multisig.
func (sc *StakingTokenContract) ClaimCalldata(serviceID uint64) ([]byte, error) {
	if sc.mockMode {
		parsedABI, err := abi.JSON(strings.NewReader(StakingTokenABI))
		if err != nil {
			return nil, err
		}
		return parsedABI.Pack("claim", new(big.Int).SetUint64(serviceID))
	}
	data, err := sc.contractABI.Pack("claim", new(big.Int).SetUint64(serviceID))
	if err != nil {
		return nil, fmt.Errorf("failed to encode claim calldata: %w", err)
	}
	return data, nil
}

// MockClaim applies a claim in mock mode, zeroing the accrued reward
func (sc *StakingTokenContract) MockClaim(serviceID uint64) error {
	sc.mockMu.Lock()
	defer sc.mockMu.Unlock()
	if sc.mockClaimErr != nil {
		return sc.mockClaimErr
	}
	info, exists := sc.mockServices[serviceID]
	if !exists {
		return fmt.Errorf("service %d not staked", serviceID)
	}
	info.Reward = big.NewInt(0)
	return nil
}

func (sc *StakingTokenContract) callUint(ctx context.Context, method string) (*big.Int, error) {
	v, result := util.RetryWithValue(ctx, sc.retryConfig, func() (*big.Int, error) {
		var out []interface{}
		err := sc.contract.Call(&bind.CallOpts{Context: ctx}, &out, method)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return big.NewInt(0), nil
		}
		if b, ok := out[0].(*big.Int); ok {
			return b, nil
		}
		return big.NewInt(0), nil
	})
	if result.LastError != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, result.LastError)
	}
	return v, nil
}

// ─── Mock setters ────────────────────────────────────────────────────────────

// SetMockServiceInfo sets the staking record for a service in mock mode
func (sc *StakingTokenContract) SetMockServiceInfo(serviceID uint64, info *ServiceStakingInfo) {
	sc.mockMu.Lock()
	defer sc.mockMu.Unlock()
	sc.mockServices[serviceID] = info
	found := false
	for _, id := range sc.mockServiceIDs {
		if id.Uint64() == serviceID {
			found = true
			break
		}
	}
	if !found {
		sc.mockServiceIDs = append(sc.mockServiceIDs, new(big.Int).SetUint64(serviceID))
	}
}

// SetMockEpoch sets liveness period and checkpoint timestamp in mock mode
func (sc *StakingTokenContract) SetMockEpoch(livenessPeriod, tsCheckpoint *big.Int) {
	sc.mockMu.Lock()
	defer sc.mockMu.Unlock()
	sc.mockLivenessPeriod = new(big.Int).Set(livenessPeriod)
	sc.mockTsCheckpoint = new(big.Int).Set(tsCheckpoint)
}

// SetMockMetadataHash sets the metadata hash in mock mode
func (sc *StakingTokenContract) SetMockMetadataHash(hash [32]byte) {
	sc.mockMu.Lock()
	defer sc.mockMu.Unlock()
	sc.mockMetadataHash = hash
}

// SetMockMaxNumServices sets the slot capacity in mock mode
func (sc *StakingTokenContract) SetMockMaxNumServices(n uint64) {
	sc.mockMu.Lock()
	defer sc.mockMu.Unlock()
	sc.mockMaxNumServices = n
}

// SetMockActivityChecker sets the activity checker address in mock mode
func (sc *StakingTokenContract) SetMockActivityChecker(addr common.Address) {
	sc.mockMu.Lock()
	defer sc.mockMu.Unlock()
	sc.mockActivityChecker = addr
}

// SetMockClaimError makes MockClaim fail in mock mode
func (sc *StakingTokenContract) SetMockClaimError(err error) {
	sc.mockMu.Lock()
	defer sc.mockMu.Unlock()
	sc.mockClaimErr = err
}
