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
)

// MechContract provides access to mech request counters. Marketplace
// deployments name the mapping mapRequestsCounts, legacy mechs
// mapRequestCounts; RequestCount tries the first and falls back.
type MechContract struct {
	client       *Client
	contract     *bind.BoundContract
	contractAddr common.Address
	mockMode     bool

	// Mock state
	mockCounts     map[common.Address]uint64
	mockLegacyOnly bool
	mockMu         sync.RWMutex
}

// NewMechContract creates a new mech contract client
func NewMechContract(client *Client, contractAddr common.Address) (*MechContract, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is required (use NewMockMechContract for testing)")
	}
	if !client.IsConnected() {
		return nil, fmt.Errorf("chain client not connected to RPC")
	}

	parsedABI, err := abi.JSON(strings.NewReader(MechABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse mech ABI: %w", err)
	}

	ec := client.Client()
	return &MechContract{
		client:       client,
		contract:     bind.NewBoundContract(contractAddr, parsedABI, ec, ec, ec),
		contractAddr: contractAddr,
	}, nil
}

// NewMockMechContract creates a mock mech contract for testing
func NewMockMechContract(addr common.Address) *MechContract {
	return &MechContract{
		mockMode:     true,
		contractAddr: addr,
		mockCounts:   make(map[common.Address]uint64),
	}
}

// Address returns the mech contract address
func (mc *MechContract) Address() common.Address {
	return mc.contractAddr
}

// RequestCount returns the lifetime number of mech requests made by an
// account, probing the marketplace mapping first and the legacy one on
// revert.
func (mc *MechContract) RequestCount(ctx context.Context, account common.Address) (uint64, error) {
	if mc.mockMode {
		mc.mockMu.RLock()
		defer mc.mockMu.RUnlock()
		return mc.mockCounts[account], nil
	}

	count, err := mc.callCount(ctx, "mapRequestsCounts", account)
	if err == nil {
		return count, nil
	}

	count, legacyErr := mc.callCount(ctx, "mapRequestCounts", account)
	if legacyErr != nil {
		return 0, fmt.Errorf("failed to get request count for %s: %w", account.Hex(), legacyErr)
	}
	return count, nil
}

func (mc *MechContract) callCount(ctx context.Context, method string, account common.Address) (uint64, error) {
	var out []interface{}
	err := mc.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, account)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	if c, ok := out[0].(*big.Int); ok {
		return c.Uint64(), nil
	}
	return 0, nil
}

// SetMockRequestCount sets the lifetime request count in mock mode
func (mc *MechContract) SetMockRequestCount(account common.Address, count uint64) {
	mc.mockMu.Lock()
	defer mc.mockMu.Unlock()
	mc.mockCounts[account] = count
}
