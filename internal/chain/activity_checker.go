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

// ActivityCheckerContract provides access to a staking activity checker.
// Deployments come in two schemas: marketplace-era checkers expose
// mechMarketplace, legacy ones agentMech. Callers probe both.
type ActivityCheckerContract struct {
	client       *Client
	contract     *bind.BoundContract
	contractAddr common.Address
	mockMode     bool

	// Mock state. A nil error with a zero address models a getter that
	// reverts on the real deployment.
	mockMarketplace    common.Address
	mockMarketplaceErr error
	mockAgentMech      common.Address
	mockAgentMechErr   error
	mockLivenessRatio  *big.Int
	mockMu             sync.RWMutex
}

// NewActivityCheckerContract creates a new activity checker client
func NewActivityCheckerContract(client *Client, contractAddr common.Address) (*ActivityCheckerContract, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is required (use NewMockActivityCheckerContract for testing)")
	}
	if !client.IsConnected() {
		return nil, fmt.Errorf("chain client not connected to RPC")
	}

	parsedABI, err := abi.JSON(strings.NewReader(ActivityCheckerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse activity checker ABI: %w", err)
	}

	ec := client.Client()
	return &ActivityCheckerContract{
		client:       client,
		contract:     bind.NewBoundContract(contractAddr, parsedABI, ec, ec, ec),
		contractAddr: contractAddr,
	}, nil
}

// NewMockActivityCheckerContract creates a mock activity checker for testing
func NewMockActivityCheckerContract(addr common.Address) *ActivityCheckerContract {
	return &ActivityCheckerContract{
		mockMode:          true,
		contractAddr:      addr,
		mockLivenessRatio: new(big.Int).Div(big.NewInt(1e18), big.NewInt(86400)),
	}
}

// Address returns the activity checker contract address
func (ac *ActivityCheckerContract) Address() common.Address {
	return ac.contractAddr
}

// MechMarketplace returns the marketplace address on marketplace-era
// checkers. The call reverts on legacy deployments.
func (ac *ActivityCheckerContract) MechMarketplace(ctx context.Context) (common.Address, error) {
	if ac.mockMode {
		ac.mockMu.RLock()
		defer ac.mockMu.RUnlock()
		if ac.mockMarketplaceErr != nil {
			return common.Address{}, ac.mockMarketplaceErr
		}
		return ac.mockMarketplace, nil
	}
	return ac.callAddress(ctx, "mechMarketplace")
}

// AgentMech returns the mech address on legacy checkers. The call
// reverts on marketplace-era deployments.
func (ac *ActivityCheckerContract) AgentMech(ctx context.Context) (common.Address, error) {
	if ac.mockMode {
		ac.mockMu.RLock()
		defer ac.mockMu.RUnlock()
		if ac.mockAgentMechErr != nil {
			return common.Address{}, ac.mockAgentMechErr
		}
		return ac.mockAgentMech, nil
	}
	return ac.callAddress(ctx, "agentMech")
}

// LivenessRatio returns the required request rate scaled by 1e18,
// expressed per second.
func (ac *ActivityCheckerContract) LivenessRatio(ctx context.Context) (*big.Int, error) {
	if ac.mockMode {
		ac.mockMu.RLock()
		defer ac.mockMu.RUnlock()
		return new(big.Int).Set(ac.mockLivenessRatio), nil
	}

	var out []interface{}
	err := ac.contract.Call(&bind.CallOpts{Context: ctx}, &out, "livenessRatio")
	if err != nil {
		return nil, fmt.Errorf("failed to get liveness ratio: %w", err)
	}
	if len(out) == 0 {
		return big.NewInt(0), nil
	}
	if r, ok := out[0].(*big.Int); ok {
		return r, nil
	}
	return big.NewInt(0), nil
}

func (ac *ActivityCheckerContract) callAddress(ctx context.Context, method string) (common.Address, error) {
	var out []interface{}
	err := ac.contract.Call(&bind.CallOpts{Context: ctx}, &out, method)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(out) == 0 {
		return common.Address{}, fmt.Errorf("empty %s result", method)
	}
	if a, ok := out[0].(common.Address); ok {
		return a, nil
	}
	return common.Address{}, fmt.Errorf("unexpected %s result type", method)
}

// ─── Mock setters ────────────────────────────────────────────────────────────

// SetMockMechMarketplace sets the marketplace getter result in mock mode
func (ac *ActivityCheckerContract) SetMockMechMarketplace(addr common.Address, err error) {
	ac.mockMu.Lock()
	defer ac.mockMu.Unlock()
	ac.mockMarketplace = addr
	ac.mockMarketplaceErr = err
}

// SetMockAgentMech sets the agent mech getter result in mock mode
func (ac *ActivityCheckerContract) SetMockAgentMech(addr common.Address, err error) {
	ac.mockMu.Lock()
	defer ac.mockMu.Unlock()
	ac.mockAgentMech = addr
	ac.mockAgentMechErr = err
}

// SetMockLivenessRatio sets the liveness ratio in mock mode
func (ac *ActivityCheckerContract) SetMockLivenessRatio(ratio *big.Int) {
	ac.mockMu.Lock()
	defer ac.mockMu.Unlock()
	ac.mockLivenessRatio = new(big.Int).Set(ratio)
}
