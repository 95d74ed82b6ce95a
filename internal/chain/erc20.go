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
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/valory-xyz/triton-bot/internal/util"
)

// ERC20Contract provides access to an ERC20 token contract.
// Used for OLAS and WXDAI balance reads and OLAS withdrawal transfers.
type ERC20Contract struct {
	client       *Client
	contract     *bind.BoundContract
	contractABI  abi.ABI
	contractAddr common.Address
	mockMode     bool
	retryConfig  *util.RetryConfig

	// decimals is fetched once from the contract and cached
	decimalsOnce sync.Once
	decimals     uint8
	decimalsErr  error

	// Mock state
	mockBalances map[common.Address]*big.Int
	mockDecimals uint8
	mockMu       sync.RWMutex
}

// NewERC20Contract creates a new ERC20 token contract client
func NewERC20Contract(client *Client, contractAddr common.Address) (*ERC20Contract, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is required (use NewMockERC20Contract for testing)")
	}
	if !client.IsConnected() {
		return nil, fmt.Errorf("chain client not connected to RPC")
	}

	parsedABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	ec := client.Client()
	return &ERC20Contract{
		client:       client,
		contract:     bind.NewBoundContract(contractAddr, parsedABI, ec, ec, ec),
		contractABI:  parsedABI,
		contractAddr: contractAddr,
		retryConfig:  util.DefaultRetryConfig(),
	}, nil
}

// NewMockERC20Contract creates a mock token contract for testing
func NewMockERC20Contract(addr common.Address) *ERC20Contract {
	return &ERC20Contract{
		mockMode:     true,
		contractAddr: addr,
		mockBalances: make(map[common.Address]*big.Int),
		mockDecimals: 18,
	}
}

// Address returns the token contract address
func (tc *ERC20Contract) Address() common.Address {
	return tc.contractAddr
}

// BalanceOf returns the token balance in wei for an address
func (tc *ERC20Contract) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	if tc.mockMode {
		tc.mockMu.RLock()
		defer tc.mockMu.RUnlock()
		balance, exists := tc.mockBalances[account]
		if !exists {
			return big.NewInt(0), nil
		}
		return new(big.Int).Set(balance), nil
	}

	balance, result := util.RetryWithValue(ctx, tc.retryConfig, func() (*big.Int, error) {
		var out []interface{}
		err := tc.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account)
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
		return nil, fmt.Errorf("failed to get token balance of %s: %w", account.Hex(), result.LastError)
	}

	return balance, nil
}

// Decimals returns the token decimals, cached after the first read
func (tc *ERC20Contract) Decimals(ctx context.Context) (uint8, error) {
	if tc.mockMode {
		tc.mockMu.RLock()
		defer tc.mockMu.RUnlock()
		return tc.mockDecimals, nil
	}

	tc.decimalsOnce.Do(func() {
		var out []interface{}
		err := tc.contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals")
		if err != nil {
			tc.decimalsErr = fmt.Errorf("failed to get token decimals: %w", err)
			return
		}
		if len(out) > 0 {
			if d, ok := out[0].(uint8); ok {
				tc.decimals = d
				return
			}
		}
		tc.decimals = 18
	})

	return tc.decimals, tc.decimalsErr
}

// Transfer sends tokens from the signing EOA to a recipient
func (tc *ERC20Contract) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*types.Transaction, error) {
	if tc.mockMode {
		return nil, tc.mockTransfer(tc.client, to, amount)
	}

	auth, err := tc.client.GetTransactOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction options: %w", err)
	}

	tx, err := tc.contract.Transact(auth, "transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to transfer tokens: %w", err)
	}

	return tx, nil
}

func (tc *ERC20Contract) mockTransfer(client *Client, to common.Address, amount *big.Int) error {
	tc.mockMu.Lock()
	defer tc.mockMu.Unlock()

	var from common.Address
	if client != nil {
		from = client.Address()
	}
	current, exists := tc.mockBalances[from]
	if !exists || current.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient token balance")
	}
	tc.mockBalances[from] = new(big.Int).Sub(current, amount)
	toBalance, exists := tc.mockBalances[to]
	if !exists {
		toBalance = big.NewInt(0)
	}
	tc.mockBalances[to] = new(big.Int).Add(toBalance, amount)
	return nil
}

// TransferCalldata encodes an ERC20 transfer call for execution
// through a Gnosis Safe.
func (tc *ERC20Contract) TransferCalldata(to common.Address, amount *big.Int) ([]byte, error) {
	if tc.mockMode {
		parsedABI, err := abi.JSON(strings.NewReader(ERC20ABI))
		if err != nil {
			return nil, err
		}
		return parsedABI.Pack("transfer", to, amount)
	}
	data, err := tc.contractABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer calldata: %w", err)
	}
	return data, nil
}

// SetMockBalance sets a balance in mock mode
func (tc *ERC20Contract) SetMockBalance(account common.Address, balance *big.Int) {
	tc.mockMu.Lock()
	defer tc.mockMu.Unlock()
	tc.mockBalances[account] = new(big.Int).Set(balance)
}

// SetMockDecimals sets the token decimals in mock mode
func (tc *ERC20Contract) SetMockDecimals(decimals uint8) {
	tc.mockMu.Lock()
	defer tc.mockMu.Unlock()
	tc.mockDecimals = decimals
}
