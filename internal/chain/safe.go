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
	"github.com/valory-xyz/triton-bot/internal/logging"
)

// SafeCall records a transaction executed through a Safe in mock mode.
type SafeCall struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// SafeContract provides access to a Gnosis Safe v1.3.0 multisig. The
// bot only deals with single-owner safes where the signing EOA is the
// owner, so transactions use the pre-validated signature scheme.
type SafeContract struct {
	client       *Client
	contract     *bind.BoundContract
	contractABI  abi.ABI
	contractAddr common.Address
	mockMode     bool

	// Mock state
	mockCalls   []SafeCall
	mockExecErr error
	mockOwners  []common.Address
	mockMu      sync.RWMutex
}

// NewSafeContract creates a new Safe multisig client
func NewSafeContract(client *Client, contractAddr common.Address) (*SafeContract, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is required (use NewMockSafeContract for testing)")
	}
	if !client.IsConnected() {
		return nil, fmt.Errorf("chain client not connected to RPC")
	}

	parsedABI, err := abi.JSON(strings.NewReader(GnosisSafeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse safe ABI: %w", err)
	}

	ec := client.Client()
	return &SafeContract{
		client:       client,
		contract:     bind.NewBoundContract(contractAddr, parsedABI, ec, ec, ec),
		contractABI:  parsedABI,
		contractAddr: contractAddr,
	}, nil
}

// NewMockSafeContract creates a mock safe for testing
func NewMockSafeContract(addr common.Address) *SafeContract {
	return &SafeContract{
		mockMode:     true,
		contractAddr: addr,
	}
}

// Address returns the safe address
func (s *SafeContract) Address() common.Address {
	return s.contractAddr
}

// GetOwners returns the safe owner addresses
func (s *SafeContract) GetOwners(ctx context.Context) ([]common.Address, error) {
	if s.mockMode {
		s.mockMu.RLock()
		defer s.mockMu.RUnlock()
		out := make([]common.Address, len(s.mockOwners))
		copy(out, s.mockOwners)
		return out, nil
	}

	var out []interface{}
	err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getOwners")
	if err != nil {
		return nil, fmt.Errorf("failed to get safe owners: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	if owners, ok := out[0].([]common.Address); ok {
		return owners, nil
	}
	return nil, nil
}

// ExecTransaction executes a call through the safe with the signing EOA
// as sender and sole owner. Operation is always CALL.
func (s *SafeContract) ExecTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	if s.mockMode {
		s.mockMu.Lock()
		defer s.mockMu.Unlock()
		if s.mockExecErr != nil {
			return nil, s.mockExecErr
		}
		s.mockCalls = append(s.mockCalls, SafeCall{To: to, Value: value, Data: data})
		logging.Info("mock safe exec", "safe", s.contractAddr.Hex(), "to", to.Hex(), "value", value.String())
		return nil, nil
	}

	auth, err := s.client.GetTransactOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction options: %w", err)
	}

	signature := PreValidatedSignature(s.client.Address())
	zeroAddr := common.Address{}
	zero := big.NewInt(0)

	tx, err := s.contract.Transact(auth, "execTransaction",
		to, value, data,
		uint8(0),           // operation: CALL
		zero, zero, zero,   // safeTxGas, baseGas, gasPrice
		zeroAddr, zeroAddr, // gasToken, refundReceiver
		signature,
	)
	if err != nil {
		if syncErr := s.client.SyncNonce(ctx); syncErr != nil {
			logging.Warn("failed to resync nonce after safe exec error", "error", syncErr)
		}
		return nil, fmt.Errorf("failed to execute safe transaction: %w", err)
	}

	return tx, nil
}

// ExecTransactionAndWait executes through the safe and waits for the
// receipt.
func (s *SafeContract) ExecTransactionAndWait(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	tx, err := s.ExecTransaction(ctx, to, value, data)
	if err != nil {
		return nil, err
	}
	if s.mockMode || tx == nil {
		return nil, nil
	}
	return s.client.WaitForTransaction(ctx, tx)
}

// PreValidatedSignature builds the Safe contract-signature encoding for
// an owner that is also msg.sender: r holds the owner address, s is
// unused and v=1 marks the signature as pre-validated.
func PreValidatedSignature(owner common.Address) []byte {
	sig := make([]byte, 65)
	copy(sig[12:32], owner.Bytes())
	sig[64] = 1
	return sig
}

// ─── Mock accessors ──────────────────────────────────────────────────────────

// SetMockOwners sets the owner list in mock mode
func (s *SafeContract) SetMockOwners(owners []common.Address) {
	s.mockMu.Lock()
	defer s.mockMu.Unlock()
	s.mockOwners = owners
}

// SetMockExecError makes ExecTransaction fail in mock mode
func (s *SafeContract) SetMockExecError(err error) {
	s.mockMu.Lock()
	defer s.mockMu.Unlock()
	s.mockExecErr = err
}

// MockCalls returns the transactions executed in mock mode
func (s *SafeContract) MockCalls() []SafeCall {
	s.mockMu.RLock()
	defer s.mockMu.RUnlock()
	out := make([]SafeCall, len(s.mockCalls))
	copy(out, s.mockCalls)
	return out
}
