package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/valory-xyz/triton-bot/internal/util"
)

// Well-known Gnosis chain addresses.
var (
	// OLASTokenAddress is the OLAS ERC20 token on Gnosis.
	OLASTokenAddress = common.HexToAddress("0xcE11e14225575945b8E6Dc0D4F2dD4C570f79d9f")
	// WXDAITokenAddress is the wrapped xDAI token on Gnosis.
	WXDAITokenAddress = common.HexToAddress("0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d")
)

// GnosisChainID is the chain ID of Gnosis mainnet.
const GnosisChainID = 100

// ClientConfig holds configuration for the Gnosis chain client
type ClientConfig struct {
	RPCURL             string
	ChainID            int64
	BlockConfirmations int
	MaxGasPrice        *big.Int
	RetryConfig        *util.RetryConfig
}

// DefaultClientConfig returns sensible defaults for Gnosis mainnet
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		RPCURL:             "https://rpc.gnosischain.com",
		ChainID:            GnosisChainID,
		BlockConfirmations: 1,
		MaxGasPrice:        big.NewInt(50e9), // 50 gwei max
		RetryConfig:        util.DefaultRetryConfig(),
	}
}

// Client provides access to the Gnosis chain via JSON-RPC
type Client struct {
	config     *ClientConfig
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int

	// Nonce management
	nonceMu      sync.Mutex
	pendingNonce uint64

	// Connection state
	connected bool
	mu        sync.RWMutex

	// Mock state
	mockMode     bool
	mockBalances map[common.Address]*big.Int
	mockMu       sync.RWMutex
}

// NewMockClient creates a mock chain client for testing. It reports
// connected and serves native balances from in-memory state.
func NewMockClient() *Client {
	return &Client{
		config:       DefaultClientConfig(),
		chainID:      big.NewInt(GnosisChainID),
		connected:    true,
		mockMode:     true,
		mockBalances: make(map[common.Address]*big.Int),
	}
}

// SetMockBalance sets a native balance in mock mode
func (c *Client) SetMockBalance(address common.Address, balance *big.Int) {
	c.mockMu.Lock()
	defer c.mockMu.Unlock()
	c.mockBalances[address] = new(big.Int).Set(balance)
}

// NewClient creates a new Gnosis chain client. The private key is the
// agent EOA used to sign transactions; pass nil for read-only use.
func NewClient(config *ClientConfig, privateKey *ecdsa.PrivateKey) (*Client, error) {
	if config == nil {
		config = DefaultClientConfig()
	}

	c := &Client{
		config:     config,
		privateKey: privateKey,
		chainID:    big.NewInt(config.ChainID),
	}

	if privateKey != nil {
		c.address = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	return c, nil
}

// Connect establishes the RPC connection and verifies the chain ID
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, result := util.RetryWithValue(ctx, c.config.RetryConfig, func() (*ethclient.Client, error) {
		return ethclient.DialContext(ctx, c.config.RPCURL)
	})
	if result.LastError != nil {
		return fmt.Errorf("failed to connect to Gnosis RPC: %w", result.LastError)
	}
	c.client = client

	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if chainID.Cmp(c.chainID) != 0 {
		return fmt.Errorf("chain ID mismatch: expected %d, got %d", c.chainID, chainID)
	}

	if c.privateKey != nil {
		nonce, err := c.client.PendingNonceAt(ctx, c.address)
		if err != nil {
			return fmt.Errorf("failed to get nonce: %w", err)
		}
		c.pendingNonce = nonce
	}

	c.connected = true
	return nil
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	c.connected = false
}

// IsConnected returns true if connected to the RPC endpoint
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Client returns the underlying ethclient
func (c *Client) Client() *ethclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Address returns the signing EOA address
func (c *Client) Address() common.Address {
	return c.address
}

// PrivateKey returns the signing key, or nil in read-only mode
func (c *Client) PrivateKey() *ecdsa.PrivateKey {
	return c.privateKey
}

// ChainID returns the chain ID
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// GetBalance returns the native xDAI balance in wei
func (c *Client) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	if c.mockMode {
		c.mockMu.RLock()
		defer c.mockMu.RUnlock()
		balance, exists := c.mockBalances[address]
		if !exists {
			return big.NewInt(0), nil
		}
		return new(big.Int).Set(balance), nil
	}

	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("not connected")
	}

	balance, result := util.RetryWithValue(ctx, c.config.RetryConfig, func() (*big.Int, error) {
		return client.BalanceAt(ctx, address, nil)
	})
	if result.LastError != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", address.Hex(), result.LastError)
	}

	return balance, nil
}

// GetTransactOpts creates transaction options for signing
func (c *Client) GetTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("no private key configured")
	}

	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("not connected")
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	if c.config.MaxGasPrice != nil && gasPrice.Cmp(c.config.MaxGasPrice) > 0 {
		gasPrice = c.config.MaxGasPrice
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	auth.Context = ctx
	auth.GasPrice = gasPrice

	c.nonceMu.Lock()
	auth.Nonce = big.NewInt(int64(c.pendingNonce))
	c.pendingNonce++
	c.nonceMu.Unlock()

	return auth, nil
}

// SyncNonce synchronizes the nonce with the network. Called after a
// failed send so the local counter does not drift ahead.
func (c *Client) SyncNonce(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("not connected")
	}

	nonce, err := client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return fmt.Errorf("failed to get nonce: %w", err)
	}

	c.nonceMu.Lock()
	c.pendingNonce = nonce
	c.nonceMu.Unlock()

	return nil
}

// WaitForTransaction waits for a transaction to be mined and confirmed
func (c *Client) WaitForTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("not connected")
	}

	receipt, err := bind.WaitMined(ctx, client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction: %w", err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("transaction failed: %s", tx.Hash().Hex())
	}

	if c.config.BlockConfirmations > 0 {
		targetBlock := receipt.BlockNumber.Uint64() + uint64(c.config.BlockConfirmations)

		for {
			select {
			case <-ctx.Done():
				return receipt, ctx.Err()
			case <-time.After(2 * time.Second):
				currentBlock, err := client.BlockNumber(ctx)
				if err != nil {
					continue // Retry
				}
				if currentBlock >= targetBlock {
					return receipt, nil
				}
			}
		}
	}

	return receipt, nil
}

// GetBlockNumber returns the current block number
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return 0, fmt.Errorf("not connected")
	}

	return client.BlockNumber(ctx)
}
