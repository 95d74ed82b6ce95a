// Package service implements the per-service operations behind the bot
// commands: balances, staking status, reward claiming and withdrawal.
package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/valory-xyz/triton-bot/internal/chain"
	"github.com/valory-xyz/triton-bot/internal/config"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/internal/staking"
	"github.com/valory-xyz/triton-bot/pkg/types"
)

// Service wraps one staked service with the contracts needed to watch
// and operate it.
type Service struct {
	name      string
	serviceID uint64

	agentEOA   common.Address
	masterEOA  common.Address
	withdrawal common.Address // zero when withdrawal is not configured

	client      *chain.Client
	staking     *chain.StakingTokenContract
	masterSafe  *chain.SafeContract
	serviceSafe *chain.SafeContract
	olas        *chain.ERC20Contract
	wxdai       *chain.ERC20Contract
	calculator  *staking.Calculator
}

// New builds a Service from its configuration, binding the on-chain
// contracts through the given client.
func New(cfg config.Service, client *chain.Client, calculator *staking.Calculator) (*Service, error) {
	stakingContract, err := chain.NewStakingTokenContract(client, common.HexToAddress(cfg.StakingContract))
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}
	masterSafe, err := chain.NewSafeContract(client, common.HexToAddress(cfg.MasterSafe))
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}
	serviceSafe, err := chain.NewSafeContract(client, common.HexToAddress(cfg.ServiceSafe))
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}
	olas, err := chain.NewERC20Contract(client, chain.OLASTokenAddress)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}
	wxdai, err := chain.NewERC20Contract(client, chain.WXDAITokenAddress)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}

	svc := &Service{
		client:      client,
		staking:     stakingContract,
		masterSafe:  masterSafe,
		serviceSafe: serviceSafe,
		olas:        olas,
		wxdai:       wxdai,
		calculator:  calculator,
	}
	svc.applyConfig(cfg)
	return svc, nil
}

// NewWithContracts builds a Service around explicit contract instances.
// Used by tests to wire mocks.
func NewWithContracts(
	cfg config.Service,
	client *chain.Client,
	stakingContract *chain.StakingTokenContract,
	masterSafe, serviceSafe *chain.SafeContract,
	olas, wxdai *chain.ERC20Contract,
	calculator *staking.Calculator,
) *Service {
	svc := &Service{
		client:      client,
		staking:     stakingContract,
		masterSafe:  masterSafe,
		serviceSafe: serviceSafe,
		olas:        olas,
		wxdai:       wxdai,
		calculator:  calculator,
	}
	svc.applyConfig(cfg)
	return svc
}

func (s *Service) applyConfig(cfg config.Service) {
	s.name = cfg.Name
	s.serviceID = cfg.ServiceID
	s.agentEOA = common.HexToAddress(cfg.AgentEOA)
	s.masterEOA = common.HexToAddress(cfg.MasterEOA)
	if cfg.WithdrawalAddress != "" {
		s.withdrawal = common.HexToAddress(cfg.WithdrawalAddress)
	}
}

// Name returns the configured service name
func (s *Service) Name() string {
	return s.name
}

// ServiceID returns the on-chain service ID
func (s *Service) ServiceID() uint64 {
	return s.serviceID
}

// ServiceSafe returns the service multisig address
func (s *Service) ServiceSafe() common.Address {
	return s.serviceSafe.Address()
}

// AgentEOA returns the agent signer address
func (s *Service) AgentEOA() common.Address {
	return s.agentEOA
}

// MasterEOA returns the master signer address
func (s *Service) MasterEOA() common.Address {
	return s.masterEOA
}

// MasterSafe returns the master multisig address
func (s *Service) MasterSafe() common.Address {
	return s.masterSafe.Address()
}

// WithdrawalAddress returns the configured withdrawal target, zero
// when withdrawals are disabled.
func (s *Service) WithdrawalAddress() common.Address {
	return s.withdrawal
}

// HasWithdrawalAddress reports whether withdrawals are configured
func (s *Service) HasWithdrawalAddress() bool {
	return s.withdrawal != (common.Address{})
}

// StakingStatus computes the current staking snapshot for the service
func (s *Service) StakingStatus(ctx context.Context) (*types.StakingStatus, error) {
	logging.Info("checking staking status", logging.Service(s.name))
	return s.calculator.Compute(ctx, s.staking, s.serviceID)
}

// CheckBalance reads the seven tracked balances. Configuration is
// validated before any RPC read so a broken setup fails immediately.
func (s *Service) CheckBalance(ctx context.Context) (*types.BalanceSnapshot, error) {
	if s.agentEOA == (common.Address{}) {
		return nil, fmt.Errorf("service %s: no agent instance configured", s.name)
	}
	if s.masterSafe.Address() == (common.Address{}) {
		return nil, fmt.Errorf("service %s: no master safe configured", s.name)
	}

	agentNative, err := s.client.GetBalance(ctx, s.agentEOA)
	if err != nil {
		return nil, err
	}
	serviceSafeNative, err := s.client.GetBalance(ctx, s.serviceSafe.Address())
	if err != nil {
		return nil, err
	}
	serviceSafeWrapped, err := s.wxdai.BalanceOf(ctx, s.serviceSafe.Address())
	if err != nil {
		return nil, err
	}
	masterEOANative, err := s.client.GetBalance(ctx, s.masterEOA)
	if err != nil {
		return nil, err
	}
	masterSafeNative, err := s.client.GetBalance(ctx, s.masterSafe.Address())
	if err != nil {
		return nil, err
	}
	masterSafeOLAS, err := s.olas.BalanceOf(ctx, s.masterSafe.Address())
	if err != nil {
		return nil, err
	}
	serviceSafeOLAS, err := s.olas.BalanceOf(ctx, s.serviceSafe.Address())
	if err != nil {
		return nil, err
	}

	olasDecimals, err := s.olas.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	wxdaiDecimals, err := s.wxdai.Decimals(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &types.BalanceSnapshot{
		AgentEOANative:           chain.WeiToEther(agentNative),
		ServiceSafeNative:        chain.WeiToEther(serviceSafeNative),
		ServiceSafeWrappedNative: chain.WeiToToken(serviceSafeWrapped, wxdaiDecimals),
		MasterEOANative:          chain.WeiToEther(masterEOANative),
		MasterSafeNative:         chain.WeiToEther(masterSafeNative),
		MasterSafeOLAS:           chain.WeiToToken(masterSafeOLAS, olasDecimals),
		ServiceSafeOLAS:          chain.WeiToToken(serviceSafeOLAS, olasDecimals),
	}

	logging.Info("checked balances",
		logging.Service(s.name),
		"agent_eoa_xdai", chain.FormatAmount(snapshot.AgentEOANative, 2),
		"service_safe_xdai", chain.FormatAmount(snapshot.ServiceSafeNative, 2),
		"service_safe_wxdai", chain.FormatAmount(snapshot.ServiceSafeWrappedNative, 2),
		"service_safe_olas", chain.FormatAmount(snapshot.ServiceSafeOLAS, 2),
		"master_eoa_xdai", chain.FormatAmount(snapshot.MasterEOANative, 2),
		"master_safe_xdai", chain.FormatAmount(snapshot.MasterSafeNative, 2),
	)

	return snapshot, nil
}

// ClaimRewards claims the accrued staking rewards through the master
// safe. Returns the claimed amount in OLAS display units; any failure
// is logged and reported as zero, never as an error.
func (s *Service) ClaimRewards(ctx context.Context) *big.Float {
	logging.Info("claiming rewards", logging.Service(s.name))

	info, err := s.staking.MapServiceInfo(ctx, s.serviceID)
	if err != nil {
		logging.Error("failed to read accrued rewards before claim", logging.Service(s.name), logging.Err(err))
		return big.NewFloat(0)
	}
	if info.Reward == nil || info.Reward.Sign() == 0 {
		logging.Info("no rewards to claim", logging.Service(s.name))
		return big.NewFloat(0)
	}

	data, err := s.staking.ClaimCalldata(s.serviceID)
	if err != nil {
		logging.Error("failed to encode claim", logging.Service(s.name), logging.Err(err))
		return big.NewFloat(0)
	}

	receipt, err := s.masterSafe.ExecTransactionAndWait(ctx, s.staking.Address(), big.NewInt(0), data)
	if err != nil {
		logging.Error("failed to claim rewards", logging.Service(s.name), logging.Err(err))
		return big.NewFloat(0)
	}

	amount := chain.WeiToEther(info.Reward)
	if receipt != nil {
		logging.Info("claimed rewards",
			logging.Service(s.name),
			"amount_olas", chain.FormatAmount(amount, 2),
			logging.TxHash(receipt.TxHash.Hex()))
	} else {
		logging.Info("claimed rewards", logging.Service(s.name), "amount_olas", chain.FormatAmount(amount, 2))
	}
	return amount
}

// WithdrawRewards sends all OLAS held by the master safe and the
// service safe to the withdrawal address. The two paths are fault
// isolated: a failure on one never blocks the other. Returns only the
// transfers that succeeded.
func (s *Service) WithdrawRewards(ctx context.Context) []types.Withdrawal {
	if !s.HasWithdrawalAddress() {
		return nil
	}

	var withdrawals []types.Withdrawal

	if w := s.withdrawFromSafe(ctx, s.masterSafe, types.SourceMasterSafe); w != nil {
		withdrawals = append(withdrawals, *w)
	}
	if w := s.withdrawFromSafe(ctx, s.serviceSafe, types.SourceServiceSafe); w != nil {
		withdrawals = append(withdrawals, *w)
	}

	return withdrawals
}

func (s *Service) withdrawFromSafe(ctx context.Context, safe *chain.SafeContract, source types.WithdrawalSource) *types.Withdrawal {
	balance, err := s.olas.BalanceOf(ctx, safe.Address())
	if err != nil {
		logging.Error("failed to get OLAS balance for withdrawal",
			logging.Service(s.name), "source", string(source), logging.Err(err))
		return nil
	}
	if balance.Sign() == 0 {
		logging.Info("no OLAS to withdraw", logging.Service(s.name), "source", string(source))
		return nil
	}

	amount := chain.WeiToEther(balance)
	logging.Info("withdrawing OLAS rewards",
		logging.Service(s.name),
		"source", string(source),
		"amount_olas", chain.FormatAmount(amount, 2),
		"to", s.withdrawal.Hex())

	data, err := s.olas.TransferCalldata(s.withdrawal, balance)
	if err != nil {
		logging.Error("failed to encode OLAS transfer", logging.Service(s.name), logging.Err(err))
		return nil
	}

	receipt, err := safe.ExecTransactionAndWait(ctx, s.olas.Address(), big.NewInt(0), data)
	if err != nil {
		logging.Error("failed to withdraw OLAS",
			logging.Service(s.name), "source", string(source), logging.Err(err))
		return nil
	}

	w := &types.Withdrawal{Amount: amount, Source: source}
	if receipt != nil {
		w.TxHash = receipt.TxHash
	}
	return w
}
