// Package bot implements the Telegram chat interface and the scheduled
// jobs that watch the staked services.
package bot

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/valory-xyz/triton-bot/internal/config"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/internal/metrics"
	"github.com/valory-xyz/triton-bot/internal/price"
	"github.com/valory-xyz/triton-bot/internal/service"
)

const publicIPURL = "https://api.ipify.org"

// telegramAPI is the slice of the tgbotapi client the bot uses,
// replaced with a recorder in tests.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot routes chat commands to the service registry and pushes job
// notifications to the configured chat.
type Bot struct {
	api         telegramAPI
	chatID      int64
	manualClaim bool
	location    *time.Location

	registry  *service.Registry
	slots     *service.SlotChecker
	quoter    *price.Quoter
	collector *metrics.Collector
	scheduler *Scheduler

	ipURL      string
	httpClient *http.Client
}

// New creates a bot bound to the configured chat.
func New(
	cfg *config.Config,
	api telegramAPI,
	registry *service.Registry,
	slots *service.SlotChecker,
	quoter *price.Quoter,
	collector *metrics.Collector,
) *Bot {
	return &Bot{
		api:         api,
		chatID:      cfg.Telegram.ChatID,
		manualClaim: cfg.Jobs.ManualClaim,
		location:    cfg.Location(),
		registry:    registry,
		slots:       slots,
		quoter:      quoter,
		collector:   collector,
		ipURL:       publicIPURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetScheduler attaches the job scheduler consulted by the jobs command.
func (b *Bot) SetScheduler(s *Scheduler) {
	b.scheduler = s
}

// Run polls for updates until the context is cancelled. A startup
// notice is pushed to the chat first.
func (b *Bot) Run(ctx context.Context) error {
	b.setupCommands()
	b.Notify("Triton has started", false)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	logging.Info("bot started", logging.Component("bot"), "chat_id", b.chatID)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) setupCommands() {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "staking_status", Description: "Staking status"},
		tgbotapi.BotCommand{Command: "balance", Description: "Check wallet balances"},
		tgbotapi.BotCommand{Command: "claim", Description: "Claim rewards"},
		tgbotapi.BotCommand{Command: "withdraw", Description: "Withdraw rewards"},
		tgbotapi.BotCommand{Command: "slots", Description: "Check available staking slots"},
		tgbotapi.BotCommand{Command: "jobs", Description: "Check the scheduled jobs"},
		tgbotapi.BotCommand{Command: "ip", Description: "Get the bot public IP"},
	)
	if _, err := b.api.Request(cmds); err != nil {
		logging.Warn("failed to register bot commands", logging.Err(err))
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	if update.Message.Chat.ID != b.chatID {
		logging.Warn("ignoring command from unknown chat",
			"chat_id", update.Message.Chat.ID, "command", update.Message.Command())
		return
	}

	command := update.Message.Command()
	logging.Info("handling command", logging.Component("bot"), "command", command)
	b.collector.RecordCommand(command)

	switch command {
	case "staking_status":
		b.handleStakingStatus(ctx)
	case "balance":
		b.handleBalance(ctx)
	case "claim":
		b.handleClaim(ctx)
	case "withdraw":
		b.handleWithdraw(ctx)
	case "slots":
		b.handleSlots(ctx)
	case "jobs":
		b.handleJobs()
	case "ip":
		b.handleIP(ctx)
	default:
		logging.Debug("unknown command", "command", command)
	}
}

// Notify sends a message to the configured chat. Markdown messages
// disable link previews to keep alerts compact.
func (b *Bot) Notify(text string, markdown bool) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = true
	}
	if _, err := b.api.Send(msg); err != nil {
		logging.Error("failed to send message", logging.Err(err))
		return err
	}
	return nil
}

func (b *Bot) handleStakingStatus(ctx context.Context) {
	var (
		messages       []string
		totalAccrued   float64
		agentSafeOLAS  float64
		masterSafeOLAS float64
		seenSafes      = make(map[common.Address]bool)
	)

	for _, svc := range b.registry.All() {
		st, err := svc.StakingStatus(ctx)
		if err != nil {
			logging.Error("failed to get staking status", logging.Service(svc.Name()), logging.Err(err))
			b.collector.RecordRPCError()
			messages = append(messages, "["+svc.Name()+"] Failed to get staking status")
			continue
		}
		accrued, _ := st.AccruedRewards.Float64()
		totalAccrued += accrued
		b.collector.SetAccruedRewards(svc.Name(), accrued)
		b.collector.SetMechRequests(svc.Name(), st.MechRequestsThisEpoch)
		messages = append(messages, statusMessage(svc.Name(), st))

		snap, err := svc.CheckBalance(ctx)
		if err != nil {
			logging.Error("failed to check balances", logging.Service(svc.Name()), logging.Err(err))
			b.collector.RecordRPCError()
			continue
		}
		olas, _ := snap.ServiceSafeOLAS.Float64()
		agentSafeOLAS += olas
		// Master safes can be shared between services, count each once.
		if !seenSafes[svc.MasterSafe()] {
			seenSafes[svc.MasterSafe()] = true
			master, _ := snap.MasterSafeOLAS.Float64()
			masterSafeOLAS += master
		}
	}

	usdValue := 0.0
	if combined := totalAccrued + agentSafeOLAS + masterSafeOLAS; combined > 0 && b.quoter != nil {
		if olasPrice, err := b.quoter.USDPrice(ctx, price.CoinOLAS); err == nil {
			usdValue = combined * olasPrice
		} else {
			logging.Warn("failed to get OLAS price", logging.Err(err))
		}
	}
	messages = append(messages, rewardsSummary(totalAccrued, agentSafeOLAS, masterSafeOLAS, usdValue))

	b.Notify(strings.Join(messages, "\n\n"), false)
}

func (b *Bot) handleBalance(ctx context.Context) {
	var messages []string
	for _, svc := range b.registry.All() {
		snap, err := svc.CheckBalance(ctx)
		if err != nil {
			logging.Error("failed to check balances", logging.Service(svc.Name()), logging.Err(err))
			b.collector.RecordRPCError()
			messages = append(messages, cannotReadBalanceMessage(svc.Name()))
			continue
		}
		messages = append(messages, balanceMessage(svc, snap))
	}
	b.Notify(strings.Join(messages, "\n\n"), true)
}

func cannotReadBalanceMessage(name string) string {
	return "\\[" + EscapeMarkdownV2(name) + "] Failed to check balances"
}

func (b *Bot) handleClaim(ctx context.Context) {
	if !b.manualClaim {
		b.Notify("Manual claim is disabled", false)
		return
	}

	var messages []string
	for _, svc := range b.registry.All() {
		amount := svc.ClaimRewards(ctx)
		if amount.Sign() == 0 {
			continue
		}
		messages = append(messages, claimMessage(svc.Name(), amount))
	}

	if len(messages) == 0 {
		b.Notify("No rewards claimed", false)
		return
	}
	b.Notify(strings.Join(messages, "\n\n"), false)
}

func (b *Bot) handleWithdraw(ctx context.Context) {
	var messages []string
	for _, svc := range b.registry.All() {
		withdrawals := svc.WithdrawRewards(ctx)
		if len(withdrawals) == 0 {
			messages = append(messages, cannotWithdrawMessage(svc.Name(), false))
			continue
		}
		for _, w := range withdrawals {
			messages = append(messages, withdrawalMessage(svc, w, false))
		}
	}
	b.Notify(strings.Join(messages, "\n\n"), true)
}

func (b *Bot) handleSlots(ctx context.Context) {
	b.Notify(slotsMessage(b.slots.FreeSlots(ctx)), false)
}

func (b *Bot) handleJobs() {
	var entries []JobStatus
	if b.scheduler != nil {
		entries = b.scheduler.Entries()
	}
	b.Notify(jobsMessage(entries, b.location), false)
}

func (b *Bot) handleIP(ctx context.Context) {
	ip := "Unavailable"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.ipURL, nil)
	if err == nil {
		resp, err := b.httpClient.Do(req)
		if err != nil {
			logging.Error("failed to get public IP", logging.Err(err))
		} else {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				if data, err := io.ReadAll(io.LimitReader(resp.Body, 256)); err == nil {
					ip = strings.TrimSpace(string(data))
				}
			}
		}
	}

	b.Notify("Public IP address: "+ip, false)
}
