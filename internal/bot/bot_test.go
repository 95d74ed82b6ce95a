package bot

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/valory-xyz/triton-bot/internal/chain"
	"github.com/valory-xyz/triton-bot/internal/config"
	"github.com/valory-xyz/triton-bot/internal/metrics"
	"github.com/valory-xyz/triton-bot/internal/service"
)

const testChatID int64 = 42

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]tgbotapi.MessageConfig, len(f.sent))
	copy(out, f.sent)
	return out
}

func commandUpdate(command string, chatID int64) tgbotapi.Update {
	text := "/" + command
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(text)},
			},
		},
	}
}

type serviceMocks struct {
	svc         *service.Service
	client      *chain.Client
	staking     *chain.StakingTokenContract
	masterSafe  *chain.SafeContract
	serviceSafe *chain.SafeContract
	olas        *chain.ERC20Contract
	wxdai       *chain.ERC20Contract
}

func newTestService(t *testing.T, name string, withAddr bool) *serviceMocks {
	t.Helper()

	base := common.HexToAddress("0x1000000000000000000000000000000000000000")
	offset := big.NewInt(int64(len(name)))
	next := func(i int64) common.Address {
		v := new(big.Int).SetBytes(base.Bytes())
		v.Add(v, offset)
		v.Add(v, big.NewInt(i))
		return common.BigToAddress(v)
	}

	cfg := config.Service{
		Name:            name,
		ServiceID:       100,
		StakingContract: next(1).Hex(),
		AgentEOA:        next(2).Hex(),
		ServiceSafe:     next(3).Hex(),
		MasterEOA:       next(4).Hex(),
		MasterSafe:      next(5).Hex(),
	}
	if withAddr {
		cfg.WithdrawalAddress = next(6).Hex()
	}

	m := &serviceMocks{
		client:      chain.NewMockClient(),
		staking:     chain.NewMockStakingTokenContract(common.HexToAddress(cfg.StakingContract)),
		masterSafe:  chain.NewMockSafeContract(common.HexToAddress(cfg.MasterSafe)),
		serviceSafe: chain.NewMockSafeContract(common.HexToAddress(cfg.ServiceSafe)),
		olas:        chain.NewMockERC20Contract(chain.OLASTokenAddress),
		wxdai:       chain.NewMockERC20Contract(chain.WXDAITokenAddress),
	}
	m.svc = service.NewWithContracts(cfg, m.client, m.staking, m.masterSafe, m.serviceSafe, m.olas, m.wxdai, nil)
	return m
}

func newTestBot(t *testing.T, services ...*service.Service) (*Bot, *fakeAPI) {
	t.Helper()

	registry := service.NewRegistry()
	for _, svc := range services {
		if err := registry.Add(svc); err != nil {
			t.Fatalf("failed to register service: %v", err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Telegram.ChatID = testChatID

	api := newFakeAPI()
	slots := service.NewSlotCheckerWithFactory(nil, nil)
	b := New(cfg, api, registry, slots, nil, metrics.NewCollector())
	return b, api
}

func TestIgnoresForeignChat(t *testing.T) {
	b, api := newTestBot(t)

	b.handleUpdate(context.Background(), commandUpdate("claim", testChatID+1))

	if len(api.messages()) != 0 {
		t.Errorf("expected no reply to a foreign chat, got %d messages", len(api.messages()))
	}
}

func TestIgnoresPlainMessages(t *testing.T) {
	b, api := newTestBot(t)

	b.handleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: testChatID}},
	})

	if len(api.messages()) != 0 {
		t.Errorf("expected no reply to a plain message, got %d", len(api.messages()))
	}
}

func TestClaimCommandDisabled(t *testing.T) {
	b, api := newTestBot(t)
	b.manualClaim = false

	b.handleUpdate(context.Background(), commandUpdate("claim", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	if got[0].Text != "Manual claim is disabled" {
		t.Errorf("unexpected reply: %q", got[0].Text)
	}
}

func TestClaimCommand(t *testing.T) {
	m := newTestService(t, "trader", false)
	m.staking.SetMockServiceInfo(100, &chain.ServiceStakingInfo{
		Reward: new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18)),
	})

	b, api := newTestBot(t, m.svc)
	b.handleUpdate(context.Background(), commandUpdate("claim", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	want := "[trader] Claimed 3 OLAS rewards into the Master safe."
	if got[0].Text != want {
		t.Errorf("expected %q, got %q", want, got[0].Text)
	}
}

func TestClaimCommandNothingToClaim(t *testing.T) {
	m := newTestService(t, "trader", false)
	m.staking.SetMockServiceInfo(100, &chain.ServiceStakingInfo{Reward: big.NewInt(0)})

	b, api := newTestBot(t, m.svc)
	b.handleUpdate(context.Background(), commandUpdate("claim", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	if got[0].Text != "No rewards claimed" {
		t.Errorf("unexpected reply: %q", got[0].Text)
	}
}

func TestWithdrawCommandWithoutAddress(t *testing.T) {
	m := newTestService(t, "trader", false)

	b, api := newTestBot(t, m.svc)
	b.handleUpdate(context.Background(), commandUpdate("withdraw", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	if !strings.Contains(got[0].Text, "Cannot withdraw rewards") {
		t.Errorf("unexpected reply: %q", got[0].Text)
	}
}

func TestWithdrawCommand(t *testing.T) {
	m := newTestService(t, "trader", true)
	m.olas.SetMockBalance(m.serviceSafe.Address(), new(big.Int).Mul(big.NewInt(4), big.NewInt(1e18)))

	b, api := newTestBot(t, m.svc)
	b.handleUpdate(context.Background(), commandUpdate("withdraw", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	if !strings.Contains(got[0].Text, "4 OLAS sent from the Service Safe") {
		t.Errorf("unexpected reply: %q", got[0].Text)
	}
	if !strings.Contains(got[0].Text, "#withdraw") {
		t.Errorf("expected withdraw tag in %q", got[0].Text)
	}
	if got[0].ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("expected markdown parse mode, got %q", got[0].ParseMode)
	}
}

func TestBalanceCommand(t *testing.T) {
	m := newTestService(t, "trader", false)
	m.client.SetMockBalance(m.svc.AgentEOA(), new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18)))

	b, api := newTestBot(t, m.svc)
	b.handleUpdate(context.Background(), commandUpdate("balance", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	if !strings.Contains(got[0].Text, "= 2 xDAI") {
		t.Errorf("expected agent balance in reply, got %q", got[0].Text)
	}
	if !strings.Contains(got[0].Text, "gnosisscan.io/address/") {
		t.Errorf("expected explorer links in reply, got %q", got[0].Text)
	}
}

func TestJobsCommandEmpty(t *testing.T) {
	b, api := newTestBot(t)

	b.handleUpdate(context.Background(), commandUpdate("jobs", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	if got[0].Text != "No scheduled jobs" {
		t.Errorf("unexpected reply: %q", got[0].Text)
	}
}

func TestIPCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer srv.Close()

	b, api := newTestBot(t)
	b.ipURL = srv.URL

	b.handleUpdate(context.Background(), commandUpdate("ip", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	if got[0].Text != "Public IP address: 203.0.113.7" {
		t.Errorf("unexpected reply: %q", got[0].Text)
	}
}

func TestIPCommandUnavailable(t *testing.T) {
	b, api := newTestBot(t)
	b.ipURL = "http://127.0.0.1:1"
	b.httpClient = &http.Client{Timeout: time.Second}

	b.handleUpdate(context.Background(), commandUpdate("ip", testChatID))

	got := api.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(got))
	}
	if got[0].Text != "Public IP address: Unavailable" {
		t.Errorf("unexpected reply: %q", got[0].Text)
	}
}

func TestRewardsSummary(t *testing.T) {
	got := rewardsSummary(2, 1, 3, 15)
	want := "Total rewards = 6 OLAS (2 accrued + 1 in agent safes + 3 in master safes) [$15]"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	got = rewardsSummary(0, 0, 0, 0)
	if got != "Total rewards = 0 OLAS" {
		t.Errorf("unexpected summary: %q", got)
	}
}
