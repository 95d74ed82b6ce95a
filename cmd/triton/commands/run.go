package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"github.com/valory-xyz/triton-bot/internal/bot"
	"github.com/valory-xyz/triton-bot/internal/config"
	"github.com/valory-xyz/triton-bot/internal/metrics"
	"github.com/valory-xyz/triton-bot/internal/price"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot, the scheduled jobs and the metrics exporter",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.client.Close()

			token := a.cfg.Telegram.Token()
			if token == "" {
				return fmt.Errorf("%s is not set", config.EnvTelegramToken)
			}
			api, err := tgbotapi.NewBotAPI(token)
			if err != nil {
				return fmt.Errorf("failed to connect to Telegram: %w", err)
			}

			collector := metrics.NewCollector()
			b := bot.New(a.cfg, api, a.registry, a.slots, price.NewQuoter(), collector)

			scheduler := bot.NewScheduler(collector)
			if err := scheduler.RegisterJob(bot.NewBalanceCheckJob(a.registry, b, a.cfg.Jobs, collector)); err != nil {
				return err
			}
			if err := scheduler.RegisterJob(bot.NewAutoclaimJob(a.registry, b, a.cfg.Jobs)); err != nil {
				return err
			}
			if err := scheduler.Start(); err != nil {
				return err
			}
			defer scheduler.Stop()
			b.SetScheduler(scheduler)

			if a.cfg.Metrics.Enabled {
				srv := metrics.NewServer(a.cfg.Metrics.ListenAddr, collector)
				srv.Start()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Stop(shutdownCtx)
				}()
			}

			if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
