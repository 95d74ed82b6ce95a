package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valory-xyz/triton-bot/cmd/triton/commands"
)

var rootCmd = &cobra.Command{
	Use:   "triton",
	Short: "Telegram bot for Olas staked services on Gnosis",
	Long: "Triton watches Olas staked services on Gnosis chain, reports balances\n" +
		"and staking status to a Telegram chat, and automates reward claiming\n" +
		"and withdrawal through the master safe.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Path to config file (default: ~/.triton/config.yaml)")
}

func main() {
	rootCmd.AddCommand(commands.NewRunCmd())
	rootCmd.AddCommand(commands.NewStatusCmd())
	rootCmd.AddCommand(commands.NewBalanceCmd())
	rootCmd.AddCommand(commands.NewConfigCmd())
	rootCmd.AddCommand(commands.NewWalletCmd())
	rootCmd.AddCommand(commands.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
