package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/valory-xyz/triton-bot/internal/wallet"
	"golang.org/x/term"
)

// NewWalletCmd creates the wallet command group
func NewWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the master EOA keystore",
		Long: `Manage the Ethereum key that signs claim and withdrawal transactions.

The key is stored as an encrypted keystore file (geth V3 format). The
password is kept in the platform keyring (macOS Keychain, GNOME Keyring
or KWallet) so the bot can unlock the wallet unattended; the
WALLET_PASSWORD environment variable overrides the keyring.`,
	}

	cmd.AddCommand(newWalletCreateCmd())
	cmd.AddCommand(newWalletImportCmd())
	cmd.AddCommand(newWalletShowCmd())
	cmd.AddCommand(newWalletForgetPasswordCmd())

	return cmd
}

// keystoreDirFlag resolves the keystore directory from the flag or the
// configuration.
func keystoreDirFlag(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Wallet.KeystoreDir, nil
}

func readPasswordNoEcho() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		data, err := term.ReadPassword(int(syscall.Stdin))
		return string(data), err
	}
	// Piped input, e.g. in scripts.
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func promptNewPassword() (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Fprint(os.Stderr, "Enter wallet password: ")
		password, err := readPasswordNoEcho()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if len(password) < 8 {
			fmt.Fprintln(os.Stderr, "Password must be at least 8 characters. Try again.")
			continue
		}

		fmt.Fprint(os.Stderr, "Confirm wallet password: ")
		confirm, err := readPasswordNoEcho()
		if err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if password != confirm {
			fmt.Fprintln(os.Stderr, "Passwords do not match. Try again.")
			continue
		}
		return password, nil
	}
	return "", fmt.Errorf("too many failed attempts")
}

func storePasswordInKeyring(password string) {
	backend, err := wallet.StoreWalletPassword(password)
	if err != nil {
		fmt.Println("Could not store the password in the system keyring.")
		fmt.Println("Set WALLET_PASSWORD in the environment before running the bot.")
		return
	}
	fmt.Printf("Password saved to %s; the bot will unlock the wallet automatically.\n", backend)
}

func newWalletCreateCmd() *cobra.Command {
	var keystoreDir string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keystoreDirFlag(keystoreDir)
			if err != nil {
				return err
			}

			password, err := promptNewPassword()
			if err != nil {
				return err
			}

			wm, err := wallet.Create(dir, password)
			if err != nil {
				return fmt.Errorf("failed to create wallet: %w", err)
			}

			fmt.Printf("Wallet created.\n  Address:  %s\n  Keystore: %s\n", wm.Address().Hex(), dir)
			storePasswordInKeyring(password)
			fmt.Println("Back up the keystore directory and remember the password.")
			return nil
		},
	}

	cmd.Flags().StringVar(&keystoreDir, "keystore", "", "Path to keystore directory (default from config)")
	return cmd
}

func newWalletImportCmd() *cobra.Command {
	var keystoreDir string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a wallet from a private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keystoreDirFlag(keystoreDir)
			if err != nil {
				return err
			}

			fmt.Fprint(os.Stderr, "Enter private key (hex, with or without 0x prefix): ")
			input, err := readPasswordNoEcho()
			if err != nil {
				return fmt.Errorf("failed to read private key: %w", err)
			}
			fmt.Fprintln(os.Stderr)

			privKeyHex := strings.TrimPrefix(strings.TrimSpace(input), "0x")
			if len(privKeyHex) != 64 {
				return fmt.Errorf("private key must be 64 hex characters, got %d", len(privKeyHex))
			}

			password, err := promptNewPassword()
			if err != nil {
				return err
			}

			wm, err := wallet.Import(dir, privKeyHex, password)
			if err != nil {
				return fmt.Errorf("failed to import wallet: %w", err)
			}

			fmt.Printf("Wallet imported.\n  Address:  %s\n  Keystore: %s\n", wm.Address().Hex(), dir)
			storePasswordInKeyring(password)
			return nil
		},
	}

	cmd.Flags().StringVar(&keystoreDir, "keystore", "", "Path to keystore directory (default from config)")
	return cmd
}

func newWalletShowCmd() *cobra.Command {
	var keystoreDir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the wallet address and keystore path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keystoreDirFlag(keystoreDir)
			if err != nil {
				return err
			}

			wm, err := wallet.Load(dir)
			if err != nil {
				return fmt.Errorf("failed to load wallet: %w", err)
			}
			if wm == nil {
				fmt.Println("No wallet found. Create one with: triton wallet create")
				return nil
			}

			fmt.Printf("Address:  %s\nKeystore: %s\n", wm.Address().Hex(), dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&keystoreDir, "keystore", "", "Path to keystore directory (default from config)")
	return cmd
}

func newWalletForgetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget-password",
		Short: "Remove the wallet password from the system keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wallet.DeleteWalletPassword(); err != nil {
				return fmt.Errorf("failed to remove password: %w", err)
			}
			fmt.Println("Password removed from the keyring.")
			return nil
		},
	}
}
