package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewBalanceCmd creates the one-shot balance command
func NewBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the tracked balances of every configured service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.client.Close()

			for _, svc := range a.registry.All() {
				snap, err := svc.CheckBalance(ctx)
				if err != nil {
					fmt.Fprintf(os.Stderr, "[%s] failed to check balances: %v\n", svc.Name(), err)
					continue
				}
				fmt.Printf("[%s]\n", svc.Name())
				fmt.Printf("  Agent EOA     %s  %s xDAI\n", svc.AgentEOA().Hex(), snap.AgentEOANative.Text('g', -1))
				fmt.Printf("  Service Safe  %s  %s xDAI  %s wxDAI  %s OLAS\n", svc.ServiceSafe().Hex(),
					snap.ServiceSafeNative.Text('g', -1), snap.ServiceSafeWrappedNative.Text('g', -1), snap.ServiceSafeOLAS.Text('g', -1))
				fmt.Printf("  Master EOA    %s  %s xDAI\n", svc.MasterEOA().Hex(), snap.MasterEOANative.Text('g', -1))
				fmt.Printf("  Master Safe   %s  %s xDAI  %s OLAS\n", svc.MasterSafe().Hex(),
					snap.MasterSafeNative.Text('g', -1), snap.MasterSafeOLAS.Text('g', -1))
			}
			return nil
		},
	}
}
