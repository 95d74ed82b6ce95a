package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the one-shot staking status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the staking status of every configured service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.client.Close()

			for _, svc := range a.registry.All() {
				st, err := svc.StakingStatus(ctx)
				if err != nil {
					fmt.Fprintf(os.Stderr, "[%s] failed to get staking status: %v\n", svc.Name(), err)
					continue
				}
				fmt.Printf("[%s] %s OLAS accrued [%d/%d requests]\n", svc.Name(),
					st.AccruedRewards.Text('g', -1), st.MechRequestsThisEpoch, st.RequiredMechRequests)
				fmt.Printf("  Staking program: %s\n", st.Metadata.Name)
				fmt.Printf("  Mech: %s (%s)\n", st.MechAddress.Hex(), st.MechResolution)
				fmt.Printf("  Next epoch: %s\n", st.EpochEnd.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}
