package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/disputeops/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample dispute records into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				conn  *gorm.DB
				genID *snowflake.Node
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				inserted, err := seed.SampleData(ctx, conn, genID)
				if err != nil {
					return err
				}
				if inserted == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "store already holds records, nothing seeded")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d sample records\n", inserted)
				return nil
			}, fx.Populate(&conn, &genID))
		},
	}
}
