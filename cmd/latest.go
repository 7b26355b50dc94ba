package cmd

import (
	"errors"
	"fmt"

	"github.com/andresmejia3/vigil/internal/store"
	"github.com/spf13/cobra"
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		snap, err := DB.Latest(cmd.Context())
		if errors.Is(err, store.ErrNotFound) {
			fmt.Println("No snapshots found in database.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("query latest snapshot: %w", err)
		}
		fmt.Printf("📸 #%d %s  %s\n", snap.ID, snap.CreatedAt.Format(store.Layout), store.ImagePath(snap.Filename))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(latestCmd)
}
