package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/andresmejia3/vigil/internal/store"
	"github.com/spf13/cobra"
)

var (
	humansFrom string
	humansTo   string
)

var humansCmd = &cobra.Command{
	Use:   "humans",
	Short: "List snapshots taken between two times",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		start, end, err := parseWindow(humansFrom, humansTo, time.Now())
		if err != nil {
			return err
		}

		snaps, err := DB.Range(cmd.Context(), start, end)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Println(store.NoFiles)
			return nil
		}
		if err != nil {
			return fmt.Errorf("query snapshots: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tIMAGE")
		fmt.Fprintln(w, "--\t-------\t-----")
		for _, s := range snaps {
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.CreatedAt.Format(store.Layout), store.ImagePath(s.Filename))
		}
		return w.Flush()
	},
}

// parseWindow resolves the --from/--to flags. Empty --from means the start of
// today, empty --to means now.
func parseWindow(from, to string, now time.Time) (time.Time, time.Time, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := now
	var err error
	if from != "" {
		if start, err = time.ParseInLocation(store.Layout, from, time.Local); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from (want YYYY-MM-DD HH:MM:SS): %w", err)
		}
	}
	if to != "" {
		if end, err = time.ParseInLocation(store.Layout, to, time.Local); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to (want YYYY-MM-DD HH:MM:SS): %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", end.Format(store.Layout), start.Format(store.Layout))
	}
	return start, end, nil
}

func init() {
	humansCmd.Flags().StringVar(&humansFrom, "from", "", "Start of the range, YYYY-MM-DD HH:MM:SS (default: start of today)")
	humansCmd.Flags().StringVar(&humansTo, "to", "", "End of the range, YYYY-MM-DD HH:MM:SS (default: now)")
	rootCmd.AddCommand(humansCmd)
}
