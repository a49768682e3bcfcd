package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"insulin-calc/internal/app"
)

var (
	historyDays int
	clearYes    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display recorded calculations grouped by day",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyDays < 0 {
			return fmt.Errorf("--days cannot be negative")
		}
		return getApp().ShowHistory(cmd.Context(), app.ShowOptions{RangeDays: historyDays})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded calculations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Clear(cmd.Context(), app.ClearOptions{Yes: clearYes})
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 0, "Range in days (defaults to export.default_range_days)")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
}
