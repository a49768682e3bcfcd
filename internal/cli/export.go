package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"insulin-calc/internal/app"
)

var (
	exportDays    int
	exportCSVPath string
	exportNoShare bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history of a range as a PDF report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportDays < 0 {
			return fmt.Errorf("--days cannot be negative")
		}

		opts := app.ExportOptions{
			RangeDays: exportDays,
			NoShare:   exportNoShare,
			CSVPath:   exportCSVPath,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Check and request write access to the export directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RequestPermission(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Range in days: one of export.allowed_ranges (defaults to export.default_range_days)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Also write the exported entries to this CSV file")
	exportCmd.Flags().BoolVar(&exportNoShare, "no-share", false, "Save the report without opening it")
}
