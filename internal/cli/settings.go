package cli

import (
	"github.com/spf13/cobra"

	"insulin-calc/internal/app"
	"insulin-calc/internal/calculator"
)

var (
	setUnit   string
	setTarget float64
	setRatio  float64
	setFactor float64
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the saved calculator settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowSettings(cmd.Context())
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the saved calculator settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		var update app.SettingsUpdate
		flags := cmd.Flags()

		if flags.Changed("unit") {
			unit, err := calculator.ParseUnit(setUnit)
			if err != nil {
				return err
			}
			update.Unit = &unit
		}
		if flags.Changed("target") {
			update.TargetBG = &setTarget
		}
		if flags.Changed("ratio") {
			update.CarbRatio = &setRatio
		}
		if flags.Changed("factor") {
			update.CorrectionFactor = &setFactor
		}

		return getApp().UpdateSettings(cmd.Context(), update)
	},
}

func init() {
	settingsSetCmd.Flags().StringVar(&setUnit, "unit", "", "Glucose unit: mg/dL or mmol/L")
	settingsSetCmd.Flags().Float64Var(&setTarget, "target", 0, "Target blood glucose")
	settingsSetCmd.Flags().Float64Var(&setRatio, "ratio", 0, "Grams of carbs covered by one unit")
	settingsSetCmd.Flags().Float64Var(&setFactor, "factor", 0, "BG drop per unit")

	settingsCmd.AddCommand(settingsSetCmd)
}
