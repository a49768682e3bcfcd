package cli

import (
	"github.com/spf13/cobra"

	"insulin-calc/internal/app"
	"insulin-calc/internal/calculator"
)

var (
	calcBG     string
	calcTarget string
	calcCarbs  string
	calcRatio  string
	calcFactor string
	calcUnit   string
	calcDryRun bool
)

var calculateCmd = &cobra.Command{
	Use:     "calculate",
	Aliases: []string{"calc"},
	Short:   "Calculate a dose and record it in the history",
	Long: "Calculate the correction and carb dose. Target BG, carb ratio and correction " +
		"factor default to the last values used.",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := calculator.RawInputs{
			CurrentBG:        calcBG,
			TargetBG:         calcTarget,
			Carbs:            calcCarbs,
			CarbRatio:        calcRatio,
			CorrectionFactor: calcFactor,
		}
		if calcUnit != "" {
			unit, err := calculator.ParseUnit(calcUnit)
			if err != nil {
				return err
			}
			raw.Unit = unit
		}

		return getApp().Calculate(cmd.Context(), app.CalculateOptions{Raw: raw, DryRun: calcDryRun})
	},
}

func init() {
	calculateCmd.Flags().StringVar(&calcBG, "bg", "", "Current blood glucose")
	calculateCmd.Flags().StringVar(&calcTarget, "target", "", "Target blood glucose (defaults to saved setting)")
	calculateCmd.Flags().StringVar(&calcCarbs, "carbs", "", "Carbohydrates in grams")
	calculateCmd.Flags().StringVar(&calcRatio, "ratio", "", "Grams of carbs covered by one unit (defaults to saved setting)")
	calculateCmd.Flags().StringVar(&calcFactor, "factor", "", "BG drop per unit (defaults to saved setting)")
	calculateCmd.Flags().StringVar(&calcUnit, "unit", "", "Glucose unit: mg/dL or mmol/L (defaults to saved setting)")
	calculateCmd.Flags().BoolVar(&calcDryRun, "dry-run", false, "Compute without recording the calculation")
}
