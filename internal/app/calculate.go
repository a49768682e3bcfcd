package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/history"
	"insulin-calc/internal/settings"
)

const disclaimer = "Disclaimer: this tool is for informational purposes only. NOT medical advice. Always consult a healthcare professional."

// Calculate computes a dose and, unless DryRun is set, records it.
func (a *App) Calculate(ctx context.Context, opts CalculateOptions) error {
	e, err := a.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if opts.DryRun {
		raw := opts.Raw
		if saved, ok := e.svc.Settings(ctx); ok {
			raw = saved.Apply(raw)
		}
		inputs, result, err := calculator.Calculate(raw)
		if err != nil {
			fmt.Fprintf(a.Out, "no dose calculated: %v\n", err)
			return nil
		}
		a.printDose(inputs, result)
		fmt.Fprintln(a.Out, "(dry run; not saved)")
		return nil
	}

	calc, err := e.svc.Calculate(ctx, opts.Raw)
	if calc == nil && err == nil {
		fmt.Fprintln(a.Out, "no dose calculated: enter current BG, target BG, carbs, carb ratio and correction factor")
		return nil
	}
	if calc != nil {
		a.printDose(calc.Inputs, calc.Result)
	}
	if history.OutcomeOf(err) == history.OutcomeDegraded {
		return nil
	}
	return err
}

func (a *App) printDose(in calculator.Inputs, res calculator.Result) {
	w := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Correction dose\t%s u\n", calculator.FormatDose(res.CorrectionDose))
	fmt.Fprintf(w, "Carb dose\t%s u\n", calculator.FormatDose(res.CarbDose))
	fmt.Fprintf(w, "Total dose\t%s u\n", calculator.FormatDose(res.TotalDose))
	fmt.Fprintf(w, "BG\t%s → %s %s\n", calculator.FormatValue(in.CurrentBG), calculator.FormatValue(in.TargetBG), in.Unit)
	w.Flush()
	fmt.Fprintln(a.Out, disclaimer)
}

// ShowSettings prints the saved settings and storage usage.
func (a *App) ShowSettings(ctx context.Context) error {
	e, err := a.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	saved, ok := e.svc.Settings(ctx)
	if !ok {
		fmt.Fprintln(a.Out, "no saved settings")
	} else {
		printSettings(a, saved)
	}

	usage, err := e.store.Usage(ctx)
	if err != nil {
		return err
	}
	if usage.QuotaBytes > 0 {
		fmt.Fprintf(a.Out, "Storage\t%d of %d bytes used (%d records)\n", usage.UsedBytes, usage.QuotaBytes, len(usage.Entries))
	} else {
		fmt.Fprintf(a.Out, "Storage\t%d bytes used (%d records)\n", usage.UsedBytes, len(usage.Entries))
	}
	return nil
}

// UpdateSettings merges update into the saved settings.
func (a *App) UpdateSettings(ctx context.Context, update SettingsUpdate) error {
	e, err := a.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	for name, v := range map[string]*float64{
		"target BG":         update.TargetBG,
		"carb ratio":        update.CarbRatio,
		"correction factor": update.CorrectionFactor,
	} {
		if v != nil && !(*v > 0) {
			return fmt.Errorf("%s must be greater than zero, got %v", name, *v)
		}
	}

	saved, _ := e.svc.Settings(ctx)
	if update.Unit != nil {
		saved.Unit = *update.Unit
	}
	if update.TargetBG != nil {
		saved.TargetBG = *update.TargetBG
	}
	if update.CarbRatio != nil {
		saved.CarbRatio = *update.CarbRatio
	}
	if update.CorrectionFactor != nil {
		saved.CorrectionFactor = *update.CorrectionFactor
	}
	if saved.Unit == "" {
		saved.Unit = calculator.UnitMgdl
	}

	e.svc.SaveSettings(ctx, saved)
	printSettings(a, saved)
	return nil
}

func printSettings(a *App, s settings.Settings) {
	w := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Unit\t%s\n", s.Unit)
	fmt.Fprintf(w, "Target BG\t%s\n", settingValue(s.TargetBG, ""))
	fmt.Fprintf(w, "Carb ratio\t%s\n", settingValue(s.CarbRatio, "g/u"))
	fmt.Fprintf(w, "Correction factor\t%s\n", settingValue(s.CorrectionFactor, string(s.Unit)+"/u"))
	w.Flush()
}

func settingValue(v float64, suffix string) string {
	if v == 0 {
		return "not set"
	}
	if suffix == "" {
		return calculator.FormatValue(v)
	}
	return calculator.FormatValue(v) + " " + suffix
}
