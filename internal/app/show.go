package app

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/history"
)

// ShowHistory prints the entries of the selected range grouped by day.
func (a *App) ShowHistory(ctx context.Context, opts ShowOptions) error {
	days := a.Config.ResolveRangeDays(opts.RangeDays)

	e, err := a.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	view, err := e.svc.History(ctx, days)
	if err != nil {
		return err
	}
	if view.Total == 0 {
		fmt.Fprintln(a.Out, "No history yet.")
		return nil
	}
	if len(view.Items) == 0 {
		fmt.Fprintf(a.Out, "No entries in the last %d days.\n", days)
		return nil
	}

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}

	for i, group := range history.GroupByDay(view.Items, loc) {
		if i > 0 {
			fmt.Fprintln(a.Out)
		}
		fmt.Fprintln(a.Out, group.Day.Format("Monday, January 2, 2006"))

		writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		for _, item := range group.Items {
			fmt.Fprintf(writer, "  %s\t%s u\tBG: %s %s\tCarbs: %sg\n",
				item.Timestamp.In(loc).Format("15:04"),
				calculator.FormatDose(item.Result.TotalDose),
				calculator.FormatValue(item.Inputs.CurrentBG),
				item.Inputs.Unit,
				calculator.FormatValue(item.Inputs.Carbs),
			)
		}
		writer.Flush()
	}

	fmt.Fprintf(a.Out, "\n%d of %d entries in the last %d days\n", len(view.Items), view.Total, days)
	return nil
}

// Clear removes all history after confirmation.
func (a *App) Clear(ctx context.Context, opts ClearOptions) error {
	if !opts.Yes && !a.confirm("Are you sure you want to clear all history?") {
		fmt.Fprintln(a.Out, "aborted")
		return nil
	}

	e, err := a.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	e.svc.ClearHistory(ctx)
	return nil
}

func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.Out, "%s [y/N] ", question)
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
