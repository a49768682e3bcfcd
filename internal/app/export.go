package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"insulin-calc/internal/service"
)

// Export renders the selected range as a PDF report.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	days := a.Config.ResolveRangeDays(opts.RangeDays)

	e, err := a.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.svc.Export(ctx, service.ExportRequest{
		RangeDays: days,
		NoShare:   opts.NoShare,
		CSVPath:   opts.CSVPath,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNoHistory), errors.Is(err, service.ErrNoData):
		// already reported through the status message
		return nil
	default:
		return err
	}

	fmt.Fprintf(a.Out, "Saved %s (%d pages)\n", res.Saved.Path, res.Document.Pages)
	if res.Saved.Fallback {
		fmt.Fprintf(a.Out, "Note: %s was not writable; the report was saved to the fallback directory.\n", a.Config.Export.PrimaryDir)
	}
	if res.CSVPath != "" {
		fmt.Fprintf(a.Out, "Saved %s\n", res.CSVPath)
	}
	return nil
}

// RequestPermission checks and, if needed, requests write access to the
// export directory.
func (a *App) RequestPermission(ctx context.Context) error {
	e, err := a.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	res := e.svc.RequestPermission(ctx)
	fmt.Fprintf(a.Out, "Storage permission: %s (%s)\n", res.State, a.permissionDir())
	return nil
}
