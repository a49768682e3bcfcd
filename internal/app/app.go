package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/charts"
	"insulin-calc/internal/config"
	"insulin-calc/internal/files"
	"insulin-calc/internal/history"
	"insulin-calc/internal/notify"
	"insulin-calc/internal/permissions"
	"insulin-calc/internal/report"
	"insulin-calc/internal/service"
	"insulin-calc/internal/settings"
	"insulin-calc/internal/share"
	"insulin-calc/internal/storage"
	"insulin-calc/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
	In     io.Reader
	Fs     afero.Fs
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
		In:     os.Stdin,
		Fs:     afero.NewOsFs(),
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	store, err := storage.Open(ctx, a.Config.Storage)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close storage")
		}
	}
	return store, closer, nil
}

func (a *App) newNotifier() notify.Notifier {
	notifiers := notify.Multi{notify.NewConsoleNotifier(a.Out)}
	if a.Config.Notify.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier("Insulin Calc", a.Logger))
	}
	return notifiers
}

func (a *App) newSharer() share.Sharer {
	if a.Config.Export.Share {
		return share.NewDesktopSharer(a.Logger)
	}
	return share.NewLogSharer(a.Logger)
}

// env bundles the opened store and the service built on it.
type env struct {
	store *storage.Store
	svc   *service.Service
	close func()
}

func (a *App) newEnv(ctx context.Context) (*env, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	loc, err := a.Config.Location()
	if err != nil {
		closeStore()
		return nil, err
	}

	renderer, err := charts.NewRenderer(a.Logger)
	if err != nil {
		closeStore()
		return nil, err
	}

	hist := history.New(store, history.Options{
		Key:      a.Config.Storage.HistoryKey,
		MaxItems: a.Config.History.MaxItems,
	}, a.Logger)

	svc := service.New(service.Deps{
		History:  hist,
		Settings: settings.New(store, a.Config.Storage.SettingsKey, a.Logger),
		Reports: report.NewGenerator(renderer, report.Options{
			Location:    loc,
			SettleDelay: a.Config.Export.ChartSettleDelay,
			Producer:    version.Producer(),
		}, a.Logger),
		Files:       files.NewWriter(a.Fs, a.Config.Export.PrimaryDir, a.Config.Export.FallbackDir, a.Logger),
		Permissions: permissions.NewChecker(a.Fs, a.permissionDir(), a.Logger),
		Sharer:      a.newSharer(),
		Notifier:    a.newNotifier(),
		Fs:          a.Fs,
	}, service.Options{
		AllowedRanges:    a.Config.Export.AllowedRanges,
		CheckPermissions: a.Config.Export.CheckPermissions,
		Share:            a.Config.Export.Share,
	}, a.Logger)

	return &env{store: store, svc: svc, close: closeStore}, nil
}

func (a *App) permissionDir() string {
	if a.Config.Export.PrimaryDir != "" {
		return a.Config.Export.PrimaryDir
	}
	return a.Config.Export.FallbackDir
}

// CalculateOptions configure the calculate command.
type CalculateOptions struct {
	Raw    calculator.RawInputs
	DryRun bool
}

// ShowOptions configure the history command.
type ShowOptions struct {
	RangeDays int
}

// ExportOptions configure the export command.
type ExportOptions struct {
	RangeDays int
	NoShare   bool
	CSVPath   string
}

// ClearOptions configure the clear command.
type ClearOptions struct {
	Yes bool
}

// SettingsUpdate carries the fields set on the command line; nil fields keep
// their saved value.
type SettingsUpdate struct {
	Unit             *calculator.Unit
	TargetBG         *float64
	CarbRatio        *float64
	CorrectionFactor *float64
}
