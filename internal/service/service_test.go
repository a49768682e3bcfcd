package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/files"
	"insulin-calc/internal/history"
	"insulin-calc/internal/notify"
	"insulin-calc/internal/permissions"
	"insulin-calc/internal/report"
	"insulin-calc/internal/settings"
	"insulin-calc/internal/share"
	"insulin-calc/internal/storage"
)

var testNow = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, note notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
	return nil
}

func (r *recordingNotifier) last() notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return notify.Notification{}
	}
	return r.notes[len(r.notes)-1]
}

type fakeReports struct {
	calls   int
	entries int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeReports) Build(_ context.Context, items []history.Item, rangeDays int) (*report.Document, error) {
	f.calls++
	f.entries = len(items)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &report.Document{
		FileName: report.FileName(testNow),
		Data:     []byte("%PDF-1.3 fake"),
		Entries:  len(items),
	}, nil
}

type fakeSharer struct {
	requests []share.Request
	err      error
}

func (f *fakeSharer) Share(_ context.Context, req share.Request) error {
	f.requests = append(f.requests, req)
	return f.err
}

type fixedPermissions struct {
	result permissions.Result
	calls  int
}

func (f *fixedPermissions) Ensure(context.Context, bool) permissions.Result {
	f.calls++
	return f.result
}

type harness struct {
	svc      *Service
	history  *history.Store
	settings *settings.Store
	reports  *fakeReports
	sharer   *fakeSharer
	perms    *fixedPermissions
	notes    *recordingNotifier
	fs       afero.Fs
	clock    *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := storage.NewMemoryStore(0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := testNow
	h := &harness{
		reports: &fakeReports{},
		sharer:  &fakeSharer{},
		perms:   &fixedPermissions{result: permissions.Result{Granted: true, State: permissions.Granted}},
		notes:   &recordingNotifier{},
		fs:      afero.NewMemMapFs(),
		clock:   &now,
	}
	h.history = history.New(db, history.Options{Now: func() time.Time { return *h.clock }}, zerolog.Nop())
	h.settings = settings.New(db, "", zerolog.Nop())
	h.svc = New(Deps{
		History:     h.history,
		Settings:    h.settings,
		Reports:     h.reports,
		Files:       files.NewWriter(h.fs, "/docs", "/cache", zerolog.Nop()),
		Permissions: h.perms,
		Sharer:      h.sharer,
		Notifier:    h.notes,
		Fs:          h.fs,
	}, Options{AllowedRanges: []int{3, 7, 14, 30, 90}, CheckPermissions: true, Share: true}, zerolog.Nop())
	return h
}

var validRaw = calculator.RawInputs{
	CurrentBG: "180", TargetBG: "100", Carbs: "60", CarbRatio: "10", CorrectionFactor: "50", Unit: calculator.UnitMgdl,
}

func (h *harness) seed(t *testing.T, ages ...time.Duration) {
	t.Helper()
	for _, age := range ages {
		*h.clock = testNow.Add(-age)
		_, err := h.svc.Calculate(context.Background(), validRaw)
		require.NoError(t, err)
	}
	*h.clock = testNow
}

func TestCalculateRecordsHistoryAndSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	calc, err := h.svc.Calculate(ctx, validRaw)
	require.NoError(t, err)
	require.NotNil(t, calc)
	assert.Equal(t, calculator.Result{CorrectionDose: 1.6, CarbDose: 6, TotalDose: 7.6}, calc.Result)
	require.Len(t, calc.History, 1)

	saved, ok := h.svc.Settings(ctx)
	require.True(t, ok)
	assert.Equal(t, settings.Settings{Unit: calculator.UnitMgdl, TargetBG: 100, CarbRatio: 10, CorrectionFactor: 50}, saved)

	// blank ratios are taken from the saved settings
	calc, err = h.svc.Calculate(ctx, calculator.RawInputs{CurrentBG: "100", Carbs: "30"})
	require.NoError(t, err)
	require.NotNil(t, calc)
	assert.Equal(t, 3.0, calc.Result.TotalDose)
	assert.Len(t, calc.History, 2)
}

func TestCalculateInvalidInputIsSilent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, raw := range []calculator.RawInputs{
		{CurrentBG: "abc", TargetBG: "100", Carbs: "60", CarbRatio: "10", CorrectionFactor: "50"},
		{CurrentBG: "180", TargetBG: "100", Carbs: "60", CarbRatio: "0", CorrectionFactor: "50"},
		{},
	} {
		calc, err := h.svc.Calculate(ctx, raw)
		assert.NoError(t, err)
		assert.Nil(t, calc)
	}
	assert.Empty(t, h.history.All(ctx))
	assert.Empty(t, h.notes.notes)
}

func TestCalculateMissingTargetIsNotDefaulted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.svc.SaveSettings(ctx, settings.Settings{Unit: calculator.UnitMmol})

	calc, err := h.svc.Calculate(ctx, calculator.RawInputs{CurrentBG: "10", Carbs: "30", CarbRatio: "10", CorrectionFactor: "2"})
	assert.NoError(t, err)
	assert.Nil(t, calc)
	assert.Empty(t, h.history.All(ctx))
}

func TestCalculateQuotaDegraded(t *testing.T) {
	db, err := storage.NewMemoryStore(3 << 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	notes := &recordingNotifier{}
	clock := testNow
	svc := New(Deps{
		History:  history.New(db, history.Options{MaxItems: 20, Now: func() time.Time { clock = clock.Add(time.Second); return clock }}, zerolog.Nop()),
		Settings: settings.New(db, "", zerolog.Nop()),
		Notifier: notes,
	}, Options{}, zerolog.Nop())

	var calcErr error
	var calc *Calculation
	for range 20 {
		calc, calcErr = svc.Calculate(context.Background(), validRaw)
		if calcErr != nil {
			break
		}
	}
	require.Error(t, calcErr)
	assert.ErrorIs(t, calcErr, history.ErrHistoryTrimmed)
	require.NotNil(t, calc)
	assert.Equal(t, 7.6, calc.Result.TotalDose)
	assert.Equal(t, notify.Error, notes.last().Kind)
	assert.Equal(t, "Storage quota exceeded. Older history items were removed.", notes.last().Message)
}

func TestHistoryFiltersRange(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 10*24*time.Hour, 2*24*time.Hour, time.Hour)

	view, err := h.svc.History(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, 3, view.Total)

	_, err = h.svc.History(context.Background(), 5)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestClearHistory(t *testing.T) {
	h := newHarness(t)
	h.seed(t, time.Hour)

	h.svc.ClearHistory(context.Background())
	h.svc.ClearHistory(context.Background())

	assert.Empty(t, h.history.All(context.Background()))
	assert.Equal(t, notify.Notification{Kind: notify.Success, Message: "History cleared", Timeout: 3 * time.Second}, h.notes.last())
}

func TestExportSuccess(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 40*24*time.Hour, 3*24*time.Hour, time.Hour)

	res, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 30, CSVPath: "/out/history.csv"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 2, h.reports.entries)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "/docs/insulin_history_2024-03-31.pdf", res.Saved.Path)

	data, err := afero.ReadFile(h.fs, res.Saved.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	csvData, err := afero.ReadFile(h.fs, "/out/history.csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-03-28T12:00:00Z,180,100,60,10,50,mg/dL,1.6,6.0,7.6"))

	require.Len(t, h.sharer.requests, 1)
	assert.Equal(t, share.Request{
		Title:       "Save PDF",
		Text:        "Save your insulin dosage history",
		DialogTitle: "Save PDF to Files",
		Path:        res.Saved.Path,
	}, h.sharer.requests[0])

	assert.Equal(t, notify.Notification{
		Kind:    notify.Success,
		Message: "PDF exported successfully! (2 entries from last 30 days)",
		Timeout: 5 * time.Second,
	}, h.notes.last())
}

func TestExportNoShare(t *testing.T) {
	h := newHarness(t)
	h.seed(t, time.Hour)

	_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7, NoShare: true})
	require.NoError(t, err)
	assert.Empty(t, h.sharer.requests)
}

func TestExportEmptyHistory(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
	assert.ErrorIs(t, err, ErrNoHistory)
	assert.Equal(t, 0, h.reports.calls)
	assert.Equal(t, 0, h.perms.calls)
	assert.Equal(t, notify.Notification{Kind: notify.Error, Message: "No history to export", Timeout: 3 * time.Second}, h.notes.last())
}

func TestExportNoDataInRange(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 20*24*time.Hour)

	_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 0, h.reports.calls)
	assert.Equal(t, "No data in the last 7 days", h.notes.last().Message)
	assert.Equal(t, 3*time.Second, h.notes.last().Timeout)
}

func TestExportPermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.seed(t, time.Hour)
	h.perms.result = permissions.Result{State: permissions.Denied}

	_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, permissions.Denied, permErr.State)
	assert.True(t, strings.HasPrefix(permErr.Message, permissions.ErrorMessage(permissions.Denied)+"\n\n"))

	assert.Equal(t, 0, h.reports.calls)
	assert.Equal(t, 8*time.Second, h.notes.last().Timeout)
}

func TestExportPermissionCheckDisabled(t *testing.T) {
	h := newHarness(t)
	h.seed(t, time.Hour)
	h.perms.result = permissions.Result{State: permissions.Denied}
	h.svc.opts.CheckPermissions = false

	_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
	require.NoError(t, err)
	assert.Equal(t, 0, h.perms.calls)
}

func TestExportReportFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, time.Hour)
	h.reports.err = fmt.Errorf("%w: chart 2: canvas gone", report.ErrExportFailed)

	_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrExportFailed)

	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, StageReport, exportErr.Stage)
	assert.Equal(t, "Export failed: report: export failed: chart 2: canvas gone", h.notes.last().Message)
	assert.Equal(t, 5*time.Second, h.notes.last().Timeout)

	// the export guard was released
	h.reports.err = nil
	_, err = h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
	assert.NoError(t, err)
}

func TestExportShareFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, time.Hour)
	h.sharer.err = fmt.Errorf("%w: no handler", share.ErrShareFailed)

	_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, StageShare, exportErr.Stage)
	assert.Equal(t, "Could not share file. Please try again.", h.notes.last().Message)
}

func TestExportInProgress(t *testing.T) {
	h := newHarness(t)
	h.seed(t, time.Hour)
	h.reports.block = make(chan struct{})
	h.reports.started = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
		done <- err
	}()
	<-h.reports.started

	_, err := h.svc.Export(context.Background(), ExportRequest{RangeDays: 7})
	assert.ErrorIs(t, err, ErrExportInProgress)

	close(h.reports.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.reports.calls)
}

func TestRequestPermission(t *testing.T) {
	h := newHarness(t)

	res := h.svc.RequestPermission(context.Background())
	assert.True(t, res.Granted)
	assert.Equal(t, notify.Notification{Kind: notify.Success, Message: "Storage permission granted!", Timeout: 3 * time.Second}, h.notes.last())

	h.perms.result = permissions.Result{State: permissions.Denied}
	res = h.svc.RequestPermission(context.Background())
	assert.False(t, res.Granted)
	assert.Equal(t, notify.Error, h.notes.last().Kind)
	assert.Equal(t, 8*time.Second, h.notes.last().Timeout)
}

func TestExportFailureMessage(t *testing.T) {
	assert.Equal(t, "Permission denied. Please grant storage access in settings.",
		exportFailureMessage(&os.PathError{Op: "open", Path: "/docs/x.pdf", Err: os.ErrPermission}))
	assert.Equal(t, "Could not share file. Please try again.", exportFailureMessage(errors.New("share sheet dismissed")))
	assert.Equal(t, "Export failed: disk full", exportFailureMessage(errors.New("disk full")))
}
