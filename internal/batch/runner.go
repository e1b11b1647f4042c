package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"auctionload/internal/config"
	"auctionload/internal/ledger"
	"auctionload/internal/logging"
	"auctionload/internal/services"
	"auctionload/internal/source"
	"auctionload/internal/transform"
	"auctionload/internal/warehouse"
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another auctionload run is in progress")

// Options controls a Runner.
type Options struct {
	Filter      transform.Options
	Naming      config.Naming
	TablePrefix string
	// MaxFiles caps the candidates handled per run; 0 means no cap.
	MaxFiles   int
	SweepStale bool
	LoadEmpty  bool
	DryRun     bool
	LockPath   string
}

// OptionsFromConfig maps the config sections onto runner options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Filter: transform.Options{
			Threshold:   cfg.Filter.Threshold,
			KeyColumn:   cfg.Filter.KeyColumn,
			HeaderLines: cfg.Filter.HeaderLines,
		},
		Naming:      cfg.Naming,
		TablePrefix: cfg.Warehouse.TablePrefix,
		MaxFiles:    cfg.Run.MaxFiles,
		SweepStale:  cfg.Run.SweepStale,
		LoadEmpty:   cfg.Run.LoadEmpty,
		LockPath:    cfg.LockPath(),
	}
}

// Runner executes batch runs against one folder and warehouse.
type Runner struct {
	folder    source.Folder
	warehouse warehouse.Warehouse
	ledger    *ledger.Store
	opts      Options
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// New constructs a runner. All collaborators are required.
func New(folder source.Folder, wh warehouse.Warehouse, store *ledger.Store, opts Options, logger *slog.Logger) (*Runner, error) {
	if folder == nil || wh == nil || store == nil {
		return nil, errors.New("batch runner requires folder, warehouse, and ledger")
	}
	if opts.LockPath == "" {
		return nil, errors.New("batch runner requires a lock path")
	}
	return &Runner{
		folder:    folder,
		warehouse: wh,
		ledger:    store,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "batch"),
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// SetClock replaces the time source used for names and ledger timestamps.
func (r *Runner) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Run performs one pass over the folder. It returns an error only when the
// run cannot start or the folder cannot be listed; per-file failures are
// reported in the summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	lock := flock.New(r.opts.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	startedAt := r.now().UTC()
	runID := r.newID()
	namer := NewNamer(r.opts.Naming, startedAt)
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	run, err := r.ledger.BeginRun(ctx, runID, startedAt, r.opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}
	summary := &Summary{RunID: runID, DryRun: r.opts.DryRun, Date: namer.Date()}

	logger.Info("run started",
		logging.String("folder", r.folder.Describe()),
		logging.String("warehouse", r.warehouse.Describe()),
		logging.Bool("dry_run", r.opts.DryRun),
		logging.String(logging.FieldEventType, "run_started"),
	)

	files, err := r.folder.List(services.WithStage(ctx, "list"))
	if err != nil {
		listErr := services.Wrap(services.ErrExternal, "list", "list folder", r.folder.Describe(), err)
		logging.ErrorWithContext(logger, "folder listing failed", "list_failed",
			logging.Error(listErr),
			logging.String(logging.FieldErrorHint, "check folder id and credentials"),
		)
		r.finish(ctx, run, summary, ledger.StatusFailed)
		return summary, listErr
	}

	taken := make(map[string]struct{}, len(files))
	var candidates, stale []source.File
	for _, f := range files {
		taken[f.Name] = struct{}{}
		if namer.IsCandidate(f.Name) {
			candidates = append(candidates, f)
		} else {
			stale = append(stale, f)
		}
	}

	if r.opts.SweepStale {
		r.sweep(ctx, runID, namer, stale, summary)
	}

	if r.opts.MaxFiles > 0 && len(candidates) > r.opts.MaxFiles {
		logger.Info("candidate list capped",
			logging.Int("candidates", len(candidates)),
			logging.Int("max_files", r.opts.MaxFiles),
		)
		candidates = candidates[:r.opts.MaxFiles]
	}

	for _, f := range candidates {
		if err := ctx.Err(); err != nil {
			r.finish(ctx, run, summary, ledger.StatusFailed)
			return summary, err
		}
		summary.add(r.processFile(ctx, runID, namer, f, taken))
	}

	status := ledger.StatusCompleted
	if summary.Failed() > 0 {
		status = ledger.StatusFailed
	}
	r.finish(ctx, run, summary, status)
	logger.Info("run finished",
		logging.Int("files", len(summary.Files)),
		logging.Int("loaded", summary.Count(ledger.StatusLoaded)),
		logging.Int("empty", summary.Count(ledger.StatusEmpty)),
		logging.Int("skipped", summary.Count(ledger.StatusSkipped)),
		logging.Int("swept", summary.Count(ledger.StatusSwept)),
		logging.Int("failed", summary.Failed()),
		logging.Duration("elapsed", r.now().Sub(startedAt)),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	return summary, nil
}

func (r *Runner) finish(ctx context.Context, run *ledger.Run, summary *Summary, status ledger.Status) {
	finished := r.now().UTC()
	run.Status = status
	run.FinishedAt = &finished
	run.FilesTotal = len(summary.Files)
	run.FilesLoaded = summary.Count(ledger.StatusLoaded)
	run.FilesFailed = summary.Failed()
	// The run may have been cancelled; the ledger write must still land.
	if err := r.ledger.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to record run end", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows the run as running"),
		)
	}
}

// sweep retires files left by earlier runs, such as previous outputs.
func (r *Runner) sweep(ctx context.Context, runID string, namer Namer, stale []source.File, summary *Summary) {
	for _, f := range stale {
		fileCtx := services.WithStage(services.WithFile(ctx, f.Name), "sweep")
		logger := logging.WithContext(fileCtx, r.logger)
		if r.opts.DryRun {
			logger.Info("would sweep stale file", logging.String(logging.FieldEventType, "sweep_planned"))
			continue
		}
		if err := r.folder.MarkProcessed(fileCtx, f, namer.ConsumedName()); err != nil {
			logging.WarnWithContext(logger, "stale file sweep failed", "sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "file stays in the folder until the next run"),
			)
			continue
		}
		rec := &ledger.FileRecord{
			RunID:      runID,
			SourceID:   f.ID,
			SourceName: f.Name,
			SizeBytes:  f.Size,
			Status:     ledger.StatusSwept,
		}
		r.record(fileCtx, rec)
		summary.add(FileOutcome{Name: f.Name, Status: ledger.StatusSwept})
		logger.Info("stale file swept", logging.String(logging.FieldEventType, "file_swept"))
	}
}

func (r *Runner) processFile(ctx context.Context, runID string, namer Namer, f source.File, taken map[string]struct{}) FileOutcome {
	ctx = services.WithFile(ctx, f.Name)
	outcome := FileOutcome{Name: f.Name}
	rec := &ledger.FileRecord{
		RunID:      runID,
		SourceID:   f.ID,
		SourceName: f.Name,
		SizeBytes:  f.Size,
		Status:     ledger.StatusRunning,
	}
	r.record(ctx, rec)

	fail := func(stage string, err error) FileOutcome {
		stageCtx := services.WithStage(ctx, stage)
		rec.Status = services.FailureStatus(err)
		rec.ErrorMessage = err.Error()
		r.update(stageCtx, rec)
		logging.ErrorWithContext(logging.WithContext(stageCtx, r.logger), "file failed", "file_failed",
			logging.Error(err),
			logging.String("status", string(rec.Status)),
		)
		outcome.Status = rec.Status
		outcome.Err = err
		return outcome
	}

	content, err := r.folder.Read(services.WithStage(ctx, "read"), f)
	if err != nil {
		return fail("read", err)
	}
	rec.Checksum = checksum(content)

	if !r.opts.DryRun {
		prior, err := r.ledger.FindLoaded(ctx, f.ID, rec.Checksum)
		if err != nil {
			return fail("read", fmt.Errorf("look up earlier loads: %w", err))
		}
		if prior != nil {
			return r.retryMark(ctx, namer, f, rec, prior, outcome)
		}
	}

	transformCtx := services.WithStage(ctx, "transform")
	result, err := transform.Apply(content, r.opts.Filter, logging.WithContext(transformCtx, r.logger))
	if err != nil {
		return fail("transform", services.Wrap(services.ErrValidation, "transform", "apply", f.Name, err))
	}
	rec.RowsParsed = result.RowsParsed
	rec.KeysRetained = len(result.KeysRetained)
	rec.RowsWritten = result.RowsWritten
	rec.RowsDropped = result.RowsDropped
	outcome.RowsWritten = result.RowsWritten
	outcome.RowsDropped = result.RowsDropped

	logger := logging.WithContext(transformCtx, r.logger)
	logger.Info("export filtered",
		logging.Int("rows_parsed", result.RowsParsed),
		logging.Int("keys_seen", result.KeysSeen),
		logging.Int("keys_retained", len(result.KeysRetained)),
		logging.Int("rows_written", result.RowsWritten),
		logging.Int("rows_dropped", result.RowsDropped),
	)

	if result.Empty() && !r.opts.LoadEmpty {
		if r.opts.DryRun {
			outcome.Status = ledger.StatusPreviewed
			rec.Status = ledger.StatusPreviewed
			r.update(ctx, rec)
			return outcome
		}
		r.markProcessed(ctx, namer, f)
		rec.Status = ledger.StatusEmpty
		r.update(ctx, rec)
		outcome.Status = ledger.StatusEmpty
		return outcome
	}

	outputName := namer.OutputName(taken)
	table := warehouse.TableName(r.opts.TablePrefix, namer.Date())
	rec.OutputName = outputName
	rec.TableName = table
	outcome.OutputName = outputName
	outcome.TableName = table

	if r.opts.DryRun {
		taken[outputName] = struct{}{}
		rec.Status = ledger.StatusPreviewed
		r.update(ctx, rec)
		logger.Info("dry run: output not written",
			logging.String("output", outputName),
			logging.String("table", table),
		)
		outcome.Status = ledger.StatusPreviewed
		return outcome
	}

	written, err := r.folder.Write(services.WithStage(ctx, "write"), outputName, result.Output)
	if err != nil {
		return fail("write", err)
	}
	taken[outputName] = struct{}{}

	loadCtx := services.WithStage(ctx, "load")
	if err := r.warehouse.CreateTable(loadCtx, table, warehouse.AuctionSchema()); err != nil {
		return fail("load", err)
	}
	loaded, err := r.warehouse.Load(loadCtx, table, written, result.Output)
	rec.JobID = loaded.JobID
	outcome.JobID = loaded.JobID
	if err != nil {
		return fail("load", err)
	}

	rec.Status = ledger.StatusLoaded
	r.update(ctx, rec)
	outcome.Status = ledger.StatusLoaded
	logging.WithContext(loadCtx, r.logger).Info("file loaded",
		logging.String("output", outputName),
		logging.String("table", table),
		logging.String("job_id", loaded.JobID),
		logging.String(logging.FieldEventType, "file_loaded"),
	)

	r.markProcessed(ctx, namer, f)
	return outcome
}

// retryMark handles an input whose content an earlier run already loaded:
// only the rename and trash step is attempted again.
func (r *Runner) retryMark(ctx context.Context, namer Namer, f source.File, rec, prior *ledger.FileRecord, outcome FileOutcome) FileOutcome {
	logging.WithContext(ctx, r.logger).Info("export already loaded; retiring input",
		logging.String("previous_run", prior.RunID),
		logging.String("table", prior.TableName),
		logging.String(logging.FieldEventType, "file_skipped"),
	)
	r.markProcessed(ctx, namer, f)
	rec.Status = ledger.StatusSkipped
	rec.OutputName = prior.OutputName
	rec.TableName = prior.TableName
	rec.JobID = prior.JobID
	r.update(ctx, rec)
	outcome.Status = ledger.StatusSkipped
	outcome.OutputName = prior.OutputName
	outcome.TableName = prior.TableName
	outcome.JobID = prior.JobID
	return outcome
}

// markProcessed is best-effort: failures are logged and never fail the file.
func (r *Runner) markProcessed(ctx context.Context, namer Namer, f source.File) {
	markCtx := services.WithStage(ctx, "mark")
	newName := namer.ConsumedName()
	if err := r.folder.MarkProcessed(markCtx, f, newName); err != nil {
		logging.WarnWithContext(logging.WithContext(markCtx, r.logger), "failed to retire input", "mark_processed_failed",
			logging.Error(err),
			logging.String("new_name", newName),
			logging.String(logging.FieldErrorHint, "check write access to the folder"),
			logging.String(logging.FieldImpact, "input stays in the folder; the next run skips reloading it"),
		)
		return
	}
	logging.WithContext(markCtx, r.logger).Debug("input retired", logging.String("new_name", newName))
}

func (r *Runner) record(ctx context.Context, rec *ledger.FileRecord) {
	if err := r.ledger.RecordFile(ctx, rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to record file", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history is missing this file"),
		)
	}
}

func (r *Runner) update(ctx context.Context, rec *ledger.FileRecord) {
	if rec.ID == 0 {
		return
	}
	if err := r.ledger.UpdateFile(ctx, rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to update file record", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows a stale status for this file"),
		)
	}
}

func checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
