package generator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"strmhook/internal/alist"
	"strmhook/internal/config"
	"strmhook/internal/history"
	"strmhook/internal/logging"
	"strmhook/internal/metrics"
	"strmhook/internal/services"
	"strmhook/internal/strm"
)

// Lister walks a remote tree and returns its files.
type Lister interface {
	Walk(ctx context.Context, root string, refresh bool) ([]alist.Entry, error)
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// FileError describes a media file whose pointer file could not be written.
type FileError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result summarizes one generation request.
type Result struct {
	RunID     string      `json:"-"`
	Processed int         `json:"processed"`
	Created   int         `json:"created"`
	Skipped   int         `json:"skipped"`
	Errors    []FileError `json:"errors"`
}

func newResult(runID string) Result {
	return Result{RunID: runID, Errors: []FileError{}}
}

// Generator turns remote listings into pointer files.
type Generator struct {
	lister   Lister
	mapper   *strm.Mapper
	writer   *strm.Writer
	refresh  bool
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder Recorder
	now      func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logging.NewComponentLogger(logger, "generator")
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// WithRecorder records every finished run.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		g.recorder = r
	}
}

// New builds a generator for cfg that lists remote directories through lister.
func New(cfg *config.Config, lister Lister, opts ...Option) *Generator {
	g := &Generator{
		lister:  lister,
		mapper:  strm.NewMapper(cfg),
		writer:  strm.NewWriter(),
		refresh: cfg.AList.Refresh,
		logger:  logging.NewComponentLogger(nil, "generator"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FromDirectory walks dir and writes a pointer file for every media file below
// it. A listing failure is returned as the error and nothing is written.
func (g *Generator) FromDirectory(ctx context.Context, dir string) (Result, error) {
	ctx, runID := g.startRun(ctx, history.ModeDirectory)
	logger := logging.WithContext(ctx, g.logger)
	started := g.now()
	root := strm.CleanRemotePath(dir)
	result := newResult(runID)

	logger.Info("directory run started", logging.String(logging.FieldPath, root))
	files, err := g.lister.Walk(ctx, root, g.refresh)
	g.metrics.ObserveListing(g.now().Sub(started))
	if err != nil {
		logging.ErrorWithContext(logger, "remote listing failed", "listing_failed",
			logging.String(logging.FieldPath, root),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, listingHint(err)),
		)
		g.finish(ctx, logger, root, started, result, err)
		return result, err
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, file.Path)
	}
	g.writeAll(logger, paths, &result)
	g.finish(ctx, logger, root, started, result, nil)
	return result, nil
}

// FromFiles writes pointer files for an explicit list of remote files without
// listing anything. Blank entries are ignored.
func (g *Generator) FromFiles(ctx context.Context, files []string) Result {
	ctx, runID := g.startRun(ctx, history.ModeDirect)
	logger := logging.WithContext(ctx, g.logger)
	started := g.now()
	result := newResult(runID)

	paths := make([]string, 0, len(files))
	for _, file := range files {
		if strings.TrimSpace(file) == "" {
			continue
		}
		paths = append(paths, file)
	}
	logger.Info("direct run started", logging.Int("files", len(paths)))
	g.writeAll(logger, paths, &result)
	g.finish(ctx, logger, "", started, result, nil)
	return result
}

// startRun assigns a run ID and mode unless the caller already did.
func (g *Generator) startRun(ctx context.Context, mode string) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	if _, ok := services.ModeFromContext(ctx); !ok {
		ctx = services.WithMode(ctx, mode)
	}
	return ctx, runID
}

func (g *Generator) writeAll(logger *slog.Logger, remotePaths []string, result *Result) {
	for _, remotePath := range remotePaths {
		target, ok := g.mapper.Map(remotePath)
		if !ok {
			logger.Debug("skipping non-media file", logging.String(logging.FieldPath, remotePath))
			continue
		}
		result.Processed++

		outcome, err := g.writer.Write(target.LocalPath, target.URL)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: target.RemotePath, Message: err.Error()})
			g.metrics.FileHandled("failed")
			logger.Warn("strm write failed",
				logging.String(logging.FieldPath, target.RemotePath),
				logging.String("local_path", target.LocalPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "strm_write_failed"),
				logging.String(logging.FieldErrorHint, "check save_dir permissions and free space"),
			)
			continue
		}

		switch outcome {
		case strm.Created:
			result.Created++
		case strm.Skipped:
			result.Skipped++
		}
		g.metrics.FileHandled(outcome.String())
		logger.Debug("strm "+outcome.String(),
			logging.String(logging.FieldPath, target.RemotePath),
			logging.String("local_path", target.LocalPath),
		)
	}
}

func (g *Generator) finish(ctx context.Context, logger *slog.Logger, target string, started time.Time, result Result, runErr error) {
	mode, _ := services.ModeFromContext(ctx)
	status := history.StatusOK
	errMsg := ""
	if runErr != nil {
		status = history.StatusFailed
		errMsg = runErr.Error()
	}
	duration := g.now().Sub(started)
	g.metrics.RunFinished(mode, status)

	if runErr == nil {
		logger.Info("run finished",
			logging.Int("processed", result.Processed),
			logging.Int("created", result.Created),
			logging.Int("skipped", result.Skipped),
			logging.Int("failed", len(result.Errors)),
			logging.Duration("duration", duration),
		)
	}

	if g.recorder == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	run := history.Run{
		ID:        runID,
		Mode:      mode,
		Target:    target,
		Processed: result.Processed,
		Created:   result.Created,
		Skipped:   result.Skipped,
		Failed:    len(result.Errors),
		Status:    status,
		Error:     errMsg,
		StartedAt: started,
		Duration:  duration,
	}
	// A cancelled request still gets its run recorded.
	if err := g.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("history record failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_record_failed"),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
		)
	}
}

func listingHint(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "check the webhook path exists in AList"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request was cancelled or timed out"
	default:
		return "check alist.url, alist.token and that AList is reachable"
	}
}
