package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dictx/internal/codec"
	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/metrics"
	"github.com/JonMunkholm/dictx/internal/wire"
)

// DefaultRunTimeout bounds a single export or import.
const DefaultRunTimeout = 2 * time.Minute

// Options configures a Service.
type Options struct {
	// Export holds the default export options. Requests may override the
	// macro, reserved ID and variable path switches.
	Export codec.ExportOptions

	// OnError answers recoverable import errors when a request does not.
	// Nil aborts on the first one.
	OnError codec.DecideFunc

	DefaultFormat string
	RunTimeout    time.Duration
	MaxConcurrent int
	MaxWait       time.Duration
	HistorySize   int

	// Metrics records run outcomes. Nil disables metrics.
	Metrics *metrics.Collector
}

// Service runs exports and imports against a Store.
type Service struct {
	store   Store
	opts    Options
	logger  *slog.Logger
	limiter *RunLimiter
	history *RunHistory

	// importMu serializes load, merge and save so concurrent imports never
	// merge into the same stale snapshot.
	importMu sync.Mutex
}

// NewService creates a service over store. A nil logger uses slog.Default.
func NewService(store Store, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	if opts.Export.SystemFieldKey == "" {
		opts.Export.SystemFieldKey = "System"
	}
	return &Service{
		store:   store,
		opts:    opts,
		logger:  logger,
		limiter: NewRunLimiter(opts.MaxConcurrent, opts.MaxWait),
		history: NewRunHistory(opts.HistorySize),
	}
}

// Metrics returns the collector runs report to, or nil.
func (s *Service) Metrics() *metrics.Collector {
	return s.opts.Metrics
}

// Limiter exposes the run limiter for status reporting and shutdown.
func (s *Service) Limiter() *RunLimiter {
	return s.limiter
}

// History returns the recent run log.
func (s *Service) History() *RunHistory {
	return s.history
}

// Formats lists the document formats the service can read and write.
func (s *Service) Formats() []string {
	return wire.Names()
}

// run wraps one export or import: it takes a limiter slot, applies the run
// timeout (paused while a decision callback waits), tags the logger with a run ID and records the outcome.
func (s *Service) run(ctx context.Context, rec RunRecord, fn func(ctx context.Context, logger *slog.Logger, rec *RunRecord, clock *runClock) error) (string, error) {
	rec.ID = uuid.New().String()
	rec.StartedAt = time.Now()
	client := ClientFromContext(ctx)
	rec.IPAddress, rec.UserAgent = client.IP, client.UserAgent
	logger := s.logger.With("run_id", rec.ID, "kind", string(rec.Kind))

	err := s.limiter.Acquire(ctx)
	acquired := err == nil
	if acquired {
		s.opts.Metrics.RunStarted()
		runCtx, clock := newRunClock(ctx, s.opts.RunTimeout)
		logger.Info("run started", "format", rec.Format)
		err = fn(runCtx, logger, &rec, clock)
		if errors.Is(err, context.Canceled) && errors.Is(context.Cause(runCtx), context.DeadlineExceeded) {
			err = fmt.Errorf("run exceeded %s: %w", s.opts.RunTimeout, context.DeadlineExceeded)
		}
		clock.stop()
		s.limiter.Release()
	}

	rec.Duration = time.Since(rec.StartedAt)
	rec.Status = RunSucceeded
	if err != nil {
		rec.Status = RunFailed
		rec.Error = err.Error()
		rec.Code = MapError(err).Code
		logger.Error("run failed", "error", err, "code", rec.Code, "duration", rec.Duration)
	} else {
		logger.Info("run finished", "tables", len(rec.Tables), "duration", rec.Duration)
	}
	if acquired {
		s.opts.Metrics.RunFinished(string(rec.Kind), string(rec.Status), rec.Code, rec.Duration)
	} else {
		s.opts.Metrics.RunRejected(string(rec.Kind), rec.Code)
	}
	s.history.Add(rec)
	return rec.ID, err
}

// Export encodes the requested tables and the definitions they reference.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	format, err := wire.Lookup(s.formatName(req.Format))
	if err != nil {
		return nil, err
	}

	opts := s.opts.Export
	override(&opts.SubstituteMacros, req.SubstituteMacros)
	override(&opts.IncludeReservedIDs, req.IncludeReservedIDs)
	override(&opts.IncludeVariablePaths, req.IncludeVariablePaths)

	result := &ExportResult{
		Format:      format.Name(),
		ContentType: format.ContentType(),
		Extension:   format.Extension(),
	}
	id, err := s.run(ctx, RunRecord{Kind: RunExport, Format: format.Name()}, func(ctx context.Context, logger *slog.Logger, rec *RunRecord, _ *runClock) error {
		snap, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("%w: load dictionary: %w", ErrIO, err)
		}

		tables := req.Tables
		if len(tables) == 0 {
			tables = snap.TableNames()
		}
		rec.Tables = tables

		doc, warnings, err := codec.NewExporter(snap, logger).Export(tables, opts)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := format.Encode(&buf, doc); err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrIO, format.Name(), err)
		}
		result.Tables = tables
		result.Warnings = warnings
		result.Data = buf.Bytes()
		s.opts.Metrics.Exported(len(result.Data))
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.RunID = id
	if rec, ok := s.history.Get(id); ok {
		result.Duration = rec.Duration
	}
	return result, nil
}

// Import decodes a document and merges it into the stored dictionary. The
// merged dictionary is saved in one Store.Save call, so a failed import
// leaves the store untouched.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportSummary, error) {
	format, err := wire.Lookup(s.formatName(req.Format))
	if err != nil {
		return nil, err
	}
	decide := req.Decide
	if decide == nil {
		decide = s.opts.OnError
	}

	summary := &ImportSummary{Scope: req.Scope.String(), DryRun: req.DryRun}
	rec := RunRecord{Kind: RunImport, Format: format.Name(), DryRun: req.DryRun}
	id, err := s.run(ctx, rec, func(ctx context.Context, logger *slog.Logger, rec *RunRecord, clock *runClock) error {
		doc, err := format.Decode(bytes.NewReader(cleanInput(req.Data)))
		if err != nil {
			return fmt.Errorf("%w: %w", codec.ErrMalformedDocument, err)
		}

		s.importMu.Lock()
		defer s.importMu.Unlock()

		snap, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("%w: load dictionary: %w", ErrIO, err)
		}

		res, err := codec.NewImporter(snap, clock.hold(decide), logger).Import(doc, req.Scope)
		if err != nil {
			return err
		}
		for _, t := range res.Tables {
			summary.Tables = append(summary.Tables, t.Name)
		}
		rec.Tables = summary.Tables
		summary.TableTypes = len(res.TableTypes)
		summary.DataTypes = len(res.PrimitiveTypes)
		summary.Macros = len(res.Macros)
		summary.ReservedIDs = len(res.ReservedIDs)
		summary.VariablePaths = len(res.VariablePaths)

		if err := context.Cause(ctx); err != nil {
			return err
		}
		if req.DryRun {
			return nil
		}
		if err := s.store.Save(ctx, res.Snapshot); err != nil {
			return fmt.Errorf("%w: save dictionary: %w", ErrIO, err)
		}
		s.opts.Metrics.Imported(map[string]int{
			"tables":         len(summary.Tables),
			"table_types":    summary.TableTypes,
			"data_types":     summary.DataTypes,
			"macros":         summary.Macros,
			"reserved_ids":   summary.ReservedIDs,
			"variable_paths": summary.VariablePaths,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.RunID = id
	if rec, ok := s.history.Get(id); ok {
		summary.Duration = rec.Duration
	}
	return summary, nil
}

// Reset clears every definition from the store and keeps the project. It
// waits for running imports.
func (s *Service) Reset(ctx context.Context) (string, error) {
	return s.run(ctx, RunRecord{Kind: RunReset}, func(ctx context.Context, logger *slog.Logger, rec *RunRecord, _ *runClock) error {
		s.importMu.Lock()
		defer s.importMu.Unlock()

		snap, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("%w: load dictionary: %w", ErrIO, err)
		}
		rec.Tables = snap.TableNames()
		logger.Warn("resetting dictionary", "tables", len(rec.Tables))

		if err := s.store.Save(ctx, dictionary.New(snap.Project())); err != nil {
			return fmt.Errorf("%w: save dictionary: %w", ErrIO, err)
		}
		return nil
	})
}

// ListTables describes every stored table, sorted by name.
func (s *Service) ListTables(ctx context.Context) ([]TableSummary, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load dictionary: %w", ErrIO, err)
	}
	names := snap.TableNames()
	sort.Strings(names)

	out := make([]TableSummary, 0, len(names))
	for _, name := range names {
		t, _ := snap.Table(name)
		out = append(out, TableSummary{
			Name:        t.Name,
			TypeName:    t.TypeName,
			Description: t.Description,
			Rows:        len(t.Rows),
		})
	}
	return out, nil
}

// ListTableTypes describes every stored table type in definition order.
func (s *Service) ListTableTypes(ctx context.Context) ([]TableTypeSummary, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load dictionary: %w", ErrIO, err)
	}
	byType := snap.TablesByType()

	types := snap.TableTypes()
	out := make([]TableTypeSummary, 0, len(types))
	for _, t := range types {
		columns := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			columns[i] = c.Name
		}
		out = append(out, TableTypeSummary{
			Name:        t.Name,
			Description: t.Description,
			Kind:        t.Kind().String(),
			Columns:     columns,
			Tables:      byType[t.Name],
		})
	}
	return out, nil
}

// Snapshot loads the stored dictionary.
func (s *Service) Snapshot(ctx context.Context) (*dictionary.Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load dictionary: %w", ErrIO, err)
	}
	return snap, nil
}

func (s *Service) formatName(name string) string {
	if name != "" {
		return name
	}
	return s.opts.DefaultFormat
}

func override(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
