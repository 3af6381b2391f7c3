package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/dictx/internal/codec"
	"github.com/JonMunkholm/dictx/internal/config"
	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/document"
	"github.com/JonMunkholm/dictx/internal/metrics"
	"github.com/JonMunkholm/dictx/internal/store/storetest"
	"github.com/JonMunkholm/dictx/internal/wire"
)

// memStore keeps the dictionary in memory and counts saves.
type memStore struct {
	mu      sync.Mutex
	snap    *dictionary.Snapshot
	saves   int
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (*dictionary.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *memStore) Save(ctx context.Context, snap *dictionary.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = snap
	m.saves++
	return nil
}

func newTestService(t *testing.T, snap *dictionary.Snapshot) (*Service, *memStore) {
	t.Helper()
	store := &memStore{snap: snap}
	return NewService(store, Options{MaxConcurrent: 2, MaxWait: 50 * time.Millisecond}, nil), store
}

func emptySnapshot() *dictionary.Snapshot {
	return dictionary.New(dictionary.Project{Name: "Empty"})
}

// =============================================================================
// Export
// =============================================================================

func TestService_ExportDefaults(t *testing.T) {
	svc, _ := newTestService(t, storetest.Sample(t))

	res, err := svc.Export(context.Background(), ExportRequest{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Format != wire.DefaultFormat {
		t.Errorf("Format = %q, want %q", res.Format, wire.DefaultFormat)
	}
	if len(res.Tables) != 1 || res.Tables[0] != "Thermo" {
		t.Errorf("Tables = %v, want [Thermo]", res.Tables)
	}
	if !strings.Contains(string(res.Data), "Table: Thermo : Power") {
		t.Errorf("document missing table namespace:\n%s", res.Data)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}

	rec, ok := svc.History().Get(res.RunID)
	if !ok {
		t.Fatal("run not recorded in history")
	}
	if rec.Kind != RunExport || rec.Status != RunSucceeded {
		t.Errorf("history record = %+v", rec)
	}
}

func TestService_ExportErrors(t *testing.T) {
	svc, _ := newTestService(t, storetest.Sample(t))
	ctx := context.Background()

	if _, err := svc.Export(ctx, ExportRequest{Format: "csv"}); !errors.Is(err, wire.ErrUnknownFormat) {
		t.Errorf("Export(csv) error = %v, want ErrUnknownFormat", err)
	}

	_, err := svc.Export(ctx, ExportRequest{Tables: []string{"Missing"}})
	if !errors.Is(err, codec.ErrTableNotFound) {
		t.Fatalf("Export(Missing) error = %v, want ErrTableNotFound", err)
	}
	recent := svc.History().Recent(1)
	if len(recent) != 1 || recent[0].Status != RunFailed || recent[0].Code != "EXP001" {
		t.Errorf("history = %+v, want one failed EXP001 run", recent)
	}
}

func TestService_ExportOverrides(t *testing.T) {
	svc, _ := newTestService(t, storetest.Sample(t))
	include := true

	res, err := svc.Export(context.Background(), ExportRequest{Format: "yaml", IncludeReservedIDs: &include})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.ContentType == "" || res.Extension == "" {
		t.Errorf("format metadata missing: %+v", res)
	}
	if !strings.Contains(string(res.Data), "0x100") {
		t.Errorf("reserved ID not exported:\n%s", res.Data)
	}
}

// =============================================================================
// Import
// =============================================================================

func exportSample(t *testing.T) []byte {
	t.Helper()
	src, _ := newTestService(t, storetest.Sample(t))
	res, err := src.Export(context.Background(), ExportRequest{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	return res.Data
}

func TestService_ImportSaves(t *testing.T) {
	data := exportSample(t)
	svc, store := newTestService(t, emptySnapshot())

	sum, err := svc.Import(context.Background(), ImportRequest{Data: data})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
	if len(sum.Tables) != 1 || sum.Tables[0] != "Thermo" {
		t.Errorf("Tables = %v, want [Thermo]", sum.Tables)
	}
	if sum.TableTypes != 1 || sum.DataTypes != 1 {
		t.Errorf("summary = %+v, want 1 table type and 1 data type", sum)
	}
	if _, ok := store.snap.Table("Thermo"); !ok {
		t.Error("stored dictionary missing Thermo")
	}
	if _, ok := store.snap.PrimitiveType("uint8"); !ok {
		t.Error("stored dictionary missing uint8")
	}
}

func TestService_ImportDryRun(t *testing.T) {
	data := exportSample(t)
	svc, store := newTestService(t, emptySnapshot())

	sum, err := svc.Import(context.Background(), ImportRequest{Data: data, DryRun: true})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !sum.DryRun || len(sum.Tables) != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}

func TestService_ImportFailuresLeaveStoreUntouched(t *testing.T) {
	data := exportSample(t)

	tests := []struct {
		name     string
		ctx      func() context.Context
		data     []byte
		saveErr  error
		wantIs   error
		wantCode string
	}{
		{
			name:     "undecodable document",
			ctx:      context.Background,
			data:     []byte("<DataSheet"),
			wantIs:   codec.ErrMalformedDocument,
			wantCode: "DOC001",
		},
		{
			name:     "save failure",
			ctx:      context.Background,
			data:     data,
			saveErr:  errors.New("disk full"),
			wantIs:   ErrIO,
			wantCode: "DB008",
		},
		{
			name: "cancelled before commit",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			data:     data,
			wantIs:   context.Canceled,
			wantCode: "RUN002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			empty := emptySnapshot()
			svc, store := newTestService(t, empty)
			store.saveErr = tt.saveErr

			_, err := svc.Import(tt.ctx(), ImportRequest{Data: tt.data})
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("Import() error = %v, want %v", err, tt.wantIs)
			}
			if got := MapError(err).Code; got != tt.wantCode {
				t.Errorf("MapError code = %q, want %q", got, tt.wantCode)
			}
			if store.saves != 0 || store.snap != empty {
				t.Error("store changed after failed import")
			}
		})
	}
}

func TestService_ImportDecisions(t *testing.T) {
	doc := document.New("Satellite", "")
	ns := doc.Namespace(document.MacroNamespace)
	ns.AddGeneric(document.RoleMacro, "Bad", document.EncodeRecord("a", "b"))
	ns.AddGeneric(document.RoleMacro, "Good", document.EncodeRecord("1"))
	var buf bytes.Buffer
	if err := jsonFormat(t).Encode(&buf, doc); err != nil {
		t.Fatal(err)
	}

	t.Run("service default aborts", func(t *testing.T) {
		svc, store := newTestService(t, emptySnapshot())
		var calls []codec.Category
		svc.opts.OnError = func(cat codec.Category, _ string) codec.Decision {
			calls = append(calls, cat)
			return codec.Abort
		}
		_, err := svc.Import(context.Background(), ImportRequest{Format: "json", Data: buf.Bytes()})
		var abort *codec.AbortError
		if !errors.As(err, &abort) {
			t.Fatalf("Import() error = %v, want *codec.AbortError", err)
		}
		if len(calls) != 1 || calls[0] != codec.CategoryMacro {
			t.Errorf("decide calls = %v, want one macro call", calls)
		}
		if store.saves != 0 {
			t.Error("aborted import was saved")
		}
	})

	t.Run("request decision overrides", func(t *testing.T) {
		svc, store := newTestService(t, emptySnapshot())
		sum, err := svc.Import(context.Background(), ImportRequest{
			Format: "json",
			Data:   buf.Bytes(),
			Decide: codec.AlwaysIgnoreAll,
		})
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if sum.Macros != 1 {
			t.Errorf("Macros = %d, want 1", sum.Macros)
		}
		if _, ok := store.snap.Macro("Good"); !ok {
			t.Error("stored dictionary missing macro Good")
		}
	})
}

func TestService_ImportSlowDecisionKeepsRun(t *testing.T) {
	doc := document.New("Satellite", "")
	ns := doc.Namespace(document.MacroNamespace)
	ns.AddGeneric(document.RoleMacro, "Bad", document.EncodeRecord("a", "b"))
	ns.AddGeneric(document.RoleMacro, "Good", document.EncodeRecord("1"))
	var buf bytes.Buffer
	if err := jsonFormat(t).Encode(&buf, doc); err != nil {
		t.Fatal(err)
	}

	store := &memStore{snap: emptySnapshot()}
	svc := NewService(store, Options{RunTimeout: 30 * time.Millisecond, MaxConcurrent: 1}, nil)

	sum, err := svc.Import(context.Background(), ImportRequest{
		Format: "json",
		Data:   buf.Bytes(),
		Decide: func(codec.Category, string) codec.Decision {
			time.Sleep(100 * time.Millisecond)
			return codec.IgnoreAll
		},
	})
	if err != nil {
		t.Fatalf("Import() error = %v, want success after a slow decision", err)
	}
	if sum.Macros != 1 || store.saves != 1 {
		t.Errorf("Macros = %d, saves = %d; want 1, 1", sum.Macros, store.saves)
	}
}

// blockingStore waits for the run context on every call.
type blockingStore struct{}

func (blockingStore) Load(ctx context.Context) (*dictionary.Snapshot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStore) Save(ctx context.Context, _ *dictionary.Snapshot) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestService_RunTimeout(t *testing.T) {
	svc := NewService(blockingStore{}, Options{RunTimeout: 20 * time.Millisecond, MaxConcurrent: 1}, nil)

	_, err := svc.Export(context.Background(), ExportRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Export() error = %v, want DeadlineExceeded", err)
	}
	if got := MapError(err).Code; got != "RUN003" {
		t.Errorf("MapError code = %q, want RUN003", got)
	}
}

// =============================================================================
// Limits and listings
// =============================================================================

func TestService_TooManyRuns(t *testing.T) {
	svc, _ := newTestService(t, storetest.Sample(t))
	for svc.Limiter().TryAcquire() {
	}
	defer func() {
		for svc.Limiter().ActiveCount() > 0 {
			svc.Limiter().Release()
		}
	}()

	_, err := svc.Export(context.Background(), ExportRequest{})
	if !errors.Is(err, ErrTooManyRuns) {
		t.Errorf("Export() error = %v, want ErrTooManyRuns", err)
	}
}

func TestService_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	data := exportSample(t)
	svc := NewService(&memStore{snap: emptySnapshot()}, Options{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond, Metrics: m}, nil)
	ctx := context.Background()

	if _, err := svc.Import(ctx, ImportRequest{Data: data}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	res, err := svc.Export(ctx, ExportRequest{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("import", "succeeded", "")); got != 1 {
		t.Errorf("succeeded imports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ImportedDefinitions.WithLabelValues("tables")); got != 1 {
		t.Errorf("imported tables = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ExportBytes); got != float64(len(res.Data)) {
		t.Errorf("export bytes = %v, want %d", got, len(res.Data))
	}
	if got := testutil.ToFloat64(m.RunsInFlight); got != 0 {
		t.Errorf("runs in flight = %v, want 0", got)
	}

	svc.Limiter().TryAcquire()
	defer svc.Limiter().Release()
	if _, err := svc.Export(ctx, ExportRequest{}); !errors.Is(err, ErrTooManyRuns) {
		t.Fatalf("Export() error = %v, want ErrTooManyRuns", err)
	}
	if got := testutil.ToFloat64(m.RunsRejected); got != 1 {
		t.Errorf("rejected runs = %v, want 1", got)
	}
}

func TestService_Listings(t *testing.T) {
	svc, _ := newTestService(t, storetest.Sample(t))
	ctx := context.Background()

	tables, err := svc.ListTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0].Name != "Thermo" || tables[0].TypeName != "Structure" || tables[0].Rows != 4 {
		t.Errorf("ListTables() = %+v", tables)
	}

	types, err := svc.ListTableTypes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 {
		t.Fatalf("ListTableTypes() = %+v", types)
	}
	if types[0].Kind != "structure" || len(types[0].Columns) != 3 || len(types[0].Tables) != 1 {
		t.Errorf("ListTableTypes()[0] = %+v", types[0])
	}

	if got := svc.Formats(); len(got) != 3 {
		t.Errorf("Formats() = %v, want three formats", got)
	}
}

func TestService_RecordsClientContext(t *testing.T) {
	svc, _ := newTestService(t, storetest.Sample(t))
	ctx := WithClient(context.Background(), Client{IP: "10.0.0.1", UserAgent: "dictx-test"})

	res, err := svc.Export(ctx, ExportRequest{})
	if err != nil {
		t.Fatal(err)
	}
	rec, _ := svc.History().Get(res.RunID)
	if rec.IPAddress != "10.0.0.1" || rec.UserAgent != "dictx-test" {
		t.Errorf("history record = %+v", rec)
	}
}

func jsonFormat(t *testing.T) wire.Format {
	t.Helper()
	f, err := wire.Lookup("json")
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Codec: config.CodecConfig{
			DefaultFormat:      "yaml",
			SystemFieldKey:     "Subsystem",
			IncludeReservedIDs: true,
			OnError:            "ignore-all",
		},
		Run: config.RunConfig{MaxConcurrent: 3, MaxWaitTime: time.Second, Timeout: time.Minute, HistorySize: 5},
	}

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig() error = %v", err)
	}
	if opts.DefaultFormat != "yaml" || opts.Export.SystemFieldKey != "Subsystem" || !opts.Export.IncludeReservedIDs {
		t.Errorf("options = %+v", opts)
	}
	if opts.MaxConcurrent != 3 || opts.HistorySize != 5 {
		t.Errorf("run options = %+v", opts)
	}
	if got := opts.OnError(codec.CategoryMacro, "bad"); got != codec.IgnoreAll {
		t.Errorf("OnError() = %v, want %v", got, codec.IgnoreAll)
	}

	cfg.Codec.OnError = "retry"
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("OptionsFromConfig() expected error for unknown decision")
	}
}

func TestService_Reset(t *testing.T) {
	svc, store := newTestService(t, storetest.Sample(t))

	id, err := svc.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if got := store.snap.TableNames(); len(got) != 0 {
		t.Errorf("tables after reset = %v, want none", got)
	}
	if got := store.snap.TableTypes(); len(got) != 0 {
		t.Errorf("table types after reset = %d, want 0", len(got))
	}
	if got := store.snap.Project().Name; got != "Satellite" {
		t.Errorf("project = %q, want Satellite", got)
	}

	rec, ok := svc.History().Get(id)
	if !ok {
		t.Fatal("reset run not recorded")
	}
	if rec.Kind != RunReset || rec.Status != RunSucceeded {
		t.Errorf("run = %+v, want succeeded reset", rec)
	}
	if len(rec.Tables) != 1 || rec.Tables[0] != "Thermo" {
		t.Errorf("run tables = %v, want [Thermo]", rec.Tables)
	}
}
