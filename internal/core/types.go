package core

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/dictx/internal/codec"
	"github.com/JonMunkholm/dictx/internal/dictionary"
)

// ErrIO wraps every failure to load or save the stored dictionary and to
// write an encoded document.
var ErrIO = errors.New("dictionary I/O failed")

// Store holds the relational dictionary. Save replaces the stored dictionary
// atomically: either every definition of snap is written or none is.
type Store interface {
	Load(ctx context.Context) (*dictionary.Snapshot, error)
	Save(ctx context.Context, snap *dictionary.Snapshot) error
}

// RunKind names what a run did.
type RunKind string

const (
	RunExport RunKind = "export"
	RunImport RunKind = "import"
	RunReset  RunKind = "reset"
)

// ExportRequest selects the tables to export and how. Nil option pointers
// fall back to the service defaults.
type ExportRequest struct {
	Tables               []string // empty exports every table
	Format               string   // empty uses the service default
	SubstituteMacros     *bool
	IncludeReservedIDs   *bool
	IncludeVariablePaths *bool
}

// ExportResult is an encoded document.
type ExportResult struct {
	RunID       string          `json:"run_id"`
	Format      string          `json:"format"`
	ContentType string          `json:"content_type"`
	Extension   string          `json:"extension"`
	Data        []byte          `json:"-"`
	Tables      []string        `json:"tables"`
	Warnings    []codec.Warning `json:"warnings,omitempty"`
	Duration    time.Duration   `json:"duration"`
}

// ImportRequest carries an encoded document to merge into the dictionary.
type ImportRequest struct {
	Format string
	Data   []byte
	Scope  codec.Scope

	// Decide answers recoverable errors. Nil uses the service default.
	Decide codec.DecideFunc

	// DryRun runs the whole import but does not save the result.
	DryRun bool
}

// ImportSummary reports what an import read.
type ImportSummary struct {
	RunID         string        `json:"run_id"`
	Scope         string        `json:"scope"`
	Tables        []string      `json:"tables"`
	TableTypes    int           `json:"table_types"`
	DataTypes     int           `json:"data_types"`
	Macros        int           `json:"macros"`
	ReservedIDs   int           `json:"reserved_ids"`
	VariablePaths int           `json:"variable_paths"`
	DryRun        bool          `json:"dry_run"`
	Duration      time.Duration `json:"duration"`
}

// TableSummary describes one stored table.
type TableSummary struct {
	Name        string `json:"name"`
	TypeName    string `json:"type"`
	Description string `json:"description,omitempty"`
	Rows        int    `json:"rows"`
}

// TableTypeSummary describes one stored table type.
type TableTypeSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Kind        string   `json:"kind"`
	Columns     []string `json:"columns"`
	Tables      []string `json:"tables"`
}
