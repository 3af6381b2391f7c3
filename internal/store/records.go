// Package store holds the flat record form shared by the dictionary stores.
// A snapshot is flattened to Records before it is written and rebuilt from
// Records after it is read, so every backend stores the same rows.
package store

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/JonMunkholm/dictx/internal/dictionary"
)

// Schema creates the dictionary tables if they do not exist. The statements
// are portable between PostgreSQL and SQLite.
//
//go:embed schema.sql
var Schema string

// Field owner kinds.
const (
	OwnerTableType = "type"
	OwnerTable     = "table"
)

// Records is a snapshot in storage order.
type Records struct {
	Project        dictionary.Project
	TableTypes     []dictionary.TableType // without Fields
	Fields         []FieldRecord
	PrimitiveTypes []dictionary.PrimitiveType
	Macros         []dictionary.Macro
	ReservedIDs    []dictionary.ReservedID
	VariablePaths  []dictionary.VariablePath
	Tables         []TableRecord
	Cells          []Cell
}

// FieldRecord is a data field and the table or table type it belongs to.
type FieldRecord struct {
	OwnerKind string
	OwnerName string
	Position  int
	Field     dictionary.Field
}

// TableRecord is a table without its grid or fields.
type TableRecord struct {
	Name        string
	TypeName    string
	Description string
	RowCount    int
}

// Cell is one non-empty grid cell.
type Cell struct {
	Table  string
	Row    int
	Column int
	Value  string
}

// Flatten converts a snapshot to records. Empty cells are not stored.
func Flatten(s *dictionary.Snapshot) Records {
	r := Records{
		Project:        s.Project(),
		PrimitiveTypes: s.PrimitiveTypes(),
		Macros:         s.Macros(),
		ReservedIDs:    s.ReservedIDs(),
		VariablePaths:  s.VariablePaths(),
	}
	for _, t := range s.TableTypes() {
		for i, f := range t.Fields {
			r.Fields = append(r.Fields, FieldRecord{OwnerKind: OwnerTableType, OwnerName: t.Name, Position: i, Field: f})
		}
		t.Fields = nil
		r.TableTypes = append(r.TableTypes, t)
	}
	for _, name := range s.TableNames() {
		t, _ := s.Table(name)
		r.Tables = append(r.Tables, TableRecord{
			Name:        t.Name,
			TypeName:    t.TypeName,
			Description: t.Description,
			RowCount:    len(t.Rows),
		})
		for i, f := range t.Fields {
			r.Fields = append(r.Fields, FieldRecord{OwnerKind: OwnerTable, OwnerName: t.Name, Position: i, Field: f})
		}
		for row, cells := range t.Rows {
			for col, v := range cells {
				if v != "" {
					r.Cells = append(r.Cells, Cell{Table: t.Name, Row: row, Column: col, Value: v})
				}
			}
		}
	}
	return r
}

// Snapshot rebuilds a snapshot. Records may arrive in any order within a
// kind except where a position is stored.
func (r Records) Snapshot() (*dictionary.Snapshot, error) {
	typeFields := make(map[string][]FieldRecord)
	tableFields := make(map[string][]FieldRecord)
	for _, f := range r.Fields {
		switch f.OwnerKind {
		case OwnerTableType:
			typeFields[f.OwnerName] = append(typeFields[f.OwnerName], f)
		case OwnerTable:
			tableFields[f.OwnerName] = append(tableFields[f.OwnerName], f)
		default:
			return nil, fmt.Errorf("data field '%s': unknown owner kind %q", f.Field.Name, f.OwnerKind)
		}
	}

	s := dictionary.New(r.Project)
	for _, t := range r.TableTypes {
		t.Fields = orderedFields(typeFields[t.Name])
		if err := s.AddTableType(t); err != nil {
			return nil, err
		}
	}
	for _, p := range r.PrimitiveTypes {
		if err := s.AddPrimitiveType(p); err != nil {
			return nil, err
		}
	}
	for _, m := range r.Macros {
		if err := s.AddMacro(m); err != nil {
			return nil, err
		}
	}
	for _, id := range r.ReservedIDs {
		s.AddReservedID(id)
	}
	for _, v := range r.VariablePaths {
		s.AddVariablePath(v)
	}

	cells := make(map[string][]Cell)
	for _, c := range r.Cells {
		cells[c.Table] = append(cells[c.Table], c)
	}
	for _, tr := range r.Tables {
		typ, ok := s.TableType(tr.TypeName)
		if !ok {
			return nil, fmt.Errorf("table %s: unknown table type %q", tr.Name, tr.TypeName)
		}
		rows := make([][]string, tr.RowCount)
		for i := range rows {
			rows[i] = make([]string, typ.ColumnCount())
		}
		for _, c := range cells[tr.Name] {
			if c.Row < 0 || c.Row >= tr.RowCount || c.Column < 0 || c.Column >= typ.ColumnCount() {
				return nil, fmt.Errorf("table %s: cell (%d, %d) outside the grid", tr.Name, c.Row, c.Column)
			}
			rows[c.Row][c.Column] = c.Value
		}
		err := s.AddTable(dictionary.Table{
			Name:        tr.Name,
			TypeName:    tr.TypeName,
			Description: tr.Description,
			Rows:        rows,
			Fields:      orderedFields(tableFields[tr.Name]),
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func orderedFields(recs []FieldRecord) []dictionary.Field {
	if len(recs) == 0 {
		return nil
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Position < recs[j].Position })
	out := make([]dictionary.Field, len(recs))
	for i, r := range recs {
		out[i] = r.Field
	}
	return out
}
