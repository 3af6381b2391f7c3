package dictionary

import (
	"fmt"
	"strings"
)

// MergeConflictError reports a shared definition that already exists with a
// different definition. Merges that fail this way leave the snapshot unchanged.
type MergeConflictError struct {
	Kind string // "table type", "data type", "macro"
	Name string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("%s '%s' already exists and doesn't match the import definition", e.Kind, e.Name)
}

// MergeTableTypes returns a snapshot that also holds types. A type identical
// to a known one merges silently; a same-named type with a different column
// list is a conflict.
func (s *Snapshot) MergeTableTypes(types []TableType) (*Snapshot, error) {
	out := s.clone()
	for _, t := range types {
		existing, ok := out.tableTypes[t.Name]
		if !ok {
			out.tableTypes[t.Name] = t
			out.tableTypeOrder = append(out.tableTypeOrder, t.Name)
			continue
		}
		if !existing.Equal(t) {
			return nil, &MergeConflictError{Kind: "table type", Name: t.Name}
		}
		if len(existing.Fields) == 0 && len(t.Fields) > 0 {
			existing.Fields = t.Fields
			out.tableTypes[t.Name] = existing
		}
	}
	return out, nil
}

// MergePrimitiveTypes returns a snapshot that also holds types. Same-named
// types must agree on C name, size and base type.
func (s *Snapshot) MergePrimitiveTypes(types []PrimitiveType) (*Snapshot, error) {
	out := s.clone()
	for _, p := range types {
		name := p.Name()
		existing, ok := out.primitives[name]
		if !ok {
			out.primitives[name] = p
			out.primitiveOrder = append(out.primitiveOrder, name)
			continue
		}
		if existing != p {
			return nil, &MergeConflictError{Kind: "data type", Name: name}
		}
	}
	return out, nil
}

// MergeMacros returns a snapshot that also holds macros. Same-named macros
// (ignoring case) must have the same value.
func (s *Snapshot) MergeMacros(macros []Macro) (*Snapshot, error) {
	out := s.clone()
	for _, m := range macros {
		key := strings.ToLower(m.Name)
		existing, ok := out.macros[key]
		if !ok {
			out.macros[key] = m
			out.macroOrder = append(out.macroOrder, key)
			continue
		}
		if existing.Value != m.Value {
			return nil, &MergeConflictError{Kind: "macro", Name: m.Name}
		}
	}
	return out, nil
}

// MergeReservedIDs returns a snapshot holding the union of the reserved IDs.
// Duplicates are dropped without comparing descriptions.
func (s *Snapshot) MergeReservedIDs(ids []ReservedID) *Snapshot {
	out := s.clone()
	seen := make(map[string]bool, len(out.reservedIDs))
	for _, r := range out.reservedIDs {
		seen[r.ID] = true
	}
	for _, r := range ids {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out.reservedIDs = append(out.reservedIDs, r)
	}
	return out
}

// WithTables returns a snapshot in which tables are added, replacing any
// same-named table. Every table's type must be known and its rows must match
// the type's width.
func (s *Snapshot) WithTables(tables []Table) (*Snapshot, error) {
	out := s.clone()
	for _, t := range tables {
		typ, ok := out.tableTypes[t.TypeName]
		if !ok {
			return nil, fmt.Errorf("table %s: unknown table type %q", t.Name, t.TypeName)
		}
		for i, row := range t.Rows {
			if len(row) != typ.ColumnCount() {
				return nil, fmt.Errorf("table %s: row %d has %d columns, expected %d", t.Name, i, len(row), typ.ColumnCount())
			}
		}
		if _, exists := out.tables[t.Name]; !exists {
			out.tableOrder = append(out.tableOrder, t.Name)
		}
		out.tables[t.Name] = t
	}
	return out, nil
}
