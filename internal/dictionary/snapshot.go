package dictionary

import (
	"fmt"
	"sort"
	"strings"
)

// Project identifies the dictionary a snapshot was taken from.
type Project struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Snapshot is a read-only view of a dictionary's definitions. Build one with
// New and the Add methods, then hand it to the codec. The Merge methods never
// modify the receiver; they return a new Snapshot.
type Snapshot struct {
	project Project

	tableTypes     map[string]TableType
	tableTypeOrder []string

	primitives     map[string]PrimitiveType
	primitiveOrder []string

	macros     map[string]Macro // keyed by lower-cased name
	macroOrder []string

	reservedIDs   []ReservedID
	variablePaths []VariablePath

	tables     map[string]Table
	tableOrder []string
}

// New returns an empty snapshot for the project.
func New(project Project) *Snapshot {
	return &Snapshot{
		project:    project,
		tableTypes: make(map[string]TableType),
		primitives: make(map[string]PrimitiveType),
		macros:     make(map[string]Macro),
		tables:     make(map[string]Table),
	}
}

// Project returns the project the snapshot describes.
func (s *Snapshot) Project() Project {
	return s.project
}

// AddTableType registers a table type. Returns an error if the name is taken.
func (s *Snapshot) AddTableType(t TableType) error {
	if t.Name == "" {
		return fmt.Errorf("table type name is required")
	}
	if _, exists := s.tableTypes[t.Name]; exists {
		return fmt.Errorf("table type already registered: %s", t.Name)
	}
	s.tableTypes[t.Name] = t
	s.tableTypeOrder = append(s.tableTypeOrder, t.Name)
	return nil
}

// AddPrimitiveType registers a primitive data type.
func (s *Snapshot) AddPrimitiveType(p PrimitiveType) error {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("data type name is required")
	}
	if _, exists := s.primitives[name]; exists {
		return fmt.Errorf("data type already registered: %s", name)
	}
	s.primitives[name] = p
	s.primitiveOrder = append(s.primitiveOrder, name)
	return nil
}

// AddMacro registers a macro. Macro names are case-insensitive.
func (s *Snapshot) AddMacro(m Macro) error {
	if m.Name == "" {
		return fmt.Errorf("macro name is required")
	}
	key := strings.ToLower(m.Name)
	if _, exists := s.macros[key]; exists {
		return fmt.Errorf("macro already registered: %s", m.Name)
	}
	s.macros[key] = m
	s.macroOrder = append(s.macroOrder, key)
	return nil
}

// AddReservedID appends a reserved message ID.
func (s *Snapshot) AddReservedID(r ReservedID) {
	s.reservedIDs = append(s.reservedIDs, r)
}

// AddVariablePath appends a variable path entry.
func (s *Snapshot) AddVariablePath(v VariablePath) {
	s.variablePaths = append(s.variablePaths, v)
}

// AddTable registers a table. Its type must already be registered and every
// row must be exactly as wide as the type.
func (s *Snapshot) AddTable(t Table) error {
	if _, exists := s.tables[t.Name]; exists {
		return fmt.Errorf("table already registered: %s", t.Name)
	}
	typ, ok := s.tableTypes[t.TypeName]
	if !ok {
		return fmt.Errorf("table %s: unknown table type %q", t.Name, t.TypeName)
	}
	for i, row := range t.Rows {
		if len(row) != typ.ColumnCount() {
			return fmt.Errorf("table %s: row %d has %d columns, expected %d", t.Name, i, len(row), typ.ColumnCount())
		}
	}
	s.tables[t.Name] = t
	s.tableOrder = append(s.tableOrder, t.Name)
	return nil
}

// TableType returns a table type by name.
func (s *Snapshot) TableType(name string) (TableType, bool) {
	t, ok := s.tableTypes[name]
	return t, ok
}

// TableTypes returns every table type in registration order.
func (s *Snapshot) TableTypes() []TableType {
	out := make([]TableType, 0, len(s.tableTypeOrder))
	for _, name := range s.tableTypeOrder {
		out = append(out, s.tableTypes[name])
	}
	return out
}

// PrimitiveType returns a primitive type by user or C name.
func (s *Snapshot) PrimitiveType(name string) (PrimitiveType, bool) {
	if p, ok := s.primitives[name]; ok {
		return p, true
	}
	for _, key := range s.primitiveOrder {
		if p := s.primitives[key]; p.CName == name {
			return p, true
		}
	}
	return PrimitiveType{}, false
}

// IsPrimitive reports whether name resolves to a primitive data type.
func (s *Snapshot) IsPrimitive(name string) bool {
	_, ok := s.PrimitiveType(name)
	return ok
}

// PrimitiveTypes returns every primitive type in registration order.
func (s *Snapshot) PrimitiveTypes() []PrimitiveType {
	out := make([]PrimitiveType, 0, len(s.primitiveOrder))
	for _, name := range s.primitiveOrder {
		out = append(out, s.primitives[name])
	}
	return out
}

// Macro returns a macro by name, ignoring case.
func (s *Snapshot) Macro(name string) (Macro, bool) {
	m, ok := s.macros[strings.ToLower(name)]
	return m, ok
}

// Macros returns every macro in registration order.
func (s *Snapshot) Macros() []Macro {
	out := make([]Macro, 0, len(s.macroOrder))
	for _, key := range s.macroOrder {
		out = append(out, s.macros[key])
	}
	return out
}

// ReservedIDs returns the reserved message IDs.
func (s *Snapshot) ReservedIDs() []ReservedID {
	return append([]ReservedID(nil), s.reservedIDs...)
}

// VariablePaths returns the stored variable path entries.
func (s *Snapshot) VariablePaths() []VariablePath {
	return append([]VariablePath(nil), s.variablePaths...)
}

// Table returns a table by name.
func (s *Snapshot) Table(name string) (Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// TableNames returns every table name in registration order.
func (s *Snapshot) TableNames() []string {
	return append([]string(nil), s.tableOrder...)
}

// TablesByType returns table names grouped by type. Names are sorted for
// consistent ordering.
func (s *Snapshot) TablesByType() map[string][]string {
	out := make(map[string][]string)
	for _, name := range s.tableOrder {
		t := s.tables[name]
		out[t.TypeName] = append(out[t.TypeName], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

// clone returns a copy that shares no maps or slices with s. Values held in
// the maps are copied by value; their inner slices are never mutated.
func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		project:        s.project,
		tableTypes:     make(map[string]TableType, len(s.tableTypes)),
		tableTypeOrder: append([]string(nil), s.tableTypeOrder...),
		primitives:     make(map[string]PrimitiveType, len(s.primitives)),
		primitiveOrder: append([]string(nil), s.primitiveOrder...),
		macros:         make(map[string]Macro, len(s.macros)),
		macroOrder:     append([]string(nil), s.macroOrder...),
		reservedIDs:    append([]ReservedID(nil), s.reservedIDs...),
		variablePaths:  append([]VariablePath(nil), s.variablePaths...),
		tables:         make(map[string]Table, len(s.tables)),
		tableOrder:     append([]string(nil), s.tableOrder...),
	}
	for k, v := range s.tableTypes {
		c.tableTypes[k] = v
	}
	for k, v := range s.primitives {
		c.primitives[k] = v
	}
	for k, v := range s.macros {
		c.macros[k] = v
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	return c
}
