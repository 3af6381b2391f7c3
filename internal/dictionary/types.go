// Package dictionary holds the relational side of the data dictionary: table
// types, primitive data types, macros, reserved message IDs, data fields and
// the tables themselves.
//
// Everything here is plain data. A [Snapshot] bundles a consistent set of
// definitions and is treated as read-only by the interchange codec; merges
// always produce a new Snapshot value.
package dictionary

import (
	"fmt"
	"strings"
)

// InputRole describes what a table-type column means. Roles drive every
// structural decision the codec makes; a table's name never does.
type InputRole int

const (
	RoleText InputRole = iota
	RoleVariable
	RolePrimOrStruct
	RoleArraySize
	RoleBitLength
	RoleEnumeration
	RoleDescription
	RoleUnits
	RoleCommandName
	RoleArgName
	RoleArgDataType
	RoleArgEnumeration
	RoleArgUnits
	RoleArgDescription
	RoleArgMinimum
	RoleArgMaximum
	RoleArgOther
)

var roleNames = map[InputRole]string{
	RoleText:           "Text",
	RoleVariable:       "Variable",
	RolePrimOrStruct:   "Primitive & Structure",
	RoleArraySize:      "Array index",
	RoleBitLength:      "Bit length",
	RoleEnumeration:    "Enumeration",
	RoleDescription:    "Description",
	RoleUnits:          "Units",
	RoleCommandName:    "Command name",
	RoleArgName:        "Argument name",
	RoleArgDataType:    "Argument data type",
	RoleArgEnumeration: "Argument enumeration",
	RoleArgUnits:       "Argument units",
	RoleArgDescription: "Argument description",
	RoleArgMinimum:     "Argument minimum",
	RoleArgMaximum:     "Argument maximum",
	RoleArgOther:       "Argument other",
}

// String returns the role's interchange name.
func (r InputRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("InputRole(%d)", int(r))
}

// ParseInputRole resolves an interchange role name, ignoring case.
func ParseInputRole(s string) (InputRole, error) {
	s = strings.TrimSpace(s)
	for role, name := range roleNames {
		if strings.EqualFold(name, s) {
			return role, nil
		}
	}
	return RoleText, fmt.Errorf("unknown input type %q", s)
}

// isArgument reports whether the role belongs to a command argument group.
func (r InputRole) isArgument() bool {
	return r >= RoleArgName && r <= RoleArgOther
}

// Column is one visible column of a table type.
type Column struct {
	Name             string    `yaml:"name" json:"name"`
	Description      string    `yaml:"description,omitempty" json:"description,omitempty"`
	Role             InputRole `yaml:"role" json:"role"`
	Unique           bool      `yaml:"unique,omitempty" json:"unique,omitempty"`
	Required         bool      `yaml:"required,omitempty" json:"required,omitempty"`
	StructureAllowed bool      `yaml:"structureAllowed,omitempty" json:"structureAllowed,omitempty"`
	PointerAllowed   bool      `yaml:"pointerAllowed,omitempty" json:"pointerAllowed,omitempty"`
}

// TableType is the column layout shared by every table of that type.
type TableType struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Columns     []Column `yaml:"columns" json:"columns"`
	Fields      []Field  `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// ColumnCount returns the number of visible columns, which is also the width
// of every row grid of this type.
func (t TableType) ColumnCount() int {
	return len(t.Columns)
}

// ColumnIndex returns the first column with the given role, or -1.
func (t TableType) ColumnIndex(role InputRole) int {
	for i, c := range t.Columns {
		if c.Role == role {
			return i
		}
	}
	return -1
}

// ColumnIndices returns every column with the given role, in order.
func (t TableType) ColumnIndices(role InputRole) []int {
	var out []int
	for i, c := range t.Columns {
		if c.Role == role {
			out = append(out, i)
		}
	}
	return out
}

// ColumnIndexByName returns the column whose name matches (case-insensitive), or -1.
func (t TableType) ColumnIndexByName(name string) int {
	name = strings.TrimSpace(name)
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// IsStructure reports whether the type has both a variable-name and a
// primitive-or-structure column.
func (t TableType) IsStructure() bool {
	return t.ColumnIndex(RoleVariable) != -1 && t.ColumnIndex(RolePrimOrStruct) != -1
}

// IsCommand reports whether the type has a command-name column.
func (t TableType) IsCommand() bool {
	return t.ColumnIndex(RoleCommandName) != -1
}

// Kind classifies the type for export.
func (t TableType) Kind() TableKind {
	switch {
	case t.IsStructure():
		return KindStructure
	case t.IsCommand():
		return KindCommand
	default:
		return KindOpaque
	}
}

// TableKind is the structural classification of a table type.
type TableKind int

const (
	KindOpaque TableKind = iota
	KindStructure
	KindCommand
)

func (k TableKind) String() string {
	switch k {
	case KindStructure:
		return "structure"
	case KindCommand:
		return "command"
	default:
		return "opaque"
	}
}

// ArgumentGroup is the set of columns that together describe one command
// argument. Unused members are -1.
type ArgumentGroup struct {
	Name        int
	DataType    int
	Enumeration int
	Units       int
	Description int
	Minimum     int
	Maximum     int
	Other       []int
}

// Contains reports whether column belongs to the group.
func (g ArgumentGroup) Contains(column int) bool {
	if column < 0 {
		return false
	}
	switch column {
	case g.Name, g.DataType, g.Enumeration, g.Units, g.Description, g.Minimum, g.Maximum:
		return true
	}
	for _, c := range g.Other {
		if c == column {
			return true
		}
	}
	return false
}

// ArgumentGroups returns the type's command argument groups in column order.
// A group starts at each argument-name column and collects the argument
// columns that follow it.
func (t TableType) ArgumentGroups() []ArgumentGroup {
	var groups []ArgumentGroup
	for i, c := range t.Columns {
		if !c.Role.isArgument() {
			continue
		}
		if c.Role == RoleArgName {
			groups = append(groups, ArgumentGroup{
				Name: i, DataType: -1, Enumeration: -1, Units: -1,
				Description: -1, Minimum: -1, Maximum: -1,
			})
			continue
		}
		if len(groups) == 0 {
			continue
		}
		g := &groups[len(groups)-1]
		switch c.Role {
		case RoleArgDataType:
			g.DataType = i
		case RoleArgEnumeration:
			g.Enumeration = i
		case RoleArgUnits:
			g.Units = i
		case RoleArgDescription:
			g.Description = i
		case RoleArgMinimum:
			g.Minimum = i
		case RoleArgMaximum:
			g.Maximum = i
		case RoleArgOther:
			g.Other = append(g.Other, i)
		}
	}
	return groups
}

// CommandDescriptionIndex returns the column holding a command's description,
// or -1. A description column placed after the first argument group is not
// the command's.
func (t TableType) CommandDescriptionIndex() int {
	idx := t.ColumnIndex(RoleDescription)
	if groups := t.ArgumentGroups(); idx != -1 && len(groups) > 0 && idx > groups[0].Name {
		return -1
	}
	return idx
}

// Equal reports whether two table types have the same name and column list.
func (t TableType) Equal(o TableType) bool {
	if t.Name != o.Name || len(t.Columns) != len(o.Columns) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

// BaseType is the closed set of primitive base types.
type BaseType int

const (
	BaseSignedInt BaseType = iota
	BaseUnsignedInt
	BaseFloat
	BaseCharacter
)

var baseTypeNames = [...]string{
	BaseSignedInt:   "signed integer",
	BaseUnsignedInt: "unsigned integer",
	BaseFloat:       "floating point",
	BaseCharacter:   "character",
}

func (b BaseType) String() string {
	if int(b) >= 0 && int(b) < len(baseTypeNames) {
		return baseTypeNames[b]
	}
	return fmt.Sprintf("BaseType(%d)", int(b))
}

// ParseBaseType resolves a base type name, ignoring case.
func ParseBaseType(s string) (BaseType, error) {
	s = strings.TrimSpace(s)
	for i, name := range baseTypeNames {
		if strings.EqualFold(name, s) {
			return BaseType(i), nil
		}
	}
	return BaseSignedInt, fmt.Errorf("unknown base type %q", s)
}

// PrimitiveType is a named primitive data type.
type PrimitiveType struct {
	UserName string   `yaml:"userName" json:"userName"`
	CName    string   `yaml:"cName" json:"cName"`
	Size     int      `yaml:"size" json:"size"`
	Base     BaseType `yaml:"base" json:"base"`
}

// Name returns the user name, falling back to the C name.
func (p PrimitiveType) Name() string {
	if p.UserName != "" {
		return p.UserName
	}
	return p.CName
}

// SizeInBits returns the type's width in bits.
func (p PrimitiveType) SizeInBits() int {
	return p.Size * 8
}

// Macro is a named literal that table cells may reference as ##name##.
type Macro struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// ReservedID is a reserved message ID or ID range.
type ReservedID struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Field is a data field attached to a table or a table type.
type Field struct {
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty"`
	Size          int    `yaml:"size,omitempty" json:"size,omitempty"`
	InputType     string `yaml:"inputType,omitempty" json:"inputType,omitempty"`
	Required      bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Applicability string `yaml:"applicability,omitempty" json:"applicability,omitempty"`
	Value         string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Table is a table instance: a row grid whose width matches its type.
type Table struct {
	Name        string     `yaml:"name" json:"name"`
	TypeName    string     `yaml:"type" json:"type"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Rows        [][]string `yaml:"rows" json:"rows"`
	Fields      []Field    `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Field returns the named field (case-insensitive).
func (t Table) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// VariablePath pairs a variable's application path with its user alias.
type VariablePath struct {
	Path  string `yaml:"path" json:"path"`
	Alias string `yaml:"alias" json:"alias"`
}

// MarshalText implements encoding.TextMarshaler.
func (r InputRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *InputRole) UnmarshalText(b []byte) error {
	role, err := ParseInputRole(string(b))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b BaseType) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BaseType) UnmarshalText(text []byte) error {
	base, err := ParseBaseType(string(text))
	if err != nil {
		return err
	}
	*b = base
	return nil
}
