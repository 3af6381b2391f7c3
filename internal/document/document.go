// Package document is the in-memory engineering data sheet: an ordered list
// of namespaces holding parameter sets, command sets, generic attribute sets
// and embedded data-type declarations.
//
// The package also owns the small text grammars carried inside a document:
// generic-entry records, column identifiers, table namespace names, bit-length
// suffixes, enumeration strings and the unit vocabulary.
package document

import "fmt"

// GenericRole tags a generic attribute set.
type GenericRole string

const (
	RoleColumn        GenericRole = "Column data"
	RoleDataField     GenericRole = "Data field"
	RoleTableType     GenericRole = "Table type"
	RoleDataType      GenericRole = "Data type"
	RoleMacro         GenericRole = "Macro"
	RoleReservedMsgID GenericRole = "Reserved Message ID"
	RoleVariablePath  GenericRole = "Variable Path"
)

// Registry namespace names. Shared definitions live in these namespaces.
const (
	TableTypeNamespace    = "Table type"
	DataTypeNamespace     = "Data type"
	MacroNamespace        = "Macro"
	ReservedIDNamespace   = "Reserved Message ID"
	VariablePathNamespace = "Variable Path"
)

// Document is the root of a data sheet.
type Document struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Namespaces  []*Namespace `yaml:"namespaces" json:"namespaces"`
}

// New returns an empty document.
func New(name, description string) *Document {
	return &Document{Name: name, Description: description}
}

// Namespace returns the namespace with the given name, creating and
// appending it if it does not exist yet.
func (d *Document) Namespace(name string) *Namespace {
	if ns := d.Lookup(name); ns != nil {
		return ns
	}
	ns := &Namespace{Name: name}
	d.Namespaces = append(d.Namespaces, ns)
	return ns
}

// Lookup returns the named namespace or nil.
func (d *Document) Lookup(name string) *Namespace {
	for _, ns := range d.Namespaces {
		if ns != nil && ns.Name == name {
			return ns
		}
	}
	return nil
}

// Normalize checks a decoded document and folds namespaces that repeat a
// name into the first one with that name, keeping declaration order. Every
// embedded data type must be valid.
func (d *Document) Normalize() error {
	merged := make([]*Namespace, 0, len(d.Namespaces))
	byName := make(map[string]*Namespace, len(d.Namespaces))
	for i, ns := range d.Namespaces {
		if ns == nil {
			return fmt.Errorf("namespace %d is empty", i+1)
		}
		if ns.Name == "" {
			return fmt.Errorf("namespace %d has no name", i+1)
		}
		for _, dt := range ns.DataTypes {
			if err := dt.Validate(); err != nil {
				return fmt.Errorf("namespace '%s': %w", ns.Name, err)
			}
		}

		first, ok := byName[ns.Name]
		if !ok {
			byName[ns.Name] = ns
			merged = append(merged, ns)
			continue
		}
		first.absorb(ns)
	}
	d.Namespaces = merged
	return nil
}

// absorb appends other's declarations to n.
func (n *Namespace) absorb(other *Namespace) {
	if n.Description == "" {
		n.Description = other.Description
	}
	if other.Parameters != nil {
		for _, p := range other.Parameters.Parameters {
			n.AddParameter(p)
		}
	}
	if other.Commands != nil {
		for _, c := range other.Commands.Commands {
			n.AddCommand(c)
		}
	}
	n.Generic = append(n.Generic, other.Generic...)
	n.DataTypes = append(n.DataTypes, other.DataTypes...)
}

// Namespace groups one table's declarations or one registry of shared
// definitions.
type Namespace struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  *ParameterSet `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Commands    *CommandSet   `yaml:"commands,omitempty" json:"commands,omitempty"`
	Generic     []GenericSet  `yaml:"generic,omitempty" json:"generic,omitempty"`
	DataTypes   []DataType    `yaml:"dataTypes,omitempty" json:"dataTypes,omitempty"`
}

// AddParameter appends p to the namespace's parameter set.
func (n *Namespace) AddParameter(p Parameter) {
	if n.Parameters == nil {
		n.Parameters = &ParameterSet{}
	}
	n.Parameters.Parameters = append(n.Parameters.Parameters, p)
}

// AddCommand appends c to the namespace's command set.
func (n *Namespace) AddCommand(c Command) {
	if n.Commands == nil {
		n.Commands = &CommandSet{}
	}
	n.Commands.Commands = append(n.Commands.Commands, c)
}

// AddGeneric appends an entry to the generic set with the given role,
// creating the set on first use.
func (n *Namespace) AddGeneric(role GenericRole, key, value string) {
	for i := range n.Generic {
		if n.Generic[i].Role == role {
			n.Generic[i].Entries = append(n.Generic[i].Entries, GenericEntry{Key: key, Value: value})
			return
		}
	}
	n.Generic = append(n.Generic, GenericSet{Role: role, Entries: []GenericEntry{{Key: key, Value: value}}})
}

// Entries returns every generic entry tagged with role, in order.
func (n *Namespace) Entries(role GenericRole) []GenericEntry {
	var out []GenericEntry
	for _, set := range n.Generic {
		if set.Role == role {
			out = append(out, set.Entries...)
		}
	}
	return out
}

// AddDataType appends an embedded type declaration.
func (n *Namespace) AddDataType(t DataType) {
	n.DataTypes = append(n.DataTypes, t)
}

// ParameterSet holds a namespace's telemetry parameters.
type ParameterSet struct {
	Parameters []Parameter `yaml:"parameters" json:"parameters"`
}

// CommandSet holds a namespace's commands.
type CommandSet struct {
	Commands []Command `yaml:"commands" json:"commands"`
}

// Parameter is one telemetry variable.
type Parameter struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Unit        Unit   `yaml:"unit,omitempty" json:"unit,omitempty"`
	BitLength   int    `yaml:"bitLength,omitempty" json:"bitLength,omitempty"`
}

// Command is one command with its ordered arguments.
type Command struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Arguments   []Argument `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

// Argument is one command argument.
type Argument struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// GenericSet is a tagged list of key/value attributes.
type GenericSet struct {
	Role    GenericRole    `yaml:"role" json:"role"`
	Entries []GenericEntry `yaml:"entries" json:"entries"`
}

// GenericEntry is a single archived attribute. Value is often an encoded
// record (see EncodeRecord).
type GenericEntry struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}
