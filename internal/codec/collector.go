package codec

import (
	"strings"

	"github.com/JonMunkholm/dictx/internal/dictionary"
)

// collector tracks the shared definitions one export touches so that only
// those are written out.
type collector struct {
	tableTypes    orderedSet
	primitives    orderedSet
	macros        orderedSet // lower-cased keys, names kept as first seen
	variablePaths []dictionary.VariablePath
}

func newCollector() *collector {
	return &collector{
		tableTypes: newOrderedSet(),
		primitives: newOrderedSet(),
		macros:     newOrderedSet(),
	}
}

// RecordTableType notes a table type. Repeats are ignored.
func (c *collector) RecordTableType(name string) {
	c.tableTypes.add(name, name)
}

// RecordPrimitiveType notes a primitive data type. Repeats are ignored.
func (c *collector) RecordPrimitiveType(name string) {
	c.primitives.add(name, name)
}

// RecordMacro notes a macro reference. Names compare case-insensitively.
func (c *collector) RecordMacro(name string) {
	c.macros.add(strings.ToLower(name), name)
}

// RecordVariablePath appends a variable path entry.
func (c *collector) RecordVariablePath(v dictionary.VariablePath) {
	c.variablePaths = append(c.variablePaths, v)
}

func (c *collector) TableTypes() []string     { return c.tableTypes.values() }
func (c *collector) PrimitiveTypes() []string { return c.primitives.values() }
func (c *collector) Macros() []string         { return c.macros.values() }

func (c *collector) VariablePaths() []dictionary.VariablePath {
	return c.variablePaths
}

type orderedSet struct {
	seen  map[string]bool
	order []string
}

func newOrderedSet() orderedSet {
	return orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(key, value string) {
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.order = append(s.order, value)
}

func (s *orderedSet) values() []string {
	return append([]string(nil), s.order...)
}
