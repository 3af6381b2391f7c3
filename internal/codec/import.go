package codec

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/document"
)

// Scope selects how much of a document an import reads.
type Scope int

const (
	// ScopeAllDefinitions imports every table and all shared definitions.
	ScopeAllDefinitions Scope = iota
	// ScopeFirstTableOnly imports table types and the first table only.
	ScopeFirstTableOnly
)

func (s Scope) String() string {
	if s == ScopeFirstTableOnly {
		return "first-table"
	}
	return "all"
}

// ParseScope maps a configured name to a Scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ScopeAllDefinitions, nil
	case "first", "first-table", "first_table":
		return ScopeFirstTableOnly, nil
	}
	return ScopeAllDefinitions, fmt.Errorf("unknown import scope %q", s)
}

// maxArchivedRow bounds the row number a column entry may address.
const maxArchivedRow = 1 << 20

// Result holds the definitions rebuilt from a document. Snapshot is the
// input snapshot with those definitions merged in; the input is unchanged.
type Result struct {
	TableTypes     []dictionary.TableType
	Tables         []dictionary.Table
	PrimitiveTypes []dictionary.PrimitiveType
	Macros         []dictionary.Macro
	ReservedIDs    []dictionary.ReservedID
	VariablePaths  []dictionary.VariablePath
	Snapshot       *dictionary.Snapshot
}

// Importer rebuilds relational definitions from a document.
type Importer struct {
	snap   *dictionary.Snapshot
	decide DecideFunc
	logger *slog.Logger
}

// NewImporter returns an importer that merges into snap. decide answers
// recoverable errors; nil aborts on the first one.
func NewImporter(snap *dictionary.Snapshot, decide DecideFunc, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{snap: snap, decide: decide, logger: logger}
}

// importRun is the working state of one Import call.
type importRun struct {
	working *dictionary.Snapshot
	policy  *Continuation
	logger  *slog.Logger
	result  *Result
}

// Import reads doc in a fixed order: shared definitions, then each table
// namespace in three sub-passes, then the merge of data types, macros and
// reserved IDs. Any error leaves the importer's snapshot untouched.
func (im *Importer) Import(doc *document.Document, scope Scope) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrMalformedDocument)
	}
	for i, ns := range doc.Namespaces {
		if ns == nil {
			return nil, fmt.Errorf("%w: namespace %d is empty", ErrMalformedDocument, i+1)
		}
	}
	run := &importRun{
		working: im.snap,
		policy:  NewContinuation(im.decide, im.logger),
		logger:  im.logger,
		result:  &Result{},
	}

	// Pass 1: shared definitions. Table types always, the rest only for a
	// full import.
	if err := run.readTableTypes(doc); err != nil {
		return nil, err
	}
	if scope == ScopeAllDefinitions {
		if err := run.readPrimitiveTypes(doc); err != nil {
			return nil, err
		}
		if err := run.readMacros(doc); err != nil {
			return nil, err
		}
		if err := run.readReservedIDs(doc); err != nil {
			return nil, err
		}
		run.readVariablePaths(doc)
	}

	// Pass 2: tables.
	for _, ns := range doc.Namespaces {
		name, _, ok := document.ParseTableNamespace(ns.Name)
		if !ok {
			continue
		}
		if scope == ScopeFirstTableOnly && len(run.result.Tables) > 0 {
			break
		}
		table, err := run.readTable(ns, name)
		if err != nil {
			return nil, err
		}
		run.result.Tables = append(run.result.Tables, table)
	}

	// Post-pass: merge.
	var err error
	if scope == ScopeAllDefinitions {
		if run.working, err = run.working.MergePrimitiveTypes(run.result.PrimitiveTypes); err != nil {
			return nil, err
		}
		if run.working, err = run.working.MergeMacros(run.result.Macros); err != nil {
			return nil, err
		}
		run.working = run.working.MergeReservedIDs(run.result.ReservedIDs)
	}
	if run.working, err = run.working.WithTables(run.result.Tables); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	run.result.Snapshot = run.working

	im.logger.Info("import complete",
		"scope", scope.String(),
		"tables", len(run.result.Tables),
		"table_types", len(run.result.TableTypes),
		"data_types", len(run.result.PrimitiveTypes),
		"macros", len(run.result.Macros),
	)
	return run.result, nil
}

// =============================================================================
// Pass 1: shared definitions
// =============================================================================

func (r *importRun) readTableTypes(doc *document.Document) error {
	ns := doc.Lookup(document.TableTypeNamespace)
	if ns == nil {
		return nil
	}

	var types []dictionary.TableType
	for _, e := range ns.Entries(document.RoleTableType) {
		t, err := decodeTableType(strings.TrimSpace(e.Key), e.Value)
		if err != nil {
			if err := r.policy.Recover(CategoryTableType, err.Error()); err != nil {
				return err
			}
			continue
		}
		types = append(types, t)
	}

	for _, e := range ns.Entries(document.RoleDataField) {
		typeName, ok := strings.CutPrefix(e.Key, fieldKeyPrefix)
		if !ok {
			msg := fmt.Sprintf("table type data field key '%s' names no table type", e.Key)
			if err := r.policy.Recover(CategoryTableTypeField, msg); err != nil {
				return err
			}
			continue
		}
		idx := -1
		for i := range types {
			if types[i].Name == strings.TrimSpace(typeName) {
				idx = i
				break
			}
		}
		if idx == -1 {
			r.logger.Debug("data field for table type not in document", "type", typeName)
			continue
		}
		f, err := decodeField(e.Value)
		if err != nil {
			msg := fmt.Sprintf("table type '%s': %v", typeName, err)
			if err := r.policy.Recover(CategoryTableTypeField, msg); err != nil {
				return err
			}
			continue
		}
		types[idx].Fields = append(types[idx].Fields, f)
	}

	merged, err := r.working.MergeTableTypes(types)
	if err != nil {
		return err
	}
	r.working = merged
	r.result.TableTypes = types
	return nil
}

func (r *importRun) readPrimitiveTypes(doc *document.Document) error {
	ns := doc.Lookup(document.DataTypeNamespace)
	if ns == nil {
		return nil
	}

	var drafts []draftPrimitive
	for _, dt := range ns.DataTypes {
		d, ok := draftFromDeclaration(dt)
		if !ok {
			msg := fmt.Sprintf("data type '%s' declaration is not a primitive type", dt.Name)
			if err := r.policy.Recover(CategoryDataType, msg); err != nil {
				return err
			}
			continue
		}
		drafts = append(drafts, d)
	}

	for _, e := range ns.Entries(document.RoleDataType) {
		d, err := decodePrimitiveEntry(e)
		if err != nil {
			if err := r.policy.Recover(CategoryDataType, err.Error()); err != nil {
				return err
			}
			continue
		}
		found := false
		for i := range drafts {
			if drafts[i].name() == d.name() {
				drafts[i].fill(d)
				found = true
				break
			}
		}
		if !found {
			drafts = append(drafts, d)
		}
	}

	for _, d := range drafts {
		p, err := d.build()
		if err != nil {
			if err := r.policy.Recover(CategoryDataType, err.Error()); err != nil {
				return err
			}
			continue
		}
		r.result.PrimitiveTypes = append(r.result.PrimitiveTypes, p)
	}
	return nil
}

func (r *importRun) readMacros(doc *document.Document) error {
	ns := doc.Lookup(document.MacroNamespace)
	if ns == nil {
		return nil
	}
	for _, e := range ns.Entries(document.RoleMacro) {
		value, err := decodeSingle("macro", e)
		if err != nil {
			if err := r.policy.Recover(CategoryMacro, err.Error()); err != nil {
				return err
			}
			continue
		}
		r.result.Macros = append(r.result.Macros, dictionary.Macro{Name: strings.TrimSpace(e.Key), Value: value})
	}
	return nil
}

func (r *importRun) readReservedIDs(doc *document.Document) error {
	ns := doc.Lookup(document.ReservedIDNamespace)
	if ns == nil {
		return nil
	}
	for _, e := range ns.Entries(document.RoleReservedMsgID) {
		desc, err := decodeSingle("reserved message ID", e)
		if err != nil {
			if err := r.policy.Recover(CategoryReservedID, err.Error()); err != nil {
				return err
			}
			continue
		}
		r.result.ReservedIDs = append(r.result.ReservedIDs, dictionary.ReservedID{ID: strings.TrimSpace(e.Key), Description: desc})
	}
	return nil
}

// readVariablePaths is informational; bad entries are logged and skipped.
func (r *importRun) readVariablePaths(doc *document.Document) {
	ns := doc.Lookup(document.VariablePathNamespace)
	if ns == nil {
		return
	}
	for _, e := range ns.Entries(document.RoleVariablePath) {
		alias, err := decodeSingle("variable path", e)
		if err != nil {
			r.logger.Warn("variable path skipped", "path", e.Key, "error", err)
			continue
		}
		r.result.VariablePaths = append(r.result.VariablePaths, dictionary.VariablePath{Path: e.Key, Alias: alias})
	}
}

// =============================================================================
// Pass 2: tables
// =============================================================================

func (r *importRun) readTable(ns *document.Namespace, name string) (dictionary.Table, error) {
	entries := ns.Entries(document.RoleTableType)
	if len(entries) == 0 {
		return dictionary.Table{}, fmt.Errorf("%w: namespace '%s' has no table type", ErrMalformedDocument, ns.Name)
	}
	typeName := strings.TrimSpace(entries[0].Value)
	typ, ok := r.working.TableType(typeName)
	if !ok {
		return dictionary.Table{}, &UnknownTableTypeError{Table: name, TypeName: typeName}
	}

	table := dictionary.Table{Name: name, TypeName: typ.Name, Description: ns.Description}

	grid, fields, err := r.readRows(ns, name, typ, newGridBuilder(typ.ColumnCount()))
	if err != nil {
		return dictionary.Table{}, err
	}
	table.Fields = fields

	if typ.IsCommand() {
		if grid, err = r.readEnumerations(ns, name, typ, grid); err != nil {
			return dictionary.Table{}, err
		}
	}

	if grid, err = r.readColumns(ns, name, typ, grid); err != nil {
		return dictionary.Table{}, err
	}

	table.Rows = grid.rows()
	return table, nil
}

// readRows is sub-pass (a): one row per parameter or command, plus the
// table's data fields.
func (r *importRun) readRows(ns *document.Namespace, table string, typ dictionary.TableType, grid gridBuilder) (gridBuilder, []dictionary.Field, error) {
	switch {
	case typ.IsStructure():
		grid = r.parameterRows(ns, table, typ, grid)
	case typ.IsCommand():
		grid = r.commandRows(ns, table, typ, grid)
	}

	var fields []dictionary.Field
	for _, e := range ns.Entries(document.RoleDataField) {
		f, err := decodeField(e.Value)
		if err != nil {
			msg := fmt.Sprintf("table '%s': %v", table, err)
			if err := r.policy.Recover(CategoryDataField, msg); err != nil {
				return grid, nil, err
			}
			continue
		}
		fields = append(fields, f)
	}
	return grid, fields, nil
}

func (r *importRun) parameterRows(ns *document.Namespace, table string, typ dictionary.TableType, grid gridBuilder) gridBuilder {
	if ns.Parameters == nil {
		return grid
	}
	varCol := typ.ColumnIndex(dictionary.RoleVariable)
	typeCol := typ.ColumnIndex(dictionary.RolePrimOrStruct)
	descCol := typ.ColumnIndex(dictionary.RoleDescription)
	bitCol := typ.ColumnIndex(dictionary.RoleBitLength)

	for _, p := range ns.Parameters.Parameters {
		row := grid.newRow()
		row[varCol] = p.Name
		row[typeCol] = stripNamespace(p.Type)
		if descCol != -1 {
			row[descCol] = p.Description
		}
		if p.BitLength > 0 {
			if bitCol != -1 {
				row[bitCol] = strconv.Itoa(p.BitLength)
			} else {
				r.logger.Warn("bit length dropped, table type has no bit length column",
					"table", table, "parameter", p.Name)
			}
		}
		grid = grid.withRow(row)
	}
	return grid
}

func (r *importRun) commandRows(ns *document.Namespace, table string, typ dictionary.TableType, grid gridBuilder) gridBuilder {
	if ns.Commands == nil {
		return grid
	}
	cmdCol := typ.ColumnIndex(dictionary.RoleCommandName)
	descCol := typ.CommandDescriptionIndex()
	groups := typ.ArgumentGroups()

	for _, c := range ns.Commands.Commands {
		row := grid.newRow()
		row[cmdCol] = c.Name
		if descCol != -1 {
			row[descCol] = c.Description
		}
		for i, arg := range c.Arguments {
			if i >= len(groups) {
				r.logger.Warn("command argument dropped, table type has too few argument columns",
					"table", table, "command", c.Name, "argument", arg.Name)
				break
			}
			g := groups[i]
			row[g.Name] = arg.Name
			if g.DataType != -1 {
				row[g.DataType] = stripNamespace(arg.Type)
			}
			if g.Description != -1 {
				row[g.Description] = arg.Description
			}
		}
		grid = grid.withRow(row)
	}
	return grid
}

// readEnumerations is sub-pass (b). Enumerations are matched to commands by
// owner. Consecutive declarations with the same owner belong to one command
// row; the n-th such run fills the n-th command of that name. Within a run
// the argument index advances by one per declaration unless the command
// lists an argument with the enumeration's name. A declaration that lands on
// or before the previous argument starts the next command of that name.
func (r *importRun) readEnumerations(ns *document.Namespace, table string, typ dictionary.TableType, grid gridBuilder) (gridBuilder, error) {
	groups := typ.ArgumentGroups()
	var commands []document.Command
	if ns.Commands != nil {
		commands = ns.Commands.Commands
	}

	type claim struct {
		command  string
		row      int
		argument int
	}
	claimed := make(map[claim]bool)
	runs := make(map[string]int)
	lastRow := make(map[string]int)

	// next moves owner on to its following command row. When there is none
	// the previous row is kept, so a repeated argument is reported.
	next := func(owner string) int {
		row := commandRow(commands, owner, runs[owner])
		if row == -1 {
			if prev, ok := lastRow[owner]; ok {
				return prev
			}
			return -1
		}
		runs[owner]++
		lastRow[owner] = row
		return row
	}

	owner, row, last := "", -1, -1
	for _, dt := range ns.DataTypes {
		if dt.Kind() != document.KindEnumerated || dt.Enumerated.Owner == "" {
			continue
		}
		if dt.Enumerated.Owner != owner {
			owner = dt.Enumerated.Owner
			row, last = next(owner), -1
		}

		pos := argumentPosition(commands, row, dt.Name, last+1)
		if pos <= last && commandRow(commands, owner, runs[owner]) != -1 {
			row, last = next(owner), -1
			pos = argumentPosition(commands, row, dt.Name, 0)
		}
		last = pos

		key := claim{command: owner, row: row, argument: pos}
		if claimed[key] {
			return grid, &AmbiguityError{Table: table, Command: owner, Argument: pos}
		}
		claimed[key] = true

		if pos >= len(groups) || groups[pos].Enumeration == -1 {
			r.logger.Warn("enumeration has no matching argument column",
				"table", table, "command", owner, "argument", pos+1)
			continue
		}
		if row == -1 {
			r.logger.Warn("enumeration owner is not a command in the table",
				"table", table, "command", owner)
			continue
		}
		grid = grid.set(row, groups[pos].Enumeration, document.FormatEnumeration(dt.Enumerated.Labels))
	}
	return grid, nil
}

// commandRow returns the row of the n-th command (zero based) named name, or
// -1. Commands occupy one row each, in document order.
func commandRow(commands []document.Command, name string, n int) int {
	for i, c := range commands {
		if c.Name != name {
			continue
		}
		if n == 0 {
			return i
		}
		n--
	}
	return -1
}

// argumentPosition finds the argument named arg in the command at row,
// searching from index from and then from the start. It returns from when
// the command has no such argument.
func argumentPosition(commands []document.Command, row int, arg string, from int) int {
	if row < 0 || row >= len(commands) {
		return from
	}
	args := commands[row].Arguments
	for i := from; i < len(args); i++ {
		if args[i].Name == arg {
			return i
		}
	}
	for i := 0; i < from && i < len(args); i++ {
		if args[i].Name == arg {
			return i
		}
	}
	return from
}

// readColumns is sub-pass (c): archived cells fill only empty cells, growing
// the grid as needed.
func (r *importRun) readColumns(ns *document.Namespace, table string, typ dictionary.TableType, grid gridBuilder) (gridBuilder, error) {
	for _, e := range ns.Entries(document.RoleColumn) {
		name, row, err := document.ParseColumnID(e.Key)
		if err == nil && row >= maxArchivedRow {
			err = fmt.Errorf("row %d out of range", row)
		}
		if err != nil {
			msg := fmt.Sprintf("table '%s': column reference '%s' invalid: %v", table, e.Key, err)
			if err := r.policy.Recover(CategoryColumn, msg); err != nil {
				return grid, err
			}
			continue
		}
		col := typ.ColumnIndexByName(name)
		if col == -1 {
			msg := fmt.Sprintf("table '%s': column name '%s' unrecognized", table, name)
			if err := r.policy.Recover(CategoryColumn, msg); err != nil {
				return grid, err
			}
			continue
		}
		grid = grid.grow(row + 1)
		if grid.get(row, col) == "" {
			grid = grid.set(row, col, e.Value)
		}
	}
	return grid, nil
}

// stripNamespace drops a leading "namespace/" from a type reference.
func stripNamespace(ref string) string {
	if i := strings.Index(ref, "/"); i != -1 {
		return ref[i+1:]
	}
	return ref
}
