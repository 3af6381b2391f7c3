package codec

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/document"
)

// DefaultSystemName names the system part of a table namespace when the
// table has no system field value.
const DefaultSystemName = "DefaultSystem"

// ExportOptions controls what an export writes.
type ExportOptions struct {
	// SubstituteMacros replaces macro references with their values. When
	// false, references are kept and the referenced macros are exported.
	SubstituteMacros     bool
	IncludeReservedIDs   bool
	IncludeVariablePaths bool

	// SystemFieldKey names the table data field holding the system name.
	SystemFieldKey string

	// Variable path alias formatting.
	VariablePathSeparator string
	TypeNameSeparator     string
	HideDataTypes         bool
}

// Exporter turns tables from a snapshot into a document. An Exporter holds
// no per-run state and may be shared; each Export call works on its own
// collector and document.
type Exporter struct {
	snap   *dictionary.Snapshot
	logger *slog.Logger
}

// NewExporter returns an exporter over snap. A nil logger uses slog.Default.
func NewExporter(snap *dictionary.Snapshot, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{snap: snap, logger: logger}
}

// exportRun is the working state of one Export call.
type exportRun struct {
	snap     *dictionary.Snapshot
	opts     ExportOptions
	logger   *slog.Logger
	refs     *collector
	doc      *document.Document
	warnings []Warning
	aliases  map[string]string
}

// Export builds a document holding the named tables followed by the shared
// definitions they reference.
func (e *Exporter) Export(tableNames []string, opts ExportOptions) (*document.Document, []Warning, error) {
	project := e.snap.Project()
	run := &exportRun{
		snap:    e.snap,
		opts:    opts,
		logger:  e.logger,
		refs:    newCollector(),
		doc:     document.New(project.Name, project.Description),
		aliases: make(map[string]string),
	}
	for _, v := range e.snap.VariablePaths() {
		run.aliases[v.Path] = v.Alias
	}

	for _, name := range tableNames {
		if err := run.exportTable(name); err != nil {
			return nil, nil, err
		}
	}
	run.writeTableTypes()
	run.writePrimitiveTypes()
	run.writeMacros()
	run.writeReservedIDs()
	run.writeVariablePaths()

	e.logger.Info("export complete",
		"tables", len(tableNames),
		"namespaces", len(run.doc.Namespaces),
		"warnings", len(run.warnings),
	)
	return run.doc, run.warnings, nil
}

func (r *exportRun) exportTable(name string) error {
	t, ok := r.snap.Table(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	typ, ok := r.snap.TableType(t.TypeName)
	if !ok {
		return &UnknownTableTypeError{Table: t.Name, TypeName: t.TypeName}
	}
	r.refs.RecordTableType(typ.Name)

	rows := r.loadRows(t)

	system := DefaultSystemName
	if f, ok := t.Field(r.opts.SystemFieldKey); ok && r.opts.SystemFieldKey != "" && f.Value != "" {
		system = f.Value
	}
	ns := r.doc.Namespace(document.TableNamespace(t.Name, system))
	if t.Description != "" {
		ns.Description = t.Description
	}
	ns.AddGeneric(document.RoleTableType, string(document.RoleTableType), typ.Name)
	for _, f := range t.Fields {
		ns.AddGeneric(document.RoleDataField, f.Name, encodeField(f))
	}

	switch typ.Kind() {
	case dictionary.KindStructure:
		r.exportStructure(ns, t.Name, typ, rows)
	case dictionary.KindCommand:
		r.exportCommands(ns, t.Name, typ, rows)
	default:
		for i, row := range rows {
			r.archive(ns, typ, i, row, nil)
		}
	}
	return nil
}

// loadRows copies the table's grid, substituting or recording macros.
func (r *exportRun) loadRows(t dictionary.Table) [][]string {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]string, len(row))
		for j, cell := range row {
			if r.opts.SubstituteMacros {
				out[j] = r.snap.ExpandMacros(cell)
				continue
			}
			for _, m := range dictionary.MacroReferences(cell) {
				r.refs.RecordMacro(m)
			}
			out[j] = cell
		}
		rows[i] = out
	}
	return rows
}

func (r *exportRun) exportStructure(ns *document.Namespace, table string, typ dictionary.TableType, rows [][]string) {
	varCol := typ.ColumnIndex(dictionary.RoleVariable)
	typeCol := typ.ColumnIndex(dictionary.RolePrimOrStruct)
	bitCol := typ.ColumnIndex(dictionary.RoleBitLength)
	descCol := typ.ColumnIndex(dictionary.RoleDescription)
	unitsCol := typ.ColumnIndex(dictionary.RoleUnits)
	enumCols := typ.ColumnIndices(dictionary.RoleEnumeration)

	for i, row := range rows {
		name, bits := document.SplitBitLength(row[varCol])
		if bitCol == -1 {
			bits = 0
		} else if bits == 0 {
			bits, _ = strconv.Atoi(strings.TrimSpace(row[bitCol]))
		}

		p := document.Parameter{Name: name, Type: row[typeCol], BitLength: bits}
		if descCol != -1 {
			p.Description = row[descCol]
		}
		if unitsCol != -1 && row[unitsCol] != "" {
			if u, ok := document.ParseUnit(row[unitsCol]); ok {
				p.Unit = u
			} else {
				r.logger.Warn("unit not in vocabulary, dropped",
					"table", table, "parameter", name, "unit", row[unitsCol])
			}
		}

		if prim, ok := r.snap.PrimitiveType(p.Type); ok {
			r.refs.RecordPrimitiveType(prim.Name())
			for _, c := range enumCols {
				if row[c] != "" {
					r.addEnumeration(ns, table, name, "", prim, row[c])
				}
			}
		}
		ns.AddParameter(p)

		r.archive(ns, typ, i, row, map[int]bool{varCol: true})

		if r.opts.IncludeVariablePaths {
			r.recordVariablePath(table, p.Type, name)
		}
	}
}

func (r *exportRun) exportCommands(ns *document.Namespace, table string, typ dictionary.TableType, rows [][]string) {
	cmdCol := typ.ColumnIndex(dictionary.RoleCommandName)
	descCol := typ.CommandDescriptionIndex()
	groups := typ.ArgumentGroups()

	for i, row := range rows {
		cmd := document.Command{Name: row[cmdCol]}
		represented := map[int]bool{cmdCol: true}
		if descCol != -1 {
			cmd.Description = row[descCol]
			represented[descCol] = true
		}

		for _, g := range groups {
			argName := cell(row, g.Name)
			argType := cell(row, g.DataType)
			if argName == "" || argType == "" {
				continue
			}
			arg := document.Argument{Name: argName, Type: argType}
			represented[g.Name] = true
			represented[g.DataType] = true
			if g.Description != -1 {
				arg.Description = row[g.Description]
				represented[g.Description] = true
			}

			prim, isPrim := r.snap.PrimitiveType(argType)
			if isPrim {
				r.refs.RecordPrimitiveType(prim.Name())
			}
			if enum := cell(row, g.Enumeration); enum != "" && cmd.Name != "" {
				r.addEnumeration(ns, table, argName, cmd.Name, prim, enum)
			}
			cmd.Arguments = append(cmd.Arguments, arg)
		}

		// One command per row keeps archived row numbers aligned on import.
		ns.AddCommand(cmd)
		r.archive(ns, typ, i, row, represented)
	}
}

// archive stores every non-empty cell outside skip as a column entry.
func (r *exportRun) archive(ns *document.Namespace, typ dictionary.TableType, row int, cells []string, skip map[int]bool) {
	for c, value := range cells {
		if value == "" || skip[c] {
			continue
		}
		ns.AddGeneric(document.RoleColumn, document.ColumnID(typ.Columns[c].Name, row), value)
	}
}

func (r *exportRun) addEnumeration(ns *document.Namespace, table, name, owner string, prim dictionary.PrimitiveType, text string) {
	labels, err := document.ParseEnumeration(text)
	if err != nil {
		msg := fmt.Sprintf("enumeration '%s' for '%s' dropped: %v", text, name, err)
		r.warnings = append(r.warnings, Warning{Table: table, Message: msg})
		r.logger.Warn("malformed enumeration dropped", "table", table, "name", name, "error", err)
		return
	}
	ns.AddDataType(document.DataType{
		Name: name,
		Enumerated: &document.Enumerated{
			Owner: owner,
			Encoding: document.IntegerEncoding{
				SizeInBits: prim.SizeInBits(),
				Signed:     prim.Base != dictionary.BaseUnsignedInt,
			},
			Labels: labels,
		},
	})
}

func (r *exportRun) recordVariablePath(table, dataType, variable string) {
	path := table + "," + dataType + "." + variable
	alias, ok := r.aliases[path]
	if !ok {
		alias = r.variableAlias(table, dataType, variable)
	}
	r.refs.RecordVariablePath(dictionary.VariablePath{Path: path, Alias: alias})
}

func (r *exportRun) variableAlias(table, dataType, variable string) string {
	sep := r.opts.VariablePathSeparator
	if sep == "" {
		sep = "_"
	}
	if r.opts.HideDataTypes || dataType == "" {
		return table + sep + variable
	}
	typeSep := r.opts.TypeNameSeparator
	if typeSep == "" {
		typeSep = "_"
	}
	return table + sep + dataType + typeSep + variable
}

// =============================================================================
// Shared definition namespaces
// =============================================================================

func (r *exportRun) writeTableTypes() {
	names := r.refs.TableTypes()
	if len(names) == 0 {
		return
	}
	ns := r.doc.Namespace(document.TableTypeNamespace)
	ns.Description = "Table type definitions"

	var types []dictionary.TableType
	for _, name := range names {
		if t, ok := r.snap.TableType(name); ok {
			types = append(types, t)
			ns.AddGeneric(document.RoleTableType, t.Name, encodeTableType(t))
		}
	}
	for _, t := range types {
		for _, f := range t.Fields {
			ns.AddGeneric(document.RoleDataField, fieldKeyPrefix+t.Name, encodeField(f))
		}
	}
}

func (r *exportRun) writePrimitiveTypes() {
	names := r.refs.PrimitiveTypes()
	if len(names) == 0 {
		return
	}
	ns := r.doc.Namespace(document.DataTypeNamespace)
	ns.Description = "Data type definitions"
	for _, name := range names {
		p, ok := r.snap.PrimitiveType(name)
		if !ok {
			continue
		}
		ns.AddDataType(primitiveDeclaration(p))
		ns.AddGeneric(document.RoleDataType, p.UserName, encodePrimitive(p))
	}
}

func (r *exportRun) writeMacros() {
	if r.opts.SubstituteMacros {
		return
	}
	// Macro values may reference further macros; those are exported too.
	var found []dictionary.Macro
	for i := 0; i < len(r.refs.macros.order); i++ {
		m, ok := r.snap.Macro(r.refs.macros.order[i])
		if !ok {
			continue
		}
		found = append(found, m)
		for _, nested := range dictionary.MacroReferences(m.Value) {
			r.refs.RecordMacro(nested)
		}
	}
	if len(found) == 0 {
		return
	}
	ns := r.doc.Namespace(document.MacroNamespace)
	ns.Description = "Macro definitions"
	for _, m := range found {
		ns.AddGeneric(document.RoleMacro, m.Name, document.EncodeRecord(m.Value))
	}
}

func (r *exportRun) writeReservedIDs() {
	ids := r.snap.ReservedIDs()
	if !r.opts.IncludeReservedIDs || len(ids) == 0 {
		return
	}
	ns := r.doc.Namespace(document.ReservedIDNamespace)
	ns.Description = "Reserved message ID definitions"
	for _, id := range ids {
		ns.AddGeneric(document.RoleReservedMsgID, id.ID, document.EncodeRecord(id.Description))
	}
}

func (r *exportRun) writeVariablePaths() {
	paths := r.refs.VariablePaths()
	if !r.opts.IncludeVariablePaths || len(paths) == 0 {
		return
	}
	ns := r.doc.Namespace(document.VariablePathNamespace)
	ns.Description = "Variable paths"
	for _, v := range paths {
		ns.AddGeneric(document.RoleVariablePath, v.Path, document.EncodeRecord(v.Alias))
	}
}

// cell returns row[i], or "" for an unused column index.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
