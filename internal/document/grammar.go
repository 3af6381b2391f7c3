package document

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrGrammar is wrapped by every parse failure in this file.
var ErrGrammar = errors.New("malformed value")

// EncodeRecord writes fields as one comma-separated line with every field
// double-quoted.
func EncodeRecord(fields ...string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	return b.String()
}

// DecodeRecord splits a comma-separated record. Fields may be quoted; commas
// inside quotes are literal. An empty value decodes to no fields.
func DecodeRecord(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	r := csv.NewReader(bytes.NewReader([]byte(value)))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: record %q: %v", ErrGrammar, value, err)
	}
	// A record never spans lines; anything after the first is malformed.
	if _, err := r.Read(); err == nil {
		return nil, fmt.Errorf("%w: record %q spans more than one line", ErrGrammar, value)
	}
	return fields, nil
}

const columnIDSeparator = " : Row: "

// ColumnID builds the key of an archived cell.
func ColumnID(column string, row int) string {
	return column + columnIDSeparator + strconv.Itoa(row)
}

// ParseColumnID splits an archived cell key into column name and row.
func ParseColumnID(id string) (string, int, error) {
	i := strings.LastIndex(id, columnIDSeparator)
	if i == -1 {
		return "", 0, fmt.Errorf("%w: column identifier %q", ErrGrammar, id)
	}
	row, err := strconv.Atoi(strings.TrimSpace(id[i+len(columnIDSeparator):]))
	if err != nil || row < 0 {
		return "", 0, fmt.Errorf("%w: column identifier %q: bad row", ErrGrammar, id)
	}
	column := strings.TrimSpace(id[:i])
	if column == "" {
		return "", 0, fmt.Errorf("%w: column identifier %q: no column", ErrGrammar, id)
	}
	return column, row, nil
}

// TableTag prefixes every per-table namespace name.
const TableTag = "Table"

// TableNamespace builds the namespace name for a table. The system part is
// omitted when empty.
func TableNamespace(table, system string) string {
	name := TableTag + ": " + table
	if system != "" {
		name += " : " + system
	}
	return name
}

// ParseTableNamespace parses `tag ":" table [":" system]`. It reports false
// for names that are not table namespaces.
func ParseTableNamespace(name string) (table, system string, ok bool) {
	parts := strings.Split(name, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", "", false
	}
	if strings.TrimSpace(parts[0]) != TableTag {
		return "", "", false
	}
	table = strings.TrimSpace(parts[1])
	if table == "" {
		return "", "", false
	}
	if len(parts) == 3 {
		system = strings.TrimSpace(parts[2])
	}
	return table, system, true
}

// SplitBitLength separates a `name:bits` variable cell. bits is 0 when no
// valid suffix is present, in which case name is the whole cell.
func SplitBitLength(cell string) (name string, bits int) {
	i := strings.LastIndex(cell, ":")
	if i == -1 {
		return cell, 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(cell[i+1:]))
	if err != nil || n <= 0 {
		return cell, 0
	}
	return strings.TrimSpace(cell[:i]), n
}
