package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/document"
)

// Record layouts for shared definitions stored as generic entries.
const (
	columnRecordWidth = 7 // name, description, input type, unique, required, structure, pointer
	fieldRecordWidth  = 7 // name, description, size, input type, required, applicability, value

	// fieldKeyPrefix keys a table type's data fields in the table type namespace.
	fieldKeyPrefix = "Data field:"
)

func encodeTableType(t dictionary.TableType) string {
	fields := []string{t.Description}
	for _, c := range t.Columns {
		fields = append(fields,
			c.Name,
			c.Description,
			c.Role.String(),
			strconv.FormatBool(c.Unique),
			strconv.FormatBool(c.Required),
			strconv.FormatBool(c.StructureAllowed),
			strconv.FormatBool(c.PointerAllowed),
		)
	}
	return document.EncodeRecord(fields...)
}

func decodeTableType(name, value string) (dictionary.TableType, error) {
	if strings.TrimSpace(name) == "" {
		return dictionary.TableType{}, fmt.Errorf("table type name missing")
	}
	fields, err := document.DecodeRecord(value)
	if err != nil {
		return dictionary.TableType{}, fmt.Errorf("table type '%s': %w", name, err)
	}
	if len(fields) == 0 || (len(fields)-1)%columnRecordWidth != 0 {
		return dictionary.TableType{}, fmt.Errorf("table type '%s' definition has missing or extra inputs", name)
	}

	t := dictionary.TableType{Name: name, Description: fields[0]}
	for i := 1; i < len(fields); i += columnRecordWidth {
		col, err := decodeColumn(fields[i : i+columnRecordWidth])
		if err != nil {
			return dictionary.TableType{}, fmt.Errorf("table type '%s': %w", name, err)
		}
		t.Columns = append(t.Columns, col)
	}
	if len(t.Columns) == 0 {
		return dictionary.TableType{}, fmt.Errorf("table type '%s' has no columns", name)
	}
	return t, nil
}

func decodeColumn(f []string) (dictionary.Column, error) {
	if strings.TrimSpace(f[0]) == "" {
		return dictionary.Column{}, fmt.Errorf("column name missing")
	}
	role, err := dictionary.ParseInputRole(f[2])
	if err != nil {
		return dictionary.Column{}, fmt.Errorf("column '%s': %w", f[0], err)
	}
	flags := make([]bool, 4)
	for i := range flags {
		if flags[i], err = parseFlag(f[3+i]); err != nil {
			return dictionary.Column{}, fmt.Errorf("column '%s': %w", f[0], err)
		}
	}
	return dictionary.Column{
		Name:             f[0],
		Description:      f[1],
		Role:             role,
		Unique:           flags[0],
		Required:         flags[1],
		StructureAllowed: flags[2],
		PointerAllowed:   flags[3],
	}, nil
}

func parseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid flag %q", s)
	}
	return b, nil
}

func encodeField(f dictionary.Field) string {
	return document.EncodeRecord(
		f.Name,
		f.Description,
		strconv.Itoa(f.Size),
		f.InputType,
		strconv.FormatBool(f.Required),
		f.Applicability,
		f.Value,
	)
}

func decodeField(value string) (dictionary.Field, error) {
	f, err := document.DecodeRecord(value)
	if err != nil {
		return dictionary.Field{}, err
	}
	if len(f) != fieldRecordWidth {
		return dictionary.Field{}, fmt.Errorf("data field has missing or extra inputs")
	}
	if strings.TrimSpace(f[0]) == "" {
		return dictionary.Field{}, fmt.Errorf("data field name missing")
	}
	size := 0
	if s := strings.TrimSpace(f[2]); s != "" {
		if size, err = strconv.Atoi(s); err != nil || size < 0 {
			return dictionary.Field{}, fmt.Errorf("data field '%s': invalid size %q", f[0], f[2])
		}
	}
	required, err := parseFlag(f[4])
	if err != nil {
		return dictionary.Field{}, fmt.Errorf("data field '%s': %w", f[0], err)
	}
	return dictionary.Field{
		Name:          f[0],
		Description:   f[1],
		Size:          size,
		InputType:     f[3],
		Required:      required,
		Applicability: f[5],
		Value:         f[6],
	}, nil
}

func encodePrimitive(p dictionary.PrimitiveType) string {
	return document.EncodeRecord(p.CName, strconv.Itoa(p.Size), p.Base.String())
}

// draftPrimitive is a data type assembled from partial descriptions. Empty
// strings are unknown and may be filled from another description. declName
// is the name a typed declaration carries, which may be either the user or
// the C name.
type draftPrimitive struct {
	userName, cName, size, base string
	declName                    string
}

func (d draftPrimitive) name() string {
	switch {
	case d.userName != "":
		return d.userName
	case d.cName != "":
		return d.cName
	default:
		return d.declName
	}
}

// fill copies o's values into d's blank fields. Populated fields win.
func (d *draftPrimitive) fill(o draftPrimitive) {
	if d.userName == "" {
		d.userName = o.userName
	}
	if d.cName == "" {
		d.cName = o.cName
	}
	if d.size == "" {
		d.size = o.size
	}
	if d.base == "" {
		d.base = o.base
	}
	if d.declName == "" {
		d.declName = o.declName
	}
}

func (d draftPrimitive) build() (dictionary.PrimitiveType, error) {
	if d.name() == "" {
		return dictionary.PrimitiveType{}, fmt.Errorf("data type name missing")
	}
	size, err := strconv.Atoi(strings.TrimSpace(d.size))
	if err != nil || size <= 0 {
		return dictionary.PrimitiveType{}, fmt.Errorf("data type '%s': invalid size %q", d.name(), d.size)
	}
	base, err := dictionary.ParseBaseType(d.base)
	if err != nil {
		return dictionary.PrimitiveType{}, fmt.Errorf("data type '%s': %w", d.name(), err)
	}
	p := dictionary.PrimitiveType{UserName: d.userName, CName: d.cName, Size: size, Base: base}
	if p.UserName == "" && p.CName == "" {
		p.UserName = d.declName
	}
	return p, nil
}

func decodePrimitiveEntry(e document.GenericEntry) (draftPrimitive, error) {
	f, err := document.DecodeRecord(e.Value)
	if err != nil {
		return draftPrimitive{}, err
	}
	if len(f) != 3 {
		return draftPrimitive{}, fmt.Errorf("data type '%s' has missing or extra inputs", e.Key)
	}
	d := draftPrimitive{userName: strings.TrimSpace(e.Key), cName: f[0], size: f[1], base: f[2]}
	if d.name() == "" {
		return draftPrimitive{}, fmt.Errorf("data type name missing")
	}
	return d, nil
}

// primitiveDeclaration renders p as a typed declaration.
func primitiveDeclaration(p dictionary.PrimitiveType) document.DataType {
	dt := document.DataType{Name: p.Name()}
	switch p.Base {
	case dictionary.BaseSignedInt:
		dt.Integer = &document.IntegerEncoding{SizeInBits: p.SizeInBits(), Signed: true}
	case dictionary.BaseUnsignedInt:
		dt.Integer = &document.IntegerEncoding{SizeInBits: p.SizeInBits()}
	case dictionary.BaseFloat:
		dt.Float = &document.FloatEncoding{SizeInBits: p.SizeInBits()}
	case dictionary.BaseCharacter:
		dt.String = &document.StringEncoding{SizeInBits: p.SizeInBits()}
	}
	return dt
}

// draftFromDeclaration reads a typed declaration. The C name is unknown.
func draftFromDeclaration(dt document.DataType) (draftPrimitive, bool) {
	d := draftPrimitive{declName: dt.Name}
	switch dt.Kind() {
	case document.KindInteger:
		d.base = dictionary.BaseUnsignedInt.String()
		if dt.Integer.Signed {
			d.base = dictionary.BaseSignedInt.String()
		}
	case document.KindFloat:
		d.base = dictionary.BaseFloat.String()
	case document.KindString:
		d.base = dictionary.BaseCharacter.String()
	default:
		return draftPrimitive{}, false
	}
	if bits := dt.SizeInBits(); bits > 0 && bits%8 == 0 {
		d.size = strconv.Itoa(bits / 8)
	}
	return d, true
}

func decodeSingle(what string, e document.GenericEntry) (string, error) {
	if strings.TrimSpace(e.Key) == "" {
		return "", fmt.Errorf("%s name missing", what)
	}
	f, err := document.DecodeRecord(e.Value)
	if err != nil {
		return "", fmt.Errorf("%s '%s': %w", what, e.Key, err)
	}
	switch len(f) {
	case 0:
		return "", nil
	case 1:
		return f[0], nil
	default:
		return "", fmt.Errorf("%s '%s' has missing or extra inputs", what, e.Key)
	}
}
