package document

import (
	"errors"
	"reflect"
	"testing"
)

func TestDocument_NamespaceReuse(t *testing.T) {
	doc := New("Satellite", "")
	first := doc.Namespace("Table: A")
	first.Description = "kept"
	again := doc.Namespace("Table: A")

	if first != again {
		t.Error("Namespace should return the existing namespace for a repeated name")
	}
	if len(doc.Namespaces) != 1 {
		t.Errorf("len(Namespaces) = %d, want 1", len(doc.Namespaces))
	}
	if doc.Lookup("Table: B") != nil {
		t.Error("Lookup of a missing namespace should return nil")
	}
}

func TestDocument_Normalize(t *testing.T) {
	doc := New("Satellite", "")
	a := &Namespace{Name: "Table: A"}
	a.AddCommand(Command{Name: "Go"})
	b := &Namespace{Name: "Table: B"}
	again := &Namespace{Name: "Table: A", Description: "late"}
	again.AddCommand(Command{Name: "Stop"})
	again.AddParameter(Parameter{Name: "temp"})
	doc.Namespaces = []*Namespace{a, b, again}

	if err := doc.Normalize(); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(doc.Namespaces) != 2 || doc.Namespaces[0] != a || doc.Namespaces[1] != b {
		t.Fatalf("Namespaces = %v, want A then B", doc.Namespaces)
	}
	if got := len(a.Commands.Commands); got != 2 || a.Commands.Commands[1].Name != "Stop" {
		t.Errorf("commands = %v, want Go then Stop", a.Commands.Commands)
	}
	if a.Parameters == nil || len(a.Parameters.Parameters) != 1 {
		t.Errorf("parameters = %v, want temp", a.Parameters)
	}
	if a.Description != "late" {
		t.Errorf("Description = %q, want the first non-empty one", a.Description)
	}
}

func TestDocument_NormalizeErrors(t *testing.T) {
	tests := []struct {
		name       string
		namespaces []*Namespace
	}{
		{"nil namespace", []*Namespace{nil}},
		{"unnamed namespace", []*Namespace{{Description: "x"}}},
		{"unnamed data type", []*Namespace{{Name: "n", DataTypes: []DataType{{Integer: &IntegerEncoding{SizeInBits: 8}}}}}},
		{"no encoding", []*Namespace{{Name: "n", DataTypes: []DataType{{Name: "t"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Name: "x", Namespaces: tt.namespaces}
			if err := doc.Normalize(); err == nil {
				t.Error("Normalize() error = nil, want error")
			}
		})
	}
	if (&Document{Namespaces: []*Namespace{nil}}).Lookup("x") != nil {
		t.Error("Lookup should skip nil namespaces")
	}
}

func TestNamespace_Generic(t *testing.T) {
	ns := &Namespace{Name: "x"}
	ns.AddGeneric(RoleColumn, "a", "1")
	ns.AddGeneric(RoleDataField, "f", "2")
	ns.AddGeneric(RoleColumn, "b", "3")

	if len(ns.Generic) != 2 {
		t.Fatalf("len(Generic) = %d, want 2", len(ns.Generic))
	}
	got := ns.Entries(RoleColumn)
	want := []GenericEntry{{Key: "a", Value: "1"}, {Key: "b", Value: "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Entries(Column) = %v, want %v", got, want)
	}
}

func TestDataType_Kind(t *testing.T) {
	tests := []struct {
		name string
		dt   DataType
		want DataKind
	}{
		{"integer", DataType{Name: "i", Integer: &IntegerEncoding{SizeInBits: 8}}, KindInteger},
		{"float", DataType{Name: "f", Float: &FloatEncoding{SizeInBits: 32}}, KindFloat},
		{"string", DataType{Name: "s", String: &StringEncoding{SizeInBits: 8}}, KindString},
		{"enumerated", DataType{Name: "e", Enumerated: &Enumerated{}}, KindEnumerated},
		{"none", DataType{Name: "x"}, KindInvalid},
		{"two", DataType{Name: "x", Integer: &IntegerEncoding{}, Float: &FloatEncoding{}}, KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dt.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
			if err := tt.dt.Validate(); (err != nil) != (tt.want == KindInvalid) {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

// =============================================================================
// Grammars
// =============================================================================

func TestRecord(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
	}{
		{"simple", []string{"uint8", "unsigned char", "1", "unsigned integer"}},
		{"embedded comma", []string{"name", "a, b", ""}},
		{"embedded quote", []string{`say "hi"`, "x"}},
		{"single", []string{"only"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRecord(EncodeRecord(tt.fields...))
			if err != nil {
				t.Fatalf("DecodeRecord error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.fields) {
				t.Errorf("DecodeRecord(EncodeRecord(%q)) = %q", tt.fields, got)
			}
		})
	}
}

func TestDecodeRecord_Unquoted(t *testing.T) {
	got, err := DecodeRecord(`a, "b,c",d`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b,c" || got[2] != "d" {
		t.Errorf("DecodeRecord = %q", got)
	}

	if got, err := DecodeRecord("  "); err != nil || got != nil {
		t.Errorf("DecodeRecord(blank) = %q, %v, want nil, nil", got, err)
	}
	if _, err := DecodeRecord("a\nb"); !errors.Is(err, ErrGrammar) {
		t.Errorf("DecodeRecord(two lines) error = %v, want ErrGrammar", err)
	}
}

func TestColumnID(t *testing.T) {
	id := ColumnID("Units", 3)
	if id != "Units : Row: 3" {
		t.Errorf("ColumnID = %q", id)
	}

	col, row, err := ParseColumnID(id)
	if err != nil || col != "Units" || row != 3 {
		t.Errorf("ParseColumnID(%q) = %q, %d, %v", id, col, row, err)
	}

	for _, bad := range []string{"Units", "Units : Row: x", " : Row: 1", "Units : Row: -2"} {
		if _, _, err := ParseColumnID(bad); !errors.Is(err, ErrGrammar) {
			t.Errorf("ParseColumnID(%q) error = %v, want ErrGrammar", bad, err)
		}
	}
}

func TestTableNamespace(t *testing.T) {
	if got := TableNamespace("Thermo", "DefaultSystem"); got != "Table: Thermo : DefaultSystem" {
		t.Errorf("TableNamespace = %q", got)
	}
	if got := TableNamespace("Thermo", ""); got != "Table: Thermo" {
		t.Errorf("TableNamespace(no system) = %q", got)
	}

	tests := []struct {
		in         string
		wantTable  string
		wantSystem string
		wantOK     bool
	}{
		{"Table: Thermo : DefaultSystem", "Thermo", "DefaultSystem", true},
		{"Table:Thermo", "Thermo", "", true},
		{"Table: Thermo :", "Thermo", "", true},
		{"Table type", "", "", false},
		{"Macro: x", "", "", false},
		{"Table: a : b : c", "", "", false},
		{"Table: ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			table, system, ok := ParseTableNamespace(tt.in)
			if table != tt.wantTable || system != tt.wantSystem || ok != tt.wantOK {
				t.Errorf("ParseTableNamespace(%q) = %q, %q, %v, want %q, %q, %v",
					tt.in, table, system, ok, tt.wantTable, tt.wantSystem, tt.wantOK)
			}
		})
	}
}

func TestSplitBitLength(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantBits int
	}{
		{"status:2", "status", 2},
		{"temp", "temp", 0},
		{"odd:x", "odd:x", 0},
		{"zero:0", "zero:0", 0},
	}
	for _, tt := range tests {
		name, bits := SplitBitLength(tt.in)
		if name != tt.wantName || bits != tt.wantBits {
			t.Errorf("SplitBitLength(%q) = %q, %d, want %q, %d", tt.in, name, bits, tt.wantName, tt.wantBits)
		}
	}
}

// =============================================================================
// Enumerations
// =============================================================================

func TestParseEnumeration(t *testing.T) {
	onOff := []EnumLabel{{Value: 0, Label: "OFF"}, {Value: 1, Label: "ON"}}

	tests := []struct {
		name string
		in   string
		want []EnumLabel
	}{
		{"pipe and comma", "0|OFF,1|ON", onOff},
		{"spaced", "0 | OFF, 1 | ON", onOff},
		{"equals and semicolon", "0=OFF;1=ON", onOff},
		{"single pair", "7|ONLY", []EnumLabel{{Value: 7, Label: "ONLY"}}},
		{"negative value", "-1|NEG,0|ZERO", []EnumLabel{{Value: -1, Label: "NEG"}, {Value: 0, Label: "ZERO"}}},
		{"same separator", "0|OFF|1|ON", onOff},
		{"label with comma", "0|off, idle,1|ON", []EnumLabel{{Value: 0, Label: "off, idle"}, {Value: 1, Label: "ON"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEnumeration(tt.in)
			if err != nil {
				t.Fatalf("ParseEnumeration(%q) error: %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseEnumeration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseEnumeration_Malformed(t *testing.T) {
	for _, in := range []string{"", "OFF ON", "x|OFF,1|ON", "12"} {
		if _, err := ParseEnumeration(in); !errors.Is(err, ErrGrammar) {
			t.Errorf("ParseEnumeration(%q) error = %v, want ErrGrammar", in, err)
		}
	}
}

func TestFormatEnumeration(t *testing.T) {
	labels := []EnumLabel{{Value: 0, Label: "SAFE"}, {Value: 1, Label: "RUN"}}
	got := FormatEnumeration(labels)
	if got != "0 | SAFE, 1 | RUN" {
		t.Errorf("FormatEnumeration = %q", got)
	}

	back, err := ParseEnumeration(got)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, labels) {
		t.Errorf("ParseEnumeration(FormatEnumeration) = %v, want %v", back, labels)
	}
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in     string
		want   Unit
		wantOK bool
	}{
		{"V", UnitVolt, true},
		{" degC ", UnitCelsius, true},
		{"m/s", UnitMeterPerSec, true},
		{"furlongs/fortnight", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseUnit(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseUnit(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
