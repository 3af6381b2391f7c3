package dictionary

import (
	"errors"
	"reflect"
	"testing"
)

func structureType() TableType {
	return TableType{
		Name: "Structure",
		Columns: []Column{
			{Name: "Variable Name", Role: RoleVariable, Required: true},
			{Name: "Data Type", Role: RolePrimOrStruct, Required: true},
			{Name: "Bit Length", Role: RoleBitLength},
			{Name: "Enumeration", Role: RoleEnumeration},
			{Name: "Description", Role: RoleDescription},
			{Name: "Units", Role: RoleUnits},
		},
	}
}

func commandType() TableType {
	return TableType{
		Name: "Command",
		Columns: []Column{
			{Name: "Command Name", Role: RoleCommandName},
			{Name: "Arg 1 Name", Role: RoleArgName},
			{Name: "Arg 1 Type", Role: RoleArgDataType},
			{Name: "Arg 1 Enum", Role: RoleArgEnumeration},
			{Name: "Arg 1 Min", Role: RoleArgMinimum},
			{Name: "Description", Role: RoleDescription},
			{Name: "Arg 2 Name", Role: RoleArgName},
			{Name: "Arg 2 Type", Role: RoleArgDataType},
			{Name: "Arg 2 Extra", Role: RoleArgOther},
		},
	}
}

// =============================================================================
// Table types
// =============================================================================

func TestTableType_Kind(t *testing.T) {
	tests := []struct {
		name string
		typ  TableType
		want TableKind
	}{
		{"structure", structureType(), KindStructure},
		{"command", commandType(), KindCommand},
		{"opaque", TableType{Name: "Notes", Columns: []Column{{Name: "Text", Role: RoleText}}}, KindOpaque},
		{"variable without type is opaque", TableType{Columns: []Column{{Role: RoleVariable}}}, KindOpaque},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableType_ArgumentGroups(t *testing.T) {
	groups := commandType().ArgumentGroups()
	if len(groups) != 2 {
		t.Fatalf("len(ArgumentGroups()) = %d, want 2", len(groups))
	}

	want := []ArgumentGroup{
		{Name: 1, DataType: 2, Enumeration: 3, Units: -1, Description: -1, Minimum: 4, Maximum: -1},
		{Name: 6, DataType: 7, Enumeration: -1, Units: -1, Description: -1, Minimum: -1, Maximum: -1, Other: []int{8}},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("ArgumentGroups() = %+v, want %+v", groups, want)
	}

	if !groups[1].Contains(8) {
		t.Error("group 2 should contain its other column")
	}
	if groups[0].Contains(5) {
		t.Error("group 1 should not contain the description column")
	}
	if groups[0].Contains(-1) {
		t.Error("Contains(-1) should be false")
	}
}

func TestTableType_CommandDescriptionIndex(t *testing.T) {
	if got := commandType().CommandDescriptionIndex(); got != -1 {
		t.Errorf("description after first argument: CommandDescriptionIndex() = %d, want -1", got)
	}

	typ := TableType{Columns: []Column{
		{Name: "Command Name", Role: RoleCommandName},
		{Name: "Description", Role: RoleDescription},
		{Name: "Arg Name", Role: RoleArgName},
	}}
	if got := typ.CommandDescriptionIndex(); got != 1 {
		t.Errorf("CommandDescriptionIndex() = %d, want 1", got)
	}
}

func TestTableType_ColumnIndexByName(t *testing.T) {
	typ := structureType()
	if got := typ.ColumnIndexByName(" bit length "); got != 2 {
		t.Errorf("ColumnIndexByName(bit length) = %d, want 2", got)
	}
	if got := typ.ColumnIndexByName("missing"); got != -1 {
		t.Errorf("ColumnIndexByName(missing) = %d, want -1", got)
	}
}

func TestParseInputRole(t *testing.T) {
	for role, name := range roleNames {
		got, err := ParseInputRole(name)
		if err != nil {
			t.Errorf("ParseInputRole(%q) error: %v", name, err)
			continue
		}
		if got != role {
			t.Errorf("ParseInputRole(%q) = %v, want %v", name, got, role)
		}
	}

	if _, err := ParseInputRole("Bogus"); err == nil {
		t.Error("ParseInputRole(Bogus) should fail")
	}
}

func TestParseBaseType(t *testing.T) {
	got, err := ParseBaseType("Unsigned Integer")
	if err != nil {
		t.Fatalf("ParseBaseType error: %v", err)
	}
	if got != BaseUnsignedInt {
		t.Errorf("ParseBaseType = %v, want %v", got, BaseUnsignedInt)
	}
	if _, err := ParseBaseType("complex"); err == nil {
		t.Error("ParseBaseType(complex) should fail")
	}
}

// =============================================================================
// Snapshot
// =============================================================================

func newTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	s := New(Project{Name: "Satellite"})
	if err := s.AddTableType(structureType()); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPrimitiveType(PrimitiveType{UserName: "uint8", CName: "unsigned char", Size: 1, Base: BaseUnsignedInt}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMacro(Macro{Name: "MaxLen", Value: "16"}); err != nil {
		t.Fatal(err)
	}
	s.AddReservedID(ReservedID{ID: "0x100-0x1FF", Description: "boot"})
	return s
}

func TestSnapshot_AddTable(t *testing.T) {
	s := newTestSnapshot(t)

	if err := s.AddTable(Table{Name: "Thermo", TypeName: "Structure", Rows: [][]string{{"temp", "float", "", "", "", ""}}}); err != nil {
		t.Fatalf("AddTable failed: %v", err)
	}
	if err := s.AddTable(Table{Name: "Bad", TypeName: "Structure", Rows: [][]string{{"temp"}}}); err == nil {
		t.Error("AddTable should reject a row narrower than the type")
	}
	if err := s.AddTable(Table{Name: "Other", TypeName: "Nope"}); err == nil {
		t.Error("AddTable should reject an unknown table type")
	}
	if err := s.AddTable(Table{Name: "Thermo", TypeName: "Structure"}); err == nil {
		t.Error("AddTable should reject a duplicate name")
	}
}

func TestSnapshot_Lookups(t *testing.T) {
	s := newTestSnapshot(t)

	if _, ok := s.PrimitiveType("unsigned char"); !ok {
		t.Error("PrimitiveType should resolve by C name")
	}
	if !s.IsPrimitive("uint8") {
		t.Error("IsPrimitive(uint8) = false, want true")
	}
	if m, ok := s.Macro("MAXLEN"); !ok || m.Value != "16" {
		t.Errorf("Macro(MAXLEN) = %v, %v, want 16, true", m, ok)
	}
}

func TestSnapshot_MergeTableTypes(t *testing.T) {
	s := newTestSnapshot(t)

	t.Run("identical merges silently", func(t *testing.T) {
		merged, err := s.MergeTableTypes([]TableType{structureType()})
		if err != nil {
			t.Fatalf("MergeTableTypes error: %v", err)
		}
		if got := len(merged.TableTypes()); got != 1 {
			t.Errorf("len(TableTypes()) = %d, want 1", got)
		}
	})

	t.Run("different columns conflict", func(t *testing.T) {
		changed := structureType()
		changed.Columns = changed.Columns[:3]

		_, err := s.MergeTableTypes([]TableType{commandType(), changed})
		var conflict *MergeConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("error = %v, want *MergeConflictError", err)
		}
		if conflict.Name != "Structure" {
			t.Errorf("conflict.Name = %q, want Structure", conflict.Name)
		}

		// receiver untouched
		got, _ := s.TableType("Structure")
		if !got.Equal(structureType()) {
			t.Error("existing definition was mutated")
		}
		if _, ok := s.TableType("Command"); ok {
			t.Error("failed merge leaked a new type into the snapshot")
		}
	})

	t.Run("new type is added to the copy only", func(t *testing.T) {
		merged, err := s.MergeTableTypes([]TableType{commandType()})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := merged.TableType("Command"); !ok {
			t.Error("merged snapshot missing Command")
		}
		if _, ok := s.TableType("Command"); ok {
			t.Error("receiver gained Command")
		}
	})
}

func TestSnapshot_MergeMacros(t *testing.T) {
	s := newTestSnapshot(t)

	if _, err := s.MergeMacros([]Macro{{Name: "maxlen", Value: "16"}}); err != nil {
		t.Errorf("same value, different case: error = %v, want nil", err)
	}

	_, err := s.MergeMacros([]Macro{{Name: "MaxLen", Value: "32"}})
	var conflict *MergeConflictError
	if !errors.As(err, &conflict) || conflict.Kind != "macro" {
		t.Errorf("error = %v, want macro conflict", err)
	}
}

func TestSnapshot_MergePrimitiveTypes(t *testing.T) {
	s := newTestSnapshot(t)

	_, err := s.MergePrimitiveTypes([]PrimitiveType{{UserName: "uint8", CName: "unsigned char", Size: 2, Base: BaseUnsignedInt}})
	if err == nil {
		t.Fatal("size mismatch should conflict")
	}

	merged, err := s.MergePrimitiveTypes([]PrimitiveType{{UserName: "float32", CName: "float", Size: 4, Base: BaseFloat}})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(merged.PrimitiveTypes()); got != 2 {
		t.Errorf("len(PrimitiveTypes()) = %d, want 2", got)
	}
}

func TestSnapshot_MergeReservedIDs(t *testing.T) {
	s := newTestSnapshot(t)
	merged := s.MergeReservedIDs([]ReservedID{{ID: "0x100-0x1FF", Description: "different"}, {ID: "0x200"}})

	got := merged.ReservedIDs()
	if len(got) != 2 {
		t.Fatalf("len(ReservedIDs()) = %d, want 2", len(got))
	}
	if got[0].Description != "boot" {
		t.Errorf("existing description = %q, want boot", got[0].Description)
	}
	if len(s.ReservedIDs()) != 1 {
		t.Error("receiver was mutated")
	}
}

// =============================================================================
// Macros
// =============================================================================

func TestMacroReferences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"plain", nil},
		{"##A##", []string{"A"}},
		{"x##A##y##B##", []string{"A", "B"}},
		{"##open", nil},
		{"####", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := MacroReferences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MacroReferences(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSnapshot_ExpandMacros(t *testing.T) {
	s := New(Project{})
	_ = s.AddMacro(Macro{Name: "Len", Value: "16"})
	_ = s.AddMacro(Macro{Name: "Double", Value: "##len##*2"})
	_ = s.AddMacro(Macro{Name: "Loop", Value: "##loop##"})

	tests := []struct {
		in   string
		want string
	}{
		{"no refs", "no refs"},
		{"##Len##", "16"},
		{"a##Double##b", "a16*2b"},
		{"##unknown####Len##", "##unknown##16"},
		{"##Loop##", "##loop##"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := s.ExpandMacros(tt.in); got != tt.want {
				t.Errorf("ExpandMacros(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
