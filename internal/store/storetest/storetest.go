// Package storetest provides fixtures for testing dictionary stores.
package storetest

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/dictx/internal/dictionary"
)

// Sample returns a small snapshot touching every kind of definition,
// including a table with trailing empty rows.
func Sample(t *testing.T) *dictionary.Snapshot {
	t.Helper()
	s := dictionary.New(dictionary.Project{Name: "Satellite", Description: "satellite dictionary"})
	tt := dictionary.TableType{
		Name: "Structure",
		Columns: []dictionary.Column{
			{Name: "Variable Name", Role: dictionary.RoleVariable, Required: true, Unique: true},
			{Name: "Data Type", Role: dictionary.RolePrimOrStruct, StructureAllowed: true},
			{Name: "Description", Role: dictionary.RoleDescription},
		},
		Fields: []dictionary.Field{
			{Name: "System", Size: 10, InputType: "Text"},
			{Name: "Owner", Required: true},
		},
	}
	if err := s.AddTableType(tt); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPrimitiveType(dictionary.PrimitiveType{UserName: "uint8", CName: "unsigned char", Size: 1, Base: dictionary.BaseUnsignedInt}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMacro(dictionary.Macro{Name: "MaxLen", Value: "16"}); err != nil {
		t.Fatal(err)
	}
	s.AddReservedID(dictionary.ReservedID{ID: "0x100", Description: "boot"})
	s.AddVariablePath(dictionary.VariablePath{Path: "Thermo,uint8.status", Alias: "Thermo_status"})
	err := s.AddTable(dictionary.Table{
		Name:     "Thermo",
		TypeName: "Structure",
		Rows:     [][]string{{"status", "uint8", ""}, {"", "", ""}, {"", "", "trailing"}, {"", "", ""}},
		Fields:   []dictionary.Field{{Name: "System", Value: "Power"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// AssertSame compares every definition of two snapshots.
func AssertSame(t *testing.T, want, got *dictionary.Snapshot) {
	t.Helper()
	checks := []struct {
		what      string
		want, got any
	}{
		{"project", want.Project(), got.Project()},
		{"table types", want.TableTypes(), got.TableTypes()},
		{"primitive types", want.PrimitiveTypes(), got.PrimitiveTypes()},
		{"macros", want.Macros(), got.Macros()},
		{"reserved IDs", want.ReservedIDs(), got.ReservedIDs()},
		{"variable paths", want.VariablePaths(), got.VariablePaths()},
		{"table names", want.TableNames(), got.TableNames()},
	}
	for _, c := range checks {
		if diff := cmp.Diff(c.want, c.got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", c.what, diff)
		}
	}
	for _, name := range want.TableNames() {
		w, _ := want.Table(name)
		g, _ := got.Table(name)
		if diff := cmp.Diff(w, g); diff != "" {
			t.Errorf("table %s (-want +got):\n%s", name, diff)
		}
	}
}
