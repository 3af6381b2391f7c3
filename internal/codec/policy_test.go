package codec

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/dictx/internal/dictionary"
)

func TestContinuation_StateMachine(t *testing.T) {
	var answers []Decision
	calls := 0
	decide := func(Category, string) Decision {
		d := answers[calls]
		calls++
		return d
	}
	c := NewContinuation(decide, nil)

	answers = []Decision{Ignore, Ignore, IgnoreAll, Abort}

	// Ignore keeps asking.
	for i := 0; i < 2; i++ {
		if err := c.Recover(CategoryMacro, "bad macro"); err != nil {
			t.Fatalf("Recover() = %v, want nil", err)
		}
		if got := c.State(CategoryMacro); got != StateAsk {
			t.Errorf("State = %v, want %v", got, StateAsk)
		}
	}

	// IgnoreAll stops asking for that category only.
	if err := c.Recover(CategoryMacro, "bad macro"); err != nil {
		t.Fatalf("Recover() = %v, want nil", err)
	}
	if err := c.Recover(CategoryMacro, "bad macro"); err != nil {
		t.Fatalf("Recover() after IgnoreAll = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if got := c.State(CategoryMacro); got != StateSkipAll {
		t.Errorf("State = %v, want %v", got, StateSkipAll)
	}

	// Abort is sticky.
	err := c.Recover(CategoryColumn, "bad column")
	var abort *AbortError
	if !errors.As(err, &abort) || abort.Category != CategoryColumn {
		t.Fatalf("Recover() = %v, want column AbortError", err)
	}
	if err := c.Recover(CategoryColumn, "again"); err == nil {
		t.Error("Recover() after Abort = nil, want error")
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if got := c.State(CategoryDataType); got != StateAsk {
		t.Errorf("untouched category State = %v, want %v", got, StateAsk)
	}
}

func TestContinuation_NilDecideAborts(t *testing.T) {
	c := NewContinuation(nil, nil)
	if err := c.Recover(CategoryDataField, "x"); err == nil {
		t.Error("Recover() = nil, want abort")
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in      string
		want    Decision
		wantErr bool
	}{
		{"ignore", Ignore, false},
		{"Ignore-All", IgnoreAll, false},
		{"skip", IgnoreAll, false},
		{"", Abort, false},
		{"abort", Abort, false},
		{"maybe", Abort, true},
	}
	for _, tt := range tests {
		got, err := ParseDecision(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDecision(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecision(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{"": ScopeAllDefinitions, "all": ScopeAllDefinitions, "first-table": ScopeFirstTableOnly} {
		got, err := ParseScope(in)
		if err != nil || got != want {
			t.Errorf("ParseScope(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseScope("half"); err == nil {
		t.Error("ParseScope(half) error = nil")
	}
}

func TestCollector_Deduplicates(t *testing.T) {
	c := newCollector()
	c.RecordMacro("MaxLen")
	c.RecordMacro("MAXLEN")
	c.RecordMacro("Other")
	c.RecordPrimitiveType("uint8")
	c.RecordPrimitiveType("uint8")

	if got := c.Macros(); len(got) != 2 || got[0] != "MaxLen" {
		t.Errorf("Macros() = %v, want [MaxLen Other]", got)
	}
	if got := c.PrimitiveTypes(); len(got) != 1 {
		t.Errorf("PrimitiveTypes() = %v, want one entry", got)
	}
}

func TestDraftPrimitive_Fill(t *testing.T) {
	decl, ok := draftFromDeclaration(primitiveDeclaration(dictionaryUint16()))
	if !ok {
		t.Fatal("declaration not recognized")
	}
	generic := draftPrimitive{userName: "uint16", cName: "unsigned short", size: "2", base: "signed integer"}
	decl.fill(generic)

	p, err := decl.build()
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	// The declaration's base wins over the generic entry.
	if p.UserName != "uint16" || p.CName != "unsigned short" || p.Size != 2 || p != dictionaryUint16() {
		t.Errorf("build() = %+v", p)
	}
}

func dictionaryUint16() dictionary.PrimitiveType {
	return dictionary.PrimitiveType{UserName: "uint16", CName: "unsigned short", Size: 2, Base: dictionary.BaseUnsignedInt}
}
