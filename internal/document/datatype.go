package document

import "fmt"

// DataKind identifies which variant a DataType holds.
type DataKind int

const (
	KindInvalid DataKind = iota
	KindInteger
	KindFloat
	KindString
	KindEnumerated
)

func (k DataKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindEnumerated:
		return "enumerated"
	default:
		return "invalid"
	}
}

// DataType is an embedded type declaration. Exactly one of the variant
// fields is set; use Kind to switch on it.
type DataType struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Integer    *IntegerEncoding `yaml:"integer,omitempty" json:"integer,omitempty"`
	Float      *FloatEncoding   `yaml:"float,omitempty" json:"float,omitempty"`
	String     *StringEncoding  `yaml:"string,omitempty" json:"string,omitempty"`
	Enumerated *Enumerated      `yaml:"enumerated,omitempty" json:"enumerated,omitempty"`
}

// IntegerEncoding describes an integer's wire layout.
type IntegerEncoding struct {
	SizeInBits int  `yaml:"sizeInBits" json:"sizeInBits"`
	Signed     bool `yaml:"signed" json:"signed"`
}

// FloatEncoding describes a floating point value's wire layout.
type FloatEncoding struct {
	SizeInBits int `yaml:"sizeInBits" json:"sizeInBits"`
}

// StringEncoding describes a character type's wire layout.
type StringEncoding struct {
	SizeInBits int `yaml:"sizeInBits" json:"sizeInBits"`
}

// Enumerated is an integer-encoded list of labelled values. Owner names the
// command an argument enumeration belongs to and is empty for parameters.
type Enumerated struct {
	Owner    string          `yaml:"owner,omitempty" json:"owner,omitempty"`
	Encoding IntegerEncoding `yaml:"encoding" json:"encoding"`
	Labels   []EnumLabel     `yaml:"labels" json:"labels"`
}

// EnumLabel is one value/label pair.
type EnumLabel struct {
	Value int64  `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Kind reports which variant is set. A declaration with none or more than one
// set is KindInvalid.
func (t DataType) Kind() DataKind {
	kind, n := KindInvalid, 0
	if t.Integer != nil {
		kind, n = KindInteger, n+1
	}
	if t.Float != nil {
		kind, n = KindFloat, n+1
	}
	if t.String != nil {
		kind, n = KindString, n+1
	}
	if t.Enumerated != nil {
		kind, n = KindEnumerated, n+1
	}
	if n != 1 {
		return KindInvalid
	}
	return kind
}

// Validate checks that exactly one variant is set.
func (t DataType) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("data type declaration has no name")
	}
	if t.Kind() == KindInvalid {
		return fmt.Errorf("data type %q must declare exactly one encoding", t.Name)
	}
	return nil
}

// SizeInBits returns the declared width for any variant.
func (t DataType) SizeInBits() int {
	switch t.Kind() {
	case KindInteger:
		return t.Integer.SizeInBits
	case KindFloat:
		return t.Float.SizeInBits
	case KindString:
		return t.String.SizeInBits
	case KindEnumerated:
		return t.Enumerated.Encoding.SizeInBits
	default:
		return 0
	}
}
