package wire

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/JonMunkholm/dictx/internal/document"
)

// Element names of embedded data-type declarations.
const (
	xmlInteger    = "IntegerDataType"
	xmlFloat      = "FloatDataType"
	xmlString     = "StringDataType"
	xmlEnumerated = "EnumeratedDataType"
)

type xmlFormat struct{}

func (xmlFormat) Name() string        { return "xml" }
func (xmlFormat) ContentType() string { return "application/xml" }
func (xmlFormat) Extension() string   { return ".xml" }

type xmlDataSheet struct {
	XMLName    xml.Name       `xml:"DataSheet"`
	Device     xmlDevice      `xml:"Device"`
	Namespaces []xmlNamespace `xml:"Namespace"`
}

type xmlDevice struct {
	Name             string `xml:"name,attr"`
	ShortDescription string `xml:"shortDescription,attr,omitempty"`
}

type xmlNamespace struct {
	Name             string           `xml:"name,attr"`
	ShortDescription string           `xml:"shortDescription,attr,omitempty"`
	DataTypeSet      *xmlDataTypeSet  `xml:"DataTypeSet,omitempty"`
	ParameterSet     *xmlParameterSet `xml:"ParameterSet,omitempty"`
	CommandSet       *xmlCommandSet   `xml:"CommandSet,omitempty"`
	GenericSets      []xmlGenericSet  `xml:"GenericAttributeSet"`
}

// xmlDataTypeSet keeps declarations in document order whatever their kind;
// the element name carries the kind.
type xmlDataTypeSet struct {
	Types []xmlDataType `xml:",any"`
}

type xmlDataType struct {
	XMLName          xml.Name
	Name             string     `xml:"name,attr"`
	ShortDescription string     `xml:"shortDescription,attr,omitempty"`
	Owner            string     `xml:"owner,attr,omitempty"`
	SizeInBits       int        `xml:"sizeInBits,attr"`
	Signed           bool       `xml:"signed,attr,omitempty"`
	Labels           []xmlLabel `xml:"Label"`
}

type xmlLabel struct {
	Value int64  `xml:"value,attr"`
	Label string `xml:"label,attr"`
}

type xmlParameterSet struct {
	Parameters []xmlParameter `xml:"Parameter"`
}

type xmlParameter struct {
	Name             string `xml:"name,attr"`
	Type             string `xml:"type,attr,omitempty"`
	ShortDescription string `xml:"shortDescription,attr,omitempty"`
	Unit             string `xml:"unit,attr,omitempty"`
	BitLength        int    `xml:"bitLength,attr,omitempty"`
}

type xmlCommandSet struct {
	Commands []xmlCommand `xml:"Command"`
}

type xmlCommand struct {
	Name             string        `xml:"name,attr"`
	ShortDescription string        `xml:"shortDescription,attr,omitempty"`
	Arguments        []xmlArgument `xml:"Argument"`
}

type xmlArgument struct {
	Name             string `xml:"name,attr"`
	Type             string `xml:"type,attr,omitempty"`
	ShortDescription string `xml:"shortDescription,attr,omitempty"`
}

type xmlGenericSet struct {
	Role       string             `xml:"role,attr"`
	Attributes []xmlGenericAttrib `xml:"GenericAttribute"`
}

type xmlGenericAttrib struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (xmlFormat) Encode(w io.Writer, doc *document.Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(toXML(doc)); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (xmlFormat) Decode(r io.Reader) (*document.Document, error) {
	var sheet xmlDataSheet
	if err := xml.NewDecoder(r).Decode(&sheet); err != nil {
		return nil, decodeError("xml", err)
	}
	doc, err := fromXML(sheet)
	if err != nil {
		return nil, decodeError("xml", err)
	}
	return doc, nil
}

func toXML(doc *document.Document) xmlDataSheet {
	sheet := xmlDataSheet{Device: xmlDevice{Name: doc.Name, ShortDescription: doc.Description}}
	for _, ns := range doc.Namespaces {
		x := xmlNamespace{Name: ns.Name, ShortDescription: ns.Description}

		if len(ns.DataTypes) > 0 {
			x.DataTypeSet = &xmlDataTypeSet{}
			for _, dt := range ns.DataTypes {
				x.DataTypeSet.Types = append(x.DataTypeSet.Types, dataTypeToXML(dt))
			}
		}
		if ns.Parameters != nil {
			x.ParameterSet = &xmlParameterSet{}
			for _, p := range ns.Parameters.Parameters {
				x.ParameterSet.Parameters = append(x.ParameterSet.Parameters, xmlParameter{
					Name:             p.Name,
					Type:             p.Type,
					ShortDescription: p.Description,
					Unit:             string(p.Unit),
					BitLength:        p.BitLength,
				})
			}
		}
		if ns.Commands != nil {
			x.CommandSet = &xmlCommandSet{}
			for _, c := range ns.Commands.Commands {
				xc := xmlCommand{Name: c.Name, ShortDescription: c.Description}
				for _, a := range c.Arguments {
					xc.Arguments = append(xc.Arguments, xmlArgument{Name: a.Name, Type: a.Type, ShortDescription: a.Description})
				}
				x.CommandSet.Commands = append(x.CommandSet.Commands, xc)
			}
		}
		for _, set := range ns.Generic {
			xs := xmlGenericSet{Role: string(set.Role)}
			for _, e := range set.Entries {
				xs.Attributes = append(xs.Attributes, xmlGenericAttrib{Name: e.Key, Value: e.Value})
			}
			x.GenericSets = append(x.GenericSets, xs)
		}
		sheet.Namespaces = append(sheet.Namespaces, x)
	}
	return sheet
}

func dataTypeToXML(dt document.DataType) xmlDataType {
	x := xmlDataType{Name: dt.Name, ShortDescription: dt.Description}
	switch dt.Kind() {
	case document.KindInteger:
		x.XMLName.Local = xmlInteger
		x.SizeInBits, x.Signed = dt.Integer.SizeInBits, dt.Integer.Signed
	case document.KindFloat:
		x.XMLName.Local = xmlFloat
		x.SizeInBits = dt.Float.SizeInBits
	case document.KindString:
		x.XMLName.Local = xmlString
		x.SizeInBits = dt.String.SizeInBits
	case document.KindEnumerated:
		x.XMLName.Local = xmlEnumerated
		x.Owner = dt.Enumerated.Owner
		x.SizeInBits, x.Signed = dt.Enumerated.Encoding.SizeInBits, dt.Enumerated.Encoding.Signed
		for _, l := range dt.Enumerated.Labels {
			x.Labels = append(x.Labels, xmlLabel{Value: l.Value, Label: l.Label})
		}
	default:
		x.XMLName.Local = xmlInteger
	}
	return x
}

// fromXML rebuilds the document. A namespace name seen again continues the
// namespace declared first.
func fromXML(sheet xmlDataSheet) (*document.Document, error) {
	doc := document.New(sheet.Device.Name, sheet.Device.ShortDescription)
	for _, x := range sheet.Namespaces {
		if x.Name == "" {
			return nil, fmt.Errorf("namespace without a name")
		}
		ns := doc.Namespace(x.Name)
		if ns.Description == "" {
			ns.Description = x.ShortDescription
		}

		if x.DataTypeSet != nil {
			for _, xt := range x.DataTypeSet.Types {
				dt, err := dataTypeFromXML(xt)
				if err != nil {
					return nil, fmt.Errorf("namespace '%s': %w", x.Name, err)
				}
				ns.AddDataType(dt)
			}
		}
		if x.ParameterSet != nil {
			if ns.Parameters == nil {
				ns.Parameters = &document.ParameterSet{}
			}
			for _, p := range x.ParameterSet.Parameters {
				ns.AddParameter(document.Parameter{
					Name:        p.Name,
					Type:        p.Type,
					Description: p.ShortDescription,
					Unit:        document.Unit(p.Unit),
					BitLength:   p.BitLength,
				})
			}
		}
		if x.CommandSet != nil {
			if ns.Commands == nil {
				ns.Commands = &document.CommandSet{}
			}
			for _, xc := range x.CommandSet.Commands {
				c := document.Command{Name: xc.Name, Description: xc.ShortDescription}
				for _, a := range xc.Arguments {
					c.Arguments = append(c.Arguments, document.Argument{Name: a.Name, Type: a.Type, Description: a.ShortDescription})
				}
				ns.AddCommand(c)
			}
		}
		for _, xs := range x.GenericSets {
			set := document.GenericSet{Role: document.GenericRole(xs.Role)}
			for _, a := range xs.Attributes {
				set.Entries = append(set.Entries, document.GenericEntry{Key: a.Name, Value: a.Value})
			}
			ns.Generic = append(ns.Generic, set)
		}
	}
	if err := doc.Normalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

func dataTypeFromXML(x xmlDataType) (document.DataType, error) {
	dt := document.DataType{Name: x.Name, Description: x.ShortDescription}
	switch x.XMLName.Local {
	case xmlInteger:
		dt.Integer = &document.IntegerEncoding{SizeInBits: x.SizeInBits, Signed: x.Signed}
	case xmlFloat:
		dt.Float = &document.FloatEncoding{SizeInBits: x.SizeInBits}
	case xmlString:
		dt.String = &document.StringEncoding{SizeInBits: x.SizeInBits}
	case xmlEnumerated:
		dt.Enumerated = &document.Enumerated{
			Owner:    x.Owner,
			Encoding: document.IntegerEncoding{SizeInBits: x.SizeInBits, Signed: x.Signed},
		}
		for _, l := range x.Labels {
			dt.Enumerated.Labels = append(dt.Enumerated.Labels, document.EnumLabel{Value: l.Value, Label: l.Label})
		}
	default:
		return document.DataType{}, fmt.Errorf("unknown data type element <%s>", x.XMLName.Local)
	}
	return dt, nil
}
