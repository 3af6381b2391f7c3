package wire

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dictx/internal/document"
)

type yamlFormat struct{}

func (yamlFormat) Name() string        { return "yaml" }
func (yamlFormat) ContentType() string { return "application/yaml" }
func (yamlFormat) Extension() string   { return ".yaml" }

func (yamlFormat) Encode(w io.Writer, doc *document.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func (yamlFormat) Decode(r io.Reader) (*document.Document, error) {
	var doc document.Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, decodeError("yaml", err)
	}
	if err := doc.Normalize(); err != nil {
		return nil, decodeError("yaml", err)
	}
	return &doc, nil
}
