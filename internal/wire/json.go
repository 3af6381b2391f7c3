package wire

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/dictx/internal/document"
)

type jsonFormat struct{}

func (jsonFormat) Name() string        { return "json" }
func (jsonFormat) ContentType() string { return "application/json" }
func (jsonFormat) Extension() string   { return ".json" }

func (jsonFormat) Encode(w io.Writer, doc *document.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func (jsonFormat) Decode(r io.Reader) (*document.Document, error) {
	var doc document.Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, decodeError("json", err)
	}
	if err := doc.Normalize(); err != nil {
		return nil, decodeError("json", err)
	}
	return &doc, nil
}
