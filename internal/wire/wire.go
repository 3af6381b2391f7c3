// Package wire serializes documents. Each Format reads and writes the whole
// document; the codec never sees bytes.
package wire

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/dictx/internal/document"
)

var (
	// ErrUnknownFormat is returned by Lookup for an unregistered name.
	ErrUnknownFormat = errors.New("unknown document format")

	// ErrDecode wraps every failure to read a document from bytes.
	ErrDecode = errors.New("document could not be decoded")
)

// DefaultFormat is used when no format is named.
const DefaultFormat = "xml"

// Format is one document encoding.
type Format interface {
	Name() string
	ContentType() string
	Extension() string
	Encode(w io.Writer, doc *document.Document) error
	Decode(r io.Reader) (*document.Document, error)
}

var formats = map[string]Format{
	"xml":  xmlFormat{},
	"yaml": yamlFormat{},
	"json": jsonFormat{},
}

// Lookup returns the named format. An empty name selects DefaultFormat.
func Lookup(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultFormat
	}
	if name == "yml" {
		name = "yaml"
	}
	f, ok := formats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return f, nil
}

// Names lists the registered formats.
func Names() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForPath picks a format from a file extension.
func ForPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return Lookup(ext)
}

func decodeError(format string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDecode, format, err)
}
