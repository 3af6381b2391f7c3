// Package filestore keeps the dictionary in a single YAML file.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dictx/internal/dictionary"
)

// DefaultFileName is the file name used when a directory is given.
const DefaultFileName = "dictionary.yaml"

type file struct {
	Project        dictionary.Project         `yaml:"project"`
	TableTypes     []dictionary.TableType     `yaml:"tableTypes,omitempty"`
	PrimitiveTypes []dictionary.PrimitiveType `yaml:"dataTypes,omitempty"`
	Macros         []dictionary.Macro         `yaml:"macros,omitempty"`
	ReservedIDs    []dictionary.ReservedID    `yaml:"reservedIDs,omitempty"`
	VariablePaths  []dictionary.VariablePath  `yaml:"variablePaths,omitempty"`
	Tables         []dictionary.Table         `yaml:"tables,omitempty"`
}

// Store reads and writes one YAML dictionary file.
type Store struct {
	path string
}

// New returns a store for path. A directory path selects DefaultFileName
// inside it.
func New(path string) *Store {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	return &Store{path: path}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (*dictionary.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return dictionary.New(dictionary.Project{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}

	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return f.snapshot()
}

func (f file) snapshot() (*dictionary.Snapshot, error) {
	s := dictionary.New(f.Project)
	for _, t := range f.TableTypes {
		if err := s.AddTableType(t); err != nil {
			return nil, err
		}
	}
	for _, p := range f.PrimitiveTypes {
		if err := s.AddPrimitiveType(p); err != nil {
			return nil, err
		}
	}
	for _, m := range f.Macros {
		if err := s.AddMacro(m); err != nil {
			return nil, err
		}
	}
	for _, id := range f.ReservedIDs {
		s.AddReservedID(id)
	}
	for _, v := range f.VariablePaths {
		s.AddVariablePath(v)
	}
	for _, t := range f.Tables {
		if err := s.AddTable(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Save writes snap to a temporary file and renames it over the old one.
func (s *Store) Save(ctx context.Context, snap *dictionary.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := file{
		Project:        snap.Project(),
		TableTypes:     snap.TableTypes(),
		PrimitiveTypes: snap.PrimitiveTypes(),
		Macros:         snap.Macros(),
		ReservedIDs:    snap.ReservedIDs(),
		VariablePaths:  snap.VariablePaths(),
	}
	for _, name := range snap.TableNames() {
		t, _ := snap.Table(name)
		f.Tables = append(f.Tables, t)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode dictionary: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".dictionary-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write dictionary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace dictionary: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
