// Package sqlitestore keeps the dictionary in a SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/store"
)

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB
}

// Open opens the database file and creates the dictionary tables if needed.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(store.Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{DB: db}, nil
}

// Store loads and saves a whole dictionary.
type Store struct {
	db *DB
}

// New returns a store over db.
func New(db *DB) *Store {
	return &Store{db: db}
}

// Load reads the stored dictionary. An empty database yields an empty
// snapshot.
func (s *Store) Load(ctx context.Context) (*dictionary.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var r store.Records
	err = tx.QueryRowContext(ctx, `SELECT name, description FROM dict_project WHERE id = 1`).
		Scan(&r.Project.Name, &r.Project.Description)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load project: %w", err)
	}

	loaders := []struct {
		what  string
		query string
		scan  func(*sql.Rows) error
	}{
		{"table types", `SELECT name, description FROM dict_table_types ORDER BY position`, func(rows *sql.Rows) error {
			var t dictionary.TableType
			if err := rows.Scan(&t.Name, &t.Description); err != nil {
				return err
			}
			r.TableTypes = append(r.TableTypes, t)
			return nil
		}},
		{"columns", `SELECT type_name, name, description, role, is_unique, is_required, structure_allowed, pointer_allowed
			FROM dict_columns ORDER BY type_name, position`, func(rows *sql.Rows) error {
			var typeName, role string
			var c dictionary.Column
			if err := rows.Scan(&typeName, &c.Name, &c.Description, &role, &c.Unique, &c.Required, &c.StructureAllowed, &c.PointerAllowed); err != nil {
				return err
			}
			return addColumn(&r, typeName, role, c)
		}},
		{"data fields", `SELECT owner_kind, owner_name, position, name, description, size, input_type, is_required, applicability, value
			FROM dict_fields`, func(rows *sql.Rows) error {
			var f store.FieldRecord
			if err := rows.Scan(&f.OwnerKind, &f.OwnerName, &f.Position, &f.Field.Name, &f.Field.Description,
				&f.Field.Size, &f.Field.InputType, &f.Field.Required, &f.Field.Applicability, &f.Field.Value); err != nil {
				return err
			}
			r.Fields = append(r.Fields, f)
			return nil
		}},
		{"data types", `SELECT user_name, c_name, size, base FROM dict_primitive_types ORDER BY position`, func(rows *sql.Rows) error {
			var p dictionary.PrimitiveType
			var base string
			if err := rows.Scan(&p.UserName, &p.CName, &p.Size, &base); err != nil {
				return err
			}
			b, err := dictionary.ParseBaseType(base)
			if err != nil {
				return err
			}
			p.Base = b
			r.PrimitiveTypes = append(r.PrimitiveTypes, p)
			return nil
		}},
		{"macros", `SELECT name, value FROM dict_macros ORDER BY position`, func(rows *sql.Rows) error {
			var m dictionary.Macro
			if err := rows.Scan(&m.Name, &m.Value); err != nil {
				return err
			}
			r.Macros = append(r.Macros, m)
			return nil
		}},
		{"reserved IDs", `SELECT id, description FROM dict_reserved_ids ORDER BY position`, func(rows *sql.Rows) error {
			var id dictionary.ReservedID
			if err := rows.Scan(&id.ID, &id.Description); err != nil {
				return err
			}
			r.ReservedIDs = append(r.ReservedIDs, id)
			return nil
		}},
		{"variable paths", `SELECT path, alias FROM dict_variable_paths ORDER BY position`, func(rows *sql.Rows) error {
			var v dictionary.VariablePath
			if err := rows.Scan(&v.Path, &v.Alias); err != nil {
				return err
			}
			r.VariablePaths = append(r.VariablePaths, v)
			return nil
		}},
		{"tables", `SELECT name, type_name, description, row_count FROM dict_tables ORDER BY position`, func(rows *sql.Rows) error {
			var t store.TableRecord
			if err := rows.Scan(&t.Name, &t.TypeName, &t.Description, &t.RowCount); err != nil {
				return err
			}
			r.Tables = append(r.Tables, t)
			return nil
		}},
		{"cells", `SELECT table_name, row_index, column_index, value FROM dict_cells`, func(rows *sql.Rows) error {
			var c store.Cell
			if err := rows.Scan(&c.Table, &c.Row, &c.Column, &c.Value); err != nil {
				return err
			}
			r.Cells = append(r.Cells, c)
			return nil
		}},
	}

	for _, l := range loaders {
		if err := queryEach(ctx, tx, l.query, l.scan); err != nil {
			return nil, fmt.Errorf("load %s: %w", l.what, err)
		}
	}
	return r.Snapshot()
}

func queryEach(ctx context.Context, tx *sql.Tx, query string, scan func(*sql.Rows) error) error {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// addColumn appends c to its table type. Columns arrive ordered by type and
// position, so appending keeps the layout.
func addColumn(r *store.Records, typeName, role string, c dictionary.Column) error {
	parsed, err := dictionary.ParseInputRole(role)
	if err != nil {
		return fmt.Errorf("table type %s: %w", typeName, err)
	}
	c.Role = parsed
	for i := range r.TableTypes {
		if r.TableTypes[i].Name == typeName {
			r.TableTypes[i].Columns = append(r.TableTypes[i].Columns, c)
			return nil
		}
	}
	return fmt.Errorf("column %s belongs to unknown table type %s", c.Name, typeName)
}

// Save replaces the stored dictionary with snap in one transaction.
func (s *Store) Save(ctx context.Context, snap *dictionary.Snapshot) error {
	r := store.Flatten(snap)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"dict_cells", "dict_tables", "dict_variable_paths", "dict_reserved_ids",
		"dict_macros", "dict_primitive_types", "dict_fields", "dict_columns",
		"dict_table_types", "dict_project",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO dict_project (id, name, description) VALUES (1, ?, ?)`,
		r.Project.Name, r.Project.Description); err != nil {
		return fmt.Errorf("save project: %w", err)
	}

	for i, t := range r.TableTypes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dict_table_types (name, description, position) VALUES (?, ?, ?)`,
			t.Name, t.Description, i); err != nil {
			return fmt.Errorf("save table type %s: %w", t.Name, err)
		}
		for j, c := range t.Columns {
			if _, err := tx.ExecContext(ctx, `INSERT INTO dict_columns
				(type_name, position, name, description, role, is_unique, is_required, structure_allowed, pointer_allowed)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.Name, j, c.Name, c.Description, c.Role.String(), c.Unique, c.Required, c.StructureAllowed, c.PointerAllowed); err != nil {
				return fmt.Errorf("save column %s.%s: %w", t.Name, c.Name, err)
			}
		}
	}

	for _, f := range r.Fields {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dict_fields
			(owner_kind, owner_name, position, name, description, size, input_type, is_required, applicability, value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.OwnerKind, f.OwnerName, f.Position, f.Field.Name, f.Field.Description, f.Field.Size,
			f.Field.InputType, f.Field.Required, f.Field.Applicability, f.Field.Value); err != nil {
			return fmt.Errorf("save data field %s: %w", f.Field.Name, err)
		}
	}

	for i, p := range r.PrimitiveTypes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dict_primitive_types (position, user_name, c_name, size, base) VALUES (?, ?, ?, ?, ?)`,
			i, p.UserName, p.CName, p.Size, p.Base.String()); err != nil {
			return fmt.Errorf("save data type %s: %w", p.Name(), err)
		}
	}
	for i, m := range r.Macros {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dict_macros (position, name, value) VALUES (?, ?, ?)`, i, m.Name, m.Value); err != nil {
			return fmt.Errorf("save macro %s: %w", m.Name, err)
		}
	}
	for i, id := range r.ReservedIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dict_reserved_ids (position, id, description) VALUES (?, ?, ?)`, i, id.ID, id.Description); err != nil {
			return fmt.Errorf("save reserved ID %s: %w", id.ID, err)
		}
	}
	for i, v := range r.VariablePaths {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dict_variable_paths (position, path, alias) VALUES (?, ?, ?)`, i, v.Path, v.Alias); err != nil {
			return fmt.Errorf("save variable path %s: %w", v.Path, err)
		}
	}
	for i, t := range r.Tables {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dict_tables (name, type_name, description, row_count, position) VALUES (?, ?, ?, ?, ?)`,
			t.Name, t.TypeName, t.Description, t.RowCount, i); err != nil {
			return fmt.Errorf("save table %s: %w", t.Name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dict_cells (table_name, row_index, column_index, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cells: %w", err)
	}
	defer stmt.Close()
	for _, c := range r.Cells {
		if _, err := stmt.ExecContext(ctx, c.Table, c.Row, c.Column, c.Value); err != nil {
			return fmt.Errorf("save cell %s(%d, %d): %w", c.Table, c.Row, c.Column, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
