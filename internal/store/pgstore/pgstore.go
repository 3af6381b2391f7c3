// Package pgstore keeps the dictionary in PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/store"
)

// DBTX is the subset of pgx used for reads.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store loads and saves a whole dictionary.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the dictionary tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, store.Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load reads the stored dictionary inside a repeatable-read transaction so
// every query sees the same commit.
func (s *Store) Load(ctx context.Context) (*dictionary.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	r, err := loadRecords(ctx, tx)
	if err != nil {
		return nil, err
	}
	return r.Snapshot()
}

func loadRecords(ctx context.Context, db DBTX) (store.Records, error) {
	var r store.Records
	err := db.QueryRow(ctx, `SELECT name, description FROM dict_project WHERE id = 1`).
		Scan(&r.Project.Name, &r.Project.Description)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return r, fmt.Errorf("load project: %w", err)
	}

	r.TableTypes, err = collect(ctx, db, `SELECT name, description FROM dict_table_types ORDER BY position`,
		func(row pgx.CollectableRow) (dictionary.TableType, error) {
			var t dictionary.TableType
			err := row.Scan(&t.Name, &t.Description)
			return t, err
		})
	if err != nil {
		return r, fmt.Errorf("load table types: %w", err)
	}

	type typedColumn struct {
		typeName string
		role     string
		column   dictionary.Column
	}
	columns, err := collect(ctx, db, `SELECT type_name, name, description, role, is_unique, is_required, structure_allowed, pointer_allowed
		FROM dict_columns ORDER BY type_name, position`,
		func(row pgx.CollectableRow) (typedColumn, error) {
			var c typedColumn
			err := row.Scan(&c.typeName, &c.column.Name, &c.column.Description, &c.role,
				&c.column.Unique, &c.column.Required, &c.column.StructureAllowed, &c.column.PointerAllowed)
			return c, err
		})
	if err != nil {
		return r, fmt.Errorf("load columns: %w", err)
	}
	index := make(map[string]int, len(r.TableTypes))
	for i, t := range r.TableTypes {
		index[t.Name] = i
	}
	for _, c := range columns {
		i, ok := index[c.typeName]
		if !ok {
			return r, fmt.Errorf("column %s belongs to unknown table type %s", c.column.Name, c.typeName)
		}
		if c.column.Role, err = dictionary.ParseInputRole(c.role); err != nil {
			return r, fmt.Errorf("table type %s: %w", c.typeName, err)
		}
		r.TableTypes[i].Columns = append(r.TableTypes[i].Columns, c.column)
	}

	r.Fields, err = collect(ctx, db, `SELECT owner_kind, owner_name, position, name, description, size, input_type, is_required, applicability, value
		FROM dict_fields`,
		func(row pgx.CollectableRow) (store.FieldRecord, error) {
			var f store.FieldRecord
			err := row.Scan(&f.OwnerKind, &f.OwnerName, &f.Position, &f.Field.Name, &f.Field.Description,
				&f.Field.Size, &f.Field.InputType, &f.Field.Required, &f.Field.Applicability, &f.Field.Value)
			return f, err
		})
	if err != nil {
		return r, fmt.Errorf("load data fields: %w", err)
	}

	r.PrimitiveTypes, err = collect(ctx, db, `SELECT user_name, c_name, size, base FROM dict_primitive_types ORDER BY position`,
		func(row pgx.CollectableRow) (dictionary.PrimitiveType, error) {
			var p dictionary.PrimitiveType
			var base string
			if err := row.Scan(&p.UserName, &p.CName, &p.Size, &base); err != nil {
				return p, err
			}
			b, err := dictionary.ParseBaseType(base)
			p.Base = b
			return p, err
		})
	if err != nil {
		return r, fmt.Errorf("load data types: %w", err)
	}

	r.Macros, err = collect(ctx, db, `SELECT name, value FROM dict_macros ORDER BY position`,
		pgx.RowToStructByPos[dictionary.Macro])
	if err != nil {
		return r, fmt.Errorf("load macros: %w", err)
	}
	r.ReservedIDs, err = collect(ctx, db, `SELECT id, description FROM dict_reserved_ids ORDER BY position`,
		pgx.RowToStructByPos[dictionary.ReservedID])
	if err != nil {
		return r, fmt.Errorf("load reserved IDs: %w", err)
	}
	r.VariablePaths, err = collect(ctx, db, `SELECT path, alias FROM dict_variable_paths ORDER BY position`,
		pgx.RowToStructByPos[dictionary.VariablePath])
	if err != nil {
		return r, fmt.Errorf("load variable paths: %w", err)
	}
	r.Tables, err = collect(ctx, db, `SELECT name, type_name, description, row_count FROM dict_tables ORDER BY position`,
		pgx.RowToStructByPos[store.TableRecord])
	if err != nil {
		return r, fmt.Errorf("load tables: %w", err)
	}
	r.Cells, err = collect(ctx, db, `SELECT table_name, row_index, column_index, value FROM dict_cells`,
		pgx.RowToStructByPos[store.Cell])
	if err != nil {
		return r, fmt.Errorf("load cells: %w", err)
	}
	return r, nil
}

func collect[T any](ctx context.Context, db DBTX, query string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}

// Save replaces the stored dictionary with snap in one transaction. Cells
// are written with COPY.
func (s *Store) Save(ctx context.Context, snap *dictionary.Snapshot) error {
	r := store.Flatten(snap)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE dict_cells, dict_tables, dict_variable_paths, dict_reserved_ids,
		dict_macros, dict_primitive_types, dict_fields, dict_columns, dict_table_types, dict_project`); err != nil {
		return fmt.Errorf("clear dictionary: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO dict_project (id, name, description) VALUES (1, $1, $2)`, r.Project.Name, r.Project.Description)
	for i, t := range r.TableTypes {
		batch.Queue(`INSERT INTO dict_table_types (name, description, position) VALUES ($1, $2, $3)`, t.Name, t.Description, i)
		for j, c := range t.Columns {
			batch.Queue(`INSERT INTO dict_columns
				(type_name, position, name, description, role, is_unique, is_required, structure_allowed, pointer_allowed)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				t.Name, j, c.Name, c.Description, c.Role.String(), c.Unique, c.Required, c.StructureAllowed, c.PointerAllowed)
		}
	}
	for _, f := range r.Fields {
		batch.Queue(`INSERT INTO dict_fields
			(owner_kind, owner_name, position, name, description, size, input_type, is_required, applicability, value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			f.OwnerKind, f.OwnerName, f.Position, f.Field.Name, f.Field.Description, f.Field.Size,
			f.Field.InputType, f.Field.Required, f.Field.Applicability, f.Field.Value)
	}
	for i, p := range r.PrimitiveTypes {
		batch.Queue(`INSERT INTO dict_primitive_types (position, user_name, c_name, size, base) VALUES ($1, $2, $3, $4, $5)`,
			i, p.UserName, p.CName, p.Size, p.Base.String())
	}
	for i, m := range r.Macros {
		batch.Queue(`INSERT INTO dict_macros (position, name, value) VALUES ($1, $2, $3)`, i, m.Name, m.Value)
	}
	for i, id := range r.ReservedIDs {
		batch.Queue(`INSERT INTO dict_reserved_ids (position, id, description) VALUES ($1, $2, $3)`, i, id.ID, id.Description)
	}
	for i, v := range r.VariablePaths {
		batch.Queue(`INSERT INTO dict_variable_paths (position, path, alias) VALUES ($1, $2, $3)`, i, v.Path, v.Alias)
	}
	for i, t := range r.Tables {
		batch.Queue(`INSERT INTO dict_tables (name, type_name, description, row_count, position) VALUES ($1, $2, $3, $4, $5)`,
			t.Name, t.TypeName, t.Description, t.RowCount, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save definitions: %w", err)
	}

	if len(r.Cells) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"dict_cells"},
			[]string{"table_name", "row_index", "column_index", "value"},
			pgx.CopyFromSlice(len(r.Cells), func(i int) ([]any, error) {
				c := r.Cells[i]
				return []any{c.Table, c.Row, c.Column, c.Value}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("save cells: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *Store) Close() error {
	return nil
}
