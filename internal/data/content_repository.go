package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Schema names the table backing a content type and its writable columns (excluding id).
type Schema struct {
	Table   string
	Columns []string
}

// RecordPtr constrains a type parameter to a pointer to T that implements Record.
type RecordPtr[T any] interface {
	*T
	Record
}

// ContentRepository persists one content type using sqlx. Column names match the
// model's db tags.
type ContentRepository[T any, PT RecordPtr[T]] struct {
	db     *sqlx.DB
	schema Schema

	selectQuery string
	insertQuery string
	updateQuery string
}

// NewContentRepository creates a ContentRepository for the given schema.
func NewContentRepository[T any, PT RecordPtr[T]](db *sqlx.DB, schema Schema) *ContentRepository[T, PT] {
	named := make([]string, len(schema.Columns))
	assignments := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		named[i] = ":" + c
		assignments[i] = c + " = :" + c
	}
	cols := strings.Join(schema.Columns, ", ")

	return &ContentRepository[T, PT]{
		db:          db,
		schema:      schema,
		selectQuery: fmt.Sprintf("SELECT id, %s FROM %s", cols, schema.Table),
		insertQuery: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", schema.Table, cols, strings.Join(named, ", ")),
		updateQuery: fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", schema.Table, strings.Join(assignments, ", ")),
	}
}

// List retrieves every row ordered by id.
func (r *ContentRepository[T, PT]) List(ctx context.Context) ([]*T, error) {
	records := []*T{}
	if err := r.db.SelectContext(ctx, &records, r.selectQuery+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.schema.Table, err)
	}
	return records, nil
}

// Get retrieves a single row by id. It returns ErrNotFound when no row matches.
func (r *ContentRepository[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	var record T
	if err := r.db.GetContext(ctx, &record, r.selectQuery+" WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s by id: %w", r.schema.Table, err)
	}
	return &record, nil
}

// First retrieves the row with the lowest id, used for singleton tables.
func (r *ContentRepository[T, PT]) First(ctx context.Context) (*T, error) {
	var record T
	if err := r.db.GetContext(ctx, &record, r.selectQuery+" ORDER BY id LIMIT 1"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get first %s: %w", r.schema.Table, err)
	}
	return &record, nil
}

// Create inserts the record and sets its id from the database.
func (r *ContentRepository[T, PT]) Create(ctx context.Context, record *T) error {
	res, err := r.db.NamedExecContext(ctx, r.insertQuery, record)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", r.schema.Table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted id: %w", err)
	}
	PT(record).SetRecordID(id)
	return nil
}

// Update overwrites every writable column of the record.
func (r *ContentRepository[T, PT]) Update(ctx context.Context, record *T) error {
	result, err := r.db.NamedExecContext(ctx, r.updateQuery, record)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", r.schema.Table, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// MySQL reports zero rows when nothing changed, so confirm the row still exists.
		if _, err := r.Get(ctx, PT(record).RecordID()); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a row by id. It returns ErrNotFound when no row matches.
func (r *ContentRepository[T, PT]) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.schema.Table)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", r.schema.Table, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
