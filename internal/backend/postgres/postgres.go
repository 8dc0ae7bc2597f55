// Package postgres implements the portal backend on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"eng_portal/internal/backend"
)

// DB wraps the connection pool.
type DB struct {
	conn *sqlx.DB
}

var (
	_ backend.Records    = (*DB)(nil)
	_ backend.Procedures = (*DB)(nil)
)

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{conn: conn}, nil
}

// New wraps an existing connection.
func New(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// Healthy checks the connection.
func (db *DB) Healthy(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// column is a db-tagged struct field.
type column struct {
	name  string
	index int
}

// backendAssigned columns are never written by the portal.
var backendAssigned = map[string]bool{"id": true, "created_at": true}

func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{name: tag, index: i})
	}
	return cols
}

// writable returns the portal-owned column names of record and their values.
func writable(record any) ([]string, []any, error) {
	v := reflect.Indirect(reflect.ValueOf(record))
	if v.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("record must be a struct, got %T", record)
	}
	var names []string
	var args []any
	for _, c := range columnsOf(v.Type()) {
		if backendAssigned[c.name] {
			continue
		}
		names = append(names, c.name)
		args = append(args, v.Field(c.index).Interface())
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("record %T has no db columns", record)
	}
	return names, args, nil
}

func (db *DB) Select(ctx context.Context, collection, orderBy string, descending bool, dest any) error {
	if err := backend.CheckCollection(collection, orderBy); err != nil {
		return err
	}
	var names []string
	for _, c := range columnsOf(reflect.TypeOf(dest)) {
		names = append(names, c.name)
	}
	if len(names) == 0 {
		return fmt.Errorf("destination %T has no db columns", dest)
	}
	dir := "ASC"
	if descending {
		dir = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s %s", strings.Join(names, ", "), collection, orderBy, dir)
	if err := db.conn.SelectContext(ctx, dest, query); err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	return nil
}

func (db *DB) Insert(ctx context.Context, collection string, record any) error {
	if err := backend.CheckCollection(collection, ""); err != nil {
		return err
	}
	names, args, err := writable(record)
	if err != nil {
		return err
	}
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		collection, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

func (db *DB) Update(ctx context.Context, collection, id string, record any) error {
	if err := backend.CheckCollection(collection, ""); err != nil {
		return err
	}
	names, args, err := writable(record)
	if err != nil {
		return err
	}
	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = fmt.Sprintf("%s = $%d", n, i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", collection, strings.Join(sets, ", "), len(names)+1)
	res, err := db.conn.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", collection, err)
	}
	return checkAffected(res, collection, id)
}

func (db *DB) Delete(ctx context.Context, collection, id string) error {
	if err := backend.CheckCollection(collection, ""); err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", collection), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return checkAffected(res, collection, id)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func checkAffected(res rowsAffected, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", backend.ErrNotFound, collection, id)
	}
	return nil
}

// CallProcedure runs get_enum_values, installed by the initial migration.
func (db *DB) CallProcedure(ctx context.Context, name string, args map[string]any) ([]string, error) {
	if name != backend.EnumProcedure {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownProcedure, name)
	}
	enum, _ := args["enum_name"].(string)
	values := []string{}
	if err := db.conn.SelectContext(ctx, &values, "SELECT get_enum_values($1)", enum); err != nil {
		return nil, fmt.Errorf("failed to load enum %s: %w", enum, err)
	}
	return values, nil
}
