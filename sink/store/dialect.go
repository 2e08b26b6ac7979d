// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/featurebasedb/recordimport/datatype"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Drivers supported by the store.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// metaTable holds the column metadata of every record type of a collection.
const metaTable = "sys_columns"

// Columns of the join table kept for each array relation column.
const (
	joinFrom     = "from_id"
	joinPosition = "position"
	joinTo       = "to_id"
)

// colDef describes one column to create. refTable and refKey are set for
// single-valued relation columns.
type colDef struct {
	name     string
	dt       datatype.DataType
	refTable string
	refKey   string
}

// dialect is the SQL and value encoding differences between databases.
type dialect interface {
	driver() string
	quote(ident string) string
	namespace(collection string) []string
	table(collection, name string) string
	keyType() string
	columnType(dt datatype.DataType) string
	// bind returns the i'th (1-based) bind parameter for a value of type dt.
	bind(i int, dt datatype.DataType) string
	columnDef(c colDef) string
	foreignKey(c colDef) string
	addColumn(table string, c colDef) []string
	// joinTable creates the table linking rows of owner to the rows of
	// target they reference. owner and target carry only refTable and
	// refKey.
	joinTable(table string, owner, target colDef) string
	widen(table, column string, from, to datatype.DataType) []string
	upsert(table, key string, cols, binds []string) string
	encodeBool(b bool) interface{}
	encodeDateTime(t time.Time) interface{}
	encodeArray(elems []interface{}, elem datatype.DataType) (interface{}, error)
	decodeArray(raw interface{}) ([]interface{}, error)
	foreignKeyViolation(err error) bool
	// checkConstraints verifies deferred foreign keys while tx can still be
	// rolled back.
	checkConstraints(ctx context.Context, tx *sql.Tx) error
}

func newDialect(driver string) (dialect, error) {
	switch driver {
	case Postgres:
		return postgres{}, nil
	case MySQL:
		return mysqlDialect{}, nil
	case SQLite:
		return sqliteDialect{}, nil
	}
	return nil, errors.Errorf("unsupported store driver '%s'", driver)
}

func quoteWith(q, ident string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// postgres keeps each collection in its own schema and uses native arrays.
type postgres struct{}

func (postgres) driver() string            { return Postgres }
func (postgres) quote(ident string) string { return quoteWith(`"`, ident) }

func (d postgres) namespace(collection string) []string {
	return []string{"CREATE SCHEMA IF NOT EXISTS " + d.quote(collection)}
}

func (d postgres) table(collection, name string) string {
	return d.quote(collection) + "." + d.quote(name)
}

func (postgres) keyType() string { return "text" }

func (postgres) columnType(dt datatype.DataType) string { return dt.StorageType() }

func (postgres) bind(i int, dt datatype.DataType) string {
	return dt.Placeholder("$" + strconv.Itoa(i))
}

func (d postgres) columnDef(c colDef) string {
	def := d.quote(c.name) + " " + d.columnType(c.dt)
	if c.refTable != "" {
		def += " REFERENCES " + c.refTable + "(" + d.quote(c.refKey) + ") DEFERRABLE INITIALLY DEFERRED"
	}
	return def
}

func (postgres) foreignKey(colDef) string { return "" }

func (d postgres) joinTable(table string, owner, target colDef) string {
	return deferredJoinTable(d, table, owner, target)
}

func (d postgres) addColumn(table string, c colDef) []string {
	return []string{"ALTER TABLE " + table + " ADD COLUMN IF NOT EXISTS " + d.columnDef(c)}
}

func (d postgres) widen(table, column string, from, to datatype.DataType) []string {
	typ := d.columnType(to)
	return []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s", table, d.quote(column), typ, d.quote(column), typ)}
}

func (d postgres) upsert(table, key string, cols, binds []string) string {
	return conflictUpsert(d.quote, table, key, cols, binds)
}

func (postgres) encodeBool(b bool) interface{}          { return b }
func (postgres) encodeDateTime(t time.Time) interface{} { return t.UTC().Format(time.RFC3339Nano) }
func (postgres) foreignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func (postgres) checkConstraints(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "SET CONSTRAINTS ALL IMMEDIATE")
	return err
}

func (postgres) encodeArray(elems []interface{}, elem datatype.DataType) (interface{}, error) {
	out := make([]sql.NullString, len(elems))
	for i, e := range elems {
		if e == nil {
			continue
		}
		out[i] = sql.NullString{String: scalarText(e), Valid: true}
	}
	return pq.Array(out), nil
}

func (postgres) decodeArray(raw interface{}) ([]interface{}, error) {
	var ss []sql.NullString
	if err := pq.Array(&ss).Scan(raw); err != nil {
		return nil, err
	}
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		if s.Valid {
			out[i] = s.String
		}
	}
	return out, nil
}

// deferredJoinTable is the join table of postgres and sqlite. References to
// the target are checked when the batch is done so a batch may reference
// rows it writes later.
func deferredJoinTable(d dialect, table string, owner, target colDef) string {
	k := d.keyType()
	return "CREATE TABLE IF NOT EXISTS " + table + " (" +
		d.quote(joinFrom) + " " + k + " NOT NULL REFERENCES " + owner.refTable + "(" + d.quote(owner.refKey) + ") ON DELETE CASCADE, " +
		d.quote(joinPosition) + " INTEGER NOT NULL, " +
		d.quote(joinTo) + " " + k + " NOT NULL REFERENCES " + target.refTable + "(" + d.quote(target.refKey) + ") DEFERRABLE INITIALLY DEFERRED, " +
		"PRIMARY KEY (" + d.quote(joinFrom) + ", " + d.quote(joinPosition) + "))"
}

// conflictUpsert builds the INSERT ... ON CONFLICT statement shared by
// postgres and sqlite.
func conflictUpsert(quote func(string) string, table, key string, cols, binds []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO " + table + " (" + quote(key))
	for _, c := range cols {
		b.WriteString(", " + quote(c))
	}
	b.WriteString(") VALUES (" + strings.Join(binds, ", ") + ") ON CONFLICT (" + quote(key) + ") DO ")
	if len(cols) == 0 {
		b.WriteString("NOTHING")
		return b.String()
	}
	b.WriteString("UPDATE SET ")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(c) + " = excluded." + quote(c))
	}
	return b.String()
}

// sqliteDialect prefixes table names with the collection and stores arrays
// as JSON text. Column types are advisory, so widening only changes the
// metadata.
type sqliteDialect struct{}

func (sqliteDialect) driver() string            { return SQLite }
func (sqliteDialect) quote(ident string) string { return quoteWith(`"`, ident) }
func (sqliteDialect) namespace(string) []string { return nil }

func (d sqliteDialect) table(collection, name string) string {
	return d.quote(collection + "__" + name)
}

func (sqliteDialect) keyType() string { return "TEXT" }

func (sqliteDialect) columnType(dt datatype.DataType) string {
	switch {
	case dt.IsArray():
		return "TEXT"
	case dt == datatype.Boolean:
		return "BOOLEAN"
	case dt == datatype.Number:
		return "NUMERIC"
	}
	return "TEXT"
}

func (sqliteDialect) bind(int, datatype.DataType) string { return "?" }

func (d sqliteDialect) columnDef(c colDef) string {
	def := d.quote(c.name) + " " + d.columnType(c.dt)
	if c.refTable != "" {
		def += " REFERENCES " + c.refTable + "(" + d.quote(c.refKey) + ") DEFERRABLE INITIALLY DEFERRED"
	}
	return def
}

func (sqliteDialect) foreignKey(colDef) string { return "" }

func (d sqliteDialect) joinTable(table string, owner, target colDef) string {
	return deferredJoinTable(d, table, owner, target)
}

func (d sqliteDialect) addColumn(table string, c colDef) []string {
	return []string{"ALTER TABLE " + table + " ADD COLUMN " + d.columnDef(c)}
}

func (sqliteDialect) widen(string, string, datatype.DataType, datatype.DataType) []string { return nil }

func (d sqliteDialect) upsert(table, key string, cols, binds []string) string {
	return conflictUpsert(d.quote, table, key, cols, binds)
}

// Booleans are kept as text so they read back unchanged after the column
// is widened to a string.
func (sqliteDialect) encodeBool(b bool) interface{}          { return strconv.FormatBool(b) }
func (sqliteDialect) encodeDateTime(t time.Time) interface{} { return t.UTC().Format(time.RFC3339Nano) }

func (sqliteDialect) encodeArray(elems []interface{}, elem datatype.DataType) (interface{}, error) {
	return jsonArray(elems, elem)
}

func (sqliteDialect) decodeArray(raw interface{}) ([]interface{}, error) {
	return decodeJSONArray(raw)
}

func (sqliteDialect) foreignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func (sqliteDialect) checkConstraints(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		var (
			table, parent string
			rowid, fkid   sql.NullInt64
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return err
		}
		return errors.Errorf("FOREIGN KEY constraint failed: a row of %s references a missing row of %s", table, parent)
	}
	return rows.Err()
}

// mysqlDialect keeps each collection in its own database. Arrays are JSON.
type mysqlDialect struct{}

func (mysqlDialect) driver() string            { return MySQL }
func (mysqlDialect) quote(ident string) string { return quoteWith("`", ident) }

func (d mysqlDialect) namespace(collection string) []string {
	return []string{"CREATE DATABASE IF NOT EXISTS " + d.quote(collection)}
}

func (d mysqlDialect) table(collection, name string) string {
	return d.quote(collection) + "." + d.quote(name)
}

func (mysqlDialect) keyType() string { return "VARCHAR(255)" }

func (d mysqlDialect) columnType(dt datatype.DataType) string {
	switch dt {
	case datatype.Boolean:
		return "BOOLEAN"
	case datatype.Date:
		return "DATE"
	case datatype.DateTime:
		return "DATETIME(6)"
	case datatype.Number:
		return "DECIMAL(65,30)"
	case datatype.Relation:
		return d.keyType()
	}
	if dt == datatype.JSON || dt.IsArray() {
		return "JSON"
	}
	return "TEXT"
}

func (mysqlDialect) bind(int, datatype.DataType) string { return "?" }

func (d mysqlDialect) columnDef(c colDef) string {
	return d.quote(c.name) + " " + d.columnType(c.dt)
}

func (d mysqlDialect) foreignKey(c colDef) string {
	if c.refTable == "" {
		return ""
	}
	return "FOREIGN KEY (" + d.quote(c.name) + ") REFERENCES " + c.refTable + "(" + d.quote(c.refKey) + ")"
}

func (d mysqlDialect) joinTable(table string, owner, target colDef) string {
	k := d.keyType()
	return "CREATE TABLE IF NOT EXISTS " + table + " (" +
		d.quote(joinFrom) + " " + k + " NOT NULL, " +
		d.quote(joinPosition) + " INTEGER NOT NULL, " +
		d.quote(joinTo) + " " + k + " NOT NULL, " +
		"PRIMARY KEY (" + d.quote(joinFrom) + ", " + d.quote(joinPosition) + "), " +
		"FOREIGN KEY (" + d.quote(joinFrom) + ") REFERENCES " + owner.refTable + "(" + d.quote(owner.refKey) + ") ON DELETE CASCADE, " +
		"FOREIGN KEY (" + d.quote(joinTo) + ") REFERENCES " + target.refTable + "(" + d.quote(target.refKey) + "))"
}

func (d mysqlDialect) addColumn(table string, c colDef) []string {
	stmts := []string{"ALTER TABLE " + table + " ADD COLUMN " + d.columnDef(c)}
	if fk := d.foreignKey(c); fk != "" {
		stmts = append(stmts, "ALTER TABLE "+table+" ADD "+fk)
	}
	return stmts
}

func (d mysqlDialect) widen(table, column string, from, to datatype.DataType) []string {
	stmts := []string{"ALTER TABLE " + table + " MODIFY COLUMN " + d.quote(column) + " " + d.columnType(to)}
	if from == datatype.Boolean {
		q := d.quote(column)
		stmts = append(stmts, fmt.Sprintf("UPDATE %s SET %s = CASE %s WHEN '1' THEN 'true' WHEN '0' THEN 'false' ELSE %s END", table, q, q, q))
	}
	return stmts
}

func (d mysqlDialect) upsert(table, key string, cols, binds []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO " + table + " (" + d.quote(key))
	for _, c := range cols {
		b.WriteString(", " + d.quote(c))
	}
	b.WriteString(") VALUES (" + strings.Join(binds, ", ") + ") ON DUPLICATE KEY UPDATE ")
	if len(cols) == 0 {
		b.WriteString(d.quote(key) + " = " + d.quote(key))
		return b.String()
	}
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.quote(c) + " = VALUES(" + d.quote(c) + ")")
	}
	return b.String()
}

func (mysqlDialect) encodeBool(b bool) interface{} { return b }

func (mysqlDialect) encodeDateTime(t time.Time) interface{} {
	return t.UTC().Format("2006-01-02 15:04:05.999999")
}

func (mysqlDialect) encodeArray(elems []interface{}, elem datatype.DataType) (interface{}, error) {
	return jsonArray(elems, elem)
}

func (mysqlDialect) decodeArray(raw interface{}) ([]interface{}, error) {
	return decodeJSONArray(raw)
}

func (mysqlDialect) checkConstraints(context.Context, *sql.Tx) error { return nil }

func (mysqlDialect) foreignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1451 || me.Number == 1452)
}

// jsonArray renders encoded elements as a JSON array. Numbers and JSON
// documents are embedded verbatim.
func jsonArray(elems []interface{}, elem datatype.DataType) (interface{}, error) {
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		switch {
		case e == nil:
		case elem == datatype.Number || elem == datatype.JSON:
			out[i] = json.RawMessage(scalarText(e))
		case elem == datatype.DateTime:
			out[i] = scalarText(e)
		default:
			out[i] = e
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeJSONArray(raw interface{}) ([]interface{}, error) {
	text, ok := rawText(raw)
	if !ok {
		return nil, errors.Errorf("expected JSON array text, got %T", raw)
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var out []interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// scalarText renders an encoded scalar as text.
func scalarText(e interface{}) string {
	switch e := e.(type) {
	case string:
		return e
	case int64:
		return strconv.FormatInt(e, 10)
	case bool:
		return strconv.FormatBool(e)
	case json.Number:
		return e.String()
	case json.RawMessage:
		return string(e)
	case time.Time:
		return e.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(e)
}

func rawText(raw interface{}) (string, bool) {
	switch r := raw.(type) {
	case string:
		return r, true
	case []byte:
		return string(r), true
	}
	return "", false
}
