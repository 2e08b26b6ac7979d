// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package store is a sink writing records directly to a relational
// database. Each collection is a namespace, each record type a table whose
// primary key column holds the record id. Column types are tracked in a
// metadata table so schemas survive across jobs.
package store

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	"github.com/featurebasedb/recordimport/datatype"
	"github.com/featurebasedb/recordimport/errors"
	"github.com/featurebasedb/recordimport/infer"
	"github.com/featurebasedb/recordimport/logger"
	"github.com/featurebasedb/recordimport/record"
	"github.com/featurebasedb/recordimport/schema"
	"github.com/featurebasedb/recordimport/sink"
)

// Store is a Sink backed by a database/sql connection pool.
type Store struct {
	db         *sql.DB
	ownsDB     bool
	d          dialect
	collection string
	log        logger.Logger
	onChange   func(record.RecordType, schema.Delta)
	ready      bool
}

var _ sink.Sink = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

func OptLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// OptSchemaChangeHook is called after a record type is created or altered.
func OptSchemaChangeHook(fn func(record.RecordType, schema.Delta)) Option {
	return func(s *Store) { s.onChange = fn }
}

// New returns a Store writing the collection through db.
func New(db *sql.DB, driver, collection string, opts ...Option) (*Store, error) {
	d, err := newDialect(driver)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, errors.Errorf("collection is required")
	}
	s := &Store{
		db:         db,
		d:          d,
		collection: collection,
		log:        logger.NopLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open connects to the database described by driver and dsn. The
// connection is closed by Close.
func Open(driver, dsn, collection string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	if driver == SQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enabling foreign keys")
		}
	}
	s, err := New(db, driver, collection, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// typeInfo is a record type as recorded in the metadata table.
type typeInfo struct {
	exists  bool
	key     string
	columns []column
}

func (ti typeInfo) schema() schema.Schema {
	s := schema.New()
	for _, c := range ti.columns {
		s = s.With(c.name, c.dt)
	}
	return s
}

func (ti typeInfo) column(name string) (column, bool) {
	for _, c := range ti.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) table(name string) string { return s.d.table(s.collection, name) }

func (s *Store) binds(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.d.bind(i+1, datatype.String)
	}
	return out
}

func (s *Store) ensureNamespace(ctx context.Context) error {
	if s.ready {
		return nil
	}
	k := s.d.keyType()
	stmts := append(s.d.namespace(s.collection),
		"CREATE TABLE IF NOT EXISTS "+s.table(metaTable)+" ("+
			"record_type "+k+" NOT NULL, "+
			"column_name "+k+" NOT NULL, "+
			"position INTEGER NOT NULL, "+
			"data_type "+k+" NOT NULL, "+
			"relation_target "+k+", "+
			"is_key INTEGER NOT NULL, "+
			"PRIMARY KEY (record_type, column_name))")
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "creating namespace for collection %s", s.collection)
		}
	}
	s.ready = true
	return nil
}

func (s *Store) loadType(ctx context.Context, q querier, t record.RecordType) (typeInfo, error) {
	b := s.binds(1)
	rows, err := q.QueryContext(ctx,
		"SELECT column_name, data_type, relation_target, is_key FROM "+s.table(metaTable)+
			" WHERE record_type = "+b[0]+" ORDER BY position", string(t))
	if err != nil {
		return typeInfo{}, errors.Wrapf(err, "reading schema of %s", t)
	}
	defer rows.Close()
	var ti typeInfo
	for rows.Next() {
		var (
			name, dt string
			target   sql.NullString
			isKey    int
		)
		if err := rows.Scan(&name, &dt, &target, &isKey); err != nil {
			return typeInfo{}, errors.Wrapf(err, "reading schema of %s", t)
		}
		ti.exists = true
		if isKey != 0 {
			ti.key = name
			continue
		}
		typ, err := datatype.Parse(dt)
		if err != nil {
			return typeInfo{}, err
		}
		ti.columns = append(ti.columns, column{name: name, dt: typ, target: record.RecordType(target.String)})
	}
	return ti, rows.Err()
}

func (s *Store) insertMeta(ctx context.Context, tx *sql.Tx, t record.RecordType, pos int, c column, isKey bool) error {
	b := s.binds(6)
	var target interface{}
	if c.target != "" {
		target = string(c.target)
	}
	key := 0
	if isKey {
		key = 1
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO "+s.table(metaTable)+" (record_type, column_name, position, data_type, relation_target, is_key) VALUES ("+
			strings.Join(b, ", ")+")",
		string(t), c.name, pos, c.dt.String(), target, key)
	return errors.Wrapf(err, "recording column %s of %s", c.name, t)
}

// CreateOrModifyRecordType creates the table for t or widens it to hold
// observed. The primary key column is not part of the returned schema.
func (s *Store) CreateOrModifyRecordType(ctx context.Context, t record.RecordType, observed schema.Schema, recs []*record.Record, primaryKey string) (_ schema.Schema, err error) {
	if err := s.ensureNamespace(ctx); err != nil {
		return schema.Schema{}, err
	}
	observed = observed.Without(primaryKey)
	for _, name := range observed.Names() {
		if err := record.ValidateAttributeName(name, primaryKey); err != nil {
			return schema.Schema{}, err
		}
	}
	rels, err := infer.FindRelations(recs, observed)
	if err != nil {
		return schema.Schema{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.Schema{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ti, err := s.loadType(ctx, tx, t)
	if err != nil {
		return schema.Schema{}, err
	}
	if ti.exists && ti.key != primaryKey {
		return schema.Schema{}, errors.NewErrPrimaryKeyMismatch(string(t), ti.key, primaryKey)
	}

	targets := make(map[string]record.RecordType)
	refs := make(map[string]colDef)
	for _, group := range [][]record.Relation{rels.Scalar, rels.Array} {
		for _, rel := range group {
			key := primaryKey
			if rel.Target != t {
				target, err := s.loadType(ctx, tx, rel.Target)
				if err != nil {
					return schema.Schema{}, err
				}
				if !target.exists {
					return schema.Schema{}, errors.NewErrUnknownRelationTarget(rel.Column, string(rel.Target))
				}
				key = target.key
			}
			targets[rel.Column] = rel.Target
			refs[rel.Column] = colDef{refTable: s.table(string(rel.Target)), refKey: key}
		}
	}
	// Array columns cannot carry a foreign key; their references live in a
	// join table instead.
	arrays := make(map[string]colDef)
	for _, rel := range rels.Array {
		arrays[rel.Column] = refs[rel.Column]
		delete(refs, rel.Column)
	}
	joins := func(names []string) error {
		for _, name := range names {
			target, ok := arrays[name]
			if !ok {
				continue
			}
			owner := colDef{refTable: s.table(string(t)), refKey: primaryKey}
			if _, err := tx.ExecContext(ctx, s.d.joinTable(s.joinTable(t, name), owner, target)); err != nil {
				return errors.Wrapf(err, "creating relation table of %s.%s", t, name)
			}
		}
		return nil
	}
	def := func(name string, dt datatype.DataType) colDef {
		c := refs[name]
		c.name, c.dt = name, dt
		if dt != datatype.Relation {
			c.refTable, c.refKey = "", ""
		}
		return c
	}

	var delta schema.Delta
	if !ti.exists {
		delta = schema.Delta{ToAdd: observed, ToWiden: schema.New()}
		defs := []string{s.d.quote(primaryKey) + " " + s.d.keyType() + " PRIMARY KEY"}
		var fks []string
		for _, c := range observed.Columns() {
			cd := def(c.Name, c.Type)
			defs = append(defs, s.d.columnDef(cd))
			if fk := s.d.foreignKey(cd); fk != "" {
				fks = append(fks, fk)
			}
		}
		stmt := "CREATE TABLE " + s.table(string(t)) + " (" + strings.Join(append(defs, fks...), ", ") + ")"
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return schema.Schema{}, errors.Wrapf(err, "creating record type %s", t)
		}
		if err := s.insertMeta(ctx, tx, t, 0, column{name: primaryKey, dt: datatype.String}, true); err != nil {
			return schema.Schema{}, err
		}
		for i, c := range observed.Columns() {
			col := column{name: c.Name, dt: c.Type, target: targets[c.Name]}
			if err := s.insertMeta(ctx, tx, t, i+1, col, false); err != nil {
				return schema.Schema{}, err
			}
		}
		if err := joins(observed.Names()); err != nil {
			return schema.Schema{}, err
		}
	} else {
		existing := ti.schema()
		delta, err = schema.Reconcile(existing, observed)
		if err != nil {
			return schema.Schema{}, conflict(existing, observed, recs, err)
		}
		for _, c := range ti.columns {
			if target, ok := targets[c.name]; ok && c.target != "" && c.target != target {
				return schema.Schema{}, errors.NewErrInvalidSchemaChange(string(t), c.name,
					"relation already references "+string(c.target)+", not "+string(target))
			}
		}
		for _, c := range delta.ToWiden.Columns() {
			cur, _ := ti.column(c.Name)
			if cur.dt.IsRelation() {
				return schema.Schema{}, errors.NewErrInvalidSchemaChange(string(t), c.Name,
					"relation column cannot change to "+c.Type.String())
			}
			var stmts []string
			if c.Type == datatype.Relation {
				// Only NULL widens to RELATION, so the column holds no values
				// and is rebuilt with its foreign key.
				stmts = append([]string{"ALTER TABLE " + s.table(string(t)) + " DROP COLUMN " + s.d.quote(c.Name)},
					s.d.addColumn(s.table(string(t)), def(c.Name, c.Type))...)
			} else {
				stmts = s.d.widen(s.table(string(t)), c.Name, cur.dt, c.Type)
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return schema.Schema{}, errors.Wrapf(err, "widening %s.%s to %s", t, c.Name, c.Type)
				}
			}
			var target interface{}
			if rt, ok := targets[c.Name]; ok && c.Type.IsRelation() {
				target = string(rt)
			}
			b := s.binds(4)
			if _, err := tx.ExecContext(ctx,
				"UPDATE "+s.table(metaTable)+" SET data_type = "+b[0]+", relation_target = "+b[1]+" WHERE record_type = "+b[2]+" AND column_name = "+b[3],
				c.Type.String(), target, string(t), c.Name); err != nil {
				return schema.Schema{}, errors.Wrapf(err, "recording widened column %s of %s", c.Name, t)
			}
		}
		if err := joins(delta.ToWiden.Names()); err != nil {
			return schema.Schema{}, err
		}
		pos := len(ti.columns) + 1
		for _, c := range delta.ToAdd.Columns() {
			for _, stmt := range s.d.addColumn(s.table(string(t)), def(c.Name, c.Type)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return schema.Schema{}, errors.Wrapf(err, "adding column %s to %s", c.Name, t)
				}
			}
			col := column{name: c.Name, dt: c.Type, target: targets[c.Name]}
			if err := s.insertMeta(ctx, tx, t, pos, col, false); err != nil {
				return schema.Schema{}, err
			}
			pos++
		}
		if err := joins(delta.ToAdd.Names()); err != nil {
			return schema.Schema{}, err
		}
		observed = schema.Apply(existing, delta)
	}
	if err := tx.Commit(); err != nil {
		return schema.Schema{}, errors.Wrapf(err, "committing schema of %s", t)
	}
	if !delta.Empty() {
		s.log.Debugf("record type %s: added %v, widened %v", t, delta.ToAdd.Names(), delta.ToWiden.Names())
		if s.onChange != nil {
			s.onChange(t, delta)
		}
	}
	return observed, nil
}

// conflict rebuilds a reconcile error with the ids of the records holding
// values for the conflicting column.
func conflict(existing, observed schema.Schema, recs []*record.Record, err error) error {
	for _, c := range observed.Columns() {
		cur, ok := existing.Get(c.Name)
		if !ok {
			continue
		}
		if _, merr := datatype.Merge(cur, c.Type); merr == nil {
			continue
		}
		var ids []string
		for _, r := range recs {
			if v, ok := r.Attributes.Get(c.Name); ok && !v.IsNull() {
				ids = append(ids, r.ID)
			}
		}
		return errors.NewErrTypeConflict(c.Name, cur.String(), c.Type.String(), ids)
	}
	return err
}

// UpsertBatch inserts recs or, for ids already present, overwrites only
// the columns each record has attributes for. Records are written in input
// order, so the last record of a repeated id wins.
func (s *Store) UpsertBatch(ctx context.Context, t record.RecordType, _ schema.Schema, recs []*record.Record, primaryKey string) (err error) {
	if err := s.ensureNamespace(ctx); err != nil {
		return err
	}
	ti, err := s.loadType(ctx, s.db, t)
	if err != nil {
		return err
	}
	if !ti.exists {
		return errors.NewErrNotFound("record type " + string(t))
	}

	// shape is the set of columns one or more records have attributes for.
	type shape struct {
		cols  []column
		names []string
		query string
	}
	shapes := make(map[string]*shape)
	recShapes := make([]*shape, len(recs))
	for i, r := range recs {
		var names []string
		for _, name := range r.Attributes.Names() {
			if name != primaryKey {
				names = append(names, name)
			}
		}
		key := strings.Join(names, "\x00")
		sh, ok := shapes[key]
		if !ok {
			sh = &shape{names: names}
			binds := []string{s.d.bind(1, datatype.String)}
			for j, name := range names {
				col, ok := ti.column(name)
				if !ok {
					return errors.NewErrInvalidAttribute(name, "not a column of "+string(t))
				}
				sh.cols = append(sh.cols, col)
				binds = append(binds, s.d.bind(j+2, col.dt))
			}
			sh.query = s.d.upsert(s.table(string(t)), ti.key, names, binds)
			shapes[key] = sh
		}
		recShapes[i] = sh
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, stmt := range stmts {
			stmt.Close()
		}
	}()
	prepare := func(query string) (*sql.Stmt, error) {
		if stmt, ok := stmts[query]; ok {
			return stmt, nil
		}
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return nil, errors.NewErrBatchWrite(string(t), nil, err)
		}
		stmts[query] = stmt
		return stmt, nil
	}

	var (
		bad      []string
		firstBad error
	)
	for i, r := range recs {
		sh := recShapes[i]
		args := make([]interface{}, 0, len(sh.cols)+1)
		args = append(args, r.ID)
		var encErr error
		for _, c := range sh.cols {
			v, _ := r.Attributes.Get(c.name)
			arg, err := encode(s.d, v, c)
			if err != nil {
				encErr = err
				break
			}
			args = append(args, arg)
		}
		if encErr != nil {
			if firstBad == nil {
				firstBad = encErr
			}
			bad = append(bad, r.ID)
			continue
		}
		if len(bad) > 0 {
			continue
		}
		stmt, err := prepare(sh.query)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			if s.d.foreignKeyViolation(err) {
				return errors.NewErrUnknownRelationTarget(strings.Join(sh.names, ", "), err.Error())
			}
			return errors.NewErrBatchWrite(string(t), []string{r.ID}, err)
		}
		for _, c := range sh.cols {
			if c.dt != datatype.ArrayOfRelation || c.target == "" {
				continue
			}
			v, _ := r.Attributes.Get(c.name)
			if err := s.writeJoin(ctx, t, c, r.ID, v, prepare); err != nil {
				return err
			}
		}
	}
	if len(bad) > 0 {
		return errors.NewErrBatchWrite(string(t), bad, firstBad)
	}
	if err := s.d.checkConstraints(ctx, tx); err != nil {
		if s.d.foreignKeyViolation(err) {
			return errors.NewErrUnknownRelationTarget(string(t), err.Error())
		}
		return errors.NewErrBatchWrite(string(t), nil, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewErrBatchWrite(string(t), nil, err)
	}
	return nil
}

// joinTable names the table holding the references of an array relation
// column.
func (s *Store) joinTable(t record.RecordType, column string) string {
	return s.table(string(t) + "__" + column)
}

// writeJoin replaces the references held by column c of record id with the
// non-null elements of v.
func (s *Store) writeJoin(ctx context.Context, t record.RecordType, c column, id string, v record.Value, prepare func(string) (*sql.Stmt, error)) error {
	table := s.joinTable(t, c.name)
	from, pos, to := s.d.quote(joinFrom), s.d.quote(joinPosition), s.d.quote(joinTo)
	b := s.binds(3)
	del, err := prepare("DELETE FROM " + table + " WHERE " + from + " = " + b[0])
	if err != nil {
		return err
	}
	if _, err := del.ExecContext(ctx, id); err != nil {
		return errors.NewErrBatchWrite(string(t), []string{id}, err)
	}
	ins, err := prepare("INSERT INTO " + table + " (" + from + ", " + pos + ", " + to + ") VALUES (" + strings.Join(b, ", ") + ")")
	if err != nil {
		return err
	}
	for i, e := range v.Elems() {
		ref, ok := infer.Ref(e)
		if !ok {
			continue
		}
		if _, err := ins.ExecContext(ctx, id, i, ref.ID); err != nil {
			if s.d.foreignKeyViolation(err) {
				return errors.NewErrUnknownRelationTarget(c.name, err.Error())
			}
			return errors.NewErrBatchWrite(string(t), []string{id}, err)
		}
	}
	return nil
}

// DeleteBatch deletes recs by id. Ids that do not exist are logged. The
// batch fails if any deleted row is still referenced by a relation.
func (s *Store) DeleteBatch(ctx context.Context, t record.RecordType, recs []*record.Record) (err error) {
	if err := s.ensureNamespace(ctx); err != nil {
		return err
	}
	ti, err := s.loadType(ctx, s.db, t)
	if err != nil {
		return err
	}
	if !ti.exists {
		return errors.NewErrNotFound("record type " + string(t))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM "+s.table(string(t))+" WHERE "+s.d.quote(ti.key)+" = "+s.d.bind(1, datatype.String))
	if err != nil {
		return errors.NewErrBatchWrite(string(t), nil, err)
	}
	defer stmt.Close()
	var missing []string
	for _, r := range recs {
		res, err := stmt.ExecContext(ctx, r.ID)
		if err != nil {
			if s.d.foreignKeyViolation(err) {
				return errors.NewErrRelationExists(string(t), err)
			}
			return errors.NewErrBatchWrite(string(t), []string{r.ID}, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			missing = append(missing, r.ID)
		}
	}
	if err := s.d.checkConstraints(ctx, tx); err != nil {
		if s.d.foreignKeyViolation(err) {
			return errors.NewErrRelationExists(string(t), err)
		}
		return errors.NewErrBatchWrite(string(t), nil, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewErrBatchWrite(string(t), nil, err)
	}
	if len(missing) > 0 {
		s.log.Warnf("deleting %s: %d ids did not exist: %s", t, len(missing), strings.Join(errors.Sample(missing), ", "))
	}
	return nil
}

// MarkSuccess is a no-op: every batch is committed as it is written.
func (s *Store) MarkSuccess() {}

func (s *Store) Close(ctx context.Context) error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Schema returns the columns and the primary key of t.
func (s *Store) Schema(ctx context.Context, t record.RecordType) (schema.Schema, string, error) {
	if err := s.ensureNamespace(ctx); err != nil {
		return schema.Schema{}, "", err
	}
	ti, err := s.loadType(ctx, s.db, t)
	if err != nil {
		return schema.Schema{}, "", err
	}
	if !ti.exists {
		return schema.Schema{}, "", errors.NewErrNotFound("record type " + string(t))
	}
	return ti.schema(), ti.key, nil
}

// Types lists the record types of the collection.
func (s *Store) Types(ctx context.Context) ([]record.RecordType, error) {
	if err := s.ensureNamespace(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT record_type FROM "+s.table(metaTable))
	if err != nil {
		return nil, errors.Wrap(err, "listing record types")
	}
	defer rows.Close()
	var types []record.RecordType
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, record.RecordType(t))
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types, rows.Err()
}

// Count returns the number of records of type t.
func (s *Store) Count(ctx context.Context, t record.RecordType) (int, error) {
	if _, _, err := s.Schema(ctx, t); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table(string(t))).Scan(&n)
	return n, errors.Wrapf(err, "counting %s", t)
}

// Get reads one record. Columns holding null are left out of its
// attributes.
func (s *Store) Get(ctx context.Context, t record.RecordType, id string) (*record.Record, error) {
	if err := s.ensureNamespace(ctx); err != nil {
		return nil, err
	}
	ti, err := s.loadType(ctx, s.db, t)
	if err != nil {
		return nil, err
	}
	if !ti.exists {
		return nil, errors.NewErrNotFound("record type " + string(t))
	}
	names := []string{s.d.quote(ti.key)}
	for _, c := range ti.columns {
		names = append(names, s.d.quote(c.name))
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+strings.Join(names, ", ")+" FROM "+s.table(string(t))+
			" WHERE "+s.d.quote(ti.key)+" = "+s.d.bind(1, datatype.String), id)
	raw := make([]interface{}, len(names))
	ptrs := make([]interface{}, len(names))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := row.Scan(ptrs...); err == sql.ErrNoRows {
		return nil, errors.NewErrNotFound(string(t) + " " + strconv.Quote(id))
	} else if err != nil {
		return nil, errors.Wrapf(err, "reading %s %s", t, id)
	}
	rec := record.New(id, t)
	for i, c := range ti.columns {
		v, err := decode(s.d, raw[i+1], c)
		if err != nil {
			return nil, err
		}
		if !v.IsNull() {
			rec.Set(c.name, v)
		}
	}
	return rec, nil
}
