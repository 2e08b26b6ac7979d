// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package store

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/featurebasedb/recordimport/datatype"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertStatements(t *testing.T) {
	tests := []struct {
		name string
		d    dialect
		cols []string
		exp  string
	}{
		{
			name: "postgres",
			d:    postgres{},
			cols: []string{"a", "b"},
			exp:  `INSERT INTO "c"."t" ("id", "a", "b") VALUES ($1, $2::numeric, $3) ON CONFLICT ("id") DO UPDATE SET "a" = excluded."a", "b" = excluded."b"`,
		},
		{
			name: "postgres-key-only",
			d:    postgres{},
			exp:  `INSERT INTO "c"."t" ("id") VALUES ($1) ON CONFLICT ("id") DO NOTHING`,
		},
		{
			name: "mysql",
			d:    mysqlDialect{},
			cols: []string{"a", "b"},
			exp:  "INSERT INTO `c`.`t` (`id`, `a`, `b`) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE `a` = VALUES(`a`), `b` = VALUES(`b`)",
		},
		{
			name: "mysql-key-only",
			d:    mysqlDialect{},
			exp:  "INSERT INTO `c`.`t` (`id`) VALUES (?) ON DUPLICATE KEY UPDATE `id` = `id`",
		},
		{
			name: "sqlite",
			d:    sqliteDialect{},
			cols: []string{"a"},
			exp:  `INSERT INTO "c__t" ("id", "a") VALUES (?, ?) ON CONFLICT ("id") DO UPDATE SET "a" = excluded."a"`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			types := []datatype.DataType{datatype.String, datatype.Number, datatype.String}
			binds := []string{}
			for i := 0; i <= len(test.cols); i++ {
				binds = append(binds, test.d.bind(i+1, types[i]))
			}
			assert.Equal(t, test.exp, test.d.upsert(test.d.table("c", "t"), "id", test.cols, binds))
		})
	}
}

func TestColumnDefinitions(t *testing.T) {
	ref := colDef{name: "donor", dt: datatype.Relation, refTable: `"c"."donor"`, refKey: "id"}
	assert.Equal(t, `"donor" text REFERENCES "c"."donor"("id") DEFERRABLE INITIALLY DEFERRED`, postgres{}.columnDef(ref))
	assert.Equal(t, `"tags" text[]`, postgres{}.columnDef(colDef{name: "tags", dt: datatype.ArrayOfString}))

	my := mysqlDialect{}
	myRef := colDef{name: "donor", dt: datatype.Relation, refTable: "`c`.`donor`", refKey: "id"}
	assert.Equal(t, "`donor` VARCHAR(255)", my.columnDef(myRef))
	assert.Equal(t, []string{
		"ALTER TABLE `c`.`sample` ADD COLUMN `donor` VARCHAR(255)",
		"ALTER TABLE `c`.`sample` ADD FOREIGN KEY (`donor`) REFERENCES `c`.`donor`(`id`)",
	}, my.addColumn("`c`.`sample`", myRef))
	assert.Equal(t, "JSON", my.columnType(datatype.ArrayOfNumber))
	assert.Equal(t, "DECIMAL(65,30)", my.columnType(datatype.Number))
}

func TestWidenStatements(t *testing.T) {
	assert.Equal(t,
		[]string{`ALTER TABLE "c"."t" ALTER COLUMN "v" TYPE text USING "v"::text`},
		postgres{}.widen(`"c"."t"`, "v", datatype.Number, datatype.String))
	assert.Equal(t,
		[]string{
			"ALTER TABLE `c`.`t` MODIFY COLUMN `v` TEXT",
			"UPDATE `c`.`t` SET `v` = CASE `v` WHEN '1' THEN 'true' WHEN '0' THEN 'false' ELSE `v` END",
		},
		mysqlDialect{}.widen("`c`.`t`", "v", datatype.Boolean, datatype.String))
	assert.Nil(t, sqliteDialect{}.widen(`"c__t"`, "v", datatype.Number, datatype.String))
}

func TestForeignKeyViolation(t *testing.T) {
	assert.True(t, postgres{}.foreignKeyViolation(&pq.Error{Code: "23503"}))
	assert.False(t, postgres{}.foreignKeyViolation(&pq.Error{Code: "23505"}))
	assert.True(t, mysqlDialect{}.foreignKeyViolation(&mysql.MySQLError{Number: 1452}))
	assert.True(t, mysqlDialect{}.foreignKeyViolation(&mysql.MySQLError{Number: 1451}))
	assert.False(t, mysqlDialect{}.foreignKeyViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, sqliteDialect{}.foreignKeyViolation(nil))
}

func TestArrayEncoding(t *testing.T) {
	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := jsonArray([]interface{}{int64(1), json.Number("2.5"), nil}, datatype.Number)
	require.NoError(t, err)
	assert.Equal(t, `[1,2.5,null]`, got)

	got, err = jsonArray([]interface{}{when}, datatype.DateTime)
	require.NoError(t, err)
	assert.Equal(t, `["2020-01-02T03:04:05Z"]`, got)

	elems, err := decodeJSONArray(`[1,"x",null]`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{json.Number("1"), "x", nil}, elems)

	arr, err := postgres{}.encodeArray([]interface{}{"a", nil, true}, datatype.String)
	require.NoError(t, err)
	assert.Equal(t, pq.Array([]sql.NullString{{String: "a", Valid: true}, {}, {String: "true", Valid: true}}), arr)

	back, err := postgres{}.decodeArray([]byte(`{a,NULL,"b c"}`))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", nil, "b c"}, back)
}

func TestDecodeScalar(t *testing.T) {
	tests := []struct {
		raw  interface{}
		dt   datatype.DataType
		text string
	}{
		{raw: "t", dt: datatype.Boolean, text: "true"},
		{raw: int64(0), dt: datatype.Boolean, text: "false"},
		{raw: []byte("12.500"), dt: datatype.Number, text: "12.5"},
		{raw: "2020-01-02T00:00:00Z", dt: datatype.Date, text: "2020-01-02"},
		{raw: "2020-01-02 03:04:05", dt: datatype.DateTime, text: "2020-01-02T03:04:05Z"},
		{raw: int64(7), dt: datatype.String, text: "7"},
		{raw: "d1", dt: datatype.Relation, text: "d1"},
	}
	for _, test := range tests {
		v, err := decodeScalar(test.raw, column{name: "c", dt: test.dt, target: "donor"})
		require.NoError(t, err, "%v as %s", test.raw, test.dt)
		assert.Equal(t, test.text, v.Text(), "%v as %s", test.raw, test.dt)
	}

	_, err := decodeScalar("maybe", column{name: "c", dt: datatype.Boolean})
	assert.Error(t, err)
}

func TestJoinTableStatements(t *testing.T) {
	owner := colDef{refTable: `"c"."cohort"`, refKey: "id"}
	target := colDef{refTable: `"c"."donor"`, refKey: "donor_id"}
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "c"."cohort__members" ("from_id" text NOT NULL REFERENCES "c"."cohort"("id") ON DELETE CASCADE, `+
			`"position" INTEGER NOT NULL, "to_id" text NOT NULL REFERENCES "c"."donor"("donor_id") DEFERRABLE INITIALLY DEFERRED, `+
			`PRIMARY KEY ("from_id", "position"))`,
		postgres{}.joinTable(`"c"."cohort__members"`, owner, target))

	owner.refTable, target.refTable = "`c`.`cohort`", "`c`.`donor`"
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS `c`.`cohort__members` (`from_id` VARCHAR(255) NOT NULL, `position` INTEGER NOT NULL, `to_id` VARCHAR(255) NOT NULL, "+
			"PRIMARY KEY (`from_id`, `position`), "+
			"FOREIGN KEY (`from_id`) REFERENCES `c`.`cohort`(`id`) ON DELETE CASCADE, "+
			"FOREIGN KEY (`to_id`) REFERENCES `c`.`donor`(`donor_id`))",
		mysqlDialect{}.joinTable("`c`.`cohort__members`", owner, target))
}
