package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"io/fs"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListMigrations_Embedded(t *testing.T) {
	names, err := ListMigrations(Migrations(), ".")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0001_users.up.sql",
		"0002_users_ban_flag.up.sql",
		"0003_applications.up.sql",
		"0004_payouts.up.sql",
		"0005_news.up.sql",
	}, names)
}

func TestApplyFS_RunsEachFileInOrderInItsOwnTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{
		"m/002_b.up.sql":     {Data: []byte("CREATE TABLE b (id INT);")},
		"m/001_a.up.sql":     {Data: []byte("CREATE TABLE a (id INT);")},
		"m/001_a.down.sql":   {Data: []byte("DROP TABLE a;")},
		"m/003_empty.up.sql": {Data: []byte("   ")},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT);")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT);")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	m := NewMigrator(db, testLogger())
	require.NoError(t, m.ApplyFS(context.Background(), fsys, "m"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFS_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{
		"001_a.up.sql": {Data: []byte("BROKEN SQL")},
		"002_b.up.sql": {Data: []byte("CREATE TABLE b (id INT);")},
	}

	mock.ExpectBegin()
	mock.ExpectExec("BROKEN SQL").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	m := NewMigrator(db, testLogger())
	err = m.ApplyFS(context.Background(), fsys, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_a.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrations_BackfillNullTextBeforeNotNull(t *testing.T) {
	tests := []struct {
		file   string
		table  string
		column string
	}{
		{file: "0001_users.up.sql", table: "users", column: "name"},
		{file: "0001_users.up.sql", table: "users", column: "contact"},
		{file: "0001_users.up.sql", table: "users", column: "role"},
		{file: "0003_applications.up.sql", table: "applications", column: "message"},
		{file: "0005_news.up.sql", table: "news", column: "content"},
	}

	for _, tc := range tests {
		t.Run(tc.table+"."+tc.column, func(t *testing.T) {
			data, err := fs.ReadFile(Migrations(), tc.file)
			require.NoError(t, err)
			sql := string(data)

			backfill := strings.Index(sql, "UPDATE "+tc.table+" SET "+tc.column+" = ")
			setDefault := strings.Index(sql, "ALTER TABLE "+tc.table+" ALTER COLUMN "+tc.column+" SET DEFAULT")
			notNull := strings.Index(sql, "ALTER TABLE "+tc.table+" ALTER COLUMN "+tc.column+" SET NOT NULL")

			require.GreaterOrEqual(t, backfill, 0, "missing backfill")
			require.GreaterOrEqual(t, setDefault, 0, "missing default")
			require.GreaterOrEqual(t, notNull, 0, "missing not null")
			assert.Less(t, backfill, notNull)
			assert.Less(t, setDefault, notNull)
		})
	}
}

func TestApplyFS_BackfillRunsInsideMigrationTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	script := "UPDATE news SET content = '' WHERE content IS NULL;\nALTER TABLE news ALTER COLUMN content SET NOT NULL;"
	fsys := fstest.MapFS{"001_news.up.sql": {Data: []byte(script)}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE news SET content = ''")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, NewMigrator(db, testLogger()).ApplyFS(context.Background(), fsys, "."))
	assert.NoError(t, mock.ExpectationsWereMet())
}
