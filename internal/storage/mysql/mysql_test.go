package mysql

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigForcesStoreOptions(t *testing.T) {
	cfg, err := Config("members:secret@tcp(db:3306)/members")
	require.NoError(t, err)

	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "members", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "utf8mb4", cfg.Params["charset"])
}

func TestConfigKeepsExplicitCharset(t *testing.T) {
	cfg, err := Config("members:secret@tcp(db:3306)/members?charset=latin1")
	require.NoError(t, err)
	assert.Equal(t, "latin1", cfg.Params["charset"])
}

func TestConfigRejectsGarbage(t *testing.T) {
	_, err := Config("this is not a dsn")
	assert.Error(t, err)
}

func TestErrorClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	fk := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}

	assert.True(t, isUniqueViolation(dup))
	assert.False(t, isForeignKeyViolation(dup))
	assert.True(t, isForeignKeyViolation(fk))
	assert.False(t, isUniqueViolation(errors.New("plain")))
	assert.Empty(t, Dialect.BackupInto, "no online copy statement")
}
