package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_ContainsOrderedGooseFiles(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_accounts.sql", "00002_user_privileges.sql", "00003_audit_logs.sql"}, names)

	for _, n := range names {
		b, err := fs.ReadFile(FS, n)
		require.NoError(t, err)
		s := string(b)
		assert.True(t, strings.HasPrefix(s, "-- +goose Up"), n)
		assert.Contains(t, s, "-- +goose Down", n)
	}
}

func TestFS_TablesLiveInSchema(t *testing.T) {
	create := regexp.MustCompile(`(?i)CREATE TABLE\s+(\S+)`)

	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	var tables int
	for _, n := range names {
		b, err := fs.ReadFile(FS, n)
		require.NoError(t, err)
		for _, m := range create.FindAllStringSubmatch(string(b), -1) {
			tables++
			assert.True(t, strings.HasPrefix(m[1], Schema+"."), "%s: table %s outside schema %s", n, m[1], Schema)
		}
	}
	assert.Equal(t, 6, tables)
}

func TestUp_PropagatesError(t *testing.T) {
	orig := upContext
	t.Cleanup(func() { upContext = orig })

	var gotDir string
	upContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return errors.New("boom")
	}

	err := Up(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, ".", gotDir)
}
