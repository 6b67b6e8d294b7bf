package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_Save(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	loc, err := s.Save(context.Background(), "exports/audit.csv", []byte("id\n1\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "exports/audit.csv", loc)

	data, err := os.ReadFile(filepath.Join(dir, "exports", "audit.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data))
}

func TestLocalStorage_KeyCannotEscapeBase(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "../../escape.csv", []byte("x"), "text/csv")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.csv"))
	assert.NoError(t, err)
}
