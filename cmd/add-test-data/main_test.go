package main

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddTestData(t *testing.T) {
	t.Parallel()

	dbFile, err := os.CreateTemp(".", "testdb")
	require.NoError(t, err)
	require.NoError(t, dbFile.Close())
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	ctx := context.Background()
	logger := zap.NewNop()

	inserted, err := addTestData(ctx, logger, dbFile.Name(), 50, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 50, inserted)

	// Overlapping ids are skipped
	inserted, err = addTestData(ctx, logger, dbFile.Name(), 50, 26, 43)
	require.NoError(t, err)
	assert.Equal(t, 25, inserted)

	assert.Equal(t, 75, countUsers(t, dbFile.Name()))
}

func TestAddTestData_TableFull(t *testing.T) {
	t.Parallel()

	dbFile, err := os.CreateTemp(".", "testdb")
	require.NoError(t, err)
	require.NoError(t, dbFile.Close())
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	// Two pages cannot hold more than a single full leaf
	inserted, err := addTestData(context.Background(), zap.NewNop(), dbFile.Name()+"?max_pages=2", 20, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 13, inserted)
}

func countUsers(t *testing.T, dbFileName string) int {
	db, err := sql.Open("minidb", dbFileName)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("select")
	require.NoError(t, err)
	defer rows.Close()

	count := 0
	for rows.Next() {
		count += 1
	}
	require.NoError(t, rows.Err())
	return count
}
