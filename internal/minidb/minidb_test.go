package minidb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardKnop/minidb/internal/pkg/logging"
)

var (
	gen = newDataGen(time.Now().Unix())

	testLogger *zap.Logger
)

func init() {
	logConf := logging.DefaultConfig()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	l, err := logging.ParseLevel(level)
	if err != nil {
		panic(err)
	}
	logConf.Level = zap.NewAtomicLevelAt(l)

	testLogger, err = logConf.Build()
	if err != nil {
		panic(err)
	}
}

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed int64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

func (g *dataGen) Row() Row {
	username := g.Username()
	if len(username) > UsernameSize {
		username = username[:UsernameSize]
	}
	email := g.Email()
	if len(email) > EmailSize {
		email = email[:EmailSize]
	}
	return Row{
		ID:       g.Uint32(),
		Username: username,
		Email:    email,
	}
}

// Rows returns rows with unique IDs in random order.
func (g *dataGen) Rows(number int) []Row {
	idMap := map[uint32]struct{}{}
	rows := make([]Row, 0, number)
	for len(rows) < number {
		aRow := g.Row()
		if _, ok := idMap[aRow.ID]; ok {
			continue
		}
		rows = append(rows, aRow)
		idMap[aRow.ID] = struct{}{}
	}
	return rows
}

// RowsWithIDs returns a row for each of the given IDs.
func (g *dataGen) RowsWithIDs(ids ...uint32) []Row {
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		aRow := g.Row()
		aRow.ID = id
		rows = append(rows, aRow)
	}
	return rows
}

func sequence(from, to uint32) []uint32 {
	ids := make([]uint32, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}

func newTestDBFile(t *testing.T) *os.File {
	dbFile, err := os.CreateTemp(".", "testdb")
	require.NoError(t, err)
	t.Cleanup(func() {
		dbFile.Close()
		os.Remove(dbFile.Name())
	})
	return dbFile
}

func newTestPager(t *testing.T, maxPages uint32, maxCachedPages int) *pagerImpl {
	aPager, err := NewPager(testLogger, newTestDBFile(t), maxPages, maxCachedPages)
	require.NoError(t, err)
	return aPager
}

func newTestTable(t *testing.T, aPager Pager, maxICells uint32) *Table {
	aTable := NewTable(testLogger, "test", aPager, 0)
	aTable.maxICells = maxICells
	return aTable
}

func insertRows(t *testing.T, aTable *Table, rows ...Row) {
	ctx := context.Background()
	for _, aRow := range rows {
		require.NoError(t, aTable.Insert(ctx, aRow.Key(), aRow))
	}
}

func scanKeys(t *testing.T, aTable *Table) []uint64 {
	ctx := context.Background()
	it := aTable.Scan(ctx)
	rows, err := it.Collect(ctx)
	require.NoError(t, err)
	keys := make([]uint64, 0, len(rows))
	for _, aRow := range rows {
		keys = append(keys, aRow.Key())
	}
	return keys
}

// requireValidTree walks the whole tree and checks parent pointers, separator
// keys and that all leaves sit on the same level.
func requireValidTree(t *testing.T, aTable *Table) {
	ctx := context.Background()
	err := aTable.BFS(ctx, func(aPage *Page, depth int) error {
		if aPage.LeafNode != nil {
			keys := aPage.LeafNode.Keys()
			for i := 1; i < len(keys); i++ {
				require.Less(t, keys[i-1], keys[i], "leaf page %d keys not ascending", aPage.Index)
			}
			return nil
		}

		aNode := aPage.InternalNode
		require.NotEqual(t, RightChildNotSet, aNode.Header.RightChild)
		for idx, childIdx := range aNode.Children() {
			aChildPage, err := aTable.pager.ReadPage(ctx, childIdx)
			require.NoError(t, err)
			require.Equal(t, aPage.Index, aChildPage.parent(), "parent of page %d", childIdx)
			if uint32(idx) < aNode.Header.KeysNum {
				maxKey, err := aTable.GetMaxKey(ctx, aChildPage)
				require.NoError(t, err)
				require.Equal(t, aNode.ICells[idx].Key, maxKey, "separator %d of page %d", idx, aPage.Index)
			}
		}
		return nil
	})
	require.NoError(t, err)

	depths, err := aTable.LeafDepths(ctx)
	require.NoError(t, err)
	for _, depth := range depths {
		require.Equal(t, depths[0], depth)
	}
}
