package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"

	"github.com/RichardKnop/minidb"
	"github.com/RichardKnop/minidb/internal/pkg/logging"
)

const defaultDbFileName = "minidb.db"

var (
	dbFlag    string
	countFlag int
	startFlag uint
	seedFlag  int64
)

func init() {
	flag.StringVar(&dbFlag, "db", defaultDbFileName, "Database file to fill")
	flag.IntVar(&countFlag, "n", 100, "Number of users to insert")
	flag.UintVar(&startFlag, "start", 1, "ID of the first inserted user")
	flag.Int64Var(&seedFlag, "seed", 0, "Seed for the fake data generator")
}

func main() {
	flag.Parse()

	logger, err := logging.New(logging.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %s\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // flushes buffer, if any

	inserted, err := addTestData(context.Background(), logger, dbFlag, countFlag, uint32(startFlag), seedFlag)
	if err != nil {
		logger.Error("error adding test data", zap.Int("inserted", inserted), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	fmt.Printf("Inserted %d users into %s\n", inserted, dbFlag)
}

// addTestData inserts count fake users with consecutive ids starting at
// start. Ids that already exist are skipped. It stops early once the table
// is full and returns the number of rows inserted.
func addTestData(ctx context.Context, logger *zap.Logger, dbFileName string, count int, start uint32, seed int64) (int, error) {
	db, err := sql.Open("minidb", dbFileName)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	faker := gofakeit.New(seed)
	inserted := 0

	for i := range count {
		id := start + uint32(i)
		query := fmt.Sprintf("insert %d %s %s", id, bareword(faker.Username()), bareword(faker.Email()))

		_, err := db.ExecContext(ctx, query)
		if errors.Is(err, minidb.ErrDuplicateKey) {
			logger.Sugar().With("id", id).Debug("skipping existing user")
			continue
		}
		if errors.Is(err, minidb.ErrTableFull) {
			logger.Sugar().With("id", id, "inserted", inserted).Warn("table is full")
			return inserted, nil
		}
		if err != nil {
			return inserted, err
		}
		inserted += 1
	}

	return inserted, db.Close()
}

// bareword drops characters the command parser treats as separators or
// quotes.
func bareword(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@._-", r) {
			return r
		}
		return -1
	}, s)
}
