package e2etests

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/suite"

	_ "github.com/RichardKnop/minidb"
)

type user struct {
	ID       int64
	Username string
	Email    string
}

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed int64) *dataGen {
	return &dataGen{Faker: gofakeit.New(seed)}
}

// Users returns n users with ids 1..n in random order.
func (g *dataGen) Users(n int) []user {
	users := make([]user, 0, n)
	for i := range n {
		users = append(users, user{
			ID:       int64(i + 1),
			Username: bareword(g.Username()),
			Email:    bareword(g.Email()),
		})
	}
	g.ShuffleAnySlice(users)
	return users
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

var gen = newDataGen(time.Now().Unix())

type TestSuite struct {
	suite.Suite
	dbFile *os.File
	db     *sql.DB
}

func TestEndToEnd(t *testing.T) {
	suite.Run(t, new(TestSuite))
}

func (s *TestSuite) SetupTest() {
	dbFile, err := os.CreateTemp("", "e2e-*.db")
	s.Require().NoError(err)
	s.dbFile = dbFile

	s.db, err = sql.Open("minidb", s.dbFile.Name()+"?log_level=warn")
	s.Require().NoError(err)
}

func (s *TestSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
	s.Require().NoError(s.dbFile.Close())
	s.Require().NoError(os.Remove(s.dbFile.Name()))
}

// reopen closes every pooled connection so the database file is flushed and
// closed, then opens it again with the given query parameters.
func (s *TestSuite) reopen(params string) {
	s.Require().NoError(s.db.Close())

	var err error
	s.db, err = sql.Open("minidb", s.dbFile.Name()+params)
	s.Require().NoError(err)
}

func (s *TestSuite) insertUsers(users ...user) {
	for _, aUser := range users {
		s.execQuery(fmt.Sprintf("insert %d %s %s", aUser.ID, aUser.Username, aUser.Email), 1)
	}
}

func (s *TestSuite) execQuery(query string, expectedRowsAffected int64) {
	aResult, err := s.db.Exec(query)
	s.Require().NoError(err)

	rowsAffected, err := aResult.RowsAffected()
	s.Require().NoError(err)
	s.Equal(expectedRowsAffected, rowsAffected)
}

func (s *TestSuite) collectUsers(query string) []user {
	rows, err := s.db.Query(query)
	s.Require().NoError(err)
	defer rows.Close()

	columns, err := rows.Columns()
	s.Require().NoError(err)
	s.Equal([]string{"id", "username", "email"}, columns)

	var users []user
	for rows.Next() {
		var aUser user
		err := rows.Scan(&aUser.ID, &aUser.Username, &aUser.Email)
		s.Require().NoError(err)
		users = append(users, aUser)
	}
	s.Require().NoError(rows.Err())

	return users
}

func (s *TestSuite) countUsers(expected int) {
	users := s.collectUsers("select")
	s.Len(users, expected)
}
