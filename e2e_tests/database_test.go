package e2etests

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/RichardKnop/minidb"
)

func (s *TestSuite) TestEmptyDatabase() {
	err := s.db.Ping()
	s.Require().NoError(err)

	s.countUsers(0)

	var aUser user
	err = s.db.QueryRow("select 1").Scan(&aUser.ID, &aUser.Username, &aUser.Email)
	s.ErrorContains(err, "no rows in result set")
}

func (s *TestSuite) TestInsertAndSelect() {
	users := gen.Users(50)
	s.insertUsers(users...)

	s.Run("Select returns rows ordered by id", func() {
		expected := slices.Clone(users)
		slices.SortFunc(expected, func(a, b user) int { return int(a.ID - b.ID) })

		s.Equal(expected, s.collectUsers("select"))
	})

	s.Run("Select a single row by id", func() {
		for _, aUser := range users[:10] {
			var actual user
			err := s.db.QueryRow(fmt.Sprintf("select %d", aUser.ID)).Scan(&actual.ID, &actual.Username, &actual.Email)
			s.Require().NoError(err)
			s.Equal(aUser, actual)
		}
	})

	s.Run("Select a missing id returns no rows", func() {
		s.Empty(s.collectUsers("select 1000"))
	})

	s.Run("Multiple statements in one exec", func() {
		s.execQuery("insert 51 alice alice@example.com; insert 52 bob bob@example.com", 2)
		s.countUsers(52)
	})
}

func (s *TestSuite) TestInsertErrors() {
	s.insertUsers(user{ID: 1, Username: "user1", Email: "person1@example.com"})

	s.Run("Duplicate key", func() {
		_, err := s.db.Exec("insert 1 user1 person1@example.com")
		s.Require().Error(err)
		s.ErrorIs(err, minidb.ErrDuplicateKey)
	})

	s.Run("Negative id", func() {
		_, err := s.db.Exec("insert -1 cstack foo@bar.com")
		s.Require().Error(err)
		s.ErrorIs(err, minidb.ErrNegativeID)
	})

	s.Run("String too long", func() {
		_, err := s.db.Exec("insert 2 " + strings.Repeat("a", 33) + " a@b.c")
		s.Require().Error(err)
		s.ErrorIs(err, minidb.ErrStringTooLong)
	})

	s.Run("Missing arguments", func() {
		_, err := s.db.Exec("insert 2 user2")
		s.Require().Error(err)
		s.ErrorIs(err, minidb.ErrSyntax)
	})

	s.Run("Placeholders are not supported", func() {
		_, err := s.db.Exec("insert 2 user2 person2@example.com", 2)
		s.Require().Error(err)
	})

	s.countUsers(1)
}

func (s *TestSuite) TestTableFull() {
	s.reopen("?max_pages=2")

	// Splitting the root leaf needs two new pages, one more than the limit
	// allows.
	users := make([]user, 0, 14)
	for i := range 14 {
		users = append(users, user{ID: int64(i + 1), Username: "user", Email: "person@example.com"})
	}
	s.insertUsers(users[:13]...)

	_, err := s.db.Exec("insert 14 user person@example.com")
	s.Require().Error(err)
	s.ErrorIs(err, minidb.ErrTableFull)

	s.Equal(users[:13], s.collectUsers("select"))
}

func (s *TestSuite) TestPersistence() {
	users := gen.Users(100)
	s.insertUsers(users...)

	s.reopen("?max_cached_pages=2")

	actual := s.collectUsers("select")
	s.Require().Len(actual, 100)
	for i, aUser := range actual {
		s.Equal(int64(i+1), aUser.ID)
	}
}

func (s *TestSuite) TestPreparedStatements() {
	stmt, err := s.db.Prepare("insert 1 user1 person1@example.com")
	s.Require().NoError(err)

	aResult, err := stmt.Exec()
	s.Require().NoError(err)
	rowsAffected, err := aResult.RowsAffected()
	s.Require().NoError(err)
	s.Equal(int64(1), rowsAffected)
	s.Require().NoError(stmt.Close())

	_, err = aResult.LastInsertId()
	s.Require().Error(err)

	stmt, err = s.db.Prepare("select 1")
	s.Require().NoError(err)
	defer stmt.Close()

	var aUser user
	err = stmt.QueryRow().Scan(&aUser.ID, &aUser.Username, &aUser.Email)
	s.Require().NoError(err)
	s.Equal(user{ID: 1, Username: "user1", Email: "person1@example.com"}, aUser)

	_, err = s.db.Prepare("insert 2 a a@b.c; insert 3 b b@c.d")
	s.Require().Error(err)
}

func (s *TestSuite) TestTransactionsNotSupported() {
	_, err := s.db.BeginTx(context.Background(), nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "transactions are not supported")
}
