package e2etests

import (
	"fmt"
	"sync"
)

func (s *TestSuite) TestConcurrency() {
	s.db.SetMaxOpenConns(10)

	usersToInsert := gen.Users(500)

	s.Run("Concurrently insert rows", func() {
		workerPool := make(chan struct{}, 10)
		wg := sync.WaitGroup{}
		errs := make(chan error, len(usersToInsert))

		for _, aUser := range usersToInsert {
			workerPool <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-workerPool }()

				_, err := s.db.Exec(fmt.Sprintf("insert %d %s %s", aUser.ID, aUser.Username, aUser.Email))
				errs <- err
			}()
		}

		wg.Wait()
		close(errs)
		for err := range errs {
			s.Require().NoError(err)
		}

		s.countUsers(500)
	})

	s.Run("Reinitialise to force unmarshaling from disk", func() {
		s.reopen("")
		s.countUsers(500)
	})

	s.Run("Concurrently run select queries", func() {
		wg := sync.WaitGroup{}
		results := make(chan user, 100)

		for _, aUser := range usersToInsert[:100] {
			wg.Add(1)
			go func() {
				defer wg.Done()

				var actual user
				err := s.db.QueryRow(fmt.Sprintf("select %d", aUser.ID)).Scan(&actual.ID, &actual.Username, &actual.Email)
				if err != nil {
					actual = user{}
				}
				results <- actual
			}()
		}

		wg.Wait()
		close(results)

		var found []user
		for aUser := range results {
			found = append(found, aUser)
		}
		s.ElementsMatch(usersToInsert[:100], found)
	})
}
