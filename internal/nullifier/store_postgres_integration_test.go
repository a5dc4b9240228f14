//go:build integration

package nullifier_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"centralledger/internal/domain"
	"centralledger/internal/nullifier"
	"centralledger/internal/platform/postgres"
	"centralledger/pkg/errors"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	store     *nullifier.PostgresStore
	dbCloser  func() error
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("centralledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := postgres.Open(ctx, dsn)
	s.Require().NoError(err)
	s.Require().NoError(postgres.Migrate(ctx, db))

	s.store = nullifier.NewPostgres(db)
	s.dbCloser = db.Close
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.dbCloser != nil {
		_ = s.dbCloser()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) TestInsertEnforcesUniqueness() {
	ctx := context.Background()

	first := &domain.Nullifier{
		Value: "pg-null-1", FIID: "fi-a", TransactionID: "tx-1",
		SerialNumber: "s1", Amount: 100, RegisteredAt: time.Now(),
	}
	conflicting, err := s.store.Insert(ctx, first)
	s.Require().NoError(err)
	s.Nil(conflicting)

	second := &domain.Nullifier{
		Value: "pg-null-1", FIID: "fi-b", TransactionID: "tx-2",
		SerialNumber: "s2", Amount: 50, RegisteredAt: time.Now(),
	}
	conflicting, err = s.store.Insert(ctx, second)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.CodeDoubleSpend))
	s.Require().NotNil(conflicting)
	s.Equal("tx-1", conflicting.TransactionID)
}

func (s *PostgresStoreSuite) TestConcurrentInsertExactlyOneWins() {
	ctx := context.Background()
	const racers = 16

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.store.Insert(ctx, &domain.Nullifier{
				Value: "pg-contested", FIID: "fi-a", TransactionID: "tx-racer",
				Amount: 10, RegisteredAt: time.Now(),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			s.True(errors.HasCode(err, errors.CodeDoubleSpend))
		}
	}
	s.Equal(1, winners)
}
