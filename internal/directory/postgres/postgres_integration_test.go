//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"principalcheck/internal/directory"
	"principalcheck/internal/directory/postgres"
	"principalcheck/internal/principal/models"
	"principalcheck/pkg/testutil/containers"
)

type PostgresDirectorySuite struct {
	suite.Suite
	pg  *containers.PostgresContainer
	dir *postgres.Directory
}

func TestPostgresDirectorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDirectorySuite))
}

func (s *PostgresDirectorySuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.dir = postgres.New(s.pg.DB)
	s.Require().NoError(s.dir.EnsureSchema(context.Background()))
}

func (s *PostgresDirectorySuite) TearDownSuite() {
	s.pg.Terminate(s.T())
}

func (s *PostgresDirectorySuite) SetupTest() {
	ctx := context.Background()
	_, err := s.pg.DB.ExecContext(ctx, `TRUNCATE directory_users, directory_groups`)
	s.Require().NoError(err)

	s.Require().NoError(s.dir.UpsertUser(ctx, models.User{ID: "alice", UniqueName: "alice@example.com", DisplayName: "Alice Example"}))
	s.Require().NoError(s.dir.UpsertGroup(ctx, models.Group{ID: "admins", DisplayName: "Administrators"}))
}

func (s *PostgresDirectorySuite) TestLookupUser() {
	ctx := context.Background()

	u, err := s.dir.LookupUser(ctx, "ALICE")
	s.Require().NoError(err)
	s.Equal("alice@example.com", u.UniqueName)

	u, err = s.dir.LookupUser(ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal("alice", u.ID)

	_, err = s.dir.LookupUser(ctx, "bob")
	s.Require().ErrorIs(err, directory.ErrNotFound)
}

func (s *PostgresDirectorySuite) TestLookupGroup() {
	ctx := context.Background()

	g, err := s.dir.LookupGroup(ctx, "administrators")
	s.Require().NoError(err)
	s.Equal("admins", g.ID)

	_, err = s.dir.LookupGroup(ctx, "alice")
	s.Require().ErrorIs(err, directory.ErrNotFound)
}

func (s *PostgresDirectorySuite) TestUpsertReplacesDisplayName() {
	ctx := context.Background()
	s.Require().NoError(s.dir.UpsertUser(ctx, models.User{ID: "alice", UniqueName: "alice@example.com", DisplayName: "Alice E."}))

	u, err := s.dir.LookupUser(ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice E.", u.DisplayName)
}

func (s *PostgresDirectorySuite) TestClosedPoolIsAuthError() {
	db := containers.OpenPostgres(s.T(), s.pg.URL)
	s.Require().NoError(db.Close())

	_, err := postgres.New(db).LookupGroup(context.Background(), "admins")
	s.Equal(directory.ResultAuthError, directory.Classify(err))
}
