//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"chapel/internal/content"
	"chapel/internal/content/store/postgres"
	"chapel/internal/platform/database"
	"chapel/pkg/platform/sentinel"
	"chapel/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "content_items"))
}

func (s *PostgresStoreSuite) TestCreateGetRoundTrip() {
	ctx := context.Background()

	item := &content.Item{
		Kind:  content.KindSermon,
		Title: "Faith",
		Body:  "Hebrews 11",
		Attrs: map[string]string{"speaker": "Pastor John"},
		Files: map[string]content.File{
			"audio": {Location: "sermons/faith.mp3", SizeBytes: 1024},
		},
	}
	s.Require().NoError(s.store.Create(ctx, item))
	s.NotZero(item.ID)

	got, err := s.store.Get(ctx, content.KindSermon, item.ID)
	s.Require().NoError(err)
	s.Equal("Faith", got.Title)
	s.Equal("Pastor John", got.Attrs["speaker"])
	s.Equal(int64(1024), got.Files["audio"].SizeBytes)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()

	item := &content.Item{Kind: content.KindEvent, Title: "Harvest"}
	s.Require().NoError(s.store.Create(ctx, item))

	item.Title = "Harvest Service"
	s.Require().NoError(s.store.Update(ctx, item))

	got, err := s.store.Get(ctx, content.KindEvent, item.ID)
	s.Require().NoError(err)
	s.Equal("Harvest Service", got.Title)

	s.Require().NoError(s.store.Delete(ctx, content.KindEvent, item.ID))
	_, err = s.store.Get(ctx, content.KindEvent, item.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExists() {
	ctx := context.Background()

	item := &content.Item{Kind: content.KindBranch, Title: "North Campus"}
	s.Require().NoError(s.store.Create(ctx, item))

	exists, err := s.store.Exists(ctx, content.KindBranch, item.ID)
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.Exists(ctx, content.KindBranch, item.ID+1)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *PostgresStoreSuite) TestTxRollbackLeavesNoRow() {
	ctx := context.Background()

	runner := database.NewSQLRunner(s.postgres.DB)
	var createdID int64
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		item := &content.Item{Kind: content.KindSermon, Title: "Doomed"}
		if err := s.store.Create(ctx, item); err != nil {
			return err
		}
		createdID = item.ID
		return context.Canceled
	})
	s.Require().Error(err)

	_, err = s.store.Get(ctx, content.KindSermon, createdID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
