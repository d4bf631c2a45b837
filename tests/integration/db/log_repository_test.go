package db

import (
	"context"
	"log"
	"testing"
	"time"

	"payment-service/internal/db"
	"payment-service/internal/model"
	"payment-service/tests/testhelpers"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LogRepositoryTestSuite struct {
	suite.Suite
	pgContainer *testhelpers.PostgresContainer
	pool        *pgxpool.Pool
	sut         *db.LogRepository
	ctx         context.Context
}

func (s *LogRepositoryTestSuite) SetupSuite() {
	time.Local = time.UTC

	s.ctx = context.Background()
	pgContainer, err := testhelpers.CreatePostgresContainer(s.ctx)
	if err != nil {
		log.Fatal(err)
	}
	s.pgContainer = pgContainer

	db.RunMigrations(pgContainer.ConnectionString, "../../../migrations")

	pool, err := db.GetPool(pgContainer.ConnectionString)
	if err != nil {
		log.Fatal(err)
	}

	s.pool = pool
	s.sut = db.NewLogRepository(pool)
}

func (s *LogRepositoryTestSuite) TearDownSuite() {
	s.pool.Close()

	if err := s.pgContainer.Terminate(s.ctx); err != nil {
		log.Fatalf("error terminating postgres container: %s", err)
	}
}

func (s *LogRepositoryTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "DELETE FROM paypal_log")
	if err != nil {
		log.Fatalf("error truncating paypal_log table: %s", err)
	}
}

func (s *LogRepositoryTestSuite) TestBegin_RecordsPlaceholder() {
	t := s.T()

	id, err := s.sut.Begin(s.ctx, nil, model.RequestOrderCreate, `{"intent":"CAPTURE"}`)
	assert.NoError(t, err)

	entry, err := s.sut.GetByID(s.ctx, nil, id)
	assert.NoError(t, err)
	assert.Equal(t, model.RequestOrderCreate, entry.RequestType)
	assert.Equal(t, `{"intent":"CAPTURE"}`, entry.RequestData)
	assert.Equal(t, 500, entry.ResponseStatus)
	assert.Nil(t, entry.ResponseData)
	assert.Nil(t, entry.DateResponse)
}

func (s *LogRepositoryTestSuite) TestComplete() {
	t := s.T()

	id, err := s.sut.Begin(s.ctx, nil, model.RequestOrderCapture, `{"id":"ORDER-1"}`)
	assert.NoError(t, err)

	err = s.sut.Complete(s.ctx, nil, id, 201, `{"id":"ORDER-1","status":"COMPLETED"}`)
	assert.NoError(t, err)

	entry, err := s.sut.GetByID(s.ctx, nil, id)
	assert.NoError(t, err)
	assert.Equal(t, 201, entry.ResponseStatus)
	assert.NotNil(t, entry.ResponseData)
	assert.Equal(t, `{"id":"ORDER-1","status":"COMPLETED"}`, *entry.ResponseData)
	assert.NotNil(t, entry.DateResponse)
}

func (s *LogRepositoryTestSuite) TestFail() {
	t := s.T()

	id, err := s.sut.Begin(s.ctx, nil, model.RequestOrderCapture, `{"id":"ORDER-2"}`)
	assert.NoError(t, err)

	err = s.sut.Fail(s.ctx, nil, id, 422, `{"name":"UNPROCESSABLE_ENTITY"}`)
	assert.NoError(t, err)

	entry, err := s.sut.GetByID(s.ctx, nil, id)
	assert.NoError(t, err)
	assert.Equal(t, 422, entry.ResponseStatus)
	assert.NotNil(t, entry.DateResponse)
}

func (s *LogRepositoryTestSuite) TestMarkUnknown_StaysDangling() {
	t := s.T()

	id, err := s.sut.Begin(s.ctx, nil, model.RequestOrderCapture, `{"id":"ORDER-5"}`)
	assert.NoError(t, err)

	err = s.sut.MarkUnknown(s.ctx, nil, id, "dial tcp: i/o timeout")
	assert.NoError(t, err)

	entry, err := s.sut.GetByID(s.ctx, nil, id)
	assert.NoError(t, err)
	assert.NotNil(t, entry.ResponseData)
	assert.Equal(t, "dial tcp: i/o timeout", *entry.ResponseData)
	assert.Nil(t, entry.DateResponse)

	entries, err := s.sut.ListDangling(s.ctx, nil, time.Now().Add(time.Minute))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
}

func (s *LogRepositoryTestSuite) TestListDangling() {
	t := s.T()

	danglingID, err := s.sut.Begin(s.ctx, nil, model.RequestOrderCapture, `{"id":"ORDER-3"}`)
	assert.NoError(t, err)

	completedID, err := s.sut.Begin(s.ctx, nil, model.RequestOrderCapture, `{"id":"ORDER-4"}`)
	assert.NoError(t, err)
	err = s.sut.Complete(s.ctx, nil, completedID, 201, `{}`)
	assert.NoError(t, err)

	entries, err := s.sut.ListDangling(s.ctx, nil, time.Now().Add(time.Minute))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, danglingID, entries[0].ID)
}

func (s *LogRepositoryTestSuite) TestComplete_UnknownID() {
	t := s.T()

	id, err := s.sut.Begin(s.ctx, nil, model.RequestOrderCreate, `{}`)
	assert.NoError(t, err)

	_, err = s.pool.Exec(s.ctx, "DELETE FROM paypal_log WHERE id = $1", id)
	assert.NoError(t, err)

	err = s.sut.Complete(s.ctx, nil, id, 200, `{}`)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestLogRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(LogRepositoryTestSuite))
}
