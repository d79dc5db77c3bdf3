//go:build integration

package uploadlink_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	clientmodels "taxtrail/internal/client/models"
	clientstore "taxtrail/internal/client/store"
	"taxtrail/internal/uploadlink"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
	"taxtrail/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *uploadlink.PostgresStore
	clientID id.ClientID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = uploadlink.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "clients"))

	// upload_links rows hang off a client.
	client, err := clientmodels.NewClient(
		id.ClientID(uuid.New()), id.AccountantID(uuid.New()),
		"Client "+uuid.NewString(), "client@example.com", "",
		2025, clientmodels.TypeIndividual, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(clientstore.NewPostgres(s.postgres.DB).Create(ctx, client))
	s.clientID = client.ID
}

func (s *PostgresStoreSuite) newRecord() *uploadlink.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &uploadlink.Record{
		LinkID:     uuid.New(),
		ClientID:   s.clientID,
		SecretHash: "$2a$10$" + uuid.NewString(),
		ExpiresAt:  now.Add(72 * time.Hour),
		CreatedAt:  now,
	}
}

// TestSaveAndFindRoundTrip verifies field fidelity through storage.
func (s *PostgresStoreSuite) TestSaveAndFindRoundTrip() {
	ctx := context.Background()
	record := s.newRecord()
	s.Require().NoError(s.store.Save(ctx, record))

	found, err := s.store.Find(ctx, record.LinkID)
	s.Require().NoError(err)
	s.Equal(record.LinkID, found.LinkID)
	s.Equal(record.ClientID, found.ClientID)
	s.Equal(record.SecretHash, found.SecretHash)
	s.WithinDuration(record.ExpiresAt, found.ExpiresAt, time.Second)
	s.WithinDuration(record.CreatedAt, found.CreatedAt, time.Second)
}

// TestFindMissingLink verifies an unknown link surfaces as ErrNotFound.
func (s *PostgresStoreSuite) TestFindMissingLink() {
	_, err := s.store.Find(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestDeleteIsSingleUse verifies a deleted link cannot be found or deleted
// again, which is what makes redemption one-shot.
func (s *PostgresStoreSuite) TestDeleteIsSingleUse() {
	ctx := context.Background()
	record := s.newRecord()
	s.Require().NoError(s.store.Save(ctx, record))

	s.Require().NoError(s.store.Delete(ctx, record.LinkID))

	_, err := s.store.Find(ctx, record.LinkID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, record.LinkID), sentinel.ErrNotFound)
}
