//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docgov/internal/policy/models"
	"docgov/internal/policy/store"
	id "docgov/pkg/domain"
	"docgov/pkg/testutil/containers"
)

type PostgresGrantSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresGrantStore
}

func TestPostgresGrantSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresGrantSuite))
}

func (s *PostgresGrantSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresGrantSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "capability_grants"))
}

func (s *PostgresGrantSuite) TestAddAndListByActor() {
	ctx := context.Background()
	actorID := id.NewActorID()
	docID := id.NewDocumentID()
	from := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)
	until := from.Add(24 * time.Hour)

	global := models.Grant{
		ActorID:    actorID,
		Capability: models.CapabilityAuthor,
		ValidFrom:  from,
	}
	scoped := models.Grant{
		ActorID:    actorID,
		Capability: models.CapabilityReviewer,
		DocumentID: &docID,
		ValidFrom:  from,
		ValidUntil: &until,
	}
	s.Require().NoError(s.store.Add(ctx, global))
	s.Require().NoError(s.store.Add(ctx, scoped))
	s.Require().NoError(s.store.Add(ctx, models.Grant{
		ActorID:    id.NewActorID(),
		Capability: models.CapabilityApprover,
		ValidFrom:  from,
	}))

	grants, err := s.store.ListByActor(ctx, actorID)
	s.Require().NoError(err)
	s.Require().Len(grants, 2)

	byCapability := make(map[models.Capability]models.Grant, len(grants))
	for _, g := range grants {
		byCapability[g.Capability] = g
	}

	got := byCapability[models.CapabilityAuthor]
	s.Equal(actorID, got.ActorID)
	s.Nil(got.DocumentID)
	s.Nil(got.ValidUntil)
	s.True(from.Equal(got.ValidFrom))

	got = byCapability[models.CapabilityReviewer]
	s.Require().NotNil(got.DocumentID)
	s.Equal(docID, *got.DocumentID)
	s.Require().NotNil(got.ValidUntil)
	s.True(until.Equal(*got.ValidUntil))
}

func (s *PostgresGrantSuite) TestRemoveByCapability() {
	ctx := context.Background()
	actorID := id.NewActorID()
	from := time.Now().UTC().Add(-time.Hour)

	s.Require().NoError(s.store.Add(ctx, models.Grant{ActorID: actorID, Capability: models.CapabilityAuthor, ValidFrom: from}))
	s.Require().NoError(s.store.Add(ctx, models.Grant{ActorID: actorID, Capability: models.CapabilityReviewer, ValidFrom: from}))

	s.Require().NoError(s.store.RemoveByCapability(ctx, actorID, models.CapabilityAuthor))

	grants, err := s.store.ListByActor(ctx, actorID)
	s.Require().NoError(err)
	s.Require().Len(grants, 1)
	s.Equal(models.CapabilityReviewer, grants[0].Capability)
}

func (s *PostgresGrantSuite) TestListUnknownActor() {
	grants, err := s.store.ListByActor(context.Background(), id.NewActorID())
	s.Require().NoError(err)
	s.Empty(grants)
}
