package servicerequests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bairdservice/baird-backend/pkg/db/dbtest"
	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/enums"
)

func TestRepositoryFindByID(t *testing.T) {
	db := dbtest.Open(t)
	created := dbtest.MustCreateServiceRequest(t, db)
	repo := NewRepository(db)

	got, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ClientName, got.ClientName)
	require.True(t, got.TechnicianPayout.Equal(created.TechnicianPayout))
	require.False(t, got.Assigned())

	_, err = repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryMarkNotified(t *testing.T) {
	db := dbtest.Open(t)
	pending := dbtest.MustCreateServiceRequest(t, db)
	cancelled := dbtest.MustCreateServiceRequest(t, db, func(r *models.ServiceRequest) {
		r.Status = enums.ServiceRequestStatusCancelled
	})
	repo := NewRepository(db)
	now := time.Now().UTC()

	require.NoError(t, repo.MarkNotified(context.Background(), pending.ID, now))
	require.NoError(t, repo.MarkNotified(context.Background(), cancelled.ID, now))

	reloaded := dbtest.MustLoadServiceRequest(t, db, pending.ID)
	require.Equal(t, enums.ServiceRequestStatusNotified, reloaded.Status)
	require.NotNil(t, reloaded.NotifiedAt)

	untouched := dbtest.MustLoadServiceRequest(t, db, cancelled.ID)
	require.Equal(t, enums.ServiceRequestStatusCancelled, untouched.Status)
	require.Nil(t, untouched.NotifiedAt)
}

func TestRepositoryClaimAssignmentOnlyOnce(t *testing.T) {
	db := dbtest.Open(t)
	request := dbtest.MustCreateServiceRequest(t, db)
	first := dbtest.MustCreateTechnician(t, db, "Ana")
	second := dbtest.MustCreateTechnician(t, db, "Luis")
	repo := NewRepository(db)
	now := time.Now().UTC()

	won, err := repo.ClaimAssignment(context.Background(), request.ID, first.ID, now)
	require.NoError(t, err)
	require.True(t, won)

	won, err = repo.ClaimAssignment(context.Background(), request.ID, second.ID, now)
	require.NoError(t, err)
	require.False(t, won)

	reloaded := dbtest.MustLoadServiceRequest(t, db, request.ID)
	require.Equal(t, enums.ServiceRequestStatusAssigned, reloaded.Status)
	require.NotNil(t, reloaded.TechnicianID)
	require.Equal(t, first.ID, *reloaded.TechnicianID)
	require.NotNil(t, reloaded.AssignedAt)
}

func TestRepositoryClaimAssignmentSkipsClosedRequests(t *testing.T) {
	db := dbtest.Open(t)
	technician := dbtest.MustCreateTechnician(t, db, "Ana")
	repo := NewRepository(db)
	now := time.Now().UTC()

	for _, status := range []enums.ServiceRequestStatus{
		enums.ServiceRequestStatusCancelled,
		enums.ServiceRequestStatusCompleted,
	} {
		request := dbtest.MustCreateServiceRequest(t, db, func(r *models.ServiceRequest) {
			r.Status = status
		})

		won, err := repo.ClaimAssignment(context.Background(), request.ID, technician.ID, now)
		require.NoError(t, err)
		require.False(t, won, status)

		reloaded := dbtest.MustLoadServiceRequest(t, db, request.ID)
		require.Equal(t, status, reloaded.Status)
		require.Nil(t, reloaded.TechnicianID)
	}
}
