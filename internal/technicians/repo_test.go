package technicians

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bairdservice/baird-backend/pkg/db/dbtest"
	"github.com/bairdservice/baird-backend/pkg/enums"
)

func TestRepositoryFindEligibleMatchesCitySubstring(t *testing.T) {
	db := dbtest.Open(t)
	base := time.Now().UTC().Add(-time.Hour)
	capital := dbtest.MustCreateTechnician(t, db, "Ana", dbtest.WithCity("Bogotá D.C."), dbtest.WithCreatedAt(base))
	dbtest.MustCreateTechnician(t, db, "Luis", dbtest.WithCity("Medellín"), dbtest.WithCreatedAt(base.Add(time.Minute)))

	repo := NewRepository(db)
	got, err := repo.FindEligible(context.Background(), enums.EquipmentTypeFridge, "bogotá")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, capital.ID, got[0].ID)
}

func TestRepositoryFindEligibleFoldsNonASCIICase(t *testing.T) {
	db := dbtest.Open(t)
	capital := dbtest.MustCreateTechnician(t, db, "Ana", dbtest.WithCity("Bogotá D.C."))
	dbtest.MustCreateTechnician(t, db, "Luis", dbtest.WithCity("MEDELLÍN"))

	repo := NewRepository(db)
	got, err := repo.FindEligible(context.Background(), enums.EquipmentTypeFridge, "BOGOTÁ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, capital.ID, got[0].ID)

	got, err = repo.FindEligible(context.Background(), enums.EquipmentTypeFridge, "medellín")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Luis", got[0].Name)
}

func TestRepositoryFindEligibleFiltersVerificationAndSpecialty(t *testing.T) {
	db := dbtest.Open(t)
	base := time.Now().UTC().Add(-time.Hour)
	first := dbtest.MustCreateTechnician(t, db, "Ana",
		dbtest.WithSpecialties(enums.EquipmentTypeFridge, enums.EquipmentTypeWasher),
		dbtest.WithCreatedAt(base))
	dbtest.MustCreateTechnician(t, db, "Pedro",
		dbtest.WithVerification(enums.VerificationStatusPending),
		dbtest.WithCreatedAt(base.Add(time.Minute)))
	dbtest.MustCreateTechnician(t, db, "Carla",
		dbtest.WithSpecialties(enums.EquipmentTypeOven),
		dbtest.WithCreatedAt(base.Add(2*time.Minute)))
	last := dbtest.MustCreateTechnician(t, db, "Jorge", dbtest.WithCreatedAt(base.Add(3*time.Minute)))

	repo := NewRepository(db)
	got, err := repo.FindEligible(context.Background(), enums.EquipmentTypeFridge, "Bogotá")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, first.ID, got[0].ID)
	require.Equal(t, last.ID, got[1].ID)
}

func TestRepositoryFindEligibleTreatsWildcardsLiterally(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.MustCreateTechnician(t, db, "Ana", dbtest.WithCity("Bogotá"))

	repo := NewRepository(db)
	got, err := repo.FindEligible(context.Background(), enums.EquipmentTypeFridge, "%")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestRepositoryFindByID(t *testing.T) {
	db := dbtest.Open(t)
	created := dbtest.MustCreateTechnician(t, db, "Ana", dbtest.WithSpecialties(enums.EquipmentTypeDryer))

	repo := NewRepository(db)
	got, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana", got.Name)
	require.Len(t, got.Specialties, 1)
	require.Equal(t, enums.EquipmentTypeDryer, got.Specialties[0].Specialty)

	_, err = repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
