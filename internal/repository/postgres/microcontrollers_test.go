package postgres

import (
	"testing"

	"microcloudlab-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionIDs(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	requested, valid, invalid := partitionIDs([]string{
		first.String(),
		"not-a-uuid",
		second.String(),
		first.String(),
		"",
	})

	assert.Equal(t, 4, requested)
	assert.Equal(t, []uuid.UUID{first, second}, valid)
	require.Len(t, invalid, 2)
	assert.Equal(t, "not-a-uuid", invalid[0].ID)
	assert.Equal(t, models.ReasonInvalidID, invalid[0].Reason)
	assert.Equal(t, "", invalid[1].ID)
}

func TestPartitionIDs_Empty(t *testing.T) {
	requested, valid, invalid := partitionIDs(nil)
	assert.Zero(t, requested)
	assert.Empty(t, valid)
	assert.Empty(t, invalid)
}

func TestBuildBulkDeleteResult(t *testing.T) {
	deletable := uuid.New()
	protected := uuid.New()
	missing := uuid.New()

	found := map[uuid.UUID]models.Microcontroller{
		deletable: {ID: deletable, Name: "Dev board", Type: "ESP32", IsDeletable: true},
		protected: {ID: protected, Name: "Lab PICO", Type: "RASPBERRY_PI_PICO", IsDeletable: false},
	}
	invalid := []models.BulkDeleteFailure{{ID: "bad", Reason: models.ReasonInvalidID}}

	result := buildBulkDeleteResult(4, []uuid.UUID{deletable, protected, missing}, invalid, found)

	assert.Equal(t, 4, result.TotalRequested)
	assert.Equal(t, 1, result.SuccessfulDeletions)
	assert.Equal(t, 3, result.FailedDeletions)

	require.Len(t, result.DeletedMicrocontrollers, 1)
	assert.Equal(t, models.DeletedMicrocontroller{ID: deletable.String(), Name: "Dev board", Type: "ESP32"},
		result.DeletedMicrocontrollers[0])

	require.Len(t, result.InvalidIDs, 3)
	assert.Equal(t, models.ReasonInvalidID, result.InvalidIDs[0].Reason)
	assert.Equal(t, models.BulkDeleteFailure{ID: protected.String(), Name: "Lab PICO", Reason: models.ReasonNotDeletable},
		result.InvalidIDs[1])
	assert.Equal(t, models.BulkDeleteFailure{ID: missing.String(), Reason: models.ReasonNotFound},
		result.InvalidIDs[2])
}

func TestBuildBulkDeleteResult_NothingValid(t *testing.T) {
	result := buildBulkDeleteResult(0, nil, nil, nil)

	assert.NotNil(t, result.DeletedMicrocontrollers)
	assert.NotNil(t, result.InvalidIDs)
	assert.Zero(t, result.SuccessfulDeletions)
	assert.Zero(t, result.FailedDeletions)
}

func TestUUIDStrings(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, []string{id.String()}, uuidStrings([]uuid.UUID{id}))
}
