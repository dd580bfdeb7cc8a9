package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"microcloudlab-backend/internal/models"
	"microcloudlab-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context) ([]models.Microcontroller, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Microcontroller), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, id uuid.UUID) (models.Microcontroller, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Microcontroller), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, mc models.Microcontroller) (models.Microcontroller, error) {
	args := m.Called(ctx, mc)
	return args.Get(0).(models.Microcontroller), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) (models.Microcontroller, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Microcontroller), args.Error(1)
}

func (m *MockRepository) BulkDelete(ctx context.Context, ids []string) (models.BulkDeleteResult, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(models.BulkDeleteResult), args.Error(1)
}

func (m *MockRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func sampleMicrocontroller() models.Microcontroller {
	return models.Microcontroller{
		ID:             uuid.New(),
		Name:           "ESP32 DevKit",
		Type:           "ESP32",
		Description:    "Wi-Fi board",
		Specifications: models.Configuration{"flash": models.StringValue("4MB")},
		IsAvailable:    true,
		IsDeletable:    true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
}

func TestMicrocontrollers_CatalogDisabled(t *testing.T) {
	router, _ := newTestRouter()

	for _, path := range []string{"/microcontrollers/", "/microcontrollers/" + uuid.NewString() + "/"} {
		w := do(router, "GET", path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"error"`)
	}
}

func TestListMicrocontrollers(t *testing.T) {
	repo := new(MockRepository)
	router, _ := newTestRouter(WithCatalog(repo))
	mc := sampleMicrocontroller()
	repo.On("List", mock.Anything).Return([]models.Microcontroller{mc}, nil)

	w := do(router, "GET", "/microcontrollers/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status string                   `json:"status"`
		Data   []models.Microcontroller `json:"data"`
		Count  int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, mc.ID, resp.Data[0].ID)
	assert.Equal(t, "4MB", resp.Data[0].Specifications.GetString("flash"))
	repo.AssertExpectations(t)
}

func TestGetMicrocontroller(t *testing.T) {
	repo := new(MockRepository)
	router, _ := newTestRouter(WithCatalog(repo))
	mc := sampleMicrocontroller()
	missing := uuid.New()

	repo.On("Get", mock.Anything, mc.ID).Return(mc, nil)
	repo.On("Get", mock.Anything, missing).Return(models.Microcontroller{}, repository.ErrNotFound)

	w := do(router, "GET", "/microcontrollers/"+mc.ID.String()+"/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), mc.Name)

	w = do(router, "GET", "/microcontrollers/"+missing.String()+"/", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, "GET", "/microcontrollers/not-a-uuid/", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	repo.AssertExpectations(t)
}

func TestCreateMicrocontroller(t *testing.T) {
	repo := new(MockRepository)
	router, _ := newTestRouter(WithCatalog(repo))
	created := sampleMicrocontroller()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(mc models.Microcontroller) bool {
		return mc.Name == "ESP32 DevKit" && mc.Type == "ESP32" && mc.IsDeletable && mc.IsAvailable
	})).Return(created, nil)

	w := do(router, "POST", "/microcontrollers/", `{"name":"ESP32 DevKit","type":"ESP32","specifications":{"flash":"4MB"}}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), created.ID.String())

	w = do(router, "POST", "/microcontrollers/", `{"name":"Z80 board","type":"Z80"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/microcontrollers/", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	repo.AssertExpectations(t)
}

func TestCreateMicrocontroller_RepositoryError(t *testing.T) {
	repo := new(MockRepository)
	router, _ := newTestRouter(WithCatalog(repo))
	repo.On("Create", mock.Anything, mock.Anything).Return(models.Microcontroller{}, errors.New("db down"))

	w := do(router, "POST", "/microcontrollers/", `{"name":"Pico","type":"RASPBERRY_PI_PICO"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDeleteMicrocontroller(t *testing.T) {
	repo := new(MockRepository)
	router, _ := newTestRouter(WithCatalog(repo))
	mc := sampleMicrocontroller()
	locked := sampleMicrocontroller()
	locked.IsDeletable = false
	missing := uuid.New()

	repo.On("Delete", mock.Anything, mc.ID).Return(mc, nil)
	repo.On("Delete", mock.Anything, locked.ID).Return(locked, repository.ErrNotDeletable)
	repo.On("Delete", mock.Anything, missing).Return(models.Microcontroller{}, repository.ErrNotFound)

	w := do(router, "DELETE", "/microcontrollers/"+mc.ID.String()+"/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), mc.ID.String())

	w = do(router, "DELETE", "/microcontrollers/"+locked.ID.String()+"/", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, "DELETE", "/microcontrollers/"+missing.String()+"/", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	repo.AssertExpectations(t)
}

func TestBulkDeleteMicrocontrollers(t *testing.T) {
	repo := new(MockRepository)
	router, _ := newTestRouter(WithCatalog(repo))
	mc := sampleMicrocontroller()

	result := models.BulkDeleteResult{
		TotalRequested:      2,
		SuccessfulDeletions: 1,
		FailedDeletions:     1,
		DeletedMicrocontrollers: []models.DeletedMicrocontroller{
			{ID: mc.ID.String(), Name: mc.Name, Type: mc.Type},
		},
		InvalidIDs: []models.BulkDeleteFailure{
			{ID: "bad", Reason: models.ReasonInvalidID},
		},
	}
	repo.On("BulkDelete", mock.Anything, []string{mc.ID.String(), "bad"}).Return(result, nil)

	w := do(router, "POST", "/microcontrollers/bulk-delete/", `{"ids":["`+mc.ID.String()+`","bad"]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.BulkDeleteResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, result, resp)

	w = do(router, "POST", "/microcontrollers/bulk-delete/", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	repo.AssertExpectations(t)
}

func TestHealthCheck_WithDatabase(t *testing.T) {
	repo := new(MockRepository)
	repo.On("HealthCheck", mock.Anything).Return(nil)
	router, _ := newTestRouter(WithCatalog(repo))

	w := do(router, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
	repo.AssertExpectations(t)
}
