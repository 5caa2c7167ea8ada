package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slackimporter/middleware"
	"slackimporter/models"
	"slackimporter/services"
	"slackimporter/services/entitygraph"
	"slackimporter/supervisor"
)

type testDeps struct {
	handler   *Handler
	router    *mux.Router
	jobs      *services.MockImportJobsRepository
	entities  *services.MockEntitiesRepository
	relations *services.MockEntityRelationsRepository
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	jobs := &services.MockImportJobsRepository{}
	entities := &services.MockEntitiesRepository{}
	relations := &services.MockEntityRelationsRepository{}
	graph := entitygraph.New(entities, relations)
	sup := supervisor.New(jobs, graph, nil, noopExporter{})

	h := New(sup, graph, t.TempDir())
	router := mux.NewRouter()
	h.SetupEndpoints(router, middleware.NewAPIKeyMiddleware(""))

	return &testDeps{handler: h, router: router, jobs: jobs, entities: entities, relations: relations}
}

type noopExporter struct{}

func (noopExporter) Run(ctx context.Context, anchorJobID *int64) error { return nil }

func TestHandleHealthcheck(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleStatsMappings(t *testing.T) {
	deps := newTestDeps(t)
	deps.entities.On("CountMatrix", mock.Anything).Return(map[models.EntityType]map[models.EntityStatus]int{
		models.EntityTypeMessage: {models.EntityStatusExported: 5, models.EntityStatusPending: 2},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats/mappings", nil)
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ByType map[models.EntityType]int `json:"by_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body.ByType[models.EntityTypeMessage])
}

func TestHandleGetJob_NotFound(t *testing.T) {
	deps := newTestDeps(t)
	deps.jobs.On("GetJobByID", mock.Anything, int64(42)).Return(mo.None[*models.ImportJob](), nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/42", nil)
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetJob_Found(t *testing.T) {
	deps := newTestDeps(t)
	job := &models.ImportJob{
		ID:           7,
		Status:       models.JobStatusSuccess,
		CurrentStage: models.StageDone,
		Meta:         mustMarshalMeta(t, models.JobMeta{Totals: models.EntityCounts{Messages: 3}, JSONFilesTotal: 1}),
	}
	deps.jobs.On("GetJobByID", mock.Anything, int64(7)).Return(mo.Some(job), nil)
	deps.entities.On("CountByJobTypeNonPending", mock.Anything, int64(7), models.EntityTypeMessage).Return(3, nil)
	deps.entities.On("CountByJobTypeNonPending", mock.Anything, int64(7), models.EntityTypeReaction).Return(0, nil)
	deps.entities.On("CountByJobTypeNonPending", mock.Anything, int64(7), models.EntityTypeAttachment).Return(0, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/7", nil)
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var progress supervisor.JobProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Equal(t, 3, progress.Totals.Messages)
}

func TestHandleDeleteJob(t *testing.T) {
	deps := newTestDeps(t)
	job := &models.ImportJob{ID: 9, ArchivePath: ""}
	deps.jobs.On("GetJobByID", mock.Anything, int64(9)).Return(mo.Some(job), nil)
	deps.jobs.On("DeleteJob", mock.Anything, int64(9)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/jobs/9", nil)
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandleListJobs_InvalidLimit(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs?limit=-1", nil)
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func mustMarshalMeta(t *testing.T, meta models.JobMeta) []byte {
	t.Helper()
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	return raw
}
