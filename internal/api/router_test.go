package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexbridge-tech/bugspotter/internal/api"
	"github.com/apexbridge-tech/bugspotter/internal/api/models"
	"github.com/apexbridge-tech/bugspotter/internal/archive"
	"github.com/apexbridge-tech/bugspotter/internal/auth"
	"github.com/apexbridge-tech/bugspotter/internal/project"
	"github.com/apexbridge-tech/bugspotter/internal/report"
	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// testJWTService creates a JWT service for generating test tokens.
func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.bugspotter.dev",
		Audience:   "bugspotter-admin",
	})
}

// testFixture bundles the router with its backing stores.
type testFixture struct {
	router   http.Handler
	reports  *report.InMemoryRepository
	projects *project.InMemoryRepository

	// expiredIDs are seeded reports past the free tier's retention.
	expiredIDs []string
	// heldID is a seeded report on legal hold.
	heldID string
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	logger := zerolog.New(io.Discard)
	reports := report.NewInMemoryRepository()
	projects := project.NewInMemoryRepository()

	require.NoError(t, projects.Create(context.Background(), &project.Project{
		ID:        "p1",
		Name:      "Acme",
		Tier:      retention.TierFree,
		CreatedAt: time.Now(),
	}))

	f := &testFixture{reports: reports, projects: projects}
	for i := 0; i < 3; i++ {
		id := uuid.New().String()
		f.expiredIDs = append(f.expiredIDs, id)
		require.NoError(t, reports.Create(context.Background(), &report.BugReport{
			ID:           id,
			ProjectID:    "p1",
			Title:        fmt.Sprintf("crash %d", i),
			Severity:     "high",
			StorageBytes: 1024,
			CreatedAt:    time.Now().AddDate(0, 0, -120),
		}))
	}
	f.heldID = uuid.New().String()
	require.NoError(t, reports.Create(context.Background(), &report.BugReport{
		ID:        f.heldID,
		ProjectID: "p1",
		Title:     "under litigation",
		Severity:  "low",
		CreatedAt: time.Now().AddDate(0, 0, -200),
		LegalHold: true,
	}))

	projectService := project.NewService(projects, logger)
	retentionService := retention.NewService(retention.ServiceConfig{
		Reports:  reports,
		Projects: projectService,
		Archiver: archive.NewInMemoryArchiver(),
		Logger:   logger,
	})

	f.router = api.NewRouter(api.RouterConfig{
		Version:          "test",
		BuildTime:        "2026-01-01T00:00:00Z",
		Logger:           logger,
		JWTService:       testJWTService(),
		RetentionService: retentionService,
		ProjectService:   projectService,
	})
	return f
}

// addAuthHeader adds a Bearer token with the given role to the request.
func addAuthHeader(t *testing.T, req *http.Request, role string) {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken("usr_testadmin", role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func adminRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, auth.RoleAdmin)
	return req
}

func TestRouter_HealthCheck(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminRoutesRequireAuth(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/retention/preview", http.NoBody)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_AdminRoutesRejectMembers(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/retention/preview", http.NoBody)
	addAuthHeader(t, req, "member")
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_RetentionPreview(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodGet, "/v1/admin/retention/preview", nil)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var preview retention.Preview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))

	assert.Equal(t, 3, preview.TotalReports)
	assert.EqualValues(t, 1, preview.LegalHoldCount)
	require.Len(t, preview.AffectedProjects, 1)
	assert.Equal(t, "p1", preview.AffectedProjects[0].ProjectID)
}

func TestRouter_RetentionPreview_UnknownProject(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodGet, "/v1/admin/retention/preview?projectId=missing", nil)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RetentionApply_DryRun(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodPost, "/v1/admin/retention/apply", models.ApplyRetentionRequest{DryRun: true})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result retention.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.EqualValues(t, 3, result.TotalDeleted)

	// Dry run mutates nothing.
	r, err := f.reports.Get(context.Background(), f.expiredIDs[0])
	require.NoError(t, err)
	assert.False(t, r.SoftDeleted())
}

func TestRouter_RetentionApply(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodPost, "/v1/admin/retention/apply", models.ApplyRetentionRequest{Confirm: true})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result retention.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.EqualValues(t, 3, result.TotalDeleted)

	r, err := f.reports.Get(context.Background(), f.expiredIDs[0])
	require.NoError(t, err)
	assert.True(t, r.SoftDeleted())

	// The held report survives.
	held, err := f.reports.Get(context.Background(), f.heldID)
	require.NoError(t, err)
	assert.False(t, held.SoftDeleted())
}

func TestRouter_RetentionApply_ValidationError(t *testing.T) {
	f := newTestFixture(t)

	tooBig := 5000
	req := adminRequest(t, http.MethodPost, "/v1/admin/retention/apply", models.ApplyRetentionRequest{
		DryRun:    true,
		BatchSize: &tooBig,
	})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "batchSize", problem.Errors[0].Field)
}

func TestRouter_LegalHold(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodPost, "/v1/admin/retention/legal-hold", models.LegalHoldRequest{
		ReportIDs: f.expiredIDs[:2],
		Hold:      true,
	})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.LegalHoldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.Updated)
	assert.True(t, resp.Hold)
}

func TestRouter_LegalHold_InvalidIDs(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodPost, "/v1/admin/retention/legal-hold", models.LegalHoldRequest{
		ReportIDs: []string{"not-a-uuid"},
		Hold:      true,
	})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "reportIds[0]", problem.Errors[0].Field)
}

func TestRouter_Restore(t *testing.T) {
	f := newTestFixture(t)

	// Soft-delete first.
	_, err := f.reports.SoftDelete(context.Background(), f.expiredIDs, "admin")
	require.NoError(t, err)

	req := adminRequest(t, http.MethodPost, "/v1/admin/retention/restore", models.RestoreRequest{
		ReportIDs: f.expiredIDs,
	})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.RestoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp.Restored)
}

func TestRouter_HardDelete_RequiresConfirm(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodPost, "/v1/admin/retention/hard-delete", models.HardDeleteRequest{
		ReportIDs: f.expiredIDs,
	})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "confirm", problem.Errors[0].Field)
}

func TestRouter_HardDelete_RequiresTransactionalStore(t *testing.T) {
	f := newTestFixture(t)

	// The fixture runs without a database pool; hard deletion is refused.
	req := adminRequest(t, http.MethodPost, "/v1/admin/retention/hard-delete", models.HardDeleteRequest{
		ReportIDs: f.expiredIDs,
		Confirm:   true,
	})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_UpdateProjectRetention(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodPut, "/v1/admin/projects/p1/retention", models.UpdateRetentionPolicyRequest{
		Policy: &retention.Policy{BugReportRetentionDays: 30},
	})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.UpdateRetentionPolicyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "p1", resp.ProjectID)
	require.NotNil(t, resp.Policy)
	assert.Equal(t, 30, resp.Policy.BugReportRetentionDays)
}

func TestRouter_UpdateProjectRetention_UnknownProject(t *testing.T) {
	f := newTestFixture(t)

	req := adminRequest(t, http.MethodPut, "/v1/admin/projects/missing/retention", models.UpdateRetentionPolicyRequest{
		Policy: &retention.Policy{BugReportRetentionDays: 30},
	})
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
