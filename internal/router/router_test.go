package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permitdesk/licensing-backend/internal/config"
	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, i18n.Initialize())
	utils.SetJWTSecret("router-test-secret")

	db := database.NewTestDB(t)
	cfg := &config.Config{
		Environment: "test",
		Storage:     config.StorageConfig{LocalRoot: t.TempDir(), MaxUploadMB: 5},
		NATS:        config.NATSConfig{SubjectPrefix: "licensing"},
		Frontend:    config.FrontendConfig{BaseURL: "http://localhost:8080", ExternalPath: "/external/"},
	}

	svc, err := NewServices(db, cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return Initialize(db, cfg, svc)
}

func request(r *gin.Engine, method, path string, role models.UserRole) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, _ := utils.GenerateJWT(uuid.New(), string(role)+"@example.com", string(role), 1)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)

	w := request(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(t)
	request(r, http.MethodGet, "/health", "")

	w := request(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "licensing_http_requests_total")
}

func TestRouteGuards(t *testing.T) {
	r := setupRouter(t)
	historyPath := "/history/proposal/" + uuid.New().String() + "/"

	cases := []struct {
		name string
		path string
		role models.UserRole
		code int
	}{
		{"public proposal types", "/v1/proposal-types", "", http.StatusOK},
		{"proposals need a token", "/v1/proposals", "", http.StatusUnauthorized},
		{"history needs a token", historyPath, "", http.StatusUnauthorized},
		{"history is staff only", historyPath, models.UserRoleCustomer, http.StatusForbidden},
		{"history of a missing record", historyPath, models.UserRoleOfficer, http.StatusNotFound},
		{"customer search is staff only", "/wl/customers/search", models.UserRoleCustomer, http.StatusForbidden},
		{"officers have no account page", "/wl/account", models.UserRoleOfficer, http.StatusForbidden},
		{"admin stats need admin", "/v1/admin/dashboard/stats", models.UserRoleOfficer, http.StatusForbidden},
		{"unknown route", "/nowhere", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, request(r, http.MethodGet, tc.path, tc.role).Code)
		})
	}
}
