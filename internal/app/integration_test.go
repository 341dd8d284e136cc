package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/config"
	"github.com/yorunoba/nightdesk-backend/internal/app/controller"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/internal/db"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
	"github.com/yorunoba/nightdesk-backend/internal/router"
	"github.com/yorunoba/nightdesk-backend/internal/tablebrowser"
	"github.com/yorunoba/nightdesk-backend/internal/websocket"
	"github.com/yorunoba/nightdesk-backend/pkg/redis"
	"github.com/yorunoba/nightdesk-backend/pkg/util"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	util.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type TestServer struct {
	Router *gin.Engine
	Hub    *websocket.Hub
}

func setupIntegrationTest(t *testing.T) *TestServer {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	loc := time.FixedZone("JST", 9*3600)
	revoker := redis.NewMemoryRevoker()
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	browser := tablebrowser.New(testDB, tablebrowser.DefaultTables(), loc, 20)

	// Setup repositories
	storeRepo := repository.NewStoreRepository(testDB)
	accountRepo := repository.NewAccountRepository(testDB)
	profileRepo := repository.NewProfileRepository(testDB)
	menuRepo := repository.NewMenuRepository(testDB)
	bottleRepo := repository.NewBottleKeepRepository(testDB)
	commentRepo := repository.NewCommentRepository(testDB)
	shiftRepo := repository.NewShiftRepository(testDB)
	attendanceRepo := repository.NewAttendanceRepository(testDB)
	snsRepo := repository.NewSNSRepository(testDB)

	// Setup services
	authService := service.NewAuthService(storeRepo, accountRepo, profileRepo, revoker, testSecret, 15*time.Minute, 7*24*time.Hour)
	bottleService := service.NewBottleKeepService(bottleRepo, profileRepo, menuRepo, hub, browser, loc)
	shiftService := service.NewShiftService(shiftRepo, hub, browser)

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	r := router.NewRouter(router.Controllers{
		Auth:       controller.NewAuthController(authService),
		Store:      controller.NewStoreController(service.NewStoreService(storeRepo, browser)),
		Profile:    controller.NewProfileController(service.NewProfileService(profileRepo, accountRepo, browser)),
		Menu:       controller.NewMenuController(service.NewMenuService(menuRepo, browser)),
		BottleKeep: controller.NewBottleKeepController(bottleService),
		Comment:    controller.NewCommentController(service.NewCommentService(commentRepo, profileRepo, bottleRepo, shiftRepo, browser)),
		Shift:      controller.NewShiftController(shiftService),
		Attendance: controller.NewAttendanceController(service.NewAttendanceService(attendanceRepo, shiftRepo, profileRepo, hub, browser, loc)),
		Table:      controller.NewTableController(browser),
		SNS:        controller.NewSNSController(service.NewSNSService(snsRepo, nil, nil, browser, loc)),
		AI:         controller.NewAIController(service.NewAIService(service.AIBackends{}, nil)),
		Dashboard:  controller.NewDashboardController(service.NewDashboardService(profileRepo, bottleRepo, shiftRepo, attendanceRepo, snsRepo, menuRepo, loc)),
		Upload:     controller.NewUploadController(service.NewUploadService(nil)),
		Event:      controller.NewEventController(hub, nil),
	}, middleware.NewAuthMiddleware(testSecret, revoker), cfg)

	return &TestServer{Router: r.Setup(), Hub: hub}
}

func (s *TestServer) request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &response)
	}
	return w.Code, response
}

func tokenOf(t *testing.T, response map[string]interface{}) string {
	tokens, ok := response["tokens"].(map[string]interface{})
	require.True(t, ok, "response has no tokens: %v", response)
	return tokens["access_token"].(string)
}

func TestIntegration_HealthAndAuth(t *testing.T) {
	server := setupIntegrationTest(t)

	code, body := server.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, _ = server.request(t, http.MethodGet, "/api/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = server.request(t, http.MethodGet, "/api/v1/store", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestIntegration_ShiftFlow(t *testing.T) {
	server := setupIntegrationTest(t)

	code, body := server.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"store_name": "Club Luna",
		"admin_name": "オーナー",
		"email":      "owner@luna.example",
		"password":   "password123",
	})
	require.Equal(t, http.StatusCreated, code, body)
	admin := tokenOf(t, body)

	code, body = server.request(t, http.MethodPost, "/api/v1/profiles", admin, map[string]interface{}{
		"display_name": "みお",
		"role":         "cast",
		"email":        "mio@luna.example",
		"password":     "password123",
	})
	require.Equal(t, http.StatusCreated, code, body)

	code, body = server.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email":    "mio@luna.example",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, code, body)
	cast := tokenOf(t, body)

	// casts cannot reach manager routes
	code, _ = server.request(t, http.MethodPost, "/api/v1/menus", cast, map[string]interface{}{"name": "モエ", "price": 30000})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = server.request(t, http.MethodGet, "/api/v1/admin/tables", cast, nil)
	assert.Equal(t, http.StatusForbidden, code)

	date := time.Now().AddDate(0, 0, 10).Format("2006-01-02")
	code, body = server.request(t, http.MethodPost, "/api/v1/shift-requests", admin, map[string]interface{}{
		"title":    "来月前半",
		"deadline": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"dates": []map[string]interface{}{
			{"date": date, "default_start_time": "20:00", "default_end_time": "01:00"},
		},
	})
	require.Equal(t, http.StatusCreated, code, body)
	requestID := body["shift_request"].(map[string]interface{})["id"].(float64)
	requestPath := fmt.Sprintf("/api/v1/shift-requests/%.0f", requestID)

	code, body = server.request(t, http.MethodPut, requestPath+"/my-submission", cast, map[string]interface{}{
		"entries": []map[string]interface{}{
			{"date": date, "is_available": true, "start_time": "21:00", "end_time": "01:00"},
		},
	})
	require.Equal(t, http.StatusOK, code, body)

	code, body = server.request(t, http.MethodGet, requestPath+"/submissions", admin, nil)
	require.Equal(t, http.StatusOK, code, body)
	submissions := body["submissions"].([]interface{})
	require.Len(t, submissions, 1)
	submission := submissions[0].(map[string]interface{})
	assert.Equal(t, "pending", submission["status"])

	approvePath := fmt.Sprintf("/api/v1/shift-submissions/%.0f/approve", submission["id"].(float64))
	code, _ = server.request(t, http.MethodPost, approvePath, cast, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = server.request(t, http.MethodPost, approvePath, admin, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "scheduled", body["submission"].(map[string]interface{})["status"])

	// a second decision is refused
	code, body = server.request(t, http.MethodPost, approvePath, admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SHIFT_INVALID_TRANSITION", body["error"])

	code, body = server.request(t, http.MethodGet, "/api/v1/shifts/schedule?from="+date+"&to="+date, cast, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(1), body["count"])

	code, body = server.request(t, http.MethodGet, "/api/v1/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, code, body)
	dashboard := body["dashboard"].(map[string]interface{})
	assert.Equal(t, float64(1), dashboard["open_shift_requests"])
}

func TestIntegration_UnconfiguredBackends(t *testing.T) {
	server := setupIntegrationTest(t)

	_, body := server.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"store_name": "Club Luna",
		"admin_name": "オーナー",
		"email":      "owner@luna.example",
		"password":   "password123",
	})
	admin := tokenOf(t, body)

	code, body := server.request(t, http.MethodPost, "/api/v1/ai/copy", admin, map[string]interface{}{"topic": "ハロウィン"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "AI_NOT_CONFIGURED", body["error"])

	code, _ = server.request(t, http.MethodPost, "/api/v1/upload/presigned-url", admin, map[string]interface{}{
		"filename":     "logo.png",
		"content_type": "image/png",
		"folder":       "stores",
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
