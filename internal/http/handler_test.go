package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stillwatch/internal/config"
	"stillwatch/internal/domain/verify"
	"stillwatch/internal/service"
)

const testSecret = "test-secret"

func setupRouter(t *testing.T, resets *int) (*gin.Engine, *service.StatusService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	statusService := service.NewStatusService(func() {
		if resets != nil {
			*resets++
		}
	}, zerolog.Nop())

	cfg := &config.Config{}
	cfg.Camera.Model = "test-cam"
	cfg.Auth.JWTSecret = testSecret

	r := gin.New()
	handler := NewHandler(statusService, cfg, zerolog.Nop())
	handler.Register(r, JWTAuthMiddleware(cfg.Auth.JWTSecret))
	return r, statusService
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestGetStatus(t *testing.T) {
	r, statusService := setupRouter(t, nil)

	statusService.PhaseChanged(verify.PhaseEvent{
		RunID:      uuid.New(),
		Phase:      verify.PhaseAwaitingStationary,
		PhaseName:  verify.PhaseAwaitingStationary.String(),
		StatusText: "vehicle moving",
		At:         time.Now(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"awaiting_stationary"`)
	assert.Contains(t, w.Body.String(), `"test-cam"`)
}

func TestGetLastResult_NotFoundBeforeFirstRun(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/result", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLastResult(t *testing.T) {
	r, statusService := setupRouter(t, nil)

	plate := "DL10AB1234"
	statusService.RunComplete(verify.RunOutcome{
		RunID:         uuid.New(),
		Passed:        true,
		DetectedPlate: &plate,
		CompletedAt:   time.Now(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/result", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"passed":true`)
	assert.Contains(t, w.Body.String(), plate)
}

func TestResetRequiresAuth(t *testing.T) {
	resets := 0
	r, _ := setupRouter(t, &resets)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, resets)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, resets)
}
