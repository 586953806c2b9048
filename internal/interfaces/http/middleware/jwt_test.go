package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/auth"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "astraline-test",
	})
}

func issueTestToken(t *testing.T, svc *auth.JWTService, permissions ...string) (*auth.IssuedToken, auth.IssueTokenInput) {
	t.Helper()
	input := auth.IssueTokenInput{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Username:    "cashier",
		Permissions: permissions,
	}
	token, err := svc.IssueToken(input)
	require.NoError(t, err)
	return token, input
}

func newAuthRouter(cfg JWTConfig, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuth(cfg))
	router.GET("/test", handler)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	token, input := issueTestToken(t, svc, "invoice:read")

	var got shared.Actor
	router := newAuthRouter(JWTConfig{JWTService: svc}, func(c *gin.Context) {
		actor, ok := GetActor(c)
		require.True(t, ok)
		got = actor
		require.NotNil(t, GetJWTClaims(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token.Token)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, input.TenantID, got.TenantID)
	assert.Equal(t, input.UserID, got.UserID)
	assert.Equal(t, "req-42", got.RequestID)
	assert.True(t, got.HasPermission("invoice:read"))
}

func TestJWTAuth_Rejects(t *testing.T) {
	svc := newTestJWTService()
	other := auth.NewJWTService(config.JWTConfig{Secret: "another-secret-key-of-32-characters", AccessTokenExpiration: time.Minute, Issuer: "astraline-test"})
	foreign, _ := issueTestToken(t, other)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{name: "missing header", header: "", code: dto.ErrCodeTokenInvalid},
		{name: "wrong scheme", header: "Basic abc", code: dto.ErrCodeTokenInvalid},
		{name: "empty bearer", header: "Bearer ", code: dto.ErrCodeTokenInvalid},
		{name: "garbage", header: "Bearer not.a.jwt", code: dto.ErrCodeTokenInvalid},
		{name: "foreign signature", header: "Bearer " + foreign.Token, code: dto.ErrCodeTokenInvalid},
	}
	router := newAuthRouter(JWTConfig{JWTService: svc}, func(c *gin.Context) {
		t.Fatal("handler must not run")
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			errInfo := decodeError(t, rec)
			assert.Equal(t, tt.code, errInfo.Code)
			assert.NotEmpty(t, errInfo.RequestID)
		})
	}
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	router := newAuthRouter(JWTConfig{JWTService: newTestJWTService(), SkipPaths: []string{"/health"}}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuth_RevokedToken(t *testing.T) {
	svc := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()
	token, _ := issueTestToken(t, svc)
	require.NoError(t, blacklist.Revoke(context.Background(), token.TokenID, time.Minute))

	router := newAuthRouter(JWTConfig{JWTService: svc, Blacklist: blacklist}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, decodeError(t, rec).Code)
}

func TestJWTAuth_RevokedUser(t *testing.T) {
	svc := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()
	token, input := issueTestToken(t, svc)
	require.NoError(t, blacklist.RevokeUser(context.Background(), input.UserID.String(), time.Minute))

	router := newAuthRouter(JWTConfig{JWTService: svc, Blacklist: blacklist}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type failingBlacklist struct{ auth.TokenBlacklist }

func (failingBlacklist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingBlacklist) IsUserRevoked(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

func TestJWTAuth_BlacklistFailureFailsOpen(t *testing.T) {
	svc := newTestJWTService()
	token, _ := issueTestToken(t, svc)

	router := newAuthRouter(JWTConfig{JWTService: svc, Blacklist: failingBlacklist{}}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
