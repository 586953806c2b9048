package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func TestSwaggerProtection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	denyAll := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	allowAll := func(c *gin.Context) {}

	tests := []struct {
		name       string
		cfg        config.SwaggerConfig
		jwt        gin.HandlerFunc
		remoteAddr string
		wantStatus int
	}{
		{name: "disabled", cfg: config.SwaggerConfig{}, remoteAddr: "10.0.0.5:5000", wantStatus: http.StatusNotFound},
		{name: "open", cfg: config.SwaggerConfig{Enabled: true}, remoteAddr: "10.0.0.5:5000", wantStatus: http.StatusOK},
		{
			name:       "exact ip allowed",
			cfg:        config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.5"}},
			remoteAddr: "10.0.0.5:5000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "cidr allowed",
			cfg:        config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/24"}},
			remoteAddr: "10.0.0.77:5000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "outside allow list",
			cfg:        config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/24", "bogus"}},
			remoteAddr: "172.16.4.2:5000",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "auth required and missing",
			cfg:        config.SwaggerConfig{Enabled: true, RequireAuth: true},
			jwt:        denyAll,
			remoteAddr: "10.0.0.5:5000",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "auth required and present",
			cfg:        config.SwaggerConfig{Enabled: true, RequireAuth: true},
			jwt:        allowAll,
			remoteAddr: "10.0.0.5:5000",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/swagger/*any", SwaggerProtection(tt.cfg, tt.jwt), func(c *gin.Context) {
				c.String(http.StatusOK, "docs")
			})

			req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
			req.RemoteAddr = tt.remoteAddr
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
