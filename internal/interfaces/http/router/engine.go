package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/smashburgertza/astralinelogistics-sub006/docs"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/auth"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/logger"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/handler"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HealthPaths are served without authentication
var HealthPaths = []string{"/health", "/api/v1/health"}

// EngineConfig wires the engine's middleware and handlers
type EngineConfig struct {
	ServiceName    string
	HTTP           config.HTTPConfig
	Swagger        config.SwaggerConfig
	RequestTimeout time.Duration
	Logger         *zap.Logger
	JWTService     *auth.JWTService
	Blacklist      auth.TokenBlacklist
	// Meter is optional; nil disables HTTP metrics
	Meter    metric.Meter
	System   *handler.SystemHandler
	Handlers Handlers
}

// NewEngine builds the gin engine. Middleware runs in this order: panic
// recovery, request id, access log, tracing, security headers, CORS, body
// limit, timeout, then JWT auth, span enrichment and metrics. /swagger is
// guarded by SwaggerProtection.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.JWTService == nil {
		return nil, fmt.Errorf("router: jwt service is required")
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, fmt.Errorf("router: setup validator: %w", err)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("router: trusted proxies: %w", err)
		}
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		middleware.Tracing(cfg.ServiceName),
		middleware.Secure(),
		middleware.CORS(cors),
	)
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	if cfg.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	if cfg.System != nil {
		engine.GET("/health", cfg.System.Health)
	}

	jwtAuth := middleware.JWTAuth(middleware.JWTConfig{
		JWTService: cfg.JWTService,
		Blacklist:  cfg.Blacklist,
		SkipPaths:  HealthPaths,
		Logger:     cfg.Logger,
	})
	engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg.Swagger, jwtAuth), ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(jwtAuth, middleware.SpanEnricher())
	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, fmt.Errorf("router: http metrics: %w", err)
		}
		r.Use(metrics)
	}
	for _, g := range APIGroups(cfg.Handlers) {
		r.Register(g)
	}
	api := r.Setup()
	if cfg.System != nil {
		api.GET("/health", cfg.System.Health)
	}

	return engine, nil
}
