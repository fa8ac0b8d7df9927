package http

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/turtacn/itemsvc/internal/application/service"
	"github.com/turtacn/itemsvc/internal/config"
	"github.com/turtacn/itemsvc/internal/domain/repository"
	"github.com/turtacn/itemsvc/internal/infrastructure/monitoring"
	"github.com/turtacn/itemsvc/internal/interfaces/http/handlers"
	"github.com/turtacn/itemsvc/internal/interfaces/http/middleware"
	"github.com/turtacn/itemsvc/pkg/constants"
	"github.com/turtacn/itemsvc/pkg/logger"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// RouterDependencies 路由器依赖
type RouterDependencies struct {
	Config   *config.Config
	Logger   logger.Logger
	Metrics  *monitoring.Registry
	Tracer   trace.Tracer
	Items    repository.ItemRepository
	Database repository.Pinger
}

// Router HTTP 路由器
type Router struct {
	engine  *gin.Engine
	config  *config.Config
	logger  logger.Logger
	labeler *middleware.RouteLabeler
	server  *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(deps RouterDependencies) *Router {
	// 设置 Gin 模式
	if deps.Config.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:  gin.New(),
		config:  deps.Config,
		logger:  deps.Logger,
		labeler: middleware.NewRouteLabeler(),
	}
	r.setupRoutes(deps)
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes(deps RouterDependencies) {
	// 全局中间件, outermost first. Recovery sits inside the access log and the server span so a
	// panic still produces both; Timeout must wrap Instrumentation so the deadline is still live
	// when the outcome is classified.
	r.engine.Use(
		middleware.RequestIDMiddleware(),
		middleware.ServiceHeaderMiddleware(),
		middleware.LoggingMiddleware(r.logger),
		middleware.TracingMiddleware(deps.Tracer, r.labeler),
		middleware.RecoveryMiddleware(r.logger),
		middleware.TimeoutMiddleware(r.config.Server.RequestTimeout),
		middleware.InstrumentationMiddleware(deps.Metrics, r.labeler, middleware.SkipOperationalRoutes),
	)

	// CORS 配置
	if len(r.config.Server.AllowedOrigins) > 0 {
		r.engine.Use(cors.New(cors.Config{
			AllowOrigins:  r.config.Server.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", constants.HeaderRequestID},
			ExposeHeaders: []string{constants.HeaderRequestID, constants.HeaderService},
			MaxAge:        12 * time.Hour,
		}))
	}

	healthHandler := handlers.NewHealthHandler(deps.Database, r.logger)
	metricsHandler := handlers.NewMetricsHandler(deps.Metrics, r.logger)
	itemHandler := handlers.NewItemHandler(service.NewItemAppService(deps.Items, r.logger))

	// 运维路由
	r.engine.GET(constants.RouteHealth, healthHandler.Liveness)
	r.engine.GET(constants.RouteReady, healthHandler.Readiness)
	r.engine.GET(constants.RouteMetrics, metricsHandler.Scrape)

	// Pprof 性能分析
	if r.config.Server.PprofEnabled {
		pprof.Register(r.engine, constants.RoutePprofPrefix)
	}

	r.engine.GET(constants.RouteItem, middleware.ConditionalGET(r.config.Server.ItemCacheMaxAge), itemHandler.GetItem)

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             string(constants.ErrCodeNotFound),
			"error_description": "The requested resource was not found",
		})
	})

	r.labeler.Load(r.engine.Routes())
}

// Engine exposes the gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start serves HTTP until ctx is cancelled, then drains in-flight requests within the
// configured shutdown timeout.
func (r *Router) Start(ctx context.Context) error {
	addr := r.config.Server.Address()
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    r.config.Server.ReadTimeout,
		WriteTimeout:   r.config.Server.WriteTimeout,
		IdleTimeout:    r.config.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info(ctx, "Starting HTTP server", logger.Fields{"address": addr})
		if err := r.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return r.Stop(context.WithoutCancel(ctx))
	})
	return g.Wait()
}

// Stop 优雅关闭服务器
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.Server.ShutdownTimeout)
	defer cancel()

	r.logger.Info(ctx, "Shutting down HTTP server")
	if err := r.server.Shutdown(ctx); err != nil {
		r.logger.Error(ctx, "Server forced to shutdown", err)
		return err
	}
	r.logger.Info(ctx, "Server exited")
	return nil
}
