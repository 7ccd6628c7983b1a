package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	aggdomain "github.com/smallbiznis/pricewatch/internal/aggregation/domain"
	alertdomain "github.com/smallbiznis/pricewatch/internal/alert/domain"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/config"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
	"github.com/smallbiznis/pricewatch/internal/observability"
	obsmiddleware "github.com/smallbiznis/pricewatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pricewatch/internal/observability/tracing"
	savingsdomain "github.com/smallbiznis/pricewatch/internal/savings/domain"
	shoppinglistdomain "github.com/smallbiznis/pricewatch/internal/shoppinglist/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	clock        clock.Clock
	prefs        *config.PreferencesHolder
	aggregation  aggdomain.Service
	ledgerSvc    ledgerdomain.Service
	alertSvc     alertdomain.Service
	savingsSvc   savingsdomain.Service
	shoppingSvc  shoppinglistdomain.Service
	refreshGuard chan struct{}
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Clock       clock.Clock
	Preferences *config.PreferencesHolder
	Aggregation aggdomain.Service
	LedgerSvc   ledgerdomain.Service
	AlertSvc    alertdomain.Service
	SavingsSvc  savingsdomain.Service
	ShoppingSvc shoppinglistdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		clock:        p.Clock,
		prefs:        p.Preferences,
		aggregation:  p.Aggregation,
		ledgerSvc:    p.LedgerSvc,
		alertSvc:     p.AlertSvc,
		savingsSvc:   p.SavingsSvc,
		shoppingSvc:  p.ShoppingSvc,
		refreshGuard: make(chan struct{}, 1),
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Search --------
	api.GET("/search", s.Search)
	api.GET("/promotions", s.ListPromotions)
	api.POST("/refresh", s.Refresh)

	// -------- Ledger --------
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProductByID)
	api.GET("/products/:id/history", s.GetProductHistory)
	api.GET("/history", s.GetHistoryByName)
	api.GET("/prices", s.ListPricesByName)
	api.GET("/prices/lowest", s.GetLowestPrice)

	// -------- Alerts & savings --------
	api.POST("/alerts/evaluate", s.EvaluateAlerts)
	api.POST("/savings", s.ComputeSavings)

	// -------- Shopping lists --------
	api.POST("/lists", s.CreateList)
	api.GET("/lists", s.ListLists)
	api.GET("/lists/:id", s.GetListByID)
	api.POST("/lists/:id/items", s.AddListItem)
	api.DELETE("/lists/:id/items/:itemId", s.RemoveListItem)
	api.GET("/lists/:id/savings", s.GetListSavings)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
