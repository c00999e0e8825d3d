// Package server exposes the billing engine and merchant registry over HTTP.
// Handlers bind, validate shape, and delegate; every policy decision lives in
// the domain services.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	auditdomain "github.com/pullpaylabs/pullpay/internal/audit/domain"
	"github.com/pullpaylabs/pullpay/internal/bootstrap"
	"github.com/pullpaylabs/pullpay/internal/config"
	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/internal/observability"
	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
	"github.com/pullpaylabs/pullpay/internal/ratelimit"
	"github.com/pullpaylabs/pullpay/internal/receipt"
	subscriptiondomain "github.com/pullpaylabs/pullpay/internal/subscription/domain"
	testclockdomain "github.com/pullpaylabs/pullpay/internal/testclock/domain"
)

// NewEngine builds the gin engine. Middleware and routes are attached by
// RegisterRoutes so tests can assemble a Server around a bare engine.
func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	e := gin.New()
	e.Use(gin.Recovery())
	return e
}

type Params struct {
	fx.In

	Engine   *gin.Engine
	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Metrics  *observability.Metrics
	Gate     bootstrap.SchemaGate
	Enforcer *casbin.Enforcer
	Limiter  *ratelimit.Limiter
	Receipts *receipt.Generator

	PlatformSvc     platformdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	MerchantSvc     merchantdomain.Service
	LedgerSvc       ledgerdomain.Service
	EventSvc        eventdomain.Service
	AuditSvc        auditdomain.Service
	APIKeySvc       apikeydomain.Service
	TestClockSvc    testclockdomain.Service
}

type Server struct {
	engine        *gin.Engine
	db            *gorm.DB
	log           *zap.Logger
	cfg           config.Config
	metrics       *observability.Metrics
	gate          bootstrap.SchemaGate
	enforcer      *casbin.Enforcer
	apiKeyLimiter *ratelimit.Limiter
	receipts      *receipt.Generator

	platformSvc     platformdomain.Service
	subscriptionSvc subscriptiondomain.Service
	merchantSvc     merchantdomain.Service
	ledgerSvc       ledgerdomain.Service
	eventSvc        eventdomain.Service
	auditSvc        auditdomain.Service
	apiKeySvc       apikeydomain.Service
	testClockSvc    testclockdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		engine:          p.Engine,
		db:              p.DB,
		log:             p.Log.Named("http"),
		cfg:             p.Config,
		metrics:         p.Metrics,
		gate:            p.Gate,
		enforcer:        p.Enforcer,
		apiKeyLimiter:   p.Limiter,
		receipts:        p.Receipts,
		platformSvc:     p.PlatformSvc,
		subscriptionSvc: p.SubscriptionSvc,
		merchantSvc:     p.MerchantSvc,
		ledgerSvc:       p.LedgerSvc,
		eventSvc:        p.EventSvc,
		auditSvc:        p.AuditSvc,
		apiKeySvc:       p.APIKeySvc,
		testClockSvc:    p.TestClockSvc,
	}
}

// RegisterRoutes wires middleware and the full route table onto the engine.
func (s *Server) RegisterRoutes() {
	e := s.engine

	e.Use(requestID(), s.requestLogger(), s.httpMetrics())

	e.GET("/healthz", s.Healthz)
	e.GET("/readyz", s.Readyz)
	e.GET("/metrics", s.Metrics())

	v1 := e.Group("/v1", s.APIKeyRequired(), s.testClockHeader())
	{
		v1.GET("/platform", s.GetPlatform)
		v1.GET("/registry", s.GetRegistry)

		v1.POST("/subscriptions", s.CreateSubscription)
		v1.GET("/subscriptions", s.ListSubscriptions)
		v1.GET("/subscriptions/:id", s.GetSubscription)
		v1.POST("/subscriptions/:id/pause", s.PauseSubscription)
		v1.POST("/subscriptions/:id/resume", s.ResumeSubscription)
		v1.POST("/subscriptions/:id/cancel", s.CancelSubscription)
		v1.DELETE("/subscriptions/:id", s.CloseSubscription)
		v1.PATCH("/subscriptions/:id/limits", s.UpdateSubscriptionLimits)
		v1.POST("/subscriptions/:id/execute", s.ExecuteSubscriptionPayment)

		v1.POST("/merchants", s.ApplyMerchant)
		v1.GET("/merchants", s.ListMerchants)
		v1.GET("/merchants/:id", s.GetMerchant)
		v1.PATCH("/merchants/:id", s.UpdateMerchant)
		v1.POST("/merchants/:id/premium", s.SubscribePremiumBadge)
		v1.GET("/merchants/:id/reviews", s.ListMerchantReviews)
		v1.POST("/reviews", s.SubmitReview)

		v1.GET("/ledger/accounts/:id", s.GetLedgerAccount)
		v1.GET("/ledger/accounts/:id/entries", s.ListLedgerEntries)
		v1.GET("/ledger/entries/:id/receipt", s.GetEntryReceipt)
	}

	admin := v1.Group("/admin", s.AdminRequired())
	{
		admin.POST("/platform/initialize", s.InitializePlatform)
		admin.PATCH("/platform/config", s.UpdatePlatformConfig)
		admin.POST("/platform/pause", s.PausePlatform)
		admin.POST("/platform/unpause", s.UnpausePlatform)

		admin.POST("/registry/initialize", s.InitializeRegistry)
		admin.POST("/merchants/:id/approve", s.ApproveMerchant)
		admin.POST("/merchants/:id/suspend", s.SuspendMerchant)

		admin.POST("/ledger/accounts", s.CreateLedgerAccount)
		admin.POST("/ledger/accounts/:id/credit", s.CreditLedgerAccount)

		admin.GET("/events", s.ListEvents)
		admin.GET("/audit/export", s.ExportAuditLogs)

		admin.POST("/api-keys", s.IssueAPIKey)
		admin.GET("/api-keys", s.ListAPIKeys)
		admin.POST("/api-keys/:id/disable", s.DisableAPIKey)

		admin.POST("/test-clocks", s.CreateTestClock)
		admin.GET("/test-clocks", s.ListTestClocks)
		admin.GET("/test-clocks/:id", s.GetTestClock)
		admin.POST("/test-clocks/:id/advance", s.AdvanceTestClock)
		admin.DELETE("/test-clocks/:id", s.DeleteTestClock)
	}
}

// RunHTTP binds the listener during fx startup so a bad address fails boot
// instead of surfacing later in a goroutine.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.engine}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
