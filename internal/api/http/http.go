package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprom "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/chandraveer04/token-browser/internal/api/handler"
	"github.com/chandraveer04/token-browser/internal/api/http/router"
	"github.com/chandraveer04/token-browser/pkg/metrics"
	"github.com/chandraveer04/token-browser/pkg/middleware"
	"github.com/chandraveer04/token-browser/pkg/ratelimit"
)

type Services struct {
	Chain   handler.ChainService
	Banking handler.BankingService
	Audit   handler.AuditService
}

type Options struct {
	Addr        string
	ServiceName string
	// 每个 IP+路由 的令牌桶
	RPS   float64
	Burst int
	// 为空表示允许所有来源
	AllowOrigins []string
	// 挂 /metrics，测试里关掉避免重复注册
	Metrics bool
}

func (o *Options) withDefaults() {
	if o.RPS <= 0 {
		o.RPS = 50
	}
	if o.Burst <= 0 {
		o.Burst = 100
	}
	if o.ServiceName == "" {
		o.ServiceName = "token-browser"
	}
}

// NewEngine 路由和中间件，ctx 结束时限流 janitor 退出
func NewEngine(ctx context.Context, svc Services, opt Options) *gin.Engine {
	opt.withDefaults()
	store := ratelimit.NewStore(rate.Limit(opt.RPS), opt.Burst, 10*time.Minute)
	store.StartJanitor(ctx, time.Minute)

	r := gin.New()
	if opt.Metrics {
		metrics.MustRegister()
		// ginprom 自带 /metrics，同时暴露 metrics 包里注册的业务指标
		p := ginprom.NewPrometheus("token_browser")
		p.Use(r)
	}
	r.Use(
		otelgin.Middleware(opt.ServiceName),
		middleware.ReqId(),
		corsMiddleware(opt.AllowOrigins),
		middleware.Recover(),
		middleware.RateLimit(store),
	)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	chain := handler.NewChain(svc.Chain)
	router.Tokens(api, chain)
	router.Transactions(api, chain)
	router.Banking(api, handler.NewBanking(svc.Banking))
	router.Activities(api, handler.NewActivity(svc.Audit))
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowAllOrigins = true
		cfg.AllowHeaders = append(cfg.AllowHeaders, handler.HeaderSessionID, handler.HeaderUserAddress)
		return cors.New(cfg)
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowHeaders = append(cfg.AllowHeaders, handler.HeaderSessionID, handler.HeaderUserAddress)
	return cors.New(cfg)
}

func NewServer(ctx context.Context, svc Services, opt Options) *http.Server {
	s := &http.Server{
		Addr:           opt.Addr,
		Handler:        NewEngine(ctx, svc, opt),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}
