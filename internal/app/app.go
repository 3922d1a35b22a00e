package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	ghttp "github.com/chandraveer04/token-browser/internal/api/http"
	appConfig "github.com/chandraveer04/token-browser/internal/config"
	"github.com/chandraveer04/token-browser/internal/core/chainreader"
	"github.com/chandraveer04/token-browser/internal/core/securechannel"
	"github.com/chandraveer04/token-browser/internal/core/service"
	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/internal/infra/bankapi"
	"github.com/chandraveer04/token-browser/internal/infra/ethereum"
	"github.com/chandraveer04/token-browser/internal/infra/persistence"
	"github.com/chandraveer04/token-browser/internal/infra/rates"
	"github.com/chandraveer04/token-browser/internal/infra/simchain"
	vipConfig "github.com/chandraveer04/token-browser/pkg/config"
	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/metrics"
	"github.com/chandraveer04/token-browser/pkg/orm"
	"github.com/chandraveer04/token-browser/pkg/ratelimit"
	"github.com/chandraveer04/token-browser/pkg/safe"
	"github.com/chandraveer04/token-browser/pkg/trace"
	"github.com/chandraveer04/token-browser/pkg/xredis"
)

type App struct {
	ctx context.Context
	cfg *appConfig.Config

	db        *gorm.DB
	rdb       *redis.Client
	breaker   *ratelimit.Manager
	providers map[domain.Network]domain.ChainProvider
	closers   []func()

	// 模拟链没配置候选时用内置代币
	simCandidates map[domain.Network][]domain.Candidate

	traceShutdown func(context.Context) error

	reconcile *service.ReconcileService
	banking   *service.BankingService
	audit     *service.AuditService
	retention *service.RetentionJob
}

// New 加载 config/{configName}.yaml
func New(configName string) (*App, error) {
	if configName == "" {
		configName = "token-browser"
	}
	cfg := &appConfig.Config{}
	if _, err := vipConfig.LoadAndWatch(configName, cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg), nil
}

func NewWithConfig(cfg *appConfig.Config) *App {
	return &App{cfg: cfg}
}

// StartService 初始化依赖并组装服务，返回清理函数
func (app *App) StartService(ctx context.Context) (func(), error) {
	app.ctx = ctx
	cfg := app.cfg
	unknown := cfg.Normalize()
	logger.InitWithFile(cfg.Name, cfg.Log.Level, cfg.Log.File)
	if len(unknown) > 0 {
		logger.Warn(ctx, "unsupported networks ignored", zap.Strings("networks", unknown))
	}

	steps := []func() error{
		app.startTrace,
		app.startDB,
		app.startRedis,
		app.startChain,
		app.startServices,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			app.cleanUp()
			return nil, err
		}
	}
	app.retention.Start(ctx)
	if sqlDB, err := app.db.DB(); err == nil {
		metrics.ObservePools(ctx, sqlDB, app.rdb, 0)
	}
	return app.cleanUp, nil
}

func (app *App) cleanUp() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
	logger.Sync()
}

func (app *App) StartHttp() *http.Server {
	return ghttp.NewServer(app.ctx, ghttp.Services{
		Chain:   app.reconcile,
		Banking: app.banking,
		Audit:   app.audit,
	}, ghttp.Options{
		Addr:         app.cfg.HTTP.Addr,
		ServiceName:  app.cfg.Name,
		RPS:          app.cfg.HTTP.RPS,
		Burst:        app.cfg.HTTP.Burst,
		AllowOrigins: app.cfg.HTTP.AllowOrigins,
		Metrics:      true,
	})
}

func (app *App) startTrace() error {
	shutdown, err := trace.InitTrace(app.cfg.Name, app.cfg.Trace.Host, nil)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	app.traceShutdown = shutdown
	app.closers = append(app.closers, func() { _ = app.traceShutdown(context.Background()) })
	return nil
}

func (app *App) startDB() error {
	db, err := orm.Open(&app.cfg.DB)
	if err != nil {
		return err
	}
	app.db = db
	if sqlDB, err := db.DB(); err == nil {
		app.closers = append(app.closers, func() { _ = sqlDB.Close() })
	}
	if err := persistence.New(db).AutoMigrate(app.ctx); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info(app.ctx, "database ready", zap.String("driver", app.cfg.DB.Driver))
	return nil
}

func (app *App) startRedis() error {
	if app.cfg.Redis.Addr == "" {
		logger.Info(app.ctx, "redis disabled")
		return nil
	}
	rdb, err := xredis.NewRedis(&app.cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	app.rdb = rdb
	app.closers = append(app.closers, func() { _ = rdb.Close() })
	return nil
}

func (app *App) startChain() error {
	rules := make(map[string]ratelimit.Rule, len(app.cfg.Breaker.Rules)+len(domain.Networks))
	for name, r := range app.cfg.Breaker.Rules {
		rules[name] = r
	}
	for _, n := range domain.Networks {
		name := ethereum.BreakerName(n)
		r, ok := rules[name]
		if !ok {
			r = app.cfg.Breaker.Default
		}
		r.IsSuccessful = ethereum.IsNodeHealthy
		rules[name] = r
	}
	app.breaker = ratelimit.NewManager(app.cfg.Breaker.Default, rules)

	names := make([]string, 0, len(app.cfg.Chain.Networks))
	for name := range app.cfg.Chain.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	app.providers = make(map[domain.Network]domain.ChainProvider, len(names))
	app.simCandidates = map[domain.Network][]domain.Candidate{}
	var throttle *ratelimit.Store
	if app.cfg.Chain.RPS > 0 {
		throttle = ratelimit.NewStore(rate.Limit(app.cfg.Chain.RPS), app.cfg.Chain.Burst, 0)
	}
	for _, name := range names {
		nc := app.cfg.Chain.Networks[name]
		network := domain.Network(name)
		if nc.Mode == appConfig.ModeSimulated {
			owners := make([]common.Address, 0, len(nc.DemoOwners))
			for _, o := range nc.DemoOwners {
				if common.IsHexAddress(o) {
					owners = append(owners, common.HexToAddress(o))
				}
			}
			app.providers[network] = simchain.NewDemo(network, owners...)
			if len(nc.Candidates) == 0 {
				app.simCandidates[network] = simchain.DemoCandidates()
			}
			logger.Info(app.ctx, "simulated chain ready", zap.String("network", name), zap.Int("owners", len(owners)))
			continue
		}
		p, err := ethereum.Dial(app.ctx, network, nc.RPCURL, app.breaker)
		if err != nil {
			// 单个网络拨号失败不影响其他网络，请求该网络时按节点不可用处理
			logger.Error(app.ctx, "dial chain failed", zap.String("network", name), zap.Error(err))
			continue
		}
		app.providers[network] = p.WithThrottle(throttle)
		app.closers = append(app.closers, p.Close)
		logger.Info(app.ctx, "chain connected", zap.String("network", name))
	}
	return nil
}

func (app *App) startServices() error {
	cfg := app.cfg
	repo := persistence.New(app.db)

	candidates := chainreader.DefaultCandidates()
	for n, cs := range app.simCandidates {
		candidates[n] = cs
	}
	reader := chainreader.New(app.providers, chainreader.Config{
		Candidates:   cfg.Chain.Candidates(candidates),
		Lookback:     cfg.Chain.Lookback,
		MaxTransfers: cfg.Chain.MaxTransfers,
		Concurrency:  cfg.Chain.Concurrency,
		CallTimeout:  cfg.Chain.CallTimeout,
		DevAccounts:  cfg.Chain.DevAccounts,
	})
	app.reconcile = service.NewReconcileService(reader, repo, repo)

	providers := map[domain.Environment]domain.BalanceProvider{
		domain.EnvDevelopment: bankapi.NewSimulated(cfg.Banking.SimulatedLatency),
	}
	var sink domain.AuditSink
	if cfg.Banking.Production() {
		channel, err := securechannel.New([]byte(cfg.Banking.Secret), domain.EnvProduction)
		if err != nil {
			return err
		}
		client, err := bankapi.NewClient(bankapi.ClientConfig{
			BaseURL: cfg.Banking.BaseURL,
			APIKey:  cfg.Banking.APIKey,
			Timeout: cfg.Banking.Timeout,
		}, channel, app.breaker)
		if err != nil {
			return err
		}
		providers[domain.EnvProduction] = client
		sink = client
	} else {
		logger.Warn(app.ctx, "production banking disabled, base_url or secret missing")
	}
	app.audit = service.NewAuditService(repo, sink)

	var rateSource domain.RateSource
	if cfg.Rates.BaseURL != "" {
		var cache rates.Cache
		if app.rdb != nil {
			cache = rates.NewRedisCache(app.rdb)
		}
		rateSource = rates.NewSource(rates.NewHTTPSource(cfg.Rates.BaseURL, cfg.Rates.Timeout, app.breaker), cache, cfg.Rates.TTL)
	}
	app.banking = service.NewBankingService(providers, repo, app.audit, rateSource)
	if rateSource != nil {
		app.reconcile.WithFiat(rateSource, cfg.Rates.Fiat)
	}

	var locker service.Locker
	if app.rdb != nil {
		locker = xredis.NewRedisLockMaster(app.rdb)
	}
	app.retention = service.NewRetentionJob(app.audit, locker, cfg.Audit.RetentionDays, cfg.Audit.RetentionInterval)
	return nil
}

// ServeHTTP 阻塞直到 ctx 结束或监听失败，ctx 结束后优雅关闭
func ServeHTTP(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	safe.Go(func() {
		logger.Info(ctx, "http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error(sctx, "http shutdown error", zap.Error(err))
		return err
	}
	logger.Info(sctx, "http server stopped")
	return nil
}
