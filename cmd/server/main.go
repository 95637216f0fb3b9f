package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/ogurasousui/codex-grpc-payroll/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-grpc-payroll/internal/core/payroll"
	"github.com/ogurasousui/codex-grpc-payroll/internal/platform/config"
	pg "github.com/ogurasousui/codex-grpc-payroll/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-grpc-payroll/internal/platform/logging"
	"github.com/ogurasousui/codex-grpc-payroll/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	policy, err := buildPolicy(cfg.SalaryPolicy)
	if err != nil {
		logger.Fatal("invalid salary policy", zap.Error(err))
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool, pg.WithAcquireTimeout(cfg.Database.AcquireTimeout))
	payrollRepo, err := postgres.NewPayrollRepository(dbPool, txManager)
	if err != nil {
		logger.Fatal("failed to initialize payroll repository", zap.Error(err))
	}
	payrollSvc := payroll.NewService(payrollRepo, policy, txManager, logger)
	metrics := server.NewMetrics()
	grpcServer := server.New(cfg.Server.ListenAddr, payrollSvc, logger,
		grpc.ChainUnaryInterceptor(metrics.UnaryInterceptor()),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return grpcServer.Run(groupCtx)
	})
	if cfg.Server.MetricsAddr != "" {
		group.Go(func() error {
			return serveMetrics(groupCtx, cfg.Server.MetricsAddr, metrics.Handler(), logger)
		})
	}

	if err := group.Wait(); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildPolicy は設定の給与表から SalaryPolicy を構築します。未設定の項目は既定値を使います。
func buildPolicy(cfg config.SalaryPolicyConfig) (payroll.SalaryPolicy, error) {
	if len(cfg.BaseByCategory) == 0 && cfg.PerYear == nil {
		return payroll.DefaultPolicy(), nil
	}

	base := payroll.DefaultBaseByCategory
	if len(cfg.BaseByCategory) > 0 {
		base = make([]decimal.Decimal, 0, len(cfg.BaseByCategory))
		for _, amount := range cfg.BaseByCategory {
			base = append(base, decimal.NewFromFloat(amount))
		}
	}

	perYear := payroll.DefaultPerYear
	if cfg.PerYear != nil {
		perYear = decimal.NewFromFloat(*cfg.PerYear)
	}

	policy, err := payroll.NewCategoryTablePolicy(base, perYear)
	if err != nil {
		return nil, err
	}
	return policy, nil
}
