// 申领门户服务：余额锁定、身份核验、提现受理的 HTTP 入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	claimapp "github.com/odinlabs/claimportal/internal/claim/application"
	claimdomain "github.com/odinlabs/claimportal/internal/claim/domain"
	claimledger "github.com/odinlabs/claimportal/internal/claim/infrastructure/ledger"
	claimmysql "github.com/odinlabs/claimportal/internal/claim/infrastructure/persistence/mysql"
	claimredis "github.com/odinlabs/claimportal/internal/claim/infrastructure/persistence/redis"
	claimhttp "github.com/odinlabs/claimportal/internal/claim/interfaces/http"
	identityapp "github.com/odinlabs/claimportal/internal/identity/application"
	identitydomain "github.com/odinlabs/claimportal/internal/identity/domain"
	identitymysql "github.com/odinlabs/claimportal/internal/identity/infrastructure/persistence/mysql"
	"github.com/odinlabs/claimportal/internal/identity/infrastructure/shuftipro"
	identityhttp "github.com/odinlabs/claimportal/internal/identity/interfaces/http"
	notifapp "github.com/odinlabs/claimportal/internal/notification/application"
	notifdomain "github.com/odinlabs/claimportal/internal/notification/domain"
	notifmysql "github.com/odinlabs/claimportal/internal/notification/infrastructure/persistence/mysql"
	"github.com/odinlabs/claimportal/internal/notification/infrastructure/sender"
	notifhttp "github.com/odinlabs/claimportal/internal/notification/interfaces/http"
	withdrawapp "github.com/odinlabs/claimportal/internal/withdraw/application"
	withdrawdomain "github.com/odinlabs/claimportal/internal/withdraw/domain"
	withdrawmysql "github.com/odinlabs/claimportal/internal/withdraw/infrastructure/persistence/mysql"
	withdrawhttp "github.com/odinlabs/claimportal/internal/withdraw/interfaces/http"
	"github.com/odinlabs/claimportal/pkg/config"
	"github.com/odinlabs/claimportal/pkg/db"
	"github.com/odinlabs/claimportal/pkg/ledgerrpc"
	"github.com/odinlabs/claimportal/pkg/logger"
	"github.com/odinlabs/claimportal/pkg/mq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "configs/portal.toml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()

	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		log.Error("init database failed", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&claimdomain.ClaimAccount{},
		&claimdomain.AccountFlag{},
		&identitydomain.IdentityCheck{},
		&withdrawdomain.WithdrawRequest{},
		&notifdomain.Preference{},
	); err != nil {
		log.Error("auto migrate failed", "error", err)
		os.Exit(1)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		log.Warn("kafka unavailable, notify events disabled", "error", err)
		producer = nil
	} else {
		defer producer.Close()
	}

	ledgerClient := ledgerrpc.New(ledgerrpc.Config{
		Host:    cfg.Ledger.Host,
		Client:  cfg.Ledger.Client,
		Secret:  cfg.Ledger.Secret,
		Timeout: time.Duration(cfg.Ledger.Timeout) * time.Second,
	})

	terms, err := programTerms(cfg.Program)
	if err != nil {
		log.Error("invalid program config", "error", err)
		os.Exit(1)
	}

	// 通知上下文
	notifService := notifapp.NewService(
		notifmysql.NewPreferenceRepository(database.DB),
		sender.NewSMTPSender(cfg.Notify),
		sender.NewSMSGatewaySender(cfg.Notify),
		producer,
		cfg.Kafka.NotifyTopic,
		log,
	)

	// 申领上下文
	accountRepo := claimredis.NewAccountCache(
		claimmysql.NewAccountRepository(database.DB),
		redisClient,
		time.Duration(cfg.Redis.CacheTTL)*time.Second,
		log,
	)
	flagRepo := claimmysql.NewFlagRepository(database.DB)
	claimService := claimapp.NewService(
		accountRepo,
		flagRepo,
		claimledger.NewGateway(ledgerClient),
		terms,
		cfg.Ledger.PoolAccount,
		notifService,
		log,
	)

	// 身份核验上下文
	identityService := identityapp.NewService(
		identitymysql.NewCheckRepository(database.DB),
		shuftipro.New(shuftipro.Config{
			APIHost:   cfg.KYC.APIHost,
			ClientKey: cfg.KYC.ClientKey,
			SecretKey: cfg.KYC.SecretKey,
			Timeout:   time.Duration(cfg.KYC.Timeout) * time.Second,
		}),
		identitydomain.NewSweeper(
			cfg.KYC.MaxDeclined,
			cfg.KYC.MaxInvalid,
			time.Duration(cfg.KYC.RetryWait)*time.Minute,
		),
		claimService,
		cfg.KYC.SecretKey,
		cfg.KYC.CallbackHost+"/api/kyc/callback",
		log,
	)

	// 提现上下文
	withdrawService := withdrawapp.NewService(
		withdrawmysql.NewWithdrawRepository(database.DB),
		accountRepo,
		notifService,
		decimal.NewFromFloat(cfg.Settlement.ReserveEpsilon),
		log,
	)

	router := buildRouter(cfg, claimService, identityService, withdrawService, notifService)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("portal server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("portal server stopped")
}

func buildRouter(
	cfg *config.Config,
	claimService *claimapp.Service,
	identityService *identityapp.Service,
	withdrawService *withdrawapp.Service,
	notifService *notifapp.Service,
) *gin.Engine {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	claimhttp.NewHandler(claimService).RegisterRoutes(api)
	identityhttp.NewHandler(identityService,
		int64(cfg.KYC.MaxUploadSize)<<20).RegisterRoutes(api)
	withdrawhttp.NewHandler(withdrawService).RegisterRoutes(api)
	notifhttp.NewHandler(notifService).RegisterRoutes(api)
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP())
	}
}

func programTerms(p config.ProgramConfig) (claimdomain.ProgramTerms, error) {
	dates, err := p.Dates()
	if err != nil {
		return claimdomain.ProgramTerms{}, err
	}
	return claimdomain.ProgramTerms{
		RegistrationOpen:        dates.RegistrationOpen,
		LockDeadline:            dates.LockDeadline,
		LaunchDate:              dates.LaunchDate,
		EarlyBirdRate:           decimal.NewFromFloat(p.EarlyBirdRate),
		LockInRate:              decimal.NewFromFloat(p.LockInRate),
		ClaimFactor:             decimal.NewFromFloat(p.ClaimFactor),
		MaxLockedSum:            decimal.NewFromFloat(p.MaxLockedSum),
		LockedDiffThreshold:     decimal.NewFromFloat(p.LockedDiffThreshold),
		BalanceRemovalThreshold: decimal.NewFromFloat(p.BalanceRemovalThreshold),
	}, nil
}
