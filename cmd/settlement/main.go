// 结算服务：提现付款轮询与快照比对
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	claimapp "github.com/odinlabs/claimportal/internal/claim/application"
	claimmysql "github.com/odinlabs/claimportal/internal/claim/infrastructure/persistence/mysql"
	"github.com/odinlabs/claimportal/internal/claim/infrastructure/snapshot"
	notifapp "github.com/odinlabs/claimportal/internal/notification/application"
	notifmysql "github.com/odinlabs/claimportal/internal/notification/infrastructure/persistence/mysql"
	"github.com/odinlabs/claimportal/internal/notification/infrastructure/sender"
	withdrawapp "github.com/odinlabs/claimportal/internal/withdraw/application"
	withdrawmysql "github.com/odinlabs/claimportal/internal/withdraw/infrastructure/persistence/mysql"
	"github.com/odinlabs/claimportal/pkg/config"
	"github.com/odinlabs/claimportal/pkg/db"
	"github.com/odinlabs/claimportal/pkg/ledgerrpc"
	"github.com/odinlabs/claimportal/pkg/logger"
	"github.com/odinlabs/claimportal/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/settlement.toml", "配置文件路径")
	snapshotPath := flag.String("snapshot", "", "快照文件路径，指定后执行一轮快照比对并退出")
	once := flag.Bool("once", false, "只执行一轮结算后退出")
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

	accountRepo := claimmysql.NewAccountRepository(database.DB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 快照比对模式：单次执行，不启动结算轮询
	if *snapshotPath != "" {
		source, err := snapshot.LoadCSV(*snapshotPath)
		if err != nil {
			log.Error("load snapshot failed", "path", *snapshotPath, "error", err)
			os.Exit(1)
		}
		log.Info("snapshot loaded", "path", *snapshotPath, "entries", source.Len())

		comparer := claimapp.NewSnapshotComparer(accountRepo, source, cfg.Settlement.BatchLimit, log)
		updated, err := comparer.RunOnce(ctx)
		if err != nil {
			log.Error("snapshot compare failed", "error", err)
			os.Exit(1)
		}
		log.Info("snapshot compare complete", "updated", updated)
		return
	}

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

	notifService := notifapp.NewService(
		notifmysql.NewPreferenceRepository(database.DB),
		sender.NewSMTPSender(cfg.Notify),
		sender.NewSMSGatewaySender(cfg.Notify),
		producer,
		cfg.Kafka.NotifyTopic,
		log,
	)

	ledgerClient := ledgerrpc.New(ledgerrpc.Config{
		Host:    cfg.Ledger.Host,
		Client:  cfg.Ledger.Client,
		Secret:  cfg.Ledger.Secret,
		Timeout: time.Duration(cfg.Ledger.Timeout) * time.Second,
	})

	worker := withdrawapp.NewSettlementWorker(
		withdrawmysql.NewWithdrawRepository(database.DB),
		accountRepo,
		ledgerClient,
		notifService,
		withdrawapp.WorkerConfig{
			MaturityWindow: time.Duration(cfg.Settlement.MaturityWindow) * time.Minute,
			Interval:       time.Duration(cfg.Settlement.Interval) * time.Minute,
			MaxParallel:    cfg.Settlement.MaxParallel,
			BatchLimit:     cfg.Settlement.BatchLimit,
		},
		log,
	)

	if *once {
		if err := worker.RunOnce(ctx); err != nil {
			log.Error("settlement pass failed", "error", err)
			os.Exit(1)
		}
		return
	}

	worker.Start(ctx)
}
