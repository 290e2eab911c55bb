// Package config 提供 TOML 配置加载与环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odinlabs/claimportal/pkg/logger"
	"github.com/spf13/viper"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 账本 RPC 配置
	Ledger LedgerConfig `mapstructure:"ledger"`
	// KYC 服务商配置
	KYC KYCConfig `mapstructure:"kyc"`
	// 通知配置
	Notify NotifyConfig `mapstructure:"notify"`
	// 申领计划配置
	Program ProgramConfig `mapstructure:"program"`
	// 结算配置
	Settlement SettlementConfig `mapstructure:"settlement"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    int    `mapstructure:"conn_max_lifetime"`
	LogEnabled         bool   `mapstructure:"log_enabled"`
	SlowQueryThreshold int    `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	// 账户缓存有效期（秒）
	CacheTTL int `mapstructure:"cache_ttl"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	// 通知事件主题
	NotifyTopic string `mapstructure:"notify_topic"`
	MaxRetries  int    `mapstructure:"max_retries"`
	// 重试间隔（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// LedgerConfig 外部账本 RPC 配置
type LedgerConfig struct {
	// RPC 网关地址，例如 https://wallet.example.org/api/blockchain
	Host string `mapstructure:"host"`
	// Basic Auth 凭证
	Client string `mapstructure:"client"`
	Secret string `mapstructure:"secret"`
	// 单次调用超时（秒）
	Timeout int `mapstructure:"timeout"`
	// 申领资金池账户名
	PoolAccount string `mapstructure:"pool_account"`
}

// KYCConfig 身份核验服务商配置
type KYCConfig struct {
	// 服务商 API 地址
	APIHost string `mapstructure:"api_host"`
	// 客户端标识
	ClientKey string `mapstructure:"client_key"`
	// 签名共享密钥
	SecretKey string `mapstructure:"secret_key"`
	// 回调地址前缀
	CallbackHost string `mapstructure:"callback_host"`
	// 上传文件大小上限（MB）
	MaxUploadSize int `mapstructure:"max_upload_size"`
	// 提交超时（秒）
	Timeout int `mapstructure:"timeout"`
	// 重复提交策略
	MaxDeclined int `mapstructure:"max_declined"`
	MaxInvalid  int `mapstructure:"max_invalid"`
	// invalid 后的重试冷却（分钟）
	RetryWait int `mapstructure:"retry_wait"`
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     string `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromName     string `mapstructure:"from_name"`
	FromAddress  string `mapstructure:"from_address"`
	SMSGateway   string `mapstructure:"sms_gateway"`
	SMSKey       string `mapstructure:"sms_key"`
	SMSSecret    string `mapstructure:"sms_secret"`
}

// ProgramConfig 申领计划的固定参数。日期一经上线不再变更，
// 以不可变结构体注入各组件构造函数。
type ProgramConfig struct {
	// 注册开放日，RFC3339
	RegistrationOpen string `mapstructure:"registration_open"`
	// 锁定截止时间
	LockDeadline string `mapstructure:"lock_deadline"`
	// 快照/上线日
	LaunchDate string `mapstructure:"launch_date"`
	// 早鸟奖励系数
	EarlyBirdRate float64 `mapstructure:"early_bird_rate"`
	// 锁定奖励系数
	LockInRate float64 `mapstructure:"lock_in_rate"`
	// 申领兑换倍数
	ClaimFactor float64 `mapstructure:"claim_factor"`
	// 锁定总额上限，超过则申领被拒
	MaxLockedSum float64 `mapstructure:"max_locked_sum"`
	// 快照差额阈值，达到则申领被拒
	LockedDiffThreshold float64 `mapstructure:"locked_diff_threshold"`
	// 余额刷新时视为异常转出的差额
	BalanceRemovalThreshold float64 `mapstructure:"balance_removal_threshold"`
}

// SettlementConfig 提现结算配置
type SettlementConfig struct {
	// 请求成熟窗口（分钟），早于该窗口的 pending 请求才会被结算
	MaturityWindow int `mapstructure:"maturity_window"`
	// 轮询间隔（分钟）
	Interval int `mapstructure:"interval"`
	// 并行结算的账户数上限
	MaxParallel int `mapstructure:"max_parallel"`
	// 单批处理的请求数上限
	BatchLimit int `mapstructure:"batch_limit"`
	// 提现保留额，余额永远不会被提空
	ReserveEpsilon float64 `mapstructure:"reserve_epsilon"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("CLAIMPORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "claim-portal")
	v.SetDefault("environment", "dev")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.slow_query_threshold", 1000)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.cache_ttl", 60)
	v.SetDefault("kafka.notify_topic", "claimportal.notifications")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("ledger.timeout", 30)
	v.SetDefault("ledger.pool_account", "claim_primary")
	v.SetDefault("kyc.max_upload_size", 8)
	v.SetDefault("kyc.timeout", 60)
	v.SetDefault("kyc.max_declined", 3)
	v.SetDefault("kyc.max_invalid", 5)
	v.SetDefault("kyc.retry_wait", 30)
	v.SetDefault("program.registration_open", "2018-07-27T00:00:00Z")
	v.SetDefault("program.lock_deadline", "2018-09-14T00:00:00Z")
	v.SetDefault("program.launch_date", "2018-09-21T00:00:00Z")
	v.SetDefault("program.early_bird_rate", 0.03)
	v.SetDefault("program.lock_in_rate", 0.07)
	v.SetDefault("program.claim_factor", 2.5)
	v.SetDefault("program.max_locked_sum", 150000)
	v.SetDefault("program.locked_diff_threshold", 1000)
	v.SetDefault("program.balance_removal_threshold", 10000)
	v.SetDefault("settlement.maturity_window", 5)
	v.SetDefault("settlement.interval", 5)
	v.SetDefault("settlement.max_parallel", 8)
	v.SetDefault("settlement.batch_limit", 500)
	v.SetDefault("settlement.reserve_epsilon", 0.01)
}

// Validate 校验配置。计划日期格式错误属于致命的配置错误。
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if _, err := c.Program.Dates(); err != nil {
		return err
	}
	if c.Settlement.MaturityWindow <= 0 {
		return errors.New("settlement.maturity_window must be positive")
	}
	return nil
}

// ProgramDates 解析后的计划日期
type ProgramDates struct {
	RegistrationOpen time.Time
	LockDeadline     time.Time
	LaunchDate       time.Time
}

// Dates 解析计划日期，任何一项格式错误即返回错误
func (p ProgramConfig) Dates() (ProgramDates, error) {
	open, err := time.Parse(time.RFC3339, p.RegistrationOpen)
	if err != nil {
		return ProgramDates{}, fmt.Errorf("invalid program.registration_open: %w", err)
	}
	deadline, err := time.Parse(time.RFC3339, p.LockDeadline)
	if err != nil {
		return ProgramDates{}, fmt.Errorf("invalid program.lock_deadline: %w", err)
	}
	launch, err := time.Parse(time.RFC3339, p.LaunchDate)
	if err != nil {
		return ProgramDates{}, fmt.Errorf("invalid program.launch_date: %w", err)
	}
	if !deadline.After(open) || !launch.After(open) {
		return ProgramDates{}, errors.New("program dates out of order")
	}
	return ProgramDates{RegistrationOpen: open, LockDeadline: deadline, LaunchDate: launch}, nil
}
