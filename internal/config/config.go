package config

import (
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 链配置
type ChainConfig struct {
	ChainId         int64  `mapstructure:"chain_id"`         // 链ID
	RpcUrl          string `mapstructure:"rpc_url"`          // RPC节点URL
	PrivateKey      string `mapstructure:"private_key"`      // 私钥
	ContractAddress string `mapstructure:"contract_address"` // 众筹合约地址
	StartBlock      uint64 `mapstructure:"start_block"`      // 合约部署区块号
	Confirmations   uint64 `mapstructure:"confirmations"`    // 确认区块数
	RetryAttempts   int    `mapstructure:"retry_attempts"`   // 读操作重试次数
	RetryBackoffMs  int    `mapstructure:"retry_backoff_ms"` // 重试初始退避（毫秒）
	ReceiptTimeout  int    `mapstructure:"receipt_timeout"`  // 回执等待超时（秒）
}

// SyncConfig 事件同步配置
type SyncConfig struct {
	PollInterval int `mapstructure:"poll_interval"` // 轮询间隔（秒）
	Buffer       int `mapstructure:"buffer"`        // 事件通道缓冲大小
	ChainTimeout int `mapstructure:"chain_timeout"` // 链上资格查询超时（秒）
}

// ReconcileConfig 对账配置
type ReconcileConfig struct {
	ResyncInterval int `mapstructure:"resync_interval"` // 全量重同步间隔（秒）
	RetryInterval  int `mapstructure:"retry_interval"`  // 重试队列处理间隔（秒）
	AuditInterval  int `mapstructure:"audit_interval"`  // 漂移审计间隔（秒）
	Workers        int `mapstructure:"workers"`         // 重同步协程池大小
	MaxAttempts    int `mapstructure:"max_attempts"`    // 重试上限
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fundchain")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "fundchain")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.start_block", 0)
	viper.SetDefault("chain.confirmations", 12)
	viper.SetDefault("chain.retry_attempts", 5)
	viper.SetDefault("chain.retry_backoff_ms", 500)
	viper.SetDefault("chain.receipt_timeout", 15)
	viper.SetDefault("sync.poll_interval", 15)
	viper.SetDefault("sync.buffer", 256)
	viper.SetDefault("sync.chain_timeout", 5)
	viper.SetDefault("reconcile.resync_interval", 600)
	viper.SetDefault("reconcile.retry_interval", 60)
	viper.SetDefault("reconcile.audit_interval", 300)
	viper.SetDefault("reconcile.workers", 8)
	viper.SetDefault("reconcile.max_attempts", 10)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
