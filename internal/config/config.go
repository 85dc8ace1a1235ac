package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL     = "https://api.chess.com/pub"
	DefaultUserAgent   = "chess-guru (chess.com API)"
	DefaultTimeout     = 30 * time.Second
	DefaultSchema      = "src_chesscom"
	DefaultRosterPath  = "./config/chess_players.yml"
	DefaultConcurrency = 4
)

// Config 全局配置结构体（与 config/config.yaml 对应）
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`    // HTTP 触发服务配置
	Postgres  PostgresConfig  `mapstructure:"postgres"`  // PostgreSQL配置
	Upstream  UpstreamConfig  `mapstructure:"upstream"`  // Chess.com API 配置
	Sync      SyncConfig      `mapstructure:"sync"`      // 同步调度配置
	Log       LogConfig       `mapstructure:"log"`       // 日志配置
	Telemetry TelemetryConfig `mapstructure:"telemetry"` // 链路追踪配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// PostgresConfig PostgreSQL数据库配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	Schema          string        `mapstructure:"schema"`            // 源表所在 schema，空表示不加前缀
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
}

// UpstreamConfig Chess.com API 客户端配置
type UpstreamConfig struct {
	BaseURL           string        `mapstructure:"base_url"`            // API基础地址
	UserAgent         string        `mapstructure:"user_agent"`          // User-Agent 请求头
	Timeout           time.Duration `mapstructure:"timeout"`             // 单次请求超时
	Proxy             string        `mapstructure:"proxy"`               // 代理地址
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 限流（每秒请求数），<=0 不限流
	Burst             int           `mapstructure:"burst"`               // 限流突发量
	Concurrency       int           `mapstructure:"concurrency"`         // 同一轮内并发处理的棋手数
}

// SyncConfig 同步调度配置
type SyncConfig struct {
	RosterPath       string        `mapstructure:"roster_path"`       // 棋手名单文件
	GamesInterval    time.Duration `mapstructure:"games_interval"`    // 全量对局增量同步间隔，0 表示只由检测触发
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"` // 快照轮询间隔
	DetectInterval   time.Duration `mapstructure:"detect_interval"`   // 新对局检测间隔
	EnabledMethods   []string      `mapstructure:"enabled_methods"`   // 启用的快照方法，空表示全部
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// TelemetryConfig OpenTelemetry 配置
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Stdout      bool   `mapstructure:"stdout"`
	ServiceName string `mapstructure:"service_name"`
}

// LoadConfig 加载配置文件，敏感项和运行期覆盖项从环境变量（含 .env）读取。
// path 为空时在 ./config 下查找 config.yaml，找不到则只使用默认值与环境变量。
func LoadConfig(path string) (*Config, error) {
	// 1. 加载 .env（若存在），不覆盖已存在的环境变量
	_ = godotenv.Load()

	// 2. 读取 yaml
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 环境变量覆盖（优先级 env > yaml）
	if err := overrideFromEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("postgres.schema", DefaultSchema)
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", "30m")
	v.SetDefault("postgres.log_level", "warn")
	v.SetDefault("upstream.base_url", DefaultBaseURL)
	v.SetDefault("upstream.user_agent", DefaultUserAgent)
	v.SetDefault("upstream.timeout", DefaultTimeout.String())
	v.SetDefault("upstream.requests_per_second", 3)
	v.SetDefault("upstream.burst", 1)
	v.SetDefault("upstream.concurrency", DefaultConcurrency)
	v.SetDefault("sync.roster_path", DefaultRosterPath)
	v.SetDefault("sync.games_interval", "0s")
	v.SetDefault("sync.snapshot_interval", "5m")
	v.SetDefault("sync.detect_interval", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.service_name", "chess-sync")
}

// overrideFromEnv 用环境变量覆盖配置；getenv 可注入便于测试
func overrideFromEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := getenv("CHESS_GURU_USER_AGENT"); v != "" {
		cfg.Upstream.UserAgent = v
	}
	if v := getenv("CHESS_GURU_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("CHESS_GURU_TIMEOUT 无效(%s): %w", v, err)
		}
		cfg.Upstream.Timeout = d
	}
	if v := getenv("CHESS_SYNC_ROSTER"); v != "" {
		cfg.Sync.RosterPath = v
	}
	return nil
}

// parseTimeout 支持纯数字（秒）或 Go duration 字符串
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs <= 0 {
			return 0, errors.New("必须大于0")
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("必须大于0")
	}
	return d, nil
}

// normalize 兜底空值，保证下游组件拿到可用配置
func (c *Config) normalize() {
	c.Upstream.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Upstream.BaseURL), "/")
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.Upstream.UserAgent) == "" {
		c.Upstream.UserAgent = DefaultUserAgent
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = DefaultTimeout
	}
	if c.Upstream.Concurrency <= 0 {
		c.Upstream.Concurrency = DefaultConcurrency
	}
	if c.Sync.RosterPath == "" {
		c.Sync.RosterPath = DefaultRosterPath
	}
	c.Postgres.Schema = strings.TrimSpace(c.Postgres.Schema)
}

// Validate 校验启动必需项，失败时整轮任务不得开始
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		return errors.New("缺少数据库连接串（postgres.dsn 或环境变量 POSTGRES_URL）")
	}
	return nil
}
