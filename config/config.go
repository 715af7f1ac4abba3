package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// 服务器配置
	Port           string
	AllowedOrigins []string

	// 模拟配置
	Seed           int64
	TickInterval   time.Duration
	RetryBackoff   time.Duration
	DrainTimeout   time.Duration
	LogHistorySize int
	BootstrapLogs  int
	EventsFile     string // 为空时使用内置事件

	// 日志归档 (为空则禁用)
	DatabaseURL string

	// AMQP 广播 (为空则禁用)
	AMQPURL      string
	AMQPExchange string

	// 飞书通知 (为空则禁用)
	LarkWebhook   string
	StatsInterval time.Duration

	// 其他配置
	Environment string
	LogLevel    string
}

func Load() *Config {
	return &Config{
		// 服务器配置
		Port:           getEnv("PORT", "8200"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", "*"),

		// 模拟配置
		Seed:           int64(getEnvInt("SIM_SEED", 0)),
		TickInterval:   getEnvMillis("TICK_INTERVAL_MS", 2000),
		RetryBackoff:   getEnvMillis("RETRY_BACKOFF_MS", 5000),
		DrainTimeout:   getEnvMillis("DRAIN_TIMEOUT_MS", 5000),
		LogHistorySize: getEnvInt("LOG_HISTORY_SIZE", 1000),
		BootstrapLogs:  getEnvInt("BOOTSTRAP_LOGS", 50),
		EventsFile:     getEnv("EVENTS_FILE", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "livepulse"),

		LarkWebhook:   getEnv("LARK_WEBHOOK", ""),
		StatsInterval: time.Duration(getEnvInt("STATS_INTERVAL_MIN", 5)) * time.Minute,

		// 其他配置
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int
	fmt.Sscanf(value, "%d", &result)
	if result == 0 {
		return defaultValue
	}
	return result
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}

func getList(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
