package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值：状态 5s、日志 3s、通知 5s、启停后 1s 复查
const (
	DefaultBaseURL              = "http://localhost:3050"
	DefaultRequestTimeout       = 10 * time.Second
	DefaultStatusInterval       = 5 * time.Second
	DefaultLogsInterval         = 3 * time.Second
	DefaultNotificationDuration = 5 * time.Second
	DefaultActionRefreshDelay   = 1 * time.Second
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Config 面板配置
type Config struct {
	BaseURL              string        // 后端地址（不含 /api）
	RequestTimeout       time.Duration // 单个 HTTP 请求超时
	StatusInterval       time.Duration // 状态轮询间隔
	LogsInterval         time.Duration // 日志页轮询间隔
	NotificationDuration time.Duration // 通知自动隐藏时长
	ActionRefreshDelay   time.Duration // 启停成功后延迟复查状态
	Log                  LogConfig
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	BaseURL              string `yaml:"base_url" json:"base_url"`
	RequestTimeout       string `yaml:"request_timeout" json:"request_timeout"`
	StatusInterval       string `yaml:"status_interval" json:"status_interval"`
	LogsInterval         string `yaml:"logs_interval" json:"logs_interval"`
	NotificationDuration string `yaml:"notification_duration" json:"notification_duration"`
	ActionRefreshDelay   string `yaml:"action_refresh_delay" json:"action_refresh_delay"`
	LogLevel             string `yaml:"log_level" json:"log_level"`
	LogFile              string `yaml:"log_file" json:"log_file"`
	LogMaxSize           int    `yaml:"log_max_size" json:"log_max_size"`
	LogMaxBackups        int    `yaml:"log_max_backups" json:"log_max_backups"`
	LogMaxAge            int    `yaml:"log_max_age" json:"log_max_age"`
	LogCompress          *bool  `yaml:"log_compress" json:"log_compress"`
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值；命令行参数由调用方最后覆盖）
// filePath 为空时只使用环境变量和默认值。
func Load(filePath string) (*Config, error) {
	var cf *ConfigFile
	if filePath != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	} else {
		cf = &ConfigFile{}
	}

	cfg := &Config{
		BaseURL: getEnv("LNPANEL_BASE_URL", firstNonEmpty(cf.BaseURL, DefaultBaseURL)),
		Log: LogConfig{
			Level:      getEnv("LNPANEL_LOG_LEVEL", firstNonEmpty(cf.LogLevel, "info")),
			File:       getEnv("LNPANEL_LOG_FILE", firstNonEmpty(cf.LogFile, "logs/lnpanel.log")),
			MaxSize:    parseIntEnv("LNPANEL_LOG_MAX_SIZE", firstPositive(cf.LogMaxSize, 10)),
			MaxBackups: parseIntEnv("LNPANEL_LOG_MAX_BACKUPS", firstPositive(cf.LogMaxBackups, 3)),
			MaxAge:     parseIntEnv("LNPANEL_LOG_MAX_AGE", firstPositive(cf.LogMaxAge, 7)),
			Compress: func() bool {
				def := true
				if cf.LogCompress != nil {
					def = *cf.LogCompress
				}
				return parseBoolEnv("LNPANEL_LOG_COMPRESS", def)
			}(),
		},
	}

	durations := []struct {
		env  string
		file string
		def  time.Duration
		dst  *time.Duration
	}{
		{"LNPANEL_REQUEST_TIMEOUT", cf.RequestTimeout, DefaultRequestTimeout, &cfg.RequestTimeout},
		{"LNPANEL_STATUS_INTERVAL", cf.StatusInterval, DefaultStatusInterval, &cfg.StatusInterval},
		{"LNPANEL_LOGS_INTERVAL", cf.LogsInterval, DefaultLogsInterval, &cfg.LogsInterval},
		{"LNPANEL_NOTIFICATION_DURATION", cf.NotificationDuration, DefaultNotificationDuration, &cfg.NotificationDuration},
		{"LNPANEL_ACTION_REFRESH_DELAY", cf.ActionRefreshDelay, DefaultActionRefreshDelay, &cfg.ActionRefreshDelay},
	}
	for _, d := range durations {
		raw := getEnv(d.env, d.file)
		if raw == "" {
			*d.dst = d.def
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%s 格式错误 %q: %w", d.env, raw, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}

// Default 返回全部默认值的配置
func Default() *Config {
	return &Config{
		BaseURL:              DefaultBaseURL,
		RequestTimeout:       DefaultRequestTimeout,
		StatusInterval:       DefaultStatusInterval,
		LogsInterval:         DefaultLogsInterval,
		NotificationDuration: DefaultNotificationDuration,
		ActionRefreshDelay:   DefaultActionRefreshDelay,
		Log: LogConfig{
			Level:      "info",
			File:       "logs/lnpanel.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url 未配置")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url 无效: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url 必须是 http/https 地址: %s", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url 缺少主机名: %s", c.BaseURL)
	}
	checks := map[string]time.Duration{
		"request_timeout":       c.RequestTimeout,
		"status_interval":       c.StatusInterval,
		"logs_interval":         c.LogsInterval,
		"notification_duration": c.NotificationDuration,
		"action_refresh_delay":  c.ActionRefreshDelay,
	}
	for name, d := range checks {
		if d <= 0 {
			return fmt.Errorf("%s 必须大于 0", name)
		}
	}
	return nil
}

func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	return &configFile, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
