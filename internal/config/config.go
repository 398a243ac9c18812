// 설정 로딩
//
// 우선순위 (뒤가 이김):
//  1. 기본값
//  2. YAML 설정 파일 (-c/--config-file 또는 SMSGATE_CONFIG)
//  3. .env 파일 (이미 설정된 환경변수는 덮어쓰지 않음)
//  4. 환경변수

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen          = "0.0.0.0"
	DefaultPort            = 8080
	DefaultSupervisionName = "Supervision"
	DefaultAlertMaxLength  = 2500
)

type Config struct {
	HTTPServer HTTPServerConfig `yaml:"http_server"`

	SupervisionName string `yaml:"supervision_name"`

	// 전송 명령 템플릿. ${NUMBER}, ${ALERT_MESSAGE}, ${ALERT_MESSAGE_LEN} 치환
	SMSCommand string `yaml:"sms_command"`
	// 전송 명령 최대 실행 시간 (예: "30s", 비어있으면 제한 없음)
	SMSCommandTimeout string `yaml:"sms_command_timeout"`

	AlertMaxLength int `yaml:"alert_max_length"`
	// 번호별 최소 전송 간격 (초)
	MinInterval int `yaml:"min_interval"`
	// 전체 전송 제한 "count/seconds" (예: "10/3600")
	GlobalRateLimit string `yaml:"global_rate_limit"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console | json

	Database DatabaseConfig `yaml:"database"`
}

type HTTPServerConfig struct {
	Listen   string `yaml:"listen"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	// 평문 또는 bcrypt 해시 ($2a$..., $2b$...)
	Password string `yaml:"password"`
	NoAuth   bool   `yaml:"no_auth"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// Load reads the optional YAML file at path then applies .env and
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPServer: HTTPServerConfig{
			Listen: DefaultListen,
			Port:   DefaultPort,
		},
		SupervisionName: DefaultSupervisionName,
		AlertMaxLength:  DefaultAlertMaxLength,
		LogLevel:        "info",
		LogFormat:       "console",
	}

	if path == "" {
		path = os.Getenv("SMSGATE_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(&cfg)

	if cfg.AlertMaxLength <= 0 {
		cfg.AlertMaxLength = DefaultAlertMaxLength
	}
	if cfg.SupervisionName == "" {
		cfg.SupervisionName = DefaultSupervisionName
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPServer.Listen = getenv("HTTP_LISTEN", cfg.HTTPServer.Listen)
	cfg.HTTPServer.Port = getenvInt("HTTP_PORT", cfg.HTTPServer.Port)
	cfg.HTTPServer.Username = getenv("HTTP_USERNAME", cfg.HTTPServer.Username)
	cfg.HTTPServer.Password = getenv("HTTP_PASSWORD", cfg.HTTPServer.Password)
	cfg.HTTPServer.NoAuth = getenvBool("HTTP_NO_AUTH", cfg.HTTPServer.NoAuth)

	cfg.SupervisionName = getenv("SUPERVISION_NAME", cfg.SupervisionName)
	cfg.SMSCommand = getenv("SMS_COMMAND", cfg.SMSCommand)
	cfg.SMSCommandTimeout = getenv("SMS_COMMAND_TIMEOUT", cfg.SMSCommandTimeout)
	cfg.AlertMaxLength = getenvInt("ALERT_MAX_LENGTH", cfg.AlertMaxLength)
	cfg.MinInterval = getenvInt("MIN_INTERVAL", cfg.MinInterval)
	cfg.GlobalRateLimit = getenv("GLOBAL_RATE_LIMIT", cfg.GlobalRateLimit)

	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)

	cfg.Database.URL = getenv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Host = getenv("PGHOST", cfg.Database.Host)
	cfg.Database.Port = getenv("PGPORT", cfg.Database.Port)
	cfg.Database.User = getenv("PGUSER", cfg.Database.User)
	cfg.Database.Password = getenv("PGPASSWORD", cfg.Database.Password)
	cfg.Database.Database = getenv("PGDATABASE", cfg.Database.Database)
	cfg.Database.SSLMode = getenv("PGSSLMODE", cfg.Database.SSLMode)
}

// Addr returns the HTTP bind address.
func (c Config) Addr() string {
	listen := c.HTTPServer.Listen
	if listen == "" {
		listen = DefaultListen
	}
	port := c.HTTPServer.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(listen, strconv.Itoa(port))
}

// CommandTimeout - sms_command_timeout 파싱 (비어있거나 잘못된 값이면 0 = 제한 없음)
func (c Config) CommandTimeout() (time.Duration, error) {
	if strings.TrimSpace(c.SMSCommandTimeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.SMSCommandTimeout))
	if err != nil {
		return 0, fmt.Errorf("invalid sms_command_timeout %q: %w", c.SMSCommandTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid sms_command_timeout %q: negative", c.SMSCommandTimeout)
	}
	return d, nil
}

// MinIntervalDuration returns the server side per number interval.
func (c Config) MinIntervalDuration() time.Duration {
	if c.MinInterval <= 0 {
		return 0
	}
	return time.Duration(c.MinInterval) * time.Second
}

// ParseGlobalRateLimit - "count/seconds" 형식 파싱
// 빈 문자열이면 (0, 0, nil) 을 반환합니다 (제한 없음).
func ParseGlobalRateLimit(s string) (int, time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	countStr, windowStr, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid global_rate_limit %q: expected count/seconds", s)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("invalid global_rate_limit count %q", countStr)
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(windowStr))
	if err != nil || seconds <= 0 {
		return 0, 0, fmt.Errorf("invalid global_rate_limit window %q", windowStr)
	}
	return count, time.Duration(seconds) * time.Second, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
