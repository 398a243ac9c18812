package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kube-rca/smsgate/internal/client"
	"github.com/kube-rca/smsgate/internal/config"
	"github.com/kube-rca/smsgate/internal/db"
	"github.com/kube-rca/smsgate/internal/service"
	tmpl "github.com/kube-rca/smsgate/internal/template"
)

// 빌드 시 -ldflags "-X main.version=..." 로 주입
var version = "dev"

var (
	configFile string
	devMode    bool
)

var rootCmd = &cobra.Command{
	Use:           "smsgate",
	Short:         "Grafana alerts to SMS commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "debug logging and gin debug mode")

	rootCmd.AddCommand(serveCmd, sendCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("smsgate failed")
		os.Exit(1)
	}
}

// loadConfig - 설정 로드 후 로거 설정
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}
	if devMode {
		cfg.LogLevel = "debug"
		cfg.LogFormat = "console"
	}
	setupLogging(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func setupLogging(level, format string) {
	switch strings.ToLower(level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if strings.ToLower(format) == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// dispatchOptions - 서버 설정으로 기본 전송 옵션 생성
// global_rate_limit 값이 잘못되면 전체 제한은 끄고 로그만 남김
func dispatchOptions(cfg config.Config) service.DispatchOptions {
	opts := service.DispatchOptions{
		ServerMinInterval: cfg.MinIntervalDuration(),
		MaxMessageLength:  cfg.AlertMaxLength,
		SupervisionName:   cfg.SupervisionName,
		CommandTemplate:   cfg.SMSCommand,
		Group:             true,
	}

	count, window, err := config.ParseGlobalRateLimit(cfg.GlobalRateLimit)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("Bogus global rate limit given, global rate limiting disabled")
	case count > 0:
		opts.GlobalLimit = &service.GlobalLimit{Count: count, Window: window}
		log.Info().Int("count", count).Dur("window", window).Msg("Global rate limit enabled")
	}
	return opts
}

// newDispatchService - 전송 엔진 조립
// DB가 설정되어 있으면 전송 이력 저장소를 붙이고, 실패해도 이력 없이 계속 동작
func newDispatchService(ctx context.Context, cfg config.Config) (*service.DispatchService, *db.Postgres, error) {
	timeout, err := cfg.CommandTimeout()
	if err != nil {
		return nil, nil, err
	}

	if cfg.SMSCommand == "" {
		log.Warn().Msg("No sms_command configured, every send will answer 'Server not configured'")
	} else if !tmpl.HasPlaceholders(cfg.SMSCommand) {
		log.Warn().Str("sms_command", cfg.SMSCommand).Msg("sms_command has no ${NUMBER} placeholder")
	}

	limiter := service.NewRateLimiter()
	service.RegisterLimiterMetrics(prometheus.DefaultRegisterer, limiter)
	svc := service.NewDispatchService(limiter, client.NewCommandClient(timeout))

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := db.NewPostgres(connectCtx, cfg.Database)
	switch {
	case errors.Is(err, db.ErrNotConfigured):
		log.Info().Msg("Database not configured, delivery history disabled")
		return svc, nil, nil
	case err != nil:
		log.Error().Err(err).Msg("Failed to connect to database, delivery history disabled")
		return svc, nil, nil
	}

	svc.WithRecorder(store)
	log.Info().Msg("Delivery history enabled")
	return svc, store, nil
}
