package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"fieldcat/internal/configuration"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configPath string
	config     *configuration.AppConfig
	runID      string
	logCloser  io.Closer

	rootCmd = &cobra.Command{
		Use:           "fieldcat",
		Short:         "Classify field galaxy catalogs and bin them by redshift, mass and population",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			config, err = configuration.LoadConfig(configPath)
			if err != nil {
				return err
			}
			runID = uuid.NewString()
			logCloser = prepareLogger(config.Logger, runID)
			slog.Debug("Configuration loaded", "config", configPath)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
	}
)

// prepareLogger настраивает глобальный логгер с использованием slog.
// Принимает строковый уровень логирования (например, "debug", "info", "warn", "error")
// и устанавливает JSON-форматированный вывод на os.Stdout, либо в файл с ротацией,
// если задан logger.file. Каждая запись содержит run_id запуска.
// Если уровень не распознан, используется уровень Info по умолчанию.
func prepareLogger(cfg configuration.LoggerConfig, runID string) io.Closer {
	var logLevel slog.Level

	switch strings.ToLower(cfg.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	var closer io.Closer
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
		}
		out, closer = lj, lj
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler).With("run_id", runID)
	slog.SetDefault(logger)
	return closer
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/fieldcat/config.yaml", "configuration file")
	rootCmd.AddCommand(classifyCmd, binCmd, serveCmd)
}

// При ошибках на этапе загрузки конфигурации, чтения каталога, классификации или биннинга
// приложение завершается с кодом 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
