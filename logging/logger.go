package logging

import (
	"io"
	"os"

	"github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/flowscan/indexer/config"
)

const loggerName = "indexer"

var Logger = logging.MustGetLogger(loggerName)

var format = logging.MustStringFormatter(
	`%{time:2006-01-02T15:04:05.000} %{level:.4s} %{shortfile} %{message}`,
)

// InitLogger initializes the package-level Logger from the log config. It
// must be called once before any other package logs.
func InitLogger(cfg *config.LogConfig) {
	backends := make([]logging.Backend, 0)
	if cfg.UseConsoleLogger {
		consoleBackend := logging.NewLogBackend(os.Stdout, "", 0)
		backends = append(backends, logging.NewBackendFormatter(consoleBackend, format))
	}
	if cfg.UseFileLogger {
		fileWriter := io.Writer(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxFileSizeInMB,
			MaxBackups: cfg.MaxBackupsOfLogFiles,
			MaxAge:     cfg.MaxAgeToRetainLogFilesInDays,
			Compress:   cfg.Compress,
		})
		fileBackend := logging.NewLogBackend(fileWriter, "", 0)
		backends = append(backends, logging.NewBackendFormatter(fileBackend, format))
	}
	leveled := logging.SetBackend(backends...)
	level, err := logging.LogLevel(cfg.Level)
	if err != nil {
		level = logging.INFO
	}
	leveled.SetLevel(level, "")
	Logger.SetBackend(leveled)
}
