package log

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

type (
	Logger = logrus.Logger
	Fields = logrus.Fields
	Entry  = logrus.Entry
)

const (
	// default log level
	defaultLogLevel = logrus.InfoLevel

	// log file name
	globalLogFileName = "global.log"
	// default log directory
	logDir = "nodelogs"
	// default log file params
	defaultLogMaxSize    = 100 // maximum file size before rotation, in MB
	defaultLogMaxBackups = 3   // maximum number of old log files to keep
	defaultLogMaxAge     = 28  // maximum number of days to retain old log files
)

var (
	// Global is the process wide logger. Chain specific loggers are created
	// with NewLogger.
	Global *Logger

	defaultLogFilePath = "./" + logDir + "/" + globalLogFileName
)

func init() {
	Global = createStandardLogger(defaultLogFilePath, defaultLogLevel.String(), true)
}

// SetGlobalLogger redirects the global logger to logFilename (and stdout) at
// the given level. An empty filename keeps the default path.
func SetGlobalLogger(logFilename string, logLevel string) {
	if logFilename == "" {
		logFilename = defaultLogFilePath
	}
	output := &lumberjack.Logger{
		Filename:   logFilename,
		MaxSize:    defaultLogMaxSize,
		MaxBackups: defaultLogMaxBackups,
		MaxAge:     defaultLogMaxAge,
	}
	Global.SetOutput(io.MultiWriter(output, os.Stdout))
	WithLevel(logLevel)(Global)
}

// NewLogger returns a logger writing only to logFilename. Each tributary gets
// its own so that chains can be debugged independently.
func NewLogger(logFilename string, logLevel string, opts ...Options) *Logger {
	if logFilename == "" {
		logFilename = defaultLogFilePath
	}
	logger := createStandardLogger(logFilename, logLevel, false)
	for _, opt := range opts {
		opt(logger)
	}
	logger.WithFields(Fields{
		"path":  logFilename,
		"level": logLevel,
	}).Info("Chain logger started")
	return logger
}

// NewNullLogger returns a logger that discards everything. Used by tests.
func NewNullLogger() *Logger {
	logger := logrus.New()
	WithNullLogger()(logger)
	return logger
}

func createStandardLogger(logFilename string, logLevel string, stdOut bool) *Logger {
	logger := logrus.New()
	output := &lumberjack.Logger{
		Filename:   logFilename,
		MaxSize:    defaultLogMaxSize,
		MaxBackups: defaultLogMaxBackups,
		MaxAge:     defaultLogMaxAge,
	}

	if stdOut {
		logger.SetOutput(io.MultiWriter(output, os.Stdout))
	} else {
		logger.SetOutput(output)
	}

	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		PadLevelText:    true,
		FullTimestamp:   true,
		TimestampFormat: "01-02|15:04:05.000",
	})
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = defaultLogLevel
	}
	logger.SetLevel(level)
	return logger
}
