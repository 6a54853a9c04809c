// Package logging provides structured logging for the quoting service
package logging

import (
	"go.uber.org/zap"
)

// ServiceLogger wraps zap.Logger with the service's default fields
type ServiceLogger struct {
	*zap.Logger
}

// Config holds logging configuration
type Config struct {
	Level       string            `json:"level" yaml:"level"`
	Format      string            `json:"format" yaml:"format"` // "json" or "console"
	OutputPath  string            `json:"output_path" yaml:"output_path"`
	Fields      map[string]string `json:"fields" yaml:"fields"`
	Development bool              `json:"development" yaml:"development"`
}

// NewLogger creates a new structured logger
func NewLogger(config Config) (*ServiceLogger, error) {
	var zapConfig zap.Config

	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if config.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	zapFields := make([]zap.Field, 0, len(config.Fields))
	for k, v := range config.Fields {
		zapFields = append(zapFields, zap.String(k, v))
	}
	return &ServiceLogger{Logger: logger.With(zapFields...)}, nil
}

// Named returns a logger for one component, e.g. "store" or "http"
func (l *ServiceLogger) Named(component string) *zap.Logger {
	return l.Logger.With(zap.String("component", component))
}

// LogPersistenceEvent logs a save or load against a document store
func (l *ServiceLogger) LogPersistenceEvent(store, operation string, err error) {
	if err != nil {
		l.Warn("Persistence call failed",
			zap.String("store", store),
			zap.String("operation", operation),
			zap.Error(err))
		return
	}
	l.Debug("Persistence call succeeded",
		zap.String("store", store),
		zap.String("operation", operation))
}

// Sync flushes any buffered log entries
func (l *ServiceLogger) Sync() error {
	return l.Logger.Sync()
}
