package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/nkiryanov/fuowallet/internal/logger"
)

// NewInProcess creates pub/sub delivering events within the process
func NewInProcess(l logger.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, NewLoggerAdapter(l))
}

// loggerAdapter lets watermill log through application logger
type loggerAdapter struct {
	logger logger.Logger
}

func NewLoggerAdapter(l logger.Logger) watermill.LoggerAdapter {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &loggerAdapter{logger: l.WithGroup("watermill")}
}

func args(fields watermill.LogFields) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(args(fields), "error", err)...)
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, args(fields)...)
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, args(fields)...)
}

// Trace is too chatty even for debug level
func (a *loggerAdapter) Trace(string, watermill.LogFields) {}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{logger: a.logger.With(args(fields)...)}
}
