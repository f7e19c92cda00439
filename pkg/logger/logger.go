package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/sma-records-console/pkg/config"
	"github.com/noah-isme/sma-records-console/pkg/middleware/requestid"
)

// New builds the service logger from the log section of the config.
func New(cfg *config.Config) (*zap.Logger, error) {
	return build(cfg, nil)
}

// NewConsole builds a logger for the interactive console. Output goes to stderr so
// it never interleaves with rendered tables on stdout, and defaults to warn level.
func NewConsole(cfg *config.Config) (*zap.Logger, error) {
	return build(cfg, func(zc *zap.Config) {
		zc.OutputPaths = []string{"stderr"}
		zc.Encoding = "console"
		if cfg.Log.Level == "" || cfg.Log.Level == "info" {
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
	})
}

func build(cfg *config.Config, tweak func(*zap.Config)) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Log.Format {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if tweak != nil {
		tweak(&zapCfg)
	}

	return zapCfg.Build()
}

// GinMiddleware logs one line per request. Server errors are logged at error level.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if status >= 500 {
			l.Error("http_request", fields...)
			return
		}
		l.Info("http_request", fields...)
	}
}
