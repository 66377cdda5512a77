package observability

import (
	"context"
	"log/slog"

	"github.com/honeynil/TrustPay/internal/config"
	"github.com/honeynil/TrustPay/internal/infrastructure/observability"
)

// Setup initializes logging, metrics and tracing and returns the tracer
// shutdown hook.
func Setup(ctx context.Context, serviceName string, cfg *config.Config) func(context.Context) error {
	observability.InitLogger(cfg.LogLevel)
	observability.InitMetrics()
	shutdown, err := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("tracing disabled", "error", err)
		return func(context.Context) error { return nil }
	}
	return shutdown
}
