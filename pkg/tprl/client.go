// Package tprl builds Temporal clients for durable agent runs.
package tprl

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prplworks/cpeforge/pkg/slogx"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

func envStrOrDefault(key, def string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return def
}

// NewClient returns a lazy Temporal client pointed at TEMPORAL_ADDRESS,
// logging through the process-wide slog handler.
func NewClient() (client.Client, error) {
	lg := slog.Default().With(slogx.LoggerName("cpeforge.temporal"))

	cl, err := client.NewLazyClient(client.Options{
		HostPort: envStrOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Logger:   log.NewStructuredLogger(lg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}
	return cl, nil
}
