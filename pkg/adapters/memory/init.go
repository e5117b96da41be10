package memory

import (
	"log/slog"

	"github.com/leapstack-labs/mstools/pkg/adapter"
)

func init() {
	adapter.Register("memory", func(logger *slog.Logger) adapter.Store { return New(logger) })
}
