package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/mstools/pkg/adapter"
)

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Store { return New(logger) })
}
