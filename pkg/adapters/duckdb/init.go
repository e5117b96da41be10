package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/mstools/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Store { return New(logger) })
}
