package server

import (
	"time"

	"go.uber.org/zap"

	internalserver "github.com/SmitUplenchwar2687/admit/internal/server"
	"github.com/SmitUplenchwar2687/admit/pkg/clock"
	"github.com/SmitUplenchwar2687/admit/pkg/limiter"
)

// Server is the admit HTTP server that gates a demo action.
type Server = internalserver.Server

// Coordinator is the admission gate the server needs.
type Coordinator = internalserver.Coordinator

// EchoResult is what the demo action returns.
type EchoResult = internalserver.EchoResult

// Options configures optional server features.
type Options = internalserver.Options

// Hub manages WebSocket clients and broadcasts admission events.
type Hub = internalserver.Hub

// DashboardHTML is the embedded single-page dashboard.
const DashboardHTML = internalserver.DashboardHTML

// New creates a new admit server.
func New(addr string, coord Coordinator, clk clock.Clock, opts ...Options) *Server {
	return internalserver.New(addr, coord, clk, opts...)
}

// NewHub creates a new WebSocket hub.
func NewHub(log *zap.Logger) *Hub {
	return internalserver.NewHub(log)
}

// EchoAction returns the demo action.
func EchoAction(clk clock.Clock, work time.Duration) limiter.Action[string, EchoResult] {
	return internalserver.EchoAction(clk, work)
}
