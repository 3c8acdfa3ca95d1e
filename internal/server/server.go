package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/admit/internal/clock"
	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

// Coordinator is the admission gate the server puts in front of the demo
// action. *limiter.Coordinator[string, EchoResult] satisfies it.
type Coordinator interface {
	Execute(ctx context.Context, arg string) (EchoResult, error)
	Status() []limiter.Usage
	Name() string
	Strategy() limiter.Strategy
}

// EchoResult is what the demo action returns.
type EchoResult struct {
	Arg  string        `json:"arg"`
	Work time.Duration `json:"work"`
}

// EchoAction returns the demo action: it holds for work on clk, then
// echoes its argument.
func EchoAction(clk clock.Clock, work time.Duration) limiter.Action[string, EchoResult] {
	return func(ctx context.Context, arg string) (EchoResult, error) {
		if work > 0 {
			t := clk.NewTimer(work)
			select {
			case <-ctx.Done():
				t.Stop()
				return EchoResult{}, ctx.Err()
			case <-t.C():
			}
		}
		return EchoResult{Arg: arg, Work: work}, nil
	}
}

// Options configures optional server features.
type Options struct {
	Hub         *Hub                // enables /ws and /dashboard/
	Gatherer    prometheus.Gatherer // enables the metrics endpoint
	MetricsPath string              // defaults to /metrics
	Logger      *zap.Logger
}

// Server is the admit HTTP server. Every call to /api/execute waits for
// admission before the demo action runs.
type Server struct {
	httpServer *http.Server
	coord      Coordinator
	clock      clock.Clock
	router     chi.Router
	hub        *Hub
	log        *zap.Logger
}

// New creates a new admit server.
func New(addr string, coord Coordinator, clk clock.Clock, opts ...Options) *Server {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.MetricsPath == "" {
		opt.MetricsPath = "/metrics"
	}

	s := &Server{
		coord:  coord,
		clock:  clk,
		router: chi.NewRouter(),
		hub:    opt.Hub,
		log:    opt.Logger,
	}
	s.routes(opt)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(opt Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogger(s.log, s.clock))

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/execute", s.handleExecuteClient)
		r.Post("/execute", s.handleExecuteClient)
		r.Get("/execute/{arg}", s.handleExecuteArg)
		r.Post("/execute/{arg}", s.handleExecuteArg)
	})

	if opt.Gatherer != nil {
		s.router.Method(http.MethodGet, opt.MetricsPath, promhttp.HandlerFor(opt.Gatherer, promhttp.HandlerOpts{}))
	}

	if s.hub != nil {
		s.router.Get("/ws", s.hub.HandleWebSocket)
		s.router.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard/", http.StatusMovedPermanently)
		})
		s.router.Get("/dashboard/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(DashboardHTML))
		})
	}
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// handleRoot serves a welcome message.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     "admit",
		"status":      "running",
		"coordinator": s.coord.Name(),
		"strategy":    string(s.coord.Strategy()),
		"time":        s.clock.Now().Format(time.RFC3339),
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LimitStatus is one limit's entry in /api/status.
type LimitStatus struct {
	Limit     string  `json:"limit"`
	Max       int     `json:"max"`
	Window    string  `json:"window"`
	InWindow  int     `json:"in_window"`
	Available int     `json:"available"`
	DelayMS   float64 `json:"delay_ms"`
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Coordinator string        `json:"coordinator"`
	Time        time.Time     `json:"time"`
	Admissible  bool          `json:"admissible"`
	Limits      []LimitStatus `json:"limits"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	usage := s.coord.Status()
	resp := StatusResponse{
		Coordinator: s.coord.Name(),
		Time:        s.clock.Now(),
		Admissible:  true,
		Limits:      make([]LimitStatus, len(usage)),
	}
	for i, u := range usage {
		resp.Limits[i] = LimitStatus{
			Limit:     u.Limit.String(),
			Max:       u.Limit.MaxCount(),
			Window:    u.Limit.Window().String(),
			InWindow:  u.InWindow,
			Available: max(u.Limit.MaxCount()-u.InWindow, 0),
			DelayMS:   float64(u.Delay) / float64(time.Millisecond),
		}
		if u.Delay > 0 {
			resp.Admissible = false
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExecuteClient runs the action with the client address as argument.
func (s *Server) handleExecuteClient(w http.ResponseWriter, r *http.Request) {
	arg := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		arg = forwarded
	}
	s.execute(w, r, arg)
}

// handleExecuteArg runs the action with the argument from the URL path.
// Path: /api/execute/{arg}
func (s *Server) handleExecuteArg(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, chi.URLParam(r, "arg"))
}

// ExecuteResponse is the body of a successful /api/execute call.
type ExecuteResponse struct {
	Result    EchoResult `json:"result"`
	ElapsedMS float64    `json:"elapsed_ms"` // admission wait plus work
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, arg string) {
	start := s.clock.Now()
	res, err := s.coord.Execute(r.Context(), arg)
	elapsed := s.clock.Since(start)
	w.Header().Set("X-Admit-Elapsed", strconv.FormatInt(elapsed.Milliseconds(), 10))

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ExecuteResponse{
			Result:    res,
			ElapsedMS: float64(elapsed) / float64(time.Millisecond),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client went away while waiting; nobody reads this response.
		s.log.Debug("caller left before admission", zap.String("arg", arg), zap.Duration("waited", elapsed))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.log.Info("admit server listening", zap.String("addr", ln.Addr().String()))
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and disconnects dashboard clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.hub != nil {
		err = errs.Combine(err, s.hub.Close())
	}
	return err
}
