// Package api serves the control plane over HTTP: contexts, controls, the
// frame cycle against the simulated device, presets and live events.
package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/mfcctl/internal/api/models"
	"github.com/smazurov/mfcctl/internal/events"
	"github.com/smazurov/mfcctl/internal/logging"
	"github.com/smazurov/mfcctl/internal/presets"
	"github.com/smazurov/mfcctl/internal/session"
	"github.com/smazurov/mfcctl/internal/version"
)

const authRealm = `Basic realm="mfcctl"`

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string
	Session      *session.Session
	Presets      *presets.Store
	Bus          *events.Bus
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// OnListen is called once the listener accepts connections.
	OnListen func(addr net.Addr)
}

// Server is the HTTP API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	sess       *session.Session
	presets    *presets.Store
	runner     *presets.Runner
	bus        *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer builds the mux, the huma API and every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()
	cors := DefaultCORSConfig()
	AddCORSHandler(mux, cors)

	config := huma.DefaultConfig("mfcctl API", version.Get().Version)
	config.Info.Description = "Per-frame buffer control plane of a codec, driven against a simulated device"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {Type: "http", Scheme: "basic"},
	}
	api := humago.New(mux, config)

	s := newServer(api, opts)
	s.mux = mux

	api.UseMiddleware(NewCORSMiddleware(cors))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.registerRoutes()
	return s
}

func newServer(api huma.API, opts *Options) *Server {
	logger := logging.GetLogger("api")
	bus := opts.Bus
	if bus == nil {
		bus = events.New()
	}
	return &Server{
		api:     api,
		sess:    opts.Session,
		presets: opts.Presets,
		runner:  presets.NewRunner(opts.Session, opts.Presets, logger),
		bus:     bus,
		options: opts,
		logger:  logger,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.logger.Info("API server listening", "addr", ln.Addr().String())
	s.logger.Info("OpenAPI documentation available", "url", "http://"+ln.Addr().String()+"/docs")
	if s.options.OnListen != nil {
		s.options.OnListen(ln.Addr())
	}

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes the server. SSE connections are cut rather than drained.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping API server")
	return s.httpServer.Close()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{Body: models.HealthData{Status: "ok", Message: "API is healthy"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		v := version.Get()
		return &models.VersionResponse{Body: models.VersionData{
			Version:   v.Version,
			GitCommit: v.GitCommit,
			BuildDate: v.BuildDate,
			GoVersion: v.GoVersion,
			Platform:  v.Platform,
		}}, nil
	})

	s.registerDescriptorRoutes()
	s.registerContextRoutes()
	s.registerFrameRoutes()
	s.registerPresetRoutes()
	s.registerLogRoutes()
	s.registerSSERoutes()
}

func withAuth() []map[string][]string {
	return []map[string][]string{{"basicAuth": {}}}
}

// basicAuthMiddleware checks credentials on operations that declare the
// basicAuth scheme. SSE clients that cannot set headers may pass the
// base64 credentials in the auth query parameter.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	deny := func(ctx huma.Context, msg string, errs ...error) {
		ctx.SetHeader("WWW-Authenticate", authRealm)
		huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
	}
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		encoded := ctx.Query("auth")
		if header := ctx.Header("Authorization"); header != "" {
			var ok bool
			encoded, ok = strings.CutPrefix(header, "Basic ")
			if !ok {
				deny(ctx, "Invalid authentication type")
				return
			}
		}
		if encoded == "" {
			deny(ctx, "Authentication required")
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			deny(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok || user != username || pass != password {
			deny(ctx, "Invalid credentials")
			return
		}
		next(ctx)
	}
}
