package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gebworks/geb-core/internal/audit"
	"github.com/gebworks/geb-core/internal/auth"
	"github.com/gebworks/geb-core/internal/infrastructure/config"
	"github.com/gebworks/geb-core/internal/infrastructure/database"
	"github.com/gebworks/geb-core/internal/infrastructure/logging"
	"github.com/gebworks/geb-core/internal/track"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	UserRepo   auth.UserRepository
	Hasher     *auth.Hasher
	TrackStore *track.Store
	AuditRepo  audit.Repository
	MainDB     *database.DB // optional: pool stats for /metrics
	FilesDB    *database.DB // optional: pool stats for /metrics
	Version    string
}

// Server is the HTTP API server for geb-core.
//
// It manages the HTTP listener, routes, middleware, and the async audit
// writer. The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	userRepo   auth.UserRepository
	hasher     *auth.Hasher
	trackStore *track.Store
	auditRepo  audit.Repository
	auditCh    chan *audit.Entry
	mainDB     *database.DB
	filesDB    *database.DB
	version    string
	startTime  time.Time
	server     *http.Server
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if deps.TrackStore == nil {
		return nil, fmt.Errorf("track store is required")
	}
	// AuditRepo is optional — requests still succeed without an audit trail

	return &Server{
		cfg:        deps.Config,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		userRepo:   deps.UserRepo,
		hasher:     deps.Hasher,
		trackStore: deps.TrackStore,
		auditRepo:  deps.AuditRepo,
		mainDB:     deps.MainDB,
		filesDB:    deps.FilesDB,
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the audit writer, and launches the HTTP
// listener in a background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.startTime = time.Now()

	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
		go s.drainAuditLog(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (audit writer)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
