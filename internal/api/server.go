// Package api serves the gitacct service as a local JSON HTTP API, the
// seam a dashboard talks to.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/rileyhilliard/gitacct/internal/logger"
	"github.com/rileyhilliard/gitacct/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server exposes a Service over HTTP.
type Server struct {
	Service *service.Service
	Runner  exec.Runner // probes prerequisites; defaults to the service's
	Logger  logger.Logger
	Version string

	// RequestLog enables chi's per-request access log.
	RequestLog bool
}

// New returns a Server for svc.
func New(svc *service.Service) *Server {
	return &Server{Service: svc, Runner: svc.Runner, Logger: svc.Logger}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.RequestLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)

	r.Get("/health_check", s.HealthCheck)
	r.Get("/check_prerequisites", s.CheckPrerequisites)

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.ListAccounts)
			r.Post("/", s.CreateAccount)
			r.Post("/sync-ssh-config", s.SyncSSHConfig)
			r.Post("/import-ssh-config", s.ImportSSHConfig)
			r.Get("/{id}", s.GetAccount)
			r.Put("/{id}", s.UpdateAccount)
			r.Patch("/{id}", s.UpdateAccount)
			r.Delete("/{id}", s.DeleteAccount)
			r.Post("/{id}/test-connection", s.TestConnection)
		})

		r.Route("/account-types", func(r chi.Router) {
			r.Get("/", s.ListAccountTypes)
			r.Post("/", s.CreateAccountType)
			r.Get("/{id}", s.GetAccountType)
			r.Put("/{id}", s.RenameAccountType)
			r.Patch("/{id}", s.RenameAccountType)
			r.Delete("/{id}", s.DeleteAccountType)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.ListProjects)
			r.Post("/", s.CreateProject)
			r.Post("/scan", s.ScanProjects)
			r.Get("/validate", s.ValidateAll)
			r.Get("/validate/{id}", s.ValidateProject)
			r.Get("/{id}", s.GetProject)
			r.Put("/{id}", s.UpdateProject)
			r.Patch("/{id}", s.UpdateProject)
			r.Delete("/{id}", s.DeleteProject)
			r.Post("/{id}/configure", s.ConfigureProject)
			r.Get("/{id}/validate", s.ValidateProject)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.ErrNotFound, "No route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.ErrInvalid, r.Method+" isn't allowed on "+r.URL.Path)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	log := logger.OrDefault(s.Logger)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't listen on "+addr,
			"Pick another address with --addr or server.addr.")
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info("serving on http://%s", ln.Addr())
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrExec, "Server stopped unexpectedly", "")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WrapWithCode(err, errors.ErrExec, "Shutdown failed", "")
	}
	return nil
}
