// Package server assembles the chi router and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/voxloop/vox/internal/config"
	"github.com/voxloop/vox/internal/handler"
	authhandler "github.com/voxloop/vox/internal/handler/auth"
	"github.com/voxloop/vox/internal/handler/voices"
	"github.com/voxloop/vox/internal/logging"
	"github.com/voxloop/vox/internal/svc"
)

// Options holds optional server dependencies.
type Options struct {
	// SvcCtx is a pre-initialized service context. When nil the server
	// builds and owns one.
	SvcCtx *svc.ServiceContext
	// Quiet suppresses request logging and startup messages.
	Quiet bool
}

// Run starts the server and blocks until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, c config.Config, opts ...Options) error {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	svcCtx := o.SvcCtx
	if svcCtx == nil {
		var err error
		svcCtx, err = svc.NewServiceContext(c)
		if err != nil {
			return err
		}
		defer svcCtx.Close()
	}

	srv := &http.Server{
		Addr:              c.Addr(),
		Handler:           Router(svcCtx, o),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if !o.Quiet {
			fmt.Printf("Listening on http://%s\n", c.Addr())
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logging.Info("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Router builds the full route tree.
func Router(svcCtx *svc.ServiceContext, o Options) http.Handler {
	r := chi.NewRouter()

	if !o.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(corsMiddleware())

	r.Get("/health", handler.HealthCheckHandler(svcCtx))

	r.Route("/api/v1", func(r chi.Router) {
		if svcCtx.Auth != nil {
			r.Post("/auth/token", authhandler.TokenHandler(svcCtx))
			r.Post("/auth/refresh", authhandler.RefreshHandler(svcCtx))
		}

		r.Group(func(r chi.Router) {
			if svcCtx.Auth != nil {
				r.Use(svcCtx.Auth.Middleware())
			}

			r.Post("/voices", voices.EnrollHandler(svcCtx))
			r.Get("/voices", voices.ListHandler(svcCtx))
			r.Get("/voices/{voiceId}", voices.GetHandler(svcCtx))
			r.Patch("/voices/{voiceId}", voices.UpdateHandler(svcCtx))
			r.Delete("/voices/{voiceId}", voices.DeleteHandler(svcCtx))
			r.Post("/voices/{voiceId}/synthesize", voices.SynthesizeHandler(svcCtx))
			r.Get("/voices/{voiceId}/stream", voices.StreamHandler(svcCtx))
		})
	})

	return r
}

// CheckPortAvailable reports whether the configured port can be bound.
func CheckPortAvailable(c config.Config) error {
	ln, err := net.Listen("tcp", c.Addr())
	if err != nil {
		return fmt.Errorf("port %d is already in use", c.Port)
	}
	return ln.Close()
}

func corsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
