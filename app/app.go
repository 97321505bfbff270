package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/services"
	"github.com/Kubolab-io/takkapp-v1-sub000/socket"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
)

// App holds the wired components of the matching service.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Store    store.DocumentStore
	Matching *services.MatchingService
	Socket   *socket.Server
	Router   *mux.Router
}

func NewApp(conf *config.Config, logger zerolog.Logger, st store.DocumentStore, matching *services.MatchingService, sock *socket.Server, router *mux.Router) *App {
	return &App{
		Config:   conf,
		Log:      logger,
		Store:    st,
		Matching: matching,
		Socket:   sock,
		Router:   router,
	}
}

// Handler returns the router wrapped with CORS.
func (a *App) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	}).Handler(a.Router)
}

// Serve runs the HTTP and socket servers until ctx is done, then shuts them
// down within the configured timeout.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.Config.Server.Host + ":" + strconv.Itoa(a.Config.Server.Port),
		Handler:      a.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go a.Socket.Serve()

	serverErr := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", server.Addr).Msg("🚀 Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.Log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		a.Socket.Close()
		return fmt.Errorf("server error: %w", err)
	}

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.Socket.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("⚠️ Socket server close failed")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.Log.Info().Msg("gracefully stopped")
	return nil
}
