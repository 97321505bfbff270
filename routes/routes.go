package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Kubolab-io/takkapp-v1-sub000/controllers"
	"github.com/Kubolab-io/takkapp-v1-sub000/services"
)

// NewRouter builds the application router. socket may be nil.
func NewRouter(match *controllers.MatchController, health *controllers.HealthController, metrics services.Metrics, socket http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(controllers.MethodNotAllowed)
	r.Use(controllers.RequestIDMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return controllers.MetricsMiddleware(metrics, next)
	})

	r.HandleFunc("/health", health.Health).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	if socket != nil {
		r.PathPrefix("/socket.io/").Handler(socket)
	}

	RegisterMatchRoutes(r, match)
	return r
}
