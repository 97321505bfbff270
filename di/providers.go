package di

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/controllers"
	"github.com/Kubolab-io/takkapp-v1-sub000/routes"
	"github.com/Kubolab-io/takkapp-v1-sub000/services"
	"github.com/Kubolab-io/takkapp-v1-sub000/socket"
	"github.com/Kubolab-io/takkapp-v1-sub000/store"
)

func ProvideStore(ctx context.Context, conf *config.Config, logger zerolog.Logger) (store.DocumentStore, func(), error) {
	return store.NewFromConfig(ctx, conf.Store, logger)
}

func ProvideClock() services.Clock {
	return services.RealClock{}
}

func ProvideRandom() services.Random {
	return services.NewRandom(time.Now().UnixNano())
}

func ProvideMatchController(conf *config.Config, matching *services.MatchingService, photos services.PhotoResolver, logger zerolog.Logger) *controllers.MatchController {
	return controllers.NewMatchController(matching, photos, conf.Matching.RequestTimeout, logger)
}

func ProvideRouter(match *controllers.MatchController, health *controllers.HealthController, metrics services.Metrics, sock *socket.Server) *mux.Router {
	return routes.NewRouter(match, health, metrics, sock)
}

var serviceSet = wire.NewSet(
	ProvideStore,
	ProvideClock,
	ProvideRandom,
	services.NewSnapshotCache,
	services.NewProfileService,
	wire.Bind(new(services.ProfileSource), new(*services.ProfileService)),
	services.NewChangeFeed,
	wire.Bind(new(services.Notifier), new(*services.ChangeFeed)),
	services.NewMetrics,
	services.NewMatchingService,
)
