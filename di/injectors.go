//go:build wireinject
// +build wireinject

package di

import (
	"context"

	wire "github.com/google/wire"

	"github.com/Kubolab-io/takkapp-v1-sub000/app"
	"github.com/Kubolab-io/takkapp-v1-sub000/config"
	"github.com/Kubolab-io/takkapp-v1-sub000/controllers"
	"github.com/Kubolab-io/takkapp-v1-sub000/services"
	"github.com/Kubolab-io/takkapp-v1-sub000/socket"
	"github.com/Kubolab-io/takkapp-v1-sub000/utils"
)

func InitApp(ctx context.Context, flags *config.CliFlags) (*app.App, func(), error) {

	wire.Build(
		config.NewConfig,
		utils.NewLogger,
		serviceSet,
		services.NewPhotoResolver,
		ProvideMatchController,
		controllers.NewHealthController,
		socket.NewSocketServer,
		ProvideRouter,
		app.NewApp,
	)

	return nil, nil, nil
}
