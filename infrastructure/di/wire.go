//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"prospectwatch-client/application/stores"
	"prospectwatch-client/application/watchdog"
	"prospectwatch-client/infrastructure/api"
	"prospectwatch-client/infrastructure/config"
	"prospectwatch-client/infrastructure/persistence/localstore"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     *localstore.Store
	APIClient *api.Client
	Session   *stores.SessionStore
	Companies *stores.CompanyStore
	Feed      *stores.FeedStore
	Org       *stores.OrgStore
	Watchdog  *watchdog.Watchdog
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideLocalStore,
	ProvideTokenHolder,
	ProvideAPIClient,
	ProvideSessionStore,
	ProvideCompanyStore,
	ProvideFeedStore,
	ProvideOrgStore,
	ProvideWatchdog,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
