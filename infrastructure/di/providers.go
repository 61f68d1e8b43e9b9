package di

import (
	"go.uber.org/zap"

	"prospectwatch-client/application/stores"
	"prospectwatch-client/application/watchdog"
	"prospectwatch-client/infrastructure/api"
	"prospectwatch-client/infrastructure/config"
	"prospectwatch-client/infrastructure/persistence/localstore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}

	zapCfg := zap.NewDevelopmentConfig()
	if !cfg.Debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zapCfg.Build()
}

// ProvideLocalStore creates the persisted key-value store
func ProvideLocalStore(cfg *config.Config, logger *zap.Logger) (*localstore.Store, error) {
	return localstore.New(cfg.StateDir, cfg.StoragePrefix, logger)
}

// ProvideTokenHolder creates the shared credential slot
func ProvideTokenHolder() *api.TokenHolder {
	return api.NewTokenHolder()
}

// ProvideAPIClient creates the shared API client
func ProvideAPIClient(cfg *config.Config, holder *api.TokenHolder, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, holder, logger)
}

// ProvideSessionStore creates the session store and installs it as the
// client's 401 logout target
func ProvideSessionStore(client *api.Client, holder *api.TokenHolder, store *localstore.Store, cfg *config.Config, logger *zap.Logger) *stores.SessionStore {
	session := stores.NewSessionStore(client, holder, store, logger)
	client.SetUnauthorizedHandler(session.HandleLogout, cfg.LogoutCooldown)
	return session
}

// ProvideCompanyStore creates the tracked-company cache
func ProvideCompanyStore(client *api.Client, session *stores.SessionStore, store *localstore.Store, logger *zap.Logger) *stores.CompanyStore {
	return stores.NewCompanyStore(client, session, store, logger)
}

// ProvideFeedStore creates the company-update feed cache
func ProvideFeedStore(client *api.Client, session *stores.SessionStore, logger *zap.Logger) *stores.FeedStore {
	return stores.NewFeedStore(client, session, logger)
}

// ProvideOrgStore creates the organization cache
func ProvideOrgStore(client *api.Client, session *stores.SessionStore, logger *zap.Logger) *stores.OrgStore {
	return stores.NewOrgStore(client, session, logger)
}

// ProvideWatchdog creates the session watchdog
func ProvideWatchdog(session *stores.SessionStore, store *localstore.Store, cfg *config.Config, logger *zap.Logger) *watchdog.Watchdog {
	return watchdog.New(session, store, cfg.SessionCheckInterval, logger)
}
