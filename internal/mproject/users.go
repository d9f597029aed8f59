package mproject

import (
	"context"

	"kyri56xcaesar/capstone-pms/internal/authmw"

	"go.uber.org/zap"
)

// UserDirectory answers whether a username exists in the identity provider.
type UserDirectory interface {
	UserExists(ctx context.Context, username string) (bool, error)
}

// newUserDirectory connects to the Keycloak admin API when a client secret
// is configured. Without one, member usernames are taken on trust.
func newUserDirectory(cfg Config, log *zap.Logger) UserDirectory {
	if cfg.AuthDisabled || cfg.ClientSecret == "" {
		log.Info("keycloak admin client not configured, member usernames are not verified")
		return nil
	}
	svc, err := authmw.NewService(cfg.AuthAddress, cfg.Realm, cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		log.Warn("keycloak admin client unavailable, member usernames are not verified", zap.Error(err))
		return nil
	}
	return svc
}
