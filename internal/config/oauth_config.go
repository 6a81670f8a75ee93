package config

import (
	"time"

	"github.com/jrsteele09/go-page-insights/internal/utils"
	"github.com/spf13/viper"
)

const (
	oauthClientIDKey     = "oauth_client_id"
	oauthClientSecretKey = "oauth_client_secret"
	oauthScopesKey       = "oauth_scopes"
	oauthStateTTLKey     = "oauth_state_ttl"
)

type OAuthConfig interface {
	GetOAuthClientID() string
	GetOAuthClientSecret() string
	GetOAuthScopes() []string
	GetOAuthStateTTL() time.Duration
}

type OAuth struct {
	v *viper.Viper
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetOAuthClientID() string {
	return o.v.GetString(oauthClientIDKey)
}

func (o OAuth) GetOAuthClientSecret() string {
	return o.v.GetString(oauthClientSecretKey)
}

func (o OAuth) GetOAuthScopes() []string {
	return utils.SplitList(o.v.GetString(oauthScopesKey))
}

func (o OAuth) GetOAuthStateTTL() time.Duration {
	return o.v.GetDuration(oauthStateTTLKey)
}
