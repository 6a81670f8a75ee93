package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "INSIGHTS"

type Config interface {
	EnvConfig
	CorsConfig
	GraphConfig
	OAuthConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Graph
	OAuth
	Session
}

// New loads configuration from INSIGHTS_* environment variables and, when
// path is not empty, from the given config file. A config file that cannot be
// read or parsed is an error.
func New(path string) (Config, error) {
	v, err := load(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v), nil
}

// FromViper wraps an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	return mainConfig{
		EnvVars: EnvVars{v: v},
		Cors:    Cors{v: v},
		Graph:   Graph{v: v},
		OAuth:   OAuth{v: v},
		Session: Session{v: v},
	}
}

func load(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("[config New] read %s: %w", path, err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portKey, "8080")
	v.SetDefault(appNameKey, "Page Insights")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(baseURLKey, "http://localhost:8080")

	v.SetDefault(allowedOriginsKey, "")

	v.SetDefault(graphBaseURLKey, "https://graph.facebook.com")
	v.SetDefault(graphVersionKey, "v13.0")
	v.SetDefault(graphPageLimitKey, 100)
	v.SetDefault(graphMaxPagesKey, 25)
	v.SetDefault(httpTimeoutKey, "10s")
	v.SetDefault(fetchTimeoutKey, "20s")

	v.SetDefault(oauthScopesKey, "public_profile,email,pages_show_list,pages_read_engagement,read_insights")
	v.SetDefault(oauthStateTTLKey, "10m")

	v.SetDefault(sessionBackendKey, "file")
	v.SetDefault(sessionFileKey, "./data/session.json")
	v.SetDefault(sessionKeyKey, "insights:session")
	v.SetDefault(redisAddrKey, "localhost:6379")
	v.SetDefault(redisDBKey, 0)
}
