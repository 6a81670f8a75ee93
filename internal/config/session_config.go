package config

import "github.com/spf13/viper"

const (
	sessionBackendKey = "session_backend"
	sessionFileKey    = "session_file"
	sessionSecretKey  = "session_secret"
	sessionKeyKey     = "session_key"
	redisAddrKey      = "redis_addr"
	redisPasswordKey  = "redis_password"
	redisDBKey        = "redis_db"
)

type SessionConfig interface {
	GetSessionBackend() string
	GetSessionFile() string
	GetSessionSecret() string
	GetSessionKey() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

// GetSessionBackend is either "file" or "redis".
func (s Session) GetSessionBackend() string {
	return s.v.GetString(sessionBackendKey)
}

func (s Session) GetSessionFile() string {
	return s.v.GetString(sessionFileKey)
}

// GetSessionSecret seals the persisted session blob when set. It also signs the OAuth state.
func (s Session) GetSessionSecret() string {
	return s.v.GetString(sessionSecretKey)
}

func (s Session) GetSessionKey() string {
	return s.v.GetString(sessionKeyKey)
}

func (s Session) GetRedisAddr() string {
	return s.v.GetString(redisAddrKey)
}

func (s Session) GetRedisPassword() string {
	return s.v.GetString(redisPasswordKey)
}

func (s Session) GetRedisDB() int {
	return s.v.GetInt(redisDBKey)
}
