package config

import "time"

type SessionConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionSecret is the secret the session cookie signing key is derived from.
func (Session) GetSessionSecret() string {
	return GetEnv("AUTH_SECRET", "")
}

func (Session) GetMaxSessionAge() time.Duration {
	return 30 * 24 * time.Hour
}

// GetRedisAddr is empty when sessions are kept in memory.
func (Session) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Session) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Session) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}
