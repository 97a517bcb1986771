package config

import (
	"fmt"
	"time"
)

type DevServerConfig interface {
	GetPort() string
	GetJWTSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetAdminEmail() string
	GetAdminPassword() string
}

type DevServer struct{}

var _ DevServerConfig = DevServer{}

func (DevServer) GetPort() string {
	port := GetEnv("PORT", "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (DevServer) GetJWTSecret() string {
	return GetEnv("DEV_JWT_SECRET", "dev-secret-not-for-production")
}

func (DevServer) GetAccessTokenTTL() time.Duration {
	return GetDurationEnv("DEV_ACCESS_TOKEN_TTL", 15*time.Minute)
}

func (DevServer) GetRefreshTokenTTL() time.Duration {
	return GetDurationEnv("DEV_REFRESH_TOKEN_TTL", 7*24*time.Hour)
}

func (DevServer) GetAdminEmail() string {
	return GetEnv("DEV_ADMIN_EMAIL", "admin@example.com")
}

func (DevServer) GetAdminPassword() string {
	return GetEnv("DEV_ADMIN_PASSWORD", "Admin1234!")
}
