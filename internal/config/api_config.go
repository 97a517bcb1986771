package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

type APIConfig interface {
	GetBaseURL() string
	GetAPITimeout() time.Duration
	GetTokenFile() string
}

type API struct{}

var _ APIConfig = API{}

// GetBaseURL returns the backend base URL without a trailing slash
func (API) GetBaseURL() string {
	return strings.TrimRight(GetEnv("API_BASE_URL", "http://localhost:8080"), "/")
}

func (API) GetAPITimeout() time.Duration {
	return GetDurationEnv("API_TIMEOUT", 10*time.Second)
}

// GetTokenFile is where the CLI persists the access/refresh token pair
func (API) GetTokenFile() string {
	if path := os.Getenv("TOKEN_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".reserve-client", "tokens.json")
	}
	return filepath.Join(home, ".reserve-client", "tokens.json")
}
