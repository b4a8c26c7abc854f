package client

import (
	"github.com/allisson/go-env"
)

// DefaultServerURL is used when OTS_SERVER_URL is not set.
const DefaultServerURL = "http://localhost:8080"

// Config holds the client program settings.
type Config struct {
	ServerURL string
}

// LoadConfig reads OTS_SERVER_URL.
func LoadConfig() *Config {
	return &Config{
		ServerURL: env.GetString("OTS_SERVER_URL", DefaultServerURL),
	}
}
