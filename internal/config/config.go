// Package config содержит логику чтения конфигурации сервиса витрины.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса витрины.
type Config struct {
	RunAddress       string `env:"RUN_ADDRESS"`
	DatabaseURI      string `env:"DATABASE_URI"`
	FirestoreProject string `env:"FIRESTORE_PROJECT"`
	CredentialsFile  string `env:"GOOGLE_CREDENTIALS_FILE"`
	IdentityAddress  string `env:"IDENTITY_ADDRESS"`
	IdentityAPIKey   string `env:"IDENTITY_API_KEY"`
	StoreName        string `env:"STORE_NAME"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envFirestoreProject := cfg.FirestoreProject
	envCredentialsFile := cfg.CredentialsFile
	envIdentityAddress := cfg.IdentityAddress
	envIdentityAPIKey := cfg.IdentityAPIKey
	envStoreName := cfg.StoreName

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for durable slots")
	flag.StringVar(&cfg.FirestoreProject, "p", "", "firestore project id")
	flag.StringVar(&cfg.CredentialsFile, "c", "", "service account credentials file")
	flag.StringVar(&cfg.IdentityAddress, "r", "", "identity provider address")
	flag.StringVar(&cfg.IdentityAPIKey, "k", "", "identity provider API key")
	flag.StringVar(&cfg.StoreName, "s", "taash-store", "store name used as the durable slot key")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envFirestoreProject != "" {
		cfg.FirestoreProject = envFirestoreProject
	}
	if envCredentialsFile != "" {
		cfg.CredentialsFile = envCredentialsFile
	}
	if envIdentityAddress != "" {
		cfg.IdentityAddress = envIdentityAddress
	}
	if envIdentityAPIKey != "" {
		cfg.IdentityAPIKey = envIdentityAPIKey
	}
	if envStoreName != "" {
		cfg.StoreName = envStoreName
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "taash-store"
	}

	return cfg, nil
}
