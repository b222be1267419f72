// Package iotesting provides shared helpers for integration tests.
package iotesting

import (
	"os"

	"github.com/openherbaria/herbdb/pkg/config"
)

// GetTestConfig returns a configuration pointing at the dedicated
// test database. Integration tests assume a local PostgreSQL with a
// 'herbdb_test' database; they are skipped in -short mode.
func GetTestConfig() *config.Config {
	cfg := config.New()

	opts := []config.Option{
		config.OptDatabaseDatabase("herbdb_test"),
	}

	if host := os.Getenv("HERBDB_TEST_DB_HOST"); host != "" {
		opts = append(opts, config.OptDatabaseHost(host))
	}
	if user := os.Getenv("HERBDB_TEST_DB_USER"); user != "" {
		opts = append(opts, config.OptDatabaseUser(user))
	}
	if pass := os.Getenv("HERBDB_TEST_DB_PASS"); pass != "" {
		opts = append(opts, config.OptDatabasePassword(pass))
	}

	cfg.Update(opts)
	return cfg
}
