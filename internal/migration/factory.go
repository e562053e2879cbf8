package migration

import (
	"fmt"

	appconfig "github.com/BaSui01/knowbase/config"
)

// NewMigratorFromConfig creates a new migrator from application configuration
func NewMigratorFromConfig(cfg *appconfig.Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return NewMigratorFromDatabaseConfig(cfg.Database)
}

// NewMigratorFromDatabaseConfig creates a new migrator from database configuration
func NewMigratorFromDatabaseConfig(dbCfg appconfig.DatabaseConfig) (*DefaultMigrator, error) {
	return NewMigrator(&Config{
		DatabaseURL: dbCfg.URL(),
		TableName:   "schema_migrations",
	})
}

// NewMigratorFromURL creates a new migrator from a database URL
func NewMigratorFromURL(dbURL string) (*DefaultMigrator, error) {
	return NewMigrator(&Config{
		DatabaseURL: dbURL,
		TableName:   "schema_migrations",
	})
}
