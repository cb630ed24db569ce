// Package database fetches tabular batches by running read-only SQL queries
// against relational, warehouse and OLAP engines through database/sql.
package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// ConnConfig holds the connection parameters a driver turns into a DSN.
type ConnConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSL      bool
}

// Driver builds DSNs and opens connections for one database type.
type Driver interface {
	// Open opens a database connection
	Open(dsn string) (*sql.DB, error)

	// BuildDSN builds a connection string from configuration
	BuildDSN(config ConnConfig) string

	// GetDefaultPort returns the default port for the database
	GetDefaultPort() int

	// GetDriverName returns the underlying SQL driver name
	GetDriverName() string
}

// Registry maps database type names to drivers.
type Registry struct {
	drivers map[string]Driver
}

// NewRegistry creates a registry with every supported driver registered.
func NewRegistry() *Registry {
	r := &Registry{drivers: make(map[string]Driver)}
	r.register("mysql", &MySQLDriver{})
	r.register("postgresql", &PostgreSQLDriver{})
	r.register("oracle", &OracleDriver{})
	r.register("snowflake", &SnowflakeDriver{})
	r.register("clickhouse", &ClickHouseDriver{})
	return r
}

func (r *Registry) register(name string, d Driver) {
	r.drivers[name] = d
}

// GetDriver returns the driver for a database type.
func (r *Registry) GetDriver(dbType string) (Driver, error) {
	d, ok := r.drivers[dbType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	return d, nil
}

// IsSupported reports whether a database type has a registered driver.
func (r *Registry) IsSupported(dbType string) bool {
	_, ok := r.drivers[dbType]
	return ok
}

// SupportedTypes lists registered database types.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
