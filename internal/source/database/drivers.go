package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/sijms/go-ora/v2"
	_ "github.com/snowflakedb/gosnowflake"
)

// MySQLDriver implements Driver for MySQL/MariaDB
type MySQLDriver struct{}

func (d *MySQLDriver) Open(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

func (d *MySQLDriver) GetDefaultPort() int {
	return 3306
}

func (d *MySQLDriver) BuildDSN(config ConnConfig) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)
	params := []string{"parseTime=true"}
	if config.SSL {
		params = append(params, "tls=true")
	}
	return dsn + "?" + strings.Join(params, "&")
}

func (d *MySQLDriver) GetDriverName() string {
	return "mysql"
}

// PostgreSQLDriver implements Driver for PostgreSQL
type PostgreSQLDriver struct{}

func (d *PostgreSQLDriver) Open(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

func (d *PostgreSQLDriver) GetDefaultPort() int {
	return 5432
}

func (d *PostgreSQLDriver) BuildDSN(config ConnConfig) string {
	sslmode := "disable"
	if config.SSL {
		sslmode = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
		sslmode,
	)
}

func (d *PostgreSQLDriver) GetDriverName() string {
	return "postgres"
}

// OracleDriver implements Driver for Oracle
type OracleDriver struct{}

func (d *OracleDriver) Open(dsn string) (*sql.DB, error) {
	return sql.Open("oracle", dsn)
}

func (d *OracleDriver) GetDefaultPort() int {
	return 1521
}

func (d *OracleDriver) BuildDSN(config ConnConfig) string {
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)
}

func (d *OracleDriver) GetDriverName() string {
	return "oracle"
}

// SnowflakeDriver implements Driver for Snowflake. Host carries the account
// identifier.
type SnowflakeDriver struct{}

func (d *SnowflakeDriver) Open(dsn string) (*sql.DB, error) {
	return sql.Open("snowflake", dsn)
}

func (d *SnowflakeDriver) GetDefaultPort() int {
	return 443
}

func (d *SnowflakeDriver) BuildDSN(config ConnConfig) string {
	return fmt.Sprintf("%s:%s@%s/%s",
		config.Username,
		config.Password,
		config.Host,
		config.Database,
	)
}

func (d *SnowflakeDriver) GetDriverName() string {
	return "snowflake"
}

// ClickHouseDriver implements Driver for ClickHouse
type ClickHouseDriver struct{}

func (d *ClickHouseDriver) Open(dsn string) (*sql.DB, error) {
	return sql.Open("clickhouse", dsn)
}

func (d *ClickHouseDriver) GetDefaultPort() int {
	return 9000
}

func (d *ClickHouseDriver) BuildDSN(config ConnConfig) string {
	dsn := fmt.Sprintf("clickhouse://%s:%s@%s:%d/%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)
	if config.SSL {
		dsn += "?secure=true"
	}
	return dsn
}

func (d *ClickHouseDriver) GetDriverName() string {
	return "clickhouse"
}
