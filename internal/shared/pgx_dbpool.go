package shared

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/ssherwood/placeservice/internal/config"
	"github.com/yugabyte/pgx/v5"
	"github.com/yugabyte/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
)

func InitializeDB(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, configErr := pgxPoolConfig()
	if configErr != nil {
		return nil, configErr
	}

	dbPool, poolErr := pgxpool.NewWithConfig(ctx, poolConfig)
	if poolErr != nil {
		slog.Error("Unable to create pgx connection pool", config.ErrAttr(poolErr))
		return nil, poolErr
	}

	if err := InitPgxPoolMeter(dbPool); err != nil {
		slog.Warn("Continuing without pgxpool metrics", config.ErrAttr(err))
	}
	return dbPool, nil
}

// PingDB forces at least one connection so configuration errors surface at startup.
func PingDB(ctx context.Context, db *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, config.DBConnectTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		slog.Error("Unable to reach the database", slog.String("db.host", config.DBHostname), config.ErrAttr(err))
		return err
	}
	return nil
}

func databaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?%s",
		config.DBUserName, config.DBPassword, config.DBHostname, config.DBDatabase,
		mapToOptions(
			map[string]string{
				"sslmode":           config.DBSSLMode,
				"statement_timeout": fmt.Sprint(config.DBStatementTimeout.Milliseconds()),
				"load_balance":      config.DBYSQLLoadBalance,
				"topology_keys":     config.DBYSQLTopologyKeys,
			},
		),
	)
}

func pgxPoolConfig() (*pgxpool.Config, error) {
	url := databaseURL()

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		slog.Warn("Failed to parse pgxpool url", slog.String("db.url", maskPostgresPassword(url)), config.ErrAttr(err))
		return nil, err
	}

	poolConfig.MaxConns = config.DBMaxConns
	poolConfig.MinConns = config.DBMinConns
	poolConfig.MaxConnLifetime = config.DBMaxConnLifetime
	poolConfig.MaxConnLifetimeJitter = config.DBMaxConnLifetimeJitter
	poolConfig.HealthCheckPeriod = config.DBHealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = config.DBConnectTimeout

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		slog.Debug("Opened database connection", slog.String("db.host", conn.Config().Host))
		return nil
	}
	poolConfig.BeforeClose = func(c *pgx.Conn) {
		slog.Debug("Closed database connection", slog.String("db.host", c.Config().Host))
	}

	if config.OTELTracerEnabled {
		poolConfig.ConnConfig.Tracer = NewQueryTracer([]attribute.KeyValue{
			semconv.DBSystemKey.String("yugabytedb"),
			semconv.DBConnectionStringKey.String(maskPostgresPassword(url)),
			semconv.ServerAddress(config.Hostname),
		})
	}

	return poolConfig, nil
}

// mapToOptions renders params as a query string, sorted by key and skipping empty values.
func mapToOptions(params map[string]string) string {
	var pairs []string
	for key, value := range params {
		if value == "" {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

var postgresPassword = regexp.MustCompile(`(postgres://[^:/@]+:)([^@]+)(@.+)`)

func maskPostgresPassword(connURL string) string {
	return postgresPassword.ReplaceAllString(connURL, `${1}*****${3}`)
}
