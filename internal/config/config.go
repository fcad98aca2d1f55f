package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

var (
	Hostname, _    = os.Hostname()
	ServiceName    = GetEnv("SERVICE_NAME", "PlaceService")
	ServiceVersion = "1.0"
	LogLevel       = GetEnv("LOG_LEVEL", "info")

	ServerAddress      = GetEnv("SERVER_ADDRESS", ":8080")
	ServerWriteTimeout = GetEnvAsDuration("WRITE_TIMEOUT", 15*time.Second)
	ServerReadTimeout  = GetEnvAsDuration("READ_TIMEOUT", 10*time.Second)
	ShutdownTimeout    = GetEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second)
	MaxBodyBytes       = int64(GetEnvAsInt("MAX_BODY_BYTES", 10<<20))

	// reject coordinates outside [-90,90]/[-180,180] on create and update
	PlaceStrictCoordinates = GetEnvAsBool("PLACE_STRICT_COORDINATES", false)
	PlaceStore             = GetEnv("PLACE_STORE", StorePostgres)
	SQLitePath             = GetEnv("SQLITE_PATH", "data/places.db")

	DBUserName              = GetEnv("DB_USERNAME", "yugabyte")
	DBPassword              = GetEnv("DB_PASSWORD", "")
	DBHostname              = GetEnv("DB_HOSTNAME", "127.0.0.1:5433")
	DBDatabase              = GetEnv("DB_DATABASE", "yugabyte")
	DBSSLMode               = GetEnv("DB_SSLMODE", "disable")
	DBStatementTimeout      = GetEnvAsDuration("DB_STATEMENT_TIMEOUT", 5*time.Second)
	DBYSQLLoadBalance       = GetEnv("DB_YSQL_LOAD_BALANCE", "false")
	DBYSQLTopologyKeys      = GetEnv("DB_YSQL_TOPOLOGY_KEYS", "")
	DBFollowerReads         = GetEnvAsBool("DB_FOLLOWER_READS", false)
	DBMaxConns              = int32(GetEnvAsInt("DB_MAX_CONNS", 10))
	DBMinConns              = int32(GetEnvAsInt("DB_MIN_CONNS", 2))
	DBMaxConnLifetime       = GetEnvAsDuration("DB_MAX_CONN_LIFETIME", 4*time.Hour)
	DBMaxConnLifetimeJitter = GetEnvAsDuration("DB_MAX_CONN_LIFETIME_JITTER", 15*time.Minute)
	DBHealthCheckPeriod     = GetEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 10*time.Minute)
	DBConnectTimeout        = GetEnvAsDuration("DB_CONNECT_TIMEOUT", 5*time.Second)
	DBQueryTimeout          = GetEnvAsDuration("DB_QUERY_TIMEOUT", 5*time.Second)

	OTELEnabled               = GetEnvAsBool("OTEL_ENABLED", false)
	OTELCollectorURL          = GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	OTELCompressor            = GetEnv("OTEL_EXPORTER_COMPRESSOR", "gzip")
	OTELExporterInsecure      = GetEnvAsBool("OTEL_EXPORTER_INSECURE", true)
	OTELMeterInterval         = GetEnvAsDuration("OTEL_METER_INTERVAL", 10*time.Second)
	OTELTracerEnabled         = GetEnvAsBool("OTEL_TRACER_ENABLED", true)
	OTELSampleRatio           = GetEnvAsFloat("OTEL_TRACES_SAMPLER_RATIO", 1.0)
	OTELPrefixQuerySpanName   = GetEnvAsBool("OTEL_TRACER_PREFIX_QUERY_SPAN_NAME", true)
	OTELTracerLogSQLStatement = GetEnvAsBool("OTEL_TRACER_LOG_SQL", true)
	OTELTracerIncludeParams   = GetEnvAsBool("OTEL_TRACER_INCLUDE_PARAMS", false)
	OTELLogStdout             = GetEnvAsBool("OTEL_LOG_STDOUT", false)

	KafkaBrokers      = GetEnvAsList("KAFKA_BROKERS", nil)
	KafkaTopic        = GetEnv("KAFKA_TOPIC", "place-events")
	KafkaWriteTimeout = GetEnvAsDuration("KAFKA_WRITE_TIMEOUT", 10*time.Second)

	MinioEndpoint  = GetEnv("MINIO_ENDPOINT", "")
	MinioAccessKey = GetEnv("MINIO_ACCESS_KEY", "")
	MinioSecretKey = GetEnv("MINIO_SECRET_KEY", "")
	MinioUseSSL    = GetEnvAsBool("MINIO_USE_SSL", false)
	MinioBucket    = GetEnv("MINIO_BUCKET", "place-images")
	MinioRegion    = GetEnv("MINIO_REGION", "us-east-1")
)

var (
	SlogServiceName    = slog.String("service.name", ServiceName)
	SlogServiceAddress = slog.String("service.address", ServerAddress)
)

func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func SlogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
