package shared

import (
	"context"
	"log/slog"

	"github.com/ssherwood/placeservice/internal/config"
	"github.com/yugabyte/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
)

// InitPgxPoolMeter
// given a pgxpool.Pool, register a callback observing its statistics.
func InitPgxPoolMeter(dbPool *pgxpool.Pool) error {
	var databaseMeter = otel.Meter("github.com/yugabyte/pgx/v5/pgxpool",
		metric.WithInstrumentationAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)

	idleConns, _ := databaseMeter.Int64ObservableGauge("pgxpool.idleConns")
	totalConns, _ := databaseMeter.Int64ObservableGauge("pgxpool.totalConns")
	acquiredConns, _ := databaseMeter.Int64ObservableGauge("pgxpool.acquiredConns")
	constructingConns, _ := databaseMeter.Int64ObservableGauge("pgxpool.constructingConns")
	maxConns, _ := databaseMeter.Int64ObservableGauge("pgxpool.maxConns")
	acquireCount, _ := databaseMeter.Int64ObservableCounter("pgxpool.acquireCount")
	canceledAcquireCount, _ := databaseMeter.Int64ObservableCounter("pgxpool.canceledAcquireCount")
	emptyAcquireCount, _ := databaseMeter.Int64ObservableCounter("pgxpool.emptyAcquireCount")
	newConnsCount, _ := databaseMeter.Int64ObservableCounter("pgxpool.newConnsCount")
	maxLifetimeDestroyCount, _ := databaseMeter.Int64ObservableCounter("pgxpool.maxLifetimeDestroyCount")
	maxIdleDestroyCount, _ := databaseMeter.Int64ObservableCounter("pgxpool.maxIdleDestroyCount")
	acquireDuration, _ := databaseMeter.Int64ObservableGauge("pgxpool.acquireDuration", metric.WithUnit("ms"))

	_, err := databaseMeter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			dbStats := dbPool.Stat()
			o.ObserveInt64(idleConns, int64(dbStats.IdleConns()))
			o.ObserveInt64(totalConns, int64(dbStats.TotalConns()))
			o.ObserveInt64(acquiredConns, int64(dbStats.AcquiredConns()))
			o.ObserveInt64(constructingConns, int64(dbStats.ConstructingConns()))
			o.ObserveInt64(maxConns, int64(dbStats.MaxConns()))
			o.ObserveInt64(acquireCount, dbStats.AcquireCount())
			o.ObserveInt64(canceledAcquireCount, dbStats.CanceledAcquireCount())
			o.ObserveInt64(emptyAcquireCount, dbStats.EmptyAcquireCount())
			o.ObserveInt64(newConnsCount, dbStats.NewConnsCount())
			o.ObserveInt64(maxLifetimeDestroyCount, dbStats.MaxLifetimeDestroyCount())
			o.ObserveInt64(maxIdleDestroyCount, dbStats.MaxIdleDestroyCount())
			o.ObserveInt64(acquireDuration, dbStats.AcquireDuration().Milliseconds())
			return nil
		},
		idleConns, totalConns, acquiredConns, constructingConns, maxConns, acquireCount,
		canceledAcquireCount, emptyAcquireCount, newConnsCount, maxLifetimeDestroyCount,
		maxIdleDestroyCount, acquireDuration,
	)
	if err != nil {
		slog.Error("failed to register pgxpool stats", config.ErrAttr(err))
		return err
	}

	return nil
}
