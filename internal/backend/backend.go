// Package backend assembles the process-wide infrastructure described by
// senhas.json: the persistent store, the broadcast hub with its optional
// Redis bridge, the logo store and the metrics collectors.
package backend

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/fabrica-cultura/senhas/internal/config"
	"github.com/fabrica-cultura/senhas/internal/errors"
	"github.com/fabrica-cultura/senhas/internal/metrics"
	"github.com/fabrica-cultura/senhas/pkg/bus"
	"github.com/fabrica-cultura/senhas/pkg/logo"
	"github.com/fabrica-cultura/senhas/pkg/storage"
)

// drainTimeout bounds how long Close waits for the bridge to relay events
// that are still queued.
const drainTimeout = 2 * time.Second

// Backend holds the shared infrastructure of one panel process.
type Backend struct {
	Store   storage.Store
	Hub     *bus.Hub
	Logos   logo.Store
	Metrics *metrics.Metrics

	// DiskLogos is set when logos are served from disk.
	DiskLogos *logo.DiskStore

	logger  *slog.Logger
	closers []func() error
}

// Option configures Open.
type Option func(*Backend)

// WithLogger sets the logger handed to the infrastructure.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithMetrics sets the collectors. Default: a fresh metrics.New().
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Backend) {
		b.Metrics = m
	}
}

// Open builds the backend for cfg. On error everything opened so far is
// closed again.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Backend, err error) {
	b := &Backend{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	if b.Metrics == nil {
		b.Metrics = metrics.New()
	}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	b.Hub = bus.NewHub(
		bus.WithLogger(b.logger.With("component", "bus")),
		bus.WithObserver(b.Metrics),
	)
	b.closers = append(b.closers, func() error { b.Hub.Close(); return nil })

	var rdb redis.UniversalClient
	if cfg.Storage.Driver == config.DriverRedis || cfg.Bus.Bridge {
		rdb, err = openRedis(ctx, cfg.Storage.Redis)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, rdb.Close)
	}

	b.Store, err = openStore(ctx, cfg, rdb, b)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, b.Store.Close)

	if cfg.Bus.Bridge {
		bridge := bus.NewRedisBridge(b.Hub, bus.GoRedisRelay(rdb), cfg.Bus.Channel)
		if err := bridge.Start(ctx); err != nil {
			return nil, errors.New("E121").Wrap(err)
		}
		b.closers = append(b.closers, func() error {
			// Let queued local events reach the relay before leaving.
			ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			if err := b.Hub.Drain(ctx); err != nil {
				b.logger.Warn("bus drain incomplete", "error", err)
			}
			return bridge.Close()
		})
		b.logger.Info("bus bridged over redis", "channel", cfg.Bus.Channel, "origin", bridge.Origin())
	}

	b.Logos, err = openLogos(cfg, b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Close releases everything in reverse order of creation.
func (b *Backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// OpenStore opens only the persistent store described by cfg. The CLI uses
// it for one-shot commands. The returned close func releases the store and
// its connections.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, func() error, error) {
	b := &Backend{logger: slog.Default()}
	var rdb redis.UniversalClient
	if cfg.Storage.Driver == config.DriverRedis {
		var err error
		if rdb, err = openRedis(ctx, cfg.Storage.Redis); err != nil {
			return nil, nil, err
		}
		b.closers = append(b.closers, rdb.Close)
	}
	store, err := openStore(ctx, cfg, rdb, b)
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	b.closers = append(b.closers, store.Close)
	return store, b.Close, nil
}

func openStore(ctx context.Context, cfg *config.Config, rdb redis.UniversalClient, b *Backend) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		b.logger.Warn("using in-memory store; state is lost on exit")
		return storage.NewMemoryStore(), nil

	case config.DriverSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath())
		if err != nil {
			return nil, errors.New("E100").Wrap(err)
		}
		// One connection keeps ":memory:" databases shared and avoids
		// SQLITE_BUSY between writers.
		db.SetMaxOpenConns(1)
		return openSQL(ctx, db, cfg, storage.DialectSQLite, b)

	case config.DriverMySQL:
		dsn, err := mysql.ParseDSN(cfg.Storage.DSN)
		if err != nil {
			return nil, errors.New("E100").WithDetail("Invalid MySQL DSN: " + err.Error())
		}
		dsn.ParseTime = true
		connector, err := mysql.NewConnector(dsn)
		if err != nil {
			return nil, errors.New("E100").Wrap(err)
		}
		return openSQL(ctx, sql.OpenDB(connector), cfg, storage.DialectMySQL, b)

	case config.DriverRedis:
		return storage.NewRedisStore(storage.GoRedis(rdb),
			storage.WithRedisPrefix(cfg.Storage.Redis.Prefix)), nil
	}
	return nil, errors.New("E102").WithDetail("Unknown storage driver " + cfg.Storage.Driver)
}

func openSQL(ctx context.Context, db *sql.DB, cfg *config.Config, dialect storage.SQLDialect, b *Backend) (storage.Store, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.New("E100").Wrap(err)
	}
	store := storage.NewSQLStore(db,
		storage.WithSQLTableName(cfg.Storage.Table),
		storage.WithSQLDialect(dialect),
	)
	if err := store.CreateTable(ctx); err != nil {
		db.Close()
		return nil, errors.New("E100").Wrap(err)
	}
	b.closers = append(b.closers, db.Close)
	b.logger.Info("store opened", "driver", dialect.String(), "table", cfg.Storage.Table)
	return store, nil
}

func openRedis(ctx context.Context, rc config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.New("E100").
			WithDetail("Redis at " + rc.Addr + " did not answer PING").
			Wrap(err)
	}
	return client, nil
}

func openLogos(cfg *config.Config, b *Backend) (logo.Store, error) {
	switch cfg.Logo.Backend {
	case config.LogoDisk:
		disk, err := logo.NewDiskStore(cfg.LogoDir(), cfg.Logo.URLPrefix)
		if err != nil {
			return nil, errors.New("E146").Wrap(err)
		}
		b.DiskLogos = disk
		return disk, nil

	case config.LogoS3:
		client := NewS3Client(cfg.Logo.S3)
		opts := []logo.S3Option{logo.WithPresigner(s3.NewPresignClient(client))}
		if cfg.Logo.S3.Prefix != "" {
			opts = append(opts, logo.WithKeyPrefix(cfg.Logo.S3.Prefix))
		}
		if cfg.Logo.S3.PublicURL != "" {
			opts = append(opts, logo.WithPublicURL(cfg.Logo.S3.PublicURL))
		}
		return logo.NewS3Store(client, cfg.Logo.S3.Bucket, opts...), nil
	}
	return logo.DataURLStore{}, nil
}

// NewS3Client builds an S3 client from the logo settings. Credentials come
// from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func NewS3Client(sc config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:      sc.Region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}
	if sc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(sc.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}
