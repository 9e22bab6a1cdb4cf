// AngelaMos | 2026
// mongo.go

package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Hiranx/WorldCountries/internal/config"
)

type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
	pool   *poolCounters
}

type poolCounters struct {
	open    atomic.Int64
	inUse   atomic.Int64
	created atomic.Int64
	closed  atomic.Int64
}

func (p *poolCounters) observe(e *event.PoolEvent) {
	switch e.Type {
	case event.ConnectionCreated:
		p.open.Add(1)
		p.created.Add(1)
	case event.ConnectionClosed:
		p.open.Add(-1)
		p.closed.Add(1)
	case event.ConnectionCheckedOut:
		p.inUse.Add(1)
	case event.ConnectionCheckedIn:
		p.inUse.Add(-1)
	}
}

func NewMongo(ctx context.Context, cfg config.DatabaseConfig) (*Mongo, error) {
	pool := &poolCounters{}

	opts := options.Client().
		ApplyURI(cfg.URL).
		SetMaxConnIdleTime(cfg.ConnMaxIdleTime).
		SetPoolMonitor(&event.PoolMonitor{Event: pool.observe})

	if cfg.MaxOpenConns > 0 {
		//nolint:gosec // G115: pool size comes from validated config
		opts.SetMaxPoolSize(uint64(cfg.MaxOpenConns))
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background()) //nolint:errcheck // cleanup on connection failure
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Mongo{
		Client: client,
		DB:     client.Database(cfg.Name),
		pool:   pool,
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.Client != nil {
		return m.Client.Disconnect(ctx)
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.Client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}

	return nil
}

// Stats reports connection counts observed by the driver's pool monitor.
func (m *Mongo) Stats() MongoStats {
	return MongoStats{
		Database:        m.DB.Name(),
		OpenConnections: m.pool.open.Load(),
		InUse:           m.pool.inUse.Load(),
		Created:         m.pool.created.Load(),
		Closed:          m.pool.closed.Load(),
	}
}

type MongoStats struct {
	Database        string
	OpenConnections int64
	InUse           int64
	Created         int64
	Closed          int64
}
