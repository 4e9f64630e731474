package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/spackmon-backend/internal/clients/redis"
	"github.com/yungbote/spackmon-backend/internal/data/graph"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
	"github.com/yungbote/spackmon-backend/internal/platform/neo4jdb"
	"github.com/yungbote/spackmon-backend/internal/services"
)

// Clients holds the optional external systems. Each field is nil when not configured.
type Clients struct {
	Redis      *goredis.Client
	BuildBus   redis.BuildBus
	TokenStore services.TokenStore
	Neo4j      *neo4jdb.Client
	Projector  services.SpecProjector
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	rdb, err := redis.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return out, fmt.Errorf("init redis: %w", err)
	}
	if rdb != nil {
		bus, err := redis.NewBuildBus(log, rdb, cfg.RedisChannel)
		if err != nil {
			_ = rdb.Close()
			return out, fmt.Errorf("init redis build bus: %w", err)
		}
		out.Redis = rdb
		out.BuildBus = bus
		out.TokenStore = redis.NewTokenStore(rdb)
	}

	// Neo4j
	n4j, err := neo4jdb.New(log, neo4jdb.Config{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	})
	if err != nil {
		out.Close(ctx)
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	if n4j != nil {
		out.Neo4j = n4j
		out.Projector = graph.NewSpecProjector(n4j, log)
	}
	return out, nil
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(ctx)
	}
}
