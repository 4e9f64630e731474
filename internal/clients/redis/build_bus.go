package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

const DefaultBuildChannel = "spackmon:builds"

// BuildBus fans build status changes out over redis pub/sub.
type BuildBus interface {
	PublishBuildStatus(ctx context.Context, ev types.BuildStatusEvent) error
	Subscribe(ctx context.Context, onEvent func(ev types.BuildStatusEvent)) error
}

type buildBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewBuildBus(log *logger.Logger, rdb *goredis.Client, channel string) (BuildBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	ch := strings.TrimSpace(channel)
	if ch == "" {
		ch = DefaultBuildChannel
	}
	return &buildBus{
		log:     log.With("service", "RedisBuildBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *buildBus) PublishBuildStatus(ctx context.Context, ev types.BuildStatusEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *buildBus) Subscribe(ctx context.Context, onEvent func(ev types.BuildStatusEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev types.BuildStatusEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad redis build payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}
